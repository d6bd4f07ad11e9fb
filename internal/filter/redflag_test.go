package filter_test

import (
	"testing"

	"jobmate/discovery/internal/filter"
)

func TestContainsAny(t *testing.T) {
	cases := []struct {
		text  string
		terms []string
		want  bool
	}{
		{"Senior Go Engineer", []string{"senior"}, true},
		{"Senior Go Engineer", []string{"SENIOR"}, true},
		{"Go Engineer", []string{"senior", "lead"}, false},
		{"Go Engineer", nil, false},
		{"Go Engineer", []string{""}, false},
		{"", []string{"go"}, false},
	}
	for _, c := range cases {
		if got := filter.ContainsAny(c.text, c.terms); got != c.want {
			t.Errorf("ContainsAny(%q, %v) = %v, want %v", c.text, c.terms, got, c.want)
		}
	}
}
