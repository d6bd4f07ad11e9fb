// Package storage persists job records into the accepted and filtered tables
// and keeps those tables in line with the declared column set.
package storage

import (
	"fmt"
	"regexp"
	"strings"
)

// ColumnType is the storage class of a declared column.
type ColumnType int

const (
	Text ColumnType = iota
	Integer
)

// Column is one declared, non-identity column.
type Column struct {
	Name string
	Type ColumnType
}

// IdentityColumn is the auto-incrementing key every job table carries.
const IdentityColumn = "id"

// JobColumns is the declared schema of both job tables, in insert order.
// Integer columns are workflow flags and default to 0; text columns are
// nullable.
var JobColumns = []Column{
	{"title", Text},
	{"company", Text},
	{"location", Text},
	{"posted_date", Text},
	{"source_url", Text},
	{"description", Text},
	{"seniority_level", Text},
	{"employment_type", Text},
	{"job_function", Text},
	{"industries", Text},
	{"applied", Integer},
	{"hidden", Integer},
	{"interview", Integer},
	{"rejected", Integer},
	{"starred", Integer},
	{"notes", Text},
	{"tailored_resume", Text},
	{"loaded_at", Text},
}

// requiredColumns cannot be added after the fact; a table lacking any of them
// holds rows that can never be matched or ordered. A missing identity column
// is repaired by copying the rows into a rebuilt table.
var requiredColumns = []string{"title", "company", "posted_date"}

// Rename maps a column name used by older job tables to its declared name.
type Rename struct {
	From, To string
}

// LegacyColumns lists the column names of the first table layout.
var LegacyColumns = []Rename{
	{"date", "posted_date"},
	{"job_url", "source_url"},
	{"job_description", "description"},
	{"date_loaded", "loaded_at"},
}

// PlanRenames returns the legacy columns present in actual whose declared
// name is absent, in LegacyColumns order.
func PlanRenames(actual []string) []Rename {
	var out []Rename
	for _, r := range LegacyColumns {
		if hasColumn(actual, r.From) && !hasColumn(actual, r.To) {
			out = append(out, r)
		}
	}
	return out
}

// applyRenames returns actual with every planned rename applied.
func applyRenames(actual []string, renames []Rename) []string {
	out := append([]string(nil), actual...)
	for _, r := range renames {
		for i, name := range out {
			if strings.EqualFold(name, r.From) {
				out[i] = r.To
			}
		}
	}
	return out
}

// SchemaError reports a table whose structure is incompatible with
// JobColumns.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %s is incompatible: missing required column(s) %s",
		e.Table, strings.Join(e.Missing, ", "))
}

// DiffColumns returns the declared columns absent from actual, in declared
// order. Names compare case-insensitively.
func DiffColumns(declared []Column, actual []string) []Column {
	have := make(map[string]bool, len(actual))
	for _, name := range actual {
		have[strings.ToLower(name)] = true
	}
	var missing []Column
	for _, c := range declared {
		if !have[strings.ToLower(c.Name)] {
			missing = append(missing, c)
		}
	}
	return missing
}

// CheckCompatible returns a *SchemaError when actual lacks a column that
// cannot be added in place.
func CheckCompatible(table string, actual []string) error {
	have := make(map[string]bool, len(actual))
	for _, name := range actual {
		have[strings.ToLower(name)] = true
	}
	var missing []string
	for _, name := range requiredColumns {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Table: table, Missing: missing}
	}
	return nil
}

func hasColumn(actual []string, name string) bool {
	for _, a := range actual {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidTableName reports whether name is usable as an unquoted identifier.
func ValidTableName(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}
