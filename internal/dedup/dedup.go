// Package dedup removes duplicate job records within a batch and against the
// records persisted by earlier runs.
package dedup

import (
	"cmp"
	"slices"

	"jobmate/discovery/internal/model"
)

// Collapse keeps one record per (title, company): the first one after a
// stable sort on that key. The input slice is not modified.
func Collapse(records []model.JobRecord) []model.JobRecord {
	if len(records) < 2 {
		return slices.Clone(records)
	}
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b model.JobRecord) int {
		if c := cmp.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		return cmp.Compare(a.Company, b.Company)
	})

	out := sorted[:1]
	for _, r := range sorted[1:] {
		if r.GroupKey() != out[len(out)-1].GroupKey() {
			out = append(out, r)
		}
	}
	return out
}

// KeySet indexes the identity keys of a persisted record set.
type KeySet struct {
	urls    map[string]struct{}
	triples map[model.IdentityKey]struct{}
}

// NewKeySet returns an empty set.
func NewKeySet() *KeySet {
	return &KeySet{
		urls:    make(map[string]struct{}),
		triples: make(map[model.IdentityKey]struct{}),
	}
}

// KeySetOf indexes records.
func KeySetOf(records []model.JobRecord) *KeySet {
	ks := NewKeySet()
	for _, r := range records {
		ks.Add(r)
	}
	return ks
}

// Add indexes the record's URL (when present) and its identity triple.
func (k *KeySet) Add(r model.JobRecord) {
	if r.SourceURL != "" {
		k.urls[r.SourceURL] = struct{}{}
	}
	k.triples[r.IdentityKey()] = struct{}{}
}

// Len is the number of indexed triples.
func (k *KeySet) Len() int {
	if k == nil {
		return 0
	}
	return len(k.triples)
}

// Known reports whether r matches an indexed record on URL or on
// (title, company, posted date). Empty URLs never match.
func (k *KeySet) Known(r model.JobRecord) bool {
	if k.Len() == 0 {
		return false
	}
	if r.SourceURL != "" {
		if _, ok := k.urls[r.SourceURL]; ok {
			return true
		}
	}
	_, ok := k.triples[r.IdentityKey()]
	return ok
}

// Snapshot holds the keys of both persisted tables as of the start of a run.
type Snapshot struct {
	Accepted *KeySet
	Filtered *KeySet
}

// Empty reports whether nothing has been persisted yet.
func (s Snapshot) Empty() bool {
	return s.Accepted.Len() == 0 && s.Filtered.Len() == 0
}

// Unknown returns the records of batch matching neither persisted set,
// preserving order.
func (s Snapshot) Unknown(batch []model.JobRecord) []model.JobRecord {
	if s.Empty() {
		return slices.Clone(batch)
	}
	out := make([]model.JobRecord, 0, len(batch))
	for _, r := range batch {
		if s.Accepted.Known(r) || s.Filtered.Known(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}
