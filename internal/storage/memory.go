package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"jobmate/discovery/internal/dedup"
	"jobmate/discovery/internal/model"
)

// MemoryStore keeps tables in process memory. It honours the same append-only
// contract as SQLStore and backs unit tests and dry runs.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string][]model.JobRecord
	nextID int64
	now    func() time.Time
}

var _ Reconciler = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]model.JobRecord), now: time.Now}
}

func (m *MemoryStore) EnsureSchema(_ context.Context, table string) error {
	if err := ValidTableName(table); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[table]; !ok {
		m.tables[table] = nil
	}
	return nil
}

func (m *MemoryStore) UpsertNew(ctx context.Context, table string, records []model.JobRecord) (int, error) {
	if err := m.EnsureSchema(ctx, table); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	loadedAt := m.now().UTC().Truncate(time.Second)
	for _, r := range records {
		m.nextID++
		r.ID = m.nextID
		r.LoadedAt = loadedAt
		m.tables[table] = append(m.tables[table], r)
	}
	return len(records), nil
}

func (m *MemoryStore) Snapshot(_ context.Context, acceptedTable, filteredTable string) (dedup.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return dedup.Snapshot{
		Accepted: dedup.KeySetOf(m.tables[acceptedTable]),
		Filtered: dedup.KeySetOf(m.tables[filteredTable]),
	}, nil
}

// Rows returns a copy of table in insertion order.
func (m *MemoryStore) Rows(table string) []model.JobRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tables[table])
}

func (m *MemoryStore) List(_ context.Context, table string, includeHidden bool) ([]model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.JobRecord
	for _, r := range m.tables[table] {
		if r.Hidden && !includeHidden {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b model.JobRecord) int {
		if c := cmp.Compare(b.PostedDate, a.PostedDate); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, table string, id int64) (model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r := m.find(table, id); r != nil {
		return *r, nil
	}
	return model.JobRecord{}, ErrNotFound
}

func (m *MemoryStore) SetFlag(_ context.Context, table string, id int64, column string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(table, id)
	if r == nil {
		return ErrNotFound
	}
	f, err := flagField(r, column)
	if err != nil {
		return err
	}
	*f = value
	return nil
}

func (m *MemoryStore) ToggleFlag(_ context.Context, table string, id int64, column string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(table, id)
	if r == nil {
		return false, ErrNotFound
	}
	f, err := flagField(r, column)
	if err != nil {
		return false, err
	}
	*f = !*f
	return *f, nil
}

func (m *MemoryStore) SetText(_ context.Context, table string, id int64, column, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(table, id)
	if r == nil {
		return ErrNotFound
	}
	switch column {
	case "notes":
		r.Notes = value
	case "tailored_resume":
		r.TailoredResume = value
	default:
		return fmt.Errorf("unknown text column %q", column)
	}
	return nil
}

func (m *MemoryStore) find(table string, id int64) *model.JobRecord {
	rows := m.tables[table]
	for i := range rows {
		if rows[i].ID == id {
			return &rows[i]
		}
	}
	return nil
}

func flagField(r *model.JobRecord, column string) (*bool, error) {
	switch column {
	case "applied":
		return &r.Applied, nil
	case "hidden":
		return &r.Hidden, nil
	case "interview":
		return &r.Interview, nil
	case "rejected":
		return &r.Rejected, nil
	case "starred":
		return &r.Starred, nil
	}
	return nil, fmt.Errorf("unknown flag column %q", column)
}
