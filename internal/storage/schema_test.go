package storage_test

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/discovery/internal/storage"
)

func columnNames(cols []storage.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func TestDiffColumns(t *testing.T) {
	declared := []storage.Column{{Name: "title"}, {Name: "notes"}, {Name: "starred", Type: storage.Integer}}

	assert.Equal(t, []string{"notes", "starred"}, columnNames(storage.DiffColumns(declared, []string{"id", "TITLE"})))
	assert.Empty(t, storage.DiffColumns(declared, []string{"title", "notes", "starred", "extra"}))
	assert.Len(t, storage.DiffColumns(declared, nil), 3)
}

func TestCheckCompatible(t *testing.T) {
	require.NoError(t, storage.CheckCompatible("jobs", []string{"id", "title", "company", "posted_date"}))
	require.NoError(t, storage.CheckCompatible("jobs", []string{"title", "company", "posted_date"}), "identity is rebuilt, not required")

	err := storage.CheckCompatible("jobs", []string{"id", "title", "company", "date", "job_url"})
	var se *storage.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"posted_date"}, se.Missing)
	assert.Contains(t, err.Error(), "jobs")
}

func TestPlanRenames(t *testing.T) {
	got := storage.PlanRenames([]string{"title", "company", "date", "job_url", "job_description", "date_loaded"})
	assert.Equal(t, []storage.Rename{
		{From: "date", To: "posted_date"},
		{From: "job_url", To: "source_url"},
		{From: "job_description", To: "description"},
		{From: "date_loaded", To: "loaded_at"},
	}, got)

	assert.Empty(t, storage.PlanRenames([]string{"title", "posted_date", "source_url"}))
	assert.Empty(t, storage.PlanRenames([]string{"date", "posted_date"}), "declared name already present")
}

func TestValidTableName(t *testing.T) {
	assert.NoError(t, storage.ValidTableName("jobs_filtered"))
	assert.Error(t, storage.ValidTableName("jobs; DROP TABLE x"))
	assert.Error(t, storage.ValidTableName(""))
}

func TestDialects(t *testing.T) {
	pg, err := storage.DialectFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, "$3", pg.Placeholder(3))
	assert.True(t, pg.IsDuplicateColumn(&pgconn.PgError{Code: "42701"}))
	assert.False(t, pg.IsDuplicateColumn(&pgconn.PgError{Code: "42P01"}))

	lite, err := storage.DialectFor("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "?", lite.Placeholder(3))
	assert.True(t, lite.IsDuplicateColumn(errors.New("SQL logic error: duplicate column name: notes (1)")))

	_, err = storage.DialectFor("mysql")
	assert.Error(t, err)
}
