package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"jobmate/discovery/internal/dedup"
	"jobmate/discovery/internal/logging"
	"jobmate/discovery/internal/model"
)

var (
	// ErrConnection wraps every failure to reach the database.
	ErrConnection = errors.New("storage connection failed")
	// ErrNotFound is returned when no row has the requested id.
	ErrNotFound = errors.New("job not found")
)

// Reconciler is the storage boundary of a discovery run: read a key snapshot,
// then append the records it did not contain.
type Reconciler interface {
	EnsureSchema(ctx context.Context, table string) error
	UpsertNew(ctx context.Context, table string, records []model.JobRecord) (int, error)
	Snapshot(ctx context.Context, acceptedTable, filteredTable string) (dedup.Snapshot, error)
}

var _ Reconciler = (*SQLStore)(nil)

// SQLStore implements Reconciler and the review operations over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
	log     zerolog.Logger
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB, dialect Dialect, log zerolog.Logger) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialect,
		now:     time.Now,
		log:     logging.Component(log, "storage").With().Str("dialect", dialect.Name()).Logger(),
	}
}

func (s *SQLStore) ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.Wrap(ErrConnection, err.Error())
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLStore) tableExists(ctx context.Context, q querier, table string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, s.dialect.TableExists(), table).Scan(&n); err != nil {
		return false, errors.Wrapf(err, "check table %s", table)
	}
	return n > 0, nil
}

func (s *SQLStore) columns(ctx context.Context, q querier, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, s.dialect.Columns(), table)
	if err != nil {
		return nil, errors.Wrapf(err, "list columns of %s", table)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scan column name")
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// ── Schema ────────────────────────────────────────────────────────────────

// EnsureSchema creates table if missing and otherwise brings it in line with
// JobColumns: legacy column names are renamed, a table without an identity
// column is rebuilt with its rows copied over, and missing columns are added.
// Only a table lacking title, company or posted date is dropped and
// recreated. Calling it on an up-to-date table changes nothing.
func (s *SQLStore) EnsureSchema(ctx context.Context, table string) error {
	if err := ValidTableName(table); err != nil {
		return err
	}
	if err := s.ping(ctx); err != nil {
		return err
	}

	exists, err := s.tableExists(ctx, s.db, table)
	if err != nil {
		return err
	}
	if !exists {
		return s.createTable(ctx, s.db, table)
	}

	cols, err := s.columns(ctx, s.db, table)
	if err != nil {
		return err
	}
	if renames := PlanRenames(cols); len(renames) > 0 {
		for _, r := range renames {
			stmt := fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", quote(table), quote(r.From), quote(r.To))
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return errors.Wrapf(err, "rename column %s.%s", table, r.From)
			}
			s.log.Info().Str("table", table).Str("from", r.From).Str("to", r.To).Msg("renamed legacy column")
		}
		cols = applyRenames(cols, renames)
	}

	if err := CheckCompatible(table, cols); err != nil {
		s.log.Warn().Err(err).Str("table", table).Msg("dropping and recreating incompatible table")
		if _, err := s.db.ExecContext(ctx, "DROP TABLE "+quote(table)); err != nil {
			return errors.Wrapf(err, "drop table %s", table)
		}
		return s.createTable(ctx, s.db, table)
	}

	if !hasColumn(cols, IdentityColumn) {
		return s.rebuild(ctx, table, cols)
	}

	for _, c := range DiffColumns(JobColumns, cols) {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quote(table), quote(c.Name), s.dialect.TypeDDL(c.Type))
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			if s.dialect.IsDuplicateColumn(err) {
				continue
			}
			return errors.Wrapf(err, "add column %s.%s", table, c.Name)
		}
		s.log.Info().Str("table", table).Str("column", c.Name).Msg("added missing column")
	}
	return nil
}

func (s *SQLStore) createTable(ctx context.Context, q querier, table string) error {
	defs := make([]string, 0, len(JobColumns)+1)
	defs = append(defs, s.dialect.IdentityDDL())
	for _, c := range JobColumns {
		defs = append(defs, quote(c.Name)+" "+s.dialect.TypeDDL(c.Type))
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(table), strings.Join(defs, ", "))
	if _, err := q.ExecContext(ctx, stmt); err != nil {
		return errors.Wrapf(err, "create table %s", table)
	}
	s.log.Info().Str("table", table).Msg("created table")
	return nil
}

// rebuild copies the declared columns of table into a freshly created table
// with an identity column, then swaps it in, all in one transaction.
func (s *SQLStore) rebuild(ctx context.Context, table string, cols []string) error {
	tmp := table + "_rebuild"
	var shared []string
	for _, c := range JobColumns {
		if hasColumn(cols, c.Name) {
			shared = append(shared, quote(c.Name))
		}
	}
	list := strings.Join(shared, ", ")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(ErrConnection, err.Error())
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(tmp)); err != nil {
		return errors.Wrapf(err, "drop %s", tmp)
	}
	if err := s.createTable(ctx, tx, tmp); err != nil {
		return err
	}
	copyStmt := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", quote(tmp), list, list, quote(table))
	if _, err := tx.ExecContext(ctx, copyStmt); err != nil {
		return errors.Wrapf(err, "copy rows of %s", table)
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE "+quote(table)); err != nil {
		return errors.Wrapf(err, "drop table %s", table)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quote(tmp), quote(table))); err != nil {
		return errors.Wrapf(err, "rename %s", tmp)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "commit rebuild of %s", table)
	}
	s.log.Warn().Str("table", table).Msg("rebuilt table without identity column")
	return nil
}

// ── Append ────────────────────────────────────────────────────────────────

// UpsertNew appends records to table in a single transaction and returns the
// number of rows inserted. Existing rows are never updated or deleted; the
// caller guarantees records are disjoint from what is stored.
func (s *SQLStore) UpsertNew(ctx context.Context, table string, records []model.JobRecord) (int, error) {
	if err := s.EnsureSchema(ctx, table); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	names := make([]string, len(JobColumns))
	marks := make([]string, len(JobColumns))
	for i, c := range JobColumns {
		names[i] = quote(c.Name)
		marks[i] = s.dialect.Placeholder(i + 1)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(table), strings.Join(names, ", "), strings.Join(marks, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(ErrConnection, err.Error())
	}
	defer func() { _ = tx.Rollback() }()

	ins, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return 0, errors.Wrapf(err, "prepare insert into %s", table)
	}
	defer ins.Close()

	loadedAt := s.now().UTC().Format(time.RFC3339)
	for _, r := range records {
		if _, err := ins.ExecContext(ctx, insertArgs(r, loadedAt)...); err != nil {
			return 0, errors.Wrapf(err, "insert %s into %s", r.SourceURL, table)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrapf(err, "commit %s", table)
	}
	s.log.Info().Str("table", table).Int("rows", len(records)).Msg("appended records")
	return len(records), nil
}

// keyColumn selects name, its legacy alias when the table predates it, or an
// empty string literal.
func keyColumn(cols []string, name string) string {
	if hasColumn(cols, name) {
		return quote(name)
	}
	for _, r := range LegacyColumns {
		if r.To == name && hasColumn(cols, r.From) {
			return quote(r.From)
		}
	}
	return "''"
}

// insertArgs follows JobColumns order.
func insertArgs(r model.JobRecord, loadedAt string) []any {
	return []any{
		r.Title, r.Company, r.Location, r.PostedDate, r.SourceURL,
		r.Description, r.SeniorityLevel, r.EmploymentType, r.JobFunction, r.Industries,
		boolInt(r.Applied), boolInt(r.Hidden), boolInt(r.Interview), boolInt(r.Rejected), boolInt(r.Starred),
		r.Notes, r.TailoredResume, loadedAt,
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ── Snapshot ──────────────────────────────────────────────────────────────

// Snapshot loads the identity keys of both tables. A missing or incompatible
// table contributes an empty set.
func (s *SQLStore) Snapshot(ctx context.Context, acceptedTable, filteredTable string) (dedup.Snapshot, error) {
	if err := s.ping(ctx); err != nil {
		return dedup.Snapshot{}, err
	}
	accepted, err := s.keys(ctx, acceptedTable)
	if err != nil {
		return dedup.Snapshot{}, err
	}
	filtered, err := s.keys(ctx, filteredTable)
	if err != nil {
		return dedup.Snapshot{}, err
	}
	return dedup.Snapshot{Accepted: accepted, Filtered: filtered}, nil
}

func (s *SQLStore) keys(ctx context.Context, table string) (*dedup.KeySet, error) {
	ks := dedup.NewKeySet()
	if err := ValidTableName(table); err != nil {
		return nil, err
	}
	exists, err := s.tableExists(ctx, s.db, table)
	if err != nil || !exists {
		return ks, err
	}
	cols, err := s.columns(ctx, s.db, table)
	if err != nil {
		return nil, err
	}
	if CheckCompatible(table, applyRenames(cols, PlanRenames(cols))) != nil {
		return ks, nil
	}

	query := fmt.Sprintf("SELECT %s, %s, %s, %s FROM %s",
		keyColumn(cols, "title"), keyColumn(cols, "company"), keyColumn(cols, "posted_date"),
		keyColumn(cols, "source_url"), quote(table))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "load keys of %s", table)
	}
	defer rows.Close()

	for rows.Next() {
		var title, company, posted, url sql.NullString
		if err := rows.Scan(&title, &company, &posted, &url); err != nil {
			return nil, errors.Wrapf(err, "scan keys of %s", table)
		}
		ks.Add(model.JobRecord{
			Title:      title.String,
			Company:    company.String,
			PostedDate: posted.String,
			SourceURL:  url.String,
		})
	}
	return ks, rows.Err()
}
