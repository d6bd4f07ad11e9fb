package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"jobmate/discovery/internal/model"
)

// Workflow columns the review surface may change.
var (
	flagColumns = map[string]bool{"applied": true, "hidden": true, "interview": true, "rejected": true, "starred": true}
	textColumns = map[string]bool{"notes": true, "tailored_resume": true}
)

func (s *SQLStore) selectList() string {
	cols := make([]string, 0, len(JobColumns)+1)
	cols = append(cols, quote(IdentityColumn))
	for _, c := range JobColumns {
		cols = append(cols, quote(c.Name))
	}
	return strings.Join(cols, ", ")
}

// List returns the rows of table newest first (posted date, then id). Hidden
// rows are skipped unless includeHidden is set. A missing table is empty.
func (s *SQLStore) List(ctx context.Context, table string, includeHidden bool) ([]model.JobRecord, error) {
	if err := ValidTableName(table); err != nil {
		return nil, err
	}
	if err := s.ping(ctx); err != nil {
		return nil, err
	}
	exists, err := s.tableExists(ctx, s.db, table)
	if err != nil || !exists {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", s.selectList(), quote(table))
	if !includeHidden {
		query += fmt.Sprintf(" WHERE COALESCE(%s, 0) = 0", quote("hidden"))
	}
	query += fmt.Sprintf(" ORDER BY %s DESC, %s DESC", quote("posted_date"), quote(IdentityColumn))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", table)
	}
	defer rows.Close()

	var out []model.JobRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrapf(err, "scan %s", table)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns one row by id, or ErrNotFound.
func (s *SQLStore) Get(ctx context.Context, table string, id int64) (model.JobRecord, error) {
	if err := ValidTableName(table); err != nil {
		return model.JobRecord{}, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		s.selectList(), quote(table), quote(IdentityColumn), s.dialect.Placeholder(1))
	r, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.JobRecord{}, ErrNotFound
	}
	if err != nil {
		return model.JobRecord{}, errors.Wrapf(err, "get %s/%d", table, id)
	}
	return r, nil
}

// SetFlag sets one workflow flag column.
func (s *SQLStore) SetFlag(ctx context.Context, table string, id int64, column string, value bool) error {
	if !flagColumns[column] {
		return fmt.Errorf("unknown flag column %q", column)
	}
	return s.update(ctx, table, id, column, boolInt(value))
}

// ToggleFlag flips one workflow flag column and returns its new value.
func (s *SQLStore) ToggleFlag(ctx context.Context, table string, id int64, column string) (bool, error) {
	if !flagColumns[column] {
		return false, fmt.Errorf("unknown flag column %q", column)
	}
	if err := ValidTableName(table); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(ErrConnection, err.Error())
	}
	defer func() { _ = tx.Rollback() }()

	var cur sql.NullInt64
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		quote(column), quote(table), quote(IdentityColumn), s.dialect.Placeholder(1))
	if err := tx.QueryRowContext(ctx, query, id).Scan(&cur); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, errors.Wrapf(err, "read %s of %s/%d", column, table, id)
	}
	next := cur.Int64 == 0

	stmt := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
		quote(table), quote(column), s.dialect.Placeholder(1), quote(IdentityColumn), s.dialect.Placeholder(2))
	if _, err := tx.ExecContext(ctx, stmt, boolInt(next), id); err != nil {
		return false, errors.Wrapf(err, "toggle %s of %s/%d", column, table, id)
	}
	return next, errors.Wrap(tx.Commit(), "commit toggle")
}

// SetText replaces notes or tailored_resume.
func (s *SQLStore) SetText(ctx context.Context, table string, id int64, column, value string) error {
	if !textColumns[column] {
		return fmt.Errorf("unknown text column %q", column)
	}
	return s.update(ctx, table, id, column, value)
}

func (s *SQLStore) update(ctx context.Context, table string, id int64, column string, value any) error {
	if err := ValidTableName(table); err != nil {
		return err
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
		quote(table), quote(column), s.dialect.Placeholder(1), quote(IdentityColumn), s.dialect.Placeholder(2))
	res, err := s.db.ExecContext(ctx, stmt, value, id)
	if err != nil {
		return errors.Wrapf(err, "update %s of %s/%d", column, table, id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads a row selected with selectList. Columns added by a schema
// upgrade may be NULL on old rows.
func scanRecord(row rowScanner) (model.JobRecord, error) {
	var (
		r                                                 model.JobRecord
		title, company, location, posted, url             sql.NullString
		desc, seniority, employment, function, industries sql.NullString
		applied, hidden, interview, rejected, starred     sql.NullInt64
		notes, resume, loadedAt                           sql.NullString
	)
	err := row.Scan(&r.ID,
		&title, &company, &location, &posted, &url,
		&desc, &seniority, &employment, &function, &industries,
		&applied, &hidden, &interview, &rejected, &starred,
		&notes, &resume, &loadedAt)
	if err != nil {
		return r, err
	}

	r.Title, r.Company, r.Location, r.PostedDate, r.SourceURL = title.String, company.String, location.String, posted.String, url.String
	r.Description, r.SeniorityLevel, r.EmploymentType = desc.String, seniority.String, employment.String
	r.JobFunction, r.Industries = function.String, industries.String
	r.Applied, r.Hidden, r.Interview = applied.Int64 != 0, hidden.Int64 != 0, interview.Int64 != 0
	r.Rejected, r.Starred = rejected.Int64 != 0, starred.Int64 != 0
	r.Notes, r.TailoredResume = notes.String, resume.String
	r.LoadedAt = parseLoadedAt(loadedAt.String)
	return r, nil
}

// loadedAtLayouts are tried in order; rows migrated from the first table
// layout carry a space-separated timestamp.
var loadedAtLayouts = []string{time.RFC3339, "2006-01-02 15:04:05.999999", "2006-01-02 15:04:05"}

func parseLoadedAt(s string) time.Time {
	for _, layout := range loadedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
