package db

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Open returns a database/sql handle for driver ("sqlite" or "postgres") and
// a func releasing everything it opened.
func Open(ctx context.Context, driver, databaseURL, path string) (*sql.DB, func(), error) {
	switch driver {
	case "postgres":
		return OpenPostgres(ctx, databaseURL)
	case "sqlite":
		sqlDB, err := OpenSQLite(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return sqlDB, func() { _ = sqlDB.Close() }, nil
	}
	return nil, nil, errors.Errorf("unsupported database driver %q", driver)
}
