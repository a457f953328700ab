package store

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"

	DefaultSQLitePath = "awake.db"
	pingTimeout       = 10 * time.Second
)

// DB wraps sqlx.DB with the driver it was opened with.
type DB struct {
	*sqlx.DB
	Driver string
}

// OpenFromConfig opens a database based on the provided url/path.
// A non-empty dbURL selects postgres unless driverOverride says otherwise.
func OpenFromConfig(dbURL, sqlitePath, driverOverride string) (*DB, error) {
	sqlx.NameMapper = toSnake

	driver, dsn, err := resolveDriver(dbURL, sqlitePath, driverOverride)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// sqlite allows one writer at a time.
		db.SetMaxOpenConns(1)
	}
	return &DB{DB: db, Driver: driver}, nil
}

func resolveDriver(dbURL, sqlitePath, driverOverride string) (driver, dsn string, err error) {
	if sqlitePath == "" {
		sqlitePath = DefaultSQLitePath
	}
	switch strings.ToLower(strings.TrimSpace(driverOverride)) {
	case "", "default":
		if dbURL != "" {
			return DriverPostgres, dbURL, nil
		}
		return DriverSQLite, sqlitePath, nil
	case "postgres", "postgresql", "pgx":
		if dbURL == "" {
			return "", "", fmt.Errorf("database_url required for %s driver", driverOverride)
		}
		return DriverPostgres, dbURL, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, sqlitePath, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", driverOverride)
	}
}

func toSnake(s string) string {
	var out strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := rune(s[i-1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) {
					out.WriteByte('_')
				}
			}
			out.WriteRune(unicode.ToLower(r))
		} else {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}
