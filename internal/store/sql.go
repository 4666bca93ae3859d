package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	// Register Postgres SQL driver.
	_ "github.com/lib/pq"
	// Register SQLite SQL driver.
	_ "modernc.org/sqlite"
)

type sqlDialect string

const (
	dialectSQLite   sqlDialect = "sqlite"
	dialectPostgres sqlDialect = "postgres"
)

const defaultSQLTable = "keyguard_global_data"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLStore persists key-value entries in SQL backends (SQLite or Postgres).
type SQLStore struct {
	db      *sql.DB
	dialect sqlDialect
	table   string
}

// NewSQLiteStore creates a SQLite-backed store.
// dsn can be a file path (e.g. /tmp/keys.db) or SQLite DSN.
func NewSQLiteStore(ctx context.Context, dsn, table string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "keyguard.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return newSQLStore(ctx, db, dialectSQLite, table)
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(ctx context.Context, dsn, table string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	return newSQLStore(ctx, db, dialectPostgres, table)
}

func newSQLStore(ctx context.Context, db *sql.DB, dialect sqlDialect, table string) (*SQLStore, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		table = defaultSQLTable
	}
	if !tableNamePattern.MatchString(table) {
		_ = db.Close()
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	s := &SQLStore{db: db, dialect: dialect, table: table}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s store: %w", s.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS ` + s.table + ` (
	data_key TEXT PRIMARY KEY,
	data_value TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);`

	if s.dialect == dialectPostgres {
		ddl = `
CREATE TABLE IF NOT EXISTS ` + s.table + ` (
	data_key TEXT PRIMARY KEY,
	data_value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);`
	}

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("initialize %s store schema: %w", s.dialect, err)
	}
	return nil
}

// Get returns the value stored under key, or nil when no row exists.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	q := s.bind(`SELECT data_value FROM ` + s.table + ` WHERE data_key = ?`)
	var raw string
	if err := s.db.QueryRowContext(ctx, q, key).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", s.table, err)
	}
	return []byte(raw), nil
}

// Set upserts the value stored under key.
func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	upsert := `
INSERT INTO ` + s.table + `(data_key, data_value, updated_at)
VALUES(?, ?, ?)
ON CONFLICT(data_key) DO UPDATE SET data_value = excluded.data_value, updated_at = excluded.updated_at`

	if s.dialect == dialectPostgres {
		upsert = `
INSERT INTO ` + s.table + `(data_key, data_value, updated_at)
VALUES(?, ?, ?)
ON CONFLICT(data_key) DO UPDATE SET data_value = EXCLUDED.data_value, updated_at = EXCLUDED.updated_at`
	}

	if _, err := s.db.ExecContext(ctx, s.bind(upsert), key, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("set %s: %w", s.table, err)
	}
	return nil
}

// Keys returns the sorted keys starting with prefix.
func (s *SQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	q := s.bind(`SELECT data_key FROM ` + s.table + ` WHERE substr(data_key, 1, ?) = ? ORDER BY data_key`)
	rows, err := s.db.QueryContext(ctx, q, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.table, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the underlying database handle.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) bind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var (
		b      strings.Builder
		argNum = 1
	)
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteString(fmt.Sprintf("$%d", argNum))
			argNum++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
