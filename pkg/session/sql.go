package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// SQLStorage keeps session keys in a SQL table, one row per
// (namespace, key). It works with any database/sql driver. Requires a table
// with schema (see CreateTable):
//
//	CREATE TABLE bartr_session_values (
//	    namespace TEXT NOT NULL,
//	    item_key TEXT NOT NULL,
//	    value TEXT NOT NULL,
//	    updated_at TIMESTAMP NOT NULL,
//	    PRIMARY KEY (namespace, item_key)
//	);
type SQLStorage struct {
	db        *sql.DB
	tableName string
	dialect   SQLDialect
	closed    atomic.Bool
	now       func() time.Time
}

// SQLDialect represents the SQL dialect for query generation.
type SQLDialect int

const (
	// DialectSQLite uses SQLite syntax (? placeholders).
	DialectSQLite SQLDialect = iota
	// DialectPostgreSQL uses PostgreSQL syntax ($1, $2 placeholders).
	DialectPostgreSQL
)

// SQLStorageOption configures SQLStorage behavior.
type SQLStorageOption func(*SQLStorage)

// WithSQLTableName sets the table name. Default: "bartr_session_values".
func WithSQLTableName(name string) SQLStorageOption {
	return func(s *SQLStorage) {
		s.tableName = name
	}
}

// WithSQLDialect sets the SQL dialect. Default: DialectSQLite.
func WithSQLDialect(dialect SQLDialect) SQLStorageOption {
	return func(s *SQLStorage) {
		s.dialect = dialect
	}
}

// NewSQLStorage creates a SQL-backed storage provider.
func NewSQLStorage(db *sql.DB, opts ...SQLStorageOption) *SQLStorage {
	s := &SQLStorage{
		db:        db,
		tableName: "bartr_session_values",
		dialect:   DialectSQLite,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SQLStorage) placeholder(n int) string {
	if s.dialect == DialectPostgreSQL {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// CreateTable creates the table if it does not exist.
func (s *SQLStorage) CreateTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			namespace TEXT NOT NULL,
			item_key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (namespace, item_key)
		)
	`, s.tableName)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", s.tableName, err)
	}
	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_updated ON %s(updated_at)`, s.tableName, s.tableName)
	if _, err := s.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("create %s index: %w", s.tableName, err)
	}
	return nil
}

// Namespace implements Provider.
func (s *SQLStorage) Namespace(id string) Storage {
	return &sqlNamespace{store: s, namespace: id}
}

// Drop implements Provider.
func (s *SQLStorage) Drop(ctx context.Context, id string) error {
	if s.closed.Load() {
		return ErrStorageClosed
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE namespace = %s`, s.tableName, s.placeholder(1))
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}

// Purge removes namespaces whose values were all last written before
// cutoff and returns the number of rows deleted.
func (s *SQLStorage) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.closed.Load() {
		return 0, ErrStorageClosed
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE updated_at < %s`, s.tableName, s.placeholder(1))
	res, err := s.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close marks the storage closed. The database handle is shared and stays
// open.
func (s *SQLStorage) Close() error {
	s.closed.Store(true)
	return nil
}

type sqlNamespace struct {
	store     *SQLStorage
	namespace string
}

func (n *sqlNamespace) Get(ctx context.Context, key string) (string, bool, error) {
	s := n.store
	if s.closed.Load() {
		return "", false, ErrStorageClosed
	}
	query := fmt.Sprintf(`SELECT value FROM %s WHERE namespace = %s AND item_key = %s`,
		s.tableName, s.placeholder(1), s.placeholder(2))

	var value string
	err := s.db.QueryRowContext(ctx, query, n.namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (n *sqlNamespace) Set(ctx context.Context, key, value string) error {
	s := n.store
	if s.closed.Load() {
		return ErrStorageClosed
	}

	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (namespace, item_key, value, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (namespace, item_key) DO UPDATE SET
				value = EXCLUDED.value,
				updated_at = EXCLUDED.updated_at
		`, s.tableName)
	default:
		query = fmt.Sprintf(`
			INSERT OR REPLACE INTO %s (namespace, item_key, value, updated_at)
			VALUES (?, ?, ?, ?)
		`, s.tableName)
	}

	_, err := s.db.ExecContext(ctx, query, n.namespace, key, value, s.now().UTC())
	return err
}

func (n *sqlNamespace) Remove(ctx context.Context, key string) error {
	s := n.store
	if s.closed.Load() {
		return ErrStorageClosed
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE namespace = %s AND item_key = %s`,
		s.tableName, s.placeholder(1), s.placeholder(2))
	_, err := s.db.ExecContext(ctx, query, n.namespace, key)
	return err
}
