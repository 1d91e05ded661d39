package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQL loads documents from a two column table: name (primary key) and content.
type SQL struct {
	db    *sql.DB
	table string
	load  string
	put   string
}

func NewSQL(db *sql.DB, table string) (*SQL, error) {
	if table == "" {
		table = "decisions"
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SQL{
		db:    db,
		table: table,
		load:  fmt.Sprintf("SELECT content FROM %s WHERE name = ?", table),
		put:   fmt.Sprintf("INSERT INTO %s (name, content) VALUES (?, ?) ON CONFLICT (name) DO UPDATE SET content = excluded.content", table),
	}, nil
}

// EnsureSchema creates the documents table when missing.
func (s *SQL) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY, content BLOB NOT NULL)", s.table))
	if err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func (s *SQL) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, s.load, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, backendFailure(key, err)
	}
	return data, nil
}

func (s *SQL) Put(ctx context.Context, key string, content []byte) error {
	if _, err := s.db.ExecContext(ctx, s.put, key, content); err != nil {
		return backendFailure(key, err)
	}
	return nil
}
