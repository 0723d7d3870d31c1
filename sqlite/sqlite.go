// Package sqlite stores jobs and attendance in SQLite using the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/deepnoodle-ai/captain/internal/sqlrepo"

	_ "modernc.org/sqlite"
)

// Repository is a fieldops.Repository backed by SQLite.
type Repository = sqlrepo.Repository

var dialect = sqlrepo.Dialect{Float: "REAL"}

// Open opens the database file at path, creating it if needed. WAL mode and
// a busy timeout are enabled so concurrent readers do not fail writers.
func Open(ctx context.Context, path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	repo, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// New initializes the schema in an open SQLite database.
func New(ctx context.Context, db *sql.DB) (*Repository, error) {
	return sqlrepo.New(ctx, db, dialect)
}
