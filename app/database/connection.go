package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrUnavailable is wrapped by every failure to open or reach the
// durable store. It is fatal at construction and not retried here;
// retry policy belongs to the caller.
var ErrUnavailable = errors.New("storage unavailable")

// DB wraps the relational store connection.
type DB struct {
	*sql.DB
}

// OpenPragmas are applied through the DSN so every pooled connection
// gets them, not just the first: WAL journaling so readers never block
// on the single writer, a bounded busy timeout so lock contention fails
// instead of hanging, and NORMAL synchronous mode.
const OpenPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"

// NewConnection opens (creating if necessary) the sqlite database at
// path with the production pragmas applied.
func NewConnection(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: mkdir %s: %v", ErrUnavailable, filepath.Dir(path), err)
		}
	}

	db, err := sql.Open("sqlite", path+OpenPragmas)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrUnavailable, path, err)
	}

	return &DB{DB: db}, nil
}
