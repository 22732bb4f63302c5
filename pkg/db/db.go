package db

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Open opens (creating if necessary) the SQLite database at path.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := database.Ping(); err != nil {
		database.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	// SQLite allows a single writer; keep the pool small to avoid lock churn.
	database.SetMaxOpenConns(1)

	return database, nil
}
