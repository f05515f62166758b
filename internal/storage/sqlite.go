// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/flybuddy/internal/util"
)

// SQLiteFileName is the database file created inside the data directory.
const SQLiteFileName = "flybuddy.db"

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);`

// SQLiteStore keeps all keys in a single kv table.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	quota int64

	mu     sync.Mutex
	closed bool
}

func sqlitePath(dir string) string {
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, SQLiteFileName)
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string, quotaBytes int64) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store: database path not set")
	}
	if err := os.MkdirAll(filepath.Dir(path), util.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(kvSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path, quota: quotaBytes}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Get implements Store.
func (s *SQLiteStore) Get(key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, opError("get", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, opError("get", key, ErrClosed)
	}
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, opError("get", key, ErrNotFound)
	}
	if err != nil {
		return nil, opError("get", key, err)
	}
	return value, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return opError("set", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return opError("set", key, ErrClosed)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return opError("set", key, err)
	}
	defer tx.Rollback()

	if s.quota > 0 {
		var total, old int64
		err := tx.QueryRow(`SELECT
			COALESCE(SUM(length(value)), 0),
			COALESCE(SUM(CASE WHEN key = ? THEN length(value) ELSE 0 END), 0)
			FROM kv`, key).Scan(&total, &old)
		if err != nil {
			return opError("set", key, err)
		}
		if err := checkQuota(s.quota, total, old, int64(len(value))); err != nil {
			return opError("set", key, err)
		}
	}

	_, err = tx.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return opError("set", key, err)
	}
	return opError("set", key, tx.Commit())
}

// Delete implements Store.
func (s *SQLiteStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return opError("delete", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return opError("delete", key, ErrClosed)
	}
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return opError("delete", key, err)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
