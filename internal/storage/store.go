// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned by Get when the key has no value.
	ErrNotFound = errors.New("key not found")

	// ErrQuotaExceeded is returned by Set when the write would exceed the quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrInvalidKey is returned for empty keys or keys with path characters.
	ErrInvalidKey = errors.New("invalid key")

	// ErrClosed is returned by any operation on a closed store.
	ErrClosed = errors.New("store is closed")
)

// StoreError records the operation and key of a failed store call.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func opError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Key: key, Err: err}
}

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is a string-keyed store of JSON byte values.
// Implementations are safe for concurrent use.
type Store interface {
	// Get returns the value for key or an error wrapping ErrNotFound.
	Get(key string) ([]byte, error)

	// Set replaces the value for key.
	Set(key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Close releases resources held by the store.
	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendFile, BackendSQLite, BackendMemory:
		return b, nil
	case "":
		return BackendFile, nil
	default:
		return "", fmt.Errorf("unknown storage backend %q (want file, sqlite or memory)", s)
	}
}

// Options configures Open.
type Options struct {
	Backend Backend

	// Dir is the data directory for the file and sqlite backends.
	Dir string

	// QuotaBytes caps the total size of stored values. Zero means unlimited.
	QuotaBytes int64
}

// Open creates the store selected by opts.Backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(opts.Dir, opts.QuotaBytes)
	case BackendSQLite:
		return NewSQLiteStore(sqlitePath(opts.Dir), opts.QuotaBytes)
	case BackendMemory:
		return NewMemoryStore(opts.QuotaBytes), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

// validateKey rejects keys that could escape the data directory.
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, `/\:`) || strings.ContainsRune(key, 0) {
		return ErrInvalidKey
	}
	return nil
}

// checkQuota reports ErrQuotaExceeded when replacing a value of size old with
// one of size next would push total over quota.
func checkQuota(quota, total, old, next int64) error {
	if quota <= 0 {
		return nil
	}
	if total-old+next > quota {
		return fmt.Errorf("%w: %d bytes over limit of %d", ErrQuotaExceeded, total-old+next-quota, quota)
	}
	return nil
}
