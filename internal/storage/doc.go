// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides key-value persistence for flybuddy.
//
// A Store maps string keys to JSON-encoded byte values. Three backends exist:
//
//   - FileStore: one file per key under a data directory, written atomically
//   - SQLiteStore: a single kv table in a pure Go SQLite database
//   - MemoryStore: process-local, used by tests and --ephemeral sessions
//
// Every backend accepts an optional byte quota and reports ErrQuotaExceeded
// when a write would push the total stored size over it.
//
// Prefs wraps a Store with typed accessors for the four well-known keys
// (theme, settings, conversation list, current conversation). Reads never
// fail: absent or corrupt values are logged and replaced by defaults.
//
// # Usage
//
//	st, err := storage.Open(storage.Options{Backend: storage.BackendFile, Dir: dir})
//	prefs := storage.NewPrefs(st, logger)
//	convs := prefs.Conversations()
package storage
