// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns a constructor for every Store implementation.
func backends() map[string]func(t *testing.T, quota int64) Store {
	return map[string]func(t *testing.T, quota int64) Store{
		"memory": func(t *testing.T, quota int64) Store {
			return NewMemoryStore(quota)
		},
		"file": func(t *testing.T, quota int64) Store {
			s, err := NewFileStore(t.TempDir(), quota)
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T, quota int64) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), SQLiteFileName), quota)
			require.NoError(t, err)
			return s
		},
	}
}

// =============================================================================
// CONFORMANCE TESTS
// =============================================================================

func TestStore_GetSetDelete(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t, 0)
			defer s.Close()

			_, err := s.Get(KeyTheme)
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(KeyTheme, []byte(`"dark"`)))
			got, err := s.Get(KeyTheme)
			require.NoError(t, err)
			assert.Equal(t, `"dark"`, string(got))

			require.NoError(t, s.Set(KeyTheme, []byte(`"light"`)))
			got, err = s.Get(KeyTheme)
			require.NoError(t, err)
			assert.Equal(t, `"light"`, string(got))

			require.NoError(t, s.Delete(KeyTheme))
			_, err = s.Get(KeyTheme)
			require.ErrorIs(t, err, ErrNotFound)

			// Deleting again is fine.
			require.NoError(t, s.Delete(KeyTheme))
		})
	}
}

func TestStore_InvalidKeys(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t, 0)
			defer s.Close()

			for _, key := range []string{"", "..", "../escape", `a\b`, "c:d"} {
				err := s.Set(key, []byte("{}"))
				assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
			}
		})
	}
}

func TestStore_Quota(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t, 10)
			defer s.Close()

			require.NoError(t, s.Set("a", []byte("12345")))
			require.NoError(t, s.Set("b", []byte("12345")))

			err := s.Set("c", []byte("1"))
			require.ErrorIs(t, err, ErrQuotaExceeded)

			var storeErr *StoreError
			require.ErrorAs(t, err, &storeErr)
			assert.Equal(t, "set", storeErr.Op)
			assert.Equal(t, "c", storeErr.Key)

			// Replacing a value only counts the difference.
			require.NoError(t, s.Set("a", []byte("123")))
			require.NoError(t, s.Set("c", []byte("12")))

			// Failed writes leave the previous value in place.
			require.ErrorIs(t, s.Set("a", []byte("123456789")), ErrQuotaExceeded)
			got, err := s.Get("a")
			require.NoError(t, err)
			assert.Equal(t, "123", string(got))
		})
	}
}

func TestStore_Closed(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t, 0)
			require.NoError(t, s.Close())

			_, err := s.Get("k")
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, s.Set("k", []byte("v")), ErrClosed)
		})
	}
}

func TestStore_ConcurrentWrites(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t, 0)
			defer s.Close()

			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					key := fmt.Sprintf("key_%d", i)
					assert.NoError(t, s.Set(key, []byte(fmt.Sprintf(`{"n":%d}`, i))))
				}(i)
			}
			wg.Wait()

			for i := 0; i < 8; i++ {
				got, err := s.Get(fmt.Sprintf("key_%d", i))
				require.NoError(t, err)
				assert.Equal(t, fmt.Sprintf(`{"n":%d}`, i), string(got))
			}
		})
	}
}

// =============================================================================
// BACKEND-SPECIFIC TESTS
// =============================================================================

func TestFileStore_OneFilePerKey(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, 0)
	require.NoError(t, err)

	require.NoError(t, s.Set(KeySettings, []byte(`{}`)))

	_, err = os.Stat(filepath.Join(dir, KeySettings+".json"))
	require.NoError(t, err)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), SQLiteFileName)

	s, err := NewSQLiteStore(path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyConversations, []byte(`[]`)))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path, 0)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(KeyConversations)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		backend Backend
		want    any
	}{
		{BackendFile, &FileStore{}},
		{BackendSQLite, &SQLiteStore{}},
		{BackendMemory, &MemoryStore{}},
	}
	for _, tc := range tests {
		t.Run(string(tc.backend), func(t *testing.T) {
			s, err := Open(Options{Backend: tc.backend, Dir: filepath.Join(dir, string(tc.backend))})
			require.NoError(t, err)
			defer s.Close()
			assert.IsType(t, tc.want, s)
		})
	}

	_, err := Open(Options{Backend: "redis"})
	assert.Error(t, err)
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend(" SQLite ")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, b)

	b, err = ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendFile, b)

	_, err = ParseBackend("tape")
	assert.Error(t, err)
}
