// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jeranaias/flybuddy/internal/util"
)

const fileExt = ".json"

// FileStore keeps each key in its own JSON file under BaseDir.
type FileStore struct {
	// BaseDir is the directory holding one <key>.json file per key.
	// Default: ~/.flybuddy/data/
	BaseDir string

	mu     sync.Mutex
	quota  int64
	closed bool
}

// NewFileStore creates a file store rooted at dir, creating it if needed.
func NewFileStore(dir string, quotaBytes int64) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: data directory not set")
	}
	if err := os.MkdirAll(dir, util.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{BaseDir: dir, quota: quotaBytes}, nil
}

// Get implements Store.
func (s *FileStore) Get(key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, opError("get", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, opError("get", key, ErrClosed)
	}
	data, err := os.ReadFile(s.filePath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, opError("get", key, ErrNotFound)
	}
	if err != nil {
		return nil, opError("get", key, err)
	}
	return data, nil
}

// Set implements Store.
func (s *FileStore) Set(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return opError("set", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return opError("set", key, ErrClosed)
	}
	if s.quota > 0 {
		total, old, err := s.usage(key)
		if err != nil {
			return opError("set", key, err)
		}
		if err := checkQuota(s.quota, total, old, int64(len(value))); err != nil {
			return opError("set", key, err)
		}
	}
	return opError("set", key, util.AtomicWriteFile(s.filePath(key), value, 0600))
}

// Delete implements Store.
func (s *FileStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return opError("delete", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return opError("delete", key, ErrClosed)
	}
	err := os.Remove(s.filePath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return opError("delete", key, err)
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// usage returns the total stored size and the current size of key.
func (s *FileStore) usage(key string) (total, current int64, err error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
		if strings.TrimSuffix(name, fileExt) == key {
			current = info.Size()
		}
	}
	return total, current, nil
}

func (s *FileStore) filePath(key string) string {
	return filepath.Join(s.BaseDir, key+fileExt)
}
