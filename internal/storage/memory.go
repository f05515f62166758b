// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import "sync"

// MemoryStore is a map-backed Store.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	quota  int64
	total  int64
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(quotaBytes int64) *MemoryStore {
	return &MemoryStore{
		data:  make(map[string][]byte),
		quota: quotaBytes,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, opError("get", key, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, opError("get", key, ErrClosed)
	}
	v, ok := s.data[key]
	if !ok {
		return nil, opError("get", key, ErrNotFound)
	}
	return append([]byte(nil), v...), nil
}

// Set implements Store.
func (s *MemoryStore) Set(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return opError("set", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return opError("set", key, ErrClosed)
	}
	old := int64(len(s.data[key]))
	if err := checkQuota(s.quota, s.total, old, int64(len(value))); err != nil {
		return opError("set", key, err)
	}
	s.data[key] = append([]byte(nil), value...)
	s.total += int64(len(value)) - old
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return opError("delete", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return opError("delete", key, ErrClosed)
	}
	s.total -= int64(len(s.data[key]))
	delete(s.data, key)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
