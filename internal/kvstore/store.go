// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kvstore

import "sync"

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the durable key/value persistence contract.
//
// Get reports absence instead of failing: callers never have to guard a
// read of a missing key. Writes may fail (quota, I/O); callers decide
// whether such failures matter.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// RemoveMatching deletes every key the predicate accepts. Keys are
	// enumerated before any deletion so iteration is not disturbed by
	// the mutation.
	RemoveMatching(predicate func(key string) bool) error

	// Keys returns all stored keys in unspecified order.
	Keys() ([]string, error)

	// Close releases the underlying resources.
	Close() error
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore is a Store held entirely in memory. It is used by tests and
// as a degraded fallback when the durable store cannot be opened.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get returns the value for key and whether it was present.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key.
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// Remove deletes key.
func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// RemoveMatching deletes every key the predicate accepts.
func (s *MemoryStore) RemoveMatching(predicate func(key string) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Snapshot keys before mutating.
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	for _, k := range keys {
		if predicate(k) {
			delete(s.data, k)
		}
	}
	return nil
}

// Keys returns all stored keys.
func (s *MemoryStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
