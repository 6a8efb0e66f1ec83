// Package memory provides an in-process kvstore.Store. It backs tests and
// the "memory" backend for running the client without any remote store.
package memory

import (
	"context"
	"sync"
)

// Store keeps partitions as plain maps guarded by one mutex.
type Store struct {
	mu         sync.Mutex
	partitions map[string]map[string]string
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{partitions: make(map[string]map[string]string)}
}

// Write records key -> stamp in the partition.
func (s *Store) Write(_ context.Context, partition, key, stamp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[partition]
	if !ok {
		p = make(map[string]string)
		s.partitions[partition] = p
	}
	p[key] = stamp
	return nil
}

// Read returns a copy of the partition snapshot. Reading an unknown
// partition yields an empty map, not an error.
func (s *Store) Read(_ context.Context, partition string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]string, len(s.partitions[partition]))
	for k, v := range s.partitions[partition] {
		snapshot[k] = v
	}
	return snapshot, nil
}

// Len reports the number of records in a partition.
func (s *Store) Len(partition string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.partitions[partition])
}
