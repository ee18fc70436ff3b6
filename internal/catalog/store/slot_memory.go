package store

import (
	"context"
	"sync"
)

// MemorySlot keeps blobs in process memory. Used by tests and the "memory" driver.
type MemorySlot struct {
	mu     sync.RWMutex
	blobs  map[string][]byte
	writes int
}

// NewMemorySlot creates an empty in-memory slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{blobs: make(map[string][]byte)}
}

// Load returns a copy of the blob stored under key.
func (s *MemorySlot) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, ErrSlotEmpty
	}
	return append([]byte(nil), data...), nil
}

// Store overwrites the blob under key.
func (s *MemorySlot) Store(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	s.writes++
	return nil
}

// Writes returns how many times Store has been called.
func (s *MemorySlot) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
