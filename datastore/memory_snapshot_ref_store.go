package datastore

import (
	"sync"
)

// MemorySnapshotRefStore is an in-memory implementation of the
// SnapshotRefStore and MutableSnapshotRefStore interfaces.
type MemorySnapshotRefStore struct {
	mu      sync.RWMutex
	Records []SnapshotRef `json:"records"`
}

var _ SnapshotRefStore = &MemorySnapshotRefStore{}
var _ MutableSnapshotRefStore = &MemorySnapshotRefStore{}

// NewMemorySnapshotRefStore creates a new MemorySnapshotRefStore instance.
func NewMemorySnapshotRefStore() *MemorySnapshotRefStore {
	return &MemorySnapshotRefStore{Records: []SnapshotRef{}}
}

// Get returns the SnapshotRef for the provided key, or an error if no such record exists.
func (s *MemorySnapshotRefStore) Get(key SnapshotRefKey) (SnapshotRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(key)
	if idx == -1 {
		return SnapshotRef{}, ErrSnapshotRefNotFound
	}

	return s.Records[idx].Clone(), nil
}

// Fetch returns a copy of all SnapshotRef records in the store.
func (s *MemorySnapshotRefStore) Fetch() ([]SnapshotRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := []SnapshotRef{}
	for _, record := range s.Records {
		records = append(records, record.Clone())
	}

	return records, nil
}

// Filter returns a copy of all SnapshotRef records in the store that pass all
// of the provided filters. Filters are applied in the order they are
// provided. If no filters are provided, all records are returned.
func (s *MemorySnapshotRefStore) Filter(filters ...FilterFunc[SnapshotRefKey, SnapshotRef]) []SnapshotRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := append([]SnapshotRef{}, s.Records...)
	for _, filter := range filters {
		records = filter(records)
	}

	return records
}

// indexOf returns the index of the record with the provided key, or -1 if no such record exists.
func (s *MemorySnapshotRefStore) indexOf(key SnapshotRefKey) int {
	for i, record := range s.Records {
		if record.Key().Equals(key) {
			return i
		}
	}

	return -1
}

// Add inserts a new record into the store.
// If a record with the same key already exists, an error is returned.
func (s *MemorySnapshotRefStore) Add(record SnapshotRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(record.Key())
	if idx != -1 {
		return ErrSnapshotRefExists
	}
	s.Records = append(s.Records, record)

	return nil
}

// Upsert inserts a new record into the store if no record with the same key
// already exists, otherwise the existing record is replaced.
func (s *MemorySnapshotRefStore) Upsert(record SnapshotRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(record.Key())
	if idx == -1 {
		s.Records = append(s.Records, record)
		return nil
	}
	s.Records[idx] = record

	return nil
}

// Update replaces an existing record with the same key.
// If no such record exists, an error is returned.
func (s *MemorySnapshotRefStore) Update(record SnapshotRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(record.Key())
	if idx == -1 {
		return ErrSnapshotRefNotFound
	}
	s.Records[idx] = record

	return nil
}

// Delete deletes the record with the provided key, returning an error if no
// such record exists.
func (s *MemorySnapshotRefStore) Delete(key SnapshotRefKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(key)
	if idx == -1 {
		return ErrSnapshotRefNotFound
	}
	s.Records = append(s.Records[:idx], s.Records[idx+1:]...)

	return nil
}
