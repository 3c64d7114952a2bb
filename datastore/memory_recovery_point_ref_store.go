package datastore

import (
	"sync"
)

// MemoryRecoveryPointRefStore is an in-memory implementation of the
// RecoveryPointRefStore and MutableRecoveryPointRefStore interfaces.
type MemoryRecoveryPointRefStore struct {
	mu      sync.RWMutex
	Records []RecoveryPointRef `json:"records"`
}

var _ RecoveryPointRefStore = &MemoryRecoveryPointRefStore{}
var _ MutableRecoveryPointRefStore = &MemoryRecoveryPointRefStore{}

// NewMemoryRecoveryPointRefStore creates a new MemoryRecoveryPointRefStore instance.
func NewMemoryRecoveryPointRefStore() *MemoryRecoveryPointRefStore {
	return &MemoryRecoveryPointRefStore{Records: []RecoveryPointRef{}}
}

// Get returns the RecoveryPointRef for the provided key, or an error if no such record exists.
func (s *MemoryRecoveryPointRefStore) Get(key RecoveryPointRefKey) (RecoveryPointRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(key)
	if idx == -1 {
		return RecoveryPointRef{}, ErrRecoveryPointRefNotFound
	}

	return s.Records[idx].Clone(), nil
}

// Fetch returns a copy of all RecoveryPointRef records in the store.
func (s *MemoryRecoveryPointRefStore) Fetch() ([]RecoveryPointRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := []RecoveryPointRef{}
	for _, record := range s.Records {
		records = append(records, record.Clone())
	}

	return records, nil
}

// Filter returns a copy of all RecoveryPointRef records in the store that
// pass all of the provided filters. Filters are applied in the order they
// are provided. If no filters are provided, all records are returned.
func (s *MemoryRecoveryPointRefStore) Filter(filters ...FilterFunc[RecoveryPointRefKey, RecoveryPointRef]) []RecoveryPointRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := append([]RecoveryPointRef{}, s.Records...)
	for _, filter := range filters {
		records = filter(records)
	}

	return records
}

func (s *MemoryRecoveryPointRefStore) indexOf(key RecoveryPointRefKey) int {
	for i, record := range s.Records {
		if record.Key().Equals(key) {
			return i
		}
	}

	return -1
}

// Add inserts a new record into the store.
// If a record with the same key already exists, an error is returned.
func (s *MemoryRecoveryPointRefStore) Add(record RecoveryPointRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(record.Key())
	if idx != -1 {
		return ErrRecoveryPointRefExists
	}
	s.Records = append(s.Records, record)

	return nil
}

// Upsert inserts a new record into the store if no record with the same key
// already exists, otherwise the existing record is replaced.
func (s *MemoryRecoveryPointRefStore) Upsert(record RecoveryPointRef) error {
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
func (s *MemoryRecoveryPointRefStore) Update(record RecoveryPointRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(record.Key())
	if idx == -1 {
		return ErrRecoveryPointRefNotFound
	}
	s.Records[idx] = record

	return nil
}

// Delete deletes the record with the provided key, returning an error if no
// such record exists.
func (s *MemoryRecoveryPointRefStore) Delete(key RecoveryPointRefKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(key)
	if idx == -1 {
		return ErrRecoveryPointRefNotFound
	}
	s.Records = append(s.Records[:idx], s.Records[idx+1:]...)

	return nil
}
