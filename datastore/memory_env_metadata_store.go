package datastore

import (
	"sync"
)

// MemoryEnvMetadataStore holds at most one environment metadata record in
// memory. It implements both EnvMetadataStore and MutableEnvMetadataStore
// and is safe for concurrent use.
type MemoryEnvMetadataStore struct {
	mu     sync.RWMutex
	Record *EnvMetadata `json:"record"`
}

var _ EnvMetadataStore = &MemoryEnvMetadataStore{}
var _ MutableEnvMetadataStore = &MemoryEnvMetadataStore{}

// NewMemoryEnvMetadataStore returns an empty MemoryEnvMetadataStore.
func NewMemoryEnvMetadataStore() *MemoryEnvMetadataStore {
	return &MemoryEnvMetadataStore{}
}

// Get returns a copy of the stored record, or ErrEnvMetadataNotSet when
// nothing has been set yet.
func (s *MemoryEnvMetadataStore) Get() (EnvMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Record == nil {
		return EnvMetadata{}, ErrEnvMetadataNotSet
	}

	return s.Record.Clone()
}

// Set stores the record, replacing any previous one.
func (s *MemoryEnvMetadataStore) Set(record EnvMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Record = &record

	return nil
}
