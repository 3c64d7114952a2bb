package datastore

import "errors"

// MemoryDataStore is a concrete implementation of the MutableDataStore interface.
var _ MutableDataStore = &MemoryDataStore{}

type MemoryDataStore struct {
	SnapshotRefStore      *MemorySnapshotRefStore      `json:"snapshotRefStore"`
	RecoveryPointRefStore *MemoryRecoveryPointRefStore `json:"recoveryPointRefStore"`
	EnvMetadataStore      *MemoryEnvMetadataStore      `json:"envMetadataStore"`
}

// NewMemoryDataStore creates a new instance of MemoryDataStore.
// NOTE: The instance returned is mutable and can be modified.
func NewMemoryDataStore() *MemoryDataStore {
	return &MemoryDataStore{
		SnapshotRefStore:      NewMemorySnapshotRefStore(),
		RecoveryPointRefStore: NewMemoryRecoveryPointRefStore(),
		EnvMetadataStore:      NewMemoryEnvMetadataStore(),
	}
}

// Seal seals the MemoryDataStore, by returning a new instance of sealedMemoryDataStore.
func (s *MemoryDataStore) Seal() DataStore {
	return &sealedMemoryDataStore{
		SnapshotRefStore:      s.SnapshotRefStore,
		RecoveryPointRefStore: s.RecoveryPointRefStore,
		EnvMetadataStore:      s.EnvMetadataStore,
	}
}

// Snapshots returns the SnapshotRefStore of the MemoryDataStore.
func (s *MemoryDataStore) Snapshots() MutableSnapshotRefStore {
	return s.SnapshotRefStore
}

// RecoveryPoints returns the RecoveryPointRefStore of the MemoryDataStore.
func (s *MemoryDataStore) RecoveryPoints() MutableRecoveryPointRefStore {
	return s.RecoveryPointRefStore
}

// EnvMetadata returns the EnvMetadataStore of the MemoryDataStore.
func (s *MemoryDataStore) EnvMetadata() MutableEnvMetadataStore {
	return s.EnvMetadataStore
}

// Merge merges the given data store into the current MemoryDataStore.
func (s *MemoryDataStore) Merge(other DataStore) error {
	snapshotRefs, err := other.Snapshots().Fetch()
	if err != nil {
		return err
	}

	for _, ref := range snapshotRefs {
		if err = s.SnapshotRefStore.Upsert(ref); err != nil {
			return err
		}
	}

	recoveryPointRefs, err := other.RecoveryPoints().Fetch()
	if err != nil {
		return err
	}

	for _, ref := range recoveryPointRefs {
		if err = s.RecoveryPointRefStore.Upsert(ref); err != nil {
			return err
		}
	}

	envMetadata, err := other.EnvMetadata().Get()
	if err != nil {
		if errors.Is(err, ErrEnvMetadataNotSet) {
			// The other store carries no environment metadata update, so
			// there is nothing left to merge.
			return nil
		}

		return err
	}

	return s.EnvMetadataStore.Set(envMetadata)
}

// sealedMemoryDataStore is a concrete implementation of the DataStore
// interface. It represents a sealed data store that cannot be modified
// through its own methods.
var _ DataStore = &sealedMemoryDataStore{}

type sealedMemoryDataStore struct {
	SnapshotRefStore      *MemorySnapshotRefStore      `json:"snapshotRefStore"`
	RecoveryPointRefStore *MemoryRecoveryPointRefStore `json:"recoveryPointRefStore"`
	EnvMetadataStore      *MemoryEnvMetadataStore      `json:"envMetadataStore"`
}

// Snapshots returns the SnapshotRefStore of the sealedMemoryDataStore.
func (s *sealedMemoryDataStore) Snapshots() SnapshotRefStore {
	return s.SnapshotRefStore
}

// RecoveryPoints returns the RecoveryPointRefStore of the sealedMemoryDataStore.
func (s *sealedMemoryDataStore) RecoveryPoints() RecoveryPointRefStore {
	return s.RecoveryPointRefStore
}

// EnvMetadata returns the EnvMetadataStore of the sealedMemoryDataStore.
func (s *sealedMemoryDataStore) EnvMetadata() EnvMetadataStore {
	return s.EnvMetadataStore
}
