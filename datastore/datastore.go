// Package datastore records the durable artifacts the backup flows produce:
// warehouse snapshot references, recovery point references and per
// environment metadata. Stores are keyed, filterable and safe for
// concurrent use.
package datastore

// Comparable provides an Equals() method which returns true if the two instances are equal, false otherwise.
type Comparable[T any] interface {
	// Equals returns true if the two instances are equal, false otherwise.
	Equals(T) bool
}

// Fetcher provides a Fetch() method which is used to complete a read query from a Store.
type Fetcher[R any] interface {
	// Fetch returns a slice of records representing the entire data set. The returned slice
	// will be a newly allocated slice (not a reference to an existing one), and each record should
	// be a copy of the corresponding stored data. Modifying the returned slice or its records must
	// not affect the underlying data.
	Fetch() ([]R, error)
}

// Getter provides a Get() method which is used to complete a read by key query from a Store.
type Getter[K Comparable[K], R UniqueRecord[K, R]] interface {
	// Get returns the record with the given key, or an error if no such record exists.
	Get(K) (R, error)
}

// PrimaryKeyHolder is an interface for types that can provide a unique identifier key for themselves.
type PrimaryKeyHolder[K Comparable[K]] interface {
	// Key returns the primary key for the implementing type.
	Key() K
}

// UniqueRecord represents a data entry that is uniquely identifiable by its primary key.
type UniqueRecord[K Comparable[K], R PrimaryKeyHolder[K]] interface {
	PrimaryKeyHolder[K]
}

// FilterFunc is a function that filters a slice of records.
type FilterFunc[K Comparable[K], R UniqueRecord[K, R]] func([]R) []R

// Filterable provides a Filter() method which is used to complete a filtered query from a Store.
type Filterable[K Comparable[K], R UniqueRecord[K, R]] interface {
	Filter(filters ...FilterFunc[K, R]) []R
}

// Store is an interface that represents an immutable set of records.
type Store[K Comparable[K], R UniqueRecord[K, R]] interface {
	Fetcher[R]
	Getter[K, R]
	Filterable[K, R]
}

// MutableStore is an interface that represents a mutable set of records.
type MutableStore[K Comparable[K], R UniqueRecord[K, R]] interface {
	Store[K, R]

	// Add inserts a new record into the MutableStore.
	Add(record R) error

	// Upsert behaves like Add where there is not already a record with the same composite primary
	// key as the supplied record, otherwise it behaves like an update.
	Upsert(record R) error

	// Update edits an existing record whose fields match the primary key elements of the supplied
	// record, with the non-primary-key values of the supplied record.
	Update(record R) error

	// Delete deletes the record whose primary key elements match the supplied key, returning an
	// error if no such record exists to be deleted.
	Delete(key K) error
}

// UnaryStore is an interface that represents a read-only store that is limited to a single record.
type UnaryStore[R any] interface {
	// Get returns the record or an error.
	// If the record does not exist, the error should not be nil.
	Get() (R, error)
}

// MutableUnaryStore is an interface that represents a mutable store that contains a single record.
type MutableUnaryStore[R any] interface {
	// Get returns a copy of the record or an error.
	// If the record does not exist, the error should not be nil.
	Get() (R, error)

	// Set sets the record in the store, replacing any existing record.
	Set(record R) error
}

// SnapshotRefStore is an immutable view over a set of SnapshotRef records
// identified by SnapshotRefKey.
type SnapshotRefStore interface {
	Store[SnapshotRefKey, SnapshotRef]
}

// MutableSnapshotRefStore is a mutable SnapshotRefStore.
type MutableSnapshotRefStore interface {
	MutableStore[SnapshotRefKey, SnapshotRef]
}

// RecoveryPointRefStore is an immutable view over a set of RecoveryPointRef
// records identified by RecoveryPointRefKey.
type RecoveryPointRefStore interface {
	Store[RecoveryPointRefKey, RecoveryPointRef]
}

// MutableRecoveryPointRefStore is a mutable RecoveryPointRefStore.
type MutableRecoveryPointRefStore interface {
	MutableStore[RecoveryPointRefKey, RecoveryPointRef]
}

// EnvMetadataStore holds the single environment metadata record.
type EnvMetadataStore interface {
	UnaryStore[EnvMetadata]
}

// MutableEnvMetadataStore is a mutable EnvMetadataStore.
type MutableEnvMetadataStore interface {
	MutableUnaryStore[EnvMetadata]
}

// BaseDataStore defines the basic operations of a data store. It is
// parameterized by the store types it exposes so that the same shape serves
// both the sealed and mutable variants.
type BaseDataStore[S SnapshotRefStore, R RecoveryPointRefStore, EM EnvMetadataStore] interface {
	Snapshots() S
	RecoveryPoints() R
	EnvMetadata() EM
}

// DataStore is a read-only data store.
type DataStore interface {
	BaseDataStore[SnapshotRefStore, RecoveryPointRefStore, EnvMetadataStore]
}

// Merger merges another data store into the receiver.
type Merger[T any] interface {
	// Merge merges the given data into the current data store.
	Merge(other T) error
}

// Sealer converts a mutable data store into a read-only one.
type Sealer[T any] interface {
	// Seal returns a read-only view. Further writes through the original
	// mutable handle are not prevented.
	Seal() T
}

// MutableDataStore is a mutable data store that can be sealed and merged.
type MutableDataStore interface {
	Merger[DataStore]
	Sealer[DataStore]

	BaseDataStore[MutableSnapshotRefStore, MutableRecoveryPointRefStore, MutableEnvMetadataStore]
}
