package datastore

import (
	"errors"
	"fmt"
	"time"
)

var ErrSnapshotRefNotFound = errors.New("no snapshot ref record can be found for the provided key")
var ErrSnapshotRefExists = errors.New("a snapshot ref record with the supplied key already exists")

// SnapshotRef implements the UniqueRecord interface.
var _ UniqueRecord[SnapshotRefKey, SnapshotRef] = SnapshotRef{}

// SnapshotRef records a warehouse cluster snapshot the backup flows have
// created or discovered.
type SnapshotRef struct {
	// OwnerAccount is the ID of the account that owns the snapshot.
	OwnerAccount string `json:"ownerAccount"`
	// Region is the region the snapshot lives in.
	Region string `json:"region"`
	// SnapshotID is the snapshot identifier, unique within the owner
	// account and region.
	SnapshotID string `json:"snapshotId"`
	// ClusterID is the identifier of the cluster the snapshot was taken
	// from.
	ClusterID string `json:"clusterId"`
	// Status is the last observed snapshot status.
	Status string `json:"status"`
	// CreatedAt is when the snapshot was created.
	CreatedAt time.Time `json:"createdAt"`
	// Labels hold optional tags associated with the snapshot.
	Labels LabelSet `json:"labels,omitempty"`
}

// Clone creates a copy of the SnapshotRef.
func (r SnapshotRef) Clone() SnapshotRef {
	cloned := r
	cloned.Labels = r.Labels.Clone()

	return cloned
}

// Key returns the SnapshotRefKey for the SnapshotRef.
func (r SnapshotRef) Key() SnapshotRefKey {
	return NewSnapshotRefKey(r.OwnerAccount, r.Region, r.SnapshotID)
}

// QualifiedID returns the owner-qualified snapshot identifier used when
// copying a snapshot shared from another account.
func (r SnapshotRef) QualifiedID() string {
	return fmt.Sprintf("%s:%s", r.OwnerAccount, r.SnapshotID)
}

// SnapshotRefKey uniquely identifies a SnapshotRef record.
type SnapshotRefKey interface {
	Comparable[SnapshotRefKey]

	// OwnerAccount returns the ID of the account that owns the snapshot.
	OwnerAccount() string
	// Region returns the region the snapshot lives in.
	Region() string
	// SnapshotID returns the snapshot identifier.
	SnapshotID() string
}

var _ SnapshotRefKey = snapshotRefKey{}

type snapshotRefKey struct {
	ownerAccount string
	region       string
	snapshotID   string
}

func (k snapshotRefKey) OwnerAccount() string { return k.ownerAccount }

func (k snapshotRefKey) Region() string { return k.region }

func (k snapshotRefKey) SnapshotID() string { return k.snapshotID }

// Equals returns true if the two SnapshotRefKey instances are equal, false otherwise.
func (k snapshotRefKey) Equals(other SnapshotRefKey) bool {
	return k.ownerAccount == other.OwnerAccount() &&
		k.region == other.Region() &&
		k.snapshotID == other.SnapshotID()
}

// NewSnapshotRefKey creates a new SnapshotRefKey instance.
func NewSnapshotRefKey(ownerAccount, region, snapshotID string) SnapshotRefKey {
	return snapshotRefKey{
		ownerAccount: ownerAccount,
		region:       region,
		snapshotID:   snapshotID,
	}
}
