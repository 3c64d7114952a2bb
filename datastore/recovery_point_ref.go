package datastore

import (
	"errors"
	"time"
)

var ErrRecoveryPointRefNotFound = errors.New("no recovery point ref record can be found for the provided key")
var ErrRecoveryPointRefExists = errors.New("a recovery point ref record with the supplied key already exists")

// RecoveryPointRef implements the UniqueRecord interface.
var _ UniqueRecord[RecoveryPointRefKey, RecoveryPointRef] = RecoveryPointRef{}

// RecoveryPointRef records a recovery point produced by a managed backup
// job.
type RecoveryPointRef struct {
	// VaultName is the name of the vault holding the recovery point.
	VaultName string `json:"vaultName"`
	// ARN is the recovery point ARN, unique within the vault.
	ARN string `json:"arn"`
	// ResourceARN is the ARN of the resource the recovery point was taken
	// from.
	ResourceARN string `json:"resourceArn"`
	// Status is the last observed recovery point status.
	Status string `json:"status"`
	// CreatedAt is when the recovery point was created.
	CreatedAt time.Time `json:"createdAt"`
	// Labels hold optional tags associated with the recovery point.
	Labels LabelSet `json:"labels,omitempty"`
}

// Clone creates a copy of the RecoveryPointRef.
func (r RecoveryPointRef) Clone() RecoveryPointRef {
	cloned := r
	cloned.Labels = r.Labels.Clone()

	return cloned
}

// Key returns the RecoveryPointRefKey for the RecoveryPointRef.
func (r RecoveryPointRef) Key() RecoveryPointRefKey {
	return NewRecoveryPointRefKey(r.VaultName, r.ARN)
}

// RecoveryPointRefKey uniquely identifies a RecoveryPointRef record.
type RecoveryPointRefKey interface {
	Comparable[RecoveryPointRefKey]

	// VaultName returns the name of the vault holding the recovery point.
	VaultName() string
	// ARN returns the recovery point ARN.
	ARN() string
}

var _ RecoveryPointRefKey = recoveryPointRefKey{}

type recoveryPointRefKey struct {
	vaultName string
	arn       string
}

func (k recoveryPointRefKey) VaultName() string { return k.vaultName }

func (k recoveryPointRefKey) ARN() string { return k.arn }

// Equals returns true if the two RecoveryPointRefKey instances are equal, false otherwise.
func (k recoveryPointRefKey) Equals(other RecoveryPointRefKey) bool {
	return k.vaultName == other.VaultName() && k.arn == other.ARN()
}

// NewRecoveryPointRefKey creates a new RecoveryPointRefKey instance.
func NewRecoveryPointRefKey(vaultName, arn string) RecoveryPointRefKey {
	return recoveryPointRefKey{
		vaultName: vaultName,
		arn:       arn,
	}
}
