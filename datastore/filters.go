package datastore

import (
	"strings"
	"time"
)

// The following functions are a default set of filters that can be used with
// the Filter method of the SnapshotRefStore and RecoveryPointRefStore
// interfaces. Filters are composable:
//
//	records := store.Filter(
//		SnapshotRefByCluster("analytics"),
//		SnapshotRefByStatus("available"),
//	)
//
// Custom filters can be built by implementing the FilterFunc type.

var _ FilterFunc[SnapshotRefKey, SnapshotRef] = SnapshotRefByCluster("")
var _ FilterFunc[SnapshotRefKey, SnapshotRef] = SnapshotRefByOwnerAccount("")
var _ FilterFunc[SnapshotRefKey, SnapshotRef] = SnapshotRefByStatus("")
var _ FilterFunc[SnapshotRefKey, SnapshotRef] = SnapshotRefByIDPrefix("")
var _ FilterFunc[SnapshotRefKey, SnapshotRef] = SnapshotRefCreatedBefore(time.Time{})
var _ FilterFunc[SnapshotRefKey, SnapshotRef] = SnapshotRefByLabel("")

// snapshotRefFilter returns a filter that includes records for which the
// predicate returns true.
func snapshotRefFilter(predicate func(record SnapshotRef) bool) FilterFunc[SnapshotRefKey, SnapshotRef] {
	return func(records []SnapshotRef) []SnapshotRef {
		filtered := make([]SnapshotRef, 0, len(records))
		for _, record := range records {
			if predicate(record) {
				filtered = append(filtered, record)
			}
		}

		return filtered
	}
}

// SnapshotRefByCluster returns a filter that only includes snapshots taken
// from the provided cluster.
func SnapshotRefByCluster(clusterID string) FilterFunc[SnapshotRefKey, SnapshotRef] {
	return snapshotRefFilter(func(record SnapshotRef) bool {
		return record.ClusterID == clusterID
	})
}

// SnapshotRefByOwnerAccount returns a filter that only includes snapshots
// owned by the provided account.
func SnapshotRefByOwnerAccount(ownerAccount string) FilterFunc[SnapshotRefKey, SnapshotRef] {
	return snapshotRefFilter(func(record SnapshotRef) bool {
		return record.OwnerAccount == ownerAccount
	})
}

// SnapshotRefByStatus returns a filter that only includes snapshots with the
// provided status.
func SnapshotRefByStatus(status string) FilterFunc[SnapshotRefKey, SnapshotRef] {
	return snapshotRefFilter(func(record SnapshotRef) bool {
		return record.Status == status
	})
}

// SnapshotRefByIDPrefix returns a filter that only includes snapshots whose
// identifier starts with the provided prefix. Retention cleanup uses this to
// select the snapshots a flow created.
func SnapshotRefByIDPrefix(prefix string) FilterFunc[SnapshotRefKey, SnapshotRef] {
	return snapshotRefFilter(func(record SnapshotRef) bool {
		return strings.HasPrefix(record.SnapshotID, prefix)
	})
}

// SnapshotRefCreatedBefore returns a filter that only includes snapshots
// created strictly before the provided time.
func SnapshotRefCreatedBefore(cutoff time.Time) FilterFunc[SnapshotRefKey, SnapshotRef] {
	return snapshotRefFilter(func(record SnapshotRef) bool {
		return record.CreatedAt.Before(cutoff)
	})
}

// SnapshotRefByLabel returns a filter that only includes snapshots carrying
// the provided label.
func SnapshotRefByLabel(label string) FilterFunc[SnapshotRefKey, SnapshotRef] {
	return snapshotRefFilter(func(record SnapshotRef) bool {
		return record.Labels.Contains(label)
	})
}

var _ FilterFunc[RecoveryPointRefKey, RecoveryPointRef] = RecoveryPointRefByResource("")
var _ FilterFunc[RecoveryPointRefKey, RecoveryPointRef] = RecoveryPointRefByStatus("")
var _ FilterFunc[RecoveryPointRefKey, RecoveryPointRef] = RecoveryPointRefCreatedBefore(time.Time{})

func recoveryPointRefFilter(predicate func(record RecoveryPointRef) bool) FilterFunc[RecoveryPointRefKey, RecoveryPointRef] {
	return func(records []RecoveryPointRef) []RecoveryPointRef {
		filtered := make([]RecoveryPointRef, 0, len(records))
		for _, record := range records {
			if predicate(record) {
				filtered = append(filtered, record)
			}
		}

		return filtered
	}
}

// RecoveryPointRefByResource returns a filter that only includes recovery
// points taken from the provided resource.
func RecoveryPointRefByResource(resourceARN string) FilterFunc[RecoveryPointRefKey, RecoveryPointRef] {
	return recoveryPointRefFilter(func(record RecoveryPointRef) bool {
		return record.ResourceARN == resourceARN
	})
}

// RecoveryPointRefByStatus returns a filter that only includes recovery
// points with the provided status.
func RecoveryPointRefByStatus(status string) FilterFunc[RecoveryPointRefKey, RecoveryPointRef] {
	return recoveryPointRefFilter(func(record RecoveryPointRef) bool {
		return record.Status == status
	})
}

// RecoveryPointRefCreatedBefore returns a filter that only includes recovery
// points created strictly before the provided time.
func RecoveryPointRefCreatedBefore(cutoff time.Time) FilterFunc[RecoveryPointRefKey, RecoveryPointRef] {
	return recoveryPointRefFilter(func(record RecoveryPointRef) bool {
		return record.CreatedAt.Before(cutoff)
	})
}
