package backup

import (
	"errors"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/aca-platform/redshift-backups-framework/cloud/redshift"
	"github.com/aca-platform/redshift-backups-framework/datastore"
	"github.com/aca-platform/redshift-backups-framework/operations"
)

// CleanupFlowDeps carries the client and store the retention cleanup flow
// runs against.
type CleanupFlowDeps struct {
	// Client is bound to the account whose snapshots are cleaned up.
	Client *redshift.Client
	// Store drops the catalog entries of deleted snapshots. Optional.
	Store datastore.MutableSnapshotRefStore
	// AccountID and Region locate catalog entries for deleted snapshots.
	AccountID string
	Region    string
}

// CleanupInput selects the snapshots to delete: manual snapshots of the
// cluster whose identifier starts with Prefix and that were created before
// Cutoff.
type CleanupInput struct {
	ClusterID string    `json:"clusterId"`
	Prefix    string    `json:"prefix"`
	Cutoff    time.Time `json:"cutoff"`
}

// CleanupOutput summarizes a cleanup run. Failed deletions are logged and
// counted but do not fail the run; the next run retries them.
type CleanupOutput struct {
	Deleted   []string `json:"deleted"`
	FailedIDs []string `json:"failedIds,omitempty"`
	Examined  int      `json:"examined"`
}

// RetentionCleanupOp deletes expired snapshots created by the snapshot flow.
var RetentionCleanupOp = operations.NewOperation(
	"snapshot-retention-cleanup",
	semver.MustParse("1.0.0"),
	"Deletes expired snapshots matching the configured prefix",
	func(b operations.Bundle, deps CleanupFlowDeps, input CleanupInput) (CleanupOutput, error) {
		snapshots, err := deps.Client.ListClusterSnapshots(b.GetContext(), input.ClusterID)
		if err != nil {
			return CleanupOutput{}, err
		}

		out := CleanupOutput{Deleted: []string{}, Examined: len(snapshots)}
		for _, snap := range snapshots {
			if !strings.HasPrefix(snap.SnapshotID, input.Prefix) || !snap.CreatedAt.Before(input.Cutoff) {
				continue
			}

			if err := deps.Client.DeleteSnapshot(b.GetContext(), snap.SnapshotID); err != nil {
				b.Logger.Warnw("Failed to delete expired snapshot, will retry on next run",
					"snapshot", snap.SnapshotID, "error", err)
				out.FailedIDs = append(out.FailedIDs, snap.SnapshotID)

				continue
			}

			b.Logger.Infow("Deleted expired snapshot",
				"snapshot", snap.SnapshotID, "createdAt", snap.CreatedAt)
			out.Deleted = append(out.Deleted, snap.SnapshotID)

			if deps.Store != nil {
				key := datastore.NewSnapshotRefKey(deps.AccountID, deps.Region, snap.SnapshotID)
				if err := deps.Store.Delete(key); err != nil && !errors.Is(err, datastore.ErrSnapshotRefNotFound) {
					b.Logger.Warnw("Failed to drop catalog entry for deleted snapshot",
						"snapshot", snap.SnapshotID, "error", err)
				}
			}
		}

		return out, nil
	},
)
