// Package backup implements the cross-account backup flows for warehouse
// clusters: direct snapshot sharing, managed backup and restore jobs, and
// retention cleanup. Flows are composed from operations so every step lands
// in the report log and completed steps are skipped on re-runs.
package backup

import (
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
)

// snapshotTimestampLayout is the timestamp embedded in generated snapshot
// identifiers. Identifiers must be lowercase, so the layout avoids letters.
const snapshotTimestampLayout = "20060102-150405"

// SnapshotName builds a snapshot identifier of the form
// <prefix>-<cluster>-<timestamp>. Retention cleanup later selects snapshots
// by the same prefix.
func SnapshotName(prefix, clusterID string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", strings.ToLower(prefix), strings.ToLower(clusterID), now.UTC().Format(snapshotTimestampLayout))
}

// SnapshotNamePrefix returns the prefix shared by all snapshots the flows
// create for a cluster.
func SnapshotNamePrefix(prefix, clusterID string) string {
	return fmt.Sprintf("%s-%s-", strings.ToLower(prefix), strings.ToLower(clusterID))
}

// CopyName builds the identifier for the target-account copy of a shared
// snapshot.
func CopyName(sourceSnapshotID string) string {
	return sourceSnapshotID + "-copy"
}

// RestoreClusterName builds a unique identifier for a cluster restored from
// a snapshot. The random suffix keeps repeated restore attempts from
// colliding.
func RestoreClusterName(clusterID string) string {
	return fmt.Sprintf("%s-restore-%s", strings.ToLower(clusterID), strings.ToLower(ksuid.New().String()[:8]))
}
