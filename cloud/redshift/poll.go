package redshift

import (
	"context"
	"time"

	"github.com/aca-platform/redshift-backups-framework/operations"
)

// Snapshot and cluster statuses observed while polling. Anything else is
// treated as still pending.
const (
	SnapshotStatusAvailable = "available"
	SnapshotStatusFailed    = "failed"

	ClusterStatusAvailable = "available"
)

// SnapshotPollPolicy is the default policy for waiting on snapshot creation
// or copy: poll every 30 seconds for up to 30 minutes.
func SnapshotPollPolicy() operations.PollPolicy {
	return operations.PollPolicy{
		Interval: 30 * time.Second,
		MaxWait:  30 * time.Minute,
		Classify: ClassifySnapshotStatus,
	}
}

// ClassifySnapshotStatus maps raw snapshot statuses onto terminal classes.
func ClassifySnapshotStatus(status string) operations.StatusClass {
	switch status {
	case SnapshotStatusAvailable:
		return operations.ClassSucceeded
	case SnapshotStatusFailed:
		return operations.ClassFailed
	default:
		return operations.ClassPending
	}
}

// RestorePollPolicy is the default policy for waiting on a cluster restore:
// poll every 30 seconds for up to 30 minutes.
func RestorePollPolicy() operations.PollPolicy {
	return operations.PollPolicy{
		Interval: 30 * time.Second,
		MaxWait:  30 * time.Minute,
		Classify: ClassifyClusterStatus,
	}
}

// ClassifyClusterStatus maps raw cluster statuses onto terminal classes.
// Restores that cannot proceed surface as incompatible-* statuses.
func ClassifyClusterStatus(status string) operations.StatusClass {
	switch status {
	case ClusterStatusAvailable:
		return operations.ClassSucceeded
	case "incompatible-network", "incompatible-hsm", "incompatible-restore":
		return operations.ClassFailed
	default:
		return operations.ClassPending
	}
}

// SnapshotStatusQuery adapts DescribeSnapshot to the tracker's status query
// contract. A not-found snapshot is a permanent error: the handle will never
// resolve.
func (c *Client) SnapshotStatusQuery(ctx context.Context) operations.StatusQueryFunc[Snapshot] {
	return func(snapshotID string) (operations.StatusResult[Snapshot], error) {
		snap, err := c.DescribeSnapshot(ctx, snapshotID)
		if err != nil {
			if IsNotFound(err) {
				return operations.StatusResult[Snapshot]{}, operations.NewPermanentPollError(err)
			}

			return operations.StatusResult[Snapshot]{}, err
		}

		return operations.StatusResult[Snapshot]{Status: snap.Status, Output: snap}, nil
	}
}

// ClusterStatusQuery adapts DescribeCluster to the tracker's status query
// contract. During a restore the cluster may briefly not exist yet, so
// not-found is treated as transient here, unlike SnapshotStatusQuery.
func (c *Client) ClusterStatusQuery(ctx context.Context) operations.StatusQueryFunc[Cluster] {
	return func(clusterID string) (operations.StatusResult[Cluster], error) {
		cluster, err := c.DescribeCluster(ctx, clusterID)
		if err != nil {
			return operations.StatusResult[Cluster]{}, err
		}

		return operations.StatusResult[Cluster]{Status: cluster.Status, Output: cluster}, nil
	}
}
