package backup

import (
	"github.com/Masterminds/semver/v3"

	"github.com/aca-platform/redshift-backups-framework/cloud/redshift"
	"github.com/aca-platform/redshift-backups-framework/operations"
)

// RestoreFlowDeps carries the client the restore flow operations run
// against. Restores run in the target account, from snapshots shared by the
// source account.
type RestoreFlowDeps struct {
	// Target is the client bound to the account the cluster is restored
	// into.
	Target *redshift.Client

	// ClusterPoll overrides the default restore poll policy.
	ClusterPoll *operations.PollPolicy
	// TrackerOptions are passed to the status tracker.
	TrackerOptions []operations.TrackerOption
}

func (d RestoreFlowDeps) clusterPoll() operations.PollPolicy {
	if d.ClusterPoll != nil {
		return *d.ClusterPoll
	}

	return redshift.RestorePollPolicy()
}

// RestoreClusterInput describes a cluster restore from a shared snapshot.
type RestoreClusterInput struct {
	ClusterID    string `json:"clusterId"`
	SnapshotID   string `json:"snapshotId"`
	OwnerAccount string `json:"ownerAccount,omitempty"`
	SubnetGroup  string `json:"subnetGroup,omitempty"`
}

// RestoreClusterOp starts a cluster restore from a snapshot. Restored
// clusters are never publicly accessible.
var RestoreClusterOp = operations.NewOperation(
	"cluster-restore",
	semver.MustParse("1.0.0"),
	"Restores a cluster from a shared snapshot",
	func(b operations.Bundle, deps RestoreFlowDeps, input RestoreClusterInput) (redshift.Cluster, error) {
		return deps.Target.RestoreFromSnapshot(b.GetContext(), redshift.RestoreInput{
			ClusterID:          input.ClusterID,
			SnapshotID:         input.SnapshotID,
			OwnerAccount:       input.OwnerAccount,
			SubnetGroup:        input.SubnetGroup,
			PubliclyAccessible: false,
		})
	},
)

// AwaitClusterInput identifies the cluster to wait for.
type AwaitClusterInput struct {
	ClusterID string `json:"clusterId"`
}

// AwaitClusterOutput reports the state of the cluster after the wait.
type AwaitClusterOutput struct {
	Status string `json:"status"`
	// InProgress is true when the restore had not finished within the wait
	// budget.
	InProgress bool `json:"inProgress"`
}

// AwaitClusterOp waits for a restored cluster to become available.
var AwaitClusterOp = operations.NewOperation(
	"cluster-await",
	semver.MustParse("1.0.0"),
	"Waits for a restored cluster to become available",
	func(b operations.Bundle, deps RestoreFlowDeps, input AwaitClusterInput) (AwaitClusterOutput, error) {
		outcome := operations.AwaitTerminal(b, input.ClusterID,
			deps.Target.ClusterStatusQuery(b.GetContext()), deps.clusterPoll(), deps.TrackerOptions...)
		switch {
		case outcome.Failed():
			return AwaitClusterOutput{Status: outcome.Status}, outcome.Err
		case outcome.TimedOut():
			return AwaitClusterOutput{Status: outcome.Status, InProgress: true}, nil
		default:
			return AwaitClusterOutput{Status: outcome.Status}, nil
		}
	},
)

// RestoreOutput is the result of the restore flow.
type RestoreOutput struct {
	ClusterID  string `json:"clusterId"`
	Status     string `json:"status"`
	InProgress bool   `json:"inProgress"`
}

// RestoreSequence restores a cluster from a shared snapshot and waits for it
// to come up.
var RestoreSequence = operations.NewSequence(
	"cluster-restore-flow",
	semver.MustParse("1.0.0"),
	"Restores a cluster from a shared snapshot and waits for availability",
	func(b operations.Bundle, deps RestoreFlowDeps, input RestoreClusterInput) (RestoreOutput, error) {
		if _, err := operations.ExecuteOperation(b, RestoreClusterOp, deps, input); err != nil {
			return RestoreOutput{}, err
		}

		awaitReport, err := operations.ExecuteOperation(b, AwaitClusterOp, deps, AwaitClusterInput{
			ClusterID: input.ClusterID,
		})
		if err != nil {
			return RestoreOutput{}, err
		}

		return RestoreOutput{
			ClusterID:  input.ClusterID,
			Status:     awaitReport.Output.Status,
			InProgress: awaitReport.Output.InProgress,
		}, nil
	},
)
