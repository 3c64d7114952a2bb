package backup

import (
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/aca-platform/redshift-backups-framework/cloud/redshift"
	"github.com/aca-platform/redshift-backups-framework/datastore"
	"github.com/aca-platform/redshift-backups-framework/operations"
)

// StatusSnapshotInProgress is reported when the wait budget ran out before
// the snapshot reached a terminal status. The snapshot keeps progressing
// server-side; a later run picks it up.
const StatusSnapshotInProgress = "snapshot_in_progress"

// SnapshotFlowDeps carries the clients and stores the snapshot flow
// operations run against.
type SnapshotFlowDeps struct {
	// Source is the client bound to the account that owns the cluster.
	Source *redshift.Client
	// Target is the client bound to the account the snapshot is shared
	// with. Only needed when the flow copies the snapshot.
	Target *redshift.Client
	// Store records the snapshot references the flow produces.
	Store datastore.MutableSnapshotRefStore

	// SnapshotPoll overrides the default snapshot poll policy.
	SnapshotPoll *operations.PollPolicy
	// TrackerOptions are passed to the status tracker. Tests use them to
	// inject a fake clock.
	TrackerOptions []operations.TrackerOption
}

func (d SnapshotFlowDeps) snapshotPoll() operations.PollPolicy {
	if d.SnapshotPoll != nil {
		return *d.SnapshotPoll
	}

	return redshift.SnapshotPollPolicy()
}

// CreateSnapshotInput identifies the cluster to snapshot.
type CreateSnapshotInput struct {
	ClusterID  string            `json:"clusterId"`
	SnapshotID string            `json:"snapshotId"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// CreateSnapshotOp creates a manual snapshot of the source cluster.
var CreateSnapshotOp = operations.NewOperation(
	"snapshot-create",
	semver.MustParse("1.0.0"),
	"Creates a manual snapshot of the warehouse cluster",
	func(b operations.Bundle, deps SnapshotFlowDeps, input CreateSnapshotInput) (redshift.Snapshot, error) {
		return deps.Source.CreateSnapshot(b.GetContext(), input.ClusterID, input.SnapshotID, input.Tags)
	},
)

// AwaitSnapshotInput identifies the snapshot to wait for.
type AwaitSnapshotInput struct {
	SnapshotID string `json:"snapshotId"`
}

// AwaitSnapshotOutput reports the terminal or still-pending state of the
// snapshot after the wait.
type AwaitSnapshotOutput struct {
	Status string `json:"status"`
	// InProgress is true when the wait budget ran out before the snapshot
	// became available. This is not a failure.
	InProgress bool `json:"inProgress"`
}

// AwaitSourceSnapshotOp waits for a snapshot in the source account to reach
// a terminal status. An exhausted wait budget yields InProgress, not an
// error.
var AwaitSourceSnapshotOp = operations.NewOperation(
	"snapshot-await",
	semver.MustParse("1.0.0"),
	"Waits for a snapshot to become available",
	func(b operations.Bundle, deps SnapshotFlowDeps, input AwaitSnapshotInput) (AwaitSnapshotOutput, error) {
		return awaitSnapshot(b, deps.Source, input.SnapshotID, deps.snapshotPoll(), deps.TrackerOptions)
	},
)

// AwaitTargetSnapshotOp waits for a snapshot copy in the target account to
// reach a terminal status.
var AwaitTargetSnapshotOp = operations.NewOperation(
	"snapshot-copy-await",
	semver.MustParse("1.0.0"),
	"Waits for a snapshot copy to become available",
	func(b operations.Bundle, deps SnapshotFlowDeps, input AwaitSnapshotInput) (AwaitSnapshotOutput, error) {
		return awaitSnapshot(b, deps.Target, input.SnapshotID, deps.snapshotPoll(), deps.TrackerOptions)
	},
)

func awaitSnapshot(
	b operations.Bundle, client *redshift.Client, snapshotID string,
	policy operations.PollPolicy, trackerOpts []operations.TrackerOption,
) (AwaitSnapshotOutput, error) {
	outcome := operations.AwaitTerminal(b, snapshotID, client.SnapshotStatusQuery(b.GetContext()), policy, trackerOpts...)
	switch {
	case outcome.Failed():
		return AwaitSnapshotOutput{Status: outcome.Status}, outcome.Err
	case outcome.TimedOut():
		return AwaitSnapshotOutput{Status: StatusSnapshotInProgress, InProgress: true}, nil
	default:
		return AwaitSnapshotOutput{Status: outcome.Status}, nil
	}
}

// AuthorizeSnapshotInput grants a target account access to a snapshot.
type AuthorizeSnapshotInput struct {
	SnapshotID    string `json:"snapshotId"`
	TargetAccount string `json:"targetAccount"`
}

// AuthorizeSnapshotOutput echoes the grant that was applied.
type AuthorizeSnapshotOutput struct {
	SnapshotID    string `json:"snapshotId"`
	TargetAccount string `json:"targetAccount"`
}

// AuthorizeSnapshotAccessOp shares the snapshot with the target account.
// Re-authorizing an already shared snapshot is a no-op.
var AuthorizeSnapshotAccessOp = operations.NewOperation(
	"snapshot-authorize-access",
	semver.MustParse("1.0.0"),
	"Authorizes the target account to restore the snapshot",
	func(b operations.Bundle, deps SnapshotFlowDeps, input AuthorizeSnapshotInput) (AuthorizeSnapshotOutput, error) {
		if err := deps.Source.AuthorizeSnapshotAccess(b.GetContext(), input.SnapshotID, input.TargetAccount); err != nil {
			return AuthorizeSnapshotOutput{}, err
		}

		return AuthorizeSnapshotOutput(input), nil
	},
)

// CopySnapshotInput describes the target-account copy of a shared snapshot.
type CopySnapshotInput struct {
	OwnerAccount     string `json:"ownerAccount"`
	SourceSnapshotID string `json:"sourceSnapshotId"`
	SourceClusterID  string `json:"sourceClusterId"`
	TargetSnapshotID string `json:"targetSnapshotId"`
}

// CopySharedSnapshotOp copies a shared snapshot into the target account so
// the copy survives deletion of the original.
var CopySharedSnapshotOp = operations.NewOperation(
	"snapshot-copy",
	semver.MustParse("1.0.0"),
	"Copies a shared snapshot into the target account",
	func(b operations.Bundle, deps SnapshotFlowDeps, input CopySnapshotInput) (redshift.Snapshot, error) {
		return deps.Target.CopySnapshot(b.GetContext(),
			input.OwnerAccount, input.SourceSnapshotID, input.SourceClusterID, input.TargetSnapshotID)
	},
)

// CrossAccountSnapshotInput configures one run of the cross-account snapshot
// flow. SnapshotID must be stable across retries of the same logical backup
// so previously completed steps are skipped.
type CrossAccountSnapshotInput struct {
	ClusterID     string            `json:"clusterId"`
	SnapshotID    string            `json:"snapshotId"`
	SourceAccount string            `json:"sourceAccount"`
	Region        string            `json:"region"`
	TargetAccount string            `json:"targetAccount"`
	// CopyToTarget copies the shared snapshot into the target account once
	// it is available.
	CopyToTarget bool              `json:"copyToTarget"`
	Tags         map[string]string `json:"tags,omitempty"`
}

// CrossAccountSnapshotOutput is the result of the snapshot flow.
type CrossAccountSnapshotOutput struct {
	SnapshotID string `json:"snapshotId"`
	Status     string `json:"status"`
	// InProgress is true when the snapshot had not reached a terminal
	// status within the wait budget. Sharing and copying are deferred to a
	// later run.
	InProgress     bool   `json:"inProgress"`
	CopySnapshotID string `json:"copySnapshotId,omitempty"`
}

// CrossAccountSnapshotSequence runs the full snapshot flow: create the
// snapshot, wait for it, share it with the target account and optionally
// copy it there, then record the reference in the catalog.
var CrossAccountSnapshotSequence = operations.NewSequence(
	"cross-account-snapshot",
	semver.MustParse("1.0.0"),
	"Creates a cluster snapshot and shares it with the target account",
	func(b operations.Bundle, deps SnapshotFlowDeps, input CrossAccountSnapshotInput) (CrossAccountSnapshotOutput, error) {
		createReport, err := operations.ExecuteOperation(b, CreateSnapshotOp, deps, CreateSnapshotInput{
			ClusterID:  input.ClusterID,
			SnapshotID: input.SnapshotID,
			Tags:       input.Tags,
		})
		if err != nil {
			return CrossAccountSnapshotOutput{}, err
		}

		awaitReport, err := operations.ExecuteOperation(b, AwaitSourceSnapshotOp, deps, AwaitSnapshotInput{
			SnapshotID: input.SnapshotID,
		})
		if err != nil {
			return CrossAccountSnapshotOutput{}, err
		}

		out := CrossAccountSnapshotOutput{
			SnapshotID: input.SnapshotID,
			Status:     awaitReport.Output.Status,
			InProgress: awaitReport.Output.InProgress,
		}

		if err := recordSnapshotRef(deps.Store, datastore.SnapshotRef{
			OwnerAccount: input.SourceAccount,
			Region:       input.Region,
			SnapshotID:   input.SnapshotID,
			ClusterID:    input.ClusterID,
			Status:       awaitReport.Output.Status,
			CreatedAt:    createReport.Output.CreatedAt,
		}); err != nil {
			return CrossAccountSnapshotOutput{}, err
		}

		if out.InProgress {
			return out, nil
		}

		if _, err = operations.ExecuteOperation(b, AuthorizeSnapshotAccessOp, deps, AuthorizeSnapshotInput{
			SnapshotID:    input.SnapshotID,
			TargetAccount: input.TargetAccount,
		}); err != nil {
			return CrossAccountSnapshotOutput{}, err
		}

		if !input.CopyToTarget {
			return out, nil
		}

		copyID := CopyName(input.SnapshotID)
		copyReport, err := operations.ExecuteOperation(b, CopySharedSnapshotOp, deps, CopySnapshotInput{
			OwnerAccount:     input.SourceAccount,
			SourceSnapshotID: input.SnapshotID,
			SourceClusterID:  input.ClusterID,
			TargetSnapshotID: copyID,
		})
		if err != nil {
			return CrossAccountSnapshotOutput{}, err
		}

		copyAwait, err := operations.ExecuteOperation(b, AwaitTargetSnapshotOp, deps, AwaitSnapshotInput{
			SnapshotID: copyID,
		})
		if err != nil {
			return CrossAccountSnapshotOutput{}, err
		}

		out.CopySnapshotID = copyID

		if err := recordSnapshotRef(deps.Store, datastore.SnapshotRef{
			OwnerAccount: input.TargetAccount,
			Region:       input.Region,
			SnapshotID:   copyID,
			ClusterID:    input.ClusterID,
			Status:       copyAwait.Output.Status,
			CreatedAt:    copyReport.Output.CreatedAt,
		}); err != nil {
			return CrossAccountSnapshotOutput{}, err
		}

		return out, nil
	},
)

func recordSnapshotRef(store datastore.MutableSnapshotRefStore, ref datastore.SnapshotRef) error {
	if store == nil {
		return nil
	}
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = time.Now().UTC()
	}

	return store.Upsert(ref)
}
