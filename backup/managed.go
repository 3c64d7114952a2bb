package backup

import (
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/aca-platform/redshift-backups-framework/cloud/backupsvc"
	"github.com/aca-platform/redshift-backups-framework/cloud/iam"
	"github.com/aca-platform/redshift-backups-framework/datastore"
	"github.com/aca-platform/redshift-backups-framework/operations"
)

// ManagedFlowDeps carries the clients and stores the managed backup flow
// operations run against.
type ManagedFlowDeps struct {
	// Backup is the AWS Backup client in the source account.
	Backup *backupsvc.Client
	// IAM provisions the service role the backup jobs assume.
	IAM *iam.Client
	// Store records the recovery point references the flow produces.
	Store datastore.MutableRecoveryPointRefStore

	// JobPoll overrides the default job poll policy.
	JobPoll *operations.PollPolicy
	// TrackerOptions are passed to the status tracker.
	TrackerOptions []operations.TrackerOption
}

func (d ManagedFlowDeps) jobPoll() operations.PollPolicy {
	if d.JobPoll != nil {
		return *d.JobPoll
	}

	return backupsvc.JobPollPolicy()
}

// EnsureRoleInput names the service role to provision.
type EnsureRoleInput struct {
	RoleName string `json:"roleName"`
}

// EnsureBackupRoleOp provisions the service role the backup jobs assume.
var EnsureBackupRoleOp = operations.NewOperation(
	"backup-ensure-role",
	semver.MustParse("1.0.0"),
	"Ensures the backup service role exists with the managed policies attached",
	func(b operations.Bundle, deps ManagedFlowDeps, input EnsureRoleInput) (iam.Role, error) {
		return deps.IAM.EnsureBackupServiceRole(b.GetContext(), input.RoleName)
	},
)

// EnsureVaultInput names the vault to provision.
type EnsureVaultInput struct {
	VaultName string            `json:"vaultName"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// EnsureVaultOp provisions the backup vault.
var EnsureVaultOp = operations.NewOperation(
	"backup-ensure-vault",
	semver.MustParse("1.0.0"),
	"Ensures the backup vault exists",
	func(b operations.Bundle, deps ManagedFlowDeps, input EnsureVaultInput) (backupsvc.Vault, error) {
		return deps.Backup.EnsureVault(b.GetContext(), input.VaultName, input.Tags)
	},
)

// EnsurePlanInput describes the backup plan to provision.
type EnsurePlanInput struct {
	PlanName string               `json:"planName"`
	Rules    []backupsvc.PlanRule `json:"rules"`
	Tags     map[string]string    `json:"tags,omitempty"`
}

// EnsurePlanOutput carries the resolved plan ID.
type EnsurePlanOutput struct {
	PlanID string `json:"planId"`
}

// EnsurePlanOp provisions the backup plan with its scheduling rules.
var EnsurePlanOp = operations.NewOperation(
	"backup-ensure-plan",
	semver.MustParse("1.0.0"),
	"Ensures the backup plan exists",
	func(b operations.Bundle, deps ManagedFlowDeps, input EnsurePlanInput) (EnsurePlanOutput, error) {
		planID, err := deps.Backup.EnsurePlan(b.GetContext(), input.PlanName, input.Rules, input.Tags)
		if err != nil {
			return EnsurePlanOutput{}, err
		}

		return EnsurePlanOutput{PlanID: planID}, nil
	},
)

// EnsureSelectionInput assigns a resource to a backup plan.
type EnsureSelectionInput struct {
	PlanID        string `json:"planId"`
	SelectionName string `json:"selectionName"`
	ResourceARN   string `json:"resourceArn"`
	RoleARN       string `json:"roleArn"`
}

// EnsureSelectionOutput carries the resolved selection ID.
type EnsureSelectionOutput struct {
	SelectionID string `json:"selectionId"`
}

// EnsureSelectionOp assigns the cluster to the backup plan.
var EnsureSelectionOp = operations.NewOperation(
	"backup-ensure-selection",
	semver.MustParse("1.0.0"),
	"Ensures the cluster is assigned to the backup plan",
	func(b operations.Bundle, deps ManagedFlowDeps, input EnsureSelectionInput) (EnsureSelectionOutput, error) {
		selectionID, err := deps.Backup.EnsureSelection(b.GetContext(),
			input.PlanID, input.SelectionName, input.ResourceARN, input.RoleARN)
		if err != nil {
			return EnsureSelectionOutput{}, err
		}

		return EnsureSelectionOutput{SelectionID: selectionID}, nil
	},
)

// StartBackupJobInput describes the on-demand backup to start.
type StartBackupJobInput struct {
	VaultName   string `json:"vaultName"`
	ResourceARN string `json:"resourceArn"`
	RoleARN     string `json:"roleArn"`
}

// StartBackupJobOp starts an on-demand backup job.
var StartBackupJobOp = operations.NewOperation(
	"backup-start-job",
	semver.MustParse("1.0.0"),
	"Starts an on-demand backup job",
	func(b operations.Bundle, deps ManagedFlowDeps, input StartBackupJobInput) (backupsvc.BackupJob, error) {
		return deps.Backup.StartBackupJob(b.GetContext(), input.VaultName, input.ResourceARN, input.RoleARN)
	},
)

// AwaitJobInput identifies the job to wait for.
type AwaitJobInput struct {
	JobID string `json:"jobId"`
}

// AwaitBackupJobOutput reports the final state of a backup job.
type AwaitBackupJobOutput struct {
	State            string `json:"state"`
	RecoveryPointARN string `json:"recoveryPointArn,omitempty"`
	// InProgress is true when the job had not finished within the wait
	// budget.
	InProgress bool `json:"inProgress"`
}

// AwaitBackupJobOp waits for a backup job to reach COMPLETED and returns
// the recovery point it produced.
var AwaitBackupJobOp = operations.NewOperation(
	"backup-await-job",
	semver.MustParse("1.0.0"),
	"Waits for a backup job to complete",
	func(b operations.Bundle, deps ManagedFlowDeps, input AwaitJobInput) (AwaitBackupJobOutput, error) {
		outcome := operations.AwaitTerminal(b, input.JobID,
			deps.Backup.BackupJobStatusQuery(b.GetContext()), deps.jobPoll(), deps.TrackerOptions...)
		switch {
		case outcome.Failed():
			return AwaitBackupJobOutput{State: outcome.Status}, outcome.Err
		case outcome.TimedOut():
			return AwaitBackupJobOutput{State: outcome.Status, InProgress: true}, nil
		default:
			return AwaitBackupJobOutput{
				State:            outcome.Status,
				RecoveryPointARN: outcome.Output.RecoveryPointARN,
			}, nil
		}
	},
)

// StartCopyJobInput describes the cross-account copy of a recovery point.
type StartCopyJobInput struct {
	RecoveryPointARN    string `json:"recoveryPointArn"`
	SourceVaultName     string `json:"sourceVaultName"`
	DestinationVaultARN string `json:"destinationVaultArn"`
	RoleARN             string `json:"roleArn"`
}

// StartCopyJobOp copies a recovery point into the target vault.
var StartCopyJobOp = operations.NewOperation(
	"backup-start-copy-job",
	semver.MustParse("1.0.0"),
	"Starts a recovery point copy job into the target vault",
	func(b operations.Bundle, deps ManagedFlowDeps, input StartCopyJobInput) (backupsvc.CopyJob, error) {
		return deps.Backup.StartCopyJob(b.GetContext(),
			input.RecoveryPointARN, input.SourceVaultName, input.DestinationVaultARN, input.RoleARN)
	},
)

// AwaitCopyJobOutput reports the final state of a copy job.
type AwaitCopyJobOutput struct {
	State                       string `json:"state"`
	DestinationRecoveryPointARN string `json:"destinationRecoveryPointArn,omitempty"`
	InProgress                  bool   `json:"inProgress"`
}

// AwaitCopyJobOp waits for a copy job to complete.
var AwaitCopyJobOp = operations.NewOperation(
	"backup-await-copy-job",
	semver.MustParse("1.0.0"),
	"Waits for a recovery point copy job to complete",
	func(b operations.Bundle, deps ManagedFlowDeps, input AwaitJobInput) (AwaitCopyJobOutput, error) {
		outcome := operations.AwaitTerminal(b, input.JobID,
			deps.Backup.CopyJobStatusQuery(b.GetContext()), deps.jobPoll(), deps.TrackerOptions...)
		switch {
		case outcome.Failed():
			return AwaitCopyJobOutput{State: outcome.Status}, outcome.Err
		case outcome.TimedOut():
			return AwaitCopyJobOutput{State: outcome.Status, InProgress: true}, nil
		default:
			return AwaitCopyJobOutput{
				State:                       outcome.Status,
				DestinationRecoveryPointARN: outcome.Output.DestinationRecoveryPointARN,
			}, nil
		}
	},
)

// ManagedBackupInput configures one run of the managed backup flow.
type ManagedBackupInput struct {
	RoleName      string               `json:"roleName"`
	VaultName     string               `json:"vaultName"`
	PlanName      string               `json:"planName"`
	Rules         []backupsvc.PlanRule `json:"rules"`
	SelectionName string               `json:"selectionName"`
	ResourceARN   string               `json:"resourceArn"`
	Tags          map[string]string    `json:"tags,omitempty"`
	// CopyToVaultARN, when set, copies the produced recovery point into
	// the given vault, typically in the target account.
	CopyToVaultARN string `json:"copyToVaultArn,omitempty"`
}

// ManagedBackupOutput is the result of the managed backup flow.
type ManagedBackupOutput struct {
	JobID            string `json:"jobId"`
	RecoveryPointARN string `json:"recoveryPointArn,omitempty"`
	CopyJobID        string `json:"copyJobId,omitempty"`
	InProgress       bool   `json:"inProgress"`
}

// ManagedBackupSequence provisions the backup infrastructure, runs an
// on-demand backup job and optionally copies the recovery point into the
// target vault.
var ManagedBackupSequence = operations.NewSequence(
	"managed-backup",
	semver.MustParse("1.0.0"),
	"Runs an on-demand managed backup of the cluster",
	func(b operations.Bundle, deps ManagedFlowDeps, input ManagedBackupInput) (ManagedBackupOutput, error) {
		roleReport, err := operations.ExecuteOperation(b, EnsureBackupRoleOp, deps, EnsureRoleInput{
			RoleName: input.RoleName,
		})
		if err != nil {
			return ManagedBackupOutput{}, err
		}
		roleARN := roleReport.Output.ARN

		if _, err = operations.ExecuteOperation(b, EnsureVaultOp, deps, EnsureVaultInput{
			VaultName: input.VaultName,
			Tags:      input.Tags,
		}); err != nil {
			return ManagedBackupOutput{}, err
		}

		planReport, err := operations.ExecuteOperation(b, EnsurePlanOp, deps, EnsurePlanInput{
			PlanName: input.PlanName,
			Rules:    input.Rules,
			Tags:     input.Tags,
		})
		if err != nil {
			return ManagedBackupOutput{}, err
		}

		if _, err = operations.ExecuteOperation(b, EnsureSelectionOp, deps, EnsureSelectionInput{
			PlanID:        planReport.Output.PlanID,
			SelectionName: input.SelectionName,
			ResourceARN:   input.ResourceARN,
			RoleARN:       roleARN,
		}); err != nil {
			return ManagedBackupOutput{}, err
		}

		jobReport, err := operations.ExecuteOperation(b, StartBackupJobOp, deps, StartBackupJobInput{
			VaultName:   input.VaultName,
			ResourceARN: input.ResourceARN,
			RoleARN:     roleARN,
		})
		if err != nil {
			return ManagedBackupOutput{}, err
		}

		awaitReport, err := operations.ExecuteOperation(b, AwaitBackupJobOp, deps, AwaitJobInput{
			JobID: jobReport.Output.JobID,
		})
		if err != nil {
			return ManagedBackupOutput{}, err
		}

		out := ManagedBackupOutput{
			JobID:            jobReport.Output.JobID,
			RecoveryPointARN: awaitReport.Output.RecoveryPointARN,
			InProgress:       awaitReport.Output.InProgress,
		}
		if out.InProgress {
			return out, nil
		}

		if err := recordRecoveryPointRef(deps.Store, datastore.RecoveryPointRef{
			VaultName:   input.VaultName,
			ARN:         out.RecoveryPointARN,
			ResourceARN: input.ResourceARN,
			Status:      awaitReport.Output.State,
		}); err != nil {
			return ManagedBackupOutput{}, err
		}

		if input.CopyToVaultARN == "" {
			return out, nil
		}

		copyReport, err := operations.ExecuteOperation(b, StartCopyJobOp, deps, StartCopyJobInput{
			RecoveryPointARN:    out.RecoveryPointARN,
			SourceVaultName:     input.VaultName,
			DestinationVaultARN: input.CopyToVaultARN,
			RoleARN:             roleARN,
		})
		if err != nil {
			return ManagedBackupOutput{}, err
		}
		out.CopyJobID = copyReport.Output.JobID

		if _, err = operations.ExecuteOperation(b, AwaitCopyJobOp, deps, AwaitJobInput{
			JobID: copyReport.Output.JobID,
		}); err != nil {
			return ManagedBackupOutput{}, err
		}

		return out, nil
	},
)

// ManagedRestoreInput configures one run of the managed restore flow.
// Metadata is resource-type specific restore metadata; for warehouse
// clusters it carries the new cluster identifier, the subnet group and the
// public accessibility flag.
type ManagedRestoreInput struct {
	RecoveryPointARN string            `json:"recoveryPointArn"`
	RoleARN          string            `json:"roleArn"`
	Metadata         map[string]string `json:"metadata"`
}

// StartRestoreJobOp starts a restore job from a recovery point.
var StartRestoreJobOp = operations.NewOperation(
	"backup-start-restore-job",
	semver.MustParse("1.0.0"),
	"Starts a restore job from a recovery point",
	func(b operations.Bundle, deps ManagedFlowDeps, input ManagedRestoreInput) (backupsvc.RestoreJob, error) {
		return deps.Backup.StartRestoreJob(b.GetContext(), input.RecoveryPointARN, input.RoleARN, input.Metadata)
	},
)

// AwaitRestoreJobOutput reports the final state of a restore job.
type AwaitRestoreJobOutput struct {
	Status             string `json:"status"`
	CreatedResourceARN string `json:"createdResourceArn,omitempty"`
	InProgress         bool   `json:"inProgress"`
}

// AwaitRestoreJobOp waits for a restore job to complete.
var AwaitRestoreJobOp = operations.NewOperation(
	"backup-await-restore-job",
	semver.MustParse("1.0.0"),
	"Waits for a restore job to complete",
	func(b operations.Bundle, deps ManagedFlowDeps, input AwaitJobInput) (AwaitRestoreJobOutput, error) {
		outcome := operations.AwaitTerminal(b, input.JobID,
			deps.Backup.RestoreJobStatusQuery(b.GetContext()), deps.jobPoll(), deps.TrackerOptions...)
		switch {
		case outcome.Failed():
			return AwaitRestoreJobOutput{Status: outcome.Status}, outcome.Err
		case outcome.TimedOut():
			return AwaitRestoreJobOutput{Status: outcome.Status, InProgress: true}, nil
		default:
			return AwaitRestoreJobOutput{
				Status:             outcome.Status,
				CreatedResourceARN: outcome.Output.CreatedResourceARN,
			}, nil
		}
	},
)

// ManagedRestoreOutput is the result of the managed restore flow.
type ManagedRestoreOutput struct {
	JobID              string `json:"jobId"`
	Status             string `json:"status"`
	CreatedResourceARN string `json:"createdResourceArn,omitempty"`
	InProgress         bool   `json:"inProgress"`
}

// ManagedRestoreSequence starts a restore job from a recovery point and
// waits for it.
var ManagedRestoreSequence = operations.NewSequence(
	"managed-restore",
	semver.MustParse("1.0.0"),
	"Restores a resource from a recovery point",
	func(b operations.Bundle, deps ManagedFlowDeps, input ManagedRestoreInput) (ManagedRestoreOutput, error) {
		jobReport, err := operations.ExecuteOperation(b, StartRestoreJobOp, deps, input)
		if err != nil {
			return ManagedRestoreOutput{}, err
		}

		awaitReport, err := operations.ExecuteOperation(b, AwaitRestoreJobOp, deps, AwaitJobInput{
			JobID: jobReport.Output.JobID,
		})
		if err != nil {
			return ManagedRestoreOutput{}, err
		}

		return ManagedRestoreOutput{
			JobID:              jobReport.Output.JobID,
			Status:             awaitReport.Output.Status,
			CreatedResourceARN: awaitReport.Output.CreatedResourceARN,
			InProgress:         awaitReport.Output.InProgress,
		}, nil
	},
)

func recordRecoveryPointRef(store datastore.MutableRecoveryPointRefStore, ref datastore.RecoveryPointRef) error {
	if store == nil {
		return nil
	}
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = time.Now().UTC()
	}

	return store.Upsert(ref)
}
