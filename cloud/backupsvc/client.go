// Package backupsvc provides the AWS Backup control-plane bindings used by
// the managed backup flows: vaults, backup plans, on-demand backup jobs,
// cross-account copy jobs and restore jobs.
package backupsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/backup"
	"github.com/aws/aws-sdk-go/service/backup/backupiface"
	"github.com/segmentio/ksuid"

	"github.com/aca-platform/redshift-backups-framework/internal/pointer"
	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

// Vault identifies a backup vault.
type Vault struct {
	Name string `json:"name"`
	ARN  string `json:"arn"`
}

// PlanRule is a single scheduling rule of a backup plan.
type PlanRule struct {
	RuleName                string            `json:"ruleName"`
	VaultName               string            `json:"vaultName"`
	Schedule                string            `json:"schedule"`
	StartWindowMinutes      int64             `json:"startWindowMinutes"`
	CompletionWindowMinutes int64             `json:"completionWindowMinutes"`
	DeleteAfterDays         int64             `json:"deleteAfterDays"`
	RecoveryPointTags       map[string]string `json:"recoveryPointTags,omitempty"`
}

// BackupJob is the subset of an AWS Backup job the framework tracks.
type BackupJob struct {
	JobID            string `json:"jobId"`
	State            string `json:"state"`
	RecoveryPointARN string `json:"recoveryPointArn,omitempty"`
	StatusMessage    string `json:"statusMessage,omitempty"`
}

// CopyJob is the subset of an AWS Backup copy job the framework tracks.
type CopyJob struct {
	JobID                      string `json:"jobId"`
	State                      string `json:"state"`
	DestinationRecoveryPointARN string `json:"destinationRecoveryPointArn,omitempty"`
}

// RestoreJob is the subset of an AWS Backup restore job the framework tracks.
type RestoreJob struct {
	JobID             string `json:"jobId"`
	Status            string `json:"status"`
	CreatedResourceARN string `json:"createdResourceArn,omitempty"`
}

// RecoveryPoint is the subset of a recovery point the framework tracks.
type RecoveryPoint struct {
	ARN         string    `json:"arn"`
	ResourceARN string    `json:"resourceArn"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Client wraps the AWS Backup API with the operations the managed backup
// flows need.
type Client struct {
	api  backupiface.BackupAPI
	lggr logger.Logger

	// newIdempotencyToken generates tokens for job submissions.
	// Overridable in tests.
	newIdempotencyToken func() string
}

// NewClient creates a new Client from an account session.
func NewClient(sess *session.Session, lggr logger.Logger) *Client {
	return NewClientWithAPI(backup.New(sess), lggr)
}

// NewClientWithAPI creates a new Client with a preconstructed API
// implementation. Intended for tests that stub the control plane.
func NewClientWithAPI(api backupiface.BackupAPI, lggr logger.Logger) *Client {
	return &Client{
		api:  api,
		lggr: lggr,
		newIdempotencyToken: func() string {
			return ksuid.New().String()
		},
	}
}

// EnsureVault creates the backup vault if it does not exist and returns it.
// An already existing vault is not an error.
func (c *Client) EnsureVault(ctx context.Context, name string, tags map[string]string) (Vault, error) {
	c.lggr.Infow("Ensuring backup vault", "vault", name)

	out, err := c.api.CreateBackupVaultWithContext(ctx, &backup.CreateBackupVaultInput{
		BackupVaultName: aws.String(name),
		BackupVaultTags: toTagMap(tags),
	})
	if err != nil {
		if !hasErrCode(err, backup.ErrCodeAlreadyExistsException) {
			return Vault{}, fmt.Errorf("failed to create backup vault %s: %w", name, err)
		}

		c.lggr.Debugw("Backup vault already exists", "vault", name)
		desc, derr := c.api.DescribeBackupVaultWithContext(ctx, &backup.DescribeBackupVaultInput{
			BackupVaultName: aws.String(name),
		})
		if derr != nil {
			return Vault{}, fmt.Errorf("failed to describe existing backup vault %s: %w", name, derr)
		}

		return Vault{Name: name, ARN: aws.StringValue(desc.BackupVaultArn)}, nil
	}

	return Vault{Name: name, ARN: aws.StringValue(out.BackupVaultArn)}, nil
}

// EnsurePlan creates a backup plan with the given rules if it does not exist
// and returns its ID. If a plan with the same name already exists, its ID is
// returned instead.
func (c *Client) EnsurePlan(ctx context.Context, name string, rules []PlanRule, tags map[string]string) (string, error) {
	c.lggr.Infow("Ensuring backup plan", "plan", name)

	sdkRules := make([]*backup.RuleInput, 0, len(rules))
	for _, r := range rules {
		rule := &backup.RuleInput{
			RuleName:                aws.String(r.RuleName),
			TargetBackupVaultName:   aws.String(r.VaultName),
			ScheduleExpression:      aws.String(r.Schedule),
			StartWindowMinutes:      aws.Int64(r.StartWindowMinutes),
			CompletionWindowMinutes: aws.Int64(r.CompletionWindowMinutes),
			RecoveryPointTags:       toTagMap(r.RecoveryPointTags),
		}
		if r.DeleteAfterDays > 0 {
			rule.Lifecycle = &backup.Lifecycle{DeleteAfterDays: aws.Int64(r.DeleteAfterDays)}
		}
		sdkRules = append(sdkRules, rule)
	}

	out, err := c.api.CreateBackupPlanWithContext(ctx, &backup.CreateBackupPlanInput{
		BackupPlan: &backup.PlanInput{
			BackupPlanName: aws.String(name),
			Rules:          sdkRules,
		},
		BackupPlanTags: toTagMap(tags),
	})
	if err != nil {
		if !hasErrCode(err, backup.ErrCodeAlreadyExistsException) {
			return "", fmt.Errorf("failed to create backup plan %s: %w", name, err)
		}

		c.lggr.Debugw("Backup plan already exists, looking up ID", "plan", name)

		return c.findPlanID(ctx, name)
	}

	return aws.StringValue(out.BackupPlanId), nil
}

func (c *Client) findPlanID(ctx context.Context, name string) (string, error) {
	var planID string
	err := c.api.ListBackupPlansPagesWithContext(ctx, &backup.ListBackupPlansInput{},
		func(page *backup.ListBackupPlansOutput, _ bool) bool {
			for _, p := range page.BackupPlansList {
				if aws.StringValue(p.BackupPlanName) == name {
					planID = aws.StringValue(p.BackupPlanId)
					return false
				}
			}

			return true
		})
	if err != nil {
		return "", fmt.Errorf("failed to list backup plans: %w", err)
	}
	if planID == "" {
		return "", fmt.Errorf("backup plan %s exists but could not be found", name)
	}

	return planID, nil
}

// EnsureSelection assigns the given resource to the backup plan if no
// selection with the same name exists, and returns the selection ID.
func (c *Client) EnsureSelection(ctx context.Context, planID, selectionName, resourceARN, roleARN string) (string, error) {
	c.lggr.Infow("Ensuring backup selection", "plan", planID, "selection", selectionName)

	out, err := c.api.CreateBackupSelectionWithContext(ctx, &backup.CreateBackupSelectionInput{
		BackupPlanId: aws.String(planID),
		BackupSelection: &backup.Selection{
			SelectionName: aws.String(selectionName),
			IamRoleArn:    aws.String(roleARN),
			Resources:     []*string{aws.String(resourceARN)},
		},
	})
	if err != nil {
		if !hasErrCode(err, backup.ErrCodeAlreadyExistsException) {
			return "", fmt.Errorf("failed to create backup selection %s: %w", selectionName, err)
		}

		c.lggr.Debugw("Backup selection already exists, looking up ID", "selection", selectionName)

		return c.findSelectionID(ctx, planID, selectionName)
	}

	return aws.StringValue(out.SelectionId), nil
}

func (c *Client) findSelectionID(ctx context.Context, planID, selectionName string) (string, error) {
	var selectionID string
	err := c.api.ListBackupSelectionsPagesWithContext(ctx,
		&backup.ListBackupSelectionsInput{BackupPlanId: aws.String(planID)},
		func(page *backup.ListBackupSelectionsOutput, _ bool) bool {
			for _, s := range page.BackupSelectionsList {
				if aws.StringValue(s.SelectionName) == selectionName {
					selectionID = aws.StringValue(s.SelectionId)
					return false
				}
			}

			return true
		})
	if err != nil {
		return "", fmt.Errorf("failed to list backup selections for plan %s: %w", planID, err)
	}
	if selectionID == "" {
		return "", fmt.Errorf("backup selection %s exists but could not be found", selectionName)
	}

	return selectionID, nil
}

// StartBackupJob starts an on-demand backup of the resource into the vault.
func (c *Client) StartBackupJob(ctx context.Context, vaultName, resourceARN, roleARN string) (BackupJob, error) {
	c.lggr.Infow("Starting on-demand backup job", "vault", vaultName, "resource", resourceARN)

	out, err := c.api.StartBackupJobWithContext(ctx, &backup.StartBackupJobInput{
		BackupVaultName:  aws.String(vaultName),
		ResourceArn:      aws.String(resourceARN),
		IamRoleArn:       aws.String(roleARN),
		IdempotencyToken: aws.String(c.newIdempotencyToken()),
	})
	if err != nil {
		return BackupJob{}, fmt.Errorf("failed to start backup job for %s: %w", resourceARN, err)
	}

	return BackupJob{JobID: aws.StringValue(out.BackupJobId), State: BackupJobStateCreated}, nil
}

// DescribeBackupJob returns the current state of a backup job, including the
// recovery point ARN once the job has completed.
func (c *Client) DescribeBackupJob(ctx context.Context, jobID string) (BackupJob, error) {
	out, err := c.api.DescribeBackupJobWithContext(ctx, &backup.DescribeBackupJobInput{
		BackupJobId: aws.String(jobID),
	})
	if err != nil {
		return BackupJob{}, fmt.Errorf("failed to describe backup job %s: %w", jobID, err)
	}

	return BackupJob{
		JobID:            aws.StringValue(out.BackupJobId),
		State:            aws.StringValue(out.State),
		RecoveryPointARN: aws.StringValue(out.RecoveryPointArn),
		StatusMessage:    aws.StringValue(out.StatusMessage),
	}, nil
}

// StartCopyJob copies a recovery point from the source vault into the
// destination vault, which may live in another account.
func (c *Client) StartCopyJob(ctx context.Context, recoveryPointARN, sourceVaultName, destinationVaultARN, roleARN string) (CopyJob, error) {
	c.lggr.Infow("Starting copy job",
		"recoveryPoint", recoveryPointARN, "sourceVault", sourceVaultName, "destinationVault", destinationVaultARN)

	out, err := c.api.StartCopyJobWithContext(ctx, &backup.StartCopyJobInput{
		RecoveryPointArn:          aws.String(recoveryPointARN),
		SourceBackupVaultName:     aws.String(sourceVaultName),
		DestinationBackupVaultArn: aws.String(destinationVaultARN),
		IamRoleArn:                aws.String(roleARN),
		IdempotencyToken:          aws.String(c.newIdempotencyToken()),
	})
	if err != nil {
		return CopyJob{}, fmt.Errorf("failed to start copy job for %s: %w", recoveryPointARN, err)
	}

	return CopyJob{JobID: aws.StringValue(out.CopyJobId), State: CopyJobStateCreated}, nil
}

// DescribeCopyJob returns the current state of a copy job.
func (c *Client) DescribeCopyJob(ctx context.Context, jobID string) (CopyJob, error) {
	out, err := c.api.DescribeCopyJobWithContext(ctx, &backup.DescribeCopyJobInput{
		CopyJobId: aws.String(jobID),
	})
	if err != nil {
		return CopyJob{}, fmt.Errorf("failed to describe copy job %s: %w", jobID, err)
	}

	job := CopyJob{JobID: jobID}
	if out.CopyJob != nil {
		job.State = aws.StringValue(out.CopyJob.State)
		if out.CopyJob.DestinationRecoveryPointArn != nil {
			job.DestinationRecoveryPointARN = aws.StringValue(out.CopyJob.DestinationRecoveryPointArn)
		}
	}

	return job, nil
}

// ListRecoveryPoints lists the recovery points stored in a vault.
func (c *Client) ListRecoveryPoints(ctx context.Context, vaultName string) ([]RecoveryPoint, error) {
	var points []RecoveryPoint
	err := c.api.ListRecoveryPointsByBackupVaultPagesWithContext(ctx,
		&backup.ListRecoveryPointsByBackupVaultInput{BackupVaultName: aws.String(vaultName)},
		func(page *backup.ListRecoveryPointsByBackupVaultOutput, _ bool) bool {
			for _, rp := range page.RecoveryPoints {
				points = append(points, RecoveryPoint{
					ARN:         aws.StringValue(rp.RecoveryPointArn),
					ResourceARN: aws.StringValue(rp.ResourceArn),
					Status:      aws.StringValue(rp.Status),
					CreatedAt:   aws.TimeValue(rp.CreationDate),
				})
			}

			return true
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list recovery points in vault %s: %w", vaultName, err)
	}

	return points, nil
}

// StartRestoreJob starts a restore of a recovery point. The metadata map is
// resource-type specific; for a warehouse cluster it carries the new cluster
// identifier, the subnet group and the public-accessibility flag.
func (c *Client) StartRestoreJob(ctx context.Context, recoveryPointARN, roleARN string, metadata map[string]string) (RestoreJob, error) {
	c.lggr.Infow("Starting restore job", "recoveryPoint", recoveryPointARN)

	out, err := c.api.StartRestoreJobWithContext(ctx, &backup.StartRestoreJobInput{
		RecoveryPointArn: aws.String(recoveryPointARN),
		IamRoleArn:       aws.String(roleARN),
		Metadata:         toTagMap(metadata),
		IdempotencyToken: aws.String(c.newIdempotencyToken()),
	})
	if err != nil {
		return RestoreJob{}, fmt.Errorf("failed to start restore job for %s: %w", recoveryPointARN, err)
	}

	return RestoreJob{JobID: aws.StringValue(out.RestoreJobId), Status: RestoreJobStatusPending}, nil
}

// DescribeRestoreJob returns the current state of a restore job.
func (c *Client) DescribeRestoreJob(ctx context.Context, jobID string) (RestoreJob, error) {
	out, err := c.api.DescribeRestoreJobWithContext(ctx, &backup.DescribeRestoreJobInput{
		RestoreJobId: aws.String(jobID),
	})
	if err != nil {
		return RestoreJob{}, fmt.Errorf("failed to describe restore job %s: %w", jobID, err)
	}

	return RestoreJob{
		JobID:              aws.StringValue(out.RestoreJobId),
		Status:             aws.StringValue(out.Status),
		CreatedResourceARN: aws.StringValue(out.CreatedResourceArn),
	}, nil
}

// IsNotFound reports whether err is a resource-not-found error.
func IsNotFound(err error) bool {
	return hasErrCode(err, backup.ErrCodeResourceNotFoundException)
}

func hasErrCode(err error, code string) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == code
	}

	return false
}

func toTagMap(tags map[string]string) map[string]*string {
	if len(tags) == 0 {
		return nil
	}

	out := make(map[string]*string, len(tags))
	for k, v := range tags {
		out[k] = pointer.To(v)
	}

	return out
}
