package backupsvc

import (
	"context"
	"time"

	"github.com/aca-platform/redshift-backups-framework/operations"
)

// Backup job states as reported by the AWS Backup control plane.
const (
	BackupJobStateCreated   = "CREATED"
	BackupJobStatePending   = "PENDING"
	BackupJobStateRunning   = "RUNNING"
	BackupJobStateCompleted = "COMPLETED"
	BackupJobStateFailed    = "FAILED"
	BackupJobStateAborted   = "ABORTED"
	BackupJobStateExpired   = "EXPIRED"
)

// Copy job states.
const (
	CopyJobStateCreated   = "CREATED"
	CopyJobStateRunning   = "RUNNING"
	CopyJobStateCompleted = "COMPLETED"
	CopyJobStateFailed    = "FAILED"
)

// Restore job statuses.
const (
	RestoreJobStatusPending   = "PENDING"
	RestoreJobStatusRunning   = "RUNNING"
	RestoreJobStatusCompleted = "COMPLETED"
	RestoreJobStatusAborted   = "ABORTED"
	RestoreJobStatusFailed    = "FAILED"
)

// JobPollPolicy is the polling cadence for backup, copy and restore jobs.
// Job scheduling alone can take several minutes, so the cadence is coarser
// and the budget larger than for direct snapshot polling.
func JobPollPolicy() operations.PollPolicy {
	return operations.PollPolicy{
		Interval: time.Minute,
		MaxWait:  60 * time.Minute,
		Classify: ClassifyJobState,
	}
}

// ClassifyJobState maps an AWS Backup job state onto a status class. The
// mapping is shared by backup, copy and restore jobs: all three report
// COMPLETED on success and FAILED, ABORTED or EXPIRED on failure.
func ClassifyJobState(state string) operations.StatusClass {
	switch state {
	case BackupJobStateCompleted:
		return operations.ClassSucceeded
	case BackupJobStateFailed, BackupJobStateAborted, BackupJobStateExpired:
		return operations.ClassFailed
	default:
		return operations.ClassPending
	}
}

// BackupJobStatusQuery returns a status query reading the state of a backup
// job. The returned payload carries the recovery point ARN once the job has
// completed.
func (c *Client) BackupJobStatusQuery(ctx context.Context) operations.StatusQueryFunc[BackupJob] {
	return func(jobID string) (operations.StatusResult[BackupJob], error) {
		job, err := c.DescribeBackupJob(ctx, jobID)
		if err != nil {
			if IsNotFound(err) {
				return operations.StatusResult[BackupJob]{}, operations.NewPermanentPollError(err)
			}

			return operations.StatusResult[BackupJob]{}, err
		}

		return operations.StatusResult[BackupJob]{Status: job.State, Output: job}, nil
	}
}

// CopyJobStatusQuery returns a status query reading the state of a copy job.
func (c *Client) CopyJobStatusQuery(ctx context.Context) operations.StatusQueryFunc[CopyJob] {
	return func(jobID string) (operations.StatusResult[CopyJob], error) {
		job, err := c.DescribeCopyJob(ctx, jobID)
		if err != nil {
			if IsNotFound(err) {
				return operations.StatusResult[CopyJob]{}, operations.NewPermanentPollError(err)
			}

			return operations.StatusResult[CopyJob]{}, err
		}

		return operations.StatusResult[CopyJob]{Status: job.State, Output: job}, nil
	}
}

// RestoreJobStatusQuery returns a status query reading the state of a
// restore job. The payload carries the created resource ARN on completion.
func (c *Client) RestoreJobStatusQuery(ctx context.Context) operations.StatusQueryFunc[RestoreJob] {
	return func(jobID string) (operations.StatusResult[RestoreJob], error) {
		job, err := c.DescribeRestoreJob(ctx, jobID)
		if err != nil {
			if IsNotFound(err) {
				return operations.StatusResult[RestoreJob]{}, operations.NewPermanentPollError(err)
			}

			return operations.StatusResult[RestoreJob]{}, err
		}

		return operations.StatusResult[RestoreJob]{Status: job.Status, Output: job}, nil
	}
}
