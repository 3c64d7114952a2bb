package backupsvc

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/backup"
	"github.com/aws/aws-sdk-go/service/backup/backupiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

// stubAPI implements the subset of the AWS Backup API the client exercises.
type stubAPI struct {
	backupiface.BackupAPI

	createVaultFn     func(*backup.CreateBackupVaultInput) (*backup.CreateBackupVaultOutput, error)
	describeVaultFn   func(*backup.DescribeBackupVaultInput) (*backup.DescribeBackupVaultOutput, error)
	createPlanFn      func(*backup.CreateBackupPlanInput) (*backup.CreateBackupPlanOutput, error)
	listPlansFn       func(*backup.ListBackupPlansInput, func(*backup.ListBackupPlansOutput, bool) bool) error
	createSelectionFn func(*backup.CreateBackupSelectionInput) (*backup.CreateBackupSelectionOutput, error)
	listSelectionsFn  func(*backup.ListBackupSelectionsInput, func(*backup.ListBackupSelectionsOutput, bool) bool) error
	startBackupFn     func(*backup.StartBackupJobInput) (*backup.StartBackupJobOutput, error)
	describeBackupFn  func(*backup.DescribeBackupJobInput) (*backup.DescribeBackupJobOutput, error)
	startCopyFn       func(*backup.StartCopyJobInput) (*backup.StartCopyJobOutput, error)
	startRestoreFn    func(*backup.StartRestoreJobInput) (*backup.StartRestoreJobOutput, error)
	listPointsFn      func(*backup.ListRecoveryPointsByBackupVaultInput, func(*backup.ListRecoveryPointsByBackupVaultOutput, bool) bool) error
}

func (s *stubAPI) CreateBackupVaultWithContext(_ aws.Context, in *backup.CreateBackupVaultInput, _ ...request.Option) (*backup.CreateBackupVaultOutput, error) {
	return s.createVaultFn(in)
}

func (s *stubAPI) DescribeBackupVaultWithContext(_ aws.Context, in *backup.DescribeBackupVaultInput, _ ...request.Option) (*backup.DescribeBackupVaultOutput, error) {
	return s.describeVaultFn(in)
}

func (s *stubAPI) CreateBackupPlanWithContext(_ aws.Context, in *backup.CreateBackupPlanInput, _ ...request.Option) (*backup.CreateBackupPlanOutput, error) {
	return s.createPlanFn(in)
}

func (s *stubAPI) ListBackupPlansPagesWithContext(_ aws.Context, in *backup.ListBackupPlansInput, fn func(*backup.ListBackupPlansOutput, bool) bool, _ ...request.Option) error {
	return s.listPlansFn(in, fn)
}

func (s *stubAPI) CreateBackupSelectionWithContext(_ aws.Context, in *backup.CreateBackupSelectionInput, _ ...request.Option) (*backup.CreateBackupSelectionOutput, error) {
	return s.createSelectionFn(in)
}

func (s *stubAPI) ListBackupSelectionsPagesWithContext(_ aws.Context, in *backup.ListBackupSelectionsInput, fn func(*backup.ListBackupSelectionsOutput, bool) bool, _ ...request.Option) error {
	return s.listSelectionsFn(in, fn)
}

func (s *stubAPI) StartBackupJobWithContext(_ aws.Context, in *backup.StartBackupJobInput, _ ...request.Option) (*backup.StartBackupJobOutput, error) {
	return s.startBackupFn(in)
}

func (s *stubAPI) DescribeBackupJobWithContext(_ aws.Context, in *backup.DescribeBackupJobInput, _ ...request.Option) (*backup.DescribeBackupJobOutput, error) {
	return s.describeBackupFn(in)
}

func (s *stubAPI) StartCopyJobWithContext(_ aws.Context, in *backup.StartCopyJobInput, _ ...request.Option) (*backup.StartCopyJobOutput, error) {
	return s.startCopyFn(in)
}

func (s *stubAPI) StartRestoreJobWithContext(_ aws.Context, in *backup.StartRestoreJobInput, _ ...request.Option) (*backup.StartRestoreJobOutput, error) {
	return s.startRestoreFn(in)
}

func (s *stubAPI) ListRecoveryPointsByBackupVaultPagesWithContext(_ aws.Context, in *backup.ListRecoveryPointsByBackupVaultInput, fn func(*backup.ListRecoveryPointsByBackupVaultOutput, bool) bool, _ ...request.Option) error {
	return s.listPointsFn(in, fn)
}

func newTestClient(t *testing.T, api backupiface.BackupAPI) *Client {
	t.Helper()

	c := NewClientWithAPI(api, logger.Test(t))
	c.newIdempotencyToken = func() string { return "token-1" }

	return c
}

func Test_Client_EnsureVault_Creates(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		createVaultFn: func(in *backup.CreateBackupVaultInput) (*backup.CreateBackupVaultOutput, error) {
			assert.Equal(t, "analytics-backups", aws.StringValue(in.BackupVaultName))
			assert.Equal(t, "backups", aws.StringValue(in.BackupVaultTags["service"]))

			return &backup.CreateBackupVaultOutput{
				BackupVaultArn: aws.String("arn:aws:backup:eu-west-1:111:backup-vault:analytics-backups"),
			}, nil
		},
	}

	vault, err := newTestClient(t, api).EnsureVault(t.Context(), "analytics-backups", map[string]string{"service": "backups"})
	require.NoError(t, err)
	assert.Equal(t, "analytics-backups", vault.Name)
	assert.Equal(t, "arn:aws:backup:eu-west-1:111:backup-vault:analytics-backups", vault.ARN)
}

func Test_Client_EnsureVault_AlreadyExists(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		createVaultFn: func(*backup.CreateBackupVaultInput) (*backup.CreateBackupVaultOutput, error) {
			return nil, awserr.New(backup.ErrCodeAlreadyExistsException, "exists", nil)
		},
		describeVaultFn: func(in *backup.DescribeBackupVaultInput) (*backup.DescribeBackupVaultOutput, error) {
			assert.Equal(t, "analytics-backups", aws.StringValue(in.BackupVaultName))

			return &backup.DescribeBackupVaultOutput{
				BackupVaultArn: aws.String("arn:aws:backup:eu-west-1:111:backup-vault:analytics-backups"),
			}, nil
		},
	}

	vault, err := newTestClient(t, api).EnsureVault(t.Context(), "analytics-backups", nil)
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:backup:eu-west-1:111:backup-vault:analytics-backups", vault.ARN)
}

func Test_Client_EnsurePlan_AlreadyExists_ResolvesID(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		createPlanFn: func(*backup.CreateBackupPlanInput) (*backup.CreateBackupPlanOutput, error) {
			return nil, awserr.New(backup.ErrCodeAlreadyExistsException, "exists", nil)
		},
		listPlansFn: func(_ *backup.ListBackupPlansInput, fn func(*backup.ListBackupPlansOutput, bool) bool) error {
			fn(&backup.ListBackupPlansOutput{
				BackupPlansList: []*backup.PlansListMember{
					{BackupPlanId: aws.String("plan-other"), BackupPlanName: aws.String("other")},
					{BackupPlanId: aws.String("plan-123"), BackupPlanName: aws.String("daily-warehouse")},
				},
			}, true)

			return nil
		},
	}

	planID, err := newTestClient(t, api).EnsurePlan(t.Context(), "daily-warehouse", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "plan-123", planID)
}

func Test_Client_EnsurePlan_BuildsRules(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		createPlanFn: func(in *backup.CreateBackupPlanInput) (*backup.CreateBackupPlanOutput, error) {
			require.Len(t, in.BackupPlan.Rules, 1)
			rule := in.BackupPlan.Rules[0]
			assert.Equal(t, "daily", aws.StringValue(rule.RuleName))
			assert.Equal(t, "analytics-backups", aws.StringValue(rule.TargetBackupVaultName))
			assert.Equal(t, "cron(0 3 * * ? *)", aws.StringValue(rule.ScheduleExpression))
			require.NotNil(t, rule.Lifecycle)
			assert.Equal(t, int64(35), aws.Int64Value(rule.Lifecycle.DeleteAfterDays))

			return &backup.CreateBackupPlanOutput{BackupPlanId: aws.String("plan-456")}, nil
		},
	}

	rules := []PlanRule{{
		RuleName:                "daily",
		VaultName:               "analytics-backups",
		Schedule:                "cron(0 3 * * ? *)",
		StartWindowMinutes:      60,
		CompletionWindowMinutes: 180,
		DeleteAfterDays:         35,
	}}

	planID, err := newTestClient(t, api).EnsurePlan(t.Context(), "daily-warehouse", rules, nil)
	require.NoError(t, err)
	assert.Equal(t, "plan-456", planID)
}

func Test_Client_EnsureSelection_AlreadyExists_ResolvesID(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		createSelectionFn: func(*backup.CreateBackupSelectionInput) (*backup.CreateBackupSelectionOutput, error) {
			return nil, awserr.New(backup.ErrCodeAlreadyExistsException, "exists", nil)
		},
		listSelectionsFn: func(in *backup.ListBackupSelectionsInput, fn func(*backup.ListBackupSelectionsOutput, bool) bool) error {
			assert.Equal(t, "plan-123", aws.StringValue(in.BackupPlanId))
			fn(&backup.ListBackupSelectionsOutput{
				BackupSelectionsList: []*backup.SelectionsListMember{
					{SelectionId: aws.String("sel-789"), SelectionName: aws.String("warehouse")},
				},
			}, true)

			return nil
		},
	}

	selID, err := newTestClient(t, api).EnsureSelection(t.Context(),
		"plan-123", "warehouse", "arn:aws:redshift:eu-west-1:111:cluster:analytics", "arn:aws:iam::111:role/backup")
	require.NoError(t, err)
	assert.Equal(t, "sel-789", selID)
}

func Test_Client_StartBackupJob_SetsIdempotencyToken(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		startBackupFn: func(in *backup.StartBackupJobInput) (*backup.StartBackupJobOutput, error) {
			assert.Equal(t, "token-1", aws.StringValue(in.IdempotencyToken))
			assert.Equal(t, "analytics-backups", aws.StringValue(in.BackupVaultName))

			return &backup.StartBackupJobOutput{BackupJobId: aws.String("job-1")}, nil
		},
	}

	job, err := newTestClient(t, api).StartBackupJob(t.Context(),
		"analytics-backups", "arn:aws:redshift:eu-west-1:111:cluster:analytics", "arn:aws:iam::111:role/backup")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.JobID)
	assert.Equal(t, BackupJobStateCreated, job.State)
}

func Test_Client_DescribeBackupJob_CarriesRecoveryPoint(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		describeBackupFn: func(in *backup.DescribeBackupJobInput) (*backup.DescribeBackupJobOutput, error) {
			assert.Equal(t, "job-1", aws.StringValue(in.BackupJobId))

			return &backup.DescribeBackupJobOutput{
				BackupJobId:      aws.String("job-1"),
				State:            aws.String(BackupJobStateCompleted),
				RecoveryPointArn: aws.String("arn:aws:backup:eu-west-1:111:recovery-point:abc"),
			}, nil
		},
	}

	job, err := newTestClient(t, api).DescribeBackupJob(t.Context(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, BackupJobStateCompleted, job.State)
	assert.Equal(t, "arn:aws:backup:eu-west-1:111:recovery-point:abc", job.RecoveryPointARN)
}

func Test_Client_StartRestoreJob_PassesMetadata(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		startRestoreFn: func(in *backup.StartRestoreJobInput) (*backup.StartRestoreJobOutput, error) {
			assert.Equal(t, "analytics-restored", aws.StringValue(in.Metadata["ClusterIdentifier"]))
			assert.Equal(t, "token-1", aws.StringValue(in.IdempotencyToken))

			return &backup.StartRestoreJobOutput{RestoreJobId: aws.String("restore-1")}, nil
		},
	}

	job, err := newTestClient(t, api).StartRestoreJob(t.Context(),
		"arn:aws:backup:eu-west-1:111:recovery-point:abc", "arn:aws:iam::111:role/backup",
		map[string]string{"ClusterIdentifier": "analytics-restored"})
	require.NoError(t, err)
	assert.Equal(t, "restore-1", job.JobID)
	assert.Equal(t, RestoreJobStatusPending, job.Status)
}

func Test_Client_ListRecoveryPoints(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		listPointsFn: func(in *backup.ListRecoveryPointsByBackupVaultInput, fn func(*backup.ListRecoveryPointsByBackupVaultOutput, bool) bool) error {
			assert.Equal(t, "analytics-backups", aws.StringValue(in.BackupVaultName))
			fn(&backup.ListRecoveryPointsByBackupVaultOutput{
				RecoveryPoints: []*backup.RecoveryPointByBackupVault{
					{
						RecoveryPointArn: aws.String("arn:rp:1"),
						ResourceArn:      aws.String("arn:cluster:1"),
						Status:           aws.String("COMPLETED"),
					},
				},
			}, true)

			return nil
		},
	}

	points, err := newTestClient(t, api).ListRecoveryPoints(t.Context(), "analytics-backups")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "arn:rp:1", points[0].ARN)
}

func Test_Client_StartBackupJob_Error(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		startBackupFn: func(*backup.StartBackupJobInput) (*backup.StartBackupJobOutput, error) {
			return nil, errors.New("throttled")
		},
	}

	_, err := newTestClient(t, api).StartBackupJob(t.Context(), "v", "r", "role")
	require.ErrorContains(t, err, "failed to start backup job")
}
