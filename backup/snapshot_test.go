package backup

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	awsredshift "github.com/aws/aws-sdk-go/service/redshift"
	"github.com/aws/aws-sdk-go/service/redshift/redshiftiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aca-platform/redshift-backups-framework/cloud/redshift"
	"github.com/aca-platform/redshift-backups-framework/datastore"
	"github.com/aca-platform/redshift-backups-framework/operations"
	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

// stubRedshiftAPI fakes the warehouse control plane for flow tests.
type stubRedshiftAPI struct {
	redshiftiface.RedshiftAPI

	createFn    func(*awsredshift.CreateClusterSnapshotInput) (*awsredshift.CreateClusterSnapshotOutput, error)
	describeFn  func(*awsredshift.DescribeClusterSnapshotsInput) (*awsredshift.DescribeClusterSnapshotsOutput, error)
	authorizeFn func(*awsredshift.AuthorizeSnapshotAccessInput) (*awsredshift.AuthorizeSnapshotAccessOutput, error)
	copyFn      func(*awsredshift.CopyClusterSnapshotInput) (*awsredshift.CopyClusterSnapshotOutput, error)
	deleteFn    func(*awsredshift.DeleteClusterSnapshotInput) (*awsredshift.DeleteClusterSnapshotOutput, error)
}

func (s *stubRedshiftAPI) CreateClusterSnapshotWithContext(_ aws.Context, in *awsredshift.CreateClusterSnapshotInput, _ ...request.Option) (*awsredshift.CreateClusterSnapshotOutput, error) {
	return s.createFn(in)
}

func (s *stubRedshiftAPI) DescribeClusterSnapshotsWithContext(_ aws.Context, in *awsredshift.DescribeClusterSnapshotsInput, _ ...request.Option) (*awsredshift.DescribeClusterSnapshotsOutput, error) {
	return s.describeFn(in)
}

func (s *stubRedshiftAPI) AuthorizeSnapshotAccessWithContext(_ aws.Context, in *awsredshift.AuthorizeSnapshotAccessInput, _ ...request.Option) (*awsredshift.AuthorizeSnapshotAccessOutput, error) {
	return s.authorizeFn(in)
}

func (s *stubRedshiftAPI) CopyClusterSnapshotWithContext(_ aws.Context, in *awsredshift.CopyClusterSnapshotInput, _ ...request.Option) (*awsredshift.CopyClusterSnapshotOutput, error) {
	return s.copyFn(in)
}

func (s *stubRedshiftAPI) DeleteClusterSnapshotWithContext(_ aws.Context, in *awsredshift.DeleteClusterSnapshotInput, _ ...request.Option) (*awsredshift.DeleteClusterSnapshotOutput, error) {
	return s.deleteFn(in)
}

func snapshotOut(id, cluster, status string, created time.Time) *awsredshift.Snapshot {
	return &awsredshift.Snapshot{
		SnapshotIdentifier: aws.String(id),
		ClusterIdentifier:  aws.String(cluster),
		Status:             aws.String(status),
		SnapshotCreateTime: aws.Time(created),
	}
}

func newTestBundle(t *testing.T) operations.Bundle {
	t.Helper()

	return operations.NewBundle(
		func() context.Context { return t.Context() },
		logger.Test(t),
		operations.NewMemoryReporter(),
	)
}

// fakeTracker advances a synthetic clock instead of sleeping.
func fakeTracker() operations.TrackerOption {
	now := time.Date(2025, 8, 1, 3, 0, 0, 0, time.UTC)

	return operations.WithClock(
		func() time.Time { return now },
		func(d time.Duration) { now = now.Add(d) },
	)
}

func Test_CrossAccountSnapshotSequence_Completes(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 8, 1, 3, 0, 0, 0, time.UTC)

	var authorized, copied bool
	sourceAPI := &stubRedshiftAPI{
		createFn: func(in *awsredshift.CreateClusterSnapshotInput) (*awsredshift.CreateClusterSnapshotOutput, error) {
			return &awsredshift.CreateClusterSnapshotOutput{
				Snapshot: snapshotOut(aws.StringValue(in.SnapshotIdentifier), aws.StringValue(in.ClusterIdentifier), "creating", created),
			}, nil
		},
		describeFn: func(in *awsredshift.DescribeClusterSnapshotsInput) (*awsredshift.DescribeClusterSnapshotsOutput, error) {
			return &awsredshift.DescribeClusterSnapshotsOutput{
				Snapshots: []*awsredshift.Snapshot{
					snapshotOut(aws.StringValue(in.SnapshotIdentifier), "analytics", "available", created),
				},
			}, nil
		},
		authorizeFn: func(in *awsredshift.AuthorizeSnapshotAccessInput) (*awsredshift.AuthorizeSnapshotAccessOutput, error) {
			authorized = true
			assert.Equal(t, "222222222222", aws.StringValue(in.AccountWithRestoreAccess))

			return &awsredshift.AuthorizeSnapshotAccessOutput{}, nil
		},
	}
	targetAPI := &stubRedshiftAPI{
		copyFn: func(in *awsredshift.CopyClusterSnapshotInput) (*awsredshift.CopyClusterSnapshotOutput, error) {
			copied = true
			assert.Equal(t, "111111111111:nightly-analytics-20250801-030000", aws.StringValue(in.SourceSnapshotIdentifier))

			return &awsredshift.CopyClusterSnapshotOutput{
				Snapshot: snapshotOut(aws.StringValue(in.TargetSnapshotIdentifier), "analytics", "creating", created),
			}, nil
		},
		describeFn: func(in *awsredshift.DescribeClusterSnapshotsInput) (*awsredshift.DescribeClusterSnapshotsOutput, error) {
			return &awsredshift.DescribeClusterSnapshotsOutput{
				Snapshots: []*awsredshift.Snapshot{
					snapshotOut(aws.StringValue(in.SnapshotIdentifier), "analytics", "available", created),
				},
			}, nil
		},
	}

	store := datastore.NewMemorySnapshotRefStore()
	deps := SnapshotFlowDeps{
		Source:         redshift.NewClientWithAPI(sourceAPI, logger.Test(t)),
		Target:         redshift.NewClientWithAPI(targetAPI, logger.Test(t)),
		Store:          store,
		TrackerOptions: []operations.TrackerOption{fakeTracker()},
	}

	snapshotID := SnapshotName("nightly", "analytics", created)
	report, err := operations.ExecuteSequence(newTestBundle(t), CrossAccountSnapshotSequence, deps, CrossAccountSnapshotInput{
		ClusterID:     "analytics",
		SnapshotID:    snapshotID,
		SourceAccount: "111111111111",
		Region:        "eu-west-1",
		TargetAccount: "222222222222",
		CopyToTarget:  true,
	})
	require.NoError(t, err)

	out := report.Output
	assert.Equal(t, snapshotID, out.SnapshotID)
	assert.Equal(t, "available", out.Status)
	assert.False(t, out.InProgress)
	assert.Equal(t, snapshotID+"-copy", out.CopySnapshotID)
	assert.True(t, authorized)
	assert.True(t, copied)

	// Both the original and the copy land in the catalog.
	refs, err := store.Fetch()
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func Test_CrossAccountSnapshotSequence_TimeoutIsNotAnError(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 8, 1, 3, 0, 0, 0, time.UTC)

	sourceAPI := &stubRedshiftAPI{
		createFn: func(in *awsredshift.CreateClusterSnapshotInput) (*awsredshift.CreateClusterSnapshotOutput, error) {
			return &awsredshift.CreateClusterSnapshotOutput{
				Snapshot: snapshotOut(aws.StringValue(in.SnapshotIdentifier), "analytics", "creating", created),
			}, nil
		},
		describeFn: func(in *awsredshift.DescribeClusterSnapshotsInput) (*awsredshift.DescribeClusterSnapshotsOutput, error) {
			return &awsredshift.DescribeClusterSnapshotsOutput{
				Snapshots: []*awsredshift.Snapshot{
					snapshotOut(aws.StringValue(in.SnapshotIdentifier), "analytics", "creating", created),
				},
			}, nil
		},
		authorizeFn: func(*awsredshift.AuthorizeSnapshotAccessInput) (*awsredshift.AuthorizeSnapshotAccessOutput, error) {
			t.Fatal("must not authorize access while the snapshot is still pending")

			return nil, nil
		},
	}

	policy := redshift.SnapshotPollPolicy()
	policy.MaxWait = time.Minute

	deps := SnapshotFlowDeps{
		Source:         redshift.NewClientWithAPI(sourceAPI, logger.Test(t)),
		SnapshotPoll:   &policy,
		TrackerOptions: []operations.TrackerOption{fakeTracker()},
	}

	report, err := operations.ExecuteSequence(newTestBundle(t), CrossAccountSnapshotSequence, deps, CrossAccountSnapshotInput{
		ClusterID:     "analytics",
		SnapshotID:    "nightly-analytics-20250801-030000",
		SourceAccount: "111111111111",
		Region:        "eu-west-1",
		TargetAccount: "222222222222",
	})
	require.NoError(t, err)

	assert.True(t, report.Output.InProgress)
	assert.Equal(t, StatusSnapshotInProgress, report.Output.Status)
	assert.Empty(t, report.Output.CopySnapshotID)
}

func Test_SnapshotName(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 8, 1, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "nightly-analytics-20250801-030405", SnapshotName("Nightly", "Analytics", now))
	assert.Equal(t, "nightly-analytics-", SnapshotNamePrefix("nightly", "analytics"))
	assert.Equal(t, "snap-1-copy", CopyName("snap-1"))
}
