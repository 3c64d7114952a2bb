package backup

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	awsredshift "github.com/aws/aws-sdk-go/service/redshift"
	"github.com/aws/aws-sdk-go/service/redshift/redshiftiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aca-platform/redshift-backups-framework/cloud/redshift"
	"github.com/aca-platform/redshift-backups-framework/operations"
	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

type stubClusterAPI struct {
	redshiftiface.RedshiftAPI

	restoreFn  func(*awsredshift.RestoreFromClusterSnapshotInput) (*awsredshift.RestoreFromClusterSnapshotOutput, error)
	describeFn func(*awsredshift.DescribeClustersInput) (*awsredshift.DescribeClustersOutput, error)
}

func (s *stubClusterAPI) RestoreFromClusterSnapshotWithContext(_ aws.Context, in *awsredshift.RestoreFromClusterSnapshotInput, _ ...request.Option) (*awsredshift.RestoreFromClusterSnapshotOutput, error) {
	return s.restoreFn(in)
}

func (s *stubClusterAPI) DescribeClustersWithContext(_ aws.Context, in *awsredshift.DescribeClustersInput, _ ...request.Option) (*awsredshift.DescribeClustersOutput, error) {
	return s.describeFn(in)
}

func clusterOut(id, status string) *awsredshift.DescribeClustersOutput {
	return &awsredshift.DescribeClustersOutput{
		Clusters: []*awsredshift.Cluster{{
			ClusterIdentifier: aws.String(id),
			ClusterStatus:     aws.String(status),
		}},
	}
}

func Test_RestoreSequence_Completes(t *testing.T) {
	t.Parallel()

	describes := 0
	api := &stubClusterAPI{
		restoreFn: func(in *awsredshift.RestoreFromClusterSnapshotInput) (*awsredshift.RestoreFromClusterSnapshotOutput, error) {
			assert.Equal(t, "analytics-restored", aws.StringValue(in.ClusterIdentifier))
			assert.Equal(t, "111111111111", aws.StringValue(in.OwnerAccount))
			assert.Equal(t, "restore-subnets", aws.StringValue(in.ClusterSubnetGroupName))
			assert.False(t, aws.BoolValue(in.PubliclyAccessible))

			return &awsredshift.RestoreFromClusterSnapshotOutput{
				Cluster: &awsredshift.Cluster{
					ClusterIdentifier: aws.String("analytics-restored"),
					ClusterStatus:     aws.String("creating"),
				},
			}, nil
		},
		describeFn: func(in *awsredshift.DescribeClustersInput) (*awsredshift.DescribeClustersOutput, error) {
			describes++
			if describes < 3 {
				return clusterOut(aws.StringValue(in.ClusterIdentifier), "restoring"), nil
			}

			return clusterOut(aws.StringValue(in.ClusterIdentifier), redshift.ClusterStatusAvailable), nil
		},
	}

	deps := RestoreFlowDeps{
		Target:         redshift.NewClientWithAPI(api, logger.Test(t)),
		TrackerOptions: []operations.TrackerOption{fakeTracker()},
	}

	report, err := operations.ExecuteSequence(newTestBundle(t), RestoreSequence, deps, RestoreClusterInput{
		ClusterID:    "analytics-restored",
		SnapshotID:   "nightly-analytics-20250801-030000",
		OwnerAccount: "111111111111",
		SubnetGroup:  "restore-subnets",
	})
	require.NoError(t, err)

	out := report.Output
	assert.Equal(t, "analytics-restored", out.ClusterID)
	assert.Equal(t, redshift.ClusterStatusAvailable, out.Status)
	assert.False(t, out.InProgress)
	assert.Equal(t, 3, describes)
}

func Test_RestoreSequence_TimeoutIsNotAnError(t *testing.T) {
	t.Parallel()

	api := &stubClusterAPI{
		restoreFn: func(in *awsredshift.RestoreFromClusterSnapshotInput) (*awsredshift.RestoreFromClusterSnapshotOutput, error) {
			return &awsredshift.RestoreFromClusterSnapshotOutput{
				Cluster: &awsredshift.Cluster{
					ClusterIdentifier: in.ClusterIdentifier,
					ClusterStatus:     aws.String("creating"),
				},
			}, nil
		},
		describeFn: func(in *awsredshift.DescribeClustersInput) (*awsredshift.DescribeClustersOutput, error) {
			return clusterOut(aws.StringValue(in.ClusterIdentifier), "restoring"), nil
		},
	}

	policy := redshift.RestorePollPolicy()
	policy.MaxWait = 2 * policy.Interval

	deps := RestoreFlowDeps{
		Target:         redshift.NewClientWithAPI(api, logger.Test(t)),
		ClusterPoll:    &policy,
		TrackerOptions: []operations.TrackerOption{fakeTracker()},
	}

	report, err := operations.ExecuteSequence(newTestBundle(t), RestoreSequence, deps, RestoreClusterInput{
		ClusterID:  "analytics-restored",
		SnapshotID: "nightly-analytics-20250801-030000",
	})
	require.NoError(t, err)

	assert.True(t, report.Output.InProgress)
	assert.Equal(t, "restoring", report.Output.Status)
}
