// Package redshift provides the Redshift control-plane bindings used by the
// snapshot backup flows: manual snapshot lifecycle, cross-account snapshot
// sharing and cluster restore.
package redshift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/redshift"
	"github.com/aws/aws-sdk-go/service/redshift/redshiftiface"

	"github.com/aca-platform/redshift-backups-framework/internal/pointer"
	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

// Snapshot is the subset of a Redshift snapshot the framework tracks.
type Snapshot struct {
	SnapshotID   string    `json:"snapshotId"`
	ClusterID    string    `json:"clusterId"`
	Status       string    `json:"status"`
	OwnerAccount string    `json:"ownerAccount,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Cluster is the subset of a Redshift cluster the framework tracks.
type Cluster struct {
	ClusterID string `json:"clusterId"`
	Status    string `json:"status"`
}

// RestoreInput describes a cluster restore from a (possibly shared) snapshot.
type RestoreInput struct {
	// ClusterID is the identifier of the cluster to create.
	ClusterID string
	// SnapshotID is the snapshot to restore from.
	SnapshotID string
	// OwnerAccount is the account that owns the snapshot when restoring
	// from a snapshot shared by another account. Empty for own snapshots.
	OwnerAccount string
	// SubnetGroup is the cluster subnet group to restore into.
	SubnetGroup string
	// PubliclyAccessible controls whether the restored cluster gets a
	// public endpoint. Restored clusters default to private.
	PubliclyAccessible bool
}

// Client wraps the Redshift API with the operations the backup flows need.
// All calls are issued against the account and region of the session the
// client was constructed from.
type Client struct {
	api  redshiftiface.RedshiftAPI
	lggr logger.Logger
}

// NewClient creates a new Client from an account session.
func NewClient(sess *session.Session, lggr logger.Logger) *Client {
	return NewClientWithAPI(redshift.New(sess), lggr)
}

// NewClientWithAPI creates a new Client with a preconstructed API
// implementation. Intended for tests that stub the control plane.
func NewClientWithAPI(api redshiftiface.RedshiftAPI, lggr logger.Logger) *Client {
	return &Client{api: api, lggr: lggr}
}

// CreateSnapshot creates a manual snapshot of the cluster with the given
// tags. The snapshot is not available until the provider finishes copying
// cluster data; poll with SnapshotStatusQuery.
func (c *Client) CreateSnapshot(ctx context.Context, clusterID, snapshotID string, tags map[string]string) (Snapshot, error) {
	c.lggr.Infow("Creating manual snapshot", "cluster", clusterID, "snapshot", snapshotID)

	input := &redshift.CreateClusterSnapshotInput{
		ClusterIdentifier:  aws.String(clusterID),
		SnapshotIdentifier: aws.String(snapshotID),
		Tags:               toTags(tags),
	}

	out, err := c.api.CreateClusterSnapshotWithContext(ctx, input)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to create snapshot %s of cluster %s: %w", snapshotID, clusterID, err)
	}

	return fromSDKSnapshot(out.Snapshot), nil
}

// DescribeSnapshot returns the current state of a snapshot.
func (c *Client) DescribeSnapshot(ctx context.Context, snapshotID string) (Snapshot, error) {
	out, err := c.api.DescribeClusterSnapshotsWithContext(ctx, &redshift.DescribeClusterSnapshotsInput{
		SnapshotIdentifier: aws.String(snapshotID),
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to describe snapshot %s: %w", snapshotID, err)
	}
	if len(out.Snapshots) == 0 {
		return Snapshot{}, awserr.New(redshift.ErrCodeClusterSnapshotNotFoundFault,
			fmt.Sprintf("snapshot %s not found", snapshotID), nil)
	}

	return fromSDKSnapshot(out.Snapshots[0]), nil
}

// AuthorizeSnapshotAccess grants the given account permission to restore
// from the snapshot. Granting access that already exists is not an error.
func (c *Client) AuthorizeSnapshotAccess(ctx context.Context, snapshotID, accountID string) error {
	c.lggr.Infow("Authorizing snapshot access", "snapshot", snapshotID, "account", accountID)

	_, err := c.api.AuthorizeSnapshotAccessWithContext(ctx, &redshift.AuthorizeSnapshotAccessInput{
		SnapshotIdentifier:       aws.String(snapshotID),
		AccountWithRestoreAccess: aws.String(accountID),
	})
	if err != nil {
		if hasErrCode(err, redshift.ErrCodeAuthorizationAlreadyExistsFault) {
			c.lggr.Debugw("Snapshot access already authorized", "snapshot", snapshotID, "account", accountID)
			return nil
		}

		return fmt.Errorf("failed to authorize account %s on snapshot %s: %w", accountID, snapshotID, err)
	}

	return nil
}

// RevokeSnapshotAccess removes the given account's permission to restore
// from the snapshot.
func (c *Client) RevokeSnapshotAccess(ctx context.Context, snapshotID, accountID string) error {
	c.lggr.Infow("Revoking snapshot access", "snapshot", snapshotID, "account", accountID)

	_, err := c.api.RevokeSnapshotAccessWithContext(ctx, &redshift.RevokeSnapshotAccessInput{
		SnapshotIdentifier:       aws.String(snapshotID),
		AccountWithRestoreAccess: aws.String(accountID),
	})
	if err != nil {
		return fmt.Errorf("failed to revoke account %s on snapshot %s: %w", accountID, snapshotID, err)
	}

	return nil
}

// ListSharedSnapshots lists the manual snapshots shared with this account by
// the given owner account.
func (c *Client) ListSharedSnapshots(ctx context.Context, ownerAccount string) ([]Snapshot, error) {
	out, err := c.api.DescribeClusterSnapshotsWithContext(ctx, &redshift.DescribeClusterSnapshotsInput{
		SnapshotType: aws.String("manual"),
		OwnerAccount: aws.String(ownerAccount),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots shared by account %s: %w", ownerAccount, err)
	}

	return fromSDKSnapshots(out.Snapshots), nil
}

// ListClusterSnapshots lists the manual snapshots of the given cluster owned
// by this account.
func (c *Client) ListClusterSnapshots(ctx context.Context, clusterID string) ([]Snapshot, error) {
	out, err := c.api.DescribeClusterSnapshotsWithContext(ctx, &redshift.DescribeClusterSnapshotsInput{
		ClusterIdentifier: aws.String(clusterID),
		SnapshotType:      aws.String("manual"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots of cluster %s: %w", clusterID, err)
	}

	return fromSDKSnapshots(out.Snapshots), nil
}

// CopySnapshot copies a snapshot shared by another account into this
// account. The source snapshot is addressed by its owner-qualified
// identifier "<ownerAccount>:<snapshotID>".
func (c *Client) CopySnapshot(ctx context.Context, ownerAccount, sourceSnapshotID, sourceClusterID, targetSnapshotID string) (Snapshot, error) {
	qualified := fmt.Sprintf("%s:%s", ownerAccount, sourceSnapshotID)
	c.lggr.Infow("Copying shared snapshot", "source", qualified, "target", targetSnapshotID)

	out, err := c.api.CopyClusterSnapshotWithContext(ctx, &redshift.CopyClusterSnapshotInput{
		SourceSnapshotIdentifier:        aws.String(qualified),
		SourceSnapshotClusterIdentifier: aws.String(sourceClusterID),
		TargetSnapshotIdentifier:        aws.String(targetSnapshotID),
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to copy snapshot %s to %s: %w", qualified, targetSnapshotID, err)
	}

	return fromSDKSnapshot(out.Snapshot), nil
}

// RestoreFromSnapshot starts a cluster restore from a snapshot. The restore
// is asynchronous; poll the new cluster with ClusterStatusQuery.
func (c *Client) RestoreFromSnapshot(ctx context.Context, in RestoreInput) (Cluster, error) {
	c.lggr.Infow("Restoring cluster from snapshot",
		"cluster", in.ClusterID, "snapshot", in.SnapshotID, "ownerAccount", in.OwnerAccount)

	input := &redshift.RestoreFromClusterSnapshotInput{
		ClusterIdentifier:  aws.String(in.ClusterID),
		SnapshotIdentifier: aws.String(in.SnapshotID),
		PubliclyAccessible: aws.Bool(in.PubliclyAccessible),
	}
	if in.OwnerAccount != "" {
		input.OwnerAccount = aws.String(in.OwnerAccount)
	}
	if in.SubnetGroup != "" {
		input.ClusterSubnetGroupName = aws.String(in.SubnetGroup)
	}

	out, err := c.api.RestoreFromClusterSnapshotWithContext(ctx, input)
	if err != nil {
		return Cluster{}, fmt.Errorf("failed to restore cluster %s from snapshot %s: %w", in.ClusterID, in.SnapshotID, err)
	}

	return fromSDKCluster(out.Cluster), nil
}

// DeleteSnapshot deletes a manual snapshot.
func (c *Client) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	c.lggr.Infow("Deleting snapshot", "snapshot", snapshotID)

	_, err := c.api.DeleteClusterSnapshotWithContext(ctx, &redshift.DeleteClusterSnapshotInput{
		SnapshotIdentifier: aws.String(snapshotID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", snapshotID, err)
	}

	return nil
}

// DescribeCluster returns the current state of a cluster.
func (c *Client) DescribeCluster(ctx context.Context, clusterID string) (Cluster, error) {
	out, err := c.api.DescribeClustersWithContext(ctx, &redshift.DescribeClustersInput{
		ClusterIdentifier: aws.String(clusterID),
	})
	if err != nil {
		return Cluster{}, fmt.Errorf("failed to describe cluster %s: %w", clusterID, err)
	}
	if len(out.Clusters) == 0 {
		return Cluster{}, awserr.New(redshift.ErrCodeClusterNotFoundFault,
			fmt.Sprintf("cluster %s not found", clusterID), nil)
	}

	return fromSDKCluster(out.Clusters[0]), nil
}

// IsNotFound reports whether err is a snapshot- or cluster-not-found error.
// Not-found errors while polling indicate a permanently unresolvable handle.
func IsNotFound(err error) bool {
	return hasErrCode(err, redshift.ErrCodeClusterSnapshotNotFoundFault) ||
		hasErrCode(err, redshift.ErrCodeClusterNotFoundFault)
}

func hasErrCode(err error, code string) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == code
	}

	return false
}

func fromSDKSnapshot(s *redshift.Snapshot) Snapshot {
	if s == nil {
		return Snapshot{}
	}

	return Snapshot{
		SnapshotID:   aws.StringValue(s.SnapshotIdentifier),
		ClusterID:    aws.StringValue(s.ClusterIdentifier),
		Status:       aws.StringValue(s.Status),
		OwnerAccount: aws.StringValue(s.OwnerAccount),
		CreatedAt:    aws.TimeValue(s.SnapshotCreateTime),
	}
}

func fromSDKSnapshots(in []*redshift.Snapshot) []Snapshot {
	out := make([]Snapshot, 0, len(in))
	for _, s := range in {
		out = append(out, fromSDKSnapshot(s))
	}

	return out
}

func fromSDKCluster(c *redshift.Cluster) Cluster {
	if c == nil {
		return Cluster{}
	}

	return Cluster{
		ClusterID: aws.StringValue(c.ClusterIdentifier),
		Status:    aws.StringValue(c.ClusterStatus),
	}
}

func toTags(tags map[string]string) []*redshift.Tag {
	if len(tags) == 0 {
		return nil
	}

	out := make([]*redshift.Tag, 0, len(tags))
	for k, v := range tags {
		out = append(out, &redshift.Tag{Key: pointer.To(k), Value: pointer.To(v)})
	}

	return out
}
