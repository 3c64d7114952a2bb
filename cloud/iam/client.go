// Package iam provisions the service role the AWS Backup control plane
// assumes when it runs backup and restore jobs.
package iam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/aws/aws-sdk-go/service/iam/iamiface"

	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

// BackupServicePolicyARN is the AWS managed policy granting the backup
// service the permissions it needs to create recovery points.
const BackupServicePolicyARN = "arn:aws:iam::aws:policy/service-role/AWSBackupServiceRolePolicyForBackup"

// BackupRestorePolicyARN is the AWS managed policy for restores.
const BackupRestorePolicyARN = "arn:aws:iam::aws:policy/service-role/AWSBackupServiceRolePolicyForRestores"

// backupTrustPolicy lets the AWS Backup service assume the role.
const backupTrustPolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {"Service": "backup.amazonaws.com"},
      "Action": "sts:AssumeRole"
    }
  ]
}`

// rolePropagationDelay gives IAM time to propagate a freshly created role
// before it is referenced by a backup selection or job submission.
const rolePropagationDelay = 10 * time.Second

// Role is the provisioned service role.
type Role struct {
	Name string `json:"name"`
	ARN  string `json:"arn"`
}

// Client wraps the IAM API with the role provisioning the managed backup
// flows need.
type Client struct {
	api  iamiface.IAMAPI
	lggr logger.Logger

	// sleep is overridable in tests to skip the propagation delay.
	sleep func(time.Duration)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithSleep overrides the propagation wait. Intended for tests.
func WithSleep(sleep func(time.Duration)) ClientOption {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// NewClient creates a new Client from an account session.
func NewClient(sess *session.Session, lggr logger.Logger, opts ...ClientOption) *Client {
	return NewClientWithAPI(iam.New(sess), lggr, opts...)
}

// NewClientWithAPI creates a new Client with a preconstructed API
// implementation. Intended for tests.
func NewClientWithAPI(api iamiface.IAMAPI, lggr logger.Logger, opts ...ClientOption) *Client {
	c := &Client{api: api, lggr: lggr, sleep: time.Sleep}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// EnsureBackupServiceRole creates the role the backup service assumes, with
// the managed backup and restore policies attached. An already existing role
// is reused. Attaching a policy that is already attached is a no-op on the
// IAM side, so the attachment step is unconditionally repeated.
func (c *Client) EnsureBackupServiceRole(ctx context.Context, name string) (Role, error) {
	c.lggr.Infow("Ensuring backup service role", "role", name)

	created := true
	out, err := c.api.CreateRoleWithContext(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(name),
		AssumeRolePolicyDocument: aws.String(backupTrustPolicy),
		Description:              aws.String("Service role assumed by AWS Backup for warehouse backup and restore jobs"),
	})

	var roleARN string
	switch {
	case err == nil:
		roleARN = aws.StringValue(out.Role.Arn)
	case hasErrCode(err, iam.ErrCodeEntityAlreadyExistsException):
		created = false
		c.lggr.Debugw("Backup service role already exists", "role", name)

		get, gerr := c.api.GetRoleWithContext(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
		if gerr != nil {
			return Role{}, fmt.Errorf("failed to get existing role %s: %w", name, gerr)
		}
		roleARN = aws.StringValue(get.Role.Arn)
	default:
		return Role{}, fmt.Errorf("failed to create role %s: %w", name, err)
	}

	for _, policyARN := range []string{BackupServicePolicyARN, BackupRestorePolicyARN} {
		_, err = c.api.AttachRolePolicyWithContext(ctx, &iam.AttachRolePolicyInput{
			RoleName:  aws.String(name),
			PolicyArn: aws.String(policyARN),
		})
		if err != nil {
			return Role{}, fmt.Errorf("failed to attach policy %s to role %s: %w", policyARN, name, err)
		}
	}

	if created {
		c.lggr.Infow("Waiting for role propagation", "role", name, "delay", rolePropagationDelay)
		c.sleep(rolePropagationDelay)
	}

	return Role{Name: name, ARN: roleARN}, nil
}

// GetRole looks up an existing role by name.
func (c *Client) GetRole(ctx context.Context, name string) (Role, error) {
	out, err := c.api.GetRoleWithContext(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
	if err != nil {
		return Role{}, fmt.Errorf("failed to get role %s: %w", name, err)
	}

	return Role{Name: name, ARN: aws.StringValue(out.Role.Arn)}, nil
}

// IsNotFound reports whether err is a no-such-entity error.
func IsNotFound(err error) bool {
	return hasErrCode(err, iam.ErrCodeNoSuchEntityException)
}

func hasErrCode(err error, code string) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == code
	}

	return false
}
