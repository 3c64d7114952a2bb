// Package cfn deploys and inspects the CloudFormation stacks that carry the
// per-account backup infrastructure: vault, warehouse cluster, service role
// and subnet group.
package cfn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudformation"
	"github.com/aws/aws-sdk-go/service/cloudformation/cloudformationiface"

	"github.com/aca-platform/redshift-backups-framework/internal/pointer"
	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

// Well-known output keys exported by the backup infrastructure stacks.
const (
	OutputKeyVaultName       = "BackupVaultName"
	OutputKeyClusterARN      = "ClusterArn"
	OutputKeyBackupRoleARN   = "BackupRoleArn"
	OutputKeySubnetGroupName = "SubnetGroupName"
)

// Stack is the subset of a CloudFormation stack the framework tracks.
type Stack struct {
	Name    string            `json:"name"`
	ID      string            `json:"id"`
	Status  string            `json:"status"`
	Outputs map[string]string `json:"outputs,omitempty"`
}

// Output returns the value of the named stack output.
func (s Stack) Output(key string) (string, error) {
	v, ok := s.Outputs[key]
	if !ok {
		return "", fmt.Errorf("stack %s has no output %s", s.Name, key)
	}

	return v, nil
}

// DeployResult reports whether a deploy changed anything.
type DeployResult struct {
	StackID string `json:"stackId"`
	// Changed is false when the submitted template and parameters matched
	// the deployed stack exactly.
	Changed bool `json:"changed"`
}

// Client wraps the CloudFormation API.
type Client struct {
	api  cloudformationiface.CloudFormationAPI
	lggr logger.Logger
}

// NewClient creates a new Client from an account session.
func NewClient(sess *session.Session, lggr logger.Logger) *Client {
	return NewClientWithAPI(cloudformation.New(sess), lggr)
}

// NewClientWithAPI creates a new Client with a preconstructed API
// implementation. Intended for tests.
func NewClientWithAPI(api cloudformationiface.CloudFormationAPI, lggr logger.Logger) *Client {
	return &Client{api: api, lggr: lggr}
}

// Deploy creates the stack if it does not exist, or updates it with the new
// template otherwise. An update that changes nothing is reported as
// Changed=false and is not an error.
func (c *Client) Deploy(ctx context.Context, name, templateBody string, params map[string]string) (DeployResult, error) {
	c.lggr.Infow("Deploying stack", "stack", name)

	out, err := c.api.CreateStackWithContext(ctx, &cloudformation.CreateStackInput{
		StackName:    aws.String(name),
		TemplateBody: aws.String(templateBody),
		Parameters:   toParameters(params),
		Capabilities: []*string{aws.String(cloudformation.CapabilityCapabilityNamedIam)},
	})
	if err == nil {
		return DeployResult{StackID: aws.StringValue(out.StackId), Changed: true}, nil
	}
	if !hasErrCode(err, cloudformation.ErrCodeAlreadyExistsException) {
		return DeployResult{}, fmt.Errorf("failed to create stack %s: %w", name, err)
	}

	c.lggr.Debugw("Stack exists, updating", "stack", name)

	upd, err := c.api.UpdateStackWithContext(ctx, &cloudformation.UpdateStackInput{
		StackName:    aws.String(name),
		TemplateBody: aws.String(templateBody),
		Parameters:   toParameters(params),
		Capabilities: []*string{aws.String(cloudformation.CapabilityCapabilityNamedIam)},
	})
	if err != nil {
		// The API has no dedicated error code for a no-op update.
		if isNoUpdateError(err) {
			c.lggr.Infow("Stack already up to date", "stack", name)

			return DeployResult{Changed: false}, nil
		}

		return DeployResult{}, fmt.Errorf("failed to update stack %s: %w", name, err)
	}

	return DeployResult{StackID: aws.StringValue(upd.StackId), Changed: true}, nil
}

// DeployFile deploys a stack from a template file on disk.
func (c *Client) DeployFile(ctx context.Context, name, templatePath string, params map[string]string) (DeployResult, error) {
	body, err := os.ReadFile(templatePath)
	if err != nil {
		return DeployResult{}, fmt.Errorf("failed to read template %s: %w", templatePath, err)
	}

	return c.Deploy(ctx, name, string(body), params)
}

// DescribeStack returns the stack with its status and outputs.
func (c *Client) DescribeStack(ctx context.Context, name string) (Stack, error) {
	out, err := c.api.DescribeStacksWithContext(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(name),
	})
	if err != nil {
		return Stack{}, fmt.Errorf("failed to describe stack %s: %w", name, err)
	}
	if len(out.Stacks) == 0 {
		return Stack{}, fmt.Errorf("stack %s not found", name)
	}

	sdkStack := out.Stacks[0]
	stack := Stack{
		Name:    aws.StringValue(sdkStack.StackName),
		ID:      aws.StringValue(sdkStack.StackId),
		Status:  aws.StringValue(sdkStack.StackStatus),
		Outputs: make(map[string]string, len(sdkStack.Outputs)),
	}
	for _, o := range sdkStack.Outputs {
		stack.Outputs[aws.StringValue(o.OutputKey)] = aws.StringValue(o.OutputValue)
	}

	return stack, nil
}

// IsNotFound reports whether err signals a missing stack. DescribeStacks
// reports missing stacks as a ValidationError rather than a dedicated code.
func IsNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == "ValidationError" && strings.Contains(aerr.Message(), "does not exist")
	}

	return false
}

func isNoUpdateError(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return strings.Contains(aerr.Message(), "No updates are to be performed")
	}

	return false
}

func hasErrCode(err error, code string) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == code
	}

	return false
}

func toParameters(params map[string]string) []*cloudformation.Parameter {
	if len(params) == 0 {
		return nil
	}

	out := make([]*cloudformation.Parameter, 0, len(params))
	for k, v := range params {
		out = append(out, &cloudformation.Parameter{
			ParameterKey:   pointer.To(k),
			ParameterValue: pointer.To(v),
		})
	}

	return out
}
