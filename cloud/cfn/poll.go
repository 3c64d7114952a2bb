package cfn

import (
	"context"
	"strings"
	"time"

	"github.com/aca-platform/redshift-backups-framework/operations"
)

// StackPollPolicy is the polling cadence for stack create and update
// operations.
func StackPollPolicy() operations.PollPolicy {
	return operations.PollPolicy{
		Interval: 15 * time.Second,
		MaxWait:  30 * time.Minute,
		Classify: ClassifyStackStatus,
	}
}

// ClassifyStackStatus maps a CloudFormation stack status onto a status
// class. Rollback states count as failures even though CloudFormation
// reports them as *_COMPLETE.
func ClassifyStackStatus(status string) operations.StatusClass {
	switch status {
	case "CREATE_COMPLETE", "UPDATE_COMPLETE":
		return operations.ClassSucceeded
	}
	if strings.Contains(status, "ROLLBACK") || strings.HasSuffix(status, "_FAILED") {
		return operations.ClassFailed
	}

	return operations.ClassPending
}

// StackStatusQuery returns a status query reading the status of a stack.
// A missing stack is permanent: a stack under deployment never disappears.
func (c *Client) StackStatusQuery(ctx context.Context) operations.StatusQueryFunc[Stack] {
	return func(name string) (operations.StatusResult[Stack], error) {
		stack, err := c.DescribeStack(ctx, name)
		if err != nil {
			if IsNotFound(err) {
				return operations.StatusResult[Stack]{}, operations.NewPermanentPollError(err)
			}

			return operations.StatusResult[Stack]{}, err
		}

		return operations.StatusResult[Stack]{Status: stack.Status, Output: stack}, nil
	}
}
