package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aca-platform/redshift-backups-framework/cloud/cfn"
	"github.com/aca-platform/redshift-backups-framework/operations"
)

// deployReport is the output of the deploy command.
type deployReport struct {
	StackName string            `json:"stackName"`
	StackID   string            `json:"stackId,omitempty"`
	Changed   bool              `json:"changed"`
	Status    string            `json:"status"`
	Outputs   map[string]string `json:"outputs,omitempty"`
}

// NewDeployCmd creates the deploy command provisioning infrastructure stacks.
func NewDeployCmd(cfg Config) *cobra.Command {
	var (
		template  string
		stackName string
		account   string
		params    map[string]string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy an infrastructure stack into an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDeploy(cmd, cfg, template, stackName, account, params)
		},
	}

	addConfigFlag(cmd)
	cmd.Flags().StringVar(&template, "template", "", "Path to the stack template file")
	cmd.Flags().StringVar(&stackName, "stack-name", "", "Stack name, defaults to <resource_prefix>-stack")
	cmd.Flags().StringVar(&account, "account", "source", "Account to deploy into, source or target")
	cmd.Flags().StringToStringVar(&params, "param", nil, "Stack parameters as key=value pairs")

	if err := cmd.MarkFlagRequired("template"); err != nil {
		panic(err)
	}

	return cmd
}

// runDeploy executes the deploy command logic.
func runDeploy(cmd *cobra.Command, cfg Config, template, stackName, account string, params map[string]string) error {
	rt, err := loadRuntime(cmd, cfg)
	if err != nil {
		return err
	}

	var client *cfn.Client
	switch account {
	case "source":
		client = rt.clients.SourceCFN
	case "target":
		client = rt.clients.TargetCFN
	default:
		return fmt.Errorf("unknown account %q, expected source or target", account)
	}

	if stackName == "" {
		stackName = rt.cfg.ResourcePrefix + "-stack"
	}

	ctx := cmd.Context()

	result, err := client.DeployFile(ctx, stackName, template, params)
	if err != nil {
		return fmt.Errorf("stack deploy failed: %w", err)
	}

	outcome := operations.AwaitTerminal(
		rt.env.OperationsBundle, stackName, client.StackStatusQuery(ctx), cfn.StackPollPolicy(),
	)
	if outcome.Failed() {
		return fmt.Errorf("stack %s deploy failed: %w", stackName, outcome.Err)
	}

	return printJSON(cmd, deployReport{
		StackName: stackName,
		StackID:   result.StackID,
		Changed:   result.Changed,
		Status:    outcome.Status,
		Outputs:   outcome.Output.Outputs,
	})
}
