package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	fconfig "github.com/aca-platform/redshift-backups-framework/engine/config"
)

// NewConfigCmd creates the config command group for inspecting the resolved
// configuration.
func NewConfigCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	addConfigFlag(cmd)
	cmd.AddCommand(newConfigShowCmd(cfg))
	cmd.AddCommand(newConfigValidateCmd(cfg))

	return cmd
}

// newConfigShowCmd creates the "show" subcommand printing the resolved
// configuration after file and environment merging.
func newConfigShowCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, cfg)
		},
	}
}

// runConfigShow executes the config show command logic.
func runConfigShow(cmd *cobra.Command, cfg Config) error {
	deps := cfg.deps()

	filePath, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return err
	}

	resolved, err := deps.ConfigLoader(filePath)
	if err != nil {
		return err
	}

	out, err := fconfig.EffectiveYAML(resolved)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	cmd.Println(string(out))

	return nil
}

// newConfigValidateCmd creates the "validate" subcommand checking the
// resolved configuration.
func newConfigValidateCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the resolved configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, cfg)
		},
	}
}

// runConfigValidate executes the config validate command logic.
func runConfigValidate(cmd *cobra.Command, cfg Config) error {
	deps := cfg.deps()

	filePath, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return err
	}

	resolved, err := deps.ConfigLoader(filePath)
	if err != nil {
		return err
	}

	if err := resolved.Validate(); err != nil {
		return fmt.Errorf("config is invalid: %w", err)
	}

	cmd.Println("config is valid")

	return nil
}
