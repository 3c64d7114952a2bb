// Package commands provides the CLI commands for the backup framework.
//
// There are two ways to use commands from this package:
//
// 1. Via the Commands factory (recommended for most use cases):
//
//	cmds := commands.New(lggr)
//	app.AddCommand(
//	    cmds.Snapshot(),
//	    cmds.Backup(),
//	    cmds.Restore(),
//	    cmds.Monitor(),
//	    cmds.Deploy(),
//	    cmds.Config(),
//	)
//
// 2. Via the command constructors with an explicit Config (for DI/testing):
//
//	app.AddCommand(commands.NewSnapshotCmd(commands.Config{
//	    Logger: lggr,
//	    Deps:   &commands.Deps{...}, // inject stubs for testing
//	}))
package commands

import (
	"github.com/spf13/cobra"

	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

// configFlag is the persistent flag naming the configuration file. Every
// command resolves its configuration through it.
const configFlag = "config"

// Commands provides a factory for creating CLI commands with shared
// configuration. This allows setting the logger once and reusing it across
// all commands created by this factory.
type Commands struct {
	lggr logger.Logger
}

// New creates a new Commands factory with the given logger.
// The logger will be shared across all commands created by this factory.
func New(lggr logger.Logger) *Commands {
	return &Commands{lggr: lggr}
}

// Snapshot creates the native snapshot command group.
func (c *Commands) Snapshot() *cobra.Command {
	return NewSnapshotCmd(Config{Logger: c.lggr})
}

// Backup creates the managed backup command group.
func (c *Commands) Backup() *cobra.Command {
	return NewBackupCmd(Config{Logger: c.lggr})
}

// Restore creates the restore command.
func (c *Commands) Restore() *cobra.Command {
	return NewRestoreCmd(Config{Logger: c.lggr})
}

// Monitor creates the monitor command.
func (c *Commands) Monitor() *cobra.Command {
	return NewMonitorCmd(Config{Logger: c.lggr})
}

// Deploy creates the infrastructure deploy command.
func (c *Commands) Deploy() *cobra.Command {
	return NewDeployCmd(Config{Logger: c.lggr})
}

// Config creates the config command group.
func (c *Commands) Config() *cobra.Command {
	return NewConfigCmd(Config{Logger: c.lggr})
}

// addConfigFlag registers the persistent config file flag on a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringP(configFlag, "c", "config.yaml", "Path to the configuration file")
}
