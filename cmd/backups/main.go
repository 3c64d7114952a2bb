// Command backups is the CLI for running cross-account warehouse backup
// flows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aca-platform/redshift-backups-framework/pkg/commands"
	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

func main() {
	lggr, err := logger.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "backups",
		Short:         "Cross-account data warehouse backups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmds := commands.New(lggr)
	root.AddCommand(
		cmds.Snapshot(),
		cmds.Backup(),
		cmds.Restore(),
		cmds.Monitor(),
		cmds.Deploy(),
		cmds.Config(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		lggr.Errorw("Command failed", "err", err)
		os.Exit(1)
	}
}
