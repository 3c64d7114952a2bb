package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aca-platform/redshift-backups-framework/cloud/backupsvc"
	"github.com/aca-platform/redshift-backups-framework/cloud/redshift"
	"github.com/aca-platform/redshift-backups-framework/datastore"
)

// monitorReport aggregates the backup inventory across both accounts and the
// catalog.
type monitorReport struct {
	SharedSnapshots []redshift.Snapshot          `json:"sharedSnapshots"`
	RecoveryPoints  []backupsvc.RecoveryPoint    `json:"recoveryPoints"`
	SnapshotRefs    []datastore.SnapshotRef      `json:"snapshotRefs"`
	RecoveryRefs    []datastore.RecoveryPointRef `json:"recoveryPointRefs"`
}

// NewMonitorCmd creates the monitor command reporting on backup inventory.
func NewMonitorCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Report snapshots, recovery points and catalog entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd, cfg)
		},
	}

	addConfigFlag(cmd)

	return cmd
}

// runMonitor executes the monitor command logic.
func runMonitor(cmd *cobra.Command, cfg Config) error {
	rt, err := loadRuntime(cmd, cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	source, err := rt.env.Source()
	if err != nil {
		return err
	}

	shared, err := rt.clients.TargetRedshift.ListSharedSnapshots(ctx, source.ID)
	if err != nil {
		return fmt.Errorf("failed to list shared snapshots: %w", err)
	}

	vaultName := rt.cfg.Backup.SourceVaultName
	if vaultName == "" {
		vaultName = rt.cfg.ResourcePrefix + "-vault"
	}

	points, err := rt.clients.Backup.ListRecoveryPoints(ctx, vaultName)
	if err != nil {
		return fmt.Errorf("failed to list recovery points: %w", err)
	}

	snapshotRefs, err := rt.env.DataStore.Snapshots().Fetch()
	if err != nil {
		return fmt.Errorf("failed to fetch catalog snapshot refs: %w", err)
	}

	recoveryRefs, err := rt.env.DataStore.RecoveryPoints().Fetch()
	if err != nil {
		return fmt.Errorf("failed to fetch catalog recovery point refs: %w", err)
	}

	return printJSON(cmd, monitorReport{
		SharedSnapshots: shared,
		RecoveryPoints:  points,
		SnapshotRefs:    snapshotRefs,
		RecoveryRefs:    recoveryRefs,
	})
}
