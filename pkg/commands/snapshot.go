package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aca-platform/redshift-backups-framework/backup"
	"github.com/aca-platform/redshift-backups-framework/datastore"
	"github.com/aca-platform/redshift-backups-framework/operations"
)

// NewSnapshotCmd creates the snapshot command group for the native snapshot
// flows.
func NewSnapshotCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Native snapshot commands",
	}

	addConfigFlag(cmd)
	cmd.AddCommand(newSnapshotRunCmd(cfg), newSnapshotCleanupCmd(cfg))

	return cmd
}

// newSnapshotRunCmd creates the "run" subcommand executing the cross-account
// snapshot flow.
func newSnapshotRunCmd(cfg Config) *cobra.Command {
	var (
		snapshotID   string
		copyToTarget bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create a manual snapshot, share it with the target account and optionally copy it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSnapshotRun(cmd, cfg, snapshotID, copyToTarget)
		},
	}

	cmd.Flags().StringVar(&snapshotID, "snapshot-id", "", "Snapshot identifier. Default is a timestamped name under the configured prefix")
	cmd.Flags().BoolVar(&copyToTarget, "copy", true, "Copy the shared snapshot into the target account")

	return cmd
}

// runSnapshotRun executes the snapshot run command logic.
func runSnapshotRun(cmd *cobra.Command, cfg Config, snapshotID string, copyToTarget bool) error {
	rt, err := loadRuntime(cmd, cfg)
	if err != nil {
		return err
	}

	source, err := rt.env.Source()
	if err != nil {
		return err
	}
	target, err := rt.env.Target()
	if err != nil {
		return err
	}

	if snapshotID == "" {
		snapshotID = backup.SnapshotName(rt.cfg.ResourcePrefix, rt.cfg.Cluster.ClusterID, time.Now().UTC())
	}

	store := datastore.NewMemoryDataStore()
	if err := store.Merge(rt.env.DataStore); err != nil {
		return fmt.Errorf("failed to merge catalog: %w", err)
	}

	report, err := operations.ExecuteSequence(
		rt.env.OperationsBundle,
		backup.CrossAccountSnapshotSequence,
		backup.SnapshotFlowDeps{
			Source: rt.clients.SourceRedshift,
			Target: rt.clients.TargetRedshift,
			Store:  store.SnapshotRefStore,
		},
		backup.CrossAccountSnapshotInput{
			ClusterID:     rt.cfg.Cluster.ClusterID,
			SnapshotID:    snapshotID,
			SourceAccount: source.ID,
			Region:        rt.cfg.AWSRegion,
			TargetAccount: target.ID,
			CopyToTarget:  copyToTarget,
			Tags:          map[string]string{"TargetAccount": target.ID},
		},
	)
	if err != nil {
		return fmt.Errorf("snapshot flow failed: %w", err)
	}

	if err := rt.deps.CatalogSyncer(cmd.Context(), rt.cfg.Catalog.DSN, store.Seal()); err != nil {
		return fmt.Errorf("failed to sync catalog: %w", err)
	}

	return printJSON(cmd, report.Output)
}

// newSnapshotCleanupCmd creates the "cleanup" subcommand enforcing the
// retention window.
func newSnapshotCleanupCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete manual snapshots older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSnapshotCleanup(cmd, cfg)
		},
	}

	return cmd
}

// runSnapshotCleanup executes the cleanup command logic.
func runSnapshotCleanup(cmd *cobra.Command, cfg Config) error {
	rt, err := loadRuntime(cmd, cfg)
	if err != nil {
		return err
	}

	source, err := rt.env.Source()
	if err != nil {
		return err
	}

	store := datastore.NewMemoryDataStore()
	if err := store.Merge(rt.env.DataStore); err != nil {
		return fmt.Errorf("failed to merge catalog: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -rt.cfg.Backup.RetentionDays)

	report, err := operations.ExecuteOperation(
		rt.env.OperationsBundle,
		backup.RetentionCleanupOp,
		backup.CleanupFlowDeps{
			Client:    rt.clients.SourceRedshift,
			Store:     store.SnapshotRefStore,
			AccountID: source.ID,
			Region:    rt.cfg.AWSRegion,
		},
		backup.CleanupInput{
			ClusterID: rt.cfg.Cluster.ClusterID,
			Prefix:    backup.SnapshotNamePrefix(rt.cfg.ResourcePrefix, rt.cfg.Cluster.ClusterID),
			Cutoff:    cutoff,
		},
	)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	keys := make([]datastore.SnapshotRefKey, 0, len(report.Output.Deleted))
	for _, id := range report.Output.Deleted {
		keys = append(keys, datastore.NewSnapshotRefKey(source.ID, rt.cfg.AWSRegion, id))
	}
	if err := rt.deps.CatalogPruner(cmd.Context(), rt.cfg.Catalog.DSN, keys); err != nil {
		return fmt.Errorf("failed to prune catalog: %w", err)
	}

	return printJSON(cmd, report.Output)
}
