package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aca-platform/redshift-backups-framework/backup"
	"github.com/aca-platform/redshift-backups-framework/cloud/backupsvc"
	"github.com/aca-platform/redshift-backups-framework/datastore"
	"github.com/aca-platform/redshift-backups-framework/operations"
)

// NewBackupCmd creates the backup command group for the managed backup flow.
func NewBackupCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Managed backup commands",
	}

	addConfigFlag(cmd)
	cmd.AddCommand(newBackupRunCmd(cfg))

	return cmd
}

// newBackupRunCmd creates the "run" subcommand executing the managed backup
// flow.
func newBackupRunCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Provision the backup plan and run an on-demand backup job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBackupRun(cmd, cfg)
		},
	}

	return cmd
}

// runBackupRun executes the backup run command logic.
func runBackupRun(cmd *cobra.Command, cfg Config) error {
	rt, err := loadRuntime(cmd, cfg)
	if err != nil {
		return err
	}

	source, err := rt.env.Source()
	if err != nil {
		return err
	}

	vaultName := rt.cfg.Backup.SourceVaultName
	if vaultName == "" {
		vaultName = rt.cfg.ResourcePrefix + "-vault"
	}

	rules, err := loadPlanRules(rt, vaultName)
	if err != nil {
		return err
	}

	store := datastore.NewMemoryDataStore()
	if err := store.Merge(rt.env.DataStore); err != nil {
		return fmt.Errorf("failed to merge catalog: %w", err)
	}

	clusterARN := fmt.Sprintf("arn:aws:redshift:%s:%s:cluster:%s",
		rt.cfg.AWSRegion, source.ID, rt.cfg.Cluster.ClusterID)

	report, err := operations.ExecuteSequence(
		rt.env.OperationsBundle,
		backup.ManagedBackupSequence,
		backup.ManagedFlowDeps{
			Backup: rt.clients.Backup,
			IAM:    rt.clients.IAM,
			Store:  store.RecoveryPointRefStore,
		},
		backup.ManagedBackupInput{
			RoleName:       rt.cfg.ResourcePrefix + "-backup-role",
			VaultName:      vaultName,
			PlanName:       rt.cfg.ResourcePrefix + "-plan",
			Rules:          rules,
			SelectionName:  rt.cfg.ResourcePrefix + "-selection",
			ResourceARN:    clusterARN,
			Tags:           map[string]string{"ManagedBy": rt.cfg.ResourcePrefix},
			CopyToVaultARN: rt.cfg.Backup.TargetVaultARN,
		},
	)
	if err != nil {
		return fmt.Errorf("managed backup failed: %w", err)
	}

	if err := rt.deps.CatalogSyncer(cmd.Context(), rt.cfg.Catalog.DSN, store.Seal()); err != nil {
		return fmt.Errorf("failed to sync catalog: %w", err)
	}

	return printJSON(cmd, report.Output)
}

// loadPlanRules reads the rules from the configured plan file, falling back
// to a single rule built from the backup configuration.
func loadPlanRules(rt *runtime, vaultName string) ([]backupsvc.PlanRule, error) {
	if rt.cfg.Backup.PlanFile != "" {
		doc, err := rt.deps.PlanLoader(rt.cfg.Backup.PlanFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load plan rules: %w", err)
		}

		return doc.PlanRules(vaultName), nil
	}

	return []backupsvc.PlanRule{{
		RuleName:        "daily",
		VaultName:       vaultName,
		Schedule:        rt.cfg.Backup.BackupSchedule,
		DeleteAfterDays: int64(rt.cfg.Backup.RetentionDays),
	}}, nil
}
