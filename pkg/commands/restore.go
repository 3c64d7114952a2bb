package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aca-platform/redshift-backups-framework/backup"
	"github.com/aca-platform/redshift-backups-framework/operations"
)

// NewRestoreCmd creates the restore command. Restores run from a shared
// snapshot by default, or from a recovery point when --recovery-point-arn is
// set.
func NewRestoreCmd(cfg Config) *cobra.Command {
	var (
		snapshotID       string
		recoveryPointARN string
		clusterID        string
	)

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore a cluster in the target account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if recoveryPointARN != "" {
				return runManagedRestore(cmd, cfg, recoveryPointARN, clusterID)
			}

			return runSnapshotRestore(cmd, cfg, snapshotID, clusterID)
		},
	}

	addConfigFlag(cmd)
	cmd.Flags().StringVar(&snapshotID, "snapshot-id", "", "Shared snapshot to restore from")
	cmd.Flags().StringVar(&recoveryPointARN, "recovery-point-arn", "", "Recovery point to restore from instead of a snapshot")
	cmd.Flags().StringVar(&clusterID, "cluster-id", "", "Identifier for the restored cluster")

	return cmd
}

// runSnapshotRestore restores a cluster in the target account from a snapshot
// shared by the source account.
func runSnapshotRestore(cmd *cobra.Command, cfg Config, snapshotID, clusterID string) error {
	if snapshotID == "" {
		return fmt.Errorf("either --snapshot-id or --recovery-point-arn is required")
	}

	rt, err := loadRuntime(cmd, cfg)
	if err != nil {
		return err
	}

	source, err := rt.env.Source()
	if err != nil {
		return err
	}

	if clusterID == "" {
		clusterID = backup.RestoreClusterName(rt.cfg.Cluster.ClusterID)
	}

	report, err := operations.ExecuteSequence(
		rt.env.OperationsBundle,
		backup.RestoreSequence,
		backup.RestoreFlowDeps{Target: rt.clients.TargetRedshift},
		backup.RestoreClusterInput{
			ClusterID:    clusterID,
			SnapshotID:   snapshotID,
			OwnerAccount: source.ID,
			SubnetGroup:  rt.cfg.Cluster.SubnetGroup,
		},
	)
	if err != nil {
		return fmt.Errorf("cluster restore failed: %w", err)
	}

	return printJSON(cmd, report.Output)
}

// runManagedRestore restores a cluster from a recovery point through the
// managed backup service.
func runManagedRestore(cmd *cobra.Command, cfg Config, recoveryPointARN, clusterID string) error {
	rt, err := loadRuntime(cmd, cfg)
	if err != nil {
		return err
	}

	target, err := rt.env.Target()
	if err != nil {
		return err
	}

	if clusterID == "" {
		clusterID = backup.RestoreClusterName(rt.cfg.Cluster.ClusterID)
	}

	roleARN := fmt.Sprintf("arn:aws:iam::%s:role/%s-backup-role", target.ID, rt.cfg.ResourcePrefix)

	metadata := map[string]string{
		"ClusterIdentifier":  clusterID,
		"PubliclyAccessible": "false",
	}
	if rt.cfg.Cluster.SubnetGroup != "" {
		metadata["ClusterSubnetGroupName"] = rt.cfg.Cluster.SubnetGroup
	}

	report, err := operations.ExecuteSequence(
		rt.env.OperationsBundle,
		backup.ManagedRestoreSequence,
		backup.ManagedFlowDeps{
			Backup: rt.clients.Backup,
			IAM:    rt.clients.IAM,
		},
		backup.ManagedRestoreInput{
			RecoveryPointARN: recoveryPointARN,
			RoleARN:          roleARN,
			Metadata:         metadata,
		},
	)
	if err != nil {
		return fmt.Errorf("managed restore failed: %w", err)
	}

	return printJSON(cmd, report.Output)
}
