package environment

import (
	"fmt"

	"github.com/aca-platform/redshift-backups-framework/cloud/backupsvc"
	"github.com/aca-platform/redshift-backups-framework/cloud/cfn"
	"github.com/aca-platform/redshift-backups-framework/cloud/iam"
	"github.com/aca-platform/redshift-backups-framework/cloud/redshift"
	fenvironment "github.com/aca-platform/redshift-backups-framework/environment"
)

// Clients bundles the service clients the flows run against, one per
// account where the service is used on both sides.
type Clients struct {
	// SourceRedshift operates on the cluster and its manual snapshots.
	SourceRedshift *redshift.Client
	// TargetRedshift copies shared snapshots and restores clusters.
	TargetRedshift *redshift.Client

	// Backup drives the AWS Backup control plane in the source account.
	Backup *backupsvc.Client
	// IAM provisions the backup service role in the source account.
	IAM *iam.Client

	// SourceCFN and TargetCFN deploy the per-account infrastructure stacks.
	SourceCFN *cfn.Client
	TargetCFN *cfn.Client
}

// NewClients builds the service clients from the environment's account
// sessions.
func NewClients(env fenvironment.Environment) (Clients, error) {
	source, err := env.Source()
	if err != nil {
		return Clients{}, fmt.Errorf("failed to resolve source account: %w", err)
	}

	target, err := env.Target()
	if err != nil {
		return Clients{}, fmt.Errorf("failed to resolve target account: %w", err)
	}

	return Clients{
		SourceRedshift: redshift.NewClient(source.Session, env.Logger),
		TargetRedshift: redshift.NewClient(target.Session, env.Logger),
		Backup:         backupsvc.NewClient(source.Session, env.Logger),
		IAM:            iam.NewClient(source.Session, env.Logger),
		SourceCFN:      cfn.NewClient(source.Session, env.Logger),
		TargetCFN:      cfn.NewClient(target.Session, env.Logger),
	}, nil
}
