// Package environment loads production environments from configuration:
// accounts are initialized from AWS profiles via STS and the catalog is
// hydrated from the configured database.
package environment

import (
	"context"
	"fmt"

	"github.com/aca-platform/redshift-backups-framework/cloud"
	"github.com/aca-platform/redshift-backups-framework/cloud/provider"
	"github.com/aca-platform/redshift-backups-framework/datastore"
	"github.com/aca-platform/redshift-backups-framework/datastore/pg"
	fconfig "github.com/aca-platform/redshift-backups-framework/engine/config"
	fenvironment "github.com/aca-platform/redshift-backups-framework/environment"
	"github.com/aca-platform/redshift-backups-framework/operations"
	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

// LoadEnvironmentOptions contains configuration options for Load.
type LoadEnvironmentOptions struct {
	reporter operations.Reporter
}

// LoadEnvironmentOption is a function that modifies LoadEnvironmentOptions.
type LoadEnvironmentOption func(*LoadEnvironmentOptions)

// WithReporter sets the reporter for Load.
func WithReporter(reporter operations.Reporter) LoadEnvironmentOption {
	return func(o *LoadEnvironmentOptions) {
		o.reporter = reporter
	}
}

// Load builds an environment from the configuration. Both accounts are
// initialized through STS so that misconfigured credentials fail here rather
// than halfway through a flow. When a catalog DSN is configured the datastore
// is hydrated from the database, otherwise an empty in-memory catalog is
// used.
func Load(
	getCtx func() context.Context,
	lggr logger.Logger,
	cfg *fconfig.Config,
	opts ...LoadEnvironmentOption,
) (fenvironment.Environment, error) {
	options := &LoadEnvironmentOptions{
		reporter: operations.NewMemoryReporter(),
	}
	for _, opt := range opts {
		opt(options)
	}

	if err := cfg.Validate(); err != nil {
		return fenvironment.Environment{}, fmt.Errorf("invalid config: %w", err)
	}

	accounts, err := initAccounts(getCtx(), cfg)
	if err != nil {
		return fenvironment.Environment{}, err
	}

	ds, err := loadDataStore(getCtx(), lggr, cfg)
	if err != nil {
		return fenvironment.Environment{}, err
	}

	env := fenvironment.New(
		cfg.ResourcePrefix,
		lggr,
		accounts,
		ds,
		getCtx,
		fenvironment.WithReporter(options.reporter),
	)

	return env, nil
}

// initAccounts initializes the source and target accounts from their
// configured profiles, pinning each to its expected account ID.
func initAccounts(ctx context.Context, cfg *fconfig.Config) (cloud.Accounts, error) {
	providers := []*provider.ProfileAccountProvider{
		provider.NewProfileAccountProvider(cloud.RoleSource, provider.ProfileAccountProviderConfig{
			Profile:           cfg.SourceAccount.Profile,
			Region:            cfg.AWSRegion,
			ExpectedAccountID: cfg.SourceAccount.ID,
		}),
		provider.NewProfileAccountProvider(cloud.RoleTarget, provider.ProfileAccountProviderConfig{
			Profile:           cfg.TargetAccount.Profile,
			Region:            cfg.AWSRegion,
			ExpectedAccountID: cfg.TargetAccount.ID,
		}),
	}

	accounts := make([]cloud.Account, 0, len(providers))
	for _, p := range providers {
		account, err := p.Initialize(ctx)
		if err != nil {
			return cloud.Accounts{}, fmt.Errorf("failed to initialize %s account: %w", p.Role(), err)
		}

		accounts = append(accounts, account)
	}

	return cloud.NewAccounts(accounts...), nil
}

// loadDataStore hydrates the catalog from the configured database, or
// returns an empty in-memory catalog when no DSN is set.
func loadDataStore(ctx context.Context, lggr logger.Logger, cfg *fconfig.Config) (datastore.DataStore, error) {
	if cfg.Catalog.DSN == "" {
		lggr.Warn("No catalog DSN configured, catalog entries are kept in memory only")

		return datastore.NewMemoryDataStore().Seal(), nil
	}

	store, err := pg.Open(cfg.Catalog.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure catalog schema: %w", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	return loaded.Seal(), nil
}
