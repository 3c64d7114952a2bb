package commands

import (
	"context"

	"github.com/aca-platform/redshift-backups-framework/datastore"
	"github.com/aca-platform/redshift-backups-framework/datastore/pg"
	fconfig "github.com/aca-platform/redshift-backups-framework/engine/config"
	"github.com/aca-platform/redshift-backups-framework/engine/config/plan"
	fengineenv "github.com/aca-platform/redshift-backups-framework/engine/environment"
	fenvironment "github.com/aca-platform/redshift-backups-framework/environment"
	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

// ConfigLoaderFunc loads the framework configuration from a file path.
type ConfigLoaderFunc func(path string) (*fconfig.Config, error)

// EnvironmentLoaderFunc loads an environment from the configuration.
type EnvironmentLoaderFunc func(
	getCtx func() context.Context,
	lggr logger.Logger,
	cfg *fconfig.Config,
	opts ...fengineenv.LoadEnvironmentOption,
) (fenvironment.Environment, error)

// ClientsLoaderFunc builds the service clients from an environment.
type ClientsLoaderFunc func(env fenvironment.Environment) (fengineenv.Clients, error)

// CatalogSyncerFunc writes the catalog entries produced by a flow back to the
// configured database. A no-op when the DSN is empty.
type CatalogSyncerFunc func(ctx context.Context, dsn string, ds datastore.DataStore) error

// CatalogPrunerFunc removes deleted snapshot entries from the catalog
// database. A no-op when the DSN is empty.
type CatalogPrunerFunc func(ctx context.Context, dsn string, keys []datastore.SnapshotRefKey) error

// PlanLoaderFunc loads backup plan rules from a TOML file.
type PlanLoaderFunc func(path string) (*plan.Document, error)

// Deps holds the injectable dependencies for commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// ConfigLoader loads the configuration file. Default: config.Load.
	ConfigLoader ConfigLoaderFunc

	// EnvironmentLoader loads an environment. Default: environment.Load.
	EnvironmentLoader EnvironmentLoaderFunc

	// ClientsLoader builds service clients. Default: environment.NewClients.
	ClientsLoader ClientsLoaderFunc

	// CatalogSyncer persists catalog entries. Default: datastore/pg sync.
	CatalogSyncer CatalogSyncerFunc

	// CatalogPruner removes deleted catalog entries. Default: datastore/pg
	// deletes.
	CatalogPruner CatalogPrunerFunc

	// PlanLoader loads plan rules. Default: plan.Load.
	PlanLoader PlanLoaderFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.ConfigLoader == nil {
		d.ConfigLoader = fconfig.Load
	}
	if d.EnvironmentLoader == nil {
		d.EnvironmentLoader = fengineenv.Load
	}
	if d.ClientsLoader == nil {
		d.ClientsLoader = fengineenv.NewClients
	}
	if d.CatalogSyncer == nil {
		d.CatalogSyncer = defaultCatalogSyncer
	}
	if d.CatalogPruner == nil {
		d.CatalogPruner = defaultCatalogPruner
	}
	if d.PlanLoader == nil {
		d.PlanLoader = plan.Load
	}
}

// defaultCatalogSyncer writes the datastore to the configured catalog
// database in a single transaction.
func defaultCatalogSyncer(ctx context.Context, dsn string, ds datastore.DataStore) error {
	if dsn == "" {
		return nil
	}

	store, err := pg.Open(dsn)
	if err != nil {
		return err
	}

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	return store.Sync(ctx, ds)
}

// defaultCatalogPruner removes the given snapshot entries from the catalog
// database.
func defaultCatalogPruner(ctx context.Context, dsn string, keys []datastore.SnapshotRefKey) error {
	if dsn == "" || len(keys) == 0 {
		return nil
	}

	store, err := pg.Open(dsn)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := store.DeleteSnapshotRef(ctx, key); err != nil {
			return err
		}
	}

	return nil
}

// Config holds the shared configuration for the command constructors.
type Config struct {
	// Logger is the logger commands and flows write to.
	Logger logger.Logger

	// Deps holds the injectable dependencies. Nil uses production defaults.
	Deps *Deps
}

// deps returns the dependencies with defaults applied.
func (c Config) deps() *Deps {
	d := c.Deps
	if d == nil {
		d = &Deps{}
	}
	d.applyDefaults()

	return d
}
