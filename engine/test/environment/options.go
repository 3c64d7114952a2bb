package environment

import (
	"testing"

	"github.com/aca-platform/redshift-backups-framework/cloud"
	"github.com/aca-platform/redshift-backups-framework/datastore"
	"github.com/aca-platform/redshift-backups-framework/operations"
	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

// LoadOpt is a configuration function that sets environment components during
// loading.
type LoadOpt func(*components) error

// WithAccounts adds pre-constructed cloud accounts to the environment,
// replacing the default stub accounts.
func WithAccounts(accounts ...cloud.Account) LoadOpt {
	return func(cmps *components) error {
		cmps.AddAccounts(accounts...)

		return nil
	}
}

// WithLogger sets the logger for the environment.
func WithLogger(lggr logger.Logger) LoadOpt {
	return func(cmps *components) error {
		cmps.mu.Lock()
		defer cmps.mu.Unlock()

		cmps.Logger = lggr

		return nil
	}
}

// WithTestLogger sets a logger that writes through the test's log output.
func WithTestLogger(t *testing.T) LoadOpt {
	t.Helper()

	return WithLogger(logger.Test(t))
}

// WithDataStore sets the catalog datastore for the environment. The default
// is an empty sealed memory datastore.
func WithDataStore(ds datastore.DataStore) LoadOpt {
	return func(cmps *components) error {
		cmps.mu.Lock()
		defer cmps.mu.Unlock()

		cmps.Datastore = ds

		return nil
	}
}

// WithReporter sets the operations reporter for the environment. The default
// is a memory reporter.
func WithReporter(reporter operations.Reporter) LoadOpt {
	return func(cmps *components) error {
		cmps.mu.Lock()
		defer cmps.mu.Unlock()

		cmps.Reporter = reporter

		return nil
	}
}
