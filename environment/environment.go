// Package environment assembles the pieces a backup flow runs against: the
// source and target accounts, the snapshot catalog and the operations
// bundle.
package environment

import (
	"context"

	"github.com/aca-platform/redshift-backups-framework/cloud"
	"github.com/aca-platform/redshift-backups-framework/datastore"
	"github.com/aca-platform/redshift-backups-framework/operations"
	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

// Environment carries everything a flow needs to run against a pair of
// accounts. Source is the account that owns the warehouse cluster; Target is
// the account the backups are copied into.
type Environment struct {
	// Name identifies the environment, e.g. "staging" or "production".
	Name string
	// Logger is the logger flows and operations write to.
	Logger logger.Logger
	// Accounts holds the initialized source and target accounts.
	Accounts cloud.Accounts
	// DataStore is the sealed catalog of snapshot and recovery point
	// references loaded for this environment.
	DataStore datastore.DataStore
	// GetContext returns the context flow operations run under.
	GetContext func() context.Context
	// OperationsBundle carries the shared dependencies for executing
	// operations and sequences.
	OperationsBundle operations.Bundle
}

// option configures a new Environment.
type option struct {
	reporter operations.Reporter
}

// Option configures New.
type Option func(*option)

// WithReporter overrides the reporter used by the operations bundle. The
// default is an in-memory reporter.
func WithReporter(reporter operations.Reporter) Option {
	return func(o *option) {
		o.reporter = reporter
	}
}

// New creates an Environment wired with an operations bundle.
func New(
	name string,
	lggr logger.Logger,
	accounts cloud.Accounts,
	ds datastore.DataStore,
	getCtx func() context.Context,
	opts ...Option,
) Environment {
	options := &option{
		reporter: operations.NewMemoryReporter(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return Environment{
		Name:             name,
		Logger:           lggr,
		Accounts:         accounts,
		DataStore:        ds,
		GetContext:       getCtx,
		OperationsBundle: operations.NewBundle(getCtx, lggr, options.reporter),
	}
}

// Source returns the initialized source account.
func (e Environment) Source() (cloud.Account, error) {
	return e.Accounts.Source()
}

// Target returns the initialized target account.
func (e Environment) Target() (cloud.Account, error) {
	return e.Accounts.Target()
}
