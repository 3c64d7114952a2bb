// Package environment loads fully in-memory environments for tests. Cloud
// accounts are stubbed, the catalog is a memory datastore and operation
// reports go to a memory reporter.
package environment

import (
	"context"
	"errors"
	"sync"

	"github.com/aca-platform/redshift-backups-framework/cloud"
	fenvironment "github.com/aca-platform/redshift-backups-framework/environment"
)

const (
	environmentName = "test_environment"

	// Stub account IDs used when the test does not provide its own accounts.
	defaultSourceAccountID = "111111111111"
	defaultTargetAccountID = "222222222222"
	defaultRegion          = "us-east-1"
)

// New creates a new environment for testing.
//
// It loads the environment with the given options and returns the environment.
//
// If the environment fails to load, it returns an error.
func New(ctx context.Context, opts ...LoadOpt) (*fenvironment.Environment, error) {
	return NewLoader().Load(ctx, opts...)
}

// Loader instantiates a new environment with the given options.
type Loader struct{}

// NewLoader creates a new Loader instance.
func NewLoader() *Loader {
	return &Loader{}
}

// Load loads the environment with the given options.
func (l *Loader) Load(ctx context.Context, opts ...LoadOpt) (*fenvironment.Environment, error) {
	var (
		getCtx = func() context.Context { return ctx }
		cmps   = newComponents()
	)

	if err := applyOptions(cmps, opts); err != nil {
		return nil, err
	}

	accounts := cmps.Accounts
	if len(accounts) == 0 {
		accounts = []cloud.Account{
			{Role: cloud.RoleSource, ID: defaultSourceAccountID, Region: defaultRegion},
			{Role: cloud.RoleTarget, ID: defaultTargetAccountID, Region: defaultRegion},
		}
	}

	envOpts := []fenvironment.Option{}
	if cmps.Reporter != nil {
		envOpts = append(envOpts, fenvironment.WithReporter(cmps.Reporter))
	}

	env := fenvironment.New(
		environmentName,
		cmps.Logger,
		cloud.NewAccounts(accounts...),
		cmps.Datastore,
		getCtx,
		envOpts...,
	)

	return &env, nil
}

// applyOptions applies the given options to load various components for the
// environment. It executes all options concurrently and returns a combined
// error if any option fails. If multiple options fail, all errors are joined
// using errors.Join.
func applyOptions(cmps *components, opts []LoadOpt) error {
	if len(opts) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(opts))

	for _, opt := range opts {
		wg.Add(1)
		go func(option LoadOpt) {
			defer wg.Done()
			if err := option(cmps); err != nil {
				errChan <- err
			}
		}(opt)
	}
	wg.Wait()
	close(errChan)

	if len(errChan) > 0 {
		var merr error
		for err := range errChan {
			merr = errors.Join(merr, err)
		}

		return merr
	}

	return nil
}
