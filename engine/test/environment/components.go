package environment

import (
	"sync"

	"github.com/aca-platform/redshift-backups-framework/cloud"
	"github.com/aca-platform/redshift-backups-framework/datastore"
	"github.com/aca-platform/redshift-backups-framework/operations"
	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

// components is a struct that contains the components of the environment.
type components struct {
	mu sync.Mutex

	Accounts  []cloud.Account
	Logger    logger.Logger
	Datastore datastore.DataStore
	Reporter  operations.Reporter
}

// newComponents creates a new components instance.
func newComponents() *components {
	return &components{
		Accounts:  make([]cloud.Account, 0),
		Logger:    logger.Nop(),
		Datastore: datastore.NewMemoryDataStore().Seal(),
	}
}

// AddAccounts adds accounts to the components in a thread-safe manner.
func (c *components) AddAccounts(accounts ...cloud.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Accounts = append(c.Accounts, accounts...)
}
