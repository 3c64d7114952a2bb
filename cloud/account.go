package cloud

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws/session"
)

var ErrAccountNotFound = errors.New("account not found")

// Role identifies which side of a cross-account backup an account plays.
type Role string

const (
	// RoleSource is the account that owns the cluster being backed up.
	RoleSource Role = "source"
	// RoleTarget is the account that receives shared snapshots and copied
	// recovery points.
	RoleTarget Role = "target"
)

// Account represents an AWS account reachable through a configured session.
// The service packages (redshift, backupsvc, iam, cfn) construct their
// clients from the Session.
type Account struct {
	// Role is the account's role in the backup topology.
	Role Role
	// ID is the 12-digit AWS account ID, resolved via STS at initialization.
	ID string
	// Profile is the shared-credentials profile the session was built from.
	// Empty means the default credential chain.
	Profile string
	// Region is the region all control-plane calls are issued against.
	Region string

	// Session is the configured AWS session for this account.
	Session *session.Session
}

// String returns the account ID and role, e.g. "164543933824 (source)".
func (a Account) String() string {
	return fmt.Sprintf("%s (%s)", a.ID, a.Role)
}

// Accounts is a collection of accounts keyed by role.
type Accounts struct {
	accounts map[Role]Account
}

// NewAccounts creates a new Accounts collection. Later accounts with the same
// role replace earlier ones.
func NewAccounts(accounts ...Account) Accounts {
	m := make(map[Role]Account, len(accounts))
	for _, a := range accounts {
		m[a.Role] = a
	}

	return Accounts{accounts: m}
}

// Get returns the account with the given role.
// Returns ErrAccountNotFound if no account with that role is configured.
func (a Accounts) Get(role Role) (Account, error) {
	acc, ok := a.accounts[role]
	if !ok {
		return Account{}, fmt.Errorf("role %s: %w", role, ErrAccountNotFound)
	}

	return acc, nil
}

// Source returns the source account.
func (a Accounts) Source() (Account, error) { return a.Get(RoleSource) }

// Target returns the target account.
func (a Accounts) Target() (Account, error) { return a.Get(RoleTarget) }

// Exists reports whether an account with the given role is configured.
func (a Accounts) Exists(role Role) bool {
	_, ok := a.accounts[role]
	return ok
}

// List returns all configured accounts, source first.
func (a Accounts) List() []Account {
	out := make([]Account, 0, len(a.accounts))
	for _, role := range []Role{RoleSource, RoleTarget} {
		if acc, ok := a.accounts[role]; ok {
			out = append(out, acc)
		}
	}

	return out
}
