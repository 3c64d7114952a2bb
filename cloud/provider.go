package cloud

import "context"

// Provider is an interface for account providers that can initialize an
// Account from locally configured credentials, verifying that the
// credentials are valid in the process.
type Provider interface {
	Initialize(ctx context.Context) (Account, error)
	Name() string
	Role() Role
	Account() Account
}
