// Package provider contains account providers that construct cloud.Account
// instances from locally configured AWS credentials.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"

	"github.com/aca-platform/redshift-backups-framework/cloud"
)

// ErrAccountMismatch is returned when the credentials resolve to a different
// account than the one the configuration expects. Running a backup flow
// against the wrong account is never recoverable, so this fails fast.
var ErrAccountMismatch = errors.New("credentials resolve to unexpected account")

// ProfileAccountProviderConfig holds the configuration to initialize the
// ProfileAccountProvider.
type ProfileAccountProviderConfig struct {
	// Profile is the shared-credentials profile to build the session from.
	// Empty uses the default credential chain (e.g. instance or task role).
	Profile string

	// Required: the region all control-plane calls are issued against.
	Region string

	// ExpectedAccountID optionally pins the account the credentials must
	// resolve to. Initialization fails with ErrAccountMismatch otherwise.
	ExpectedAccountID string
}

// validate checks if the ProfileAccountProviderConfig is valid.
func (c ProfileAccountProviderConfig) validate() error {
	if c.Region == "" {
		return errors.New("region is required")
	}

	return nil
}

var _ cloud.Provider = (*ProfileAccountProvider)(nil)

// ProfileAccountProvider is an account provider that builds an AWS session
// from a named shared-credentials profile and verifies the credentials via
// STS GetCallerIdentity.
type ProfileAccountProvider struct {
	// role identifies which side of the backup topology this account plays.
	role cloud.Role

	// config holds the configuration for the provider.
	config ProfileAccountProviderConfig

	// account is the account instance that this provider manages. The
	// Initialize method sets it up.
	account *cloud.Account

	// newSTS constructs the STS client used for identity resolution.
	// Overridable in tests.
	newSTS func(*session.Session) stsiface.STSAPI
}

// NewProfileAccountProvider creates a new ProfileAccountProvider with the
// given role and configuration.
func NewProfileAccountProvider(role cloud.Role, config ProfileAccountProviderConfig) *ProfileAccountProvider {
	return &ProfileAccountProvider{
		role:   role,
		config: config,
		newSTS: func(sess *session.Session) stsiface.STSAPI {
			return sts.New(sess)
		},
	}
}

// Initialize initializes the ProfileAccountProvider, validating the
// configuration, building the session and resolving the caller identity.
func (p *ProfileAccountProvider) Initialize(ctx context.Context) (cloud.Account, error) {
	if p.account != nil {
		return *p.account, nil // Already initialized
	}

	if err := p.config.validate(); err != nil {
		return cloud.Account{}, fmt.Errorf("failed to validate provider config: %w", err)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Profile: p.config.Profile,
		Config: aws.Config{
			Region: aws.String(p.config.Region),
		},
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return cloud.Account{}, fmt.Errorf("failed to create session for profile %q: %w", p.config.Profile, err)
	}

	identity, err := p.newSTS(sess).GetCallerIdentityWithContext(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return cloud.Account{}, fmt.Errorf("failed to resolve caller identity for profile %q: %w", p.config.Profile, err)
	}

	accountID := aws.StringValue(identity.Account)
	if p.config.ExpectedAccountID != "" && accountID != p.config.ExpectedAccountID {
		return cloud.Account{}, fmt.Errorf("%w: expected %s, got %s",
			ErrAccountMismatch, p.config.ExpectedAccountID, accountID)
	}

	p.account = &cloud.Account{
		Role:    p.role,
		ID:      accountID,
		Profile: p.config.Profile,
		Region:  p.config.Region,
		Session: sess,
	}

	return *p.account, nil
}

// Name returns the name of the ProfileAccountProvider.
func (*ProfileAccountProvider) Name() string {
	return "AWS Profile Account Provider"
}

// Role returns the role of the account managed by this provider.
func (p *ProfileAccountProvider) Role() cloud.Role {
	return p.role
}

// Account returns the account instance managed by this provider. You must
// call Initialize before using this method to ensure the account is properly
// set up.
func (p *ProfileAccountProvider) Account() cloud.Account {
	return *p.account
}
