package environment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aca-platform/redshift-backups-framework/cloud"
	"github.com/aca-platform/redshift-backups-framework/datastore"
	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

func Test_New(t *testing.T) {
	t.Parallel()

	accounts := cloud.NewAccounts(
		cloud.Account{Role: cloud.RoleSource, ID: "111111111111", Region: "eu-west-1"},
		cloud.Account{Role: cloud.RoleTarget, ID: "222222222222", Region: "eu-west-1"},
	)

	env := New(
		"staging",
		logger.Test(t),
		accounts,
		datastore.NewMemoryDataStore().Seal(),
		func() context.Context { return t.Context() },
	)

	assert.Equal(t, "staging", env.Name)
	assert.NotNil(t, env.Logger)
	assert.NotNil(t, env.DataStore)
	assert.NotNil(t, env.OperationsBundle.Logger)

	source, err := env.Source()
	require.NoError(t, err)
	assert.Equal(t, "111111111111", source.ID)

	target, err := env.Target()
	require.NoError(t, err)
	assert.Equal(t, "222222222222", target.ID)
}

func Test_New_MissingAccount(t *testing.T) {
	t.Parallel()

	env := New(
		"staging",
		logger.Test(t),
		cloud.NewAccounts(cloud.Account{Role: cloud.RoleSource, ID: "111111111111"}),
		datastore.NewMemoryDataStore().Seal(),
		func() context.Context { return t.Context() },
	)

	_, err := env.Target()
	require.ErrorIs(t, err, cloud.ErrAccountNotFound)
}
