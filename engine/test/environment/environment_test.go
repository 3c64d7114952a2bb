package environment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aca-platform/redshift-backups-framework/cloud"
	"github.com/aca-platform/redshift-backups-framework/datastore"
)

func Test_New_Defaults(t *testing.T) {
	t.Parallel()

	env, err := New(t.Context())
	require.NoError(t, err)

	assert.Equal(t, environmentName, env.Name)
	require.NotNil(t, env.DataStore)
	require.NotNil(t, env.GetContext)

	source, err := env.Source()
	require.NoError(t, err)
	assert.Equal(t, defaultSourceAccountID, source.ID)

	target, err := env.Target()
	require.NoError(t, err)
	assert.Equal(t, defaultTargetAccountID, target.ID)
}

func Test_New_WithOptions(t *testing.T) {
	t.Parallel()

	ds := datastore.NewMemoryDataStore()
	require.NoError(t, ds.SnapshotRefStore.Add(datastore.SnapshotRef{
		OwnerAccount: "333333333333",
		Region:       "eu-west-1",
		SnapshotID:   "nightly-analytics-20250801-030000",
		ClusterID:    "analytics",
	}))

	env, err := New(t.Context(),
		WithTestLogger(t),
		WithAccounts(cloud.Account{Role: cloud.RoleSource, ID: "333333333333", Region: "eu-west-1"}),
		WithDataStore(ds.Seal()),
	)
	require.NoError(t, err)

	source, err := env.Source()
	require.NoError(t, err)
	assert.Equal(t, "333333333333", source.ID)

	// Accounts provided by the test replace the stub target as well.
	_, err = env.Target()
	require.ErrorIs(t, err, cloud.ErrAccountNotFound)

	refs, err := env.DataStore.Snapshots().Fetch()
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "analytics", refs[0].ClusterID)
}

func Test_Load_OptionErrorsAreJoined(t *testing.T) {
	t.Parallel()

	errOne := errors.New("one")
	errTwo := errors.New("two")

	failing := func(err error) LoadOpt {
		return func(*components) error { return err }
	}

	_, err := New(t.Context(), failing(errOne), failing(errTwo))
	require.ErrorIs(t, err, errOne)
	require.ErrorIs(t, err, errTwo)
}
