package pg

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aca-platform/redshift-backups-framework/datastore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store := NewStore(openRamDBForTest(t))
	require.NoError(t, store.EnsureSchema(t.Context()))

	return store
}

func testSnapshotRef(id string) datastore.SnapshotRef {
	return datastore.SnapshotRef{
		OwnerAccount: "111111111111",
		Region:       "eu-west-1",
		SnapshotID:   id,
		ClusterID:    "analytics",
		Status:       "available",
		CreatedAt:    time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC),
		Labels:       datastore.NewLabelSet("nightly"),
	}
}

func Test_Store_SnapshotRef_RoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ref := testSnapshotRef("snap-1")

	require.NoError(t, store.UpsertSnapshotRef(t.Context(), ref))

	got, err := store.GetSnapshotRef(t.Context(), ref.Key())
	require.NoError(t, err)
	assert.Equal(t, "snap-1", got.SnapshotID)
	assert.Equal(t, "analytics", got.ClusterID)
	assert.True(t, got.CreatedAt.Equal(ref.CreatedAt))
	assert.True(t, got.Labels.Contains("nightly"))
}

func Test_Store_SnapshotRef_UpsertReplaces(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ref := testSnapshotRef("snap-1")
	require.NoError(t, store.UpsertSnapshotRef(t.Context(), ref))

	ref.Status = "deleted"
	require.NoError(t, store.UpsertSnapshotRef(t.Context(), ref))

	refs, err := store.ListSnapshotRefs(t.Context())
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "deleted", refs[0].Status)
}

func Test_Store_SnapshotRef_Delete(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ref := testSnapshotRef("snap-1")
	require.NoError(t, store.UpsertSnapshotRef(t.Context(), ref))

	require.NoError(t, store.DeleteSnapshotRef(t.Context(), ref.Key()))

	_, err := store.GetSnapshotRef(t.Context(), ref.Key())
	require.ErrorIs(t, err, datastore.ErrSnapshotRefNotFound)
}

func Test_Store_RecoveryPointRef_RoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ref := datastore.RecoveryPointRef{
		VaultName:   "analytics-backups",
		ARN:         "arn:rp:1",
		ResourceARN: "arn:cluster:analytics",
		Status:      "COMPLETED",
		CreatedAt:   time.Date(2025, 6, 1, 4, 0, 0, 0, time.UTC),
	}

	require.NoError(t, store.UpsertRecoveryPointRef(t.Context(), ref))

	refs, err := store.ListRecoveryPointRefs(t.Context())
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "arn:rp:1", refs[0].ARN)

	require.NoError(t, store.DeleteRecoveryPointRef(t.Context(), ref.Key()))

	refs, err = store.ListRecoveryPointRefs(t.Context())
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func Test_Store_EnvMetadata(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.GetEnvMetadata(t.Context())
	require.ErrorIs(t, err, datastore.ErrEnvMetadataNotSet)

	meta := datastore.EnvMetadata{
		Environment: "staging",
		Metadata:    map[string]any{"region": "eu-west-1"},
	}
	require.NoError(t, store.SetEnvMetadata(t.Context(), meta))

	got, err := store.GetEnvMetadata(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "staging", got.Environment)

	meta.Environment = "production"
	require.NoError(t, store.SetEnvMetadata(t.Context(), meta))

	got, err = store.GetEnvMetadata(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "production", got.Environment)
}

func Test_Store_LoadAndSync(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	ds := datastore.NewMemoryDataStore()
	require.NoError(t, ds.Snapshots().Add(testSnapshotRef("snap-1")))
	require.NoError(t, ds.Snapshots().Add(testSnapshotRef("snap-2")))
	require.NoError(t, ds.EnvMetadata().Set(datastore.EnvMetadata{Environment: "staging"}))

	require.NoError(t, store.Sync(t.Context(), ds.Seal()))

	loaded, err := store.Load(t.Context())
	require.NoError(t, err)

	refs, err := loaded.Snapshots().Fetch()
	require.NoError(t, err)
	assert.Len(t, refs, 2)

	meta, err := loaded.EnvMetadata().Get()
	require.NoError(t, err)
	assert.Equal(t, "staging", meta.Environment)
}

func Test_Store_Postgres_RoundTrip(t *testing.T) {
	// Requires a local postgres installation.
	if os.Getenv("CATALOG_PG_TESTS") == "" {
		t.Skip("set CATALOG_PG_TESTS to run postgres-backed catalog tests")
	}

	store := NewStore(openPostgresForTest(t))
	require.NoError(t, store.EnsureSchema(t.Context()))

	ref := testSnapshotRef("snap-pg")
	require.NoError(t, store.UpsertSnapshotRef(t.Context(), ref))

	got, err := store.GetSnapshotRef(t.Context(), ref.Key())
	require.NoError(t, err)
	assert.Equal(t, "snap-pg", got.SnapshotID)
}
