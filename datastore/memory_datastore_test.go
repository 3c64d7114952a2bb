package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSnapshotRef(id string) SnapshotRef {
	return SnapshotRef{
		OwnerAccount: "111111111111",
		Region:       "eu-west-1",
		SnapshotID:   id,
		ClusterID:    "analytics",
		Status:       "available",
		CreatedAt:    time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC),
	}
}

func Test_MemorySnapshotRefStore_AddGetDelete(t *testing.T) {
	t.Parallel()

	store := NewMemorySnapshotRefStore()
	ref := newSnapshotRef("snap-1")

	require.NoError(t, store.Add(ref))
	require.ErrorIs(t, store.Add(ref), ErrSnapshotRefExists)

	got, err := store.Get(ref.Key())
	require.NoError(t, err)
	assert.Equal(t, "snap-1", got.SnapshotID)

	require.NoError(t, store.Delete(ref.Key()))
	_, err = store.Get(ref.Key())
	require.ErrorIs(t, err, ErrSnapshotRefNotFound)
}

func Test_MemorySnapshotRefStore_Upsert(t *testing.T) {
	t.Parallel()

	store := NewMemorySnapshotRefStore()
	ref := newSnapshotRef("snap-1")

	require.NoError(t, store.Upsert(ref))

	ref.Status = "failed"
	require.NoError(t, store.Upsert(ref))

	got, err := store.Get(ref.Key())
	require.NoError(t, err)
	assert.Equal(t, "failed", got.Status)

	records, err := store.Fetch()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func Test_MemorySnapshotRefStore_Update_NotFound(t *testing.T) {
	t.Parallel()

	store := NewMemorySnapshotRefStore()
	require.ErrorIs(t, store.Update(newSnapshotRef("snap-1")), ErrSnapshotRefNotFound)
}

func Test_MemorySnapshotRefStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	store := NewMemorySnapshotRefStore()
	ref := newSnapshotRef("snap-1")
	ref.Labels = NewLabelSet("nightly")
	require.NoError(t, store.Add(ref))

	got, err := store.Get(ref.Key())
	require.NoError(t, err)
	got.Labels.Add("mutated")

	again, err := store.Get(ref.Key())
	require.NoError(t, err)
	assert.False(t, again.Labels.Contains("mutated"))
}

func Test_MemoryEnvMetadataStore(t *testing.T) {
	t.Parallel()

	store := NewMemoryEnvMetadataStore()

	_, err := store.Get()
	require.ErrorIs(t, err, ErrEnvMetadataNotSet)

	require.NoError(t, store.Set(EnvMetadata{Environment: "staging", Metadata: map[string]any{"region": "eu-west-1"}}))

	got, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "staging", got.Environment)
}

func Test_MemoryDataStore_SealAndMerge(t *testing.T) {
	t.Parallel()

	base := NewMemoryDataStore()
	require.NoError(t, base.Snapshots().Add(newSnapshotRef("snap-1")))

	other := NewMemoryDataStore()
	require.NoError(t, other.Snapshots().Add(newSnapshotRef("snap-2")))
	require.NoError(t, other.RecoveryPoints().Add(RecoveryPointRef{
		VaultName:   "analytics-backups",
		ARN:         "arn:rp:1",
		ResourceARN: "arn:cluster:analytics",
		Status:      "COMPLETED",
	}))
	require.NoError(t, other.EnvMetadata().Set(EnvMetadata{Environment: "staging"}))

	require.NoError(t, base.Merge(other.Seal()))

	snapshots, err := base.Snapshots().Fetch()
	require.NoError(t, err)
	assert.Len(t, snapshots, 2)

	points, err := base.RecoveryPoints().Fetch()
	require.NoError(t, err)
	assert.Len(t, points, 1)

	meta, err := base.EnvMetadata().Get()
	require.NoError(t, err)
	assert.Equal(t, "staging", meta.Environment)
}

func Test_MemoryDataStore_Merge_NoEnvMetadata(t *testing.T) {
	t.Parallel()

	base := NewMemoryDataStore()
	require.NoError(t, base.EnvMetadata().Set(EnvMetadata{Environment: "staging"}))

	require.NoError(t, base.Merge(NewMemoryDataStore().Seal()))

	meta, err := base.EnvMetadata().Get()
	require.NoError(t, err)
	assert.Equal(t, "staging", meta.Environment)
}

func Test_SnapshotRef_QualifiedID(t *testing.T) {
	t.Parallel()

	ref := newSnapshotRef("snap-1")
	assert.Equal(t, "111111111111:snap-1", ref.QualifiedID())
}
