package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aca-platform/redshift-backups-framework/datastore"
)

// Store is a Postgres-backed catalog of snapshot and recovery point
// references. It loads into and syncs from the in-memory data store the
// flows operate on.
type Store struct {
	db *dbController
}

// Open connects to the database at the given DSN using the Postgres driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return NewStore(db), nil
}

// NewStore creates a Store on top of an existing connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: newDbController(db)}
}

// EnsureSchema creates the catalog tables. It is intended for first-run
// setup and tests; existing tables cause an error.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, schema := range []string{schemaSnapshotRefs, schemaRecoveryPointRefs, schemaEnvironmentMetadata} {
		if err := s.db.Fixture(ctx, schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// UpsertSnapshotRef inserts or replaces a snapshot reference.
func (s *Store) UpsertSnapshotRef(ctx context.Context, ref datastore.SnapshotRef) error {
	labels, err := marshalLabels(ref.Labels)
	if err != nil {
		return err
	}

	var exists int
	err = s.db.QueryRow(ctx,
		`SELECT 1 FROM snapshot_refs WHERE owner_account = $1 AND region = $2 AND snapshot_id = $3`,
		ref.OwnerAccount, ref.Region, ref.SnapshotID).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.Exec(ctx,
			`INSERT INTO snapshot_refs (owner_account, region, snapshot_id, cluster_id, status, created_at, labels)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			ref.OwnerAccount, ref.Region, ref.SnapshotID, ref.ClusterID, ref.Status,
			ref.CreatedAt.UTC().Format(time.RFC3339), labels)
	case err == nil:
		_, err = s.db.Exec(ctx,
			`UPDATE snapshot_refs SET cluster_id = $4, status = $5, created_at = $6, labels = $7
			 WHERE owner_account = $1 AND region = $2 AND snapshot_id = $3`,
			ref.OwnerAccount, ref.Region, ref.SnapshotID, ref.ClusterID, ref.Status,
			ref.CreatedAt.UTC().Format(time.RFC3339), labels)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot ref %s: %w", ref.SnapshotID, err)
	}

	return nil
}

// GetSnapshotRef returns the snapshot reference with the given key, or
// datastore.ErrSnapshotRefNotFound.
func (s *Store) GetSnapshotRef(ctx context.Context, key datastore.SnapshotRefKey) (datastore.SnapshotRef, error) {
	rows, err := s.db.Query(ctx,
		`SELECT owner_account, region, snapshot_id, cluster_id, status, created_at, labels
		 FROM snapshot_refs WHERE owner_account = $1 AND region = $2 AND snapshot_id = $3`,
		key.OwnerAccount(), key.Region(), key.SnapshotID())
	if err != nil {
		return datastore.SnapshotRef{}, fmt.Errorf("failed to query snapshot ref: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return datastore.SnapshotRef{}, datastore.ErrSnapshotRefNotFound
	}

	return scanSnapshotRef(rows)
}

// ListSnapshotRefs returns all snapshot references in the catalog.
func (s *Store) ListSnapshotRefs(ctx context.Context) ([]datastore.SnapshotRef, error) {
	rows, err := s.db.Query(ctx,
		`SELECT owner_account, region, snapshot_id, cluster_id, status, created_at, labels FROM snapshot_refs`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot refs: %w", err)
	}
	defer rows.Close()

	var refs []datastore.SnapshotRef
	for rows.Next() {
		ref, err := scanSnapshotRef(rows)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}

// DeleteSnapshotRef removes a snapshot reference from the catalog.
func (s *Store) DeleteSnapshotRef(ctx context.Context, key datastore.SnapshotRefKey) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM snapshot_refs WHERE owner_account = $1 AND region = $2 AND snapshot_id = $3`,
		key.OwnerAccount(), key.Region(), key.SnapshotID())
	if err != nil {
		return fmt.Errorf("failed to delete snapshot ref %s: %w", key.SnapshotID(), err)
	}

	return nil
}

// UpsertRecoveryPointRef inserts or replaces a recovery point reference.
func (s *Store) UpsertRecoveryPointRef(ctx context.Context, ref datastore.RecoveryPointRef) error {
	labels, err := marshalLabels(ref.Labels)
	if err != nil {
		return err
	}

	var exists int
	err = s.db.QueryRow(ctx,
		`SELECT 1 FROM recovery_point_refs WHERE vault_name = $1 AND arn = $2`,
		ref.VaultName, ref.ARN).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.Exec(ctx,
			`INSERT INTO recovery_point_refs (vault_name, arn, resource_arn, status, created_at, labels)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			ref.VaultName, ref.ARN, ref.ResourceARN, ref.Status,
			ref.CreatedAt.UTC().Format(time.RFC3339), labels)
	case err == nil:
		_, err = s.db.Exec(ctx,
			`UPDATE recovery_point_refs SET resource_arn = $3, status = $4, created_at = $5, labels = $6
			 WHERE vault_name = $1 AND arn = $2`,
			ref.VaultName, ref.ARN, ref.ResourceARN, ref.Status,
			ref.CreatedAt.UTC().Format(time.RFC3339), labels)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert recovery point ref %s: %w", ref.ARN, err)
	}

	return nil
}

// ListRecoveryPointRefs returns all recovery point references in the catalog.
func (s *Store) ListRecoveryPointRefs(ctx context.Context) ([]datastore.RecoveryPointRef, error) {
	rows, err := s.db.Query(ctx,
		`SELECT vault_name, arn, resource_arn, status, created_at, labels FROM recovery_point_refs`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recovery point refs: %w", err)
	}
	defer rows.Close()

	var refs []datastore.RecoveryPointRef
	for rows.Next() {
		var (
			ref       datastore.RecoveryPointRef
			createdAt string
			labels    sql.NullString
		)
		if err := rows.Scan(&ref.VaultName, &ref.ARN, &ref.ResourceARN, &ref.Status, &createdAt, &labels); err != nil {
			return nil, fmt.Errorf("failed to scan recovery point ref: %w", err)
		}
		if ref.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse recovery point created_at: %w", err)
		}
		if ref.Labels, err = unmarshalLabels(labels); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}

// DeleteRecoveryPointRef removes a recovery point reference from the catalog.
func (s *Store) DeleteRecoveryPointRef(ctx context.Context, key datastore.RecoveryPointRefKey) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM recovery_point_refs WHERE vault_name = $1 AND arn = $2`,
		key.VaultName(), key.ARN())
	if err != nil {
		return fmt.Errorf("failed to delete recovery point ref %s: %w", key.ARN(), err)
	}

	return nil
}

// SetEnvMetadata stores the single environment metadata record.
func (s *Store) SetEnvMetadata(ctx context.Context, meta datastore.EnvMetadata) error {
	b, err := json.Marshal(meta.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal environment metadata: %w", err)
	}

	var exists int
	err = s.db.QueryRow(ctx, `SELECT 1 FROM environment_metadata WHERE id = 1`).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.Exec(ctx,
			`INSERT INTO environment_metadata (id, environment, metadata) VALUES (1, $1, $2)`,
			meta.Environment, string(b))
	case err == nil:
		_, err = s.db.Exec(ctx,
			`UPDATE environment_metadata SET environment = $1, metadata = $2 WHERE id = 1`,
			meta.Environment, string(b))
	}
	if err != nil {
		return fmt.Errorf("failed to set environment metadata: %w", err)
	}

	return nil
}

// GetEnvMetadata returns the environment metadata record, or
// datastore.ErrEnvMetadataNotSet if none was stored.
func (s *Store) GetEnvMetadata(ctx context.Context) (datastore.EnvMetadata, error) {
	rows, err := s.db.Query(ctx, `SELECT environment, metadata FROM environment_metadata WHERE id = 1`)
	if err != nil {
		return datastore.EnvMetadata{}, fmt.Errorf("failed to query environment metadata: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return datastore.EnvMetadata{}, datastore.ErrEnvMetadataNotSet
	}

	var (
		meta datastore.EnvMetadata
		raw  string
	)
	if err := rows.Scan(&meta.Environment, &raw); err != nil {
		return datastore.EnvMetadata{}, fmt.Errorf("failed to scan environment metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &meta.Metadata); err != nil {
		return datastore.EnvMetadata{}, fmt.Errorf("failed to unmarshal environment metadata: %w", err)
	}

	return meta, nil
}

// Load hydrates an in-memory data store with the catalog contents.
func (s *Store) Load(ctx context.Context) (*datastore.MemoryDataStore, error) {
	ds := datastore.NewMemoryDataStore()

	snapshots, err := s.ListSnapshotRefs(ctx)
	if err != nil {
		return nil, err
	}
	for _, ref := range snapshots {
		if err = ds.Snapshots().Upsert(ref); err != nil {
			return nil, err
		}
	}

	points, err := s.ListRecoveryPointRefs(ctx)
	if err != nil {
		return nil, err
	}
	for _, ref := range points {
		if err = ds.RecoveryPoints().Upsert(ref); err != nil {
			return nil, err
		}
	}

	meta, err := s.GetEnvMetadata(ctx)
	if err != nil && !errors.Is(err, datastore.ErrEnvMetadataNotSet) {
		return nil, err
	}
	if err == nil {
		if err = ds.EnvMetadata().Set(meta); err != nil {
			return nil, err
		}
	}

	return ds, nil
}

// Sync writes the contents of a data store into the catalog inside a single
// transaction.
func (s *Store) Sync(ctx context.Context, ds datastore.DataStore) error {
	if err := s.db.Begin(); err != nil {
		return err
	}

	if err := s.syncLocked(ctx, ds); err != nil {
		if rbErr := s.db.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}

		return err
	}

	return s.db.Commit()
}

func (s *Store) syncLocked(ctx context.Context, ds datastore.DataStore) error {
	snapshots, err := ds.Snapshots().Fetch()
	if err != nil {
		return err
	}
	for _, ref := range snapshots {
		if err = s.UpsertSnapshotRef(ctx, ref); err != nil {
			return err
		}
	}

	points, err := ds.RecoveryPoints().Fetch()
	if err != nil {
		return err
	}
	for _, ref := range points {
		if err = s.UpsertRecoveryPointRef(ctx, ref); err != nil {
			return err
		}
	}

	meta, err := ds.EnvMetadata().Get()
	if err != nil {
		if errors.Is(err, datastore.ErrEnvMetadataNotSet) {
			return nil
		}

		return err
	}

	return s.SetEnvMetadata(ctx, meta)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshotRef(row rowScanner) (datastore.SnapshotRef, error) {
	var (
		ref       datastore.SnapshotRef
		createdAt string
		labels    sql.NullString
	)
	if err := row.Scan(&ref.OwnerAccount, &ref.Region, &ref.SnapshotID, &ref.ClusterID, &ref.Status, &createdAt, &labels); err != nil {
		return datastore.SnapshotRef{}, fmt.Errorf("failed to scan snapshot ref: %w", err)
	}

	var err error
	if ref.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return datastore.SnapshotRef{}, fmt.Errorf("failed to parse snapshot created_at: %w", err)
	}
	if ref.Labels, err = unmarshalLabels(labels); err != nil {
		return datastore.SnapshotRef{}, err
	}

	return ref, nil
}

func marshalLabels(labels datastore.LabelSet) (string, error) {
	b, err := json.Marshal(labels)
	if err != nil {
		return "", fmt.Errorf("failed to marshal labels: %w", err)
	}

	return string(b), nil
}

func unmarshalLabels(raw sql.NullString) (datastore.LabelSet, error) {
	if !raw.Valid || raw.String == "" {
		return datastore.NewLabelSet(), nil
	}

	var labels datastore.LabelSet
	if err := json.Unmarshal([]byte(raw.String), &labels); err != nil {
		return datastore.LabelSet{}, fmt.Errorf("failed to unmarshal labels: %w", err)
	}

	return labels, nil
}
