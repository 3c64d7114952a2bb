package pg

// Timestamps are stored as RFC 3339 text so that the schema also works on
// the reduced SQL dialects used in tests.
const (
	schemaSnapshotRefs = `
		CREATE TABLE snapshot_refs (
		owner_account            varchar(255) not null,
		region                   varchar(255) not null,
		snapshot_id              varchar(255) not null,
		cluster_id               varchar(255) not null,
		status                   varchar(255) not null,
		created_at               varchar(64) not null,
		labels                   text,

		PRIMARY KEY(owner_account, region, snapshot_id)
		);`

	schemaRecoveryPointRefs = `
		CREATE TABLE recovery_point_refs (
		vault_name               varchar(255) not null,
		arn                      varchar(512) not null,
		resource_arn             varchar(512) not null,
		status                   varchar(255) not null,
		created_at               varchar(64) not null,
		labels                   text,

		PRIMARY KEY(vault_name, arn)
		);`

	schemaEnvironmentMetadata = `
		CREATE TABLE environment_metadata (
		id           INTEGER not null,
		environment  varchar(255) not null,
		metadata     text,

		PRIMARY KEY(id)
		);`
)
