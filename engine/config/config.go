// Package config loads and validates the framework configuration. The
// configuration lives in a YAML or JSON file and individual values can be
// overridden through environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"slices"

	"github.com/spf13/viper"
	"github.com/suzuki-shunsuke/go-convmap/convmap"
	"gopkg.in/yaml.v3"
)

// AccountConfig identifies one of the two accounts in the backup topology.
type AccountConfig struct {
	ID      string `mapstructure:"id" yaml:"id"`                     // The 12-digit AWS account ID
	Profile string `mapstructure:"profile" yaml:"profile,omitempty"` // Shared-credentials profile; empty uses the default chain
}

// ClusterConfig describes the warehouse cluster the backups protect.
type ClusterConfig struct {
	ClusterID    string `mapstructure:"cluster_id" yaml:"cluster_id"`       // The cluster identifier
	ClusterType  string `mapstructure:"cluster_type" yaml:"cluster_type"`   // single-node or multi-node
	NodeType     string `mapstructure:"node_type" yaml:"node_type"`         // e.g. ra3.xlplus
	DatabaseName string `mapstructure:"database_name" yaml:"database_name"` // The initial database name
	SubnetGroup  string `mapstructure:"subnet_group" yaml:"subnet_group,omitempty"`
}

// BackupConfig holds the scheduling and retention settings for the flows.
type BackupConfig struct {
	RetentionDays     int    `mapstructure:"retention_days" yaml:"retention_days"`         // Manual snapshots older than this are cleaned up
	BackupSchedule    string `mapstructure:"backup_schedule" yaml:"backup_schedule"`       // Cron expression for the managed backup plan
	MaxWaitMinutes    int    `mapstructure:"max_wait_minutes" yaml:"max_wait_minutes"`     // Wait budget for a single flow run; 0 uses the defaults
	SourceVaultName   string `mapstructure:"source_vault_name" yaml:"source_vault_name"`   // Backup vault in the source account
	TargetVaultARN    string `mapstructure:"target_vault_arn" yaml:"target_vault_arn"`     // Destination vault for cross-account copies; empty disables copies
	PlanFile          string `mapstructure:"plan_file" yaml:"plan_file,omitempty"`         // Path to the TOML backup plan rules
	NotificationEmail string `mapstructure:"notification_email" yaml:"notification_email,omitempty"`
}

// CatalogConfig is the configuration to connect to the snapshot catalog
// database. Empty means the catalog is kept in memory only.
type CatalogConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"` // Secret: postgres connection string
}

// Config wraps the entire configuration for the backup framework.
type Config struct {
	ResourcePrefix string        `mapstructure:"resource_prefix" yaml:"resource_prefix"`
	AWSRegion      string        `mapstructure:"aws_region" yaml:"aws_region"`
	SourceAccount  AccountConfig `mapstructure:"source_account" yaml:"source_account"`
	TargetAccount  AccountConfig `mapstructure:"target_account" yaml:"target_account"`
	Cluster        ClusterConfig `mapstructure:"cluster" yaml:"cluster"`
	Backup         BackupConfig  `mapstructure:"backup" yaml:"backup"`
	Catalog        CatalogConfig `mapstructure:"catalog" yaml:"catalog"`
}

// accountIDRe matches a 12-digit AWS account ID.
var accountIDRe = regexp.MustCompile(`^\d{12}$`)

// Validate checks the configuration for the fields every flow depends on.
func (c *Config) Validate() error {
	if c.ResourcePrefix == "" {
		return errors.New("resource_prefix is required")
	}
	if c.AWSRegion == "" {
		return errors.New("aws_region is required")
	}
	if !accountIDRe.MatchString(c.SourceAccount.ID) {
		return fmt.Errorf("source_account.id %q is not a 12-digit account ID", c.SourceAccount.ID)
	}
	if !accountIDRe.MatchString(c.TargetAccount.ID) {
		return fmt.Errorf("target_account.id %q is not a 12-digit account ID", c.TargetAccount.ID)
	}
	if c.SourceAccount.ID == c.TargetAccount.ID {
		return errors.New("source and target accounts must differ")
	}
	if c.Cluster.ClusterID == "" {
		return errors.New("cluster.cluster_id is required")
	}
	if c.Backup.RetentionDays < 1 {
		return fmt.Errorf("backup.retention_days must be at least 1, got %d", c.Backup.RetentionDays)
	}

	return nil
}

// Load loads the config from the file path, falling back to env vars if the
// file does not exist. If the file exists, any env vars that are set override
// the values loaded from the file.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filePath)

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	// If the config file exists, we continue to read it, otherwise we
	// fall back to using environment variables.
	if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

// LoadEnv loads the config from the environment variables.
func LoadEnv() (*Config, error) {
	v := viper.New()

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

// LoadFile loads the config from a file.
func LoadFile(filePath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filePath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

// EffectiveYAML renders the configuration as YAML, for the config show
// command. The config is decoded into a generic map and converted to a
// JSON-safe form first so that the output is stable regardless of how the
// config was loaded.
func EffectiveYAML(cfg *Config) ([]byte, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	var data any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	safe, err := convmap.Convert(data, nil)
	if err != nil {
		return nil, fmt.Errorf("convert config: %w", err)
	}

	return yaml.Marshal(safe)
}

// envBindings maps configuration keys to the environment variables that can
// provide their values. The first name in each list is the preferred one;
// later names are kept for compatibility with the older shell scripts. Viper
// checks each listed variable in order and uses the first one that is set.
var envBindings = map[string][]string{
	"resource_prefix":          {"BACKUP_RESOURCE_PREFIX", "RESOURCE_PREFIX"},
	"aws_region":               {"BACKUP_AWS_REGION", "AWS_REGION"},
	"source_account.id":        {"BACKUP_SOURCE_ACCOUNT_ID", "SOURCE_ACCOUNT_ID"},
	"source_account.profile":   {"BACKUP_SOURCE_PROFILE"},
	"target_account.id":        {"BACKUP_TARGET_ACCOUNT_ID", "TARGET_ACCOUNT_ID"},
	"target_account.profile":   {"BACKUP_TARGET_PROFILE"},
	"cluster.cluster_id":       {"BACKUP_CLUSTER_ID"},
	"cluster.subnet_group":     {"BACKUP_CLUSTER_SUBNET_GROUP"},
	"backup.retention_days":    {"BACKUP_RETENTION_DAYS"},
	"backup.backup_schedule":   {"BACKUP_SCHEDULE"},
	"backup.max_wait_minutes":  {"BACKUP_MAX_WAIT_MINUTES"},
	"backup.source_vault_name": {"BACKUP_SOURCE_VAULT_NAME"},
	"backup.target_vault_arn":  {"BACKUP_TARGET_VAULT_ARN"},
	"backup.plan_file":         {"BACKUP_PLAN_FILE"},
	"catalog.dsn":              {"BACKUP_CATALOG_DSN", "CATALOG_DSN"},
}

// bindEnvs binds the environment variable mappings to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(envs, 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
