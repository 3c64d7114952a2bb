// Package plan loads managed backup plan rule definitions from TOML files.
package plan

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/aca-platform/redshift-backups-framework/cloud/backupsvc"
)

// Rule is one scheduling rule of a backup plan.
type Rule struct {
	Name                    string            `toml:"name"`
	Schedule                string            `toml:"schedule"`
	StartWindowMinutes      int64             `toml:"start_window_minutes"`
	CompletionWindowMinutes int64             `toml:"completion_window_minutes"`
	DeleteAfterDays         int64             `toml:"delete_after_days"`
	RecoveryPointTags       map[string]string `toml:"recovery_point_tags"`
}

// Document is the top-level structure of a plan file.
type Document struct {
	Rules []Rule `toml:"rules"`
}

// Load reads and validates a plan file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file %s: %w", path, err)
	}

	var doc Document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan file %s: %w", path, err)
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan file %s: %w", path, err)
	}

	return &doc, nil
}

// Validate checks that every rule is complete and rule names are unique.
func (d *Document) Validate() error {
	if len(d.Rules) == 0 {
		return errors.New("at least one rule is required")
	}

	seen := make(map[string]bool, len(d.Rules))
	for i, r := range d.Rules {
		if r.Name == "" {
			return fmt.Errorf("rule %d: name is required", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate rule name: %s", r.Name)
		}
		seen[r.Name] = true

		if r.Schedule == "" {
			return fmt.Errorf("rule %s: schedule is required", r.Name)
		}
		if r.DeleteAfterDays < 0 {
			return fmt.Errorf("rule %s: delete_after_days cannot be negative", r.Name)
		}
	}

	return nil
}

// PlanRules converts the document into the rules the backup service client
// expects, binding every rule to the given vault.
func (d *Document) PlanRules(vaultName string) []backupsvc.PlanRule {
	rules := make([]backupsvc.PlanRule, 0, len(d.Rules))
	for _, r := range d.Rules {
		rules = append(rules, backupsvc.PlanRule{
			RuleName:                r.Name,
			VaultName:               vaultName,
			Schedule:                r.Schedule,
			StartWindowMinutes:      r.StartWindowMinutes,
			CompletionWindowMinutes: r.CompletionWindowMinutes,
			DeleteAfterDays:         r.DeleteAfterDays,
			RecoveryPointTags:       r.RecoveryPointTags,
		})
	}

	return rules
}
