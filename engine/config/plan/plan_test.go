package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPlanTOML = `
[[rules]]
name = "daily"
schedule = "cron(0 3 * * ? *)"
start_window_minutes = 60
completion_window_minutes = 180
delete_after_days = 35

[[rules]]
name = "weekly"
schedule = "cron(0 4 ? * SUN *)"
delete_after_days = 90

[rules.recovery_point_tags]
Tier = "cold"
`

func writePlanFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "plan.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func Test_Load(t *testing.T) {
	t.Parallel()

	doc, err := Load(writePlanFile(t, testPlanTOML))
	require.NoError(t, err)
	require.Len(t, doc.Rules, 2)

	daily := doc.Rules[0]
	assert.Equal(t, "daily", daily.Name)
	assert.Equal(t, "cron(0 3 * * ? *)", daily.Schedule)
	assert.Equal(t, int64(60), daily.StartWindowMinutes)
	assert.Equal(t, int64(180), daily.CompletionWindowMinutes)
	assert.Equal(t, int64(35), daily.DeleteAfterDays)

	weekly := doc.Rules[1]
	assert.Equal(t, "weekly", weekly.Name)
	assert.Equal(t, map[string]string{"Tier": "cold"}, weekly.RecoveryPointTags)
}

func Test_Load_NotFound(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func Test_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     Document
		wantErr string
	}{
		{
			name:    "empty",
			doc:     Document{},
			wantErr: "at least one rule",
		},
		{
			name:    "missing name",
			doc:     Document{Rules: []Rule{{Schedule: "cron(0 3 * * ? *)"}}},
			wantErr: "name is required",
		},
		{
			name: "duplicate name",
			doc: Document{Rules: []Rule{
				{Name: "daily", Schedule: "cron(0 3 * * ? *)"},
				{Name: "daily", Schedule: "cron(0 4 * * ? *)"},
			}},
			wantErr: "duplicate rule name",
		},
		{
			name:    "missing schedule",
			doc:     Document{Rules: []Rule{{Name: "daily"}}},
			wantErr: "schedule is required",
		},
		{
			name:    "negative lifecycle",
			doc:     Document{Rules: []Rule{{Name: "daily", Schedule: "cron(0 3 * * ? *)", DeleteAfterDays: -1}}},
			wantErr: "cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.ErrorContains(t, tt.doc.Validate(), tt.wantErr)
		})
	}
}

func Test_PlanRules(t *testing.T) {
	t.Parallel()

	doc := Document{Rules: []Rule{
		{Name: "daily", Schedule: "cron(0 3 * * ? *)", DeleteAfterDays: 35},
	}}

	rules := doc.PlanRules("aca-backup-vault")
	require.Len(t, rules, 1)
	assert.Equal(t, "daily", rules[0].RuleName)
	assert.Equal(t, "aca-backup-vault", rules[0].VaultName)
	assert.Equal(t, int64(35), rules[0].DeleteAfterDays)
}
