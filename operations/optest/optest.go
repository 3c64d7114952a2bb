// Package optest provides test helpers for packages that execute operations.
package optest

import (
	"testing"

	"github.com/aca-platform/redshift-backups-framework/pkg/logger"

	"github.com/aca-platform/redshift-backups-framework/operations"
)

// NewBundle returns a Bundle backed by the test's context, a no-op logger
// and an in-memory reporter. Each call gets a fresh reporter, so reports do
// not leak between tests.
func NewBundle(t *testing.T) operations.Bundle {
	t.Helper()

	return operations.NewBundle(
		t.Context, logger.Nop(), operations.NewMemoryReporter(),
	)
}
