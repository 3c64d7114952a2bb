// Package localstack starts a LocalStack container for opt-in integration
// tests. The container is skipped unless the LOCALSTACK_INTEGRATION
// environment variable is set, so the suite stays hermetic by default.
package localstack

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/smartcontractkit/freeport"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// EnvVar gates the integration tests.
	EnvVar = "LOCALSTACK_INTEGRATION"

	image    = "localstack/localstack:3"
	edgePort = "4566"
	region   = "us-east-1"
)

// Container is a running LocalStack instance bound to a reserved host port.
type Container struct {
	Endpoint string
	Region   string

	container testcontainers.Container
}

// Start launches a LocalStack container exposing the given services (e.g.
// "iam", "sts", "cloudformation"). The test is skipped when the integration
// gate is not set. The container is terminated through the test cleanup.
func Start(t *testing.T, services ...string) *Container {
	t.Helper()

	if os.Getenv(EnvVar) == "" {
		t.Skipf("set %s to run LocalStack integration tests", EnvVar)
	}

	ctx := t.Context()

	// Reserve the host port explicitly to avoid conflicts with other
	// containers started by parallel packages.
	port := freeport.GetOne(t)

	req := testcontainers.ContainerRequest{
		Image: image,
		Env: map[string]string{
			"SERVICES": strings.Join(services, ","),
		},
		ExposedPorts: []string{fmt.Sprintf("%d:%s/tcp", port, edgePort)},
		WaitingFor: wait.ForLog("Ready.").
			WithStartupTimeout(2 * time.Minute).
			WithPollInterval(500 * time.Millisecond),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	return &Container{
		Endpoint:  fmt.Sprintf("http://localhost:%d", port),
		Region:    region,
		container: container,
	}
}

// Session builds an AWS session pointed at the container with static test
// credentials.
func (c *Container) Session() (*session.Session, error) {
	return session.NewSession(&aws.Config{
		Region:           aws.String(c.Region),
		Endpoint:         aws.String(c.Endpoint),
		Credentials:      credentials.NewStaticCredentials("test", "test", "test"),
		S3ForcePathStyle: aws.Bool(true),
	})
}

// Terminate stops the container early. Tests normally rely on the cleanup
// registered by Start instead.
func (c *Container) Terminate(ctx context.Context) error {
	if c.container == nil {
		return nil
	}

	return c.container.Terminate(ctx)
}
