package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	fconfig "github.com/aca-platform/redshift-backups-framework/engine/config"
	fengineenv "github.com/aca-platform/redshift-backups-framework/engine/environment"
	fenvironment "github.com/aca-platform/redshift-backups-framework/environment"
)

// runtime bundles everything a command run needs: the parsed configuration,
// the initialized environment and the service clients.
type runtime struct {
	cfg     *fconfig.Config
	env     fenvironment.Environment
	clients fengineenv.Clients
	deps    *Deps
}

// loadRuntime resolves the config file flag and initializes the environment
// and clients through the injected loaders.
func loadRuntime(cmd *cobra.Command, c Config) (*runtime, error) {
	deps := c.deps()

	path, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return nil, err
	}

	cfg, err := deps.ConfigLoader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	getCtx := func() context.Context { return cmd.Context() }

	env, err := deps.EnvironmentLoader(getCtx, c.Logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	clients, err := deps.ClientsLoader(env)
	if err != nil {
		return nil, fmt.Errorf("failed to build clients: %w", err)
	}

	return &runtime{cfg: cfg, env: env, clients: clients, deps: deps}, nil
}

// printJSON writes v to the command's output as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	cmd.Println(string(b))

	return nil
}
