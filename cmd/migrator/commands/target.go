package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/openfroyo/migrator/pkg/config"
	"github.com/openfroyo/migrator/pkg/policy"
	"github.com/openfroyo/migrator/pkg/target"
)

// openTarget connects to the default environment of the configuration file.
func openTarget(ctx context.Context, store *config.Store) (*target.DB, config.Environment, error) {
	env, found, err := store.LoadDefault()
	if err != nil {
		return nil, config.Environment{}, err
	}
	if !found {
		return nil, config.Environment{}, fmt.Errorf("configuration file %s does not exist", store.Path())
	}

	db, err := target.NewConnector().Connect(ctx, env.Params())
	if err != nil {
		return nil, env, fmt.Errorf("failed to connect to %s database %s: %w", env.Adapter, env.Name, err)
	}
	return db, env, nil
}

// newPolicyEngine creates the preflight engine with the built-in policies and, when dir is
// set, the custom policies found there.
func newPolicyEngine(ctx context.Context, logger zerolog.Logger, dir string) (*policy.Engine, error) {
	engine, err := policy.NewEngine(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy engine: %w", err)
	}
	if dir == "" {
		return engine, nil
	}
	if err := engine.LoadPolicies(ctx, []string{dir}); err != nil {
		return nil, err
	}
	return engine, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
