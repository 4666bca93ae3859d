// Command keyguard-cli administers API keys directly against the configured
// store and validates keyguard configuration files.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ferro-labs/keyguard"
	"github.com/ferro-labs/keyguard/internal/store"
	"github.com/ferro-labs/keyguard/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "keyguard-cli",
		Short: "keyguard command line tool",
		Long: `keyguard-cli issues, inspects and revokes API keys in the store
selected by a keyguard config file.

Examples:
  keyguard-cli --config keyguard.yaml generate --issuee billing-service
  keyguard-cli --config keyguard.yaml status 5f1c0e2a-...
  keyguard-cli validate keyguard.yaml`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", os.Getenv("KEYGUARD_CONFIG"), "Config file (JSON/YAML); defaults to $KEYGUARD_CONFIG. Write commands need a persistent store")

	root.AddCommand(
		newGenerateCmd(),
		newUpsertCmd(),
		newDeleteCmd(),
		newStatusCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads --config, falling back to DefaultConfig.
func loadConfig(cmd *cobra.Command) (keyguard.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return keyguard.DefaultConfig(), nil
	}
	cfg, err := keyguard.LoadConfig(path)
	if err != nil {
		return keyguard.Config{}, err
	}
	if err := keyguard.ValidateConfig(*cfg); err != nil {
		return keyguard.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return *cfg, nil
}

// errEphemeralStore is returned by write commands when the configured store
// would discard the change on exit.
var errEphemeralStore = errors.New("the memory store is discarded when keyguard-cli exits; pass --config or set KEYGUARD_CONFIG to a persistent backend")

// openManager opens the configured store and returns a KeyManager on it.
// Write commands refuse the memory backend. The caller must invoke the
// returned close function.
func openManager(ctx context.Context, cmd *cobra.Command, write bool) (*keyguard.KeyManager, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if write && (cfg.Store.Backend == "" || cfg.Store.Backend == keyguard.BackendMemory) {
		return nil, nil, errEphemeralStore
	}
	s, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	m, err := keyguard.NewKeyManager(s, keyguard.WithHeader(cfg.Header))
	if err != nil {
		_ = s.Close()
		return nil, nil, err
	}
	return m, func() { _ = s.Close() }, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "keyguard-cli %s\n", version.String())
		},
	}
}
