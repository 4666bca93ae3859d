package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ferro-labs/keyguard"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a keyguard configuration file (JSON/YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := keyguard.LoadConfig(args[0])
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := keyguard.ValidateConfig(*cfg); err != nil {
				return fmt.Errorf("validation error: %w", err)
			}

			backend := cfg.Store.Backend
			if backend == "" {
				backend = keyguard.BackendMemory
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Config is valid\n")
			fmt.Fprintf(out, "  Header:  %s\n", cfg.Header)
			fmt.Fprintf(out, "  Store:   %s\n", backend)
			fmt.Fprintf(out, "  Listen:  %s\n", cfg.Server.Addr)
			return nil
		},
	}
}
