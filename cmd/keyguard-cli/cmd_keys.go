package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ferro-labs/keyguard"
)

func addRecordFlags(cmd *cobra.Command) {
	cmd.Flags().String("issuee", "", "Who the key is issued to")
	cmd.Flags().String("expires", "", "Expiry as RFC3339 time or duration from now (e.g. 720h)")
	cmd.Flags().Bool("inactive", false, "Store the key deactivated")
}

// recordFromFlags builds a KeyRecord from the record flags.
func recordFromFlags(cmd *cobra.Command, now time.Time) (keyguard.KeyRecord, error) {
	issuee, _ := cmd.Flags().GetString("issuee")
	expires, _ := cmd.Flags().GetString("expires")
	inactive, _ := cmd.Flags().GetBool("inactive")

	issuee = strings.TrimSpace(issuee)
	if issuee == "" {
		return keyguard.KeyRecord{}, fmt.Errorf("--issuee is required")
	}
	rec := keyguard.NewKeyRecord(issuee)
	rec.IsActive = !inactive
	if expires != "" {
		t, err := parseExpiry(expires, now)
		if err != nil {
			return keyguard.KeyRecord{}, err
		}
		rec = rec.WithExpiry(t)
	}
	return rec, nil
}

// parseExpiry accepts an RFC3339 timestamp or a duration added to now.
func parseExpiry(raw string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --expires %q: must be RFC3339 or a duration", raw)
	}
	return now.Add(d).UTC().Truncate(time.Second), nil
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new API key and store its record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := recordFromFlags(cmd, time.Now())
			if err != nil {
				return err
			}
			m, closeStore, err := openManager(cmd.Context(), cmd, true)
			if err != nil {
				return err
			}
			defer closeStore()

			key, err := m.GenerateKey()
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			if err := m.Upsert(cmd.Context(), key, rec); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	addRecordFlags(cmd)
	return cmd
}

func newUpsertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upsert <key>",
		Short: "Create or overwrite the record for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := recordFromFlags(cmd, time.Now())
			if err != nil {
				return err
			}
			m, closeStore, err := openManager(cmd.Context(), cmd, true)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := m.Upsert(cmd.Context(), args[0], rec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Stored key for %s (%s)\n", rec.IssueeName(), m.Status(&rec))
			return nil
		},
	}
	addRecordFlags(cmd)
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete the record for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeStore, err := openManager(cmd.Context(), cmd, true)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := m.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Deleted")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <key>",
		Short: "Show the record and status of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeStore, err := openManager(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer closeStore()

			rec, status, err := m.Inspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := struct {
				Status keyguard.KeyStatus  `json:"status"`
				Record *keyguard.KeyRecord `json:"record,omitempty"`
			}{Status: status}
			if status != keyguard.StatusDoesNotExist {
				out.Record = rec
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
