package main

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one sync cycle and print the outcome",
		Long: `Run a single sync cycle and print the outcome as JSON on stdout.

The exit status is 0 when the cycle completed (even with upsert errors) and
1 when it failed.

Example:
  contactsync run --reset --upsert-mode concurrent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.loadConfig()
			if reset {
				cfg.Sync.Reset = true
			}
			log := newLogger(root.logLevel)

			// A fresh registry keeps one-shot runs from touching global state.
			a, err := newApp(cmd.Context(), cfg, log, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Error("failed to release resources", "error", err)
				}
			}()

			if reset {
				// The flag must win over a persisted state.
				if err := a.forceReset(cmd.Context()); err != nil {
					return fmt.Errorf("reset sync state: %w", err)
				}
			}

			out, err := a.sync(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("encode outcome: %w", err)
			}
			if out.Failed() {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "ignore the last sync time and pull every provider")
	return cmd
}
