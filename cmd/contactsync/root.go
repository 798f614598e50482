package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contactsync/internal/platform/config"
)

// rootOptions holds flags shared by every command. Flags override the
// CONTACTSYNC_* environment.
type rootOptions struct {
	upsertMode string
	logLevel   string
}

// exitError carries a process exit code without printing anything.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "contactsync",
		Short: "Synchronize a CSD provider directory with a contact API",
		Long: `contactsync pulls providers from a CSD directory, reconciles them against
contacts in the contact API, writes the merged contacts back and loads the
updated contacts into the directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			switch opts.upsertMode {
			case "", config.UpsertSequential, config.UpsertConcurrent:
				return nil
			}
			return fmt.Errorf("invalid upsert mode %q: must be %s or %s",
				opts.upsertMode, config.UpsertSequential, config.UpsertConcurrent)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.upsertMode, "upsert-mode", "", "upsert fan-out (sequential|concurrent)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

// loadConfig reads the environment and applies flag overrides.
func (o *rootOptions) loadConfig() config.Config {
	cfg := config.FromEnv()
	if o.upsertMode != "" {
		cfg.Sync.UpsertMode = o.upsertMode
	}
	return cfg
}
