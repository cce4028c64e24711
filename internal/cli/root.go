// Package cli implements playlogctl, the operator command line: data dumps, export
// tokens, key generation and the rejection audit log.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"playlog/backend/internal/config"
	"playlog/backend/internal/db"
)

// version is reported by playlogctl version.
var version = "dev"

// NewRootCommand returns the playlogctl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "playlogctl",
		Short:         "Operate a playlog telemetry store",
		Long:          "playlogctl dumps stored sessions, issues export tokens and generates release keys.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("db", "", "Database URL (overrides DATABASE_URL)")

	root.AddCommand(newDumpCommand())
	root.AddCommand(newTokenCommand())
	root.AddCommand(newKeygenCommand())
	root.AddCommand(newAuditCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs playlogctl with the process arguments.
func Execute() error {
	return NewRootCommand().Execute()
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the playlogctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "playlogctl", version)
		},
	}
}

// openStore opens the database named by --db, falling back to the configured DATABASE_URL.
func openStore(cmd *cobra.Command) (*db.DB, error) {
	dsn, _ := cmd.Flags().GetString("db")
	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		dsn = cfg.DatabaseURL
	}
	store, err := db.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}
