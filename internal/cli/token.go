package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"playlog/backend/internal/config"
	"playlog/backend/internal/security"
)

func newTokenCommand() *cobra.Command {
	var (
		subject  string
		role     string
		releases []string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator export token",
		Long: "token signs an export JWT with EXPORT_JWT_PRIVATE_KEY. --release limits the token to\n" +
			"those releases; pass --release '*' for every release.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}
			scoped, err := canonicalReleases(releases)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.ExportJWTPrivateKey == "" {
				return fmt.Errorf("EXPORT_JWT_PRIVATE_KEY is not set")
			}
			priv, err := security.ParsePrivateKey(cfg.ExportJWTPrivateKey)
			if err != nil {
				return err
			}
			provider := security.NewTokenProvider(priv, priv.Public(), cfg.ExportJWTIssuer, cfg.ExportJWTAudience, cfg.ExportTokenTTL())
			token, expires, err := provider.IssueExport(subject, role, scoped)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Operator the token is issued to")
	cmd.Flags().StringVar(&role, "role", "analyst", "Role passed to the export policy (admin sees every release)")
	cmd.Flags().StringSliceVar(&releases, "release", nil, "Release ids the token may export (repeatable)")
	return cmd
}

// canonicalReleases lower-cases release uuids so they match stored ids. "*" passes through.
func canonicalReleases(releases []string) ([]string, error) {
	out := make([]string, 0, len(releases))
	for _, r := range releases {
		if r == security.AllReleases {
			out = append(out, r)
			continue
		}
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("release %q is not a uuid", r)
		}
		out = append(out, id.String())
	}
	return out, nil
}
