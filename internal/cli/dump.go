package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	eventrepo "playlog/backend/internal/event/repository"
	"playlog/backend/internal/export"
	sessionrepo "playlog/backend/internal/session/repository"
	userrepo "playlog/backend/internal/user/repository"
)

func newDumpCommand() *cobra.Command {
	var (
		mode     string
		releases []string
		out      string
	)
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump users with their sessions, tasks and events as JSON",
		Long: "dump reconstructs every stored session as a document. In user mode the users come from\n" +
			"the user table and carry their username; in session mode they are the distinct user ids\n" +
			"that own sessions. Users without a matching session are left out.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := export.ParseMode(mode)
			if err != nil {
				return err
			}
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := export.NewEngine(
				userrepo.NewSQLRepository(store),
				sessionrepo.NewSQLRepository(store),
				eventrepo.NewSQLRepository(store),
			)
			docs, err := engine.ExportUsers(cmd.Context(), m, export.Filter{Releases: releases})
			if err != nil {
				return err
			}
			if docs == nil {
				docs = []export.UserDocument{}
			}

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := writeJSON(w, docs); err != nil {
				return err
			}
			if out != "" && out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d users to %s\n", len(docs), out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(export.ModeUser), "Which users to dump: user or session")
	cmd.Flags().StringSliceVar(&releases, "release", nil, "Only include sessions of these release ids (repeatable)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to this file instead of stdout")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
