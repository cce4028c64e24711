package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	auditrepo "playlog/backend/internal/audit/repository"
)

func newAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the envelope rejection log",
	}
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent rejected requests, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := auditrepo.NewSQLRepository(store).ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tENDPOINT\tBINDING\tID\tKIND\tREASON\tCLIENT")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"), r.Endpoint, r.Binding, r.BindingID, r.Kind, r.Reason, r.ClientIP)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries")
	cmd.AddCommand(list)
	return cmd
}
