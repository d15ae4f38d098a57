package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLedgerCmd(c *cli) *cobra.Command {
	var asJSON bool

	ledger := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect submissions kept in the local fallback ledger",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every locally recorded submission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app) error {
				apps, err := a.ledger.List(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), apps)
				}

				loc := a.cfg.Deployment.Location()
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSUBMITTED\tNAME\tPHONE\tWORK TYPE\tEMAIL SENT")
				for _, rec := range apps {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
						rec.ID,
						rec.SubmittedAt.In(loc).Format("2006-01-02 15:04"),
						rec.Name,
						rec.Phone,
						rec.WorkTypeDisplay,
						rec.EmailSent,
					)
				}
				return tw.Flush()
			})
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print the raw ledger records")

	ledger.AddCommand(list)
	return ledger
}
