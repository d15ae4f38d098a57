package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAttemptsCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "attempts <application-id>",
		Short: "Show the notification attempt log of one application",
		Long: `Reads notification_attempts from PostgreSQL, oldest first. Attempts made for
ledger records are keyed by their LOCAL- id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app) error {
				attempts, err := a.store.ListNotificationAttempts(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), attempts)
				}

				loc := a.cfg.Deployment.Location()
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TIME\tCHANNEL\tPROVIDER\tRECIPIENT\tSTATUS\tERROR")
				for _, at := range attempts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						at.Timestamp.In(loc).Format("2006-01-02 15:04:05"),
						at.Channel,
						at.Provider,
						at.Recipient,
						at.Status,
						at.Error,
					)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw attempt rows")
	return cmd
}
