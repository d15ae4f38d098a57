package main

import (
	"fmt"
	"strings"

	"apply-desk/internal/settings"

	"github.com/spf13/cobra"
)

func newAdminCmd(c *cli) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage the form title and administrator contacts",
		Long: `Reads and writes the admin settings cached in the local store. Every save
is also pushed to the remote admin_settings row in the background; a failed
push keeps the local copy.`,
	}

	admin.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the current admin settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withApp(cmd.Context(), func(a *app) error {
					snapshot, err := a.recipients.Snapshot(cmd.Context())
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), snapshot)
				})
			},
		},
		&cobra.Command{
			Use:   "title [new title]",
			Short: "Print or change the form title",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withApp(cmd.Context(), func(a *app) error {
					if len(args) == 0 {
						title, err := a.recipients.LoadTitle(cmd.Context())
						if err != nil {
							return err
						}
						fmt.Fprintln(cmd.OutOrStdout(), title)
						return nil
					}
					return a.recipients.SaveTitle(cmd.Context(), args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "emails <address>...",
			Short: "Replace the administrator email list (max 3)",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withApp(cmd.Context(), func(a *app) error {
					list, err := a.recipients.SaveEmails(cmd.Context(), splitEntries(args))
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), list)
				})
			},
		},
		&cobra.Command{
			Use:   "phones <number>...",
			Short: "Replace the administrator phone list (max 3)",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withApp(cmd.Context(), func(a *app) error {
					list, err := a.recipients.SavePhones(cmd.Context(), splitEntries(args))
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), list)
				})
			},
		},
		newAdminSyncCmd(c),
	)
	return admin
}

func newAdminSyncCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "sync <pull|push>",
		Short:     "Copy admin settings between the remote store and the local cache",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"pull", "push"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app) error {
				ctx := cmd.Context()
				if args[0] == "pull" {
					res := a.sync.Pull(ctx)
					fmt.Fprintln(cmd.OutOrStdout(), res.Status)
					if res.Status == settings.PullFailed {
						return res.Err
					}
					return nil
				}

				snapshot, err := a.recipients.Snapshot(ctx)
				if err != nil {
					return err
				}
				if err := a.sync.Push(ctx, snapshot); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "pushed")
				return nil
			})
		},
	}
}

// splitEntries accepts both repeated arguments and a single
// comma-separated argument.
func splitEntries(args []string) []string {
	var out []string
	for _, arg := range args {
		out = append(out, strings.Split(arg, ",")...)
	}
	return out
}
