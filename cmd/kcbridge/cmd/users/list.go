package users

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/cmd/cmdutil"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List admin accounts with their roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := cmdutil.Load()
		if err != nil {
			return err
		}
		bundle, err := cmdutil.NewBundle(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer bundle.Close()

		users, err := bundle.Users.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list admin users: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLES\tACTIVE\tBLOCKED")
		for _, u := range users {
			roles := make([]string, len(u.Roles))
			for i, r := range u.Roles {
				roles[i] = r.Code
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%t\n",
				u.ID,
				u.Email,
				strings.TrimSpace(u.Firstname+" "+u.Lastname),
				strings.Join(roles, ", "),
				u.IsActive,
				u.Blocked,
			)
		}
		return w.Flush()
	},
}
