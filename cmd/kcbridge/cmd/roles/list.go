package roles

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/cmd/cmdutil"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List local roles with their granted plugin actions",
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

		roles, err := bundle.Roles.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list roles: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCODE\tNAME\tACTIONS")
		for _, r := range roles {
			actions, err := bundle.Authorizer.Actions(r.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.Code, r.Name, strings.Join(actions, ", "))
		}
		return w.Flush()
	},
}
