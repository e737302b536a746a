package mappings

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/cmd/cmdutil"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List role mappings",
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

		rows, err := bundle.Mappings.GetAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list role mappings: %w", err)
		}
		roles, err := bundle.Roles.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list roles: %w", err)
		}
		codes := make(map[int64]string, len(roles))
		for _, r := range roles {
			codes[r.ID] = r.Code
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEYCLOAK_ROLE\tLOCAL_ROLE_ID\tLOCAL_ROLE\tUPDATED_AT")
		for _, m := range rows {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", m.ExternalRole, m.LocalRoleID, codes[m.LocalRoleID], m.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}
