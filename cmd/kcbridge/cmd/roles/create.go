package roles

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/cmd/cmdutil"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
)

var createCmd = &cobra.Command{
	Use:   "create <code> <name>",
	Short: "Add a local role",
	Args:  cobra.ExactArgs(2),
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

		role := &models.AdminRole{Code: args[0], Name: args[1], Description: descriptionFlag}
		if err := bundle.Roles.Create(cmd.Context(), role); err != nil {
			return fmt.Errorf("failed to create role %q: %w", role.Code, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created role %s with id %d\n", role.Code, role.ID)
		return nil
	},
}
