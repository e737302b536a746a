package cmd

import (
	"github.com/spf13/cobra"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/cmd/cmdutil"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the bootstrap super-admin role mapping",
	Long: `Maps the configured realm role (roles.super_admin_external_role) to the
local super-admin role unless a mapping for it already exists. serve runs the
same step at startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, err := cmdutil.NewBundle(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer bundle.Close()

		return bundle.NewSeeder(cfg).EnsureDefaultMapping(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
