package mappings

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/cmd/cmdutil"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every role mapping",
	Long: `Removes every role mapping. Until new mappings are saved, every sign-in
receives the default role. Run 'kcbridge seed' to restore the super-admin mapping.`,
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

		if err := bundle.Mappings.Save(cmd.Context(), map[string]int64{}); err != nil {
			return fmt.Errorf("failed to clear role mappings: %w", err)
		}
		logger.Info("role mappings cleared")
		return nil
	},
}
