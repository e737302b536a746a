package roles

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/cmd/cmdutil"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/auth"
)

var grantCmd = &cobra.Command{
	Use:   "grant <code> <action>...",
	Short: "Grant plugin actions to a role",
	Long:  "Grant plugin actions to a role. Known actions:\n  " + strings.Join(auth.PluginActions, "\n  "),
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeActions(cmd, args[0], args[1:], true)
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <code> <action>...",
	Short: "Revoke plugin actions from a role",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeActions(cmd, args[0], args[1:], false)
	},
}

func changeActions(cmd *cobra.Command, code string, actions []string, grant bool) error {
	for _, action := range actions {
		if !auth.IsKnownAction(action) {
			return fmt.Errorf("unknown action %q", action)
		}
	}

	cfg, logger, err := cmdutil.Load()
	if err != nil {
		return err
	}
	bundle, err := cmdutil.NewBundle(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer bundle.Close()

	role, err := bundle.Roles.GetByCode(cmd.Context(), code)
	if err != nil {
		return fmt.Errorf("failed to find role %q: %w", code, err)
	}

	for _, action := range actions {
		if grant {
			err = bundle.Authorizer.Grant(role.ID, action)
		} else {
			err = bundle.Authorizer.Revoke(role.ID, action)
		}
		if err != nil {
			return err
		}
		logger.WithField("role", role.Code).WithField("action", action).WithField("granted", grant).Info("permission updated")
	}
	return nil
}
