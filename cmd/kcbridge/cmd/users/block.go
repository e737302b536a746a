package users

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/cmd/cmdutil"
)

var blockCmd = &cobra.Command{
	Use:   "block <email>",
	Short: "Prevent an admin account from signing in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setBlocked(cmd, args[0], true)
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <email>",
	Short: "Allow a blocked admin account to sign in again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setBlocked(cmd, args[0], false)
	},
}

// setBlocked toggles the flag. Existing sessions are refused once their
// principal cache entry expires.
func setBlocked(cmd *cobra.Command, email string, blocked bool) error {
	cfg, logger, err := cmdutil.Load()
	if err != nil {
		return err
	}
	bundle, err := cmdutil.NewBundle(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer bundle.Close()

	user, err := bundle.Users.GetByEmail(cmd.Context(), email)
	if err != nil {
		return fmt.Errorf("failed to find admin user %q: %w", email, err)
	}
	if err := bundle.Users.SetBlocked(cmd.Context(), user.ID, blocked); err != nil {
		return fmt.Errorf("failed to update admin user %q: %w", email, err)
	}

	logger.WithField("email", user.Email).WithField("blocked", blocked).Info("admin user updated")
	return nil
}
