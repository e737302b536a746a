package users

import "github.com/spf13/cobra"

// UsersCmd is the parent command for admin account operations
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect and block local admin accounts",
	Long: `Commands for the local admin accounts provisioned from Keycloak sign-ins.
Accounts are created by signing in; these commands only list and block them.`,
}

func init() {
	UsersCmd.AddCommand(listCmd)
	UsersCmd.AddCommand(blockCmd)
	UsersCmd.AddCommand(unblockCmd)
}
