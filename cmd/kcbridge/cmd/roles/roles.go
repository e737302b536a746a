package roles

import "github.com/spf13/cobra"

var descriptionFlag string

// RolesCmd is the parent command for the local role catalog
var RolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Manage local admin roles and their permissions",
}

func init() {
	createCmd.Flags().StringVar(&descriptionFlag, "description", "", "Role description")

	RolesCmd.AddCommand(listCmd)
	RolesCmd.AddCommand(createCmd)
	RolesCmd.AddCommand(grantCmd)
	RolesCmd.AddCommand(revokeCmd)
}
