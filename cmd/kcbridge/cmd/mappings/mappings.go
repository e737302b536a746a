package mappings

import "github.com/spf13/cobra"

var replaceFlag bool

// MappingsCmd is the parent command for the Keycloak role mapping table
var MappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Inspect or change Keycloak role mappings",
	Long: `Commands for the table that maps Keycloak realm roles to local admin roles.
Every change replaces the table in one transaction, like the admin API does.`,
}

func init() {
	setCmd.Flags().BoolVar(&replaceFlag, "replace", false, "Replace the whole table instead of merging into it")

	MappingsCmd.AddCommand(listCmd)
	MappingsCmd.AddCommand(setCmd)
	MappingsCmd.AddCommand(clearCmd)
}
