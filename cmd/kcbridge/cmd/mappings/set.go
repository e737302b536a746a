package mappings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/cmd/cmdutil"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/repository"
)

var setCmd = &cobra.Command{
	Use:   "set <KEYCLOAK_ROLE=LOCAL_ROLE_ID>...",
	Short: "Add or change role mappings",
	Example: `  kcbridge mappings set EDITOR=2 AUTHOR=3
  kcbridge mappings set --replace SUPER_ADMIN=1`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		changes, err := ParseAssignments(args)
		if err != nil {
			return err
		}
		if err := repository.ValidateMappings(changes); err != nil {
			return err
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

		table := changes
		if !replaceFlag {
			rows, err := bundle.Mappings.GetAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read role mappings: %w", err)
			}
			table = make(map[string]int64, len(rows)+len(changes))
			for _, r := range rows {
				table[r.ExternalRole] = r.LocalRoleID
			}
			for name, id := range changes {
				table[name] = id
			}
		}

		if err := bundle.Mappings.Save(cmd.Context(), table); err != nil {
			return fmt.Errorf("failed to save role mappings: %w", err)
		}
		logger.WithField("count", len(table)).Info("role mappings saved")
		return nil
	},
}

// ParseAssignments turns ROLE=ID arguments into a mapping table. Role names are
// trimmed; a repeated role is an error.
func ParseAssignments(args []string) (map[string]int64, error) {
	out := make(map[string]int64, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid mapping %q, expected KEYCLOAK_ROLE=LOCAL_ROLE_ID", arg)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid local role id in %q: %w", arg, err)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("%w: %q given twice", repository.ErrDuplicateMapping, name)
		}
		out[name] = id
	}
	return out, nil
}
