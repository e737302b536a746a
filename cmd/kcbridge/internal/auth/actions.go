package auth

// Permission actions guarding the role-mapping administration API.
// Actions are granted to local roles through admin_permissions rows.
const (
	// ActionAccess allows reaching the Keycloak administration endpoints at all
	ActionAccess = "plugin::kcbridge.access"

	// ActionViewRoleMappings allows listing realm roles, local roles and the mapping table
	ActionViewRoleMappings = "plugin::kcbridge.view-role-mappings"

	// ActionManageRoleMappings allows replacing the mapping table
	ActionManageRoleMappings = "plugin::kcbridge.manage-role-mappings"
)

// PluginActions lists every action registered by the bridge, in display order.
var PluginActions = []string{
	ActionAccess,
	ActionViewRoleMappings,
	ActionManageRoleMappings,
}

// ActionDisplayNames maps each action to the label shown in role editors.
var ActionDisplayNames = map[string]string{
	ActionAccess:             "Access Keycloak Plugin",
	ActionViewRoleMappings:   "View Role Mappings",
	ActionManageRoleMappings: "Manage Role Mappings",
}

// IsKnownAction reports whether action is one of PluginActions.
func IsKnownAction(action string) bool {
	_, ok := ActionDisplayNames[action]
	return ok
}
