package server

import "errors"

var errMissingAuth = errors.New("role mapping routes require authn middleware and permission checker")

// Client-facing failure messages. Causes are logged by the services.
const (
	msgFetchRoles    = "Failed to fetch Keycloak roles"
	msgLoadMappings  = "Failed to retrieve role mappings"
	msgSaveMappings  = "Failed to save role mappings"
	msgMappingsSaved = "Mappings saved successfully."
)
