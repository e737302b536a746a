package keycloak

// Role is a realm role as returned by the admin REST API.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Composite   bool   `json:"composite"`
	ClientRole  bool   `json:"clientRole"`
	ContainerID string `json:"containerId,omitempty"`
}

// Profile is the subset of the user-info response needed to provision a
// local account.
type Profile struct {
	SubjectID         string
	Email             string
	PreferredUsername string
	GivenName         string
	FamilyName        string
}
