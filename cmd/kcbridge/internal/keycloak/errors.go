package keycloak

import "errors"

var (
	// ErrAuthentication means the IdP refused the user's credentials or token.
	ErrAuthentication = errors.New("keycloak: authentication failed")
	// ErrUpstream means the IdP was unreachable or answered with an error.
	ErrUpstream = errors.New("keycloak: upstream request failed")
	// ErrConfiguration means the client was built without required settings.
	ErrConfiguration = errors.New("keycloak: missing configuration")
	// ErrValidation means a caller passed an unusable argument.
	ErrValidation = errors.New("keycloak: invalid argument")
)
