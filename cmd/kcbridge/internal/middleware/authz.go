package middleware

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/auth"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/respond"
)

// PermissionChecker evaluates whether a principal holds an action.
type PermissionChecker interface {
	Allowed(principal auth.Principal, action string) (bool, error)
}

// RequirePermission rejects requests whose principal does not hold action.
// It must run after the authentication middleware.
func RequirePermission(checker PermissionChecker, action string, logger logrus.FieldLogger) (func(http.Handler) http.Handler, error) {
	if checker == nil {
		return nil, errors.New("authz middleware requires permission checker")
	}
	if !auth.IsKnownAction(action) {
		return nil, errors.New("authz middleware: unknown action " + action)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok || principal.UserID == 0 {
				respond.Error(w, http.StatusUnauthorized, "User is not authenticated.")
				return
			}

			allowed, err := checker.Allowed(principal, action)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"user_id": principal.UserID,
					"action":  action,
					"error":   err.Error(),
				}).Error("error checking admin permission")
				respond.Error(w, http.StatusInternalServerError, "Failed to verify permissions.")
				return
			}
			if !allowed {
				respond.Error(w, http.StatusForbidden, "Access denied. Missing permission: "+action)
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}
