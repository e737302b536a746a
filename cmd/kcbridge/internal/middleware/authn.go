package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/auth"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/repository"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/respond"
)

// DefaultPrincipalCacheSize bounds the number of cached sessions.
const DefaultPrincipalCacheSize = 1024

// SessionVerifier validates session tokens.
type SessionVerifier interface {
	Verify(token string) (*auth.SessionClaims, error)
}

// UserLookup loads an admin user with its roles.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*models.AdminUser, error)
}

// AuthnDependencies bundles collaborators required by the authentication middleware.
type AuthnDependencies struct {
	Sessions SessionVerifier
	Users    UserLookup
	Logger   logrus.FieldLogger

	// CacheTTL is how long a resolved principal is reused for the same jti.
	// Zero disables the cache.
	CacheTTL time.Duration
	// CacheSize defaults to DefaultPrincipalCacheSize.
	CacheSize int
}

// NewAuthnMiddleware verifies the bearer session token, re-resolves the admin
// user from storage and stores an auth.Principal on the request context.
func NewAuthnMiddleware(deps AuthnDependencies) (func(http.Handler) http.Handler, error) {
	if deps.Sessions == nil {
		return nil, errors.New("authn middleware requires session verifier")
	}
	if deps.Users == nil {
		return nil, errors.New("authn middleware requires user lookup")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var cache *expirable.LRU[string, auth.Principal]
	if deps.CacheTTL > 0 {
		size := deps.CacheSize
		if size <= 0 {
			size = DefaultPrincipalCacheSize
		}
		cache = expirable.NewLRU[string, auth.Principal](size, nil, deps.CacheTTL)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := bearerToken(r)
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "User is not authenticated.")
				return
			}

			claims, err := deps.Sessions.Verify(token)
			if err != nil {
				logger.WithField("error", err.Error()).Debug("rejected session token")
				respond.Error(w, http.StatusUnauthorized, "Invalid or expired session.")
				return
			}

			if cache != nil {
				if principal, hit := cache.Get(claims.ID); hit {
					next.ServeHTTP(w, r.WithContext(auth.SetPrincipal(ctx, principal)))
					return
				}
			}

			userID, err := claims.UserID()
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, "Invalid or expired session.")
				return
			}

			user, err := deps.Users.GetByID(ctx, userID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					respond.Error(w, http.StatusUnauthorized, "Invalid or expired session.")
					return
				}
				logger.WithFields(logrus.Fields{
					"user_id": userID,
					"error":   err.Error(),
				}).Error("failed to resolve session user")
				respond.Error(w, http.StatusInternalServerError, "Authentication error.")
				return
			}
			if !user.CanSignIn() {
				logger.WithField("user_id", userID).Warn("session rejected for disabled account")
				respond.Error(w, http.StatusUnauthorized, "Account is disabled.")
				return
			}

			principal := auth.Principal{
				UserID:    user.ID,
				Email:     user.Email,
				RoleIDs:   user.RoleIDs(),
				SessionID: claims.ID,
			}
			if claims.IssuedAt != nil {
				principal.IssuedAt = claims.IssuedAt.Time
			}
			if cache != nil {
				cache.Add(claims.ID, principal)
			}

			next.ServeHTTP(w, r.WithContext(auth.SetPrincipal(ctx, principal)))
		})
	}, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
