package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/bunx"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
)

const (
	// SessionIssuer is the iss claim of every session token
	SessionIssuer = "kcbridge"

	// DefaultSessionTTL is used when the configured lifetime is not positive
	DefaultSessionTTL = 8 * time.Hour
)

// ErrInvalidSession is returned for malformed, expired, or foreign session tokens.
var ErrInvalidSession = errors.New("invalid session token")

// SessionClaims is the complete content of a session token: an opaque
// reference to the admin user (sub) plus issue metadata. Roles and profile
// data are never embedded.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *SessionClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidSession, c.Subject)
	}
	return id, nil
}

// SessionManager issues and verifies HS256 session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionManager constructs a SessionManager. The secret must be non-empty.
func NewSessionManager(secret string, ttl time.Duration) (*SessionManager, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a session token for user.
func (m *SessionManager) Issue(user *models.AdminUser) (string, error) {
	if user == nil || user.ID <= 0 {
		return "", errors.New("issue session: user has no id")
	}

	now := m.now().UTC()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        bunx.NewUUIDv7(),
			Issuer:    SessionIssuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and lifetime of token and returns its claims.
func (m *SessionManager) Verify(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(SessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidSession
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrInvalidSession)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}
