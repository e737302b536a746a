// Package login runs the admin sign-in flow against the IdP.
package login

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/keycloak"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/services/identity"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/telemetry"
)

var (
	// ErrBadRequest means the request lacked an email or password.
	ErrBadRequest = errors.New("missing email or password")
	// ErrInvalidCredentials covers every IdP refusal and unusable account.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInternal means a local fault prevented sign-in.
	ErrInternal = errors.New("internal error")
)

// State names a step of the sign-in flow.
type State string

const (
	StateAwaitingCredentials State = "awaiting_credentials"
	StateExchangingToken     State = "exchanging_token"
	StateFetchingProfile     State = "fetching_profile"
	StateReconciling         State = "reconciling"
	StateIssuingSession      State = "issuing_session"
	StateDone                State = "done"
)

// Credentials are the values submitted to the login endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SanitizedUser is the user representation safe to return to clients.
type SanitizedUser struct {
	ID        int64     `json:"id"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
	Username  *string   `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"isActive"`
	Blocked   bool      `json:"blocked"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Sanitize strips a user down to its public fields.
func Sanitize(u *models.AdminUser) SanitizedUser {
	out := SanitizedUser{
		ID:        u.ID,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Email:     u.Email,
		IsActive:  u.IsActive,
		Blocked:   u.Blocked,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.Username != "" {
		username := u.Username
		out.Username = &username
	}
	return out
}

// Result is a successful sign-in.
type Result struct {
	Token string        `json:"token"`
	User  SanitizedUser `json:"user"`
}

// PasswordExchanger performs the password grant.
type PasswordExchanger interface {
	PasswordToken(ctx context.Context, username, password string) (string, error)
}

// ProfileFetcher reads the profile behind a user access token.
type ProfileFetcher interface {
	UserInfo(ctx context.Context, accessToken string) (*keycloak.Profile, error)
}

// UserReconciler provisions the local account for a profile.
type UserReconciler interface {
	FindOrCreate(ctx context.Context, profile keycloak.Profile) (*models.AdminUser, error)
}

// SessionIssuer signs a session token for a user.
type SessionIssuer interface {
	Issue(user *models.AdminUser) (string, error)
}

// Orchestrator drives one sign-in through its states.
type Orchestrator struct {
	tokens     PasswordExchanger
	profiles   ProfileFetcher
	reconciler UserReconciler
	sessions   SessionIssuer
	logger     logrus.FieldLogger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(tokens PasswordExchanger, profiles ProfileFetcher, reconciler UserReconciler, sessions SessionIssuer, logger logrus.FieldLogger) *Orchestrator {
	return &Orchestrator{
		tokens:     tokens,
		profiles:   profiles,
		reconciler: reconciler,
		sessions:   sessions,
		logger:     logger.WithField("component", "login"),
	}
}

// Login authenticates creds with the IdP and returns a local session.
// Returned errors are ErrBadRequest, ErrInvalidCredentials or ErrInternal;
// causes are logged, never returned.
func (o *Orchestrator) Login(ctx context.Context, creds Credentials) (result *Result, err error) {
	email := strings.TrimSpace(creds.Email)

	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerLogin, "login.Login",
		attribute.String(telemetry.AttrUserEmail, email),
	)
	defer span.End()

	log := o.logger.WithField("email", email)
	state := StateAwaitingCredentials
	transition := func(next State) {
		state = next
		log.WithField("state", state).Debug("login state transition")
	}
	fail := func(kind, cause error) error {
		span.SetAttributes(attribute.String(telemetry.AttrLoginState, string(state)))
		telemetry.RecordError(span, cause)
		entry := log.WithFields(logrus.Fields{"state": state, "error": describe(cause)})
		if errors.Is(kind, ErrInternal) {
			entry.Error("login failed")
		} else {
			entry.Warn("login failed")
		}
		return kind
	}
	defer func() {
		telemetry.RecordLogin(outcome(err))
		span.SetAttributes(attribute.String(telemetry.AttrLoginOutcome, outcome(err)))
	}()

	log.WithField("state", state).Debug("login started")
	if email == "" || creds.Password == "" {
		return nil, fail(ErrBadRequest, ErrBadRequest)
	}

	transition(StateExchangingToken)
	accessToken, err := o.tokens.PasswordToken(ctx, email, creds.Password)
	if err != nil {
		return nil, fail(ErrInvalidCredentials, err)
	}

	transition(StateFetchingProfile)
	profile, err := o.profiles.UserInfo(ctx, accessToken)
	if err != nil {
		return nil, fail(ErrInvalidCredentials, err)
	}

	transition(StateReconciling)
	user, err := o.reconciler.FindOrCreate(ctx, *profile)
	if err != nil {
		if errors.Is(err, identity.ErrStorage) {
			return nil, fail(ErrInternal, err)
		}
		return nil, fail(ErrInvalidCredentials, err)
	}
	if !user.CanSignIn() {
		return nil, fail(ErrInvalidCredentials, errors.New("local account is blocked or inactive"))
	}

	transition(StateIssuingSession)
	token, err := o.sessions.Issue(user)
	if err != nil {
		return nil, fail(ErrInternal, err)
	}

	transition(StateDone)
	log.WithField("user_id", user.ID).Info("admin signed in")
	return &Result{Token: token, User: Sanitize(user)}, nil
}

// PublicMessage is the client-facing text for a Login error.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrBadRequest):
		return "Missing email or password"
	case errors.Is(err, ErrInternal):
		return "Internal server error"
	default:
		return "Invalid credentials"
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.Is(err, ErrBadRequest):
		return telemetry.OutcomeBadRequest
	case errors.Is(err, ErrInternal):
		return telemetry.OutcomeInternalError
	default:
		return telemetry.OutcomeInvalidCredentials
	}
}

func describe(err error) string {
	var re *identity.ReconcileError
	if errors.As(err, &re) {
		return re.Detail()
	}
	return err.Error()
}
