package login

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/keycloak"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/services/identity"
)

type fakeTokens struct {
	token string
	err   error
	calls int
}

func (f *fakeTokens) PasswordToken(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.token, f.err
}

type fakeProfiles struct {
	profile *keycloak.Profile
	err     error
	gotTok  string
}

func (f *fakeProfiles) UserInfo(_ context.Context, accessToken string) (*keycloak.Profile, error) {
	f.gotTok = accessToken
	return f.profile, f.err
}

type fakeReconciler struct {
	user *models.AdminUser
	err  error
}

func (f *fakeReconciler) FindOrCreate(context.Context, keycloak.Profile) (*models.AdminUser, error) {
	return f.user, f.err
}

type fakeSessions struct {
	token string
	err   error
}

func (f *fakeSessions) Issue(*models.AdminUser) (string, error) {
	return f.token, f.err
}

type fixture struct {
	tokens     *fakeTokens
	profiles   *fakeProfiles
	reconciler *fakeReconciler
	sessions   *fakeSessions
	logs       *test.Hook
	o          *Orchestrator
}

func newFixture() *fixture {
	created := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	f := &fixture{
		tokens:   &fakeTokens{token: "idp-access-token"},
		profiles: &fakeProfiles{profile: &keycloak.Profile{SubjectID: "sub-1", Email: "ada@example.com"}},
		reconciler: &fakeReconciler{user: &models.AdminUser{
			ID:        7,
			Email:     "ada@example.com",
			Firstname: "Ada",
			Lastname:  "Lovelace",
			IsActive:  true,
			CreatedAt: created,
			UpdatedAt: created,
		}},
		sessions: &fakeSessions{token: "session-token"},
	}
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	f.logs = hook
	f.o = NewOrchestrator(f.tokens, f.profiles, f.reconciler, f.sessions, logger)
	return f
}

func TestLogin_Success(t *testing.T) {
	f := newFixture()

	res, err := f.o.Login(context.Background(), Credentials{Email: " ada@example.com ", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "session-token", res.Token)
	assert.Equal(t, int64(7), res.User.ID)
	assert.Nil(t, res.User.Username)
	assert.Equal(t, "idp-access-token", f.profiles.gotTok)

	var states []string
	for _, e := range f.logs.AllEntries() {
		if s, ok := e.Data["state"]; ok {
			states = append(states, fmt.Sprint(s))
		}
	}
	assert.Equal(t, []string{
		string(StateAwaitingCredentials),
		string(StateExchangingToken),
		string(StateFetchingProfile),
		string(StateReconciling),
		string(StateIssuingSession),
		string(StateDone),
	}, states)
}

func TestLogin_Failures(t *testing.T) {
	storageErr := &identity.ReconcileError{Kind: identity.StorageError, Op: "create user", Err: errors.New("db down")}
	validationErr := &identity.ReconcileError{Kind: identity.ValidationError, Op: "find or create user", Err: errors.New("no email")}

	tests := []struct {
		name    string
		creds   Credentials
		mutate  func(f *fixture)
		want    error
		message string
	}{
		{
			name:    "missing email",
			creds:   Credentials{Password: "pw"},
			want:    ErrBadRequest,
			message: "Missing email or password",
		},
		{
			name:    "missing password",
			creds:   Credentials{Email: "ada@example.com"},
			want:    ErrBadRequest,
			message: "Missing email or password",
		},
		{
			name:    "idp rejects password",
			creds:   Credentials{Email: "ada@example.com", Password: "pw"},
			mutate:  func(f *fixture) { f.tokens.err = keycloak.ErrAuthentication },
			want:    ErrInvalidCredentials,
			message: "Invalid credentials",
		},
		{
			name:    "userinfo fails",
			creds:   Credentials{Email: "ada@example.com", Password: "pw"},
			mutate:  func(f *fixture) { f.profiles.err = keycloak.ErrAuthentication },
			want:    ErrInvalidCredentials,
			message: "Invalid credentials",
		},
		{
			name:    "reconcile storage fault",
			creds:   Credentials{Email: "ada@example.com", Password: "pw"},
			mutate:  func(f *fixture) { f.reconciler.err = storageErr },
			want:    ErrInternal,
			message: "Internal server error",
		},
		{
			name:    "reconcile validation fault",
			creds:   Credentials{Email: "ada@example.com", Password: "pw"},
			mutate:  func(f *fixture) { f.reconciler.err = validationErr },
			want:    ErrInvalidCredentials,
			message: "Invalid credentials",
		},
		{
			name:    "blocked account",
			creds:   Credentials{Email: "ada@example.com", Password: "pw"},
			mutate:  func(f *fixture) { f.reconciler.user.Blocked = true },
			want:    ErrInvalidCredentials,
			message: "Invalid credentials",
		},
		{
			name:    "inactive account",
			creds:   Credentials{Email: "ada@example.com", Password: "pw"},
			mutate:  func(f *fixture) { f.reconciler.user.IsActive = false },
			want:    ErrInvalidCredentials,
			message: "Invalid credentials",
		},
		{
			name:    "session signing fails",
			creds:   Credentials{Email: "ada@example.com", Password: "pw"},
			mutate:  func(f *fixture) { f.sessions.err = errors.New("no key") },
			want:    ErrInternal,
			message: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.mutate != nil {
				tt.mutate(f)
			}

			res, err := f.o.Login(context.Background(), tt.creds)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, res)
			assert.Equal(t, tt.message, PublicMessage(err))
			assert.Equal(t, tt.want, err, "causes must not leak to callers")
		})
	}
}

func TestLogin_MissingFieldsSkipIdP(t *testing.T) {
	f := newFixture()

	_, err := f.o.Login(context.Background(), Credentials{Email: "  ", Password: "pw"})
	require.ErrorIs(t, err, ErrBadRequest)
	assert.Zero(t, f.tokens.calls)
}

func TestLogin_FailureLogsCause(t *testing.T) {
	f := newFixture()
	f.reconciler.err = &identity.ReconcileError{Kind: identity.StorageError, Op: "create user", Err: errors.New("db down")}

	_, err := f.o.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "pw"})
	require.ErrorIs(t, err, ErrInternal)

	last := f.logs.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, StateReconciling, last.Data["state"])
	assert.Contains(t, last.Data["error"], "db down")
	for _, e := range f.logs.AllEntries() {
		for _, v := range e.Data {
			assert.NotEqual(t, "pw", v)
		}
	}
}

func TestSanitize(t *testing.T) {
	at := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	user := &models.AdminUser{
		ID:        3,
		Email:     "ada@example.com",
		Firstname: "Ada",
		Lastname:  "Lovelace",
		Username:  "ada",
		IsActive:  true,
		CreatedAt: at,
		UpdatedAt: at,
		Roles:     []models.AdminRole{{ID: 1, Code: "strapi-super-admin"}},
	}

	raw, err := json.Marshal(Sanitize(user))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.ElementsMatch(t,
		[]string{"id", "firstname", "lastname", "username", "email", "isActive", "blocked", "createdAt", "updatedAt"},
		keys(fields),
	)
	assert.Equal(t, "ada", fields["username"])

	user.Username = ""
	raw, err = json.Marshal(Sanitize(user))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"username":null`)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
