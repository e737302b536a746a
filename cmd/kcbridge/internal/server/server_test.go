package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/auth"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/dbtest"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/keycloak"
	kcmiddleware "github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/middleware"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/migrations"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/repository"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/services/login"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/services/mappings"
)

// mockLoginService is a mock implementation of the login orchestrator
type mockLoginService struct {
	loginFunc func(ctx context.Context, creds login.Credentials) (*login.Result, error)
	got       login.Credentials
}

func (m *mockLoginService) Login(ctx context.Context, creds login.Credentials) (*login.Result, error) {
	m.got = creds
	if m.loginFunc != nil {
		return m.loginFunc(ctx, creds)
	}
	return nil, errors.New("not implemented")
}

// fakeRealm serves a fixed realm role list
type fakeRealm struct {
	roles []keycloak.Role
	err   error
}

func (f fakeRealm) RealmRoles(context.Context) ([]keycloak.Role, error) {
	return f.roles, f.err
}

type envelope struct {
	Data  any `json:"data"`
	Error struct {
		Status  int            `json:"status"`
		Name    string         `json:"name"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLogin_Success(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := &mockLoginService{loginFunc: func(_ context.Context, creds login.Credentials) (*login.Result, error) {
		return &login.Result{
			Token: "session-token",
			User: login.Sanitize(&models.AdminUser{
				ID: 7, Email: creds.Email, Firstname: "Ada", IsActive: true,
				CreatedAt: created, UpdatedAt: created,
			}),
		}, nil
	}}

	router, err := NewRouter(RouterOptions{Login: svc})
	require.NoError(t, err)

	rec := do(t, router, http.MethodPost, "/admin/login", "", map[string]string{
		"email": "ada@example.com", "password": "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, login.Credentials{Email: "ada@example.com", Password: "secret"}, svc.got)

	var body struct {
		Data struct {
			Token string         `json:"token"`
			User  map[string]any `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "session-token", body.Data.Token)
	assert.EqualValues(t, 7, body.Data.User["id"])
	assert.Equal(t, "ada@example.com", body.Data.User["email"])
	assert.Nil(t, body.Data.User["username"])
	assert.NotContains(t, body.Data.User, "password")
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "bad request", err: login.ErrBadRequest, status: http.StatusBadRequest, message: "Missing email or password"},
		{name: "invalid credentials", err: login.ErrInvalidCredentials, status: http.StatusBadRequest, message: "Invalid credentials"},
		{name: "internal", err: login.ErrInternal, status: http.StatusInternalServerError, message: "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockLoginService{loginFunc: func(context.Context, login.Credentials) (*login.Result, error) {
				return nil, tt.err
			}}
			router, err := NewRouter(RouterOptions{Login: svc})
			require.NoError(t, err)

			rec := do(t, router, http.MethodPost, "/admin/login", "", map[string]string{"email": "a@b.c", "password": "x"})
			assert.Equal(t, tt.status, rec.Code)

			env := decodeEnvelope(t, rec)
			assert.Nil(t, env.Data)
			assert.Equal(t, tt.status, env.Error.Status)
			assert.Equal(t, tt.message, env.Error.Message)
			assert.NotNil(t, env.Error.Details)
		})
	}
}

func TestLogin_MalformedBodyIsMissingCredentials(t *testing.T) {
	svc := &mockLoginService{loginFunc: func(_ context.Context, creds login.Credentials) (*login.Result, error) {
		if creds.Email == "" || creds.Password == "" {
			return nil, login.ErrBadRequest
		}
		return nil, login.ErrInvalidCredentials
	}}
	router, err := NewRouter(RouterOptions{Login: svc})
	require.NoError(t, err)

	rec := do(t, router, http.MethodPost, "/admin/login", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing email or password", decodeEnvelope(t, rec).Error.Message)
}

func TestPasswordFlowsRedirect(t *testing.T) {
	router, err := NewRouter(RouterOptions{})
	require.NoError(t, err)

	for _, path := range []string{"/admin/auth/reset-password", "/admin/auth/forgot-password", "/admin/auth/register"} {
		rec := do(t, router, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/admin/login", rec.Header().Get("Location"), path)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	router, err := NewRouter(RouterOptions{})
	require.NoError(t, err)

	rec := do(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kcbridge_http_request_duration_seconds")

	unhealthy, err := NewRouter(RouterOptions{HealthCheck: func(context.Context) error { return errors.New("db down") }})
	require.NoError(t, err)
	rec = do(t, unhealthy, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewRouter_MappingsRequireAuth(t *testing.T) {
	_, err := NewRouter(RouterOptions{Mappings: &mappings.Service{}})
	require.Error(t, err)
}

// apiFixture wires the admin API against SQLite, casbin and a fake realm.
type apiFixture struct {
	router   http.Handler
	users    repository.AdminUserRepository
	store    repository.RoleMappingRepository
	sessions *auth.SessionManager
	realm    *fakeRealm
	roleIDs  map[string]int64
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db := dbtest.NewSQLite(t)
	logger, _ := test.NewNullLogger()

	sessions, err := auth.NewSessionManager("test-secret", time.Hour)
	require.NoError(t, err)
	enforcer, err := auth.InitEnforcer(db)
	require.NoError(t, err)
	authorizer, err := auth.NewAuthorizer(enforcer)
	require.NoError(t, err)

	users := repository.NewBunAdminUserRepository(db)
	store := repository.NewBunRoleMappingRepository(db)
	realm := &fakeRealm{roles: []keycloak.Role{
		{ID: "r1", Name: "SUPER_ADMIN"},
		{ID: "r2", Name: "EDITOR"},
		{ID: "r3", Name: "offline_access"},
	}}
	svc := mappings.NewService(realm, repository.NewBunAdminRoleRepository(db), store, []string{"offline_access"}, logger)

	authn, err := kcmiddleware.NewAuthnMiddleware(kcmiddleware.AuthnDependencies{
		Sessions: sessions,
		Users:    users,
		Logger:   logger,
	})
	require.NoError(t, err)

	router, err := NewRouter(RouterOptions{
		Mappings:    svc,
		Authn:       authn,
		Permissions: authorizer,
		Logger:      logger,
	})
	require.NoError(t, err)

	return &apiFixture{
		router:   router,
		users:    users,
		store:    store,
		sessions: sessions,
		realm:    realm,
		roleIDs: map[string]int64{
			migrations.RoleCodeSuperAdmin: dbtest.RoleID(t, db, migrations.RoleCodeSuperAdmin),
			migrations.RoleCodeEditor:     dbtest.RoleID(t, db, migrations.RoleCodeEditor),
		},
	}
}

func (f *apiFixture) tokenFor(t *testing.T, roleCode string) string {
	t.Helper()
	user := &models.AdminUser{Email: fmt.Sprintf("%s@example.com", roleCode), IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), user, []int64{f.roleIDs[roleCode]}))
	token, err := f.sessions.Issue(user)
	require.NoError(t, err)
	return token
}

func TestRoleMappingAPI_SuperAdmin(t *testing.T) {
	f := newAPIFixture(t)
	token := f.tokenFor(t, migrations.RoleCodeSuperAdmin)
	editorID := f.roleIDs[migrations.RoleCodeEditor]

	rec := do(t, f.router, http.MethodGet, "/keycloak-roles", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var catalog struct {
		KeycloakRoles []keycloak.Role    `json:"keycloakRoles"`
		StrapiRoles   []models.AdminRole `json:"strapiRoles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catalog))
	names := make([]string, 0, len(catalog.KeycloakRoles))
	for _, r := range catalog.KeycloakRoles {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"SUPER_ADMIN", "EDITOR"}, names)
	assert.Len(t, catalog.StrapiRoles, 3)

	rec = do(t, f.router, http.MethodPost, "/save-keycloak-role-mappings", token, map[string]any{
		"mappings": map[string]int64{"EDITOR": editorID},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Mappings saved successfully."}`, rec.Body.String())

	rec = do(t, f.router, http.MethodGet, "/get-keycloak-role-mappings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"EDITOR": %d}`, editorID), rec.Body.String())
}

func TestRoleMappingAPI_SaveRejections(t *testing.T) {
	f := newAPIFixture(t)
	token := f.tokenFor(t, migrations.RoleCodeSuperAdmin)
	editorID := f.roleIDs[migrations.RoleCodeEditor]
	require.NoError(t, f.store.Save(context.Background(), map[string]int64{"EDITOR": editorID}))

	tests := []struct {
		name string
		body any
	}{
		{name: "malformed body", body: "{"},
		{name: "unknown local role", body: map[string]any{"mappings": map[string]int64{"AUTHOR": 999}}},
		{name: "name too short", body: map[string]any{"mappings": map[string]int64{"AB": editorID}}},
		{name: "non numeric id", body: `{"mappings":{"EDITOR":"three"}}`},
		{name: "missing mappings key", body: `{}`},
		{name: "null mappings", body: `{"mappings":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, f.router, http.MethodPost, "/save-keycloak-role-mappings", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, "Failed to save role mappings", env.Error.Message)
			assert.NotEmpty(t, env.Error.Details["reason"])
		})
	}

	rows, err := f.store.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "EDITOR", rows[0].ExternalRole)
}

func TestRoleMappingAPI_EmptyMappingsClearTable(t *testing.T) {
	f := newAPIFixture(t)
	token := f.tokenFor(t, migrations.RoleCodeSuperAdmin)
	require.NoError(t, f.store.Save(context.Background(), map[string]int64{"EDITOR": f.roleIDs[migrations.RoleCodeEditor]}))

	rec := do(t, f.router, http.MethodPost, "/save-keycloak-role-mappings", token, map[string]any{"mappings": map[string]int64{}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, f.router, http.MethodGet, "/get-keycloak-role-mappings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestRoleMappingAPI_Permissions(t *testing.T) {
	f := newAPIFixture(t)
	editor := f.tokenFor(t, migrations.RoleCodeEditor)

	rec := do(t, f.router, http.MethodGet, "/keycloak-roles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User is not authenticated.", decodeEnvelope(t, rec).Error.Message)

	rec = do(t, f.router, http.MethodGet, "/get-keycloak-role-mappings", editor, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, strings.HasPrefix(decodeEnvelope(t, rec).Error.Message, "Access denied. Missing permission: "))
}

func TestRoleMappingAPI_RealmFailure(t *testing.T) {
	f := newAPIFixture(t)
	token := f.tokenFor(t, migrations.RoleCodeSuperAdmin)
	f.realm.err = keycloak.ErrUpstream

	rec := do(t, f.router, http.MethodGet, "/keycloak-roles", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Failed to fetch Keycloak roles", env.Error.Message)
	assert.Equal(t, "BadRequestError", env.Error.Name)
}
