package keycloak

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/zitadel/oidc/v3/pkg/oidc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/config"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/telemetry"
)

// maxErrorBody caps how much of an IdP error body is kept in wrapped errors.
const maxErrorBody = 512

// Client reads user and realm data from Keycloak.
// Admin calls obtain a fresh service token from the TokenSource each time.
type Client struct {
	tokens      TokenSource
	httpClient  *http.Client
	adminURL    string
	userInfoURL string
	realm       string
	timeout     time.Duration
	logger      logrus.FieldLogger
}

// NewClient creates a Client for the realm described by cfg.
func NewClient(cfg config.KeycloakConfig, tokens TokenSource, httpClient *http.Client, logger logrus.FieldLogger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(timeout)
	}
	return &Client{
		tokens:      tokens,
		httpClient:  httpClient,
		adminURL:    cfg.AdminRealmURL(),
		userInfoURL: cfg.UserInfoURL(),
		realm:       cfg.Realm,
		timeout:     timeout,
		logger:      logger.WithField("component", "keycloak_client"),
	}
}

// UserInfo fetches the profile of the user owning accessToken.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*Profile, error) {
	ctx, span := c.startSpan(ctx, "userinfo")
	defer span.End()
	defer telemetry.ObserveIdPRequest("userinfo", time.Now())

	var info oidc.UserInfo
	if err := c.getJSON(ctx, c.userInfoURL, accessToken, &info); err != nil {
		err = fmt.Errorf("%w: userinfo: %v", ErrAuthentication, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	return &Profile{
		SubjectID:         info.Subject,
		Email:             strings.TrimSpace(info.Email),
		PreferredUsername: info.PreferredUsername,
		GivenName:         info.GivenName,
		FamilyName:        info.FamilyName,
	}, nil
}

// RealmRoles lists every role defined in the realm.
func (c *Client) RealmRoles(ctx context.Context) ([]Role, error) {
	ctx, span := c.startSpan(ctx, "realm_roles")
	defer span.End()
	defer telemetry.ObserveIdPRequest("realm_roles", time.Now())

	var roles []Role
	if err := c.adminGet(ctx, "/roles", &roles); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return roles, nil
}

// UserRealmRoles returns the names of the realm roles directly mapped to
// the user with the given subject id.
func (c *Client) UserRealmRoles(ctx context.Context, subjectID string) ([]string, error) {
	if strings.TrimSpace(subjectID) == "" {
		return nil, fmt.Errorf("%w: subject id is required", ErrValidation)
	}

	ctx, span := c.startSpan(ctx, "user_realm_roles")
	defer span.End()
	defer telemetry.ObserveIdPRequest("user_realm_roles", time.Now())

	var roles []Role
	path := "/users/" + url.PathEscape(subjectID) + "/role-mappings/realm"
	if err := c.adminGet(ctx, path, &roles); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

func (c *Client) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return telemetry.StartSpan(ctx, telemetry.TracerKeycloak, "keycloak."+operation,
		attribute.String(telemetry.AttrIdPOperation, operation),
		attribute.String(telemetry.AttrIdPRealm, c.realm),
	)
}

func (c *Client) adminGet(ctx context.Context, path string, target any) error {
	token, err := c.tokens.ServiceToken(ctx)
	if err != nil {
		return err
	}
	if err := c.getJSON(ctx, c.adminURL+path, token, target); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return nil
}

// getJSON performs an authorized GET and decodes a 2xx JSON body into target.
func (c *Client) getJSON(ctx context.Context, reqURL, bearer string, target any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", redactQuery(reqURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"url":    redactQuery(reqURL),
		}).Debug("keycloak returned non-success status")
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), maxErrorBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func redactQuery(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
