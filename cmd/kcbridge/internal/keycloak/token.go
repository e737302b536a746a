package keycloak

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zitadel/oidc/v3/pkg/oidc"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/config"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/telemetry"
)

// DefaultTimeout bounds each IdP call when the configuration does not.
const DefaultTimeout = 5 * time.Second

// TokenSource acquires access tokens from the realm token endpoint.
type TokenSource interface {
	// PasswordToken exchanges user credentials for a user access token.
	PasswordToken(ctx context.Context, username, password string) (string, error)
	// ServiceToken obtains a service-account token for admin API calls.
	ServiceToken(ctx context.Context) (string, error)
}

// OAuth2TokenSource implements TokenSource with golang.org/x/oauth2.
// Service tokens are not cached: each call performs a fresh grant.
type OAuth2TokenSource struct {
	password   *oauth2.Config
	service    *clientcredentials.Config
	httpClient *http.Client
	timeout    time.Duration
}

var _ TokenSource = (*OAuth2TokenSource)(nil)

// NewHTTPClient returns the client used for every IdP request.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// NewOAuth2TokenSource creates a token source for cfg. A nil httpClient is
// replaced with NewHTTPClient(cfg.Timeout).
func NewOAuth2TokenSource(cfg config.KeycloakConfig, httpClient *http.Client) *OAuth2TokenSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(timeout)
	}

	tokenURL := cfg.TokenURL()
	s := &OAuth2TokenSource{
		password: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{oidc.ScopeOpenID},
		},
		httpClient: httpClient,
		timeout:    timeout,
	}
	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		s.service = &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
	}
	return s
}

// PasswordToken performs the resource owner password grant.
// Every failure wraps ErrAuthentication; the wrapped detail is for logs only.
func (s *OAuth2TokenSource) PasswordToken(ctx context.Context, username, password string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerKeycloak, "keycloak.PasswordToken",
		attribute.String(telemetry.AttrIdPOperation, "password_grant"),
	)
	defer span.End()
	defer telemetry.ObserveIdPRequest("password_grant", time.Now())

	ctx, cancel := s.requestContext(ctx)
	defer cancel()

	tok, err := s.password.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrAuthentication, describeGrantError(err))
		telemetry.RecordError(span, err)
		return "", err
	}
	if tok.AccessToken == "" {
		err = fmt.Errorf("%w: token response has no access_token", ErrAuthentication)
		telemetry.RecordError(span, err)
		return "", err
	}
	return tok.AccessToken, nil
}

// ServiceToken performs the client credentials grant.
func (s *OAuth2TokenSource) ServiceToken(ctx context.Context) (string, error) {
	if s.service == nil {
		return "", fmt.Errorf("%w: client id and secret are required for service tokens", ErrConfiguration)
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerKeycloak, "keycloak.ServiceToken",
		attribute.String(telemetry.AttrIdPOperation, "client_credentials"),
	)
	defer span.End()
	defer telemetry.ObserveIdPRequest("client_credentials", time.Now())

	ctx, cancel := s.requestContext(ctx)
	defer cancel()

	tok, err := s.service.Token(ctx)
	if err != nil {
		err = fmt.Errorf("%w: service token: %s", ErrUpstream, describeGrantError(err))
		telemetry.RecordError(span, err)
		return "", err
	}
	if tok.AccessToken == "" {
		err = fmt.Errorf("%w: service token response has no access_token", ErrUpstream)
		telemetry.RecordError(span, err)
		return "", err
	}
	return tok.AccessToken, nil
}

// requestContext applies the IdP timeout and hands the HTTP client to oauth2.
func (s *OAuth2TokenSource) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	return context.WithTimeout(ctx, s.timeout)
}

func describeGrantError(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		if re.ErrorCode != "" {
			return fmt.Sprintf("status %d: %s", status, re.ErrorCode)
		}
		return fmt.Sprintf("status %d: %s", status, truncate(string(re.Body), maxErrorBody))
	}
	return err.Error()
}
