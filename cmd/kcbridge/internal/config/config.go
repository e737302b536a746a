package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "KCBRIDGE"

// ErrConfiguration reports missing or malformed configuration at startup.
var ErrConfiguration = errors.New("configuration error")

// Config holds the application configuration
type Config struct {
	// Database connection string (DSN)
	DatabaseURL string `mapstructure:"database_url"`

	// Server bind address (host:port)
	ServerAddr string `mapstructure:"server_addr"`

	// Maximum database connection pool size (PostgreSQL only)
	MaxDBConnections int `mapstructure:"max_db_connections"`

	// Enable debug logging
	Debug bool `mapstructure:"debug"`

	// Log output format: "text" or "json"
	LogFormat string `mapstructure:"log_format"`

	Keycloak      KeycloakConfig      `mapstructure:"keycloak"`
	Roles         RoleConfig          `mapstructure:"roles"`
	Session       SessionConfig       `mapstructure:"session"`
	CORS          CORSConfig          `mapstructure:"cors"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// KeycloakConfig describes the single realm the bridge authenticates against.
//
// Path values may contain the {realm} placeholder, which is replaced by the
// path-escaped realm name when the URL helpers build absolute endpoints.
type KeycloakConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Realm           string        `mapstructure:"realm"`
	ClientID        string        `mapstructure:"client_id"`
	ClientSecret    string        `mapstructure:"client_secret"`
	TokenPath       string        `mapstructure:"token_path"`
	UserInfoPath    string        `mapstructure:"userinfo_path"`
	AdminPathPrefix string        `mapstructure:"admin_path_prefix"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// RoleConfig controls how external roles translate into local roles.
type RoleConfig struct {
	// DefaultRoleID is assigned when no external role matches a mapping.
	// Zero means DefaultRoleCode is looked up at startup instead.
	DefaultRoleID int64 `mapstructure:"default_role_id"`
	// DefaultRoleCode names the default role when DefaultRoleID is unset.
	DefaultRoleCode string `mapstructure:"default_role_code"`
	// ExcludedRoles are hidden from the role listing shown to administrators.
	ExcludedRoles []string `mapstructure:"excluded_roles"`
	// SuperAdminCode identifies the local highest-privilege role.
	SuperAdminCode string `mapstructure:"super_admin_code"`
	// SuperAdminExternalRole is the realm role seeded onto SuperAdminCode.
	SuperAdminExternalRole string `mapstructure:"super_admin_external_role"`
}

// SessionConfig configures local session tokens.
type SessionConfig struct {
	Secret   string        `mapstructure:"secret"`
	TTL      time.Duration `mapstructure:"ttl"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ObservabilityConfig holds OpenTelemetry exporter settings. An empty
// OTLPEndpoint disables tracing.
type ObservabilityConfig struct {
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPProtocol   string `mapstructure:"otlp_protocol"`
	OTLPInsecure   bool   `mapstructure:"otlp_insecure"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	Environment    string `mapstructure:"environment"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "kcbridge.db")
	v.SetDefault("server_addr", "localhost:8080")
	v.SetDefault("max_db_connections", 25)
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "text")

	v.SetDefault("keycloak.base_url", "")
	v.SetDefault("keycloak.realm", "")
	v.SetDefault("keycloak.client_id", "")
	v.SetDefault("keycloak.client_secret", "")
	v.SetDefault("keycloak.token_path", "/auth/realms/{realm}/protocol/openid-connect/token")
	v.SetDefault("keycloak.userinfo_path", "/auth/realms/{realm}/protocol/openid-connect/userinfo")
	v.SetDefault("keycloak.admin_path_prefix", "/auth")
	v.SetDefault("keycloak.timeout", 5*time.Second)

	v.SetDefault("roles.default_role_id", 0)
	v.SetDefault("roles.default_role_code", "strapi-author")
	v.SetDefault("roles.excluded_roles", []string{})
	v.SetDefault("roles.super_admin_code", "strapi-super-admin")
	v.SetDefault("roles.super_admin_external_role", "SUPER_ADMIN")

	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", 8*time.Hour)
	v.SetDefault("session.cache_ttl", time.Minute)

	v.SetDefault("cors.allowed_origins", []string{})

	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.otlp_protocol", "http/protobuf")
	v.SetDefault("observability.otlp_insecure", false)
	v.SetDefault("observability.service_name", "kcbridge")
	v.SetDefault("observability.service_version", "dev")
	v.SetDefault("observability.environment", "development")
}

// Load reads configuration from the global viper instance, which the CLI has
// already pointed at flags and an optional config file.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads configuration from v. Environment variables (KCBRIDGE_*)
// take precedence over the config file, and both over the defaults.
func LoadFrom(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{}
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrConfiguration, err)
	}
	cfg.Roles.ExcludedRoles = trimAll(cfg.Roles.ExcludedRoles)
	cfg.CORS.AllowedOrigins = trimAll(cfg.CORS.AllowedOrigins)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("%w: %s_DATABASE_URL is required", ErrConfiguration, EnvPrefix)
	}

	return cfg, nil
}

// Validate checks the settings the IdP integration cannot run without.
func (k KeycloakConfig) Validate() error {
	required := []struct {
		value string
		env   string
	}{
		{k.BaseURL, "KEYCLOAK_BASE_URL"},
		{k.Realm, "KEYCLOAK_REALM"},
		{k.ClientID, "KEYCLOAK_CLIENT_ID"},
		{k.ClientSecret, "KEYCLOAK_CLIENT_SECRET"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s_%s is required", ErrConfiguration, EnvPrefix, r.env)
		}
	}
	if _, err := url.Parse(k.BaseURL); err != nil {
		return fmt.Errorf("%w: %s_KEYCLOAK_BASE_URL is not a valid URL: %v", ErrConfiguration, EnvPrefix, err)
	}
	if k.Timeout <= 0 {
		return fmt.Errorf("%w: %s_KEYCLOAK_TIMEOUT must be positive", ErrConfiguration, EnvPrefix)
	}
	return nil
}

// Validate checks that session tokens can be signed.
func (s SessionConfig) Validate() error {
	if s.Secret == "" {
		return fmt.Errorf("%w: %s_SESSION_SECRET is required", ErrConfiguration, EnvPrefix)
	}
	if s.TTL <= 0 {
		return fmt.Errorf("%w: %s_SESSION_TTL must be positive", ErrConfiguration, EnvPrefix)
	}
	return nil
}

// TokenURL is the absolute realm token endpoint.
func (k KeycloakConfig) TokenURL() string {
	return k.join(k.TokenPath)
}

// UserInfoURL is the absolute realm user-info endpoint.
func (k KeycloakConfig) UserInfoURL() string {
	return k.join(k.UserInfoPath)
}

// AdminRealmURL is the base of the realm-scoped admin REST API.
func (k KeycloakConfig) AdminRealmURL() string {
	return k.join(k.AdminPathPrefix + "/admin/realms/{realm}")
}

func (k KeycloakConfig) join(path string) string {
	path = strings.ReplaceAll(path, "{realm}", url.PathEscape(k.Realm))
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(k.BaseURL, "/") + path
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
