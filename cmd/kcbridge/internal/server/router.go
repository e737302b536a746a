package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/auth"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/config"
	kcmiddleware "github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/middleware"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/respond"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/telemetry"
)

// RouterOptions controls the construction of the bridge HTTP router.
// Login and Mappings are optional; their routes are only mounted when set.
type RouterOptions struct {
	Login    LoginService
	Mappings MappingService

	// Authn resolves the session principal. Required when Mappings is set.
	Authn func(http.Handler) http.Handler
	// Permissions evaluates plugin actions. Required when Mappings is set.
	Permissions kcmiddleware.PermissionChecker

	Logger      logrus.FieldLogger
	CORSOptions *cors.Options
	Middleware  []func(http.Handler) http.Handler

	// HealthCheck, when set, backs /health. A failing check reports 503.
	HealthCheck func(context.Context) error
	ExtraRoutes func(chi.Router)
}

// DefaultCORSOptions returns the shared development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:1337",
			"http://127.0.0.1:1337",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// CORSOptionsFromConfig applies the configured origins to the default policy.
// An empty origin list keeps the development defaults.
func CORSOptionsFromConfig(cfg config.CORSConfig) cors.Options {
	opts := DefaultCORSOptions()
	if len(cfg.AllowedOrigins) > 0 {
		opts.AllowedOrigins = cfg.AllowedOrigins
	}
	return opts
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy, and
// the bridge handlers mounted.
func NewRouter(opts RouterOptions) (chi.Router, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(kcmiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(kcmiddleware.Metrics)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	if opts.Login != nil {
		r.Post("/admin/login", HandleLogin(opts.Login))
	}
	for _, path := range disabledPasswordFlows {
		r.Get(path, HandleLoginRedirect)
	}

	if opts.Mappings != nil {
		if err := mountRoleMappingRoutes(r, opts, logger); err != nil {
			return nil, err
		}
	}

	r.Get("/health", healthHandler(opts.HealthCheck))
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	if opts.ExtraRoutes != nil {
		opts.ExtraRoutes(r)
	}

	return r, nil
}

func mountRoleMappingRoutes(r chi.Router, opts RouterOptions, logger logrus.FieldLogger) error {
	if opts.Authn == nil || opts.Permissions == nil {
		return errMissingAuth
	}

	guard := func(action string) (func(http.Handler) http.Handler, error) {
		return kcmiddleware.RequirePermission(opts.Permissions, action, logger)
	}
	access, err := guard(auth.ActionAccess)
	if err != nil {
		return err
	}
	view, err := guard(auth.ActionViewRoleMappings)
	if err != nil {
		return err
	}
	manage, err := guard(auth.ActionManageRoleMappings)
	if err != nil {
		return err
	}

	handlers := NewRoleMappingHandlers(opts.Mappings)
	r.Group(func(r chi.Router) {
		r.Use(opts.Authn, access)

		r.With(view).Get("/keycloak-roles", handlers.GetRoles)
		r.With(view).Get("/get-keycloak-role-mappings", handlers.GetRoleMappings)
		r.With(manage).Post("/save-keycloak-role-mappings", handlers.SaveRoleMappings)
	})
	return nil
}

func healthHandler(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// NewH2CHandler wraps the shared router with an h2c server to provide HTTP/2 over
// cleartext.
func NewH2CHandler(opts RouterOptions) (http.Handler, error) {
	router, err := NewRouter(opts)
	if err != nil {
		return nil, err
	}
	return h2c.NewHandler(router, &http2.Server{}), nil
}
