package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/cmd/cmdutil"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/auth"
	kcmiddleware "github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/middleware"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/server"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/services/identity"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/services/login"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/services/mappings"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/telemetry"
)

// policyReloadInterval is how often permission rows are re-read so grants made
// through the CLI reach a running server.
const policyReloadInterval = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge HTTP server",
	Long:  `Starts the HTTP server with the Keycloak login and role mapping endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Keycloak.Validate(); err != nil {
			return err
		}
		if err := cfg.Session.Validate(); err != nil {
			return err
		}

		ctx := cmd.Context()

		shutdownTracing, err := telemetry.Init(ctx, cfg.Observability, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logger.WithField("error", err.Error()).Warn("failed to flush traces")
			}
		}()

		bundle, err := cmdutil.NewBundle(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer bundle.Close()
		logger.Info("connected to database")

		// Seeding is best effort; a missing super-admin role is logged, not fatal.
		if err := bundle.NewSeeder(cfg).EnsureDefaultMapping(ctx); err != nil {
			logger.WithField("error", err.Error()).Warn("bootstrap role mapping failed")
		}
		defaultRoleID, err := bundle.ResolveDefaultRoleID(ctx, cfg.Roles)
		if err != nil {
			return fmt.Errorf("failed to resolve default role: %w", err)
		}
		logger.WithField("role_id", defaultRoleID).Info("default role resolved")

		bundle.Enforcer.StartAutoLoadPolicy(policyReloadInterval)

		sessions, err := auth.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL)
		if err != nil {
			return err
		}

		kc, tokens := cmdutil.NewKeycloakClient(cfg, logger)
		resolver := identity.NewResolver(kc, bundle.Mappings, defaultRoleID, logger)
		reconciler := identity.NewReconciler(bundle.Users, resolver, logger)
		orchestrator := login.NewOrchestrator(tokens, kc, reconciler, sessions, logger)
		mappingService := mappings.NewService(kc, bundle.Roles, bundle.Mappings, cfg.Roles.ExcludedRoles, logger)

		authn, err := kcmiddleware.NewAuthnMiddleware(kcmiddleware.AuthnDependencies{
			Sessions: sessions,
			Users:    bundle.Users,
			Logger:   logger,
			CacheTTL: cfg.Session.CacheTTL,
		})
		if err != nil {
			return fmt.Errorf("configure authentication middleware: %w", err)
		}

		corsOpts := server.CORSOptionsFromConfig(cfg.CORS)
		handler, err := server.NewH2CHandler(server.RouterOptions{
			Login:       orchestrator,
			Mappings:    mappingService,
			Authn:       authn,
			Permissions: bundle.Authorizer,
			Logger:      logger,
			CORSOptions: &corsOpts,
			HealthCheck: bundle.DB.PingContext,
		})
		if err != nil {
			return fmt.Errorf("configure router: %w", err)
		}

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.WithField("addr", cfg.ServerAddr).Info("starting server")
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.WithField("signal", sig.String()).Info("shutting down gracefully")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			logger.Info("server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
