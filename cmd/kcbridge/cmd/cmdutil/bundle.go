// Package cmdutil builds the collaborators shared by the CLI commands.
package cmdutil

import (
	"context"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/auth"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/config"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/bunx"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/keycloak"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/logging"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/migrations"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/repository"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/services/identity"
)

// Load reads the configuration the root command prepared and builds the logger.
func Load() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logging.New(cfg.Debug, cfg.LogFormat), nil
}

// Bundle groups the storage-backed collaborators with their DB connection so
// callers can reuse the connection for other repositories when necessary.
type Bundle struct {
	DB         *bun.DB
	Users      repository.AdminUserRepository
	Roles      repository.AdminRoleRepository
	Mappings   repository.RoleMappingRepository
	Enforcer   *casbin.SyncedEnforcer
	Authorizer *auth.Authorizer
	Logger     logrus.FieldLogger
}

// Close stops policy reloads and releases the underlying database connection.
func (b *Bundle) Close() {
	if b == nil {
		return
	}
	if b.Enforcer != nil {
		b.Enforcer.StopAutoLoadPolicy()
	}
	if b.DB != nil {
		_ = bunx.Close(b.DB)
	}
}

// NewBundle connects to the database, checks that the schema is current, and
// initializes the casbin enforcer.
func NewBundle(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*Bundle, error) {
	opts := []bunx.Option{bunx.WithMaxOpenConns(cfg.MaxDBConnections)}
	if cfg.Debug {
		opts = append(opts, bunx.WithQueryLogger(logger))
	}
	db, err := bunx.NewDB(cfg.DatabaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := EnsureMigrated(ctx, db); err != nil {
		_ = bunx.Close(db)
		return nil, err
	}

	enforcer, err := auth.InitEnforcer(db)
	if err != nil {
		_ = bunx.Close(db)
		return nil, fmt.Errorf("failed to initialize casbin enforcer: %w", err)
	}
	authorizer, err := auth.NewAuthorizer(enforcer)
	if err != nil {
		_ = bunx.Close(db)
		return nil, err
	}

	return &Bundle{
		DB:         db,
		Users:      repository.NewBunAdminUserRepository(db),
		Roles:      repository.NewBunAdminRoleRepository(db),
		Mappings:   repository.NewBunRoleMappingRepository(db),
		Enforcer:   enforcer,
		Authorizer: authorizer,
		Logger:     logger,
	}, nil
}

// EnsureMigrated fails when the migration table is missing or migrations are pending.
func EnsureMigrated(ctx context.Context, db *bun.DB) error {
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to read migration status (run 'kcbridge db init'): %w", err)
	}
	if pending := ms.Unapplied(); len(pending) > 0 {
		return fmt.Errorf("%d pending migration(s), run 'kcbridge db migrate' first", len(pending))
	}
	return nil
}

// ResolveDefaultRoleID returns the configured default role id, or the id of the
// role named by DefaultRoleCode when no id is set. The role must exist, since
// every unmapped first sign-in is assigned it.
func (b *Bundle) ResolveDefaultRoleID(ctx context.Context, roles config.RoleConfig) (int64, error) {
	if roles.DefaultRoleID > 0 {
		if _, err := b.Roles.GetByID(ctx, roles.DefaultRoleID); err != nil {
			return 0, fmt.Errorf("default role %d: %w", roles.DefaultRoleID, err)
		}
		return roles.DefaultRoleID, nil
	}
	if roles.DefaultRoleCode == "" {
		return 0, fmt.Errorf("%w: set roles.default_role_id or roles.default_role_code (KCBRIDGE_ROLES_DEFAULT_ROLE_CODE)", config.ErrConfiguration)
	}
	role, err := b.Roles.GetByCode(ctx, roles.DefaultRoleCode)
	if err != nil {
		return 0, fmt.Errorf("default role %q: %w", roles.DefaultRoleCode, err)
	}
	return role.ID, nil
}

// NewSeeder builds the bootstrap seeder from the role configuration.
func (b *Bundle) NewSeeder(cfg *config.Config) *identity.Seeder {
	return identity.NewSeeder(b.Roles, b.Mappings, cfg.Roles.SuperAdminCode, cfg.Roles.SuperAdminExternalRole, b.Logger)
}

// NewKeycloakClient builds the token source and admin client for the realm.
func NewKeycloakClient(cfg *config.Config, logger logrus.FieldLogger) (*keycloak.Client, *keycloak.OAuth2TokenSource) {
	httpClient := keycloak.NewHTTPClient(cfg.Keycloak.Timeout)
	tokens := keycloak.NewOAuth2TokenSource(cfg.Keycloak, httpClient)
	return keycloak.NewClient(cfg.Keycloak, tokens, httpClient, logger), tokens
}
