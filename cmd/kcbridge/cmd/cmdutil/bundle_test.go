package cmdutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/config"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/bunx"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/dbtest"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/migrations"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/repository"
)

func TestEnsureMigrated(t *testing.T) {
	require.NoError(t, EnsureMigrated(context.Background(), dbtest.NewSQLite(t)))
}

func TestNewBundle_RequiresMigratedSchema(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{DatabaseURL: filepath.Join(t.TempDir(), "kcbridge.db")}

	_, err := NewBundle(context.Background(), cfg, logger)
	require.Error(t, err)
}

func TestNewBundle_Migrated(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{
		DatabaseURL: filepath.Join(t.TempDir(), "kcbridge.db"),
		Roles: config.RoleConfig{
			SuperAdminCode:         migrations.RoleCodeSuperAdmin,
			SuperAdminExternalRole: "SUPER_ADMIN",
		},
	}

	require.NoError(t, bunx.Close(openAndMigrate(t, cfg.DatabaseURL)))

	bundle, err := NewBundle(ctx, cfg, logger)
	require.NoError(t, err)
	defer bundle.Close()

	require.NoError(t, bundle.NewSeeder(cfg).EnsureDefaultMapping(ctx))
	m, err := bundle.Mappings.GetByExternalRole(ctx, "SUPER_ADMIN")
	require.NoError(t, err)

	role, err := bundle.Roles.GetByCode(ctx, migrations.RoleCodeSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, role.ID, m.LocalRoleID)
}

func TestBundle_ResolveDefaultRoleID(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{DatabaseURL: filepath.Join(t.TempDir(), "kcbridge.db")}
	require.NoError(t, bunx.Close(openAndMigrate(t, cfg.DatabaseURL)))

	bundle, err := NewBundle(ctx, cfg, logger)
	require.NoError(t, err)
	defer bundle.Close()

	author, err := bundle.Roles.GetByCode(ctx, migrations.RoleCodeAuthor)
	require.NoError(t, err)

	t.Run("fresh install resolves the seeded code", func(t *testing.T) {
		id, err := bundle.ResolveDefaultRoleID(ctx, config.RoleConfig{DefaultRoleCode: migrations.RoleCodeAuthor})
		require.NoError(t, err)
		assert.Equal(t, author.ID, id)
	})

	t.Run("explicit id wins over code", func(t *testing.T) {
		id, err := bundle.ResolveDefaultRoleID(ctx, config.RoleConfig{DefaultRoleID: 2, DefaultRoleCode: migrations.RoleCodeAuthor})
		require.NoError(t, err)
		assert.Equal(t, int64(2), id)
	})

	t.Run("unknown id is rejected", func(t *testing.T) {
		_, err := bundle.ResolveDefaultRoleID(ctx, config.RoleConfig{DefaultRoleID: 99})
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("unknown code is rejected", func(t *testing.T) {
		_, err := bundle.ResolveDefaultRoleID(ctx, config.RoleConfig{DefaultRoleCode: "strapi-missing"})
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("neither id nor code", func(t *testing.T) {
		_, err := bundle.ResolveDefaultRoleID(ctx, config.RoleConfig{})
		require.ErrorIs(t, err, config.ErrConfiguration)
	})
}

func openAndMigrate(t *testing.T, dsn string) *bun.DB {
	t.Helper()
	db, err := bunx.NewDB(dsn)
	require.NoError(t, err)
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(context.Background()))
	_, err = migrator.Migrate(context.Background())
	require.NoError(t, err)
	return db
}
