// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/bunx"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/migrations"
)

// NewSQLite returns a fresh in-memory database with every migration applied,
// including the seeded admin roles. It is closed when the test ends.
func NewSQLite(t testing.TB) *bun.DB {
	t.Helper()

	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	return db
}

// RoleID returns the id of the seeded role with code.
func RoleID(t testing.TB, db *bun.DB, code string) int64 {
	t.Helper()

	var role models.AdminRole
	require.NoError(t, db.NewSelect().Model(&role).Where("code = ?", code).Scan(context.Background()))
	return role.ID
}

// CreateRole inserts an extra local role and returns it.
func CreateRole(t testing.TB, db *bun.DB, code string) models.AdminRole {
	t.Helper()

	now := time.Now().UTC()
	role := models.AdminRole{Name: code, Code: code, CreatedAt: now, UpdatedAt: now}
	_, err := db.NewInsert().Model(&role).Exec(context.Background())
	require.NoError(t, err)
	return role
}
