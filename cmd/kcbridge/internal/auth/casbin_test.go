package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/auth"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/dbtest"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/migrations"
)

func TestAuthorizer_SeededSuperAdmin(t *testing.T) {
	db := dbtest.NewSQLite(t)
	superAdminID := dbtest.RoleID(t, db, migrations.RoleCodeSuperAdmin)
	editorID := dbtest.RoleID(t, db, migrations.RoleCodeEditor)

	enforcer, err := auth.InitEnforcer(db)
	require.NoError(t, err)
	authz, err := auth.NewAuthorizer(enforcer)
	require.NoError(t, err)

	for _, action := range auth.PluginActions {
		allowed, err := authz.Allowed(auth.Principal{RoleIDs: []int64{superAdminID}}, action)
		require.NoError(t, err)
		assert.True(t, allowed, action)

		allowed, err = authz.Allowed(auth.Principal{RoleIDs: []int64{editorID}}, action)
		require.NoError(t, err)
		assert.False(t, allowed, action)
	}

	// Any role holding the action is enough, not only the first one.
	allowed, err := authz.Allowed(auth.Principal{RoleIDs: []int64{editorID, superAdminID}}, auth.ActionManageRoleMappings)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = authz.Allowed(auth.Principal{}, auth.ActionAccess)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAuthorizer_GrantRevokePersist(t *testing.T) {
	db := dbtest.NewSQLite(t)
	editorID := dbtest.RoleID(t, db, migrations.RoleCodeEditor)

	enforcer, err := auth.InitEnforcer(db)
	require.NoError(t, err)
	authz, err := auth.NewAuthorizer(enforcer)
	require.NoError(t, err)

	require.NoError(t, authz.Grant(editorID, auth.ActionAccess))
	require.NoError(t, authz.Grant(editorID, auth.ActionViewRoleMappings))
	require.Error(t, authz.Grant(editorID, "plugin::kcbridge.unknown"))

	count, err := db.NewSelect().Model((*models.AdminPermission)(nil)).Where("role_id = ?", editorID).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// A fresh enforcer sees the persisted grants.
	reloaded, err := auth.InitEnforcer(db)
	require.NoError(t, err)
	authz2, err := auth.NewAuthorizer(reloaded)
	require.NoError(t, err)

	actions, err := authz2.Actions(editorID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{auth.ActionAccess, auth.ActionViewRoleMappings}, actions)

	require.NoError(t, authz2.Revoke(editorID, auth.ActionAccess))
	allowed, err := authz2.Allowed(auth.Principal{RoleIDs: []int64{editorID}}, auth.ActionAccess)
	require.NoError(t, err)
	assert.False(t, allowed)

	count, err = db.NewSelect().Model((*models.AdminPermission)(nil)).Where("role_id = ?", editorID).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
