package migrations

import (
	"context"
	"fmt"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260105000001, down_20260105000001)
}

// up_20260105000001 creates the local admin user store: roles, users, role
// assignments and role permissions.
func up_20260105000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating admin_roles table...")
	_, err := db.NewCreateTable().
		Model((*models.AdminRole)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create admin_roles table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating admin_users table...")
	_, err = db.NewCreateTable().
		Model((*models.AdminUser)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create admin_users table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating admin_users_roles table...")
	_, err = db.NewCreateTable().
		Model((*models.AdminUserRole)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "admin_users" ("id") ON DELETE CASCADE`).
		ForeignKey(`("role_id") REFERENCES "admin_roles" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create admin_users_roles table: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_admin_users_roles_role_id ON admin_users_roles(role_id)`)
	if err != nil {
		return fmt.Errorf("failed to create admin_users_roles role_id index: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating admin_permissions table...")
	_, err = db.NewCreateTable().
		Model((*models.AdminPermission)(nil)).
		IfNotExists().
		ForeignKey(`("role_id") REFERENCES "admin_roles" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create admin_permissions table: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20260105000001 drops the admin tables in reverse dependency order
func down_20260105000001(ctx context.Context, db *bun.DB) error {
	tables := []string{
		"admin_permissions",
		"admin_users_roles",
		"admin_users",
		"admin_roles",
	}

	for _, table := range tables {
		fmt.Printf(" [down] dropping %s table...", table)
		if _, err := db.NewDropTable().Table(table).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop %s table: %w", table, err)
		}
		fmt.Println(" OK")
	}

	return nil
}
