package migrations

import (
	"context"
	"fmt"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260105000002, down_20260105000002)
}

// up_20260105000002 creates the external role mapping table
func up_20260105000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating keycloak_role_mappings table...")
	_, err := db.NewCreateTable().
		Model((*models.RoleMapping)(nil)).
		IfNotExists().
		ForeignKey(`("local_role_id") REFERENCES "admin_roles" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create keycloak_role_mappings table: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_keycloak_role_mappings_local_role_id ON keycloak_role_mappings(local_role_id)`)
	if err != nil {
		return fmt.Errorf("failed to create keycloak_role_mappings local_role_id index: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20260105000002 drops the external role mapping table
func down_20260105000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping keycloak_role_mappings table...")
	if _, err := db.NewDropTable().Table("keycloak_role_mappings").IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop keycloak_role_mappings table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}
