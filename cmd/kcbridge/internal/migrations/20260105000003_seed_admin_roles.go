package migrations

import (
	"context"
	"fmt"
	"time"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/auth"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260105000003, down_20260105000003)
}

// Seeded role codes. The super-admin code is what the bootstrap mapping looks up.
const (
	RoleCodeSuperAdmin = "strapi-super-admin"
	RoleCodeEditor     = "strapi-editor"
	RoleCodeAuthor     = "strapi-author"
)

var seededRoleCodes = []string{RoleCodeSuperAdmin, RoleCodeEditor, RoleCodeAuthor}

// up_20260105000003 seeds the default local roles and grants every plugin
// permission to the super-admin role
func up_20260105000003(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] seeding default admin roles...")

	now := time.Now().UTC()
	defaultRoles := []models.AdminRole{
		{
			Name:        "Super Admin",
			Code:        RoleCodeSuperAdmin,
			Description: "Super Admins can access and manage all features and settings.",
		},
		{
			Name:        "Editor",
			Code:        RoleCodeEditor,
			Description: "Editors can manage and publish contents including those of other users.",
		},
		{
			Name:        "Author",
			Code:        RoleCodeAuthor,
			Description: "Authors can manage the content they have created.",
		},
	}

	for _, role := range defaultRoles {
		role.CreatedAt = now
		role.UpdatedAt = now
		_, err := db.NewInsert().
			Model(&role).
			On("CONFLICT (code) DO NOTHING"). // Idempotent
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed role %s: %w", role.Code, err)
		}
	}
	fmt.Println(" OK")

	fmt.Print(" [up] seeding super-admin permissions...")

	var superAdmin models.AdminRole
	if err := db.NewSelect().Model(&superAdmin).Where("code = ?", RoleCodeSuperAdmin).Scan(ctx); err != nil {
		return fmt.Errorf("failed to load super-admin role: %w", err)
	}

	permissions := make([]models.AdminPermission, 0, len(auth.PluginActions))
	for _, action := range auth.PluginActions {
		permissions = append(permissions, models.AdminPermission{
			RoleID:    superAdmin.ID,
			Action:    action,
			CreatedAt: now,
		})
	}

	_, err := db.NewInsert().
		Model(&permissions).
		On("CONFLICT (role_id, action) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed super-admin permissions: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20260105000003 removes seeded roles; permissions and mappings cascade
func down_20260105000003(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] removing seeded admin roles...")

	_, err := db.NewDelete().
		Model((*models.AdminRole)(nil)).
		Where("code IN (?)", bun.In(seededRoleCodes)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove seeded roles: %w", err)
	}
	fmt.Println(" OK")

	return nil
}
