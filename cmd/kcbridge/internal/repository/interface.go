package repository

import (
	"context"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
)

// RoleMappingRepository persists the external role → local role table.
type RoleMappingRepository interface {
	// Save atomically replaces the whole table with mappings.
	Save(ctx context.Context, mappings map[string]int64) error
	// GetAll returns every mapping ordered by external role.
	GetAll(ctx context.Context) ([]models.RoleMapping, error)
	GetByExternalRole(ctx context.Context, externalRole string) (*models.RoleMapping, error)
	// Create inserts a single mapping; duplicates fail with ErrDuplicateMapping.
	Create(ctx context.Context, mapping *models.RoleMapping) error
}

// AdminUserRepository persists local admin accounts and their role assignments.
// Returned users always have Roles loaded.
type AdminUserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	GetByID(ctx context.Context, id int64) (*models.AdminUser, error)
	// Create inserts user and its role assignments in one transaction.
	Create(ctx context.Context, user *models.AdminUser, roleIDs []int64) error
	// UpdateProfileAndRoles overwrites names, username and role assignments in one transaction.
	UpdateProfileAndRoles(ctx context.Context, user *models.AdminUser, roleIDs []int64) error
	SetBlocked(ctx context.Context, id int64, blocked bool) error
	List(ctx context.Context) ([]models.AdminUser, error)
}

// AdminRoleRepository exposes the local role catalog.
type AdminRoleRepository interface {
	Create(ctx context.Context, role *models.AdminRole) error
	GetByID(ctx context.Context, id int64) (*models.AdminRole, error)
	GetByCode(ctx context.Context, code string) (*models.AdminRole, error)
	List(ctx context.Context) ([]models.AdminRole, error)
}
