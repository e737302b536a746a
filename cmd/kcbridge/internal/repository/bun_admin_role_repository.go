package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
)

// ========================================
// Admin Role Repository
// ========================================

// BunAdminRoleRepository implements AdminRoleRepository using Bun ORM
type BunAdminRoleRepository struct {
	db *bun.DB
}

// NewBunAdminRoleRepository creates a new Bun-based admin role repository
func NewBunAdminRoleRepository(db *bun.DB) AdminRoleRepository {
	return &BunAdminRoleRepository{db: db}
}

// Create inserts a new role
func (r *BunAdminRoleRepository) Create(ctx context.Context, role *models.AdminRole) error {
	if role.Code == "" || role.Name == "" {
		return errors.New("create role: name and code are required")
	}
	now := time.Now().UTC()
	role.CreatedAt = now
	role.UpdatedAt = now

	_, err := r.db.NewInsert().
		Model(role).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateRole, role.Code)
		}
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

// GetByID retrieves a role by ID
func (r *BunAdminRoleRepository) GetByID(ctx context.Context, id int64) (*models.AdminRole, error) {
	role := new(models.AdminRole)
	err := r.db.NewSelect().
		Model(role).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

// GetByCode retrieves a role by its stable code
func (r *BunAdminRoleRepository) GetByCode(ctx context.Context, code string) (*models.AdminRole, error) {
	role := new(models.AdminRole)
	err := r.db.NewSelect().
		Model(role).
		Where("code = ?", code).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %q: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("get role by code: %w", err)
	}
	return role, nil
}

// List returns all roles ordered by ID
func (r *BunAdminRoleRepository) List(ctx context.Context) ([]models.AdminRole, error) {
	var roles []models.AdminRole
	err := r.db.NewSelect().
		Model(&roles).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}
