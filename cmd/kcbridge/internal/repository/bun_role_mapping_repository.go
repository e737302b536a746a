package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
)

// ========================================
// Role Mapping Repository
// ========================================

// BunRoleMappingRepository implements RoleMappingRepository using Bun ORM
type BunRoleMappingRepository struct {
	db *bun.DB
}

// NewBunRoleMappingRepository creates a new Bun-based role mapping repository
func NewBunRoleMappingRepository(db *bun.DB) RoleMappingRepository {
	return &BunRoleMappingRepository{db: db}
}

// ValidateMappings checks every entry without touching storage.
// Names are trimmed before the length check.
func ValidateMappings(mappings map[string]int64) error {
	for name, roleID := range mappings {
		if err := validateMapping(name, roleID); err != nil {
			return err
		}
	}
	return nil
}

func validateMapping(externalRole string, localRoleID int64) error {
	trimmed := strings.TrimSpace(externalRole)
	n := utf8.RuneCountInString(trimmed)
	if n < models.ExternalRoleMinLen || n > models.ExternalRoleMaxLen {
		return fmt.Errorf("%w: external role %q must be %d-%d characters",
			ErrInvalidMapping, externalRole, models.ExternalRoleMinLen, models.ExternalRoleMaxLen)
	}
	if localRoleID <= 0 {
		return fmt.Errorf("%w: external role %q has invalid local role id %d", ErrInvalidMapping, externalRole, localRoleID)
	}
	return nil
}

// Save replaces the table inside a single transaction. A failure at any
// point rolls back, leaving the previous mappings intact.
func (r *BunRoleMappingRepository) Save(ctx context.Context, mappings map[string]int64) error {
	if err := ValidateMappings(mappings); err != nil {
		return err
	}

	now := time.Now().UTC()
	rows := make([]models.RoleMapping, 0, len(mappings))
	seen := make(map[string]struct{}, len(mappings))
	roleIDs := make(map[int64]struct{}, len(mappings))
	for name, roleID := range mappings {
		name = strings.TrimSpace(name)
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateMapping, name)
		}
		seen[name] = struct{}{}
		roleIDs[roleID] = struct{}{}
		rows = append(rows, models.RoleMapping{
			ExternalRole: name,
			LocalRoleID:  roleID,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ExternalRole < rows[j].ExternalRole })

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureRolesExist(ctx, tx, roleIDs); err != nil {
			return err
		}

		if _, err := tx.NewDelete().Model((*models.RoleMapping)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("clear role mappings: %w", err)
		}

		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %v", ErrDuplicateMapping, err)
			}
			return fmt.Errorf("insert role mappings: %w", err)
		}
		return nil
	})
}

func ensureRolesExist(ctx context.Context, db bun.IDB, roleIDs map[int64]struct{}) error {
	if len(roleIDs) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(roleIDs))
	for id := range roleIDs {
		ids = append(ids, id)
	}

	var found []int64
	err := db.NewSelect().
		Model((*models.AdminRole)(nil)).
		Column("id").
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx, &found)
	if err != nil {
		return fmt.Errorf("check local roles: %w", err)
	}
	if len(found) == len(ids) {
		return nil
	}

	known := make(map[int64]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: local role %d does not exist", ErrInvalidMapping, id)
		}
	}
	return nil
}

// GetAll returns every mapping ordered by external role name
func (r *BunRoleMappingRepository) GetAll(ctx context.Context) ([]models.RoleMapping, error) {
	var rows []models.RoleMapping
	err := r.db.NewSelect().
		Model(&rows).
		Order("external_role ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list role mappings: %w", err)
	}
	return rows, nil
}

// GetByExternalRole retrieves the mapping for one external role
func (r *BunRoleMappingRepository) GetByExternalRole(ctx context.Context, externalRole string) (*models.RoleMapping, error) {
	row := new(models.RoleMapping)
	err := r.db.NewSelect().
		Model(row).
		Where("external_role = ?", externalRole).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role mapping %q: %w", externalRole, ErrNotFound)
		}
		return nil, fmt.Errorf("get role mapping: %w", err)
	}
	return row, nil
}

// Create inserts a single mapping
func (r *BunRoleMappingRepository) Create(ctx context.Context, mapping *models.RoleMapping) error {
	mapping.ExternalRole = strings.TrimSpace(mapping.ExternalRole)
	if err := validateMapping(mapping.ExternalRole, mapping.LocalRoleID); err != nil {
		return err
	}

	now := time.Now().UTC()
	mapping.CreatedAt = now
	mapping.UpdatedAt = now

	_, err := r.db.NewInsert().
		Model(mapping).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateMapping, mapping.ExternalRole)
		}
		return fmt.Errorf("create role mapping: %w", err)
	}
	return nil
}
