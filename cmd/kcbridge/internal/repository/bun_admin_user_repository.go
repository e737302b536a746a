package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
)

// ========================================
// Admin User Repository
// ========================================

// BunAdminUserRepository implements AdminUserRepository using Bun ORM
type BunAdminUserRepository struct {
	db *bun.DB
}

// NewBunAdminUserRepository creates a new Bun-based admin user repository
func NewBunAdminUserRepository(db *bun.DB) AdminUserRepository {
	return &BunAdminUserRepository{db: db}
}

// NormalizeEmail is the canonical stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetByEmail retrieves a user and its roles by email
func (r *BunAdminUserRepository) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	return r.getBy(ctx, r.db, "email = ?", NormalizeEmail(email))
}

// GetByID retrieves a user and its roles by ID
func (r *BunAdminUserRepository) GetByID(ctx context.Context, id int64) (*models.AdminUser, error) {
	return r.getBy(ctx, r.db, "id = ?", id)
}

func (r *BunAdminUserRepository) getBy(ctx context.Context, db bun.IDB, where string, arg any) (*models.AdminUser, error) {
	user := new(models.AdminUser)
	err := db.NewSelect().
		Model(user).
		Where(where, arg).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("admin user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get admin user: %w", err)
	}

	roles, err := loadUserRoles(ctx, db, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return user, nil
}

func loadUserRoles(ctx context.Context, db bun.IDB, userID int64) ([]models.AdminRole, error) {
	var roles []models.AdminRole
	err := db.NewSelect().
		Model(&roles).
		Join("JOIN admin_users_roles AS aur ON aur.role_id = ar.id").
		Where("aur.user_id = ?", userID).
		Order("ar.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roles for admin user %d: %w", userID, err)
	}
	return roles, nil
}

func replaceUserRoles(ctx context.Context, tx bun.Tx, userID int64, roleIDs []int64) error {
	if _, err := tx.NewDelete().
		Model((*models.AdminUserRole)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx); err != nil {
		return fmt.Errorf("clear roles for admin user %d: %w", userID, err)
	}

	if len(roleIDs) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(roleIDs))
	links := make([]models.AdminUserRole, 0, len(roleIDs))
	for _, roleID := range roleIDs {
		if _, dup := seen[roleID]; dup {
			continue
		}
		seen[roleID] = struct{}{}
		links = append(links, models.AdminUserRole{UserID: userID, RoleID: roleID})
	}

	if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
		return fmt.Errorf("assign roles to admin user %d: %w", userID, err)
	}
	return nil
}

// Create inserts a new user with its role assignments and reloads its roles
func (r *BunAdminUserRepository) Create(ctx context.Context, user *models.AdminUser, roleIDs []int64) error {
	user.Email = NormalizeEmail(user.Email)
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrDuplicateUser, user.Email)
			}
			return fmt.Errorf("create admin user: %w", err)
		}

		if err := replaceUserRoles(ctx, tx, user.ID, roleIDs); err != nil {
			return err
		}

		roles, err := loadUserRoles(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		user.Roles = roles
		return nil
	})
}

// UpdateProfileAndRoles overwrites the mutable profile columns and the role
// assignments of an existing user
func (r *BunAdminUserRepository) UpdateProfileAndRoles(ctx context.Context, user *models.AdminUser, roleIDs []int64) error {
	user.UpdatedAt = time.Now().UTC()

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewUpdate().
			Model(user).
			Column("firstname", "lastname", "username", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update admin user: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check update result: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("admin user %d: %w", user.ID, ErrNotFound)
		}

		if err := replaceUserRoles(ctx, tx, user.ID, roleIDs); err != nil {
			return err
		}

		roles, err := loadUserRoles(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		user.Roles = roles
		return nil
	})
}

// SetBlocked toggles whether the user may sign in
func (r *BunAdminUserRepository) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	result, err := r.db.NewUpdate().
		Model((*models.AdminUser)(nil)).
		Set("blocked = ?", blocked).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set blocked: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("admin user %d: %w", id, ErrNotFound)
	}
	return nil
}

// List returns all users ordered by email. Roles are loaded per user.
func (r *BunAdminUserRepository) List(ctx context.Context) ([]models.AdminUser, error) {
	var users []models.AdminUser
	if err := r.db.NewSelect().Model(&users).Order("email ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list admin users: %w", err)
	}

	for i := range users {
		roles, err := loadUserRoles(ctx, r.db, users[i].ID)
		if err != nil {
			return nil, err
		}
		users[i].Roles = roles
	}
	return users, nil
}
