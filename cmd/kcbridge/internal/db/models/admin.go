package models

import (
	"time"

	"github.com/uptrace/bun"
)

// AdminRole is a local authorization role. Code is the stable identifier used by
// seeding and bootstrap; ID is what role mappings and user assignments reference.
type AdminRole struct {
	bun.BaseModel `bun:"table:admin_roles,alias:ar"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Code        string    `bun:"code,notnull,unique" json:"code"`
	Description string    `bun:"description" json:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

// AdminUser is the local administrator account provisioned from the IdP.
// Email is unique and stored lower-cased.
type AdminUser struct {
	bun.BaseModel `bun:"table:admin_users,alias:au"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Email     string    `bun:"email,notnull,unique"`
	Firstname string    `bun:"firstname,notnull"`
	Lastname  string    `bun:"lastname,notnull"`
	Username  string    `bun:"username,notnull"`
	IsActive  bool      `bun:"is_active,notnull"`
	Blocked   bool      `bun:"blocked,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`

	// Roles is loaded by the repository; it is not a column.
	Roles []AdminRole `bun:"-"`
}

// RoleIDs returns the identifiers of the loaded roles.
func (u *AdminUser) RoleIDs() []int64 {
	if u == nil {
		return nil
	}
	ids := make([]int64, 0, len(u.Roles))
	for _, r := range u.Roles {
		ids = append(ids, r.ID)
	}
	return ids
}

// CanSignIn reports whether the account may hold a session.
func (u *AdminUser) CanSignIn() bool {
	return u != nil && u.IsActive && !u.Blocked
}

// AdminUserRole assigns a local role to a user.
type AdminUserRole struct {
	bun.BaseModel `bun:"table:admin_users_roles,alias:aur"`

	UserID int64 `bun:"user_id,pk"`
	RoleID int64 `bun:"role_id,pk"`
}

// AdminPermission grants one action to a role. Rows are the policy source for
// the authorizer.
type AdminPermission struct {
	bun.BaseModel `bun:"table:admin_permissions,alias:ap"`

	ID        int64     `bun:"id,pk,autoincrement"`
	RoleID    int64     `bun:"role_id,notnull,unique:role_action"`
	Action    string    `bun:"action,notnull,unique:role_action"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
