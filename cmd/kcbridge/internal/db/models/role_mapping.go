package models

import (
	"time"

	"github.com/uptrace/bun"
)

// External role names are bounded to keep the unique index portable.
const (
	ExternalRoleMinLen = 3
	ExternalRoleMaxLen = 100
)

// RoleMapping translates one IdP realm role into a local role.
// At most one row exists per ExternalRole.
type RoleMapping struct {
	bun.BaseModel `bun:"table:keycloak_role_mappings,alias:krm"`

	ID           int64     `bun:"id,pk,autoincrement"`
	ExternalRole string    `bun:"external_role,notnull,unique,type:varchar(100)"`
	LocalRoleID  int64     `bun:"local_role_id,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
