package auth

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/uptrace/bun"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/auth/bunadapter"
)

//go:embed model.conf
var casbinModelContent string

// InitEnforcer creates a Casbin enforcer with the embedded model and the
// admin_permissions adapter sharing db's connection pool.
func InitEnforcer(db *bun.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := bunadapter.NewAdapter(db)
	if err != nil {
		return nil, fmt.Errorf("create casbin adapter: %w", err)
	}

	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load casbin policies: %w", err)
	}

	return enforcer, nil
}

// Authorizer answers whether a principal holds a permission action.
type Authorizer struct {
	enforcer casbin.IEnforcer
}

// NewAuthorizer wraps enforcer.
func NewAuthorizer(enforcer casbin.IEnforcer) (*Authorizer, error) {
	if enforcer == nil {
		return nil, errors.New("authorizer requires casbin enforcer")
	}
	return &Authorizer{enforcer: enforcer}, nil
}

// Allowed is true when any of the principal's roles is granted action.
func (a *Authorizer) Allowed(principal Principal, action string) (bool, error) {
	for _, roleID := range principal.RoleIDs {
		ok, err := a.enforcer.Enforce(bunadapter.RoleSubject(roleID), action)
		if err != nil {
			return false, fmt.Errorf("enforce %s for role %d: %w", action, roleID, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Grant persists action for roleID. Granting an existing permission is a no-op.
func (a *Authorizer) Grant(roleID int64, action string) error {
	if !IsKnownAction(action) {
		return fmt.Errorf("unknown action %q", action)
	}
	if _, err := a.enforcer.AddPolicy(bunadapter.RoleSubject(roleID), action); err != nil {
		return fmt.Errorf("grant %s to role %d: %w", action, roleID, err)
	}
	return nil
}

// Revoke removes action from roleID.
func (a *Authorizer) Revoke(roleID int64, action string) error {
	if _, err := a.enforcer.RemovePolicy(bunadapter.RoleSubject(roleID), action); err != nil {
		return fmt.Errorf("revoke %s from role %d: %w", action, roleID, err)
	}
	return nil
}

// Actions lists the actions granted directly to roleID.
func (a *Authorizer) Actions(roleID int64) ([]string, error) {
	rules, err := a.enforcer.GetFilteredPolicy(0, bunadapter.RoleSubject(roleID))
	if err != nil {
		return nil, fmt.Errorf("list actions for role %d: %w", roleID, err)
	}
	actions := make([]string, 0, len(rules))
	for _, rule := range rules {
		if len(rule) > 1 {
			actions = append(actions, rule[1])
		}
	}
	return actions, nil
}
