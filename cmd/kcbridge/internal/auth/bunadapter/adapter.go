package bunadapter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	"github.com/uptrace/bun"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
)

// Adapted from the msales/casbin-bun-adapter layout. Instead of a generic
// casbin_rules table, policies live in admin_permissions as (role_id, action)
// rows and are exposed to casbin as "p, role:<id>, <action>".

// RoleSubjectPrefix prefixes role ids in casbin subjects.
const RoleSubjectPrefix = "role:"

// ErrUnsupportedPolicy is returned for policy types other than "p" or rules
// that do not have exactly two fields.
var ErrUnsupportedPolicy = errors.New("unsupported policy rule")

// RoleSubject formats a role id as a casbin subject.
func RoleSubject(roleID int64) string {
	return RoleSubjectPrefix + strconv.FormatInt(roleID, 10)
}

// ParseRoleSubject extracts the role id from a casbin subject.
func ParseRoleSubject(subject string) (int64, error) {
	raw, ok := strings.CutPrefix(subject, RoleSubjectPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: subject %q is not a role", ErrUnsupportedPolicy, subject)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: subject %q has no valid role id", ErrUnsupportedPolicy, subject)
	}
	return id, nil
}

// Adapter stores casbin policies in admin_permissions through bun.
type Adapter struct {
	db  *bun.DB
	now func() time.Time
}

var _ persist.Adapter = (*Adapter)(nil)

// NewAdapter creates an Adapter on an existing connection.
// Expects the admin_permissions table to exist.
func NewAdapter(db *bun.DB) (*Adapter, error) {
	if db == nil {
		return nil, errors.New("bunadapter: nil database")
	}
	return &Adapter{db: db, now: time.Now}, nil
}

// LoadPolicy loads every permission row into the model.
func (a *Adapter) LoadPolicy(m model.Model) error {
	var rows []models.AdminPermission
	if err := a.db.NewSelect().Model(&rows).Order("role_id ASC", "action ASC").Scan(context.Background()); err != nil {
		return fmt.Errorf("failed to load policy from adapter db: %w", err)
	}

	for _, r := range rows {
		if err := persist.LoadPolicyArray([]string{"p", RoleSubject(r.RoleID), r.Action}, m); err != nil {
			return fmt.Errorf("failed to load permission %d: %w", r.ID, err)
		}
	}
	return nil
}

// SavePolicy replaces every permission row with the policies held by the model.
func (a *Adapter) SavePolicy(m model.Model) error {
	var rows []models.AdminPermission
	if assertion, ok := m["p"]["p"]; ok {
		for _, rule := range assertion.Policy {
			row, err := a.toRow("p", rule)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
	}

	return a.db.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.AdminPermission)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear permissions: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("failed to save policy to adapter db: %w", err)
		}
		return nil
	})
}

// AddPolicy inserts one permission row. Existing rows are left untouched.
func (a *Adapter) AddPolicy(_ string, ptype string, rule []string) error {
	row, err := a.toRow(ptype, rule)
	if err != nil {
		return err
	}

	_, err = a.db.NewInsert().
		Model(&row).
		On("CONFLICT (role_id, action) DO NOTHING").
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to add adapter policy rule: %w", err)
	}
	return nil
}

// RemovePolicy deletes one permission row.
func (a *Adapter) RemovePolicy(_ string, ptype string, rule []string) error {
	row, err := a.toRow(ptype, rule)
	if err != nil {
		return err
	}

	_, err = a.db.NewDelete().
		Model((*models.AdminPermission)(nil)).
		Where("role_id = ?", row.RoleID).
		Where("action = ?", row.Action).
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("failed to remove adapter policy rule: %w", err)
	}
	return nil
}

// RemoveFilteredPolicy deletes permission rows matching the given field values.
// Field 0 is the role subject, field 1 the action; empty values match anything.
func (a *Adapter) RemoveFilteredPolicy(_ string, ptype string, fieldIndex int, fieldValues ...string) error {
	if ptype != "p" {
		return fmt.Errorf("%w: ptype %q", ErrUnsupportedPolicy, ptype)
	}

	query := a.db.NewDelete().Model((*models.AdminPermission)(nil))
	filtered := false
	for i, value := range fieldValues {
		if value == "" {
			continue
		}
		switch fieldIndex + i {
		case 0:
			roleID, err := ParseRoleSubject(value)
			if err != nil {
				return err
			}
			query = query.Where("role_id = ?", roleID)
		case 1:
			query = query.Where("action = ?", value)
		default:
			return fmt.Errorf("%w: field index %d", ErrUnsupportedPolicy, fieldIndex+i)
		}
		filtered = true
	}
	if !filtered {
		query = query.Where("1 = 1")
	}

	if _, err := query.Exec(context.Background()); err != nil {
		return fmt.Errorf("failed to remove filtered adapter policy: %w", err)
	}
	return nil
}

func (a *Adapter) toRow(ptype string, rule []string) (models.AdminPermission, error) {
	if ptype != "p" || len(rule) != 2 {
		return models.AdminPermission{}, fmt.Errorf("%w: %s %v", ErrUnsupportedPolicy, ptype, rule)
	}
	roleID, err := ParseRoleSubject(rule[0])
	if err != nil {
		return models.AdminPermission{}, err
	}
	return models.AdminPermission{
		RoleID:    roleID,
		Action:    rule[1],
		CreatedAt: a.now().UTC(),
	}, nil
}
