package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/repository"
)

// RoleFinder looks up local roles by code.
type RoleFinder interface {
	GetByCode(ctx context.Context, code string) (*models.AdminRole, error)
}

// MappingSeeder reads and inserts single role mappings.
type MappingSeeder interface {
	GetByExternalRole(ctx context.Context, externalRole string) (*models.RoleMapping, error)
	Create(ctx context.Context, mapping *models.RoleMapping) error
}

// Seeder installs the default mapping from the super-admin realm role to the
// local super-admin role.
type Seeder struct {
	roles        RoleFinder
	mappings     MappingSeeder
	roleCode     string
	externalRole string
	logger       logrus.FieldLogger
}

// NewSeeder creates a Seeder mapping externalRole onto the local role
// identified by roleCode.
func NewSeeder(roles RoleFinder, mappings MappingSeeder, roleCode, externalRole string, logger logrus.FieldLogger) *Seeder {
	return &Seeder{
		roles:        roles,
		mappings:     mappings,
		roleCode:     roleCode,
		externalRole: externalRole,
		logger:       logger.WithField("component", "bootstrap_seeder"),
	}
}

// EnsureDefaultMapping creates the mapping if it is missing.
// A missing local role is logged and skipped. Running it again is a no-op.
func (s *Seeder) EnsureDefaultMapping(ctx context.Context) error {
	log := s.logger.WithFields(logrus.Fields{
		"role_code":     s.roleCode,
		"external_role": s.externalRole,
	})

	role, err := s.roles.GetByCode(ctx, s.roleCode)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn("super admin role not found, skipping default role mapping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up role %q: %w", s.roleCode, err)
	}

	existing, err := s.mappings.GetByExternalRole(ctx, s.externalRole)
	switch {
	case err == nil:
		log.WithField("role", existing.LocalRoleID).Info("default role mapping already exists")
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("look up mapping %q: %w", s.externalRole, err)
	}

	err = s.mappings.Create(ctx, &models.RoleMapping{
		ExternalRole: s.externalRole,
		LocalRoleID:  role.ID,
	})
	if errors.Is(err, repository.ErrDuplicateMapping) {
		log.Info("default role mapping created concurrently")
		return nil
	}
	if err != nil {
		return fmt.Errorf("create default mapping: %w", err)
	}

	log.WithField("role", role.ID).Info("default role mapping created")
	return nil
}
