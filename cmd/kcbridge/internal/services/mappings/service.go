// Package mappings backs the role mapping admin endpoints.
package mappings

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/keycloak"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/repository"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/telemetry"
)

var (
	// ErrFetchRoles means either role catalog could not be listed.
	ErrFetchRoles = errors.New("failed to fetch roles")
	// ErrLoadMappings means the mapping table could not be read.
	ErrLoadMappings = errors.New("failed to retrieve role mappings")
	// ErrStoreMappings means a valid mapping set could not be written.
	ErrStoreMappings = errors.New("failed to save role mappings")
	// ErrMissingMappings means no mapping set was submitted at all. An empty
	// set is valid and clears the table.
	ErrMissingMappings = errors.New("mappings object is required")
)

// RealmRoleLister lists every role defined in the realm.
type RealmRoleLister interface {
	RealmRoles(ctx context.Context) ([]keycloak.Role, error)
}

// LocalRoleLister lists the local role catalog.
type LocalRoleLister interface {
	List(ctx context.Context) ([]models.AdminRole, error)
}

// MappingStore reads and replaces the mapping table.
type MappingStore interface {
	Save(ctx context.Context, mappings map[string]int64) error
	GetAll(ctx context.Context) ([]models.RoleMapping, error)
}

// RoleCatalog pairs realm roles with local roles for the mapping editor.
type RoleCatalog struct {
	KeycloakRoles []keycloak.Role    `json:"keycloakRoles"`
	LocalRoles    []models.AdminRole `json:"strapiRoles"`
}

// Service implements the mapping administration operations.
type Service struct {
	realm    RealmRoleLister
	local    LocalRoleLister
	store    MappingStore
	excluded map[string]struct{}
	logger   logrus.FieldLogger
}

// NewService creates a Service hiding excludedRoles from realm role listings.
func NewService(realm RealmRoleLister, local LocalRoleLister, store MappingStore, excludedRoles []string, logger logrus.FieldLogger) *Service {
	excluded := make(map[string]struct{}, len(excludedRoles))
	for _, name := range excludedRoles {
		excluded[name] = struct{}{}
	}
	return &Service{
		realm:    realm,
		local:    local,
		store:    store,
		excluded: excluded,
		logger:   logger.WithField("component", "role_mappings"),
	}
}

// ListRoles fetches realm and local roles concurrently.
func (s *Service) ListRoles(ctx context.Context) (*RoleCatalog, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerMappings, "mappings.ListRoles")
	defer span.End()

	var (
		realmRoles []keycloak.Role
		localRoles []models.AdminRole
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		roles, err := s.realm.RealmRoles(gctx)
		if err != nil {
			return fmt.Errorf("realm roles: %w", err)
		}
		realmRoles = roles
		return nil
	})
	g.Go(func() error {
		roles, err := s.local.List(gctx)
		if err != nil {
			return fmt.Errorf("local roles: %w", err)
		}
		localRoles = roles
		return nil
	})
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		s.logger.WithField("error", err.Error()).Error("failed to fetch roles")
		return nil, ErrFetchRoles
	}

	visible := make([]keycloak.Role, 0, len(realmRoles))
	for _, r := range realmRoles {
		if _, hidden := s.excluded[r.Name]; hidden {
			continue
		}
		visible = append(visible, r)
	}
	if localRoles == nil {
		localRoles = []models.AdminRole{}
	}

	span.SetAttributes(attribute.Int(telemetry.AttrRoleCount, len(visible)))
	return &RoleCatalog{KeycloakRoles: visible, LocalRoles: localRoles}, nil
}

// GetMappings returns the table as externalRole → localRoleID.
func (s *Service) GetMappings(ctx context.Context) (map[string]int64, error) {
	rows, err := s.store.GetAll(ctx)
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("failed to retrieve role mappings")
		return nil, ErrLoadMappings
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.ExternalRole] = r.LocalRoleID
	}
	return out, nil
}

// SaveMappings replaces the table with mappings.
// Validation failures are returned unchanged; storage failures become
// ErrStoreMappings.
func (s *Service) SaveMappings(ctx context.Context, mappings map[string]int64) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerMappings, "mappings.SaveMappings",
		attribute.Int(telemetry.AttrMappingsCount, len(mappings)),
	)
	defer span.End()

	if mappings == nil {
		s.logger.Warn("rejected role mappings without a mappings object")
		return ErrMissingMappings
	}

	err := s.store.Save(ctx, mappings)
	switch {
	case err == nil:
		s.logger.WithField("count", len(mappings)).Info("role mappings saved")
		return nil
	case IsValidation(err):
		s.logger.WithField("error", err.Error()).Warn("rejected role mappings")
		return err
	default:
		telemetry.RecordError(span, err)
		s.logger.WithField("error", err.Error()).Error("failed to save role mappings")
		return ErrStoreMappings
	}
}

// IsValidation reports whether err rejects the submitted mappings themselves.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingMappings) ||
		errors.Is(err, repository.ErrInvalidMapping) ||
		errors.Is(err, repository.ErrDuplicateMapping)
}
