package identity

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/telemetry"
)

// RealmRoleSource lists the realm roles held by an IdP subject.
type RealmRoleSource interface {
	UserRealmRoles(ctx context.Context, subjectID string) ([]string, error)
}

// MappingLister reads the full role mapping table.
type MappingLister interface {
	GetAll(ctx context.Context) ([]models.RoleMapping, error)
}

// ResolveLocalRoles maps external role names to local role ids.
// Matching is exact and case-sensitive. The result is deduplicated and sorted
// ascending; when nothing matches it is exactly [defaultRoleID].
func ResolveLocalRoles(externalRoles []string, table []models.RoleMapping, defaultRoleID int64) []int64 {
	byName := make(map[string]int64, len(table))
	for _, m := range table {
		byName[m.ExternalRole] = m.LocalRoleID
	}

	seen := make(map[int64]struct{}, len(externalRoles))
	out := make([]int64, 0, len(externalRoles))
	for _, name := range externalRoles {
		id, ok := byName[name]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	if len(out) == 0 {
		return []int64{defaultRoleID}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Resolver computes the local roles for an IdP subject.
type Resolver struct {
	roles         RealmRoleSource
	mappings      MappingLister
	defaultRoleID int64
	logger        logrus.FieldLogger
}

// NewResolver creates a Resolver falling back to defaultRoleID.
func NewResolver(roles RealmRoleSource, mappings MappingLister, defaultRoleID int64, logger logrus.FieldLogger) *Resolver {
	return &Resolver{
		roles:         roles,
		mappings:      mappings,
		defaultRoleID: defaultRoleID,
		logger:        logger.WithField("component", "role_resolver"),
	}
}

// DefaultRoleID is the role assigned when no mapping matches.
func (r *Resolver) DefaultRoleID() int64 {
	return r.defaultRoleID
}

// FetchExternalRoles returns the subject's realm roles, or nil when they
// cannot be fetched. Failures are logged and never returned.
func (r *Resolver) FetchExternalRoles(ctx context.Context, subjectID string) []string {
	names, err := r.roles.UserRealmRoles(ctx, subjectID)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"subject": subjectID,
			"error":   err.Error(),
		}).Warn("failed to fetch realm roles, falling back to default role")
		return nil
	}
	return names
}

// Resolve fetches realm roles and the mapping table and resolves them.
// Only a mapping table failure is returned, as a StorageError.
func (r *Resolver) Resolve(ctx context.Context, subjectID string) ([]int64, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIdentity, "identity.Resolve",
		attribute.String(telemetry.AttrSubject, subjectID),
	)
	defer span.End()

	external := r.FetchExternalRoles(ctx, subjectID)

	table, err := r.mappings.GetAll(ctx)
	if err != nil {
		err = storageError("load role mappings", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	roleIDs := ResolveLocalRoles(external, table, r.defaultRoleID)
	span.SetAttributes(attribute.Int(telemetry.AttrRoleCount, len(roleIDs)))

	r.logger.WithFields(logrus.Fields{
		"subject":        subjectID,
		"external_roles": external,
		"role":           roleIDs,
	}).Debug("resolved local roles")
	return roleIDs, nil
}
