package identity

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/models"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/keycloak"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/repository"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/telemetry"
)

// UserStore is the subset of the admin user repository the reconciler writes to.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	Create(ctx context.Context, user *models.AdminUser, roleIDs []int64) error
	UpdateProfileAndRoles(ctx context.Context, user *models.AdminUser, roleIDs []int64) error
}

// RoleResolver resolves the local roles of an IdP subject.
type RoleResolver interface {
	Resolve(ctx context.Context, subjectID string) ([]int64, error)
}

// Reconciler keeps the local admin user in line with the IdP profile.
type Reconciler struct {
	users    UserStore
	resolver RoleResolver
	logger   logrus.FieldLogger
}

// NewReconciler creates a Reconciler.
func NewReconciler(users UserStore, resolver RoleResolver, logger logrus.FieldLogger) *Reconciler {
	return &Reconciler{
		users:    users,
		resolver: resolver,
		logger:   logger.WithField("component", "user_reconciler"),
	}
}

// FindOrCreate returns the local user for profile.
//
// A missing user is created active with the resolved roles. An existing user
// whose role set differs from the resolved set has names and roles rewritten
// together; when the sets are equal nothing is written.
func (r *Reconciler) FindOrCreate(ctx context.Context, profile keycloak.Profile) (*models.AdminUser, error) {
	email := repository.NormalizeEmail(profile.Email)

	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIdentity, "identity.FindOrCreate",
		attribute.String(telemetry.AttrUserEmail, email),
		attribute.String(telemetry.AttrSubject, profile.SubjectID),
	)
	defer span.End()

	if email == "" {
		err := validationError("find or create user", errors.New("profile has no email"))
		telemetry.RecordError(span, err)
		return nil, err
	}

	existing, err := r.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		err = storageError("look up user", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	roleIDs, err := r.resolver.Resolve(ctx, profile.SubjectID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	log := r.logger.WithFields(logrus.Fields{"email": email, "subject": profile.SubjectID})

	if existing == nil {
		user := &models.AdminUser{
			Email:     email,
			Firstname: profile.GivenName,
			Lastname:  profile.FamilyName,
			Username:  profile.PreferredUsername,
			IsActive:  true,
		}
		err := r.users.Create(ctx, user, roleIDs)
		switch {
		case err == nil:
			log.WithField("role", roleIDs).Info("created admin user from IdP profile")
			return user, nil
		case errors.Is(err, repository.ErrDuplicateUser):
			// A concurrent login created the row first; reconcile against it.
			winner, getErr := r.users.GetByEmail(ctx, email)
			if getErr != nil {
				err = storageError("look up user after concurrent create", getErr)
				telemetry.RecordError(span, err)
				return nil, err
			}
			log.Debug("admin user created concurrently")
			existing = winner
		default:
			err = storageError("create user", err)
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	if sameRoleSet(existing.RoleIDs(), roleIDs) {
		span.SetAttributes(attribute.Bool(telemetry.AttrRolesChanged, false))
		log.Debug("admin user roles unchanged")
		return existing, nil
	}

	span.SetAttributes(attribute.Bool(telemetry.AttrRolesChanged, true))
	previous := existing.RoleIDs()
	existing.Firstname = profile.GivenName
	existing.Lastname = profile.FamilyName
	existing.Username = profile.PreferredUsername
	if err := r.users.UpdateProfileAndRoles(ctx, existing, roleIDs); err != nil {
		err = storageError("update user", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"previous_roles": previous,
		"role":           roleIDs,
	}).Info("updated admin user roles")
	return existing, nil
}

// sameRoleSet reports whether a and b hold the same ids, ignoring order and
// repetition.
func sameRoleSet(a, b []int64) bool {
	left := make(map[int64]struct{}, len(a))
	for _, id := range a {
		left[id] = struct{}{}
	}
	right := make(map[int64]struct{}, len(b))
	for _, id := range b {
		right[id] = struct{}{}
	}
	if len(left) != len(right) {
		return false
	}
	for id := range left {
		if _, ok := right[id]; !ok {
			return false
		}
	}
	return true
}
