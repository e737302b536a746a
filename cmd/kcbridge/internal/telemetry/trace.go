package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan creates a new span for a service operation.
// This is a convenience wrapper around otel.Tracer().Start() with common patterns.
//
// Usage in services:
//
//	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerLogin, "login.Login",
//	    attribute.String(telemetry.AttrUserEmail, email),
//	)
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records an error on the span and sets the span status to error.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddEvent adds a named event to the span with optional attributes.
//
// Example:
//
//	telemetry.AddEvent(span, "reconcile.roles_changed",
//	    attribute.Int64(telemetry.AttrUserID, user.ID),
//	)
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// Tracer names
const (
	TracerKeycloak = "kcbridge/keycloak"
	TracerLogin    = "kcbridge/services/login"
	TracerIdentity = "kcbridge/services/identity"
	TracerMappings = "kcbridge/services/mappings"
)

// Common attribute keys
const (
	// Keycloak attributes
	AttrIdPOperation = "idp.operation"
	AttrIdPRealm     = "idp.realm"
	AttrIdPStatus    = "idp.status_code"

	// User attributes
	AttrUserID    = "user.id"
	AttrUserEmail = "user.email"
	AttrSubject   = "user.subject"

	// Role attributes
	AttrRoleCount     = "role.count"
	AttrRolesChanged  = "role.changed"
	AttrLoginState    = "login.state"
	AttrLoginOutcome  = "login.outcome"
	AttrMappingsCount = "mappings.count"
)
