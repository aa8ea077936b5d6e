// Package domain provides the core business types, error taxonomy, and
// request-principal helpers shared by every Terrazzo component.
package domain

import (
	"context"

	"github.com/google/uuid"
)

// Staff roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSupport = "support"
)

// contextKey is unexported to prevent collisions with other packages.
type contextKey int

const (
	principalContextKey contextKey = iota
	requestIDContextKey
)

// PrincipalKind discriminates the five session kinds.
type PrincipalKind string

const (
	PrincipalAnonymous PrincipalKind = "anonymous"
	PrincipalCustomer  PrincipalKind = "customer"
	PrincipalTrade     PrincipalKind = "trade"
	PrincipalRep       PrincipalKind = "rep"
	PrincipalStaff     PrincipalKind = "staff"
)

// Principal is the authenticated identity attached to a request.
// Exactly one of the ID fields is meaningful for a given kind; anonymous
// principals carry only the cart session ID.
type Principal struct {
	Kind          PrincipalKind
	ID            uuid.UUID // staff, rep, trade, or customer row id
	Email         string
	Role          string // staff only
	CartSessionID string // anonymous only
}

// IsStaff reports whether the principal is a staff member, optionally
// restricted to the given roles.
func (p *Principal) IsStaff(roles ...string) bool {
	if p == nil || p.Kind != PrincipalStaff {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// ActorLabel renders the principal for activity-log rows, e.g. "staff:jo@x.com".
func (p *Principal) ActorLabel() string {
	if p == nil {
		return "system"
	}
	return string(p.Kind) + ":" + p.Email
}

// NewContextWithPrincipal returns a context with the principal attached.
func NewContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext retrieves the principal, or nil if the request is
// unauthenticated.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey).(*Principal)
	return p
}

// NewContextWithRequestID returns a context with the request ID attached.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
