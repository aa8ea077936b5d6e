// Package middleware holds the echo middlewares shared by every route
// group: authentication per principal kind, role gates, request logging,
// and Prometheus metrics.
package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/dukerupert/terrazzo/internal/domain"
)

// Header names for the four authenticated principal kinds. Anonymous cart
// traffic identifies itself with a session_id query or body field instead.
const (
	HeaderStaffToken    = "X-Staff-Token"
	HeaderRepToken      = "X-Rep-Token"
	HeaderTradeToken    = "X-Trade-Token"
	HeaderCustomerToken = "X-Customer-Token"
)

func tokenHeader(kind domain.PrincipalKind) string {
	switch kind {
	case domain.PrincipalStaff:
		return HeaderStaffToken
	case domain.PrincipalRep:
		return HeaderRepToken
	case domain.PrincipalTrade:
		return HeaderTradeToken
	default:
		return HeaderCustomerToken
	}
}

// Resolver turns a session token into a Principal. Implemented by
// auth.Service.
type Resolver interface {
	Resolve(ctx context.Context, kind domain.PrincipalKind, token string) (*domain.Principal, error)
}

// RequireAuth rejects requests without a valid token for the given kind.
func RequireAuth(resolver Resolver, kind domain.PrincipalKind) echo.MiddlewareFunc {
	header := tokenHeader(kind)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(header)
			if token == "" {
				return domain.Unauthenticated("middleware.auth", "missing "+header+" header")
			}
			p, err := resolver.Resolve(c.Request().Context(), kind, token)
			if err != nil {
				return err
			}
			setPrincipal(c, p)
			return next(c)
		}
	}
}

// OptionalAuth attaches identity when a valid token is present but never
// fails the request. Used on storefront routes where trade and customer
// identity changes pricing but is not required.
func OptionalAuth(resolver Resolver, kind domain.PrincipalKind) echo.MiddlewareFunc {
	header := tokenHeader(kind)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(header)
			if token != "" {
				if p, err := resolver.Resolve(c.Request().Context(), kind, token); err == nil {
					setPrincipal(c, p)
				}
			}
			return next(c)
		}
	}
}

// RequireRole gates a staff route on one of the given roles. It must run
// after RequireAuth for the staff kind.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := GetPrincipal(c)
			if p == nil || p.Kind != domain.PrincipalStaff {
				return domain.Unauthenticated("middleware.role", "staff session required")
			}
			if !p.IsStaff(roles...) {
				return domain.Forbidden("middleware.role", "insufficient role")
			}
			return next(c)
		}
	}
}

const principalContextKey = "principal"

func setPrincipal(c echo.Context, p *domain.Principal) {
	c.Set(principalContextKey, p)
	ctx := domain.NewContextWithPrincipal(c.Request().Context(), p)
	c.SetRequest(c.Request().WithContext(ctx))
}

// GetPrincipal retrieves the authenticated principal, or nil for anonymous
// requests.
func GetPrincipal(c echo.Context) *domain.Principal {
	p, ok := c.Get(principalContextKey).(*domain.Principal)
	if !ok {
		return nil
	}
	return p
}
