package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/terrazzo/internal/domain"
)

// stubResolver maps tokens to principals.
type stubResolver struct {
	sessions map[string]*domain.Principal
}

func (r *stubResolver) Resolve(ctx context.Context, kind domain.PrincipalKind, token string) (*domain.Principal, error) {
	p, ok := r.sessions[token]
	if !ok || p.Kind != kind {
		return nil, domain.Unauthenticated("test.resolve", "invalid or expired session")
	}
	return p, nil
}

func authApp(mw ...echo.MiddlewareFunc) (*echo.Echo, *domain.Principal) {
	e := echo.New()
	seen := &domain.Principal{}
	e.GET("/guarded", func(c echo.Context) error {
		if p := GetPrincipal(c); p != nil {
			*seen = *p
		}
		return c.NoContent(http.StatusOK)
	}, mw...)
	return e, seen
}

func doGet(e *echo.Echo, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	resolver := &stubResolver{sessions: map[string]*domain.Principal{
		"tok-staff": {Kind: domain.PrincipalStaff, Email: "jo@x.com", Role: domain.RoleAdmin},
	}}
	e, seen := authApp(RequireAuth(resolver, domain.PrincipalStaff))

	rec := doGet(e, map[string]string{HeaderStaffToken: "tok-staff"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PrincipalStaff, seen.Kind)
	assert.Equal(t, "jo@x.com", seen.Email)
}

func TestRequireAuthRejectsMissingAndBadTokens(t *testing.T) {
	resolver := &stubResolver{sessions: map[string]*domain.Principal{}}
	e, _ := authApp(RequireAuth(resolver, domain.PrincipalStaff))

	err := errFromApp(e, nil)
	assert.Equal(t, domain.EUNAUTHENTICATED, domain.ErrorCode(err))

	err = errFromApp(e, map[string]string{HeaderStaffToken: "nope"})
	assert.Equal(t, domain.EUNAUTHENTICATED, domain.ErrorCode(err))
}

func TestRequireAuthRejectsWrongKind(t *testing.T) {
	// A valid rep token does not open a staff route.
	resolver := &stubResolver{sessions: map[string]*domain.Principal{
		"tok-rep": {Kind: domain.PrincipalRep, Email: "rep@x.com"},
	}}
	e, _ := authApp(RequireAuth(resolver, domain.PrincipalStaff))
	err := errFromApp(e, map[string]string{HeaderStaffToken: "tok-rep"})
	assert.Equal(t, domain.EUNAUTHENTICATED, domain.ErrorCode(err))
}

func TestOptionalAuthNeverFails(t *testing.T) {
	resolver := &stubResolver{sessions: map[string]*domain.Principal{
		"tok-trade": {Kind: domain.PrincipalTrade, Email: "trade@x.com"},
	}}
	e, seen := authApp(OptionalAuth(resolver, domain.PrincipalTrade))

	rec := doGet(e, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doGet(e, map[string]string{HeaderTradeToken: "garbage"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doGet(e, map[string]string{HeaderTradeToken: "tok-trade"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "trade@x.com", seen.Email)
}

func TestRequireRole(t *testing.T) {
	resolver := &stubResolver{sessions: map[string]*domain.Principal{
		"tok-admin":   {Kind: domain.PrincipalStaff, Email: "a@x.com", Role: domain.RoleAdmin},
		"tok-support": {Kind: domain.PrincipalStaff, Email: "s@x.com", Role: domain.RoleSupport},
	}}
	e, _ := authApp(
		RequireAuth(resolver, domain.PrincipalStaff),
		RequireRole(domain.RoleAdmin, domain.RoleManager),
	)

	rec := doGet(e, map[string]string{HeaderStaffToken: "tok-admin"})
	assert.Equal(t, http.StatusOK, rec.Code)

	err := errFromApp(e, map[string]string{HeaderStaffToken: "tok-support"})
	assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
}

func TestRequireRoleWithoutStaffSession(t *testing.T) {
	e, _ := authApp(RequireRole(domain.RoleAdmin))
	err := errFromApp(e, nil)
	assert.Equal(t, domain.EUNAUTHENTICATED, domain.ErrorCode(err))
}

// errFromApp runs the request through the router but captures the
// handler chain's error before echo's default error handler renders it.
func errFromApp(e *echo.Echo, headers map[string]string) error {
	var got error
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		got = err
		_ = c.NoContent(StatusForError(err))
	}
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return got
}
