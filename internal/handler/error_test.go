package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/terrazzo/internal/domain"
)

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func serve(err error) *httptest.ResponseRecorder {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop())
	e.GET("/boom", func(echo.Context) error { return err })
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	return rec
}

func TestErrorHandlerDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.Invalid("op", "bad input"), http.StatusBadRequest},
		{domain.Unauthenticated("op", "no token"), http.StatusUnauthorized},
		{domain.Forbidden("op", "nope"), http.StatusForbidden},
		{domain.NotFound("op", "order"), http.StatusNotFound},
		{domain.Conflict("op", "already converted"), http.StatusConflict},
		{domain.Upstream(errors.New("x"), "op", "gateway down"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		rec := serve(tc.err)
		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, domain.ErrorMessage(tc.err), errorBody(t, rec))
	}
}

func TestErrorHandlerHidesInternalDetail(t *testing.T) {
	rec := serve(domain.Internal(errors.New("pq: relation orders does not exist"), "op", "query failed"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, errorBody(t, rec), "relation orders")
}

func TestErrorHandlerPlainErrorsAreInternal(t *testing.T) {
	rec := serve(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestErrorHandlerUnknownRoute(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
