package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/middleware"
)

type staffLoginRequest struct {
	Email             string `json:"email" validate:"required,email"`
	Password          string `json:"password" validate:"required"`
	DeviceFingerprint string `json:"device_fingerprint"`
	RememberMe        bool   `json:"remember_me"`
}

// StaffLogin authenticates a staff member. When 2FA is required the
// response carries requires_2fa and no token; the client follows up on
// the verify endpoint.
func (h *Handler) StaffLogin(c echo.Context) error {
	var req staffLoginRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	res, err := h.Auth.StaffLogin(c.Request().Context(), req.Email, req.Password, req.DeviceFingerprint, req.RememberMe)
	if err != nil {
		return err
	}
	if res.Requires2FA {
		return c.JSON(http.StatusOK, map[string]any{
			"requires_2fa": true,
			"staff_id":     res.StaffID,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"token":           res.Token,
		"expires_at":      res.ExpiresAt,
		"role":            res.Role,
		"two_factor_skip": res.TwoFactorSkip,
	})
}

type staffVerifyRequest struct {
	StaffID           uuid.UUID `json:"staff_id" validate:"required"`
	Code              string    `json:"code" validate:"required,len=6"`
	DeviceFingerprint string    `json:"device_fingerprint"`
	RememberMe        bool      `json:"remember_me"`
	TrustDevice       bool      `json:"trust_device"`
}

// VerifyStaffCode consumes a 2FA code and issues the staff session.
func (h *Handler) VerifyStaffCode(c echo.Context) error {
	var req staffVerifyRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	res, err := h.Auth.VerifyStaffCode(c.Request().Context(), req.StaffID, req.Code, req.DeviceFingerprint, req.RememberMe, req.TrustDevice)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"role":       res.Role,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) login(c echo.Context, kind domain.PrincipalKind) error {
	var req loginRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	switch kind {
	case domain.PrincipalRep:
		out, err := h.Auth.RepLogin(ctx, req.Email, req.Password)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"token": out.Token, "expires_at": out.ExpiresAt})
	case domain.PrincipalTrade:
		out, err := h.Auth.TradeLogin(ctx, req.Email, req.Password)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"token": out.Token, "expires_at": out.ExpiresAt})
	default:
		out, err := h.Auth.CustomerLogin(ctx, req.Email, req.Password)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"token": out.Token, "expires_at": out.ExpiresAt})
	}
}

func (h *Handler) RepLogin(c echo.Context) error      { return h.login(c, domain.PrincipalRep) }
func (h *Handler) TradeLogin(c echo.Context) error    { return h.login(c, domain.PrincipalTrade) }
func (h *Handler) CustomerLogin(c echo.Context) error { return h.login(c, domain.PrincipalCustomer) }

// Logout deletes the session named by the kind's token header. Missing or
// unknown tokens are not an error; logout is idempotent.
func (h *Handler) Logout(kind domain.PrincipalKind) echo.HandlerFunc {
	var header string
	switch kind {
	case domain.PrincipalStaff:
		header = middleware.HeaderStaffToken
	case domain.PrincipalRep:
		header = middleware.HeaderRepToken
	case domain.PrincipalTrade:
		header = middleware.HeaderTradeToken
	default:
		header = middleware.HeaderCustomerToken
	}
	return func(c echo.Context) error {
		token := c.Request().Header.Get(header)
		if token != "" {
			if err := h.Auth.Logout(c.Request().Context(), kind, token); err != nil {
				return err
			}
		}
		return c.NoContent(http.StatusNoContent)
	}
}
