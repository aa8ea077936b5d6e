package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dukerupert/terrazzo/internal/auth"
	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/middleware"
)

// ListStaff returns every staff account.
func (h *Handler) ListStaff(c echo.Context) error {
	staff, err := h.Store.ListStaff(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"staff": staff})
}

type createStaffRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=admin manager support"`
}

// CreateStaff provisions a staff account. Only admins may mint other
// admins.
func (h *Handler) CreateStaff(c echo.Context) error {
	const op = "handler.staff.create"
	var req createStaffRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	p := middleware.GetPrincipal(c)
	if req.Role == domain.RoleAdmin && p.Role != domain.RoleAdmin {
		return domain.Forbidden(op, "only admins can create admin accounts")
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.Invalid(op, err.Error())
	}
	u := &domain.StaffUser{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         req.Role,
		Active:       true,
	}
	if err := h.Store.CreateStaff(c.Request().Context(), u); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

type updateStaffRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin manager support"`
	Active   *bool   `json:"active"`
}

// UpdateStaff patches a staff account. Managers cannot touch admin
// accounts or promote anyone to admin.
func (h *Handler) UpdateStaff(c echo.Context) error {
	const op = "handler.staff.update"
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateStaffRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	p := middleware.GetPrincipal(c)

	u, err := h.Store.GetStaff(ctx, id)
	if err != nil {
		return err
	}
	if p.Role != domain.RoleAdmin {
		if u.Role == domain.RoleAdmin {
			return domain.Forbidden(op, "only admins can modify admin accounts")
		}
		if req.Role != nil && *req.Role == domain.RoleAdmin {
			return domain.Forbidden(op, "only admins can grant the admin role")
		}
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return domain.Invalid(op, err.Error())
		}
		u.PasswordHash = hash
	}
	if req.Role != nil {
		u.Role = *req.Role
	}
	if req.Active != nil {
		u.Active = *req.Active
	}
	if err := h.Store.UpdateStaff(ctx, u); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}
