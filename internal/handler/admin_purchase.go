package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/purchase"
)

// GetPurchaseOrder returns a PO with its lines and activity log.
func (h *Handler) GetPurchaseOrder(c echo.Context) error {
	id, err := pathID(c, "poId")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	po, err := h.Store.GetPurchaseOrder(ctx, id)
	if err != nil {
		return err
	}
	items, err := h.Store.ListPOItems(ctx, id)
	if err != nil {
		return err
	}
	activity, err := h.Store.ListPOActivity(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"purchase_order": po,
		"items":          items,
		"activity":       activity,
	})
}

type poStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdatePOStatus runs an explicit PO transition.
func (h *Handler) UpdatePOStatus(c echo.Context) error {
	id, err := pathID(c, "poId")
	if err != nil {
		return err
	}
	var req poStatusRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	po, err := h.Purchase.Transition(c.Request().Context(), id, domain.POStatus(req.Status), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, po)
}

// SendPurchaseOrder dispatches the PO to its vendor over EDI when
// configured, email otherwise. Re-sending bumps the revision.
func (h *Handler) SendPurchaseOrder(c echo.Context) error {
	id, err := pathID(c, "poId")
	if err != nil {
		return err
	}
	po, err := h.Purchase.Send(c.Request().Context(), id, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, po)
}

// ApprovePurchaseOrder stamps the approving staff member on a draft PO.
func (h *Handler) ApprovePurchaseOrder(c echo.Context) error {
	id, err := pathID(c, "poId")
	if err != nil {
		return err
	}
	if err := h.Purchase.Approve(c.Request().Context(), id, actor(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type poItemStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdatePOItemStatus moves one line and applies any roll-up transition
// the item statuses derive.
func (h *Handler) UpdatePOItemStatus(c echo.Context) error {
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return err
	}
	var req poItemStatusRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	po, err := h.Purchase.UpdateItemStatus(c.Request().Context(), itemID, domain.POItemStatus(req.Status), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, po)
}

type poItemEditRequest struct {
	Qty        *int             `json:"qty"`
	CostPerBox *decimal.Decimal `json:"cost_per_box"`
}

// EditPOItem changes cost or quantity on a draft PO line.
func (h *Handler) EditPOItem(c echo.Context) error {
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return err
	}
	var req poItemEditRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	if req.Qty == nil && req.CostPerBox == nil {
		return domain.Invalid("handler.po.edit_item", "nothing to edit")
	}
	err = h.Purchase.EditDraftItem(c.Request().Context(), itemID, purchase.ItemEdit{
		Qty:        req.Qty,
		CostPerBox: req.CostPerBox,
	}, actor(c))
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
