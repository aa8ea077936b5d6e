package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/middleware"
	"github.com/dukerupert/terrazzo/internal/order"
	"github.com/dukerupert/terrazzo/internal/postgres"
)

type bulkLineRequest struct {
	VendorSku string `json:"vendor_sku" validate:"required"`
	NumBoxes  int    `json:"num_boxes" validate:"required,min=1"`
}

type bulkOrderRequest struct {
	Lines           []bulkLineRequest `json:"lines" validate:"required,min=1,dive"`
	DeliveryMethod  string            `json:"delivery_method" validate:"required,oneof=pickup shipping"`
	ShippingAddress *domain.Address   `json:"shipping_address"`
}

// CreateBulkOrder places a trade order from a vendor-SKU list, priced at
// the account's tier discount.
func (h *Handler) CreateBulkOrder(c echo.Context) error {
	var req bulkOrderRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	p := middleware.GetPrincipal(c)

	in := order.BulkInput{
		TradeCustomerID: p.ID,
		DeliveryMethod:  req.DeliveryMethod,
		ShippingAddress: req.ShippingAddress,
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, order.BulkLine{VendorSku: l.VendorSku, NumBoxes: l.NumBoxes})
	}
	o, err := h.Orders.CreateBulk(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, o)
}

// ListTradeOrders lists the account's orders newest-first.
func (h *Handler) ListTradeOrders(c echo.Context) error {
	p := middleware.GetPrincipal(c)
	tradeID := p.ID
	orders, err := h.Store.ListOrders(c.Request().Context(), postgres.OrderListFilter{
		TradeCustomerID: &tradeID,
		Limit:           100,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"orders": orders})
}

// UploadTradeDocument stores a document for the account. Multipart form
// with a single "file" part.
func (h *Handler) UploadTradeDocument(c echo.Context) error {
	const op = "handler.trade.upload"
	p := middleware.GetPrincipal(c)

	fh, err := c.FormFile("file")
	if err != nil {
		return domain.Invalid(op, "a file part is required")
	}
	f, err := fh.Open()
	if err != nil {
		return domain.Internal(err, op, "could not read upload")
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	doc, err := h.TradeDocs.Upload(c.Request().Context(), p.ID, fh.Filename, contentType, fh.Size, f, p.ActorLabel())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, doc)
}

// ListTradeDocuments lists the account's documents.
func (h *Handler) ListTradeDocuments(c echo.Context) error {
	p := middleware.GetPrincipal(c)
	docs, err := h.TradeDocs.List(c.Request().Context(), p.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"documents": docs})
}

// TradeDocumentURL returns a short-lived presigned download link.
func (h *Handler) TradeDocumentURL(c echo.Context) error {
	docID, err := pathID(c, "docId")
	if err != nil {
		return err
	}
	p := middleware.GetPrincipal(c)
	url, err := h.TradeDocs.DownloadURL(c.Request().Context(), p.ID, docID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"url": url})
}
