// Package routes wires the handler surface onto echo, one registration
// function per role prefix.
package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/handler"
	"github.com/dukerupert/terrazzo/internal/middleware"
)

// Register mounts every route group under /api plus the /metrics
// endpoint. resolver turns tokens into principals; it is the auth
// service in production and a stub in tests.
func Register(e *echo.Echo, h *handler.Handler, resolver middleware.Resolver, metrics *middleware.Metrics, logger zerolog.Logger) {
	e.HTTPErrorHandler = handler.ErrorHandler(logger)
	e.Use(middleware.RequestLogger(logger))
	e.Use(metrics.Middleware())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	registerAuth(api, h)
	registerStorefront(api, h, resolver)
	registerAdmin(api, h, resolver)
	registerRep(api, h, resolver)
	registerTrade(api, h, resolver)
	registerCustomer(api, h, resolver)

	api.POST("/webhooks/stripe", h.StripeWebhook)
}

func registerAuth(g *echo.Group, h *handler.Handler) {
	a := g.Group("/auth")
	a.POST("/staff/login", h.StaffLogin)
	a.POST("/staff/verify", h.VerifyStaffCode)
	a.POST("/staff/logout", h.Logout(domain.PrincipalStaff))
	a.POST("/rep/login", h.RepLogin)
	a.POST("/rep/logout", h.Logout(domain.PrincipalRep))
	a.POST("/trade/login", h.TradeLogin)
	a.POST("/trade/logout", h.Logout(domain.PrincipalTrade))
	a.POST("/customer/login", h.CustomerLogin)
	a.POST("/customer/logout", h.Logout(domain.PrincipalCustomer))
}

// Storefront routes carry optional trade and customer identity: trade
// callers see tier pricing, customer callers get orders attached to
// their account.
func registerStorefront(g *echo.Group, h *handler.Handler, resolver middleware.Resolver) {
	s := g.Group("",
		middleware.OptionalAuth(resolver, domain.PrincipalTrade),
		middleware.OptionalAuth(resolver, domain.PrincipalCustomer),
	)
	s.POST("/cart", h.AddCartItem)
	s.GET("/cart", h.ListCartItems)
	s.DELETE("/cart/items/:itemId", h.RemoveCartItem)
	s.POST("/shipping/estimate", h.EstimateShipping)
	s.POST("/promo-codes/validate", h.ValidatePromo)
	s.POST("/stock-alerts", h.SubscribeStockAlert)
	s.POST("/checkout/create-payment-intent", h.CreateCheckoutIntent)
	s.POST("/checkout/place-order", h.PlaceOrder)
}

func registerAdmin(g *echo.Group, h *handler.Handler, resolver middleware.Resolver) {
	a := g.Group("/admin",
		middleware.RequireAuth(resolver, domain.PrincipalStaff),
		middleware.RequireRole(domain.RoleAdmin, domain.RoleManager),
	)

	a.GET("/orders", h.ListOrders)
	a.GET("/orders/:id", h.GetOrder)
	a.PUT("/orders/:id/status", h.UpdateOrderStatus)
	a.POST("/orders/:id/refund", h.RefundOrder)
	a.GET("/orders/:id/ledger", h.GetOrderLedger)
	a.POST("/orders/:id/payment-request", h.CreatePaymentRequest)
	a.POST("/orders/:id/add-item", h.AddOrderItem)
	a.DELETE("/orders/:id/items/:itemId", h.RemoveOrderItem)
	a.PUT("/orders/:id/items/:itemId/price", h.AdjustItemPrice)
	a.POST("/orders/:id/delivery/pickup", h.SwitchOrderToPickup)
	a.POST("/orders/:id/delivery/options", h.OrderShippingOptions)
	a.PUT("/orders/:id/delivery/shipping", h.SwitchOrderToShipping)

	a.GET("/purchase-orders/:poId", h.GetPurchaseOrder)
	a.PUT("/purchase-orders/:poId/status", h.UpdatePOStatus)
	a.POST("/purchase-orders/:poId/send", h.SendPurchaseOrder)
	a.POST("/purchase-orders/:poId/approve", h.ApprovePurchaseOrder)
	a.PUT("/purchase-orders/items/:itemId/status", h.UpdatePOItemStatus)
	a.PATCH("/purchase-orders/items/:itemId", h.EditPOItem)

	a.GET("/staff", h.ListStaff)
	a.POST("/staff", h.CreateStaff)
	a.PATCH("/staff/:id", h.UpdateStaff)

	a.GET("/promo-codes", h.ListPromos)
	a.POST("/promo-codes", h.CreatePromo)
	a.PATCH("/promo-codes/:id", h.UpdatePromo)

	a.POST("/vendor-sources/:id/scrape", h.TriggerScrape)
	a.POST("/scrape-jobs/:id/stop", h.StopScrapeJob)
	a.GET("/scrape-jobs/:id", h.GetScrapeJob)
}

func registerRep(g *echo.Group, h *handler.Handler, resolver middleware.Resolver) {
	r := g.Group("/rep", middleware.RequireAuth(resolver, domain.PrincipalRep))

	r.POST("/quotes", h.CreateQuote)
	r.GET("/quotes/:id", h.GetQuote)
	r.PUT("/quotes/:id", h.UpdateQuote)
	r.POST("/quotes/:id/send", h.SendQuote)
	r.POST("/quotes/:id/convert", h.ConvertQuote)

	r.POST("/orders", h.CreateQuickOrder)
	r.GET("/orders", h.ListRepOrders)
	r.PUT("/orders/:id/items/:itemId/price", h.AdjustItemPrice)
	r.GET("/orders/:id/commission", h.GetRepCommission)
}

func registerTrade(g *echo.Group, h *handler.Handler, resolver middleware.Resolver) {
	t := g.Group("/trade", middleware.RequireAuth(resolver, domain.PrincipalTrade))

	t.POST("/orders", h.CreateBulkOrder)
	t.GET("/orders", h.ListTradeOrders)

	t.POST("/documents", h.UploadTradeDocument)
	t.GET("/documents", h.ListTradeDocuments)
	t.GET("/documents/:docId/url", h.TradeDocumentURL)
}

func registerCustomer(g *echo.Group, h *handler.Handler, resolver middleware.Resolver) {
	cu := g.Group("/customer", middleware.RequireAuth(resolver, domain.PrincipalCustomer))

	cu.GET("/orders", h.ListCustomerOrders)
	cu.GET("/orders/:id", h.GetCustomerOrder)
}
