package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/auth"
	"github.com/dukerupert/terrazzo/internal/billing"
	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/postgres"
	"github.com/dukerupert/terrazzo/internal/pricing"
	"github.com/dukerupert/terrazzo/internal/purchase"
)

// CheckoutInput is the retail checkout payload. ShippingOption is the
// rate the buyer selected from the estimate call.
type CheckoutInput struct {
	SessionID string
	Email     string

	DeliveryMethod  string
	ShippingAddress *domain.Address
	ShippingOption  *SelectedRate

	PromoCode string

	PaymentIntentID string

	// CreateAccountPassword, when set, opens a retail account and session
	// as part of checkout.
	CreateAccountPassword string

	// Identity attached by the optional auth middlewares.
	CustomerID      *uuid.UUID
	TradeCustomerID *uuid.UUID
}

// SelectedRate is the buyer's chosen shipping option.
type SelectedRate struct {
	Carrier     string
	Service     string
	Cost        decimal.Decimal
	TransitDays int
	IsFallback  bool
}

// CheckoutQuote is the priced cart returned with a fresh payment intent.
type CheckoutQuote struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Shipping       decimal.Decimal `json:"shipping"`
	SampleShipping decimal.Decimal `json:"sample_shipping"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`

	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
}

// CheckoutResult is the committed order plus the session opened for a
// newly created account.
type CheckoutResult struct {
	Order         *domain.Order
	CustomerToken string
}

// price computes the checkout totals and validates the promo code.
func (s *Service) price(ctx context.Context, in CheckoutInput) (subtotal, shippingCost, sampleShipping, discount decimal.Decimal, promo *pricing.Result, items []domain.CartItem, err error) {
	const op = "order.checkout.price"
	items, err = s.store.ListCartItems(ctx, in.SessionID)
	if err != nil {
		return
	}
	if len(items) == 0 {
		err = domain.Invalid(op, "cart is empty")
		return
	}
	subtotal, sampleShipping = cartTotals(items)

	if in.DeliveryMethod == domain.DeliveryShipping {
		if in.ShippingOption == nil {
			err = domain.Invalid(op, "a shipping option is required for delivery orders")
			return
		}
		shippingCost = in.ShippingOption.Cost
	}

	if in.PromoCode != "" {
		var promoItems []pricing.Item
		promoItems, err = s.promoItemsFromCart(ctx, items)
		if err != nil {
			return
		}
		promo, err = pricing.ValidatePromo(ctx, s.store, in.PromoCode, promoItems, in.Email)
		if err != nil {
			return
		}
		discount = promo.DiscountAmount
	}
	return
}

// CreateCheckoutIntent prices the cart and opens a payment intent against
// the computed total.
func (s *Service) CreateCheckoutIntent(ctx context.Context, in CheckoutInput) (*CheckoutQuote, error) {
	const op = "order.checkout.intent"
	subtotal, shippingCost, sampleShipping, discount, _, _, err := s.price(ctx, in)
	if err != nil {
		return nil, err
	}
	total := subtotal.Add(shippingCost).Add(sampleShipping).Sub(discount)
	if !total.IsPositive() {
		return nil, domain.Invalid(op, "order total must be positive")
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, billing.CreatePaymentIntentParams{
		AmountCents:    billing.Cents(total),
		CustomerEmail:  in.Email,
		Description:    "Terrazzo order",
		Metadata:       map[string]string{"session_id": in.SessionID},
		IdempotencyKey: "checkout-" + in.SessionID,
	})
	if err != nil {
		return nil, domain.Upstream(err, op, "failed to create payment intent")
	}
	return &CheckoutQuote{
		Subtotal:        subtotal,
		Shipping:        shippingCost,
		SampleShipping:  sampleShipping,
		DiscountAmount:  discount,
		Total:           total,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
	}, nil
}

// PlaceOrder commits the retail checkout. The promo code is re-validated
// inside the flow so a concurrent checkout cannot overshoot max_uses, and
// the payment intent must have captured exactly the computed total.
func (s *Service) PlaceOrder(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	const op = "order.checkout.place"
	if in.PaymentIntentID == "" {
		return nil, domain.Invalid(op, "payment_intent_id is required")
	}
	if existing, err := s.store.GetOrderByPaymentIntent(ctx, in.PaymentIntentID); err == nil {
		return &CheckoutResult{Order: existing}, nil
	}

	subtotal, shippingCost, sampleShipping, discount, promo, items, err := s.price(ctx, in)
	if err != nil {
		return nil, err
	}
	total := subtotal.Add(shippingCost).Add(sampleShipping).Sub(discount)

	intent, err := s.provider.GetPaymentIntent(ctx, in.PaymentIntentID)
	if err != nil {
		return nil, domain.Upstream(err, op, "failed to verify payment")
	}
	if !intent.Succeeded() {
		return nil, domain.Invalid(op, "payment has not completed")
	}
	if intent.AmountCents != billing.Cents(total) {
		return nil, domain.Conflict(op, "payment amount does not match the order total")
	}

	result := &CheckoutResult{}
	err = s.store.WithTx(ctx, func(tx *postgres.Store) error {
		now := time.Now()
		o := &domain.Order{
			OrderNumber:           newOrderNumber(),
			Email:                 in.Email,
			CustomerID:            in.CustomerID,
			TradeCustomerID:       in.TradeCustomerID,
			DeliveryMethod:        in.DeliveryMethod,
			ShippingAddress:       in.ShippingAddress,
			Subtotal:              subtotal,
			Shipping:              shippingCost,
			SampleShipping:        sampleShipping,
			DiscountAmount:        discount,
			Total:                 total,
			AmountPaid:            total,
			Status:                domain.OrderConfirmed,
			StripePaymentIntentID: &in.PaymentIntentID,
			ConfirmedAt:           &now,
			Residential:           true,
			Liftgate:              true,
		}
		if promo != nil {
			o.PromoCodeID = &promo.Promo.ID
		}
		if in.ShippingOption != nil && in.DeliveryMethod == domain.DeliveryShipping {
			o.ShippingCarrier = &in.ShippingOption.Carrier
			o.ShippingService = &in.ShippingOption.Service
			o.TransitDays = &in.ShippingOption.TransitDays
			o.IsFallbackRate = in.ShippingOption.IsFallback
		}

		if in.CreateAccountPassword != "" && in.CustomerID == nil {
			customerID, token, err := s.openAccount(ctx, tx, in.Email, in.CreateAccountPassword)
			if err != nil {
				return err
			}
			result.CustomerToken = token
			o.CustomerID = &customerID
		}

		if o.TradeCustomerID != nil {
			repID, err := s.ensureTradeRep(ctx, tx, *o.TradeCustomerID)
			if err != nil {
				return err
			}
			o.SalesRepID = repID
		}

		if err := tx.CreateOrder(ctx, o); err != nil {
			return err
		}
		for _, ci := range items {
			if err := tx.InsertOrderItem(ctx, cartLineToOrderItem(o.ID, ci)); err != nil {
				return err
			}
		}

		desc := "checkout charge"
		if err := tx.AppendPayment(ctx, &domain.OrderPayment{
			OrderID:               o.ID,
			PaymentType:           domain.PaymentCharge,
			Amount:                total,
			StripePaymentIntentID: &in.PaymentIntentID,
			Description:           &desc,
			Status:                domain.PaymentStatusCompleted,
			InitiatedBy:           "customer:" + in.Email,
		}); err != nil {
			return err
		}

		if promo != nil {
			if err := pricing.RecheckUsage(ctx, tx, promo.Promo.ID, in.Email); err != nil {
				return err
			}
			if err := tx.InsertPromoUsage(ctx, &domain.PromoCodeUsage{
				PromoCodeID:    promo.Promo.ID,
				OrderID:        &o.ID,
				CustomerEmail:  in.Email,
				DiscountAmount: discount,
			}); err != nil {
				return err
			}
		}

		if err := purchase.GeneratePOs(ctx, tx, o, "system"); err != nil {
			return err
		}

		if o.TradeCustomerID != nil {
			if err := tx.BumpTradeSpend(ctx, *o.TradeCustomerID, total); err != nil {
				return err
			}
		}

		if err := tx.AppendOrderActivity(ctx, o.ID, "created", "customer:"+in.Email, map[string]any{
			"flow":  "checkout",
			"total": total.StringFixed(2),
		}); err != nil {
			return err
		}

		if err := tx.DrainCart(ctx, in.SessionID); err != nil {
			return err
		}
		result.Order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCreate(result.Order)
	return result, nil
}

// afterCreate schedules the post-commit side effects shared by the
// creation flows.
func (s *Service) afterCreate(o *domain.Order) {
	s.scheduleCommission(o.ID, o.SalesRepID)
	s.runner.Go("order.confirmation_email", func(ctx context.Context) error {
		items, err := s.store.ListOrderItems(ctx, o.ID)
		if err != nil {
			return err
		}
		return s.notifier.SendOrderConfirmation(ctx, o, items)
	})
	if o.SalesRepID != nil {
		repID := *o.SalesRepID
		s.runner.Go("order.rep_notification", func(ctx context.Context) error {
			rep, err := s.store.GetSalesRep(ctx, repID)
			if err != nil {
				return err
			}
			return s.notifier.SendRepOrderNotification(ctx, rep.Email, o)
		})
	}
}

// ensureTradeRep returns the trade account's rep, assigning one
// round-robin when the account has none.
func (s *Service) ensureTradeRep(ctx context.Context, tx *postgres.Store, tradeID uuid.UUID) (*uuid.UUID, error) {
	tc, err := tx.GetTradeCustomer(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if tc.SalesRepID != nil {
		return tc.SalesRepID, nil
	}
	repID, err := tx.NextRoundRobinRep(ctx)
	if err != nil {
		return nil, err
	}
	if repID == nil {
		return nil, nil
	}
	if err := tx.AssignTradeRep(ctx, tradeID, *repID); err != nil {
		return nil, err
	}
	return repID, nil
}

// openAccount creates a retail account plus a session during checkout.
func (s *Service) openAccount(ctx context.Context, tx *postgres.Store, email, password string) (uuid.UUID, string, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return uuid.Nil, "", domain.Invalid("order.checkout.account", err.Error())
	}
	cust := &domain.Customer{Email: email, PasswordHash: hash}
	if err := tx.CreateCustomer(ctx, cust); err != nil {
		return uuid.Nil, "", err
	}
	token, err := auth.GenerateToken()
	if err != nil {
		return uuid.Nil, "", domain.Internal(err, "order.checkout.account", "failed to generate token")
	}
	err = tx.CreateSession(ctx, &domain.Session{
		Kind:      domain.PrincipalCustomer,
		SubjectID: cust.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(domain.SessionTTL),
	})
	if err != nil {
		return uuid.Nil, "", err
	}
	return cust.ID, token, nil
}

func cartLineToOrderItem(orderID uuid.UUID, ci domain.CartItem) *domain.OrderItem {
	return &domain.OrderItem{
		OrderID:    orderID,
		ProductID:  ci.ProductID,
		SkuID:      ci.SkuID,
		VendorID:   ci.VendorID,
		Name:       ci.Name,
		NumBoxes:   ci.NumBoxes,
		SqftNeeded: ci.SqftNeeded,
		UnitPrice:  ci.UnitPrice,
		Subtotal:   ci.Subtotal(),
		SellBy:     ci.SellBy,
		PriceTier:  ci.PriceTier,
		IsSample:   ci.IsSample,
	}
}
