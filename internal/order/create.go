package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/billing"
	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/postgres"
	"github.com/dukerupert/terrazzo/internal/pricing"
	"github.com/dukerupert/terrazzo/internal/purchase"
)

// BulkLine is one line of a trade bulk order, referenced by vendor SKU.
type BulkLine struct {
	VendorSku string `json:"vendor_sku" validate:"required"`
	NumBoxes  int    `json:"num_boxes" validate:"required,min=1"`
}

// BulkInput creates a trade order from a SKU list.
type BulkInput struct {
	TradeCustomerID uuid.UUID
	Lines           []BulkLine
	DeliveryMethod  string
	ShippingAddress *domain.Address
}

// CreateBulk builds a pending trade order, pricing every line at the
// account's tier discount and bumping cumulative spend.
func (s *Service) CreateBulk(ctx context.Context, in BulkInput) (*domain.Order, error) {
	const op = "order.bulk.create"
	if len(in.Lines) == 0 {
		return nil, domain.Invalid(op, "at least one line is required")
	}

	tc, err := s.store.GetTradeCustomer(ctx, in.TradeCustomerID)
	if err != nil {
		return nil, err
	}
	var tier *domain.TradeTier
	if tc.TierID != nil {
		if tier, err = s.store.GetTradeTier(ctx, *tc.TierID); err != nil {
			return nil, err
		}
	}

	var out *domain.Order
	err = s.store.WithTx(ctx, func(tx *postgres.Store) error {
		subtotal := decimal.Zero
		lines := make([]*domain.OrderItem, 0, len(in.Lines))
		for _, l := range in.Lines {
			sku, err := tx.GetSkuByVendorSku(ctx, l.VendorSku)
			if err != nil {
				return err
			}
			if l.NumBoxes < 1 {
				return domain.Invalid(op, "num_boxes must be at least 1")
			}
			prod, err := tx.GetProduct(ctx, sku.ProductID)
			if err != nil {
				return err
			}
			unit := pricing.TierPrice(sku.RetailPrice, tier)
			lineSubtotal := unit.Mul(decimal.NewFromInt(int64(l.NumBoxes)))
			lines = append(lines, &domain.OrderItem{
				ProductID: &sku.ProductID,
				SkuID:     &sku.ID,
				VendorID:  &sku.VendorID,
				Name:      prod.Name,
				NumBoxes:  l.NumBoxes,
				UnitPrice: unit,
				Subtotal:  lineSubtotal,
				SellBy:    sku.SellBy,
			})
			subtotal = subtotal.Add(lineSubtotal)
		}

		o := &domain.Order{
			OrderNumber:     newOrderNumber(),
			Email:           tc.Email,
			TradeCustomerID: &tc.ID,
			SalesRepID:      tc.SalesRepID,
			DeliveryMethod:  in.DeliveryMethod,
			ShippingAddress: in.ShippingAddress,
			Subtotal:        subtotal,
			Total:           subtotal,
			Status:          domain.OrderPending,
			Residential:     true,
			Liftgate:        true,
		}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return err
		}
		for _, it := range lines {
			it.OrderID = o.ID
			if err := tx.InsertOrderItem(ctx, it); err != nil {
				return err
			}
		}
		if err := tx.BumpTradeSpend(ctx, tc.ID, subtotal); err != nil {
			return err
		}
		if err := tx.AppendOrderActivity(ctx, o.ID, "created", "trade:"+tc.Email, map[string]any{
			"flow":  "trade_bulk",
			"lines": len(lines),
		}); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.scheduleCommission(out.ID, out.SalesRepID)
	return out, nil
}

// Rep quick-create payment modes.
const (
	PaymentOffline = "offline"
	PaymentStripe  = "stripe"
)

// QuickItem is a rep-authored line: SKU-backed when SkuID is set, custom
// otherwise.
type QuickItem struct {
	SkuID       *uuid.UUID
	ProductName string
	UnitPrice   decimal.Decimal
	VendorID    *uuid.UUID
	NumBoxes    int
	PriceTier   *string
	IsSample    bool
}

// QuickInput is the rep quick-create payload.
type QuickInput struct {
	SalesRepID      uuid.UUID
	Email           string
	Items           []QuickItem
	DeliveryMethod  string
	ShippingAddress *domain.Address
	Payment         string // offline or stripe
}

// QuickResult carries the order and, for stripe payment, the intent to
// collect against.
type QuickResult struct {
	Order        *domain.Order
	ClientSecret string
}

// CreateQuick is the rep order flow. Offline payment confirms the order
// immediately with a synthetic charge; stripe payment leaves it pending
// behind a fresh payment intent.
func (s *Service) CreateQuick(ctx context.Context, in QuickInput) (*QuickResult, error) {
	const op = "order.quick.create"
	if len(in.Items) == 0 {
		return nil, domain.Invalid(op, "at least one item is required")
	}
	if in.Payment != PaymentOffline && in.Payment != PaymentStripe {
		return nil, domain.Invalid(op, "payment must be offline or stripe")
	}

	rep, err := s.store.GetSalesRep(ctx, in.SalesRepID)
	if err != nil {
		return nil, err
	}

	result := &QuickResult{}
	err = s.store.WithTx(ctx, func(tx *postgres.Store) error {
		subtotal := decimal.Zero
		lines := make([]*domain.OrderItem, 0, len(in.Items))
		for _, q := range in.Items {
			line, err := quickLine(ctx, tx, q)
			if err != nil {
				return err
			}
			lines = append(lines, line)
			if !line.IsSample {
				subtotal = subtotal.Add(line.Subtotal)
			}
		}

		o := &domain.Order{
			OrderNumber:     newOrderNumber(),
			Email:           in.Email,
			SalesRepID:      &rep.ID,
			DeliveryMethod:  in.DeliveryMethod,
			ShippingAddress: in.ShippingAddress,
			Subtotal:        subtotal,
			Total:           subtotal,
			Status:          domain.OrderPending,
			Residential:     true,
			Liftgate:        true,
		}
		if in.Payment == PaymentOffline {
			now := time.Now()
			o.Status = domain.OrderConfirmed
			o.ConfirmedAt = &now
			o.AmountPaid = o.Total
		}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return err
		}
		for _, it := range lines {
			it.OrderID = o.ID
			if err := tx.InsertOrderItem(ctx, it); err != nil {
				return err
			}
		}

		actor := "rep:" + rep.Email
		switch in.Payment {
		case PaymentOffline:
			desc := "offline payment recorded by rep"
			if err := tx.AppendPayment(ctx, &domain.OrderPayment{
				OrderID:     o.ID,
				PaymentType: domain.PaymentCharge,
				Amount:      o.Total,
				Description: &desc,
				Status:      domain.PaymentStatusCompleted,
				InitiatedBy: actor,
			}); err != nil {
				return err
			}
			if err := purchase.GeneratePOs(ctx, tx, o, actor); err != nil {
				return err
			}
		case PaymentStripe:
			intent, err := s.provider.CreatePaymentIntent(ctx, billing.CreatePaymentIntentParams{
				AmountCents:   billing.Cents(o.Total),
				CustomerEmail: in.Email,
				Description:   "Terrazzo order " + o.OrderNumber,
				Metadata:      map[string]string{"order_number": o.OrderNumber},
			})
			if err != nil {
				return domain.Upstream(err, op, "failed to create payment intent")
			}
			o.StripePaymentIntentID = &intent.ID
			result.ClientSecret = intent.ClientSecret
			if err := tx.SetOrderPaymentIntent(ctx, o.ID, intent.ID); err != nil {
				return err
			}
		}

		if err := tx.AppendOrderActivity(ctx, o.ID, "created", actor, map[string]any{
			"flow":    "rep_quick",
			"payment": in.Payment,
		}); err != nil {
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

func quickLine(ctx context.Context, tx *postgres.Store, q QuickItem) (*domain.OrderItem, error) {
	const op = "order.quick.line"
	if q.NumBoxes < 1 {
		q.NumBoxes = 1
	}
	it := &domain.OrderItem{
		NumBoxes:  q.NumBoxes,
		UnitPrice: q.UnitPrice,
		Subtotal:  q.UnitPrice.Mul(decimal.NewFromInt(int64(q.NumBoxes))),
		SellBy:    domain.SellByUnit,
		PriceTier: q.PriceTier,
		IsSample:  q.IsSample,
	}
	if q.SkuID != nil {
		sku, err := tx.GetSku(ctx, *q.SkuID)
		if err != nil {
			return nil, err
		}
		prod, err := tx.GetProduct(ctx, sku.ProductID)
		if err != nil {
			return nil, err
		}
		it.ProductID = &sku.ProductID
		it.SkuID = &sku.ID
		it.VendorID = &sku.VendorID
		it.Name = prod.Name
		it.SellBy = sku.SellBy
		return it, nil
	}
	if q.ProductName == "" {
		return nil, domain.Invalid(op, "custom items require a product name")
	}
	if q.VendorID == nil {
		return nil, domain.Invalid(op, "custom items require a vendor")
	}
	it.Name = q.ProductName
	it.VendorID = q.VendorID
	return it, nil
}

// ConvertQuote copies a quote into a new order, carrying the promo
// discount forward, and marks the quote converted.
func (s *Service) ConvertQuote(ctx context.Context, quoteID uuid.UUID, payment, actor string) (*domain.Order, error) {
	const op = "order.quote.convert"
	if payment == "" {
		payment = PaymentOffline
	}
	if payment != PaymentOffline && payment != PaymentStripe {
		return nil, domain.Invalid(op, "payment must be offline or stripe")
	}

	var out *domain.Order
	err := s.store.WithTx(ctx, func(tx *postgres.Store) error {
		q, err := tx.GetQuoteForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		switch q.Status {
		case domain.QuoteConverted:
			return domain.Conflict(op, "quote has already been converted")
		case domain.QuoteExpired:
			return domain.Invalid(op, "quote has expired")
		}
		items, err := tx.ListQuoteItems(ctx, quoteID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return domain.Invalid(op, "quote has no items")
		}

		o := &domain.Order{
			OrderNumber:     newOrderNumber(),
			Email:           q.Email,
			CustomerID:      q.CustomerID,
			TradeCustomerID: q.TradeCustomerID,
			SalesRepID:      q.SalesRepID,
			DeliveryMethod:  q.DeliveryMethod,
			ShippingAddress: q.ShippingAddress,
			Subtotal:        q.Subtotal,
			Shipping:        q.Shipping,
			SampleShipping:  q.SampleShipping,
			DiscountAmount:  q.DiscountAmount,
			Total:           q.Total,
			PromoCodeID:     q.PromoCodeID,
			Status:          domain.OrderPending,
			Residential:     true,
			Liftgate:        true,
		}
		if payment == PaymentOffline {
			now := time.Now()
			o.Status = domain.OrderConfirmed
			o.ConfirmedAt = &now
		}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return err
		}
		for _, qi := range items {
			if err := tx.InsertOrderItem(ctx, &domain.OrderItem{
				OrderID:    o.ID,
				ProductID:  qi.ProductID,
				SkuID:      qi.SkuID,
				VendorID:   qi.VendorID,
				Name:       qi.Name,
				NumBoxes:   qi.NumBoxes,
				SqftNeeded: qi.SqftNeeded,
				UnitPrice:  qi.UnitPrice,
				Subtotal:   qi.Subtotal,
				SellBy:     qi.SellBy,
				PriceTier:  qi.PriceTier,
				IsSample:   qi.IsSample,
			}); err != nil {
				return err
			}
		}
		if q.PromoCodeID != nil {
			if err := pricing.RecheckUsage(ctx, tx, *q.PromoCodeID, q.Email); err != nil {
				return err
			}
			if err := tx.InsertPromoUsage(ctx, &domain.PromoCodeUsage{
				PromoCodeID:    *q.PromoCodeID,
				OrderID:        &o.ID,
				QuoteID:        &q.ID,
				CustomerEmail:  q.Email,
				DiscountAmount: q.DiscountAmount,
			}); err != nil {
				return err
			}
		}
		if o.Status == domain.OrderConfirmed {
			if err := purchase.GeneratePOs(ctx, tx, o, actor); err != nil {
				return err
			}
		}

		q.Status = domain.QuoteConverted
		q.ConvertedOrderID = &o.ID
		if err := tx.UpdateQuoteStatus(ctx, q); err != nil {
			return err
		}
		if err := tx.AppendOrderActivity(ctx, o.ID, "created", actor, map[string]any{
			"flow":  "quote_conversion",
			"quote": q.QuoteNumber,
		}); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCreate(out)
	return out, nil
}
