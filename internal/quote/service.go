// Package quote implements the rep quoting surface: draft authoring,
// sending with an expiry, and read access. Conversion to an order lives
// in the order package.
package quote

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/postgres"
	"github.com/dukerupert/terrazzo/internal/pricing"
)

// ExpiryDays is how long a sent quote stays convertible.
const ExpiryDays = 30

// Mailer sends the quote to the customer. Nil skips the email.
type Mailer interface {
	SendQuote(ctx context.Context, q *domain.Quote, items []domain.QuoteItem) error
}

type Service struct {
	store  *postgres.Store
	mailer Mailer
	logger zerolog.Logger
}

func NewService(store *postgres.Store, mailer Mailer, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		mailer: mailer,
		logger: logger.With().Str("component", "quote").Logger(),
	}
}

func newQuoteNumber() string {
	b := make([]byte, 2)
	_, _ = rand.Read(b)
	return fmt.Sprintf("QT-%s-%s", time.Now().Format("20060102"), hex.EncodeToString(b))
}

// Line is one quoted item, SKU-backed or custom.
type Line struct {
	SkuID       *uuid.UUID
	ProductName string
	UnitPrice   decimal.Decimal
	VendorID    *uuid.UUID
	NumBoxes    int
	SqftNeeded  *decimal.Decimal
	PriceTier   *string
	IsSample    bool
}

// CreateInput is the rep quote payload.
type CreateInput struct {
	SalesRepID      uuid.UUID
	Email           string
	CustomerID      *uuid.UUID
	TradeCustomerID *uuid.UUID
	DeliveryMethod  string
	ShippingAddress *domain.Address
	Shipping        decimal.Decimal
	SampleShipping  decimal.Decimal
	PromoCode       string
	Lines           []Line
}

// Create authors a draft quote. The promo discount, if any, is computed
// against the quoted lines and frozen onto the quote; it is re-validated
// when the quote converts.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Quote, error) {
	const op = "quote.create"
	if len(in.Lines) == 0 {
		return nil, domain.Invalid(op, "at least one line is required")
	}
	if in.Email == "" {
		return nil, domain.Invalid(op, "email is required")
	}

	var out *domain.Quote
	err := s.store.WithTx(ctx, func(tx *postgres.Store) error {
		subtotal := decimal.Zero
		items := make([]*domain.QuoteItem, 0, len(in.Lines))
		promoView := make([]pricing.Item, 0, len(in.Lines))
		for _, l := range in.Lines {
			it, pv, err := s.quoteLine(ctx, tx, l)
			if err != nil {
				return err
			}
			items = append(items, it)
			promoView = append(promoView, pv)
			if !it.IsSample {
				subtotal = subtotal.Add(it.Subtotal)
			}
		}

		q := &domain.Quote{
			QuoteNumber:     newQuoteNumber(),
			Email:           in.Email,
			CustomerID:      in.CustomerID,
			TradeCustomerID: in.TradeCustomerID,
			SalesRepID:      &in.SalesRepID,
			DeliveryMethod:  in.DeliveryMethod,
			ShippingAddress: in.ShippingAddress,
			Subtotal:        subtotal,
			Shipping:        in.Shipping,
			SampleShipping:  in.SampleShipping,
			Status:          domain.QuoteDraft,
		}
		if in.PromoCode != "" {
			res, err := pricing.ValidatePromo(ctx, tx, in.PromoCode, promoView, in.Email)
			if err != nil {
				return err
			}
			q.PromoCodeID = &res.Promo.ID
			q.DiscountAmount = res.DiscountAmount
		}
		q.Total = q.Subtotal.Add(q.Shipping).Add(q.SampleShipping).Sub(q.DiscountAmount)

		if err := tx.CreateQuote(ctx, q); err != nil {
			return err
		}
		for _, it := range items {
			it.QuoteID = q.ID
			if err := tx.InsertQuoteItem(ctx, it); err != nil {
				return err
			}
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("quote", out.QuoteNumber).Str("total", out.Total.StringFixed(2)).Msg("quote created")
	return out, nil
}

// Update replaces the lines and delivery details of a draft quote and
// recomputes its totals. Sent quotes are immutable; reps recall them by
// authoring a new draft.
func (s *Service) Update(ctx context.Context, quoteID uuid.UUID, in CreateInput) (*domain.Quote, error) {
	const op = "quote.update"
	if len(in.Lines) == 0 {
		return nil, domain.Invalid(op, "at least one line is required")
	}

	var out *domain.Quote
	err := s.store.WithTx(ctx, func(tx *postgres.Store) error {
		q, err := tx.GetQuoteForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		if q.Status != domain.QuoteDraft {
			return domain.Invalid(op, "only draft quotes can be edited")
		}

		subtotal := decimal.Zero
		items := make([]*domain.QuoteItem, 0, len(in.Lines))
		promoView := make([]pricing.Item, 0, len(in.Lines))
		for _, l := range in.Lines {
			it, pv, err := s.quoteLine(ctx, tx, l)
			if err != nil {
				return err
			}
			items = append(items, it)
			promoView = append(promoView, pv)
			if !it.IsSample {
				subtotal = subtotal.Add(it.Subtotal)
			}
		}

		if in.Email != "" {
			q.Email = in.Email
		}
		if in.DeliveryMethod != "" {
			q.DeliveryMethod = in.DeliveryMethod
		}
		if in.ShippingAddress != nil {
			q.ShippingAddress = in.ShippingAddress
		}
		q.Subtotal = subtotal
		q.Shipping = in.Shipping
		q.SampleShipping = in.SampleShipping
		q.PromoCodeID = nil
		q.DiscountAmount = decimal.Zero
		if in.PromoCode != "" {
			res, err := pricing.ValidatePromo(ctx, tx, in.PromoCode, promoView, q.Email)
			if err != nil {
				return err
			}
			q.PromoCodeID = &res.Promo.ID
			q.DiscountAmount = res.DiscountAmount
		}
		q.Total = q.Subtotal.Add(q.Shipping).Add(q.SampleShipping).Sub(q.DiscountAmount)

		if err := tx.DeleteQuoteItems(ctx, q.ID); err != nil {
			return err
		}
		for _, it := range items {
			it.QuoteID = q.ID
			if err := tx.InsertQuoteItem(ctx, it); err != nil {
				return err
			}
		}
		if err := tx.UpdateQuoteContent(ctx, q); err != nil {
			return err
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("quote", out.QuoteNumber).Str("total", out.Total.StringFixed(2)).Msg("quote updated")
	return out, nil
}

func (s *Service) quoteLine(ctx context.Context, tx *postgres.Store, l Line) (*domain.QuoteItem, pricing.Item, error) {
	const op = "quote.line"
	if l.NumBoxes < 1 {
		l.NumBoxes = 1
	}
	it := &domain.QuoteItem{
		NumBoxes:   l.NumBoxes,
		SqftNeeded: l.SqftNeeded,
		UnitPrice:  l.UnitPrice,
		Subtotal:   l.UnitPrice.Mul(decimal.NewFromInt(int64(l.NumBoxes))),
		SellBy:     domain.SellByUnit,
		PriceTier:  l.PriceTier,
		IsSample:   l.IsSample,
	}
	pv := pricing.Item{IsSample: l.IsSample, Subtotal: it.Subtotal}
	if l.SkuID != nil {
		sku, err := tx.GetSku(ctx, *l.SkuID)
		if err != nil {
			return nil, pv, err
		}
		prod, err := tx.GetProduct(ctx, sku.ProductID)
		if err != nil {
			return nil, pv, err
		}
		it.ProductID = &sku.ProductID
		it.SkuID = &sku.ID
		it.VendorID = &sku.VendorID
		it.Name = prod.Name
		it.SellBy = sku.SellBy
		pv.ProductID = &sku.ProductID
		pv.CategoryID = prod.CategoryID
		return it, pv, nil
	}
	if l.ProductName == "" {
		return nil, pv, domain.Invalid(op, "custom lines require a product name")
	}
	it.Name = l.ProductName
	it.VendorID = l.VendorID
	return it, pv, nil
}

// Send transitions a draft to sent, stamps the expiry, and emails the
// customer. Email failure is tolerated; the transition stands.
func (s *Service) Send(ctx context.Context, quoteID uuid.UUID) (*domain.Quote, error) {
	const op = "quote.send"
	var out *domain.Quote
	err := s.store.WithTx(ctx, func(tx *postgres.Store) error {
		q, err := tx.GetQuoteForUpdate(ctx, quoteID)
		if err != nil {
			return err
		}
		if q.Status != domain.QuoteDraft {
			return domain.Invalid(op, "only draft quotes can be sent")
		}
		expires := time.Now().AddDate(0, 0, ExpiryDays)
		q.Status = domain.QuoteSent
		q.ExpiresAt = &expires
		if err := tx.UpdateQuoteStatus(ctx, q); err != nil {
			return err
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.mailer != nil {
		items, ierr := s.store.ListQuoteItems(ctx, out.ID)
		if ierr == nil {
			if merr := s.mailer.SendQuote(ctx, out, items); merr != nil {
				s.logger.Warn().Err(merr).Str("quote", out.QuoteNumber).Msg("quote email failed")
			}
		}
	}
	return out, nil
}

// Get returns a quote with its items.
func (s *Service) Get(ctx context.Context, quoteID uuid.UUID) (*domain.Quote, []domain.QuoteItem, error) {
	q, err := s.store.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.store.ListQuoteItems(ctx, quoteID)
	if err != nil {
		return nil, nil, err
	}
	return q, items, nil
}
