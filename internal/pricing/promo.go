// Package pricing implements the promo-code validation pipeline and the
// read-time trade tier discount.
package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
)

// PromoStore is the slice of the store the validator needs.
type PromoStore interface {
	GetPromoByCode(ctx context.Context, code string) (*domain.PromoCode, error)
	CountPromoOrderUsages(ctx context.Context, promoID uuid.UUID) (int, error)
	CountPromoCustomerUsages(ctx context.Context, promoID uuid.UUID, email string) (int, error)
}

// Item is the view of a line the validator prices against. Callers map
// cart or order items into it, resolving the category through the catalog.
type Item struct {
	ProductID  *uuid.UUID
	CategoryID *uuid.UUID
	IsSample   bool
	Subtotal   decimal.Decimal
}

// Result is a successful validation: the code, the floored discount, and
// the subtotal the discount was computed against.
type Result struct {
	Promo            *domain.PromoCode
	DiscountAmount   decimal.Decimal
	EligibleSubtotal decimal.Decimal
}

// ValidatePromo runs the validation pipeline. Each step short-circuits
// with an EINVALID error carrying a human-readable reason. email may be
// empty when the caller has no customer identity yet.
func ValidatePromo(ctx context.Context, store PromoStore, code string, items []Item, email string) (*Result, error) {
	const op = "pricing.promo.validate"

	promo, err := store.GetPromoByCode(ctx, code)
	if err != nil {
		return nil, domain.Invalid(op, "promo code not found")
	}
	if !promo.Active {
		return nil, domain.Invalid(op, "promo code is no longer active")
	}
	if promo.Expired(time.Now()) {
		return nil, domain.Invalid(op, "promo code has expired")
	}

	// Quote-only usages never consume the global counter.
	if promo.MaxUses != nil {
		used, err := store.CountPromoOrderUsages(ctx, promo.ID)
		if err != nil {
			return nil, err
		}
		if used >= *promo.MaxUses {
			return nil, domain.Invalid(op, "promo code usage limit reached")
		}
	}
	if promo.MaxUsesPerCustomer != nil && email != "" {
		used, err := store.CountPromoCustomerUsages(ctx, promo.ID, email)
		if err != nil {
			return nil, err
		}
		if used >= *promo.MaxUsesPerCustomer {
			return nil, domain.Invalid(op, "promo code already used the maximum number of times")
		}
	}

	eligible, productSubtotal := partition(promo, items)
	if promo.MinOrderAmount != nil && productSubtotal.LessThan(*promo.MinOrderAmount) {
		return nil, domain.Invalid(op, "order does not meet the promo code minimum of $"+promo.MinOrderAmount.StringFixed(2))
	}
	if eligible.IsZero() {
		return nil, domain.Invalid(op, "promo code does not apply to any items in the order")
	}

	var discount decimal.Decimal
	switch promo.Type {
	case domain.PromoPercent:
		discount = domain.PercentOf(eligible, promo.Value)
	case domain.PromoFixed:
		discount = decimal.Min(promo.Value, eligible)
	default:
		return nil, domain.Invalid(op, "promo code has an unknown discount type")
	}
	discount = domain.FloorCents(discount)

	return &Result{Promo: promo, DiscountAmount: discount, EligibleSubtotal: eligible}, nil
}

// TxPromoStore is the transactional slice the commit-time recheck needs.
// GetPromoForUpdate must run on an open transaction so the row lock
// serializes concurrent commits of the same code.
type TxPromoStore interface {
	GetPromoForUpdate(ctx context.Context, id uuid.UUID) (*domain.PromoCode, error)
	CountPromoOrderUsages(ctx context.Context, promoID uuid.UUID) (int, error)
	CountPromoCustomerUsages(ctx context.Context, promoID uuid.UUID, email string) (int, error)
}

// RecheckUsage re-runs the usage limits under a row lock on the promo.
// Validation at intent time happens outside the order transaction, so
// two checkouts racing the last use of a code can both pass it; the
// recount here runs after the lock is held and fails the loser before
// its usage row is written.
func RecheckUsage(ctx context.Context, store TxPromoStore, promoID uuid.UUID, email string) error {
	const op = "pricing.promo.recheck"

	promo, err := store.GetPromoForUpdate(ctx, promoID)
	if err != nil {
		return err
	}
	if !promo.Active {
		return domain.Invalid(op, "promo code is no longer active")
	}
	if promo.Expired(time.Now()) {
		return domain.Invalid(op, "promo code has expired")
	}
	if promo.MaxUses != nil {
		used, err := store.CountPromoOrderUsages(ctx, promo.ID)
		if err != nil {
			return err
		}
		if used >= *promo.MaxUses {
			return domain.Invalid(op, "promo code usage limit reached")
		}
	}
	if promo.MaxUsesPerCustomer != nil && email != "" {
		used, err := store.CountPromoCustomerUsages(ctx, promo.ID, email)
		if err != nil {
			return err
		}
		if used >= *promo.MaxUsesPerCustomer {
			return domain.Invalid(op, "promo code already used the maximum number of times")
		}
	}
	return nil
}

// partition splits items into eligible and the non-sample product total.
// Samples are never eligible; restricted codes also require a category or
// product match.
func partition(promo *domain.PromoCode, items []Item) (eligible, productSubtotal decimal.Decimal) {
	for _, it := range items {
		if it.IsSample {
			continue
		}
		productSubtotal = productSubtotal.Add(it.Subtotal)
		if promo.Restricted() && !matches(promo, it) {
			continue
		}
		eligible = eligible.Add(it.Subtotal)
	}
	return eligible, productSubtotal
}

func matches(promo *domain.PromoCode, it Item) bool {
	if it.ProductID != nil {
		for _, id := range promo.ProductIDs {
			if id == *it.ProductID {
				return true
			}
		}
	}
	if it.CategoryID != nil {
		for _, id := range promo.CategoryIDs {
			if id == *it.CategoryID {
				return true
			}
		}
	}
	return false
}
