package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
)

var oneHundred = decimal.NewFromInt(100)

// TierPrice transforms a retail price for a trade tier. A nil tier or a
// zero discount returns the retail price unchanged. Trade pricing applies
// at read time on storefront responses and at order time on trade and rep
// flows; the promo discount then applies against the already-discounted
// subtotal.
func TierPrice(retail decimal.Decimal, tier *domain.TradeTier) decimal.Decimal {
	if tier == nil || tier.DiscountPercent.IsZero() {
		return retail
	}
	factor := decimal.NewFromInt(1).Sub(tier.DiscountPercent.Div(oneHundred))
	return domain.RoundCents(retail.Mul(factor))
}
