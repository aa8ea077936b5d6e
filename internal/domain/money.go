package domain

import "github.com/shopspring/decimal"

// Money rounding rules. Discounts floor so a discount never exceeds the
// eligible subtotal by fractional cents; pro-rata divisions round
// half-to-even; storage truncates at two decimals.

// Cent is the tolerance used when comparing paid amounts to totals.
var Cent = decimal.NewFromFloat(0.01)

// FloorCents rounds d down to two decimal places.
func FloorCents(d decimal.Decimal) decimal.Decimal {
	return d.RoundDown(2)
}

// RoundCents rounds d half-to-even to two decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// PercentOf returns pct% of amount, floored to cents.
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return FloorCents(amount.Mul(pct).Div(decimal.NewFromInt(100)))
}

// BalanceStatus classifies an order's paid amount against its total.
type BalanceStatus string

const (
	BalancePaid   BalanceStatus = "paid"
	BalanceCredit BalanceStatus = "credit"
	BalanceDue    BalanceStatus = "balance_due"
)

// BalanceOf derives the balance status: paid within one cent of total,
// credit when overpaid by more than a cent, otherwise balance due.
func BalanceOf(amountPaid, total decimal.Decimal) BalanceStatus {
	diff := amountPaid.Sub(total)
	switch {
	case diff.Abs().LessThanOrEqual(Cent):
		return BalancePaid
	case diff.GreaterThan(Cent):
		return BalanceCredit
	default:
		return BalanceDue
	}
}
