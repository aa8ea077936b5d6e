package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPercentOfFloors(t *testing.T) {
	// 33.333% of $10.00 is 3.3333, floored to 3.33.
	got := PercentOf(d("10.00"), d("33.333"))
	assert.True(t, got.Equal(d("3.33")), "got %s", got)
}

func TestFloorCents(t *testing.T) {
	assert.True(t, FloorCents(d("1.999")).Equal(d("1.99")))
	assert.True(t, FloorCents(d("1.99")).Equal(d("1.99")))
	assert.True(t, FloorCents(d("0.009")).Equal(d("0.00")))
}

func TestRoundCentsBankers(t *testing.T) {
	assert.True(t, RoundCents(d("1.005")).Equal(d("1.00")))
	assert.True(t, RoundCents(d("1.015")).Equal(d("1.02")))
}

func TestPercentOfNeverExceedsAmount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		amount := decimal.NewFromInt(rapid.Int64Range(0, 1_000_000).Draw(t, "cents")).Div(decimal.NewFromInt(100))
		pct := decimal.NewFromInt(rapid.Int64Range(0, 100).Draw(t, "pct"))
		got := PercentOf(amount, pct)
		if got.IsNegative() {
			t.Fatalf("negative discount %s", got)
		}
		if got.GreaterThan(amount) {
			t.Fatalf("discount %s exceeds amount %s", got, amount)
		}
	})
}

func TestBalanceOf(t *testing.T) {
	assert.Equal(t, BalancePaid, BalanceOf(d("100.00"), d("100.00")))
	assert.Equal(t, BalancePaid, BalanceOf(d("99.99"), d("100.00")), "within one cent")
	assert.Equal(t, BalancePaid, BalanceOf(d("100.01"), d("100.00")))
	assert.Equal(t, BalanceCredit, BalanceOf(d("100.02"), d("100.00")))
	assert.Equal(t, BalanceDue, BalanceOf(d("50.00"), d("100.00")))
	assert.Equal(t, BalanceDue, BalanceOf(d("0"), d("100.00")))
}

func TestLedgerBalanceSignedSum(t *testing.T) {
	entries := []OrderPayment{
		{PaymentType: PaymentCharge, Amount: d("100.00"), Status: PaymentStatusCompleted},
		{PaymentType: PaymentAdditionalCharge, Amount: d("25.00"), Status: PaymentStatusCompleted},
		{PaymentType: PaymentRefund, Amount: d("-30.00"), Status: PaymentStatusCompleted},
		{PaymentType: PaymentCharge, Amount: d("999.00"), Status: PaymentStatusPending},
	}
	assert.True(t, LedgerBalance(entries).Equal(d("95.00")))
}

func TestMaxRefundableExcludesAdditionalCharges(t *testing.T) {
	entries := []OrderPayment{
		{PaymentType: PaymentCharge, Amount: d("100.00"), Status: PaymentStatusCompleted},
		{PaymentType: PaymentAdditionalCharge, Amount: d("40.00"), Status: PaymentStatusCompleted},
		{PaymentType: PaymentRefund, Amount: d("-25.00"), Status: PaymentStatusCompleted},
		{PaymentType: PaymentRefund, Amount: d("-10.00"), Status: PaymentStatusFailed},
	}
	// 100 charge - 25 completed refund; the additional charge and the
	// failed refund are out.
	assert.True(t, MaxRefundable(entries).Equal(d("75.00")))
}

func TestStageRank(t *testing.T) {
	assert.Equal(t, 0, OrderPending.StageRank())
	assert.Equal(t, 1, OrderConfirmed.StageRank())
	assert.Equal(t, 2, OrderShipped.StageRank())
	assert.Equal(t, 3, OrderDelivered.StageRank())
	assert.Equal(t, -1, OrderCancelled.StageRank())
	assert.Equal(t, -1, OrderRefunded.StageRank())
}

func TestRecalculateTotal(t *testing.T) {
	o := &Order{
		Subtotal:       d("200.00"),
		Shipping:       d("45.50"),
		SampleShipping: d("10.00"),
		DiscountAmount: d("20.00"),
	}
	o.RecalculateTotal()
	assert.True(t, o.Total.Equal(d("235.50")))
}

func TestDerivePOStatus(t *testing.T) {
	_, ok := DerivePOStatus(nil)
	assert.False(t, ok)

	all := []PurchaseOrderItem{{Status: POItemReceived}, {Status: POItemReceived}}
	st, ok := DerivePOStatus(all)
	assert.True(t, ok)
	assert.Equal(t, POFulfilled, st)

	cancelled := []PurchaseOrderItem{{Status: POItemCancelled}, {Status: POItemCancelled}}
	st, ok = DerivePOStatus(cancelled)
	assert.True(t, ok)
	assert.Equal(t, POCancelled, st)

	// A cancelled line does not block fulfilment-by-roll-up, but a pending
	// one does.
	mixed := []PurchaseOrderItem{{Status: POItemReceived}, {Status: POItemPending}}
	_, ok = DerivePOStatus(mixed)
	assert.False(t, ok)
}

func TestPOTransitions(t *testing.T) {
	assert.True(t, PODraft.CanTransitionTo(POSent))
	assert.True(t, PODraft.CanTransitionTo(POCancelled))
	assert.True(t, POSent.CanTransitionTo(PODraft), "recall to draft")
	assert.True(t, POSent.CanTransitionTo(POAcknowledged))
	assert.False(t, PODraft.CanTransitionTo(POFulfilled))
	assert.False(t, POFulfilled.CanTransitionTo(PODraft))
	assert.False(t, POCancelled.CanTransitionTo(POSent))
}
