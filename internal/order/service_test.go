package order

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/terrazzo/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCartTotalsSkipsSamples(t *testing.T) {
	items := []domain.CartItem{
		{UnitPrice: d("10.00"), NumBoxes: 3},
		{UnitPrice: d("5.00"), NumBoxes: 2, IsSample: true},
	}
	subtotal, sampleShipping := cartTotals(items)
	assert.True(t, subtotal.Equal(d("30.00")), "samples never count toward the subtotal")
	assert.True(t, sampleShipping.Equal(SampleShippingFee))
}

func TestCartTotalsNoSamples(t *testing.T) {
	items := []domain.CartItem{{UnitPrice: d("10.00"), NumBoxes: 1}}
	subtotal, sampleShipping := cartTotals(items)
	assert.True(t, subtotal.Equal(d("10.00")))
	assert.True(t, sampleShipping.IsZero())
}

func TestNewOrderNumberFormat(t *testing.T) {
	re := regexp.MustCompile(`^TZ-\d{8}-[0-9a-f]{4}$`)
	for i := 0; i < 10; i++ {
		assert.Regexp(t, re, newOrderNumber())
	}
}

func strptr(s string) *string { return &s }

func TestApplyStageUncancelToConfirmedNeedsPOs(t *testing.T) {
	// The uncancel path purges the cancelled PO set before calling
	// applyStage, so a confirmed result must ask for a fresh one.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	o := &domain.Order{Status: domain.OrderCancelled, DeliveryMethod: domain.DeliveryShipping}

	needPOs, err := applyStage(o, TransitionInput{To: domain.OrderConfirmed}, now)
	require.NoError(t, err)
	assert.True(t, needPOs, "confirmed orders must end up with a PO set")
	assert.Equal(t, domain.OrderConfirmed, o.Status)
	require.NotNil(t, o.ConfirmedAt)
	assert.Equal(t, now, *o.ConfirmedAt)
}

func TestApplyStageUncancelKeepsOriginalConfirmedAt(t *testing.T) {
	earlier := time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)
	now := earlier.Add(48 * time.Hour)
	o := &domain.Order{
		Status:         domain.OrderCancelled,
		DeliveryMethod: domain.DeliveryPickup,
		ConfirmedAt:    &earlier,
	}

	needPOs, err := applyStage(o, TransitionInput{To: domain.OrderConfirmed}, now)
	require.NoError(t, err)
	assert.True(t, needPOs)
	assert.Equal(t, earlier, *o.ConfirmedAt, "an existing confirmation timestamp is not restamped")
}

func TestApplyStageUncancelToPending(t *testing.T) {
	o := &domain.Order{Status: domain.OrderCancelled, DeliveryMethod: domain.DeliveryShipping}

	needPOs, err := applyStage(o, TransitionInput{To: domain.OrderPending}, time.Now())
	require.NoError(t, err)
	assert.False(t, needPOs, "pending orders carry no POs")
	assert.Equal(t, domain.OrderPending, o.Status)
	assert.Nil(t, o.ConfirmedAt)
}

func TestApplyStageShippedRequiresTracking(t *testing.T) {
	now := time.Now()
	confirmed := &now
	o := &domain.Order{
		Status:         domain.OrderConfirmed,
		DeliveryMethod: domain.DeliveryShipping,
		ConfirmedAt:    confirmed,
	}

	_, err := applyStage(o, TransitionInput{To: domain.OrderShipped}, now)
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	// Pickup orders never ship a parcel, so no tracking is needed.
	p := &domain.Order{
		Status:         domain.OrderConfirmed,
		DeliveryMethod: domain.DeliveryPickup,
		ConfirmedAt:    confirmed,
	}
	_, err = applyStage(p, TransitionInput{To: domain.OrderShipped}, now)
	require.NoError(t, err)

	needPOs, err := applyStage(o, TransitionInput{
		To:             domain.OrderShipped,
		TrackingNumber: strptr("1Z999"),
	}, now)
	require.NoError(t, err)
	assert.True(t, needPOs)
	assert.NotNil(t, o.ShippedAt)
}

func TestApplyStageRevertClearsDownstream(t *testing.T) {
	now := time.Now()
	ts := &now
	o := &domain.Order{
		Status:         domain.OrderDelivered,
		DeliveryMethod: domain.DeliveryShipping,
		ConfirmedAt:    ts,
		ShippedAt:      ts,
		DeliveredAt:    ts,
		TrackingNumber: strptr("1Z999"),
		TrackingURL:    strptr("https://track.example/1Z999"),
	}

	needPOs, err := applyStage(o, TransitionInput{To: domain.OrderConfirmed}, now)
	require.NoError(t, err)
	assert.True(t, needPOs)
	assert.NotNil(t, o.ConfirmedAt)
	assert.Nil(t, o.ShippedAt)
	assert.Nil(t, o.DeliveredAt)
	assert.Nil(t, o.TrackingNumber, "tracking clears with the shipped stage")
	assert.Nil(t, o.TrackingURL)
}

func TestMutableOrderStatusGate(t *testing.T) {
	for _, st := range []domain.OrderStatus{domain.OrderPending, domain.OrderConfirmed} {
		assert.NoError(t, mutableOrder("test", &domain.Order{Status: st}))
	}
	for _, st := range []domain.OrderStatus{
		domain.OrderShipped, domain.OrderDelivered, domain.OrderCancelled, domain.OrderRefunded,
	} {
		err := mutableOrder("test", &domain.Order{Status: st})
		require.Error(t, err, "status %s", st)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	}
}

func paidOrder(status domain.OrderStatus) *domain.Order {
	return &domain.Order{Status: status, StripePaymentIntentID: strptr("pi_123")}
}

func TestRefundAmountForPartial(t *testing.T) {
	amt := d("25.00")
	got, err := refundAmountFor(paidOrder(domain.OrderDelivered), d("100.00"), RefundInput{Amount: &amt})
	require.NoError(t, err)
	assert.True(t, got.Equal(d("25.00")))
}

func TestRefundAmountForFullRequiresCancelled(t *testing.T) {
	_, err := refundAmountFor(paidOrder(domain.OrderDelivered), d("100.00"), RefundInput{})
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	got, err := refundAmountFor(paidOrder(domain.OrderCancelled), d("100.00"), RefundInput{})
	require.NoError(t, err)
	assert.True(t, got.Equal(d("100.00")), "full refund returns the remaining balance")
}

func TestRefundAmountForOverRefund(t *testing.T) {
	amt := d("100.01")
	_, err := refundAmountFor(paidOrder(domain.OrderCancelled), d("100.00"), RefundInput{Amount: &amt})
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestRefundAmountForExhaustedBalance(t *testing.T) {
	_, err := refundAmountFor(paidOrder(domain.OrderCancelled), decimal.Zero, RefundInput{})
	require.Error(t, err, "nothing refundable once charges and refunds net to zero")
}

func TestRefundAmountForNoPaymentIntent(t *testing.T) {
	_, err := refundAmountFor(&domain.Order{Status: domain.OrderCancelled}, d("50.00"), RefundInput{})
	require.Error(t, err)

	amt := d("-5.00")
	_, err = refundAmountFor(paidOrder(domain.OrderCancelled), d("50.00"), RefundInput{Amount: &amt})
	require.Error(t, err, "refund amounts must be positive")
}
