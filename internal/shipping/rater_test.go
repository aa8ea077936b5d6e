package shipping

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/terrazzo/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fakeStore serves a fixed cart and catalog to the rater.
type fakeStore struct {
	cart []domain.CartItem
	skus map[uuid.UUID]*domain.Sku
}

func (f *fakeStore) ListCartItems(context.Context, string) ([]domain.CartItem, error) {
	return f.cart, nil
}

func (f *fakeStore) ListOrderItems(context.Context, uuid.UUID) ([]domain.OrderItem, error) {
	return nil, nil
}

func (f *fakeStore) GetSku(_ context.Context, id uuid.UUID) (*domain.Sku, error) {
	sku, ok := f.skus[id]
	if !ok {
		return nil, domain.NotFound("test", "sku")
	}
	return sku, nil
}

// cartOf builds a one-SKU store whose cart weighs weightPerBox*boxes.
func cartOf(weightPerBox string, boxes int) *fakeStore {
	skuID := uuid.New()
	return &fakeStore{
		cart: []domain.CartItem{{SkuID: &skuID, NumBoxes: boxes}},
		skus: map[uuid.UUID]*domain.Sku{
			skuID: {ID: skuID, WeightPerBox: d(weightPerBox), FreightClass: 70},
		},
	}
}

func testRater(store Store, parcel ParcelRater, freight FreightRater) *Rater {
	return NewRater(store, parcel, freight, zerolog.Nop())
}

func TestEstimateParcelAtCutoff(t *testing.T) {
	var gotWeight decimal.Decimal
	parcel := &MockParcelRater{QuoteFn: func(_ context.Context, _, _ string, w decimal.Decimal) ([]ParcelQuote, error) {
		gotWeight = w
		return []ParcelQuote{
			{Carrier: "UPS", Service: "Ground", Cost: d("32.00"), TransitDays: 3},
			{Carrier: "USPS", Service: "Priority", Cost: d("28.50"), TransitDays: 2},
		}, nil
	}}
	freight := &MockFreightRater{QuoteFn: func(context.Context, FreightRequest) ([]FreightQuote, error) {
		t.Fatal("freight rater must not be called at the parcel cutoff")
		return nil, nil
	}}

	// 150 lbs exactly is parcel.
	r := testRater(cartOf("15", 10), parcel, freight)
	opts, err := r.EstimateForCart(context.Background(), "sess", "10001")
	require.NoError(t, err)
	require.Len(t, opts, 1, "parcel returns only the cheapest quote")
	assert.Equal(t, "USPS", opts[0].Carrier)
	assert.True(t, opts[0].IsCheapest)
	assert.False(t, opts[0].IsFallback)
	assert.True(t, gotWeight.Equal(d("150")))
}

func TestEstimateFreightAboveCutoff(t *testing.T) {
	var gotReq FreightRequest
	freight := &MockFreightRater{QuoteFn: func(_ context.Context, req FreightRequest) ([]FreightQuote, error) {
		gotReq = req
		return []FreightQuote{
			{Carrier: "XPO", Cost: d("310.00"), TransitDays: 4},
			{Carrier: "Old Dominion", Cost: d("295.00"), TransitDays: 5},
			{Carrier: "Estes", Cost: d("340.00"), TransitDays: 3},
			{Carrier: "Saia", Cost: d("420.00"), TransitDays: 2},
		}, nil
	}}
	parcel := &MockParcelRater{QuoteFn: func(context.Context, string, string, decimal.Decimal) ([]ParcelQuote, error) {
		t.Fatal("parcel rater must not be called above the cutoff")
		return nil, nil
	}}

	// 150.5 lbs crosses into LTL.
	r := testRater(cartOf("15.05", 10), parcel, freight)
	opts, err := r.EstimateForCart(context.Background(), "sess", "30301")
	require.NoError(t, err)

	require.Len(t, opts, 3, "top three by cost")
	assert.Equal(t, "Old Dominion", opts[0].Carrier)
	assert.True(t, opts[0].IsCheapest)
	assert.False(t, opts[1].IsCheapest)
	assert.Equal(t, []string{"Old Dominion", "XPO", "Estes"},
		[]string{opts[0].Carrier, opts[1].Carrier, opts[2].Carrier})

	assert.True(t, gotReq.Residential)
	assert.True(t, gotReq.Liftgate)
	require.Len(t, gotReq.Lines, 1)
	assert.Equal(t, 70, gotReq.Lines[0].FreightClass)
	assert.Equal(t, int64(151), gotReq.Lines[0].WeightLbs, "line weights round up")
}

func TestEstimateFreightFailureFallsBack(t *testing.T) {
	freight := &MockFreightRater{QuoteFn: func(context.Context, FreightRequest) ([]FreightQuote, error) {
		return nil, errors.New("upstream down")
	}}
	r := testRater(cartOf("100", 4), &MockParcelRater{}, freight)

	opts, err := r.EstimateForCart(context.Background(), "sess", "90210")
	require.NoError(t, err, "fallback absorbs the rater failure")
	require.Len(t, opts, 3)
	for _, o := range opts {
		assert.True(t, o.IsFallback)
		assert.Equal(t, "Zone Freight", o.Carrier)
	}
	assert.True(t, opts[0].IsCheapest)
}

func TestFallbackZoneMath(t *testing.T) {
	// Zone 9 (local): 400 lbs * $0.50 * 1.0 = $200 economy base.
	opts, err := FallbackOptions("90210", d("400"))
	require.NoError(t, err)
	assert.True(t, opts[0].Cost.Equal(d("200.00")), "economy %s", opts[0].Cost)
	assert.True(t, opts[1].Cost.Equal(d("260.00")), "standard %s", opts[1].Cost)
	assert.True(t, opts[2].Cost.Equal(d("350.00")), "expedited %s", opts[2].Cost)

	// Zone 0 (northeast) costs triple the local rate.
	far, err := FallbackOptions("02101", d("400"))
	require.NoError(t, err)
	assert.True(t, far[0].Cost.Equal(d("600.00")))
	assert.Greater(t, far[0].TransitDays, opts[0].TransitDays)
}

func TestFallbackFloor(t *testing.T) {
	// A light LTL load still pays the minimum.
	opts, err := FallbackOptions("90210", d("10"))
	require.NoError(t, err)
	assert.True(t, opts[0].Cost.Equal(d("150.00")))
}

func TestFallbackRejectsBadZip(t *testing.T) {
	_, err := FallbackOptions("", d("100"))
	require.Error(t, err)
	_, err = FallbackOptions("X1234", d("100"))
	require.Error(t, err)
}

func TestEstimateSampleOnlyCartShipsFree(t *testing.T) {
	skuID := uuid.New()
	store := &fakeStore{
		cart: []domain.CartItem{{SkuID: &skuID, NumBoxes: 1, IsSample: true}},
		skus: map[uuid.UUID]*domain.Sku{skuID: {ID: skuID, WeightPerBox: d("2")}},
	}
	r := testRater(store, &MockParcelRater{}, &MockFreightRater{})
	opts, err := r.EstimateForCart(context.Background(), "sess", "")
	require.NoError(t, err, "sample-only carts do not need a zip")
	require.Len(t, opts, 1)
	assert.True(t, opts[0].Cost.IsZero())
}

func TestNextBusinessDay(t *testing.T) {
	friday := time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Monday, NextBusinessDay(friday).Weekday())

	tuesday := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Wednesday, NextBusinessDay(tuesday).Weekday())
}
