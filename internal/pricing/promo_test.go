package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/terrazzo/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakePromoStore struct {
	promo          *domain.PromoCode
	orderUsages    int
	customerUsages int
}

func (f *fakePromoStore) GetPromoByCode(_ context.Context, code string) (*domain.PromoCode, error) {
	if f.promo == nil || f.promo.Code != code {
		return nil, domain.NotFound("test", "promo")
	}
	return f.promo, nil
}

func (f *fakePromoStore) GetPromoForUpdate(_ context.Context, id uuid.UUID) (*domain.PromoCode, error) {
	if f.promo == nil || f.promo.ID != id {
		return nil, domain.NotFound("test", "promo")
	}
	return f.promo, nil
}

func (f *fakePromoStore) CountPromoOrderUsages(context.Context, uuid.UUID) (int, error) {
	return f.orderUsages, nil
}

func (f *fakePromoStore) CountPromoCustomerUsages(context.Context, uuid.UUID, string) (int, error) {
	return f.customerUsages, nil
}

func percentPromo(code string, pct string) *domain.PromoCode {
	return &domain.PromoCode{
		ID:     uuid.New(),
		Code:   code,
		Type:   domain.PromoPercent,
		Value:  d(pct),
		Active: true,
	}
}

func items(subtotals ...string) []Item {
	out := make([]Item, 0, len(subtotals))
	for _, s := range subtotals {
		id := uuid.New()
		out = append(out, Item{ProductID: &id, Subtotal: d(s)})
	}
	return out
}

func TestValidatePromoPercentFloors(t *testing.T) {
	store := &fakePromoStore{promo: percentPromo("SAVE", "33.333")}
	res, err := ValidatePromo(context.Background(), store, "SAVE", items("10.00"), "a@b.com")
	require.NoError(t, err)
	assert.True(t, res.DiscountAmount.Equal(d("3.33")), "got %s", res.DiscountAmount)
	assert.True(t, res.EligibleSubtotal.Equal(d("10.00")))
}

func TestValidatePromoFixedCapsAtEligible(t *testing.T) {
	store := &fakePromoStore{promo: &domain.PromoCode{
		ID: uuid.New(), Code: "TEN", Type: domain.PromoFixed, Value: d("10.00"), Active: true,
	}}
	res, err := ValidatePromo(context.Background(), store, "TEN", items("6.00"), "")
	require.NoError(t, err)
	assert.True(t, res.DiscountAmount.Equal(d("6.00")), "fixed discount capped at the eligible subtotal")
}

func TestValidatePromoUnknownCode(t *testing.T) {
	_, err := ValidatePromo(context.Background(), &fakePromoStore{}, "NOPE", items("10.00"), "")
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestValidatePromoInactiveAndExpired(t *testing.T) {
	p := percentPromo("OLD", "10")
	p.Active = false
	_, err := ValidatePromo(context.Background(), &fakePromoStore{promo: p}, "OLD", items("10.00"), "")
	require.Error(t, err)

	p = percentPromo("OLD", "10")
	past := time.Now().Add(-time.Hour)
	p.ExpiresAt = &past
	_, err = ValidatePromo(context.Background(), &fakePromoStore{promo: p}, "OLD", items("10.00"), "")
	require.Error(t, err)
}

func TestValidatePromoUsageLimits(t *testing.T) {
	p := percentPromo("LIM", "10")
	max := 5
	p.MaxUses = &max
	store := &fakePromoStore{promo: p, orderUsages: 5}
	_, err := ValidatePromo(context.Background(), store, "LIM", items("10.00"), "")
	require.Error(t, err)

	perCustomer := 1
	p2 := percentPromo("ONCE", "10")
	p2.MaxUsesPerCustomer = &perCustomer
	store = &fakePromoStore{promo: p2, customerUsages: 1}
	_, err = ValidatePromo(context.Background(), store, "ONCE", items("10.00"), "a@b.com")
	require.Error(t, err)

	// Without an email the per-customer cap cannot apply.
	_, err = ValidatePromo(context.Background(), store, "ONCE", items("10.00"), "")
	require.NoError(t, err)
}

func TestRecheckUsageCatchesLateWinner(t *testing.T) {
	// Validation at intent time and the commit are separate moments. A
	// concurrent order can take the last usage slot in between, so the
	// commit-time recheck must refuse what validation accepted.
	p := percentPromo("LAST", "10")
	max := 1
	p.MaxUses = &max
	store := &fakePromoStore{promo: p}

	_, err := ValidatePromo(context.Background(), store, "LAST", items("10.00"), "a@b.com")
	require.NoError(t, err)

	store.orderUsages = 1
	err = RecheckUsage(context.Background(), store, p.ID, "a@b.com")
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestRecheckUsagePerCustomerCap(t *testing.T) {
	p := percentPromo("ONCE", "10")
	perCustomer := 1
	p.MaxUsesPerCustomer = &perCustomer
	store := &fakePromoStore{promo: p, customerUsages: 1}

	err := RecheckUsage(context.Background(), store, p.ID, "a@b.com")
	require.Error(t, err)

	// Guest checkouts without an email cannot hit the per-customer cap.
	assert.NoError(t, RecheckUsage(context.Background(), store, p.ID, ""))
}

func TestRecheckUsagePromoDeactivatedInFlight(t *testing.T) {
	p := percentPromo("GONE", "10")
	store := &fakePromoStore{promo: p}
	require.NoError(t, RecheckUsage(context.Background(), store, p.ID, ""))

	p.Active = false
	err := RecheckUsage(context.Background(), store, p.ID, "")
	require.Error(t, err)
}

func TestValidatePromoMinOrderUsesProductSubtotal(t *testing.T) {
	p := percentPromo("MIN", "10")
	min := d("50.00")
	p.MinOrderAmount = &min
	store := &fakePromoStore{promo: p}

	_, err := ValidatePromo(context.Background(), store, "MIN", items("49.99"), "")
	require.Error(t, err)

	_, err = ValidatePromo(context.Background(), store, "MIN", items("25.00", "25.00"), "")
	require.NoError(t, err)
}

func TestValidatePromoSamplesNeverEligible(t *testing.T) {
	p := percentPromo("S", "10")
	store := &fakePromoStore{promo: p}
	sample := Item{IsSample: true, Subtotal: d("10.00")}
	_, err := ValidatePromo(context.Background(), store, "S", []Item{sample}, "")
	require.Error(t, err, "sample-only carts have no eligible subtotal")
}

func TestValidatePromoCategoryRestriction(t *testing.T) {
	catA, catB := uuid.New(), uuid.New()
	p := percentPromo("CAT", "50")
	p.CategoryIDs = []uuid.UUID{catA}
	store := &fakePromoStore{promo: p}

	prodIn, prodOut := uuid.New(), uuid.New()
	lines := []Item{
		{ProductID: &prodIn, CategoryID: &catA, Subtotal: d("40.00")},
		{ProductID: &prodOut, CategoryID: &catB, Subtotal: d("60.00")},
	}
	res, err := ValidatePromo(context.Background(), store, "CAT", lines, "")
	require.NoError(t, err)
	assert.True(t, res.EligibleSubtotal.Equal(d("40.00")))
	assert.True(t, res.DiscountAmount.Equal(d("20.00")))
}

func TestTierPrice(t *testing.T) {
	tier := &domain.TradeTier{Name: "Gold", DiscountPercent: d("15")}
	got := TierPrice(d("100.00"), tier)
	assert.True(t, got.Equal(d("85.00")), "got %s", got)

	assert.True(t, TierPrice(d("100.00"), nil).Equal(d("100.00")))
}
