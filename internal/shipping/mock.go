package shipping

import (
	"context"

	"github.com/shopspring/decimal"
)

// MockParcelRater implements ParcelRater with a settable function, for
// tests and local development.
type MockParcelRater struct {
	QuoteFn func(ctx context.Context, originZip, destZip string, weightLbs decimal.Decimal) ([]ParcelQuote, error)
}

func (m *MockParcelRater) Quote(ctx context.Context, originZip, destZip string, weightLbs decimal.Decimal) ([]ParcelQuote, error) {
	if m.QuoteFn != nil {
		return m.QuoteFn(ctx, originZip, destZip, weightLbs)
	}
	return []ParcelQuote{{Carrier: "UPS", Service: "Ground", Cost: decimal.NewFromInt(25), TransitDays: 3}}, nil
}

// MockFreightRater implements FreightRater with a settable function.
type MockFreightRater struct {
	QuoteFn func(ctx context.Context, req FreightRequest) ([]FreightQuote, error)
}

func (m *MockFreightRater) Quote(ctx context.Context, req FreightRequest) ([]FreightQuote, error) {
	if m.QuoteFn != nil {
		return m.QuoteFn(ctx, req)
	}
	return []FreightQuote{
		{Carrier: "XPO", Service: "Standard LTL", Cost: decimal.NewFromInt(310), TransitDays: 4},
		{Carrier: "Old Dominion", Service: "Standard LTL", Cost: decimal.NewFromInt(295), TransitDays: 5},
		{Carrier: "Estes", Service: "Standard LTL", Cost: decimal.NewFromInt(340), TransitDays: 3},
		{Carrier: "Saia", Service: "Standard LTL", Cost: decimal.NewFromInt(420), TransitDays: 2},
	}, nil
}
