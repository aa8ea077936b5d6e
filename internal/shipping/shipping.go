// Package shipping rates orders: parcel below the LTL cutoff, less-than-
// truckload freight above it, and a deterministic zone fallback when the
// freight rater is unreachable.
package shipping

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OriginZip is the warehouse the raters quote from.
const OriginZip = "92806"

// LTLCutoffLbs is the inclusive parcel weight limit. An order at exactly
// the cutoff ships parcel.
var LTLCutoffLbs = decimal.NewFromInt(150)

// Option is one rate quote presented to the buyer.
type Option struct {
	Carrier     string          `json:"carrier"`
	Service     string          `json:"service"`
	Cost        decimal.Decimal `json:"cost"`
	TransitDays int             `json:"transit_days"`
	IsCheapest  bool            `json:"is_cheapest"`
	IsFallback  bool            `json:"is_fallback"`
}

// ParcelQuote is a single quote from the parcel rater.
type ParcelQuote struct {
	Carrier     string
	Service     string
	Cost        decimal.Decimal
	TransitDays int
}

// FreightLine is one per-class line submitted to the LTL rater. Weight is
// rounded up to whole pounds.
type FreightLine struct {
	FreightClass int
	WeightLbs    int64
}

// FreightRequest is the LTL rater call.
type FreightRequest struct {
	OriginZip      string
	DestinationZip string
	Lines          []FreightLine
	PickupDate     time.Time
	Residential    bool
	Liftgate       bool
}

// FreightQuote is a single carrier quote from the LTL rater.
type FreightQuote struct {
	Carrier     string
	Service     string
	Cost        decimal.Decimal
	TransitDays int
}

// ParcelRater is the external small-parcel rating collaborator.
type ParcelRater interface {
	Quote(ctx context.Context, originZip, destZip string, weightLbs decimal.Decimal) ([]ParcelQuote, error)
}

// FreightRater is the external LTL rating collaborator.
type FreightRater interface {
	Quote(ctx context.Context, req FreightRequest) ([]FreightQuote, error)
}
