package shipping

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
)

// Store is the slice of the persistence layer the rater needs.
type Store interface {
	ListCartItems(ctx context.Context, sessionID string) ([]domain.CartItem, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error)
	GetSku(ctx context.Context, id uuid.UUID) (*domain.Sku, error)
}

// Rater selects parcel or LTL by total weight and quotes through the
// external raters, falling back to the zone table on LTL failure.
type Rater struct {
	store   Store
	parcel  ParcelRater
	freight FreightRater
	logger  zerolog.Logger
}

func NewRater(store Store, parcel ParcelRater, freight FreightRater, logger zerolog.Logger) *Rater {
	return &Rater{
		store:   store,
		parcel:  parcel,
		freight: freight,
		logger:  logger.With().Str("component", "shipping").Logger(),
	}
}

// weightLine is the aggregation unit shared by the cart and order entry
// points.
type weightLine struct {
	weightLbs    decimal.Decimal
	freightClass int
	isSample     bool
}

// EstimateForCart rates the anonymous cart identified by sessionID.
func (r *Rater) EstimateForCart(ctx context.Context, sessionID, destZip string) ([]Option, error) {
	const op = "shipping.estimate_cart"
	items, err := r.store.ListCartItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.Invalid(op, "cart is empty")
	}
	lines := make([]weightLine, 0, len(items))
	for _, it := range items {
		line, err := r.lineFor(ctx, it.SkuID, it.NumBoxes, it.IsSample)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return r.estimate(ctx, lines, destZip)
}

// EstimateForOrder rates an existing order's items, used by the two-phase
// delivery-method change.
func (r *Rater) EstimateForOrder(ctx context.Context, orderID uuid.UUID, destZip string) ([]Option, error) {
	const op = "shipping.estimate_order"
	items, err := r.store.ListOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.Invalid(op, "order has no items")
	}
	lines := make([]weightLine, 0, len(items))
	for _, it := range items {
		line, err := r.lineFor(ctx, it.SkuID, it.NumBoxes, it.IsSample)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return r.estimate(ctx, lines, destZip)
}

func (r *Rater) lineFor(ctx context.Context, skuID *uuid.UUID, numBoxes int, isSample bool) (weightLine, error) {
	line := weightLine{isSample: isSample}
	if isSample || skuID == nil {
		return line, nil
	}
	sku, err := r.store.GetSku(ctx, *skuID)
	if err != nil {
		return weightLine{}, err
	}
	line.weightLbs = sku.WeightPerBox.Mul(decimal.NewFromInt(int64(numBoxes)))
	line.freightClass = sku.FreightClass
	return line, nil
}

func (r *Rater) estimate(ctx context.Context, lines []weightLine, destZip string) ([]Option, error) {
	const op = "shipping.estimate"

	total := decimal.Zero
	byClass := make(map[int]decimal.Decimal)
	sampleOnly := true
	for _, l := range lines {
		if l.isSample {
			continue
		}
		sampleOnly = false
		total = total.Add(l.weightLbs)
		byClass[l.freightClass] = byClass[l.freightClass].Add(l.weightLbs)
	}

	if sampleOnly {
		return []Option{{
			Carrier:     "none",
			Service:     "No shipping required",
			Cost:        decimal.Zero,
			TransitDays: 0,
			IsCheapest:  true,
		}}, nil
	}
	if destZip == "" {
		return nil, domain.Invalid(op, "destination zip is required")
	}

	if total.LessThanOrEqual(LTLCutoffLbs) {
		return r.rateParcel(ctx, destZip, total)
	}
	return r.rateFreight(ctx, destZip, total, byClass)
}

func (r *Rater) rateParcel(ctx context.Context, destZip string, weight decimal.Decimal) ([]Option, error) {
	const op = "shipping.parcel"
	quotes, err := r.parcel.Quote(ctx, OriginZip, destZip, weight)
	if err != nil {
		return nil, domain.Upstream(err, op, "parcel rater unavailable")
	}
	if len(quotes) == 0 {
		return nil, domain.Upstream(nil, op, "parcel rater returned no quotes")
	}
	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.Cost.LessThan(best.Cost) {
			best = q
		}
	}
	return []Option{{
		Carrier:     best.Carrier,
		Service:     best.Service,
		Cost:        best.Cost,
		TransitDays: best.TransitDays,
		IsCheapest:  true,
	}}, nil
}

func (r *Rater) rateFreight(ctx context.Context, destZip string, total decimal.Decimal, byClass map[int]decimal.Decimal) ([]Option, error) {
	req := FreightRequest{
		OriginZip:      OriginZip,
		DestinationZip: destZip,
		PickupDate:     NextBusinessDay(time.Now()),
		Residential:    true,
		Liftgate:       true,
	}
	classes := make([]int, 0, len(byClass))
	for fc := range byClass {
		classes = append(classes, fc)
	}
	sort.Ints(classes)
	for _, fc := range classes {
		req.Lines = append(req.Lines, FreightLine{
			FreightClass: fc,
			WeightLbs:    byClass[fc].Ceil().IntPart(),
		})
	}

	quotes, err := r.freight.Quote(ctx, req)
	if err != nil {
		r.logger.Warn().Err(err).Str("dest_zip", destZip).
			Msg("freight rater failed, using zone fallback")
		return FallbackOptions(destZip, total)
	}
	if len(quotes) == 0 {
		r.logger.Warn().Str("dest_zip", destZip).
			Msg("freight rater returned no quotes, using zone fallback")
		return FallbackOptions(destZip, total)
	}

	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Cost.LessThan(quotes[j].Cost) })
	if len(quotes) > 3 {
		quotes = quotes[:3]
	}
	out := make([]Option, len(quotes))
	for i, q := range quotes {
		out[i] = Option{
			Carrier:     q.Carrier,
			Service:     q.Service,
			Cost:        q.Cost,
			TransitDays: q.TransitDays,
			IsCheapest:  i == 0,
		}
	}
	return out, nil
}

// NextBusinessDay returns the next weekday after t, for freight pickup.
func NextBusinessDay(t time.Time) time.Time {
	d := t.AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}
