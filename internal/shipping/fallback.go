package shipping

import (
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
)

// Zone table keyed by the first digit of the destination ZIP, graded by
// distance from the Anaheim origin. Digit 9 is local, digit 0 the
// northeast.
var (
	zoneMultipliers = map[byte]string{
		'0': "3.0", '1': "2.9", '2': "2.7", '3': "2.5", '4': "2.3",
		'5': "2.0", '6': "1.8", '7': "1.5", '8': "1.2", '9': "1.0",
	}
	zoneTransitDays = map[byte]int{
		'0': 6, '1': 6, '2': 5, '3': 5, '4': 4,
		'5': 4, '6': 3, '7': 3, '8': 2, '9': 1,
	}

	fallbackPerLb   = decimal.RequireFromString("0.50")
	fallbackFloor   = decimal.NewFromInt(150)
	standardFactor  = decimal.RequireFromString("1.3")
	expeditedUplift = decimal.RequireFromString("1.75")
)

// FallbackOptions synthesises the three zone-table quotes used when the
// freight rater is unreachable. All three carry IsFallback so the flag
// can propagate into the order record.
func FallbackOptions(destZip string, weightLbs decimal.Decimal) ([]Option, error) {
	const op = "shipping.fallback"
	if destZip == "" {
		return nil, domain.Invalid(op, "destination zip is required")
	}
	mult, ok := zoneMultipliers[destZip[0]]
	if !ok {
		return nil, domain.Invalid(op, "destination zip is not a US zip code")
	}
	transit := zoneTransitDays[destZip[0]]

	base := fallbackPerLb.Mul(decimal.RequireFromString(mult)).Mul(weightLbs)
	base = decimal.Max(base, fallbackFloor)

	return []Option{
		{
			Carrier:     "Zone Freight",
			Service:     "Economy",
			Cost:        domain.RoundCents(base),
			TransitDays: transit + 2,
			IsCheapest:  true,
			IsFallback:  true,
		},
		{
			Carrier:     "Zone Freight",
			Service:     "Standard",
			Cost:        domain.RoundCents(base.Mul(standardFactor)),
			TransitDays: transit,
			IsFallback:  true,
		},
		{
			Carrier:     "Zone Freight",
			Service:     "Expedited",
			Cost:        domain.RoundCents(base.Mul(expeditedUplift)),
			TransitDays: max(transit-2, 1),
			IsFallback:  true,
		},
	}, nil
}
