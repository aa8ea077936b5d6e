package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Vendor pricing bases. Costs quoted per_sqft are normalised to per-box on
// purchase orders by multiplying by sqft_per_box.
const (
	PriceBasisPerBox  = "per_box"
	PriceBasisPerSqft = "per_sqft"
)

// Product is a catalog product. Catalog CRUD is out of scope; the commerce
// spine only reads these.
type Product struct {
	ID         uuid.UUID
	VendorID   uuid.UUID
	CategoryID *uuid.UUID
	Name       string
	Collection *string
	Slug       string
	CreatedAt  time.Time
}

// Sku is a sellable variant of a product.
type Sku struct {
	ID           uuid.UUID
	ProductID    uuid.UUID
	VendorID     uuid.UUID
	VendorSku    string
	VariantType  *string // "slab" variants are pickup-only
	RetailPrice  decimal.Decimal
	Cost         decimal.Decimal
	CutCost      *decimal.Decimal
	RollCost     *decimal.Decimal
	PriceBasis   string
	SellBy       string
	SqftPerBox   decimal.Decimal
	WeightPerBox decimal.Decimal
	FreightClass int
	CategorySlug *string
	CreatedAt    time.Time
}

// PickupOnly reports whether the SKU cannot ship: slab variants, vendor SKU
// prefixes, and category slugs marked non-shippable.
func (s *Sku) PickupOnly() bool {
	if s.VariantType != nil && *s.VariantType == "slab" {
		return true
	}
	if s.CategorySlug != nil && *s.CategorySlug == "slabs" {
		return true
	}
	return len(s.VendorSku) >= 3 && s.VendorSku[:3] == "SLB"
}

// CostPerBox normalises the vendor cost to per-box, honouring the carpet
// price tier when one applies.
func (s *Sku) CostPerBox(priceTier *string) decimal.Decimal {
	cost := s.Cost
	if priceTier != nil {
		switch *priceTier {
		case PriceTierCut:
			if s.CutCost != nil {
				cost = *s.CutCost
			}
		case PriceTierRoll:
			if s.RollCost != nil {
				cost = *s.RollCost
			}
		}
	}
	if s.PriceBasis == PriceBasisPerSqft {
		cost = cost.Mul(s.SqftPerBox)
	}
	return RoundCents(cost)
}

// InventorySnapshot is the latest scraped stock level for a SKU.
type InventorySnapshot struct {
	ID        uuid.UUID
	SkuID     uuid.UUID
	QtyOnHand int
	ScrapedAt time.Time
}
