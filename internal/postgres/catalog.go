package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/terrazzo/internal/domain"
)

const skuColumns = `
	s.id, s.product_id, s.vendor_id, s.vendor_sku, s.variant_type,
	s.retail_price, s.cost, s.cut_cost, s.roll_cost, s.price_basis,
	s.sell_by, s.sqft_per_box, s.weight_per_box, s.freight_class,
	c.slug, s.created_at`

func scanSku(row pgx.Row) (*domain.Sku, error) {
	var sk domain.Sku
	err := row.Scan(
		&sk.ID, &sk.ProductID, &sk.VendorID, &sk.VendorSku, &sk.VariantType,
		&sk.RetailPrice, &sk.Cost, &sk.CutCost, &sk.RollCost, &sk.PriceBasis,
		&sk.SellBy, &sk.SqftPerBox, &sk.WeightPerBox, &sk.FreightClass,
		&sk.CategorySlug, &sk.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sk, nil
}

const skuFrom = `
	FROM skus s
	JOIN products p ON p.id = s.product_id
	LEFT JOIN categories c ON c.id = p.category_id`

// GetSku fetches a SKU by id.
func (s *Store) GetSku(ctx context.Context, id uuid.UUID) (*domain.Sku, error) {
	sk, err := scanSku(s.db.QueryRow(ctx,
		`SELECT `+skuColumns+skuFrom+` WHERE s.id = $1`, id))
	if err != nil {
		return nil, notFound(err, "store.sku.get", "sku")
	}
	return sk, nil
}

// GetSkuByVendorSku resolves a vendor SKU string, for trade bulk ordering.
func (s *Store) GetSkuByVendorSku(ctx context.Context, vendorSku string) (*domain.Sku, error) {
	sk, err := scanSku(s.db.QueryRow(ctx,
		`SELECT `+skuColumns+skuFrom+` WHERE upper(s.vendor_sku) = upper($1)`, vendorSku))
	if err != nil {
		return nil, notFound(err, "store.sku.get_by_vendor_sku", "sku")
	}
	return sk, nil
}

// GetProduct fetches a product by id.
func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRow(ctx, `
		SELECT id, vendor_id, category_id, name, collection, slug, created_at
		FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.VendorID, &p.CategoryID, &p.Name, &p.Collection, &p.Slug, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err, "store.product.get", "product")
	}
	return &p, nil
}

// GetVendor fetches a vendor with its EDI configuration.
func (s *Store) GetVendor(ctx context.Context, id uuid.UUID) (*domain.Vendor, error) {
	var v domain.Vendor
	var edi []byte
	err := s.db.QueryRow(ctx, `
		SELECT id, name, code, email, edi_config, created_at
		FROM vendors WHERE id = $1`, id,
	).Scan(&v.ID, &v.Name, &v.Code, &v.Email, &edi, &v.CreatedAt)
	if err != nil {
		return nil, notFound(err, "store.vendor.get", "vendor")
	}
	if len(edi) > 0 {
		var cfg domain.VendorEDIConfig
		if err := json.Unmarshal(edi, &cfg); err == nil {
			v.EDIConfig = &cfg
		}
	}
	return &v, nil
}
