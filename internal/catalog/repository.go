package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/catalog/internal/locale"
)

// Repository implements Store on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leafCategoryQuery = `
SELECT c.id, c.code, parent.id
FROM categories c
JOIN categories parent ON parent.id = c.parent_id AND parent.is_enabled = TRUE
WHERE c.code = $1
  AND c.is_enabled = TRUE
  AND NOT EXISTS (
      SELECT 1 FROM categories child
      WHERE child.parent_id = c.id AND child.is_enabled = TRUE)
LIMIT 1`

const variantsQuery = `
SELECT p.id, COALESCE(p.category_id, 0), COALESCE(p.product_collection_id, 0),
       p.erp_sku, p.erp_product_id::text,
       COALESCE(p.uom_1_id, 0), COALESCE(p.uom_2_id, 0),
       COALESCE(p.uom_1_to_uom_2_conversion, 0)::text, COALESCE(p.pricing_method, ''),
       bi.id, bi.branch_id, bi.on_hand, bi.is_stocked, bi.is_available
FROM products p
JOIN LATERAL (
    SELECT id, branch_id, on_hand, COALESCE(is_stocked, FALSE) AS is_stocked, is_available
    FROM branch_inventories
    WHERE product_id = p.id AND branch_id = $1 AND is_available = TRUE
    ORDER BY id
    LIMIT 1) bi ON TRUE
WHERE p.type = 2
  AND p.enabled = TRUE
  AND p.erp_product_id IS NOT NULL
  AND COALESCE(p.erp_sku, '') <> ''
  AND COALESCE(p.missing_defining_attributes, FALSE) = FALSE
  AND (p.product_collection_id = ANY($2) OR p.category_id = $3 OR p.id = ANY($4))
ORDER BY p.id`

const productTranslationsQuery = `
SELECT product_id, site_locale_id, COALESCE(name, '')
FROM product_translations
WHERE product_id = ANY($1)
ORDER BY id`

const productAttributesQuery = `
SELECT product_id, product_attribute_id, product_attribute_option_id
FROM product_collection_attributes
WHERE product_id = ANY($1)
ORDER BY id`

const uomsQuery = `
SELECT u.id, u.code, t.value
FROM uoms u
JOIN uom_translations t ON t.uom_id = u.id AND t.site_locale_id = $2
WHERE u.id = ANY($1)
ORDER BY u.id, t.id`

const pricingQuery = `
SELECT address_id, product_id, quantity::text, pickup_price::text, delivery_price::text
FROM pricings
WHERE product_id = ANY($1) AND address_id = $2
ORDER BY id`

// Address loads the requesting address.
func (r *Repository) Address(ctx context.Context, id int64) (Address, error) {
	var a Address
	err := r.pool.QueryRow(ctx, `SELECT id, branch_id FROM addresses WHERE id = $1`, id).Scan(&a.ID, &a.BranchID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Address{}, ErrAddressNotFound
	}
	return a, err
}

// SiteLocales loads the locale rows for codes.
func (r *Repository) SiteLocales(ctx context.Context, codes []string) ([]locale.SiteLocale, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code FROM site_locales WHERE code = ANY($1) ORDER BY id`, codes)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (locale.SiteLocale, error) {
		var l locale.SiteLocale
		err := row.Scan(&l.ID, &l.Code)
		return l, err
	})
}

// LeafCategory loads an enabled category without enabled children under an enabled parent.
func (r *Repository) LeafCategory(ctx context.Context, code string) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, leafCategoryQuery, code).Scan(&c.ID, &c.Code, &c.ParentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrCategoryNotFound
	}
	return c, err
}

// Collections lists the collection products of a category.
func (r *Repository) Collections(ctx context.Context, categoryID int64) ([]Candidate, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id FROM products
WHERE type = 1 AND category_id = $1 AND COALESCE(erp_sku, '') <> ''
ORDER BY id`, categoryID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Candidate, error) {
		var c Candidate
		err := row.Scan(&c.ID)
		return c, err
	})
}

// CategoryProductIDs lists products linked to a category explicitly.
func (r *Repository) CategoryProductIDs(ctx context.Context, categoryID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id FROM product_categories WHERE category_id = $1 ORDER BY id`, categoryID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// Variants loads sellable variants with their main-branch inventory, translations and
// attributes.
func (r *Repository) Variants(ctx context.Context, q VariantQuery) ([]Product, error) {
	rows, err := r.pool.Query(ctx, variantsQuery, q.BranchID, nonNil(q.CollectionIDs), q.CategoryID, nonNil(q.ProductIDs))
	if err != nil {
		return nil, err
	}
	var products []Product
	for rows.Next() {
		var p Product
		var conversion string
		inv := &p.MainInventory
		if err := rows.Scan(
			&p.ID, &p.CategoryID, &p.CollectionID,
			&p.ERPSKU, &p.ERPProductID,
			&p.UOM1ID, &p.UOM2ID,
			&conversion, &p.PricingMethod,
			&inv.ID, &inv.BranchID, &inv.OnHand, &inv.IsStocked, &inv.IsAvailable,
		); err != nil {
			rows.Close()
			return nil, err
		}
		inv.ProductID = p.ID
		if p.UOM1ToUOM2Conversion, err = decimal.NewFromString(conversion); err != nil {
			rows.Close()
			return nil, fmt.Errorf("catalog: product %d conversion: %w", p.ID, err)
		}
		products = append(products, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return products, nil
	}
	if err := r.attachTranslations(ctx, products); err != nil {
		return nil, err
	}
	return products, r.attachAttributes(ctx, products)
}

func (r *Repository) attachTranslations(ctx context.Context, products []Product) error {
	index := make(map[int64]int, len(products))
	ids := make([]int64, 0, len(products))
	for i, p := range products {
		index[p.ID] = i
		ids = append(ids, p.ID)
	}
	rows, err := r.pool.Query(ctx, productTranslationsQuery, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var productID int64
		var tr ProductTranslation
		if err := rows.Scan(&productID, &tr.LocaleID, &tr.Name); err != nil {
			return err
		}
		if i, ok := index[productID]; ok {
			products[i].Translations = append(products[i].Translations, tr)
		}
	}
	return rows.Err()
}

func (r *Repository) attachAttributes(ctx context.Context, products []Product) error {
	var ids []int64
	for _, p := range products {
		ids = append(ids, p.ID)
		if p.CollectionID != 0 {
			ids = append(ids, p.CollectionID)
		}
	}
	rows, err := r.pool.Query(ctx, productAttributesQuery, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	byProduct := make(map[int64][]AttributeValue)
	for rows.Next() {
		var productID int64
		var v AttributeValue
		if err := rows.Scan(&productID, &v.AttributeID, &v.OptionID); err != nil {
			return err
		}
		byProduct[productID] = append(byProduct[productID], v)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range products {
		products[i].Attributes = byProduct[products[i].ID]
		if products[i].CollectionID != 0 {
			products[i].CollectionAttributes = byProduct[products[i].CollectionID]
		}
	}
	return nil
}

// UOMs loads units with their names in localeID. Units without a name in that locale are
// omitted.
func (r *Repository) UOMs(ctx context.Context, ids []int64, localeID int64) (map[int64]UOM, error) {
	rows, err := r.pool.Query(ctx, uomsQuery, ids, localeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]UOM, len(ids))
	for rows.Next() {
		var id int64
		var code, name string
		if err := rows.Scan(&id, &code, &name); err != nil {
			return nil, err
		}
		u := out[id]
		u.ID, u.Code = id, code
		u.Names = append(u.Names, name)
		out[id] = u
	}
	return out, rows.Err()
}

// Pricing loads the price breaks of products at an address.
func (r *Repository) Pricing(ctx context.Context, productIDs []int64, addressID int64) ([]Pricing, error) {
	rows, err := r.pool.Query(ctx, pricingQuery, productIDs, addressID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Pricing
	for rows.Next() {
		var p Pricing
		var qty, pickup, delivery string
		if err := rows.Scan(&p.AddressID, &p.ProductID, &qty, &pickup, &delivery); err != nil {
			return nil, err
		}
		if p.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("catalog: pricing quantity: %w", err)
		}
		if p.PickupPrice, err = decimal.NewFromString(pickup); err != nil {
			return nil, fmt.Errorf("catalog: pickup price: %w", err)
		}
		if p.DeliveryPrice, err = decimal.NewFromString(delivery); err != nil {
			return nil, fmt.Errorf("catalog: delivery price: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FilterableAttributes lists attributes that may be used as filters.
func (r *Repository) FilterableAttributes(ctx context.Context) ([]Attribute, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code FROM product_attributes WHERE is_filterable = TRUE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Attribute, error) {
		var a Attribute
		err := row.Scan(&a.ID, &a.Code)
		return a, err
	})
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
