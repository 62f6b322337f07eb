package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads branch inventory and relation data from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var errRepositoryNotInitialised = errors.New("inventory repository not initialised")

const stockByBranchesQuery = `
SELECT id, branch_id, product_id, on_hand,
       COALESCE(is_stocked, FALSE), COALESCE(is_available, FALSE)
FROM branch_inventories
WHERE branch_id = ANY($1) AND product_id = $2
ORDER BY id`

const positiveStockQuery = `
SELECT bi.id, bi.branch_id, bi.product_id, bi.on_hand,
       COALESCE(bi.is_stocked, FALSE), COALESCE(bi.is_available, FALSE),
       COALESCE(b.erp_name, '')
FROM branch_inventories bi
JOIN branches b ON b.id = bi.branch_id
WHERE bi.branch_id = ANY($1) AND bi.product_id = $2 AND bi.on_hand > 0
ORDER BY bi.id`

const branchTranslationsQuery = `
SELECT branch_id, site_locale_id, name
FROM branch_translations
WHERE branch_id = ANY($1)
ORDER BY id`

const relationCategoriesQuery = `
SELECT multiple_branch_inventory_id, category_id
FROM multiple_branch_inventory_categories
WHERE multiple_branch_inventory_id = ANY($1)
  AND ($2::bigint IS NULL OR category_id = $2)
ORDER BY id`

const relationsQuery = `
SELECT id, branch_id, type, sub_branch_id, COALESCE(lead_time, 0)
FROM multiple_branch_inventories
WHERE branch_id = $1
ORDER BY id`

// StockByBranches returns every inventory row of productID at branchIDs.
func (r *Repository) StockByBranches(ctx context.Context, branchIDs []int64, productID int64) ([]BranchInventory, error) {
	if r == nil {
		return nil, errRepositoryNotInitialised
	}
	rows, err := r.pool.Query(ctx, stockByBranchesQuery, branchIDs, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BranchInventory
	for rows.Next() {
		var row BranchInventory
		if err := rows.Scan(&row.ID, &row.BranchID, &row.ProductID, &row.OnHand, &row.IsStocked, &row.IsAvailable); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// PositiveStock returns rows with on_hand > 0 joined with their branch and its translations.
func (r *Repository) PositiveStock(ctx context.Context, branchIDs []int64, productID int64) ([]BranchStock, error) {
	if r == nil {
		return nil, errRepositoryNotInitialised
	}
	rows, err := r.pool.Query(ctx, positiveStockQuery, branchIDs, productID)
	if err != nil {
		return nil, err
	}
	var out []BranchStock
	for rows.Next() {
		var row BranchStock
		inv := &row.Inventory
		if err := rows.Scan(&inv.ID, &inv.BranchID, &inv.ProductID, &inv.OnHand, &inv.IsStocked, &inv.IsAvailable, &row.Branch.ERPName); err != nil {
			rows.Close()
			return nil, err
		}
		row.Branch.ID = inv.BranchID
		out = append(out, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	translations, err := r.branchTranslations(ctx, branchIDs)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Branch.Translations = translations[out[i].Branch.ID]
	}
	return out, nil
}

func (r *Repository) branchTranslations(ctx context.Context, branchIDs []int64) (map[int64][]BranchTranslation, error) {
	rows, err := r.pool.Query(ctx, branchTranslationsQuery, branchIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64][]BranchTranslation)
	for rows.Next() {
		var branchID int64
		var tr BranchTranslation
		if err := rows.Scan(&branchID, &tr.LocaleID, &tr.Name); err != nil {
			return nil, err
		}
		out[branchID] = append(out[branchID], tr)
	}
	return out, rows.Err()
}

// RelationCategories returns the category join rows for relationIDs, optionally
// restricted to one category.
func (r *Repository) RelationCategories(ctx context.Context, relationIDs []int64, categoryID *int64) ([]RelationCategory, error) {
	if r == nil {
		return nil, errRepositoryNotInitialised
	}
	rows, err := r.pool.Query(ctx, relationCategoriesQuery, relationIDs, categoryID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RelationCategory, error) {
		var rc RelationCategory
		err := row.Scan(&rc.RelationID, &rc.CategoryID)
		return rc, err
	})
}

// Relations returns the raw relation rows of a branch.
func (r *Repository) Relations(ctx context.Context, branchID int64) ([]RelationRow, error) {
	if r == nil {
		return nil, errRepositoryNotInitialised
	}
	rows, err := r.pool.Query(ctx, relationsQuery, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RelationRow
	for rows.Next() {
		var row RelationRow
		var kind int
		if err := rows.Scan(&row.ID, &row.BranchID, &kind, &row.SubBranchID, &row.LeadTime); err != nil {
			return nil, err
		}
		row.Kind = RelationKind(kind)
		out = append(out, row)
	}
	return out, rows.Err()
}
