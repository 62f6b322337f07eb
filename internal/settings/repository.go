package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads branch settings from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const chainSettingsQuery = `
SELECT bs.id, bs.category_id, bs.branch_id,
       bs.protected_inventory, bs.is_inherit_protected_inventory,
       bs.maximum_visible, bs.is_inherit_maximum_visible,
       bs.show_value, bs.is_inherit_show_value,
       bs.is_inherit_special_order_string, bs.is_enabled
FROM branch_settings bs
WHERE bs.branch_id = $1
  AND bs.is_enabled = TRUE
  AND (bs.category_id = ANY($2)
       OR bs.category_id = (SELECT c.id FROM categories c WHERE c.code = $3 LIMIT 1))
ORDER BY bs.id`

const settingTranslationsQuery = `
SELECT branch_setting_id, site_locale_id, COALESCE(special_order_string, '')
FROM branch_setting_translations
WHERE branch_setting_id = ANY($1)
ORDER BY id`

const rootCategoryQuery = `SELECT id FROM categories WHERE code = $1 LIMIT 1`

// LoadChain fetches the own, parent and root settings of a lookup.
// Only the first enabled setting per category is kept.
func (r *Repository) LoadChain(ctx context.Context, lookup Lookup) (Chain, error) {
	var rootID int64
	if err := r.pool.QueryRow(ctx, rootCategoryQuery, lookup.RootCode).Scan(&rootID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return Chain{}, err
	}

	categoryIDs := []int64{lookup.CategoryID}
	if lookup.ParentID != 0 {
		categoryIDs = append(categoryIDs, lookup.ParentID)
	}
	rows, err := r.pool.Query(ctx, chainSettingsQuery, lookup.BranchID, categoryIDs, lookup.RootCode)
	if err != nil {
		return Chain{}, err
	}
	defer rows.Close()

	byCategory := make(map[int64]*BranchSetting)
	var settingIDs []int64
	for rows.Next() {
		var s BranchSetting
		if err := rows.Scan(
			&s.ID, &s.CategoryID, &s.BranchID,
			&s.ProtectedInventory, &s.InheritProtectedInventory,
			&s.MaximumVisible, &s.InheritMaximumVisible,
			&s.ShowValue, &s.InheritShowValue,
			&s.InheritSpecialOrderString, &s.Enabled,
		); err != nil {
			return Chain{}, err
		}
		if _, seen := byCategory[s.CategoryID]; seen {
			continue
		}
		byCategory[s.CategoryID] = &s
		settingIDs = append(settingIDs, s.ID)
	}
	if err := rows.Err(); err != nil {
		return Chain{}, err
	}

	if err := r.attachTranslations(ctx, settingIDs, byCategory); err != nil {
		return Chain{}, err
	}

	chain := Chain{Own: byCategory[lookup.CategoryID]}
	if lookup.ParentID != 0 {
		chain.Parent = byCategory[lookup.ParentID]
	}
	if rootID != 0 {
		chain.Root = byCategory[rootID]
	}
	return chain, nil
}

func (r *Repository) attachTranslations(ctx context.Context, settingIDs []int64, byCategory map[int64]*BranchSetting) error {
	if len(settingIDs) == 0 {
		return nil
	}
	bySetting := make(map[int64]*BranchSetting, len(byCategory))
	for _, s := range byCategory {
		bySetting[s.ID] = s
	}
	rows, err := r.pool.Query(ctx, settingTranslationsQuery, settingIDs)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var settingID int64
		var t Translation
		if err := rows.Scan(&settingID, &t.LocaleID, &t.SpecialOrderString); err != nil {
			return err
		}
		if s, ok := bySetting[settingID]; ok {
			s.Translations = append(s.Translations, t)
		}
	}
	return rows.Err()
}

const warmupLookupsQuery = `
SELECT DISTINCT b.id, c.id, parent.id
FROM branches b
CROSS JOIN categories c
JOIN categories parent ON parent.id = c.parent_id AND parent.is_enabled = TRUE
WHERE c.is_enabled = TRUE
  AND NOT EXISTS (
      SELECT 1 FROM categories child
      WHERE child.parent_id = c.id AND child.is_enabled = TRUE)
  AND EXISTS (
      SELECT 1 FROM branch_settings bs
      WHERE bs.branch_id = b.id AND bs.is_enabled = TRUE)
ORDER BY b.id, c.id`

// Lookups lists the leaf category chains of every branch carrying settings.
func (r *Repository) Lookups(ctx context.Context, rootCode string) ([]Lookup, error) {
	rows, err := r.pool.Query(ctx, warmupLookupsQuery)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Lookup, error) {
		l := Lookup{RootCode: rootCode}
		err := row.Scan(&l.BranchID, &l.CategoryID, &l.ParentID)
		return l, err
	})
}
