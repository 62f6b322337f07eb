package permissions

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads product permissions from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const permissionsQuery = `
SELECT id, product_id, COALESCE(global_allow, FALSE)
FROM product_permissions
WHERE product_id = ANY($1)
ORDER BY id`

const exceptionsQuery = `
SELECT id, product_permission_id, address_id
FROM product_permission_exceptions
WHERE product_permission_id = ANY($1) AND address_id = $2
ORDER BY id`

// ByProducts returns the first permission of each product keyed by product id. Only the
// exceptions of addressID are attached.
func (r *Repository) ByProducts(ctx context.Context, productIDs []int64, addressID int64) (map[int64]*Permission, error) {
	out := make(map[int64]*Permission)
	if len(productIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, permissionsQuery, productIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*Permission)
	var ids []int64
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.ProductID, &p.GlobalAllow); err != nil {
			rows.Close()
			return nil, err
		}
		if _, seen := out[p.ProductID]; seen {
			continue
		}
		out[p.ProductID] = &p
		byID[p.ID] = &p
		ids = append(ids, p.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	rows, err = r.pool.Query(ctx, exceptionsQuery, ids, addressID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e Exception
		if err := rows.Scan(&e.ID, &e.PermissionID, &e.AddressID); err != nil {
			return nil, err
		}
		if p, ok := byID[e.PermissionID]; ok {
			p.Exceptions = append(p.Exceptions, e)
		}
	}
	return out, rows.Err()
}
