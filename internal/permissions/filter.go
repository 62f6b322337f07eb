package permissions

import (
	"context"
	"log/slog"
)

// Decide evaluates perm for addressID.
//
// A product without a permission record is visible. Otherwise the first exception for
// the address decides: visible when the record does not allow globally. Records with no
// exception for the address are hidden.
func Decide(perm *Permission, addressID int64) Decision {
	if perm == nil {
		return Decision{Visible: true}
	}
	var matched *Exception
	var d Decision
	for i := range perm.Exceptions {
		if perm.Exceptions[i].AddressID != addressID {
			continue
		}
		if matched != nil {
			d.Duplicates = true
			break
		}
		matched = &perm.Exceptions[i]
	}
	if matched != nil {
		d.Visible = !perm.GlobalAllow
	}
	return d
}

// Filter keeps the items visible to addressID, preserving order. permissionOf returns
// the permission of an item or nil when it has none.
func Filter[T any](ctx context.Context, logger *slog.Logger, items []T, addressID int64, permissionOf func(T) *Permission) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		perm := permissionOf(item)
		d := Decide(perm, addressID)
		if d.Duplicates && logger != nil {
			logger.WarnContext(ctx, "multiple permission exceptions for address",
				slog.Int64("permission_id", perm.ID),
				slog.Int64("product_id", perm.ProductID),
				slog.Int64("address_id", addressID))
		}
		if d.Visible {
			out = append(out, item)
		}
	}
	return out
}
