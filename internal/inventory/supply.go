package inventory

import (
	"context"
	"log/slog"
	"slices"

	"github.com/odyssey-erp/catalog/internal/locale"
)

// SupplyReader exposes the lookups the locator needs.
type SupplyReader interface {
	// RelationCategories returns join rows for relationIDs. A nil categoryID loads every row.
	RelationCategories(ctx context.Context, relationIDs []int64, categoryID *int64) ([]RelationCategory, error)
	// PositiveStock returns rows with on_hand > 0 at branchIDs for productID, joined with
	// their branch, in row id order.
	PositiveStock(ctx context.Context, branchIDs []int64, productID int64) ([]BranchStock, error)
}

// DegradeObserver is told when a supply lookup failed and an empty result was served.
type DegradeObserver interface {
	SupplyDegraded(lookup string)
}

// Locator finds fallback supply for a product.
type Locator struct {
	reader   SupplyReader
	logger   *slog.Logger
	observer DegradeObserver
}

// NewLocator constructs Locator. logger and observer may be nil.
func NewLocator(reader SupplyReader, logger *slog.Logger, observer DegradeObserver) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{reader: reader, logger: logger, observer: observer}
}

// FindHubs returns positive-stock rows at hub sub-branches eligible for categoryID.
// A relation is eligible only when the join holds a row for it with categoryID.
// The result follows stock row order and is not sorted by lead time.
func (l *Locator) FindHubs(ctx context.Context, productID int64, hubs []HubRelation, categoryID int64, loc locale.SiteLocale) []Hub {
	if len(hubs) == 0 {
		return []Hub{}
	}
	ids := make([]int64, 0, len(hubs))
	for _, rel := range hubs {
		ids = append(ids, rel.ID)
	}
	joins, err := l.reader.RelationCategories(ctx, ids, &categoryID)
	if err != nil {
		l.degraded(ctx, "hubs", productID, err)
		return []Hub{}
	}
	allowed := eligible(joins, categoryID)
	var branchIDs []int64
	leadTimes := make(map[int64]int)
	for _, rel := range hubs {
		if !allowed[rel.ID] {
			continue
		}
		if _, seen := leadTimes[rel.SubBranchID]; seen {
			continue
		}
		leadTimes[rel.SubBranchID] = l.clampLeadTime(ctx, rel)
		branchIDs = append(branchIDs, rel.SubBranchID)
	}
	if len(branchIDs) == 0 {
		return []Hub{}
	}
	rows, err := l.reader.PositiveStock(ctx, branchIDs, productID)
	if err != nil {
		l.degraded(ctx, "hubs", productID, err)
		return []Hub{}
	}
	out := make([]Hub, 0, len(rows))
	for _, row := range rows {
		out = append(out, Hub{
			BranchID:   row.Inventory.BranchID,
			BranchName: branchName(row.Branch, loc),
			OnHand:     max(row.Inventory.OnHand, 0),
			LeadTime:   leadTimes[row.Inventory.BranchID],
		})
	}
	return out
}

// FindOverflow sums positive stock across overflow sub-branches eligible for categoryID.
// Join rows are loaded for every relation regardless of category; each relation must
// still carry a row matching categoryID.
func (l *Locator) FindOverflow(ctx context.Context, productID int64, overflow []OverflowRelation, categoryID int64) Overflow {
	if len(overflow) == 0 {
		return Overflow{}
	}
	ids := make([]int64, 0, len(overflow))
	for _, rel := range overflow {
		ids = append(ids, rel.ID)
	}
	joins, err := l.reader.RelationCategories(ctx, ids, nil)
	if err != nil {
		l.degraded(ctx, "overflow", productID, err)
		return Overflow{}
	}
	allowed := eligible(joins, categoryID)
	var branchIDs []int64
	for _, rel := range overflow {
		if allowed[rel.ID] && !slices.Contains(branchIDs, rel.SubBranchID) {
			branchIDs = append(branchIDs, rel.SubBranchID)
		}
	}
	if len(branchIDs) == 0 {
		return Overflow{}
	}
	rows, err := l.reader.PositiveStock(ctx, branchIDs, productID)
	if err != nil {
		l.degraded(ctx, "overflow", productID, err)
		return Overflow{}
	}
	var total Overflow
	for _, row := range rows {
		total.OnHand += max(row.Inventory.OnHand, 0)
	}
	return total
}

// BestHub picks the hub with positive stock and the smallest lead time. Ties keep the
// earliest entry.
func BestHub(hubs []Hub) (Hub, bool) {
	var candidates []Hub
	for _, hub := range hubs {
		if hub.OnHand > 0 {
			candidates = append(candidates, hub)
		}
	}
	if len(candidates) == 0 {
		return Hub{}, false
	}
	slices.SortStableFunc(candidates, func(a, b Hub) int {
		return a.LeadTime - b.LeadTime
	})
	return candidates[0], true
}

func eligible(joins []RelationCategory, categoryID int64) map[int64]bool {
	out := make(map[int64]bool, len(joins))
	for _, join := range joins {
		if join.CategoryID == categoryID {
			out[join.RelationID] = true
		}
	}
	return out
}

func branchName(b Branch, loc locale.SiteLocale) string {
	for _, tr := range b.Translations {
		if tr.LocaleID == loc.ID {
			return tr.Name
		}
	}
	return b.ERPName
}

func (l *Locator) clampLeadTime(ctx context.Context, rel HubRelation) int {
	if rel.LeadTime >= 0 {
		return rel.LeadTime
	}
	l.logger.WarnContext(ctx, "negative hub lead time clamped",
		slog.Int64("relation_id", rel.ID),
		slog.Int("lead_time", rel.LeadTime))
	return 0
}

func (l *Locator) degraded(ctx context.Context, lookup string, productID int64, err error) {
	l.logger.WarnContext(ctx, "supply lookup failed",
		slog.String("lookup", lookup),
		slog.Int64("product_id", productID),
		slog.Any("error", err))
	if l.observer != nil {
		l.observer.SupplyDegraded(lookup)
	}
}
