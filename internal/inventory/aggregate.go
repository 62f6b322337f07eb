package inventory

import (
	"context"
	"fmt"
)

// StockReader fetches live inventory rows.
type StockReader interface {
	// StockByBranches returns every row of productID at the given branches, in id order.
	StockByBranches(ctx context.Context, branchIDs []int64, productID int64) ([]BranchInventory, error)
}

// Aggregate merges the main branch row with merged-branch rows.
// Negative on-hand never reduces the total; stocked is a logical OR.
func Aggregate(main BranchInventory, merged []BranchInventory) AggregatedStock {
	out := AggregatedStock{
		OnHand:    max(main.OnHand, 0),
		IsStocked: main.IsStocked,
	}
	for _, row := range merged {
		out.OnHand += max(row.OnHand, 0)
		if row.IsStocked {
			out.IsStocked = true
		}
	}
	return out
}

// Aggregator fetches merged-branch rows before aggregating.
type Aggregator struct {
	reader StockReader
}

// NewAggregator constructs Aggregator.
func NewAggregator(reader StockReader) *Aggregator {
	return &Aggregator{reader: reader}
}

// Aggregate loads the rows of every merged sub-branch for productID and folds them
// into main.
func (a *Aggregator) Aggregate(ctx context.Context, main BranchInventory, merged []MergedRelation, productID int64) (AggregatedStock, error) {
	if len(merged) == 0 {
		return Aggregate(main, nil), nil
	}
	branchIDs := make([]int64, 0, len(merged))
	for _, rel := range merged {
		branchIDs = append(branchIDs, rel.SubBranchID)
	}
	rows, err := a.reader.StockByBranches(ctx, branchIDs, productID)
	if err != nil {
		return AggregatedStock{}, fmt.Errorf("inventory: merged stock for product %d: %w", productID, err)
	}
	return Aggregate(main, rows), nil
}
