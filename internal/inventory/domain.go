package inventory

import (
	"errors"
	"fmt"
)

// BranchInventory is one stock row of a product at a branch. OnHand may be negative when
// the branch has oversold. Several rows may exist for the same pair.
type BranchInventory struct {
	ID          int64 `json:"id"`
	BranchID    int64 `json:"branch_id"`
	ProductID   int64 `json:"product_id"`
	OnHand      int   `json:"on_hand"`
	IsStocked   bool  `json:"is_stocked"`
	IsAvailable bool  `json:"is_available"`
}

// RelationKind enumerates how a sub-branch relates to a branch.
type RelationKind int

const (
	// RelationMerged counts the sub-branch stock toward the branch's own total.
	RelationMerged RelationKind = 1
	// RelationHub offers the sub-branch as an alternate fulfilment location.
	RelationHub RelationKind = 2
	// RelationOverflow contributes to an aggregate nearby-stock figure.
	RelationOverflow RelationKind = 3
)

func (k RelationKind) String() string {
	switch k {
	case RelationMerged:
		return "merged"
	case RelationHub:
		return "hub"
	case RelationOverflow:
		return "overflow"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// RelationRow is a multiple_branch_inventories row as stored.
type RelationRow struct {
	ID          int64
	BranchID    int64
	Kind        RelationKind
	SubBranchID int64
	LeadTime    int
}

// MergedRelation sums a sub-branch into the branch's on-hand total.
type MergedRelation struct {
	ID          int64
	SubBranchID int64
}

// HubRelation is a category-scoped alternate fulfilment branch.
type HubRelation struct {
	ID          int64
	SubBranchID int64
	LeadTime    int
}

// OverflowRelation contributes anonymously to nearby stock.
type OverflowRelation struct {
	ID          int64
	SubBranchID int64
}

// Relations is the decoded, partitioned relation set of a branch.
type Relations struct {
	Merged   []MergedRelation
	Hubs     []HubRelation
	Overflow []OverflowRelation
}

// ErrUnknownRelationKind is returned for rows outside the closed kind set.
var ErrUnknownRelationKind = errors.New("inventory: unknown relation kind")

// Partition decodes rows into their typed variants, preserving input order.
// Rows with an unknown kind are skipped and reported together in the returned error.
func Partition(rows []RelationRow) (Relations, error) {
	var rels Relations
	var unknown []error
	for _, row := range rows {
		switch row.Kind {
		case RelationMerged:
			rels.Merged = append(rels.Merged, MergedRelation{ID: row.ID, SubBranchID: row.SubBranchID})
		case RelationHub:
			rels.Hubs = append(rels.Hubs, HubRelation{ID: row.ID, SubBranchID: row.SubBranchID, LeadTime: row.LeadTime})
		case RelationOverflow:
			rels.Overflow = append(rels.Overflow, OverflowRelation{ID: row.ID, SubBranchID: row.SubBranchID})
		default:
			unknown = append(unknown, fmt.Errorf("%w: relation %d kind %d", ErrUnknownRelationKind, row.ID, int(row.Kind)))
		}
	}
	return rels, errors.Join(unknown...)
}

// RelationCategory restricts a hub or overflow relation to a category.
type RelationCategory struct {
	RelationID int64
	CategoryID int64
}

// Branch carries what the supply locator needs to name a branch.
type Branch struct {
	ID           int64
	ERPName      string
	Translations []BranchTranslation
}

// BranchTranslation is a localized branch name.
type BranchTranslation struct {
	LocaleID int64
	Name     string
}

// BranchStock is a positive stock row joined with its branch.
type BranchStock struct {
	Inventory BranchInventory
	Branch    Branch
}

// AggregatedStock is the single stock signal consumed by the classifier.
type AggregatedStock struct {
	OnHand    int  `json:"on_hand"`
	IsStocked bool `json:"is_stocked"`
}

// Hub is a fallback fulfilment candidate.
type Hub struct {
	BranchID   int64  `json:"branch_id"`
	BranchName string `json:"branch_name"`
	OnHand     int    `json:"on_hand"`
	LeadTime   int    `json:"lead_time"`
}

// Overflow is the anonymous nearby-stock figure.
type Overflow struct {
	OnHand int `json:"on_hand"`
}
