package catalog

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/catalog/internal/inventory"
	"github.com/odyssey-erp/catalog/internal/locale"
)

const (
	defaultUnitCode = "ea"
	defaultUnitName = "Each"

	pricingBlended  = "blended"
	pricingStandard = "standard"
)

// EnrichInput is the per-product snapshot a listing is built from.
type EnrichInput struct {
	Product       Product
	Status        inventory.Status
	Hubs          []inventory.Hub
	Overflow      inventory.Overflow
	Locale        locale.SiteLocale
	DefaultLocale locale.SiteLocale
	UOMs          map[int64]UOM
	Pricing       []Pricing
	DeliveryType  string
}

// Enrich builds the listing of one product. It neither mutates its input nor shares
// memory with it.
func Enrich(in EnrichInput) Listing {
	p := in.Product
	out := Listing{
		ID:              p.ID,
		Name:            productName(p, in.Locale),
		DefaultLanguage: translation(p, in.DefaultLocale),
		Code:            p.ERPProductID,
		Units:           units(p, in.UOMs),
		NearbyHubs:      append([]inventory.Hub{}, in.Hubs...),
		NearbyBranches:  in.Overflow,
		PricingMethod:   pricingStandard,
		attributes:      append(append([]AttributeValue{}, p.Attributes...), p.CollectionAttributes...),
	}
	if p.PricingMethod == pricingBlended {
		out.PricingMethod = pricingBlended
	}

	status := in.Status
	if status.Unit != nil {
		status.Unit = intPtr(*status.Unit)
	}
	out.Inventory = InventoryView{
		ID:        p.MainInventory.ID,
		BranchID:  p.MainInventory.BranchID,
		ProductID: p.MainInventory.ProductID,
		IsStocked: status.InStock,
		Status:    status,
	}
	if status.Unit != nil {
		out.Inventory.OnHand = intPtr(*status.Unit)
	}
	out.NewInventory = newInventory(out.Inventory, in.Hubs)

	out.Prices, out.price = prices(in.Pricing, in.DeliveryType)
	if out.price.Valid {
		v := out.price.Decimal.InexactFloat64()
		out.Price = &v
	}
	return out
}

func productName(p Product, loc locale.SiteLocale) string {
	for _, tr := range p.Translations {
		if tr.LocaleID == loc.ID {
			return tr.Name
		}
	}
	return p.ERPSKU
}

func translation(p Product, loc locale.SiteLocale) *ProductTranslation {
	for _, tr := range p.Translations {
		if tr.LocaleID == loc.ID {
			return &ProductTranslation{LocaleID: tr.LocaleID, Name: tr.Name}
		}
	}
	return nil
}

func units(p Product, uoms map[int64]UOM) Units {
	out := Units{PerCode: defaultUnitCode, PerName: defaultUnitName}
	if p.UOM1ID == 0 {
		return out
	}
	main, ok := uoms[p.UOM1ID]
	if !ok {
		return out
	}
	out.PerCode = main.Code
	out.PerName = firstOr(main.Names, "")
	if secondary, ok := uoms[p.UOM2ID]; ok {
		out.UOM2Name = firstOr(secondary.Names, "")
	}
	conversion := 1.0
	if !p.UOM1ToUOM2Conversion.IsZero() {
		conversion = decimal.NewFromInt(1).Div(p.UOM1ToUOM2Conversion).InexactFloat64()
	}
	out.UOM2Conversion = &conversion
	return out
}

// newInventory picks the fallback hint when the main branch is short or not stocked.
// Without any nearby hub there is nothing to point at and the hint stays null.
func newInventory(inv InventoryView, hubs []inventory.Hub) NewInventory {
	short := inv.IsStocked && inv.OnHand != nil && *inv.OnHand < 0
	if (!short && inv.IsStocked) || len(hubs) == 0 {
		return NewInventory{}
	}
	hub, _ := inventory.BestHub(hubs)
	return NewInventory{
		OnHand:   intPtr(hub.OnHand),
		LeadTime: intPtr(hub.LeadTime),
		BranchID: &hub.BranchID,
	}
}

func prices(rows []Pricing, deliveryType string) ([]PriceTier, decimal.NullDecimal) {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b Pricing) int {
		return a.Quantity.Cmp(b.Quantity)
	})
	tiers := make([]PriceTier, 0, len(sorted))
	for _, row := range sorted {
		tiers = append(tiers, PriceTier{
			Qty:      row.Quantity.InexactFloat64(),
			Pickup:   row.PickupPrice.InexactFloat64(),
			Delivery: row.DeliveryPrice.InexactFloat64(),
		})
	}
	if len(sorted) == 0 {
		return tiers, decimal.NullDecimal{}
	}
	price := sorted[0].DeliveryPrice
	if deliveryType == DeliveryPickup {
		price = sorted[0].PickupPrice
	}
	return tiers, decimal.NewNullDecimal(price)
}

func firstOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}

func intPtr(v int) *int {
	return &v
}
