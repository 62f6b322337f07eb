package catalog

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/catalog/internal/inventory"
	"github.com/odyssey-erp/catalog/internal/permissions"
)

var (
	// ErrCategoryNotFound covers unknown, disabled and non-leaf categories.
	ErrCategoryNotFound = errors.New("catalog: category not found")
	// ErrAddressNotFound indicates the requesting address does not exist.
	ErrAddressNotFound = errors.New("catalog: address not found")
	// ErrLocalesMissing indicates site_locales lacks one of the supported codes.
	ErrLocalesMissing = errors.New("catalog: site locales missing")
)

// Product types stored in products.type.
const (
	ProductTypeCollection = 1
	ProductTypeVariant    = 2
)

// Delivery types accepted for price selection.
const (
	DeliveryPickup   = "pickup"
	DeliveryDelivery = "delivery"
)

// Sort directions.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Address is the storefront address placing the request.
type Address struct {
	ID       int64
	BranchID int64
}

// Category is a leaf category resolved for listing.
type Category struct {
	ID       int64
	Code     string
	ParentID int64
}

// Candidate is a collection product considered before variants are loaded.
type Candidate struct {
	ID         int64
	Permission *permissions.Permission
}

// AttributeValue links a product to an attribute option.
type AttributeValue struct {
	AttributeID int64
	OptionID    int64
}

// ProductTranslation is a localized product name.
type ProductTranslation struct {
	LocaleID int64  `json:"site_locale_id"`
	Name     string `json:"name"`
}

// Product is a sellable variant with its main-branch inventory row.
type Product struct {
	ID                   int64
	CategoryID           int64
	CollectionID         int64
	ERPSKU               string
	ERPProductID         string
	UOM1ID               int64
	UOM2ID               int64
	UOM1ToUOM2Conversion decimal.Decimal
	PricingMethod        string
	Translations         []ProductTranslation
	Attributes           []AttributeValue
	CollectionAttributes []AttributeValue
	MainInventory        inventory.BranchInventory
	Permission           *permissions.Permission
}

// UOM is a unit of measure with its translation in the request locale.
type UOM struct {
	ID    int64
	Code  string
	Names []string
}

// Pricing is one quantity break of a product at an address.
type Pricing struct {
	AddressID     int64
	ProductID     int64
	Quantity      decimal.Decimal
	PickupPrice   decimal.Decimal
	DeliveryPrice decimal.Decimal
}

// Attribute is a filterable product attribute.
type Attribute struct {
	ID   int64
	Code string
}

// Units describes how a product is sold.
type Units struct {
	PerCode        string   `json:"per_code"`
	PerName        string   `json:"per_name"`
	UOM2Name       string   `json:"uom_2_name"`
	UOM2Conversion *float64 `json:"uom_2_conversion"`
}

// InventoryView is the main-branch row as presented to clients.
type InventoryView struct {
	ID        int64            `json:"id"`
	BranchID  int64            `json:"branch_id"`
	ProductID int64            `json:"product_id"`
	OnHand    *int             `json:"on_hand"`
	IsStocked bool             `json:"is_stocked"`
	Status    inventory.Status `json:"status"`
}

// NewInventory is the fallback supply hint. All fields are null when no hint applies.
type NewInventory struct {
	OnHand   *int   `json:"on_hand"`
	LeadTime *int   `json:"lead_time"`
	BranchID *int64 `json:"branch_id"`
}

// PriceTier is one quantity break as presented to clients.
type PriceTier struct {
	Qty      float64 `json:"qty"`
	Pickup   float64 `json:"pickup"`
	Delivery float64 `json:"delivery"`
}

// Listing is one enriched product of the response.
type Listing struct {
	ID              int64               `json:"id"`
	Name            string              `json:"name"`
	DefaultLanguage *ProductTranslation `json:"default_language"`
	Code            string              `json:"code"`
	Units           Units               `json:"units"`
	Inventory       InventoryView       `json:"inventory"`
	NewInventory    NewInventory        `json:"new_inventory"`
	NearbyHubs      []inventory.Hub     `json:"nearby_hubs"`
	NearbyBranches  inventory.Overflow  `json:"nearby_branches"`
	Prices          []PriceTier         `json:"prices"`
	Price           *float64            `json:"price"`
	PricingMethod   string              `json:"pricing_method"`

	price      decimal.NullDecimal
	attributes []AttributeValue
}

// ListRequest carries the validated query of a listing.
type ListRequest struct {
	AddressID    int64
	CategoryCode string
	Locale       string
	DeliveryType string
	InStock      bool
	// Filters maps an attribute code to the option ids requested for it.
	Filters    map[string][]string
	OrderPrice string
	OrderName  string
}
