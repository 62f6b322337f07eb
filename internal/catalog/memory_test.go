package catalog

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/catalog/internal/inventory"
	"github.com/odyssey-erp/catalog/internal/locale"
	"github.com/odyssey-erp/catalog/internal/permissions"
	"github.com/odyssey-erp/catalog/internal/settings"
)

type memoryStore struct {
	addresses   map[int64]Address
	locales     []locale.SiteLocale
	categories  map[string]Category
	collections map[int64][]Candidate
	linked      map[int64][]int64
	products    []Product
	uoms        map[int64]UOM
	pricing     []Pricing
	attrs       []Attribute
}

func (m *memoryStore) Address(ctx context.Context, id int64) (Address, error) {
	a, ok := m.addresses[id]
	if !ok {
		return Address{}, ErrAddressNotFound
	}
	return a, nil
}

func (m *memoryStore) SiteLocales(ctx context.Context, codes []string) ([]locale.SiteLocale, error) {
	var out []locale.SiteLocale
	for _, l := range m.locales {
		if slices.Contains(codes, l.Code) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryStore) LeafCategory(ctx context.Context, code string) (Category, error) {
	c, ok := m.categories[code]
	if !ok {
		return Category{}, ErrCategoryNotFound
	}
	return c, nil
}

func (m *memoryStore) Collections(ctx context.Context, categoryID int64) ([]Candidate, error) {
	return slices.Clone(m.collections[categoryID]), nil
}

func (m *memoryStore) CategoryProductIDs(ctx context.Context, categoryID int64) ([]int64, error) {
	return slices.Clone(m.linked[categoryID]), nil
}

func (m *memoryStore) Variants(ctx context.Context, q VariantQuery) ([]Product, error) {
	var out []Product
	for _, p := range m.products {
		if p.MainInventory.BranchID != q.BranchID {
			continue
		}
		if slices.Contains(q.CollectionIDs, p.CollectionID) || p.CategoryID == q.CategoryID || slices.Contains(q.ProductIDs, p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryStore) UOMs(ctx context.Context, ids []int64, localeID int64) (map[int64]UOM, error) {
	out := make(map[int64]UOM)
	for _, id := range ids {
		if u, ok := m.uoms[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (m *memoryStore) Pricing(ctx context.Context, productIDs []int64, addressID int64) ([]Pricing, error) {
	var out []Pricing
	for _, p := range m.pricing {
		if p.AddressID == addressID && slices.Contains(productIDs, p.ProductID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryStore) FilterableAttributes(ctx context.Context) ([]Attribute, error) {
	return slices.Clone(m.attrs), nil
}

type memoryPermissions struct {
	byProduct map[int64]permissions.Permission
	err       error
}

func (m *memoryPermissions) ByProducts(ctx context.Context, productIDs []int64, addressID int64) (map[int64]*permissions.Permission, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[int64]*permissions.Permission)
	for _, id := range productIDs {
		if p, ok := m.byProduct[id]; ok {
			p.Exceptions = slices.Clone(p.Exceptions)
			out[id] = &p
		}
	}
	return out, nil
}

// memoryInventory backs both the aggregator and the locator.
type memoryInventory struct {
	relations []inventory.RelationRow
	joins     []inventory.RelationCategory
	stock     []inventory.BranchStock
	stockErr  error
}

func (m *memoryInventory) Relations(ctx context.Context, branchID int64) ([]inventory.RelationRow, error) {
	var out []inventory.RelationRow
	for _, r := range m.relations {
		if r.BranchID == branchID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryInventory) StockByBranches(ctx context.Context, branchIDs []int64, productID int64) ([]inventory.BranchInventory, error) {
	if m.stockErr != nil {
		return nil, m.stockErr
	}
	var out []inventory.BranchInventory
	for _, s := range m.stock {
		if s.Inventory.ProductID == productID && slices.Contains(branchIDs, s.Inventory.BranchID) {
			out = append(out, s.Inventory)
		}
	}
	return out, nil
}

func (m *memoryInventory) PositiveStock(ctx context.Context, branchIDs []int64, productID int64) ([]inventory.BranchStock, error) {
	var out []inventory.BranchStock
	for _, s := range m.stock {
		if s.Inventory.ProductID == productID && s.Inventory.OnHand > 0 && slices.Contains(branchIDs, s.Inventory.BranchID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryInventory) RelationCategories(ctx context.Context, relationIDs []int64, categoryID *int64) ([]inventory.RelationCategory, error) {
	var out []inventory.RelationCategory
	for _, j := range m.joins {
		if slices.Contains(relationIDs, j.RelationID) && (categoryID == nil || j.CategoryID == *categoryID) {
			out = append(out, j)
		}
	}
	return out, nil
}

type stubSettings struct {
	eff settings.Effective
	err error
}

func (s stubSettings) Resolve(ctx context.Context, lookup settings.Lookup, locales locale.Set) (settings.Effective, error) {
	return s.eff, s.err
}

type countingObserver struct {
	mu        sync.Mutex
	fallbacks int
}

func (c *countingObserver) StatusFallback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallbacks++
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

const (
	testAddressID = 1
	testBranchID  = 10
	testCategory  = 7
)

var (
	testEnglish = locale.SiteLocale{ID: 1, Code: locale.CodeEnglish}
	testFrench  = locale.SiteLocale{ID: 2, Code: locale.CodeFrench}
)

func mainRow(productID int64, onHand int, stocked bool) inventory.BranchInventory {
	return inventory.BranchInventory{ID: productID * 10, BranchID: testBranchID, ProductID: productID, OnHand: onHand, IsStocked: stocked, IsAvailable: true}
}

func stockRow(id, branchID, productID int64, onHand int, name string) inventory.BranchStock {
	return inventory.BranchStock{
		Inventory: inventory.BranchInventory{ID: id, BranchID: branchID, ProductID: productID, OnHand: onHand, IsStocked: true},
		Branch:    inventory.Branch{ID: branchID, ERPName: name},
	}
}

type fixture struct {
	store       *memoryStore
	permissions *memoryPermissions
	inventory   *memoryInventory
	settings    stubSettings
	observer    *countingObserver
}

func newFixture() *fixture {
	return &fixture{
		store: &memoryStore{
			addresses: map[int64]Address{testAddressID: {ID: testAddressID, BranchID: testBranchID}},
			locales:   []locale.SiteLocale{testEnglish, testFrench},
			categories: map[string]Category{
				"drills": {ID: testCategory, Code: "drills", ParentID: 3},
			},
			collections: map[int64][]Candidate{testCategory: {{ID: 100}, {ID: 101}}},
			linked:      map[int64][]int64{testCategory: {205}},
			products: []Product{
				{
					ID: 200, CollectionID: 100, ERPSKU: "SKU-200", ERPProductID: "E200",
					UOM1ID: 1, UOM2ID: 2, UOM1ToUOM2Conversion: dec("4"), PricingMethod: "blended",
					Translations:  []ProductTranslation{{LocaleID: 1, Name: "Zebra drill"}, {LocaleID: 2, Name: "Perceuse zèbre"}},
					Attributes:    []AttributeValue{{AttributeID: 50, OptionID: 501}},
					MainInventory: mainRow(200, 5, true),
				},
				{
					ID: 201, CollectionID: 101, ERPSKU: "SKU-201", ERPProductID: "E201",
					MainInventory: mainRow(201, 50, true),
				},
				{
					ID: 202, CategoryID: testCategory, ERPSKU: "SKU-202", ERPProductID: "E202",
					Translations:  []ProductTranslation{{LocaleID: 1, Name: "alpha saw"}},
					Attributes:    []AttributeValue{{AttributeID: 50, OptionID: 502}},
					MainInventory: mainRow(202, 0, false),
				},
				{
					ID: 205, ERPSKU: "SKU-205", ERPProductID: "E205",
					MainInventory: mainRow(205, -2, true),
				},
			},
			uoms: map[int64]UOM{
				1: {ID: 1, Code: "bx", Names: []string{"Box"}},
				2: {ID: 2, Code: "pc", Names: []string{"Piece"}},
			},
			pricing: []Pricing{
				{AddressID: testAddressID, ProductID: 200, Quantity: dec("10"), PickupPrice: dec("8"), DeliveryPrice: dec("9")},
				{AddressID: testAddressID, ProductID: 200, Quantity: dec("1"), PickupPrice: dec("10"), DeliveryPrice: dec("11")},
				{AddressID: testAddressID, ProductID: 202, Quantity: dec("1"), PickupPrice: dec("5"), DeliveryPrice: dec("6")},
				{AddressID: 99, ProductID: 205, Quantity: dec("1"), PickupPrice: dec("1"), DeliveryPrice: dec("1")},
			},
			attrs: []Attribute{{ID: 50, Code: "Color"}},
		},
		permissions: &memoryPermissions{byProduct: map[int64]permissions.Permission{
			101: {ID: 1, ProductID: 101, GlobalAllow: true, Exceptions: []permissions.Exception{{AddressID: testAddressID}}},
			205: {ID: 2, ProductID: 205, GlobalAllow: false, Exceptions: []permissions.Exception{{AddressID: testAddressID}}},
		}},
		inventory: &memoryInventory{
			relations: []inventory.RelationRow{
				{ID: 1, BranchID: testBranchID, Kind: inventory.RelationMerged, SubBranchID: 11},
				{ID: 2, BranchID: testBranchID, Kind: inventory.RelationHub, SubBranchID: 12, LeadTime: 3},
				{ID: 3, BranchID: testBranchID, Kind: inventory.RelationHub, SubBranchID: 13, LeadTime: 1},
				{ID: 4, BranchID: testBranchID, Kind: inventory.RelationOverflow, SubBranchID: 14},
				{ID: 5, BranchID: testBranchID, Kind: inventory.RelationKind(8), SubBranchID: 15},
			},
			joins: []inventory.RelationCategory{
				{RelationID: 2, CategoryID: testCategory},
				{RelationID: 3, CategoryID: testCategory},
				{RelationID: 4, CategoryID: testCategory},
			},
			stock: []inventory.BranchStock{
				stockRow(1, 11, 200, 4, "Merged"),
				stockRow(2, 12, 202, 6, "Hub twelve"),
				stockRow(3, 13, 202, 2, "Hub thirteen"),
				stockRow(4, 14, 202, 5, "Overflow"),
			},
		},
		settings: stubSettings{eff: settings.Effective{
			ProtectedInventory:   2,
			MaximumVisible:       10,
			ShowValue:            true,
			SpecialOrderString:   "Special order",
			SpecialOrderStringEN: "Special order",
			SpecialOrderStringFR: "Commande spéciale",
		}},
		observer: &countingObserver{},
	}
}

func (f *fixture) service() *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(Deps{
		Store:       f.store,
		Permissions: f.permissions,
		Relations:   f.inventory,
		Settings:    f.settings,
		Aggregator:  inventory.NewAggregator(f.inventory),
		Locator:     inventory.NewLocator(f.inventory, logger, nil),
		Observer:    f.observer,
		Logger:      logger,
	}, Options{Concurrency: 2})
}
