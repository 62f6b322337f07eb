package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/catalog/internal/inventory"
	"github.com/odyssey-erp/catalog/internal/locale"
	"github.com/odyssey-erp/catalog/internal/permissions"
	"github.com/odyssey-erp/catalog/internal/settings"
)

// Store reads the catalog records a listing is built from.
type Store interface {
	Address(ctx context.Context, id int64) (Address, error)
	SiteLocales(ctx context.Context, codes []string) ([]locale.SiteLocale, error)
	LeafCategory(ctx context.Context, code string) (Category, error)
	Collections(ctx context.Context, categoryID int64) ([]Candidate, error)
	CategoryProductIDs(ctx context.Context, categoryID int64) ([]int64, error)
	Variants(ctx context.Context, query VariantQuery) ([]Product, error)
	UOMs(ctx context.Context, ids []int64, localeID int64) (map[int64]UOM, error)
	Pricing(ctx context.Context, productIDs []int64, addressID int64) ([]Pricing, error)
	FilterableAttributes(ctx context.Context) ([]Attribute, error)
}

// VariantQuery selects sellable variants for a category.
type VariantQuery struct {
	BranchID      int64
	CategoryID    int64
	CollectionIDs []int64
	ProductIDs    []int64
}

// PermissionReader loads product permissions with the exceptions of one address.
type PermissionReader interface {
	ByProducts(ctx context.Context, productIDs []int64, addressID int64) (map[int64]*permissions.Permission, error)
}

// RelationReader loads the branch relations of the main branch.
type RelationReader interface {
	Relations(ctx context.Context, branchID int64) ([]inventory.RelationRow, error)
}

// SettingsResolver resolves the effective settings of a category.
type SettingsResolver interface {
	Resolve(ctx context.Context, lookup settings.Lookup, locales locale.Set) (settings.Effective, error)
}

// StatusObserver is told when the classifier returned an unknown status.
type StatusObserver interface {
	StatusFallback()
}

// Options tunes Service.
type Options struct {
	RootCategoryCode string
	Concurrency      int
}

// Deps groups the collaborators of Service.
type Deps struct {
	Store       Store
	Permissions PermissionReader
	Relations   RelationReader
	Settings    SettingsResolver
	Aggregator  *inventory.Aggregator
	Locator     *inventory.Locator
	Observer    StatusObserver
	Logger      *slog.Logger
}

// Service builds product listings.
type Service struct {
	store       Store
	permissions PermissionReader
	relations   RelationReader
	settings    SettingsResolver
	aggregator  *inventory.Aggregator
	locator     *inventory.Locator
	observer    StatusObserver
	logger      *slog.Logger
	opts        Options
}

// NewService constructs Service.
func NewService(deps Deps, opts Options) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.RootCategoryCode == "" {
		opts.RootCategoryCode = "menu_category"
	}
	return &Service{
		store:       deps.Store,
		permissions: deps.Permissions,
		relations:   deps.Relations,
		settings:    deps.Settings,
		aggregator:  deps.Aggregator,
		locator:     deps.Locator,
		observer:    deps.Observer,
		logger:      deps.Logger,
		opts:        opts,
	}
}

type lookups struct {
	uoms    map[int64]UOM
	pricing map[int64][]Pricing
	attrs   []Attribute
}

// List returns the listings of a category for an address. Any failure of a required
// lookup aborts the whole request.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Listing, error) {
	var (
		address Address
		rows    []locale.SiteLocale
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		address, err = s.store.Address(gctx, req.AddressID)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.store.SiteLocales(gctx, locale.Supported())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	locales, ok := locale.NewSet(locale.Normalize(req.Locale), rows)
	if !ok || locales.English.ID == 0 || locales.French.ID == 0 {
		return nil, ErrLocalesMissing
	}

	category, err := s.store.LeafCategory(ctx, req.CategoryCode)
	if err != nil {
		return nil, err
	}
	eff, err := s.settings.Resolve(ctx, settings.Lookup{
		CategoryID: category.ID,
		ParentID:   category.ParentID,
		RootCode:   s.opts.RootCategoryCode,
		BranchID:   address.BranchID,
	}, locales)
	if err != nil {
		return nil, err
	}

	products, err := s.candidates(ctx, category, address)
	if err != nil {
		return nil, err
	}
	relations, err := s.loadRelations(ctx, address.BranchID)
	if err != nil {
		return nil, err
	}
	lk, err := s.loadLookups(ctx, products, address, locales.Requested)
	if err != nil {
		return nil, err
	}

	listings := make([]Listing, len(products))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, product := range products {
		i, product := i, product
		g.Go(func() error {
			listing, err := s.evaluate(gctx, product, relations, eff, category, locales, lk, req.DeliveryType)
			if err != nil {
				return err
			}
			listings[i] = listing
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if req.InStock {
		listings = filterInStock(listings)
	}
	listings = filterAttributes(listings, req.Filters, lk.attrs)
	order(listings, req.OrderPrice, req.OrderName, locales.Requested)
	return listings, nil
}

func (s *Service) evaluate(ctx context.Context, p Product, rels inventory.Relations, eff settings.Effective, category Category, locales locale.Set, lk lookups, deliveryType string) (Listing, error) {
	loc := locales.Requested
	stock, err := s.aggregator.Aggregate(ctx, p.MainInventory, rels.Merged, p.ID)
	if err != nil {
		return Listing{}, err
	}
	status := inventory.Classify(stock, eff, loc)
	if status.State == inventory.StateUnknown {
		s.logger.WarnContext(ctx, "inventory status unresolved",
			slog.Int64("product_id", p.ID),
			slog.Int("on_hand", stock.OnHand),
			slog.Int("protected_inventory", eff.ProtectedInventory),
			slog.Int("maximum_visible", eff.MaximumVisible))
		if s.observer != nil {
			s.observer.StatusFallback()
		}
	}
	hubs := s.locator.FindHubs(ctx, p.ID, rels.Hubs, category.ID, loc)
	overflow := s.locator.FindOverflow(ctx, p.ID, rels.Overflow, category.ID)
	return Enrich(EnrichInput{
		Product:       p,
		Status:        status,
		Hubs:          hubs,
		Overflow:      overflow,
		Locale:        loc,
		DefaultLocale: locales.English,
		UOMs:          lk.uoms,
		Pricing:       lk.pricing[p.ID],
		DeliveryType:  deliveryType,
	}), nil
}

// candidates returns the visible variants of the category. Collections are permission
// filtered before their variants are loaded.
func (s *Service) candidates(ctx context.Context, category Category, address Address) ([]Product, error) {
	var (
		collections []Candidate
		linked      []int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		collections, err = s.store.Collections(gctx, category.ID)
		return err
	})
	g.Go(func() error {
		var err error
		linked, err = s.store.CategoryProductIDs(gctx, category.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(collections))
	for _, c := range collections {
		ids = append(ids, c.ID)
	}
	perms, ok := s.loadPermissions(ctx, ids, address.ID)
	if !ok {
		return nil, nil
	}
	for i := range collections {
		collections[i].Permission = perms[collections[i].ID]
	}
	visible := permissions.Filter(ctx, s.logger, collections, address.ID, func(c Candidate) *permissions.Permission {
		return c.Permission
	})
	collectionIDs := make([]int64, 0, len(visible))
	for _, c := range visible {
		collectionIDs = append(collectionIDs, c.ID)
	}

	variants, err := s.store.Variants(ctx, VariantQuery{
		BranchID:      address.BranchID,
		CategoryID:    category.ID,
		CollectionIDs: collectionIDs,
		ProductIDs:    linked,
	})
	if err != nil {
		return nil, err
	}
	variants = dedupe(variants)
	ids = make([]int64, 0, len(variants))
	for _, v := range variants {
		ids = append(ids, v.ID)
	}
	perms, ok = s.loadPermissions(ctx, ids, address.ID)
	if !ok {
		return nil, nil
	}
	for i := range variants {
		variants[i].Permission = perms[variants[i].ID]
	}
	return permissions.Filter(ctx, s.logger, variants, address.ID, func(p Product) *permissions.Permission {
		return p.Permission
	}), nil
}

// loadPermissions reports false when permissions could not be read; callers then hide
// every product.
func (s *Service) loadPermissions(ctx context.Context, ids []int64, addressID int64) (map[int64]*permissions.Permission, bool) {
	if len(ids) == 0 {
		return map[int64]*permissions.Permission{}, true
	}
	perms, err := s.permissions.ByProducts(ctx, ids, addressID)
	if err != nil {
		s.logger.WarnContext(ctx, "load product permissions, hiding products",
			slog.Int64("address_id", addressID),
			slog.Any("error", err))
		return nil, false
	}
	return perms, true
}

func (s *Service) loadRelations(ctx context.Context, branchID int64) (inventory.Relations, error) {
	rows, err := s.relations.Relations(ctx, branchID)
	if err != nil {
		return inventory.Relations{}, fmt.Errorf("catalog: branch relations: %w", err)
	}
	rels, err := inventory.Partition(rows)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping branch relations", slog.Int64("branch_id", branchID), slog.Any("error", err))
	}
	return rels, nil
}

func (s *Service) loadLookups(ctx context.Context, products []Product, address Address, loc locale.SiteLocale) (lookups, error) {
	var lk lookups
	var uomIDs, productIDs []int64
	for _, p := range products {
		productIDs = append(productIDs, p.ID)
		for _, id := range []int64{p.UOM1ID, p.UOM2ID} {
			if id != 0 && !slices.Contains(uomIDs, id) {
				uomIDs = append(uomIDs, id)
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(uomIDs) == 0 {
			lk.uoms = map[int64]UOM{}
			return nil
		}
		var err error
		lk.uoms, err = s.store.UOMs(gctx, uomIDs, loc.ID)
		return err
	})
	g.Go(func() error {
		lk.pricing = make(map[int64][]Pricing)
		if len(productIDs) == 0 {
			return nil
		}
		rows, err := s.store.Pricing(gctx, productIDs, address.ID)
		if err != nil {
			return err
		}
		for _, row := range rows {
			lk.pricing[row.ProductID] = append(lk.pricing[row.ProductID], row)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		lk.attrs, err = s.store.FilterableAttributes(gctx)
		return err
	})
	return lk, g.Wait()
}

func dedupe(products []Product) []Product {
	seen := make(map[int64]struct{}, len(products))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
