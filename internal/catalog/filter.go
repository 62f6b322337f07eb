package catalog

import (
	"slices"
	"strconv"
	"strings"

	"github.com/odyssey-erp/catalog/internal/locale"
)

// filterInStock keeps listings in stock at the main branch or at a nearby hub.
func filterInStock(items []Listing) []Listing {
	out := make([]Listing, 0, len(items))
	for _, item := range items {
		if item.Inventory.Status.InStock || hasPositiveHub(item) {
			out = append(out, item)
		}
	}
	return out
}

func hasPositiveHub(item Listing) bool {
	for _, hub := range item.NearbyHubs {
		if hub.OnHand > 0 {
			return true
		}
	}
	return false
}

// filterAttributes applies every requested attribute filter whose code is filterable.
// A listing passes a filter when it carries the attribute and one of the options.
func filterAttributes(items []Listing, filters map[string][]string, attrs []Attribute) []Listing {
	if len(filters) == 0 {
		return items
	}
	byCode := make(map[string]int64, len(attrs))
	for _, attr := range attrs {
		code := strings.ToLower(attr.Code)
		if _, seen := byCode[code]; !seen {
			byCode[code] = attr.ID
		}
	}
	out := items
	for code, values := range filters {
		attrID, ok := byCode[code]
		if !ok {
			continue
		}
		options := parseOptions(values)
		kept := make([]Listing, 0, len(out))
		for _, item := range out {
			if matchesAttribute(item.attributes, attrID, options) {
				kept = append(kept, item)
			}
		}
		out = kept
	}
	return out
}

func parseOptions(values []string) []int64 {
	out := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

func matchesAttribute(values []AttributeValue, attrID int64, options []int64) bool {
	hasAttr, hasOption := false, false
	for _, v := range values {
		if v.AttributeID == attrID {
			hasAttr = true
		}
		if slices.Contains(options, v.OptionID) {
			hasOption = true
		}
	}
	return hasAttr && hasOption
}

// order sorts by price then by name. Listings without a price sort last in both
// directions. The name sort is stable so it takes precedence when both are requested.
func order(items []Listing, byPrice, byName string, loc locale.SiteLocale) {
	if byPrice == OrderAsc || byPrice == OrderDesc {
		slices.SortStableFunc(items, func(a, b Listing) int {
			switch {
			case !a.price.Valid && !b.price.Valid:
				return 0
			case !a.price.Valid:
				return 1
			case !b.price.Valid:
				return -1
			}
			c := a.price.Decimal.Cmp(b.price.Decimal)
			if byPrice == OrderDesc {
				c = -c
			}
			return c
		})
	}
	if byName == OrderAsc || byName == OrderDesc {
		collator := locale.Collator(loc)
		slices.SortStableFunc(items, func(a, b Listing) int {
			c := collator.CompareString(a.Name, b.Name)
			if byName == OrderDesc {
				c = -c
			}
			return c
		})
	}
}
