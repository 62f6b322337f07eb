package inventory

import (
	"strconv"

	"github.com/odyssey-erp/catalog/internal/locale"
	"github.com/odyssey-erp/catalog/internal/settings"
)

// State names the branch of the classifier that produced a Status.
type State string

const (
	StateInStockExact   State = "in_stock_exact"
	StateSpecialOrder   State = "special_order"
	StateWaitingOnStock State = "waiting_on_stock"
	StateInStockHidden  State = "in_stock_hidden"
	StateInStockTiered  State = "in_stock_tiered"
	StateInStockCapped  State = "in_stock_capped"
	StateUnknown        State = "unknown"
)

const (
	inStockEN  = "In Stock"
	inStockFR  = "En stock"
	inStockFRq = "En Stock Seulement via"
	waitingEN  = "Waiting On Stock"
	waitingFR  = "En attente de stock"
)

// Status is the localized stock descriptor of a product. Unit is nil when no count
// should be shown.
type Status struct {
	State              State  `json:"state"`
	Origin             string `json:"origin"`
	OriginEN           string `json:"origin_en"`
	OriginFR           string `json:"origin_fr"`
	Unit               *int   `json:"unit"`
	Text               string `json:"status"`
	TextEN             string `json:"status_en"`
	TextFR             string `json:"status_fr"`
	WaitingOnStock     bool   `json:"waiting_on_stock"`
	InStock            bool   `json:"in_stock"`
	SpecialOrderString bool   `json:"special_order_string"`
}

// Classify maps aggregated stock and resolved settings to a status. It is total:
// inputs that satisfy none of the rules produce StateUnknown.
func Classify(stock AggregatedStock, eff settings.Effective, loc locale.SiteLocale) Status {
	onHand := stock.OnHand
	protected := eff.ProtectedInventory
	maxVisible := eff.MaximumVisible

	if stock.IsStocked && onHand > 0 {
		return inStock(StateInStockExact, loc, intPtr(onHand-protected), strconv.Itoa(onHand))
	}
	if !stock.IsStocked {
		return Status{
			State:              StateSpecialOrder,
			Origin:             eff.SpecialOrderString,
			OriginEN:           eff.SpecialOrderStringEN,
			OriginFR:           eff.SpecialOrderStringFR,
			Text:               eff.SpecialOrderString,
			TextEN:             eff.SpecialOrderStringEN,
			TextFR:             eff.SpecialOrderStringFR,
			SpecialOrderString: true,
		}
	}
	if !eff.ShowValue {
		if onHand <= protected {
			return waiting(loc)
		}
		return inStock(StateInStockHidden, loc, nil, "")
	}
	switch {
	case onHand <= protected:
		return waiting(loc)
	case onHand-protected <= maxVisible:
		return inStock(StateInStockTiered, loc, intPtr(onHand-protected), strconv.Itoa(onHand-protected))
	case onHand > maxVisible:
		return inStock(StateInStockCapped, loc, intPtr(onHand-protected), strconv.Itoa(maxVisible)+"+")
	}
	return Status{State: StateUnknown}
}

func inStock(state State, loc locale.SiteLocale, unit *int, count string) Status {
	en, fr := inStockEN, inStockFRq
	if count != "" {
		en += " " + count
		fr += " " + count
	}
	st := Status{
		State:    state,
		Origin:   inStockFR,
		OriginEN: inStockEN,
		OriginFR: inStockFR,
		Unit:     unit,
		Text:     fr,
		TextEN:   en,
		TextFR:   fr,
		InStock:  true,
	}
	if loc.IsEnglish() {
		st.Origin = inStockEN
		st.Text = en
	}
	return st
}

func waiting(loc locale.SiteLocale) Status {
	st := Status{
		State:          StateWaitingOnStock,
		Origin:         waitingFR,
		OriginEN:       waitingEN,
		OriginFR:       waitingFR,
		Text:           waitingFR,
		TextEN:         waitingEN,
		TextFR:         waitingFR,
		WaitingOnStock: true,
	}
	if loc.IsEnglish() {
		st.Origin = waitingEN
		st.Text = waitingEN
	}
	return st
}

func intPtr(v int) *int {
	return &v
}
