package settings

import (
	"github.com/odyssey-erp/catalog/internal/locale"
)

const (
	levelOwn    = "own"
	levelParent = "parent"
	levelRoot   = "root"
)

const (
	fieldProtectedInventory = "protected_inventory"
	fieldMaximumVisible     = "maximum_visible"
	fieldShowValue          = "show_value"
	fieldSpecialOrderString = "special_order_string"
)

// Resolve computes the effective settings of a category from its three-level chain.
// The root level is terminal: its inherit flags are never consulted.
func Resolve(chain Chain, locales locale.Set) (Effective, error) {
	if chain.Own == nil {
		return Effective{}, &ConfigurationError{Err: ErrNotConfigured}
	}

	var eff Effective

	src, err := pick(chain, fieldProtectedInventory, func(s *BranchSetting) bool { return s.InheritProtectedInventory })
	if err != nil {
		return Effective{}, err
	}
	eff.ProtectedInventory = src.ProtectedInventory

	src, err = pick(chain, fieldMaximumVisible, func(s *BranchSetting) bool { return s.InheritMaximumVisible })
	if err != nil {
		return Effective{}, err
	}
	eff.MaximumVisible = src.MaximumVisible

	src, err = pick(chain, fieldShowValue, func(s *BranchSetting) bool { return s.InheritShowValue })
	if err != nil {
		return Effective{}, err
	}
	eff.ShowValue = src.ShowValue

	src, err = pick(chain, fieldSpecialOrderString, func(s *BranchSetting) bool { return s.InheritSpecialOrderString })
	if err != nil {
		return Effective{}, err
	}
	if len(src.Translations) == 0 {
		return Effective{}, &ConfigurationError{Field: fieldSpecialOrderString, Level: levelOf(chain, src), Err: ErrMissingTranslation}
	}
	eff.SpecialOrderString = translationFor(src, locales.Requested.ID)
	eff.SpecialOrderStringEN = translationFor(src, locales.English.ID)
	eff.SpecialOrderStringFR = translationFor(src, locales.French.ID)

	return eff, nil
}

// pick walks own → parent → root and returns the first level that does not inherit.
func pick(chain Chain, field string, inherits func(*BranchSetting) bool) (*BranchSetting, error) {
	if !inherits(chain.Own) {
		return chain.Own, nil
	}
	if chain.Parent == nil {
		return nil, &ConfigurationError{Field: field, Level: levelParent, Err: ErrMissingLevel}
	}
	if !inherits(chain.Parent) {
		return chain.Parent, nil
	}
	if chain.Root == nil {
		return nil, &ConfigurationError{Field: field, Level: levelRoot, Err: ErrMissingLevel}
	}
	return chain.Root, nil
}

// translationFor returns the translation for localeID, else the first one present.
func translationFor(s *BranchSetting, localeID int64) string {
	for _, t := range s.Translations {
		if t.LocaleID == localeID {
			return t.SpecialOrderString
		}
	}
	return s.Translations[0].SpecialOrderString
}

func levelOf(chain Chain, s *BranchSetting) string {
	switch s {
	case chain.Own:
		return levelOwn
	case chain.Parent:
		return levelParent
	default:
		return levelRoot
	}
}
