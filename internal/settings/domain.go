package settings

import (
	"errors"
	"fmt"
)

// Translation holds the localized special-order text of a branch setting.
type Translation struct {
	LocaleID           int64  `json:"site_locale_id"`
	SpecialOrderString string `json:"special_order_string"`
}

// BranchSetting is the display configuration of one category at one branch.
// Each inheritable field carries an Inherit flag telling the resolver to look one level up.
type BranchSetting struct {
	ID                        int64         `json:"id"`
	CategoryID                int64         `json:"category_id"`
	BranchID                  int64         `json:"branch_id"`
	ProtectedInventory        int           `json:"protected_inventory"`
	InheritProtectedInventory bool          `json:"is_inherit_protected_inventory"`
	MaximumVisible            int           `json:"maximum_visible"`
	InheritMaximumVisible     bool          `json:"is_inherit_maximum_visible"`
	ShowValue                 bool          `json:"show_value"`
	InheritShowValue          bool          `json:"is_inherit_show_value"`
	InheritSpecialOrderString bool          `json:"is_inherit_special_order_string"`
	Enabled                   bool          `json:"is_enabled"`
	Translations              []Translation `json:"translations"`
}

// Chain is the ordered snapshot walked by the resolver: the category's own setting,
// its immediate parent's, and the root category's. Nil means no enabled setting exists.
type Chain struct {
	Own    *BranchSetting `json:"own"`
	Parent *BranchSetting `json:"parent"`
	Root   *BranchSetting `json:"root"`
}

// Lookup identifies the chain to load for a request.
type Lookup struct {
	CategoryID int64
	ParentID   int64
	RootCode   string
	BranchID   int64
}

// Effective is the resolved configuration consumed by the status classifier.
type Effective struct {
	ProtectedInventory   int    `json:"protected_inventory"`
	MaximumVisible       int    `json:"maximum_visible"`
	ShowValue            bool   `json:"show_value"`
	SpecialOrderString   string `json:"special_order_string"`
	SpecialOrderStringEN string `json:"special_order_string_en"`
	SpecialOrderStringFR string `json:"special_order_string_fr"`
}

var (
	// ErrNotConfigured indicates the category has no enabled setting for the branch.
	ErrNotConfigured = errors.New("settings: branch setting empty")
	// ErrMissingLevel indicates an inherited field points at a level that has no setting.
	ErrMissingLevel = errors.New("settings: inherited level missing")
	// ErrMissingTranslation indicates the selected setting has no translations.
	ErrMissingTranslation = errors.New("settings: special order string has no translations")
)

// ConfigurationError reports data that makes the request unservable.
type ConfigurationError struct {
	Field string
	Level string
	Err   error
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Field != "" && e.Level != "":
		return fmt.Sprintf("%v (field=%s level=%s)", e.Err, e.Field, e.Level)
	case e.Field != "":
		return fmt.Sprintf("%v (field=%s)", e.Err, e.Field)
	default:
		return e.Err.Error()
	}
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err stems from missing or broken settings data.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
