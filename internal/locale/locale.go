// Package locale resolves the two storefront locales and the text helpers bound to them.
package locale

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	// CodeEnglish is the English (Canada) site locale code.
	CodeEnglish = "en_CA"
	// CodeFrench is the French (Canada) site locale code.
	CodeFrench = "fr_CA"
	// DefaultCode is used when the request does not name a locale.
	DefaultCode = CodeEnglish
)

var (
	supportedTags = []language.Tag{
		language.MustParse("en-CA"),
		language.MustParse("fr-CA"),
	}
	supportedCodes = []string{CodeEnglish, CodeFrench}
	matcher        = language.NewMatcher(supportedTags)
)

// SiteLocale is a row of site_locales.
type SiteLocale struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

// IsEnglish reports whether display strings should use the English variant.
func (l SiteLocale) IsEnglish() bool {
	return l.Code == CodeEnglish
}

// Tag returns the language tag of the locale.
func (l SiteLocale) Tag() language.Tag {
	if l.Code == CodeFrench {
		return supportedTags[1]
	}
	return supportedTags[0]
}

// Set carries the locale requested by the caller plus both pinned locales.
type Set struct {
	Requested SiteLocale
	English   SiteLocale
	French    SiteLocale
}

// Normalize maps free-form input (fr, fr-CA, fr_CA, en-US...) onto a supported code.
// Anything that does not match a supported language falls back to DefaultCode.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultCode
	}
	for _, code := range supportedCodes {
		if strings.EqualFold(raw, code) {
			return code
		}
	}
	tag, err := language.Parse(strings.ReplaceAll(raw, "_", "-"))
	if err != nil {
		return DefaultCode
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return DefaultCode
	}
	return supportedCodes[idx]
}

// Supported returns the locale codes loaded for every request.
func Supported() []string {
	out := make([]string, len(supportedCodes))
	copy(out, supportedCodes)
	return out
}

// NewSet builds a Set from the locale rows loaded for the request.
func NewSet(requested string, rows []SiteLocale) (Set, bool) {
	set := Set{}
	found := false
	for _, row := range rows {
		switch row.Code {
		case CodeEnglish:
			set.English = row
		case CodeFrench:
			set.French = row
		}
		if row.Code == requested {
			set.Requested = row
			found = true
		}
	}
	return set, found
}

// Collator returns a collator ordering names the way the locale's readers expect.
func Collator(l SiteLocale) *collate.Collator {
	return collate.New(l.Tag(), collate.IgnoreCase)
}
