package geo

import (
	"strings"

	"github.com/wadjakorntonsri/linkbio/pkg/core/domain"
	"github.com/wadjakorntonsri/linkbio/pkg/ports"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// UnknownName labels clicks without a resolved country.
const UnknownName = "Unknown"

// Names renders country codes in one display language.
type Names struct {
	namer display.Namer
}

// NewNames builds a namer for locale (a BCP 47 tag such as "en" or "es").
// Unsupported locales fall back to English.
func NewNames(locale string) *Names {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	namer := display.Regions(tag)
	if namer == nil {
		namer = display.Regions(language.English)
	}
	return &Names{namer: namer}
}

func (n *Names) CountryName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, domain.UnknownCountry) || strings.EqualFold(code, "ZZ") {
		return UnknownName
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		return code
	}
	if name := n.namer.Name(region); name != "" {
		return name
	}
	return strings.ToUpper(code)
}

var _ ports.CountryNamer = (*Names)(nil)
