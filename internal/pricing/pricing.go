package pricing

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"printforge/internal/domain"
)

// Region is a shipping region with its pricing tier.
type Region struct {
	Key             string
	Name            string
	NameES          string
	Countries       []string // ISO 3166-1 alpha-2
	PriceMultiplier float64
}

// Size is a printable size option.
type Size struct {
	Key             string
	Name            string
	NameES          string
	HeightMM        int
	PriceMultiplier float64
}

const DefaultRegion = "latam"

var regions = map[string]Region{
	"latam": {
		Key:    "latam",
		Name:   "Latin America",
		NameES: "Latinoamérica",
		Countries: []string{
			"MX", "AR", "BR", "CL", "CO", "PE", "EC", "VE", "BO", "PY",
			"UY", "CR", "PA", "GT", "HN", "SV", "NI", "DO", "PR", "CU",
		},
		PriceMultiplier: 1.0,
	},
	"usa": {
		Key:             "usa",
		Name:            "USA & Canada",
		NameES:          "EE.UU. y Canadá",
		Countries:       []string{"US", "CA"},
		PriceMultiplier: 1.25,
	},
	"europe": {
		Key:    "europe",
		Name:   "Europe",
		NameES: "Europa",
		Countries: []string{
			"ES", "FR", "DE", "IT", "PT", "GB", "NL", "BE", "AT", "CH",
			"PL", "CZ", "SE", "NO", "DK", "FI", "IE", "GR",
		},
		PriceMultiplier: 1.35,
	},
}

var sizes = map[string]Size{
	"mini":   {Key: "mini", Name: "Mini", NameES: "Mini", HeightMM: 50, PriceMultiplier: 1.0},
	"small":  {Key: "small", Name: "Small", NameES: "Pequeño", HeightMM: 75, PriceMultiplier: 1.5},
	"medium": {Key: "medium", Name: "Medium", NameES: "Mediano", HeightMM: 100, PriceMultiplier: 2.4},
	"large":  {Key: "large", Name: "Large", NameES: "Grande", HeightMM: 150, PriceMultiplier: 3.6},
	"xl":     {Key: "xl", Name: "XL", NameES: "Extra Grande", HeightMM: 200, PriceMultiplier: 5.0},
}

// RegionForCountry maps an ISO country code to its pricing region. Unknown
// countries price as the default region.
func RegionForCountry(countryCode string) Region {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	for _, region := range regions {
		for _, c := range region.Countries {
			if c == countryCode {
				return region
			}
		}
	}
	return regions[DefaultRegion]
}

// GetSize returns the size for key, or false when unknown.
func GetSize(key string) (Size, bool) {
	s, ok := sizes[key]
	return s, ok
}

// AllSizes returns the catalog smallest-first.
func AllSizes() []Size {
	return []Size{sizes["mini"], sizes["small"], sizes["medium"], sizes["large"], sizes["xl"]}
}

// AllRegions returns the pricing regions.
func AllRegions() []Region {
	return []Region{regions["latam"], regions["usa"], regions["europe"]}
}

// QuoteCents prices a (size, material) pair for a region.
func QuoteCents(sizeKey, materialKey string, region Region) (int, error) {
	size, ok := sizes[sizeKey]
	if !ok {
		return 0, fmt.Errorf("unknown size %q", sizeKey)
	}
	material, ok := domain.GetMaterial(materialKey)
	if !ok {
		return 0, fmt.Errorf("unknown material %q", materialKey)
	}
	cents := float64(material.BasePriceCents) * size.PriceMultiplier * region.PriceMultiplier
	return int(math.Round(cents)), nil
}

var usdPrinter = message.NewPrinter(language.English)

// FormatUSD renders cents as a display price, e.g. "$43.50".
func FormatUSD(cents int) string {
	return usdPrinter.Sprintf("%v", currency.NarrowSymbol(currency.USD.Amount(float64(cents)/100)))
}
