package pricing

import (
	"strings"
	"testing"
)

func TestRegionForCountry(t *testing.T) {
	cases := []struct {
		country string
		want    string
	}{
		{"MX", "latam"},
		{"br", "latam"},
		{"US", "usa"},
		{"CA", "usa"},
		{"DE", "europe"},
		{" es ", "europe"},
		{"JP", "latam"}, // unknown countries get the default tier
		{"", "latam"},
	}
	for _, tc := range cases {
		if got := RegionForCountry(tc.country); got.Key != tc.want {
			t.Fatalf("RegionForCountry(%q) = %s, want %s", tc.country, got.Key, tc.want)
		}
	}
}

func TestQuoteCents(t *testing.T) {
	latam := RegionForCountry("MX")
	cents, err := QuoteCents("mini", "plastic_white", latam)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if cents != 2900 {
		t.Fatalf("mini plastic_white latam = %d, want 2900", cents)
	}

	usa := RegionForCountry("US")
	cents, err = QuoteCents("medium", "resin_premium", usa)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	// 5900 * 2.4 * 1.25
	if cents != 17700 {
		t.Fatalf("medium resin_premium usa = %d, want 17700", cents)
	}

	europe := RegionForCountry("DE")
	cents, err = QuoteCents("xl", "metal_steel", europe)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	// 14900 * 5.0 * 1.35
	if cents != 100575 {
		t.Fatalf("xl metal_steel europe = %d, want 100575", cents)
	}
}

func TestQuoteCentsUnknownKeys(t *testing.T) {
	region := RegionForCountry("MX")
	if _, err := QuoteCents("gigantic", "plastic_white", region); err == nil {
		t.Fatal("unknown size accepted")
	}
	if _, err := QuoteCents("mini", "vibranium", region); err == nil {
		t.Fatal("unknown material accepted")
	}
}

func TestRegionalPricingOrdering(t *testing.T) {
	latam, _ := QuoteCents("small", "plastic_color", RegionForCountry("MX"))
	usa, _ := QuoteCents("small", "plastic_color", RegionForCountry("US"))
	europe, _ := QuoteCents("small", "plastic_color", RegionForCountry("FR"))
	if !(latam < usa && usa < europe) {
		t.Fatalf("tier ordering broken: latam=%d usa=%d europe=%d", latam, usa, europe)
	}
}

func TestAllSizesOrder(t *testing.T) {
	sizes := AllSizes()
	if len(sizes) != 5 {
		t.Fatalf("sizes = %d, want 5", len(sizes))
	}
	for i := 1; i < len(sizes); i++ {
		if sizes[i].HeightMM <= sizes[i-1].HeightMM {
			t.Fatalf("sizes not ascending: %s then %s", sizes[i-1].Key, sizes[i].Key)
		}
	}
}

func TestAllRegionsCoverDefault(t *testing.T) {
	found := false
	for _, r := range AllRegions() {
		if r.Key == DefaultRegion {
			found = true
		}
		if r.NameES == "" {
			t.Fatalf("region %s missing Spanish name", r.Key)
		}
	}
	if !found {
		t.Fatalf("default region %s not listed", DefaultRegion)
	}
}

func TestFormatUSD(t *testing.T) {
	got := FormatUSD(4350)
	if !strings.Contains(got, "43.50") {
		t.Fatalf("FormatUSD(4350) = %q", got)
	}
	if !strings.Contains(got, "$") {
		t.Fatalf("FormatUSD(4350) = %q, missing currency symbol", got)
	}
}
