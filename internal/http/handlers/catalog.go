package handlers

import (
	"net/http"

	"printforge/internal/domain"
	"printforge/internal/middleware"
	"printforge/internal/pricing"
	"printforge/internal/providers/mesh"
)

// Materials lists the printable materials with locale-aware names.
func (a *App) Materials(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	items := make([]map[string]any, 0)
	for _, m := range domain.AllMaterials() {
		name, description := m.Name, m.Description
		if locale == "es" {
			name, description = m.NameES, m.DescriptionES
		}
		items = append(items, map[string]any{
			"key":                 m.Key,
			"name":                name,
			"description":         description,
			"base_price":          pricing.FormatUSD(m.BasePriceCents),
			"supports_full_color": m.SupportsFullColor,
			"min_detail_mm":       m.MinDetailMM,
			"finish":              m.Finish,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"materials": items})
}

// MeshStyles lists the selectable mesh style presets.
func (a *App) MeshStyles(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	items := make([]map[string]any, 0)
	for _, preset := range mesh.StylePresets() {
		name, description := preset.Name, preset.Description
		if locale == "es" {
			name, description = preset.NameES, preset.DescriptionES
		}
		items = append(items, map[string]any{
			"key":         preset.Key,
			"name":        name,
			"description": description,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"mesh_styles": items})
}

// PublicConfig returns the caller's pricing region and the price matrix for
// it, with sizes and styles for the checkout UI.
func (a *App) PublicConfig(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	region := pricing.RegionForCountry(middleware.CountryFromContext(r.Context()))

	sizes := make([]map[string]any, 0)
	for _, size := range pricing.AllSizes() {
		name := size.Name
		if locale == "es" {
			name = size.NameES
		}
		prices := make(map[string]string)
		for _, m := range domain.AllMaterials() {
			cents, err := pricing.QuoteCents(size.Key, m.Key, region)
			if err != nil {
				continue
			}
			prices[m.Key] = pricing.FormatUSD(cents)
		}
		sizes = append(sizes, map[string]any{
			"key":       size.Key,
			"name":      name,
			"height_mm": size.HeightMM,
			"prices":    prices,
		})
	}

	regionName := region.Name
	if locale == "es" {
		regionName = region.NameES
	}
	a.json(w, http.StatusOK, map[string]any{
		"locale": locale,
		"region": map[string]any{"key": region.Key, "name": regionName},
		"sizes":  sizes,
		"styles": []string{
			string(domain.ImageStyleFigurine),
			string(domain.ImageStyleSculpture),
			string(domain.ImageStyleCharacter),
			string(domain.ImageStyleObject),
			string(domain.ImageStyleMiniature),
		},
	})
}
