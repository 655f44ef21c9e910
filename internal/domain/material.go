package domain

import "sort"

// Material describes a printable substance. SupportsFullColor drives whether
// mesh generation requests PBR textures for it.
type Material struct {
	Key               string
	Name              string
	NameES            string
	Description       string
	DescriptionES     string
	BasePriceCents    int
	PriceMultiplier   float64
	SupportsFullColor bool
	MinDetailMM       float64
	Finish            string
}

var materials = map[string]Material{
	"plastic_white": {
		Key:             "plastic_white",
		Name:            "White Plastic",
		NameES:          "Plástico Blanco",
		Description:     "Affordable, matte finish. Great for prototypes.",
		DescriptionES:   "Económico, acabado mate. Ideal para prototipos.",
		BasePriceCents:  2900,
		PriceMultiplier: 1.0,
		MinDetailMM:     0.8,
		Finish:          "Matte",
	},
	"plastic_color": {
		Key:             "plastic_color",
		Name:            "Colored Plastic",
		NameES:          "Plástico Color",
		Description:     "Durable nylon in your favorite color.",
		DescriptionES:   "Nylon duradero en tu color favorito.",
		BasePriceCents:  3900,
		PriceMultiplier: 1.2,
		MinDetailMM:     0.8,
		Finish:          "Matte",
	},
	"resin_premium": {
		Key:             "resin_premium",
		Name:            "Premium Resin",
		NameES:          "Resina Premium",
		Description:     "High detail, smooth surface. Museum quality.",
		DescriptionES:   "Alto detalle, superficie lisa. Calidad museo.",
		BasePriceCents:  5900,
		PriceMultiplier: 1.5,
		MinDetailMM:     0.3,
		Finish:          "Smooth",
	},
	"full_color": {
		Key:               "full_color",
		Name:              "Full Color",
		NameES:            "Full Color",
		Description:       "Prints the exact colors from your design. Vibrant and unique.",
		DescriptionES:     "Imprime los colores exactos de tu diseño. Vibrante y único.",
		BasePriceCents:    7900,
		PriceMultiplier:   2.0,
		SupportsFullColor: true,
		MinDetailMM:       0.5,
		Finish:            "Matte with color",
	},
	"metal_steel": {
		Key:             "metal_steel",
		Name:            "Stainless Steel",
		NameES:          "Acero Inoxidable",
		Description:     "Real metal. Heavy, durable, impressive.",
		DescriptionES:   "Metal real. Pesado, duradero, impresionante.",
		BasePriceCents:  14900,
		PriceMultiplier: 3.0,
		MinDetailMM:     1.0,
		Finish:          "Polished metal",
	},
}

// GetMaterial returns the material for key, or false when unknown.
func GetMaterial(key string) (Material, bool) {
	m, ok := materials[key]
	return m, ok
}

// AllMaterials returns the catalog ordered by base price.
func AllMaterials() []Material {
	out := make([]Material, 0, len(materials))
	for _, m := range materials {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BasePriceCents < out[j].BasePriceCents })
	return out
}
