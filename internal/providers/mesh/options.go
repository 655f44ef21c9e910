package mesh

import "printforge/internal/domain"

// Options are the generation parameters sent to the mesh backend, derived
// from the user's (mesh style, material) pair rather than passed through raw.
type Options struct {
	ModelType       string // "standard" or "lowpoly"
	AIModel         string
	Topology        string // always "triangle" for printing
	TargetPolycount int
	EnablePBR       bool
	ShouldTexture   bool
	SymmetryMode    string
}

// StylePreset is a user-facing mesh style mapped onto backend parameters.
type StylePreset struct {
	Key                  string
	Name                 string
	NameES               string
	Description          string
	DescriptionES        string
	ModelType            string
	RecommendedPolycount int
}

var stylePresets = map[string]StylePreset{
	"detailed": {
		Key:                  "detailed",
		Name:                 "Detailed",
		NameES:               "Detallado",
		Description:          "High detail, realistic look. Best for organic shapes.",
		DescriptionES:        "Alto detalle, aspecto realista. Mejor para formas orgánicas.",
		ModelType:            "standard",
		RecommendedPolycount: 100000,
	},
	"stylized": {
		Key:                  "stylized",
		Name:                 "Stylized",
		NameES:               "Estilizado",
		Description:          "Clean low-poly look. Modern and artistic.",
		DescriptionES:        "Aspecto low-poly limpio. Moderno y artístico.",
		ModelType:            "lowpoly",
		RecommendedPolycount: 5000,
	},
}

// StylePresets returns the selectable presets, detailed first.
func StylePresets() []StylePreset {
	return []StylePreset{stylePresets["detailed"], stylePresets["stylized"]}
}

// OptionsFor derives backend parameters from a user selection. Unknown style
// keys fall back to "detailed". Full-color materials get PBR textures for
// better color reproduction; single-color substances do not need them.
func OptionsFor(styleKey, materialKey string) Options {
	preset, ok := stylePresets[styleKey]
	if !ok {
		preset = stylePresets["detailed"]
	}
	enablePBR := false
	if material, ok := domain.GetMaterial(materialKey); ok {
		enablePBR = material.SupportsFullColor
	}
	return Options{
		ModelType:       preset.ModelType,
		AIModel:         "latest",
		Topology:        "triangle",
		TargetPolycount: preset.RecommendedPolycount,
		EnablePBR:       enablePBR,
		ShouldTexture:   true,
		SymmetryMode:    "auto",
	}
}
