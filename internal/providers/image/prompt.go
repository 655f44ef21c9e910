package image

import (
	"strings"

	"printforge/internal/domain"
)

// styleTemplates hold prompt fragments that produce images which convert
// cleanly to 3D: isolated subject, neutral background, clear silhouette.
var styleTemplates = map[domain.ImageStyle]string{
	domain.ImageStyleFigurine: "3D printable figurine of %SUBJECT%, " +
		"front-facing view, T-pose if character, " +
		"clean white background, studio lighting, " +
		"high detail, centered composition, " +
		"solid base for stability",
	domain.ImageStyleObject: "Product photograph of %SUBJECT%, " +
		"white background, centered, " +
		"isometric view, studio lighting, " +
		"sharp details, no shadows, " +
		"isolated object",
	domain.ImageStyleCharacter: "3D character design of %SUBJECT%, " +
		"full body, A-pose or T-pose, " +
		"front view, white background, " +
		"game-ready style, clear silhouette, " +
		"suitable for 3D modeling",
	domain.ImageStyleSculpture: "Classical sculpture of %SUBJECT%, " +
		"marble or bronze style, " +
		"dramatic lighting, museum quality, " +
		"detailed surface texture, " +
		"isolated on dark background",
	domain.ImageStyleMiniature: "Tabletop miniature of %SUBJECT%, " +
		"28mm scale style, high detail, " +
		"heroic proportions, dynamic pose, " +
		"clean base, paintable surface detail",
}

// BuildPrompt expands the subject into the style's template. An unknown style
// falls back to the figurine template.
func BuildPrompt(subject string, style domain.ImageStyle) string {
	template, ok := styleTemplates[style]
	if !ok {
		template = styleTemplates[domain.ImageStyleFigurine]
	}
	return strings.ReplaceAll(template, "%SUBJECT%", strings.TrimSpace(subject))
}
