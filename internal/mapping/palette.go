package mapping

import "math/rand/v2"

// Palette holds the colors assigned to categories and tags created during an
// import.
var Palette = []string{
	"#EF4444", "#F97316", "#F59E0B", "#EAB308", "#84CC16",
	"#22C55E", "#10B981", "#14B8A6", "#06B6D4", "#0EA5E9",
	"#3B82F6", "#6366F1", "#8B5CF6", "#A855F7", "#D946EF",
	"#EC4899", "#F43F5E", "#64748B",
}

// RandomColor picks a color from Palette.
func RandomColor() string {
	return Palette[rand.IntN(len(Palette))]
}
