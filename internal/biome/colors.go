package biome

import "github.com/lucasb-eyer/go-colorful"

// ColorField is the per-sample colour of a chunk in texture row order,
// indexed [y*Size+x].
type ColorField struct {
	Size   int
	Colors []colorful.Color
}

// BuildColorField colours each sample of a size×size field, indexed
// [x*size+y], with the definition's regions. Samples no region covers stay
// black.
func BuildColorField(heights []float64, size int, d *Definition) ColorField {
	field := ColorField{Size: size, Colors: make([]colorful.Color, size*size)}
	if d == nil {
		return field
	}
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			if c, ok := d.RegionColor(heights[x*size+y]); ok {
				field.Colors[y*size+x] = c
			}
		}
	}
	return field
}
