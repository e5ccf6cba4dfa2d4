package testutil

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/VoidMesh/terrain/internal/biome"
	"github.com/VoidMesh/terrain/internal/noise"
)

// SmallChunkSize keeps generation fast in tests while staying odd.
const SmallChunkSize = 17

// TestNoiseParams are the noise settings shared by tests.
var TestNoiseParams = noise.Params{
	Seed:        42,
	Scale:       5,
	Octaves:     3,
	Persistence: 0.5,
	Lacunarity:  2,
}

// SingleBiomeTable returns a table with one biome, so no chunk is ever
// blended.
func SingleBiomeTable() biome.Table {
	return biome.Table{
		{
			Name:             "plains",
			Commonness:       1,
			Regions:          testRegions(),
			HeightMultiplier: 10,
			HeightCurve:      biome.LinearCurve(),
		},
	}
}

// TwoBiomeTable returns a flat lowland and a tall highland biome of equal
// commonness.
func TwoBiomeTable() biome.Table {
	return biome.Table{
		{
			Name:             "lowlands",
			Commonness:       1,
			Regions:          testRegions(),
			HeightMultiplier: 0,
			HeightCurve:      biome.LinearCurve(),
		},
		{
			Name:             "highlands",
			Commonness:       1,
			Regions:          testRegions(),
			HeightMultiplier: 50,
			HeightCurve:      biome.LinearCurve(),
		},
	}
}

// FlatField returns a size×size field where every sample is h.
func FlatField(size int, h float64) noise.HeightField {
	f := noise.NewHeightField(size)
	for i := range f.Samples {
		f.Samples[i] = h
	}
	return f
}

func testRegions() []biome.AltitudeRegion {
	return []biome.AltitudeRegion{
		{Name: "water", MaxHeight: 0.3, Color: colorful.Color{R: 0.2, G: 0.4, B: 0.8}},
		{Name: "grass", MaxHeight: 0.7, Color: colorful.Color{R: 0.3, G: 0.6, B: 0.2}},
		{Name: "snow", MaxHeight: 1, Color: colorful.Color{R: 1, G: 1, B: 1}},
	}
}
