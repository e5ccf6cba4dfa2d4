// Package blend softens height seams between chunks of different biomes.
package blend

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/VoidMesh/terrain/internal/grid"
)

// Neighborhood answers questions about chunks next to the one being blended.
// Implementations must resample the neighbour's biome rather than trust a
// cached record, so blending is correct before the neighbour exists.
type Neighborhood interface {
	BiomeAt(coord grid.ChunkCoord) int
	// FinestVertices returns the finest-LOD vertex buffer of coord built
	// with the given biome, indexed [x*size+y].
	FinestVertices(coord grid.ChunkCoord, biomeIndex int) []mgl32.Vec3
}

// Weight is the pull toward the neighbour for band row i: 0.5 at the seam,
// falling linearly to 0 at the inner edge of the band.
func Weight(i, band int) float32 {
	if band <= 1 {
		return 0.5
	}
	return 0.5 - float32(i)/float32((band-1)*2)
}

// AdjustBiomeBorders moves the heights of a finest-LOD vertex buffer toward
// each differing neighbour across a band of rows along the shared edge.
// vertices must hold size*size entries indexed [x*size+y]; anything else is
// left untouched. It returns the directions that were blended.
func AdjustBiomeBorders(coord grid.ChunkCoord, biomeIndex int, vertices []mgl32.Vec3, size, band int, n Neighborhood) []grid.Direction {
	if size <= 0 || len(vertices) != size*size || n == nil {
		return nil
	}
	if band < 1 {
		return nil
	}
	if band > size {
		band = size
	}

	var blended []grid.Direction
	for _, dir := range grid.Directions {
		neighbor := coord.Neighbor(dir)
		neighborBiome := n.BiomeAt(neighbor)
		if neighborBiome == biomeIndex {
			continue
		}

		other := n.FinestVertices(neighbor, neighborBiome)
		if len(other) != size*size {
			continue
		}

		blendEdge(vertices, other, size, band, dir)
		blended = append(blended, dir)
	}
	return blended
}

// blendEdge applies the correction for one direction. current indexes the
// vertex being moved, across the neighbour vertex it moves toward.
func blendEdge(vertices, other []mgl32.Vec3, size, band int, dir grid.Direction) {
	last := size - 1
	for i := 0; i < band; i++ {
		t := Weight(i, band)
		for j := 0; j < size; j++ {
			var current, across int
			switch dir {
			case grid.Up:
				current = j*size + last - i
				across = j*size + i
			case grid.Right:
				current = (last-i)*size + j
				across = i*size + j
			case grid.Down:
				current = j*size + i
				across = j*size + last - i
			case grid.Left:
				current = i*size + j
				across = (last-i)*size + j
			}

			a := vertices[current][1]
			b := other[across][1]
			vertices[current][1] += lerp(a, b, t) - a
		}
	}
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
