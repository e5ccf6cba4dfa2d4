package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/VoidMesh/terrain/internal/biome"
	"github.com/VoidMesh/terrain/internal/noise"
)

// MeshBuffer is renderable terrain geometry. Normals are left to whatever
// displays the mesh.
type MeshBuffer struct {
	Vertices  []mgl32.Vec3
	Triangles []int32
	UVs       []mgl32.Vec2
}

// TriangleCount is len(Triangles)/3.
func (m *MeshBuffer) TriangleCount() int {
	return len(m.Triangles) / 3
}

// RowLength is the number of vertices along one edge for a field of size
// samples walked at stride lod, i.e. ceil(size/lod).
func RowLength(size, lod int) int {
	if lod < 1 {
		lod = 1
	}
	n := size / lod
	if size%lod != 0 {
		n++
	}
	return n
}

// BuildTerrainMesh walks field at stride lod and emits one vertex per
// visited sample and two triangles per quad of visited samples. Heights are
// remapped through a private copy of curve and scaled by heightMultiplier.
func BuildTerrainMesh(field noise.HeightField, lod int, heightMultiplier float64, curve biome.HeightCurve) *MeshBuffer {
	if lod < 1 {
		lod = 1
	}
	curve = curve.Clone()

	size := field.Size
	row := RowLength(size, lod)
	quads := row - 1
	if quads < 0 {
		quads = 0
	}

	m := &MeshBuffer{
		Vertices:  make([]mgl32.Vec3, 0, row*row),
		UVs:       make([]mgl32.Vec2, 0, row*row),
		Triangles: make([]int32, 0, quads*quads*6),
	}

	for x := 0; x < size; x += lod {
		for y := 0; y < size; y += lod {
			v := int32(len(m.Vertices))
			h := curve.Evaluate(field.At(x, y)) * heightMultiplier

			m.Vertices = append(m.Vertices, mgl32.Vec3{float32(x), float32(h), float32(y)})
			m.UVs = append(m.UVs, mgl32.Vec2{float32(x) / float32(size), float32(y) / float32(size)})

			if x < size-lod && y < size-lod {
				r := int32(row)
				m.Triangles = append(m.Triangles,
					v, v+r+1, v+r,
					v, v+1, v+r+1,
				)
			}
		}
	}

	return m
}
