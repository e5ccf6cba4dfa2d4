package mesh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VoidMesh/terrain/internal/biome"
	"github.com/VoidMesh/terrain/internal/noise"
)

func rampField(size int) noise.HeightField {
	f := noise.NewHeightField(size)
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			f.Set(x, y, float64(x+y)/float64(2*(size-1)))
		}
	}
	return f
}

func TestBuildTerrainMesh_Topology(t *testing.T) {
	tests := []struct {
		size int
		lod  int
	}{
		{241, 1}, {241, 2}, {241, 3}, {241, 4}, {241, 5}, {241, 6},
		{10, 4}, {9, 2}, {7, 3}, {5, 1}, {3, 6},
	}

	for _, tt := range tests {
		m := BuildTerrainMesh(rampField(tt.size), tt.lod, 1, biome.LinearCurve())

		row := (tt.size + tt.lod - 1) / tt.lod
		assert.Len(t, m.Vertices, row*row, "size=%d lod=%d vertices", tt.size, tt.lod)
		assert.Len(t, m.UVs, row*row, "size=%d lod=%d uvs", tt.size, tt.lod)
		assert.Equal(t, 2*(row-1)*(row-1), m.TriangleCount(), "size=%d lod=%d triangles", tt.size, tt.lod)

		for _, idx := range m.Triangles {
			require.GreaterOrEqual(t, idx, int32(0))
			require.Less(t, int(idx), len(m.Vertices))
		}
	}
}

func TestBuildTerrainMesh_Vertices(t *testing.T) {
	field := rampField(5)
	m := BuildTerrainMesh(field, 2, 10, biome.LinearCurve())

	// row length 3, vertices laid out x-major
	require.Len(t, m.Vertices, 9)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, m.Vertices[0])
	assert.Equal(t, float32(2), m.Vertices[1].Z())
	assert.Equal(t, float32(2), m.Vertices[3].X())
	assert.InDelta(t, 10.0, float64(m.Vertices[8].Y()), 1e-5, "corner sample is 1.0 scaled by 10")
	assert.Equal(t, mgl32.Vec2{0.8, 0.4}, m.UVs[7])

	// first quad
	assert.Equal(t, []int32{0, 4, 3, 0, 1, 4}, m.Triangles[:6])
}

func TestBuildTerrainMesh_CurveApplied(t *testing.T) {
	field := noise.NewHeightField(3)
	for i := range field.Samples {
		field.Samples[i] = 0.5
	}
	flat := biome.HeightCurve{Keys: []biome.Keyframe{{Time: 0, Value: 0.2}}}

	m := BuildTerrainMesh(field, 1, 5, flat)
	for _, v := range m.Vertices {
		assert.InDelta(t, 1.0, float64(v.Y()), 1e-6)
	}
}

func TestBuildTerrainMesh_ZeroLODIsFullDetail(t *testing.T) {
	m := BuildTerrainMesh(rampField(7), 0, 1, biome.LinearCurve())
	assert.Len(t, m.Vertices, 49)
}

func TestCodec_RoundTrip(t *testing.T) {
	m := BuildTerrainMesh(rampField(17), 2, 3, biome.LinearCurve())

	data, err := Encode(m)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, m.Vertices, got.Vertices)
	assert.Equal(t, m.UVs, got.UVs)
	assert.Equal(t, m.Triangles, got.Triangles)
}

func TestCodec_Errors(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)

	_, err = Encode(&MeshBuffer{Vertices: make([]mgl32.Vec3, 2)})
	assert.Error(t, err)

	_, err = Decode([]byte("not zstd"))
	assert.Error(t, err)

	_, err = Decode(encoder.EncodeAll([]byte("XXXX\x01\x00\x00\x00\x00\x00\x00\x00\x00"), nil))
	assert.ErrorIs(t, err, ErrBadMagic)

	_, err = Decode(encoder.EncodeAll([]byte("TMSH\x09\x00\x00\x00\x00\x00\x00\x00\x00"), nil))
	assert.ErrorIs(t, err, ErrBadVersion)

	_, err = Decode(encoder.EncodeAll([]byte("TMSH\x01\x05\x00\x00\x00\x00\x00\x00\x00"), nil))
	assert.ErrorIs(t, err, ErrTruncated)
}
