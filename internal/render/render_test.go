package render

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VoidMesh/terrain/internal/biome"
	"github.com/VoidMesh/terrain/internal/chunk"
	"github.com/VoidMesh/terrain/internal/grid"
	"github.com/VoidMesh/terrain/internal/mesh"
	"github.com/VoidMesh/terrain/internal/noise"
	"github.com/VoidMesh/terrain/internal/testutil"
)

func testChunkData(coord grid.ChunkCoord, lod int) *chunk.ChunkData {
	size := testutil.SmallChunkSize
	heights := noise.GenerateHeightField(size, 3, 5, 2, 0.5, 2, coord.Location(size))
	def := testutil.SingleBiomeTable()[0]
	return &chunk.ChunkData{
		Coord:      coord,
		Location:   coord.Location(size),
		LOD:        lod,
		BiomeIndex: 0,
		Heights:    heights,
		Colors:     biome.BuildColorField(heights.Samples, size, def),
		Mesh:       mesh.BuildTerrainMesh(heights, lod, def.HeightMultiplier, def.HeightCurve),
		Seq:        1,
	}
}

func TestHeightTexture(t *testing.T) {
	field := noise.NewHeightField(3)
	field.Set(0, 0, 0)
	field.Set(2, 1, 1)
	field.Set(1, 2, 0.5)

	img := HeightTexture(field)
	require.Equal(t, 3, img.Bounds().Dx())

	assert.Equal(t, uint8(0), img.RGBAAt(0, 0).R)
	assert.Equal(t, uint8(255), img.RGBAAt(2, 1).R, "pixel (x, y) shows sample (x, y)")
	mid := img.RGBAAt(1, 2)
	assert.InDelta(t, 128, int(mid.R), 1)
	assert.Equal(t, mid.R, mid.G)
	assert.Equal(t, uint8(255), mid.A)
}

func TestColorTexture(t *testing.T) {
	red := colorful.Color{R: 1}
	field := biome.ColorField{Size: 2, Colors: make([]colorful.Color, 4)}
	field.Colors[1*2+0] = red // x=0, y=1

	img := ColorTexture(field)
	assert.Equal(t, uint8(255), img.RGBAAt(0, 1).R)
	assert.Equal(t, uint8(0), img.RGBAAt(1, 0).R)
}

func TestBiomeMapTexture(t *testing.T) {
	indices := []int{0, 1, 2, 2} // 2x2, [x*height+y]
	img, err := BiomeMapTexture(indices, 2, 2, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())

	assert.Equal(t, uint8(0), img.RGBAAt(0, 0).R)
	assert.InDelta(t, 128, int(img.RGBAAt(0, 4).R), 1, "x=0 y=1 is biome 1 of 3")
	assert.Equal(t, uint8(255), img.RGBAAt(7, 7).R)

	_, err = BiomeMapTexture(indices, 3, 2, 3, 1)
	assert.Error(t, err)

	single, err := BiomeMapTexture([]int{0}, 1, 1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), single.RGBAAt(0, 0).R)
}

func TestEncodePNG(t *testing.T) {
	img := HeightTexture(noise.NewHeightField(4))
	data, err := EncodePNG(img)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestStore_MaterializeAndRelease(t *testing.T) {
	testutil.SetupTest(t, testutil.DefaultTestConfig())

	hub := NewHub(8)
	events, cancel := hub.Subscribe()
	defer cancel()

	store := NewStore(hub)
	coord := grid.ChunkCoord{X: 1, Z: 2}

	res, err := store.Materialize(testChunkData(coord, 2))
	require.NoError(t, err)
	id, ok := res.(uuid.UUID)
	require.True(t, ok)

	a, err := store.ByCoord(coord)
	require.NoError(t, err)
	assert.Equal(t, id, a.ID)
	assert.Equal(t, 2, a.LOD)
	row := mesh.RowLength(testutil.SmallChunkSize, 2)
	assert.Equal(t, row*row, a.VertexCount())
	assert.Equal(t, 2*(row-1)*(row-1), a.TriangleCount())

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Same(t, a, got)

	ev := <-events
	assert.Equal(t, EventChunkMaterialized, ev.Type)
	assert.Equal(t, coord, ev.Coord)

	store.Release(res)
	assert.Equal(t, 0, store.Len())
	_, err = store.ByCoord(coord)
	assert.ErrorIs(t, err, ErrAssetNotFound)

	ev = <-events
	assert.Equal(t, EventChunkReleased, ev.Type)
	assert.Equal(t, id, ev.AssetID)
}

func TestStore_ReleaseUnknown(t *testing.T) {
	testutil.SetupTest(t, testutil.DefaultTestConfig())

	store := NewStore(nil)
	store.Release("not a handle")
	store.Release(uuid.New())
	assert.Equal(t, 0, store.Len())

	_, err := store.Materialize(nil)
	assert.ErrorIs(t, err, ErrNilChunk)
}

func TestAsset_Encodings(t *testing.T) {
	testutil.SetupTest(t, testutil.DefaultTestConfig())

	store := NewStore(nil)
	data := testChunkData(grid.ChunkCoord{X: -1}, 1)
	res, err := store.Materialize(data)
	require.NoError(t, err)
	a, err := store.Get(res.(uuid.UUID))
	require.NoError(t, err)

	encoded, err := a.EncodedMesh()
	require.NoError(t, err)
	decoded, err := mesh.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, data.Mesh.Vertices, decoded.Vertices)

	again, err := a.EncodedMesh()
	require.NoError(t, err)
	assert.Equal(t, encoded, again)

	for _, f := range []func() ([]byte, error){a.TexturePNG, a.HeightmapPNG} {
		raw, err := f()
		require.NoError(t, err)
		img, err := png.Decode(bytes.NewReader(raw))
		require.NoError(t, err)
		assert.Equal(t, testutil.SmallChunkSize, img.Bounds().Dx())
	}
}

func TestHub(t *testing.T) {
	hub := NewHub(1)
	a, cancelA := hub.Subscribe()
	_, cancelB := hub.Subscribe()
	assert.Equal(t, 2, hub.Subscribers())

	e := Event{Type: EventChunkMaterialized, Time: time.Now()}
	assert.Equal(t, 2, hub.Publish(e))
	assert.Equal(t, 0, hub.Publish(e), "full subscribers miss events instead of blocking")

	cancelB()
	cancelB()
	assert.Equal(t, 1, hub.Subscribers())

	assert.Equal(t, e.Type, (<-a).Type)
	cancelA()
	_, open := <-a
	assert.False(t, open)
}
