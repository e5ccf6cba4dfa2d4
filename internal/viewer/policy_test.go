package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VoidMesh/terrain/internal/biome"
	"github.com/VoidMesh/terrain/internal/chunk"
	"github.com/VoidMesh/terrain/internal/grid"
	"github.com/VoidMesh/terrain/internal/testutil"
)

type call struct {
	coord grid.ChunkCoord
	lod   int
}

type fakeRequester struct {
	calls  []call
	failOn map[grid.ChunkCoord]error
}

func (f *fakeRequester) RequestChunk(coord grid.ChunkCoord, lod int) error {
	f.calls = append(f.calls, call{coord, lod})
	return f.failOn[coord]
}

func (f *fakeRequester) lodFor(c grid.ChunkCoord) (int, bool) {
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].coord == c {
			return f.calls[i].lod, true
		}
	}
	return 0, false
}

func testPolicy() Policy {
	return Policy{
		MaxViewDistance: 5,
		UpdateThreshold: 100,
		LODCurve:        biome.HeightCurve{},
		ChunkSize:       240,
	}
}

func TestPolicy_CenterChunk(t *testing.T) {
	p := testPolicy()

	tests := []struct {
		name string
		pos  Position
		want grid.ChunkCoord
	}{
		{name: "origin", pos: Position{0, 0}, want: grid.ChunkCoord{X: 0, Z: 0}},
		{name: "inside first chunk", pos: Position{100, 239}, want: grid.ChunkCoord{X: 0, Z: 0}},
		{name: "positive", pos: Position{500, 250}, want: grid.ChunkCoord{X: 2, Z: 1}},
		{name: "just negative", pos: Position{-1, -0.5}, want: grid.ChunkCoord{X: -1, Z: -1}},
		{name: "negative", pos: Position{-300, 10}, want: grid.ChunkCoord{X: -2, Z: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.CenterChunk(tt.pos))
		})
	}
}

func TestPolicy_EvaluateLOD(t *testing.T) {
	p := testPolicy()
	origin := Position{0, 0}

	tests := []struct {
		coord grid.ChunkCoord
		want  int
	}{
		{grid.ChunkCoord{X: 0, Z: 0}, 1},        // 0
		{grid.ChunkCoord{X: 2, Z: 0}, 1},        // 0.16 -> 0.96
		{grid.ChunkCoord{X: 3, Z: 0}, 3},        // 0.36 -> 2.16
		{grid.ChunkCoord{X: 0, Z: -4}, 4},       // 0.64 -> 3.84
		{grid.ChunkCoord{X: 3, Z: 3}, 5},        // 0.72 -> 4.32
		{grid.ChunkCoord{X: 5, Z: 0}, chunk.LODUnload},
		{grid.ChunkCoord{X: -4, Z: 4}, chunk.LODUnload},
		{grid.ChunkCoord{X: 50, Z: 50}, chunk.LODUnload},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, p.EvaluateLOD(origin, tt.coord), "coord %s", tt.coord)
	}
}

func TestPolicy_EvaluateLODUsesCurve(t *testing.T) {
	p := testPolicy()
	p.LODCurve = biome.HeightCurve{Keys: []biome.Keyframe{{Time: 0, Value: 0.5}}}
	assert.Equal(t, 4, p.EvaluateLOD(Position{}, grid.ChunkCoord{}), "constant curve 0.5 -> int(3)+1")

	p.LODCurve = biome.HeightCurve{Keys: []biome.Keyframe{{Time: 0, Value: -1}}}
	assert.Equal(t, chunk.FinestLOD, p.EvaluateLOD(Position{}, grid.ChunkCoord{}), "negative curve output is clamped")

	p.MaxViewDistance = 0
	assert.Equal(t, chunk.LODUnload, p.EvaluateLOD(Position{}, grid.ChunkCoord{}))
}

func TestPolicy_VisibleChunks(t *testing.T) {
	p := testPolicy()
	p.MaxViewDistance = 2

	got := p.VisibleChunks(Position{-10, 10})
	require.Len(t, got, 25)
	assert.Equal(t, grid.ChunkCoord{X: -3, Z: -2}, got[0].Coord)
	assert.Equal(t, grid.ChunkCoord{X: 1, Z: 2}, got[24].Coord)
}

func TestViewer_UpdateThreshold(t *testing.T) {
	testutil.SetupTest(t, testutil.DefaultTestConfig())

	req := &fakeRequester{}
	v := New(testPolicy(), req)

	_, ok := v.Position()
	assert.False(t, ok)

	mapped, err := v.Update(Position{0, 0})
	require.NoError(t, err)
	assert.True(t, mapped, "first update always maps")
	assert.Len(t, req.calls, 121)

	mapped, err = v.Update(Position{60, 80})
	require.NoError(t, err)
	assert.False(t, mapped, "moving exactly the threshold does not remap")
	assert.Len(t, req.calls, 121)

	mapped, err = v.Update(Position{60, 81})
	require.NoError(t, err)
	assert.True(t, mapped)

	pos, ok := v.Position()
	assert.True(t, ok)
	assert.Equal(t, Position{60, 81}, pos)
}

func TestViewer_UnloadsChunksThatLeaveView(t *testing.T) {
	testutil.SetupTest(t, testutil.DefaultTestConfig())

	p := testPolicy()
	p.MaxViewDistance = 1
	req := &fakeRequester{}
	v := New(p, req)

	_, err := v.Update(Position{0, 0})
	require.NoError(t, err)
	req.calls = nil

	// three chunks to the right: nothing of the old square stays visible
	require.NoError(t, v.Refresh(Position{3 * 240, 0}))

	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			lod, ok := req.lodFor(grid.ChunkCoord{X: dx, Z: dz})
			require.True(t, ok)
			assert.Equal(t, chunk.LODUnload, lod)
		}
	}
}

func TestViewer_RejectedMappingIsRetried(t *testing.T) {
	testutil.SetupTest(t, testutil.DefaultTestConfig())

	busy := grid.ChunkCoord{X: 1, Z: 1}
	req := &fakeRequester{failOn: map[grid.ChunkCoord]error{busy: chunk.ErrQueueFull}}
	v := New(testPolicy(), req)

	mapped, err := v.Update(Position{0, 0})
	assert.True(t, mapped)
	assert.ErrorIs(t, err, chunk.ErrQueueFull)
	_, ok := v.Position()
	assert.False(t, ok, "a rejected mapping is not committed")

	delete(req.failOn, busy)
	mapped, err = v.Update(Position{0, 0})
	require.NoError(t, err)
	assert.True(t, mapped)
}

func TestViewer_RetryDoesNotRepeatUnloads(t *testing.T) {
	testutil.SetupTest(t, testutil.DefaultTestConfig())

	p := testPolicy()
	p.MaxViewDistance = 1
	req := &fakeRequester{failOn: map[grid.ChunkCoord]error{}}
	v := New(p, req)

	_, err := v.Update(Position{0, 0})
	require.NoError(t, err)

	busy := grid.ChunkCoord{X: 3, Z: 0}
	req.failOn[busy] = chunk.ErrQueueFull
	req.calls = nil

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, v.Refresh(Position{3 * 240, 0}), chunk.ErrQueueFull)
	}

	unloads := make(map[grid.ChunkCoord]int)
	for _, c := range req.calls {
		if c.lod == chunk.LODUnload {
			unloads[c.coord]++
		}
	}
	assert.Len(t, unloads, 9, "the whole old square is unloaded")
	for c, n := range unloads {
		assert.Equal(t, 1, n, "unload of %s repeated", c)
	}

	delete(req.failOn, busy)
	require.NoError(t, v.Refresh(Position{3 * 240, 0}))
	_, ok := v.Position()
	assert.True(t, ok)
}

func TestViewer_CurveIsCloned(t *testing.T) {
	p := testPolicy()
	p.LODCurve = biome.LinearCurve()
	v := New(p, &fakeRequester{})

	p.LODCurve.Keys[1].Value = 0
	assert.Equal(t, 1.0, v.Policy().LODCurve.Keys[1].Value)
}
