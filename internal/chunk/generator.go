package chunk

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/singleflight"

	"github.com/VoidMesh/terrain/internal/biome"
	"github.com/VoidMesh/terrain/internal/blend"
	"github.com/VoidMesh/terrain/internal/grid"
	"github.com/VoidMesh/terrain/internal/logging"
	"github.com/VoidMesh/terrain/internal/mesh"
	"github.com/VoidMesh/terrain/internal/noise"
)

// Generator builds ChunkData. It is safe for concurrent use by the worker
// pool; the biome table it reads is an immutable snapshot swapped in whole.
type Generator struct {
	sampler   *noise.Sampler
	size      int
	band      int
	memoLimit int

	state atomic.Pointer[generationState]
}

// generationState is everything derived from one biome table. Replacing the
// table replaces the neighbour memo with it.
type generationState struct {
	table   biome.Table
	weights []float64
	usable  bool
	memo    *vertexMemo
	flight  singleflight.Group
}

// NewGenerator creates a generator for chunks of size×size samples. band is
// the border blend width in rows and memoLimit bounds the number of
// neighbour vertex buffers kept for blending; 0 disables the memo.
func NewGenerator(sampler *noise.Sampler, size, band, memoLimit int) *Generator {
	if band < 1 {
		band = 1
	}
	if memoLimit < 0 {
		memoLimit = 0
	}
	return &Generator{
		sampler:   sampler,
		size:      size,
		band:      band,
		memoLimit: memoLimit,
	}
}

// Size is the sample count along one chunk edge.
func (g *Generator) Size() int {
	return g.size
}

// SetTable installs a snapshot of table. A misconfigured table is accepted
// and makes every later generation a no-op until a usable one is set.
func (g *Generator) SetTable(table biome.Table) {
	st := &generationState{
		usable: table.Usable(),
		memo:   newVertexMemo(g.memoLimit),
	}
	if st.usable {
		st.table = table.Snapshot()
		st.weights = st.table.Weights()
	}
	g.state.Store(st)
}

// Table returns the installed snapshot, or nil when none is usable.
func (g *Generator) Table() biome.Table {
	st := g.state.Load()
	if st == nil || !st.usable {
		return nil
	}
	return st.table
}

// Usable reports whether a usable biome table is installed.
func (g *Generator) Usable() bool {
	st := g.state.Load()
	return st != nil && st.usable
}

// Generate produces the data for coord at lod. Border blending runs only at
// the finest LOD.
func (g *Generator) Generate(coord grid.ChunkCoord, lod int, seq uint64) (*ChunkData, error) {
	st := g.state.Load()
	if st == nil || !st.usable {
		return nil, fmt.Errorf("generate %s: %w", coord, biome.ErrInvalidTable)
	}

	logger := logging.WithChunkCoords(coord.X, coord.Z)
	start := time.Now()

	location := coord.Location(g.size)
	heights := g.sampler.HeightField(g.size, location)
	biomeIndex := g.sampler.BiomeIndex(coord, st.weights)
	def := st.table[biomeIndex]

	buf := mesh.BuildTerrainMesh(heights, lod, def.HeightMultiplier, def.HeightCurve)

	var blended []grid.Direction
	if lod == FinestLOD {
		blended = blend.AdjustBiomeBorders(coord, biomeIndex, buf.Vertices, g.size, g.band, &neighborhood{g: g, st: st})
	}

	data := &ChunkData{
		Coord:       coord,
		Location:    location,
		LOD:         lod,
		BiomeIndex:  biomeIndex,
		Heights:     heights,
		Colors:      biome.BuildColorField(heights.Samples, g.size, def),
		Mesh:        buf,
		Blended:     blended,
		Seq:         seq,
		GeneratedIn: time.Since(start),
	}

	logger.Debug("Chunk generated",
		"lod", lod,
		"biome", def.Name,
		"vertices", len(buf.Vertices),
		"blended", len(blended),
		"duration", data.GeneratedIn)

	return data, nil
}

// BiomeAt resamples the biome of coord from noise.
func (g *Generator) BiomeAt(coord grid.ChunkCoord) int {
	st := g.state.Load()
	if st == nil || !st.usable {
		return 0
	}
	return g.sampler.BiomeIndex(coord, st.weights)
}

// neighborhood binds a blend to the state it started with.
type neighborhood struct {
	g  *Generator
	st *generationState
}

func (n *neighborhood) BiomeAt(coord grid.ChunkCoord) int {
	return n.g.sampler.BiomeIndex(coord, n.st.weights)
}

// FinestVertices returns the finest-LOD vertices of coord built with the
// given biome. Concurrent callers asking for the same neighbour share one
// computation and the result is memoised. The returned slice is shared and
// must not be modified.
func (n *neighborhood) FinestVertices(coord grid.ChunkCoord, biomeIndex int) []mgl32.Vec3 {
	if biomeIndex < 0 || biomeIndex >= len(n.st.table) {
		return nil
	}

	key := memoKey{coord: coord, biome: biomeIndex}
	if v, ok := n.st.memo.get(key); ok {
		return v
	}

	v, _, _ := n.st.flight.Do(key.String(), func() (interface{}, error) {
		if v, ok := n.st.memo.get(key); ok {
			return v, nil
		}
		def := n.st.table[biomeIndex]
		heights := n.g.sampler.HeightField(n.g.size, coord.Location(n.g.size))
		vertices := mesh.BuildTerrainMesh(heights, FinestLOD, def.HeightMultiplier, def.HeightCurve).Vertices
		n.st.memo.put(key, vertices)
		return vertices, nil
	})
	return v.([]mgl32.Vec3)
}

type memoKey struct {
	coord grid.ChunkCoord
	biome int
}

func (k memoKey) String() string {
	return fmt.Sprintf("%s:%d", k.coord.Key(), k.biome)
}

// vertexMemo is a bounded FIFO of neighbour vertex buffers.
type vertexMemo struct {
	mu      sync.Mutex
	limit   int
	entries map[memoKey][]mgl32.Vec3
	order   []memoKey
}

func newVertexMemo(limit int) *vertexMemo {
	return &vertexMemo{
		limit:   limit,
		entries: make(map[memoKey][]mgl32.Vec3, limit),
	}
}

func (m *vertexMemo) get(k memoKey) ([]mgl32.Vec3, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[k]
	return v, ok
}

func (m *vertexMemo) put(k memoKey, v []mgl32.Vec3) {
	if m.limit == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[k]; ok {
		return
	}
	for len(m.order) >= m.limit {
		delete(m.entries, m.order[0])
		m.order = m.order[1:]
	}
	m.entries[k] = v
	m.order = append(m.order, k)
}

func (m *vertexMemo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
