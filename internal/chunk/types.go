package chunk

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/VoidMesh/terrain/internal/biome"
	"github.com/VoidMesh/terrain/internal/grid"
	"github.com/VoidMesh/terrain/internal/mesh"
	"github.com/VoidMesh/terrain/internal/noise"
)

const (
	// Level of detail strides
	FinestLOD = 1
	MaxLOD    = 6

	// LODUnload asks the scheduler to drop a chunk
	LODUnload = -1

	// Scheduler defaults
	DefaultWorkers       = 4
	DefaultQueueSize     = 256
	DefaultNeighborCache = 64
)

// ValidLOD reports whether lod is a stride the scheduler accepts.
func ValidLOD(lod int) bool {
	return lod == LODUnload || (lod >= FinestLOD && lod <= MaxLOD)
}

// ChunkData is everything a worker produces for one request. It is owned
// by whoever drains it and never touched by the worker again.
type ChunkData struct {
	Coord       grid.ChunkCoord
	Location    mgl64.Vec2
	LOD         int
	BiomeIndex  int
	Heights     noise.HeightField
	Colors      biome.ColorField
	Mesh        *mesh.MeshBuffer
	Blended     []grid.Direction
	Seq         uint64
	GeneratedIn time.Duration
}

// Resource is the opaque handle a Materializer returns for a chunk. The
// Record holding it is its only owner.
type Resource any

// Record is the cache entry for a materialised chunk.
type Record struct {
	Coord          grid.ChunkCoord `json:"coord"`
	LOD            int             `json:"lod"`
	BiomeIndex     int             `json:"biome_index"`
	Resource       Resource        `json:"-"`
	Seq            uint64          `json:"seq"`
	MaterializedAt time.Time       `json:"materialized_at"`
}
