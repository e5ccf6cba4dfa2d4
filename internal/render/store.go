package render

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/VoidMesh/terrain/internal/chunk"
	"github.com/VoidMesh/terrain/internal/grid"
	"github.com/VoidMesh/terrain/internal/logging"
	"github.com/VoidMesh/terrain/internal/mesh"
)

var (
	ErrNilChunk      = errors.New("render: nil chunk data")
	ErrUnknownHandle = errors.New("render: unknown resource handle")
	ErrAssetNotFound = errors.New("render: asset not found")
)

// Asset is a materialised chunk. Its data is read-only; encodings are
// produced on first use and cached.
type Asset struct {
	ID         uuid.UUID
	Coord      grid.ChunkCoord
	Location   mgl64.Vec2
	LOD        int
	BiomeIndex int
	CreatedAt  time.Time

	data *chunk.ChunkData

	meshOnce sync.Once
	meshData []byte
	meshErr  error

	textureOnce sync.Once
	texture     []byte
	textureErr  error

	heightOnce sync.Once
	heightmap  []byte
	heightErr  error
}

// VertexCount is the number of mesh vertices.
func (a *Asset) VertexCount() int {
	return len(a.data.Mesh.Vertices)
}

// TriangleCount is the number of mesh triangles.
func (a *Asset) TriangleCount() int {
	return a.data.Mesh.TriangleCount()
}

// Blended lists the edges that were blended toward a neighbour.
func (a *Asset) Blended() []grid.Direction {
	return a.data.Blended
}

// GeneratedIn is how long the worker spent building the chunk.
func (a *Asset) GeneratedIn() time.Duration {
	return a.data.GeneratedIn
}

// EncodedMesh returns the zstd-compressed mesh frame.
func (a *Asset) EncodedMesh() ([]byte, error) {
	a.meshOnce.Do(func() {
		a.meshData, a.meshErr = mesh.Encode(a.data.Mesh)
	})
	return a.meshData, a.meshErr
}

// TexturePNG returns the colour texture as PNG.
func (a *Asset) TexturePNG() ([]byte, error) {
	a.textureOnce.Do(func() {
		a.texture, a.textureErr = EncodePNG(ColorTexture(a.data.Colors))
	})
	return a.texture, a.textureErr
}

// HeightmapPNG returns the grayscale height texture as PNG.
func (a *Asset) HeightmapPNG() ([]byte, error) {
	a.heightOnce.Do(func() {
		a.heightmap, a.heightErr = EncodePNG(HeightTexture(a.data.Heights))
	})
	return a.heightmap, a.heightErr
}

// Store keeps materialised chunks addressable by id and by coord. It is the
// chunk.Materializer of the server; lookups are safe from any goroutine.
type Store struct {
	mu      sync.RWMutex
	assets  map[uuid.UUID]*Asset
	byCoord map[grid.ChunkCoord]uuid.UUID

	hub    *Hub
	logger *log.Logger
}

// NewStore creates an empty store. hub may be nil.
func NewStore(hub *Hub) *Store {
	return &Store{
		assets:  make(map[uuid.UUID]*Asset),
		byCoord: make(map[grid.ChunkCoord]uuid.UUID),
		hub:     hub,
		logger:  logging.WithComponent("render_store"),
	}
}

// Materialize registers data as a new asset and returns its id.
func (s *Store) Materialize(data *chunk.ChunkData) (chunk.Resource, error) {
	if data == nil || data.Mesh == nil {
		return nil, ErrNilChunk
	}

	a := &Asset{
		ID:         uuid.New(),
		Coord:      data.Coord,
		Location:   data.Location,
		LOD:        data.LOD,
		BiomeIndex: data.BiomeIndex,
		CreatedAt:  time.Now(),
		data:       data,
	}

	s.mu.Lock()
	if old, ok := s.byCoord[a.Coord]; ok {
		// the scheduler releases before replacing, so this is a stray handle
		s.logger.Warn("Replacing asset that was never released", "chunk_x", a.Coord.X, "chunk_z", a.Coord.Z, "asset_id", old)
		delete(s.assets, old)
	}
	s.assets[a.ID] = a
	s.byCoord[a.Coord] = a.ID
	s.mu.Unlock()

	s.publish(EventChunkMaterialized, a)
	return a.ID, nil
}

// Release forgets the asset behind res. Unknown handles are logged and
// ignored.
func (s *Store) Release(res chunk.Resource) {
	id, ok := res.(uuid.UUID)
	if !ok {
		s.logger.Error("Release called with foreign handle", "error", fmt.Errorf("%w: %T", ErrUnknownHandle, res))
		return
	}

	s.mu.Lock()
	a, ok := s.assets[id]
	if ok {
		delete(s.assets, id)
		if s.byCoord[a.Coord] == id {
			delete(s.byCoord, a.Coord)
		}
	}
	s.mu.Unlock()

	if !ok {
		s.logger.Warn("Release of unknown asset", "asset_id", id)
		return
	}
	s.publish(EventChunkReleased, a)
}

// Get returns the asset with id.
func (s *Store) Get(id uuid.UUID) (*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	return a, nil
}

// ByCoord returns the asset currently shown for coord.
func (s *Store) ByCoord(coord grid.ChunkCoord) (*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCoord[coord]
	if !ok {
		return nil, fmt.Errorf("%w: chunk %s", ErrAssetNotFound, coord)
	}
	return s.assets[id], nil
}

// Len is the number of live assets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assets)
}

func (s *Store) publish(kind string, a *Asset) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(Event{
		Type:       kind,
		AssetID:    a.ID,
		Coord:      a.Coord,
		LOD:        a.LOD,
		BiomeIndex: a.BiomeIndex,
		Time:       time.Now(),
	})
}
