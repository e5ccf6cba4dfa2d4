// Package viewer decides which chunks an observer needs and how detailed
// they should be.
package viewer

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/VoidMesh/terrain/internal/biome"
	"github.com/VoidMesh/terrain/internal/chunk"
	"github.com/VoidMesh/terrain/internal/grid"
	"github.com/VoidMesh/terrain/internal/logging"
)

// Position is an observer position on the ground plane as (x, z).
type Position = mgl64.Vec2

// Requester accepts chunk requests. *chunk.Manager satisfies it.
type Requester interface {
	RequestChunk(coord grid.ChunkCoord, lod int) error
}

// Policy maps observer positions to chunk requests.
type Policy struct {
	// MaxViewDistance is the request radius in chunks around the centre.
	MaxViewDistance int
	// UpdateThreshold is how far the observer must move before chunks are
	// requested again.
	UpdateThreshold float64
	// LODCurve maps normalised squared distance in [0,1] to [0,1].
	LODCurve biome.HeightCurve
	// ChunkSize is the world distance between chunk origins.
	ChunkSize int
}

// DefaultPolicy returns the policy used when nothing is configured. The
// chunk stride is one less than the sample count since neighbours share an
// edge.
func DefaultPolicy(samples int) Policy {
	return Policy{
		MaxViewDistance: 5,
		UpdateThreshold: 100,
		LODCurve:        biome.LinearCurve(),
		ChunkSize:       samples - 1,
	}
}

// CenterChunk is the chunk the observer stands in. Negative axes are
// shifted down by one after truncation.
func (p Policy) CenterChunk(pos Position) grid.ChunkCoord {
	size := float64(p.stride())
	c := grid.ChunkCoord{X: int(pos.X() / size), Z: int(pos.Y() / size)}
	if pos.X() < 0 {
		c.X--
	}
	if pos.Y() < 0 {
		c.Z--
	}
	return c
}

// EvaluateLOD picks the LOD for coord as seen from pos. Chunks at or past
// the view distance get chunk.LODUnload.
func (p Policy) EvaluateLOD(pos Position, coord grid.ChunkCoord) int {
	size := float64(p.stride())
	view := float64(p.MaxViewDistance) * size
	if view <= 0 {
		return chunk.LODUnload
	}

	origin := mgl64.Vec2{float64(coord.X) * size, float64(coord.Z) * size}
	d := pos.Sub(origin)
	sqr := d.Dot(d) / (view * view)
	if sqr > 1 {
		sqr = 1
	}

	lod := int(p.LODCurve.Evaluate(sqr)*chunk.MaxLOD) + 1
	switch {
	case lod > chunk.MaxLOD:
		return chunk.LODUnload
	case lod < chunk.FinestLOD:
		return chunk.FinestLOD
	}
	return lod
}

// Request is one chunk the observer needs at a given LOD.
type Request struct {
	Coord grid.ChunkCoord `json:"coord"`
	LOD   int             `json:"lod"`
}

// VisibleChunks lists every coord within MaxViewDistance of the centre
// chunk with its LOD, row by row.
func (p Policy) VisibleChunks(pos Position) []Request {
	center := p.CenterChunk(pos)
	n := p.MaxViewDistance
	if n < 0 {
		n = 0
	}
	out := make([]Request, 0, (2*n+1)*(2*n+1))
	for dx := -n; dx <= n; dx++ {
		for dz := -n; dz <= n; dz++ {
			c := center.Add(grid.ChunkCoord{X: dx, Z: dz})
			out = append(out, Request{Coord: c, LOD: p.EvaluateLOD(pos, c)})
		}
	}
	return out
}

func (p Policy) stride() int {
	if p.ChunkSize < 1 {
		return 1
	}
	return p.ChunkSize
}

// Viewer tracks one observer and feeds its chunk requests to a Requester.
// It is not safe for concurrent use.
type Viewer struct {
	policy Policy
	req    Requester
	logger *log.Logger

	last    Position
	mapped  bool
	visible map[grid.ChunkCoord]struct{}
}

// New returns a viewer that has not mapped anything yet.
func New(policy Policy, req Requester) *Viewer {
	policy.LODCurve = policy.LODCurve.Clone()
	return &Viewer{
		policy:  policy,
		req:     req,
		logger:  logging.WithComponent("viewer"),
		visible: make(map[grid.ChunkCoord]struct{}),
	}
}

// Policy returns the policy the viewer applies.
func (v *Viewer) Policy() Policy {
	return v.policy
}

// Position returns the last mapped position. ok is false before the first
// mapping.
func (v *Viewer) Position() (pos Position, ok bool) {
	return v.last, v.mapped
}

// Update requests the chunks around pos when this is the first call or the
// observer moved more than UpdateThreshold since the last mapping. Chunks
// that left the view square are unloaded. It reports whether a mapping ran.
//
// A mapping with rejected requests is not committed, so the next Update
// retries it.
func (v *Viewer) Update(pos Position) (bool, error) {
	if v.mapped {
		d := pos.Sub(v.last)
		if d.Dot(d) <= v.policy.UpdateThreshold*v.policy.UpdateThreshold {
			return false, nil
		}
	}
	return true, v.remap(pos)
}

// Refresh maps pos regardless of the update threshold.
func (v *Viewer) Refresh(pos Position) error {
	return v.remap(pos)
}

func (v *Viewer) remap(pos Position) error {
	requests := v.policy.VisibleChunks(pos)
	next := make(map[grid.ChunkCoord]struct{}, len(requests))

	var (
		rejected int
		firstErr error
	)
	request := func(c grid.ChunkCoord, lod int) bool {
		if err := v.req.RequestChunk(c, lod); err != nil {
			rejected++
			if firstErr == nil {
				firstErr = err
			}
			return false
		}
		return true
	}

	for _, r := range requests {
		next[r.Coord] = struct{}{}
		request(r.Coord, r.LOD)
	}
	// Accepted unloads leave the set now so a retried mapping does not repeat them.
	for c := range v.visible {
		if _, ok := next[c]; ok {
			continue
		}
		if request(c, chunk.LODUnload) {
			delete(v.visible, c)
		}
	}

	if rejected > 0 {
		for c := range next {
			v.visible[c] = struct{}{}
		}
		v.logger.Warn("Chunk requests rejected", "rejected", rejected, "total", len(requests), "error", firstErr)
		return fmt.Errorf("viewer: %d of %d requests rejected: %w", rejected, len(requests), firstErr)
	}

	center := v.policy.CenterChunk(pos)
	v.logger.Debug("Updated visible chunks", "x", pos.X(), "z", pos.Y(), "chunk_x", center.X, "chunk_z", center.Z, "requests", len(requests))

	v.last = pos
	v.mapped = true
	v.visible = next
	return nil
}
