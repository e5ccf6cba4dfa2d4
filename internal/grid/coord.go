// Package grid addresses chunks on the infinite terrain grid.
package grid

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// ChunkCoord identifies one chunk. It is a value type and is used directly
// as a map key.
type ChunkCoord struct {
	X int `json:"x"`
	Z int `json:"z"`
}

func (c ChunkCoord) Add(o ChunkCoord) ChunkCoord {
	return ChunkCoord{X: c.X + o.X, Z: c.Z + o.Z}
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}

// Key is a stable string form used for singleflight groups and websocket
// payloads.
func (c ChunkCoord) Key() string {
	return fmt.Sprintf("%d:%d", c.X, c.Z)
}

// Neighbor returns the adjacent chunk in direction d.
func (c ChunkCoord) Neighbor(d Direction) ChunkCoord {
	return c.Add(d.Offset())
}

// Location returns the world-space origin of the chunk for a given sample
// count per edge. Adjacent chunks overlap by one sample, so the stride is
// size-1, and the grid is centred on chunk (0,0).
func (c ChunkCoord) Location(size int) mgl64.Vec2 {
	stride := size - 1
	half := float64(stride / 2)
	return mgl64.Vec2{
		float64(c.X*stride) - half,
		float64(c.Z*stride) - half,
	}
}

// Direction is one of the four cardinal neighbours of a chunk.
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

// Directions lists the cardinal directions in blending order.
var Directions = [4]Direction{Up, Right, Down, Left}

func (d Direction) Offset() ChunkCoord {
	switch d {
	case Up:
		return ChunkCoord{X: 0, Z: 1}
	case Right:
		return ChunkCoord{X: 1, Z: 0}
	case Down:
		return ChunkCoord{X: 0, Z: -1}
	case Left:
		return ChunkCoord{X: -1, Z: 0}
	}
	return ChunkCoord{}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	}
	return "unknown"
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
