package grid

import (
	"encoding/json"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkCoord_Neighbor(t *testing.T) {
	origin := ChunkCoord{X: 3, Z: -2}

	tests := []struct {
		dir  Direction
		want ChunkCoord
	}{
		{Up, ChunkCoord{X: 3, Z: -1}},
		{Right, ChunkCoord{X: 4, Z: -2}},
		{Down, ChunkCoord{X: 3, Z: -3}},
		{Left, ChunkCoord{X: 2, Z: -2}},
	}

	for _, tt := range tests {
		t.Run(tt.dir.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, origin.Neighbor(tt.dir))
		})
	}
}

func TestChunkCoord_Location(t *testing.T) {
	assert.Equal(t, mgl64.Vec2{-120, -120}, ChunkCoord{}.Location(241))
	assert.Equal(t, mgl64.Vec2{120, -360}, ChunkCoord{X: 1, Z: -1}.Location(241))
	assert.Equal(t, mgl64.Vec2{-2, 6}, ChunkCoord{X: 0, Z: 2}.Location(5))
}

func TestChunkCoord_IsMapKey(t *testing.T) {
	m := map[ChunkCoord]int{}
	m[ChunkCoord{X: 1, Z: 2}] = 7
	v, ok := m[ChunkCoord{X: 1, Z: 2}]
	assert.True(t, ok)
	assert.Equal(t, 7, v)
	assert.Equal(t, "1:2", ChunkCoord{X: 1, Z: 2}.Key())
}

func TestDirection_MarshalText(t *testing.T) {
	raw, err := json.Marshal([]Direction{Up, Left})
	require.NoError(t, err)
	assert.JSONEq(t, `["up","left"]`, string(raw))
}
