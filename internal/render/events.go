package render

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/VoidMesh/terrain/internal/grid"
)

// Event types published by the Store.
const (
	EventChunkMaterialized = "chunk_materialized"
	EventChunkReleased     = "chunk_released"
)

// Event describes one change to the set of materialised chunks.
type Event struct {
	Type       string          `json:"type"`
	AssetID    uuid.UUID       `json:"asset_id"`
	Coord      grid.ChunkCoord `json:"coord"`
	LOD        int             `json:"lod"`
	BiomeIndex int             `json:"biome_index"`
	Time       time.Time       `json:"time"`
}

// Hub fans events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]chan Event
	buffer int
}

// NewHub creates a hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[uuid.UUID]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. Calling cancel unregisters it and
// closes the channel.
func (h *Hub) Subscribe() (events <-chan Event, cancel func()) {
	id := uuid.New()
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers e to every subscriber with room for it and returns how
// many received it.
func (h *Hub) Publish(e Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, ch := range h.subs {
		select {
		case ch <- e:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers is the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
