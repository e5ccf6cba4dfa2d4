package chunk

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/VoidMesh/terrain/internal/biome"
	"github.com/VoidMesh/terrain/internal/grid"
	"github.com/VoidMesh/terrain/internal/logging"
)

var (
	ErrQueueFull  = errors.New("chunk generation queue is full")
	ErrClosed     = errors.New("chunk manager is closed")
	ErrInvalidLOD = errors.New("invalid level of detail")

	ErrNotInitialized = errors.New("chunk manager is not initialized")
)

// Options sizes the generation pool.
type Options struct {
	Workers   int
	QueueSize int
}

// DefaultOptions returns the pool settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		Workers:   DefaultWorkers,
		QueueSize: DefaultQueueSize,
	}
}

type job struct {
	coord grid.ChunkCoord
	lod   int
	seq   uint64
}

type completion struct {
	job  job
	data *ChunkData
	err  error
}

// Manager schedules chunk generation on a fixed worker pool and owns the
// cache of materialised chunks.
//
// Workers only ever touch the completion queue. Everything else, including
// every call to the Materializer, happens on the goroutine that calls
// RequestChunk and Drain; those two, Initialize and the read accessors must
// all be called from that one goroutine.
type Manager struct {
	gen    *Generator
	mat    Materializer
	opts   Options
	logger *log.Logger

	jobs    chan job
	wg      sync.WaitGroup
	started bool
	closed  bool

	mu        sync.Mutex
	completed []completion
	ready     chan struct{}

	records     map[grid.ChunkCoord]*Record
	inFlight    map[grid.ChunkCoord]int
	outstanding map[grid.ChunkCoord]int
	unloadedAt  map[grid.ChunkCoord]uint64
	pending     int
	seq         uint64
}

// NewManager creates a manager. Workers start on Initialize.
func NewManager(gen *Generator, mat Materializer, opts Options) *Manager {
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = DefaultQueueSize
	}

	return &Manager{
		gen:         gen,
		mat:         mat,
		opts:        opts,
		logger:      logging.WithComponent("chunk_manager"),
		jobs:        make(chan job, opts.QueueSize),
		ready:       make(chan struct{}, 1),
		records:     make(map[grid.ChunkCoord]*Record),
		inFlight:    make(map[grid.ChunkCoord]int),
		outstanding: make(map[grid.ChunkCoord]int),
		unloadedAt:  make(map[grid.ChunkCoord]uint64),
	}
}

// Initialize normalises the commonness of table in place, hands a snapshot
// to the generator and starts the worker pool on first use. A misconfigured
// table is logged and leaves every request a no-op.
func (m *Manager) Initialize(table biome.Table) {
	table.Normalize()
	m.gen.SetTable(table)

	if !m.gen.Usable() {
		m.logger.Warn("Biome table is misconfigured, chunk requests will be ignored", "biomes", len(table))
	} else {
		m.logger.Info("Biome table installed", "biomes", len(table))
	}

	if m.started || m.closed {
		return
	}
	m.started = true
	for i := 0; i < m.opts.Workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	m.logger.Info("Chunk workers started", "workers", m.opts.Workers, "queue_size", m.opts.QueueSize)
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for j := range m.jobs {
		data, err := m.gen.Generate(j.coord, j.lod, j.seq)
		if err != nil {
			m.logger.Error("Chunk generation failed", "worker", id, "chunk_x", j.coord.X, "chunk_z", j.coord.Z, "error", err)
		}

		m.mu.Lock()
		m.completed = append(m.completed, completion{job: j, data: data, err: err})
		m.mu.Unlock()

		select {
		case m.ready <- struct{}{}:
		default:
		}
	}
}

// Ready receives a value whenever completed work is waiting to be drained.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// RequestChunk asks for coord at lod. LODUnload releases and evicts any
// record immediately. A request no finer than the current record, or than
// work already in flight, is a no-op.
func (m *Manager) RequestChunk(coord grid.ChunkCoord, lod int) error {
	if m.closed {
		return ErrClosed
	}
	if !ValidLOD(lod) {
		return fmt.Errorf("%w: %d", ErrInvalidLOD, lod)
	}

	if lod == LODUnload {
		m.unload(coord)
		return nil
	}

	if rec, ok := m.records[coord]; ok && rec.LOD <= lod {
		return nil
	}
	if !m.gen.Usable() {
		m.logger.Debug("Ignoring chunk request, biome table unusable", "chunk_x", coord.X, "chunk_z", coord.Z)
		return nil
	}
	if current, ok := m.inFlight[coord]; ok && current <= lod {
		return nil
	}
	if !m.started {
		return ErrNotInitialized
	}

	j := job{coord: coord, lod: lod, seq: m.seq + 1}
	select {
	case m.jobs <- j:
	default:
		return ErrQueueFull
	}

	m.seq = j.seq
	m.inFlight[coord] = lod
	m.outstanding[coord]++
	m.pending++
	return nil
}

func (m *Manager) unload(coord grid.ChunkCoord) {
	if m.outstanding[coord] > 0 {
		m.unloadedAt[coord] = m.seq
	}
	delete(m.inFlight, coord)

	rec, ok := m.records[coord]
	if !ok {
		return
	}
	delete(m.records, coord)
	m.mat.Release(rec.Resource)
	m.logger.Debug("Chunk released", "chunk_x", coord.X, "chunk_z", coord.Z, "lod", rec.LOD)
}

// Drain materialises everything the workers have published since the last
// call, in completion order, and returns how many records were written.
// Results for chunks unloaded after dispatch, or older than the record
// already in place, are discarded. The newest dispatch wins, not the last
// arrival, so a slow coarse result never replaces a finer one requested later.
func (m *Manager) Drain() int {
	m.mu.Lock()
	batch := m.completed
	m.completed = nil
	m.mu.Unlock()

	materialized := 0
	for _, c := range batch {
		coord := c.job.coord
		cut, unloaded := m.unloadedAt[coord]
		m.settle(c.job)

		if c.err != nil || c.data == nil {
			continue
		}
		if unloaded && c.job.seq <= cut {
			m.logger.Debug("Discarding unloaded chunk", "chunk_x", coord.X, "chunk_z", coord.Z, "seq", c.job.seq)
			continue
		}
		old, exists := m.records[coord]
		if exists && old.Seq > c.job.seq {
			m.logger.Debug("Discarding stale chunk", "chunk_x", coord.X, "chunk_z", coord.Z, "seq", c.job.seq, "current_seq", old.Seq)
			continue
		}

		if exists {
			delete(m.records, coord)
			m.mat.Release(old.Resource)
		}

		res, err := m.mat.Materialize(c.data)
		if err != nil {
			m.logger.Error("Failed to materialize chunk", "chunk_x", coord.X, "chunk_z", coord.Z, "lod", c.data.LOD, "error", err)
			continue
		}

		m.records[coord] = &Record{
			Coord:          coord,
			LOD:            c.data.LOD,
			BiomeIndex:     c.data.BiomeIndex,
			Resource:       res,
			Seq:            c.job.seq,
			MaterializedAt: time.Now(),
		}
		materialized++
	}

	if len(batch) > 0 {
		m.logger.Debug("Drained completion queue", "results", len(batch), "materialized", materialized, "records", len(m.records))
	}
	return materialized
}

// settle retires the bookkeeping for a finished job.
func (m *Manager) settle(j job) {
	m.pending--
	m.outstanding[j.coord]--
	if m.outstanding[j.coord] > 0 {
		return
	}
	delete(m.outstanding, j.coord)
	delete(m.inFlight, j.coord)
	delete(m.unloadedAt, j.coord)
}

// Record returns the cache entry for coord.
func (m *Manager) Record(coord grid.ChunkCoord) (Record, bool) {
	rec, ok := m.records[coord]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Records returns every cache entry ordered by X then Z.
func (m *Manager) Records() []Record {
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Coord.X != out[j].Coord.X {
			return out[i].Coord.X < out[j].Coord.X
		}
		return out[i].Coord.Z < out[j].Coord.Z
	})
	return out
}

// Len is the number of materialised chunks.
func (m *Manager) Len() int {
	return len(m.records)
}

// Pending is the number of dispatched jobs not yet drained.
func (m *Manager) Pending() int {
	return m.pending
}

// Table returns the biome table generation is running against.
func (m *Manager) Table() biome.Table {
	return m.gen.Table()
}

// Close stops the workers after they finish queued jobs. Their results stay
// in the completion queue for a final Drain.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.closed = true
	close(m.jobs)
	m.wg.Wait()
	m.logger.Info("Chunk workers stopped", "pending", m.pending)
}
