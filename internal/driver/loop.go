// Package driver runs the single goroutine that owns the chunk manager and
// the viewer.
package driver

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/VoidMesh/terrain/internal/chunk"
	"github.com/VoidMesh/terrain/internal/logging"
	"github.com/VoidMesh/terrain/internal/viewer"
)

var ErrStopped = errors.New("driver loop is not running")

// Stats counts what the loop has done since it started.
type Stats struct {
	Ticks        int64 `json:"ticks"`
	Drained      int64 `json:"drained"`
	Materialized int64 `json:"materialized"`
	Records      int   `json:"records"`
	Pending      int   `json:"pending"`
}

type command struct {
	fn   func(m *chunk.Manager, v *viewer.Viewer) error
	done chan error
}

// Loop serialises every access to the manager and viewer onto the goroutine
// running Run. Other goroutines reach them through Do.
type Loop struct {
	manager *chunk.Manager
	viewer  *viewer.Viewer
	tick    time.Duration
	logger  *log.Logger

	cmds    chan command
	running chan struct{}
	stopped chan struct{}

	stats      Stats
	retryAt    *viewer.Position
	retryCount int
}

// New creates a loop that drains m every tick.
func New(m *chunk.Manager, v *viewer.Viewer, tick time.Duration) *Loop {
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	return &Loop{
		manager: m,
		viewer:  v,
		tick:    tick,
		logger:  logging.WithComponent("driver"),
		cmds:    make(chan command),
		running: make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run drains completed chunks on every tick and whenever the manager
// signals finished work, and executes commands submitted through Do. It
// returns when ctx is done and must only be called once.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()
	defer close(l.stopped)
	close(l.running)

	l.logger.Info("Driver loop started", "tick", l.tick)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Driver loop stopped", "ticks", l.stats.Ticks, "materialized", l.stats.Materialized)
			return nil

		case <-ticker.C:
			l.stats.Ticks++
			l.drain()
			l.retryViewer()

		case <-l.manager.Ready():
			l.drain()

		case c := <-l.cmds:
			c.done <- c.fn(l.manager, l.viewer)
		}
	}
}

func (l *Loop) drain() {
	n := l.manager.Drain()
	l.stats.Drained++
	l.stats.Materialized += int64(n)
}

// retryViewer repeats a viewer mapping the scheduler rejected.
func (l *Loop) retryViewer() {
	if l.retryAt == nil || l.viewer == nil {
		return
	}
	if _, err := l.viewer.Update(*l.retryAt); err != nil {
		l.retryCount++
		if l.retryCount%20 == 0 {
			l.logger.Warn("Viewer mapping still rejected", "attempts", l.retryCount, "error", err)
		}
		return
	}
	l.logger.Debug("Viewer mapping recovered", "attempts", l.retryCount)
	l.retryAt = nil
	l.retryCount = 0
}

// Do runs fn on the loop goroutine and returns its error. It fails with
// ErrStopped once the loop has exited.
func (l *Loop) Do(ctx context.Context, fn func(m *chunk.Manager, v *viewer.Viewer) error) error {
	c := command{fn: fn, done: make(chan error, 1)}

	select {
	case l.cmds <- c:
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MoveViewer updates the viewer position. A mapping the scheduler rejects
// is retried on later ticks; the rejection is still returned.
func (l *Loop) MoveViewer(ctx context.Context, pos viewer.Position) (bool, error) {
	var mapped bool
	err := l.Do(ctx, func(_ *chunk.Manager, v *viewer.Viewer) error {
		if v == nil {
			return errors.New("driver: no viewer configured")
		}
		var err error
		mapped, err = v.Update(pos)
		if err != nil {
			l.retryAt = &pos
			return err
		}
		l.retryAt = nil
		return nil
	})
	return mapped, err
}

// Stats returns a snapshot of the loop counters.
func (l *Loop) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := l.Do(ctx, func(m *chunk.Manager, _ *viewer.Viewer) error {
		s = l.stats
		s.Records = m.Len()
		s.Pending = m.Pending()
		return nil
	})
	return s, err
}

// Running is closed once Run has started.
func (l *Loop) Running() <-chan struct{} {
	return l.running
}
