// Package field runs a continuous-time cellular automaton in which every cell is
// an independent actor.
//
// Cells never block on each other's locks: a cell holds its own lock, try-locks
// its eight neighbors and backs off completely on the first busy one. Nothing
// ever waits while holding a neighbor's lock, so overlapping neighborhoods
// cannot deadlock.
package field

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lguibr/gonwayish/bollywood"
	"github.com/lguibr/gonwayish/geometry"
	"github.com/lguibr/gonwayish/utils"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrAlreadyRunning is returned by Start on a running field.
	ErrAlreadyRunning = errors.New("field: already running")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("field: closed")
	// ErrDraining is returned by Start while cells of a stopped run are still exiting.
	ErrDraining = errors.New("field: previous run still draining")
)

// Geometry enumerates the grid positions and their neighborhoods.
// NeighborsOf must be deterministic and defined for every position.
type Geometry interface {
	AllPositions() []geometry.Position
	NeighborsOf(p geometry.Position) [8]geometry.Position
}

// InitStateFunc decides whether a position starts alive. It is called exactly
// once per position before the field is marked running.
type InitStateFunc func(geometry.Position) bool

// Option customizes a Field.
type Option func(*Field)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Field) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithClock replaces time.Now for birth timestamps and ages.
func WithClock(now func() time.Time) Option {
	return func(f *Field) {
		if now != nil {
			f.now = now
		}
	}
}

// WithLockFactory sets how each cell's exclusive lock is built.
func WithLockFactory(newLock func(geometry.Position) Locker) Option {
	return func(f *Field) {
		if newLock != nil {
			f.newLock = newLock
		}
	}
}

// Field owns the grid of cells, their lifecycle and the neighborhood locking protocol.
type Field struct {
	geometry   Geometry
	pacing     time.Duration
	lifePeriod time.Duration
	logger     *slog.Logger
	now        func() time.Time
	newLock    func(geometry.Position) Locker
	engine     *bollywood.Engine
	metrics    *metrics

	mu     sync.Mutex // Serializes lifecycle transitions, backs ready
	ready  *sync.Cond // Broadcast on every lifecycle transition
	closed bool

	// phase packs the run epoch and the running bit (epoch<<1 | running).
	// Written only under mu so waiters on ready never miss a transition,
	// read lock-free by cells once per iteration.
	phase atomic.Uint64

	// cells is replaced once per Start and never modified afterwards.
	cells atomic.Pointer[map[geometry.Position]*Cell]
}

// New creates a stopped field over geo. Pacing and life period come from cfg.
func New(geo Geometry, cfg utils.Config, opts ...Option) *Field {
	f := &Field{
		geometry:   geo,
		pacing:     cfg.PacingInterval,
		lifePeriod: cfg.LifePeriod,
		logger:     slog.Default(),
		now:        time.Now,
		newLock:    func(geometry.Position) Locker { return &sync.Mutex{} },
		metrics:    newMetrics(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.ready = sync.NewCond(&f.mu)
	f.engine = bollywood.NewEngine(f.logger)
	return f
}

func (f *Field) loadPhase() (epoch uint64, running bool) {
	p := f.phase.Load()
	return p >> 1, p&1 == 1
}

// storePhase must be called with f.mu held.
func (f *Field) storePhase(epoch uint64, running bool) {
	p := epoch << 1
	if running {
		p |= 1
	}
	f.phase.Store(p)
	f.ready.Broadcast()
}

// Start builds one cell per position, seeded by init, spawns each as an actor
// and then releases all of them at once. After Stop, Wait for the previous
// cells to exit before starting again.
func (f *Field) Start(init InitStateFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	epoch, running := f.loadPhase()
	if running {
		return ErrAlreadyRunning
	}
	if n := f.engine.Len(); n > 0 {
		return fmt.Errorf("%w: %d cells", ErrDraining, n)
	}
	epoch++
	f.storePhase(epoch, false)

	now := f.now()
	positions := f.geometry.AllPositions()
	cells := make(map[geometry.Position]*Cell, len(positions))
	alive := 0
	for _, p := range positions {
		cell := newCell(f, p, epoch, init(p), now)
		cells[p] = cell
		if cell.Info().Alive {
			alive++
		}
		if _, err := f.engine.Spawn(bollywood.NewProps(func() bollywood.Actor { return cell })); err != nil {
			// Release the cells spawned so far; they belong to a run that never started.
			f.storePhase(epoch+1, false)
			return fmt.Errorf("spawning cell %v: %w", p, err)
		}
	}
	f.cells.Store(&cells)
	f.metrics.alive.Set(float64(alive))

	f.storePhase(epoch, true)
	f.logger.Info("field started", "cells", len(cells), "alive", alive, "epoch", epoch)
	return nil
}

// Stop marks the field stopped. Cells finish their current iteration and exit
// on their own; use Wait to observe it. Stop is idempotent.
func (f *Field) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	epoch, running := f.loadPhase()
	if !running {
		return
	}
	// A new epoch also releases cells still parked in awaitRunning.
	f.storePhase(epoch+1, false)
	f.logger.Info("field stopped", "epoch", epoch)
}

// IsRunning reports whether the field is between Start and Stop.
func (f *Field) IsRunning() bool {
	_, running := f.loadPhase()
	return running
}

// awaitRunning blocks until the run identified by epoch starts. It returns
// false if that run was stopped or superseded first.
func (f *Field) awaitRunning(epoch uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		current, running := f.loadPhase()
		if current != epoch {
			return false
		}
		if running {
			return true
		}
		f.ready.Wait()
	}
}

func (f *Field) runningIn(epoch uint64) bool {
	current, running := f.loadPhase()
	return running && current == epoch
}

func (f *Field) grid() map[geometry.Position]*Cell {
	cells := f.cells.Load()
	if cells == nil {
		return nil
	}
	return *cells
}

// Snapshot copies every cell's state. Empty before the first Start.
func (f *Field) Snapshot() Snapshot {
	cells := f.grid()
	snapshot := make(Snapshot, len(cells))
	for p, cell := range cells {
		snapshot[p] = cell.Info()
	}
	return snapshot
}

// LockNeighborhood try-locks the eight neighbors of pos in geometry order.
// On the first busy neighbor every lock taken so far is released and ok is false.
// On success the caller must call ReleaseNeighborhood(pos) exactly once.
func (f *Field) LockNeighborhood(pos geometry.Position) (around []*Cell, ok bool) {
	cells := f.grid()
	positions := f.geometry.NeighborsOf(pos)
	around = make([]*Cell, 0, len(positions))
	for _, p := range positions {
		cell := cells[p]
		if cell == nil || !cell.lock.TryLock() {
			for _, locked := range around {
				locked.lock.Unlock()
			}
			return nil, false
		}
		around = append(around, cell)
	}
	return around, true
}

// ReleaseNeighborhood unlocks the eight neighbors of pos.
func (f *Field) ReleaseNeighborhood(pos geometry.Position) {
	cells := f.grid()
	for _, p := range f.geometry.NeighborsOf(pos) {
		cells[p].lock.Unlock()
	}
}

// Wait blocks until every cell actor has exited or ctx is done.
func (f *Field) Wait(ctx context.Context) error {
	return f.engine.Wait(ctx)
}

// Close stops the field for good and waits up to timeout for the cells to exit.
func (f *Field) Close(timeout time.Duration) error {
	f.Stop()
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return f.engine.Shutdown(timeout)
}

// LifePeriod is how long a cell lives before dying of age.
func (f *Field) LifePeriod() time.Duration { return f.lifePeriod }

// Registry exposes the field's Prometheus collectors.
func (f *Field) Registry() *prometheus.Registry { return f.metrics.registry }
