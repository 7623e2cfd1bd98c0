package field

import (
	"sync"
	"time"

	"github.com/lguibr/gonwayish/bollywood"
	"github.com/lguibr/gonwayish/geometry"
)

// Locker is the exclusive lock owned by every cell. *sync.Mutex satisfies it.
type Locker interface {
	Lock()
	Unlock()
	TryLock() bool
}

// transition is the outcome of one rule evaluation.
type transition int

const (
	unchanged transition = iota
	born
	died
)

// Cell is the actor driving a single grid position. It only ever mutates its own
// state and reaches its neighbors exclusively through the Field's locking protocol.
type Cell struct {
	field    *Field
	position geometry.Position
	epoch    uint64 // Run the cell belongs to
	lock     Locker // Held by this cell while deciding, or by a neighbor while reading it

	mu         sync.RWMutex // Guards aliveSince and weight as one pair
	aliveSince time.Time    // Zero when dead
	weight     float64      // 0 when dead, 1 when alive
}

func newCell(f *Field, position geometry.Position, epoch uint64, alive bool, now time.Time) *Cell {
	c := &Cell{
		field:    f,
		position: position,
		epoch:    epoch,
		lock:     f.newLock(position),
	}
	if alive {
		c.aliveSince = now
		c.weight = 1
	}
	return c
}

func (c *Cell) Position() geometry.Position { return c.position }

// Info returns a consistent copy of the cell's state.
func (c *Cell) Info() CellInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CellInfo{
		Position:   c.position,
		Alive:      !c.aliveSince.IsZero(),
		Weight:     c.weight,
		AliveSince: c.aliveSince,
	}
}

func (c *Cell) update(aliveSince time.Time, weight float64) {
	c.mu.Lock()
	c.aliveSince = aliveSince
	c.weight = weight
	c.mu.Unlock()
}

// Run is the actor loop. It waits for the field to start, then evaluates the
// rule once per pacing interval until the run it belongs to is stopped.
// The engine's Done signal is ignored: only the field lifecycle ends a cell.
func (c *Cell) Run(ctx bollywood.Context) {
	if !c.field.awaitRunning(c.epoch) {
		return
	}
	for c.field.runningIn(c.epoch) {
		c.pause()
		if !c.field.runningIn(c.epoch) {
			break
		}
		c.step()
	}
	c.field.logger.Debug("cell finished", "position", c.position.String(), "pid", ctx.Self().String())
}

func (c *Cell) pause() {
	time.Sleep(c.field.pacing)
}

// step runs one iteration under the cell's own lock. It reports false when a
// neighbor was busy and the rule was not evaluated.
func (c *Cell) step() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	around, ok := c.field.LockNeighborhood(c.position)
	if !ok {
		c.field.metrics.contention.Inc()
		return false
	}
	defer c.field.ReleaseNeighborhood(c.position)

	liveCount := 0
	for _, neighbor := range around {
		if neighbor.Info().Alive {
			liveCount++
		}
	}

	c.field.metrics.evaluations.Inc()
	switch c.apply(liveCount, c.field.now()) {
	case born:
		c.field.metrics.births.Inc()
		c.field.metrics.alive.Inc()
	case died:
		c.field.metrics.deaths.Inc()
		c.field.metrics.alive.Dec()
	}
	return true
}

// apply is the transition rule. Birth needs exactly three live neighbors;
// death depends only on age. Caller holds c.lock.
func (c *Cell) apply(liveCount int, now time.Time) transition {
	info := c.Info()
	switch {
	case !info.Alive && liveCount == 3:
		c.update(now, 1)
		return born
	case info.Alive && info.Age(now) > c.field.lifePeriod:
		c.update(time.Time{}, 0)
		return died
	}
	return unchanged
}
