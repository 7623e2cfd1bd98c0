package field

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lguibr/gonwayish/geometry"
	"github.com/lguibr/gonwayish/utils"
	"github.com/stretchr/testify/require"
)

// --- Test Helpers ---

// fakeClock only moves when the test advances it.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// instrumentedLock records any moment with more than one holder and any
// unlock without a matching lock.
type instrumentedLock struct {
	mu         sync.Mutex
	holders    atomic.Int32
	violations *atomic.Int64
}

func (l *instrumentedLock) Lock() {
	l.mu.Lock()
	l.enter()
}

func (l *instrumentedLock) TryLock() bool {
	if !l.mu.TryLock() {
		return false
	}
	l.enter()
	return true
}

func (l *instrumentedLock) Unlock() {
	if l.holders.Add(-1) < 0 {
		l.violations.Add(1)
	}
	l.mu.Unlock()
}

func (l *instrumentedLock) enter() {
	if l.holders.Add(1) > 1 {
		l.violations.Add(1)
	}
}

func testConfig(pacing, lifePeriod time.Duration) utils.Config {
	cfg := utils.DefaultConfig()
	cfg.PacingInterval = pacing
	cfg.LifePeriod = lifePeriod
	return cfg
}

func newTestTorus(t *testing.T, width, height int) *geometry.Torus {
	t.Helper()
	torus, err := geometry.NewTorus(width, height)
	require.NoError(t, err)
	return torus
}

// populate installs cells for init without spawning any actor.
func populate(f *Field, init InitStateFunc) map[geometry.Position]*Cell {
	now := f.now()
	cells := make(map[geometry.Position]*Cell)
	for _, p := range f.geometry.AllPositions() {
		cells[p] = newCell(f, p, 1, init(p), now)
	}
	f.cells.Store(&cells)
	return cells
}

func aliveAt(positions ...geometry.Position) InitStateFunc {
	set := make(map[geometry.Position]bool, len(positions))
	for _, p := range positions {
		set[p] = true
	}
	return func(p geometry.Position) bool { return set[p] }
}

func noneAlive(geometry.Position) bool { return false }

func closeField(t *testing.T, f *Field) {
	t.Helper()
	require.NoError(t, f.Close(2*time.Second))
}

// assertInvariant checks that aliveness, weight and birth time agree for every cell.
func assertInvariant(t *testing.T, snapshot Snapshot) bool {
	t.Helper()
	for p, info := range snapshot {
		if info.Alive != (info.Weight != 0) || info.Alive != !info.AliveSince.IsZero() {
			t.Errorf("cell %v torn: %+v", p, info)
			return false
		}
	}
	return true
}
