package field

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lguibr/gonwayish/geometry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkerboard(p geometry.Position) bool { return (p.X+p.Y)%2 == 0 }

func TestField_SnapshotBeforeStartIsEmpty(t *testing.T) {
	f := New(newTestTorus(t, 4, 4), testConfig(time.Millisecond, time.Second))
	assert.Empty(t, f.Snapshot())
	assert.False(t, f.IsRunning())
}

func TestField_StartSeedsInitialState(t *testing.T) {
	torus := newTestTorus(t, 6, 5)
	// Long pacing keeps every cell asleep while the snapshot is compared
	f := New(torus, testConfig(time.Hour, time.Hour))

	calls := make(map[geometry.Position]int)
	var mu sync.Mutex
	init := func(p geometry.Position) bool {
		mu.Lock()
		calls[p]++
		mu.Unlock()
		return checkerboard(p)
	}

	require.NoError(t, f.Start(init))
	assert.True(t, f.IsRunning())

	snapshot := f.Snapshot()
	assert.Len(t, snapshot, torus.Size())
	for _, p := range torus.AllPositions() {
		assert.Equal(t, 1, calls[p], "init called once for %v", p)
		assert.Equal(t, checkerboard(p), snapshot[p].Alive, "position %v", p)
		assert.Equal(t, p, snapshot[p].Position)
	}
	assertInvariant(t, snapshot)
	assert.Equal(t, float64(snapshot.AliveCount()), testutil.ToFloat64(f.metrics.alive))
	assert.Equal(t, torus.Size(), f.engine.Len(), "one actor per cell")

	f.Stop()
}

func TestField_StartTwiceFails(t *testing.T) {
	torus := newTestTorus(t, 5, 5)
	f := New(torus, testConfig(5*time.Millisecond, time.Second))
	require.NoError(t, f.Start(checkerboard))
	defer closeField(t, f)

	before := f.engine.Len()
	err := f.Start(noneAlive)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	assert.True(t, f.IsRunning())
	assert.Equal(t, before, f.engine.Len(), "running actors untouched")
	assert.Len(t, f.Snapshot(), torus.Size())
}

func TestField_StopQuiesces(t *testing.T) {
	f := New(newTestTorus(t, 8, 8), testConfig(time.Millisecond, 20*time.Millisecond))
	require.NoError(t, f.Start(checkerboard))

	time.Sleep(50 * time.Millisecond)
	f.Stop()
	f.Stop() // idempotent
	assert.False(t, f.IsRunning())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.Wait(ctx))
	assert.Equal(t, 0, f.engine.Len())

	before := f.Snapshot()
	evaluations := testutil.ToFloat64(f.metrics.evaluations)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, before, f.Snapshot(), "no mutation after stop")
	assert.Equal(t, evaluations, testutil.ToFloat64(f.metrics.evaluations))

	require.NoError(t, f.Close(time.Second))
}

func TestField_StopBeforeCellsWake(t *testing.T) {
	f := New(newTestTorus(t, 10, 10), testConfig(time.Millisecond, time.Second))
	require.NoError(t, f.Start(checkerboard))
	f.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, f.Wait(ctx), "no cell may stay parked after stop")
}

func TestField_Restart(t *testing.T) {
	torus := newTestTorus(t, 5, 5)
	f := New(torus, testConfig(time.Millisecond, time.Second))
	defer closeField(t, f)

	require.NoError(t, f.Start(checkerboard))
	f.Stop()
	require.NoError(t, f.Wait(context.Background()))

	require.NoError(t, f.Start(noneAlive))
	assert.True(t, f.IsRunning())
	assert.Equal(t, 0, f.Snapshot().AliveCount())
}

func TestField_RestartWhileDraining(t *testing.T) {
	f := New(newTestTorus(t, 5, 5), testConfig(100*time.Millisecond, time.Second))
	defer closeField(t, f)

	require.NoError(t, f.Start(checkerboard))
	// Let every cell enter its pacing sleep
	time.Sleep(20 * time.Millisecond)
	f.Stop()

	assert.ErrorIs(t, f.Start(noneAlive), ErrDraining)
}

func TestField_StartAfterClose(t *testing.T) {
	f := New(newTestTorus(t, 3, 3), testConfig(time.Millisecond, time.Second))
	require.NoError(t, f.Start(checkerboard))
	require.NoError(t, f.Close(time.Second))

	assert.ErrorIs(t, f.Start(checkerboard), ErrClosed)
	assert.False(t, f.IsRunning())
}

func TestLockNeighborhood_LocksAllInOrder(t *testing.T) {
	torus := newTestTorus(t, 5, 5)
	f := New(torus, testConfig(time.Millisecond, time.Second))
	cells := populate(f, noneAlive)
	pos := geometry.Position{X: 0, Y: 0}

	around, ok := f.LockNeighborhood(pos)
	require.True(t, ok)
	require.Len(t, around, 8)
	for i, p := range torus.NeighborsOf(pos) {
		assert.Same(t, cells[p], around[i])
	}

	// Held from another goroutine's point of view
	neighbors := torus.NeighborsOf(pos)
	lockedElsewhere := tryLockFromOtherGoroutine(neighbors[:], cells)
	assert.Equal(t, 0, lockedElsewhere)
	// The center itself is not part of its neighborhood
	assert.True(t, cells[pos].lock.TryLock())
	cells[pos].lock.Unlock()

	f.ReleaseNeighborhood(pos)
	assert.Equal(t, 8, tryLockFromOtherGoroutine(neighbors[:], cells))
}

func TestLockNeighborhood_RollsBackOnFailure(t *testing.T) {
	torus := newTestTorus(t, 5, 5)
	f := New(torus, testConfig(time.Millisecond, time.Second))
	cells := populate(f, noneAlive)
	pos := geometry.Position{X: 2, Y: 2}
	neighbors := torus.NeighborsOf(pos)

	for busyIndex := range neighbors {
		busy := cells[neighbors[busyIndex]]
		busy.lock.Lock()

		around, ok := f.LockNeighborhood(pos)
		assert.False(t, ok, "busy neighbor %d", busyIndex)
		assert.Nil(t, around)

		// Every other neighbor is free again
		others := make([]geometry.Position, 0, 7)
		for i, p := range neighbors {
			if i != busyIndex {
				others = append(others, p)
			}
		}
		assert.Equal(t, 7, tryLockFromOtherGoroutine(others, cells), "busy neighbor %d", busyIndex)

		busy.lock.Unlock()
	}
}

func TestLockNeighborhood_NotStarted(t *testing.T) {
	f := New(newTestTorus(t, 3, 3), testConfig(time.Millisecond, time.Second))
	around, ok := f.LockNeighborhood(geometry.Position{X: 1, Y: 1})
	assert.False(t, ok)
	assert.Nil(t, around)
}

// tryLockFromOtherGoroutine try-locks then unlocks each position and returns how many succeeded.
func tryLockFromOtherGoroutine(positions []geometry.Position, cells map[geometry.Position]*Cell) int {
	result := make(chan int)
	go func() {
		acquired := 0
		for _, p := range positions {
			if cells[p].lock.TryLock() {
				acquired++
				cells[p].lock.Unlock()
			}
		}
		result <- acquired
	}()
	return <-result
}

func TestField_MutualExclusionUnderLoad(t *testing.T) {
	var violations atomic.Int64
	newLock := func(geometry.Position) Locker { return &instrumentedLock{violations: &violations} }

	torus := newTestTorus(t, 6, 6)
	f := New(torus, testConfig(time.Millisecond, 15*time.Millisecond), WithLockFactory(newLock))
	require.NoError(t, f.Start(checkerboard))

	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		if !assertInvariant(t, f.Snapshot()) {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	require.NoError(t, f.Close(2*time.Second))
	assert.Zero(t, violations.Load(), "a cell lock had two holders or an unmatched unlock")
	assert.Greater(t, testutil.ToFloat64(f.metrics.evaluations), 0.0)
	assert.Greater(t, testutil.ToFloat64(f.metrics.deaths), 0.0, "checkerboard cells outlive 15ms")

	// The gauge tracks the population exactly once every cell has exited
	assert.Equal(t, float64(f.Snapshot().AliveCount()), testutil.ToFloat64(f.metrics.alive))
}

func TestField_RegistryExposesMetrics(t *testing.T) {
	f := New(newTestTorus(t, 3, 3), testConfig(time.Millisecond, time.Second))
	families, err := f.Registry().Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "gonwayish_cell_evaluations_total")
	assert.Contains(t, names, "gonwayish_neighborhood_contention_total")
	assert.Contains(t, names, "gonwayish_alive_cells")
}
