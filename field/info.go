package field

import (
	"time"

	"github.com/lguibr/gonwayish/geometry"
)

// CellInfo is a point-in-time copy of one cell's state.
type CellInfo struct {
	Position   geometry.Position `json:"position"`
	Alive      bool              `json:"alive"`
	Weight     float64           `json:"weight"`
	AliveSince time.Time         `json:"aliveSince"` // Zero when dead
}

// Age is how long the cell has been alive at now, zero when dead.
func (c CellInfo) Age(now time.Time) time.Duration {
	if !c.Alive {
		return 0
	}
	return now.Sub(c.AliveSince)
}

// Snapshot maps every position to a copy of its cell.
// Each entry is internally consistent; entries may have been read at different instants.
type Snapshot map[geometry.Position]CellInfo

// AliveCount returns the number of live cells in the snapshot.
func (s Snapshot) AliveCount() int {
	count := 0
	for _, info := range s {
		if info.Alive {
			count++
		}
	}
	return count
}

// Rows lays the snapshot out as height rows of width cells. Missing positions read as dead.
func (s Snapshot) Rows(width, height int) [][]bool {
	rows := make([][]bool, height)
	for y := range rows {
		rows[y] = make([]bool, width)
		for x := range rows[y] {
			rows[y][x] = s[geometry.Position{X: x, Y: y}].Alive
		}
	}
	return rows
}
