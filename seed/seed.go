// Package seed builds initial states for a field: random soups, well-known
// patterns and patterns read from plaintext files.
package seed

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/lguibr/gonwayish/geometry"
)

var (
	ErrUnknownPattern  = errors.New("seed: unknown pattern")
	ErrPatternTooLarge = errors.New("seed: pattern does not fit the grid")
)

// Func reports whether a position starts alive. It is assignable to field.InitStateFunc.
type Func func(geometry.Position) bool

// None leaves every cell dead.
func None(geometry.Position) bool { return false }

// Random makes each position alive with probability density. The outcome
// for a position depends only on the seed and the position, never on the
// order positions are asked in.
func Random(seed int64, density float64) Func {
	return func(p geometry.Position) bool {
		stream := uint64(uint32(p.Y))<<32 | uint64(uint32(p.X))
		r := rand.New(rand.NewPCG(uint64(seed), stream))
		return r.Float64() < density
	}
}

// Relative cell coordinates of the built-in patterns, origin at top left.
var patterns = map[string][]geometry.Position{
	"block": {
		{X: 0, Y: 0}, {X: 1, Y: 0},
		{X: 0, Y: 1}, {X: 1, Y: 1},
	},
	"blinker": {
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0},
	},
	"glider": {
		{X: 1, Y: 0},
		{X: 2, Y: 1},
		{X: 0, Y: 2}, {X: 1, Y: 2}, {X: 2, Y: 2},
	},
	"beacon": {
		{X: 0, Y: 0}, {X: 1, Y: 0},
		{X: 0, Y: 1},
		{X: 3, Y: 2},
		{X: 2, Y: 3}, {X: 3, Y: 3},
	},
	"r-pentomino": {
		{X: 1, Y: 0}, {X: 2, Y: 0},
		{X: 0, Y: 1}, {X: 1, Y: 1},
		{X: 1, Y: 2},
	},
}

// Names lists the built-in patterns in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pattern places the named built-in pattern in the middle of torus.
func Pattern(name string, torus *geometry.Torus) (Func, error) {
	cells, ok := patterns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownPattern, name, Names())
	}
	return Centered(cells, torus)
}

// Centered shifts cells so that their bounding box sits in the middle of torus.
func Centered(cells []geometry.Position, torus *geometry.Torus) (Func, error) {
	if len(cells) == 0 {
		return None, nil
	}
	minX, minY := cells[0].X, cells[0].Y
	maxX, maxY := minX, minY
	for _, c := range cells[1:] {
		minX, maxX = min(minX, c.X), max(maxX, c.X)
		minY, maxY = min(minY, c.Y), max(maxY, c.Y)
	}
	w, h := maxX-minX+1, maxY-minY+1
	if w > torus.Width() || h > torus.Height() {
		return nil, fmt.Errorf("%w: %dx%d into %dx%d", ErrPatternTooLarge, w, h, torus.Width(), torus.Height())
	}

	offsetX := (torus.Width()-w)/2 - minX
	offsetY := (torus.Height()-h)/2 - minY
	alive := make(map[geometry.Position]bool, len(cells))
	for _, c := range cells {
		alive[geometry.Position{X: c.X + offsetX, Y: c.Y + offsetY}] = true
	}
	return func(p geometry.Position) bool { return alive[p] }, nil
}
