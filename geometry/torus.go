// Package geometry describes a rectangular grid whose edges wrap around.
package geometry

import (
	"errors"
	"fmt"
)

// MinSide is the smallest width or height for which the eight neighbors of a
// cell are all distinct from each other and from the cell itself.
const MinSide = 3

// ErrGridTooSmall is returned when a torus side is shorter than MinSide.
var ErrGridTooSmall = errors.New("geometry: grid too small")

// Position identifies a grid cell. It is comparable and usable as a map key.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// neighborOffsets is the fixed enumeration order of a neighborhood:
// row above left to right, then left and right, then row below.
var neighborOffsets = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Torus is a width x height grid with wraparound adjacency. It is immutable.
type Torus struct {
	width  int
	height int
}

// NewTorus returns a torus with the given dimensions.
func NewTorus(width, height int) (*Torus, error) {
	if width < MinSide || height < MinSide {
		return nil, fmt.Errorf("%w: %dx%d, need at least %dx%d", ErrGridTooSmall, width, height, MinSide, MinSide)
	}
	return &Torus{width: width, height: height}, nil
}

func (t *Torus) Width() int  { return t.width }
func (t *Torus) Height() int { return t.height }

// Size is the number of cells on the torus.
func (t *Torus) Size() int { return t.width * t.height }

// AllPositions lists every position in row-major order.
func (t *Torus) AllPositions() []Position {
	positions := make([]Position, 0, t.Size())
	for y := 0; y < t.height; y++ {
		for x := 0; x < t.width; x++ {
			positions = append(positions, Position{X: x, Y: y})
		}
	}
	return positions
}

// Wrap maps any coordinate pair onto the torus.
func (t *Torus) Wrap(x, y int) Position {
	return Position{
		X: (x%t.width + t.width) % t.width,
		Y: (y%t.height + t.height) % t.height,
	}
}

// Contains reports whether p lies inside the grid without wrapping.
func (t *Torus) Contains(p Position) bool {
	return p.X >= 0 && p.X < t.width && p.Y >= 0 && p.Y < t.height
}

// Index returns the row-major index of p after wrapping.
func (t *Torus) Index(p Position) int {
	w := t.Wrap(p.X, p.Y)
	return w.Y*t.width + w.X
}

// NeighborsOf returns the eight wrapped neighbors of p, always in the same order.
func (t *Torus) NeighborsOf(p Position) [8]Position {
	var around [8]Position
	for i, off := range neighborOffsets {
		around[i] = t.Wrap(p.X+off[0], p.Y+off[1])
	}
	return around
}
