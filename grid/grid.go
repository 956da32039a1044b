// Package grid holds the occupancy map the raycaster marches through.
package grid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Construction errors. They are wrapped with the offending row or value.
var (
	ErrNoRows      = errors.New("grid has no rows")
	ErrNoColumns   = errors.New("grid has no columns")
	ErrRaggedRows  = errors.New("grid rows have unequal lengths")
	ErrInvalidCell = errors.New("grid cell is neither solid nor empty")
)

// Cell is the occupancy state of a single grid square.
type Cell uint8

const (
	Empty Cell = 0
	Solid Cell = 1
)

func (c Cell) String() string {
	if c == Solid {
		return "solid"
	}
	return "empty"
}

// Grid is an immutable width x height map of solid and empty cells.
type Grid struct {
	width, height int
	walls         []bool
	fingerprint   uint64
}

// New builds a grid from equal-length rows of 0 (empty) and 1 (solid) values.
// rows[y][x] addresses column x of row y.
func New(rows [][]uint8) (*Grid, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	width := len(rows[0])
	if width == 0 {
		return nil, ErrNoColumns
	}
	g := &Grid{width: width, height: len(rows), walls: make([]bool, width*len(rows))}
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d cells, want %d: %w", y, len(row), width, ErrRaggedRows)
		}
		for x, v := range row {
			switch Cell(v) {
			case Solid:
				g.walls[y*width+x] = true
			case Empty:
			default:
				return nil, fmt.Errorf("cell (%d,%d) = %d: %w", x, y, v, ErrInvalidCell)
			}
		}
	}
	g.fingerprint = g.hash()
	return g, nil
}

// Parse builds a grid from text rows. '#' and '1' mark solid cells; '.', '0'
// and ' ' mark empty ones.
func Parse(lines []string) (*Grid, error) {
	rows := make([][]uint8, len(lines))
	for y, line := range lines {
		row := make([]uint8, 0, len(line))
		for x, r := range line {
			switch r {
			case '#', '1':
				row = append(row, uint8(Solid))
			case '.', '0', ' ':
				row = append(row, uint8(Empty))
			default:
				return nil, fmt.Errorf("rune %q at (%d,%d): %w", r, x, y, ErrInvalidCell)
			}
		}
		rows[y] = row
	}
	return New(rows)
}

// At reports the cell at (col, row). Coordinates outside the grid are Empty;
// rays leave the map all the time and that is not an error.
func (g *Grid) At(col, row int) Cell {
	if g.Solid(col, row) {
		return Solid
	}
	return Empty
}

// Solid reports whether (col, row) is inside the grid and solid.
func (g *Grid) Solid(col, row int) bool {
	if col < 0 || col >= g.width || row < 0 || row >= g.height {
		return false
	}
	return g.walls[row*g.width+col]
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// Diagonal is the length of the grid's diagonal in cell units.
func (g *Grid) Diagonal() float64 {
	return math.Hypot(float64(g.width), float64(g.height))
}

// Fingerprint identifies the grid contents; two grids with equal dimensions
// and cells share a fingerprint.
func (g *Grid) Fingerprint() uint64 { return g.fingerprint }

// SolidCount returns the number of solid cells.
func (g *Grid) SolidCount() int {
	n := 0
	for _, wall := range g.walls {
		if wall {
			n++
		}
	}
	return n
}

func (g *Grid) hash() uint64 {
	d := xxhash.New()
	var dims [16]byte
	binary.LittleEndian.PutUint64(dims[:8], uint64(g.width))
	binary.LittleEndian.PutUint64(dims[8:], uint64(g.height))
	_, _ = d.Write(dims[:])
	buf := make([]byte, len(g.walls))
	for i, wall := range g.walls {
		if wall {
			buf[i] = 1
		}
	}
	_, _ = d.Write(buf)
	return d.Sum64()
}
