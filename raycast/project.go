package raycast

import (
	"raycaster/grid"
	"raycaster/viewer"
)

const (
	Lit   = 255
	Unlit = 0
)

// Project renders a width x height frame for the pose on a single goroutine.
// The buffer is row-major (index row*width + column) and every sample is Lit
// or Unlit. Non-positive dimensions yield an empty buffer.
func Project(p viewer.Pose, g *grid.Grid, width, height int) []byte {
	if width <= 0 || height <= 0 {
		return []byte{}
	}
	buf := make([]byte, width*height)
	renderColumns(buf, p, g, width, height, Limit(p, g), span{start: 0, end: width - 1})
	return buf
}

// CastColumns marches every column of a frame width columns wide.
func CastColumns(p viewer.Pose, g *grid.Grid, width int, limit float64) []Result {
	if width <= 0 {
		return nil
	}
	results := make([]Result, width)
	for x := range results {
		results[x] = Cast(p, g, RayAngle(p, x, width), limit)
	}
	return results
}

// renderColumns marches and fills the inclusive column span of buf.
func renderColumns(buf []byte, p viewer.Pose, g *grid.Grid, width, height int, limit float64, sp span) {
	for x := sp.start; x <= sp.end; x++ {
		r := Cast(p, g, RayAngle(p, x, width), limit)
		fillColumn(buf, width, height, x, r)
	}
}

// fillColumn writes one column: Lit inside the wall strip, Unlit elsewhere.
func fillColumn(buf []byte, width, height, x int, r Result) {
	start, end := Strip(r, height)
	idx := x
	for y := 0; y < height; y++ {
		if y >= start && y < end {
			buf[idx] = Lit
		} else {
			buf[idx] = Unlit
		}
		idx += width
	}
}
