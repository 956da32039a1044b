// Package raycast turns a viewer pose and an occupancy grid into a frame of
// lit wall strips, one column per ray.
package raycast

import (
	"math"

	"raycaster/grid"
	"raycaster/viewer"
)

// MinDistance is the smallest distance used for projection. A viewer standing
// inside a wall would otherwise divide by zero.
const MinDistance = 1.0

// Result is the outcome of marching one ray: a hit at Distance, or a miss
// when nothing solid was found before the march limit. A miss carries the
// limit as its Distance.
type Result struct {
	Hit      bool
	Distance float64
}

// Hit builds a hit result.
func Hit(distance float64) Result { return Result{Hit: true, Distance: distance} }

// Miss builds a miss result at the given limit.
func Miss(limit float64) Result { return Result{Distance: limit} }

// RayAngle returns the heading of column x out of width. Column 0 is the
// leftmost ray; column width-1 approaches the rightmost one.
func RayAngle(p viewer.Pose, x, width int) float64 {
	return p.Angle - p.FOV/2 + p.FOV*float64(x)/float64(width)
}

// Limit is the automatic march bound for a pose: the distance to the
// farthest point whose truncated coordinates land inside the grid, plus one
// step. Every solid cell is reachable within it, so no hit is lost, and rays
// escaping through an opening stop there.
func Limit(p viewer.Pose, g *grid.Grid) float64 {
	fx := math.Max(math.Abs(p.X+1), math.Abs(float64(g.Width())-p.X))
	fy := math.Max(math.Abs(p.Y+1), math.Abs(float64(g.Height())-p.Y))
	limit := math.Ceil(math.Hypot(fx, fy)) + 1
	if math.IsNaN(limit) || limit < 1 {
		return 1
	}
	return limit
}

// firstStep is the first sample distance that can land inside the grid.
// Samples closer than the grid's bounding region are always empty, so a
// viewer far outside the map skips straight to it.
func firstStep(p viewer.Pose, g *grid.Grid) float64 {
	dx := math.Max(0, math.Max(-1-p.X, p.X-float64(g.Width())))
	dy := math.Max(0, math.Max(-1-p.Y, p.Y-float64(g.Height())))
	first := math.Floor(math.Hypot(dx, dy))
	if first < 1 || math.IsNaN(first) {
		return 1
	}
	return first
}

// Cast marches a single ray from the pose position along angle in unit
// steps, sampling the truncated cell coordinate after each step, until a
// solid cell is found or limit is exceeded. A pose inside a solid cell hits
// at MinDistance.
func Cast(p viewer.Pose, g *grid.Grid, angle, limit float64) Result {
	if g.Solid(int(p.X), int(p.Y)) {
		return Hit(MinDistance)
	}
	first, steps, ok := marchRange(p, g, limit)
	if !ok {
		return Miss(limit)
	}
	dx, dy := math.Cos(angle), math.Sin(angle)
	for i := 0; i <= steps; i++ {
		distance := first + float64(i)
		x := p.X + distance*dx
		y := p.Y + distance*dy
		if g.Solid(int(x), int(y)) {
			return Hit(distance)
		}
	}
	return Miss(limit)
}

// marchRange returns the first sample distance and the number of further
// unit steps to take for limit. The step count is bounded by the grid span as
// well, which keeps huge coordinates from stalling on float increments that
// no longer move.
func marchRange(p viewer.Pose, g *grid.Grid, limit float64) (first float64, steps int, ok bool) {
	first = firstStep(p, g)
	if !(limit >= first) {
		return first, 0, false
	}
	return first, int(math.Min(limit-first, maxSpan(g))), true
}

// maxSpan is the most unit steps a ray can spend inside the grid's sampling
// region.
func maxSpan(g *grid.Grid) float64 {
	return math.Ceil(math.Hypot(float64(g.Width()+1), float64(g.Height()+1))) + 2
}

// Strip converts a column result into the half-open lit row range
// [start, end) for a frame of the given height. Misses and walls too far to
// cover a row yield start == end.
func Strip(r Result, height int) (start, end int) {
	if !r.Hit || height <= 0 {
		return 0, 0
	}
	distance := math.Max(r.Distance, MinDistance)
	wallHeight := int(float64(height) / distance)
	start = height/2 - wallHeight/2
	if start < 0 {
		start = 0
	}
	end = start + min(wallHeight, height-start)
	return start, end
}
