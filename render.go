package main

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"raycaster/grid"
	"raycaster/present"
	"raycaster/raycast"
	"raycaster/viewer"
)

var (
	minimapWall  = color.RGBA{30, 40, 80, 255}
	minimapFloor = color.RGBA{10, 10, 10, 255}
	minimapRay   = color.RGBA{0, 200, 255, 160}
	minimapMiss  = color.RGBA{255, 120, 0, 160}
	minimapSelf  = color.RGBA{255, 0, 0, 255}
)

// Draw projects the current pose and writes it to the logical screen, then
// adds the optional overlays.
func (g *Game) Draw(screen *ebiten.Image) {
	pose := g.viewer.Pose()
	start := time.Now()
	g.frame = g.projector.ProjectInto(g.frame, pose, g.grid, g.renderW, g.renderH)
	g.lastFrame = time.Since(start)
	g.pixels = present.ExpandRGBA(g.pixels, g.frame)
	screen.WritePixels(g.pixels)

	if g.minimap {
		g.drawMinimap(screen, pose)
	}
	if g.debug {
		tps := ebiten.ActualTPS()
		if tps < 0 {
			tps = 0
		}
		debugMsg := fmt.Sprintf("FPS: %.1f (%.1f TPS)\nPose: %.2f, %.2f angle %.3f\nFrame: %.2f ms (%d workers, %s)",
			ebiten.ActualFPS(), tps, pose.X, pose.Y, pose.Angle,
			g.lastFrame.Seconds()*1000, g.projector.Workers(), g.projector.Backend())
		ebitenutil.DebugPrint(screen, debugMsg)
	}
}

// Layout reports the logical render size; ebiten scales it onto the window.
func (g *Game) Layout(_, _ int) (int, int) { return g.renderW, g.renderH }

// drawMinimap paints the grid in the top-right corner with a fan of column
// rays ending where they hit, or at the march limit when they miss.
func (g *Game) drawMinimap(screen *ebiten.Image, pose viewer.Pose) {
	cell := minimapCellSize(g.renderW, g.grid)
	if cell <= 0 {
		return
	}
	originX := g.renderW - cell*g.grid.Width() - 2
	originY := 2
	area := image.Rect(originX, originY, originX+cell*g.grid.Width(), originY+cell*g.grid.Height())

	for row := 0; row < g.grid.Height(); row++ {
		for col := 0; col < g.grid.Width(); col++ {
			clr := minimapFloor
			if g.grid.At(col, row) == grid.Solid {
				clr = minimapWall
			}
			for y := 0; y < cell; y++ {
				for x := 0; x < cell; x++ {
					screen.Set(originX+col*cell+x, originY+row*cell+y, clr)
				}
			}
		}
	}

	toScreen := func(x, y float64) (int, int) {
		return originX + int(math.Floor(x*float64(cell))), originY + int(math.Floor(y*float64(cell)))
	}
	if pose.X < 0 || pose.Y < 0 || pose.X >= float64(g.grid.Width()) || pose.Y >= float64(g.grid.Height()) {
		return
	}
	cx, cy := toScreen(pose.X, pose.Y)
	reach := raycast.Limit(pose, g.grid)
	for i, r := range g.projector.Cast(pose, g.grid, minimapRays) {
		angle := raycast.RayAngle(pose, i, minimapRays)
		d := math.Min(r.Distance, reach)
		ex, ey := toScreen(pose.X+math.Cos(angle)*d, pose.Y+math.Sin(angle)*d)
		clr := minimapRay
		if !r.Hit {
			clr = minimapMiss
		}
		drawLine(screen, area, cx, cy, ex, ey, clr)
	}
	for y := -1; y <= 1; y++ {
		for x := -1; x <= 1; x++ {
			if image.Pt(cx+x, cy+y).In(area) {
				screen.Set(cx+x, cy+y, minimapSelf)
			}
		}
	}
}

// minimapCellSize fits the grid into a fraction of the render width.
func minimapCellSize(renderW int, g *grid.Grid) int {
	cell := renderW / minimapFraction / g.Width()
	return clampCoord(cell, 0, minimapMaxCell)
}

// drawLine plots a line segment using Bresenham's integer algorithm, keeping
// only the pixels inside clip.
func drawLine(screen *ebiten.Image, clip image.Rectangle, x0, y0, x1, y1 int, clr color.Color) {
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		if image.Pt(x0, y0).In(clip) {
			screen.Set(x0, y0, clr)
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// clampCoord constrains v to lie within the inclusive [min, max] range.
func clampCoord(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
