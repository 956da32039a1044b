package viewer

import (
	"errors"
	"fmt"
	"math"
)

const fullTurn = 2 * math.Pi

var (
	ErrInvalidFOV = errors.New("field of view must be within (0, 2π)")
	ErrNonFinite  = errors.New("viewer parameter is not finite")
)

// Pose is a read-only copy of a Viewer taken at the start of a frame.
// The projector only ever sees a Pose, so the driver can keep mutating the
// Viewer for the next frame.
type Pose struct {
	X, Y  float64
	Angle float64
	FOV   float64
}

// Dir returns the unit facing vector.
func (p Pose) Dir() (float64, float64) {
	return math.Cos(p.Angle), math.Sin(p.Angle)
}

// Viewer is the observer whose position and heading drive ray generation.
// It performs no collision checks; that policy belongs to the caller.
type Viewer struct {
	x, y  float64
	angle float64
	fov   float64
}

// New creates a viewer at (x, y) facing angle radians with the given total
// field of view.
func New(x, y, angle, fov float64) (*Viewer, error) {
	for _, v := range []float64{x, y, angle, fov} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrNonFinite
		}
	}
	if fov <= 0 || fov >= fullTurn {
		return nil, fmt.Errorf("fov %.4f: %w", fov, ErrInvalidFOV)
	}
	return &Viewer{x: x, y: y, angle: wrap(angle), fov: fov}, nil
}

// Rotate turns the viewer by delta radians. The result is always in [0, 2π),
// including for negative deltas.
func (v *Viewer) Rotate(delta float64) {
	v.angle = wrap(v.angle + delta)
}

// MoveForward advances the viewer distance units along its heading. Negative
// distances move backwards.
func (v *Viewer) MoveForward(distance float64) {
	v.x += distance * math.Cos(v.angle)
	v.y += distance * math.Sin(v.angle)
}

func (v *Viewer) MoveBackward(distance float64) {
	v.MoveForward(-distance)
}

// Strafe moves sideways, positive towards angle+π/2.
func (v *Viewer) Strafe(distance float64) {
	side := v.angle + math.Pi/2
	v.x += distance * math.Cos(side)
	v.y += distance * math.Sin(side)
}

// SetPosition places the viewer at (x, y) without changing its heading.
func (v *Viewer) SetPosition(x, y float64) {
	v.x, v.y = x, y
}

func (v *Viewer) X() float64     { return v.x }
func (v *Viewer) Y() float64     { return v.y }
func (v *Viewer) Angle() float64 { return v.angle }
func (v *Viewer) FOV() float64   { return v.fov }

// Pose snapshots the viewer.
func (v *Viewer) Pose() Pose {
	return Pose{X: v.x, Y: v.y, Angle: v.angle, FOV: v.fov}
}

// wrap maps a into [0, 2π) using floored modulo.
func wrap(a float64) float64 {
	a = math.Mod(a, fullTurn)
	if a < 0 {
		a += fullTurn
	}
	// a tiny negative remainder can round back up to exactly 2π
	if a >= fullTurn {
		a = 0
	}
	return a
}
