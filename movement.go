package main

import (
	"math"
	"math/rand"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"raycaster/config"
	"raycaster/grid"
	"raycaster/present"
	"raycaster/viewer"
)

// intent is one tick of movement input, each axis in [-1, 1].
// Positive turn increases the heading, which pans the view right.
type intent struct {
	forward float64
	turn    float64
	strafe  float64
}

func (in intent) idle() bool {
	return in.forward == 0 && in.turn == 0 && in.strafe == 0
}

// session is the mutable scene shared by every presenter.
type session struct {
	grid     *grid.Grid
	viewer   *viewer.Viewer
	controls config.Controls

	walk *autoWalker
}

// apply moves the viewer by one tick of input scaled by scale. With collisions
// enabled a move that would end inside a solid cell is undone; rotation is
// always kept.
func (s *session) apply(in intent, scale float64) {
	if in.turn != 0 {
		s.viewer.Rotate(in.turn * s.controls.TurnSpeed * scale)
	}
	if in.forward == 0 && in.strafe == 0 {
		return
	}
	oldX, oldY := s.viewer.X(), s.viewer.Y()
	step := s.controls.MoveSpeed * scale
	if in.forward != 0 && in.strafe != 0 {
		step *= 0.7071
	}
	s.viewer.MoveForward(in.forward * step)
	s.viewer.Strafe(in.strafe * step)
	if s.controls.Collide && s.grid.Solid(int(s.viewer.X()), int(s.viewer.Y())) {
		s.viewer.SetPosition(oldX, oldY)
	}
}

// tick applies either the scripted walk or the given manual input. It
// reports false once a scripted walk has run out.
func (s *session) tick(manual intent) bool {
	if s.walk == nil {
		s.apply(manual, 1)
		return true
	}
	if s.walk.expired() {
		return false
	}
	s.apply(s.walk.next(s), 1)
	return true
}

// manualIntent reads the held keys for the window backend.
func manualIntent() intent {
	var in intent
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		in.forward++
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		in.forward--
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		in.turn--
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		in.turn++
	}
	if ebiten.IsKeyPressed(ebiten.KeyQ) {
		in.strafe--
	}
	if ebiten.IsKeyPressed(ebiten.KeyE) {
		in.strafe++
	}
	return in
}

// actionIntent converts a terminal key press into input.
func actionIntent(a present.Action) intent {
	switch a {
	case present.ActionForward:
		return intent{forward: 1}
	case present.ActionBackward:
		return intent{forward: -1}
	case present.ActionTurnLeft:
		return intent{turn: -1}
	case present.ActionTurnRight:
		return intent{turn: 1}
	case present.ActionStrafeLeft:
		return intent{strafe: -1}
	case present.ActionStrafeRight:
		return intent{strafe: 1}
	}
	return intent{}
}

// autoWalker drives the viewer along random headings for a limited duration,
// turning away whenever the next step would enter a solid cell.
type autoWalker struct {
	deadline   time.Time
	rand       *rand.Rand
	turn       float64
	frameCount int
}

func newAutoWalker(duration time.Duration, seed int64) *autoWalker {
	return &autoWalker{
		deadline: time.Now().Add(duration),
		rand:     rand.New(rand.NewSource(seed)),
	}
}

func (a *autoWalker) expired() bool {
	return time.Now().After(a.deadline)
}

// next walks forward while gently turning, and spins in place while the
// cell ahead or the cell it would land on is solid.
func (a *autoWalker) next(s *session) intent {
	if a.frameCount <= 0 {
		a.randomizeTurn()
	}
	a.frameCount--
	pose := s.viewer.Pose()
	pose.Angle += a.turn * s.controls.TurnSpeed
	dx, dy := pose.Dir()
	lookahead := math.Max(autoWalkLookahead, s.controls.MoveSpeed)
	for _, d := range []float64{s.controls.MoveSpeed, lookahead} {
		if s.grid.Solid(int(pose.X+dx*d), int(pose.Y+dy*d)) {
			if a.turn == 0 {
				a.turn = 1
			}
			return intent{turn: math.Copysign(1, a.turn)}
		}
	}
	return intent{forward: 1, turn: a.turn}
}

// randomizeTurn picks a new turn rate and how many frames to hold it.
func (a *autoWalker) randomizeTurn() {
	a.turn = a.rand.Float64()*2 - 1
	a.frameCount = autoWalkMinFrames + a.rand.Intn(autoWalkFrameRange)
}
