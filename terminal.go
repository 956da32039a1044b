package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"raycaster/config"
	"raycaster/present"
	"raycaster/raycast"
)

// runTerminal presents frames in the terminal until a quit key, a finished
// scripted walk or ctx ends the session.
func runTerminal(ctx context.Context, s *session, p *raycast.Projector, cfg *config.Config, log *zap.Logger) error {
	term, err := present.OpenTerminal(log)
	if err != nil {
		return fmt.Errorf("opening terminal: %w", err)
	}
	defer term.Close()
	return newTerminalView(s, p, term).run(ctx, cfg.Controls.TPS)
}

// terminalView renders the session at the terminal's own resolution, redrawing
// only after input, a resize or a scripted step.
type terminalView struct {
	*session
	projector *raycast.Projector
	term      *present.Terminal

	frame []byte
	dirty bool
	debug bool
}

func newTerminalView(s *session, p *raycast.Projector, term *present.Terminal) *terminalView {
	return &terminalView{session: s, projector: p, term: term, dirty: true, debug: *debugFlag}
}

func (v *terminalView) run(ctx context.Context, tps int) error {
	return v.term.Run(ctx, time.Second/time.Duration(tps), v.handle, v.draw)
}

func (v *terminalView) handle(a present.Action) {
	if v.walk == nil {
		v.apply(actionIntent(a), terminalStepScale)
	}
	v.dirty = true
}

func (v *terminalView) draw() error {
	if v.walk != nil {
		if !v.tick(intent{}) {
			return present.ErrQuit
		}
		v.dirty = true
	}
	if !v.dirty {
		return nil
	}
	width, height := v.term.Resolution()
	if width <= 0 || height <= 0 {
		return nil
	}
	pose := v.viewer.Pose()
	start := time.Now()
	v.frame = v.projector.ProjectInto(v.frame, pose, v.grid, width, height)
	elapsed := time.Since(start)
	if err := v.term.Draw(v.frame, width, height); err != nil {
		return err
	}
	if v.debug {
		v.term.Status(fmt.Sprintf("%.2f, %.2f angle %.3f | %.2f ms",
			pose.X, pose.Y, pose.Angle, elapsed.Seconds()*1000))
	}
	v.dirty = false
	return nil
}
