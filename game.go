package main

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"raycaster/config"
	"raycaster/raycast"
)

// Game is the window presenter: it feeds held keys into the session and
// blits each projected frame onto the logical screen.
type Game struct {
	*session
	projector *raycast.Projector
	log       *zap.Logger

	renderW, renderH int

	frame  []byte
	pixels []byte

	minimap bool
	debug   bool

	lastFrame time.Duration
}

func newGame(s *session, p *raycast.Projector, cfg *config.Config, log *zap.Logger) *Game {
	return &Game{
		session:   s,
		projector: p,
		log:       log.Named("window"),
		renderW:   cfg.Render.Width,
		renderH:   cfg.Render.Height,
		minimap:   *minimapFlag,
		debug:     *debugFlag,
	}
}

// Update applies one tick of input. Escape ends the run, as does the end of
// a scripted walk.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		g.minimap = !g.minimap
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF3) {
		g.debug = !g.debug
	}
	if !g.tick(manualIntent()) {
		g.log.Info("scripted walk finished")
		return ebiten.Termination
	}
	return nil
}

// runWindow opens the desktop window and blocks until it is closed.
func runWindow(s *session, p *raycast.Projector, cfg *config.Config, log *zap.Logger) error {
	g := newGame(s, p, cfg, log)
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(cfg.Controls.TPS)
	g.log.Info("opening window",
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
		zap.Int("render_width", g.renderW),
		zap.Int("render_height", g.renderH))
	return ebiten.RunGame(g)
}
