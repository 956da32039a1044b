package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"raycaster/config"
	"raycaster/present"
	"raycaster/raycast"
)

var errUnknownPresenter = errors.New("unknown presentation backend")

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := newLogger(cfg.Log.Level, cfg.Log.Output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("raycaster failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

// loadConfig reads -config when given and applies explicitly set flags.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPathFlag != "" {
		loaded, err := config.Load(*configPathFlag)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "render-backend":
			cfg.Render.Backend = *renderBackendFlag
		case "workers":
			cfg.Render.Workers = *workersFlag
		case "collide":
			cfg.Controls.Collide = *collideFlag
		case "log-level":
			cfg.Log.Level = *logLevelFlag
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	return cfg, nil
}

// newLogger builds a JSON production logger writing to output.
func newLogger(level, output string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if output == "" {
		output = "stderr"
	}
	logConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}
	return logConfig.Build()
}

// run wires the scene, the projector and the chosen presenter.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	g, err := cfg.Grid()
	if err != nil {
		return err
	}
	v, err := cfg.NewViewer()
	if err != nil {
		return err
	}
	projector, err := newProjector(cfg, log)
	if err != nil {
		return err
	}
	defer projector.Close()

	log.Info("scene ready",
		zap.Int("grid_width", g.Width()),
		zap.Int("grid_height", g.Height()),
		zap.Int("solid_cells", g.SolidCount()),
		zap.Int("workers", projector.Workers()),
		zap.String("render_backend", string(projector.Backend())))

	s := &session{grid: g, viewer: v, controls: cfg.Controls}

	if *snapshotFlag != "" {
		return writeSnapshot(*snapshotFlag, s, projector, cfg, log)
	}

	if *recordDefaultPGO {
		stopProfile, err := startDefaultPGORecording(pgoProfilePath, log)
		if err != nil {
			return fmt.Errorf("starting CPU profile: %w", err)
		}
		defer stopProfile()
		s.walk = newAutoWalker(pgoRecordDuration, time.Now().UnixNano())
		log.Info("recording profile", zap.String("path", pgoProfilePath), zap.Duration("duration", pgoRecordDuration))
	}

	switch *backendFlag {
	case "window":
		return runWindow(s, projector, cfg, log)
	case "terminal":
		return runTerminal(ctx, s, projector, cfg, log)
	}
	return fmt.Errorf("%q: %w", *backendFlag, errUnknownPresenter)
}

// newProjector builds the configured projector, falling back to the CPU
// when the OpenCL backend cannot start.
func newProjector(cfg *config.Config, log *zap.Logger) (*raycast.Projector, error) {
	opts := cfg.ProjectorOptions()
	opts.Logger = log
	projector, err := raycast.NewProjector(opts)
	if err == nil || opts.Backend != raycast.BackendOpenCL {
		return projector, err
	}
	log.Warn("OpenCL unavailable, rendering on the CPU", zap.Error(err))
	opts.Backend = raycast.BackendCPU
	return raycast.NewProjector(opts)
}

// writeSnapshot renders the starting pose once and saves it at the window
// size.
func writeSnapshot(path string, s *session, p *raycast.Projector, cfg *config.Config, log *zap.Logger) error {
	start := time.Now()
	frame := p.Project(s.viewer.Pose(), s.grid, cfg.Render.Width, cfg.Render.Height)
	elapsed := time.Since(start)
	surface := image.Pt(cfg.Window.Width, cfg.Window.Height)
	if err := present.WritePNG(path, frame, cfg.Render.Width, cfg.Render.Height, surface); err != nil {
		return err
	}
	log.Info("snapshot written",
		zap.String("path", path),
		zap.Duration("render", elapsed),
		zap.Int("width", surface.X),
		zap.Int("height", surface.Y))
	return nil
}
