package main

import "flag"

// Command-line flags. Flags that are set explicitly override the values loaded
// from the configuration document.
var (
	// configPathFlag points at an optional YAML scene and settings document.
	configPathFlag = flag.String("config", "", "path to a YAML configuration file (defaults to the built-in room)")

	// backendFlag picks the presenter: a desktop window or the terminal.
	backendFlag = flag.String("backend", "window", "presentation backend: window or terminal")

	// renderBackendFlag overrides render.backend.
	renderBackendFlag = flag.String("render-backend", "", "column caster: cpu or opencl (overrides render.backend)")

	// snapshotFlag renders one frame to a PNG and exits.
	snapshotFlag = flag.String("snapshot", "", "render a single frame to this PNG path and exit")

	workersFlag = flag.Int("workers", -1, "column workers, 0 for one per CPU (overrides render.workers)")

	// collideFlag keeps the viewer out of solid cells.
	collideFlag = flag.Bool("collide", false, "block movement into solid cells (overrides controls.collide)")

	// minimapFlag draws the grid and column rays over the window.
	minimapFlag = flag.Bool("minimap", false, "draw a top-down minimap with column rays")

	// debugFlag enables the FPS and frame time overlay.
	debugFlag = flag.Bool("debug", false, "show FPS, pose and frame time overlay")

	logLevelFlag = flag.String("log-level", "", "debug, info, warn or error (overrides log.level)")

	// recordDefaultPGO triggers a scripted walk to produce default.pgo.
	recordDefaultPGO = flag.Bool("record-default-pgo", false, "walk randomly for 15s while capturing default.pgo")
)
