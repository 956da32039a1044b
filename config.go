package main

import "time"

// Shell tuning constants. Scene, resolution and control speeds come from the
// YAML configuration; these only shape the drivers around it.
const (
	pgoRecordDuration  = 15 * time.Second
	pgoProfilePath     = "default.pgo"
	terminalStepScale  = 4
	minimapFraction    = 4
	minimapMaxCell     = 12
	minimapRays        = 32
	autoWalkMinFrames  = 20
	autoWalkFrameRange = 50
	autoWalkLookahead  = 0.5
)
