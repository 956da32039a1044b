//go:build !opencl

package raycast

import (
	"errors"

	"raycaster/grid"
	"raycaster/viewer"
)

type openCLCaster struct{}

func newOpenCLCaster() (*openCLCaster, error) {
	return nil, errors.New("OpenCL support is not enabled; rebuild with -tags opencl")
}

func (c *openCLCaster) CastColumns(_ viewer.Pose, _ *grid.Grid, _ int, _ float64, _ []Result) error {
	return errors.New("OpenCL caster unavailable")
}

func (c *openCLCaster) Close() {}

func (c *openCLCaster) DeviceName() string { return "" }
