package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raycaster/grid"
	"raycaster/raycast"
	"raycaster/viewer"
)

func TestDefaultIsReferenceScene(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	g, err := cfg.Grid()
	require.NoError(t, err)
	assert.Equal(t, 10, g.Width())
	assert.Equal(t, 10, g.Height())
	assert.Equal(t, grid.Solid, g.At(0, 0))
	assert.Equal(t, grid.Empty, g.At(4, 4))

	v, err := cfg.NewViewer()
	require.NoError(t, err)
	assert.Equal(t, viewer.Pose{X: 4, Y: 4, Angle: math.Pi / 4, FOV: math.Pi / 2}, v.Pose())

	assert.Equal(t, Size{Width: 640, Height: 480}, cfg.Render.Size)
	assert.Equal(t, raycast.BackendCPU, cfg.ProjectorOptions().Backend)
}

func TestDefaultMapIsACopy(t *testing.T) {
	a := Default()
	a.Map[1] = "#########"
	assert.NoError(t, Default().Validate())
}

func TestDecodeOverridesDefaults(t *testing.T) {
	doc := `
window:
  width: 1280
  height: 720
render:
  width: 320
  workers: 3
  max_distance: 40
viewer:
  x: 2.5
  y: 1.5
  angle: 0
controls:
  collide: true
map:
  - "#####"
  - "#...#"
  - "#####"
`
	cfg, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, "raycaster", cfg.Window.Title)
	assert.Equal(t, 320, cfg.Render.Width)
	assert.Equal(t, 480, cfg.Render.Height)
	assert.True(t, cfg.Controls.Collide)
	assert.Equal(t, 60, cfg.Controls.TPS)
	assert.Len(t, cfg.Map, 3)

	opts := cfg.ProjectorOptions()
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, 40.0, opts.MaxDistance)

	v, err := cfg.NewViewer()
	require.NoError(t, err)
	assert.Equal(t, 2.5, v.X())
	assert.Equal(t, math.Pi/2, v.FOV())
}

func TestDecodeEmptyDocument(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"render size", "render: {width: 0}", ErrInvalid},
		{"window size", "window: {height: -1}", ErrInvalid},
		{"workers", "render: {workers: -2}", ErrInvalid},
		{"max distance", "render: {max_distance: -1}", ErrInvalid},
		{"tps", "controls: {tps: -5}", ErrInvalid},
		{"speed", "controls: {move_speed: -1}", ErrInvalid},
		{"backend", "render: {backend: metal}", raycast.ErrUnknownBackend},
		{"ragged map", "map: ['###', '##']", grid.ErrRaggedRows},
		{"bad map rune", "map: ['#x#']", grid.ErrInvalidCell},
		{"fov", "viewer: {fov: 7}", viewer.ErrInvalidFOV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := Decode(strings.NewReader("rendr: {width: 10}"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = Decode(strings.NewReader("map: []"))
	assert.ErrorIs(t, err, grid.ErrNoRows)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte("render: {width: 200, height: 100}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 200, Height: 100}, cfg.Render.Size)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
