package raycast

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"raycaster/grid"
	"raycaster/viewer"
)

func pillarHall(t testing.TB) *grid.Grid {
	t.Helper()
	g, err := grid.Parse([]string{
		"################",
		"#..............#",
		"#..#.....##....#",
		"#..............#",
		"#......#.......#",
		"#..............#",
		"#.##......#....#",
		"#..............#",
		"#.....#........#",
		"################",
	})
	require.NoError(t, err)
	return g
}

func TestProjectorMatchesSerial(t *testing.T) {
	g := pillarHall(t)
	p, err := NewProjector(Options{Workers: 4, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, 4, p.Workers())
	assert.Equal(t, BackendCPU, p.Backend())

	sizes := [][2]int{{640, 480}, {333, 101}, {48, 30}, {7, 5}}
	var frame []byte
	for i := 0; i < 24; i++ {
		pose := viewer.Pose{
			X:     2.5 + float64(i%10)*0.9,
			Y:     1.5 + float64(i%7)*0.95,
			Angle: float64(i) * 0.37,
			FOV:   math.Pi / 2,
		}
		size := sizes[i%len(sizes)]
		want := Project(pose, g, size[0], size[1])
		frame = p.ProjectInto(frame, pose, g, size[0], size[1])
		require.Equal(t, want, frame, "frame %d at %dx%d", i, size[0], size[1])
	}
}

func TestProjectorReusesBuffer(t *testing.T) {
	g := pillarHall(t)
	p, err := NewProjector(Options{Workers: 2})
	require.NoError(t, err)
	defer p.Close()

	pose := viewer.Pose{X: 5, Y: 5, FOV: 1}
	dst := make([]byte, 64*48)
	out := p.ProjectInto(dst, pose, g, 64, 48)
	assert.Same(t, &dst[0], &out[0])

	out = p.ProjectInto(dst, pose, g, 32, 48)
	assert.Len(t, out, 32*48)
	assert.Empty(t, p.Project(pose, g, 0, 0))
}

func TestProjectorConcurrentCallers(t *testing.T) {
	g := pillarHall(t)
	p, err := NewProjector(Options{Workers: 3})
	require.NoError(t, err)
	defer p.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pose := viewer.Pose{X: 7.5, Y: 4.5, Angle: float64(i), FOV: 1.2}
			assert.Equal(t, Project(pose, g, 200, 100), p.Project(pose, g, 200, 100))
		}(i)
	}
	wg.Wait()
}

func TestProjectorAfterClose(t *testing.T) {
	g := pillarHall(t)
	p, err := NewProjector(Options{Workers: 4})
	require.NoError(t, err)
	p.Close()
	p.Close()

	pose := viewer.Pose{X: 4.5, Y: 4.5, Angle: 2, FOV: 1}
	assert.Equal(t, Project(pose, g, 128, 64), p.Project(pose, g, 128, 64))
}

func TestProjectorMaxDistance(t *testing.T) {
	g := pillarHall(t)
	p, err := NewProjector(Options{Workers: 1, MaxDistance: 2})
	require.NoError(t, err)
	defer p.Close()

	pose := viewer.Pose{X: 1.5, Y: 1.5, Angle: 0, FOV: 0.2}
	assert.Equal(t, 2.0, p.Limit(pose, g))
	for _, r := range p.Cast(pose, g, 8) {
		assert.False(t, r.Hit)
		assert.Equal(t, 2.0, r.Distance)
	}
	for _, v := range p.Project(pose, g, 8, 8) {
		assert.Equal(t, byte(Unlit), v)
	}

	_, err = NewProjector(Options{MaxDistance: -1})
	assert.ErrorIs(t, err, ErrInvalidMaxDistance)
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendCPU, b)

	b, err = ParseBackend("opencl")
	require.NoError(t, err)
	assert.Equal(t, BackendOpenCL, b)

	_, err = ParseBackend("vulkan")
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = NewProjector(Options{Backend: "vulkan"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestColumnSpans(t *testing.T) {
	spans := buildColumnSpans(40, 16)
	assert.Equal(t, []span{{0, 15}, {16, 31}, {32, 39}}, spans)

	masks := assignColumnSpans(2, spans)
	require.Len(t, masks, 2)
	assert.Equal(t, []span{{0, 15}, {32, 39}}, masks[0].spans)
	assert.Equal(t, []span{{16, 31}}, masks[1].spans)

	// every column is owned by exactly one worker
	owner := make([]int, 1000)
	for _, m := range assignColumnSpans(7, buildColumnSpans(1000, columnChunk)) {
		for _, sp := range m.spans {
			for x := sp.start; x <= sp.end; x++ {
				owner[x]++
			}
		}
	}
	for x, n := range owner {
		require.Equal(t, 1, n, "column %d", x)
	}
}

func BenchmarkProject(b *testing.B) {
	g := pillarHall(b)
	pose := viewer.Pose{X: 7.5, Y: 4.5, Angle: 0.3, FOV: math.Pi / 2}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Project(pose, g, 640, 480)
	}
}

func BenchmarkProjectorPool(b *testing.B) {
	g := pillarHall(b)
	p, err := NewProjector(Options{})
	require.NoError(b, err)
	defer p.Close()
	pose := viewer.Pose{X: 7.5, Y: 4.5, Angle: 0.3, FOV: math.Pi / 2}
	var frame []byte
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		frame = p.ProjectInto(frame, pose, g, 640, 480)
	}
}
