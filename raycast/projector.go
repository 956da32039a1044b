package raycast

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"raycaster/grid"
	"raycaster/viewer"
)

// Backend selects where column rays are marched.
type Backend string

const (
	BackendCPU    Backend = "cpu"
	BackendOpenCL Backend = "opencl"
)

var (
	ErrUnknownBackend     = errors.New("unknown render backend")
	ErrInvalidMaxDistance = errors.New("max distance must not be negative")
)

// ParseBackend maps a configuration string onto a Backend. The empty string
// selects the CPU.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendCPU:
		return BackendCPU, nil
	case BackendOpenCL:
		return BackendOpenCL, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownBackend)
}

// columnChunk is the number of adjacent columns handed out as one span.
// Small spans interleave cheap and expensive parts of the view across workers.
const columnChunk = 16

// Options configures a Projector.
type Options struct {
	// Workers is the number of column workers; 0 uses runtime.NumCPU().
	Workers int
	// MaxDistance overrides the automatic march limit when positive.
	MaxDistance float64
	Backend     Backend
	Logger      *zap.Logger
}

// span is an inclusive column range.
type span struct{ start, end int }

// workerMask collects the column spans assigned to one worker goroutine.
type workerMask struct {
	spans []span
}

// frameJob is the read-only input shared by all workers for one frame.
type frameJob struct {
	buf           []byte
	pose          viewer.Pose
	grid          *grid.Grid
	width, height int
	limit         float64
}

// Projector renders frames with a persistent pool of column workers. Each
// worker writes only the columns of its own spans, so the frame buffer needs
// no locking. Calls to Project are serialised.
type Projector struct {
	opts Options
	log  *zap.Logger

	frameMu sync.Mutex

	workerMu      sync.Mutex
	workerCond    *sync.Cond
	workerCount   int
	workerStep    int
	workerPending int
	workerMasks   []workerMask
	maskWidth     int
	job           frameJob
	closed        bool
	wg            sync.WaitGroup

	gpu *openCLCaster
	// results is scratch space for device-side column casts.
	results []Result
}

// NewProjector validates opts and starts the worker goroutines. Selecting the
// OpenCL backend fails when no device can be initialised; callers may retry
// with BackendCPU.
func NewProjector(opts Options) (*Projector, error) {
	if opts.MaxDistance < 0 {
		return nil, ErrInvalidMaxDistance
	}
	backend, err := ParseBackend(string(opts.Backend))
	if err != nil {
		return nil, err
	}
	opts.Backend = backend
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	p := &Projector{
		opts:        opts,
		log:         opts.Logger.Named("raycast"),
		workerCount: opts.Workers,
	}
	if backend == BackendOpenCL {
		gpu, err := newOpenCLCaster()
		if err != nil {
			return nil, fmt.Errorf("initialising OpenCL backend: %w", err)
		}
		p.gpu = gpu
		p.log.Info("OpenCL column caster enabled", zap.String("device", gpu.DeviceName()))
	}
	p.startWorkers()
	p.log.Debug("projector ready",
		zap.String("backend", string(backend)),
		zap.Int("workers", p.workerCount),
		zap.Float64("max_distance", opts.MaxDistance))
	return p, nil
}

// Workers reports the size of the column worker pool.
func (p *Projector) Workers() int { return p.workerCount }

// Backend reports the backend in use.
func (p *Projector) Backend() Backend {
	if p.gpu != nil {
		return BackendOpenCL
	}
	return BackendCPU
}

// Limit returns the march bound used for the pose.
func (p *Projector) Limit(pose viewer.Pose, g *grid.Grid) float64 {
	if p.opts.MaxDistance > 0 {
		return p.opts.MaxDistance
	}
	return Limit(pose, g)
}

// Project renders a fresh frame; see ProjectInto.
func (p *Projector) Project(pose viewer.Pose, g *grid.Grid, width, height int) []byte {
	return p.ProjectInto(nil, pose, g, width, height)
}

// ProjectInto renders a width x height frame into dst, reusing it when it
// already holds width*height samples, and returns the frame. The output
// matches the package-level Project for the same arguments.
func (p *Projector) ProjectInto(dst []byte, pose viewer.Pose, g *grid.Grid, width, height int) []byte {
	if width <= 0 || height <= 0 {
		return []byte{}
	}
	if len(dst) != width*height {
		dst = make([]byte, width*height)
	}
	p.frameMu.Lock()
	defer p.frameMu.Unlock()

	limit := p.Limit(pose, g)
	if p.gpu != nil {
		if p.projectDevice(dst, pose, g, width, height, limit) {
			return dst
		}
	}
	if p.workerCount <= 1 || width < 2*columnChunk {
		renderColumns(dst, pose, g, width, height, limit, span{start: 0, end: width - 1})
		return dst
	}

	p.workerMu.Lock()
	if p.closed {
		p.workerMu.Unlock()
		renderColumns(dst, pose, g, width, height, limit, span{start: 0, end: width - 1})
		return dst
	}
	if p.maskWidth != width {
		p.workerMasks = assignColumnSpans(p.workerCount, buildColumnSpans(width, columnChunk))
		p.maskWidth = width
		p.log.Debug("rebuilt column masks", zap.Int("width", width), zap.Int("workers", p.workerCount))
	}
	p.job = frameJob{buf: dst, pose: pose, grid: g, width: width, height: height, limit: limit}
	p.workerPending = p.workerCount
	p.workerStep++
	p.workerCond.Broadcast()
	for p.workerPending > 0 {
		p.workerCond.Wait()
	}
	p.job = frameJob{}
	p.workerMu.Unlock()
	return dst
}

// Cast marches every column of a frame width columns wide and returns the
// per-column results.
func (p *Projector) Cast(pose viewer.Pose, g *grid.Grid, width int) []Result {
	return CastColumns(pose, g, width, p.Limit(pose, g))
}

// projectDevice marches the columns on the OpenCL device and fills dst on the
// host. A device error disables the backend for the rest of the run.
func (p *Projector) projectDevice(dst []byte, pose viewer.Pose, g *grid.Grid, width, height int, limit float64) bool {
	if cap(p.results) < width {
		p.results = make([]Result, width)
	}
	results := p.results[:width]
	if err := p.gpu.CastColumns(pose, g, width, limit, results); err != nil {
		p.log.Warn("OpenCL cast failed, falling back to CPU", zap.Error(err))
		p.gpu.Close()
		p.gpu = nil
		return false
	}
	for x, r := range results {
		fillColumn(dst, width, height, x, r)
	}
	return true
}

// Close stops the worker goroutines and releases device resources. Frames
// requested afterwards are rendered on the calling goroutine.
func (p *Projector) Close() {
	p.frameMu.Lock()
	defer p.frameMu.Unlock()
	p.workerMu.Lock()
	if p.closed {
		p.workerMu.Unlock()
		return
	}
	p.closed = true
	if p.workerCond != nil {
		p.workerCond.Broadcast()
	}
	p.workerMu.Unlock()
	p.wg.Wait()
	if p.gpu != nil {
		p.gpu.Close()
		p.gpu = nil
	}
}

// startWorkers launches the background goroutines that render column spans.
func (p *Projector) startWorkers() {
	if p.workerCount <= 1 {
		return
	}
	p.workerCond = sync.NewCond(&p.workerMu)
	p.wg.Add(p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		go p.workerLoop(i)
	}
}

// workerLoop renders the spans assigned to the worker each time a new frame
// is published.
func (p *Projector) workerLoop(index int) {
	defer p.wg.Done()
	lastStep := 0
	p.workerMu.Lock()
	for {
		for p.workerStep == lastStep && !p.closed {
			p.workerCond.Wait()
		}
		if p.workerStep == lastStep {
			p.workerMu.Unlock()
			return
		}
		lastStep = p.workerStep
		var mask workerMask
		if index < len(p.workerMasks) {
			mask = p.workerMasks[index]
		}
		job := p.job
		p.workerMu.Unlock()

		for _, sp := range mask.spans {
			renderColumns(job.buf, job.pose, job.grid, job.width, job.height, job.limit, sp)
		}

		p.workerMu.Lock()
		p.workerPending--
		if p.workerPending == 0 {
			p.workerCond.Broadcast()
		}
	}
}

// buildColumnSpans cuts [0, width) into inclusive spans of at most chunk columns.
func buildColumnSpans(width, chunk int) []span {
	if chunk < 1 {
		chunk = 1
	}
	spans := make([]span, 0, (width+chunk-1)/chunk)
	for start := 0; start < width; start += chunk {
		end := start + chunk - 1
		if end > width-1 {
			end = width - 1
		}
		spans = append(spans, span{start: start, end: end})
	}
	return spans
}

// assignColumnSpans distributes spans across workers in round robin fashion.
func assignColumnSpans(workerCount int, spans []span) []workerMask {
	if workerCount < 1 {
		workerCount = 1
	}
	masks := make([]workerMask, workerCount)
	for idx, sp := range spans {
		workerIdx := idx % workerCount
		masks[workerIdx].spans = append(masks[workerIdx].spans, sp)
	}
	return masks
}
