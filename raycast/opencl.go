//go:build opencl

package raycast

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"

	"raycaster/grid"
	"raycaster/viewer"
)

// openCLCaster marches one column per work item. Distances come back as
// float32; a negative distance marks a miss.
type openCLCaster struct {
	context     *cl.Context
	queue       *cl.CommandQueue
	program     *cl.Program
	kernel      *cl.Kernel
	cellBuf     *cl.MemObject
	distanceBuf *cl.MemObject
	cellCount   int
	columnCount int
	cells       []int32
	distances   []float32
	gridSynced  bool
	fingerprint uint64
	deviceName  string
}

const castKernelSource = `__kernel void cast_columns(
    const int grid_width,
    const int grid_height,
    const float origin_x,
    const float origin_y,
    const float angle,
    const float fov,
    const int columns,
    const float first,
    const int steps,
    __global const int* cells,
    __global float* distances)
{
    int x = get_global_id(0);
    if (x >= columns) {
        return;
    }
    int ox = (int)origin_x;
    int oy = (int)origin_y;
    if (ox >= 0 && ox < grid_width && oy >= 0 && oy < grid_height && cells[oy * grid_width + ox] != 0) {
        distances[x] = 1.0f;
        return;
    }
    float ray = angle - fov * 0.5f + fov * (float)x / (float)columns;
    float dx = cos(ray);
    float dy = sin(ray);
    for (int i = 0; i <= steps; i++) {
        float d = first + (float)i;
        int mx = (int)(origin_x + d * dx);
        int my = (int)(origin_y + d * dy);
        if (mx >= 0 && mx < grid_width && my >= 0 && my < grid_height && cells[my * grid_width + mx] != 0) {
            distances[x] = d;
            return;
        }
    }
    distances[x] = -1.0f;
}`

// pickDevice returns the first GPU on any platform, or failing that the
// first CPU device.
func pickDevice() (*cl.Device, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms; install OpenCL drivers and verify with `clinfo`"
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	if len(platforms) == 0 {
		return nil, errors.New("no OpenCL platforms available; ensure a vendor driver is installed and detected by `clinfo`")
	}
	for _, kind := range []cl.DeviceType{cl.DeviceTypeGPU, cl.DeviceTypeCPU} {
		for _, p := range platforms {
			devices, err := p.GetDevices(kind)
			if err != nil && err != cl.ErrDeviceNotFound {
				continue
			}
			if len(devices) > 0 {
				return devices[0], nil
			}
		}
	}
	return nil, errors.New("no suitable OpenCL devices found")
}

func newOpenCLCaster() (*openCLCaster, error) {
	device, err := pickDevice()
	if err != nil {
		return nil, err
	}

	context, err := cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL context: %w", err)
	}
	queue, err := context.CreateCommandQueue(device, 0)
	if err != nil {
		context.Release()
		return nil, fmt.Errorf("creating OpenCL command queue: %w", err)
	}
	program, err := context.CreateProgramWithSource([]string{castKernelSource})
	if err != nil {
		queue.Release()
		context.Release()
		return nil, fmt.Errorf("creating OpenCL program: %w", err)
	}
	if err := program.BuildProgram([]*cl.Device{device}, ""); err != nil {
		program.Release()
		queue.Release()
		context.Release()
		if buildErr, ok := err.(cl.BuildError); ok {
			return nil, fmt.Errorf("building OpenCL program: %s", string(buildErr))
		}
		return nil, fmt.Errorf("building OpenCL program: %w", err)
	}
	kernel, err := program.CreateKernel("cast_columns")
	if err != nil {
		program.Release()
		queue.Release()
		context.Release()
		return nil, fmt.Errorf("creating OpenCL kernel: %w", err)
	}

	return &openCLCaster{
		context:    context,
		queue:      queue,
		program:    program,
		kernel:     kernel,
		deviceName: device.Name(),
	}, nil
}

// ensureCells uploads the grid when it differs from the one on the device.
func (c *openCLCaster) ensureCells(g *grid.Grid) error {
	size := g.Width() * g.Height()
	if c.gridSynced && c.fingerprint == g.Fingerprint() && c.cellCount == size {
		return nil
	}
	if c.cellBuf == nil || c.cellCount != size {
		if c.cellBuf != nil {
			c.cellBuf.Release()
			c.cellBuf = nil
		}
		buf, err := c.context.CreateEmptyBuffer(cl.MemReadOnly, size*int(unsafe.Sizeof(int32(0))))
		if err != nil {
			return fmt.Errorf("allocating cell buffer: %w", err)
		}
		c.cellBuf = buf
		c.cellCount = size
	}
	if cap(c.cells) < size {
		c.cells = make([]int32, size)
	}
	c.cells = c.cells[:size]
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			v := int32(0)
			if g.Solid(x, y) {
				v = 1
			}
			c.cells[y*g.Width()+x] = v
		}
	}
	ptr := unsafe.Pointer(&c.cells[0])
	byteLen := size * int(unsafe.Sizeof(int32(0)))
	if _, err := c.queue.EnqueueWriteBuffer(c.cellBuf, false, 0, byteLen, ptr, nil); err != nil {
		return fmt.Errorf("writing cell buffer: %w", err)
	}
	c.fingerprint = g.Fingerprint()
	c.gridSynced = true
	return nil
}

func (c *openCLCaster) ensureDistances(columns int) error {
	if c.distanceBuf != nil && c.columnCount == columns {
		return nil
	}
	if c.distanceBuf != nil {
		c.distanceBuf.Release()
		c.distanceBuf = nil
	}
	buf, err := c.context.CreateEmptyBuffer(cl.MemWriteOnly, columns*int(unsafe.Sizeof(float32(0))))
	if err != nil {
		return fmt.Errorf("allocating distance buffer: %w", err)
	}
	c.distanceBuf = buf
	c.columnCount = columns
	c.distances = make([]float32, columns)
	return nil
}

// CastColumns marches width columns on the device and stores the results in dst.
func (c *openCLCaster) CastColumns(p viewer.Pose, g *grid.Grid, width int, limit float64, dst []Result) error {
	if len(dst) < width {
		return fmt.Errorf("result buffer holds %d columns, want %d", len(dst), width)
	}
	first, steps, ok := marchRange(p, g, limit)
	if !ok {
		for x := 0; x < width; x++ {
			dst[x] = Miss(limit)
		}
		return nil
	}
	if err := c.ensureCells(g); err != nil {
		return err
	}
	if err := c.ensureDistances(width); err != nil {
		return err
	}
	if err := c.kernel.SetArgs(
		int32(g.Width()),
		int32(g.Height()),
		float32(p.X),
		float32(p.Y),
		float32(p.Angle),
		float32(p.FOV),
		int32(width),
		float32(first),
		int32(steps),
		c.cellBuf,
		c.distanceBuf,
	); err != nil {
		return fmt.Errorf("setting kernel arguments: %w", err)
	}
	if _, err := c.queue.EnqueueNDRangeKernel(c.kernel, nil, []int{width}, nil, nil); err != nil {
		return fmt.Errorf("enqueueing kernel: %w", err)
	}
	if _, err := c.queue.EnqueueReadBufferFloat32(c.distanceBuf, true, 0, c.distances, nil); err != nil {
		return fmt.Errorf("reading distance buffer: %w", err)
	}
	for x, d := range c.distances[:width] {
		if d < 0 {
			dst[x] = Miss(limit)
		} else {
			dst[x] = Hit(float64(d))
		}
	}
	return nil
}

func (c *openCLCaster) Close() {
	if c.distanceBuf != nil {
		c.distanceBuf.Release()
		c.distanceBuf = nil
	}
	if c.cellBuf != nil {
		c.cellBuf.Release()
		c.cellBuf = nil
	}
	if c.kernel != nil {
		c.kernel.Release()
		c.kernel = nil
	}
	if c.program != nil {
		c.program.Release()
		c.program = nil
	}
	if c.queue != nil {
		c.queue.Release()
		c.queue = nil
	}
	if c.context != nil {
		c.context.Release()
		c.context = nil
	}
}

func (c *openCLCaster) DeviceName() string {
	return c.deviceName
}
