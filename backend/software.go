package backend

import (
	"fmt"
	"sync"

	"github.com/gogpu/morph/internal/kernel"
	"github.com/gogpu/morph/internal/launch"
	"github.com/gogpu/morph/internal/parallel"
)

// softwareLimits are the launch limits of the CPU device, equal to the
// WebGPU defaults.
var softwareLimits = launch.Limits{MaxThreads: 256, MaxGroupsPerDim: 65535}

// init registers the software provider on package import.
func init() {
	Register(ProviderSoftware, func() []Adapter {
		return []Adapter{{
			Info: softwareInfo(),
			Open: func(cfg Config) (Device, error) {
				return NewSoftwareDevice(cfg), nil
			},
		}}
	})
}

func softwareInfo() Info {
	return Info{
		Name:           "Go CPU",
		Backend:        "cpu",
		Type:           TypeCPU,
		Driver:         "morph software",
		MaxBufferBytes: 1 << 32,
	}
}

// SoftwareDevice runs kernels on the CPU.
//
// Launches are executed exactly as a GPU would: every workgroup is a task
// on the worker pool and every invocation walks the image with the same
// grid-stride loop as the WGSL kernels. Results are deterministic because
// each pixel is written by exactly one invocation.
type SoftwareDevice struct {
	mu     sync.Mutex
	pool   *parallel.Pool
	mem    *MemoryManager
	closed bool
}

var _ Device = (*SoftwareDevice)(nil)

type hostBuffer struct {
	label string
	pix   []uint8
}

func (b *hostBuffer) Len() int { return len(b.pix) }

// NewSoftwareDevice creates a CPU device.
func NewSoftwareDevice(cfg Config) *SoftwareDevice {
	return &SoftwareDevice{
		pool: parallel.New(cfg.Workers),
		mem:  NewMemoryManager(cfg.MemoryBudget),
	}
}

// Info describes the device.
func (d *SoftwareDevice) Info() Info { return softwareInfo() }

// Limits returns the launch limits.
func (d *SoftwareDevice) Limits() launch.Limits { return softwareLimits }

// Memory returns allocation statistics.
func (d *SoftwareDevice) Memory() MemoryStats { return d.mem.Stats() }

// Alloc reserves a zeroed buffer.
func (d *SoftwareDevice) Alloc(label string, pixels int) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceClosed
	}
	if pixels <= 0 {
		return nil, fmt.Errorf("backend: invalid buffer size %d", pixels)
	}
	size := uint64(pixels) //nolint:gosec // checked positive
	if size > softwareInfo().MaxBufferBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds buffer limit", ErrOutOfMemory, size)
	}
	return d.mem.Alloc(size, func() (Buffer, error) {
		return &hostBuffer{label: label, pix: make([]uint8, pixels)}, nil
	})
}

// Free releases a buffer.
func (d *SoftwareDevice) Free(b Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDeviceClosed
	}
	return d.mem.Free(b, nil)
}

// Write copies host pixels into b.
func (d *SoftwareDevice) Write(b Buffer, src []uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	hb, err := d.bufferLocked(b)
	if err != nil {
		return err
	}
	if len(src) != len(hb.pix) {
		return fmt.Errorf("%w: %d bytes into %d pixel buffer", ErrSizeMismatch, len(src), len(hb.pix))
	}
	copy(hb.pix, src)
	return nil
}

// Read copies b into host memory.
func (d *SoftwareDevice) Read(b Buffer, dst []uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	hb, err := d.bufferLocked(b)
	if err != nil {
		return err
	}
	if len(dst) != len(hb.pix) {
		return fmt.Errorf("%w: %d pixel buffer into %d bytes", ErrSizeMismatch, len(hb.pix), len(dst))
	}
	copy(dst, hb.pix)
	return nil
}

// Dispatch runs kernel k over src into dst.
func (d *SoftwareDevice) Dispatch(k kernel.Kind, p kernel.Params, cfg launch.Config, src, dst Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !k.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedKernel, k)
	}
	in, err := d.bufferLocked(src)
	if err != nil {
		return err
	}
	out, err := d.bufferLocked(dst)
	if err != nil {
		return err
	}
	if in == out {
		return ErrAliasedBuffers
	}
	n := p.Pixels()
	if n != len(in.pix) || n != len(out.pix) {
		return fmt.Errorf("%w: %dx%d image over %d/%d pixel buffers", ErrSizeMismatch, p.Width, p.Height, len(in.pix), len(out.pix))
	}
	if cfg.Threads <= 0 || cfg.Blocks <= 0 {
		return fmt.Errorf("backend: invalid launch %s", cfg)
	}

	threads := cfg.Threads
	// Workgroups starting past the last pixel have nothing to do.
	active := cfg.Trim(n).Blocks
	stride := threads * active
	grain := max(1, active/(d.pool.Workers()*4))

	d.pool.For(active, grain, func(lo, hi int) {
		for block := lo; block < hi; block++ {
			base := block * threads
			for t := range threads {
				for i := base + t; i < n; i += stride {
					out.pix[i] = kernel.Pixel(k, p, in.pix, i)
				}
			}
		}
	})

	Logger().Debug("software: dispatch", "kernel", k.String(), "launch", cfg.String(), "pixels", n)
	return nil
}

// Reset releases every buffer.
func (d *SoftwareDevice) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDeviceClosed
	}
	if n := d.mem.FreeAll(nil); n > 0 {
		Logger().Debug("software: reset released buffers", "count", n)
	}
	return nil
}

// Close releases the device.
func (d *SoftwareDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.mem.Close(nil)
	d.pool.Close()
	return nil
}

func (d *SoftwareDevice) bufferLocked(b Buffer) (*hostBuffer, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}
	hb, ok := b.(*hostBuffer)
	if !ok || !d.mem.Owns(b) {
		return nil, ErrUnknownBuffer
	}
	return hb, nil
}
