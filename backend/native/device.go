// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/morph/backend"
	"github.com/gogpu/morph/internal/kernel"
	"github.com/gogpu/morph/internal/launch"
	"github.com/gogpu/wgpu/hal"
)

// bytesPerPixel is the size of one pixel in device buffers.
const bytesPerPixel = 4

// Device is a morph device backed by a wgpu HAL device.
type Device struct {
	mu sync.Mutex

	info   backend.Info
	limits gputypes.Limits

	device   hal.Device
	queue    hal.Queue
	external bool // shared device: don't destroy on Close

	mem *backend.MemoryManager

	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipelines  *pipelineCache
	uniforms   hal.Buffer

	closed bool
}

var _ backend.Device = (*Device)(nil)

// gpuBuffer is an image buffer in device memory.
type gpuBuffer struct {
	label  string
	pixels int
	buf    hal.Buffer
}

func (b *gpuBuffer) Len() int { return b.pixels }

func (b *gpuBuffer) bytes() uint64 {
	return uint64(b.pixels) * bytesPerPixel //nolint:gosec // pixels is positive
}

func newDevice(device hal.Device, queue hal.Queue, info backend.Info, limits gputypes.Limits, cfg backend.Config, external bool) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	d := &Device{
		info:     info,
		limits:   limits,
		device:   device,
		queue:    queue,
		external: external,
		mem:      backend.NewMemoryManager(cfg.MemoryBudget),
	}
	if err := d.createLayouts(); err != nil {
		d.destroyLayouts()
		return nil, err
	}
	d.pipelines = newPipelineCache(device, d.pipeLayout)
	return d, nil
}

func (d *Device) createLayouts() error {
	var err error
	d.bindLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "morph_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	d.pipeLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "morph_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{d.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	d.uniforms, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "morph_params",
		Size:  kernel.ParamsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create params buffer: %w", err)
	}
	return nil
}

func (d *Device) destroyLayouts() {
	if d.uniforms != nil {
		d.device.DestroyBuffer(d.uniforms)
		d.uniforms = nil
	}
	if d.pipeLayout != nil {
		d.device.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.bindLayout != nil {
		d.device.DestroyBindGroupLayout(d.bindLayout)
		d.bindLayout = nil
	}
}

// Info describes the device.
func (d *Device) Info() backend.Info { return d.info }

// Limits returns the compute launch limits.
func (d *Device) Limits() launch.Limits {
	threads := d.limits.MaxComputeInvocationsPerWorkgroup
	if x := d.limits.MaxComputeWorkgroupSizeX; x > 0 && x < threads {
		threads = x
	}
	def := launch.DefaultLimits()
	out := launch.Limits{
		MaxThreads:      int(threads),
		MaxGroupsPerDim: int(d.limits.MaxComputeWorkgroupsPerDimension),
	}
	if out.MaxThreads <= 0 {
		out.MaxThreads = def.MaxThreads
	}
	if out.MaxGroupsPerDim <= 0 {
		out.MaxGroupsPerDim = def.MaxGroupsPerDim
	}
	return out
}

// Memory returns allocation statistics.
func (d *Device) Memory() backend.MemoryStats { return d.mem.Stats() }

// Alloc creates a storage buffer for the given number of pixels.
func (d *Device) Alloc(label string, pixels int) (backend.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, backend.ErrDeviceClosed
	}
	if pixels <= 0 {
		return nil, fmt.Errorf("native: invalid buffer size %d", pixels)
	}
	size := uint64(pixels) * bytesPerPixel //nolint:gosec // checked positive
	if lim := d.info.MaxBufferBytes; lim > 0 && size > lim {
		return nil, fmt.Errorf("%w: %d bytes exceeds storage binding limit %d", backend.ErrOutOfMemory, size, lim)
	}
	return d.mem.Alloc(size, func() (backend.Buffer, error) {
		buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: label,
			Size:  size,
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create %s buffer: %w", backend.ErrOutOfMemory, label, err)
		}
		slogger().Debug("native: buffer created", "label", label, "bytes", size)
		return &gpuBuffer{label: label, pixels: pixels, buf: buf}, nil
	})
}

// Free destroys a buffer.
func (d *Device) Free(b backend.Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return backend.ErrDeviceClosed
	}
	return d.mem.Free(b, d.destroyBuffer)
}

func (d *Device) destroyBuffer(b backend.Buffer) {
	if gb, ok := b.(*gpuBuffer); ok && gb.buf != nil {
		d.device.DestroyBuffer(gb.buf)
		gb.buf = nil
	}
}

// Write uploads host pixels.
func (d *Device) Write(b backend.Buffer, src []uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	gb, err := d.bufferLocked(b)
	if err != nil {
		return err
	}
	if len(src) != gb.pixels {
		return fmt.Errorf("%w: %d bytes into %d pixel buffer", backend.ErrSizeMismatch, len(src), gb.pixels)
	}
	if err := d.queue.WriteBuffer(gb.buf, 0, kernel.Pack(src)); err != nil {
		return fmt.Errorf("native: write %s: %w", gb.label, err)
	}
	return nil
}

// Read downloads a buffer through a mappable staging buffer.
func (d *Device) Read(b backend.Buffer, dst []uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	gb, err := d.bufferLocked(b)
	if err != nil {
		return err
	}
	if len(dst) != gb.pixels {
		return fmt.Errorf("%w: %d pixel buffer into %d bytes", backend.ErrSizeMismatch, gb.pixels, len(dst))
	}

	size := gb.bytes()
	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "morph_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("native: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	err = d.submit("morph_readback", func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(gb.buf, staging, []hal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: size}})
	})
	if err != nil {
		return err
	}

	mapping, err := d.device.MapBuffer(staging, 0, size)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMapFailed, err)
	}
	packed := unsafe.Slice((*byte)(mapping.Ptr), size)
	kernel.Unpack(packed, dst)
	if err := d.device.UnmapBuffer(staging); err != nil {
		slogger().Warn("native: unmap staging buffer", "err", err)
	}
	return nil
}

// Dispatch runs kernel k over src into dst.
func (d *Device) Dispatch(k kernel.Kind, p kernel.Params, cfg launch.Config, src, dst backend.Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !k.Valid() {
		return fmt.Errorf("%w: %s", backend.ErrUnsupportedKernel, k)
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
		return backend.ErrAliasedBuffers
	}
	n := p.Pixels()
	if n != in.pixels || n != out.pixels {
		return fmt.Errorf("%w: %dx%d image over %d/%d pixel buffers", backend.ErrSizeMismatch, p.Width, p.Height, in.pixels, out.pixels)
	}
	lim := d.Limits()
	if _, err := launch.Manual(cfg.Threads, cfg.Blocks, lim); err != nil {
		return err
	}

	pipeline, err := d.pipelines.get(pipelineKey{kind: k, threads: cfg.Threads})
	if err != nil {
		return err
	}

	// Trimming keeps the shader's stride below n+Threads.
	cfg = cfg.Trim(n)
	x, y := launch.Grid(cfg, lim)
	//nolint:gosec // Blocks is bounded by launch.Manual
	if err := d.queue.WriteBuffer(d.uniforms, 0, kernel.Uniforms(p, uint32(cfg.Blocks), x)); err != nil {
		return fmt.Errorf("native: write params: %w", err)
	}

	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "morph_bind",
		Layout: d.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: d.uniforms.NativeHandle(), Offset: 0, Size: kernel.ParamsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: in.buf.NativeHandle(), Offset: 0, Size: in.bytes()}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: out.buf.NativeHandle(), Offset: 0, Size: out.bytes()}},
		},
	})
	if err != nil {
		return fmt.Errorf("native: create bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(bg)

	err = d.submit("morph_"+k.String(), func(enc hal.CommandEncoder) {
		pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: k.String()})
		pass.SetPipeline(pipeline)
		pass.SetBindGroup(0, bg, nil)
		pass.Dispatch(x, y, 1)
		pass.End()
	})
	if err != nil {
		return err
	}
	slogger().Debug("native: dispatch", "kernel", k.String(), "launch", cfg.String(), "grid_x", x, "grid_y", y)
	return nil
}

// submit records commands, submits them and waits for the device to idle.
func (d *Device) submit(label string, record func(hal.CommandEncoder)) error {
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return fmt.Errorf("native: begin encoding: %w", err)
	}
	record(enc)
	cmd, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmd)

	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("native: submit: %w", err)
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("native: wait for GPU: %w", err)
	}
	return nil
}

// Reset destroys every buffer. Compiled pipelines are kept.
func (d *Device) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return backend.ErrDeviceClosed
	}
	if err := d.device.WaitIdle(); err != nil {
		slogger().Warn("native: wait idle before reset", "err", err)
	}
	if n := d.mem.FreeAll(d.destroyBuffer); n > 0 {
		slogger().Debug("native: reset released buffers", "count", n)
	}
	return nil
}

// Close releases all resources. A shared device is left open.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	if err := d.device.WaitIdle(); err != nil {
		slogger().Warn("native: wait idle before close", "err", err)
	}
	d.mem.Close(d.destroyBuffer)
	d.pipelines.destroyAll()
	d.destroyLayouts()
	if !d.external {
		d.device.Destroy()
	}
	d.device = nil
	d.queue = nil
	return nil
}

func (d *Device) bufferLocked(b backend.Buffer) (*gpuBuffer, error) {
	if d.closed {
		return nil, backend.ErrDeviceClosed
	}
	gb, ok := b.(*gpuBuffer)
	if !ok || !d.mem.Owns(b) {
		return nil, backend.ErrUnknownBuffer
	}
	return gb, nil
}
