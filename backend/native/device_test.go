// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/morph/backend"
	"github.com/gogpu/morph/internal/kernel"
	"github.com/gogpu/morph/internal/launch"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// openNoop opens a device on the noop HAL backend.
func openNoop(t *testing.T) (hal.OpenDevice, hal.ExposedAdapter) {
	t.Helper()
	inst, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	adapters := inst.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		t.Fatal("noop backend has no adapters")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return open, adapters[0]
}

func newNoopDevice(t *testing.T, cfg backend.Config) *Device {
	t.Helper()
	open, ex := openNoop(t)
	limits := ex.Capabilities.Limits
	d, err := newDevice(open.Device, open.Queue, adapterInfo(ex.Info, limits), limits, cfg, false)
	if err != nil {
		t.Fatalf("newDevice: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// skipOnCompile skips when naga cannot compile the kernels on this version.
func skipOnCompile(t *testing.T, err error) {
	t.Helper()
	if errors.Is(err, ErrShaderCompile) {
		t.Skipf("Skipping: kernel compilation unavailable: %v", err)
	}
}

// =============================================================================
// Device info
// =============================================================================

func TestNoopDeviceInfo(t *testing.T) {
	d := newNoopDevice(t, backend.Config{})
	info := d.Info()
	if info.Name != "Noop Adapter" {
		t.Errorf("Info().Name = %q, want %q", info.Name, "Noop Adapter")
	}
	if info.Type != backend.TypeOther {
		t.Errorf("Info().Type = %q, want %q", info.Type, backend.TypeOther)
	}
	want := min(gputypes.DefaultLimits().MaxBufferSize, gputypes.DefaultLimits().MaxStorageBufferBindingSize)
	if info.MaxBufferBytes != want {
		t.Errorf("Info().MaxBufferBytes = %d, want %d", info.MaxBufferBytes, want)
	}
}

func TestNoopDeviceLimits(t *testing.T) {
	d := newNoopDevice(t, backend.Config{})
	lim := d.Limits()
	def := gputypes.DefaultLimits()
	if lim.MaxThreads != int(min(def.MaxComputeInvocationsPerWorkgroup, def.MaxComputeWorkgroupSizeX)) {
		t.Errorf("Limits().MaxThreads = %d", lim.MaxThreads)
	}
	if lim.MaxGroupsPerDim != int(def.MaxComputeWorkgroupsPerDimension) {
		t.Errorf("Limits().MaxGroupsPerDim = %d, want %d", lim.MaxGroupsPerDim, def.MaxComputeWorkgroupsPerDimension)
	}
}

func TestNewDeviceNil(t *testing.T) {
	if _, err := newDevice(nil, nil, backend.Info{}, gputypes.DefaultLimits(), backend.Config{}, false); !errors.Is(err, ErrNilDevice) {
		t.Errorf("newDevice(nil) error = %v, want ErrNilDevice", err)
	}
}

// =============================================================================
// Buffers
// =============================================================================

func TestNoopDeviceBuffers(t *testing.T) {
	d := newNoopDevice(t, backend.Config{})

	b, err := d.Alloc("src", 16)
	if err != nil {
		t.Fatalf("Alloc() error: %v", err)
	}
	if b.Len() != 16 {
		t.Errorf("Len() = %d, want 16", b.Len())
	}
	if got := d.Memory().UsedBytes; got != 16*bytesPerPixel {
		t.Errorf("UsedBytes = %d, want %d", got, 16*bytesPerPixel)
	}

	if err := d.Write(b, make([]uint8, 16)); err != nil {
		t.Errorf("Write() error: %v", err)
	}
	if err := d.Write(b, make([]uint8, 15)); !errors.Is(err, backend.ErrSizeMismatch) {
		t.Errorf("Write(15) error = %v, want ErrSizeMismatch", err)
	}
	out := make([]uint8, 16)
	if err := d.Read(b, out); err != nil {
		t.Errorf("Read() error: %v", err)
	}
	if err := d.Read(b, make([]uint8, 17)); !errors.Is(err, backend.ErrSizeMismatch) {
		t.Errorf("Read(17) error = %v, want ErrSizeMismatch", err)
	}

	if err := d.Free(b); err != nil {
		t.Fatalf("Free() error: %v", err)
	}
	if err := d.Free(b); !errors.Is(err, backend.ErrUnknownBuffer) {
		t.Errorf("second Free() error = %v, want ErrUnknownBuffer", err)
	}
}

func TestNoopDeviceAllocLimits(t *testing.T) {
	d := newNoopDevice(t, backend.Config{MemoryBudget: 64})

	if _, err := d.Alloc("zero", 0); err == nil {
		t.Error("Alloc(0) error = nil")
	}
	if _, err := d.Alloc("a", 16); err != nil {
		t.Fatalf("Alloc(16) error: %v", err)
	}
	if _, err := d.Alloc("b", 1); !errors.Is(err, backend.ErrMemoryBudgetExceeded) {
		t.Errorf("Alloc over budget error = %v, want ErrMemoryBudgetExceeded", err)
	}

	huge := int(d.Info().MaxBufferBytes/bytesPerPixel) + 1
	if _, err := d.Alloc("huge", huge); !errors.Is(err, backend.ErrOutOfMemory) {
		t.Errorf("Alloc(huge) error = %v, want ErrOutOfMemory", err)
	}
}

// =============================================================================
// Dispatch
// =============================================================================

func TestNoopDeviceDispatch(t *testing.T) {
	d := newNoopDevice(t, backend.Config{})
	src, _ := d.Alloc("src", 64)
	dst, _ := d.Alloc("dst", 64)
	p := kernel.Params{Width: 8, Height: 8, Radius: 1}

	cfg := launch.Config{Threads: 64, Blocks: 1}
	if err := d.Dispatch(kernel.Erode, p, cfg, src, dst); err != nil {
		skipOnCompile(t, err)
		t.Fatalf("Dispatch() error: %v", err)
	}
	if err := d.Dispatch(kernel.Erode, p, cfg, dst, src); err != nil {
		t.Fatalf("second Dispatch() error: %v", err)
	}
	if err := d.Dispatch(kernel.Dilate, p, cfg, src, dst); err != nil {
		t.Fatalf("Dispatch(dilate) error: %v", err)
	}

	hits, misses := d.pipelines.stats()
	if misses != 2 || hits != 1 {
		t.Errorf("pipeline cache hits=%d misses=%d, want 1/2", hits, misses)
	}
	if d.pipelines.size() != 2 {
		t.Errorf("pipeline cache size = %d, want 2", d.pipelines.size())
	}
}

func TestNoopDeviceDispatchErrors(t *testing.T) {
	d := newNoopDevice(t, backend.Config{})
	a, _ := d.Alloc("a", 16)
	b, _ := d.Alloc("b", 16)
	c, _ := d.Alloc("c", 8)
	p := kernel.Params{Width: 4, Height: 4}
	cfg := launch.Config{Threads: 16, Blocks: 1}

	if err := d.Dispatch(kernel.Copy, p, cfg, a, a); !errors.Is(err, backend.ErrAliasedBuffers) {
		t.Errorf("aliased error = %v, want ErrAliasedBuffers", err)
	}
	if err := d.Dispatch(kernel.Copy, p, cfg, a, c); !errors.Is(err, backend.ErrSizeMismatch) {
		t.Errorf("mismatch error = %v, want ErrSizeMismatch", err)
	}
	if err := d.Dispatch(kernel.Kind(77), p, cfg, a, b); !errors.Is(err, backend.ErrUnsupportedKernel) {
		t.Errorf("unknown kernel error = %v, want ErrUnsupportedKernel", err)
	}
	if err := d.Dispatch(kernel.Copy, p, launch.Config{Threads: 4096, Blocks: 1}, a, b); !errors.Is(err, launch.ErrInvalidConfig) {
		t.Errorf("oversized workgroup error = %v, want ErrInvalidConfig", err)
	}
}

// =============================================================================
// Reset / Close
// =============================================================================

func TestNoopDeviceResetClose(t *testing.T) {
	open, ex := openNoop(t)
	limits := ex.Capabilities.Limits
	d, err := newDevice(open.Device, open.Queue, adapterInfo(ex.Info, limits), limits, backend.Config{}, false)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := d.Alloc("a", 4)
	_, _ = d.Alloc("b", 4)

	if err := d.Reset(); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	if d.Memory().Buffers != 0 {
		t.Errorf("Buffers after Reset = %d", d.Memory().Buffers)
	}
	if err := d.Write(b, make([]uint8, 4)); !errors.Is(err, backend.ErrUnknownBuffer) {
		t.Errorf("Write after Reset error = %v, want ErrUnknownBuffer", err)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	if _, err := d.Alloc("c", 4); !errors.Is(err, backend.ErrDeviceClosed) {
		t.Errorf("Alloc after Close error = %v, want ErrDeviceClosed", err)
	}
}

// =============================================================================
// Enumeration and shared devices
// =============================================================================

func TestEnumerateSkipsCPUAdapters(t *testing.T) {
	for _, a := range enumerate() {
		if a.Info.Type == backend.TypeCPU {
			t.Errorf("enumerate() returned CPU adapter %q", a.Info.Name)
		}
		if a.Open == nil {
			t.Errorf("adapter %q has no Open", a.Info.Name)
		}
	}
	if !backend.IsRegistered(backend.ProviderNative) {
		t.Error("native provider not registered")
	}
}

func TestTypeRank(t *testing.T) {
	if typeRank(gputypes.DeviceTypeDiscreteGPU) >= typeRank(gputypes.DeviceTypeIntegratedGPU) {
		t.Error("discrete GPUs should rank before integrated")
	}
	if typeRank(gputypes.DeviceTypeIntegratedGPU) >= typeRank(gputypes.DeviceTypeOther) {
		t.Error("integrated GPUs should rank before other devices")
	}
}

type fakeProvider struct {
	device gpucontext.Device
	queue  gpucontext.Queue
}

func (p fakeProvider) Device() gpucontext.Device { return p.device }
func (p fakeProvider) Queue() gpucontext.Queue { return p.queue }
func (p fakeProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }
func (p fakeProvider) Adapter() gpucontext.Adapter { return nil }
func (p fakeProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "host gpu", Type: gpucontext.AdapterTypeDiscrete}
}

func TestFromProvider(t *testing.T) {
	open, _ := openNoop(t)
	d, err := FromProvider(fakeProvider{device: open.Device, queue: open.Queue}, backend.Config{})
	if err != nil {
		t.Fatalf("FromProvider() error: %v", err)
	}
	if d.Info().Name != "host gpu" || d.Info().Type != backend.TypeDiscrete {
		t.Errorf("Info() = %+v", d.Info())
	}
	if !d.external {
		t.Error("shared device should be marked external")
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestFromProviderNotHAL(t *testing.T) {
	if _, err := FromProvider(fakeProvider{device: "not a device", queue: 42}, backend.Config{}); !errors.Is(err, ErrProviderNotHAL) {
		t.Errorf("FromProvider() error = %v, want ErrProviderNotHAL", err)
	}
}
