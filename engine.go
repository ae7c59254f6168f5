package morph

import (
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/morph/backend"
	"github.com/gogpu/morph/backend/native"
)

// State is the lifecycle state of an Engine.
type State uint8

const (
	// StateUnreserved means no buffers are held.
	StateUnreserved State = iota
	// StateReserved means buffers are held but no image was uploaded.
	StateReserved
	// StateLoaded means an image is on the device and filters may run.
	StateLoaded
	// StateClosed means the engine was closed.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnreserved:
		return "unreserved"
	case StateReserved:
		return "reserved"
	case StateLoaded:
		return "loaded"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// MemoryStats reports the buffer memory held on a device.
type MemoryStats = backend.MemoryStats

// ProviderDeviceID is the DeviceInfo.ID of an engine opened with
// WithDeviceProvider.
const ProviderDeviceID = -1

// Engine runs morphology filters on one device.
//
// An engine holds at most one image, stored in two device buffers that the
// filters alternate between. All methods are synchronous and safe for
// concurrent use; concurrent calls are serialised.
//
// Typical use:
//
//	e, err := morph.Open(0)
//	if err != nil {
//	    return err
//	}
//	defer e.Close()
//
//	if err := e.Load(pix, w, h); err != nil {
//	    return err
//	}
//	if err := e.Erode(morph.Auto, 2); err != nil {
//	    return err
//	}
//	return e.Unload(pix)
type Engine struct {
	mu sync.Mutex

	slot *deviceSlot
	dev  backend.Device
	gen  uint64

	state  State
	width  int
	height int

	// cur holds the latest result, alt is the next dispatch target.
	cur backend.Buffer
	alt backend.Buffer
}

// Open creates an engine on device id, in [0, NumDevices()).
//
// The device is opened on first use and shared by every engine on the same
// id. Options that configure the device apply only when this call opens it.
func Open(id int, opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	cfg := backend.Config{MemoryBudget: o.memoryBudget, Workers: o.workers}

	var slot *deviceSlot
	if o.provider != nil {
		slot = providerSlot(o)
	} else {
		s, err := slotByID("open", id)
		if err != nil {
			return nil, err
		}
		slot = s
	}

	dev, err := slot.acquire(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{slot: slot, dev: dev, gen: slot.generation()}, nil
}

// providerSlot wraps a host-owned device in a private slot that no device
// id refers to.
func providerSlot(o options) *deviceSlot {
	p := o.provider
	return &deviceSlot{
		id: ProviderDeviceID,
		adapter: backend.Adapter{
			Provider: "provider",
			Info:     backend.Info{Name: p.AdapterInfo().Name, Backend: "shared"},
			Open: func(cfg backend.Config) (backend.Device, error) {
				return native.FromProvider(p, cfg)
			},
		},
	}
}

// Close releases the engine's buffers and its reference to the device.
// Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateClosed {
		return nil
	}
	e.syncLocked()
	if e.state != StateUnreserved {
		_ = e.freeLocked("close")
	}
	e.state = StateClosed
	return e.slot.release()
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncLocked()
	return e.state
}

// Size returns the reserved image size, or zeros when unreserved.
func (e *Engine) Size() (width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncLocked()
	if e.state == StateUnreserved || e.state == StateClosed {
		return 0, 0
	}
	return e.width, e.height
}

// Device describes the engine's device.
func (e *Engine) Device() DeviceInfo {
	info := e.slot.info()
	di := e.dev.Info()
	info.Name, info.Type, info.Driver = di.Name, di.Type, di.Driver
	info.MaxBufferBytes = di.MaxBufferBytes
	return info
}

// MemoryStats reports the memory held on the engine's device by every
// engine sharing it.
func (e *Engine) MemoryStats() MemoryStats {
	return e.dev.Memory()
}

// LaunchConfig resolves l for the reserved image and a filter radius,
// returning the threads per workgroup and the workgroup count a filter
// would use.
func (e *Engine) LaunchConfig(l Launch, radius int) (threads, blocks int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkLocked("launch config", StateReserved); err != nil {
		return 0, 0, err
	}
	if l == nil {
		l = Auto
	}
	cfg, err := l.resolve(e.width, e.height, radius, e.dev.Limits())
	if err != nil {
		return 0, 0, wrap("launch config", err, CodeInvalidLaunchConfig)
	}
	return cfg.Threads, cfg.Blocks, nil
}

// Reserve allocates device buffers for a width x height image.
// A failed reserve leaves nothing allocated.
func (e *Engine) Reserve(width, height int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reserveLocked(width, height)
}

// Upload copies an 8-bit grayscale image, row-major with no padding,
// to the device. len(src) must be width*height.
func (e *Engine) Upload(src []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.uploadLocked(src)
}

// Download copies the latest result to dst. len(dst) must be width*height.
func (e *Engine) Download(dst []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.downloadLocked(dst)
}

// Free releases the device buffers.
func (e *Engine) Free() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkLocked("free", StateReserved); err != nil {
		return err
	}
	return e.freeLocked("free")
}

// Load reserves buffers for a width x height image and uploads src.
// If the upload fails, the reservation made by Load is released.
func (e *Engine) Load(src []byte, width, height int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.reserveLocked(width, height); err != nil {
		return err
	}
	if err := e.uploadLocked(src); err != nil {
		_ = e.freeLocked("load")
		return err
	}
	return nil
}

// Unload downloads the latest result into dst and releases the buffers.
// The buffers are released even when the download fails; the download
// error is returned in that case.
func (e *Engine) Unload(dst []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	derr := e.downloadLocked(dst)
	if e.state != StateReserved && e.state != StateLoaded {
		return derr
	}
	ferr := e.freeLocked("unload")
	if derr != nil {
		return derr
	}
	return ferr
}

// syncLocked drops the buffers if the device was reset since they were
// reserved.
func (e *Engine) syncLocked() {
	if e.state != StateReserved && e.state != StateLoaded {
		return
	}
	if g := e.slot.generation(); g != e.gen {
		Logger().Debug("morph: buffers dropped by device reset", "device", e.slot.id)
		e.cur, e.alt = nil, nil
		e.width, e.height = 0, 0
		e.state = StateUnreserved
		e.gen = g
	}
}

// checkLocked validates that the engine is open and at least in state want.
func (e *Engine) checkLocked(op string, want State) error {
	if e.state == StateClosed {
		return newError(op, CodeEngineClosed, nil)
	}
	e.syncLocked()
	switch {
	case want >= StateReserved && e.state == StateUnreserved:
		return newError(op, CodeNotReserved, nil)
	case want == StateLoaded && e.state == StateReserved:
		return newError(op, CodeNotLoaded, nil)
	}
	return nil
}

func (e *Engine) reserveLocked(width, height int) error {
	const op = "reserve"
	if err := e.checkLocked(op, StateUnreserved); err != nil {
		return err
	}
	if e.state != StateUnreserved {
		return newError(op, CodeAlreadyReserved, nil)
	}
	if width <= 0 || height <= 0 || width > math.MaxInt32/height {
		return newError(op, CodeInvalidImageSize, fmt.Errorf("%dx%d", width, height))
	}

	n := width * height
	var cur, alt backend.Buffer
	gen, err := e.slot.pin(func() error {
		var err error
		if cur, err = e.dev.Alloc("morph.cur", n); err != nil {
			return err
		}
		if alt, err = e.dev.Alloc("morph.alt", n); err != nil {
			if ferr := e.dev.Free(cur); ferr != nil {
				Logger().Warn("morph: release after failed reserve", "err", ferr)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return wrap(op, err, CodeOutOfDeviceMemory)
	}

	e.cur, e.alt = cur, alt
	e.width, e.height = width, height
	e.gen = gen
	e.state = StateReserved
	Logger().Debug("morph: reserved", "width", width, "height", height, "device", e.slot.id)
	return nil
}

func (e *Engine) uploadLocked(src []byte) error {
	const op = "upload"
	if err := e.checkLocked(op, StateReserved); err != nil {
		return err
	}
	if len(src) != e.width*e.height {
		return newError(op, CodeSizeMismatch, fmt.Errorf("got %d bytes, want %d", len(src), e.width*e.height))
	}
	if err := e.dev.Write(e.cur, src); err != nil {
		return wrap(op, err, CodeTransferFailed)
	}
	e.state = StateLoaded
	return nil
}

func (e *Engine) downloadLocked(dst []byte) error {
	const op = "download"
	if err := e.checkLocked(op, StateLoaded); err != nil {
		return err
	}
	if len(dst) != e.width*e.height {
		return newError(op, CodeSizeMismatch, fmt.Errorf("got %d bytes, want %d", len(dst), e.width*e.height))
	}
	if err := e.dev.Read(e.cur, dst); err != nil {
		return wrap(op, err, CodeTransferFailed)
	}
	return nil
}

// freeLocked releases both buffers and always leaves the engine
// unreserved. It returns the first release error.
func (e *Engine) freeLocked(op string) error {
	var first error
	for _, b := range []backend.Buffer{e.cur, e.alt} {
		if b == nil {
			continue
		}
		if err := e.dev.Free(b); err != nil && first == nil {
			first = wrap(op, err, CodeUnknown)
		}
	}
	e.cur, e.alt = nil, nil
	e.width, e.height = 0, 0
	e.state = StateUnreserved
	return first
}
