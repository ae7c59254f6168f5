package morph

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/morph/backend"

	// Register the wgpu HAL provider.
	_ "github.com/gogpu/morph/backend/native"
)

// DeviceInfo describes an enumerated device.
type DeviceInfo struct {
	// ID is the index to pass to Open and ResetDevice.
	ID int

	// Name is the adapter name.
	Name string

	// Backend is the API the device runs on ("vulkan", "metal", "cpu", ...).
	Backend string

	// Type is "discrete", "integrated", "cpu" or "other".
	Type string

	// Driver is the driver description, if known.
	Driver string

	// Provider is the registry provider that found the device.
	Provider string

	// MaxBufferBytes is the largest single buffer the device accepts.
	MaxBufferBytes uint64
}

// deviceSlot is one entry of the device table. The device is opened by the
// first engine that selects the slot and closed when the last one closes.
type deviceSlot struct {
	id      int
	adapter backend.Adapter

	mu   sync.Mutex
	dev  backend.Device
	refs int

	// gen is bumped by every reset. Engines compare it against the value
	// seen at reservation time to detect that their buffers are gone.
	gen atomic.Uint64
}

var (
	tableMu sync.Mutex
	table   []*deviceSlot
	loaded  bool
)

// deviceTable enumerates devices once per process.
func deviceTable() []*deviceSlot {
	tableMu.Lock()
	defer tableMu.Unlock()
	if !loaded {
		for i, a := range backend.Enumerate() {
			table = append(table, &deviceSlot{id: i, adapter: a})
		}
		loaded = true
		Logger().Debug("morph: devices enumerated", "count", len(table))
	}
	return table
}

func slotByID(op string, id int) (*deviceSlot, error) {
	t := deviceTable()
	if id < 0 || id >= len(t) {
		return nil, newError(op, CodeDeviceNotFound, nil)
	}
	return t[id], nil
}

// NumDevices returns the number of devices available to Open. The CPU
// device is always present, so the result is at least 1.
func NumDevices() int {
	return len(deviceTable())
}

// Devices describes every available device, GPUs first.
func Devices() []DeviceInfo {
	t := deviceTable()
	out := make([]DeviceInfo, len(t))
	for i, s := range t {
		out[i] = s.info()
	}
	return out
}

// ResetDevice releases every buffer held on device id by any engine.
// Engines that had reserved buffers there return to the unreserved state.
// Resetting a device no engine has opened is a no-op.
func ResetDevice(id int) error {
	s, err := slotByID("reset device", id)
	if err != nil {
		return err
	}
	return s.reset()
}

// ResetAllDevices resets every open device. It returns the first error
// and still attempts the remaining devices.
func ResetAllDevices() error {
	var first error
	for _, s := range deviceTable() {
		if err := s.reset(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *deviceSlot) info() DeviceInfo {
	i := s.adapter.Info
	return DeviceInfo{
		ID:             s.id,
		Name:           i.Name,
		Backend:        i.Backend,
		Type:           i.Type,
		Driver:         i.Driver,
		Provider:       s.adapter.Provider,
		MaxBufferBytes: i.MaxBufferBytes,
	}
}

// acquire opens the device on first use and takes a reference.
func (s *deviceSlot) acquire(cfg backend.Config) (backend.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		if s.adapter.Open == nil {
			return nil, newError("open", CodeDeviceUnavailable, backend.ErrBackendNotAvailable)
		}
		dev, err := s.adapter.Open(cfg)
		if err != nil {
			return nil, wrap("open", err, CodeDeviceUnavailable)
		}
		s.dev = dev
		Logger().Info("morph: device opened", "id", s.id, "name", s.adapter.Info.Name)
	}
	s.refs++
	return s.dev, nil
}

// release drops a reference and closes the device with the last one.
func (s *deviceSlot) release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		return nil
	}
	s.refs--
	if s.refs > 0 || s.dev == nil {
		return nil
	}
	dev := s.dev
	s.dev = nil
	s.gen.Add(1)
	Logger().Info("morph: device closed", "id", s.id)
	if err := dev.Close(); err != nil {
		return wrap("close", err, CodeDeviceUnavailable)
	}
	return nil
}

func (s *deviceSlot) reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return nil
	}
	s.gen.Add(1)
	Logger().Info("morph: device reset", "id", s.id, "engines", s.refs)
	if err := s.dev.Reset(); err != nil {
		return wrap("reset device", err, CodeDeviceUnavailable)
	}
	return nil
}

// pin runs fn with resets and closes held off and returns the generation
// in effect while it ran. Buffers allocated by fn belong to that generation.
func (s *deviceSlot) pin(fn func() error) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen.Load(), fn()
}

// generation returns the current reset generation.
func (s *deviceSlot) generation() uint64 {
	return s.gen.Load()
}
