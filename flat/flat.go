// Package flat exposes morph through functions that return integer
// status codes, for callers that hold one image on one device at a time.
//
// Every function returns 0 on success or one of the morph.Code values.
// The first call that needs a device opens device 0 unless SetDevice
// selected another one. DescriptionError turns a code into text.
//
//	if code := flat.ReservationMemoryCopyHostToDeviceOnce(pix, w, h); code != 0 {
//	    log.Fatal(flat.DescriptionError(code))
//	}
//	flat.ThresholdAutomaticOnce(100, 255)
//	flat.OpenFastAutomaticOnce(2)
//	flat.FreeMemoryCopyDeviceToHostOnce(pix)
package flat

import (
	"sync"

	"github.com/gogpu/morph"
)

var (
	mu     sync.Mutex
	engine *morph.Engine
)

func code(err error) int {
	return int(morph.CodeOf(err))
}

// current returns the default engine, opening device 0 on first use.
func current() (*morph.Engine, error) {
	if engine != nil {
		return engine, nil
	}
	e, err := morph.Open(0)
	if err != nil {
		return nil, err
	}
	engine = e
	return e, nil
}

// with runs fn on the default engine under the package lock.
func with(fn func(e *morph.Engine) error) int {
	mu.Lock()
	defer mu.Unlock()
	e, err := current()
	if err != nil {
		return code(err)
	}
	return code(fn(e))
}

// NumAvailableDevices returns the number of devices.
func NumAvailableDevices() int {
	return morph.NumDevices()
}

// SetDevice makes device id the target of the following calls. Buffers
// held on the previous device are released.
func SetDevice(id int) int {
	mu.Lock()
	defer mu.Unlock()

	e, err := morph.Open(id)
	if err != nil {
		return code(err)
	}
	if engine != nil {
		if err := engine.Close(); err != nil {
			morph.Logger().Warn("flat: closing previous engine", "err", err)
		}
	}
	engine = e
	return 0
}

// ResetDevice releases every buffer held on device id.
func ResetDevice(id int) int {
	return code(morph.ResetDevice(id))
}

// ResetAllDevices releases every buffer held on every device.
func ResetAllDevices() int {
	return code(morph.ResetAllDevices())
}

// DescriptionError returns the description of a code.
func DescriptionError(c int) string {
	return morph.Code(c).Description()
}

// Close releases the default engine. A later call opens a new one.
func Close() int {
	mu.Lock()
	defer mu.Unlock()
	if engine == nil {
		return 0
	}
	err := engine.Close()
	engine = nil
	return code(err)
}
