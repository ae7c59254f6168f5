package backend

import (
	"errors"

	"github.com/gogpu/morph/internal/kernel"
	"github.com/gogpu/morph/internal/launch"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when no device can be opened.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrDeviceClosed is returned when operating on a closed device.
	ErrDeviceClosed = errors.New("backend: device closed")

	// ErrUnknownBuffer is returned for a buffer the device does not own,
	// including one that was already freed or dropped by Reset.
	ErrUnknownBuffer = errors.New("backend: unknown or freed buffer")

	// ErrSizeMismatch is returned when host data does not match a buffer.
	ErrSizeMismatch = errors.New("backend: size mismatch")

	// ErrOutOfMemory is returned when the device cannot hold an allocation.
	ErrOutOfMemory = errors.New("backend: out of device memory")

	// ErrUnsupportedKernel is returned for a kernel kind the device cannot run.
	ErrUnsupportedKernel = errors.New("backend: unsupported kernel")

	// ErrAliasedBuffers is returned when a dispatch reads and writes one buffer.
	ErrAliasedBuffers = errors.New("backend: source and destination are the same buffer")
)

// Device types reported in Info.Type.
const (
	TypeDiscrete   = "discrete"
	TypeIntegrated = "integrated"
	TypeCPU        = "cpu"
	TypeOther      = "other"
)

// Info describes a compute device.
type Info struct {
	// Name is the adapter name, e.g. "NVIDIA GeForce RTX 4090".
	Name string

	// Backend is the API the device runs on ("vulkan", "metal", "cpu", ...).
	Backend string

	// Type is one of the Type* constants.
	Type string

	// Driver is the driver description, if known.
	Driver string

	// MaxBufferBytes is the largest single buffer the device accepts.
	MaxBufferBytes uint64
}

// Buffer is an image buffer owned by a Device. It holds Len pixels.
type Buffer interface {
	Len() int
}

// Device is a compute device able to hold image buffers and run kernels.
//
// Every method blocks until the device has finished the requested work,
// so a Dispatch observes the output of the previous one.
type Device interface {
	// Info describes the device.
	Info() Info

	// Limits returns the launch limits of the device.
	Limits() launch.Limits

	// Alloc reserves a buffer of the given number of pixels.
	Alloc(label string, pixels int) (Buffer, error)

	// Free releases a buffer. Freeing an unknown buffer returns ErrUnknownBuffer.
	Free(b Buffer) error

	// Write copies host pixels into a buffer. len(src) must equal b.Len().
	Write(b Buffer, src []uint8) error

	// Read copies a buffer into host memory. len(dst) must equal b.Len().
	Read(b Buffer, dst []uint8) error

	// Dispatch runs kernel k over src into dst with the given launch.
	Dispatch(k kernel.Kind, p kernel.Params, cfg launch.Config, src, dst Buffer) error

	// Memory returns allocation statistics.
	Memory() MemoryStats

	// Reset releases every buffer the device holds. The device stays open.
	Reset() error

	// Close releases the device. Close is idempotent.
	Close() error
}

// Config configures a device when it is opened.
type Config struct {
	// MemoryBudget caps the bytes held in buffers. Zero means the device limit.
	MemoryBudget uint64

	// Workers is the number of worker goroutines for CPU devices.
	// Zero means GOMAXPROCS.
	Workers int
}
