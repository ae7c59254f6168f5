package flat

import "github.com/gogpu/morph"

// ReservationMemoryCopyHostToDeviceOnce reserves buffers for a w x h image
// and uploads src.
func ReservationMemoryCopyHostToDeviceOnce(src []byte, w, h int) int {
	return with(func(e *morph.Engine) error { return e.Load(src, w, h) })
}

// FreeMemoryCopyDeviceToHostOnce downloads the result into dst and
// releases the buffers.
func FreeMemoryCopyDeviceToHostOnce(dst []byte) int {
	return with(func(e *morph.Engine) error { return e.Unload(dst) })
}

// ReservationMemoryOnce reserves buffers for a w x h image.
func ReservationMemoryOnce(w, h int) int {
	return with(func(e *morph.Engine) error { return e.Reserve(w, h) })
}

// FreeMemoryOnce releases the buffers.
func FreeMemoryOnce() int {
	return with(func(e *morph.Engine) error { return e.Free() })
}

// CopyHostToDeviceOnce uploads src into the reserved buffers.
func CopyHostToDeviceOnce(src []byte) int {
	return with(func(e *morph.Engine) error { return e.Upload(src) })
}

// CopyDeviceToHostOnce downloads the result into dst.
func CopyDeviceToHostOnce(dst []byte) int {
	return with(func(e *morph.Engine) error { return e.Download(dst) })
}
