// Package morph runs grayscale mathematical morphology on GPUs.
//
// # Overview
//
// morph keeps an 8-bit grayscale image resident on a compute device and
// applies threshold, erosion, dilation, opening and closing filters to it
// without copying it back between steps. Filters run as WGSL compute
// kernels through gogpu/wgpu on Vulkan, Metal, DX12 and GLES adapters. A
// pure Go CPU device with identical results is always available, so code
// written against morph runs on machines without a GPU.
//
// # Quick Start
//
//	e, err := morph.Open(0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Close()
//
//	if err := e.Load(pix, width, height); err != nil {
//	    log.Fatal(err)
//	}
//	_ = e.Threshold(morph.Auto, 100, 255)
//	_ = e.Opening(morph.Auto, 2)
//	_ = e.Unload(pix)
//
// # Devices
//
// NumDevices and Devices list the available devices, hardware adapters
// first and the CPU device last. Open binds an Engine to one of them.
// Engines on the same device share it. ResetDevice releases every buffer
// on a device; affected engines must Reserve again.
//
// A host application that already owns a wgpu device can share it with
// WithDeviceProvider.
//
// # Launches
//
// Every filter takes a Launch. Automatic sizes the launch from the image;
// Manual fixes threads per workgroup and workgroup count. Kernels walk the
// image with a grid-stride loop, so any valid manual launch processes every
// pixel exactly once.
//
// # Errors
//
// Operations return *Error values that carry a stable Code and wrap one of
// the Err* sentinels, so both errors.Is and CodeOf work. KindOf groups codes
// into device, allocation, state, config and transfer failures.
//
// # Logging
//
// morph is silent by default. SetLogger installs a log/slog logger for the
// package and its device backends.
package morph
