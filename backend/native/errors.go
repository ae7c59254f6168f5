// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "errors"

var (
	// ErrNilDevice is returned when a HAL device or queue is missing.
	ErrNilDevice = errors.New("native: device is nil")

	// ErrProviderNotHAL is returned when a gpucontext provider does not
	// expose wgpu HAL types.
	ErrProviderNotHAL = errors.New("native: provider does not expose hal.Device and hal.Queue")

	// ErrShaderCompile is returned when a kernel fails to compile.
	ErrShaderCompile = errors.New("native: shader compilation failed")

	// ErrMapFailed is returned when a readback buffer cannot be mapped.
	ErrMapFailed = errors.New("native: buffer map failed")
)
