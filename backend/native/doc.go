// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native runs morph kernels on GPUs through the gogpu/wgpu HAL.
//
// Importing the package registers the "native" provider with package
// backend. The provider walks every registered HAL backend (Vulkan, Metal,
// DX12, GLES), enumerates its adapters and exposes each hardware adapter as
// a morph device. Adapters that report themselves as CPU renderers are
// skipped because the software provider already covers the CPU.
//
// Image buffers hold one u32 per pixel. Kernels are WGSL compute shaders
// from internal/kernel, validated and compiled to SPIR-V with naga and
// cached per (kernel, workgroup size).
//
// A device owned by a host application can be reused through
// FromProvider, which accepts a gpucontext.DeviceProvider.
package native
