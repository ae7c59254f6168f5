// Package backend defines the compute devices morph runs on.
//
// A Device holds image buffers and executes the kernels of
// internal/kernel over them. Devices are discovered through providers that
// register themselves with the package on import:
//
//	import _ "github.com/gogpu/morph/backend/native" // wgpu HAL adapters
//
// The pure Go CPU provider ("software") is part of this package and is always
// available, so Enumerate never returns an empty list.
//
// # Device Order
//
// Enumerate lists adapters provider by provider following the priority
// order (native first, software last). Within the native provider discrete
// GPUs come before integrated ones.
//
// # Memory
//
// Each device tracks its buffers in a MemoryManager, which enforces the
// optional Config.MemoryBudget and reports MemoryStats.
package backend
