// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package launch derives kernel launch configurations.
//
// A launch is a number of workgroups (blocks) of a fixed number of
// invocations (threads). Kernels walk the image with a grid-stride loop:
// invocation g handles pixels g, g+stride, g+2*stride, ... where
// stride = Threads*Blocks. Any positive configuration therefore processes
// every pixel exactly once; Automatic additionally guarantees that
// Threads*Blocks covers the whole image so each invocation handles at
// most one pixel.
package launch

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidConfig is returned for a manual configuration the device cannot run.
	ErrInvalidConfig = errors.New("launch: invalid launch configuration")

	// ErrInvalidSize is returned for non-positive image dimensions.
	ErrInvalidSize = errors.New("launch: invalid image size")
)

const (
	// DefaultThreads is the workgroup size picked by Automatic.
	DefaultThreads = 256

	// WideRadiusThreads is the workgroup size for direct kernels with a
	// radius above WideRadius.
	WideRadiusThreads = 128

	// WideRadius is the radius above which WideRadiusThreads is used.
	WideRadius = 4
)

// Limits are the device limits a configuration must respect.
type Limits struct {
	// MaxThreads is the maximum number of invocations per workgroup.
	MaxThreads int

	// MaxGroupsPerDim is the maximum workgroup count in one dispatch dimension.
	MaxGroupsPerDim int
}

// DefaultLimits returns the WebGPU default compute limits.
func DefaultLimits() Limits {
	return Limits{MaxThreads: 256, MaxGroupsPerDim: 65535}
}

// maxBlocks is the largest number of workgroups a two-dimensional dispatch can hold.
func (l Limits) maxBlocks() int64 {
	d := int64(l.MaxGroupsPerDim)
	return d * d
}

// Config is a resolved launch configuration.
type Config struct {
	Threads int
	Blocks  int
}

// Stride returns the number of invocations in the launch.
func (c Config) Stride() int {
	return c.Threads * c.Blocks
}

// Covers reports whether every pixel of an n-pixel image gets its own invocation.
func (c Config) Covers(n int) bool {
	return int64(c.Threads)*int64(c.Blocks) >= int64(n)
}

// Trim drops workgroups whose first pixel lies past the end of an
// n-pixel image. The trimmed stride stays below n+Threads, so the
// grid-stride index cannot wrap a 32-bit counter.
func (c Config) Trim(n int) Config {
	if c.Threads <= 0 || n <= 0 {
		return c
	}
	c.Blocks = min(c.Blocks, (n+c.Threads-1)/c.Threads)
	return c
}

// String returns a compact representation like "256x40".
func (c Config) String() string {
	return fmt.Sprintf("%dx%d", c.Threads, c.Blocks)
}

// Manual validates a caller supplied configuration.
func Manual(threads, blocks int, lim Limits) (Config, error) {
	if threads <= 0 || blocks <= 0 {
		return Config{}, fmt.Errorf("%w: threads=%d blocks=%d must be positive", ErrInvalidConfig, threads, blocks)
	}
	if lim.MaxThreads > 0 && threads > lim.MaxThreads {
		return Config{}, fmt.Errorf("%w: threads=%d exceeds device maximum %d", ErrInvalidConfig, threads, lim.MaxThreads)
	}
	if lim.MaxGroupsPerDim > 0 && int64(blocks) > lim.maxBlocks() {
		return Config{}, fmt.Errorf("%w: blocks=%d exceeds device maximum %d", ErrInvalidConfig, blocks, lim.maxBlocks())
	}
	// Kernels index pixels with 32-bit unsigned arithmetic.
	if int64(threads)*int64(blocks) > math.MaxUint32 {
		return Config{}, fmt.Errorf("%w: %dx%d exceeds 2^32 invocations", ErrInvalidConfig, threads, blocks)
	}
	return Config{Threads: threads, Blocks: blocks}, nil
}

// Automatic derives a configuration covering a width x height image.
// Radius is the neighbourhood radius of a direct morphology kernel, or 0
// for per-pixel kernels and separable passes.
func Automatic(width, height, radius int, lim Limits) (Config, error) {
	if width <= 0 || height <= 0 {
		return Config{}, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	threads := DefaultThreads
	if radius > WideRadius {
		threads = WideRadiusThreads
	}
	if lim.MaxThreads > 0 && threads > lim.MaxThreads {
		threads = lim.MaxThreads
	}

	n := int64(width) * int64(height)
	blocks := (n + int64(threads) - 1) / int64(threads)
	if lim.MaxGroupsPerDim > 0 && blocks > lim.maxBlocks() {
		// The grid-stride loop still reaches every pixel.
		blocks = lim.maxBlocks()
	}
	return Config{Threads: threads, Blocks: int(blocks)}, nil
}

// Grid folds a configuration into a two-dimensional workgroup grid.
// x never exceeds MaxGroupsPerDim and x*y >= Blocks; workgroups with a
// linear index of Blocks or more must exit without writing.
func Grid(c Config, lim Limits) (x, y uint32) {
	perDim := lim.MaxGroupsPerDim
	if perDim <= 0 {
		perDim = DefaultLimits().MaxGroupsPerDim
	}
	if c.Blocks <= perDim {
		return uint32(c.Blocks), 1 //nolint:gosec // bounded by perDim
	}
	rows := (c.Blocks + perDim - 1) / perDim
	return uint32(perDim), uint32(rows) //nolint:gosec // bounded by maxBlocks
}
