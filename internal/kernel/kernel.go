// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package kernel defines the morphology kernels: their parameters, a scalar
// reference implementation used by the CPU device and by tests, and the
// WGSL compute shaders run by GPU devices.
package kernel

import "fmt"

// Kind identifies a kernel.
type Kind uint8

const (
	// Copy writes the source pixel unchanged.
	Copy Kind = iota
	// Threshold keeps pixels with Min <= v <= Max and zeroes the rest.
	Threshold
	// ReverseThreshold zeroes pixels with Min <= v <= Max and keeps the rest.
	ReverseThreshold
	// Invert writes 255 - v.
	Invert
	// Erode writes the minimum over the full structuring element.
	Erode
	// Dilate writes the maximum over the full structuring element.
	Dilate
	// ErodeRows is the horizontal pass of a separable erosion.
	ErodeRows
	// ErodeCols is the vertical pass of a separable erosion.
	ErodeCols
	// DilateRows is the horizontal pass of a separable dilation.
	DilateRows
	// DilateCols is the vertical pass of a separable dilation.
	DilateCols

	kindCount
)

var kindNames = [kindCount]string{
	Copy:             "copy",
	Threshold:        "threshold",
	ReverseThreshold: "reverse_threshold",
	Invert:           "invert",
	Erode:            "erode",
	Dilate:           "dilate",
	ErodeRows:        "erode_rows",
	ErodeCols:        "erode_cols",
	DilateRows:       "dilate_rows",
	DilateCols:       "dilate_cols",
}

// String returns the kernel name.
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Valid reports whether k names a known kernel.
func (k Kind) Valid() bool {
	return k < kindCount
}

// Windowed reports whether the kernel reads a two-dimensional neighbourhood.
// Launch configuration for windowed kernels takes the radius into account.
func (k Kind) Windowed() bool {
	return k == Erode || k == Dilate
}

// Kinds returns every kernel kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// Shape is the structuring element shape.
type Shape uint8

const (
	// Square covers |dx| <= r and |dy| <= r.
	Square Shape = iota
	// Disk covers dx*dx + dy*dy <= r*r.
	Disk
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case Square:
		return "square"
	case Disk:
		return "disk"
	default:
		return fmt.Sprintf("Shape(%d)", s)
	}
}

// Params are the per-dispatch kernel inputs.
type Params struct {
	Width  int
	Height int
	Min    uint8
	Max    uint8
	Radius int
	Shape  Shape
}

// Pixels returns Width*Height.
func (p Params) Pixels() int {
	return p.Width * p.Height
}

// EffectiveRadius clamps the radius to a value that already covers the whole
// image for both shapes. Larger radii produce identical output.
func (p Params) EffectiveRadius() int {
	r := p.Radius
	if r < 0 {
		return 0
	}
	if lim := p.Width + p.Height; r > lim {
		r = lim
	}
	return r
}
