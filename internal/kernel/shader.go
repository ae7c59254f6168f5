// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"strings"
	"text/template"
)

//go:embed shaders/morph.wgsl
var morphShaderSource string

//go:embed shaders/pointwise.wgsl
var pointwiseShaderSource string

//go:embed shaders/window.wgsl
var windowShaderSource string

var (
	morphTemplate     = template.Must(template.New("morph").Parse(morphShaderSource))
	pointwiseTemplate = template.Must(template.New("pointwise").Parse(pointwiseShaderSource))
	windowTemplate    = template.Must(template.New("window").Parse(windowShaderSource))
)

// ParamsSize is the size in bytes of the uniform block read by every shader.
const ParamsSize = 32

// EntryPoint is the compute entry point of every generated shader.
const EntryPoint = "main"

type windowArgs struct {
	Op         string
	Init       int
	Horizontal bool
	Vertical   bool
}

// Source renders the WGSL compute shader for kernel k with the given
// workgroup size.
func Source(k Kind, threads int) (string, error) {
	if !k.Valid() {
		return "", fmt.Errorf("kernel: unknown kind %d", k)
	}
	if threads <= 0 {
		return "", fmt.Errorf("kernel: invalid workgroup size %d", threads)
	}

	var body strings.Builder
	var err error
	switch k {
	case Copy, Threshold, ReverseThreshold, Invert:
		err = pointwiseTemplate.Execute(&body, struct{ Op string }{k.String()})
	default:
		err = windowTemplate.Execute(&body, windowFor(k))
	}
	if err != nil {
		return "", fmt.Errorf("kernel: render %s body: %w", k, err)
	}

	var out strings.Builder
	if err := morphTemplate.Execute(&out, struct {
		Threads int
		Body    string
	}{threads, body.String()}); err != nil {
		return "", fmt.Errorf("kernel: render %s: %w", k, err)
	}
	return out.String(), nil
}

func windowFor(k Kind) windowArgs {
	a := windowArgs{Op: "min", Init: 255}
	switch k {
	case Dilate, DilateRows, DilateCols:
		a = windowArgs{Op: "max", Init: 0}
	}
	switch k {
	case Erode, Dilate:
		a.Horizontal, a.Vertical = true, true
	case ErodeRows, DilateRows:
		a.Horizontal = true
	case ErodeCols, DilateCols:
		a.Vertical = true
	}
	return a
}

// Uniforms encodes the uniform block for a dispatch of blocks workgroups
// laid out groupsX wide.
func Uniforms(p Params, blocks, groupsX uint32) []byte {
	//nolint:gosec // dimensions and radius are validated by the engine
	words := [ParamsSize / 4]uint32{
		uint32(p.Width),
		uint32(p.Height),
		uint32(p.Min),
		uint32(p.Max),
		uint32(p.EffectiveRadius()),
		uint32(p.Shape),
		blocks,
		groupsX,
	}
	buf := make([]byte, ParamsSize)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

// Pack widens 8-bit pixels to the 32-bit layout used by GPU buffers.
func Pack(pixels []uint8) []byte {
	out := make([]byte, len(pixels)*4)
	for i, v := range pixels {
		out[i*4] = v
	}
	return out
}

// Unpack narrows 32-bit GPU pixels into dst.
func Unpack(packed []byte, dst []uint8) {
	for i := range dst {
		dst[i] = packed[i*4]
	}
}
