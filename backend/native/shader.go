// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// compileSPIRV compiles WGSL to little-endian SPIR-V words.
func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShaderCompile, err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("%w: SPIR-V length %d is not word aligned", ErrShaderCompile, len(spirvBytes))
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}

// pipelineResources are the HAL objects behind one compute pipeline.
type pipelineResources struct {
	module   hal.ShaderModule
	pipeline hal.ComputePipeline
}

// destroy releases the resources in reverse creation order.
func (r *pipelineResources) destroy(device hal.Device) {
	if device == nil {
		return
	}
	if r.pipeline != nil {
		device.DestroyComputePipeline(r.pipeline)
		r.pipeline = nil
	}
	if r.module != nil {
		device.DestroyShaderModule(r.module)
		r.module = nil
	}
}
