// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/morph/internal/kernel"
	"github.com/gogpu/wgpu/hal"
)

// pipelineKey identifies a compiled kernel.
type pipelineKey struct {
	kind    kernel.Kind
	threads int
}

// pipelineCache compiles each (kernel, workgroup size) pair once.
//
// pipelineCache is safe for concurrent use.
type pipelineCache struct {
	mu     sync.RWMutex
	device hal.Device
	layout hal.PipelineLayout
	cache  map[pipelineKey]*pipelineResources

	hits   atomic.Uint64
	misses atomic.Uint64
}

func newPipelineCache(device hal.Device, layout hal.PipelineLayout) *pipelineCache {
	return &pipelineCache{
		device: device,
		layout: layout,
		cache:  make(map[pipelineKey]*pipelineResources),
	}
}

// get returns the pipeline for key, compiling it on first use.
func (c *pipelineCache) get(key pipelineKey) (hal.ComputePipeline, error) {
	c.mu.RLock()
	if r, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		c.hits.Add(1)
		return r.pipeline, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.cache[key]; ok {
		c.hits.Add(1)
		return r.pipeline, nil
	}

	r, err := c.create(key)
	if err != nil {
		return nil, err
	}
	c.cache[key] = r
	c.misses.Add(1)
	return r.pipeline, nil
}

func (c *pipelineCache) create(key pipelineKey) (*pipelineResources, error) {
	wgsl, err := kernel.Source(key.kind, key.threads)
	if err != nil {
		return nil, err
	}
	// naga validates the source even where the backend consumes WGSL.
	spirv, err := compileSPIRV(wgsl)
	if err != nil {
		return nil, fmt.Errorf("%s/%d: %w", key.kind, key.threads, err)
	}

	label := fmt.Sprintf("morph_%s_%d", key.kind, key.threads)
	r := &pipelineResources{}
	r.module, err = c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{WGSL: wgsl, SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module %s: %w", label, err)
	}
	r.pipeline, err = c.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   label,
		Layout:  c.layout,
		Compute: hal.ComputeState{Module: r.module, EntryPoint: kernel.EntryPoint},
	})
	if err != nil {
		r.destroy(c.device)
		return nil, fmt.Errorf("create compute pipeline %s: %w", label, err)
	}
	slogger().Debug("native: pipeline created", "kernel", key.kind.String(), "threads", key.threads)
	return r, nil
}

// stats returns cache hits and misses.
func (c *pipelineCache) stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// size returns the number of compiled pipelines.
func (c *pipelineCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// destroyAll releases every pipeline.
func (c *pipelineCache) destroyAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, r := range c.cache {
		r.destroy(c.device)
		delete(c.cache, k)
	}
}
