// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/morph/backend"
	"github.com/gogpu/wgpu/hal"
)

// FromProvider wraps the device of a host application.
//
// The provider's Device and Queue must be a hal.Device and hal.Queue.
// The returned device never destroys them; closing it only releases the
// buffers and pipelines morph created.
func FromProvider(p gpucontext.DeviceProvider, cfg backend.Config) (*Device, error) {
	if p == nil {
		return nil, ErrNilDevice
	}
	device, ok := p.Device().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: device is %T", ErrProviderNotHAL, p.Device())
	}
	queue, ok := p.Queue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: queue is %T", ErrProviderNotHAL, p.Queue())
	}

	ai := p.AdapterInfo()
	limits := gputypes.DefaultLimits()
	info := backend.Info{
		Name:           ai.Name,
		Backend:        "shared",
		Type:           providerType(ai.Type),
		MaxBufferBytes: maxBufferBytes(limits),
	}
	d, err := newDevice(device, queue, info, limits, cfg, true)
	if err != nil {
		return nil, err
	}
	slogger().Info("native: using shared device", "name", info.Name, "type", info.Type)
	return d, nil
}

func providerType(t gpucontext.AdapterType) string {
	switch t {
	case gpucontext.AdapterTypeDiscrete:
		return backend.TypeDiscrete
	case gpucontext.AdapterTypeIntegrated:
		return backend.TypeIntegrated
	case gpucontext.AdapterTypeSoftware:
		return backend.TypeCPU
	default:
		return backend.TypeOther
	}
}
