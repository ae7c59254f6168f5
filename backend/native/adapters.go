// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/morph/backend"
	"github.com/gogpu/wgpu/hal"

	// Register every HAL backend available on this platform.
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

// init registers the native provider on package import.
func init() {
	backend.Register(backend.ProviderNative, enumerate)
}

// halAdapter is one adapter found on one HAL backend.
type halAdapter struct {
	variant gputypes.Backend
	exposed hal.ExposedAdapter
}

var (
	// instancesMu protects instances.
	instancesMu sync.Mutex

	// instances keeps one HAL instance per backend alive for the process,
	// since adapters are only valid while their instance is.
	instances = make(map[gputypes.Backend]hal.Instance)
)

func instanceFor(variant gputypes.Backend) (hal.Instance, error) {
	instancesMu.Lock()
	defer instancesMu.Unlock()

	if inst, ok := instances[variant]; ok {
		return inst, nil
	}
	b, ok := hal.GetBackend(variant)
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrBackendNotAvailable, variant)
	}
	inst, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create %s instance: %w", variant, err)
	}
	instances[variant] = inst
	return inst, nil
}

// discover lists the hardware adapters of every registered HAL backend,
// discrete GPUs first.
func discover() []halAdapter {
	variants := hal.AvailableBackends()
	sort.Slice(variants, func(i, j int) bool { return variants[i] < variants[j] })

	log := slogger()
	var found []halAdapter
	for _, v := range variants {
		inst, err := instanceFor(v)
		if err != nil {
			log.Debug("native: backend unavailable", "backend", v.String(), "err", err)
			continue
		}
		for _, ex := range inst.EnumerateAdapters(nil) {
			if ex.Info.DeviceType == gputypes.DeviceTypeCPU {
				continue
			}
			found = append(found, halAdapter{variant: v, exposed: ex})
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return typeRank(found[i].exposed.Info.DeviceType) < typeRank(found[j].exposed.Info.DeviceType)
	})
	return found
}

func typeRank(t gputypes.DeviceType) int {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return 0
	case gputypes.DeviceTypeIntegratedGPU:
		return 1
	case gputypes.DeviceTypeVirtualGPU:
		return 2
	default:
		return 3
	}
}

func enumerate() []backend.Adapter {
	found := discover()
	out := make([]backend.Adapter, 0, len(found))
	for _, a := range found {
		info := adapterInfo(a.exposed.Info, a.exposed.Capabilities.Limits)
		out = append(out, backend.Adapter{
			Info: info,
			Open: func(cfg backend.Config) (backend.Device, error) {
				return openAdapter(a, info, cfg)
			},
		})
	}
	return out
}

func openAdapter(a halAdapter, info backend.Info, cfg backend.Config) (backend.Device, error) {
	limits := a.exposed.Capabilities.Limits
	open, err := a.exposed.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", info.Name, err)
	}
	d, err := newDevice(open.Device, open.Queue, info, limits, cfg, false)
	if err != nil {
		open.Device.Destroy()
		return nil, err
	}
	slogger().Info("native: device opened", "name", info.Name, "backend", info.Backend, "type", info.Type)
	return d, nil
}

func adapterInfo(ai gputypes.AdapterInfo, limits gputypes.Limits) backend.Info {
	return backend.Info{
		Name:           ai.Name,
		Backend:        strings.ToLower(ai.Backend.String()),
		Type:           deviceType(ai.DeviceType),
		Driver:         strings.TrimSpace(ai.Driver + " " + ai.DriverInfo),
		MaxBufferBytes: maxBufferBytes(limits),
	}
}

func deviceType(t gputypes.DeviceType) string {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return backend.TypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return backend.TypeIntegrated
	case gputypes.DeviceTypeCPU:
		return backend.TypeCPU
	default:
		return backend.TypeOther
	}
}

// maxBufferBytes is the largest buffer usable as a storage binding.
func maxBufferBytes(l gputypes.Limits) uint64 {
	switch {
	case l.MaxBufferSize == 0:
		return l.MaxStorageBufferBindingSize
	case l.MaxStorageBufferBindingSize == 0:
		return l.MaxBufferSize
	default:
		return min(l.MaxBufferSize, l.MaxStorageBufferBindingSize)
	}
}
