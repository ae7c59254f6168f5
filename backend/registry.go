package backend

import (
	"sort"
	"sync"
)

// Provider names.
const (
	// ProviderNative enumerates wgpu HAL adapters.
	ProviderNative = "native"
	// ProviderSoftware is the pure Go CPU device.
	ProviderSoftware = "software"
)

// Adapter is an enumerated device that has not been opened yet.
type Adapter struct {
	// Provider is the name the adapter's provider registered under.
	Provider string

	// Info describes the device.
	Info Info

	// Open opens the device.
	Open func(cfg Config) (Device, error)
}

// ProviderFunc enumerates the adapters of one provider.
type ProviderFunc func() []Adapter

var (
	// registryMu protects the providers map.
	registryMu sync.RWMutex

	// providers maps provider names to enumeration functions.
	providers = make(map[string]ProviderFunc)

	// providerPriority defines enumeration order.
	providerPriority = []string{ProviderNative, ProviderSoftware}
)

// Register makes a provider available under name.
// Registering an existing name replaces it.
// This is typically called from init() functions.
func Register(name string, fn ProviderFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	providers[name] = fn
}

// Unregister removes a provider. Used by tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(providers, name)
}

// Providers returns the registered provider names in enumeration order.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return orderedLocked()
}

// IsRegistered reports whether a provider is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := providers[name]
	return ok
}

// Enumerate lists the adapters of every provider in priority order.
// Providers not in the priority list follow in name order.
func Enumerate() []Adapter {
	registryMu.RLock()
	names := orderedLocked()
	fns := make([]ProviderFunc, len(names))
	for i, n := range names {
		fns[i] = providers[n]
	}
	registryMu.RUnlock()

	var out []Adapter
	for i, fn := range fns {
		for _, a := range fn() {
			a.Provider = names[i]
			out = append(out, a)
		}
	}
	return out
}

func orderedLocked() []string {
	names := make([]string, 0, len(providers))
	seen := make(map[string]bool, len(providers))
	for _, n := range providerPriority {
		if _, ok := providers[n]; ok {
			names = append(names, n)
			seen[n] = true
		}
	}
	var rest []string
	for n := range providers {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}
