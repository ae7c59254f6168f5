// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/gogpu/morph/backend"
	"github.com/gogpu/morph/internal/kernel"
	"github.com/gogpu/morph/internal/launch"
)

// openHardware opens the first hardware adapter or skips the test.
func openHardware(t *testing.T) backend.Device {
	t.Helper()
	adapters := enumerate()
	if len(adapters) == 0 {
		t.Skip("GPU not available")
	}
	d, err := adapters[0].Open(backend.Config{})
	if err != nil {
		t.Skipf("GPU not available: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// runOnDevice uploads src, dispatches k once and reads the result back.
func runOnDevice(t *testing.T, d backend.Device, k kernel.Kind, p kernel.Params, cfg launch.Config, src []uint8) []uint8 {
	t.Helper()
	n := p.Pixels()
	in, err := d.Alloc("parity.in", n)
	if err != nil {
		t.Fatalf("Alloc() error: %v", err)
	}
	defer func() { _ = d.Free(in) }()
	out, err := d.Alloc("parity.out", n)
	if err != nil {
		t.Fatalf("Alloc() error: %v", err)
	}
	defer func() { _ = d.Free(out) }()

	if err := d.Write(in, src); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := d.Dispatch(k, p, cfg, in, out); err != nil {
		skipOnCompile(t, err)
		t.Fatalf("Dispatch(%s, %s) error: %v", k, cfg, err)
	}
	got := make([]uint8, n)
	if err := d.Read(out, got); err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	return got
}

func TestHardwareMatchesReference(t *testing.T) {
	d := openHardware(t)
	lim := d.Limits()
	rng := rand.New(rand.NewSource(21)) //nolint:gosec // test data

	sizes := [][2]int{{1, 1}, {7, 5}, {33, 17}, {300, 2}}
	for _, sz := range sizes {
		w, h := sz[0], sz[1]
		src := make([]uint8, w*h)
		for i := range src {
			src[i] = uint8(rng.Intn(256)) //nolint:gosec // test data
		}
		for _, k := range kernel.Kinds() {
			for _, r := range []int{0, 1, 3, 1000} {
				for _, shape := range []kernel.Shape{kernel.Square, kernel.Disk} {
					p := kernel.Params{Width: w, Height: h, Min: 40, Max: 200, Radius: r, Shape: shape}
					want := make([]uint8, len(src))
					kernel.Run(k, p, src, want)

					auto, err := launch.Automatic(w, h, r, lim)
					if err != nil {
						t.Fatal(err)
					}
					small, err := launch.Manual(min(32, lim.MaxThreads), 1, lim)
					if err != nil {
						t.Fatal(err)
					}
					for _, cfg := range []launch.Config{auto, small} {
						name := fmt.Sprintf("%s/%dx%d/r=%d/%s/%s", k, w, h, r, shape, cfg)
						if got := runOnDevice(t, d, k, p, cfg, src); !bytes.Equal(got, want) {
							t.Errorf("%s: device output differs from reference", name)
						}
					}
				}
			}
		}
	}
}

func TestHardwareDiskOnLongRow(t *testing.T) {
	d := openHardware(t)
	// 46341^2 no longer fits in an int32.
	const w, r = 50000, 46341
	src := make([]uint8, w)
	src[0] = 255
	p := kernel.Params{Width: w, Height: 1, Radius: r, Shape: kernel.Disk}
	cfg, err := launch.Automatic(w, 1, r, d.Limits())
	if err != nil {
		t.Fatal(err)
	}
	got := runOnDevice(t, d, kernel.Dilate, p, cfg, src)
	for _, i := range []int{0, r, r + 1, w - 1} {
		want := uint8(0)
		if i <= r {
			want = 255
		}
		if got[i] != want {
			t.Errorf("disk dilate r=%d pixel %d = %d, want %d", r, i, got[i], want)
		}
	}
}
