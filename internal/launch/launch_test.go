// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package launch

import (
	"errors"
	"testing"
)

func TestManual(t *testing.T) {
	lim := DefaultLimits()
	tests := []struct {
		name    string
		threads int
		blocks  int
		wantErr bool
	}{
		{"valid", 64, 10, false},
		{"single", 1, 1, false},
		{"max threads", 256, 1, false},
		{"zero threads", 0, 10, true},
		{"zero blocks", 64, 0, true},
		{"negative threads", -1, 10, true},
		{"negative blocks", 64, -5, true},
		{"threads over limit", 512, 1, true},
		{"largest stride", 1, 1 << 30, false},
		{"stride over 32 bits", 256, 1 << 24, true},
		{"stride at 32 bits", 255, 16843009, false},
		{"stride just over 32 bits", 255, 16843010, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Manual(tt.threads, tt.blocks, lim)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("Manual(%d, %d) error = %v, want ErrInvalidConfig", tt.threads, tt.blocks, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Manual(%d, %d) unexpected error: %v", tt.threads, tt.blocks, err)
			}
			if cfg.Threads != tt.threads || cfg.Blocks != tt.blocks {
				t.Errorf("Manual() = %v, want %dx%d", cfg, tt.threads, tt.blocks)
			}
		})
	}
}

func TestManualBlocksOverLimit(t *testing.T) {
	lim := Limits{MaxThreads: 64, MaxGroupsPerDim: 4}
	if _, err := Manual(8, 16, lim); err != nil {
		t.Fatalf("Manual(8, 16) unexpected error: %v", err)
	}
	if _, err := Manual(8, 17, lim); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Manual(8, 17) error = %v, want ErrInvalidConfig", err)
	}
}

func TestTrim(t *testing.T) {
	tests := []struct {
		cfg  Config
		n    int
		want int
	}{
		{Config{Threads: 256, Blocks: 1 << 24}, 1000, 4},
		{Config{Threads: 256, Blocks: 2}, 1000, 2},
		{Config{Threads: 256, Blocks: 4}, 1024, 4},
		{Config{Threads: 256, Blocks: 5}, 1024, 4},
		{Config{Threads: 1, Blocks: 1 << 30}, 50000, 50000},
	}
	for _, tt := range tests {
		got := tt.cfg.Trim(tt.n)
		if got.Blocks != tt.want || got.Threads != tt.cfg.Threads {
			t.Errorf("%v.Trim(%d) = %v, want %dx%d", tt.cfg, tt.n, got, tt.cfg.Threads, tt.want)
		}
		if int64(got.Stride()) >= int64(tt.n)+int64(got.Threads) {
			t.Errorf("%v.Trim(%d) stride %d not below n+threads", tt.cfg, tt.n, got.Stride())
		}
	}
}

func TestAutomaticCoverage(t *testing.T) {
	lim := DefaultLimits()
	sizes := [][2]int{{1, 1}, {1, 7}, {4, 4}, {16, 16}, {255, 1}, {256, 1}, {257, 1}, {640, 480}, {1920, 1080}, {3, 10007}}
	for _, sz := range sizes {
		for _, r := range []int{0, 1, 4, 5, 50} {
			cfg, err := Automatic(sz[0], sz[1], r, lim)
			if err != nil {
				t.Fatalf("Automatic(%d, %d, %d) unexpected error: %v", sz[0], sz[1], r, err)
			}
			n := sz[0] * sz[1]
			if !cfg.Covers(n) {
				t.Errorf("Automatic(%d, %d, %d) = %v does not cover %d pixels", sz[0], sz[1], r, cfg, n)
			}
			// One extra block would be wasted work.
			if (cfg.Blocks-1)*cfg.Threads >= n {
				t.Errorf("Automatic(%d, %d, %d) = %v has a redundant block", sz[0], sz[1], r, cfg)
			}
		}
	}
}

func TestAutomaticThreads(t *testing.T) {
	tests := []struct {
		radius int
		lim    Limits
		want   int
	}{
		{0, DefaultLimits(), DefaultThreads},
		{WideRadius, DefaultLimits(), DefaultThreads},
		{WideRadius + 1, DefaultLimits(), WideRadiusThreads},
		{0, Limits{MaxThreads: 64, MaxGroupsPerDim: 65535}, 64},
		{10, Limits{MaxThreads: 64, MaxGroupsPerDim: 65535}, 64},
	}
	for _, tt := range tests {
		cfg, err := Automatic(100, 100, tt.radius, tt.lim)
		if err != nil {
			t.Fatalf("Automatic() unexpected error: %v", err)
		}
		if cfg.Threads != tt.want {
			t.Errorf("Automatic(radius=%d).Threads = %d, want %d", tt.radius, cfg.Threads, tt.want)
		}
	}
}

func TestAutomaticInvalidSize(t *testing.T) {
	for _, sz := range [][2]int{{0, 1}, {1, 0}, {-3, 4}, {4, -3}} {
		if _, err := Automatic(sz[0], sz[1], 0, DefaultLimits()); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("Automatic(%d, %d) error = %v, want ErrInvalidSize", sz[0], sz[1], err)
		}
	}
}

func TestGrid(t *testing.T) {
	lim := Limits{MaxThreads: 256, MaxGroupsPerDim: 10}
	tests := []struct {
		blocks int
		wantX  uint32
		wantY  uint32
	}{
		{1, 1, 1},
		{10, 10, 1},
		{11, 10, 2},
		{20, 10, 2},
		{95, 10, 10},
	}
	for _, tt := range tests {
		x, y := Grid(Config{Threads: 64, Blocks: tt.blocks}, lim)
		if x != tt.wantX || y != tt.wantY {
			t.Errorf("Grid(blocks=%d) = (%d, %d), want (%d, %d)", tt.blocks, x, y, tt.wantX, tt.wantY)
		}
		if int(x)*int(y) < tt.blocks {
			t.Errorf("Grid(blocks=%d) = (%d, %d) holds fewer workgroups than blocks", tt.blocks, x, y)
		}
	}
}

func TestConfigString(t *testing.T) {
	if got := (Config{Threads: 256, Blocks: 40}).String(); got != "256x40" {
		t.Errorf("Config.String() = %q, want %q", got, "256x40")
	}
}
