package morph

import (
	"testing"

	"github.com/gogpu/morph/internal/launch"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyAuto, false},
		{"auto", StrategyAuto, false},
		{"direct", StrategyDirect, false},
		{"separable", StrategySeparable, false},
		{"two-steps", StrategySeparable, false},
		{"fast", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseStrategy(%q) = %v, %v", tt.in, got, err)
		}
	}
	if StrategySeparable.String() != "separable" || Strategy(7).String() != "Strategy(7)" {
		t.Error("Strategy.String() mismatch")
	}
}

func TestParseShape(t *testing.T) {
	for in, want := range map[string]Shape{"": Square, "square": Square, "disk": Disk} {
		got, err := ParseShape(in)
		if err != nil || got != want {
			t.Errorf("ParseShape(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseShape("cross"); err == nil {
		t.Error("ParseShape(cross) should fail")
	}
	if Disk.String() != "disk" || Square.String() != "square" {
		t.Error("Shape.String() mismatch")
	}
}

func TestStrategySelection(t *testing.T) {
	tests := []struct {
		strategy Strategy
		shape    Shape
		radius   int
		want     bool
	}{
		{StrategyAuto, Square, 0, false},
		{StrategyAuto, Square, 1, false},
		{StrategyAuto, Square, 2, true},
		{StrategyAuto, Square, 9, true},
		{StrategyAuto, Disk, 9, false},
		{StrategyDirect, Square, 9, false},
		{StrategySeparable, Square, 1, true},
		{StrategySeparable, Disk, 3, true},
	}
	for _, tt := range tests {
		fo := applyFilterOptions([]FilterOption{WithStrategy(tt.strategy), WithShape(tt.shape), nil})
		if got := fo.separable(tt.radius); got != tt.want {
			t.Errorf("separable(%v, %v, r=%d) = %v, want %v", tt.strategy, tt.shape, tt.radius, got, tt.want)
		}
	}
}

func TestOptions(t *testing.T) {
	var o options
	for _, opt := range []Option{WithMemoryBudget(1 << 20), WithWorkers(3)} {
		opt(&o)
	}
	if o.memoryBudget != 1<<20 || o.workers != 3 || o.provider != nil {
		t.Errorf("options = %+v", o)
	}
}

func TestLaunchResolve(t *testing.T) {
	lim := launch.DefaultLimits()

	cfg, err := Manual{Threads: 64, Blocks: 3}.resolve(100, 100, 0, lim)
	if err != nil || cfg.Threads != 64 || cfg.Blocks != 3 {
		t.Errorf("Manual.resolve() = %v, %v", cfg, err)
	}
	if _, err := (Manual{Threads: 512, Blocks: 1}).resolve(1, 1, 0, lim); err == nil {
		t.Error("Manual over the thread limit should fail")
	}

	cfg, err = Automatic{}.resolve(100, 100, 6, lim)
	if err != nil || !cfg.Covers(10000) || cfg.Threads != launch.WideRadiusThreads {
		t.Errorf("Automatic.resolve(r=6) = %v, %v", cfg, err)
	}

	if got := (Manual{Threads: 8, Blocks: 2}).String(); got != "manual(8x2)" {
		t.Errorf("Manual.String() = %q", got)
	}
	if Auto.String() != "automatic" {
		t.Errorf("Auto.String() = %q", Auto.String())
	}
}
