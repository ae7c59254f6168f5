package morph

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/morph/internal/kernel"
)

// Option configures an Engine when it is opened.
//
// Example:
//
//	e, err := morph.Open(0, morph.WithMemoryBudget(64<<20))
type Option func(*options)

type options struct {
	memoryBudget uint64
	workers      int
	provider     gpucontext.DeviceProvider
}

// WithMemoryBudget caps the device memory the engine's device may hold, in
// bytes. Reservations beyond it fail with ErrOutOfDeviceMemory.
//
// Engines on the same device share it; the budget of the first engine to
// open the device applies.
func WithMemoryBudget(bytes uint64) Option {
	return func(o *options) {
		o.memoryBudget = bytes
	}
}

// WithWorkers sets the number of worker goroutines of the CPU device.
// Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithDeviceProvider runs the engine on a GPU device owned by a host
// application instead of an enumerated one. The provider must expose
// wgpu HAL devices. The device id passed to Open is ignored, and
// ResetDevice does not affect the engine.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// Strategy selects how erosion and dilation are computed.
type Strategy uint8

const (
	// StrategyAuto uses Separable for square elements of radius 2 or more
	// and Direct otherwise.
	StrategyAuto Strategy = iota
	// StrategyDirect evaluates the full neighbourhood per pixel.
	StrategyDirect
	// StrategySeparable runs a row pass then a column pass. It always
	// applies the square element, also when Disk is requested.
	StrategySeparable
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyDirect:
		return "direct"
	case StrategySeparable:
		return "separable"
	default:
		return fmt.Sprintf("Strategy(%d)", s)
	}
}

// ParseStrategy parses a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "auto":
		return StrategyAuto, nil
	case "direct":
		return StrategyDirect, nil
	case "separable", "two-steps", "twosteps":
		return StrategySeparable, nil
	}
	return 0, fmt.Errorf("morph: unknown strategy %q", s)
}

// Shape is the structuring element shape.
type Shape uint8

const (
	// Square covers |dx| <= r and |dy| <= r.
	Square Shape = Shape(kernel.Square)
	// Disk covers dx*dx + dy*dy <= r*r.
	Disk Shape = Shape(kernel.Disk)
)

// String returns the shape name.
func (s Shape) String() string {
	return kernel.Shape(s).String()
}

// ParseShape parses a shape name.
func ParseShape(s string) (Shape, error) {
	switch s {
	case "", "square":
		return Square, nil
	case "disk":
		return Disk, nil
	}
	return 0, fmt.Errorf("morph: unknown shape %q", s)
}

// FilterOption configures one erode, dilate, open or close call.
type FilterOption func(*filterOptions)

type filterOptions struct {
	strategy Strategy
	shape    Shape
}

// WithStrategy selects direct or separable evaluation.
func WithStrategy(s Strategy) FilterOption {
	return func(o *filterOptions) {
		o.strategy = s
	}
}

// WithShape selects the structuring element. The default is Square.
func WithShape(s Shape) FilterOption {
	return func(o *filterOptions) {
		o.shape = s
	}
}

func applyFilterOptions(opts []FilterOption) filterOptions {
	fo := filterOptions{strategy: StrategyAuto, shape: Square}
	for _, opt := range opts {
		if opt != nil {
			opt(&fo)
		}
	}
	return fo
}

// separable reports whether a filter with these options and radius runs
// as two one-dimensional passes.
func (o filterOptions) separable(radius int) bool {
	switch o.strategy {
	case StrategySeparable:
		return true
	case StrategyDirect:
		return false
	default:
		return o.shape == Square && radius >= 2
	}
}
