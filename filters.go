package morph

import (
	"fmt"

	"github.com/gogpu/morph/internal/kernel"
)

// Threshold keeps pixels with lo <= v <= hi and zeroes the rest.
// With lo > hi every pixel is zeroed.
func (e *Engine) Threshold(l Launch, lo, hi byte) error {
	p := kernel.Params{Min: lo, Max: hi}
	return e.run("threshold", l, 0, p, kernel.Threshold)
}

// ReverseThreshold zeroes pixels with lo <= v <= hi and keeps the rest.
func (e *Engine) ReverseThreshold(l Launch, lo, hi byte) error {
	p := kernel.Params{Min: lo, Max: hi}
	return e.run("reverse threshold", l, 0, p, kernel.ReverseThreshold)
}

// Invert replaces every pixel v with 255-v.
func (e *Engine) Invert(l Launch) error {
	return e.run("invert", l, 0, kernel.Params{}, kernel.Invert)
}

// Erode replaces every pixel with the minimum over the structuring element
// of the given radius centred on it. Neighbours outside the image are
// ignored. Radius 0 leaves the image unchanged.
func (e *Engine) Erode(l Launch, radius int, opts ...FilterOption) error {
	return e.window("erode", l, radius, opts, erodeSteps)
}

// Dilate replaces every pixel with the maximum over the structuring
// element. See Erode.
func (e *Engine) Dilate(l Launch, radius int, opts ...FilterOption) error {
	return e.window("dilate", l, radius, opts, dilateSteps)
}

// Opening erodes then dilates. It removes bright features smaller than
// the structuring element.
func (e *Engine) Opening(l Launch, radius int, opts ...FilterOption) error {
	return e.window("open", l, radius, opts, erodeSteps, dilateSteps)
}

// Closing dilates then erodes. It fills dark gaps smaller than the
// structuring element.
func (e *Engine) Closing(l Launch, radius int, opts ...FilterOption) error {
	return e.window("close", l, radius, opts, dilateSteps, erodeSteps)
}

type stepFunc func(separable bool) []kernel.Kind

func erodeSteps(separable bool) []kernel.Kind {
	if separable {
		return []kernel.Kind{kernel.ErodeRows, kernel.ErodeCols}
	}
	return []kernel.Kind{kernel.Erode}
}

func dilateSteps(separable bool) []kernel.Kind {
	if separable {
		return []kernel.Kind{kernel.DilateRows, kernel.DilateCols}
	}
	return []kernel.Kind{kernel.Dilate}
}

// launchRadius is the radius automatic launches size for: the full radius
// when a kernel reads a two-dimensional window, 0 for separable passes.
func launchRadius(radius int, kinds []kernel.Kind) int {
	for _, k := range kinds {
		if k.Windowed() {
			return radius
		}
	}
	return 0
}

func (e *Engine) window(op string, l Launch, radius int, opts []FilterOption, stages ...stepFunc) error {
	fo := applyFilterOptions(opts)
	sep := fo.separable(radius)

	var kinds []kernel.Kind
	for _, st := range stages {
		kinds = append(kinds, st(sep)...)
	}
	p := kernel.Params{Radius: radius, Shape: kernel.Shape(fo.shape)}
	return e.run(op, l, launchRadius(radius, kinds), p, kinds...)
}

// run dispatches kinds in order. Each dispatch reads the current buffer
// and writes the other, after which the two swap.
func (e *Engine) run(op string, l Launch, launchRadius int, p kernel.Params, kinds ...kernel.Kind) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkLocked(op, StateLoaded); err != nil {
		return err
	}
	if p.Radius < 0 {
		return newError(op, CodeInvalidRadius, fmt.Errorf("radius %d", p.Radius))
	}
	if l == nil {
		l = Auto
	}
	cfg, err := l.resolve(e.width, e.height, launchRadius, e.dev.Limits())
	if err != nil {
		return wrap(op, err, CodeInvalidLaunchConfig)
	}

	p.Width, p.Height = e.width, e.height
	Logger().Debug("morph: filter", "op", op, "launch", l.String(), "config", cfg.String(),
		"radius", p.Radius, "shape", p.Shape.String(), "passes", len(kinds))

	for _, k := range kinds {
		if err := e.dev.Dispatch(k, p, cfg, e.cur, e.alt); err != nil {
			return wrap(op, err, CodeKernelFailed)
		}
		e.cur, e.alt = e.alt, e.cur
	}
	return nil
}
