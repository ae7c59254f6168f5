package flat

import "github.com/gogpu/morph"

// manual wraps an explicit launch.
func manual(threads, blocks int) morph.Launch {
	return morph.Manual{Threads: threads, Blocks: blocks}
}

var twoSteps = morph.WithStrategy(morph.StrategySeparable)

// ThresholdManualOnce keeps pixels in [lo, hi] and zeroes the rest.
func ThresholdManualOnce(lo, hi byte, threads, blocks int) int {
	return with(func(e *morph.Engine) error { return e.Threshold(manual(threads, blocks), lo, hi) })
}

// ThresholdAutomaticOnce is ThresholdManualOnce with an automatic launch.
func ThresholdAutomaticOnce(lo, hi byte) int {
	return with(func(e *morph.Engine) error { return e.Threshold(morph.Auto, lo, hi) })
}

// ReverseThresholdManualOnce zeroes pixels in [lo, hi] and keeps the rest.
func ReverseThresholdManualOnce(lo, hi byte, threads, blocks int) int {
	return with(func(e *morph.Engine) error { return e.ReverseThreshold(manual(threads, blocks), lo, hi) })
}

// ReverseThresholdAutomaticOnce is ReverseThresholdManualOnce with an automatic launch.
func ReverseThresholdAutomaticOnce(lo, hi byte) int {
	return with(func(e *morph.Engine) error { return e.ReverseThreshold(morph.Auto, lo, hi) })
}

// ErodeManualOnce erodes with the direct square kernel.
func ErodeManualOnce(radius, threads, blocks int) int {
	return with(func(e *morph.Engine) error {
		return e.Erode(manual(threads, blocks), radius, morph.WithStrategy(morph.StrategyDirect))
	})
}

// ErodeAutomaticOnce erodes with the direct square kernel.
func ErodeAutomaticOnce(radius int) int {
	return with(func(e *morph.Engine) error {
		return e.Erode(morph.Auto, radius, morph.WithStrategy(morph.StrategyDirect))
	})
}

// ErodeTwoStepsManualOnce erodes with a row pass then a column pass.
func ErodeTwoStepsManualOnce(radius, threads, blocks int) int {
	return with(func(e *morph.Engine) error { return e.Erode(manual(threads, blocks), radius, twoSteps) })
}

// ErodeTwoStepsAutomaticOnce erodes with a row pass then a column pass.
func ErodeTwoStepsAutomaticOnce(radius int) int {
	return with(func(e *morph.Engine) error { return e.Erode(morph.Auto, radius, twoSteps) })
}

// DilateManualOnce dilates with the direct square kernel.
func DilateManualOnce(radius, threads, blocks int) int {
	return with(func(e *morph.Engine) error {
		return e.Dilate(manual(threads, blocks), radius, morph.WithStrategy(morph.StrategyDirect))
	})
}

// DilateAutomaticOnce dilates with the direct square kernel.
func DilateAutomaticOnce(radius int) int {
	return with(func(e *morph.Engine) error {
		return e.Dilate(morph.Auto, radius, morph.WithStrategy(morph.StrategyDirect))
	})
}

// DilateTwoStepsManualOnce dilates with a row pass then a column pass.
func DilateTwoStepsManualOnce(radius, threads, blocks int) int {
	return with(func(e *morph.Engine) error { return e.Dilate(manual(threads, blocks), radius, twoSteps) })
}

// DilateTwoStepsAutomaticOnce dilates with a row pass then a column pass.
func DilateTwoStepsAutomaticOnce(radius int) int {
	return with(func(e *morph.Engine) error { return e.Dilate(morph.Auto, radius, twoSteps) })
}

// OpenFastManualOnce runs an opening, picking the faster kernels.
func OpenFastManualOnce(radius, threads, blocks int) int {
	return with(func(e *morph.Engine) error { return e.Opening(manual(threads, blocks), radius) })
}

// OpenFastAutomaticOnce runs an opening with an automatic launch.
func OpenFastAutomaticOnce(radius int) int {
	return with(func(e *morph.Engine) error { return e.Opening(morph.Auto, radius) })
}

// CloseFastManualOnce runs a closing, picking the faster kernels.
func CloseFastManualOnce(radius, threads, blocks int) int {
	return with(func(e *morph.Engine) error { return e.Closing(manual(threads, blocks), radius) })
}

// CloseFastAutomaticOnce runs a closing with an automatic launch.
func CloseFastAutomaticOnce(radius int) int {
	return with(func(e *morph.Engine) error { return e.Closing(morph.Auto, radius) })
}
