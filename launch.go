package morph

import (
	"fmt"

	"github.com/gogpu/morph/internal/launch"
)

// Launch selects how a filter's kernels are launched: Manual with a caller
// chosen thread and block count, or Automatic.
type Launch interface {
	// String describes the launch, e.g. "manual(64x10)".
	String() string

	resolve(width, height, radius int, lim launch.Limits) (launch.Config, error)
}

// Manual launches Blocks workgroups of Threads invocations.
//
// Any positive configuration processes every pixel exactly once: when
// Threads*Blocks is smaller than the image, each invocation handles several
// pixels. Threads must not exceed the device workgroup limit.
type Manual struct {
	Threads int
	Blocks  int
}

func (m Manual) String() string {
	return fmt.Sprintf("manual(%dx%d)", m.Threads, m.Blocks)
}

func (m Manual) resolve(_, _, _ int, lim launch.Limits) (launch.Config, error) {
	return launch.Manual(m.Threads, m.Blocks, lim)
}

// Automatic derives the launch from the image size and filter radius so
// that Threads*Blocks covers every pixel.
type Automatic struct{}

func (Automatic) String() string { return "automatic" }

func (Automatic) resolve(width, height, radius int, lim launch.Limits) (launch.Config, error) {
	return launch.Automatic(width, height, radius, lim)
}

// Auto is shorthand for Automatic{}.
var Auto Launch = Automatic{}
