package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/morph"
)

// step is one filter of a pipeline, e.g. "erode:2" or "threshold:100:255".
type step struct {
	op   string
	args []int
}

func (s step) String() string {
	parts := []string{s.op}
	for _, a := range s.args {
		parts = append(parts, strconv.Itoa(a))
	}
	return strings.Join(parts, ":")
}

// arity is the number of integer arguments each operation takes.
var arity = map[string]int{
	"threshold":  2,
	"rthreshold": 2,
	"invert":     0,
	"erode":      1,
	"dilate":     1,
	"open":       1,
	"close":      1,
}

var aliases = map[string]string{
	"th":                "threshold",
	"reverse-threshold": "rthreshold",
	"not":               "invert",
	"opening":           "open",
	"closing":           "close",
}

// parsePipeline parses a comma separated list of steps.
func parsePipeline(text string) ([]step, error) {
	var steps []step
	for _, raw := range strings.Split(text, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		fields := strings.Split(raw, ":")
		op := strings.ToLower(fields[0])
		if a, ok := aliases[op]; ok {
			op = a
		}
		n, ok := arity[op]
		if !ok {
			return nil, fmt.Errorf("unknown operation %q", fields[0])
		}
		if len(fields)-1 != n {
			return nil, fmt.Errorf("%s: want %d argument(s), got %d", op, n, len(fields)-1)
		}
		s := step{op: op}
		for _, f := range fields[1:] {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid argument %q", op, f)
			}
			s.args = append(s.args, v)
		}
		if err := s.validate(); err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("empty pipeline")
	}
	return steps, nil
}

func (s step) validate() error {
	switch s.op {
	case "threshold", "rthreshold":
		for _, v := range s.args {
			if v < 0 || v > 255 {
				return fmt.Errorf("%s: level %d out of range 0-255", s.op, v)
			}
		}
	case "erode", "dilate", "open", "close":
		if s.args[0] < 0 {
			return fmt.Errorf("%s: negative radius %d", s.op, s.args[0])
		}
	}
	return nil
}

// apply runs the step on e.
func (s step) apply(e *morph.Engine, l morph.Launch, opts ...morph.FilterOption) error {
	switch s.op {
	case "threshold":
		return e.Threshold(l, byte(s.args[0]), byte(s.args[1]))
	case "rthreshold":
		return e.ReverseThreshold(l, byte(s.args[0]), byte(s.args[1]))
	case "invert":
		return e.Invert(l)
	case "erode":
		return e.Erode(l, s.args[0], opts...)
	case "dilate":
		return e.Dilate(l, s.args[0], opts...)
	case "open":
		return e.Opening(l, s.args[0], opts...)
	case "close":
		return e.Closing(l, s.args[0], opts...)
	}
	return fmt.Errorf("unknown operation %q", s.op)
}
