package facility

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseLayout reads a layout of the form
//
//	W1:High Care Ward:1,2,4,4,4,4;W2:Standard Care Ward:1,2,4,4,4,4
//
// An empty string yields the reference layout.
func ParseLayout(raw string) ([]WardSpec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ReferenceLayout(), nil
	}

	var specs []WardSpec
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: ward entry %q needs id:name:capacities", ErrInvalidLayout, part)
		}

		spec := WardSpec{
			ID:   strings.TrimSpace(fields[0]),
			Name: strings.TrimSpace(fields[1]),
		}
		for _, c := range strings.Split(fields[2], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(c))
			if err != nil {
				return nil, fmt.Errorf("%w: capacity %q in ward %s", ErrInvalidLayout, c, spec.ID)
			}
			spec.Capacities = append(spec.Capacities, n)
		}
		specs = append(specs, spec)
	}

	return specs, nil
}
