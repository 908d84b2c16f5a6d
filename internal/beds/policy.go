package beds

import (
	"fmt"
	"sort"
)

type IsolationMode string

// ModeReservedOnly restricts isolation patients to a fixed set of beds.
const ModeReservedOnly IsolationMode = "RESERVED_ONLY"

var DefaultReservedBeds = []string{"W1R1B1", "W2R1B1"}

// IsolationPolicy is immutable after construction.
type IsolationPolicy struct {
	mode     IsolationMode
	reserved map[string]struct{}
}

func NewIsolationPolicy(mode IsolationMode, bedIDs []string) (IsolationPolicy, error) {
	if mode != ModeReservedOnly {
		return IsolationPolicy{}, fmt.Errorf("unsupported isolation mode %q", mode)
	}
	reserved := make(map[string]struct{}, len(bedIDs))
	for _, id := range bedIDs {
		reserved[id] = struct{}{}
	}
	return IsolationPolicy{mode: mode, reserved: reserved}, nil
}

func DefaultIsolationPolicy() IsolationPolicy {
	p, _ := NewIsolationPolicy(ModeReservedOnly, DefaultReservedBeds)
	return p
}

func (p IsolationPolicy) Mode() IsolationMode { return p.mode }

func (p IsolationPolicy) IsReserved(bedID string) bool {
	_, ok := p.reserved[bedID]
	return ok
}

func (p IsolationPolicy) ReservedBeds() []string {
	out := make([]string, 0, len(p.reserved))
	for id := range p.reserved {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
