// Package schedule implements a finite-width, per-cycle resource
// scheduler: a circular occupancy counter that answers "what is the
// earliest cycle at or after X where this resource still has a free
// slot", used to model a fixed number of execution lanes.
package schedule

import "fmt"

// depthIncrement is the growth quantum for the occupancy ring; it must
// stay a power of two so the ring index can be computed with a mask.
const depthIncrement = 256

// MaxCycle is the sentinel Schedule returns when no cycle within the
// requested window has a free slot.
const MaxCycle = ^uint64(0)

// Schedule tracks how many of a fixed-width resource's slots are booked
// in each cycle, growing its ring lazily as cycles advance.
type Schedule struct {
	occupancy []uint64
	depth      uint64
	width      uint64
	baseCycle  uint64
}

// New creates a Schedule for a resource with the given per-cycle width
// (e.g. the number of load/store execution lanes).
func New(width uint64) *Schedule {
	s := &Schedule{
		width: width,
		depth: depthIncrement,
	}
	s.occupancy = make([]uint64, s.depth)
	return s
}

func (s *Schedule) mod(x uint64) uint64 {
	return x & (s.depth - 1)
}

func (s *Schedule) resize(newDepth uint64) {
	increments := newDepth / depthIncrement
	if newDepth%depthIncrement != 0 {
		increments++
	}
	depth := increments * depthIncrement

	grown := make([]uint64, depth)
	copy(grown, s.occupancy)
	s.occupancy = grown
	s.depth = depth
}

// Schedule finds the earliest cycle at or after startCycle (and at or
// before startCycle+maxDelta, if maxDelta is given) with a free slot,
// books it, and returns it. It returns MaxCycle if no such cycle exists
// within the window.
func (s *Schedule) Schedule(startCycle uint64, maxDelta ...uint64) uint64 {
	if startCycle < s.baseCycle {
		panic(fmt.Sprintf("schedule: start cycle %d precedes base cycle %d", startCycle, s.baseCycle))
	}

	limitCycle := MaxCycle
	if len(maxDelta) > 0 && maxDelta[0] != MaxCycle {
		limitCycle = startCycle + maxDelta[0]
	}

	cycle := startCycle
	for {
		if cycle-s.baseCycle+1 > s.depth {
			s.resize(cycle - s.baseCycle + 1)
		}
		if s.occupancy[s.mod(cycle)] < s.width {
			s.occupancy[s.mod(cycle)]++
			return cycle
		}
		cycle++
		if cycle > limitCycle {
			return MaxCycle
		}
	}
}

// TrySchedule is like Schedule but does not book the slot it finds; it
// assumes every earlier cycle has already been scheduled by the caller.
func (s *Schedule) TrySchedule(tryCycle uint64) uint64 {
	if tryCycle < s.baseCycle {
		panic(fmt.Sprintf("schedule: try cycle %d precedes base cycle %d", tryCycle, s.baseCycle))
	}
	cycle := tryCycle
	for {
		if cycle-s.baseCycle+1 > s.depth {
			s.resize(cycle - s.baseCycle + 1)
		}
		if s.occupancy[s.mod(cycle)] < s.width {
			return cycle
		}
		cycle++
	}
}

// AdvanceBaseCycle clears occupancy counts for cycles that can no longer
// be scheduled into (everything before newBaseCycle) and moves the base
// forward. newBaseCycle must not precede the current base.
func (s *Schedule) AdvanceBaseCycle(newBaseCycle uint64) {
	if newBaseCycle < s.baseCycle {
		panic(fmt.Sprintf("schedule: new base cycle %d precedes current base %d", newBaseCycle, s.baseCycle))
	}
	for i := s.baseCycle; i < newBaseCycle; i++ {
		s.occupancy[s.mod(i)] = 0
	}
	s.baseCycle = newBaseCycle
}
