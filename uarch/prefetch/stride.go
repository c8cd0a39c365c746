// Package prefetch implements a PC-indexed reference-prediction-table
// stride prefetcher: it learns, per load instruction, a constant
// stride between successive effective addresses and, once confident,
// queues a prefetch two strides ahead of the most recent access.
package prefetch

// MaxCycle is returned by GetOldestPFCycle when the prefetch queue is
// empty, mirroring the scheduler's own "no such cycle" sentinel.
const MaxCycle = ^uint64(0)

const (
	numRPTEntries       = 1024
	prefetchMultiplier  = 2
	pfQueueSize         = 32
	cacheLineMask       = ^uint64(63)
	mustIssueBeforeCycles = 8
)

// state is an entry's confidence in its learned stride.
type state int

const (
	stateInvalid state = iota
	stateInitial
	stateTransient
	stateSteadyState
	stateNoPrediction
)

// rptEntry is one reference-prediction-table row: a load PC's most
// recently observed address and the stride between it and the one
// before.
type rptEntry struct {
	state         state
	tag           uint64
	prevAddress   uint64
	currentAddress uint64
	stride        int64
	lru           uint64
	index         int
}

// trainingInfo is what the simulator reports to the prefetcher each
// time a tracked load retires.
type trainingInfo struct {
	PC      uint64
	Address uint64
	Size    uint64
	Miss    bool
}

// TrainingInfo is the public alias of trainingInfo; kept distinct from
// the unexported field layout so callers construct it by name.
type TrainingInfo = trainingInfo

// prefetchReq is one queued, not-yet-issued prefetch: an address and
// the cycle it was generated, used to drop it if it goes stale before
// the fetch stream catches up to it.
type prefetchReq struct {
	Address        uint64
	CycleGenerated uint64
}

// Stats accumulates the prefetcher's lifetime counters, mirroring the
// reference harness's print_stats().
type Stats struct {
	Trainings           uint64
	Generated           uint64
	Issued              uint64
	DuplicateFiltered   uint64
	DroppedUntimely     uint64
	PutBack             uint64
	StrideZero          uint64
}

// Stride is a set-free, fully-associative reference-prediction-table
// stride prefetcher with an LRU-managed table and a small FIFO of
// queued-but-not-yet-issued prefetches.
type Stride struct {
	rpt   [numRPTEntries]rptEntry
	queue []prefetchReq
	stats Stats
}

// New creates a Stride prefetcher with an empty table and queue.
func New() *Stride {
	s := &Stride{}
	for i := range s.rpt {
		s.rpt[i].tag = 0xdeadbeef
		s.rpt[i].prevAddress = 0xdeadbeef
		s.rpt[i].currentAddress = 0xdeadbeef
		s.rpt[i].stride = -1
		s.rpt[i].index = i
		s.rpt[i].lru = uint64(i)
	}
	return s
}

// Stats returns the prefetcher's accumulated counters.
func (s *Stride) Stats() Stats { return s.stats }

func (s *Stride) victimWay() int {
	for i := range s.rpt {
		if s.rpt[i].lru == 0 {
			return i
		}
	}
	panic("prefetch: no victim way found")
}

func (s *Stride) updateLRU(index int) {
	lruWay := &s.rpt[index]
	for i := range s.rpt {
		if s.rpt[i].lru > lruWay.lru {
			s.rpt[i].lru--
		}
	}
	lruWay.lru = numRPTEntries - 1
}

// Lookahead checks whether the entry for laPC is in SteadyState and,
// if so, generates a prefetch for it at cycle. It is a no-op if laPC
// has no tracked entry or the entry isn't confident yet.
func (s *Stride) Lookahead(laPC uint64, cycle uint64) {
	for i := range s.rpt {
		if s.rpt[i].tag == laPC {
			if s.rpt[i].state == stateSteadyState {
				s.generate(&s.rpt[i], cycle)
			}
			return
		}
	}
}

// Train updates the entry for info.PC with the newly observed address,
// advancing its confidence state machine (Initial -> Transient ->
// SteadyState on a repeated stride, falling back to NoPrediction or
// Initial when the stride changes).
func (s *Stride) Train(info TrainingInfo) {
	s.stats.Trainings++

	idx := -1
	for i := range s.rpt {
		if s.rpt[i].tag == info.PC {
			idx = i
			break
		}
	}

	if idx < 0 {
		victim := s.victimWay()
		e := &s.rpt[victim]
		e.state = stateInitial
		e.tag = info.PC
		e.prevAddress = 0xdeadbeef
		e.currentAddress = info.Address
		e.stride = 0
		s.updateLRU(victim)
		return
	}

	e := &s.rpt[idx]
	stride := int64(info.Address) - int64(e.currentAddress)
	switch e.state {
	case stateInitial:
		if stride == e.stride {
			e.state = stateSteadyState
		} else {
			e.stride = stride
			e.state = stateTransient
		}
		e.prevAddress = e.currentAddress
		e.currentAddress = info.Address
	case stateTransient:
		if stride == e.stride {
			e.state = stateSteadyState
		} else {
			e.state = stateNoPrediction
			e.stride = stride
		}
		e.prevAddress = e.currentAddress
		e.currentAddress = info.Address
	case stateSteadyState:
		if stride == e.stride {
			e.state = stateSteadyState
		} else {
			e.state = stateInitial
		}
		e.prevAddress = e.currentAddress
		e.currentAddress = info.Address
	case stateNoPrediction:
		if stride == e.stride {
			e.state = stateTransient
		} else {
			e.state = stateNoPrediction
			e.stride = stride
		}
		e.prevAddress = e.currentAddress
		e.currentAddress = info.Address
	case stateInvalid:
		panic("prefetch: training unexpected invalid-state entry")
	}

	if e.stride != 0 {
		s.updateLRU(idx)
	}
}

func (s *Stride) generate(e *rptEntry, cycle uint64) {
	if e.stride == 0 {
		s.stats.StrideZero++
		return
	}

	addr := uint64(int64(e.currentAddress) + e.stride*prefetchMultiplier)
	for _, qpf := range s.queue {
		if (qpf.Address & cacheLineMask) == (addr & cacheLineMask) {
			s.stats.DuplicateFiltered++
			return
		}
	}

	s.queue = append(s.queue, prefetchReq{Address: addr, CycleGenerated: cycle})
	// Keep the queue sorted oldest-to-youngest by generation cycle;
	// appends arrive in generation order already, but Lookahead can
	// be driven out of strict program order by the caller.
	for i := len(s.queue) - 1; i > 0 && s.queue[i].CycleGenerated < s.queue[i-1].CycleGenerated; i-- {
		s.queue[i], s.queue[i-1] = s.queue[i-1], s.queue[i]
	}
	s.stats.Generated++
}

// Issue drops any queued prefetch that has sat unissued for more than
// mustIssueBeforeCycles past its generation cycle, then returns the
// oldest remaining one if it is old enough to issue at cycle.
func (s *Stride) Issue(cycle uint64) (uint64, bool) {
	for len(s.queue) > 0 && s.queue[0].CycleGenerated+mustIssueBeforeCycles < cycle {
		s.queue = s.queue[1:]
		s.stats.DroppedUntimely++
	}

	if len(s.queue) == 0 {
		return 0, false
	}

	front := s.queue[0]
	if front.CycleGenerated <= cycle {
		s.queue = s.queue[1:]
		s.stats.Issued++
		return front.Address, true
	}
	return 0, false
}

// PutBack returns a prefetch address Issue handed out but the caller
// could not actually schedule this cycle (e.g. lost lane arbitration
// to a demand access), re-queuing it at the front.
func (s *Stride) PutBack(addr uint64, cycleGenerated uint64) {
	s.stats.PutBack++
	s.queue = append([]prefetchReq{{Address: addr, CycleGenerated: cycleGenerated}}, s.queue...)
}

// GetOldestPFCycle returns the generation cycle of the oldest queued
// prefetch, or MaxCycle if the queue is empty.
func (s *Stride) GetOldestPFCycle() uint64 {
	if len(s.queue) == 0 {
		return MaxCycle
	}
	return s.queue[0].CycleGenerated
}
