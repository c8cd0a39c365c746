// Package cache models a level of the memory hierarchy as a pure
// timestamp propagator: it never stores data, only the cycle at which
// each resident block last became available. An access asks "when is
// this address ready" and, on a miss, chains into the next level (or
// into main memory for the last level) to compute that answer, installs
// the resulting timestamp in a victim way, and returns it.
//
// Block residency and victim selection are delegated to Akita's cache
// directory so the LRU bookkeeping matches the rest of the stack; only
// the per-block payload (a timestamp instead of bytes) is specialized.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config describes one level of the hierarchy.
type Config struct {
	// SizeBytes is the total capacity of the level.
	SizeBytes int
	// Assoc is the number of ways per set.
	Assoc int
	// BlockSize is the line size in bytes.
	BlockSize int
	// Latency is the number of cycles this level adds on top of
	// whatever cycle the access arrived at, whether it hits or misses.
	Latency uint64
}

// Stats accumulates hit/miss counts, split by demand vs. prefetch
// accesses so a report can compute a prefetch-specific hit rate.
type Stats struct {
	Accesses   uint64
	Misses     uint64
	PFAccesses uint64
	PFMisses   uint64
}

// MissRate returns the demand miss rate, or 0 if there were no demand
// accesses.
func (s Stats) MissRate() float64 {
	if s.Accesses == 0 {
		return 0
	}
	return float64(s.Misses) / float64(s.Accesses)
}

// PFMissRate returns the prefetch-access miss rate, or 0 if there were
// no prefetch accesses.
func (s Stats) PFMissRate() float64 {
	if s.PFAccesses == 0 {
		return 0
	}
	return float64(s.PFMisses) / float64(s.PFAccesses)
}

// Level is one level of the timestamp-propagating cache hierarchy.
type Level struct {
	name   string
	config Config

	directory *akitacache.DirectoryImpl
	avail     []uint64

	next              *Level
	mainMemoryLatency uint64

	stats Stats
}

// New creates a cache level named name that chains misses into next.
// If next is nil, a miss resolves by waiting mainMemoryLatency cycles
// on top of this level's own latency, modeling a last-level miss that
// goes straight to main memory.
func New(name string, config Config, next *Level, mainMemoryLatency uint64) *Level {
	numSets := config.SizeBytes / (config.Assoc * config.BlockSize)
	totalBlocks := numSets * config.Assoc

	return &Level{
		name:   name,
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Assoc,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		avail:             make([]uint64, totalBlocks),
		next:              next,
		mainMemoryLatency: mainMemoryLatency,
	}
}

// Name returns the level's configured name, used only for reporting.
func (l *Level) Name() string { return l.name }

// Config returns the level's configuration.
func (l *Level) Config() Config { return l.config }

// Stats returns the level's accumulated statistics.
func (l *Level) Stats() Stats { return l.stats }

// ResetStats clears accumulated statistics without disturbing resident
// blocks.
func (l *Level) ResetStats() { l.stats = Stats{} }

// Reset invalidates every resident block and clears statistics.
func (l *Level) Reset() {
	l.directory.Reset()
	for i := range l.avail {
		l.avail[i] = 0
	}
	l.stats = Stats{}
}

func (l *Level) blockIndex(block *akitacache.Block) int {
	return block.SetID*l.config.Assoc + block.WayID
}

func (l *Level) blockAddr(addr uint64) uint64 {
	return (addr / uint64(l.config.BlockSize)) * uint64(l.config.BlockSize)
}

// IsHit reports whether addr is resident and already available by
// cycle+latency, without installing anything or affecting LRU order.
// A block can be resident but not yet hit this way if it is still
// in flight from an earlier miss whose fill has not landed.
func (l *Level) IsHit(cycle uint64, addr uint64) bool {
	block := l.directory.Lookup(0, l.blockAddr(addr))
	if block == nil || !block.IsValid {
		return false
	}
	return cycle+l.config.Latency >= l.avail[l.blockIndex(block)]
}

// Access models one timestamp-propagating access to addr, arriving no
// earlier than cycle, and returns the cycle at which the block becomes
// available. read distinguishes loads from stores for statistics only;
// both follow the same victim/fill path since no data is stored. pf
// marks the access as prefetch-issued, routing it into the prefetch
// statistics instead of the demand ones.
func (l *Level) Access(cycle uint64, read bool, addr uint64, pf bool) uint64 {
	if pf {
		l.stats.PFAccesses++
	} else {
		l.stats.Accesses++
	}

	blockAddr := l.blockAddr(addr)
	block := l.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		idx := l.blockIndex(block)
		avail := l.avail[idx]
		if ready := cycle + l.config.Latency; ready > avail {
			avail = ready
		}
		l.avail[idx] = avail
		l.directory.Visit(block)
		return avail
	}

	if pf {
		l.stats.PFMisses++
	} else {
		l.stats.Misses++
	}

	var avail uint64
	if l.next != nil {
		avail = l.next.Access(cycle+l.config.Latency, read, addr, pf)
	} else {
		avail = cycle + l.config.Latency + l.mainMemoryLatency
	}

	victim := l.directory.FindVictim(blockAddr)
	victim.Tag = blockAddr
	victim.IsValid = true
	l.avail[l.blockIndex(victim)] = avail
	l.directory.Visit(victim)

	return avail
}
