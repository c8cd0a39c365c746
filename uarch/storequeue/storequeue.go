// Package storequeue implements the store queue's byte-granular oracle
// forwarding table: a map from byte address to the timestamps of the
// most recent store that wrote it. It never holds data, only the
// cycle a store's value became available and the cycle it is safe to
// reuse that byte's slot for a later store (its retirement cycle).
package storequeue

// Entry records one byte's most recent store.
type Entry struct {
	// ExecCycle is the cycle the storing instruction computed its value.
	ExecCycle uint64
	// RetireCycle is the cycle at or after which this byte's slot may
	// be reused by a later store, i.e. the storing instruction's own
	// retirement cycle (or later, if a still-older in-flight store to
	// the same byte retires after it).
	RetireCycle uint64
}

// Queue is the byte-addressed store-to-load forwarding table.
type Queue struct {
	bytes map[uint64]Entry
}

// New creates an empty Queue.
func New() *Queue {
	return &Queue{bytes: make(map[uint64]Entry)}
}

// Lookup returns the entry for byte addr and whether one exists. A
// load combines this, when present, with its own cache-access cycle to
// decide whether the store forwards or the load must wait on memory.
func (q *Queue) Lookup(addr uint64) (Entry, bool) {
	e, ok := q.bytes[addr]
	return e, ok
}

// Store records that addr was written at execCycle and will not be
// safe to overwrite again until retireCycle.
func (q *Queue) Store(addr uint64, execCycle, retireCycle uint64) {
	q.bytes[addr] = Entry{ExecCycle: execCycle, RetireCycle: retireCycle}
}

// Len reports the number of distinct byte addresses currently tracked,
// for diagnostics only.
func (q *Queue) Len() int { return len(q.bytes) }
