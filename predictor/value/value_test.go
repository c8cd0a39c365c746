package value

import (
	"testing"

	"github.com/sarchlab/cvp1sim/trace"
)

func trainOnce(p *Predictor, seqNo, pc, value, latency uint64) (uint64, bool) {
	v, spec := p.GetPrediction(seqNo, pc, 0)
	p.SpeculativeUpdate(seqNo, true, 2, pc, pc+4, trace.Load, 0xdeadbeef, 0xdeadbeef, 0xdeadbeef)
	p.UpdatePredictor(seqNo, value, latency)
	return v, spec
}

func TestRepeatedConstantValueConvergesToSpeculation(t *testing.T) {
	p := New()
	const pc = 0x1000

	// The allocation/confidence-increment gates below are pseudo-random
	// (myRandom, matching the reference predictor's throttling), so
	// this runs many more iterations than the minimum needed to leave
	// ample room for the deterministic draw sequence to clear them.
	var lastSpec bool
	var lastVal uint64
	for i := uint64(0); i < 4096; i++ {
		lastVal, lastSpec = trainOnce(p, i, pc, 42, 1)
	}
	if !lastSpec {
		t.Fatal("expected the predictor to eventually speculate on a constant value")
	}
	if lastVal != 42 {
		t.Fatalf("expected predicted value 42, got %d", lastVal)
	}
}

func TestStrideSequenceIsPredicted(t *testing.T) {
	p := New()
	const pc = 0x2000

	value := uint64(100)
	var lastVal uint64
	var lastSpec bool
	for i := uint64(0); i < 4096; i++ {
		lastVal, lastSpec = trainOnce(p, i, pc, value, 1)
		value += 8
	}
	if !lastSpec {
		t.Fatal("expected the predictor to speculate on a fixed stride")
	}
	_ = lastVal
}

func TestNoPredictionBeforeAnyTraining(t *testing.T) {
	p := New()
	_, spec := p.GetPrediction(0, 0x3000, 0)
	if spec {
		t.Fatal("expected no speculation before the predictor has seen anything")
	}
}

func TestDistinctPCsDoNotAliasPredictions(t *testing.T) {
	p := New()
	seq := uint64(0)
	for i := 0; i < 128; i++ {
		trainOnce(p, seq, 0x4000, 7, 1)
		seq++
		trainOnce(p, seq, 0x5000, 99, 1)
		seq++
	}
	v1, spec1 := p.GetPrediction(seq, 0x4000, 0)
	if spec1 && v1 != 7 {
		t.Fatalf("expected 0x4000 to predict 7 when speculating, got %d", v1)
	}
}

func TestSlowLatencyLoadsStillBuildConfidentSpeculation(t *testing.T) {
	p := New()
	const pc = 0x6000

	// The reference predictor's allocation/confidence masks drop their
	// cache-hit bonus terms for a load that misses all the way to
	// memory, which loosens rather than tightens the random gate: a
	// correct prediction matters most exactly when the load is slow,
	// so the reference learns these aggressively rather than starving
	// them. A constant value at a high, constant latency should still
	// converge to confident speculation.
	var lastSpec bool
	var lastVal uint64
	for i := uint64(0); i < 4096; i++ {
		lastVal, lastSpec = trainOnce(p, i, pc, 55, 300)
	}
	if !lastSpec {
		t.Fatal("expected a constant-value high-latency load to build confident speculation")
	}
	if lastVal != 55 {
		t.Fatalf("expected predicted value 55, got %d", lastVal)
	}
}

func TestStorageBitsIsPositive(t *testing.T) {
	p := New()
	if p.StorageBits() <= 0 {
		t.Fatal("expected a positive modeled storage size")
	}
}
