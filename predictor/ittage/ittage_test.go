package ittage

import "testing"

func TestNewPredictorDefaultsToBaseBankPrediction(t *testing.T) {
	p := New()
	got := p.GetPrediction(0x4000)
	if got != 0 {
		t.Fatalf("expected 0 target before any training, got %#x", got)
	}
}

func TestRepeatedTrainingConvergesOnActualTarget(t *testing.T) {
	p := New()
	const pc = 0x401000
	const target = 0x800000

	var last uint64
	for i := 0; i < 64; i++ {
		last = p.GetPrediction(pc)
		p.UpdatePredictor(pc, target)
	}

	if last != target {
		t.Fatalf("expected predictor to converge on %#x after repeated training, got %#x", target, last)
	}
}

func TestTrackOtherInstDoesNotPanic(t *testing.T) {
	p := New()
	for i := uint64(0); i < 32; i++ {
		p.TrackOtherInst(0x1000+i*4, 0x1000+i*4+4)
	}
}

func TestDivergingTargetsReconverge(t *testing.T) {
	p := New()
	const pc = 0x5000

	for i := 0; i < 32; i++ {
		p.GetPrediction(pc)
		p.UpdatePredictor(pc, 0x9000)
	}
	for i := 0; i < 64; i++ {
		p.GetPrediction(pc)
		p.UpdatePredictor(pc, 0xa000)
	}
	if got := p.GetPrediction(pc); got != 0xa000 {
		t.Fatalf("expected predictor to retrain onto the new target, got %#x", got)
	}
}
