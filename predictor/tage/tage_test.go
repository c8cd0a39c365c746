package tage

import "testing"

func TestConvergesOnAlwaysTakenBranch(t *testing.T) {
	p := New()
	const pc = 0x401000

	var last bool
	for i := 0; i < 64; i++ {
		last = p.GetPrediction(pc)
		p.UpdatePredictor(pc, true, pc+4)
	}
	if !last {
		t.Fatal("expected predictor to learn an always-taken branch")
	}
}

func TestConvergesOnAlwaysNotTakenBranch(t *testing.T) {
	p := New()
	const pc = 0x402000

	var last bool
	for i := 0; i < 64; i++ {
		last = p.GetPrediction(pc)
		p.UpdatePredictor(pc, false, pc+4)
	}
	if last {
		t.Fatal("expected predictor to learn an always-not-taken branch")
	}
}

func TestReconvergesAfterDirectionFlip(t *testing.T) {
	p := New()
	const pc = 0x403000

	for i := 0; i < 32; i++ {
		p.GetPrediction(pc)
		p.UpdatePredictor(pc, true, pc+4)
	}
	for i := 0; i < 64; i++ {
		p.GetPrediction(pc)
		p.UpdatePredictor(pc, false, pc+4)
	}
	if got := p.GetPrediction(pc); got {
		t.Fatal("expected predictor to retrain onto not-taken")
	}
}

func TestDistinctPCsTrainIndependently(t *testing.T) {
	p := New()
	for i := 0; i < 48; i++ {
		p.GetPrediction(0x1000)
		p.UpdatePredictor(0x1000, true, 0x1000+4)
		p.GetPrediction(0x2000)
		p.UpdatePredictor(0x2000, false, 0x2000+4)
	}
	// Replay the trained sequence so 0x2000 is queried in the same
	// global-history context it was trained in.
	if !p.GetPrediction(0x1000) {
		t.Fatal("expected 0x1000 to be predicted taken")
	}
	p.UpdatePredictor(0x1000, true, 0x1000+4)
	if p.GetPrediction(0x2000) {
		t.Fatal("expected 0x2000 to be predicted not-taken")
	}
}
