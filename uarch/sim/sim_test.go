package sim

import (
	"testing"

	"github.com/sarchlab/cvp1sim/config"
	"github.com/sarchlab/cvp1sim/trace"
)

func smallConfig() config.Config {
	cfg := config.Default()
	cfg.WindowSize = 32
	cfg.FetchModelICache = false
	cfg.PrefetcherEnable = false
	return cfg
}

func TestSingleALUInstructionRetiresAndCountsOneInstruction(t *testing.T) {
	s := New(smallConfig())
	rec := &trace.Record{
		Insn:   trace.ALU,
		PC:     0x1000,
		NextPC: 0x1004,
		D:      trace.Operand{Valid: true, IsInt: true, LogReg: 3, Value: 7},
	}
	s.Step(rec)

	if s.Stats().NumInst != 1 {
		t.Fatalf("expected 1 instruction, got %d", s.Stats().NumInst)
	}
	if s.Stats().Cycle == 0 {
		t.Fatal("expected a nonzero completion cycle")
	}
}

func TestDependentInstructionWaitsOnProducer(t *testing.T) {
	s := New(smallConfig())
	producer := &trace.Record{
		Insn:   trace.SlowALU,
		PC:     0x1000,
		NextPC: 0x1004,
		D:      trace.Operand{Valid: true, IsInt: true, LogReg: 5, Value: 1},
	}
	s.Step(producer)
	cycleAfterProducer := s.Stats().Cycle

	consumer := &trace.Record{
		Insn:   trace.ALU,
		PC:     0x1004,
		NextPC: 0x1008,
		A:      trace.Operand{Valid: true, IsInt: true, LogReg: 5, Value: 1},
		D:      trace.Operand{Valid: true, IsInt: true, LogReg: 6, Value: 2},
	}
	s.Step(consumer)

	if s.Stats().Cycle <= cycleAfterProducer {
		t.Fatalf("expected the consumer to complete after its producer: %d <= %d", s.Stats().Cycle, cycleAfterProducer)
	}
}

func TestLoadAndStoreToSameAddressForwardThroughStoreQueue(t *testing.T) {
	s := New(smallConfig())
	store := &trace.Record{
		Insn:    trace.Store,
		PC:      0x2000,
		NextPC:  0x2004,
		IsStore: true,
		Addr:    0x4000,
		Size:    8,
		A:       trace.Operand{Valid: true, IsInt: true, LogReg: 1, Value: 0xAB},
	}
	s.Step(store)

	load := &trace.Record{
		Insn:   trace.Load,
		PC:     0x2004,
		NextPC: 0x2008,
		IsLoad: true,
		Addr:   0x4000,
		Size:   8,
		D:      trace.Operand{Valid: true, IsInt: true, LogReg: 2, Value: 0xAB},
	}
	s.Step(load)

	if s.Stats().NumLoad != 1 {
		t.Fatalf("expected 1 load, got %d", s.Stats().NumLoad)
	}
	if s.Stats().NumLoadSQMiss != 0 {
		t.Fatal("expected the load to forward from the store queue, not miss it")
	}
}

func TestValuePredictionTracksEligibleInstructions(t *testing.T) {
	cfg := smallConfig()
	cfg.VPEnable = true
	cfg.VPPerfect = true
	s := New(cfg)

	for i := 0; i < 8; i++ {
		rec := &trace.Record{
			Insn:   trace.Load,
			PC:     0x3000,
			NextPC: 0x3004,
			IsLoad: true,
			Addr:   0x5000,
			Size:   4,
			D:      trace.Operand{Valid: true, IsInt: true, LogReg: 4, Value: 99},
		}
		s.Step(rec)
	}

	if s.Stats().NumEligible != 8 {
		t.Fatalf("expected 8 eligible instructions, got %d", s.Stats().NumEligible)
	}
	if s.Stats().CorrectRate() != 1.0 {
		t.Fatalf("expected perfect value prediction to be always correct, got %f", s.Stats().CorrectRate())
	}
}

func TestFiniteFetchWidthStopsTheBundle(t *testing.T) {
	cfg := smallConfig()
	cfg.FetchWidth = 2
	cfg.FetchNumBranch = 0
	s := New(cfg)

	for i := 0; i < 6; i++ {
		pc := uint64(0x1000 + 4*i)
		rec := &trace.Record{Insn: trace.ALU, PC: pc, NextPC: pc + 4}
		s.Step(rec)
	}

	if s.Stats().NumInst != 6 {
		t.Fatalf("expected 6 instructions retired, got %d", s.Stats().NumInst)
	}
	// Six straight-line instructions in bundles of two advance fetch
	// three times.
	if s.fetchCycle != 3 {
		t.Fatalf("expected fetch cycle 3 after three 2-wide bundles, got %d", s.fetchCycle)
	}
}

func TestBranchMispredictionStallsFetch(t *testing.T) {
	cfg := smallConfig()
	s := New(cfg)

	// Train the conditional predictor to expect not-taken, then flip
	// direction so the final branch mispredicts.
	for i := 0; i < 32; i++ {
		rec := &trace.Record{Insn: trace.CondBranch, PC: 0x9000, NextPC: 0x9004}
		s.Step(rec)
	}
	before := s.fetchCycle

	flip := &trace.Record{Insn: trace.CondBranch, PC: 0x9000, NextPC: 0xA000}
	s.Step(flip)

	if s.fetchCycle < before {
		t.Fatal("expected fetch cycle to never move backward")
	}
	if s.fetchCycle < before+cfg.PipelineFillLatency {
		t.Fatalf("expected the mispredicted branch to hold fetch until it executes: fetch cycle %d, before %d", s.fetchCycle, before)
	}
}
