package branch

import (
	"testing"

	"github.com/sarchlab/cvp1sim/trace"
)

func TestCondBranchTrainsTowardsConvergence(t *testing.T) {
	p := New(16, false)
	rec := &trace.Record{Insn: trace.CondBranch, PC: 0x1000, NextPC: 0x1000 + 4}

	var lastMisp bool
	for i := 0; i < 64; i++ {
		lastMisp = p.Predict(rec)
	}
	if lastMisp {
		t.Fatal("expected the conditional predictor to converge on a repeated outcome")
	}
	if p.Stats().BranchN != 64 {
		t.Fatalf("expected 64 branch observations, got %d", p.Stats().BranchN)
	}
}

func TestUncondDirectBranchNeverMispredicts(t *testing.T) {
	p := New(16, false)
	rec := &trace.Record{Insn: trace.UncondDirectBranch, PC: 0x2000, NextPC: 0x9000}

	if p.Predict(rec) {
		t.Fatal("direct jumps are architecturally known and never mispredict")
	}
	if p.Stats().JumpDirN != 1 {
		t.Fatalf("expected 1 direct jump counted, got %d", p.Stats().JumpDirN)
	}
}

func TestPerfectIndirectNeverMispredicts(t *testing.T) {
	p := New(16, true)
	rec := &trace.Record{Insn: trace.UncondIndirectBranch, PC: 0x3000, NextPC: 0x4000}

	if p.Predict(rec) {
		t.Fatal("perfect indirect prediction should never report a misprediction")
	}
	if p.Stats().JumpIndN != 1 || p.Stats().JumpIndM != 0 {
		t.Fatalf("unexpected indirect stats: %+v", p.Stats())
	}
}

func TestIndirectBranchTrainsTowardsConvergence(t *testing.T) {
	p := New(16, false)
	rec := &trace.Record{Insn: trace.UncondIndirectBranch, PC: 0x5000, NextPC: 0x6000}

	var lastMisp bool
	for i := 0; i < 64; i++ {
		lastMisp = p.Predict(rec)
	}
	if lastMisp {
		t.Fatal("expected ITTAGE to converge on a repeated indirect target")
	}
}

func TestNonControlInstructionScoredAgainstFallThrough(t *testing.T) {
	p := New(16, false)
	straight := &trace.Record{Insn: trace.ALU, PC: 0x7000, NextPC: 0x7000 + 4}
	if p.Predict(straight) {
		t.Fatal("fall-through ALU instruction should never mispredict")
	}

	jumpy := &trace.Record{Insn: trace.ALU, PC: 0x8000, NextPC: 0x9000}
	if !p.Predict(jumpy) {
		t.Fatal("expected a non-branch whose next_pc isn't pc+4 to be flagged")
	}
	if p.Stats().NotCtrlN != 2 || p.Stats().NotCtrlM != 1 {
		t.Fatalf("unexpected not-control stats: %+v", p.Stats())
	}
}

func TestTotalSumsAcrossClasses(t *testing.T) {
	p := New(16, false)
	p.Predict(&trace.Record{Insn: trace.CondBranch, PC: 0x1000, NextPC: 0x1004})
	p.Predict(&trace.Record{Insn: trace.UncondDirectBranch, PC: 0x2000, NextPC: 0x9000})

	n, _ := p.Stats().Total()
	if n != 2 {
		t.Fatalf("expected total of 2 instructions, got %d", n)
	}
}
