// Package branch combines the conditional-direction (tage), indirect-
// target (ittage), and return-address (ras) predictors into the single
// predict-and-train call the simulator makes once per control-transfer
// instruction, and tallies the same per-class misprediction
// measurements the reference harness reports.
package branch

import (
	"github.com/sarchlab/cvp1sim/predictor/ittage"
	"github.com/sarchlab/cvp1sim/predictor/ras"
	"github.com/sarchlab/cvp1sim/predictor/tage"
	"github.com/sarchlab/cvp1sim/trace"
)

// Stats tallies per-class branch counts and mispredictions, matching
// the reference harness's BP_OUTPUT rows.
type Stats struct {
	BranchN     uint64
	BranchM     uint64
	JumpDirN    uint64
	JumpIndN    uint64
	JumpIndM    uint64
	JumpRetN    uint64
	JumpRetM    uint64
	NotCtrlN    uint64
	NotCtrlM    uint64
}

// Total returns the instruction and misprediction counts across every
// class, the inputs to the harness's "All" summary row.
func (s Stats) Total() (n, m uint64) {
	n = s.BranchN + s.JumpDirN + s.JumpIndN + s.JumpRetN + s.NotCtrlN
	m = s.BranchM + s.JumpIndM + s.JumpRetM + s.NotCtrlM
	return
}

// Predictor is the simulator's single branch-prediction façade.
type Predictor struct {
	tage   *tage.Predictor
	ittage *ittage.Predictor
	ras    *ras.Stack

	perfectIndirect bool

	stats Stats
}

// New creates a Predictor with fresh conditional, indirect, and
// return-address sub-predictors. rasSize sizes the (currently unused)
// return-address stack; perfectIndirect models an oracle indirect
// target predictor instead of training ITTAGE.
func New(rasSize int, perfectIndirect bool) *Predictor {
	return &Predictor{
		tage:            tage.New(),
		ittage:          ittage.New(),
		ras:             ras.New(rasSize),
		perfectIndirect: perfectIndirect,
	}
}

// Stats returns the accumulated measurement counters.
func (p *Predictor) Stats() Stats { return p.stats }

// Predict drives the appropriate sub-predictor for rec's instruction
// class, trains it on the actual outcome, and returns whether the
// prediction was wrong. Non-control-transfer instructions are scored
// against straight-line fall-through (next_pc == pc+4) but never
// consult or train a predictor.
func (p *Predictor) Predict(rec *trace.Record) bool {
	switch rec.Insn {
	case trace.CondBranch:
		taken := rec.Taken()
		predTaken := p.tage.GetPrediction(rec.PC)
		misp := predTaken != taken
		p.tage.UpdatePredictor(rec.PC, taken, rec.NextPC)
		p.stats.BranchN++
		if misp {
			p.stats.BranchM++
		}
		return misp

	case trace.UncondDirectBranch:
		p.tage.TrackOtherInst(rec.PC, true, rec.NextPC)
		p.ittage.TrackOtherInst(rec.PC, rec.NextPC)
		p.stats.JumpDirN++
		return false

	case trace.UncondIndirectBranch:
		var misp bool
		if p.perfectIndirect {
			misp = false
		} else {
			predTarget := p.ittage.GetPrediction(rec.PC)
			misp = predTarget != rec.NextPC
			p.ittage.UpdatePredictor(rec.PC, rec.NextPC)
			if misp {
				p.stats.JumpIndM++
			}
		}
		p.stats.JumpIndN++
		p.tage.TrackOtherInst(rec.PC, true, rec.NextPC)
		return misp

	default:
		misp := rec.NextPC != rec.PC+4
		p.stats.NotCtrlN++
		if misp {
			p.stats.NotCtrlM++
		}
		return misp
	}
}
