// Package sim implements the microarchitecture simulator's core loop:
// for every cracked trace Record, Step computes an execution cycle by
// propagating register, cache, and store-queue timestamps, predicts
// and trains the value predictor, advances the fetch cycle under the
// fetch-bundle and branch-misprediction constraints, and retires
// completed instructions out of the window in program order.
package sim

import (
	"github.com/sarchlab/cvp1sim/config"
	"github.com/sarchlab/cvp1sim/predictor/branch"
	"github.com/sarchlab/cvp1sim/predictor/value"
	"github.com/sarchlab/cvp1sim/trace"
	"github.com/sarchlab/cvp1sim/uarch/cache"
	"github.com/sarchlab/cvp1sim/uarch/prefetch"
	"github.com/sarchlab/cvp1sim/uarch/schedule"
	"github.com/sarchlab/cvp1sim/uarch/storequeue"
	"github.com/sarchlab/cvp1sim/uarch/window"
)

func max(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// Stats accumulates the simulator's lifetime measurements: IPC,
// store-queue forwarding rate, and value-prediction accuracy.
type Stats struct {
	NumInst uint64
	Cycle   uint64

	NumLoad       uint64
	NumLoadSQMiss uint64

	NumEligible  uint64
	NumCorrect   uint64
	NumIncorrect uint64
}

// IPC returns the simulated instructions-per-cycle, or 0 before any
// cycle has elapsed.
func (s Stats) IPC() float64 {
	if s.Cycle == 0 {
		return 0
	}
	return float64(s.NumInst) / float64(s.Cycle)
}

// SQMissRate returns the fraction of loads that missed the store
// queue and had to search the cache hierarchy instead.
func (s Stats) SQMissRate() float64 {
	if s.NumLoad == 0 {
		return 0
	}
	return float64(s.NumLoadSQMiss) / float64(s.NumLoad)
}

// CorrectRate and IncorrectRate report value-prediction accuracy over
// prediction-eligible instructions.
func (s Stats) CorrectRate() float64 {
	if s.NumEligible == 0 {
		return 0
	}
	return float64(s.NumCorrect) / float64(s.NumEligible)
}

func (s Stats) IncorrectRate() float64 {
	if s.NumEligible == 0 {
		return 0
	}
	return float64(s.NumIncorrect) / float64(s.NumEligible)
}

// Simulator is the microarchitecture simulator: a single Step call
// advances it by exactly one cracked instruction Record.
type Simulator struct {
	cfg config.Config

	rf window.RegisterFile
	sq *storequeue.Queue

	l3, l2, l1, ic *cache.Level

	win       *window.Window
	aluLanes  *schedule.Schedule
	ldstLanes *schedule.Schedule

	bp *branch.Predictor
	vp *value.Predictor
	pf *prefetch.Stride

	fetchCycle       uint64
	numFetched       uint64
	numFetchedBranch uint64

	stats Stats
}

// New builds a Simulator from cfg, wiring the three-level cache
// hierarchy (and instruction cache, if modeled) behind a shared main
// memory latency, and the branch and value predictors cfg selects.
func New(cfg config.Config) *Simulator {
	l3 := cache.New("L3", cache.Config{SizeBytes: cfg.L3.SizeBytes, Assoc: cfg.L3.Assoc, BlockSize: cfg.L3.BlockSize, Latency: cfg.L3.Latency}, nil, cfg.MainMemoryLatency)
	l2 := cache.New("L2", cache.Config{SizeBytes: cfg.L2.SizeBytes, Assoc: cfg.L2.Assoc, BlockSize: cfg.L2.BlockSize, Latency: cfg.L2.Latency}, l3, cfg.MainMemoryLatency)
	l1 := cache.New("L1", cache.Config{SizeBytes: cfg.L1.SizeBytes, Assoc: cfg.L1.Assoc, BlockSize: cfg.L1.BlockSize, Latency: cfg.L1.Latency}, l2, cfg.MainMemoryLatency)

	var ic *cache.Level
	if cfg.FetchModelICache {
		ic = cache.New("IC", cache.Config{SizeBytes: cfg.IC.SizeBytes, Assoc: cfg.IC.Assoc, BlockSize: cfg.IC.BlockSize, Latency: cfg.IC.Latency}, l2, cfg.MainMemoryLatency)
	}

	var aluLanes, ldstLanes *schedule.Schedule
	if cfg.NumALULanes > 0 {
		aluLanes = schedule.New(uint64(cfg.NumALULanes))
	}
	if cfg.NumLdStLanes > 0 {
		ldstLanes = schedule.New(uint64(cfg.NumLdStLanes))
	}

	return &Simulator{
		cfg:       cfg,
		sq:        storequeue.New(),
		l3:        l3,
		l2:        l2,
		l1:        l1,
		ic:        ic,
		win:       window.New(cfg.WindowSize),
		aluLanes:  aluLanes,
		ldstLanes: ldstLanes,
		bp:        branch.New(16, cfg.PerfectIndirectPred),
		vp:        value.New(),
		pf:        prefetch.New(),
	}
}

// Stats returns the simulator's accumulated measurements.
func (s *Simulator) Stats() Stats { return s.stats }

// L1 through L3, and IC (nil unless FetchModelICache), expose the
// cache levels for reporting.
func (s *Simulator) L1() *cache.Level { return s.l1 }
func (s *Simulator) L2() *cache.Level { return s.l2 }
func (s *Simulator) L3() *cache.Level { return s.l3 }
func (s *Simulator) IC() *cache.Level { return s.ic }

// BranchStats returns the branch predictor façade's measurements.
func (s *Simulator) BranchStats() branch.Stats { return s.bp.Stats() }

// PrefetchStats returns the stride prefetcher's measurements.
func (s *Simulator) PrefetchStats() prefetch.Stats { return s.pf.Stats() }

func (s *Simulator) isCandidateForTrack(rec *trace.Record) bool {
	switch s.cfg.VPTrack {
	case config.TrackAll:
		return true
	case config.TrackLoadsOnly, config.TrackLoadsOnlyHitMiss:
		return rec.IsLoad
	default:
		return false
	}
}

// Step advances the simulator by one cracked instruction Record,
// mirroring the reference harness's per-instruction pipeline model.
func (s *Simulator) Step(rec *trace.Record) {
	// Retire: drain every in-flight instruction whose retirement
	// cycle has already passed, training the value predictor on its
	// actual outcome.
	for !s.win.Empty() && s.fetchCycle >= s.win.PeekHead().RetireCycle {
		w := s.win.Pop()
		if s.cfg.VPEnable && !s.cfg.VPPerfect {
			s.vp.UpdatePredictor(w.SeqNo, w.Value, w.Latency)
		}
	}

	seqNo := s.stats.NumInst
	predictable := rec.D.Valid && rec.D.LogReg != window.FlagReg

	var predictedValue uint64
	var speculate bool
	var squash bool

	if s.cfg.VPEnable {
		if s.cfg.VPPerfect {
			predictedValue = rec.D.Value
			speculate = predictable
		} else {
			// GetPrediction runs for every instruction, not just
			// ones the active track cares about: it is what
			// stores this seqNo's GI/GTag/HitBank/StrideBank into
			// the inflight ring, and skipping it for a
			// non-candidate would leave that ring slot holding
			// another instruction's stale indices by the time
			// UpdatePredictor trains on it.
			isCandidate := s.isCandidateForTrack(rec)
			predictedValue, speculate = s.vp.GetPrediction(seqNo, rec.PC, rec.Piece)
			result := uint8(2)
			if predictable && speculate && isCandidate {
				if predictedValue == rec.D.Value {
					result = 1
				} else {
					result = 0
				}
			}
			s.vp.SpeculativeUpdate(seqNo, predictable, int(result), rec.PC, rec.NextPC, rec.Insn,
				operandOrDeadbeef(rec.A), operandOrDeadbeef(rec.B), operandOrDeadbeef(rec.C))
		}
	}

	if s.cfg.FetchModelICache && s.ic != nil {
		s.fetchCycle = s.ic.Access(s.fetchCycle, true, rec.PC, false)
	}

	execCycle := s.fetchCycle + s.cfg.PipelineFillLatency
	if rec.A.Valid {
		execCycle = max(execCycle, s.rf.Get(rec.A.LogReg))
	}
	if rec.B.Valid {
		execCycle = max(execCycle, s.rf.Get(rec.B.LogReg))
	}
	if rec.C.Valid {
		execCycle = max(execCycle, s.rf.Get(rec.C.LogReg))
	}

	if rec.IsLoad || rec.IsStore {
		if s.ldstLanes != nil {
			execCycle = s.ldstLanes.Schedule(execCycle)
		}
	} else {
		if s.aluLanes != nil {
			execCycle = s.aluLanes.Schedule(execCycle)
		}
	}

	var latency uint64
	if rec.IsLoad {
		latency = execCycle
		execCycle++ // AGEN

		var dataCacheCycle uint64
		if s.cfg.PerfectCache {
			dataCacheCycle = execCycle + s.cfg.L1.Latency
		} else {
			dataCacheCycle = s.l1.Access(execCycle, true, rec.Addr, false)
			s.trainPrefetcher(rec, execCycle, dataCacheCycle)
		}

		execCycle++ // SQ search

		var tempCycle uint64
		incSQMiss := false
		for i, addr := uint64(0), rec.Addr; i < rec.Size; i, addr = i+1, addr+1 {
			if e, ok := s.sq.Lookup(addr); ok && execCycle < e.RetireCycle {
				tempCycle = max(tempCycle, max(execCycle, e.ExecCycle))
			} else {
				tempCycle = max(tempCycle, dataCacheCycle)
				incSQMiss = true
			}
		}

		s.stats.NumLoad++
		if incSQMiss {
			s.stats.NumLoadSQMiss++
		}

		execCycle = tempCycle
		latency = execCycle - latency
	} else {
		switch rec.Insn {
		case trace.FP:
			latency = 3
		case trace.SlowALU:
			latency = 4
		default:
			latency = 1
		}
		execCycle += latency
	}

	s.stats.NumInst++
	s.stats.Cycle = max(s.stats.Cycle, execCycle)

	if rec.D.Valid && rec.D.LogReg != window.FlagReg {
		squash = speculate && predictedValue != rec.D.Value
		if speculate && predictedValue == rec.D.Value {
			s.rf.Set(rec.D.LogReg, s.fetchCycle)
		} else {
			s.rf.Set(rec.D.LogReg, execCycle)
		}
	}

	if rec.IsStore {
		var dataCacheCycle uint64
		if !s.cfg.WriteAllocate || s.cfg.PerfectCache {
			dataCacheCycle = execCycle
		} else {
			dataCacheCycle = s.l1.Access(execCycle, true, rec.Addr, false)
		}

		retCycle := dataCacheCycle
		if !s.win.Empty() {
			retCycle = max(retCycle, s.win.PeekTail().RetireCycle)
		}
		for i, addr := uint64(0), rec.Addr; i < rec.Size; i, addr = i+1, addr+1 {
			s.sq.Store(addr, execCycle, retCycle)
		}
	}

	if predictable {
		s.stats.NumEligible++
		if speculate && !squash {
			s.stats.NumCorrect++
		} else if speculate && squash {
			s.stats.NumIncorrect++
		}
	}

	addr := uint64(0xDEADBEEF)
	if rec.IsLoad || rec.IsStore {
		addr = rec.Addr
	}
	destValue := uint64(0xDEADBEEF)
	if rec.D.Valid && rec.D.LogReg != window.FlagReg {
		destValue = rec.D.Value
	}
	retireCycle := execCycle
	if !s.win.Empty() {
		retireCycle = max(retireCycle, s.win.PeekTail().RetireCycle)
	}
	s.win.Push(window.Entry{RetireCycle: retireCycle, SeqNo: seqNo, Addr: addr, Value: destValue, Latency: latency})

	s.advanceFetchCycle(rec, squash, execCycle)

	if s.ldstLanes != nil {
		s.ldstLanes.AdvanceBaseCycle(s.fetchCycle)
	}
	if s.aluLanes != nil {
		s.aluLanes.AdvanceBaseCycle(s.fetchCycle)
	}
}

func operandOrDeadbeef(op trace.Operand) uint64 {
	if !op.Valid {
		return 0xdeadbeef
	}
	return uint64(op.LogReg)
}

// trainPrefetcher feeds the just-completed L1 demand access to the
// stride prefetcher and gives it a chance to generate a lookahead
// prefetch, then drains any prefetch that is ready to issue into the
// L1, matching the stride prefetcher's documented role sitting in
// front of the L1 data cache.
func (s *Simulator) trainPrefetcher(rec *trace.Record, execCycle, dataCacheCycle uint64) {
	if !s.cfg.PrefetcherEnable {
		return
	}
	miss := dataCacheCycle > execCycle+s.cfg.L1.Latency
	s.pf.Train(prefetch.TrainingInfo{PC: rec.PC, Address: rec.Addr, Size: rec.Size, Miss: miss})
	s.pf.Lookahead(rec.PC, execCycle)

	if addr, ok := s.pf.Issue(execCycle); ok {
		s.l1.Access(execCycle, true, addr, true)
	}
}

func (s *Simulator) advanceFetchCycle(rec *trace.Record, squash bool, execCycle uint64) {
	switch {
	case squash:
		s.numFetched = 0
		s.fetchCycle = s.win.PeekTail().RetireCycle

	case s.win.Full():
		if s.fetchCycle < s.win.PeekHead().RetireCycle {
			s.numFetched = 0
			s.fetchCycle = s.win.PeekHead().RetireCycle
		}

	default:
		stop := false
		condBranch := rec.Insn == trace.CondBranch
		uncondDirect := rec.Insn == trace.UncondDirectBranch
		uncondIndirect := rec.Insn == trace.UncondIndirectBranch

		if s.cfg.FetchWidth > 0 {
			s.numFetched++
			if s.numFetched == uint64(s.cfg.FetchWidth) {
				stop = true
			}
		}

		if s.cfg.FetchNumBranch > 0 && (condBranch || uncondDirect || uncondIndirect) {
			s.numFetchedBranch++
			if s.numFetchedBranch == uint64(s.cfg.FetchNumBranch) {
				stop = true
			}
		}

		if s.cfg.FetchStopAtIndirect && uncondIndirect {
			stop = true
		}

		if s.cfg.FetchStopAtTaken && (uncondDirect || uncondIndirect || (condBranch && rec.Taken())) {
			stop = true
		}

		if stop {
			s.numFetched = 0
			s.numFetchedBranch = 0
			s.fetchCycle++
		}
	}

	// Every instruction flows through the branch façade, not just
	// control transfers: non-branches are scored against
	// straight-line fall-through so its "not a control transfer, but
	// redirected anyway" measurement stays accurate.
	if !s.cfg.PerfectBranchPred && s.bp.Predict(rec) {
		s.fetchCycle = max(s.fetchCycle, execCycle)
	}
}
