// Package report formats a finished simulation run the way the
// reference harness's uarchsim_t::output() and bp_t::output() do:
// a configuration echo, cache-hierarchy and branch-prediction tables,
// and the IPC / CVP-accuracy summary.
package report

import (
	"fmt"
	"io"

	"github.com/sarchlab/cvp1sim/config"
	"github.com/sarchlab/cvp1sim/predictor/branch"
	"github.com/sarchlab/cvp1sim/uarch/cache"
	"github.com/sarchlab/cvp1sim/uarch/prefetch"
	"github.com/sarchlab/cvp1sim/uarch/sim"
)

const (
	kilobyte = 1 << 10
	megabyte = 1 << 20
)

func scaledSize(size int) int {
	if size/kilobyte >= kilobyte {
		return size / megabyte
	}
	return size / kilobyte
}

func scaledUnit(size int) string {
	if size/kilobyte >= kilobyte {
		return "MB"
	}
	return "KB"
}

func trackName(t config.Track) string {
	switch t {
	case config.TrackAll:
		return "ALL"
	case config.TrackLoadsOnly:
		return "LoadsOnly"
	case config.TrackLoadsOnlyHitMiss:
		return "LoadsOnlyHitMiss"
	default:
		return "?"
	}
}

// Print writes the full end-of-run report for s, configured with cfg,
// to w.
func Print(w io.Writer, cfg config.Config, s *sim.Simulator) {
	fmt.Fprintf(w, "VP_ENABLE = %d\n", boolToInt(cfg.VPEnable))
	if cfg.VPEnable {
		fmt.Fprintf(w, "VP_PERFECT = %d\n", boolToInt(cfg.VPPerfect))
		fmt.Fprintf(w, "VP_TRACK = %s\n", trackName(cfg.VPTrack))
	} else {
		fmt.Fprintf(w, "VP_PERFECT = n/a\n")
		fmt.Fprintf(w, "VP_TRACK = n/a\n")
	}
	fmt.Fprintf(w, "WINDOW_SIZE = %d\n", cfg.WindowSize)
	fmt.Fprintf(w, "FETCH_WIDTH = %d\n", cfg.FetchWidth)
	fmt.Fprintf(w, "FETCH_NUM_BRANCH = %d\n", cfg.FetchNumBranch)
	fmt.Fprintf(w, "FETCH_STOP_AT_INDIRECT = %d\n", boolToInt(cfg.FetchStopAtIndirect))
	fmt.Fprintf(w, "FETCH_STOP_AT_TAKEN = %d\n", boolToInt(cfg.FetchStopAtTaken))
	fmt.Fprintf(w, "FETCH_MODEL_ICACHE = %d\n", boolToInt(cfg.FetchModelICache))
	fmt.Fprintf(w, "PERFECT_BRANCH_PRED = %d\n", boolToInt(cfg.PerfectBranchPred))
	fmt.Fprintf(w, "PERFECT_INDIRECT_PRED = %d\n", boolToInt(cfg.PerfectIndirectPred))
	fmt.Fprintf(w, "PIPELINE_FILL_LATENCY = %d\n", cfg.PipelineFillLatency)
	printLaneCount(w, "NUM_LDST_LANES", cfg.NumLdStLanes)
	printLaneCount(w, "NUM_ALU_LANES", cfg.NumALULanes)

	fmt.Fprintf(w, "MEMORY HIERARCHY CONFIGURATION---------------------\n")
	fmt.Fprintf(w, "PERFECT_CACHE = %d\n", boolToInt(cfg.PerfectCache))
	fmt.Fprintf(w, "WRITE_ALLOCATE = %d\n", boolToInt(cfg.WriteAllocate))
	fmt.Fprintf(w, "Within-pipeline factors:\n")
	fmt.Fprintf(w, "\tAGEN latency = 1 cycle\n")
	fmt.Fprintf(w, "\tStore Queue (SQ): SQ size = window size, oracle memory disambiguation, store-load forwarding = 1 cycle after store's or load's agen.\n")

	if cfg.FetchModelICache {
		printCacheConfig(w, "I$", cfg.IC)
	}
	printCacheConfigWithLatency(w, "L1$", cfg.L1)
	printCacheConfigWithLatency(w, "L2$", cfg.L2)
	printCacheConfigWithLatency(w, "L3$", cfg.L3)
	fmt.Fprintf(w, "Main Memory: %d-cycle fixed search time\n", cfg.MainMemoryLatency)

	fmt.Fprintf(w, "STORE QUEUE MEASUREMENTS---------------------------\n")
	fmt.Fprintf(w, "Number of loads: %d\n", s.Stats().NumLoad)
	fmt.Fprintf(w, "Number of loads that miss in SQ: %d (%.2f%%)\n",
		s.Stats().NumLoadSQMiss, 100.0*s.Stats().SQMissRate())

	fmt.Fprintf(w, "MEMORY HIERARCHY MEASUREMENTS----------------------\n")
	if cfg.FetchModelICache {
		fmt.Fprintf(w, "I$:\n")
		printCacheStats(w, s.IC().Stats())
	}
	fmt.Fprintf(w, "L1$:\n")
	printCacheStats(w, s.L1().Stats())
	fmt.Fprintf(w, "L2$:\n")
	printCacheStats(w, s.L2().Stats())
	fmt.Fprintf(w, "L3$:\n")
	printCacheStats(w, s.L3().Stats())

	if cfg.PrefetcherEnable {
		fmt.Fprintf(w, "PREFETCHER MEASUREMENTS-----------------------------\n")
		printPrefetchStats(w, s.PrefetchStats())
	}

	printBranchStats(w, s.BranchStats(), s.Stats().NumInst)

	fmt.Fprintf(w, "ILP LIMIT STUDY------------------------------------\n")
	fmt.Fprintf(w, "instructions = %d\n", s.Stats().NumInst)
	fmt.Fprintf(w, "cycles       = %d\n", s.Stats().Cycle)
	fmt.Fprintf(w, "IPC          = %.2f\n", s.Stats().IPC())

	fmt.Fprintf(w, "CVP STUDY------------------------------------------\n")
	fmt.Fprintf(w, "prediction-eligible instructions = %d\n", s.Stats().NumEligible)
	fmt.Fprintf(w, "correct predictions              = %d (%.2f%%)\n",
		s.Stats().NumCorrect, 100.0*s.Stats().CorrectRate())
	fmt.Fprintf(w, "incorrect predictions            = %d (%.2f%%)\n",
		s.Stats().NumIncorrect, 100.0*s.Stats().IncorrectRate())
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func printLaneCount(w io.Writer, name string, n int) {
	if n > 0 {
		fmt.Fprintf(w, "%s = %d\n", name, n)
	} else {
		fmt.Fprintf(w, "%s = %d (unbounded)\n", name, n)
	}
}

func printCacheConfig(w io.Writer, name string, cc config.CacheConfig) {
	fmt.Fprintf(w, "%s: %d %s, %d-way set-assoc., %dB block size\n",
		name, scaledSize(cc.SizeBytes), scaledUnit(cc.SizeBytes), cc.Assoc, cc.BlockSize)
}

func printCacheConfigWithLatency(w io.Writer, name string, cc config.CacheConfig) {
	fmt.Fprintf(w, "%s: %d %s, %d-way set-assoc., %dB block size, %d-cycle search latency\n",
		name, scaledSize(cc.SizeBytes), scaledUnit(cc.SizeBytes), cc.Assoc, cc.BlockSize, cc.Latency)
}

func printCacheStats(w io.Writer, st cache.Stats) {
	fmt.Fprintf(w, "\taccesses   = %d\n", st.Accesses)
	fmt.Fprintf(w, "\tmisses     = %d\n", st.Misses)
	fmt.Fprintf(w, "\tmiss ratio = %.2f%%\n", 100.0*st.MissRate())
	fmt.Fprintf(w, "\tpf accesses   = %d\n", st.PFAccesses)
	fmt.Fprintf(w, "\tpf misses     = %d\n", st.PFMisses)
	fmt.Fprintf(w, "\tpf miss ratio = %.2f%%\n", 100.0*st.PFMissRate())
}

func printPrefetchStats(w io.Writer, st prefetch.Stats) {
	fmt.Fprintf(w, "\ttrainings           = %d\n", st.Trainings)
	fmt.Fprintf(w, "\tgenerated           = %d\n", st.Generated)
	fmt.Fprintf(w, "\tissued              = %d\n", st.Issued)
	fmt.Fprintf(w, "\tduplicate filtered  = %d\n", st.DuplicateFiltered)
	fmt.Fprintf(w, "\tdropped untimely    = %d\n", st.DroppedUntimely)
	fmt.Fprintf(w, "\tput back            = %d\n", st.PutBack)
	fmt.Fprintf(w, "\tstride zero         = %d\n", st.StrideZero)
}

func bpRow(w io.Writer, label string, n, m, i uint64) {
	mr := 0.0
	mpki := 0.0
	if n > 0 {
		mr = 100.0 * float64(m) / float64(n)
	}
	if i > 0 {
		mpki = 1000.0 * float64(m) / float64(i)
	}
	fmt.Fprintf(w, "%s%10d %10d %5.2f%% %5.2f\n", label, n, m, mr, mpki)
}

func printBranchStats(w io.Writer, st branch.Stats, numInst uint64) {
	fmt.Fprintf(w, "BRANCH PREDICTION MEASUREMENTS---------------------\n")
	fmt.Fprintf(w, "Type                      n          m     mr  mpki\n")
	totalN, totalM := st.Total()
	bpRow(w, "All              ", totalN, totalM, numInst)
	bpRow(w, "Branch           ", st.BranchN, st.BranchM, numInst)
	bpRow(w, "Jump: Direct     ", st.JumpDirN, 0, numInst)
	bpRow(w, "Jump: Indirect   ", st.JumpIndN, st.JumpIndM, numInst)
	bpRow(w, "Jump: Return     ", st.JumpRetN, st.JumpRetM, numInst)
	bpRow(w, "Not control      ", st.NotCtrlN, st.NotCtrlM, numInst)
}
