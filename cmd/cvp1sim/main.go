// Command cvp1sim replays a CVP-1 trace through the microarchitecture
// simulator and prints the reference harness's end-of-run report.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/cvp1sim/config"
	"github.com/sarchlab/cvp1sim/report"
	"github.com/sarchlab/cvp1sim/uarch/sim"
	"github.com/sarchlab/cvp1sim/trace"
)

const usage = `usage:	cvp1sim
	[optional: -v to enable value prediction]
	[optional: -p to enable perfect value prediction (if -v also specified)]
	[optional: -t <track_number>]
	[optional: -d to enable perfect data cache]
	[optional: -b to enable perfect branch prediction (all branch types)]
	[optional: -i to enable perfect indirect-branch prediction]
	[optional: -P to enable stride prefetcher in L1D]
	[optional: -f <pipeline_fill_latency>]
	[optional: -M <num_ldst_lanes>]
	[optional: -A <num_alu_lanes>]
	[optional: -F <fetch_width>,<fetch_num_branch>,<fetch_stop_at_indirect>,<fetch_stop_at_taken>,<fetch_model_icache>]
	[optional: -I <log2_ic_size>,<ic_assoc>,<ic_blocksize>]
	[optional: -D <log2_L1_size>,<L1_assoc>,<L1_blocksize>,<L1_latency>,<log2_L2_size>,<L2_assoc>,<L2_blocksize>,<L2_latency>,<log2_L3_size>,<L3_assoc>,<L3_blocksize>,<L3_latency>,<main_memory_latency>]
	[optional: -w <window_size>]
	[REQUIRED: .gz trace file]
`

// csvInts is a flag.Value accumulating a fixed-arity comma-separated
// list of integers, for the -F/-I/-D flags' multi-field syntax.
type csvInts struct {
	n    int
	vals []int64
}

func (c *csvInts) String() string {
	return ""
}

func (c *csvInts) Set(s string) error {
	vals := make([]int64, 0, c.n)
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			var v int64
			if _, err := fmt.Sscanf(s[start:i], "%d", &v); err != nil {
				return fmt.Errorf("expected %d comma-separated integers, got %q", c.n, s)
			}
			vals = append(vals, v)
			start = i + 1
		}
	}
	if len(vals) != c.n {
		return fmt.Errorf("expected %d comma-separated integers, got %d", c.n, len(vals))
	}
	c.vals = vals
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cvp1sim", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := config.Default()

	vpEnable := fs.Bool("v", false, "enable value prediction")
	vpPerfect := fs.Bool("p", false, "enable perfect value prediction")
	vpTrack := fs.Uint("t", 0, "value prediction track")
	perfectCache := fs.Bool("d", false, "enable perfect data cache")
	perfectBranch := fs.Bool("b", false, "enable perfect branch prediction")
	perfectIndirect := fs.Bool("i", false, "enable perfect indirect-branch prediction")
	prefetcherEnable := fs.Bool("P", false, "enable stride prefetcher in L1D")
	fillLatency := fs.Uint64("f", cfg.PipelineFillLatency, "pipeline fill latency")
	numLdStLanes := fs.Int("M", cfg.NumLdStLanes, "number of load/store lanes")
	numALULanes := fs.Int("A", cfg.NumALULanes, "number of ALU lanes")
	windowSize := fs.Int("w", cfg.WindowSize, "window size")

	fetchFlag := &csvInts{n: 5}
	fs.Var(fetchFlag, "F", "fetch bundle constraints")
	icFlag := &csvInts{n: 3}
	fs.Var(icFlag, "I", "instruction cache geometry")
	dFlag := &csvInts{n: 13}
	fs.Var(dFlag, "D", "data cache hierarchy geometry")

	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, usage)
		return 0
	}

	if fs.NArg() < 1 {
		fmt.Fprint(stderr, usage)
		return 0
	}
	tracePath := fs.Arg(0)

	cfg.VPEnable = *vpEnable
	cfg.VPPerfect = *vpPerfect
	cfg.VPTrack = config.Track(*vpTrack)
	if !cfg.VPTrack.Valid() {
		fmt.Fprintf(stderr, "invalid -t track %d\n", *vpTrack)
		return 0
	}
	cfg.PerfectCache = *perfectCache
	cfg.PerfectBranchPred = *perfectBranch
	cfg.PerfectIndirectPred = *perfectIndirect
	cfg.PrefetcherEnable = *prefetcherEnable
	cfg.PipelineFillLatency = *fillLatency
	cfg.NumLdStLanes = *numLdStLanes
	cfg.NumALULanes = *numALULanes
	cfg.WindowSize = *windowSize

	if len(fetchFlag.vals) == 5 {
		v := fetchFlag.vals
		cfg.FetchWidth = int(v[0])
		cfg.FetchNumBranch = int(v[1])
		cfg.FetchStopAtIndirect = v[2] != 0
		cfg.FetchStopAtTaken = v[3] != 0
		cfg.FetchModelICache = v[4] != 0
	}
	if len(icFlag.vals) == 3 {
		v := icFlag.vals
		cfg.IC.SizeBytes = 1 << uint(v[0])
		cfg.IC.Assoc = int(v[1])
		cfg.IC.BlockSize = int(v[2])
	}
	if len(dFlag.vals) == 13 {
		v := dFlag.vals
		cfg.L1 = config.CacheConfig{SizeBytes: 1 << uint(v[0]), Assoc: int(v[1]), BlockSize: int(v[2]), Latency: uint64(v[3])}
		cfg.L2 = config.CacheConfig{SizeBytes: 1 << uint(v[4]), Assoc: int(v[5]), BlockSize: int(v[6]), Latency: uint64(v[7])}
		cfg.L3 = config.CacheConfig{SizeBytes: 1 << uint(v[8]), Assoc: int(v[9]), BlockSize: int(v[10]), Latency: uint64(v[11])}
		cfg.MainMemoryLatency = uint64(v[12])
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return 0
	}

	reader, err := trace.Open(tracePath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer reader.Close()

	s := sim.New(cfg)
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		s.Step(rec)
	}

	report.Print(stdout, cfg, s)
	return 0
}
