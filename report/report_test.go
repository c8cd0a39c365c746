package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sarchlab/cvp1sim/config"
	"github.com/sarchlab/cvp1sim/trace"
	"github.com/sarchlab/cvp1sim/uarch/sim"
)

func TestPrintIncludesConfigAndSummary(t *testing.T) {
	cfg := config.Default()
	cfg.WindowSize = 16
	s := sim.New(cfg)

	for i := 0; i < 4; i++ {
		pc := uint64(0x1000 + 4*i)
		s.Step(&trace.Record{Insn: trace.ALU, PC: pc, NextPC: pc + 4})
	}

	var buf bytes.Buffer
	Print(&buf, cfg, s)
	out := buf.String()

	for _, want := range []string{
		"VP_ENABLE = 0",
		"MEMORY HIERARCHY CONFIGURATION",
		"BRANCH PREDICTION MEASUREMENTS",
		"ILP LIMIT STUDY",
		"CVP STUDY",
		"instructions = 4",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected report to contain %q, got:\n%s", want, out)
		}
	}
}

func TestPrintOmitsICacheSectionWhenNotModeled(t *testing.T) {
	cfg := config.Default()
	cfg.FetchModelICache = false
	s := sim.New(cfg)
	s.Step(&trace.Record{Insn: trace.ALU, PC: 0x1000, NextPC: 0x1004})

	var buf bytes.Buffer
	Print(&buf, cfg, s)
	if strings.Contains(buf.String(), "I$:\n") {
		t.Fatal("expected no I$ section when FetchModelICache is false")
	}
}
