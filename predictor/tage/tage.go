// Package tage implements a TAGE-shaped conditional branch direction
// predictor: a bimodal base table backed by geometric-history-length
// tagged tables, structured the same way as the indirect-target
// predictor in predictor/ittage, specialized for a binary taken/
// not-taken outcome instead of a target address. The literal
// TAGE-SC-L reference header was not available to copy from, so this
// predictor is built by analogy to the ITTAGE implementation's table
// layout, folded-history indexing, and allocate-on-misprediction
// policy rather than ported line for line.
package tage

import (
	"math"

	"github.com/sarchlab/cvp1sim/predictor/history"
)

const (
	numHist = 8
	minHist = 4
	maxHist = 640
	logG    = 10
	tagBits = 12
	nnn     = 1

	pathHistWidth = 16
	uWidth        = 2
	cWidth        = 3
	altWidth      = 4
	bornTick      = 1024

	baseLog = 13 // log2 of the bimodal base predictor's table size
)

type entry struct {
	Ctr int8
	Tag uint32
	U   int8
}

// Predictor is one TAGE conditional-branch direction predictor.
type Predictor struct {
	useAltOnNA int8
	tick       int
	seed       int64

	base []int8

	hist history.Global
	chI  [numHist + 1]history.Folded
	chT  [2][numHist + 1]history.Folded

	table [numHist + 1][]entry
	m     [numHist + 1]int
	tb    [numHist + 1]int
	logg  [numHist + 1]int

	gi   [numHist + 1]int
	gtag [numHist + 1]uint32

	longestMatchTaken bool
	altTaken          bool
	tageTaken         bool
	hitBank           int
	altBank           int
}

// New creates a TAGE predictor with its tables allocated and
// geometric history lengths computed.
func New() *Predictor {
	p := &Predictor{hitBank: -1, altBank: -1}
	p.base = make([]int8, 1<<baseLog)

	p.m[0] = 0
	p.m[1] = minHist
	p.m[numHist] = maxHist
	for i := 2; i <= numHist; i++ {
		p.m[i] = int(float64(minHist)*math.Pow(float64(maxHist)/float64(minHist), float64(i)/float64(numHist)) + 0.5)
	}

	for i := 0; i <= numHist; i++ {
		p.tb[i] = tagBits
		p.logg[i] = logG
		p.table[i] = make([]entry, 1<<logG)
	}

	for i := 0; i <= numHist; i++ {
		p.chI[i].Init(p.m[i], p.logg[i])
		p.chT[0][i].Init(p.m[i], p.tb[i])
		p.chT[1][i].Init(p.m[i], p.tb[i]-1)
	}

	return p
}

func f(a int64, size, bank, logg int) int {
	a &= (1 << uint(size)) - 1
	a1 := int(a) & ((1 << uint(logg)) - 1)
	a2 := int(a) >> uint(logg)
	if bank < logg {
		a2 = ((a2 << uint(bank)) & ((1 << uint(logg)) - 1)) + (a2 >> uint(logg-bank))
	}
	out := a1 ^ a2
	if bank < logg {
		out = ((out << uint(bank)) & ((1 << uint(logg)) - 1)) + (out >> uint(logg-bank))
	}
	return out
}

func (p *Predictor) gindex(pc uint64, bank int) int {
	pc32 := uint32(pc)
	m := p.m[bank]
	if m > pathHistWidth {
		m = pathHistWidth
	}
	logg := p.logg[bank]
	absShift := logg - bank
	if absShift < 0 {
		absShift = -absShift
	}
	idx := int(pc32) ^ int(pc32>>uint(absShift+1)) ^ int(p.chI[bank].Comp) ^ f(p.hist.Path, m, bank, logg)
	return idx & ((1 << uint(logg)) - 1)
}

func (p *Predictor) gtagOf(pc uint64, bank int) uint32 {
	tag := uint32(pc) ^ p.chT[0][bank].Comp ^ (p.chT[1][bank].Comp << 1)
	return tag & ((1 << uint(p.tb[bank])) - 1)
}

func (p *Predictor) baseIndex(pc uint64) int {
	return int(pc) & ((1 << baseLog) - 1)
}

func ctrupdate(ctr *int8, taken bool, nbits int) {
	if taken {
		if *ctr < int8((1<<uint(nbits-1))-1) {
			*ctr++
		}
	} else {
		if *ctr > -int8(1<<uint(nbits-1)) {
			*ctr--
		}
	}
}

func (p *Predictor) myRandom() int64 {
	p.seed++
	p.seed ^= p.hist.Path
	p.seed = (p.seed >> 21) + (p.seed << 11)
	p.seed ^= int64(p.hist.Ptr)
	p.seed = (p.seed >> 10) + (p.seed << 22)
	return p.seed
}

// GetPrediction returns the predicted direction (true=taken) for the
// conditional branch at pc.
func (p *Predictor) GetPrediction(pc uint64) bool {
	p.hitBank = -1
	p.altBank = -1
	for i := 0; i <= numHist; i++ {
		p.gi[i] = p.gindex(pc, i)
		p.gtag[i] = p.gtagOf(pc, i)
	}

	p.altTaken = p.base[p.baseIndex(pc)] >= 0
	p.longestMatchTaken = p.altTaken
	p.tageTaken = p.altTaken

	hitConf := int8(-4)
	altConf := int8(-4)

	for i := numHist; i >= 1; i-- {
		if p.table[i][p.gi[i]].Tag == p.gtag[i] {
			p.hitBank = i
			hitConf = p.table[i][p.gi[i]].Ctr
			p.longestMatchTaken = hitConf >= 0
			break
		}
	}

	for i := p.hitBank - 1; i >= 1; i-- {
		if p.table[i][p.gi[i]].Tag == p.gtag[i] {
			p.altBank = i
			altConf = p.table[i][p.gi[i]].Ctr
			p.altTaken = altConf >= 0
			break
		}
	}

	if p.hitBank >= 1 {
		useAlt := p.useAltOnNA >= 0
		weak := hitConf == 0 || hitConf == -1
		if !useAlt || !weak || hitConf >= altConf {
			p.tageTaken = p.longestMatchTaken
		} else {
			p.tageTaken = p.altTaken
		}
	}

	return p.tageTaken
}

func (p *Predictor) updateHistory(pc, target uint64) {
	folds := []*history.Folded{}
	for i := 1; i <= numHist; i++ {
		folds = append(folds, &p.chI[i], &p.chT[0][i], &p.chT[1][i])
	}
	p.hist.Update(pc, target, 1, pathHistWidth, folds)
}

// TrackOtherInst folds pc/target into history without training a
// direction, used for control-transfer instructions (direct and
// indirect jumps) whose outcome TAGE itself never predicts but whose
// history still informs later conditional-branch predictions.
func (p *Predictor) TrackOtherInst(pc uint64, taken bool, target uint64) {
	if !taken {
		target = pc + 4
	}
	p.updateHistory(pc, target)
}

// UpdatePredictor trains the predictor on the conditional branch at pc
// having actually resolved to taken, with target the branch's actual
// next PC (pc+4 when not taken).
func (p *Predictor) UpdatePredictor(pc uint64, taken bool, target uint64) {
	alloc := p.tageTaken != taken && p.hitBank < numHist

	if p.hitBank >= 1 && p.altBank >= 1 {
		hb := &p.table[p.hitBank][p.gi[p.hitBank]]
		pseudoNewAlloc := hb.Ctr == 0 || hb.Ctr == -1
		if pseudoNewAlloc {
			if p.longestMatchTaken == taken {
				alloc = false
			}
			if p.longestMatchTaken != p.altTaken {
				if p.longestMatchTaken == taken || p.altTaken == taken {
					ctrupdate(&p.useAltOnNA, p.altTaken == taken, altWidth)
				}
			}
		}
	}

	if alloc {
		tval := nnn
		a := 1
		if (p.myRandom() & 127) < 32 {
			a = 2
		}
		penalty := 0
		na := 0
		dep := p.hitBank + a
		if dep < 1 {
			dep = 1
		}
		for i := dep; i <= numHist; i++ {
			if p.table[i][p.gi[i]].U == 0 {
				p.table[i][p.gi[i]].Tag = p.gtag[i]
				p.table[i][p.gi[i]].Ctr = 0
				na++
				if tval <= 0 {
					break
				}
				i++
				tval--
			} else {
				penalty++
			}
		}

		p.tick += penalty - 2*na
		if p.tick < 0 {
			p.tick = 0
		}
		if p.tick >= bornTick {
			for i := 0; i <= numHist; i++ {
				for j := range p.table[i] {
					p.table[i][j].U >>= 1
				}
			}
			p.tick = 0
		}
	}

	if p.hitBank >= 1 {
		hb := &p.table[p.hitBank][p.gi[p.hitBank]]
		ctrupdate(&hb.Ctr, taken, cWidth)
		if p.longestMatchTaken == taken {
			if hb.U < (1<<uWidth)-1 {
				hb.U++
			}
		}
	} else {
		bi := p.baseIndex(pc)
		ctrupdate(&p.base[bi], taken, 2)
	}

	p.updateHistory(pc, target)
}
