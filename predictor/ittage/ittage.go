// Package ittage implements ITTAGE: a geometric-history-length tagged
// predictor for indirect branch targets. It keeps NHIST+1 tagged
// tables, each indexed by a progressively longer folded slice of
// global history, and predicts using the table with the longest
// history that still tags-matches the current PC — the insight being
// that harder-to-predict indirect jumps usually need more context to
// disambiguate, while easy ones are caught by the short-history base
// table.
package ittage

import (
	"math"

	"github.com/sarchlab/cvp1sim/predictor/history"
)

const (
	numHist = 8
	minHist = 2
	maxHist = 300
	logG    = 10 // log2 of the number of sets in each tagged table
	tagBits = 11
	nnn     = 1 // extra entries allocated (1+NNN) on a misprediction

	pathHistWidth = 27
	uWidth        = 2
	cWidth        = 3
	altWidth      = 4

	// bornTick (and history.BufferLength) are not named by any retrieved
	// header; they are standard TAGE-family constants reconstructed by
	// analogy (u-bit aging period and global-history ring capacity).
	bornTick = 1024
)

type entry struct {
	Target uint64
	Ctr    int8
	Tag    uint32
	U      int8
}

// Predictor is one ITTAGE predictor instance: a full history/table set
// for predicting indirect branch targets.
type Predictor struct {
	useAltOnNA int8
	tick       int
	seed       int64

	hist history.Global
	chI  [numHist + 1]history.Folded
	chT  [2][numHist + 1]history.Folded

	table [numHist + 1][]entry
	m     [numHist + 1]int
	tb    [numHist + 1]int
	logg  [numHist + 1]int

	gi   [numHist + 1]int
	gtag [numHist + 1]uint32

	altTarget        uint64
	tageTarget       uint64
	longestMatchPred uint64
	hitBank          int
	altBank          int
}

// New creates an ITTAGE predictor with its tables allocated and its
// geometric history lengths computed.
func New() *Predictor {
	p := &Predictor{hitBank: -1, altBank: -1}

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

	p.hist.Ptr = 0
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

// gindex and gtagOf take a full 64-bit PC but, matching the reference
// predictor's 32-bit index/tag arithmetic, only the low 32 bits ever
// feed the hash.
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

// GetPrediction returns the predicted target for an indirect branch at
// pc, scanning from the longest-history bank down for a tag match.
func (p *Predictor) GetPrediction(pc uint64) uint64 {
	p.hitBank = -1
	p.altBank = -1
	for i := 0; i <= numHist; i++ {
		p.gi[i] = p.gindex(pc, i)
		p.gtag[i] = p.gtagOf(pc, i)
	}

	p.altTarget = 0
	p.tageTarget = 0
	p.longestMatchPred = 0

	hitConf := int8(-4)
	altConf := int8(-4)

	for i := numHist; i >= 0; i-- {
		if p.table[i][p.gi[i]].Tag == p.gtag[i] {
			p.hitBank = i
			hitConf = p.table[i][p.gi[i]].Ctr
			p.longestMatchPred = p.table[i][p.gi[i]].Target
			break
		}
	}

	for i := p.hitBank - 1; i >= 0; i-- {
		if p.table[i][p.gi[i]].Tag == p.gtag[i] {
			p.altTarget = p.table[i][p.gi[i]].Target
			p.altBank = i
			altConf = p.table[i][p.gi[i]].Ctr
			break
		}
	}

	if p.hitBank > 0 {
		useAlt := p.useAltOnNA >= 0
		if !useAlt || hitConf > 0 || hitConf >= altConf {
			p.tageTarget = p.longestMatchPred
		} else {
			p.tageTarget = p.altTarget
		}
	}
	if p.altBank < 0 {
		p.tageTarget = p.longestMatchPred
	}

	return p.tageTarget
}

// TrackOtherInst folds pc/target into every table's history without
// making a prediction, used for instructions the predictor should
// learn from (all control flow) but is never asked to predict.
func (p *Predictor) TrackOtherInst(pc, target uint64) {
	p.updateHistory(pc, target)
}

func (p *Predictor) updateHistory(pc, target uint64) {
	folds := []*history.Folded{}
	for i := 1; i <= numHist; i++ {
		folds = append(folds, &p.chI[i], &p.chT[0][i], &p.chT[1][i])
	}
	p.hist.Update(pc, target, 3, pathHistWidth, folds)
}

// UpdatePredictor trains the predictor on the actual outcome of an
// indirect branch: updates confidence counters, allocates new entries
// on a misprediction, periodically ages useful-bit counters, and folds
// the taken branch into history.
func (p *Predictor) UpdatePredictor(pc, branchTarget uint64) {
	alloc := p.tageTarget != branchTarget && p.hitBank < numHist

	if p.hitBank > 0 && p.altBank >= 0 {
		pseudoNewAlloc := p.table[p.hitBank][p.gi[p.hitBank]].Ctr <= 0
		if pseudoNewAlloc {
			if p.longestMatchPred == branchTarget {
				alloc = false
			}
			if p.longestMatchPred != p.altTarget {
				if p.longestMatchPred == branchTarget || p.altTarget == branchTarget {
					ctrupdate(&p.useAltOnNA, p.altTarget == branchTarget, altWidth)
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
		for i := dep; i <= numHist; i++ {
			if p.table[i][p.gi[i]].U == 0 {
				p.table[i][p.gi[i]].Tag = p.gtag[i]
				p.table[i][p.gi[i]].Target = branchTarget
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

	if p.hitBank >= 0 {
		hb := &p.table[p.hitBank][p.gi[p.hitBank]]
		if hb.Ctr <= 0 && p.longestMatchPred != branchTarget {
			if p.altTarget == branchTarget && p.altBank >= 0 {
				ab := &p.table[p.altBank][p.gi[p.altBank]]
				ctrupdate(&ab.Ctr, p.altTarget == branchTarget, cWidth)
			}
		}
		ctrupdate(&hb.Ctr, p.longestMatchPred == branchTarget, cWidth)
		if p.longestMatchPred != branchTarget && hb.Ctr < 0 {
			hb.Target = branchTarget
		}
	}
	if p.longestMatchPred != p.altTarget && p.longestMatchPred == branchTarget {
		hb := &p.table[p.hitBank][p.gi[p.hitBank]]
		if hb.U < (1<<uWidth)-1 {
			hb.U++
		}
	}

	p.updateHistory(pc, branchTarget)
}
