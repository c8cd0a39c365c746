// Package value implements the CVP-1 value predictor: a VTAGE-style
// geometric-history tagged predictor backed by a shared, deduplicated
// data array, combined with an E-Stride predictor that tracks a
// per-PC constant stride between successive committed values. Both
// components predict independently; VTAGE's prediction wins when both
// are confident, since it is rarely wrong when it is confident at all.
//
// The reference predictor gates nearly every confidence update and
// table allocation behind a pseudo-random throttle tuned per latency
// bucket (L1/L2/LLC hit, instruction class, operand count) to balance
// prediction accuracy against table pollution. This port reproduces
// that throttle with a deterministic counter+shift generator (myRandom,
// seeded identically on every run, the same construction predictor/ittage
// uses for its own allocation randomization) rather than the platform's
// random(): the mask exponents it gates on are carried over from the
// reference predictor's macros unchanged.
package value

import "github.com/sarchlab/cvp1sim/trace"

const (
	numHist  = 8
	logLData = 9
	logBank  = 7
	tagWidth = 11
	nbBank   = 49

	bankData = 1 << logLData
	bankSize = 1 << logBank
	predSize = nbBank * bankSize

	maxConfid = (1 << 3) - 1
	maxU      = (1 << 2) - 1
	maxTick   = 1024

	logStr       = 4
	nbWayStr     = 3
	tagWidthStr  = 14
	logStride    = 20
	maxConfidStr = (1 << 5) - 1

	maxInFlight = 512
)

var histLen = [numHist + 1]int{0, 0, 3, 7, 15, 31, 63, 90, 127}

// mix is a 64-bit bit-mixing function (splitmix64's finalizer) used to
// turn a PC/history combination into a well-distributed table index or
// tag, standing in for the reference predictor's bespoke fold-and-xor
// hash loops.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

func historyMask(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(bits)) - 1
}

// b2i is the usual 0/1 conversion the reference's C boolean-arithmetic
// mask exponents rely on.
func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// lowVal mirrors the reference predictor's LOWVAL macro: it adds to the
// random-gate exponent for committed values that are near-zero or
// negative-near-zero (and once more for zero), so their confidence and
// u-bit updates pass less often.
func lowVal(actualValue uint64) int {
	v := 2*int64(actualValue) + 1
	if v < 0 {
		v = -v
	}
	n := 0
	if v < (1 << 16) {
		n++
	}
	if actualValue == 0 {
		n++
	}
	return n
}

// latencyBuckets classifies an actual memory latency into the
// reference predictor's cache-hit tiers, used to scale how
// aggressively confidence counters move.
type latencyBuckets struct {
	NotLLCMiss bool // actual_latency < 150
	NotL2Miss  bool // actual_latency < 60
	NotL1Miss  bool // actual_latency < 12
	Fast       bool // actual_latency == 1
	MedFast    bool // actual_latency < 3
}

func bucketsFor(latency uint64) latencyBuckets {
	return latencyBuckets{
		NotLLCMiss: latency < 150,
		NotL2Miss:  latency < 60,
		NotL1Miss:  latency < 12,
		Fast:       latency == 1,
		MedFast:    latency < 3,
	}
}

// longData is one shared value-array slot: the value itself plus a
// small usefulness counter governing eviction.
type longData struct {
	Data uint64
	U    uint8
}

// vtEntry is one VTAGE tagged-table slot: a tag, a confidence counter,
// a usefulness counter, and a pointer (hashpt) into the shared value
// array or, failing that, a hash of the value good enough to confirm
// it without needing the array slot at all.
type vtEntry struct {
	HashPt int
	Conf   uint8
	Tag    uint16
	U      uint8
}

// strideEntry is one E-Stride skewed-associative table slot.
type strideEntry struct {
	LastValue   uint64
	Stride      int64
	Conf        uint8
	Tag         uint16
	NotFirstOcc uint16
	U           int
}

// inflight is the per-in-flight-instruction bookkeeping the predictor
// needs between GetPrediction and the later UpdatePredictor call, kept
// in a fixed-size ring indexed by sequence number exactly like the
// reference predictor's Update[] array.
type inflight struct {
	PC            uint64
	PredVTage     bool
	PredStride    bool
	PredictionOK  bool
	Todo          bool
	InstType      trace.InstClass
	NbOperand     int
	GI            [numHist + 1]int
	GTag          [numHist + 1]uint16
	HitBank       int
	StrideBank    [nbWayStr]int
	StrideTag     [nbWayStr]uint16
	StrideHit     int
}

// Predictor is the combined VTAGE + E-Stride value predictor.
type Predictor struct {
	vtage []vtEntry
	ldata []longData

	stride []strideEntry

	gpath      [8]uint64
	gtargeth   uint64
	tick       int
	lastMispVT int
	safeStride int
	seed       int64

	inflight [maxInFlight]inflight

	seqCommit uint64
}

// myRandom is the same counter+shift pseudo-random generator
// predictor/ittage's MYRANDOM uses, churned by this predictor's own
// global path history instead of the branch predictor's, so that the
// allocation/confidence-update heuristics below are gated by a
// deterministic, run-to-run-reproducible sequence rather than the
// platform's random().
func (p *Predictor) myRandom() int64 {
	p.seed++
	p.seed ^= int64(p.gpath[0])
	p.seed = (p.seed >> 21) + (p.seed << 11)
	p.seed ^= int64(p.gtargeth)
	p.seed = (p.seed >> 10) + (p.seed << 22)
	return p.seed
}

// randBit reports whether the next myRandom draw lands on zero within
// a 2^bits-wide mask, i.e. the Go equivalent of the reference's
// `(random() & ((1<<bits)-1)) == 0` gates.
func (p *Predictor) randBit(bits int) bool {
	mask := (int64(1) << uint(bits)) - 1
	return p.myRandom()&mask == 0
}

// New creates a Predictor with empty tables.
func New() *Predictor {
	return &Predictor{
		vtage:  make([]vtEntry, predSize),
		ldata:  make([]longData, 3*bankData),
		stride: make([]strideEntry, nbWayStr*(1<<logStr)),
	}
}

// historyBits returns bits of path history, drawing first from
// gpath[lo] and, once a bank's history length exceeds one register's
// 64 bits, folding in gpath[hi] too — so banks with HL=90 and HL=127
// (both beyond 64 bits) no longer hash identical history content.
func (p *Predictor) historyBits(lo, hi, bits int) uint64 {
	if bits <= 64 {
		return p.gpath[lo] & historyMask(bits)
	}
	return p.gpath[lo] ^ (p.gpath[hi] & historyMask(bits-64))
}

func (p *Predictor) giIndex(i int, pc uint64) int {
	hl := histLen[i]
	h := pc ^ (pc >> uint(i+1)) ^ (pc << 3)
	h ^= p.historyBits(0, 1, hl)
	h ^= p.gtargeth & historyMask(hl)
	h = mix(h)
	return int(h) & (bankSize - 1)
}

func (p *Predictor) giTag(i int, pc uint64) uint16 {
	hl := histLen[i]
	h := pc ^ (pc >> uint(i+5)) ^ (pc << 5)
	h ^= p.historyBits(1, 2, hl)
	h ^= p.gtargeth & historyMask(hl)
	h = mix(h)
	return uint16(h) & ((1 << tagWidth) - 1)
}

func (p *Predictor) vtageIndices(pc uint64) (gi [numHist + 1]int, gtag [numHist + 1]uint16) {
	pcIndex := int((pc ^ (pc >> 2) ^ (pc >> 5)) % predSize)
	pcBank := (pcIndex >> logBank) << logBank
	for i := 1; i <= numHist; i++ {
		gi[i] = (p.giIndex(i, pc) + pcBank + (i << logBank)) % predSize
		gtag[i] = p.giTag(i, pc)
	}
	gtag[0] = uint16((pc ^ (pc >> 4) ^ (pc >> tagWidth)) & ((1 << tagWidth) - 1))
	gi[0] = pcIndex
	return
}

func (p *Predictor) getPredVTage(u *inflight) (uint64, bool) {
	u.GI, u.GTag = p.vtageIndices(u.PC)
	u.HitBank = -1
	for i := numHist; i >= 0; i-- {
		if p.vtage[u.GI[i]].Tag == u.GTag[i] {
			u.HitBank = i
			break
		}
	}

	if p.lastMispVT < 128 || u.HitBank < 0 {
		return 0, false
	}
	entry := p.vtage[u.GI[u.HitBank]]
	if entry.HashPt >= 3*bankData {
		return 0, false
	}
	return p.ldata[entry.HashPt].Data, entry.Conf >= maxConfid
}

func (p *Predictor) strideBanks(pc uint64) (banks [nbWayStr]int, tags [nbWayStr]uint16) {
	for i := 0; i < nbWayStr; i++ {
		h := pc ^ (pc >> uint(2*logStr-i)) ^ (pc >> uint(logStr-i)) ^ (pc >> uint(3*logStr-i))
		banks[i] = int((mix(h)*nbWayStr+uint64(i))%uint64(nbWayStr*(1<<logStr)))
		j := nbWayStr - i
		if j < 0 {
			j = 0
		}
		th := pc ^ (pc >> uint(logStr-j)) ^ (pc >> uint(2*logStr-j)) ^ (pc >> uint(3*logStr-j))
		tags[i] = uint16(mix(th)) & ((1 << tagWidthStr) - 1)
	}
	return
}

func (p *Predictor) getPredStride(u *inflight, seqNo uint64) (uint64, bool) {
	banks, tags := p.strideBanks(u.PC)
	u.StrideBank = banks
	u.StrideTag = tags

	hit := -1
	for i := 0; i < nbWayStr; i++ {
		if p.stride[banks[i]].Tag == tags[i] {
			hit = banks[i]
			break
		}
	}
	u.StrideHit = hit
	if hit < 0 || p.safeStride < 0 {
		return 0, false
	}
	e := p.stride[hit]
	if e.Conf < maxConfidStr/4 {
		return 0, false
	}

	inflightCount := int64(0)
	for s := p.seqCommit + 1; s < seqNo; s++ {
		if p.inflight[s&(maxInFlight-1)].PC == u.PC {
			inflightCount++
		}
	}
	return uint64(int64(e.LastValue) + (inflightCount+1)*e.Stride), true
}

// GetPrediction predicts the committed value that seqNo (an
// instruction at pc+piece) will produce, combining VTAGE and E-Stride.
func (p *Predictor) GetPrediction(seqNo, pc uint64, piece uint8) (value uint64, speculate bool) {
	u := &p.inflight[seqNo&(maxInFlight-1)]
	u.PC = pc + uint64(piece)
	u.PredVTage = false
	u.PredStride = false

	if v, ok := p.getPredStride(u, seqNo); ok {
		value = v
		u.PredStride = true
	}
	if v, ok := p.getPredVTage(u); ok {
		value = v
		u.PredVTage = true
	}
	speculate = u.PredVTage || u.PredStride
	return
}

// SpeculativeUpdate records fetch-time bookkeeping for seqNo (whether
// it is eligible for value prediction, its instruction class, operand
// count, and whether the earlier prediction turned out right) and
// folds taken control transfers into the global path history VTAGE's
// indices are hashed from.
func (p *Predictor) SpeculativeUpdate(
	seqNo uint64,
	eligible bool,
	predictionResult int, // 0 incorrect, 1 correct, 2 unknown
	pc, nextPC uint64,
	insn trace.InstClass,
	src1, src2, src3 uint64,
) {
	u := &p.inflight[seqNo&(maxInFlight-1)]
	p.lastMispVT++

	if eligible {
		n := 0
		for _, s := range []uint64{src1, src2, src3} {
			if s != 0xdeadbeef {
				n++
			}
		}
		u.NbOperand = n
		u.Todo = true
		u.InstType = insn
		u.PredictionOK = predictionResult == 1

		if p.safeStride < (1<<15)-1 {
			p.safeStride++
		}
		if predictionResult != 2 {
			if predictionResult == 1 {
				if u.PredStride && p.safeStride < (1<<15)-1 {
					inc := 4
					if insn == trace.Load {
						inc *= 2
					}
					p.safeStride += inc
				}
			} else {
				if u.PredVTage {
					p.lastMispVT = 0
				}
				if u.PredStride {
					p.safeStride -= 1024
				}
			}
		}
	}

	isCondBr := insn == trace.CondBranch
	isUncondBr := insn == trace.UncondIndirectBranch || insn == trace.UncondDirectBranch
	if (isCondBr || isUncondBr) && pc != nextPC-4 {
		for i := 7; i > 0; i-- {
			p.gpath[i] = (p.gpath[i] << 1) ^ ((p.gpath[i-1] >> 63) & 1)
		}
		p.gpath[0] = (p.gpath[0] << 1) ^ (pc >> 2)
		p.gtargeth = (p.gtargeth << 1) ^ (nextPC >> 2)
	}
}

// UpdatePredictor trains both sub-predictors on the actual committed
// value of seqNo, then advances the commit sequence number the
// in-flight-instance count for E-Stride's forwarding formula depends
// on.
func (p *Predictor) UpdatePredictor(seqNo, actualValue, actualLatency uint64) {
	u := &p.inflight[seqNo&(maxInFlight-1)]
	if u.Todo {
		p.updateVTage(u, actualValue, actualLatency)
		p.updateStride(u, actualValue, actualLatency)
		u.Todo = false
	}
	p.seqCommit = seqNo
}

// strideUpdateConf reproduces the reference's strideupdateconf: a
// larger just-observed stride earns more chances at the same
// confidence-bump roll, and stride magnitudes of 1 (for loads) are
// deliberately thinned out since they carry the least benefit.
func (p *Predictor) strideUpdateConf(u *inflight, b latencyBuckets, strideToAlloc int64) bool {
	exp := b2i(b.NotLLCMiss) + b2i(b.NotL2Miss) + b2i(b.NotL1Miss) + 2*b2i(b.MedFast) + 2*b2i(u.InstType != trace.Load)
	confStr2 := func() bool {
		return (!u.PredictionOK || u.PredStride) && p.randBit(exp)
	}
	confStr1 := func() bool {
		if strideToAlloc >= 8 {
			return confStr2() || confStr2()
		}
		return confStr2()
	}
	var confStr bool
	if strideToAlloc >= 64 {
		confStr = confStr1() || confStr1()
	} else {
		confStr = confStr1()
	}

	abs := strideToAlloc
	if abs < 0 {
		abs = -abs
	}
	return confStr && (abs > 1 || u.InstType != trace.Load ||
		(strideToAlloc == -1 && p.randBit(1)) ||
		(strideToAlloc == 1 && p.randBit(2)))
}

func (p *Predictor) updateStride(u *inflight, actualValue, actualLatency uint64) {
	b := bucketsFor(actualLatency)

	hit := -1
	for i := 0; i < nbWayStr; i++ {
		if p.stride[u.StrideBank[i]].Tag == u.StrideTag[i] {
			hit = u.StrideBank[i]
			break
		}
	}

	if hit >= 0 {
		e := &p.stride[hit]
		predicted := uint64(int64(e.LastValue) + e.Stride)
		inter := 2*(int64(actualValue)-int64(e.LastValue)) - 1
		if inter < 0 {
			inter = -inter
		}
		var strideToAlloc int64
		if inter < (1 << logStride) {
			strideToAlloc = int64(actualValue) - int64(e.LastValue)
		}
		e.LastValue = actualValue

		if e.NotFirstOcc > 0 {
			if predicted == actualValue {
				if e.Conf < maxConfidStr && p.strideUpdateConf(u, b, strideToAlloc) {
					e.Conf++
				}
				if e.U < 3 && p.strideUpdateConf(u, b, strideToAlloc) {
					e.U++
				}
				if e.Conf >= maxConfidStr/4 {
					e.U = 3
				}
			} else {
				if e.Conf > (1 << (5 - 3)) {
					e.Conf -= 1 << (5 - 3)
				} else {
					e.Conf = 0
					e.U = 0
				}
				e.NotFirstOcc = 0
			}
		} else {
			if strideToAlloc != 0 {
				e.Stride = strideToAlloc
			} else {
				// The reference leaves a stride==+-1 exclusion
				// commented out here; only stride 0 is actually
				// rejected in the shipped predictor.
				e.Stride = 0xffff
				e.Conf = 0
				e.U = 0
			}
			e.NotFirstOcc++
		}
		return
	}

	if u.PredictionOK {
		return
	}
	if !p.strideShouldAllocate(u, b) {
		return
	}

	x := int(p.myRandom() % nbWayStr)
	if x < 0 {
		x += nbWayStr
	}
	done := false
	var lastHit int
	for i := 0; i < nbWayStr && !done; i++ {
		lastHit = u.StrideBank[x]
		if p.stride[lastHit].Conf == 0 {
			p.stride[lastHit] = strideEntry{Conf: 1, Tag: u.StrideTag[x], LastValue: actualValue}
			done = true
			break
		}
		x = (x + 1) % nbWayStr
	}
	if !done {
		for i := 0; i < nbWayStr && !done; i++ {
			lastHit = u.StrideBank[x]
			if p.stride[lastHit].U == 0 {
				p.stride[lastHit] = strideEntry{Conf: 1, Tag: u.StrideTag[x], LastValue: actualValue}
				done = true
				break
			}
			x = (x + 1) % nbWayStr
		}
	}
	if !done {
		exp := 2 + 2*b2i(p.stride[lastHit].Conf > maxConfidStr/8) + 2*b2i(p.stride[lastHit].Conf >= maxConfidStr/4)
		if p.randBit(exp) && p.stride[lastHit].U > 0 {
			p.stride[lastHit].U--
		}
	}
}

func (p *Predictor) strideShouldAllocate(u *inflight, b latencyBuckets) bool {
	switch u.InstType {
	case trace.ALU, trace.Store:
		return p.randBit(6)
	case trace.FP, trace.SlowALU:
		return p.randBit(4)
	case trace.Load:
		exp := b2i(b.NotLLCMiss) + b2i(b.NotL2Miss) + b2i(b.NotL1Miss) + b2i(b.MedFast)
		return p.randBit(exp)
	default:
		return false
	}
}

// vtageConfMask mirrors the reference's updateconf exponent: near-zero
// committed values, latency-tier hits, and non-load instructions all
// add to it, giving a larger mask that the random draw passes less often.
func (p *Predictor) vtageConfMask(u *inflight, actualValue uint64, b latencyBuckets) int {
	exp := lowVal(actualValue) + b2i(b.NotLLCMiss) + 2*b2i(b.Fast) + b2i(b.NotL2Miss) + b2i(b.NotL1Miss)
	if u.InstType != trace.Load || b.NotL1Miss {
		exp++
	}
	return exp
}

// vtageUpdateConf reproduces UPDATECONF: a hit-bank of 0 or 1 (i.e. a
// short, likely-noisy history) gets two independent rolls at the same
// mask instead of one.
func (p *Predictor) vtageUpdateConf(u *inflight, actualValue uint64, b latencyBuckets) bool {
	switch u.InstType {
	case trace.ALU, trace.FP, trace.SlowALU, trace.Undef, trace.Load, trace.Store:
		exp := p.vtageConfMask(u, actualValue, b)
		if u.HitBank <= 1 {
			return p.randBit(exp) || p.randBit(exp)
		}
		return p.randBit(exp)
	case trace.UncondIndirectBranch:
		return true
	default:
		return false
	}
}

// vtageUpdateU reproduces UPDATEU: the u-bit only bumps on a previously
// wrong prediction, and ALU instructions with fewer than two operands
// add 2 to the exponent, so their roll passes less often.
func (p *Predictor) vtageUpdateU(u *inflight, actualValue uint64, b latencyBuckets) bool {
	switch u.InstType {
	case trace.ALU, trace.FP, trace.SlowALU, trace.Undef, trace.Load, trace.Store:
		exp := lowVal(actualValue) + 2*b2i(b.NotL1Miss) + b2i(u.InstType != trace.Load) + b2i(b.Fast) +
			2*b2i(u.InstType == trace.ALU && u.NbOperand < 2)
		return !u.PredictionOK && p.randBit(exp)
	case trace.UncondIndirectBranch:
		return true
	default:
		return false
	}
}

func (p *Predictor) vtageAllocMask(u *inflight, actualValue uint64, b latencyBuckets) int {
	mult := 0
	if u.InstType != trace.Load || b.NotL1Miss {
		mult = 1
	}
	return mult*lowVal(actualValue) + b2i(b.NotLLCMiss) + b2i(b.NotL2Miss) + b2i(b.NotL1Miss) + 2*b2i(b.Fast)
}

func (p *Predictor) vtageAllocFormula(u *inflight, actualValue uint64, b latencyBuckets, medConf bool) bool {
	exp := p.vtageAllocMask(u, actualValue, b)
	mask := (int64(2) << uint(exp)) - 1
	return (p.myRandom()&mask) == 0 || medConf
}

// vtageShouldAllocate reproduces VtageAllocateOrNot: ALU/store/undef
// instructions first pass a per-operand-count gate before the shared
// formula runs; FP/slow-ALU/load instructions run the formula directly.
func (p *Predictor) vtageShouldAllocate(u *inflight, actualValue uint64, b latencyBuckets, medConf bool) bool {
	switch u.InstType {
	case trace.Undef, trace.ALU, trace.Store:
		gate := (u.NbOperand >= 2 && p.randBit(4)) || (u.NbOperand < 2 && p.randBit(6))
		if !gate {
			return false
		}
		return p.vtageAllocFormula(u, actualValue, b, medConf)
	case trace.FP, trace.SlowALU, trace.Load:
		return p.vtageAllocFormula(u, actualValue, b, medConf)
	case trace.UncondIndirectBranch:
		return true
	default:
		return false
	}
}

func (p *Predictor) updateVTage(u *inflight, actualValue, actualLatency uint64) {
	b := bucketsFor(actualLatency)
	hashData := int((actualValue^(actualValue>>7)^(actualValue>>13)^(actualValue>>21)^(actualValue>>29))&(bankData-1)) + 3*bankData

	shouldAllocate := true
	medConf := false
	if u.HitBank != -1 {
		index := u.GI[u.HitBank]
		if p.vtage[index].Tag == u.GTag[u.HitBank] {
			entry := &p.vtage[index]
			indIndex := entry.HashPt
			matches := (indIndex >= 3*bankData && indIndex == hashData) ||
				(indIndex < 3*bankData && indIndex < len(p.ldata) && p.ldata[indIndex].Data == actualValue)
			shouldAllocate = !matches

			if matches {
				if entry.Conf < maxConfid && p.vtageUpdateConf(u, actualValue, b) {
					entry.Conf++
				}
				if entry.U < maxU && (p.vtageUpdateU(u, actualValue, b) || entry.Conf == maxConfid) {
					entry.U++
				}
				if indIndex < 3*bankData && indIndex < len(p.ldata) {
					if p.ldata[indIndex].U < 3 && entry.Conf == maxConfid {
						p.ldata[indIndex].U++
					}
				} else if entry.Conf >= maxConfid-1 {
					p.allocateDataSlot(entry, actualValue, u)
				}
			} else {
				if entry.Conf > maxConfid/2 ||
					(entry.Conf == maxConfid/2 && entry.U == 3) ||
					(entry.Conf > 0 && entry.Conf < maxConfid/2) {
					medConf = true
				}
				entry.HashPt = hashData
				if entry.Conf == maxConfid {
					entry.U = 1
					entry.Conf -= (maxConfid + 1) / 4
				} else {
					entry.Conf = 0
					entry.U = 0
				}
			}
		}
	}

	if u.PredictionOK || !shouldAllocate {
		return
	}
	if !p.vtageShouldAllocate(u, actualValue, b, medConf) {
		return
	}

	dep := u.HitBank + 1
	if p.randBit(3) {
		dep++
	}
	if u.HitBank == 0 {
		dep++
	}
	if u.HitBank == -1 {
		if p.myRandom()&7 != 0 {
			dep = int(p.myRandom() & 1)
		} else {
			dep = 2
			if p.randBit(3) {
				dep++
			}
		}
	}

	na, all := 0, 0
	if dep > 1 {
		for i := dep; i <= numHist; i++ {
			idx := u.GI[i]
			if p.vtage[idx].U == 0 && (p.vtage[idx].Conf == maxConfid/2 || int(p.vtage[idx].Conf) <= int(p.myRandom()&maxConfid)) {
				p.vtage[idx] = vtEntry{HashPt: hashData, Conf: maxConfid / 2, Tag: u.GTag[i]}
				all++
				break
			}
			na++
		}
	} else {
		for j := 0; j <= 1; j++ {
			i := (j + dep) & 1
			idx := u.GI[i]
			if p.vtage[idx].U == 0 && (p.vtage[idx].Conf == maxConfid/2 || int(p.vtage[idx].Conf) <= int(p.myRandom()&maxConfid)) {
				e := vtEntry{HashPt: hashData, Conf: maxConfid / 2, Tag: u.GTag[i]}
				if u.NbOperand == 0 && u.InstType == trace.ALU {
					e.Conf = maxConfid
				}
				p.vtage[idx] = e
				all++
				break
			}
			na++
		}
	}
	p.tick += na - 5*all
	if p.tick < 0 {
		p.tick = 0
	}
	if p.tick >= maxTick {
		for i := range p.vtage {
			if p.vtage[i].U > 0 {
				p.vtage[i].U--
			}
		}
		p.tick = 0
	}
}

func (p *Predictor) allocateDataSlot(entry *vtEntry, actualValue uint64, u *inflight) {
	var x [3]int
	for i := 0; i < 3; i++ {
		x[i] = int((actualValue^(actualValue>>uint(logLData+i+1))^(actualValue>>uint(3*(logLData+i+1))))&(bankData-1)) + i*bankData
	}
	for i := 0; i < 3; i++ {
		if p.ldata[x[i]].Data == actualValue {
			entry.HashPt = x[i]
			return
		}
	}
	if !p.randBit(2) {
		return
	}

	i := int(p.myRandom() % 3)
	if i < 0 {
		i += 3
	}
	done := false
	for j := 0; j < 3 && !done; j++ {
		if p.ldata[x[i]].U == 0 {
			p.ldata[x[i]] = longData{Data: actualValue, U: 1}
			entry.HashPt = x[i]
			done = true
			break
		}
		i = (i + 1) % 3
	}
	if done || u.InstType != trace.Load {
		return
	}
	if p.ldata[x[i]].U == 0 {
		p.ldata[x[i]] = longData{Data: actualValue, U: 1}
		entry.HashPt = x[i]
		return
	}
	if p.randBit(2) && p.ldata[x[i]].U > 0 {
		p.ldata[x[i]].U--
	}
}

// StorageBits reports the predictor's modeled hardware storage cost in
// bits, mirroring the reference harness's endPredictor() accounting.
func (p *Predictor) StorageBits() int {
	strideBits := nbWayStr * (1 << logStr) * (67 + logStride + tagWidthStr + 5)
	dataBits := ((64 - logLData) + 2) * 3 << logLData
	vtageBits := bankSize*nbBank*(tagWidth+(logLData+2)+3+2) + 8 + 10
	return strideBits + dataBits + vtageBits
}
