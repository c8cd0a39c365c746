// Package trace decodes CVP-1 instruction traces and cracks each trace
// entry into one or more single-destination micro-op Records, the unit
// the microarchitecture simulator steps over.
package trace

// InstClass identifies the dynamic behavior of a traced instruction.
type InstClass uint8

const (
	ALU InstClass = iota
	Load
	Store
	CondBranch
	UncondDirectBranch
	UncondIndirectBranch
	FP
	SlowALU
	Undef
)

// String renders the instruction class the way the reference harness's
// cInfo table does.
func (c InstClass) String() string {
	switch c {
	case ALU:
		return "aluOp"
	case Load:
		return "loadOp"
	case Store:
		return "stOp"
	case CondBranch:
		return "condBrOp"
	case UncondDirectBranch:
		return "uncondDirBrOp"
	case UncondIndirectBranch:
		return "uncondIndBrOp"
	case FP:
		return "fpOp"
	case SlowALU:
		return "slowAluOp"
	default:
		return "undefOp"
	}
}

// Register offsets. Registers 0-31 are integer, 32-63 are SIMD/FP lanes,
// and 64 is the flag (condition-code) register.
const (
	VecOffset uint8 = 32
	FlagReg   uint8 = 64
)

// Operand describes one source or destination operand of a Record.
type Operand struct {
	Valid  bool
	IsInt  bool
	LogReg uint8
	Value  uint64
}

// Record is one micro-op as the simulator consumes it: at most three
// source operands and a single destination. Trace entries with more than
// one destination (load-pair, SIMD) are cracked into multiple Records
// sharing the same PC by Reader.Next.
type Record struct {
	Insn   InstClass
	PC     uint64
	NextPC uint64

	A, B, C, D Operand

	IsLoad  bool
	IsStore bool
	Addr    uint64
	Size    uint64

	// Piece is the cracked-instruction piece index: 0 for the first
	// Record produced from a trace entry, 1 for the second, and so on.
	Piece uint8
}

// Taken reports whether this is a control-transfer instruction that
// redirected the fetch stream.
func (r *Record) Taken() bool {
	return r.NextPC != r.PC+4
}

// IsBranch reports whether r is any of the three control-transfer classes.
func (r *Record) IsBranch() bool {
	return r.Insn == CondBranch || r.Insn == UncondDirectBranch || r.Insn == UncondIndirectBranch
}
