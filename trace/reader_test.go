package trace

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// traceBuilder assembles a synthetic wire-format trace in memory for tests.
type traceBuilder struct {
	buf bytes.Buffer
}

func (b *traceBuilder) u64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.buf.Write(tmp[:])
}

func (b *traceBuilder) u8(v uint8) { b.buf.WriteByte(v) }

func (b *traceBuilder) aluAdd(pc uint64, dst uint8, src1, src2 uint8, value uint64) {
	b.u64(pc)
	b.u8(uint8(ALU))
	b.u8(2) // num in regs
	b.u8(src1)
	b.u8(src2)
	b.u8(1) // num out regs
	b.u8(dst)
	b.u64(value)
}

func (b *traceBuilder) load(pc uint64, dst uint8, src uint8, addr uint64, size uint8, value uint64) {
	b.u64(pc)
	b.u8(uint8(Load))
	b.u64(addr)
	b.u8(size)
	b.u8(1)
	b.u8(src)
	b.u8(1)
	b.u8(dst)
	b.u64(value)
}

func (b *traceBuilder) condBranch(pc uint64, taken bool, target uint64) {
	b.u64(pc)
	b.u8(uint8(CondBranch))
	if taken {
		b.u8(1)
		b.u64(target)
	} else {
		b.u8(0)
	}
	b.u8(0) // num in regs (none -> flag reg synthesized)
	b.u8(0) // num out regs
}

func (b *traceBuilder) writeGzipFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if _, err := gz.Write(b.buf.Bytes()); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return path
}

func TestReaderDecodesSimpleALU(t *testing.T) {
	var b traceBuilder
	b.aluAdd(0x1000, 3, 1, 2, 42)
	path := b.writeGzipFile(t)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec.Insn != ALU || rec.PC != 0x1000 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !rec.A.Valid || rec.A.LogReg != 1 || !rec.B.Valid || rec.B.LogReg != 2 {
		t.Fatalf("unexpected sources: %+v", rec)
	}
	if !rec.D.Valid || rec.D.LogReg != 3 || rec.D.Value != 42 {
		t.Fatalf("unexpected destination: %+v", rec)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReaderSynthesizesFlagsForCompareAndBranch(t *testing.T) {
	var b traceBuilder
	b.u64(0x2000)
	b.u8(uint8(ALU))
	b.u8(2)
	b.u8(4)
	b.u8(5)
	b.u8(0) // no explicit outputs -> flag register synthesized
	b.condBranch(0x2004, true, 0x3000)
	path := b.writeGzipFile(t)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	cmp, err := r.Next()
	if err != nil {
		t.Fatalf("Next (cmp): %v", err)
	}
	if !cmp.D.Valid || cmp.D.LogReg != FlagReg {
		t.Fatalf("expected synthesized flag destination, got %+v", cmp.D)
	}

	br, err := r.Next()
	if err != nil {
		t.Fatalf("Next (branch): %v", err)
	}
	if !br.A.Valid || br.A.LogReg != FlagReg {
		t.Fatalf("expected synthesized flag source on cond branch, got %+v", br.A)
	}
	if !br.Taken() || br.NextPC != 0x3000 {
		t.Fatalf("expected taken branch to 0x3000, got %+v", br)
	}
}

func TestReaderCracksLoadPair(t *testing.T) {
	var b traceBuilder
	b.u64(0x4000)
	b.u8(uint8(Load))
	b.u64(0x8000)
	b.u8(8) // access size for one register
	b.u8(1)
	b.u8(10)
	b.u8(2) // two output registers: load pair
	b.u8(5)
	b.u8(6)
	b.u64(111)
	b.u64(222)
	path := b.writeGzipFile(t)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	first, err := r.Next()
	if err != nil {
		t.Fatalf("Next (1st piece): %v", err)
	}
	if first.D.LogReg != 5 || first.D.Value != 111 || first.Piece != 0 {
		t.Fatalf("unexpected first piece: %+v", first)
	}
	if first.Addr != 0x8000 {
		t.Fatalf("unexpected first piece address: 0x%x", first.Addr)
	}

	second, err := r.Next()
	if err != nil {
		t.Fatalf("Next (2nd piece): %v", err)
	}
	if second.D.LogReg != 6 || second.D.Value != 222 || second.Piece != 1 {
		t.Fatalf("unexpected second piece: %+v", second)
	}
	if second.PC != first.PC {
		t.Fatalf("pieces should share a PC: %x vs %x", second.PC, first.PC)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected EOF after both pieces consumed, got %v", err)
	}
}
