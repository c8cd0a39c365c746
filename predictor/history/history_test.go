package history

import "testing"

func TestFoldedStaysWithinCompressedWidth(t *testing.T) {
	g := &Global{Ptr: 0}
	f := &Folded{}
	f.Init(16, 10)

	for i := 0; i < 200; i++ {
		g.Update(uint64(i)*7+1, uint64(i)*13+2, 3, 27, []*Folded{f})
		if f.Comp >= (1 << 10) {
			t.Fatalf("folded register escaped its width: %#x", f.Comp)
		}
	}
}

func TestGlobalUpdateAdvancesPointerByMaxBits(t *testing.T) {
	g := &Global{Ptr: 0}
	g.Update(0x1000, 0x2000, 3, 27)
	if g.Ptr != -3 {
		t.Fatalf("expected pointer to move back by 3, got %d", g.Ptr)
	}
}

func TestPathHistoryMaskedToWidth(t *testing.T) {
	g := &Global{Ptr: 0}
	for i := 0; i < 50; i++ {
		g.Update(uint64(i), uint64(i), 3, 8)
	}
	if g.Path < 0 || g.Path >= (1<<8) {
		t.Fatalf("expected path history within 8 bits, got %d", g.Path)
	}
}

func TestTwoFoldedSetsUpdateIndependently(t *testing.T) {
	g := &Global{Ptr: 0}
	idxFold := &Folded{}
	idxFold.Init(20, 10)
	tagFold := &Folded{}
	tagFold.Init(20, 11)

	g.Update(0xdead, 0xbeef, 3, 27, []*Folded{idxFold}, []*Folded{tagFold})

	if idxFold.Comp == 0 && tagFold.Comp == 0 {
		t.Fatal("expected at least one folded register to pick up nonzero history")
	}
}
