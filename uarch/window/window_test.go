package window

import "testing"

func TestWindowFIFOOrder(t *testing.T) {
	w := New(2)
	w.Push(Entry{SeqNo: 1, RetireCycle: 10})
	w.Push(Entry{SeqNo: 2, RetireCycle: 20})

	if !w.Full() {
		t.Fatal("expected window to be full")
	}
	if got := w.PeekHead().SeqNo; got != 1 {
		t.Fatalf("expected head seq 1, got %d", got)
	}
	if got := w.PeekTail().SeqNo; got != 2 {
		t.Fatalf("expected tail seq 2, got %d", got)
	}

	first := w.Pop()
	if first.SeqNo != 1 {
		t.Fatalf("expected pop seq 1, got %d", first.SeqNo)
	}
	if w.Full() {
		t.Fatal("expected window to have room after pop")
	}

	w.Push(Entry{SeqNo: 3, RetireCycle: 30})
	second := w.Pop()
	third := w.Pop()
	if second.SeqNo != 2 || third.SeqNo != 3 {
		t.Fatalf("unexpected pop order: %d, %d", second.SeqNo, third.SeqNo)
	}
	if !w.Empty() {
		t.Fatal("expected window to be empty")
	}
}

func TestPushIntoFullWindowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic pushing into full window")
		}
	}()
	w := New(1)
	w.Push(Entry{})
	w.Push(Entry{})
}

func TestRegisterFileDefaultsToZero(t *testing.T) {
	var rf RegisterFile
	if rf.Get(0) != 0 {
		t.Fatalf("expected fresh register to read 0")
	}
	rf.Set(FlagReg, 7)
	if rf.Get(FlagReg) != 7 {
		t.Fatalf("expected flag register timestamp 7, got %d", rf.Get(FlagReg))
	}
}
