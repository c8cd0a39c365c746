package storequeue

import "testing"

func TestLookupMissOnEmptyQueue(t *testing.T) {
	q := New()
	if _, ok := q.Lookup(0x1000); ok {
		t.Fatal("expected no entry in an empty queue")
	}
}

func TestStoreThenLookupHits(t *testing.T) {
	q := New()
	q.Store(0x1000, 50, 80)

	e, ok := q.Lookup(0x1000)
	if !ok {
		t.Fatal("expected entry after store")
	}
	if e.ExecCycle != 50 || e.RetireCycle != 80 {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestStoreOverwritesPreviousEntry(t *testing.T) {
	q := New()
	q.Store(0x1000, 50, 80)
	q.Store(0x1000, 90, 120)

	e, _ := q.Lookup(0x1000)
	if e.ExecCycle != 90 || e.RetireCycle != 120 {
		t.Fatalf("expected newest store to win, got %+v", e)
	}
	if q.Len() != 1 {
		t.Fatalf("expected a single tracked byte, got %d", q.Len())
	}
}

func TestDistinctBytesTrackedIndependently(t *testing.T) {
	q := New()
	q.Store(0x1000, 1, 2)
	q.Store(0x1001, 3, 4)

	if q.Len() != 2 {
		t.Fatalf("expected 2 tracked bytes, got %d", q.Len())
	}
}
