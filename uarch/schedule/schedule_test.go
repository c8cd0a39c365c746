package schedule

import "testing"

func TestScheduleFillsWidthBeforeAdvancing(t *testing.T) {
	s := New(2)
	if c := s.Schedule(10); c != 10 {
		t.Fatalf("expected cycle 10, got %d", c)
	}
	if c := s.Schedule(10); c != 10 {
		t.Fatalf("expected second slot at cycle 10, got %d", c)
	}
	if c := s.Schedule(10); c != 11 {
		t.Fatalf("expected overflow to cycle 11, got %d", c)
	}
}

func TestScheduleRespectsMaxDelta(t *testing.T) {
	s := New(1)
	s.Schedule(5)
	if c := s.Schedule(5, 0); c != MaxCycle {
		t.Fatalf("expected MaxCycle when window is exhausted, got %d", c)
	}
}

func TestTryScheduleDoesNotBook(t *testing.T) {
	s := New(1)
	first := s.TrySchedule(3)
	second := s.TrySchedule(3)
	if first != second {
		t.Fatalf("TrySchedule should not book a slot: %d vs %d", first, second)
	}
}

func TestAdvanceBaseCycleFreesPastSlots(t *testing.T) {
	s := New(1)
	s.Schedule(0)
	s.AdvanceBaseCycle(1)
	if c := s.Schedule(0); c != 1 {
		t.Fatalf("expected schedule to move past freed cycle 0, got %d", c)
	}
}

func TestScheduleGrowsRingAcrossDepthIncrement(t *testing.T) {
	s := New(1)
	c := s.Schedule(1000)
	if c != 1000 {
		t.Fatalf("expected cycle 1000 after ring growth, got %d", c)
	}
}
