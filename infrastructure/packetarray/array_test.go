package packetarray

import "testing"

func TestArray_PushBackThenPopFront_FIFO(t *testing.T) {
	a := New[string](4)
	s1, ok1 := a.PushBack("a")
	s2, ok2 := a.PushBack("b")
	s3, ok3 := a.PushBack("c")

	if !ok1 || !ok2 || !ok3 {
		t.Fatalf("PushBack ok = %v,%v,%v, want all true", ok1, ok2, ok3)
	}
	if s1 != 0 || s2 != 1 || s3 != 2 {
		t.Fatalf("sequence numbers = %d,%d,%d, want 0,1,2", s1, s2, s3)
	}
	if a.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", a.Len())
	}

	seq, v, ok := a.PopFront()
	if !ok || seq != 0 || v != "a" {
		t.Fatalf("PopFront() = %d,%q,%v, want 0,a,true", seq, v, ok)
	}
	if a.Len() != 2 {
		t.Fatalf("Len() after pop = %d, want 2", a.Len())
	}
}

func TestArray_PopFront_EmptySlotFails(t *testing.T) {
	a := New[int](4)
	a.PushBack(1)
	_, _ = a.Remove(0)
	if _, _, ok := a.PopFront(); ok {
		t.Fatal("PopFront() should fail on an explicitly removed slot")
	}
}

func TestArray_InsertRejectsDuplicate(t *testing.T) {
	a := New[int](4)
	if !a.Insert(5, 100) {
		t.Fatal("first insert should succeed")
	}
	if a.Insert(5, 200) {
		t.Fatal("duplicate insert at same sequence should fail")
	}
	got, ok := a.Get(5)
	if !ok || got != 100 {
		t.Fatalf("Get(5) = %d,%v, want 100,true (duplicate must not overwrite)", got, ok)
	}
}

func TestArray_InsertRejectsOutOfWindow(t *testing.T) {
	bits := uint(2) // capacity 4
	a := New[int](bits)
	a.PushBack(0) // establishes window starting at 0

	if a.Insert(100, 1) {
		t.Fatal("insert far outside the window should fail")
	}
}

func TestArray_PushBack_FailsWhenFull(t *testing.T) {
	a := New[int](2) // capacity 4
	for i := 0; i < 4; i++ {
		if _, ok := a.PushBack(i); !ok {
			t.Fatalf("PushBack(%d) should have succeeded while the window has room", i)
		}
	}
	if a.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", a.Len())
	}

	// Window is full; pushing one more must fail, leaving every existing
	// entry (including the oldest) untouched.
	if _, ok := a.PushBack(4); ok {
		t.Fatal("PushBack should fail once the window is full")
	}
	if v, ok := a.Get(0); !ok || v != 0 {
		t.Fatalf("Get(0) = %d,%v, want 0,true (nothing should be evicted on a failed push)", v, ok)
	}
	if _, ok := a.Get(4); ok {
		t.Fatal("sequence 4 should not have been inserted")
	}
}

func TestArray_Set_UpdatesOccupiedSlotOnly(t *testing.T) {
	a := New[int](4)
	a.PushBack(10)

	if !a.Set(0, 20) {
		t.Fatal("Set on an occupied slot should succeed")
	}
	if v, ok := a.Get(0); !ok || v != 20 {
		t.Fatalf("Get(0) = %d,%v, want 20,true", v, ok)
	}
	if a.Set(1, 99) {
		t.Fatal("Set on an empty slot should fail")
	}
}

func TestArray_Iter_AscendingOrder(t *testing.T) {
	a := New[int](4)
	a.PushBack(10)
	a.PushBack(20)
	a.PushBack(30)

	var seqs []uint32
	a.Iter(func(seq uint32, v int) bool {
		seqs = append(seqs, seq)
		return true
	})
	if len(seqs) != 3 || seqs[0] != 0 || seqs[1] != 1 || seqs[2] != 2 {
		t.Fatalf("Iter order = %v, want [0 1 2]", seqs)
	}
}

func TestArray_Iter_StopsEarly(t *testing.T) {
	a := New[int](4)
	a.PushBack(1)
	a.PushBack(2)
	a.PushBack(3)

	count := 0
	a.Iter(func(seq uint32, v int) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Iter visited %d slots, want exactly 1 after early stop", count)
	}
}

func TestArray_RemoveReturnsValueAndFreesSlot(t *testing.T) {
	a := New[string](4)
	a.PushBack("x")
	v, ok := a.Remove(0)
	if !ok || v != "x" {
		t.Fatalf("Remove(0) = %q,%v, want x,true", v, ok)
	}
	if _, ok := a.Get(0); ok {
		t.Fatal("slot should be empty after Remove")
	}
}
