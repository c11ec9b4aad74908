package registry

import (
	"errors"
	"sync"
	"testing"
)

func TestTableAddLookup(t *testing.T) {
	var tab Table[uint64, string]

	if err := tab.Add(7, "ctx"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	got, ok := tab.Lookup(7)
	if !ok || got != "ctx" {
		t.Errorf("Lookup(7) = %q, %v, want %q, true", got, ok, "ctx")
	}
}

func TestTableDuplicateAdd(t *testing.T) {
	var tab Table[uint64, int]

	if err := tab.Add(1, 10); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	err := tab.Add(1, 20)
	if !errors.Is(err, ErrDuplicateHandle) {
		t.Errorf("second Add() error = %v, want ErrDuplicateHandle", err)
	}
	// The original entry must survive the rejected add.
	if got, _ := tab.Lookup(1); got != 10 {
		t.Errorf("Lookup(1) = %d, want 10", got)
	}
}

func TestTableRemove(t *testing.T) {
	var tab Table[uint64, int]

	if err := tab.Add(3, 30); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	tab.Remove(3)
	if _, ok := tab.Lookup(3); ok {
		t.Error("Lookup(3) after Remove = present, want absent")
	}

	// Removing an absent key is a no-op, not an error.
	tab.Remove(3)
	tab.Remove(99)
}

func TestTableAllocationLifecycle(t *testing.T) {
	var tab Table[uint64, int]

	if tab.IsAllocated() {
		t.Error("IsAllocated() on zero table = true, want false")
	}
	if err := tab.Add(1, 1); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if !tab.IsAllocated() {
		t.Error("IsAllocated() after Add = false, want true")
	}

	tab.Remove(1)
	if !tab.IsAllocated() {
		t.Error("IsAllocated() on empty-but-constructed table = false, want true")
	}

	tab.Clear()
	if tab.IsAllocated() {
		t.Error("IsAllocated() after Clear = true, want false")
	}
	if tab.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", tab.Len())
	}
}

func TestTableConcurrentChurn(t *testing.T) {
	var tab Table[int, int]
	var wg sync.WaitGroup

	const workers = 8
	const perWorker = 200

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			base := w * perWorker
			for i := 0; i < perWorker; i++ {
				k := base + i
				if err := tab.Add(k, k); err != nil {
					t.Errorf("Add(%d) error = %v", k, err)
					return
				}
				if v, ok := tab.Lookup(k); !ok || v != k {
					t.Errorf("Lookup(%d) = %d, %v", k, v, ok)
					return
				}
				if k%2 == 0 {
					tab.Remove(k)
				}
			}
		}(w)
	}
	wg.Wait()

	want := workers * perWorker / 2
	if got := tab.Len(); got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
}

func TestTableRange(t *testing.T) {
	var tab Table[int, int]
	for i := 0; i < 5; i++ {
		if err := tab.Add(i, i*i); err != nil {
			t.Fatalf("Add(%d) error = %v", i, err)
		}
	}

	seen := 0
	tab.Range(func(k, v int) bool {
		if v != k*k {
			t.Errorf("Range saw (%d, %d), want (%d, %d)", k, v, k, k*k)
		}
		seen++
		return true
	})
	if seen != 5 {
		t.Errorf("Range visited %d entries, want 5", seen)
	}
}
