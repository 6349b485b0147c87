package services

import (
	"errors"
	"reflect"
	"testing"
)

func TestPageSelectionBounds(t *testing.T) {
	s := NewPageSelection(5)

	var outOfRange *IndexOutOfRangeError
	if err := s.Select(-1); !errors.As(err, &outOfRange) {
		t.Errorf("Select(-1): got %v", err)
	}
	if err := s.Select(5); !errors.As(err, &outOfRange) {
		t.Errorf("Select(5): got %v", err)
	}
	if err := s.Deselect(7); !errors.As(err, &outOfRange) {
		t.Errorf("Deselect(7): got %v", err)
	}

	if err := s.Select(0); err != nil {
		t.Errorf("Select(0): %v", err)
	}
	if err := s.Select(4); err != nil {
		t.Errorf("Select(4): %v", err)
	}
	if s.Count() != 2 {
		t.Errorf("Count = %d, want 2", s.Count())
	}
}

func TestPageSelectionIdempotence(t *testing.T) {
	s := NewPageSelection(3)

	s.Select(1)
	s.Select(1)
	if s.Count() != 1 {
		t.Errorf("double select: Count = %d, want 1", s.Count())
	}

	// Deselecting an unselected page is a no-op, not an error
	if err := s.Deselect(2); err != nil {
		t.Errorf("Deselect unselected: %v", err)
	}
	if s.Count() != 1 {
		t.Errorf("Count = %d, want 1", s.Count())
	}
}

func TestPageSelectionSelectAllAndClear(t *testing.T) {
	s := NewPageSelection(4)
	s.SelectAll()
	if got := s.Snapshot(); !reflect.DeepEqual(got, []int{0, 1, 2, 3}) {
		t.Errorf("SelectAll snapshot = %v", got)
	}

	s.Clear()
	if s.Count() != 0 {
		t.Errorf("Count after clear = %d", s.Count())
	}
}

func TestPageSelectionSnapshotIsACopy(t *testing.T) {
	s := NewPageSelection(5)
	s.Select(3)
	s.Select(0)

	snap := s.Snapshot()
	if !reflect.DeepEqual(snap, []int{0, 3}) {
		t.Fatalf("snapshot = %v", snap)
	}

	s.Select(1)
	if len(snap) != 2 {
		t.Error("snapshot changed after later selection")
	}
	if !s.Has(1) {
		t.Error("selection lost new page")
	}
}
