package services

import (
	"context"
	"errors"
	"testing"
)

func TestCalculateProgress(t *testing.T) {
	tests := []struct {
		phase     string
		completed int
		total     int
		want      int
	}{
		{"initializing", 0, 0, 0},
		{"extraction", 0, 3, 10},
		{"extraction", 1, 3, 35},
		{"extraction", 2, 3, 60},
		{"extraction", 3, 3, 85},
		{"extraction", 0, 0, 10},
		{"normalize", 0, 0, 90},
		{"duplicates", 0, 0, 95},
		{"complete", 0, 0, 100},
		{"unknown", 0, 0, 0},
	}

	for _, tt := range tests {
		got := CalculateProgress(tt.phase, tt.completed, tt.total)
		if got != tt.want {
			t.Errorf("CalculateProgress(%q, %d, %d) = %d, want %d",
				tt.phase, tt.completed, tt.total, got, tt.want)
		}
	}
}

func TestTrackerDegradesWithoutRedis(t *testing.T) {
	pt := NewProgressTracker(nil)
	ctx := context.Background()

	if _, err := pt.CreateJob(ctx, 1, "sess"); !errors.Is(err, ErrTrackerUnavailable) {
		t.Fatalf("CreateJob error = %v, want ErrTrackerUnavailable", err)
	}
	if err := pt.UpdateProgress(ctx, "job", ProgressEvent{}); !errors.Is(err, ErrTrackerUnavailable) {
		t.Fatalf("UpdateProgress error = %v, want ErrTrackerUnavailable", err)
	}

	// Reads and cleanup report nothing rather than failing, so a run
	// without Redis still streams over SSE.
	jobID, err := pt.GetActiveJob(ctx, 1)
	if err != nil || jobID != "" {
		t.Fatalf("GetActiveJob = (%q, %v), want empty and nil", jobID, err)
	}
	if err := pt.ClearActiveJob(ctx, 1); err != nil {
		t.Fatalf("ClearActiveJob error = %v", err)
	}
}

func TestCalculateProgressNeverExceedsCap(t *testing.T) {
	for total := 1; total <= 40; total++ {
		for completed := 0; completed <= total; completed++ {
			got := CalculateProgress("extraction", completed, total)
			if got < 10 || got > 85 {
				t.Fatalf("extraction progress %d out of [10,85] at %d/%d", got, completed, total)
			}
		}
	}
}
