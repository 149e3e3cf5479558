package service

import (
	"context"
	"testing"
	"time"

	"housecall/pkg/model"
)

type mockWindowFinder struct {
	findFn func(ctx context.Context, workerID string, statuses []model.Status, from, to time.Time) ([]*model.Booking, error)
}

func (m *mockWindowFinder) FindByWorkerInWindow(ctx context.Context, workerID string, statuses []model.Status, from, to time.Time) ([]*model.Booking, error) {
	return m.findFn(ctx, workerID, statuses, from, to)
}

func windowBooking(id string, start time.Time, durationMin int) *model.Booking {
	return &model.Booking{
		ID:                   id,
		WorkerID:             "worker-1",
		Status:               model.StatusConfirmed,
		ScheduledDate:        start,
		EstimatedDurationMin: durationMin,
	}
}

func TestFindConflict_Overlap(t *testing.T) {
	base := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		existing     []*model.Booking
		windowStart  time.Time
		windowEnd    time.Time
		exclude      string
		wantConflict string
	}{
		{
			name:         "partial overlap conflicts",
			existing:     []*model.Booking{windowBooking("b1", base, 60)},
			windowStart:  base.Add(30 * time.Minute),
			windowEnd:    base.Add(90 * time.Minute),
			wantConflict: "b1",
		},
		{
			name:         "contained window conflicts",
			existing:     []*model.Booking{windowBooking("b1", base, 120)},
			windowStart:  base.Add(30 * time.Minute),
			windowEnd:    base.Add(60 * time.Minute),
			wantConflict: "b1",
		},
		{
			name:        "touching end does not conflict",
			existing:    []*model.Booking{windowBooking("b1", base, 60)},
			windowStart: base.Add(60 * time.Minute),
			windowEnd:   base.Add(120 * time.Minute),
		},
		{
			name:        "touching start does not conflict",
			existing:    []*model.Booking{windowBooking("b1", base, 60)},
			windowStart: base.Add(-60 * time.Minute),
			windowEnd:   base,
		},
		{
			name:        "excluded booking is skipped",
			existing:    []*model.Booking{windowBooking("b1", base, 60)},
			windowStart: base,
			windowEnd:   base.Add(60 * time.Minute),
			exclude:     "b1",
		},
		{
			name: "first overlapping booking wins",
			existing: []*model.Booking{
				windowBooking("b1", base.Add(-120*time.Minute), 60),
				windowBooking("b2", base.Add(15*time.Minute), 30),
			},
			windowStart:  base,
			windowEnd:    base.Add(60 * time.Minute),
			wantConflict: "b2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := &mockWindowFinder{
				findFn: func(_ context.Context, _ string, _ []model.Status, _, _ time.Time) ([]*model.Booking, error) {
					return tt.existing, nil
				},
			}

			checker := NewConflictChecker(finder, 480)
			conflict, err := checker.FindConflict(context.Background(), "worker-1", tt.windowStart, tt.windowEnd, tt.exclude)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.wantConflict == "" {
				if conflict != nil {
					t.Fatalf("expected no conflict, got %s", conflict.ID)
				}
				return
			}
			if conflict == nil || conflict.ID != tt.wantConflict {
				t.Fatalf("expected conflict %s, got %v", tt.wantConflict, conflict)
			}
		})
	}
}

func TestFindConflict_QueryBounds(t *testing.T) {
	windowStart := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	windowEnd := windowStart.Add(time.Hour)

	var gotFrom, gotTo time.Time
	var gotStatuses []model.Status
	finder := &mockWindowFinder{
		findFn: func(_ context.Context, workerID string, statuses []model.Status, from, to time.Time) ([]*model.Booking, error) {
			if workerID != "worker-1" {
				t.Errorf("expected worker-1, got %s", workerID)
			}
			gotFrom, gotTo = from, to
			gotStatuses = statuses
			return nil, nil
		},
	}

	checker := NewConflictChecker(finder, 480)
	if _, err := checker.FindConflict(context.Background(), "worker-1", windowStart, windowEnd, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantFrom := windowStart.Add(-480 * time.Minute)
	if !gotFrom.Equal(wantFrom) {
		t.Errorf("expected scan from %v, got %v", wantFrom, gotFrom)
	}
	if !gotTo.Equal(windowEnd) {
		t.Errorf("expected scan to %v, got %v", windowEnd, gotTo)
	}
	if len(gotStatuses) != 2 || gotStatuses[0] != model.StatusConfirmed || gotStatuses[1] != model.StatusInProgress {
		t.Errorf("expected confirmed and in-progress statuses, got %v", gotStatuses)
	}
}
