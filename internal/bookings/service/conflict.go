package service

import (
	"context"
	"time"

	"housecall/pkg/model"
)

// workerWindowFinder is the slice of the repository the conflict checker needs.
type workerWindowFinder interface {
	FindByWorkerInWindow(ctx context.Context, workerID string, statuses []model.Status, from, to time.Time) ([]*model.Booking, error)
}

// ConflictChecker detects overlapping occupancy windows for a worker.
// Only confirmed and in-progress bookings occupy a worker's schedule;
// pending, completed and cancelled bookings never conflict.
type ConflictChecker struct {
	repo        workerWindowFinder
	maxDuration time.Duration
}

func NewConflictChecker(repo workerWindowFinder, maxDurationMin int) *ConflictChecker {
	return &ConflictChecker{
		repo:        repo,
		maxDuration: time.Duration(maxDurationMin) * time.Minute,
	}
}

// FindConflict returns the first booking whose window overlaps
// [windowStart, windowEnd), or nil when the worker is free. Windows are
// half-open so a booking ending exactly when another starts does not conflict.
// excludeBookingID skips the booking being modified, so a reschedule never
// conflicts with itself.
func (c *ConflictChecker) FindConflict(ctx context.Context, workerID string, windowStart, windowEnd time.Time, excludeBookingID string) (*model.Booking, error) {
	// Any booking starting before windowStart - maxDuration has necessarily
	// ended by windowStart, so the query scan is bounded on both sides.
	from := windowStart.Add(-c.maxDuration)
	occupying := []model.Status{model.StatusConfirmed, model.StatusInProgress}

	candidates, err := c.repo.FindByWorkerInWindow(ctx, workerID, occupying, from, windowEnd)
	if err != nil {
		return nil, err
	}

	for _, existing := range candidates {
		if existing.ID == excludeBookingID {
			continue
		}
		if existing.WindowStart().Before(windowEnd) && windowStart.Before(existing.WindowEnd()) {
			return existing, nil
		}
	}

	return nil, nil
}
