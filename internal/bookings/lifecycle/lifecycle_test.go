package lifecycle

import (
	"testing"
	"time"

	apperrors "housecall/pkg/errors"
	"housecall/pkg/model"
)

func testBooking(status model.Status, workerID string) *model.Booking {
	return &model.Booking{
		ID:                   "665f1f77bcf86cd799439011",
		CustomerID:           "customer-1",
		ServiceID:            "665f1f77bcf86cd799439022",
		WorkerID:             workerID,
		Status:               status,
		ScheduledDate:        time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC),
		EstimatedDurationMin: 60,
		Version:              3,
	}
}

func TestTransition_EdgeMatrix(t *testing.T) {
	statuses := []model.Status{
		model.StatusPending,
		model.StatusConfirmed,
		model.StatusInProgress,
		model.StatusCompleted,
		model.StatusCancelled,
	}

	allowed := map[Edge]bool{
		{model.StatusPending, model.StatusConfirmed}:    true,
		{model.StatusPending, model.StatusCancelled}:    true,
		{model.StatusConfirmed, model.StatusInProgress}: true,
		{model.StatusConfirmed, model.StatusCancelled}:  true,
		{model.StatusInProgress, model.StatusCompleted}: true,
	}

	m := New(nil)
	for _, from := range statuses {
		for _, to := range statuses {
			workerID := ""
			if from != model.StatusPending {
				workerID = "worker-1"
			}
			b := testBooking(from, workerID)
			_, err := m.Transition(b, Request{
				Target:   to,
				Actor:    model.RoleAdmin,
				WorkerID: "worker-1",
				Reason:   "customer request",
				Now:      time.Now(),
			})

			if allowed[Edge{from, to}] {
				if err != nil {
					t.Errorf("%s -> %s: expected success, got %v", from, to, err)
				}
				continue
			}
			if !apperrors.IsCode(err, apperrors.CodeInvalidTransition) {
				t.Errorf("%s -> %s: expected INVALID_TRANSITION, got %v", from, to, err)
			}
		}
	}
}

func TestTransition_ConfirmSetsWorkerAndBumpsVersion(t *testing.T) {
	m := New(nil)
	b := testBooking(model.StatusPending, "")
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	next, err := m.Transition(b, Request{
		Target:   model.StatusConfirmed,
		Actor:    model.RoleAdmin,
		WorkerID: "worker-7",
		Now:      now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if next.Status != model.StatusConfirmed {
		t.Errorf("expected status confirmed, got %s", next.Status)
	}
	if next.WorkerID != "worker-7" {
		t.Errorf("expected worker-7 assigned, got %q", next.WorkerID)
	}
	if next.Version != b.Version+1 {
		t.Errorf("expected version %d, got %d", b.Version+1, next.Version)
	}
	if !next.UpdatedAt.Equal(now) {
		t.Errorf("expected UpdatedAt %v, got %v", now, next.UpdatedAt)
	}
	if b.Status != model.StatusPending || b.WorkerID != "" || b.Version != 3 {
		t.Error("input booking must not be mutated")
	}
}

func TestTransition_ConfirmRequiresWorkerID(t *testing.T) {
	m := New(nil)
	b := testBooking(model.StatusPending, "")

	_, err := m.Transition(b, Request{
		Target: model.StatusConfirmed,
		Actor:  model.RoleAdmin,
		Now:    time.Now(),
	})
	if !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestTransition_CancelConfirmedClearsWorker(t *testing.T) {
	m := New(nil)
	b := testBooking(model.StatusConfirmed, "worker-7")

	next, err := m.Transition(b, Request{
		Target: model.StatusCancelled,
		Actor:  model.RoleCustomer,
		Reason: "found another provider",
		Now:    time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if next.WorkerID != "" {
		t.Errorf("worker must be cleared on cancellation, got %q", next.WorkerID)
	}
	if next.CancelReason != "found another provider" {
		t.Errorf("expected cancel reason recorded, got %q", next.CancelReason)
	}
}

func TestTransition_CancelConfirmedRequiresReason(t *testing.T) {
	m := New(nil)
	b := testBooking(model.StatusConfirmed, "worker-7")

	_, err := m.Transition(b, Request{
		Target: model.StatusCancelled,
		Actor:  model.RoleCustomer,
		Now:    time.Now(),
	})
	if !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestTransition_CancelPendingReasonOptional(t *testing.T) {
	m := New(nil)
	b := testBooking(model.StatusPending, "")

	next, err := m.Transition(b, Request{
		Target: model.StatusCancelled,
		Actor:  model.RoleCustomer,
		Now:    time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.CancelReason != "" {
		t.Errorf("expected empty cancel reason, got %q", next.CancelReason)
	}
}

func TestTransition_RolePolicy(t *testing.T) {
	tests := []struct {
		name    string
		from    model.Status
		to      model.Status
		actor   model.Role
		actorID string
		wantErr string
	}{
		{
			name:    "customer cannot confirm",
			from:    model.StatusPending,
			to:      model.StatusConfirmed,
			actor:   model.RoleCustomer,
			wantErr: apperrors.CodeUnauthorized,
		},
		{
			name:    "worker cannot cancel confirmed",
			from:    model.StatusConfirmed,
			to:      model.StatusCancelled,
			actor:   model.RoleWorker,
			actorID: "worker-7",
			wantErr: apperrors.CodeUnauthorized,
		},
		{
			name:    "customer cannot start work",
			from:    model.StatusConfirmed,
			to:      model.StatusInProgress,
			actor:   model.RoleCustomer,
			wantErr: apperrors.CodeUnauthorized,
		},
		{
			name:    "assigned worker starts work",
			from:    model.StatusConfirmed,
			to:      model.StatusInProgress,
			actor:   model.RoleWorker,
			actorID: "worker-7",
		},
		{
			name:    "other worker cannot start work",
			from:    model.StatusConfirmed,
			to:      model.StatusInProgress,
			actor:   model.RoleWorker,
			actorID: "worker-9",
			wantErr: apperrors.CodeUnauthorized,
		},
		{
			name:    "assigned worker completes",
			from:    model.StatusInProgress,
			to:      model.StatusCompleted,
			actor:   model.RoleWorker,
			actorID: "worker-7",
		},
		{
			name:    "other worker cannot complete",
			from:    model.StatusInProgress,
			to:      model.StatusCompleted,
			actor:   model.RoleWorker,
			actorID: "worker-9",
			wantErr: apperrors.CodeUnauthorized,
		},
		{
			name:  "admin completes on behalf",
			from:  model.StatusInProgress,
			to:    model.StatusCompleted,
			actor: model.RoleAdmin,
		},
	}

	m := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBooking(tt.from, "worker-7")
			_, err := m.Transition(b, Request{
				Target:   tt.to,
				Actor:    tt.actor,
				ActorID:  tt.actorID,
				WorkerID: "worker-7",
				Reason:   "changed plans",
				Now:      time.Now(),
			})

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !apperrors.IsCode(err, tt.wantErr) {
				t.Fatalf("expected %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTransition_WorkerSelfAccept(t *testing.T) {
	m := New(nil)
	b := testBooking(model.StatusPending, "")

	if _, err := m.Transition(b, Request{
		Target:   model.StatusConfirmed,
		Actor:    model.RoleWorker,
		ActorID:  "worker-7",
		WorkerID: "worker-7",
		Now:      time.Now(),
	}); err != nil {
		t.Fatalf("self-accept should succeed: %v", err)
	}

	_, err := m.Transition(b, Request{
		Target:   model.StatusConfirmed,
		Actor:    model.RoleWorker,
		ActorID:  "worker-9",
		WorkerID: "worker-7",
		Now:      time.Now(),
	})
	if !apperrors.IsCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED for accepting on behalf of another worker, got %v", err)
	}
}

func TestTransition_RejectsUnknownInput(t *testing.T) {
	m := New(nil)
	b := testBooking(model.StatusPending, "")

	if _, err := m.Transition(b, Request{
		Target: model.Status("archived"),
		Actor:  model.RoleAdmin,
		Now:    time.Now(),
	}); !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for unknown status, got %v", err)
	}

	if _, err := m.Transition(b, Request{
		Target: model.StatusCancelled,
		Actor:  model.Role("robot"),
		Now:    time.Now(),
	}); !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for unknown role, got %v", err)
	}
}

func TestTransition_TerminalStatusesRejectCustomEdges(t *testing.T) {
	// Even a policy that grants an edge out of a terminal status must not
	// bring a completed or cancelled booking back to life.
	m := New(Policy{
		{From: model.StatusCompleted, To: model.StatusPending}: {model.RoleAdmin},
	})

	for _, status := range []model.Status{model.StatusCompleted, model.StatusCancelled} {
		b := testBooking(status, "")
		_, err := m.Transition(b, Request{
			Target: model.StatusPending,
			Actor:  model.RoleAdmin,
			Now:    time.Now(),
		})
		if !apperrors.IsCode(err, apperrors.CodeInvalidTransition) {
			t.Errorf("expected INVALID_TRANSITION from %s, got %v", status, err)
		}
	}
}

func TestPolicy_Allows(t *testing.T) {
	p := DefaultPolicy()

	if !p.Allows(model.StatusPending, model.StatusConfirmed) {
		t.Error("pending -> confirmed must be allowed")
	}
	if p.Allows(model.StatusCompleted, model.StatusPending) {
		t.Error("terminal states must have no outgoing edges")
	}
	if p.Allows(model.StatusCancelled, model.StatusConfirmed) {
		t.Error("terminal states must have no outgoing edges")
	}
	if p.Allows(model.StatusPending, model.StatusInProgress) {
		t.Error("pending -> in-progress must not skip confirmation")
	}
}
