// Package lifecycle implements the booking state machine as a pure function
// over a booking snapshot. It performs no I/O; the service layer loads the
// booking, runs a transition and persists the result with a conditional write.
package lifecycle

import (
	"time"

	apperrors "housecall/pkg/errors"
	"housecall/pkg/model"
)

// Request describes a single requested transition.
type Request struct {
	Target model.Status

	// Actor is the role requesting the transition. ActorID identifies the
	// caller and is matched against the assigned worker for worker-gated edges.
	Actor   model.Role
	ActorID string

	// WorkerID is the worker being assigned. Only meaningful on the
	// pending -> confirmed edge, where assignment happens atomically.
	WorkerID string

	// Reason is mandatory when cancelling a confirmed booking.
	Reason string

	Now time.Time
}

// Machine validates and applies lifecycle transitions.
type Machine struct {
	policy Policy
}

func New(policy Policy) *Machine {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Machine{policy: policy}
}

// Transition returns a mutated copy of b with the target status applied,
// version incremented and the worker assignment invariant maintained:
// a worker is set exactly while the booking is confirmed, in progress or
// completed. The input booking is never modified.
func (m *Machine) Transition(b *model.Booking, req Request) (*model.Booking, error) {
	if !req.Target.IsValid() {
		return nil, apperrors.InvalidField("status", "unknown booking status")
	}
	if !req.Actor.IsValid() {
		return nil, apperrors.InvalidField("actor_role", "unknown actor role")
	}

	// Terminal statuses have no outgoing edges, regardless of policy.
	if b.Status.IsTerminal() {
		return nil, apperrors.InvalidTransition(string(b.Status), string(req.Target))
	}

	edge := Edge{From: b.Status, To: req.Target}
	if !m.policy.Allows(edge.From, edge.To) {
		return nil, apperrors.InvalidTransition(string(edge.From), string(edge.To))
	}
	if !m.policy.roleAllowed(edge, req.Actor) {
		return nil, apperrors.Unauthorized("role is not allowed to perform this transition")
	}

	if err := m.checkActorBinding(b, edge, req); err != nil {
		return nil, err
	}
	if err := checkEdgeInput(edge, req); err != nil {
		return nil, err
	}

	next := b.Clone()
	next.Status = req.Target
	next.Version = b.Version + 1
	next.UpdatedAt = req.Now

	switch {
	case edge.To == model.StatusConfirmed:
		next.WorkerID = req.WorkerID
	case edge.To == model.StatusCancelled:
		next.WorkerID = ""
		next.CancelReason = req.Reason
	}

	return next, nil
}

// checkActorBinding enforces that worker-role callers only act on their own
// assignments. Admins are exempt.
func (m *Machine) checkActorBinding(b *model.Booking, edge Edge, req Request) error {
	if req.Actor != model.RoleWorker {
		return nil
	}

	switch edge.To {
	case model.StatusConfirmed:
		// A worker may only accept a booking for themselves.
		if req.ActorID != req.WorkerID {
			return apperrors.Unauthorized("workers can only accept bookings for themselves")
		}
	case model.StatusInProgress, model.StatusCompleted:
		if req.ActorID == "" || req.ActorID != b.WorkerID {
			return apperrors.Unauthorized("only the assigned worker can perform this transition")
		}
	}
	return nil
}

func checkEdgeInput(edge Edge, req Request) error {
	if edge.To == model.StatusConfirmed && req.WorkerID == "" {
		return apperrors.InvalidField("worker_id", "worker_id is required to confirm a booking")
	}
	if edge.From == model.StatusConfirmed && edge.To == model.StatusCancelled && req.Reason == "" {
		return apperrors.InvalidField("reason", "a reason is required to cancel a confirmed booking")
	}
	return nil
}
