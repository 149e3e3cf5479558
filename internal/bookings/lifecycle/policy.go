package lifecycle

import "housecall/pkg/model"

// Edge is a permitted (from, to) status pair.
type Edge struct {
	From model.Status
	To   model.Status
}

// Policy maps each permitted edge to the roles allowed to request it.
// The edge set is the lifecycle contract; the role sets are deployment policy
// and may be overridden when constructing the machine.
type Policy map[Edge][]model.Role

// DefaultPolicy returns the standard marketplace rules:
//
//	pending   -> confirmed    admin, worker (self-accept)
//	pending   -> cancelled    customer, admin
//	confirmed -> in-progress  assigned worker, admin
//	confirmed -> cancelled    customer, admin
//	in-progress -> completed  assigned worker, admin
func DefaultPolicy() Policy {
	return Policy{
		{model.StatusPending, model.StatusConfirmed}:    {model.RoleAdmin, model.RoleWorker},
		{model.StatusPending, model.StatusCancelled}:    {model.RoleCustomer, model.RoleAdmin},
		{model.StatusConfirmed, model.StatusInProgress}: {model.RoleWorker, model.RoleAdmin},
		{model.StatusConfirmed, model.StatusCancelled}:  {model.RoleCustomer, model.RoleAdmin},
		{model.StatusInProgress, model.StatusCompleted}: {model.RoleWorker, model.RoleAdmin},
	}
}

// Allows reports whether the edge itself is permitted, regardless of role.
func (p Policy) Allows(from, to model.Status) bool {
	_, ok := p[Edge{from, to}]
	return ok
}

func (p Policy) roleAllowed(edge Edge, role model.Role) bool {
	for _, r := range p[edge] {
		if r == role {
			return true
		}
	}
	return false
}
