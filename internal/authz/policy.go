// Package authz holds the pure authorization predicates for ticket
// operations. Predicates take actor and ticket snapshots and perform
// no I/O.
package authz

import "github.com/spec-kit/trackdesk/internal/domain"

// CanForward reports whether actor may hand the ticket off to someone else.
func CanForward(actor *domain.User, ticket *domain.Ticket) bool {
	if actor == nil || ticket == nil {
		return false
	}
	if actor.Role == domain.RoleAdmin {
		return true
	}
	if actor.Role == domain.RoleDepartmentHead && actor.InDepartment(ticket.DepartmentID) {
		return true
	}
	if actor.ID == ticket.CreatedBy {
		return true
	}
	if actor.ID == ticket.CurrentHandlerID {
		return true
	}
	return ticket.AssignedTo != nil && actor.ID == *ticket.AssignedTo
}

// CanUpdate reports whether actor may edit ticket fields directly. This is
// looser than CanForward: any member of the ticket's department qualifies.
func CanUpdate(actor *domain.User, ticket *domain.Ticket) bool {
	if actor == nil || ticket == nil {
		return false
	}
	if actor.Role == domain.RoleAdmin {
		return true
	}
	if actor.InDepartment(ticket.DepartmentID) {
		return true
	}
	if actor.ID == ticket.CurrentHandlerID {
		return true
	}
	return ticket.AssignedTo != nil && actor.ID == *ticket.AssignedTo
}

// CanDelete reports whether actor may delete the ticket.
func CanDelete(actor *domain.User, ticket *domain.Ticket) bool {
	if actor == nil || ticket == nil {
		return false
	}
	if actor.Role == domain.RoleAdmin {
		return true
	}
	if actor.ID == ticket.CreatedBy {
		return true
	}
	return actor.Role == domain.RoleDepartmentHead && actor.InDepartment(ticket.DepartmentID)
}

// CanCreateIn reports whether actor may create a ticket in the department.
func CanCreateIn(actor *domain.User, departmentID string) bool {
	if actor == nil {
		return false
	}
	if actor.Role == domain.RoleAdmin {
		return true
	}
	return actor.InDepartment(departmentID)
}
