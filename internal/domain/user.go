package domain

import "time"

// Role enumerates operator roles.
type Role string

const (
	RoleEmployee       Role = "employee"
	RoleDepartmentHead Role = "department_head"
	RoleAdmin          Role = "admin"
)

// User is the domain model for everyone who acts on tickets.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	DepartmentID *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InDepartment reports whether the user belongs to the given department.
func (u *User) InDepartment(departmentID string) bool {
	return u.DepartmentID != nil && *u.DepartmentID == departmentID
}
