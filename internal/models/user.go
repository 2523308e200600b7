package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSupervisor    UserRole = "SUPERVISOR"
	RoleLead          UserRole = "LEAD"
	RoleDataProcessor UserRole = "DATA_PROCESSOR"
)

// Valid reports whether the role is one of the three workflow roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSupervisor, RoleLead, RoleDataProcessor:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
// MSNV is the optional employee identifier carried from the HR directory.
type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	MSNV         *string    `db:"msnv" json:"msnv,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// LeadOption is a slim projection used to populate the designated-lead selector.
type LeadOption struct {
	ID       string  `db:"id" json:"id"`
	Username string  `db:"username" json:"username"`
	MSNV     *string `db:"msnv" json:"msnv,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
