package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleDirecteur  UserRole = "DIRECTEUR"
	RoleEnseignant UserRole = "ENSEIGNANT"
	RoleSecretaire UserRole = "SECRETAIRE"
	RoleComptable  UserRole = "COMPTABLE"
)

// SystemScope reports whether the role operates across all schools.
// Every other role is bound to exactly one school.
func (r UserRole) SystemScope() bool {
	return r == RoleAdmin
}

// User represents an application user stored in the users table.
// SchoolID is nil only for system-scope roles.
type User struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	Phone        string     `db:"phone" json:"phone"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	SchoolID     *string    `db:"school_id" json:"school_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Visible is the single visibility predicate for user records: an admin
// sees everyone, a directeur sees users of their own school, everyone
// else sees only themselves. List queries derive their school filter
// from the same rule so the two can never drift apart.
func Visible(actor *JWTClaims, target *User) bool {
	if actor == nil || target == nil {
		return false
	}
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleDirecteur:
		return actor.SchoolID != nil && target.SchoolID != nil && *actor.SchoolID == *target.SchoolID
	default:
		return actor.UserID == target.ID
	}
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	SchoolID  string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
