package model

import "time"

// Role is an account's privilege tier.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Satisfies reports whether r is a member of the required role set. It is the
// single authorization predicate shared by the login role gate and the HTTP
// middleware, so the two paths cannot drift apart.
func (r Role) Satisfies(required ...Role) bool {
	for _, want := range required {
		if r == want {
			return true
		}
	}
	return false
}

// Account represents a registered identity. Passwords are stored as bcrypt
// hashes and never serialized.
type Account struct {
	ID            string     `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Email         string     `json:"email" db:"email"`
	PasswordHash  string     `json:"-" db:"password_hash"` // bcrypt hash, never expose
	Role          Role       `json:"role" db:"role"`
	RequestedRole Role       `json:"requestedRole" db:"requested_role"`
	IsApproved    bool       `json:"isApproved" db:"is_approved"`
	ApprovedBy    *string    `json:"approvedBy,omitempty" db:"approved_by"`
	ApprovedAt    *time.Time `json:"approvedAt,omitempty" db:"approved_at"`
	IsActive      bool       `json:"isActive" db:"is_active"`
	RejectedAt    *time.Time `json:"rejectedAt,omitempty" db:"rejected_at"`
	LastLogin     *time.Time `json:"lastLogin,omitempty" db:"last_login"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
}

// PendingAdmin reports whether the account has an unresolved admin
// elevation request. A soft-rejected account is no longer pending.
func (a *Account) PendingAdmin() bool {
	return a.RequestedRole == RoleAdmin && !a.IsApproved && a.RejectedAt == nil
}

// ApproverRef identifies the account that resolved an elevation request.
type ApproverRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
