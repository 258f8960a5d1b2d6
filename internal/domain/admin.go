package domain

import "time"

// AdminRole enumerates operator permission levels.
type AdminRole string

const (
	RoleSuperAdmin AdminRole = "super_admin"
	RoleAdmin      AdminRole = "admin"
)

// ValidAdminRole reports whether v is a known role.
func ValidAdminRole(v string) bool {
	return v == string(RoleSuperAdmin) || v == string(RoleAdmin)
}

// Admin is an operator account.
type Admin struct {
	ID           string
	Username     string
	PasswordHash string
	Role         AdminRole
	CreatedAt    time.Time
}
