package enums

import "fmt"

// UserRole distinguishes the actors the API serves.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleDriver   UserRole = "driver"
	UserRoleAdmin    UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleDriver,
	UserRoleAdmin,
}

// IsValid checks whether the given role matches the canonical enum.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw strings into UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
