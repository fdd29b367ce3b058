package enums

import "slices"

// UserRole is the closed set of caller roles.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
	UserRoleDelivery UserRole = "delivery"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleAdmin,
	UserRoleDelivery,
}

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	return slices.Contains(validUserRoles, r)
}

func ParseUserRole(value string) (UserRole, error) {
	return parse(validUserRoles, value, "user role")
}
