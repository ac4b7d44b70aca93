package user

import (
	"context"
)

// Role is the authorization role carried by an authenticated actor.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// User is an account that can place orders or sell products.
type User struct {
	ID    string
	Email string
	Name  string
	Role  Role
}

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsSeller reports whether the actor has the seller role.
func (a Actor) IsSeller() bool { return a.Role == RoleSeller }

// Repository reads user accounts. GetByID returns nil, nil when no user exists.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
