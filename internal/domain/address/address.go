package address

import "context"

// Address is a shipping address owned by one user.
type Address struct {
	ID        string
	UserID    string
	Street    string
	City      string
	State     string
	Country   string
	Zip       string
	IsDefault bool
}

// BelongsTo reports whether the address is owned by userID.
func (a *Address) BelongsTo(userID string) bool {
	return a != nil && a.UserID == userID
}

// Repository reads addresses. GetByID returns nil, nil when no address exists.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Address, error)
}
