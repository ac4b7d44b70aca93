package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/orderflow/internal/domain/address"
	"github.com/xenking/orderflow/internal/domain/user"
)

const (
	getUserByIDSQL = `SELECT id, email, name, role FROM users WHERE id = $1`

	getAddressByIDSQL = `SELECT id, user_id, street, city, state, country, zip, is_default
		FROM addresses WHERE id = $1`
)

var (
	_ user.Repository    = (*UserRepository)(nil)
	_ address.Repository = (*AddressRepository)(nil)
)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	q querier
}

// GetByID returns the user or nil when it does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	rows, err := r.q.Query(ctx, getUserByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get user %q", id)
	}

	u, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (user.User, error) {
		var (
			u    user.User
			role string
		)
		err := row.Scan(&u.ID, &u.Email, &u.Name, &role)
		u.Role = user.Role(role)
		return u, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get user %q", id)
	}
	return &u, nil
}

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	q querier
}

// GetByID returns the address or nil when it does not exist.
func (r *AddressRepository) GetByID(ctx context.Context, id string) (*address.Address, error) {
	rows, err := r.q.Query(ctx, getAddressByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get address %q", id)
	}

	a, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[address.Address])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get address %q", id)
	}
	return &a, nil
}
