package storage

import (
	"context"
	"errors"

	"github.com/callslot/callslot/libs/db"
	"github.com/callslot/callslot/services/availability-service/internal/availability"
	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByHandle(ctx context.Context, handle string) (availability.User, bool, error) {
	var u availability.User
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, username, name
		FROM users
		WHERE username = $1
	`, handle).Scan(&u.ID, &u.Username, &u.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return availability.User{}, false, nil
		}
		return availability.User{}, false, err
	}
	return u, true, nil
}
