package storage

import (
	"context"
	"time"

	"github.com/callslot/callslot/libs/db"
	"github.com/callslot/callslot/services/availability-service/internal/availability"
)

type SchedulingRepository struct {
	pool *db.Pool
}

func NewSchedulingRepository(pool *db.Pool) *SchedulingRepository {
	return &SchedulingRepository{pool: pool}
}

// FindBookingsInRange lists the user's schedulings starting in [from, to), earliest first.
func (r *SchedulingRepository) FindBookingsInRange(ctx context.Context, userID string, from, to time.Time) ([]availability.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, user_id::text, date
		FROM schedulings
		WHERE user_id = $1 AND date >= $2 AND date < $3
		ORDER BY date
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Booking
	for rows.Next() {
		var b availability.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.Date); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
