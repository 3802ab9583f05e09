package storage

import (
	"context"
	"errors"

	"github.com/callslot/callslot/libs/db"
	"github.com/callslot/callslot/services/availability-service/internal/availability"
	"github.com/jackc/pgx/v5"
)

type IntervalRepository struct {
	pool *db.Pool
}

func NewIntervalRepository(pool *db.Pool) *IntervalRepository {
	return &IntervalRepository{pool: pool}
}

// FindWeeklyInterval returns the user's window for weekDay. Duplicate rows resolve to the
// lowest id.
func (r *IntervalRepository) FindWeeklyInterval(ctx context.Context, userID string, weekDay int) (availability.WeeklyInterval, bool, error) {
	var iv availability.WeeklyInterval
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id::text, week_day, time_start_in_minutes, time_end_in_minutes
		FROM user_time_intervals
		WHERE user_id = $1 AND week_day = $2
		ORDER BY id
		LIMIT 1
	`, userID, weekDay).Scan(&iv.ID, &iv.UserID, &iv.WeekDay, &iv.StartMinutes, &iv.EndMinutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return availability.WeeklyInterval{}, false, nil
		}
		return availability.WeeklyInterval{}, false, err
	}
	return iv, true, nil
}
