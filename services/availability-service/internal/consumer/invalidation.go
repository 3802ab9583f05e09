package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/callslot/callslot/libs/kafkax"
	"github.com/callslot/callslot/services/availability-service/internal/metrics"
	"github.com/segmentio/kafka-go"
)

const (
	TopicIntervalsUpdated = "users.time_intervals.updated.v1"
	TopicProfileUpdated   = "users.profile.updated.v1"
)

// Invalidator evicts cached reads made stale by a change event.
type Invalidator interface {
	InvalidateUser(ctx context.Context, handle string) error
	InvalidateIntervals(ctx context.Context, userID string, weekDay *int) error
}

type changeEvent struct {
	UserID           string `json:"user_id"`
	Username         string `json:"username"`
	PreviousUsername string `json:"previous_username"`
	WeekDay          *int   `json:"week_day"`
}

// InvalidationHandler routes change events by event type to cache evictions. Malformed and
// unknown events are logged and dropped.
func InvalidationHandler(inv Invalidator, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		meta := kafkax.ExtractEventMeta(msg)

		var evt changeEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Warn("malformed change event skipped", "event_id", meta.EventID, "event_type", meta.EventType, "err", err)
			return nil
		}

		switch meta.EventType {
		case TopicIntervalsUpdated:
			if evt.UserID == "" {
				logger.Warn("interval event without user_id skipped", "event_id", meta.EventID)
				return nil
			}
			if evt.WeekDay != nil && (*evt.WeekDay < 0 || *evt.WeekDay > 6) {
				evt.WeekDay = nil
			}
			if err := inv.InvalidateIntervals(ctx, evt.UserID, evt.WeekDay); err != nil {
				return fmt.Errorf("invalidate intervals for %s: %w", evt.UserID, err)
			}
		case TopicProfileUpdated:
			if evt.Username == "" && evt.PreviousUsername == "" {
				logger.Warn("profile event without username skipped", "event_id", meta.EventID)
				return nil
			}
			for _, handle := range []string{evt.Username, evt.PreviousUsername} {
				if handle == "" {
					continue
				}
				if err := inv.InvalidateUser(ctx, handle); err != nil {
					return fmt.Errorf("invalidate user %s: %w", handle, err)
				}
			}
		default:
			logger.Debug("event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
			return nil
		}

		metrics.IncInvalidation(meta.EventType)
		logger.Info("cache invalidated", "event_id", meta.EventID, "event_type", meta.EventType, "user_id", evt.UserID)
		return nil
	}
}
