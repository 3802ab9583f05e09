// Package cache puts Redis in front of the user directory and the weekly availability store.
// Bookings are never cached. Redis failures fall through to the wrapped store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/callslot/callslot/services/availability-service/internal/availability"
	"github.com/callslot/callslot/services/availability-service/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 5 * time.Minute
	keyPrefix  = "avail:"
)

func UserKey(handle string) string {
	return keyPrefix + "user:" + handle
}

func IntervalKey(userID string, weekDay int) string {
	return keyPrefix + "interval:" + userID + ":" + strconv.Itoa(weekDay)
}

// entry wraps a cached value. Found=false records a known absence.
type entry[T any] struct {
	Found bool `json:"found"`
	Value T    `json:"value,omitempty"`
}

type store struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	name   string
}

func newStore(client *redis.Client, ttl time.Duration, logger *slog.Logger, name string) store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return store{client: client, ttl: ttl, logger: logger, name: name}
}

func getEntry[T any](ctx context.Context, s store, key string) (entry[T], bool) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("cache read failed", "cache", s.name, "key", key, "err", err)
			metrics.IncCacheLookup(s.name, "error")
		} else {
			metrics.IncCacheLookup(s.name, "miss")
		}
		return entry[T]{}, false
	}
	var e entry[T]
	if err := json.Unmarshal(raw, &e); err != nil {
		s.logger.Warn("cache entry corrupt", "cache", s.name, "key", key, "err", err)
		metrics.IncCacheLookup(s.name, "error")
		return entry[T]{}, false
	}
	metrics.IncCacheLookup(s.name, "hit")
	return e, true
}

func setEntry[T any](ctx context.Context, s store, key string, e entry[T]) {
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("cache write failed", "cache", s.name, "key", key, "err", err)
	}
}

func (s store) del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Users caches handle lookups, including unknown handles.
type Users struct {
	next  availability.UserDirectory
	store store
}

func NewUsers(next availability.UserDirectory, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Users {
	return &Users{next: next, store: newStore(client, ttl, logger, "user")}
}

func (c *Users) FindByHandle(ctx context.Context, handle string) (availability.User, bool, error) {
	key := UserKey(handle)
	if e, ok := getEntry[availability.User](ctx, c.store, key); ok {
		return e.Value, e.Found, nil
	}

	u, found, err := c.next.FindByHandle(ctx, handle)
	if err != nil {
		return availability.User{}, false, err
	}
	setEntry(ctx, c.store, key, entry[availability.User]{Found: found, Value: u})
	return u, found, nil
}

func (c *Users) Invalidate(ctx context.Context, handle string) error {
	return c.store.del(ctx, UserKey(handle))
}

// Intervals caches weekly windows per user and weekday.
type Intervals struct {
	next  availability.WeeklyAvailabilityStore
	store store
}

func NewIntervals(next availability.WeeklyAvailabilityStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Intervals {
	return &Intervals{next: next, store: newStore(client, ttl, logger, "interval")}
}

func (c *Intervals) FindWeeklyInterval(ctx context.Context, userID string, weekDay int) (availability.WeeklyInterval, bool, error) {
	key := IntervalKey(userID, weekDay)
	if e, ok := getEntry[availability.WeeklyInterval](ctx, c.store, key); ok {
		return e.Value, e.Found, nil
	}

	iv, found, err := c.next.FindWeeklyInterval(ctx, userID, weekDay)
	if err != nil {
		return availability.WeeklyInterval{}, false, err
	}
	setEntry(ctx, c.store, key, entry[availability.WeeklyInterval]{Found: found, Value: iv})
	return iv, found, nil
}

// Invalidate evicts one weekday, or all seven when weekDay is nil.
func (c *Intervals) Invalidate(ctx context.Context, userID string, weekDay *int) error {
	if weekDay != nil {
		return c.store.del(ctx, IntervalKey(userID, *weekDay))
	}
	keys := make([]string, 0, 7)
	for d := 0; d < 7; d++ {
		keys = append(keys, IntervalKey(userID, d))
	}
	return c.store.del(ctx, keys...)
}

// Invalidator adapts both caches to change-event eviction.
type Invalidator struct {
	Users     *Users
	Intervals *Intervals
}

func (i Invalidator) InvalidateUser(ctx context.Context, handle string) error {
	if i.Users == nil {
		return nil
	}
	return i.Users.Invalidate(ctx, handle)
}

func (i Invalidator) InvalidateIntervals(ctx context.Context, userID string, weekDay *int) error {
	if i.Intervals == nil {
		return nil
	}
	return i.Intervals.Invalidate(ctx, userID, weekDay)
}
