package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/callslot/callslot/services/availability-service/internal/metrics"
	"github.com/callslot/callslot/services/availability-service/internal/slots"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type UserDirectory interface {
	FindByHandle(ctx context.Context, handle string) (User, bool, error)
}

type WeeklyAvailabilityStore interface {
	FindWeeklyInterval(ctx context.Context, userID string, weekDay int) (WeeklyInterval, bool, error)
}

type BookingStore interface {
	FindBookingsInRange(ctx context.Context, userID string, from, to time.Time) ([]Booking, error)
}

type Options struct {
	// Location is the server's wall clock. Defaults to UTC.
	Location *time.Location
	// StoreTimeout bounds each store lookup. Zero disables the bound.
	StoreTimeout time.Duration
	Now          func() time.Time
	Logger       *slog.Logger
}

type Engine struct {
	users     UserDirectory
	intervals WeeklyAvailabilityStore
	bookings  BookingStore

	loc          *time.Location
	storeTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

func NewEngine(users UserDirectory, intervals WeeklyAvailabilityStore, bookings BookingStore, opts Options) *Engine {
	e := &Engine{
		users:        users,
		intervals:    intervals,
		bookings:     bookings,
		loc:          opts.Location,
		storeTimeout: opts.StoreTimeout,
		now:          opts.Now,
		logger:       opts.Logger,
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

func (e *Engine) Location() *time.Location { return e.loc }

// Compute answers q against the current wall clock.
func (e *Engine) Compute(ctx context.Context, q Query) (Result, error) {
	return e.ComputeAt(ctx, q, e.now())
}

// ComputeAt answers q as if the current instant were now.
func (e *Engine) ComputeAt(ctx context.Context, q Query, now time.Time) (res Result, err error) {
	ctx, span := otel.Tracer("availability").Start(ctx, "availability.compute",
		trace.WithAttributes(
			attribute.String("user.handle", q.Username),
			attribute.String("availability.date", q.Date.Format(DateLayout)),
			attribute.String("availability.mode", q.Mode()),
		),
	)
	started := time.Now()
	defer func() {
		outcome := Outcome(err)
		metrics.ObserveCompute(q.Mode(), outcome, time.Since(started))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()

	user, err := e.findUser(ctx, q.Username)
	if err != nil {
		return Result{}, err
	}

	if slots.DayElapsed(q.Date, e.loc, now) {
		return Empty(), nil
	}

	weekDay := int(q.Date.Weekday())
	span.SetAttributes(attribute.Int("availability.weekday", weekDay))
	interval, ok, err := e.findInterval(ctx, user.ID, weekDay)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Empty(), nil
	}

	possible := slots.Generate(interval.StartMinutes, interval.EndMinutes)
	if len(possible) == 0 {
		return Empty(), nil
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	day := slots.NewDay(q.Date, q.Frame(e.loc))
	window := day.Window(possible[0], possible[len(possible)-1]+1)
	booked, err := e.findBookings(ctx, user.ID, window)
	if err != nil {
		return Result{}, err
	}

	res = Result{
		PossibleTimes:     possible,
		AvailabilityTimes: slots.Bookable(possible, day, booked, now),
	}
	span.SetAttributes(
		attribute.Int("availability.possible", len(res.PossibleTimes)),
		attribute.Int("availability.available", len(res.AvailabilityTimes)),
	)
	e.logger.Debug("availability computed",
		"user_id", user.ID,
		"date", q.Date.Format(DateLayout),
		"mode", q.Mode(),
		"bookings", len(booked),
		"possible", len(res.PossibleTimes),
		"available", len(res.AvailabilityTimes),
	)
	return res, nil
}

func (e *Engine) findUser(ctx context.Context, handle string) (User, error) {
	ctx, cancel := e.lookupContext(ctx)
	defer cancel()

	user, ok, err := e.users.FindByHandle(ctx, handle)
	if err != nil {
		return User{}, fmt.Errorf("%w: find user: %w", ErrUpstreamLookup, err)
	}
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (e *Engine) findInterval(ctx context.Context, userID string, weekDay int) (WeeklyInterval, bool, error) {
	ctx, cancel := e.lookupContext(ctx)
	defer cancel()

	interval, ok, err := e.intervals.FindWeeklyInterval(ctx, userID, weekDay)
	if err != nil {
		return WeeklyInterval{}, false, fmt.Errorf("%w: find interval: %w", ErrUpstreamLookup, err)
	}
	return interval, ok, nil
}

func (e *Engine) findBookings(ctx context.Context, userID string, window slots.Interval) ([]time.Time, error) {
	ctx, cancel := e.lookupContext(ctx)
	defer cancel()

	bookings, err := e.bookings.FindBookingsInRange(ctx, userID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("%w: find bookings: %w", ErrUpstreamLookup, err)
	}
	booked := make([]time.Time, 0, len(bookings))
	for _, b := range bookings {
		booked = append(booked, b.Date)
	}
	return booked, nil
}

func (e *Engine) lookupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.storeTimeout)
}

// Outcome classifies err into a low-cardinality label for logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrMissingParameter), errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidParameter):
		return "invalid_request"
	case errors.Is(err, ErrUpstreamLookup):
		return "upstream_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
