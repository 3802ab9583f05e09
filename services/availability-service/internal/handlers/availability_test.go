package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/callslot/callslot/services/availability-service/internal/availability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubComputer struct {
	res   availability.Result
	err   error
	query availability.Query
}

func (s *stubComputer) Compute(_ context.Context, q availability.Query) (availability.Result, error) {
	s.query = q
	return s.res, s.err
}

func newServer(c Computer, requireOffset bool) *http.ServeMux {
	mux := http.NewServeMux()
	NewAvailabilityHandler(c, slog.New(slog.NewJSONHandler(io.Discard, nil)), requireOffset).Register(mux)
	return mux
}

func do(t *testing.T, mux http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body=%s", rec.Body.String())
	return rec, body
}

func TestGet_Success(t *testing.T) {
	stub := &stubComputer{res: availability.Result{PossibleTimes: []int{9, 10, 11}, AvailabilityTimes: []int{10}}}
	rec, body := do(t, newServer(stub, false), http.MethodGet, "/api/v1/users/alice/availability?date=2026-01-28&timezoneOffset=-180")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, []any{9.0, 10.0, 11.0}, body["possibleTimes"])
	assert.Equal(t, []any{10.0}, body["availabilityTimes"])

	assert.Equal(t, "alice", stub.query.Username)
	require.NotNil(t, stub.query.TimezoneOffset)
	assert.Equal(t, -180, *stub.query.TimezoneOffset)
}

func TestGet_EmptyListsAreArrays(t *testing.T) {
	stub := &stubComputer{res: availability.Empty()}
	rec := httptest.NewRecorder()
	newServer(stub, false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/alice/availability?date=2026-01-28", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"possibleTimes":[],"availabilityTimes":[]}`, rec.Body.String())
}

func TestGet_ErrorMapping(t *testing.T) {
	cases := []struct {
		name          string
		method        string
		target        string
		requireOffset bool
		err           error
		wantStatus    int
		wantMessage   string
	}{
		{name: "method", method: http.MethodPost, target: "/api/v1/users/alice/availability?date=2026-01-28", wantStatus: http.StatusMethodNotAllowed, wantMessage: "method not allowed"},
		{name: "missing date", method: http.MethodGet, target: "/api/v1/users/alice/availability", wantStatus: http.StatusBadRequest, wantMessage: "date not provided"},
		{name: "invalid date", method: http.MethodGet, target: "/api/v1/users/alice/availability?date=tomorrow", wantStatus: http.StatusBadRequest, wantMessage: "invalid date"},
		{name: "invalid offset", method: http.MethodGet, target: "/api/v1/users/alice/availability?date=2026-01-28&timezoneOffset=x", wantStatus: http.StatusBadRequest, wantMessage: "invalid timezoneOffset"},
		{name: "required offset", method: http.MethodGet, target: "/api/v1/users/alice/availability?date=2026-01-28", requireOffset: true, wantStatus: http.StatusBadRequest, wantMessage: "timezoneOffset not provided"},
		{name: "unknown user", method: http.MethodGet, target: "/api/v1/users/ghost/availability?date=2026-01-28", err: availability.ErrUserNotFound, wantStatus: http.StatusBadRequest, wantMessage: "user does not exist"},
		{name: "upstream", method: http.MethodGet, target: "/api/v1/users/alice/availability?date=2026-01-28", err: fmt.Errorf("%w: find bookings: %w", availability.ErrUpstreamLookup, errors.New("pq: password authentication failed")), wantStatus: http.StatusServiceUnavailable, wantMessage: "availability temporarily unavailable"},
		{name: "unexpected", method: http.MethodGet, target: "/api/v1/users/alice/availability?date=2026-01-28", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantMessage: "internal error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := do(t, newServer(&stubComputer{err: tc.err}, tc.requireOffset), tc.method, tc.target)
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantMessage, body["message"])
			assert.NotContains(t, body, "possibleTimes")
		})
	}
}

type memUsers map[string]availability.User

func (m memUsers) FindByHandle(_ context.Context, handle string) (availability.User, bool, error) {
	u, ok := m[handle]
	return u, ok, nil
}

type memIntervals map[int]availability.WeeklyInterval

func (m memIntervals) FindWeeklyInterval(_ context.Context, _ string, weekDay int) (availability.WeeklyInterval, bool, error) {
	iv, ok := m[weekDay]
	return iv, ok, nil
}

type memBookings []availability.Booking

func (m memBookings) FindBookingsInRange(_ context.Context, _ string, from, to time.Time) ([]availability.Booking, error) {
	var out []availability.Booking
	for _, b := range m {
		if !b.Date.Before(from) && b.Date.Before(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func TestGet_WithEngine(t *testing.T) {
	now := time.Date(2026, 1, 27, 10, 0, 0, 0, time.UTC)
	engine := availability.NewEngine(
		memUsers{"alice": {ID: "u1", Username: "alice"}},
		memIntervals{3: {UserID: "u1", WeekDay: 3, StartMinutes: 540, EndMinutes: 1020}},
		memBookings{{ID: "b1", UserID: "u1", Date: time.Date(2026, 1, 28, 14, 0, 0, 0, time.UTC)}},
		availability.Options{Now: func() time.Time { return now }},
	)
	mux := newServer(engine, false)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/alice/availability?date=2026-01-28", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"possibleTimes":[9,10,11,12,13,14,15,16],"availabilityTimes":[9,10,11,12,13,15,16]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/alice/availability?date=2026-01-28&timezoneOffset=-180", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"possibleTimes":[9,10,11,12,13,14,15,16],"availabilityTimes":[9,10,12,13,14,15,16]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/alice/availability?date=2026-01-26", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"possibleTimes":[],"availabilityTimes":[]}`, rec.Body.String())
}
