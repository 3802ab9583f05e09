package availability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	cases := []struct {
		name          string
		username      string
		date          string
		offset        string
		requireOffset bool
		wantErr       error
		wantMessage   string
		wantOffset    *int
	}{
		{name: "server mode", username: "alice", date: "2026-01-28"},
		{name: "client mode", username: "alice", date: "2026-01-28", offset: "-180", wantOffset: intPtr(-180)},
		{name: "zero offset is client mode", username: "alice", date: "2026-01-28", offset: "0", wantOffset: intPtr(0)},
		{name: "timestamp uses its own date", username: "alice", date: "2026-01-28T23:30:00-03:00"},
		{name: "missing username", username: " ", date: "2026-01-28", wantErr: ErrMissingParameter, wantMessage: "username not provided"},
		{name: "missing date", username: "alice", wantErr: ErrMissingParameter, wantMessage: "date not provided"},
		{name: "unparseable date", username: "alice", date: "28/01/2026", wantErr: ErrInvalidDate, wantMessage: "invalid date"},
		{name: "impossible date", username: "alice", date: "2026-02-30", wantErr: ErrInvalidDate},
		{name: "non numeric offset", username: "alice", date: "2026-01-28", offset: "abc", wantErr: ErrInvalidParameter, wantMessage: "invalid timezoneOffset"},
		{name: "offset out of range", username: "alice", date: "2026-01-28", offset: "900", wantErr: ErrInvalidParameter},
		{name: "required offset missing", username: "alice", date: "2026-01-28", requireOffset: true, wantErr: ErrMissingParameter, wantMessage: "timezoneOffset not provided"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := ParseQuery(tc.username, tc.date, tc.offset, tc.requireOffset)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				var pe *ParamError
				require.True(t, errors.As(err, &pe))
				if tc.wantMessage != "" {
					assert.Equal(t, tc.wantMessage, err.Error())
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice", q.Username)
			assert.Equal(t, "2026-01-28", q.Date.Format(DateLayout))
			assert.Equal(t, tc.wantOffset, q.TimezoneOffset)
			if tc.wantOffset == nil {
				assert.Equal(t, ModeServer, q.Mode())
			} else {
				assert.Equal(t, ModeClient, q.Mode())
			}
		})
	}
}

func TestQueryFrame(t *testing.T) {
	q, err := ParseQuery("alice", "2026-01-28", "330", false)
	require.NoError(t, err)
	_, offset := q.Date.In(q.Frame(nil)).Zone()
	assert.Equal(t, 330*60, offset)
}

func intPtr(v int) *int { return &v }
