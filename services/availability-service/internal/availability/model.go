package availability

import "time"

// DateLayout is the calendar date format accepted on the wire.
const DateLayout = "2006-01-02"

// User is a bookable account, addressed publicly by its handle.
type User struct {
	ID       string
	Username string
	Name     string
}

// WeeklyInterval is a user's working window on one weekday, in minutes since local midnight.
// WeekDay follows time.Weekday: 0 is Sunday.
type WeeklyInterval struct {
	ID           int64
	UserID       string
	WeekDay      int
	StartMinutes int
	EndMinutes   int
}

// Booking is an existing scheduling. Date is the absolute start instant.
type Booking struct {
	ID     string
	UserID string
	Date   time.Time
}

// Result lists the nominal hours of the day and the subset still open for booking.
type Result struct {
	PossibleTimes     []int `json:"possibleTimes"`
	AvailabilityTimes []int `json:"availabilityTimes"`
}

// Empty is the result for days with nothing to offer.
func Empty() Result {
	return Result{PossibleTimes: []int{}, AvailabilityTimes: []int{}}
}

// Query asks for the availability of one user on one calendar date.
type Query struct {
	Username string
	// Date carries the calendar date only; its clock and zone are ignored.
	Date time.Time
	// TimezoneOffset is the client's offset in minutes east of UTC (-180 is UTC-3).
	// Nil selects server-local mode.
	TimezoneOffset *int
}

const (
	ModeServer = "server"
	ModeClient = "client"
)

func (q Query) Mode() string {
	if q.TimezoneOffset != nil {
		return ModeClient
	}
	return ModeServer
}

// Frame is the location in which the date's hours are read.
func (q Query) Frame(serverLoc *time.Location) *time.Location {
	if q.TimezoneOffset == nil {
		return serverLoc
	}
	return time.FixedZone("", *q.TimezoneOffset*60)
}
