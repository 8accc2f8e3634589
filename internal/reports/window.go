package reports

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidDate is returned when a caller-supplied date, range or year
// does not parse to a real calendar instant. It maps to a 400 at the API
// layer; no partial computation is ever returned alongside it.
var ErrInvalidDate = errors.New("invalid date")

const dateLayout = "2006-01-02"

// Window is a closed [Start, End] interval. Both bounds are inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// Resolver turns caller-supplied dates, ranges and years into concrete
// windows. The calendar basis (which location defines "a day" or "an
// hour") is fixed at construction so results are reproducible across
// deployments instead of inheriting the ambient system timezone.
type Resolver struct {
	loc *time.Location
}

func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc}
}

func (r *Resolver) Location() *time.Location {
	return r.loc
}

// DayWindow resolves dateStr ("2006-01-02") to start-of-day through
// end-of-day in the resolver's location. Empty dateStr means the day
// containing now.
func (r *Resolver) DayWindow(dateStr string, now time.Time) (Window, error) {
	day := now.In(r.loc)
	if dateStr != "" {
		parsed, err := time.ParseInLocation(dateLayout, dateStr, r.loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: %q", ErrInvalidDate, dateStr)
		}
		day = parsed
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, r.loc)
	return Window{Start: start, End: endOfDay(start)}, nil
}

// YearWindow resolves yearStr to January 1 through December 31 of that
// year. Empty yearStr means the year containing now.
func (r *Resolver) YearWindow(yearStr string, now time.Time) (Window, error) {
	year := now.In(r.loc).Year()
	if yearStr != "" {
		parsed, err := strconv.Atoi(yearStr)
		if err != nil || parsed < 1970 || parsed > 9999 {
			return Window{}, fmt.Errorf("%w: %q", ErrInvalidDate, yearStr)
		}
		year = parsed
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, r.loc)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, r.loc)
	return Window{Start: start, End: endOfDay(end)}, nil
}

// RangeWindow resolves an explicit start/end date pair. The end date is
// always pushed to end-of-day. Both dates empty means the day containing
// now; supplying only one of the two is an error.
func (r *Resolver) RangeWindow(startStr, endStr string, now time.Time) (Window, error) {
	if startStr == "" && endStr == "" {
		return r.DayWindow("", now)
	}
	if startStr == "" || endStr == "" {
		return Window{}, fmt.Errorf("%w: both startDate and endDate are required", ErrInvalidDate)
	}
	start, err := time.ParseInLocation(dateLayout, startStr, r.loc)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidDate, startStr)
	}
	end, err := time.ParseInLocation(dateLayout, endStr, r.loc)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidDate, endStr)
	}
	return Window{Start: start, End: endOfDay(end)}, nil
}

// MonthWindow returns the first and last instant of t's calendar month.
func (r *Resolver) MonthWindow(t time.Time) Window {
	local := t.In(r.loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, r.loc)
	last := start.AddDate(0, 1, -1)
	return Window{Start: start, End: endOfDay(last)}
}

// endOfDay returns the last instant of the calendar day containing t.
// Computed from the next calendar midnight rather than a fixed 24h
// offset, so days shortened or stretched by a DST transition still end
// at 23:59:59.999999999 local.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location()).Add(-time.Nanosecond)
}
