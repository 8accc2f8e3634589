package reports

import (
	"errors"
	"testing"
	"time"
)

func TestDayWindowExplicitDate(t *testing.T) {
	resolver := NewResolver(time.UTC)
	now := time.Date(2026, 8, 29, 15, 30, 0, 0, time.UTC)

	win, err := resolver.DayWindow("2026-03-15", now)
	if err != nil {
		t.Fatalf("day window failed: %v", err)
	}
	if !win.Start.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %v", win.Start)
	}
	if win.End.Day() != 15 || win.End.Hour() != 23 || win.End.Minute() != 59 {
		t.Fatalf("end should be last instant of the day, got %v", win.End)
	}
}

func TestDayWindowDefaultsToToday(t *testing.T) {
	resolver := NewResolver(time.UTC)
	now := time.Date(2026, 8, 29, 15, 30, 0, 0, time.UTC)

	win, err := resolver.DayWindow("", now)
	if err != nil {
		t.Fatalf("day window failed: %v", err)
	}
	if win.Start.Day() != 29 || win.Start.Month() != time.August {
		t.Fatalf("expected today's window, got start %v", win.Start)
	}
}

func TestDayWindowRejectsGarbage(t *testing.T) {
	resolver := NewResolver(time.UTC)

	_, err := resolver.DayWindow("not-a-date", time.Now())
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestYearWindowBounds(t *testing.T) {
	resolver := NewResolver(time.UTC)

	win, err := resolver.YearWindow("2025", time.Now())
	if err != nil {
		t.Fatalf("year window failed: %v", err)
	}
	if win.Start.Year() != 2025 || win.Start.Month() != time.January || win.Start.Day() != 1 {
		t.Fatalf("unexpected start: %v", win.Start)
	}
	if win.End.Year() != 2025 || win.End.Month() != time.December || win.End.Day() != 31 {
		t.Fatalf("unexpected end: %v", win.End)
	}
}

func TestYearWindowRejectsOutOfRange(t *testing.T) {
	resolver := NewResolver(time.UTC)

	for _, bad := range []string{"1899", "10000", "20x5"} {
		if _, err := resolver.YearWindow(bad, time.Now()); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("expected ErrInvalidDate for %q, got %v", bad, err)
		}
	}
}

func TestRangeWindowOneSidedIsAnError(t *testing.T) {
	resolver := NewResolver(time.UTC)

	if _, err := resolver.RangeWindow("2026-01-01", "", time.Now()); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate for missing end, got %v", err)
	}
	if _, err := resolver.RangeWindow("", "2026-01-31", time.Now()); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate for missing start, got %v", err)
	}
}

func TestRangeWindowEndPushedToEndOfDay(t *testing.T) {
	resolver := NewResolver(time.UTC)

	win, err := resolver.RangeWindow("2026-01-01", "2026-01-31", time.Now())
	if err != nil {
		t.Fatalf("range window failed: %v", err)
	}
	if win.End.Hour() != 23 || win.End.Day() != 31 {
		t.Fatalf("end should cover the whole last day, got %v", win.End)
	}

	// A bill created late on the end date must fall inside the window.
	lateBill := time.Date(2026, 1, 31, 23, 45, 0, 0, time.UTC)
	if lateBill.Before(win.Start) || lateBill.After(win.End) {
		t.Fatalf("late bill %v should be inside window [%v, %v]", lateBill, win.Start, win.End)
	}
}

func TestRangeWindowBothEmptyMeansToday(t *testing.T) {
	resolver := NewResolver(time.UTC)
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	win, err := resolver.RangeWindow("", "", now)
	if err != nil {
		t.Fatalf("range window failed: %v", err)
	}
	if win.Start.Day() != 29 || win.End.Day() != 29 {
		t.Fatalf("expected today's window, got [%v, %v]", win.Start, win.End)
	}
}

func TestDayWindowCoversDSTTransitionDays(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location failed: %v", err)
	}
	resolver := NewResolver(loc)

	// 2026-11-01 is a fall-back day: 25 hours long. The window must
	// still run to 23:59:59.999999999 local.
	win, err := resolver.DayWindow("2026-11-01", time.Now())
	if err != nil {
		t.Fatalf("day window failed: %v", err)
	}
	if win.End.Day() != 1 || win.End.Hour() != 23 || win.End.Minute() != 59 {
		t.Fatalf("fall-back day must end at local 23:59, got %v", win.End)
	}
	lateBill := time.Date(2026, 11, 1, 23, 30, 0, 0, loc)
	if lateBill.Before(win.Start) || lateBill.After(win.End) {
		t.Fatalf("late bill %v should be inside window [%v, %v]", lateBill, win.Start, win.End)
	}
	if got := win.End.Sub(win.Start); got != 25*time.Hour-time.Nanosecond {
		t.Fatalf("fall-back day should span 25h, got %v", got)
	}

	// 2026-03-08 is a spring-forward day: 23 hours long. The window
	// must not spill into March 9.
	win, err = resolver.DayWindow("2026-03-08", time.Now())
	if err != nil {
		t.Fatalf("day window failed: %v", err)
	}
	if win.End.Day() != 8 || win.End.Hour() != 23 {
		t.Fatalf("spring-forward day must end at local 23:59, got %v", win.End)
	}
	if got := win.End.Sub(win.Start); got != 23*time.Hour-time.Nanosecond {
		t.Fatalf("spring-forward day should span 23h, got %v", got)
	}
	nextDay := time.Date(2026, 3, 9, 0, 0, 30, 0, loc)
	if !win.End.Before(nextDay) {
		t.Fatalf("window must not reach into the next day, got end %v", win.End)
	}
}

func TestMonthWindowEndsAtLocalMidnightAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location failed: %v", err)
	}
	resolver := NewResolver(loc)

	// November 2026 contains the fall-back transition.
	win := resolver.MonthWindow(time.Date(2026, 11, 15, 12, 0, 0, 0, loc))
	if win.End.Month() != time.November || win.End.Day() != 30 || win.End.Hour() != 23 {
		t.Fatalf("month must end at local 23:59 on the 30th, got %v", win.End)
	}
}

func TestMonthWindowCoversWholeMonth(t *testing.T) {
	resolver := NewResolver(time.UTC)

	win := resolver.MonthWindow(time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC))
	if win.Start.Day() != 1 || win.Start.Month() != time.February {
		t.Fatalf("unexpected start: %v", win.Start)
	}
	if win.End.Day() != 28 || win.End.Hour() != 23 {
		t.Fatalf("unexpected end: %v", win.End)
	}
}
