package timekit

import (
	"testing"
	"time"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := LoadLocation(name)
	if err != nil {
		t.Fatalf("LoadLocation(%q) failed: %v", name, err)
	}
	return loc
}

func TestLocalMidnight(t *testing.T) {
	tz := mustLoc(t, "America/New_York")
	ref := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC) // 14:00 EDT (DST began 2026-03-08)
	mid := LocalMidnight(ref, tz)
	if mid.In(tz).Hour() != 0 || mid.In(tz).Minute() != 0 {
		t.Fatalf("expected local midnight, got %v", mid.In(tz))
	}
}

func TestWindowToUTCRange_Simple(t *testing.T) {
	tz := mustLoc(t, "UTC")
	day := LocalDate{2026, time.January, 5} // a Monday
	start, end, err := WindowToUTCRange(day, "07:00", "11:00", tz)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !start.Equal(time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}
}

func TestWindowToUTCRange_Overnight(t *testing.T) {
	tz := mustLoc(t, "UTC")
	day := LocalDate{2026, time.January, 5}
	start, end, err := WindowToUTCRange(day, "22:00", "02:00", tz)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if end.Sub(start) != 4*time.Hour {
		t.Errorf("expected overnight window to span 4h, got %v", end.Sub(start))
	}
}

func TestWindowToUTCRange_DSTSpringForward(t *testing.T) {
	// US DST in 2026 starts Sunday March 8 at 02:00 local (clocks jump
	// to 03:00); an afternoon window on that date should still be 4.5h
	// wide because 12:00-16:30 doesn't straddle 02:00-03:00, but the
	// UTC offset used for conversion must reflect EDT, not EST.
	tz := mustLoc(t, "America/New_York")
	day := LocalDate{2026, time.March, 8}
	start, end, err := WindowToUTCRange(day, "12:00", "16:30", tz)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if end.Sub(start) != 4*time.Hour+30*time.Minute {
		t.Errorf("expected 4h30m window, got %v", end.Sub(start))
	}
	_, offset := start.Zone()
	if offset != -4*60*60 {
		t.Errorf("expected EDT offset -4h after spring-forward, got %ds", offset)
	}
}

func TestRoundToNearest(t *testing.T) {
	inst := time.Date(2026, 1, 5, 7, 3, 0, 0, time.UTC)
	got := RoundToNearest(inst, 5)
	want := time.Date(2026, 1, 5, 7, 5, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("RoundToNearest() = %v, want %v", got, want)
	}
}

func TestLocalDateOf(t *testing.T) {
	tz := mustLoc(t, "Asia/Tokyo") // UTC+9
	inst := time.Date(2026, 1, 5, 16, 0, 0, 0, time.UTC) // 01:00 JST next day
	d := LocalDateOf(inst, tz)
	want := LocalDate{2026, time.January, 6}
	if d != want {
		t.Errorf("LocalDateOf() = %v, want %v", d, want)
	}
}

func TestLocalDateAddDaysAndOrdering(t *testing.T) {
	d := LocalDate{2026, time.January, 30}
	next := d.AddDays(3)
	want := LocalDate{2026, time.February, 2}
	if next != want {
		t.Errorf("AddDays() = %v, want %v", next, want)
	}
	if !d.Before(next) || next.After(d) == false {
		t.Errorf("ordering broken for %v vs %v", d, next)
	}
	if next.Sub(d) != 3 {
		t.Errorf("Sub() = %d, want 3", next.Sub(d))
	}
}
