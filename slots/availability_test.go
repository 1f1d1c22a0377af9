package slots

import (
	"testing"
	"time"

	"github.com/Dosada05/game-booking-system/models"
)

func booking(court int, sport string, startHour, startMin, endHour, endMin int) models.Booking {
	day := time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC)
	return models.Booking{
		CourtNumber: court,
		Sport:       sport,
		StartTime:   day.Add(time.Duration(startHour)*time.Hour + time.Duration(startMin)*time.Minute),
		EndTime:     day.Add(time.Duration(endHour)*time.Hour + time.Duration(endMin)*time.Minute),
	}
}

func TestEvaluate(t *testing.T) {
	day := time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC)
	now := day.Add(8 * time.Hour) // 8:00 AM
	existing := []models.Booking{booking(3, "Badminton", 17, 0, 18, 0)}

	tests := []struct {
		name     string
		court    int
		sport    string
		start    time.Time
		duration time.Duration
		want     Status
	}{
		{name: "before now is past", court: 3, sport: "Badminton", start: day.Add(7 * time.Hour), duration: time.Hour, want: StatusPast},
		{name: "exact overlap", court: 3, sport: "Badminton", start: day.Add(17 * time.Hour), duration: time.Hour, want: StatusBooked},
		{name: "partial overlap from below", court: 3, sport: "Badminton", start: day.Add(16*time.Hour + 30*time.Minute), duration: time.Hour, want: StatusBooked},
		{name: "partial overlap from above", court: 3, sport: "Badminton", start: day.Add(17*time.Hour + 30*time.Minute), duration: time.Hour, want: StatusBooked},
		{name: "candidate swallows booking", court: 3, sport: "Badminton", start: day.Add(16 * time.Hour), duration: 3 * time.Hour, want: StatusBooked},
		{name: "touching from below is free", court: 3, sport: "Badminton", start: day.Add(16 * time.Hour), duration: time.Hour, want: StatusFree},
		{name: "touching from above is free", court: 3, sport: "Badminton", start: day.Add(18 * time.Hour), duration: time.Hour, want: StatusFree},
		{name: "other court is free", court: 4, sport: "Badminton", start: day.Add(17 * time.Hour), duration: time.Hour, want: StatusFree},
		{name: "other sport is free", court: 3, sport: "Tennis", start: day.Add(17 * time.Hour), duration: time.Hour, want: StatusFree},
	}

	for _, tc := range tests {
		if got := Evaluate(existing, tc.court, tc.sport, tc.start, tc.duration, now); got != tc.want {
			t.Errorf("%s: Evaluate = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestGridShape(t *testing.T) {
	day := time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC)
	now := day.Add(4 * time.Hour) // до открытия сетки, все слоты в будущем

	grid := Grid(nil, 1, "Badminton", day, 30*time.Minute, now)
	if len(grid) != GridTicks {
		t.Fatalf("grid has %d ticks, want %d", len(grid), GridTicks)
	}
	if grid[0].Label != "5:00 AM" {
		t.Errorf("first tick label = %q, want %q", grid[0].Label, "5:00 AM")
	}
	if last := grid[len(grid)-1]; last.Label != "11:00 PM" {
		t.Errorf("last tick label = %q, want %q", last.Label, "11:00 PM")
	}
	for i, slot := range grid {
		if slot.Status != StatusFree {
			t.Fatalf("tick %d (%s): status %v, want free", i, slot.Label, slot.Status)
		}
	}
}

func TestGridMarksPastAndBooked(t *testing.T) {
	day := time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC)
	now := day.Add(10 * time.Hour) // 10:00 AM
	existing := []models.Booking{booking(2, "Badminton", 17, 0, 18, 0)}

	grid := Grid(existing, 2, "Badminton", day, time.Hour, now)

	statusAt := func(label string) Status {
		t.Helper()
		for _, slot := range grid {
			if slot.Label == label {
				return slot.Status
			}
		}
		t.Fatalf("no tick labelled %q", label)
		return StatusPast
	}

	if got := statusAt("9:30 AM"); got != StatusPast {
		t.Errorf("9:30 AM: %v, want past", got)
	}
	if got := statusAt("10:00 AM"); got != StatusFree {
		t.Errorf("10:00 AM: %v, want free", got)
	}
	// Часовое окно с 4:30 PM задевает бронь 5:00-6:00 PM.
	if got := statusAt("4:30 PM"); got != StatusBooked {
		t.Errorf("4:30 PM: %v, want booked", got)
	}
	if got := statusAt("5:30 PM"); got != StatusBooked {
		t.Errorf("5:30 PM: %v, want booked", got)
	}
	// Касание в 6:00 PM конфликтом не считается.
	if got := statusAt("6:00 PM"); got != StatusFree {
		t.Errorf("6:00 PM: %v, want free", got)
	}
	if got := statusAt("4:00 PM"); got != StatusFree {
		t.Errorf("4:00 PM: %v, want free", got)
	}
}
