package slots

import (
	"time"

	"github.com/Dosada05/game-booking-system/models"
)

// Status — состояние получасового слота в сетке доступности.
type Status int

const (
	StatusPast Status = iota
	StatusFree
	StatusBooked
)

func (s Status) String() string {
	switch s {
	case StatusPast:
		return "past"
	case StatusFree:
		return "free"
	case StatusBooked:
		return "booked"
	default:
		return "unknown"
	}
}

// Параметры дневной сетки: 37 отметок по полчаса, начиная с 5:00 AM —
// так же, как в сетке выбора слота на клиенте.
const (
	GridStartHour = 5
	GridTicks     = 37
	SlotStep      = 30 * time.Minute
)

// Evaluate вычисляет статус окна-кандидата на корте. Тот же предикат
// используется и при отрисовке сетки, и при коммите брони — семантика
// пересечения обязана совпадать в обеих точках.
func Evaluate(bookings []models.Booking, courtNumber int, sport string, start time.Time, duration time.Duration, now time.Time) Status {
	if start.Before(now) {
		return StatusPast
	}
	candidate := Window{Start: start, End: start.Add(duration)}
	for _, b := range bookings {
		if b.CourtNumber != courtNumber || b.Sport != sport {
			continue
		}
		if candidate.Overlaps(Window{Start: b.StartTime, End: b.EndTime}) {
			return StatusBooked
		}
	}
	return StatusFree
}

// Slot — одна отметка дневной сетки.
type Slot struct {
	Start  time.Time `json:"start"`
	Label  string    `json:"label"`
	Status Status    `json:"status"`
}

// Grid строит дневную сетку доступности корта: статус каждой получасовой
// отметки для окна заданной длительности.
func Grid(bookings []models.Booking, courtNumber int, sport string, day time.Time, duration time.Duration, now time.Time) []Slot {
	grid := make([]Slot, 0, GridTicks)
	tick := time.Date(day.Year(), day.Month(), day.Day(), GridStartHour, 0, 0, 0, day.Location())
	for i := 0; i < GridTicks; i++ {
		grid = append(grid, Slot{
			Start:  tick,
			Label:  tick.Format(clockLayout),
			Status: Evaluate(bookings, courtNumber, sport, tick, duration, now),
		})
		tick = tick.Add(SlotStep)
	}
	return grid
}
