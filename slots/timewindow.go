package slots

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Ошибки разбора пользовательских меток даты и времени.
var ErrMalformedTime = errors.New("malformed date or time label")

const clockLayout = "3:04 PM"

// Window — временное окно сессии или брони. Интервалы полуоткрытые:
// [Start, End), поэтому касающиеся окна не конфликтуют.
type Window struct {
	Start time.Time
	End   time.Time
}

// ParseDate разбирает метку вида "5th June" (день с порядковым суффиксом и
// название месяца, год подразумевается текущий относительно reference).
func ParseDate(label string, reference time.Time) (time.Time, error) {
	fields := strings.Fields(strings.TrimSpace(label))
	if len(fields) != 2 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTime, label)
	}

	dayToken := fields[0]
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		if strings.HasSuffix(strings.ToLower(dayToken), suffix) {
			dayToken = dayToken[:len(dayToken)-len(suffix)]
			break
		}
	}
	day, err := strconv.Atoi(dayToken)
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: invalid day in %q", ErrMalformedTime, label)
	}

	month, err := time.Parse("January", fields[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid month in %q", ErrMalformedTime, label)
	}

	date := time.Date(reference.Year(), month.Month(), day, 0, 0, 0, 0, reference.Location())
	// time.Date нормализует переполнение (31 February -> 3 March), это считаем ошибкой ввода.
	if date.Day() != day || date.Month() != month.Month() {
		return time.Time{}, fmt.Errorf("%w: no such calendar day %q", ErrMalformedTime, label)
	}
	return date, nil
}

// ParseWindow разбирает дату и диапазон времени ("5:00 AM - 6:00 AM") в
// структурное окно. Разбор происходит один раз при записи; строка остаётся
// только отображением.
func ParseWindow(dateLabel, timeLabel string, reference time.Time) (Window, error) {
	date, err := ParseDate(dateLabel, reference)
	if err != nil {
		return Window{}, err
	}

	parts := strings.Split(timeLabel, " - ")
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("%w: time range %q", ErrMalformedTime, timeLabel)
	}

	start, err := combineClock(date, parts[0])
	if err != nil {
		return Window{}, err
	}
	end, err := combineClock(date, parts[1])
	if err != nil {
		return Window{}, err
	}
	if !end.After(start) {
		return Window{}, fmt.Errorf("%w: window end %q is not after start %q", ErrMalformedTime, parts[1], parts[0])
	}
	return Window{Start: start, End: end}, nil
}

func combineClock(date time.Time, label string) (time.Time, error) {
	clock, err := time.Parse(clockLayout, strings.TrimSpace(label))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: clock %q", ErrMalformedTime, label)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, date.Location()), nil
}

// IsUpcoming сообщает, что окно ещё не началось.
func (w Window) IsUpcoming(now time.Time) bool {
	return w.Start.After(now)
}

// IsPast сообщает, что окно закончилось.
func (w Window) IsPast(now time.Time) bool {
	return !w.End.After(now)
}

// IsInProgress сообщает, что окно уже идёт, но ещё не закончилось.
func (w Window) IsInProgress(now time.Time) bool {
	return !w.Start.After(now) && w.End.After(now)
}

// Overlaps проверяет пересечение полуоткрытых интервалов: касание границ
// конфликтом не считается.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

// CompareByStart задаёт полный порядок по началу окна. Равные начала дают 0,
// стабильная сортировка сохраняет исходный порядок.
func CompareByStart(a, b Window) int {
	switch {
	case a.Start.Before(b.Start):
		return -1
	case a.Start.After(b.Start):
		return 1
	default:
		return 0
	}
}

// DateLabel отображает дату окна в виде "5th June".
func (w Window) DateLabel() string {
	return FormatDate(w.Start)
}

// TimeLabel отображает окно в виде "5:00 AM - 6:00 AM".
func (w Window) TimeLabel() string {
	return w.Start.Format(clockLayout) + " - " + w.End.Format(clockLayout)
}

// FormatDate отображает день в виде "5th June".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d%s %s", t.Day(), ordinalSuffix(t.Day()), t.Month().String())
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
