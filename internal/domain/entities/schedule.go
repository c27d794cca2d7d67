package entities

import (
	"fmt"
	"strings"
	"time"
)

// Weekday indexes a WeeklySchedule, Sunday=0 through Saturday=6.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// DaysPerWeek is the length of a WeeklySchedule
const DaysPerWeek = 7

// MinutesPerDay bounds DayHours minute values, which are 0..MinutesPerDay-1
const MinutesPerDay = 24 * 60

var weekdayNames = [DaysPerWeek]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// WeekdayOf returns the weekday of t in t's own location.
func WeekdayOf(t time.Time) Weekday {
	return Weekday(t.Weekday())
}

func (d Weekday) String() string {
	if d < Sunday || d > Saturday {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// Add returns the weekday n days later, wrapping around the week.
func (d Weekday) Add(n int) Weekday {
	return Weekday(((int(d)+n)%DaysPerWeek + DaysPerWeek) % DaysPerWeek)
}

// Prev returns the day before d.
func (d Weekday) Prev() Weekday {
	return d.Add(-1)
}

// DayKind says how a DayHours entry should be read
type DayKind int

const (
	// DayUnspecified means the source hours never mentioned the day
	DayUnspecified DayKind = iota
	DayClosed
	DayOpenAllDay
	DayRange
)

// DayHours is one day of a WeeklySchedule. Open and Close are minutes since
// local midnight and are only meaningful for DayRange. Close < Open is an
// overnight range that ends on the following calendar day.
type DayHours struct {
	Kind  DayKind `json:"kind"`
	Open  int     `json:"open,omitempty"`
	Close int     `json:"close,omitempty"`
}

// ClosedDay returns a DayHours marked closed
func ClosedDay() DayHours { return DayHours{Kind: DayClosed} }

// OpenAllDay returns a DayHours open for the whole day
func OpenAllDay() DayHours { return DayHours{Kind: DayOpenAllDay} }

// NewRange returns a DayHours open from open to close minutes
func NewRange(open, close int) DayHours {
	return DayHours{Kind: DayRange, Open: open, Close: close}
}

// IsOvernight reports whether the range wraps past midnight
func (h DayHours) IsOvernight() bool {
	return h.Kind == DayRange && h.Close < h.Open
}

// HasOpening reports whether the business opens at some point on this day
func (h DayHours) HasOpening() bool {
	return h.Kind == DayOpenAllDay || h.Kind == DayRange
}

// WeeklySchedule holds one DayHours per Weekday
type WeeklySchedule [DaysPerWeek]DayHours

// ClosedSchedule returns a schedule closed every day
func ClosedSchedule() WeeklySchedule {
	var s WeeklySchedule
	for i := range s {
		s[i] = ClosedDay()
	}
	return s
}

// Day returns the hours for d
func (s WeeklySchedule) Day(d Weekday) DayHours {
	return s[d.Add(0)]
}

// Format encodes the schedule in the standard multiline form, Sunday first.
// Unspecified days are omitted so that parsing the output reproduces s.
func (s WeeklySchedule) Format() string {
	lines := make([]string, 0, DaysPerWeek)
	for d := Sunday; d <= Saturday; d++ {
		h := s[d]
		switch h.Kind {
		case DayClosed:
			lines = append(lines, d.String()+": Closed")
		case DayOpenAllDay:
			lines = append(lines, d.String()+": Open 24 hours")
		case DayRange:
			lines = append(lines, fmt.Sprintf("%s: %s - %s", d, FormatMinute(h.Open), FormatMinute(h.Close)))
		}
	}
	return strings.Join(lines, "\n")
}

// FormatMinute renders minutes since midnight as a 12-hour clock time,
// e.g. 0 -> "12:00 AM", 1320 -> "10:00 PM".
func FormatMinute(minute int) string {
	minute = ((minute % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	hour, min := minute/60, minute%60
	meridiem := "AM"
	if hour >= 12 {
		meridiem = "PM"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, min, meridiem)
}
