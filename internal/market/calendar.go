package market

import "time"

// Calendar answers whether a given calendar date is an exchange holiday.
// The gate only depends on this interface so the holiday source can be
// swapped (static list, database table, upstream calendar API) without
// touching the session logic.
type Calendar interface {
	IsHoliday(date time.Time) bool
}

// StaticCalendar is a Calendar backed by a fixed set of dates.
type StaticCalendar struct {
	holidays map[string]struct{}
}

// NewStaticCalendar builds a calendar from dates in YYYY-MM-DD form.
// Malformed entries are ignored.
func NewStaticCalendar(dates ...string) *StaticCalendar {
	holidays := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			continue
		}
		holidays[d] = struct{}{}
	}
	return &StaticCalendar{holidays: holidays}
}

// IsHoliday reports whether the date (by its calendar day) is a holiday.
func (c *StaticCalendar) IsHoliday(date time.Time) bool {
	_, ok := c.holidays[date.Format("2006-01-02")]
	return ok
}

// NYSECalendar returns the US equity market full-closure days.
// TODO: 2027 dates once the exchange publishes them.
func NYSECalendar() *StaticCalendar {
	return NewStaticCalendar(
		// 2025
		"2025-01-01", // New Year's Day
		"2025-01-20", // Martin Luther King Jr. Day
		"2025-02-17", // Washington's Birthday
		"2025-04-18", // Good Friday
		"2025-05-26", // Memorial Day
		"2025-06-19", // Juneteenth
		"2025-07-04", // Independence Day
		"2025-09-01", // Labor Day
		"2025-11-27", // Thanksgiving Day
		"2025-12-25", // Christmas Day
		// 2026
		"2026-01-01",
		"2026-01-19",
		"2026-02-16",
		"2026-04-03",
		"2026-05-25",
		"2026-06-19",
		"2026-07-03", // Independence Day observed
		"2026-09-07",
		"2026-11-26",
		"2026-12-25",
	)
}
