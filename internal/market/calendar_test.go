package market

import (
	"testing"
	"time"
)

func TestStaticCalendar(t *testing.T) {
	calendar := NewStaticCalendar("2025-12-25", "2025-07-04", "not-a-date")

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"christmas", time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC), true},
		{"christmas with time of day", time.Date(2025, 12, 25, 15, 45, 0, 0, time.UTC), true},
		{"independence day", time.Date(2025, 7, 4, 9, 30, 0, 0, time.UTC), true},
		{"regular day", time.Date(2025, 7, 7, 9, 30, 0, 0, time.UTC), false},
		{"day after christmas", time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calendar.IsHoliday(tt.date); got != tt.want {
				t.Errorf("IsHoliday(%v) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestNYSECalendar(t *testing.T) {
	calendar := NYSECalendar()

	if !calendar.IsHoliday(time.Date(2025, 11, 27, 10, 0, 0, 0, time.UTC)) {
		t.Error("Thanksgiving 2025 should be a holiday")
	}
	if !calendar.IsHoliday(time.Date(2026, 7, 3, 10, 0, 0, 0, time.UTC)) {
		t.Error("Observed Independence Day 2026 should be a holiday")
	}
	if calendar.IsHoliday(time.Date(2025, 11, 28, 10, 0, 0, 0, time.UTC)) {
		t.Error("Day after Thanksgiving is a short session, not a closure")
	}
}
