package market

import (
	"time"

	"github.com/wonny/optionflow/pkg/logger"
)

// Regular session bounds, minutes from local midnight.
const (
	sessionOpenMinute  = 9*60 + 30 // 09:30
	sessionCloseMinute = 16 * 60   // 16:00
)

// Status is the result of a gate check.
type Status struct {
	Open     bool       `json:"open"`
	Reason   string     `json:"reason,omitempty"`
	NextOpen *time.Time `json:"next_open,omitempty"`
}

// Gate decides whether the exchange is in its regular trading session.
// Any internal failure (for example an unavailable time zone database)
// resolves to closed, so the pipeline never calls upstream on a bad clock.
type Gate struct {
	calendar Calendar
	logger   *logger.Logger
	loc      *time.Location
	locErr   error
}

// NewGate creates a gate for the US equity regular session.
func NewGate(calendar Calendar, log *logger.Logger) *Gate {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		log.WithError(err).Error("Failed to load exchange time zone, gate will stay closed")
	}
	return &Gate{
		calendar: calendar,
		logger:   log,
		loc:      loc,
		locErr:   err,
	}
}

// Check evaluates the gate at the given instant.
func (g *Gate) Check(now time.Time) Status {
	if g.locErr != nil || g.loc == nil {
		return Status{Open: false, Reason: "exchange time zone unavailable"}
	}

	local := now.In(g.loc)

	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return g.closed(local, "weekend")
	}

	if g.calendar != nil && g.calendar.IsHoliday(local) {
		return g.closed(local, "market holiday")
	}

	minute := local.Hour()*60 + local.Minute()
	if minute < sessionOpenMinute || minute >= sessionCloseMinute {
		return g.closed(local, "outside regular session")
	}

	return Status{Open: true}
}

// TradingDate returns the exchange-local calendar date for the given
// instant, normalized to midnight UTC. This is the bucket stamped onto
// every row a run produces. Zero when the exchange time zone is
// unavailable.
func (g *Gate) TradingDate(now time.Time) time.Time {
	if g.locErr != nil || g.loc == nil {
		return time.Time{}
	}
	local := now.In(g.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// closed builds a closed status with the next open instant attached.
func (g *Gate) closed(local time.Time, reason string) Status {
	next := g.nextOpen(local)
	status := Status{Open: false, Reason: reason}
	if !next.IsZero() {
		status.NextOpen = &next
	}
	return status
}

// nextOpen finds the next session start at or after local time.
// Scan is bounded; a calendar dense enough to exhaust it returns zero.
func (g *Gate) nextOpen(local time.Time) time.Time {
	day := local
	for i := 0; i < 30; i++ {
		candidate := time.Date(day.Year(), day.Month(), day.Day(),
			sessionOpenMinute/60, sessionOpenMinute%60, 0, 0, g.loc)

		tradingDay := true
		if wd := candidate.Weekday(); wd == time.Saturday || wd == time.Sunday {
			tradingDay = false
		}
		if tradingDay && g.calendar != nil && g.calendar.IsHoliday(candidate) {
			tradingDay = false
		}

		if tradingDay && candidate.After(local) {
			return candidate
		}

		day = day.AddDate(0, 0, 1)
	}
	return time.Time{}
}
