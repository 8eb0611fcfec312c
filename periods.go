package voble

import (
	"fmt"
	"time"
)

// Competition periods are anchored to UTC+8 wall-clock time, matching the
// on-chain program. All period ids derived here are used as seeds for
// leaderboard and session accounts, so they must be stable across clients.
const (
	// PeriodEpochStart is 2024-01-01 00:00:00 UTC+8 in unix seconds.
	PeriodEpochStart = 1704038400

	weeklyDuration = 7 * 24 * 60 * 60
)

var utc8 = time.FixedZone("UTC+8", 8*60*60)

// Cadence identifies one of the three concurrent competition windows.
type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

// Byte returns the single-byte discriminator the program appends to
// leaderboard seeds for this cadence.
func (c Cadence) Byte() byte {
	switch c {
	case CadenceWeekly:
		return 1
	case CadenceMonthly:
		return 2
	default:
		return 0
	}
}

// DayPeriodID returns the daily period id (YYYY-MM-DD) for t in UTC+8.
func DayPeriodID(t time.Time) string {
	return t.In(utc8).Format("2006-01-02")
}

// WeekPeriodID returns the weekly period id ("W<n>") for t. Week numbers
// count whole weeks elapsed since the period epoch.
func WeekPeriodID(t time.Time) string {
	elapsed := t.Unix() - PeriodEpochStart
	if elapsed < 0 {
		elapsed = 0
	}
	return fmt.Sprintf("W%d", elapsed/weeklyDuration)
}

// MonthPeriodID returns the monthly period id (YYYY-MM) for t in UTC+8.
func MonthPeriodID(t time.Time) string {
	return t.In(utc8).Format("2006-01")
}

// PeriodID returns the id of the window containing t for this cadence.
func (c Cadence) PeriodID(t time.Time) string {
	switch c {
	case CadenceWeekly:
		return WeekPeriodID(t)
	case CadenceMonthly:
		return MonthPeriodID(t)
	default:
		return DayPeriodID(t)
	}
}

// PeriodIDs bundles the ids of the three windows that are live at one
// instant.
type PeriodIDs struct {
	Daily   string
	Weekly  string
	Monthly string
}

// CurrentPeriodIDs returns the daily, weekly and monthly ids for t.
func CurrentPeriodIDs(t time.Time) PeriodIDs {
	return PeriodIDs{
		Daily:   DayPeriodID(t),
		Weekly:  WeekPeriodID(t),
		Monthly: MonthPeriodID(t),
	}
}
