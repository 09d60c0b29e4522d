package alarms

import "time"

// NextOccurrence computes the next future trigger instant for a recurring
// alarm. The anchor contributes only its wall-clock hour and minute (seconds
// are dropped); the candidate date starts at now's date, so recomputation
// after days of downtime catches up without stepping through every missed
// occurrence. The result is strictly after now and, for weekly/monthly kinds
// with a non-empty day set, lands on a configured day.
//
// Day selection is strictly-greater: a candidate equal to the current
// weekday or day-of-month is never re-selected, which guarantees forward
// progress. A weekly/monthly alarm whose day set was cleared degrades to
// single-day advancement instead of failing.
func NextOccurrence(now, anchor time.Time, kind RecurrenceKind, weekDays, monthDays []int) time.Time {
	if kind == RecurrenceNone {
		kind = RecurrenceWeekly
	}
	weekDays = NormalizeDaySet(weekDays, 0, 6)
	monthDays = NormalizeDaySet(monthDays, 1, 31)

	loc := now.Location()
	candidate := time.Date(now.Year(), now.Month(), now.Day(), anchor.Hour(), anchor.Minute(), 0, 0, loc)

	for !candidate.After(now) || !onScheduledDay(candidate, kind, weekDays, monthDays) {
		switch {
		case kind == RecurrenceWeekly && len(weekDays) > 0:
			candidate = nextWeekday(candidate, weekDays)
		case kind == RecurrenceMonthly && len(monthDays) > 0:
			candidate = nextMonthDay(candidate, monthDays)
		default:
			candidate = candidate.AddDate(0, 0, 1)
		}
		// Date mutators do not preserve wall time across month rollovers.
		candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day(), anchor.Hour(), anchor.Minute(), 0, 0, loc)
	}
	return candidate
}

func onScheduledDay(candidate time.Time, kind RecurrenceKind, weekDays, monthDays []int) bool {
	switch kind {
	case RecurrenceWeekly:
		if len(weekDays) == 0 {
			return true
		}
		return containsDay(weekDays, int(candidate.Weekday()))
	case RecurrenceMonthly:
		if len(monthDays) == 0 {
			return true
		}
		return containsDay(monthDays, candidate.Day())
	}
	return true
}

// nextWeekday advances to the smallest configured weekday strictly after the
// candidate's, wrapping into the following week when none remains.
func nextWeekday(c time.Time, days []int) time.Time {
	today := int(c.Weekday())
	for _, day := range days {
		if day > today {
			return c.AddDate(0, 0, day-today)
		}
	}
	return c.AddDate(0, 0, 7-today+days[0])
}

// nextMonthDay advances to the smallest configured day-of-month strictly
// after the candidate's. A day that does not exist in the current month is
// detected by the month changing under time.Date normalization; the
// candidate then wraps to the following month's smallest configured day.
// That wrap can itself normalize past a short month (31 in February); the
// caller's scheduled-day check re-advances until a real occurrence is found.
func nextMonthDay(c time.Time, days []int) time.Time {
	for _, day := range days {
		if day > c.Day() {
			attempt := time.Date(c.Year(), c.Month(), day, 0, 0, 0, 0, c.Location())
			if attempt.Month() == c.Month() {
				return attempt
			}
			break
		}
	}
	return time.Date(c.Year(), c.Month(), 1, 0, 0, 0, 0, c.Location()).AddDate(0, 1, days[0]-1)
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
