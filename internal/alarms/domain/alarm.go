package alarms

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Status is the lifecycle state of an alarm. Only two states are stored:
// an alarm is either scheduled or resolved into history.
type Status string

const (
	StatusActive Status = "active"
	StatusFired  Status = "fired"
)

// ParseStatus normalizes a stored status value. Legacy rows carry the
// pre-migration encodings: "Ativo"/"DisparadoVisto" and numeric codes 0..3.
func ParseStatus(raw string) (Status, bool) {
	switch strings.TrimSpace(raw) {
	case string(StatusActive), "Ativo", "0":
		return StatusActive, true
	case string(StatusFired), "DisparadoVisto", "1", "2", "3":
		return StatusFired, true
	}
	return "", false
}

// StoredForms returns every on-disk encoding that maps to the status,
// so that queries also match rows written before the migration.
func (s Status) StoredForms() []string {
	switch s {
	case StatusActive:
		return []string{string(StatusActive), "Ativo", "0"}
	case StatusFired:
		return []string{string(StatusFired), "DisparadoVisto", "1", "2", "3"}
	}
	return []string{string(s)}
}

// RecurrenceKind selects the advancement rule for a recurring alarm.
type RecurrenceKind string

const (
	RecurrenceNone    RecurrenceKind = ""
	RecurrenceDaily   RecurrenceKind = "daily"
	RecurrenceWeekly  RecurrenceKind = "weekly"
	RecurrenceMonthly RecurrenceKind = "monthly"
)

// ParseRecurrenceKind normalizes a kind value. The legacy kind-code 0 is a
// synonym for weekly.
func ParseRecurrenceKind(raw string) (RecurrenceKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return RecurrenceNone, true
	case string(RecurrenceDaily), "diariamente":
		return RecurrenceDaily, true
	case string(RecurrenceWeekly), "semanalmente", "0":
		return RecurrenceWeekly, true
	case string(RecurrenceMonthly), "mensalmente":
		return RecurrenceMonthly, true
	}
	return RecurrenceNone, false
}

// Alarm is a user-owned reminder. ScheduleAnchor and OriginalMessage are set
// together while the alarm is snoozed and cleared together when it resolves.
type Alarm struct {
	ID              string         `json:"id"`
	OwnerID         string         `json:"owner_id"`
	FireAt          time.Time      `json:"fire_at"`
	Message         string         `json:"message"`
	Status          Status         `json:"status"`
	IsRecurring     bool           `json:"is_recurring"`
	RecurrenceKind  RecurrenceKind `json:"recurrence_kind,omitempty"`
	WeekDays        []int          `json:"week_days,omitempty"`
	MonthDays       []int          `json:"month_days,omitempty"`
	OriginalMessage string         `json:"original_message,omitempty"`
	ScheduleAnchor  time.Time      `json:"schedule_anchor,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Snoozed reports whether the alarm is in the snoozed sub-state.
func (a *Alarm) Snoozed() bool {
	return a.OriginalMessage != "" && !a.ScheduleAnchor.IsZero()
}

// Anchor returns the recurrence base: the pre-snooze fire time when snoozed,
// the current fire time otherwise.
func (a *Alarm) Anchor() time.Time {
	if !a.ScheduleAnchor.IsZero() {
		return a.ScheduleAnchor
	}
	return a.FireAt
}

// ClearSnooze drops the snooze pair, restoring the captured message.
func (a *Alarm) ClearSnooze() {
	if a.OriginalMessage != "" {
		a.Message = a.OriginalMessage
	}
	a.OriginalMessage = ""
	a.ScheduleAnchor = time.Time{}
}

// Normalize enforces the field invariants: day sets are kept only when the
// matching recurrence kind is set, and a non-recurring alarm carries no
// recurrence fields at all.
func (a *Alarm) Normalize() {
	if !a.IsRecurring {
		a.RecurrenceKind = RecurrenceNone
	}
	if a.RecurrenceKind != RecurrenceWeekly {
		a.WeekDays = nil
	} else {
		a.WeekDays = NormalizeDaySet(a.WeekDays, 0, 6)
	}
	if a.RecurrenceKind != RecurrenceMonthly {
		a.MonthDays = nil
	} else {
		a.MonthDays = NormalizeDaySet(a.MonthDays, 1, 31)
	}
}

// Validate checks the invariants required before a write.
func (a *Alarm) Validate() error {
	if a.OwnerID == "" {
		return fmt.Errorf("%w: owner required", ErrInvalid)
	}
	if strings.TrimSpace(a.Message) == "" {
		return fmt.Errorf("%w: message required", ErrInvalid)
	}
	if a.FireAt.IsZero() {
		return fmt.Errorf("%w: fire time required", ErrInvalid)
	}
	if a.IsRecurring {
		switch a.RecurrenceKind {
		case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		default:
			return fmt.Errorf("%w: unknown recurrence kind %q", ErrInvalid, a.RecurrenceKind)
		}
	}
	return nil
}

// NormalizeDaySet sorts, deduplicates and range-filters a day set.
func NormalizeDaySet(days []int, min, max int) []int {
	if len(days) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(days))
	out := make([]int, 0, len(days))
	for _, day := range days {
		if day < min || day > max {
			continue
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		out = append(out, day)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Ints(out)
	return out
}

// ParseDaySet converts a loosely typed payload entry list (numbers or
// numeric strings) into a clean day set. Unparseable entries are discarded,
// not rejected.
func ParseDaySet(raw []any, min, max int) []int {
	if len(raw) == 0 {
		return nil
	}
	days := make([]int, 0, len(raw))
	for _, entry := range raw {
		switch v := entry.(type) {
		case float64:
			days = append(days, int(v))
		case int:
			days = append(days, v)
		case string:
			parsed, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				continue
			}
			days = append(days, parsed)
		}
	}
	return NormalizeDaySet(days, min, max)
}
