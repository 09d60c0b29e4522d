package alarms

import (
	"reflect"
	"testing"
	"time"
)

func TestParseStatusLegacyEncodings(t *testing.T) {
	cases := []struct {
		raw  string
		want Status
	}{
		{"active", StatusActive},
		{"Ativo", StatusActive},
		{"0", StatusActive},
		{"fired", StatusFired},
		{"DisparadoVisto", StatusFired},
		{"1", StatusFired},
		{"2", StatusFired},
		{"3", StatusFired},
	}
	for _, tc := range cases {
		got, ok := ParseStatus(tc.raw)
		if !ok || got != tc.want {
			t.Fatalf("ParseStatus(%q) = %q, %v; want %q", tc.raw, got, ok, tc.want)
		}
	}
	if _, ok := ParseStatus("bogus"); ok {
		t.Fatal("unknown status should not parse")
	}
}

func TestParseRecurrenceKind(t *testing.T) {
	cases := []struct {
		raw  string
		want RecurrenceKind
		ok   bool
	}{
		{"daily", RecurrenceDaily, true},
		{"weekly", RecurrenceWeekly, true},
		{"monthly", RecurrenceMonthly, true},
		{"0", RecurrenceWeekly, true},
		{"", RecurrenceNone, true},
		{"Daily", RecurrenceDaily, true},
		{"hourly", RecurrenceNone, false},
	}
	for _, tc := range cases {
		got, ok := ParseRecurrenceKind(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseRecurrenceKind(%q) = %q, %v; want %q, %v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeDaySet(t *testing.T) {
	got := NormalizeDaySet([]int{5, 1, 5, -1, 9, 3}, 0, 6)
	want := []int{1, 3, 5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if NormalizeDaySet([]int{-1, 40}, 1, 31) != nil {
		t.Fatal("all-invalid set should normalize to nil")
	}
}

func TestParseDaySetMixedEntries(t *testing.T) {
	got := ParseDaySet([]any{float64(2), "5", " 3 ", "x", true, float64(99)}, 0, 6)
	want := []int{2, 3, 5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAlarmNormalizeClearsIrrelevantFields(t *testing.T) {
	alarm := Alarm{
		IsRecurring:    true,
		RecurrenceKind: RecurrenceWeekly,
		WeekDays:       []int{3, 1},
		MonthDays:      []int{10},
	}
	alarm.Normalize()
	if !reflect.DeepEqual(alarm.WeekDays, []int{1, 3}) {
		t.Fatalf("week days not normalized: %v", alarm.WeekDays)
	}
	if alarm.MonthDays != nil {
		t.Fatalf("month days should be cleared for a weekly alarm: %v", alarm.MonthDays)
	}

	alarm.IsRecurring = false
	alarm.Normalize()
	if alarm.RecurrenceKind != RecurrenceNone || alarm.WeekDays != nil {
		t.Fatalf("non-recurring alarm kept recurrence fields: %+v", alarm)
	}
}

func TestAlarmSnoozePairInvariant(t *testing.T) {
	fireAt := time.Date(2024, time.March, 4, 8, 55, 0, 0, time.UTC)
	alarm := Alarm{Message: "(snoozed 10min) stand up", OriginalMessage: "stand up", ScheduleAnchor: fireAt}
	if !alarm.Snoozed() {
		t.Fatal("alarm with both snooze fields should report snoozed")
	}
	if !alarm.Anchor().Equal(fireAt) {
		t.Fatalf("anchor should be the pre-snooze fire time, got %v", alarm.Anchor())
	}

	alarm.ClearSnooze()
	if alarm.Snoozed() {
		t.Fatal("snooze fields should clear together")
	}
	if alarm.Message != "stand up" {
		t.Fatalf("message not restored: %q", alarm.Message)
	}
	if alarm.OriginalMessage != "" || !alarm.ScheduleAnchor.IsZero() {
		t.Fatalf("snooze pair not cleared: %+v", alarm)
	}
}
