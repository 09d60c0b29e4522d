package application

import (
	"context"
	"errors"
	"testing"
	"time"

	alarms "alarmhub/internal/alarms/domain"
	"alarmhub/internal/alarms/infrastructure/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T, start time.Time) (*Service, *memory.AlarmRepository, *fakeClock) {
	t.Helper()
	repo := memory.NewAlarmRepository()
	clock := &fakeClock{now: start}
	service, err := NewService(repo, WithClock(clock))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, repo, clock
}

func TestCreateRecurringComputesFirstOccurrence(t *testing.T) {
	start := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	service, _, _ := newTestService(t, start)

	alarm, err := service.Create(context.Background(), "user-1", AlarmInput{
		Message:        "stand up",
		FireAt:         time.Date(2024, time.March, 4, 8, 55, 0, 0, time.UTC),
		IsRecurring:    true,
		RecurrenceKind: "daily",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want := time.Date(2024, time.March, 4, 8, 55, 0, 0, time.UTC)
	if !alarm.FireAt.Equal(want) {
		t.Fatalf("expected first occurrence %v, got %v", want, alarm.FireAt)
	}
	if alarm.Status != alarms.StatusActive {
		t.Fatalf("expected active status, got %q", alarm.Status)
	}
	if alarm.Snoozed() {
		t.Fatal("new alarm must not carry snooze fields")
	}
}

func TestCreateOneShotInThePastRejected(t *testing.T) {
	start := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	service, _, _ := newTestService(t, start)

	_, err := service.Create(context.Background(), "user-1", AlarmInput{
		Message: "too late",
		FireAt:  start.Add(-time.Minute),
	})
	if !errors.Is(err, alarms.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestCreateNormalizesDaySets(t *testing.T) {
	start := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	service, _, _ := newTestService(t, start)

	alarm, err := service.Create(context.Background(), "user-1", AlarmInput{
		Message:        "standup",
		FireAt:         start.Add(time.Hour),
		IsRecurring:    true,
		RecurrenceKind: "weekly",
		WeekDays:       []int{5, 1, 1, 9},
		MonthDays:      []int{10, 20},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(alarm.WeekDays) != 2 || alarm.WeekDays[0] != 1 || alarm.WeekDays[1] != 5 {
		t.Fatalf("week days not normalized: %v", alarm.WeekDays)
	}
	if alarm.MonthDays != nil {
		t.Fatalf("month days should be cleared for a weekly alarm: %v", alarm.MonthDays)
	}
}

func TestCreateRecurringWithoutKindRejected(t *testing.T) {
	start := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	service, _, _ := newTestService(t, start)

	_, err := service.Create(context.Background(), "user-1", AlarmInput{
		Message:     "broken",
		FireAt:      start.Add(time.Hour),
		IsRecurring: true,
	})
	if !errors.Is(err, alarms.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestSnoozeThenAcknowledgeRestoresSchedule(t *testing.T) {
	start := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	service, _, clock := newTestService(t, start)

	anchor := time.Date(2024, time.March, 4, 8, 55, 0, 0, time.UTC)
	alarm, err := service.Create(context.Background(), "user-1", AlarmInput{
		Message:        "stand up",
		FireAt:         anchor,
		IsRecurring:    true,
		RecurrenceKind: "daily",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clock.now = time.Date(2024, time.March, 4, 8, 56, 0, 0, time.UTC)
	snoozed, err := service.Snooze(context.Background(), alarm.ID, "user-1", 10)
	if err != nil {
		t.Fatalf("snooze: %v", err)
	}
	if !snoozed.FireAt.Equal(clock.now.Add(10 * time.Minute)) {
		t.Fatalf("snoozed fire time wrong: %v", snoozed.FireAt)
	}
	if !snoozed.ScheduleAnchor.Equal(anchor) {
		t.Fatalf("schedule anchor should be the pre-snooze fire time, got %v", snoozed.ScheduleAnchor)
	}
	if snoozed.OriginalMessage != "stand up" {
		t.Fatalf("original message not captured: %q", snoozed.OriginalMessage)
	}
	if snoozed.Message != "(snoozed 10min) stand up" {
		t.Fatalf("decorated message wrong: %q", snoozed.Message)
	}
	if !snoozed.IsRecurring {
		t.Fatal("snooze must not clear the recurring flag")
	}

	clock.now = time.Date(2024, time.March, 4, 9, 7, 0, 0, time.UTC)
	acked, err := service.Acknowledge(context.Background(), alarm.ID, "user-1")
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	want := time.Date(2024, time.March, 5, 8, 55, 0, 0, time.UTC)
	if !acked.FireAt.Equal(want) {
		t.Fatalf("expected next occurrence from the anchor %v, got %v", want, acked.FireAt)
	}
	if acked.Message != "stand up" {
		t.Fatalf("message not restored: %q", acked.Message)
	}
	if acked.Snoozed() || acked.OriginalMessage != "" || !acked.ScheduleAnchor.IsZero() {
		t.Fatalf("snooze fields not cleared: %+v", acked)
	}
	if acked.Status != alarms.StatusActive {
		t.Fatalf("recurring alarm should stay active, got %q", acked.Status)
	}
}

func TestDoubleSnoozeKeepsOriginalAnchor(t *testing.T) {
	start := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	service, _, clock := newTestService(t, start)

	anchor := time.Date(2024, time.March, 4, 8, 55, 0, 0, time.UTC)
	alarm := seedAlarm(t, service, "user-1", anchor)

	clock.now = time.Date(2024, time.March, 4, 8, 56, 0, 0, time.UTC)
	if _, err := service.Snooze(context.Background(), alarm.ID, "user-1", 10); err != nil {
		t.Fatalf("first snooze: %v", err)
	}
	clock.advance(12 * time.Minute)
	again, err := service.Snooze(context.Background(), alarm.ID, "user-1", 5)
	if err != nil {
		t.Fatalf("second snooze: %v", err)
	}
	if !again.ScheduleAnchor.Equal(anchor) {
		t.Fatalf("second snooze drifted the anchor: %v", again.ScheduleAnchor)
	}
	if again.OriginalMessage != "stand up" {
		t.Fatalf("second snooze overwrote the original message: %q", again.OriginalMessage)
	}
	if again.Message != "(snoozed 5min) stand up" {
		t.Fatalf("decorated message wrong: %q", again.Message)
	}
}

func TestAcknowledgeOneShotArchives(t *testing.T) {
	start := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	service, _, clock := newTestService(t, start)

	alarm, err := service.Create(context.Background(), "user-1", AlarmInput{
		Message: "dentist",
		FireAt:  start.Add(30 * time.Minute),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clock.advance(31 * time.Minute)
	acked, err := service.Acknowledge(context.Background(), alarm.ID, "user-1")
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if acked.Status != alarms.StatusFired {
		t.Fatalf("one-shot should archive, got %q", acked.Status)
	}
}

func TestAcknowledgeForeignAlarmIsNotFound(t *testing.T) {
	start := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	service, _, _ := newTestService(t, start)

	alarm := seedAlarm(t, service, "user-1", start.Add(time.Hour))

	_, err := service.Acknowledge(context.Background(), alarm.ID, "user-2")
	if !errors.Is(err, alarms.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another owner, got %v", err)
	}
}

func TestSnoozeRequiresPositiveMinutes(t *testing.T) {
	start := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	service, _, _ := newTestService(t, start)
	alarm := seedAlarm(t, service, "user-1", start.Add(time.Hour))

	for _, minutes := range []int{0, -5} {
		if _, err := service.Snooze(context.Background(), alarm.ID, "user-1", minutes); !errors.Is(err, alarms.ErrInvalid) {
			t.Fatalf("minutes=%d: expected ErrInvalid, got %v", minutes, err)
		}
	}
}

func TestEditClearsSnoozeAndRecomputes(t *testing.T) {
	start := time.Date(2024, time.March, 4, 8, 56, 0, 0, time.UTC)
	service, _, _ := newTestService(t, start)

	anchor := time.Date(2024, time.March, 4, 8, 55, 0, 0, time.UTC)
	alarm := seedAlarm(t, service, "user-1", anchor)
	if _, err := service.Snooze(context.Background(), alarm.ID, "user-1", 10); err != nil {
		t.Fatalf("snooze: %v", err)
	}

	edited, err := service.Edit(context.Background(), alarm.ID, "user-1", AlarmInput{
		Message:        "stretch",
		FireAt:         anchor,
		IsRecurring:    true,
		RecurrenceKind: "daily",
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Snoozed() || edited.OriginalMessage != "" || !edited.ScheduleAnchor.IsZero() {
		t.Fatalf("edit should clear snooze fields: %+v", edited)
	}
	want := time.Date(2024, time.March, 5, 8, 55, 0, 0, time.UTC)
	if !edited.FireAt.Equal(want) {
		t.Fatalf("edit should recompute like creation, expected %v got %v", want, edited.FireAt)
	}
}

func TestDueAlarmsRecurringCatchesUpAfterDowntime(t *testing.T) {
	start := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	service, _, clock := newTestService(t, start)

	anchor := time.Date(2024, time.March, 4, 8, 55, 0, 0, time.UTC)
	alarm := seedAlarm(t, service, "user-1", anchor)

	// Five days offline.
	clock.now = time.Date(2024, time.March, 9, 10, 0, 0, 0, time.UTC)
	due, err := service.DueAlarms(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("due alarms: %v", err)
	}
	if len(due) != 1 || due[0].ID != alarm.ID {
		t.Fatalf("expected the overdue recurring alarm exactly once, got %d entries", len(due))
	}

	reloaded, err := service.Get(context.Background(), alarm.ID, "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := time.Date(2024, time.March, 10, 8, 55, 0, 0, time.UTC)
	if !reloaded.FireAt.Equal(want) {
		t.Fatalf("expected reschedule to %v, got %v", want, reloaded.FireAt)
	}

	// A second check in the same instant must not report it again.
	due, err = service.DueAlarms(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("second due check: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("rescheduled alarm reported again: %d entries", len(due))
	}
}

func TestDueAlarmsStaleOneShotArchivedSilently(t *testing.T) {
	start := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	service, _, clock := newTestService(t, start)

	alarm, err := service.Create(context.Background(), "user-1", AlarmInput{
		Message: "meeting",
		FireAt:  start.Add(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clock.advance(100 * time.Minute) // 90 minutes overdue
	due, err := service.DueAlarms(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("due alarms: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("stale one-shot should not be reported, got %d entries", len(due))
	}

	reloaded, err := service.Get(context.Background(), alarm.ID, "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Status != alarms.StatusFired {
		t.Fatalf("stale one-shot should be archived, got %q", reloaded.Status)
	}
}

func TestDueAlarmsFreshOneShotReportedAndKeptActive(t *testing.T) {
	start := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	service, _, clock := newTestService(t, start)

	alarm, err := service.Create(context.Background(), "user-1", AlarmInput{
		Message: "tea",
		FireAt:  start.Add(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clock.advance(15 * time.Minute) // 5 minutes overdue
	due, err := service.DueAlarms(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("due alarms: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("fresh one-shot should be reported, got %d entries", len(due))
	}

	reloaded, err := service.Get(context.Background(), alarm.ID, "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Status != alarms.StatusActive {
		t.Fatalf("fresh one-shot should stay active until acknowledged, got %q", reloaded.Status)
	}
}

func TestClearHistoryAndRetentionSweep(t *testing.T) {
	now := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	service, repo, _ := newTestService(t, now)

	old := alarms.Alarm{
		ID: "old", OwnerID: "user-1", Message: "ancient",
		FireAt: now.Add(-45 * 24 * time.Hour), Status: alarms.StatusFired,
	}
	recent := alarms.Alarm{
		ID: "recent", OwnerID: "user-1", Message: "yesterday",
		FireAt: now.Add(-24 * time.Hour), Status: alarms.StatusFired,
	}
	other := alarms.Alarm{
		ID: "other", OwnerID: "user-2", Message: "theirs",
		FireAt: now.Add(-40 * 24 * time.Hour), Status: alarms.StatusFired,
	}
	for _, alarm := range []alarms.Alarm{old, recent, other} {
		a := alarm
		if err := repo.Insert(context.Background(), &a); err != nil {
			t.Fatalf("seed %s: %v", alarm.ID, err)
		}
	}

	deleted, err := service.SweepHistory(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("sweep should remove both 30d+ records across owners, got %d", deleted)
	}

	cleared, err := service.ClearHistory(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("clear history: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("clear history should remove the remaining record, got %d", cleared)
	}
}

func TestLegacyOwnerRepresentationStillMatches(t *testing.T) {
	now := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	service, repo, _ := newTestService(t, now)

	legacy := alarms.Alarm{
		ID:      "legacy",
		OwnerID: `ObjectId("user-1")`,
		Message: "old writer",
		FireAt:  now.Add(time.Hour),
		Status:  alarms.StatusActive,
	}
	if err := repo.Insert(context.Background(), &legacy); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := service.Get(context.Background(), "legacy", "user-1")
	if err != nil {
		t.Fatalf("legacy-owned record should be visible: %v", err)
	}
	if got.ID != "legacy" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func seedAlarm(t *testing.T, service *Service, ownerID string, fireAt time.Time) *alarms.Alarm {
	t.Helper()
	alarm, err := service.Create(context.Background(), ownerID, AlarmInput{
		Message:        "stand up",
		FireAt:         fireAt,
		IsRecurring:    true,
		RecurrenceKind: "daily",
	})
	if err != nil {
		t.Fatalf("seed alarm: %v", err)
	}
	return alarm
}
