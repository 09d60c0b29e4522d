package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	alarms "alarmhub/internal/alarms/domain"
	"alarmhub/internal/audit"
	"alarmhub/internal/observability/metrics"
)

const (
	historyLimit = 100

	// One-shot alarms overdue beyond this window are archived without being
	// reported, so a client that was offline for hours is not flooded with
	// stale reminders.
	defaultStalenessWindow = 60 * time.Minute

	// Resolved alarms older than this are removed by the retention sweep.
	defaultRetentionWindow = 30 * 24 * time.Hour
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Service drives alarms through their lifecycle: create/edit, acknowledge,
// snooze, due-checks and the retention sweep.
type Service struct {
	repo      alarms.Repository
	clock     Clock
	auditor   audit.Logger
	logger    *log.Logger
	staleness time.Duration
	retention time.Duration
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithAuditLogger assigns an audit logger for mutating operations.
func WithAuditLogger(auditor audit.Logger) ServiceOption {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *log.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithStalenessWindow overrides the one-shot due-reporting window.
func WithStalenessWindow(window time.Duration) ServiceOption {
	return func(s *Service) {
		if window > 0 {
			s.staleness = window
		}
	}
}

// WithRetentionWindow overrides the history retention window.
func WithRetentionWindow(window time.Duration) ServiceOption {
	return func(s *Service) {
		if window > 0 {
			s.retention = window
		}
	}
}

// NewService constructs the lifecycle service.
func NewService(repo alarms.Repository, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("alarms: nil repository")
	}
	service := &Service{
		repo:      repo,
		clock:     systemClock{},
		staleness: defaultStalenessWindow,
		retention: defaultRetentionWindow,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// AlarmInput carries the caller-supplied alarm definition for create and edit.
type AlarmInput struct {
	Message        string
	FireAt         time.Time
	IsRecurring    bool
	RecurrenceKind string
	WeekDays       []int
	MonthDays      []int
}

// Create validates the input and stores a new active alarm. A recurring
// alarm's fire time is computed from the supplied base time; a one-shot
// alarm uses it verbatim and must not be in the past.
func (s *Service) Create(ctx context.Context, ownerID string, in AlarmInput) (*alarms.Alarm, error) {
	started := s.clock.Now()
	alarm, err := s.create(ctx, ownerID, in)
	metrics.ObserveOp("create", err, s.clock.Now().Sub(started))
	if err != nil {
		return nil, err
	}
	s.auditLog(ctx, ownerID, "alarm.create", alarm.ID, alarm)
	return alarm, nil
}

func (s *Service) create(ctx context.Context, ownerID string, in AlarmInput) (*alarms.Alarm, error) {
	alarm, err := s.buildAlarm(ownerID, in)
	if err != nil {
		return nil, err
	}
	alarm.ID = uuid.NewString()
	now := s.clock.Now()
	alarm.CreatedAt = now
	alarm.UpdatedAt = now
	if err := s.repo.Insert(ctx, alarm); err != nil {
		return nil, err
	}
	return alarm, nil
}

// Edit re-validates and recomputes the fire time exactly as creation does,
// forces the alarm back to active and clears any snooze state.
func (s *Service) Edit(ctx context.Context, id, ownerID string, in AlarmInput) (*alarms.Alarm, error) {
	started := s.clock.Now()
	alarm, err := s.edit(ctx, id, ownerID, in)
	metrics.ObserveOp("edit", err, s.clock.Now().Sub(started))
	if err != nil {
		return nil, err
	}
	s.auditLog(ctx, ownerID, "alarm.edit", alarm.ID, alarm)
	return alarm, nil
}

func (s *Service) edit(ctx context.Context, id, ownerID string, in AlarmInput) (*alarms.Alarm, error) {
	existing, err := s.repo.FindOne(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	updated, err := s.buildAlarm(ownerID, in)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.clock.Now()
	ok, err := s.repo.Update(ctx, updated, existing.Status, existing.FireAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, alarms.ErrConflict
	}
	return updated, nil
}

// buildAlarm turns an input into a normalized, validated active alarm with
// its fire time resolved. Snooze fields are never carried in.
func (s *Service) buildAlarm(ownerID string, in AlarmInput) (*alarms.Alarm, error) {
	kind, ok := alarms.ParseRecurrenceKind(in.RecurrenceKind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown recurrence kind %q", alarms.ErrInvalid, in.RecurrenceKind)
	}
	if in.IsRecurring && kind == alarms.RecurrenceNone {
		return nil, fmt.Errorf("%w: recurring alarm needs a recurrence kind", alarms.ErrInvalid)
	}
	alarm := &alarms.Alarm{
		OwnerID:        ownerID,
		FireAt:         in.FireAt.Truncate(time.Second),
		Message:        in.Message,
		Status:         alarms.StatusActive,
		IsRecurring:    in.IsRecurring,
		RecurrenceKind: kind,
		WeekDays:       in.WeekDays,
		MonthDays:      in.MonthDays,
	}
	alarm.Normalize()
	if err := alarm.Validate(); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if alarm.IsRecurring {
		alarm.FireAt = alarms.NextOccurrence(now, in.FireAt, alarm.RecurrenceKind, alarm.WeekDays, alarm.MonthDays)
		metrics.IncRecurrence(string(alarm.RecurrenceKind))
	} else if !alarm.FireAt.After(now) {
		return nil, fmt.Errorf("%w: fire time is in the past", alarms.ErrInvalid)
	}
	return alarm, nil
}

// Get loads one owned alarm.
func (s *Service) Get(ctx context.Context, id, ownerID string) (*alarms.Alarm, error) {
	return s.repo.FindOne(ctx, id, ownerID)
}

// ListActive returns scheduled alarms, soonest first.
func (s *Service) ListActive(ctx context.Context, ownerID string) ([]alarms.Alarm, error) {
	return s.repo.Find(ctx, alarms.Query{
		OwnerID:  ownerID,
		Statuses: []alarms.Status{alarms.StatusActive},
		SortAsc:  true,
	})
}

// ListHistory returns resolved alarms, newest first.
func (s *Service) ListHistory(ctx context.Context, ownerID string) ([]alarms.Alarm, error) {
	return s.repo.Find(ctx, alarms.Query{
		OwnerID:  ownerID,
		Statuses: []alarms.Status{alarms.StatusFired},
		SortAsc:  false,
		Limit:    historyLimit,
	})
}

// ClearHistory deletes the caller's resolved alarms.
func (s *Service) ClearHistory(ctx context.Context, ownerID string) (int64, error) {
	started := s.clock.Now()
	deleted, err := s.repo.DeleteMany(ctx, ownerID, []alarms.Status{alarms.StatusFired}, time.Time{})
	metrics.ObserveOp("clear_history", err, s.clock.Now().Sub(started))
	return deleted, err
}

// Delete removes one owned alarm.
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	started := s.clock.Now()
	err := s.delete(ctx, id, ownerID)
	metrics.ObserveOp("delete", err, s.clock.Now().Sub(started))
	if err == nil {
		s.auditLog(ctx, ownerID, "alarm.delete", id, nil)
	}
	return err
}

func (s *Service) delete(ctx context.Context, id, ownerID string) error {
	deleted, err := s.repo.Delete(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return alarms.ErrNotFound
	}
	return nil
}

// Acknowledge resolves a fired alarm: a recurring alarm is rescheduled from
// its schedule anchor with its original message restored; a one-shot alarm
// moves to history.
func (s *Service) Acknowledge(ctx context.Context, id, ownerID string) (*alarms.Alarm, error) {
	started := s.clock.Now()
	updated, _, err := s.resolve(ctx, id, ownerID)
	metrics.ObserveOp("ack", err, s.clock.Now().Sub(started))
	if err != nil {
		return nil, err
	}
	s.auditLog(ctx, ownerID, "alarm.ack", id, updated)
	return updated, nil
}

// Ring performs the same resolution as Acknowledge but returns the alarm as
// it fired, for the client to display.
func (s *Service) Ring(ctx context.Context, id, ownerID string) (*alarms.Alarm, error) {
	started := s.clock.Now()
	_, fired, err := s.resolve(ctx, id, ownerID)
	metrics.ObserveOp("ring", err, s.clock.Now().Sub(started))
	if err != nil {
		return nil, err
	}
	s.auditLog(ctx, ownerID, "alarm.ring", id, fired)
	return fired, nil
}

func (s *Service) resolve(ctx context.Context, id, ownerID string) (*alarms.Alarm, *alarms.Alarm, error) {
	alarm, err := s.repo.FindOne(ctx, id, ownerID)
	if err != nil {
		return nil, nil, err
	}
	fired := *alarm
	prevStatus, prevFireAt := alarm.Status, alarm.FireAt

	now := s.clock.Now()
	if alarm.IsRecurring {
		s.reschedule(alarm, now)
	} else {
		s.archive(alarm, now)
	}

	ok, err := s.repo.Update(ctx, alarm, prevStatus, prevFireAt)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, alarms.ErrConflict
	}
	return alarm, &fired, nil
}

// reschedule advances a recurring alarm to its next occurrence. The
// pre-snooze anchor, when present, keeps the long-run time-of-day stable no
// matter how the alarm was deferred.
func (s *Service) reschedule(alarm *alarms.Alarm, now time.Time) {
	alarm.FireAt = alarms.NextOccurrence(now, alarm.Anchor(), alarm.RecurrenceKind, alarm.WeekDays, alarm.MonthDays)
	alarm.Status = alarms.StatusActive
	alarm.ClearSnooze()
	alarm.UpdatedAt = now
	metrics.IncRecurrence(string(alarm.RecurrenceKind))
}

// archive moves a one-shot alarm to history, dropping stray snooze fields
// without rewriting the message.
func (s *Service) archive(alarm *alarms.Alarm, now time.Time) {
	alarm.Status = alarms.StatusFired
	alarm.OriginalMessage = ""
	alarm.ScheduleAnchor = time.Time{}
	alarm.UpdatedAt = now
}

// Snooze defers the alarm by the given minutes. The first snooze captures
// the current message and fire time; repeated snoozes keep the captured
// values so the long-run schedule anchor never drifts.
func (s *Service) Snooze(ctx context.Context, id, ownerID string, minutes int) (*alarms.Alarm, error) {
	started := s.clock.Now()
	alarm, err := s.snooze(ctx, id, ownerID, minutes)
	metrics.ObserveOp("snooze", err, s.clock.Now().Sub(started))
	if err != nil {
		return nil, err
	}
	metrics.IncSnooze()
	s.auditLog(ctx, ownerID, "alarm.snooze", id, alarm)
	return alarm, nil
}

func (s *Service) snooze(ctx context.Context, id, ownerID string, minutes int) (*alarms.Alarm, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("%w: snooze minutes must be positive", alarms.ErrInvalid)
	}
	alarm, err := s.repo.FindOne(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	prevStatus, prevFireAt := alarm.Status, alarm.FireAt

	baseMessage := alarm.Message
	if alarm.OriginalMessage != "" {
		baseMessage = alarm.OriginalMessage
	}
	anchor := alarm.FireAt
	if !alarm.ScheduleAnchor.IsZero() {
		anchor = alarm.ScheduleAnchor
	}

	now := s.clock.Now()
	alarm.FireAt = now.Add(time.Duration(minutes) * time.Minute)
	alarm.Status = alarms.StatusActive
	alarm.OriginalMessage = baseMessage
	alarm.ScheduleAnchor = anchor
	alarm.Message = fmt.Sprintf("(snoozed %dmin) %s", minutes, baseMessage)
	alarm.UpdatedAt = now

	ok, err := s.repo.Update(ctx, alarm, prevStatus, prevFireAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, alarms.ErrConflict
	}
	return alarm, nil
}

// DueAlarms reports the caller's alarms that should ring now. Recurring
// alarms are always due regardless of how overdue, and are rescheduled in
// the same call. One-shot alarms are reported only inside the staleness
// window and stay active until acknowledged; beyond the window they are
// archived silently. Each record is processed at most once per call.
func (s *Service) DueAlarms(ctx context.Context, ownerID string) ([]alarms.Alarm, error) {
	started := s.clock.Now()
	due, err := s.dueAlarms(ctx, ownerID)
	metrics.ObserveOp("due_check", err, s.clock.Now().Sub(started))
	return due, err
}

func (s *Service) dueAlarms(ctx context.Context, ownerID string) ([]alarms.Alarm, error) {
	now := s.clock.Now()
	candidates, err := s.repo.Find(ctx, alarms.Query{
		OwnerID:   ownerID,
		Statuses:  []alarms.Status{alarms.StatusActive},
		DueBefore: now,
		SortAsc:   true,
	})
	if err != nil {
		return nil, err
	}

	var due []alarms.Alarm
	for i := range candidates {
		alarm := candidates[i]
		snapshot := alarm
		prevStatus, prevFireAt := alarm.Status, alarm.FireAt

		if alarm.IsRecurring {
			s.reschedule(&alarm, now)
			ok, err := s.repo.Update(ctx, &alarm, prevStatus, prevFireAt)
			if err != nil {
				return due, err
			}
			if !ok {
				// Another check already handled this record.
				continue
			}
			metrics.IncDue("recurring")
			due = append(due, snapshot)
			continue
		}

		if now.Sub(alarm.FireAt) < s.staleness {
			metrics.IncDue("reported")
			due = append(due, snapshot)
			continue
		}

		s.archive(&alarm, now)
		if ok, err := s.repo.Update(ctx, &alarm, prevStatus, prevFireAt); err != nil {
			return due, err
		} else if ok {
			metrics.IncDue("stale_archived")
		}
	}
	return due, nil
}

// SweepHistory deletes resolved alarms past the retention window, across all
// owners. Safe to re-run; re-deleting an already-purged set is a no-op.
func (s *Service) SweepHistory(ctx context.Context) (int64, error) {
	started := s.clock.Now()
	cutoff := started.Add(-s.retention)
	deleted, err := s.repo.DeleteMany(ctx, "", []alarms.Status{alarms.StatusFired}, cutoff)
	metrics.ObserveOp("sweep", err, s.clock.Now().Sub(started))
	if err != nil {
		return 0, err
	}
	metrics.AddSweepDeleted(deleted)
	if s.logger != nil && deleted > 0 {
		s.logger.Printf("retention sweep removed %d alarms older than %s", deleted, cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}

func (s *Service) auditLog(ctx context.Context, actor, action, resourceID string, payload any) {
	if s.auditor == nil {
		return
	}
	var metadata json.RawMessage
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			metadata = data
		}
	}
	entry := audit.Entry{
		Actor:        actor,
		Action:       action,
		ResourceType: "alarm",
		ResourceID:   resourceID,
		Metadata:     metadata,
	}
	if err := s.auditor.Log(ctx, entry); err != nil && s.logger != nil {
		s.logger.Printf("audit log failed: %v", err)
	}
}
