package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	alarms "alarmhub/internal/alarms/domain"
)

// AlarmRepository is a Postgres repository for alarms. Owner and status
// predicates always cover the legacy encodings still present in old rows:
// wrapped object-id owners and pre-migration status values.
type AlarmRepository struct {
	db *sql.DB
}

// NewAlarmRepository constructs a repository.
func NewAlarmRepository(db *sql.DB) *AlarmRepository {
	return &AlarmRepository{db: db}
}

const alarmColumns = `id, owner_id, fire_at, message, status, is_recurring, recurrence_kind,
	week_days, month_days, original_message, schedule_anchor, created_at, updated_at`

// Find returns matching alarms sorted by fire time.
func (r *AlarmRepository) Find(ctx context.Context, q alarms.Query) ([]alarms.Alarm, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alarm repo: nil db")
	}

	var (
		conds []string
		args  []any
	)
	if q.OwnerID != "" {
		conds = append(conds, ownerCond(&args, q.OwnerID))
	}
	if len(q.Statuses) > 0 {
		conds = append(conds, statusCond(&args, q.Statuses))
	}
	if !q.DueBefore.IsZero() {
		args = append(args, q.DueBefore)
		conds = append(conds, fmt.Sprintf("fire_at <= $%d", len(args)))
	}

	query := "SELECT " + alarmColumns + " FROM alarms"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if q.SortAsc {
		query += " ORDER BY fire_at ASC"
	} else {
		query += " ORDER BY fire_at DESC"
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []alarms.Alarm
	for rows.Next() {
		alarm, err := scanAlarm(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *alarm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FindOne returns the owned alarm or ErrNotFound. Records owned by other
// users are indistinguishable from missing ones.
func (r *AlarmRepository) FindOne(ctx context.Context, id, ownerID string) (*alarms.Alarm, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alarm repo: nil db")
	}
	var args []any
	args = append(args, id)
	owner := ownerCond(&args, ownerID)
	row := r.db.QueryRowContext(ctx,
		"SELECT "+alarmColumns+" FROM alarms WHERE id = $1 AND "+owner, args...)
	alarm, err := scanAlarm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, alarms.ErrNotFound
		}
		return nil, err
	}
	return alarm, nil
}

// Insert stores a new alarm.
func (r *AlarmRepository) Insert(ctx context.Context, alarm *alarms.Alarm) error {
	if r == nil || r.db == nil {
		return errors.New("alarm repo: nil db")
	}
	if alarm == nil {
		return errors.New("alarm repo: nil alarm")
	}
	if alarm.ID == "" || alarm.OwnerID == "" {
		return errors.New("alarm repo: missing fields")
	}
	if alarm.CreatedAt.IsZero() {
		alarm.CreatedAt = time.Now().UTC()
	}
	if alarm.UpdatedAt.IsZero() {
		alarm.UpdatedAt = alarm.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO alarms (
	id, owner_id, fire_at, message, status, is_recurring, recurrence_kind,
	week_days, month_days, original_message, schedule_anchor, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7,
	$8, $9, $10, $11, $12, $13
)`,
		alarm.ID,
		alarms.CanonicalOwnerID(alarm.OwnerID),
		alarm.FireAt,
		alarm.Message,
		string(alarm.Status),
		alarm.IsRecurring,
		string(alarm.RecurrenceKind),
		joinDays(alarm.WeekDays),
		joinDays(alarm.MonthDays),
		nullableString(alarm.OriginalMessage),
		nullableTime(alarm.ScheduleAnchor),
		alarm.CreatedAt,
		alarm.UpdatedAt,
	)
	return err
}

// Update rewrites the record only while its stored status and fire time
// still match the given snapshot, so a concurrent resolution of the same
// alarm cannot be overwritten. The status guard also matches legacy
// encodings of the snapshot status.
func (r *AlarmRepository) Update(ctx context.Context, alarm *alarms.Alarm, prevStatus alarms.Status, prevFireAt time.Time) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("alarm repo: nil db")
	}
	if alarm == nil || alarm.ID == "" {
		return false, errors.New("alarm repo: invalid alarm")
	}

	args := []any{
		alarms.CanonicalOwnerID(alarm.OwnerID),
		alarm.FireAt,
		alarm.Message,
		string(alarm.Status),
		alarm.IsRecurring,
		string(alarm.RecurrenceKind),
		joinDays(alarm.WeekDays),
		joinDays(alarm.MonthDays),
		nullableString(alarm.OriginalMessage),
		nullableTime(alarm.ScheduleAnchor),
		alarm.UpdatedAt,
		alarm.ID,
	}
	owner := ownerCond(&args, alarm.OwnerID)
	status := statusCond(&args, []alarms.Status{prevStatus})
	args = append(args, prevFireAt)
	fireGuard := fmt.Sprintf("fire_at = $%d", len(args))

	result, err := r.db.ExecContext(ctx, `
UPDATE alarms SET
	owner_id = $1, fire_at = $2, message = $3, status = $4, is_recurring = $5,
	recurrence_kind = $6, week_days = $7, month_days = $8,
	original_message = $9, schedule_anchor = $10, updated_at = $11
WHERE id = $12 AND `+owner+" AND "+status+" AND "+fireGuard, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Delete removes the owned alarm and reports how many rows went away.
func (r *AlarmRepository) Delete(ctx context.Context, id, ownerID string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("alarm repo: nil db")
	}
	var args []any
	args = append(args, id)
	owner := ownerCond(&args, ownerID)
	result, err := r.db.ExecContext(ctx, "DELETE FROM alarms WHERE id = $1 AND "+owner, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteMany removes matching alarms, optionally scoped by owner and cutoff.
func (r *AlarmRepository) DeleteMany(ctx context.Context, ownerID string, statuses []alarms.Status, olderThan time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("alarm repo: nil db")
	}
	if len(statuses) == 0 {
		return 0, errors.New("alarm repo: status filter required")
	}

	var (
		conds []string
		args  []any
	)
	conds = append(conds, statusCond(&args, statuses))
	if ownerID != "" {
		conds = append(conds, ownerCond(&args, ownerID))
	}
	if !olderThan.IsZero() {
		args = append(args, olderThan)
		conds = append(conds, fmt.Sprintf("fire_at < $%d", len(args)))
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM alarms WHERE "+strings.Join(conds, " AND "), args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ownerCond appends the canonical and legacy owner representations to args
// and returns a predicate matching either.
func ownerCond(args *[]any, ownerID string) string {
	*args = append(*args, alarms.CanonicalOwnerID(ownerID))
	first := len(*args)
	*args = append(*args, alarms.LegacyOwnerID(ownerID))
	return fmt.Sprintf("(owner_id = $%d OR owner_id = $%d)", first, first+1)
}

// statusCond appends every stored encoding of the statuses to args and
// returns an IN predicate over them.
func statusCond(args *[]any, statuses []alarms.Status) string {
	var placeholders []string
	for _, status := range statuses {
		for _, form := range status.StoredForms() {
			*args = append(*args, form)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(*args)))
		}
	}
	return "status IN (" + strings.Join(placeholders, ", ") + ")"
}

type alarmScanner interface {
	Scan(dest ...any) error
}

func scanAlarm(row alarmScanner) (*alarms.Alarm, error) {
	var (
		alarm           alarms.Alarm
		rawStatus       string
		rawKind         string
		rawWeekDays     string
		rawMonthDays    string
		originalMessage sql.NullString
		scheduleAnchor  sql.NullTime
	)
	if err := row.Scan(
		&alarm.ID,
		&alarm.OwnerID,
		&alarm.FireAt,
		&alarm.Message,
		&rawStatus,
		&alarm.IsRecurring,
		&rawKind,
		&rawWeekDays,
		&rawMonthDays,
		&originalMessage,
		&scheduleAnchor,
		&alarm.CreatedAt,
		&alarm.UpdatedAt,
	); err != nil {
		return nil, err
	}

	alarm.OwnerID = alarms.CanonicalOwnerID(alarm.OwnerID)
	if status, ok := alarms.ParseStatus(rawStatus); ok {
		alarm.Status = status
	} else {
		alarm.Status = alarms.StatusFired
	}
	if kind, ok := alarms.ParseRecurrenceKind(rawKind); ok {
		alarm.RecurrenceKind = kind
	}
	alarm.WeekDays = splitDays(rawWeekDays, 0, 6)
	alarm.MonthDays = splitDays(rawMonthDays, 1, 31)
	if originalMessage.Valid {
		alarm.OriginalMessage = originalMessage.String
	}
	if scheduleAnchor.Valid {
		alarm.ScheduleAnchor = scheduleAnchor.Time.UTC()
	}
	alarm.FireAt = alarm.FireAt.UTC()
	alarm.CreatedAt = alarm.CreatedAt.UTC()
	alarm.UpdatedAt = alarm.UpdatedAt.UTC()
	return &alarm, nil
}

func joinDays(days []int) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, len(days))
	for i, day := range days {
		parts[i] = strconv.Itoa(day)
	}
	return strings.Join(parts, ",")
}

func splitDays(raw string, min, max int) []int {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	days := make([]int, 0, len(parts))
	for _, part := range parts {
		day, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		days = append(days, day)
	}
	return alarms.NormalizeDaySet(days, min, max)
}

func nullableTime(value time.Time) sql.NullTime {
	if value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value, Valid: true}
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
