package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	alarms "alarmhub/internal/alarms/domain"
)

// AlarmRepository is an in-memory alarm store with the same contract as the
// Postgres repository, including guarded updates and representation-agnostic
// owner matching.
type AlarmRepository struct {
	mu   sync.RWMutex
	data map[string]*alarms.Alarm
}

// NewAlarmRepository constructs a repository.
func NewAlarmRepository() *AlarmRepository {
	return &AlarmRepository{data: make(map[string]*alarms.Alarm)}
}

// Find returns matching alarms sorted by fire time.
func (r *AlarmRepository) Find(ctx context.Context, q alarms.Query) ([]alarms.Alarm, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []alarms.Alarm
	for _, alarm := range r.data {
		if q.OwnerID != "" && !alarms.SameOwner(alarm.OwnerID, q.OwnerID) {
			continue
		}
		if !matchStatus(alarm.Status, q.Statuses) {
			continue
		}
		if !q.DueBefore.IsZero() && alarm.FireAt.After(q.DueBefore) {
			continue
		}
		result = append(result, *alarm)
	}
	sort.Slice(result, func(i, j int) bool {
		if q.SortAsc {
			return result[i].FireAt.Before(result[j].FireAt)
		}
		return result[i].FireAt.After(result[j].FireAt)
	})
	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

// FindOne returns the owned alarm or ErrNotFound.
func (r *AlarmRepository) FindOne(ctx context.Context, id, ownerID string) (*alarms.Alarm, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	alarm, ok := r.data[id]
	if !ok || !alarms.SameOwner(alarm.OwnerID, ownerID) {
		return nil, alarms.ErrNotFound
	}
	clone := *alarm
	return &clone, nil
}

// Insert stores a new alarm.
func (r *AlarmRepository) Insert(ctx context.Context, alarm *alarms.Alarm) error {
	_ = ctx
	if alarm == nil || alarm.ID == "" {
		return errors.New("memory repo: invalid alarm")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[alarm.ID]; exists {
		return errors.New("memory repo: duplicate id")
	}
	clone := *alarm
	r.data[alarm.ID] = &clone
	return nil
}

// Update rewrites the record while the status/fire-time snapshot still holds.
func (r *AlarmRepository) Update(ctx context.Context, alarm *alarms.Alarm, prevStatus alarms.Status, prevFireAt time.Time) (bool, error) {
	_ = ctx
	if alarm == nil || alarm.ID == "" {
		return false, errors.New("memory repo: invalid alarm")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.data[alarm.ID]
	if !ok || !alarms.SameOwner(existing.OwnerID, alarm.OwnerID) {
		return false, nil
	}
	if existing.Status != prevStatus || !existing.FireAt.Equal(prevFireAt) {
		return false, nil
	}
	clone := *alarm
	r.data[alarm.ID] = &clone
	return true, nil
}

// Delete removes the owned alarm.
func (r *AlarmRepository) Delete(ctx context.Context, id, ownerID string) (int64, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	alarm, ok := r.data[id]
	if !ok || !alarms.SameOwner(alarm.OwnerID, ownerID) {
		return 0, nil
	}
	delete(r.data, id)
	return 1, nil
}

// DeleteMany removes matching alarms, optionally scoped by owner and cutoff.
func (r *AlarmRepository) DeleteMany(ctx context.Context, ownerID string, statuses []alarms.Status, olderThan time.Time) (int64, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, alarm := range r.data {
		if ownerID != "" && !alarms.SameOwner(alarm.OwnerID, ownerID) {
			continue
		}
		if !matchStatus(alarm.Status, statuses) {
			continue
		}
		if !olderThan.IsZero() && !alarm.FireAt.Before(olderThan) {
			continue
		}
		delete(r.data, id)
		deleted++
	}
	return deleted, nil
}

func matchStatus(status alarms.Status, statuses []alarms.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
