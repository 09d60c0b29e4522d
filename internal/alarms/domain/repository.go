package alarms

import (
	"context"
	"time"
)

// Query filters a Find call. A zero DueBefore means no due-time filter; a
// zero Limit means no limit.
type Query struct {
	OwnerID   string
	Statuses  []Status
	DueBefore time.Time
	SortAsc   bool
	Limit     int
}

// Repository is the alarm store. Owner matching is representation-agnostic:
// implementations must match records whose owner field was written either as
// the raw identifier or in the legacy wrapped object-id form.
type Repository interface {
	Find(ctx context.Context, q Query) ([]Alarm, error)
	// FindOne returns ErrNotFound when no record matches id and owner; it
	// never reveals whether the id exists under another owner.
	FindOne(ctx context.Context, id, ownerID string) (*Alarm, error)
	Insert(ctx context.Context, alarm *Alarm) error
	// Update rewrites the record only while its status and fire time still
	// match the given snapshot, so concurrent read-modify-write sequences on
	// the same alarm cannot interleave. It reports whether the write landed.
	Update(ctx context.Context, alarm *Alarm, prevStatus Status, prevFireAt time.Time) (bool, error)
	Delete(ctx context.Context, id, ownerID string) (int64, error)
	// DeleteMany removes records matching the statuses, optionally scoped to
	// an owner and to records scheduled before olderThan (zero = no cutoff).
	DeleteMany(ctx context.Context, ownerID string, statuses []Status, olderThan time.Time) (int64, error)
}
