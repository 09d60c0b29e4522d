package alarms

import "errors"

var (
	// ErrNotFound indicates no alarm owned by the caller matches. The same
	// error covers records owned by other users.
	ErrNotFound = errors.New("alarm: not found")

	// ErrInvalid indicates a malformed alarm definition or operation input.
	ErrInvalid = errors.New("alarm: invalid")

	// ErrConflict indicates a concurrent update won the read-modify-write race.
	ErrConflict = errors.New("alarm: concurrent update")
)
