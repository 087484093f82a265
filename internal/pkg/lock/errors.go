package lock

import "errors"

// ErrBusy is returned when the user's lock is already held.
var ErrBusy = errors.New("user is busy")
