package storage

import "errors"

// ErrNoValue is returned when a key has no stored value. Callers treat any
// other error the same way: absence, never a failure of the flow.
var ErrNoValue = errors.New("no stored value")
