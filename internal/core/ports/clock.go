package ports

import "time"

// Clock supplies the current instant. It is injected wherever expiry is
// computed or checked.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
