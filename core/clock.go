package core

import "time"

// Clock supplies the reference instant. Services never read the wall
// clock directly; "today" defaults and timestamps all derive from the
// injected clock, so tests are deterministic.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }
