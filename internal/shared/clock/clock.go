// Package clock provides an injectable time source.
// All storage and comparisons use UTC; implicit local timezone is prohibited.
// Components that evaluate expiry take a Clock instead of calling time.Now
// directly so that tests can control the observed instant.
package clock

import "time"

// Clock supplies the current time for expiry comparisons.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// System returns a Clock backed by the wall clock, in UTC.
func System() Clock {
	return systemClock{}
}
