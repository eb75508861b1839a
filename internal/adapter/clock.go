package adapter

import "time"

// Clock supplies run timestamps so plans and reports can be pinned in tests
//
//go:generate mockgen -source=clock.go -destination=../mocks/clock.go -package=mocks -mock_names=Clock=MockClock
type Clock interface {
	// Now returns the current time in UTC
	Now() time.Time

	// Since returns the time elapsed since t
	Since(t time.Time) time.Duration
}

type systemClock struct{}

// NewClock returns a Clock backed by the system time
func NewClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func (systemClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}
