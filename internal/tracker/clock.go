package tracker

import "time"

// Clock abstracts wall time so rollover and sleep-gap transitions are
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
