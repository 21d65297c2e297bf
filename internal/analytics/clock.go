package analytics

import "time"

// Clock abstracts wall-clock time so the rolling windows can be tested
// deterministically.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
