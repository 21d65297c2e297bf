package analytics

import "time"

const (
	DefaultSpikeThreshold = 10
	SpikeWindow           = time.Minute
)

// SpikeRule raises an info alert whenever more than Threshold events were
// logged during the trailing minute. It keeps no state between evaluations, so
// a sustained spike fires on every check.
type SpikeRule struct {
	Threshold int
	clock     Clock
}

func NewSpikeRule(threshold int, clock Clock) *SpikeRule {
	if threshold <= 0 {
		threshold = DefaultSpikeThreshold
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &SpikeRule{Threshold: threshold, clock: clock}
}

func (r *SpikeRule) Check(store *Store) *Alert {
	count := store.CountEventsSince(r.clock.Now().Add(-SpikeWindow))
	if count <= r.Threshold {
		return nil
	}

	return &Alert{
		Level:   AlertInfo,
		Message: "High visitor activity detected!",
		Details: map[string]any{
			"visitors_last_minute": count,
			"threshold":            r.Threshold,
		},
	}
}
