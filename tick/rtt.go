package tick

import "time"

// RTTSample is one instantaneous ping/pong round-trip observation,
// kept distinct from the smoothed RTTTracker per the original
// implementation's split between a raw sample and its tracker
// (original_source/shared/src/rtt/{rtt_measurer,rtt_tracker}.rs).
type RTTSample struct {
	RTT time.Duration
}

// RTTTracker maintains an exponentially-weighted moving average of
// RTT and of jitter (the absolute deviation of each sample from the
// running average), per spec.md §4.7.
type RTTTracker struct {
	alpha    float64
	avg      time.Duration
	jitter   time.Duration
	hasFirst bool
}

// NewRTTTracker seeds the tracker with initial estimates and a
// smoothing factor (default 0.1 per §4.7/§6).
func NewRTTTracker(initialRTT, initialJitter time.Duration, alpha float64) *RTTTracker {
	return &RTTTracker{
		alpha:  alpha,
		avg:    initialRTT,
		jitter: initialJitter,
	}
}

// Update folds a new sample into the running RTT/jitter averages.
func (t *RTTTracker) Update(sample RTTSample) {
	if !t.hasFirst {
		t.avg = sample.RTT
		t.hasFirst = true
		return
	}
	diff := sample.RTT - t.avg
	if diff < 0 {
		diff = -diff
	}
	t.jitter = time.Duration((1-t.alpha)*float64(t.jitter) + t.alpha*float64(diff))
	t.avg = time.Duration((1-t.alpha)*float64(t.avg) + t.alpha*float64(sample.RTT))
}

// RTT returns the smoothed round-trip-time estimate.
func (t *RTTTracker) RTT() time.Duration { return t.avg }

// Jitter returns the smoothed jitter estimate.
func (t *RTTTracker) Jitter() time.Duration { return t.jitter }
