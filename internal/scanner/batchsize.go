package scanner

import "time"

const (
	fastMultiplier = 1.8
	slowMultiplier = 0.5
)

// batchSizer is the adaptive block-range sizing state machine from spec
// §4.7, driven by the two signals duration and result count.
type batchSizer struct {
	profile Profile
	current uint64
}

func newBatchSizer(p Profile) *batchSizer {
	return &batchSizer{profile: p, current: p.InitialBatch}
}

// next adjusts and returns the batch size to use for the following
// fetch, given the previous batch's wall-clock duration and result
// count.
func (b *batchSizer) next(duration time.Duration, resultCount int) uint64 {
	target := b.profile.TargetSeconds
	secs := duration.Seconds()

	switch {
	case secs < target/3:
		b.current = b.clamp(scale(b.current, fastMultiplier))
	case secs < target:
		ratio := target / secs
		if ratio > 1.5 {
			ratio = 1.5
		}
		b.current = b.clamp(scale(b.current, ratio))
	case secs > target*3:
		b.current = b.clamp(scale(b.current, slowMultiplier))
	case secs > target*1.5:
		b.current = b.clamp(scale(b.current, slowMultiplier))
	}

	if b.profile.TargetResults > 0 && resultCount > int(float64(b.profile.TargetResults)*0.8) {
		b.current = b.clamp(scale(b.current, 0.8))
	}

	return b.current
}

// shrinkHalf halves the batch size, the failure-policy action for
// "timeout, retries < 5" and "too-many-results" (spec §4.7).
func (b *batchSizer) shrinkHalf() uint64 {
	b.current = b.clamp(scale(b.current, 0.5))
	return b.current
}

// shrinkSlow applies slowMultiplier, the failure-policy action for
// "response-size-exceeded".
func (b *batchSizer) shrinkSlow() uint64 {
	b.current = b.clamp(scale(b.current, slowMultiplier))
	return b.current
}

// shrinkToSuggested clamps current to the gateway-suggested range when
// one is available, otherwise falls back to shrinkHalf.
func (b *batchSizer) shrinkToSuggested(suggested uint64) uint64 {
	if suggested == 0 {
		return b.shrinkHalf()
	}
	b.current = b.clamp(suggested)
	return b.current
}

func (b *batchSizer) clamp(v uint64) uint64 {
	if v < b.profile.MinBatch {
		return b.profile.MinBatch
	}
	if v > b.profile.MaxBatch {
		return b.profile.MaxBatch
	}
	return v
}

func scale(v uint64, factor float64) uint64 {
	scaled := float64(v) * factor
	if scaled < 1 {
		return 1
	}
	return uint64(scaled)
}
