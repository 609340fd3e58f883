package balance

import "golang.org/x/exp/constraints"

// chunkSize is the adaptive batch-size state machine from spec §4.6:
// start at 200, grow by 50 after 3 consecutive successes (capped at
// 500), shrink to 60% of current on any failure (floored at 20).
type chunkSize struct {
	current     int
	consecutive int
}

const (
	chunkStart = 200
	chunkFloor = 20
	chunkCeil  = 500
	chunkGrow  = 50
	growAfter  = 3
)

func newChunkSize() *chunkSize { return &chunkSize{current: chunkStart} }

func (c *chunkSize) onSuccess() {
	c.consecutive++
	if c.consecutive >= growAfter {
		c.current = clamp(c.current+chunkGrow, chunkFloor, chunkCeil)
		c.consecutive = 0
	}
}

func (c *chunkSize) onFailure() {
	c.consecutive = 0
	c.current = clamp(int(float64(c.current)*0.6), chunkFloor, chunkCeil)
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
