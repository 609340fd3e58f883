package balance

import "testing"

func TestChunkSizeStartsAt200(t *testing.T) {
	c := newChunkSize()
	if c.current != chunkStart {
		t.Fatalf("expected start size %d, got %d", chunkStart, c.current)
	}
}

func TestChunkSizeGrowsAfterThreeSuccesses(t *testing.T) {
	c := newChunkSize()
	c.onSuccess()
	c.onSuccess()
	if c.current != chunkStart {
		t.Fatalf("expected no growth before 3rd success, got %d", c.current)
	}
	c.onSuccess()
	if c.current != chunkStart+chunkGrow {
		t.Fatalf("expected growth to %d after 3rd success, got %d", chunkStart+chunkGrow, c.current)
	}
}

func TestChunkSizeGrowthCapped(t *testing.T) {
	c := newChunkSize()
	c.current = chunkCeil
	for i := 0; i < growAfter; i++ {
		c.onSuccess()
	}
	if c.current != chunkCeil {
		t.Fatalf("expected size capped at %d, got %d", chunkCeil, c.current)
	}
}

func TestChunkSizeShrinksOnFailure(t *testing.T) {
	c := newChunkSize()
	c.onFailure()
	want := clamp(int(float64(chunkStart)*0.6), chunkFloor, chunkCeil)
	if c.current != want {
		t.Fatalf("expected shrink to %d, got %d", want, c.current)
	}
}

func TestChunkSizeShrinkFlooredAt20(t *testing.T) {
	c := newChunkSize()
	c.current = chunkFloor + 1
	c.onFailure()
	if c.current != chunkFloor {
		t.Fatalf("expected floor at %d, got %d", chunkFloor, c.current)
	}
}

func TestChunkSizeFailureResetsConsecutiveCounter(t *testing.T) {
	c := newChunkSize()
	c.onSuccess()
	c.onSuccess()
	c.onFailure()
	if c.consecutive != 0 {
		t.Fatalf("expected consecutive counter reset, got %d", c.consecutive)
	}
}
