package explorer

import "testing"

func TestKeyRingRotatesOnBudgetExhaustion(t *testing.T) {
	r := newKeyRing([]string{"a", "b"}, 2, 100)
	k, _ := r.current()
	if k != "a" {
		t.Fatalf("expected initial key a, got %s", k)
	}
	r.recordRequest()
	r.recordRequest()
	k, _ = r.current()
	if k != "b" {
		t.Fatalf("expected rotation to b after budget exhausted, got %s", k)
	}
}

func TestKeyRingManualRotateWraps(t *testing.T) {
	r := newKeyRing([]string{"a", "b"}, 0, 100)
	r.rotate()
	r.rotate()
	k, _ := r.current()
	if k != "a" {
		t.Fatalf("expected wraparound back to a, got %s", k)
	}
}

func TestKeyRingSingleKeyDefault(t *testing.T) {
	r := newKeyRing(nil, 0, 100)
	if r.size() != 1 {
		t.Fatalf("expected default single empty key, got size %d", r.size())
	}
}
