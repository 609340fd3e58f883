package classify

import "testing"

func TestNormalizeIdempotent(t *testing.T) {
	cases := []string{
		"0xAAAA000000000000000000000000000000AAAA",
		"aaaa000000000000000000000000000000aaaa",
		"  \"0xAAAA000000000000000000000000000000AAAA\"  ",
		"bbbb",
	}
	for _, in := range cases {
		once, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		twice, err := Normalize(once)
		if err != nil {
			t.Fatalf("Normalize(Normalize(%q)): %v", in, err)
		}
		if once != twice {
			t.Errorf("not idempotent: Normalize(%q)=%q, Normalize(%q)=%q", in, once, once, twice)
		}
	}
}

func TestNormalizeCaseInsensitiveEquality(t *testing.T) {
	a, err := Normalize("0xAaAa000000000000000000000000000000aAaA")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Normalize("0xaaaa000000000000000000000000000000aaaa")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("expected case-insensitive equality, got %q vs %q", a, b)
	}
}

func TestNormalizeRejectsTooLong(t *testing.T) {
	_, err := Normalize("0x" + "ab000000000000000000000000000000000000001")
	if err == nil {
		t.Fatal("expected error for over-length input")
	}
}

func TestClassifyEOA(t *testing.T) {
	zero := "0x" + zeroHash
	if got := Classify(&zero, nil); got != KindEOA {
		t.Errorf("Classify(zero hash) = %v, want %v", got, KindEOA)
	}
}

func TestClassifyUnknownOnNilCodeHash(t *testing.T) {
	if got := Classify(nil, []byte{1, 2, 3}); got != KindUnknown {
		t.Errorf("Classify(nil codeHash) = %v, want %v", got, KindUnknown)
	}
}

func TestClassifyContract(t *testing.T) {
	h := "0xdeadbeef00000000000000000000000000000000000000000000000000000001"
	code := []byte{0x60, 0x80, 0x60, 0x40}
	if got := Classify(&h, code); got != KindSmartContract {
		t.Errorf("Classify(contract code) = %v, want %v", got, KindSmartContract)
	}
}

func TestClassifyEIP7702Delegation(t *testing.T) {
	h := "0xdeadbeef00000000000000000000000000000000000000000000000000000001"
	code := append([]byte{0xef, 0x01, 0x00}, make([]byte, 20)...)
	if got := Classify(&h, code); got != KindEIP7702EOA {
		t.Errorf("Classify(eip7702 delegation) = %v, want %v", got, KindEIP7702EOA)
	}
}

func TestClassifyEIP7702RequiresExactLength(t *testing.T) {
	h := "0xdeadbeef00000000000000000000000000000000000000000000000000000001"
	// Same prefix but wrong length must not be mistaken for a delegation.
	code := append([]byte{0xef, 0x01, 0x00}, make([]byte, 21)...)
	if got := Classify(&h, code); got != KindSmartContract {
		t.Errorf("Classify(oversized delegation-like code) = %v, want %v", got, KindSmartContract)
	}
}

func TestIsGenesisCreation(t *testing.T) {
	if !IsGenesisCreation("GENESIS") {
		t.Error("expected bare marker to match")
	}
	if !IsGenesisCreation("GENESIS-0") {
		t.Error("expected prefixed marker to match")
	}
	if IsGenesisCreation("0xabc123") {
		t.Error("expected ordinary tx hash to not match")
	}
}

func TestGenesisTimestamp(t *testing.T) {
	table := map[uint64]int64{1: 1438269973}
	ts, ok := GenesisTimestamp(table, 1)
	if !ok || ts != 1438269973 {
		t.Errorf("GenesisTimestamp(1) = (%d, %v), want (1438269973, true)", ts, ok)
	}
	if _, ok := GenesisTimestamp(table, 999); ok {
		t.Error("expected unknown chain id to miss")
	}
}
