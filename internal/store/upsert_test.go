package store

import (
	"strings"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestBuildUpsertEmptyRows(t *testing.T) {
	if _, _, err := buildUpsert(nil); err == nil {
		t.Fatal("expected error for empty row set")
	}
}

func TestBuildUpsertSingleRow(t *testing.T) {
	rows := []AddressRow{{
		Address:     "0xabc",
		Network:     "ethereum",
		Tags:        []string{"EOA"},
		FirstSeen:   100,
		LastUpdated: 100,
	}}
	stmt, args, err := buildUpsert(rows)
	if err != nil {
		t.Fatalf("buildUpsert: %v", err)
	}
	if !strings.Contains(stmt, "$1") || !strings.Contains(stmt, "$12") {
		t.Fatalf("expected 12 placeholders for one row, got: %s", stmt)
	}
	if len(args) != 12 {
		t.Fatalf("expected 12 args, got %d", len(args))
	}
	if args[0] != "0xabc" || args[1] != "ethereum" {
		t.Fatalf("unexpected leading args: %v", args[:2])
	}
}

func TestBuildUpsertMultiRowPlaceholderOffsets(t *testing.T) {
	rows := []AddressRow{
		{Address: "0x1", Network: "ethereum", Tags: []string{"EOA"}, FirstSeen: 1, LastUpdated: 1},
		{Address: "0x2", Network: "ethereum", Tags: []string{"Contract"}, CodeHash: ptr("0xdead"), FirstSeen: 2, LastUpdated: 2},
	}
	stmt, args, err := buildUpsert(rows)
	if err != nil {
		t.Fatalf("buildUpsert: %v", err)
	}
	if !strings.Contains(stmt, "$13") {
		t.Fatalf("expected second row to start at $13, got: %s", stmt)
	}
	if len(args) != 24 {
		t.Fatalf("expected 24 args for two rows, got %d", len(args))
	}
}

func TestBuildUpsertRejectsInvalidRow(t *testing.T) {
	rows := []AddressRow{{
		Address:     "0xabc",
		Network:     "ethereum",
		Tags:        []string{"EOA"},
		CodeHash:    ptr("0xdead"),
		FirstSeen:   1,
		LastUpdated: 1,
	}}
	if _, _, err := buildUpsert(rows); err == nil {
		t.Fatal("expected invariant violation for EOA with code_hash")
	}
}

func TestBuildUpsertPreservesFundPointerNilness(t *testing.T) {
	rows := []AddressRow{{
		Address:     "0xabc",
		Network:     "ethereum",
		Tags:        []string{"EOA"},
		FirstSeen:   1,
		LastUpdated: 1,
		Fund:        nil,
	}}
	_, args, err := buildUpsert(rows)
	if err != nil {
		t.Fatalf("buildUpsert: %v", err)
	}
	// Fund is arg index 8 (0-based) per the 12-field layout.
	if args[8] != (*int64)(nil) {
		t.Fatalf("expected nil Fund to stay nil in args, got %v", args[8])
	}
}

func TestChunkSplitsEvenly(t *testing.T) {
	rows := make([]AddressRow, 5)
	chunks := chunk(rows, 2)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 2 || len(chunks[1]) != 2 || len(chunks[2]) != 1 {
		t.Fatalf("unexpected chunk sizes: %v", []int{len(chunks[0]), len(chunks[1]), len(chunks[2])})
	}
}

func TestChunkDefaultsSizeWhenNonPositive(t *testing.T) {
	rows := make([]AddressRow, 3)
	chunks := chunk(rows, 0)
	if len(chunks) != 1 {
		t.Fatalf("expected a single chunk using the default size, got %d", len(chunks))
	}
}
