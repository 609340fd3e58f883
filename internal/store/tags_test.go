package store

import (
	"reflect"
	"testing"
)

func TestNormalizeTagsSortsAndDedupes(t *testing.T) {
	got, err := NormalizeTags([]string{"Contract", "Verified", "Contract"})
	if err != nil {
		t.Fatalf("NormalizeTags: %v", err)
	}
	want := []string{"Contract", "Verified"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNormalizeTagsAutoAddsContractForSelfDestroyed(t *testing.T) {
	got, err := NormalizeTags([]string{"SelfDestroyed"})
	if err != nil {
		t.Fatalf("NormalizeTags: %v", err)
	}
	if !HasTag(got, TagContract) {
		t.Fatalf("expected Contract to be auto-added, got %v", got)
	}
}

func TestNormalizeTagsAutoAddsEOAForSmartWallet(t *testing.T) {
	got, err := NormalizeTags([]string{"SmartWallet"})
	if err != nil {
		t.Fatalf("NormalizeTags: %v", err)
	}
	if !HasTag(got, TagEOA) {
		t.Fatalf("expected EOA to be auto-added, got %v", got)
	}
}

func TestNormalizeTagsRejectsEOAAndContract(t *testing.T) {
	if _, err := NormalizeTags([]string{"EOA", "Contract"}); err == nil {
		t.Fatal("expected conflict error for EOA+Contract")
	}
}

func TestNormalizeTagsRejectsVerifiedAndUnverified(t *testing.T) {
	if _, err := NormalizeTags([]string{"Contract", "Verified", "Unverified"}); err == nil {
		t.Fatal("expected conflict error for Verified+Unverified")
	}
}

func TestNormalizeTagsRejectsUnknownTag(t *testing.T) {
	if _, err := NormalizeTags([]string{"NotATag"}); err == nil {
		t.Fatal("expected invalid-tag error")
	}
}

func TestHasTag(t *testing.T) {
	tags := []string{"Contract", "Verified"}
	if !HasTag(tags, TagContract) {
		t.Fatal("expected HasTag to find Contract")
	}
	if HasTag(tags, TagEOA) {
		t.Fatal("did not expect HasTag to find EOA")
	}
}
