package price

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestIsValidRejectsNegative(t *testing.T) {
	if IsValid(decimal.NewFromInt(-1)) {
		t.Fatal("expected negative price to be invalid")
	}
}

func TestIsValidRejectsAboveCeiling(t *testing.T) {
	if IsValid(ReferenceCeiling.Add(decimal.NewFromInt(1))) {
		t.Fatal("expected above-ceiling price to be invalid")
	}
}

func TestIsValidAcceptsOrdinaryPrice(t *testing.T) {
	if !IsValid(decimal.NewFromFloat(1.23)) {
		t.Fatal("expected ordinary price to be valid")
	}
}

type stubSource struct {
	name  string
	price decimal.Decimal
	ok    bool
	err   error
}

func (s stubSource) Name() string { return s.name }
func (s stubSource) Price(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	return s.price, s.ok, s.err
}

func TestOracleFirstSourceWins(t *testing.T) {
	o := New([]Source{
		stubSource{name: "a", price: decimal.NewFromInt(5), ok: true},
		stubSource{name: "b", price: decimal.NewFromInt(99), ok: true},
	}, nil, zap.NewNop().Sugar())

	got, err := o.Price(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected first source's price 5, got %s", got)
	}
}

func TestOracleFallsThroughOnMiss(t *testing.T) {
	o := New([]Source{
		stubSource{name: "a", ok: false},
		stubSource{name: "b", price: decimal.NewFromInt(7), ok: true},
	}, nil, zap.NewNop().Sugar())

	got, err := o.Price(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("expected fallback source's price 7, got %s", got)
	}
}

func TestOracleSkipsImplausibleValue(t *testing.T) {
	o := New([]Source{
		stubSource{name: "a", price: ReferenceCeiling.Add(decimal.NewFromInt(1)), ok: true},
		stubSource{name: "b", price: decimal.NewFromInt(3), ok: true},
	}, nil, zap.NewNop().Sugar())

	got, err := o.Price(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected implausible first source to be skipped, got %s", got)
	}
}

func TestOracleCachesResult(t *testing.T) {
	calls := 0
	o := New([]Source{
		countingSource{fn: func() (decimal.Decimal, bool, error) {
			calls++
			return decimal.NewFromInt(5), true, nil
		}},
	}, nil, zap.NewNop().Sugar())

	for i := 0; i < 3; i++ {
		if _, err := o.Price(context.Background(), "ETH"); err != nil {
			t.Fatalf("Price: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 source call due to caching, got %d", calls)
	}
}

func TestOracleErrorWhenAllSourcesFailAndNoStore(t *testing.T) {
	o := New([]Source{
		stubSource{name: "a", err: errors.New("boom")},
	}, nil, zap.NewNop().Sugar())

	if _, err := o.Price(context.Background(), "ETH"); err == nil {
		t.Fatal("expected error when every source fails and no store fallback exists")
	}
}

type countingSource struct {
	fn func() (decimal.Decimal, bool, error)
}

func (c countingSource) Name() string { return "counting" }
func (c countingSource) Price(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	return c.fn()
}
