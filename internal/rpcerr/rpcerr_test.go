package rpcerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTimeout(t *testing.T) {
	e := Classify(errors.New("context deadline exceeded"), false)
	assert.Equal(t, KindTimeout, e.Kind)
}

func TestClassifyResponseTooLarge(t *testing.T) {
	e := Classify(errors.New("query returned more than 10000 results, response too large"), false)
	assert.Equal(t, KindResponseTooLarge, e.Kind)
}

func TestClassifyBlockRangeExceededWithHint(t *testing.T) {
	e := Classify(errors.New("block range exceeded, try a range of 2000 blocks or less"), false)
	assert.Equal(t, KindBlockRangeExceeded, e.Kind)
	assert.Equal(t, uint64(2000), e.SuggestedRange)
}

func TestClassifyExhausted(t *testing.T) {
	e := Classify(errors.New("all endpoints failed"), false)
	assert.Equal(t, KindExhausted, e.Kind)
}

func TestClassifyTransientFallback(t *testing.T) {
	e := Classify(errors.New("connection reset by peer"), false)
	assert.Equal(t, KindTransient, e.Kind)
}

func TestAsUnwraps(t *testing.T) {
	base := errors.New("timeout talking to gateway")
	wrapped := Classify(base, true)
	var err error = wrapped
	got, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, got.Kind)
	assert.True(t, errors.Is(err, err))
}
