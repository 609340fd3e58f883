// Package rpcerr classifies RPC client failures into the typed kinds from
// spec §4.1 / §7 so the caller (scanner.Scanner) can decide whether to
// shrink, split, skip, or permanently exclude — the client itself never
// makes that policy decision.
package rpcerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a classified RPC failure category.
type Kind string

const (
	KindTimeout           Kind = "timeout"
	KindTooManyResults    Kind = "too_many_results"
	KindResponseTooLarge  Kind = "response_too_large"
	KindBlockRangeExceeded Kind = "block_range_exceeded"
	KindExhausted         Kind = "exhausted"
	KindTransient         Kind = "transient"
)

// Error wraps an underlying RPC failure with its classified Kind and,
// where the gateway offered one, a suggested block range.
type Error struct {
	Kind           Kind
	SuggestedRange uint64 // 0 if the gateway gave no hint
	Err            error
}

func (e *Error) Error() string {
	if e.SuggestedRange > 0 {
		return fmt.Sprintf("rpc: %s (suggested range %d): %v", e.Kind, e.SuggestedRange, e.Err)
	}
	return fmt.Sprintf("rpc: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// As reports whether err (or a wrapped cause) is an *Error, mirroring the
// errors.As contract for callers that just want the Kind.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// sizeMarkers are the substrings gateways are known to use for a
// response-size failure (spec §4.1: "returned more than N results",
// "response too large", "max message size").
var sizeMarkers = []string{
	"returned more than",
	"response too large",
	"max message size",
	"query returned more than",
	"result window is too large",
}

var tooManyResultsMarkers = []string{
	"too many results",
	"more than 10000 results",
	"query exceeded",
}

var rangeMarkers = []string{
	"block range",
	"range is too large",
	"exceeds the range",
}

var exhaustedMarkers = []string{
	"all endpoints",
	"all attempts failed",
	"no healthy upstream",
	"circuit breaker is open",
}

// Classify inspects a raw error from an underlying JSON-RPC / HTTP call and
// assigns it a Kind. timedOut should be true when the caller already knows
// the failure was a context deadline.
func Classify(err error, timedOut bool) *Error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())

	switch {
	case timedOut || strings.Contains(msg, "context deadline exceeded") || strings.Contains(msg, "timeout"):
		return &Error{Kind: KindTimeout, Err: err}
	case containsAny(msg, exhaustedMarkers):
		return &Error{Kind: KindExhausted, Err: err}
	case containsAny(msg, sizeMarkers):
		return &Error{Kind: KindResponseTooLarge, Err: err}
	case containsAny(msg, tooManyResultsMarkers):
		return &Error{Kind: KindTooManyResults, Err: err}
	case containsAny(msg, rangeMarkers):
		return &Error{Kind: KindBlockRangeExceeded, Err: err, SuggestedRange: extractSuggestedRange(msg)}
	default:
		return &Error{Kind: KindTransient, Err: err}
	}
}

func containsAny(msg string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// extractSuggestedRange does a best-effort scan for a gateway-suggested
// block span, e.g. "try a range of 2000 blocks or less". Returns 0 when no
// hint is present; the caller then falls back to its own shrink policy.
func extractSuggestedRange(msg string) uint64 {
	const marker = "range of "
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return 0
	}
	rest := msg[idx+len(marker):]
	var n uint64
	if _, err := fmt.Sscanf(rest, "%d", &n); err != nil {
		return 0
	}
	return n
}
