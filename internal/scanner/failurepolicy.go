package scanner

import "github.com/bugchain/chainindexer/internal/rpcerr"

// action is the failure-policy verdict from spec §4.7's table, applied
// after a getLogs attempt fails.
type action int

const (
	actionRetrySameRange action = iota
	actionExcludeBlockAdvance
	actionAdvancePastRange
)

// decision bundles the action with the next batch size to try, if the
// action retries.
type decision struct {
	action  action
	newSize uint64
}

// decide implements spec §4.7's failure-policy-by-error-kind table.
// size is the block-range size that just failed; retries counts prior
// attempts at this same range.
func decide(sz *batchSizer, kind rpcerr.Kind, size uint64, retries int, suggested uint64) decision {
	switch kind {
	case rpcerr.KindTimeout:
		if size == 1 && retries >= 3 {
			return decision{action: actionExcludeBlockAdvance}
		}
		if retries < 5 {
			return decision{action: actionRetrySameRange, newSize: sz.shrinkHalf()}
		}
		return decision{action: actionAdvancePastRange, newSize: sz.shrinkHalf()}

	case rpcerr.KindTooManyResults, rpcerr.KindBlockRangeExceeded:
		return decision{action: actionRetrySameRange, newSize: sz.shrinkToSuggested(suggested)}

	case rpcerr.KindResponseTooLarge:
		return decision{action: actionRetrySameRange, newSize: sz.shrinkSlow()}

	case rpcerr.KindExhausted:
		if size == 1 {
			return decision{action: actionExcludeBlockAdvance}
		}
		return decision{action: actionAdvancePastRange, newSize: sz.shrinkHalf()}

	default:
		return decision{action: actionAdvancePastRange, newSize: size}
	}
}
