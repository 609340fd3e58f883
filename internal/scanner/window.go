package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/bugchain/chainindexer/internal/explorer"
	"github.com/bugchain/chainindexer/internal/rpcclient"
)

// Window is the inclusive block range a single scan pass covers, spec
// §4.7's "window selection".
type Window struct {
	From uint64
	To   uint64
}

// SelectWindow maps a configured "time delay" in hours to a from-block
// via the explorer's block-by-timestamp lookup; to-block is the current
// chain head. The window never extends into the unknown future (spec
// §4.7).
func SelectWindow(ctx context.Context, exp explorer.Client, rpc rpcclient.Client, delayHours int) (Window, error) {
	if delayHours <= 0 {
		delayHours = 1
	}

	head, err := rpc.BlockNumber(ctx)
	if err != nil {
		return Window{}, fmt.Errorf("scanner: select window: block number: %w", err)
	}

	targetTS := time.Now().Add(-time.Duration(delayHours) * time.Hour).Unix()
	from, err := exp.BlockByTimestamp(ctx, targetTS, "before")
	if err != nil {
		return Window{}, fmt.Errorf("scanner: select window: block by timestamp: %w", err)
	}
	if from > head {
		from = head
	}

	return Window{From: from, To: head}, nil
}
