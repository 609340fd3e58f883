package scanner

import (
	"github.com/bugchain/chainindexer/internal/config"
	"github.com/bugchain/chainindexer/internal/rpcclient"
)

// Activity is a chain's expected log density, spec §4.7's
// "activity table (high-activity, medium-activity, low-activity)".
type Activity int

const (
	ActivityHigh Activity = iota
	ActivityMedium
	ActivityLow
)

// Profile yields the initial/min/max batch size and the target duration
// and result count the adaptive sizer tunes toward.
type Profile struct {
	InitialBatch  uint64
	MinBatch      uint64
	MaxBatch      uint64
	TargetSeconds float64
	TargetResults int
}

// profileTable is the activity × tier matrix from spec §4.7.
var profileTable = map[Activity]map[rpcclient.Tier]Profile{
	ActivityHigh: {
		config.TierFree:     {InitialBatch: 5, MinBatch: 1, MaxBatch: 10, TargetSeconds: 4, TargetResults: 800},
		config.TierPremium:  {InitialBatch: 50, MinBatch: 5, MaxBatch: 2000, TargetSeconds: 4, TargetResults: 2000},
	},
	ActivityMedium: {
		config.TierFree:    {InitialBatch: 10, MinBatch: 1, MaxBatch: 10, TargetSeconds: 4, TargetResults: 500},
		config.TierPremium: {InitialBatch: 200, MinBatch: 10, MaxBatch: 5000, TargetSeconds: 4, TargetResults: 1500},
	},
	ActivityLow: {
		config.TierFree:    {InitialBatch: 10, MinBatch: 1, MaxBatch: 10, TargetSeconds: 4, TargetResults: 300},
		config.TierPremium: {InitialBatch: 1000, MinBatch: 50, MaxBatch: 10000, TargetSeconds: 4, TargetResults: 1000},
	},
}

// ProfileFor selects the batch-sizing profile for a chain's activity
// level and RPC tier, falling back to the medium activity row if the
// activity level is unrecognized and to that row's free-tier profile if
// the tier is unrecognized.
func ProfileFor(activity Activity, tier rpcclient.Tier) Profile {
	byTier, ok := profileTable[activity]
	if !ok {
		byTier = profileTable[ActivityMedium]
	}
	p, ok := byTier[tier]
	if !ok {
		p = byTier[config.TierFree]
	}
	return p
}
