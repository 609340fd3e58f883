package store

import (
	"fmt"

	"github.com/bugchain/chainindexer/internal/classify"
)

// ValidateRow enforces the per-row invariants from spec §3. It is run
// before every upsert so a caller bug surfaces immediately rather than as
// silently corrupted state.
func ValidateRow(r AddressRow) error {
	tags := r.Tags

	// A SmartWallet is an EOA whose code_hash is populated (spec §3) — the
	// plain-EOA nulls below only apply when SmartWallet isn't also set.
	if HasTag(tags, TagEOA) && !HasTag(tags, TagSmartWallet) {
		if r.CodeHash != nil {
			return fmt.Errorf("store: invariant violated: EOA with non-nil code_hash for %s/%s", r.Network, r.Address)
		}
		if r.Deployed != nil {
			return fmt.Errorf("store: invariant violated: EOA with non-nil deployed for %s/%s", r.Network, r.Address)
		}
		if r.ContractName != nil {
			return fmt.Errorf("store: invariant violated: EOA with non-nil contract_name for %s/%s", r.Network, r.Address)
		}
		if r.NameChecked != nil && *r.NameChecked {
			return fmt.Errorf("store: invariant violated: EOA with name_checked=true for %s/%s", r.Network, r.Address)
		}
	}

	if HasTag(tags, TagContract) {
		if r.CodeHash == nil {
			return fmt.Errorf("store: invariant violated: Contract with nil code_hash for %s/%s", r.Network, r.Address)
		}
		if classify.IsZeroHash(*r.CodeHash) {
			return fmt.Errorf("store: invariant violated: Contract with zero-hash code_hash for %s/%s", r.Network, r.Address)
		}
	}

	if HasTag(tags, TagVerified) {
		if r.ContractName == nil {
			return fmt.Errorf("store: invariant violated: Verified with nil contract_name for %s/%s", r.Network, r.Address)
		}
		if r.NameChecked == nil || !*r.NameChecked {
			return fmt.Errorf("store: invariant violated: Verified with name_checked=false for %s/%s", r.Network, r.Address)
		}
	}

	if HasTag(tags, TagUnverified) && r.NameChecked != nil && *r.NameChecked {
		return fmt.Errorf("store: invariant violated: Unverified with name_checked=true for %s/%s", r.Network, r.Address)
	}

	if HasTag(tags, TagSelfDestroyed) {
		if !HasTag(tags, TagContract) {
			return fmt.Errorf("store: invariant violated: SelfDestroyed without Contract for %s/%s", r.Network, r.Address)
		}
		if r.Deployed != nil {
			return fmt.Errorf("store: invariant violated: SelfDestroyed with non-nil deployed for %s/%s", r.Network, r.Address)
		}
	}

	if HasTag(tags, TagSmartWallet) && !HasTag(tags, TagEOA) {
		return fmt.Errorf("store: invariant violated: SmartWallet without EOA for %s/%s", r.Network, r.Address)
	}

	if r.Deployed != nil && *r.Deployed > r.LastUpdated {
		return fmt.Errorf("store: invariant violated: deployed > last_updated for %s/%s", r.Network, r.Address)
	}
	if r.FirstSeen > r.LastUpdated {
		return fmt.Errorf("store: invariant violated: first_seen > last_updated for %s/%s", r.Network, r.Address)
	}

	return nil
}
