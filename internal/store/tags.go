package store

import "sort"

// Tag is a member of the closed label set from spec §3.
type Tag string

const (
	TagEOA           Tag = "EOA"
	TagContract      Tag = "Contract"
	TagVerified      Tag = "Verified"
	TagUnverified    Tag = "Unverified"
	TagSelfDestroyed Tag = "SelfDestroyed"
	TagSmartWallet   Tag = "SmartWallet"
)

var validTags = map[Tag]bool{
	TagEOA: true, TagContract: true, TagVerified: true,
	TagUnverified: true, TagSelfDestroyed: true, TagSmartWallet: true,
}

// NormalizeTags validates and canonically orders a tag set, enforcing the
// mutual-exclusion and retention invariants from spec §3:
//   - EOA and Contract are mutually exclusive.
//   - Verified and Unverified are mutually exclusive.
//   - SelfDestroyed implies Contract is retained alongside it.
//   - SmartWallet implies EOA is retained alongside it.
func NormalizeTags(tags []string) ([]string, error) {
	set := make(map[Tag]bool, len(tags))
	for _, t := range tags {
		tag := Tag(t)
		if !validTags[tag] {
			return nil, &InvalidTagError{Tag: t}
		}
		set[tag] = true
	}

	if set[TagSelfDestroyed] {
		set[TagContract] = true
	}
	if set[TagSmartWallet] {
		set[TagEOA] = true
	}

	if set[TagEOA] && set[TagContract] {
		return nil, &ConflictingTagsError{A: string(TagEOA), B: string(TagContract)}
	}
	if set[TagVerified] && set[TagUnverified] {
		return nil, &ConflictingTagsError{A: string(TagVerified), B: string(TagUnverified)}
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out, nil
}

// InvalidTagError reports a tag outside the closed set.
type InvalidTagError struct{ Tag string }

func (e *InvalidTagError) Error() string { return "store: invalid tag " + e.Tag }

// ConflictingTagsError reports two mutually-exclusive tags both present.
type ConflictingTagsError struct{ A, B string }

func (e *ConflictingTagsError) Error() string {
	return "store: conflicting tags " + e.A + " and " + e.B
}

// HasTag reports whether tags contains t.
func HasTag(tags []string, t Tag) bool {
	for _, x := range tags {
		if Tag(x) == t {
			return true
		}
	}
	return false
}
