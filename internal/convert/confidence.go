package convert

import "graphshift/internal/types"

// Score maps (tier, retry count, gap status, compile result) to a confidence
// level:
//
//	tier 1, compiles            -> high
//	tier 2, first try, compiles -> high
//	tier 2, retry, compiles     -> medium
//	tier 3, no gap, compiles    -> medium
//	tier 3, gap present         -> low (regardless of compile result)
//	anything that doesn't compile -> low
//
// Gap handling always needs a human reviewer, which is why a gap forces low
// even on a clean compile.
func Score(tier, retry int, gapPresent, valid bool) types.Confidence {
	if tier == 3 && gapPresent {
		return types.ConfidenceLow
	}
	if !valid {
		return types.ConfidenceLow
	}
	switch tier {
	case 1:
		return types.ConfidenceHigh
	case 2:
		if retry == 0 {
			return types.ConfidenceHigh
		}
		return types.ConfidenceMedium
	case 3:
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}
