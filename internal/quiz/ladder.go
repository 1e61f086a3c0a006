package quiz

import "edu-arena/internal/domain"

// MaxLevels caps the ladder length.
const MaxLevels = 15

// DefaultLadder returns tiers 1..15 worth their level, with safe havens at 5, 10 and 15.
func DefaultLadder() []domain.Tier {
	tiers := make([]domain.Tier, 0, MaxLevels)
	for level := 1; level <= MaxLevels; level++ {
		tiers = append(tiers, domain.Tier{
			Level:     level,
			Value:     level,
			SafeHaven: level%5 == 0,
		})
	}
	return tiers
}

// LadderFor slices ladder to the first n tiers, n bounded by MaxLevels and len(ladder).
func LadderFor(ladder []domain.Tier, n int) []domain.Tier {
	if n > MaxLevels {
		n = MaxLevels
	}
	if n > len(ladder) {
		n = len(ladder)
	}
	if n < 0 {
		n = 0
	}
	out := make([]domain.Tier, n)
	copy(out, ladder[:n])
	return out
}

// SafeHavenPayout returns the value of the highest safe-haven tier whose
// level is <= index, where index is the zero-based level the game ended on.
// The in-progress level is never credited, so index 0 always pays 0.
func SafeHavenPayout(ladder []domain.Tier, index int) int {
	best, payout := 0, 0
	for _, tier := range ladder {
		if tier.SafeHaven && tier.Level <= index && tier.Level > best {
			best = tier.Level
			payout = tier.Value
		}
	}
	return payout
}
