package combat

import (
	"sort"

	"github.com/MasteredSoftware/Astriarch-sub000/internal/fleet"
)

// Target-preference multipliers applied to a candidate's adjusted strength.
// Lower adjusted strength ranks first, so advantaged matchups always beat
// neutral ones and disadvantaged matchups are a last resort.
const (
	advantagedMultiplier    = 1
	neutralMultiplier       = 100
	disadvantagedMultiplier = 10000
)

// selectTarget picks the most desirable enemy ship for the firing ship to
// shoot, skipping enemies already lethally committed this round. Ties break on
// ship identifier so damage concentrates deterministically across otherwise
// identical ships.
func selectTarget(firer *fleet.Starship, enemy *fleet.Fleet, pending *pendingDamage) *fleet.Starship {
	candidates := make([]*fleet.Starship, 0, len(enemy.Starships))
	for _, ship := range enemy.Starships {
		if ship.Health-pending.against(ship.ID) > 0 {
			candidates = append(candidates, ship)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		left := adjustedStrength(firer, candidates[i], pending)
		right := adjustedStrength(firer, candidates[j], pending)
		if left != right {
			return left < right
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0]
}

// adjustedStrength scores a candidate by its remaining uncommitted health
// scaled by the matchup multiplier.
func adjustedStrength(firer, candidate *fleet.Starship, pending *pendingDamage) int {
	remaining := candidate.Health - pending.against(candidate.ID)
	switch {
	case firer.HasAdvantageAgainst(candidate.Type):
		return remaining * advantagedMultiplier
	case firer.HasDisadvantageAgainst(candidate.Type):
		return remaining * disadvantagedMultiplier
	default:
		return remaining * neutralMultiplier
	}
}
