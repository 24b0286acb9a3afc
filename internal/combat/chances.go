package combat

import "math"

// randomnessFactor is the strength ratio past which a battle is considered a
// foregone conclusion by the estimator.
const randomnessFactor = 4.0

// AttackingFleetChances estimates the attacker's win percentage in [0,100]
// from the two fleets' strengths. This is a display heuristic for players and
// the conflict record; the simulator never consumes it and its output carries
// no consistency obligation toward actual simulated odds.
func AttackingFleetChances(attackerStrength, defenderStrength float64) int {
	switch {
	case attackerStrength <= 0 && defenderStrength <= 0:
		return 50
	case defenderStrength <= 0:
		return 100
	case attackerStrength <= 0:
		return 0
	}

	stronger, weaker := attackerStrength, defenderStrength
	attackerIsStronger := true
	if defenderStrength > attackerStrength {
		stronger, weaker = defenderStrength, attackerStrength
		attackerIsStronger = false
	}

	var strongerChance int
	if stronger/weaker >= randomnessFactor {
		strongerChance = 99
	} else {
		offset := math.Round(100 * math.Log(stronger/weaker) / math.Log(randomnessFactor*randomnessFactor))
		strongerChance = 50 + int(offset)
		if strongerChance > 99 {
			strongerChance = 99
		}
		if strongerChance < 50 {
			strongerChance = 50
		}
	}

	if attackerIsStronger {
		return strongerChance
	}
	return 100 - strongerChance
}
