package combat

import (
	"math/rand"
	"time"

	"github.com/MasteredSoftware/Astriarch-sub000/internal/fleet"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/logging"
)

// HomeSystemAdvantage is the flat defense chance bonus granted to a fleet that
// occupies a hex, modelling the defender's-ground edge over a fleet caught in
// transit. It applies symmetrically when both fleets are landed. The landed
// side already takes any mutual-destruction tie, so the bonus stays on the
// defense roll only.
const HomeSystemAdvantage = 0.05

// Outcome is the result of a resolved fleet engagement.
type Outcome int

const (
	// OutcomeDraw means both fleets were destroyed in deep space with no hex to arbitrate.
	OutcomeDraw Outcome = iota
	// OutcomeFleetAWins means the first participant's fleet survived or held its ground.
	OutcomeFleetAWins
	// OutcomeFleetBWins means the second participant's fleet survived or held its ground.
	OutcomeFleetBWins
)

// Rand is the randomness source consumed by the simulator. Injecting it keeps
// battles reproducible under a fixed seed; ambient randomness is never used.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Participant pairs a fleet with its owner's research-derived combat bonuses.
type Participant struct {
	Fleet *fleet.Fleet
	// AttackBonusChance is the probability that a shot's damage ceiling is raised.
	AttackBonusChance float64
	// DefenseBonusChance is the probability that an incoming shot's ceiling is lowered.
	DefenseBonusChance float64
}

// Simulator resolves fleet engagements using an injected randomness source.
type Simulator struct {
	rng    Rand
	logger *logging.Logger
}

// NewSimulator constructs a simulator. A nil rng falls back to a time-seeded
// source, which callers needing reproducibility should avoid.
func NewSimulator(rng Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{rng: rng, logger: logging.L()}
}

// pendingHit records a single not-yet-applied shot against a target.
type pendingHit struct {
	sourceID int
	damage   int
}

// pendingDamage is the per-round side table of damage accumulated against one
// fleet. Damage is staged here instead of on the ships so that every ship
// fires with its start-of-round health and kills are not over-counted.
type pendingDamage struct {
	hits   map[int][]pendingHit
	totals map[int]int
}

func newPendingDamage() *pendingDamage {
	return &pendingDamage{
		hits:   make(map[int][]pendingHit),
		totals: make(map[int]int),
	}
}

func (p *pendingDamage) add(targetID, sourceID, damage int) {
	p.hits[targetID] = append(p.hits[targetID], pendingHit{sourceID: sourceID, damage: damage})
	p.totals[targetID] += damage
}

// against returns the damage already committed against the target this round.
func (p *pendingDamage) against(targetID int) int {
	return p.totals[targetID]
}

// SimulateFleetBattle resolves an engagement between the two participants in
// place: both rosters are mutated as ships are destroyed. A fleet occupying a
// hex wins ties; when both fleets are landed the second participant, the
// defender by calling convention, takes the tie. Experience earned during the
// battle is credited to the winner's survivors only after resolution, so a
// ship can never level up mid-battle and change its own effective strength.
func (s *Simulator) SimulateFleetBattle(a, b Participant) Outcome {
	attackA, defenseA := effectiveChances(a)
	attackB, defenseB := effectiveChances(b)

	// Damage-dealt tallies per ship, kept per side because ship identifiers
	// are only unique within their originating scope.
	expA := make(map[int]int)
	expB := make(map[int]int)

	rounds := 0
	for a.Fleet.Strength(false) > 0 && b.Fleet.Strength(false) > 0 {
		pendingAgainstA := newPendingDamage()
		pendingAgainstB := newPendingDamage()

		//1.- Both fleets fire simultaneously into side tables; no health changes yet.
		gunsA := s.fireFleet(a.Fleet, b.Fleet, pendingAgainstB, attackA, defenseB)
		gunsB := s.fireFleet(b.Fleet, a.Fleet, pendingAgainstA, attackB, defenseA)

		//2.- Apply the accumulated damage and credit each source's running tally.
		dealDamage(b.Fleet, pendingAgainstB, expA)
		dealDamage(a.Fleet, pendingAgainstA, expB)

		//3.- Only now remove destroyed ships, preserving simultaneity.
		a.Fleet.Reduce()
		b.Fleet.Reduce()
		rounds++

		if gunsA == 0 && gunsB == 0 {
			// Mutual gun-less stalemate: neither side can ever land a hit again.
			break
		}
	}

	outcome := s.decideOutcome(a, b)
	switch outcome {
	case OutcomeFleetAWins:
		creditExperience(a.Fleet, expA)
	case OutcomeFleetBWins:
		creditExperience(b.Fleet, expB)
	}

	s.logger.Debug("fleet battle resolved",
		logging.Int("rounds", rounds),
		logging.Int("outcome", int(outcome)),
		logging.Int("fleet_a_survivors", len(a.Fleet.Starships)),
		logging.Int("fleet_b_survivors", len(b.Fleet.Starships)))
	return outcome
}

func effectiveChances(p Participant) (attack, defense float64) {
	attack = p.AttackBonusChance
	defense = p.DefenseBonusChance
	if p.Fleet != nil && p.Fleet.LocationHexMidPoint != nil {
		defense += HomeSystemAdvantage
	}
	return attack, defense
}

// fireFleet lets every ship in the firing fleet expend its guns against the
// enemy roster, staging hits in the pending table. Returns the number of guns
// available to the firing fleet this round.
func (s *Simulator) fireFleet(firing, enemy *fleet.Fleet, pending *pendingDamage, attackChance, defenseChance float64) int {
	totalGuns := 0
	for _, ship := range firing.Starships {
		guns := ship.Guns()
		totalGuns += guns
		for shot := 0; shot < guns; shot++ {
			target := selectTarget(ship, enemy, pending)
			if target == nil {
				// Every enemy ship is already lethally committed this round.
				break
			}
			damage := s.rollDamage(ship, target, attackChance, defenseChance)
			if damage > 0 {
				pending.add(target.ID, ship.ID, damage)
			}
		}
	}
	return totalGuns
}

// rollDamage draws a single shot's damage. The ceiling starts at the weapon
// power and shifts by half a weapon power for the attacker's research roll,
// the defender's research roll, and the hull type matchup; the shifts stack.
func (s *Simulator) rollDamage(firer, target *fleet.Starship, attackChance, defenseChance float64) int {
	maxDamage := fleet.WeaponPower
	if s.rng.Float64() < attackChance {
		maxDamage += fleet.WeaponPower / 2
	}
	if s.rng.Float64() < defenseChance {
		maxDamage -= fleet.WeaponPower / 2
	}
	if firer.HasAdvantageAgainst(target.Type) {
		maxDamage += fleet.WeaponPower / 2
	} else if firer.HasDisadvantageAgainst(target.Type) {
		maxDamage -= fleet.WeaponPower / 2
	}
	if maxDamage <= 0 {
		return 0
	}
	return s.rng.Intn(maxDamage + 1)
}

// dealDamage applies every pending hit against the fleet. Health is reduced by
// the full sum of hits (overkill is intentional), while experience credit per
// hit is clamped so a ship never earns more than the damage it actually
// destroyed.
func dealDamage(target *fleet.Fleet, pending *pendingDamage, exp map[int]int) {
	for _, ship := range target.Starships {
		hits := pending.hits[ship.ID]
		if len(hits) == 0 {
			continue
		}
		remaining := ship.Health
		total := 0
		for _, hit := range hits {
			credit := hit.damage
			if credit > remaining {
				credit = remaining
			}
			if credit > 0 {
				exp[hit.sourceID] += credit
			}
			remaining -= hit.damage
			if remaining < 0 {
				remaining = 0
			}
			total += hit.damage
		}
		ship.Health -= total
	}
}

// creditExperience folds the battle's damage-dealt tallies into the surviving
// winners' experience. Runs only after the outcome is decided, so no ship
// levels up while the battle is still in progress.
func creditExperience(winner *fleet.Fleet, exp map[int]int) {
	for _, ship := range winner.Starships {
		if amount := exp[ship.ID]; amount > 0 {
			ship.ExperienceAmount += amount
		}
	}
}

func (s *Simulator) decideOutcome(a, b Participant) Outcome {
	aAlive := a.Fleet.Strength(false) > 0
	bAlive := b.Fleet.Strength(false) > 0
	switch {
	case aAlive && !bAlive:
		return OutcomeFleetAWins
	case bAlive && !aAlive:
		return OutcomeFleetBWins
	case aAlive && bAlive:
		// Gun-less stalemate: award the stronger roster, falling back to the
		// hex tie-break when strengths match.
		switch {
		case a.Fleet.Strength(false) > b.Fleet.Strength(false):
			return OutcomeFleetAWins
		case b.Fleet.Strength(false) > a.Fleet.Strength(false):
			return OutcomeFleetBWins
		}
		fallthrough
	default:
		// Both destroyed: the side holding ground wins, the defender when both do.
		if b.Fleet.LocationHexMidPoint != nil {
			return OutcomeFleetBWins
		}
		if a.Fleet.LocationHexMidPoint != nil {
			return OutcomeFleetAWins
		}
		return OutcomeDraw
	}
}
