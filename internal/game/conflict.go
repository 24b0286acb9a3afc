package game

import (
	"fmt"
	"sort"

	"github.com/MasteredSoftware/Astriarch-sub000/internal/combat"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/events"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/fleet"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/logging"
)

// ResolvePlanetaryConflicts resolves every fleet that arrived at a hex the
// owning player does not control. Each conflict is independent; the returned
// events are ordered by resolution and carry everything a remote copy of the
// game needs to apply the same result.
func (c *Controller) ResolvePlanetaryConflicts(attacker *Player, arrivedFleets []*fleet.Fleet) ([]events.Event, error) {
	resolved := make([]events.Event, 0, len(arrivedFleets))
	for _, arrived := range arrivedFleets {
		batch, err := c.resolveConflict(attacker, arrived)
		if err != nil {
			return resolved, err
		}
		resolved = append(resolved, batch...)
	}
	return resolved, nil
}

func (c *Controller) resolveConflict(attacker *Player, arrived *fleet.Fleet) ([]events.Event, error) {
	//1.- Arrival ends the transit regardless of how the conflict goes.
	attacker.RemoveInTransitFleet(arrived)
	if arrived.LocationHexMidPoint == nil {
		return nil, fmt.Errorf("%w: arrived fleet has no location", ErrInvariant)
	}
	hex := *arrived.LocationHexMidPoint
	planet := c.State.PlanetAtHex(hex)
	if planet == nil {
		return nil, fmt.Errorf("%w: no planet at hex (%.1f, %.1f)", ErrInvariant, hex.X, hex.Y)
	}
	if planet.OwnerID == attacker.ID {
		// Friendly arrival. Reinforce the garrison and move on.
		return nil, planet.PlanetaryFleet.Land(arrived)
	}
	defender := c.State.Players[planet.OwnerID] // nil for an unowned planet

	//2.- An incoming threat pulls every queued departure back home.
	planet.RecallOutgoingFleets()
	garrison := planet.PlanetaryFleet

	//3.- The attacker contests the hex from orbit; only the garrison fights
	// on home ground. The fleet lands by merging into the garrison on victory.
	arrived.LocationHexMidPoint = nil

	attackBefore := arrived.Clone()
	defendBefore := garrison.Clone()
	chances := combat.AttackingFleetChances(
		float64(arrived.Strength(true)),
		float64(garrison.Strength(true)),
	)

	attackSide := combat.Participant{
		Fleet:              arrived,
		AttackBonusChance:  attacker.Research.CombatBonusChance(ResearchCombatAttack),
		DefenseBonusChance: attacker.Research.CombatBonusChance(ResearchCombatDefense),
	}
	defendSide := combat.Participant{Fleet: garrison}
	if defender != nil {
		defendSide.AttackBonusChance = defender.Research.CombatBonusChance(ResearchCombatAttack)
		defendSide.DefenseBonusChance = defender.Research.CombatBonusChance(ResearchCombatDefense)
	}

	outcome := c.sim.SimulateFleetBattle(attackSide, defendSide)

	c.logger.Info("planetary conflict resolved",
		logging.String(logging.GameIDField, c.State.GameID),
		logging.Int("planet_id", planet.ID),
		logging.String("attacker_id", attacker.ID),
		logging.String("defender_id", planet.OwnerID),
		logging.Int("attacking_fleet_chances", chances),
		logging.Bool("attacker_won", outcome == combat.OutcomeFleetAWins),
	)

	if outcome != combat.OutcomeFleetAWins {
		return c.attackRepelled(attacker, defender, planet, defendBefore, chances), nil
	}
	return c.planetCaptured(attacker, defender, planet, arrived, attackBefore, chances)
}

// attackRepelled finishes a conflict the garrison survived. The attacking
// fleet is gone, but the failed attack doubles as a scouting report.
func (c *Controller) attackRepelled(attacker, defender *Player, planet *Planet, defendBefore *fleet.Fleet, chances int) []events.Event {
	attacker.RecordFleetStrength(planet.ID, planet.PlanetaryFleet.Strength(false))

	summary := events.ConflictSummary{
		AttackingFleetChances: chances,
		Diff:                  BuildCombatResultDiff(defendBefore, planet.PlanetaryFleet),
	}
	resolved := []events.Event{{
		Type:              events.TypeFleetAttackFailed,
		AffectedPlayerIDs: c.State.HumanPlayerIDs(attacker.ID),
		Data: events.FleetAttackFailedData{
			PlanetID:         planet.ID,
			AttackerPlayerID: attacker.ID,
			Conflict:         summary,
		},
	}}
	if defender != nil {
		resolved = append(resolved, events.Event{
			Type:              events.TypeFleetDefenseSuccess,
			AffectedPlayerIDs: c.State.HumanPlayerIDs(defender.ID),
			Data:              events.FleetDefenseSuccessData{PlanetID: planet.ID, Conflict: summary},
		})
	}
	return resolved
}

// planetCaptured transfers ownership, loots research, lands the surviving
// attackers and notifies both sides.
func (c *Controller) planetCaptured(attacker, defender *Player, planet *Planet, arrived, attackBefore *fleet.Fleet, chances int) ([]events.Event, error) {
	previousOwnerID := planet.OwnerID
	planet.OwnerID = attacker.ID
	planet.ClearWaypoint()

	resolved := make([]events.Event, 0, 4)
	looted := 0
	if defender != nil {
		var lootEvents []events.Event
		looted, lootEvents = c.lootResearch(attacker, defender, planet)
		resolved = append(resolved, lootEvents...)
	}

	// The diff is built against the attacking fleet before its survivors
	// merge into the garrison; after the merge the two are indistinguishable.
	summary := events.ConflictSummary{
		AttackingFleetChances: chances,
		Diff:                  BuildCombatResultDiff(attackBefore, arrived),
		ResearchPointsLooted:  looted,
	}

	if err := planet.PlanetaryFleet.Land(arrived); err != nil {
		return resolved, fmt.Errorf("landing conquering fleet on planet %d: %w", planet.ID, err)
	}
	if defender != nil {
		// Losing the planet still tells the former owner what now holds it.
		defender.RecordFleetStrength(planet.ID, planet.PlanetaryFleet.Strength(false))
	}
	delete(attacker.KnownPlanetFleetStrength, planet.ID)

	resolved = append(resolved, events.Event{
		Type:              events.TypePlanetCaptured,
		AffectedPlayerIDs: c.State.HumanPlayerIDs(attacker.ID),
		Data: events.PlanetCapturedData{
			PlanetID:        planet.ID,
			NewOwnerID:      attacker.ID,
			PreviousOwnerID: previousOwnerID,
			Planet:          c.State.PlanetSnapshot(planet),
			Conflict:        summary,
		},
	})
	if defender != nil {
		resolved = append(resolved, events.Event{
			Type:              events.TypePlanetLost,
			AffectedPlayerIDs: c.State.HumanPlayerIDs(defender.ID),
			Data: events.PlanetLostData{
				PlanetID:   planet.ID,
				NewOwnerID: attacker.ID,
				Conflict:   summary,
			},
		})
	}
	return resolved, nil
}

// lootResearch steals a random number of points, bounded by the planet class,
// from every track where the defender is ahead of the attacker. Custom ship
// research never changes hands. Each theft emits a paired event so both sides
// learn about it from their own perspective.
func (c *Controller) lootResearch(attacker, defender *Player, planet *Planet) (int, []events.Event) {
	limit := planet.Class.ResearchLootCap()
	total := 0
	stolen := make([]events.Event, 0)
	for _, category := range LootableSurplusCategories(defender.Research, attacker.Research) {
		surplus := defender.Research.PointsCompleted[category] - attacker.Research.PointsCompleted[category]
		most := surplus
		if most > limit {
			most = limit
		}
		points := 1 + c.rng.Intn(most)
		attacker.Research.PointsCompleted[category] += points
		total += points

		data := events.ResearchStolenData{
			Category:       string(category),
			Points:         points,
			NewLevel:       attacker.Research.Level(category),
			VictimPlayerID: defender.ID,
			ThiefPlayerID:  attacker.ID,
		}
		victimData := data
		victimData.WasVictim = true
		stolen = append(stolen,
			events.Event{
				Type:              events.TypeResearchStolen,
				AffectedPlayerIDs: c.State.HumanPlayerIDs(attacker.ID),
				Data:              data,
			},
			events.Event{
				Type:              events.TypeResearchStolen,
				AffectedPlayerIDs: c.State.HumanPlayerIDs(defender.ID),
				Data:              victimData,
			},
		)
	}
	return total, stolen
}

// BuildCombatResultDiff compares a fleet's pre-battle snapshot against its
// post-battle roster and produces the incremental delta sent to clients.
// Ships are visited in ascending identifier order so the same pair of rosters
// always yields the same diff.
func BuildCombatResultDiff(before, after *fleet.Fleet) events.CombatResultDiff {
	diff := events.CombatResultDiff{
		ShipsDestroyed:        []int{},
		ShipsDamaged:          []events.ShipDamage{},
		ShipsExperienceGained: []events.ShipExperience{},
	}
	if before == nil {
		return diff
	}
	ships := make([]*fleet.Starship, len(before.Starships))
	copy(ships, before.Starships)
	sort.Slice(ships, func(i, j int) bool { return ships[i].ID < ships[j].ID })

	for _, was := range ships {
		now := after.FindShip(was.ID)
		if now == nil {
			diff.ShipsDestroyed = append(diff.ShipsDestroyed, was.ID)
			continue
		}
		if now.Health < was.Health {
			diff.ShipsDamaged = append(diff.ShipsDamaged, events.ShipDamage{
				ID:     was.ID,
				Damage: was.Health - now.Health,
			})
		}
		if now.ExperienceAmount > was.ExperienceAmount {
			diff.ShipsExperienceGained = append(diff.ShipsExperienceGained, events.ShipExperience{
				ID:         was.ID,
				Experience: now.ExperienceAmount - was.ExperienceAmount,
			})
		}
	}
	return diff
}
