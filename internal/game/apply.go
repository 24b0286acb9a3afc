package game

import (
	"fmt"

	"github.com/MasteredSoftware/Astriarch-sub000/internal/events"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/fleet"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/logging"
)

// Applicator replays broadcast events against a copy of game state. A copy
// that applies the same events in the same order as the authoritative state
// converges on it; the rolling checksum over the stream proves it did.
type Applicator struct {
	State  *State
	logger *logging.Logger
}

// NewApplicator constructs an applicator over the given state copy.
func NewApplicator(state *State) *Applicator {
	return &Applicator{State: state, logger: logging.L()}
}

// AdvanceCycle advances this copy through one game cycle. The deterministic
// steps (production, research accrual, build queues, fleet travel) run locally
// exactly as they do on the authoritative copy; the batch then supplies
// everything that is not locally decidable, chiefly trade execution and
// conflict outcomes. Hostile arrivals are deliberately left in transit for the
// batch's conflict events to consume.
func (a *Applicator) AdvanceCycle(batch []events.Event) error {
	a.State.Cycle++
	points := produceResources(a.State)
	accrueResearch(a.State, points)
	advanceProductionQueues(a.State)
	if _, err := advanceFleetTravel(a.State); err != nil {
		return err
	}
	if err := a.ApplyAll(batch); err != nil {
		return err
	}
	a.State.TradingCenter.PruneInvalid(a.State)
	return nil
}

// ApplyAll applies a batch in order, stopping at the first failure.
func (a *Applicator) ApplyAll(batch []events.Event) error {
	for i, event := range batch {
		if err := a.Apply(event); err != nil {
			return fmt.Errorf("applying event %d (%s): %w", i, event.Type, err)
		}
	}
	return nil
}

// Apply mutates state according to a single event. Unknown event types are
// logged and skipped so older copies survive newer producers.
func (a *Applicator) Apply(event events.Event) error {
	switch data := event.Data.(type) {
	case events.ProductionItemQueuedData:
		return a.applyProductionItemQueued(data)
	case events.ProductionItemRemovedData:
		return a.applyProductionItemRemoved(data)
	case events.FleetLaunchedData:
		return a.applyFleetLaunched(data)
	case events.PlanetWorkerAssignmentsUpdatedData:
		return a.applyWorkerAssignments(data)
	case events.PlanetOptionsUpdatedData:
		return a.applyPlanetOptions(data)
	case events.WaypointSetData:
		return a.applyWaypointSet(data)
	case events.WaypointClearedData:
		return a.applyWaypointCleared(data)
	case events.ResearchPercentAdjustedData:
		return a.applyResearchPercent(data)
	case events.ResearchQueuedData:
		return a.applyResearchQueued(data)
	case events.ResearchCancelledData:
		return a.applyResearchCancelled(data)
	case events.ResearchCompletedData:
		return a.applyResearchCompleted(data)
	case events.ResearchStolenData:
		return a.applyResearchStolen(data)
	case events.TradeSubmittedData:
		return a.applyTradeSubmitted(data)
	case events.TradeCancelledData:
		return a.applyTradeCancelled(data)
	case events.TradesProcessedData:
		a.State.TradingCenter.ExecuteIDs(a.State, data.ExecutedTradeIDs)
		return nil
	case events.PlanetCapturedData:
		return a.applyPlanetCaptured(data)
	case events.PlanetLostData:
		// The paired capture event already rewrote the planet; this one only
		// informs the former owner.
		return nil
	case events.FleetAttackFailedData:
		return a.applyFleetAttackFailed(data)
	case events.FleetDefenseSuccessData:
		// The paired attack-failed event already applied the garrison diff.
		return nil
	default:
		a.logger.Warn("skipping unknown event type",
			logging.String(logging.GameIDField, a.State.GameID),
			logging.String("event_type", string(event.Type)),
		)
		return nil
	}
}

func (a *Applicator) applyProductionItemQueued(data events.ProductionItemQueuedData) error {
	planet, err := a.State.Planet(data.PlanetID)
	if err != nil {
		return err
	}
	// Resources were already validated authoritatively; spend and enqueue.
	planet.Gold -= data.GoldSpent
	planet.Ore -= data.OreSpent
	planet.ProductionQueue = append(planet.ProductionQueue, ProductionItem{
		Kind:           ProductionItemKind(data.ItemKind),
		Name:           data.ItemName,
		TurnsRemaining: data.TurnsToComplete,
		GoldCost:       data.GoldSpent,
		OreCost:        data.OreSpent,
	})
	return nil
}

func (a *Applicator) applyProductionItemRemoved(data events.ProductionItemRemovedData) error {
	planet, err := a.State.Planet(data.PlanetID)
	if err != nil {
		return err
	}
	return planet.RemoveProductionItem(data.Index)
}

func (a *Applicator) applyFleetLaunched(data events.FleetLaunchedData) error {
	planet, err := a.State.Planet(data.PlanetID)
	if err != nil {
		return err
	}
	destination, err := a.State.Planet(data.DestinationPlanetID)
	if err != nil {
		return err
	}
	owner, err := a.State.Player(planet.OwnerID)
	if err != nil {
		return err
	}
	launched, err := planet.PlanetaryFleet.SplitByShipIDs(allShipIDs(data.ShipIDs))
	if err != nil {
		return err
	}
	launched.SetDestination(planet.HexMidPoint, destination.HexMidPoint, data.Parsecs)
	owner.InTransitFleets = append(owner.InTransitFleets, launched)
	return nil
}

func (a *Applicator) applyWorkerAssignments(data events.PlanetWorkerAssignmentsUpdatedData) error {
	planet, err := a.State.Planet(data.PlanetID)
	if err != nil {
		return err
	}
	return planet.UpdatePopulationWorkerTypes(data.Farmers, data.Miners, data.Builders)
}

func (a *Applicator) applyPlanetOptions(data events.PlanetOptionsUpdatedData) error {
	planet, err := a.State.Planet(data.PlanetID)
	if err != nil {
		return err
	}
	planet.BuildLastStarship = data.BuildLastStarship
	return nil
}

func (a *Applicator) applyWaypointSet(data events.WaypointSetData) error {
	planet, err := a.State.Planet(data.PlanetID)
	if err != nil {
		return err
	}
	planet.SetWaypoint(data.WaypointPlanetID)
	return nil
}

func (a *Applicator) applyWaypointCleared(data events.WaypointClearedData) error {
	planet, err := a.State.Planet(data.PlanetID)
	if err != nil {
		return err
	}
	planet.ClearWaypoint()
	return nil
}

func (a *Applicator) applyResearchPercent(data events.ResearchPercentAdjustedData) error {
	player, err := a.State.Player(data.PlayerID)
	if err != nil {
		return err
	}
	return player.Research.SetPercent(data.Percent)
}

func (a *Applicator) applyResearchQueued(data events.ResearchQueuedData) error {
	player, err := a.State.Player(data.PlayerID)
	if err != nil {
		return err
	}
	return player.Research.QueueItem(ResearchCategory(data.Category))
}

func (a *Applicator) applyResearchCancelled(data events.ResearchCancelledData) error {
	player, err := a.State.Player(data.PlayerID)
	if err != nil {
		return err
	}
	return player.Research.CancelItem(ResearchCategory(data.Category))
}

func (a *Applicator) applyResearchCompleted(data events.ResearchCompletedData) error {
	player, err := a.State.Player(data.PlayerID)
	if err != nil {
		return err
	}
	category := ResearchCategory(data.Category)
	threshold := PointsForLevel(data.Level)
	if player.Research.PointsCompleted[category] < threshold {
		player.Research.SetPointsCompleted(category, threshold)
	}
	// Mirror the authoritative queue rotation on level completion.
	if len(player.Research.Queue) > 0 && player.Research.Queue[0] == category {
		player.Research.Queue = append(player.Research.Queue[1:], category)
	}
	return nil
}

func (a *Applicator) applyResearchStolen(data events.ResearchStolenData) error {
	if data.WasVictim {
		// Victim copy is informational; the thief copy carries the mutation.
		return nil
	}
	thief, err := a.State.Player(data.ThiefPlayerID)
	if err != nil {
		return err
	}
	category := ResearchCategory(data.Category)
	thief.Research.PointsCompleted[category] += data.Points
	return nil
}

func (a *Applicator) applyTradeSubmitted(data events.TradeSubmittedData) error {
	return a.State.TradingCenter.Submit(Trade{
		ID:       data.TradeID,
		PlayerID: data.PlayerID,
		PlanetID: data.PlanetID,
		Resource: TradeResource(data.Resource),
		Amount:   data.Amount,
		Kind:     TradeKind(data.Kind),
	})
}

func (a *Applicator) applyTradeCancelled(data events.TradeCancelledData) error {
	return a.State.TradingCenter.Cancel(data.PlayerID, data.TradeID)
}

// applyPlanetCaptured rewrites the planet from the carried snapshot. The
// attacker's in-transit fleet at the hex is consumed; its survivors are
// already inside the snapshot's garrison.
func (a *Applicator) applyPlanetCaptured(data events.PlanetCapturedData) error {
	planet, err := a.State.Planet(data.PlanetID)
	if err != nil {
		return err
	}
	a.removeInTransitFleet(data.NewOwnerID, planet.HexMidPoint)

	planet.OwnerID = data.NewOwnerID
	planet.ClearWaypoint()
	planet.Food = data.Planet.Food
	planet.Ore = data.Planet.Ore
	planet.Gold = data.Planet.Gold
	planet.Farmers = data.Planet.Farmers
	planet.Miners = data.Planet.Miners
	planet.Builders = data.Planet.Builders
	planet.PlanetaryFleet = garrisonFromSnapshot(data.Planet.Garrison, planet.HexMidPoint)

	if newOwner, ok := a.State.Players[data.NewOwnerID]; ok {
		delete(newOwner.KnownPlanetFleetStrength, planet.ID)
	}
	if previous, ok := a.State.Players[data.PreviousOwnerID]; ok {
		previous.RecordFleetStrength(planet.ID, planet.PlanetaryFleet.Strength(false))
	}
	return nil
}

// applyFleetAttackFailed applies the garrison's battle diff and consumes the
// named attacker's destroyed fleet.
func (a *Applicator) applyFleetAttackFailed(data events.FleetAttackFailedData) error {
	planet, err := a.State.Planet(data.PlanetID)
	if err != nil {
		return err
	}
	if err := ApplyCombatResultDiff(planet.PlanetaryFleet, data.Conflict.Diff); err != nil {
		return err
	}
	a.removeInTransitFleet(data.AttackerPlayerID, planet.HexMidPoint)
	if attacker, ok := a.State.Players[data.AttackerPlayerID]; ok {
		attacker.RecordFleetStrength(planet.ID, planet.PlanetaryFleet.Strength(false))
	}
	return nil
}

// removeInTransitFleet drops the owner's in-transit fleet that the conflict at
// the hex consumed. The fleet has normally already arrived, so a fleet sitting
// on the hex outranks one merely destined for it; another of the same owner's
// fleets still en route to the planet must be left alone.
func (a *Applicator) removeInTransitFleet(ownerID string, hex fleet.Point) {
	player, ok := a.State.Players[ownerID]
	if !ok {
		return
	}
	for _, traveling := range player.InTransitFleets {
		if traveling.LocationHexMidPoint != nil && *traveling.LocationHexMidPoint == hex {
			player.RemoveInTransitFleet(traveling)
			return
		}
	}
	for _, traveling := range player.InTransitFleets {
		if traveling.DestinationHexMidPoint != nil && *traveling.DestinationHexMidPoint == hex {
			player.RemoveInTransitFleet(traveling)
			return
		}
	}
}

// ApplyCombatResultDiff applies a battle's destroyed/damaged/experience delta
// to a fleet. Ships the diff names but the fleet lacks are ignored; the diff
// is a one-way correction, not a reconciliation.
func ApplyCombatResultDiff(target *fleet.Fleet, diff events.CombatResultDiff) error {
	if target == nil {
		return fmt.Errorf("%w: diff against nil fleet", ErrInvariant)
	}
	for _, id := range diff.ShipsDestroyed {
		if ship := target.FindShip(id); ship != nil {
			ship.Health = 0
		}
	}
	for _, damaged := range diff.ShipsDamaged {
		if ship := target.FindShip(damaged.ID); ship != nil {
			ship.Health -= damaged.Damage
		}
	}
	for _, gained := range diff.ShipsExperienceGained {
		if ship := target.FindShip(gained.ID); ship != nil {
			ship.ExperienceAmount += gained.Experience
		}
	}
	target.Reduce()
	return nil
}

// garrisonFromSnapshot rebuilds a landed fleet from its wire view.
func garrisonFromSnapshot(snapshot events.FleetSnapshot, hex fleet.Point) *fleet.Fleet {
	rebuilt := fleet.New(&hex)
	for _, ship := range snapshot.Ships {
		hullType, ok := ShipTypeByName(ship.Type)
		if !ok {
			continue
		}
		restored := fleet.NewStarship(ship.ID, hullType)
		restored.Health = ship.Health
		restored.ExperienceAmount = ship.Experience
		rebuilt.AddShip(restored)
	}
	return rebuilt
}

// allShipIDs flattens a per-class identifier grouping into one list.
func allShipIDs(ids events.ShipIDsByClass) []int {
	flat := make([]int, 0)
	flat = append(flat, ids.SystemDefenses...)
	flat = append(flat, ids.Scouts...)
	flat = append(flat, ids.Destroyers...)
	flat = append(flat, ids.Cruisers...)
	flat = append(flat, ids.Battleships...)
	flat = append(flat, ids.SpacePlatforms...)
	return flat
}
