package game

import (
	"math/rand"
	"testing"

	"github.com/MasteredSoftware/Astriarch-sub000/internal/events"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/fleet"
)

// warZone builds a two-player state: the attacker holds planet 1 and the
// defender holds planet 2 with the garrison the test configures.
func warZone(t *testing.T) (*State, *Player, *Player, *Planet) {
	t.Helper()
	state := NewState("conflict-test")
	attacker := NewPlayer("player-1", "One", true)
	defender := NewPlayer("player-2", "Two", true)
	state.Players[attacker.ID] = attacker
	state.Players[defender.ID] = defender

	home := NewPlanet(1, "Aldara", ClassPlanet2, fleet.Point{X: 0, Y: 0})
	home.OwnerID = attacker.ID
	target := NewPlanet(2, "Vexa", ClassPlanet2, fleet.Point{X: 8, Y: 8})
	target.OwnerID = defender.ID
	state.Planets[home.ID] = home
	state.Planets[target.ID] = target
	return state, attacker, defender, target
}

// arriveAt builds a fleet that just finished travel over the planet's hex.
func arriveAt(planet *Planet, ships ...*fleet.Starship) *fleet.Fleet {
	arrived := fleet.New(&planet.HexMidPoint)
	for _, ship := range ships {
		arrived.AddShip(ship)
	}
	return arrived
}

func TestConflictCaptureTransfersOwnershipAndLootsResearch(t *testing.T) {
	state, attacker, defender, target := warZone(t)
	target.GenerateShip(fleet.TypeScout)
	target.SetWaypoint(1)
	defender.Research.SetPointsCompleted(ResearchPropulsion, 8)
	defender.Research.SetPointsCompleted(ResearchCustomShip, 20)
	attacker.KnownPlanetFleetStrength[target.ID] = 4

	arrived := arriveAt(target,
		fleet.NewStarship(9_000_001, fleet.TypeBattleship),
		fleet.NewStarship(9_000_002, fleet.TypeBattleship),
	)
	controller := NewController(state, rand.New(rand.NewSource(7)))
	batch, err := controller.ResolvePlanetaryConflicts(attacker, []*fleet.Fleet{arrived})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if target.OwnerID != attacker.ID {
		t.Fatalf("planet not captured, owner %q", target.OwnerID)
	}
	if target.WaypointPlanetID != nil {
		t.Fatalf("capture must clear the waypoint")
	}
	//1.- The surviving battleships garrison the planet after the merge.
	counts := target.PlanetaryFleet.CountByType()
	if counts[fleet.TypeBattleship] == 0 {
		t.Fatalf("no battleship in the captured garrison: %v", counts)
	}
	if counts[fleet.TypeScout] != 0 {
		t.Fatalf("defending scout survived an overwhelming assault")
	}

	//2.- Research theft is bounded by the class cap and strictly positive.
	stolen := attacker.Research.PointsCompleted[ResearchPropulsion]
	if stolen < 1 || stolen > 8 {
		t.Fatalf("propulsion loot = %d, want between 1 and 8", stolen)
	}
	if attacker.Research.PointsCompleted[ResearchCustomShip] != 0 {
		t.Fatalf("custom ship research must never change hands")
	}

	//3.- Both sides see the theft from their own perspective, then the
	// capture and loss notifications close the batch.
	var thiefCopies, victimCopies int
	var captured *events.PlanetCapturedData
	var lost *events.PlanetLostData
	for _, event := range batch {
		switch data := event.Data.(type) {
		case events.ResearchStolenData:
			if data.WasVictim {
				victimCopies++
			} else {
				thiefCopies++
			}
			if data.Points != stolen {
				t.Fatalf("stolen event carries %d points, attacker gained %d", data.Points, stolen)
			}
		case events.PlanetCapturedData:
			captured = &data
		case events.PlanetLostData:
			lost = &data
		}
	}
	if thiefCopies != 1 || victimCopies != 1 {
		t.Fatalf("expected one theft event per side, got %d/%d", thiefCopies, victimCopies)
	}
	if captured == nil || lost == nil {
		t.Fatalf("capture/loss events missing from batch: %+v", batch)
	}
	if captured.NewOwnerID != attacker.ID || captured.PreviousOwnerID != defender.ID {
		t.Fatalf("capture ownership wrong: %+v", captured)
	}
	if captured.Planet.Garrison.CompositionHash != target.PlanetaryFleet.CompositionHash {
		t.Fatalf("snapshot garrison hash %s disagrees with state %s",
			captured.Planet.Garrison.CompositionHash, target.PlanetaryFleet.CompositionHash)
	}
	if captured.Conflict.ResearchPointsLooted != stolen {
		t.Fatalf("conflict summary loot %d, want %d", captured.Conflict.ResearchPointsLooted, stolen)
	}

	//4.- Intelligence flips: the attacker now sees the planet directly while
	// the former owner records what beat them.
	if _, known := attacker.KnownPlanetFleetStrength[target.ID]; known {
		t.Fatalf("attacker kept stale intel about a planet it now owns")
	}
	if got := defender.KnownPlanetFleetStrength[target.ID]; got != target.PlanetaryFleet.Strength(false) {
		t.Fatalf("defender intel = %d, want %d", got, target.PlanetaryFleet.Strength(false))
	}
}

func TestConflictRepelledRecordsIntelAndDamageDiff(t *testing.T) {
	state, attacker, defender, target := warZone(t)
	target.GenerateShip(fleet.TypeBattleship)
	target.GenerateShip(fleet.TypeBattleship)

	arrived := arriveAt(target, fleet.NewStarship(9_000_001, fleet.TypeScout))
	attacker.InTransitFleets = append(attacker.InTransitFleets, arrived)

	controller := NewController(state, rand.New(rand.NewSource(11)))
	batch, err := controller.ResolvePlanetaryConflicts(attacker, []*fleet.Fleet{arrived})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if target.OwnerID != defender.ID {
		t.Fatalf("repelled attack changed ownership to %q", target.OwnerID)
	}
	if len(attacker.InTransitFleets) != 0 {
		t.Fatalf("destroyed fleet still in transit")
	}
	//1.- The failed attack doubles as a scouting report.
	if got := attacker.KnownPlanetFleetStrength[target.ID]; got != target.PlanetaryFleet.Strength(false) {
		t.Fatalf("attacker intel = %d, want %d", got, target.PlanetaryFleet.Strength(false))
	}

	if len(batch) != 2 {
		t.Fatalf("expected attack-failed and defense-success events, got %d", len(batch))
	}
	failed, ok := batch[0].Data.(events.FleetAttackFailedData)
	if !ok {
		t.Fatalf("first event is %T, want FleetAttackFailedData", batch[0].Data)
	}
	success, ok := batch[1].Data.(events.FleetDefenseSuccessData)
	if !ok {
		t.Fatalf("second event is %T, want FleetDefenseSuccessData", batch[1].Data)
	}
	if failed.AttackerPlayerID != attacker.ID {
		t.Fatalf("attack-failed names %q, want %q", failed.AttackerPlayerID, attacker.ID)
	}
	//2.- Both events carry the same garrison diff; no garrison ship died.
	if len(failed.Conflict.Diff.ShipsDestroyed) != 0 {
		t.Fatalf("a lone scout destroyed garrison ships: %v", failed.Conflict.Diff.ShipsDestroyed)
	}
	if failed.Conflict.AttackingFleetChances != success.Conflict.AttackingFleetChances {
		t.Fatalf("paired events disagree on chances")
	}
}

func TestConflictRecallsOutgoingFleetsBeforeBattle(t *testing.T) {
	state, attacker, _, target := warZone(t)
	for i := 0; i < 3; i++ {
		target.GenerateShip(fleet.TypeBattleship)
	}
	ids := target.PlanetaryFleet.SortedShipIDs()
	outgoing, err := target.PlanetaryFleet.SplitByShipIDs(ids[:1])
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	target.OutgoingFleets = append(target.OutgoingFleets, outgoing)

	arrived := arriveAt(target, fleet.NewStarship(9_000_001, fleet.TypeScout))
	controller := NewController(state, rand.New(rand.NewSource(3)))
	if _, err := controller.ResolvePlanetaryConflicts(attacker, []*fleet.Fleet{arrived}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	//1.- All three battleships fought and survived as one garrison.
	if counts := target.PlanetaryFleet.CountByType(); counts[fleet.TypeBattleship] != 3 {
		t.Fatalf("recalled battleship missing from garrison: %v", counts)
	}
	if len(target.OutgoingFleets) != 0 {
		t.Fatalf("outgoing roster not cleared by the recall")
	}
}

func TestConflictAtUnownedPlanetCapturesWithoutDefenderEvents(t *testing.T) {
	state, attacker, _, _ := warZone(t)
	empty := NewPlanet(3, "Cinder", ClassDeadPlanet, fleet.Point{X: 4, Y: 2})
	state.Planets[empty.ID] = empty

	arrived := arriveAt(empty, fleet.NewStarship(9_000_001, fleet.TypeScout))
	controller := NewController(state, rand.New(rand.NewSource(5)))
	batch, err := controller.ResolvePlanetaryConflicts(attacker, []*fleet.Fleet{arrived})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if empty.OwnerID != attacker.ID {
		t.Fatalf("unowned planet not claimed, owner %q", empty.OwnerID)
	}
	if len(batch) != 1 {
		t.Fatalf("expected only the capture event, got %d events", len(batch))
	}
	captured, ok := batch[0].Data.(events.PlanetCapturedData)
	if !ok {
		t.Fatalf("event is %T, want PlanetCapturedData", batch[0].Data)
	}
	if captured.PreviousOwnerID != "" || captured.Conflict.ResearchPointsLooted != 0 {
		t.Fatalf("colonizing an empty planet produced loot: %+v", captured)
	}
	if counts := empty.PlanetaryFleet.CountByType(); counts[fleet.TypeScout] != 1 {
		t.Fatalf("scout did not garrison the claimed planet: %v", counts)
	}
}

func TestConflictArrivalAtOwnHexReinforces(t *testing.T) {
	state, attacker, _, _ := warZone(t)
	home := state.Planets[1]
	arrived := arriveAt(home, fleet.NewStarship(9_000_001, fleet.TypeScout))

	controller := NewController(state, rand.New(rand.NewSource(5)))
	batch, err := controller.ResolvePlanetaryConflicts(attacker, []*fleet.Fleet{arrived})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(batch) != 0 {
		t.Fatalf("friendly arrival produced events: %+v", batch)
	}
	if counts := home.PlanetaryFleet.CountByType(); counts[fleet.TypeScout] != 1 {
		t.Fatalf("friendly fleet did not reinforce the garrison: %v", counts)
	}
}

func TestConflictWithoutPlanetIsInvariantViolation(t *testing.T) {
	state, attacker, _, _ := warZone(t)
	nowhere := fleet.Point{X: 99, Y: 99}
	lost := fleet.New(&nowhere)
	lost.AddShip(fleet.NewStarship(9_000_001, fleet.TypeScout))

	controller := NewController(state, rand.New(rand.NewSource(5)))
	if _, err := controller.ResolvePlanetaryConflicts(attacker, []*fleet.Fleet{lost}); err == nil {
		t.Fatalf("arrival at an empty hex must fail loudly")
	}
}

func TestBuildAndApplyCombatResultDiffRoundTrip(t *testing.T) {
	hex := fleet.Point{X: 1, Y: 1}
	before := fleet.New(&hex)
	before.AddShip(fleet.NewStarship(1, fleet.TypeCruiser))
	before.AddShip(fleet.NewStarship(2, fleet.TypeCruiser))
	before.AddShip(fleet.NewStarship(3, fleet.TypeScout))

	after := before.Clone()
	after.FindShip(1).Health = 9
	after.FindShip(2).ExperienceAmount = 5
	after.FindShip(3).Health = 0
	after.Reduce()

	diff := BuildCombatResultDiff(before, after)
	if len(diff.ShipsDestroyed) != 1 || diff.ShipsDestroyed[0] != 3 {
		t.Fatalf("destroyed = %v, want [3]", diff.ShipsDestroyed)
	}
	if len(diff.ShipsDamaged) != 1 || diff.ShipsDamaged[0].Damage != 7 {
		t.Fatalf("damaged = %v, want ship 1 down 7", diff.ShipsDamaged)
	}
	if len(diff.ShipsExperienceGained) != 1 || diff.ShipsExperienceGained[0].Experience != 5 {
		t.Fatalf("experience = %v, want ship 2 up 5", diff.ShipsExperienceGained)
	}

	//1.- Applying the diff to a fresh copy of the pre-battle roster must
	// reproduce the post-battle roster exactly.
	replay := before.Clone()
	if err := ApplyCombatResultDiff(replay, diff); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(replay.Starships) != len(after.Starships) {
		t.Fatalf("replayed roster size %d, want %d", len(replay.Starships), len(after.Starships))
	}
	for _, ship := range after.Starships {
		got := replay.FindShip(ship.ID)
		if got == nil || got.Health != ship.Health || got.ExperienceAmount != ship.ExperienceAmount {
			t.Fatalf("ship %d diverged after replay: %+v vs %+v", ship.ID, got, ship)
		}
	}
	if replay.CompositionHash != after.CompositionHash {
		t.Fatalf("hashes diverged after replay: %s vs %s", replay.CompositionHash, after.CompositionHash)
	}
}
