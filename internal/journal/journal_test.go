package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/MasteredSoftware/Astriarch-sub000/internal/events"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/fleet"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/game"
)

// seedGame builds one copy of a small galaxy with an invasion fleet three
// parsecs out, so a three-cycle run produces an eventful journal: trades on
// cycle one, nothing on cycle two and a conquest on cycle three.
func seedGame(t *testing.T) *game.State {
	t.Helper()
	state := game.NewState("journal-test")
	one := game.NewPlayer("player-1", "One", true)
	two := game.NewPlayer("player-2", "Two", true)
	state.Players[one.ID] = one
	state.Players[two.ID] = two

	home := game.NewPlanet(1, "Aldara", game.ClassPlanet2, fleet.Point{X: 0, Y: 0})
	home.OwnerID = one.ID
	home.Farmers, home.Miners, home.Builders = 2, 2, 2
	home.Food, home.Ore, home.Gold = 10, 10, 20
	home.GenerateShip(fleet.TypeBattleship)
	home.GenerateShip(fleet.TypeBattleship)

	target := game.NewPlanet(2, "Vexa", game.ClassPlanet2, fleet.Point{X: 3, Y: 0})
	target.OwnerID = two.ID
	target.GenerateShip(fleet.TypeScout)
	two.Research.SetPointsCompleted(game.ResearchPropulsion, 8)

	state.Planets[home.ID] = home
	state.Planets[target.ID] = target

	if err := state.TradingCenter.Submit(game.Trade{
		ID: "trade-1", PlayerID: one.ID, PlanetID: home.ID,
		Resource: game.ResourceFood, Amount: 4, Kind: game.TradeBuy,
	}); err != nil {
		t.Fatalf("submit trade: %v", err)
	}

	invasion, err := home.PlanetaryFleet.SplitByShipIDs(home.PlanetaryFleet.SortedShipIDs())
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	invasion.SetDestination(home.HexMidPoint, target.HexMidPoint, 3)
	one.InTransitFleets = append(one.InTransitFleets, invasion)
	return state
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

// journalGame runs the authoritative copy for three cycles, journalling every
// non-empty batch the way the engine does, and returns the closed bundle's
// directory alongside the final authoritative state.
func journalGame(t *testing.T) (string, *game.State) {
	t.Helper()
	state := seedGame(t)
	controller := game.NewController(state, rand.New(rand.NewSource(42)))

	writer, _, err := NewWriter(t.TempDir(), "journal-test", fixedClock)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}

	checksum := ""
	for cycle := 0; cycle < 3; cycle++ {
		batch, err := controller.AdvanceCycle()
		if err != nil {
			t.Fatalf("cycle %d: %v", cycle+1, err)
		}
		if len(batch) == 0 {
			continue
		}
		checksum, err = events.CalculateRollingChecksum(checksum, batch)
		if err != nil {
			t.Fatalf("checksum: %v", err)
		}
		if err := writer.AppendBatch(state.Cycle, checksum, batch); err != nil {
			t.Fatalf("append batch: %v", err)
		}
	}
	if err := writer.AppendSnapshot(state.Cycle, checksum, state); err != nil {
		t.Fatalf("append snapshot: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return writer.Directory(), state
}

func TestReplayRebuildsAuthoritativeState(t *testing.T) {
	dir, authority := journalGame(t)

	loader, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	replica := seedGame(t)
	cycle, checksum, err := loader.Replay(replica)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	//1.- The journal skips the uneventful cycle two; replay must still walk
	// the replica through it to keep production and travel in lockstep.
	if cycle != 3 || replica.Cycle != 3 {
		t.Fatalf("replayed to cycle %d (state %d), want 3", cycle, replica.Cycle)
	}
	if checksum == "" {
		t.Fatalf("replay returned an empty checksum")
	}
	if replica.Planets[2].OwnerID != "player-1" {
		t.Fatalf("replayed copy missed the conquest, owner %q", replica.Planets[2].OwnerID)
	}

	want, err := json.Marshal(authority)
	if err != nil {
		t.Fatalf("marshal authority: %v", err)
	}
	got, err := json.Marshal(replica)
	if err != nil {
		t.Fatalf("marshal replica: %v", err)
	}
	if !bytes.Equal(want, got) {
		t.Fatalf("replayed state diverged\nauthority: %s\nreplica:   %s", want, got)
	}
}

func TestReplayStopsAtTamperedRecord(t *testing.T) {
	state := seedGame(t)
	controller := game.NewController(state, rand.New(rand.NewSource(42)))

	writer, _, err := NewWriter(t.TempDir(), "journal-test", fixedClock)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	batch, err := controller.AdvanceCycle()
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if len(batch) == 0 {
		t.Fatalf("first cycle should process the pending trade")
	}
	//1.- Journal the batch with a checksum that cannot be reproduced.
	if err := writer.AppendBatch(state.Cycle, "forged", batch); err != nil {
		t.Fatalf("append batch: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	loader, err := Open(writer.Directory())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	replica := seedGame(t)
	if _, _, err := loader.Replay(replica); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
	//2.- The untrusted record must not have advanced the replica.
	if replica.Cycle != 0 {
		t.Fatalf("tampered record mutated the replica to cycle %d", replica.Cycle)
	}
}

func TestLatestSnapshotReturnsFinalCapture(t *testing.T) {
	state := seedGame(t)
	writer, _, err := NewWriter(t.TempDir(), "journal-test", fixedClock)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	if err := writer.AppendSnapshot(1, "first", state); err != nil {
		t.Fatalf("append: %v", err)
	}
	state.Cycle = 7
	if err := writer.AppendSnapshot(7, "second", state); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	loader, err := Open(writer.Directory())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	snapshot, err := loader.LatestSnapshot()
	if err != nil {
		t.Fatalf("latest snapshot: %v", err)
	}
	if snapshot == nil || snapshot.Cycle != 7 || snapshot.Checksum != "second" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}

	want, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := json.Marshal(snapshot.State)
	if err != nil {
		t.Fatalf("marshal decoded: %v", err)
	}
	if !bytes.Equal(want, got) {
		t.Fatalf("snapshot state diverged\nwrote: %s\nread:  %s", want, got)
	}
}

func TestManifestDescribesBundleLayout(t *testing.T) {
	writer, manifest, err := NewWriter(t.TempDir(), "abc!!123", fixedClock)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer writer.Close()

	if manifest.Version != 1 {
		t.Fatalf("manifest version = %d, want 1", manifest.Version)
	}
	if manifest.EventsPath != "events.jsonl.sz" || manifest.SnapshotsPath != "snapshots.jsonl.zst" {
		t.Fatalf("unexpected artefact paths: %+v", manifest)
	}

	loader, err := Open(writer.Directory())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if loader.Manifest().GameID != "abc!!123" {
		t.Fatalf("manifest game id = %q", loader.Manifest().GameID)
	}
}
