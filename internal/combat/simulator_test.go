package combat

import (
	"math/rand"
	"testing"

	"github.com/MasteredSoftware/Astriarch-sub000/internal/fleet"
)

func fleetOf(t *testing.T, location *fleet.Point, types ...fleet.Type) *fleet.Fleet {
	t.Helper()
	f := fleet.New(location)
	for i, shipType := range types {
		f.AddShip(fleet.NewStarship(i+1, shipType))
	}
	return f
}

func totalHealth(f *fleet.Fleet) int {
	total := 0
	for _, ship := range f.Starships {
		total += ship.Health
	}
	return total
}

func totalExperience(f *fleet.Fleet) int {
	total := 0
	for _, ship := range f.Starships {
		total += ship.ExperienceAmount
	}
	return total
}

func TestAdvantagedFleetWinsEqualStrengthMatchup(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	sim := NewSimulator(rng)

	wins := 0
	const trials = 100
	for i := 0; i < trials; i++ {
		//1.- One cruiser against two destroyers: equal base strength, but the
		// cruiser holds the advantage and the destroyers the disadvantage.
		cruisers := fleetOf(t, nil, fleet.TypeCruiser)
		destroyers := fleetOf(t, nil, fleet.TypeDestroyer, fleet.TypeDestroyer)
		if sim.SimulateFleetBattle(Participant{Fleet: cruisers}, Participant{Fleet: destroyers}) == OutcomeFleetAWins {
			wins++
		}
	}
	if wins < 90 {
		t.Fatalf("advantaged side won only %d/%d equal-strength battles", wins, trials)
	}
}

func TestDoubleStrengthOvercomesDisadvantage(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	sim := NewSimulator(rng)

	wins := 0
	const trials = 1000
	for i := 0; i < trials; i++ {
		//1.- Four scouts are double the strength of one destroyer, which is
		// advantaged against every one of them.
		scouts := fleetOf(t, nil, fleet.TypeScout, fleet.TypeScout, fleet.TypeScout, fleet.TypeScout)
		destroyer := fleetOf(t, nil, fleet.TypeDestroyer)
		if sim.SimulateFleetBattle(Participant{Fleet: scouts}, Participant{Fleet: destroyer}) == OutcomeFleetAWins {
			wins++
		}
	}
	if wins*2 < trials {
		t.Fatalf("double-strength side won only %d/%d battles against a disadvantaged matchup", wins, trials)
	}
}

func TestSymmetricBattleIsNearCoinFlip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	sim := NewSimulator(rng)

	winsA, winsB := 0, 0
	const trials = 1000
	for i := 0; i < trials; i++ {
		a := fleetOf(t, nil, fleet.TypeScout, fleet.TypeScout, fleet.TypeScout)
		b := fleetOf(t, nil, fleet.TypeScout, fleet.TypeScout, fleet.TypeScout)
		switch sim.SimulateFleetBattle(Participant{Fleet: a}, Participant{Fleet: b}) {
		case OutcomeFleetAWins:
			winsA++
		case OutcomeFleetBWins:
			winsB++
		}
	}
	decided := winsA + winsB
	if decided == 0 {
		t.Fatalf("no decided battles in %d trials", trials)
	}
	share := float64(winsA) / float64(decided)
	if share < 0.45 || share > 0.55 {
		t.Fatalf("symmetric matchup should be near even, fleet A won %.1f%% (%d/%d)", share*100, winsA, decided)
	}
}

func TestHomeHexTiltsIdenticalMatchup(t *testing.T) {
	for _, seed := range []int64{42, 99} {
		rng := rand.New(rand.NewSource(seed))
		sim := NewSimulator(rng)

		winsA, winsB := 0, 0
		const trials = 10000
		for i := 0; i < trials; i++ {
			hex := fleet.Point{X: 2, Y: 2}
			attacker := fleet.New(nil)
			defender := fleet.New(&hex)
			for id := 1; id <= 10; id++ {
				attacker.AddShip(fleet.NewStarship(id, fleet.TypeScout))
				defender.AddShip(fleet.NewStarship(id, fleet.TypeScout))
			}
			switch sim.SimulateFleetBattle(Participant{Fleet: attacker}, Participant{Fleet: defender}) {
			case OutcomeFleetAWins:
				winsA++
			case OutcomeFleetBWins:
				winsB++
			}
		}
		//1.- The landed side softens every incoming shot and takes any
		// mutual-destruction tie, so it must come out strictly ahead.
		if winsB*2 <= trials {
			t.Fatalf("seed %d: home fleet won only %d of %d", seed, winsB, trials)
		}
		//2.- The edge stays small: an identical attacker keeps at least a 45%
		// win rate against a dug-in defender.
		if float64(winsA) < 0.45*trials {
			t.Fatalf("seed %d: attacker won only %d of %d, below the 45%% floor", seed, winsA, trials)
		}
	}
}

func TestExperienceEqualsDestroyedHealth(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	sim := NewSimulator(rng)

	battleship := fleetOf(t, nil, fleet.TypeBattleship)
	scout := fleetOf(t, nil, fleet.TypeScout)
	destroyed := totalHealth(scout)

	outcome := sim.SimulateFleetBattle(Participant{Fleet: battleship}, Participant{Fleet: scout})
	if outcome != OutcomeFleetAWins {
		t.Fatalf("expected the battleship to win, got %v", outcome)
	}
	//1.- Per-hit credit is clamped to the health actually destroyed, so the
	// winner's experience equals the loser's total health exactly.
	if got := totalExperience(battleship); got != destroyed {
		t.Fatalf("expected %d experience credited, got %d", destroyed, got)
	}
}

func TestLoserGainsNoExperience(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	sim := NewSimulator(rng)

	weak := fleetOf(t, nil, fleet.TypeScout)
	strong := fleetOf(t, nil, fleet.TypeBattleship)

	outcome := sim.SimulateFleetBattle(Participant{Fleet: weak}, Participant{Fleet: strong})
	if outcome != OutcomeFleetBWins {
		t.Fatalf("expected the battleship side to win, got %v", outcome)
	}
	for _, ship := range weak.Starships {
		if ship.ExperienceAmount != 0 {
			t.Fatalf("losing ship %d should earn no experience, has %d", ship.ID, ship.ExperienceAmount)
		}
	}
}

func TestDamageRollIsUniform(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	sim := NewSimulator(rng)

	//1.- Neutral matchup with no research chances: ceiling is the weapon power,
	// so rolls must be uniform over {0, 1, 2}.
	firer := fleet.NewStarship(1, fleet.TypeBattleship)
	target := fleet.NewStarship(2, fleet.TypeScout)

	const trials = 9000
	counts := make(map[int]int)
	for i := 0; i < trials; i++ {
		damage := sim.rollDamage(firer, target, 0, 0)
		if damage < 0 || damage > fleet.WeaponPower {
			t.Fatalf("damage %d outside [0,%d]", damage, fleet.WeaponPower)
		}
		counts[damage]++
	}
	expected := trials / 3
	tolerance := trials * 5 / 100
	for value := 0; value <= fleet.WeaponPower; value++ {
		if diff := counts[value] - expected; diff > tolerance || diff < -tolerance {
			t.Fatalf("damage %d occurred %d times, expected %d±%d", value, counts[value], expected, tolerance)
		}
	}
}

func TestAdvantageRaisesDamageCeiling(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	sim := NewSimulator(rng)

	cruiser := fleet.NewStarship(1, fleet.TypeCruiser)
	destroyer := fleet.NewStarship(2, fleet.TypeDestroyer)

	sawMax := false
	for i := 0; i < 200; i++ {
		damage := sim.rollDamage(cruiser, destroyer, 0, 0)
		if damage > fleet.WeaponPower+fleet.WeaponPower/2 {
			t.Fatalf("advantaged roll %d above raised ceiling", damage)
		}
		if damage == fleet.WeaponPower+fleet.WeaponPower/2 {
			sawMax = true
		}
	}
	if !sawMax {
		t.Fatalf("advantaged matchup never reached its raised ceiling")
	}

	//1.- The reverse matchup is disadvantaged: ceiling drops to half power.
	for i := 0; i < 200; i++ {
		if damage := sim.rollDamage(destroyer, cruiser, 0, 0); damage > fleet.WeaponPower/2 {
			t.Fatalf("disadvantaged roll %d above lowered ceiling", damage)
		}
	}
}

func TestMutualDestructionTieBreaks(t *testing.T) {
	sim := NewSimulator(rand.New(rand.NewSource(1)))
	hex := fleet.Point{X: 1, Y: 1}

	cases := []struct {
		name     string
		aHex     *fleet.Point
		bHex     *fleet.Point
		expected Outcome
	}{
		{"defender holds ground", nil, &hex, OutcomeFleetBWins},
		{"attacker holds ground", &hex, nil, OutcomeFleetAWins},
		{"deep space", nil, nil, OutcomeDraw},
		{"both landed goes to second participant", &hex, &hex, OutcomeFleetBWins},
	}
	for _, tc := range cases {
		//1.- Empty rosters stand in for mutual destruction.
		a := Participant{Fleet: fleet.New(tc.aHex)}
		b := Participant{Fleet: fleet.New(tc.bHex)}
		if got := sim.decideOutcome(a, b); got != tc.expected {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.expected, got)
		}
	}
}

func TestGunlessStalemateEndsWithStrongerRoster(t *testing.T) {
	sim := NewSimulator(rand.New(rand.NewSource(1)))

	//1.- Health 1 ships carry no guns, so neither side can ever fire.
	a := fleet.New(nil)
	crippled := fleet.NewStarship(1, fleet.TypeScout)
	crippled.Health = 1
	a.AddShip(crippled)

	b := fleet.New(nil)
	sturdy := fleet.NewStarship(1, fleet.TypeCruiser)
	sturdy.Health = 1
	second := fleet.NewStarship(2, fleet.TypeCruiser)
	second.Health = 1
	b.AddShip(sturdy)
	b.AddShip(second)

	outcome := sim.SimulateFleetBattle(Participant{Fleet: a}, Participant{Fleet: b})
	if outcome != OutcomeFleetBWins {
		t.Fatalf("stalemate should resolve toward the stronger roster, got %v", outcome)
	}
}

func TestAttackingFleetChancesTable(t *testing.T) {
	cases := []struct {
		attacker float64
		defender float64
		expected int
	}{
		{16, 16, 50},
		{32, 16, 75},
		{16, 32, 25},
		{64, 16, 99},
		{16, 64, 1},
		{24, 16, 65},
		{16, 24, 35},
		{10, 0, 100},
		{0, 10, 0},
		{0, 0, 50},
	}
	for _, tc := range cases {
		if got := AttackingFleetChances(tc.attacker, tc.defender); got != tc.expected {
			t.Fatalf("chances(%v, %v) = %d, expected %d", tc.attacker, tc.defender, got, tc.expected)
		}
	}
}

func TestTargetSelectionPrefersAdvantagedMatchups(t *testing.T) {
	cruiser := fleet.NewStarship(1, fleet.TypeCruiser)

	enemy := fleet.New(nil)
	enemy.AddShip(fleet.NewStarship(1, fleet.TypeBattleship)) // disadvantaged matchup
	enemy.AddShip(fleet.NewStarship(2, fleet.TypeScout))      // neutral matchup
	enemy.AddShip(fleet.NewStarship(3, fleet.TypeDestroyer))  // advantaged matchup

	target := selectTarget(cruiser, enemy, newPendingDamage())
	if target == nil || target.Type != fleet.TypeDestroyer {
		t.Fatalf("cruiser should target the destroyer it is advantaged against, got %v", target)
	}
}

func TestTargetSelectionSkipsLethallyCommittedShips(t *testing.T) {
	scout := fleet.NewStarship(1, fleet.TypeScout)

	enemy := fleet.New(nil)
	first := fleet.NewStarship(1, fleet.TypeScout)
	second := fleet.NewStarship(2, fleet.TypeScout)
	enemy.AddShip(first)
	enemy.AddShip(second)

	pending := newPendingDamage()
	//1.- Commit lethal damage against the first ship; further shots must move on.
	pending.add(first.ID, 9, first.Health)

	target := selectTarget(scout, enemy, pending)
	if target == nil || target.ID != second.ID {
		t.Fatalf("expected fire to shift to ship 2, got %v", target)
	}

	pending.add(second.ID, 9, second.Health)
	if target := selectTarget(scout, enemy, pending); target != nil {
		t.Fatalf("everything lethally committed, expected no target, got ship %d", target.ID)
	}
}

func TestNoShipDiesMidRound(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	sim := NewSimulator(rng)

	//1.- Two battleships against two scouts: the first battleship alone rolls
	// enough guns to destroy both scouts, yet both scouts must still return
	// fire this round. If deaths applied mid-round the scouts would deal zero
	// damage in every battle; across repeats the battleships must take hits.
	battleshipsDamaged := false
	for i := 0; i < 50; i++ {
		strong := fleetOf(t, nil, fleet.TypeBattleship, fleet.TypeBattleship)
		weak := fleetOf(t, nil, fleet.TypeScout, fleet.TypeScout)
		sim.SimulateFleetBattle(Participant{Fleet: strong}, Participant{Fleet: weak})
		for _, ship := range strong.Starships {
			if ship.Health < ship.Type.BaseStrength() {
				battleshipsDamaged = true
			}
		}
	}
	if !battleshipsDamaged {
		t.Fatalf("doomed ships never returned fire; simultaneity is broken")
	}
}
