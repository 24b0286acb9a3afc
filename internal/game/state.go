package game

import (
	"errors"
	"sort"

	"github.com/MasteredSoftware/Astriarch-sub000/internal/events"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/fleet"
)

var (
	// ErrInvariant marks a structural invariant violation elsewhere in the
	// system. It is not meant to be recovered locally; cycle processing lets
	// it propagate and fail loudly rather than silently corrupt state.
	ErrInvariant = errors.New("invariant violation")
	// ErrPlayerNotFound is returned when a referenced player is absent from state.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrPlanetNotFound is returned when a referenced planet is absent from state.
	ErrPlanetNotFound = errors.New("planet not found")
)

// State is one complete copy of a game. Exactly one copy is authoritative;
// observer copies are kept in agreement purely through the event stream.
// A copy is single-threaded: nothing in this package locks, because no two
// subsystems ever mutate the same copy concurrently.
type State struct {
	GameID        string             `json:"gameId"`
	Cycle         uint64             `json:"cycle"`
	Players       map[string]*Player `json:"players"`
	Planets       map[int]*Planet    `json:"planets"`
	TradingCenter *TradingCenter     `json:"tradingCenter"`
}

// NewState constructs an empty game copy.
func NewState(gameID string) *State {
	return &State{
		GameID:        gameID,
		Players:       make(map[string]*Player),
		Planets:       make(map[int]*Planet),
		TradingCenter: NewTradingCenter(),
	}
}

// Player owns research progress, in-transit fleets and the fleet-strength
// intelligence gathered about other players' planets.
type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsHuman bool   `json:"isHuman"`

	Research        *Research      `json:"research"`
	InTransitFleets []*fleet.Fleet `json:"inTransitFleets"`
	// NextFleetID is owned by the player aggregate so identifier assignment
	// survives save/restore and multiple concurrent games in one process.
	NextFleetID int `json:"nextFleetId"`
	// KnownPlanetFleetStrength is the last observed garrison strength per
	// planet; losing an attack is itself a scouting report.
	KnownPlanetFleetStrength map[int]int `json:"knownPlanetFleetStrength"`
}

// NewPlayer constructs a player with empty research and no fleets.
func NewPlayer(id, name string, human bool) *Player {
	return &Player{
		ID:                       id,
		Name:                     name,
		IsHuman:                  human,
		Research:                 NewResearch(),
		NextFleetID:              1,
		KnownPlanetFleetStrength: make(map[int]int),
	}
}

// RecordFleetStrength stores observed garrison strength intelligence.
func (p *Player) RecordFleetStrength(planetID, strength int) {
	if p == nil {
		return
	}
	if p.KnownPlanetFleetStrength == nil {
		p.KnownPlanetFleetStrength = make(map[int]int)
	}
	p.KnownPlanetFleetStrength[planetID] = strength
}

// RemoveInTransitFleet drops the fleet from the player's roster of traveling
// fleets; arrival means it is no longer in transit regardless of what follows.
func (p *Player) RemoveInTransitFleet(target *fleet.Fleet) {
	if p == nil || target == nil {
		return
	}
	remaining := p.InTransitFleets[:0]
	for _, f := range p.InTransitFleets {
		if f != target {
			remaining = append(remaining, f)
		}
	}
	p.InTransitFleets = remaining
}

// Player returns the referenced player or a descriptive error.
func (s *State) Player(id string) (*Player, error) {
	if player, ok := s.Players[id]; ok {
		return player, nil
	}
	return nil, ErrPlayerNotFound
}

// Planet returns the referenced planet or a descriptive error.
func (s *State) Planet(id int) (*Planet, error) {
	if planet, ok := s.Planets[id]; ok {
		return planet, nil
	}
	return nil, ErrPlanetNotFound
}

// PlanetAtHex locates the planet occupying the given hex midpoint, if any.
func (s *State) PlanetAtHex(point fleet.Point) *Planet {
	for _, id := range s.SortedPlanetIDs() {
		planet := s.Planets[id]
		if planet.HexMidPoint == point {
			return planet
		}
	}
	return nil
}

// SortedPlanetIDs returns planet identifiers in ascending order so that every
// copy of state iterates planets identically.
func (s *State) SortedPlanetIDs() []int {
	ids := make([]int, 0, len(s.Planets))
	for id := range s.Planets {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SortedPlayerIDs returns player identifiers in ascending order for
// deterministic iteration.
func (s *State) SortedPlayerIDs() []string {
	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HumanPlayerIDs filters the recipients of a notification event down to the
// players that actually have a client attached.
func (s *State) HumanPlayerIDs(candidates ...string) []string {
	ids := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if player, ok := s.Players[id]; ok && player.IsHuman {
			ids = append(ids, id)
		}
	}
	return ids
}

// PlanetSnapshot renders the full wire view of a planet, used only by events
// that introduce the planet to a player.
func (s *State) PlanetSnapshot(planet *Planet) events.PlanetSnapshot {
	snapshot := events.PlanetSnapshot{
		PlanetID: planet.ID,
		Name:     planet.Name,
		Class:    string(planet.Class),
		OwnerID:  planet.OwnerID,
		Food:     planet.Food,
		Ore:      planet.Ore,
		Gold:     planet.Gold,
		Farmers:  planet.Farmers,
		Miners:   planet.Miners,
		Builders: planet.Builders,
		Garrison: FleetSnapshot(planet.PlanetaryFleet),
	}
	return snapshot
}

// ShipIDsByClassOf groups a fleet's ship identifiers per hull class for the
// wire, each class sorted ascending.
func ShipIDsByClassOf(f *fleet.Fleet) events.ShipIDsByClass {
	grouped := events.ShipIDsByClass{}
	if f == nil {
		return grouped
	}
	byType := f.ShipIDsByType()
	for _, ids := range byType {
		sort.Ints(ids)
	}
	grouped.SystemDefenses = byType[fleet.TypeSystemDefense]
	grouped.Scouts = byType[fleet.TypeScout]
	grouped.Destroyers = byType[fleet.TypeDestroyer]
	grouped.Cruisers = byType[fleet.TypeCruiser]
	grouped.Battleships = byType[fleet.TypeBattleship]
	grouped.SpacePlatforms = byType[fleet.TypeSpacePlatform]
	return grouped
}

// FleetSnapshot renders the wire view of a fleet roster.
func FleetSnapshot(f *fleet.Fleet) events.FleetSnapshot {
	snapshot := events.FleetSnapshot{}
	if f == nil {
		return snapshot
	}
	snapshot.CompositionHash = f.CompositionHash
	snapshot.Ships = make([]events.ShipSnapshot, 0, len(f.Starships))
	for _, ship := range f.Starships {
		snapshot.Ships = append(snapshot.Ships, events.ShipSnapshot{
			ID:         ship.ID,
			Type:       ship.Type.String(),
			Health:     ship.Health,
			Experience: ship.ExperienceAmount,
		})
	}
	return snapshot
}
