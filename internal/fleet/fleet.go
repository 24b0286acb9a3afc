package fleet

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrShipNotFound is returned when a split selection names a ship absent from the roster.
	ErrShipNotFound = errors.New("ship not present in fleet")
	// ErrDuplicateShipID is returned when landing would introduce a colliding ship identifier.
	ErrDuplicateShipID = errors.New("duplicate ship id")
)

// Point locates a hex midpoint on the galaxy grid.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Fleet is an ordered collection of starships together with its travel bookkeeping.
// A nil LocationHexMidPoint means the fleet is mid-transit between hexes.
type Fleet struct {
	Starships                []*Starship `json:"starships"`
	LocationHexMidPoint      *Point      `json:"locationHexMidPoint,omitempty"`
	TravelingFromHexMidPoint *Point      `json:"travelingFromHexMidPoint,omitempty"`
	DestinationHexMidPoint   *Point      `json:"destinationHexMidPoint,omitempty"`
	ParsecsToDestination     float64     `json:"parsecsToDestination"`
	CompositionHash          string      `json:"compositionHash"`
}

// New constructs an empty fleet located at the given hex midpoint.
func New(location *Point) *Fleet {
	f := &Fleet{}
	if location != nil {
		loc := *location
		f.LocationHexMidPoint = &loc
	}
	f.RecalculateCompositionHash()
	return f
}

// AddShip appends a ship to the roster and refreshes the composition hash.
func (f *Fleet) AddShip(ship *Starship) {
	if f == nil || ship == nil {
		return
	}
	f.Starships = append(f.Starships, ship)
	f.RecalculateCompositionHash()
}

// Strength sums the effective strength of every ship in the fleet.
// When applyPlatformMultiplier is set, space platforms count double; this is a
// strategic-comparison heuristic and must never be used during combat resolution.
func (f *Fleet) Strength(applyPlatformMultiplier bool) int {
	if f == nil {
		return 0
	}
	total := 0
	for _, ship := range f.Starships {
		strength := ship.Strength()
		if applyPlatformMultiplier && ship.Type == TypeSpacePlatform {
			strength *= 2
		}
		total += strength
	}
	return total
}

// CountByType tallies roster membership per hull class.
func (f *Fleet) CountByType() map[Type]int {
	counts := make(map[Type]int)
	if f == nil {
		return counts
	}
	for _, ship := range f.Starships {
		counts[ship.Type]++
	}
	return counts
}

// ShipIDsByType groups roster ship identifiers per hull class in roster order.
func (f *Fleet) ShipIDsByType() map[Type][]int {
	ids := make(map[Type][]int)
	if f == nil {
		return ids
	}
	for _, ship := range f.Starships {
		ids[ship.Type] = append(ids[ship.Type], ship.ID)
	}
	return ids
}

// FindShip returns the roster ship with the given identifier, if present.
func (f *Fleet) FindShip(id int) *Starship {
	if f == nil {
		return nil
	}
	for _, ship := range f.Starships {
		if ship.ID == id {
			return ship
		}
	}
	return nil
}

// SplitByShipIDs removes exactly the named ships from the roster and returns a
// new in-transit fleet containing them. Both composition hashes are recomputed.
func (f *Fleet) SplitByShipIDs(shipIDs []int) (*Fleet, error) {
	if f == nil {
		return nil, errors.New("nil fleet")
	}
	selected := make(map[int]bool, len(shipIDs))
	for _, id := range shipIDs {
		if f.FindShip(id) == nil {
			return nil, fmt.Errorf("%w: %d", ErrShipNotFound, id)
		}
		selected[id] = true
	}

	split := &Fleet{}
	remaining := f.Starships[:0]
	for _, ship := range f.Starships {
		if selected[ship.ID] {
			split.Starships = append(split.Starships, ship)
			continue
		}
		remaining = append(remaining, ship)
	}
	f.Starships = remaining

	f.RecalculateCompositionHash()
	split.RecalculateCompositionHash()
	return split, nil
}

// Land merges the incoming fleet's ships into this fleet's roster. The incoming
// fleet is logically dead afterwards; its roster is emptied so stale references
// cannot double-count ships.
func (f *Fleet) Land(incoming *Fleet) error {
	if f == nil || incoming == nil {
		return errors.New("nil fleet")
	}
	for _, ship := range incoming.Starships {
		if f.FindShip(ship.ID) != nil {
			return fmt.Errorf("%w: %d", ErrDuplicateShipID, ship.ID)
		}
	}
	f.Starships = append(f.Starships, incoming.Starships...)
	incoming.Starships = nil
	f.RecalculateCompositionHash()
	incoming.RecalculateCompositionHash()
	return nil
}

// Clone returns a deep copy of the fleet, used to retain pre-battle snapshots
// before any destructive operation.
func (f *Fleet) Clone() *Fleet {
	if f == nil {
		return nil
	}
	clone := &Fleet{
		ParsecsToDestination: f.ParsecsToDestination,
		CompositionHash:      f.CompositionHash,
	}
	if f.LocationHexMidPoint != nil {
		p := *f.LocationHexMidPoint
		clone.LocationHexMidPoint = &p
	}
	if f.TravelingFromHexMidPoint != nil {
		p := *f.TravelingFromHexMidPoint
		clone.TravelingFromHexMidPoint = &p
	}
	if f.DestinationHexMidPoint != nil {
		p := *f.DestinationHexMidPoint
		clone.DestinationHexMidPoint = &p
	}
	clone.Starships = make([]*Starship, 0, len(f.Starships))
	for _, ship := range f.Starships {
		clone.Starships = append(clone.Starships, ship.Clone())
	}
	return clone
}

// Reduce removes every destroyed ship from the roster. Callers must apply all
// of a combat round's damage before reducing so that fire stays simultaneous.
func (f *Fleet) Reduce() {
	if f == nil {
		return
	}
	survivors := f.Starships[:0]
	for _, ship := range f.Starships {
		if ship.Health > 0 {
			survivors = append(survivors, ship)
		}
	}
	if len(survivors) == len(f.Starships) {
		return
	}
	f.Starships = survivors
	f.RecalculateCompositionHash()
}

// SetDestination records travel bookkeeping for a fleet leaving its hex.
func (f *Fleet) SetDestination(from, destination Point, parsecs float64) {
	if f == nil {
		return
	}
	origin := from
	dest := destination
	f.TravelingFromHexMidPoint = &origin
	f.DestinationHexMidPoint = &dest
	f.ParsecsToDestination = parsecs
	f.LocationHexMidPoint = nil
}

// AdvanceTravel moves the fleet by the given parsecs and reports arrival.
// On arrival the fleet occupies its destination hex and travel state clears.
func (f *Fleet) AdvanceTravel(parsecs float64) bool {
	if f == nil || f.DestinationHexMidPoint == nil {
		return false
	}
	f.ParsecsToDestination -= parsecs
	if f.ParsecsToDestination > 0 {
		return false
	}
	arrived := *f.DestinationHexMidPoint
	f.LocationHexMidPoint = &arrived
	f.TravelingFromHexMidPoint = nil
	f.DestinationHexMidPoint = nil
	f.ParsecsToDestination = 0
	return true
}

// SortedShipIDs returns the roster's ship identifiers in ascending order.
func (f *Fleet) SortedShipIDs() []int {
	if f == nil {
		return nil
	}
	ids := make([]int, 0, len(f.Starships))
	for _, ship := range f.Starships {
		ids = append(ids, ship.ID)
	}
	sort.Ints(ids)
	return ids
}
