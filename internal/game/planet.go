package game

import (
	"errors"
	"fmt"

	"github.com/MasteredSoftware/Astriarch-sub000/internal/fleet"
)

// PlanetClass grades a planet's habitability; better classes hold more
// research worth stealing and support larger populations.
type PlanetClass string

const (
	ClassAsteroidBelt PlanetClass = "AsteroidBelt"
	ClassDeadPlanet   PlanetClass = "DeadPlanet"
	ClassPlanet1      PlanetClass = "PlanetClass1"
	ClassPlanet2      PlanetClass = "PlanetClass2"
)

// ResearchLootCap bounds how many research points per category an attacker may
// steal when capturing a planet of this class.
func (c PlanetClass) ResearchLootCap() int {
	switch c {
	case ClassAsteroidBelt:
		return 2
	case ClassDeadPlanet:
		return 4
	case ClassPlanet1:
		return 6
	case ClassPlanet2:
		return 9
	default:
		return 0
	}
}

var (
	// ErrInsufficientResources is returned when a production purchase cannot be afforded.
	ErrInsufficientResources = errors.New("insufficient resources")
	// ErrInvalidQueueIndex is returned when a queue removal is out of bounds.
	ErrInvalidQueueIndex = errors.New("invalid production queue index")
	// ErrInvalidWorkerCounts is returned when a worker reassignment changes the population.
	ErrInvalidWorkerCounts = errors.New("worker counts must preserve total population")
	// ErrUnknownProductionItem is returned for unrecognized production requests.
	ErrUnknownProductionItem = errors.New("unknown production item")
)

// ProductionItemKind discriminates what a production queue entry builds.
type ProductionItemKind string

const (
	ProductionKindStarship    ProductionItemKind = "starship"
	ProductionKindImprovement ProductionItemKind = "improvement"
)

// ProductionItem is one entry in a planet's build queue.
type ProductionItem struct {
	Kind           ProductionItemKind `json:"kind"`
	Name           string             `json:"name"`
	TurnsRemaining int                `json:"turnsRemaining"`
	GoldCost       int                `json:"goldCost"`
	OreCost        int                `json:"oreCost"`
}

// shipCost tabulates the purchase cost and build time per hull class.
type shipCost struct {
	gold  int
	ore   int
	turns int
}

var shipCosts = map[fleet.Type]shipCost{
	fleet.TypeSystemDefense: {gold: 1, ore: 1, turns: 1},
	fleet.TypeScout:         {gold: 3, ore: 2, turns: 2},
	fleet.TypeDestroyer:     {gold: 6, ore: 4, turns: 4},
	fleet.TypeCruiser:       {gold: 12, ore: 8, turns: 6},
	fleet.TypeBattleship:    {gold: 24, ore: 16, turns: 8},
	fleet.TypeSpacePlatform: {gold: 40, ore: 30, turns: 10},
}

var improvementCosts = map[string]shipCost{
	"Farm":    {gold: 2, ore: 1, turns: 2},
	"Mine":    {gold: 3, ore: 1, turns: 2},
	"Factory": {gold: 6, ore: 4, turns: 4},
	"Colony":  {gold: 8, ore: 6, turns: 6},
}

// ShipTypeByName resolves the wire name of a hull class.
func ShipTypeByName(name string) (fleet.Type, bool) {
	for _, t := range []fleet.Type{
		fleet.TypeSystemDefense, fleet.TypeScout, fleet.TypeDestroyer,
		fleet.TypeCruiser, fleet.TypeBattleship, fleet.TypeSpacePlatform,
	} {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

// Planet owns its garrison, build queue, worker assignments and the ship
// identifier counter for every ship it ever constructs.
type Planet struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Class       PlanetClass `json:"class"`
	OwnerID     string      `json:"ownerId"`
	HexMidPoint fleet.Point `json:"hexMidPoint"`

	Food int `json:"food"`
	Ore  int `json:"ore"`
	Gold int `json:"gold"`

	Farmers  int `json:"farmers"`
	Miners   int `json:"miners"`
	Builders int `json:"builders"`

	ProductionQueue []ProductionItem `json:"productionQueue"`
	PlanetaryFleet  *fleet.Fleet     `json:"planetaryFleet"`
	OutgoingFleets  []*fleet.Fleet   `json:"outgoingFleets"`

	WaypointPlanetID  *int `json:"waypointPlanetId,omitempty"`
	BuildLastStarship bool `json:"buildLastStarShip"`

	// NextShipID is owned by the planet aggregate; every ship constructed
	// here draws from this counter. The counter is offset by the planet
	// identifier so ship identifiers never collide across originating
	// scopes, which landing a fleet into a foreign garrison depends on.
	NextShipID int `json:"nextShipId"`
}

// shipIDStride spaces each planet's ship identifier range.
const shipIDStride = 1_000_000

// NewPlanet constructs an unowned planet at the given hex midpoint.
func NewPlanet(id int, name string, class PlanetClass, hex fleet.Point) *Planet {
	return &Planet{
		ID:              id,
		Name:            name,
		Class:           class,
		HexMidPoint:     hex,
		PlanetaryFleet:  fleet.New(&hex),
		NextShipID:      id*shipIDStride + 1,
		ProductionQueue: []ProductionItem{},
	}
}

// GenerateShip constructs a ship of the class in the planet's garrison,
// drawing the identifier from the planet's own counter.
func (p *Planet) GenerateShip(shipType fleet.Type) *fleet.Starship {
	ship := fleet.NewStarship(p.NextShipID, shipType)
	p.NextShipID++
	p.PlanetaryFleet.AddShip(ship)
	return ship
}

// Population is the total assigned worker count.
func (p *Planet) Population() int {
	if p == nil {
		return 0
	}
	return p.Farmers + p.Miners + p.Builders
}

// CanAfford reports whether the planet's stockpile covers the cost.
func (p *Planet) CanAfford(gold, ore int) bool {
	return p.Gold >= gold && p.Ore >= ore
}

// EnqueueProductionItemAndSpendResources validates affordability, spends the
// resources and appends the item to the build queue. Validation fully precedes
// mutation.
func (p *Planet) EnqueueProductionItemAndSpendResources(kind ProductionItemKind, name string) (ProductionItem, error) {
	var cost shipCost
	switch kind {
	case ProductionKindStarship:
		shipType, ok := ShipTypeByName(name)
		if !ok {
			return ProductionItem{}, fmt.Errorf("%w: starship %q", ErrUnknownProductionItem, name)
		}
		cost = shipCosts[shipType]
	case ProductionKindImprovement:
		c, ok := improvementCosts[name]
		if !ok {
			return ProductionItem{}, fmt.Errorf("%w: improvement %q", ErrUnknownProductionItem, name)
		}
		cost = c
	default:
		return ProductionItem{}, fmt.Errorf("%w: kind %q", ErrUnknownProductionItem, kind)
	}

	if !p.CanAfford(cost.gold, cost.ore) {
		return ProductionItem{}, fmt.Errorf("%w: need %d gold and %d ore", ErrInsufficientResources, cost.gold, cost.ore)
	}
	p.Gold -= cost.gold
	p.Ore -= cost.ore
	item := ProductionItem{
		Kind:           kind,
		Name:           name,
		TurnsRemaining: cost.turns,
		GoldCost:       cost.gold,
		OreCost:        cost.ore,
	}
	p.ProductionQueue = append(p.ProductionQueue, item)
	return item, nil
}

// RemoveProductionItem deletes the queue entry at index, refunding half the
// gold spent (ore is lost to scrap).
func (p *Planet) RemoveProductionItem(index int) error {
	if index < 0 || index >= len(p.ProductionQueue) {
		return fmt.Errorf("%w: %d", ErrInvalidQueueIndex, index)
	}
	item := p.ProductionQueue[index]
	p.Gold += item.GoldCost / 2
	p.ProductionQueue = append(p.ProductionQueue[:index], p.ProductionQueue[index+1:]...)
	return nil
}

// UpdatePopulationWorkerTypes reassigns workers; the new counts must preserve
// the current total population.
func (p *Planet) UpdatePopulationWorkerTypes(farmers, miners, builders int) error {
	if farmers < 0 || miners < 0 || builders < 0 {
		return fmt.Errorf("%w: counts must be non-negative", ErrInvalidWorkerCounts)
	}
	if farmers+miners+builders != p.Population() {
		return fmt.Errorf("%w: have %d workers", ErrInvalidWorkerCounts, p.Population())
	}
	p.Farmers = farmers
	p.Miners = miners
	p.Builders = builders
	return nil
}

// SetWaypoint routes newly-built ships toward the given planet.
func (p *Planet) SetWaypoint(planetID int) {
	id := planetID
	p.WaypointPlanetID = &id
}

// ClearWaypoint removes the outbound routing for newly-built ships.
func (p *Planet) ClearWaypoint() {
	p.WaypointPlanetID = nil
}

// AdvanceProduction progresses the head of the build queue by one cycle and
// commissions the finished item, if any. Finished starships join the garrison.
func (p *Planet) AdvanceProduction() *ProductionItem {
	if len(p.ProductionQueue) == 0 {
		return nil
	}
	head := &p.ProductionQueue[0]
	head.TurnsRemaining--
	if head.TurnsRemaining > 0 {
		return nil
	}
	finished := *head
	p.ProductionQueue = p.ProductionQueue[1:]
	if finished.Kind == ProductionKindStarship {
		if shipType, ok := ShipTypeByName(finished.Name); ok {
			p.GenerateShip(shipType)
		}
	}
	return &finished
}

// RecallOutgoingFleets pulls every queued departure back into the garrison, a
// defensive response to an incoming threat. Reports how many fleets returned.
func (p *Planet) RecallOutgoingFleets() int {
	recalled := 0
	for _, outgoing := range p.OutgoingFleets {
		if err := p.PlanetaryFleet.Land(outgoing); err != nil {
			// Identifier collision here means the fleet was already merged.
			continue
		}
		recalled++
	}
	p.OutgoingFleets = nil
	return recalled
}
