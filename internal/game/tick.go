package game

import (
	"math"
	"math/rand"
	"time"

	"github.com/MasteredSoftware/Astriarch-sub000/internal/combat"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/events"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/fleet"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/logging"
)

// baseFleetSpeed is the parsecs a fleet covers per cycle before propulsion
// research scales it.
const baseFleetSpeed = 1.0

// propulsionSpeedPerLevel is the fractional speed gain per propulsion level.
const propulsionSpeedPerLevel = 0.25

// Controller drives the authoritative copy of a game: it advances cycles,
// resolves conflicts and produces the event batches every other copy replays.
type Controller struct {
	State  *State
	sim    *combat.Simulator
	rng    combat.Rand
	logger *logging.Logger
}

// NewController constructs the tick driver. A nil rng falls back to a
// time-seeded source; pass a seeded one for reproducible games.
func NewController(state *State, rng combat.Rand) *Controller {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Controller{
		State:  state,
		sim:    combat.NewSimulator(rng),
		rng:    rng,
		logger: logging.L(),
	}
}

// AdvanceCycle runs one full game cycle: resource and research output,
// production, trade execution, fleet travel and any conflicts arrivals
// trigger. It returns the ordered event batch describing everything that
// happened, ready for checksum folding and broadcast.
func (c *Controller) AdvanceCycle() ([]events.Event, error) {
	c.State.Cycle++
	batch := make([]events.Event, 0)

	//1.- Planets produce; a share of gold output is diverted into research.
	researchPoints := produceResources(c.State)

	//2.- Research points flow into each player's queue head.
	for _, done := range accrueResearch(c.State, researchPoints) {
		batch = append(batch, events.Event{
			Type:              events.TypeResearchCompleted,
			AffectedPlayerIDs: c.State.HumanPlayerIDs(done.PlayerID),
			Data:              done,
		})
	}

	//3.- Build queues tick down and finished hulls join their garrisons.
	advanceProductionQueues(c.State)

	//4.- Fleets move; arrivals either reinforce or start a conflict.
	conflictEvents, err := c.moveFleets()
	if err != nil {
		return batch, err
	}
	batch = append(batch, conflictEvents...)

	//5.- Pending trades clear last, after any ownership changes this cycle, so
	// every copy of state sees the same owners when it replays the execution.
	if executed := c.State.TradingCenter.ExecutePending(c.State); len(executed) > 0 {
		batch = append(batch, events.Event{
			Type:              events.TypeTradesProcessed,
			AffectedPlayerIDs: c.State.HumanPlayerIDs(c.State.SortedPlayerIDs()...),
			Data:              events.TradesProcessedData{ExecutedTradeIDs: executed},
		})
	}

	c.logger.Debug("cycle advanced",
		logging.String(logging.GameIDField, c.State.GameID),
		logging.Uint64("cycle", c.State.Cycle),
		logging.Int("events", len(batch)),
	)
	return batch, nil
}

// moveFleets advances every in-transit fleet and dispatches arrivals: a fleet
// reaching a friendly planet reinforces its garrison, anything else goes to
// the conflict resolver.
func (c *Controller) moveFleets() ([]events.Event, error) {
	hostiles, err := advanceFleetTravel(c.State)
	if err != nil {
		return nil, err
	}
	resolved := make([]events.Event, 0)
	for _, arrival := range hostiles {
		batch, err := c.ResolvePlanetaryConflicts(arrival.Player, []*fleet.Fleet{arrival.Fleet})
		if err != nil {
			return resolved, err
		}
		resolved = append(resolved, batch...)
	}
	return resolved, nil
}

// produceResources runs each planet's worker output for the cycle and returns
// the research points generated per player. Farmers grow food, miners dig ore
// and builders mint gold; the owner's research percent diverts a share of the
// gold into research instead. Every copy of state runs this identically.
func produceResources(s *State) map[string]int {
	points := make(map[string]int)
	for _, planetID := range s.SortedPlanetIDs() {
		planet := s.Planets[planetID]
		owner, ok := s.Players[planet.OwnerID]
		if !ok {
			continue
		}
		planet.Food += planet.Farmers * (1 + owner.Research.Level(ResearchFarms))
		planet.Ore += planet.Miners * (1 + owner.Research.Level(ResearchMines))

		gold := planet.Builders * (1 + owner.Research.Level(ResearchFactories))
		diverted := int(math.Round(float64(gold) * owner.Research.Percent / 100))
		planet.Gold += gold - diverted
		points[owner.ID] += diverted
	}
	return points
}

// accrueResearch credits each player's generated points into their queue head
// and reports every level completion.
func accrueResearch(s *State, points map[string]int) []events.ResearchCompletedData {
	completed := make([]events.ResearchCompletedData, 0)
	for _, playerID := range s.SortedPlayerIDs() {
		earned := points[playerID]
		if earned <= 0 {
			continue
		}
		player := s.Players[playerID]
		category, level, leveledUp := player.Research.AddPoints(earned)
		if !leveledUp {
			continue
		}
		completed = append(completed, events.ResearchCompletedData{
			PlayerID: playerID,
			Category: string(category),
			Level:    level,
		})
	}
	return completed
}

// advanceProductionQueues ticks every owned planet's build queue.
func advanceProductionQueues(s *State) {
	for _, planetID := range s.SortedPlanetIDs() {
		planet := s.Planets[planetID]
		if planet.OwnerID == "" {
			continue
		}
		planet.AdvanceProduction()
	}
}

// hostileArrival is a fleet that finished its travel over a hex its owner does
// not control.
type hostileArrival struct {
	Player *Player
	Fleet  *fleet.Fleet
}

// advanceFleetTravel moves every in-transit fleet by its owner's researched
// speed and lands fleets that arrived over a friendly planet. Arrivals
// anywhere else are returned for the caller to resolve; a copy following the
// event stream leaves them in place for the broadcast conflict outcome to
// consume.
func advanceFleetTravel(s *State) ([]hostileArrival, error) {
	hostiles := make([]hostileArrival, 0)
	for _, playerID := range s.SortedPlayerIDs() {
		player := s.Players[playerID]
		speed := baseFleetSpeed * (1 + propulsionSpeedPerLevel*float64(player.Research.Level(ResearchPropulsion)))

		arrivals := make([]*fleet.Fleet, 0)
		for _, traveling := range player.InTransitFleets {
			if traveling.AdvanceTravel(speed) {
				arrivals = append(arrivals, traveling)
			}
		}
		for _, arrived := range arrivals {
			if arrived.LocationHexMidPoint == nil {
				continue
			}
			planet := s.PlanetAtHex(*arrived.LocationHexMidPoint)
			if planet != nil && planet.OwnerID == player.ID {
				player.RemoveInTransitFleet(arrived)
				if err := planet.PlanetaryFleet.Land(arrived); err != nil {
					return hostiles, err
				}
				continue
			}
			hostiles = append(hostiles, hostileArrival{Player: player, Fleet: arrived})
		}
	}
	return hostiles, nil
}
