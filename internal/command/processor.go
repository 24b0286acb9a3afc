package command

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/MasteredSoftware/Astriarch-sub000/internal/events"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/fleet"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/game"
	"github.com/MasteredSoftware/Astriarch-sub000/internal/logging"
)

var (
	// ErrValidation marks any command rejection: structural, ownership or
	// business-rule. A rejected command never mutates state.
	ErrValidation = errors.New("command validation failed")
	// ErrRateLimited is returned when a player exceeds their command budget.
	ErrRateLimited = errors.New("command rate limit exceeded")
	// ErrNotPlanetOwner is returned when a command targets a planet the
	// issuing player does not control.
	ErrNotPlanetOwner = errors.New("player does not own planet")
)

// Processor validates incoming commands against a game state, applies them
// and emits exactly one event per accepted command.
type Processor struct {
	validate *validator.Validate
	logger   *logging.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewProcessor constructs a processor enforcing the given per-player command
// rate and burst.
func NewProcessor(commandRate float64, burst int) *Processor {
	return &Processor{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logging.L(),
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(commandRate),
		burst:    burst,
	}
}

func (p *Processor) limiter(playerID string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	limiter, ok := p.limiters[playerID]
	if !ok {
		limiter = rate.NewLimiter(p.limit, p.burst)
		p.limiters[playerID] = limiter
	}
	return limiter
}

// Process validates the command fully before mutating anything, applies it to
// state and returns the single event describing the accepted change. Every
// rejection wraps ErrValidation and leaves state untouched.
func (p *Processor) Process(state *game.State, cmd Command) ([]events.Event, error) {
	//1.- Budget check before any work; flooding players get cheap rejections.
	if !p.limiter(cmd.PlayerID).Allow() {
		return nil, fmt.Errorf("%w: %v", ErrValidation, ErrRateLimited)
	}

	//2.- Structural validation of the envelope and the kind-matched payload.
	if err := p.validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	payload := cmd.payload()
	if payload == nil {
		return nil, fmt.Errorf("%w: kind %s without matching payload", ErrValidation, cmd.Kind)
	}
	if err := p.validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	player, err := state.Player(cmd.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	event, err := p.dispatch(state, player, cmd)
	if err != nil {
		p.logger.Debug("command rejected",
			logging.String(logging.GameIDField, state.GameID),
			logging.String("player_id", cmd.PlayerID),
			logging.String("kind", string(cmd.Kind)),
			logging.Error(err),
		)
		return nil, err
	}
	return []events.Event{event}, nil
}

func (p *Processor) dispatch(state *game.State, player *game.Player, cmd Command) (events.Event, error) {
	switch cmd.Kind {
	case KindBuildShip:
		return p.enqueueProduction(state, player, cmd.BuildShip.PlanetID, game.ProductionKindStarship, cmd.BuildShip.ShipType)
	case KindBuildImprovement:
		return p.enqueueProduction(state, player, cmd.BuildImprovement.PlanetID, game.ProductionKindImprovement, cmd.BuildImprovement.Improvement)
	case KindRemoveProductionItem:
		return p.removeProductionItem(state, player, *cmd.RemoveProductionItem)
	case KindSendShips:
		return p.sendShips(state, player, *cmd.SendShips)
	case KindUpdateWorkerAssignments:
		return p.updateWorkers(state, player, *cmd.UpdateWorkerAssignments)
	case KindUpdatePlanetOptions:
		return p.updatePlanetOptions(state, player, *cmd.UpdatePlanetOptions)
	case KindSetWaypoint:
		return p.setWaypoint(state, player, *cmd.SetWaypoint)
	case KindClearWaypoint:
		return p.clearWaypoint(state, player, *cmd.ClearWaypoint)
	case KindAdjustResearchPercent:
		return p.adjustResearchPercent(state, player, *cmd.AdjustResearchPercent)
	case KindSubmitResearchItem:
		return p.submitResearchItem(state, player, *cmd.SubmitResearchItem)
	case KindCancelResearchItem:
		return p.cancelResearchItem(state, player, *cmd.CancelResearchItem)
	case KindSubmitTrade:
		return p.submitTrade(state, player, *cmd.SubmitTrade)
	case KindCancelTrade:
		return p.cancelTrade(state, player, *cmd.CancelTrade)
	default:
		return events.Event{}, fmt.Errorf("%w: unknown kind %q", ErrValidation, cmd.Kind)
	}
}

// ownedPlanet resolves the planet and verifies the issuing player controls it.
func (p *Processor) ownedPlanet(state *game.State, player *game.Player, planetID int) (*game.Planet, error) {
	planet, err := state.Planet(planetID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if planet.OwnerID != player.ID {
		return nil, fmt.Errorf("%w: %v", ErrValidation, ErrNotPlanetOwner)
	}
	return planet, nil
}

func (p *Processor) enqueueProduction(state *game.State, player *game.Player, planetID int, kind game.ProductionItemKind, name string) (events.Event, error) {
	planet, err := p.ownedPlanet(state, player, planetID)
	if err != nil {
		return events.Event{}, err
	}
	item, err := planet.EnqueueProductionItemAndSpendResources(kind, name)
	if err != nil {
		return events.Event{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return events.Event{
		Type:              events.TypeProductionItemQueued,
		AffectedPlayerIDs: state.HumanPlayerIDs(player.ID),
		Data: events.ProductionItemQueuedData{
			PlanetID:        planet.ID,
			ItemKind:        string(item.Kind),
			ItemName:        item.Name,
			TurnsToComplete: item.TurnsRemaining,
			GoldSpent:       item.GoldCost,
			OreSpent:        item.OreCost,
		},
	}, nil
}

func (p *Processor) removeProductionItem(state *game.State, player *game.Player, payload RemoveProductionItemPayload) (events.Event, error) {
	planet, err := p.ownedPlanet(state, player, payload.PlanetID)
	if err != nil {
		return events.Event{}, err
	}
	if err := planet.RemoveProductionItem(payload.Index); err != nil {
		return events.Event{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return events.Event{
		Type:              events.TypeProductionItemRemoved,
		AffectedPlayerIDs: state.HumanPlayerIDs(player.ID),
		Data: events.ProductionItemRemovedData{
			PlanetID: planet.ID,
			Index:    payload.Index,
		},
	}, nil
}

func (p *Processor) sendShips(state *game.State, player *game.Player, payload SendShipsPayload) (events.Event, error) {
	planet, err := p.ownedPlanet(state, player, payload.PlanetID)
	if err != nil {
		return events.Event{}, err
	}
	destination, err := state.Planet(payload.DestinationPlanetID)
	if err != nil {
		return events.Event{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if destination.ID == planet.ID {
		return events.Event{}, fmt.Errorf("%w: destination is the origin planet", ErrValidation)
	}
	// Every requested ship must be in the garrison before anything moves.
	for _, id := range payload.ShipIDs {
		if planet.PlanetaryFleet.FindShip(id) == nil {
			return events.Event{}, fmt.Errorf("%w: ship %d not in garrison", ErrValidation, id)
		}
	}

	launched, err := planet.PlanetaryFleet.SplitByShipIDs(payload.ShipIDs)
	if err != nil {
		return events.Event{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	parsecs := distance(planet.HexMidPoint, destination.HexMidPoint)
	launched.SetDestination(planet.HexMidPoint, destination.HexMidPoint, parsecs)
	player.InTransitFleets = append(player.InTransitFleets, launched)

	return events.Event{
		Type:              events.TypeFleetLaunched,
		AffectedPlayerIDs: state.HumanPlayerIDs(player.ID),
		Data: events.FleetLaunchedData{
			PlanetID:            planet.ID,
			DestinationPlanetID: destination.ID,
			ShipIDs:             game.ShipIDsByClassOf(launched),
			Parsecs:             parsecs,
		},
	}, nil
}

func (p *Processor) updateWorkers(state *game.State, player *game.Player, payload UpdateWorkerAssignmentsPayload) (events.Event, error) {
	planet, err := p.ownedPlanet(state, player, payload.PlanetID)
	if err != nil {
		return events.Event{}, err
	}
	if err := planet.UpdatePopulationWorkerTypes(payload.Farmers, payload.Miners, payload.Builders); err != nil {
		return events.Event{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return events.Event{
		Type:              events.TypePlanetWorkerAssignmentsUpdated,
		AffectedPlayerIDs: state.HumanPlayerIDs(player.ID),
		Data: events.PlanetWorkerAssignmentsUpdatedData{
			PlanetID: planet.ID,
			Farmers:  payload.Farmers,
			Miners:   payload.Miners,
			Builders: payload.Builders,
		},
	}, nil
}

func (p *Processor) updatePlanetOptions(state *game.State, player *game.Player, payload UpdatePlanetOptionsPayload) (events.Event, error) {
	planet, err := p.ownedPlanet(state, player, payload.PlanetID)
	if err != nil {
		return events.Event{}, err
	}
	planet.BuildLastStarship = payload.BuildLastStarship
	return events.Event{
		Type:              events.TypePlanetOptionsUpdated,
		AffectedPlayerIDs: state.HumanPlayerIDs(player.ID),
		Data: events.PlanetOptionsUpdatedData{
			PlanetID:          planet.ID,
			BuildLastStarship: payload.BuildLastStarship,
		},
	}, nil
}

func (p *Processor) setWaypoint(state *game.State, player *game.Player, payload SetWaypointPayload) (events.Event, error) {
	planet, err := p.ownedPlanet(state, player, payload.PlanetID)
	if err != nil {
		return events.Event{}, err
	}
	if _, err := state.Planet(payload.WaypointPlanetID); err != nil {
		return events.Event{}, fmt.Errorf("%w: waypoint %v", ErrValidation, err)
	}
	if payload.WaypointPlanetID == planet.ID {
		return events.Event{}, fmt.Errorf("%w: waypoint is the planet itself", ErrValidation)
	}
	planet.SetWaypoint(payload.WaypointPlanetID)
	return events.Event{
		Type:              events.TypeWaypointSet,
		AffectedPlayerIDs: state.HumanPlayerIDs(player.ID),
		Data: events.WaypointSetData{
			PlanetID:         planet.ID,
			WaypointPlanetID: payload.WaypointPlanetID,
		},
	}, nil
}

func (p *Processor) clearWaypoint(state *game.State, player *game.Player, payload ClearWaypointPayload) (events.Event, error) {
	planet, err := p.ownedPlanet(state, player, payload.PlanetID)
	if err != nil {
		return events.Event{}, err
	}
	planet.ClearWaypoint()
	return events.Event{
		Type:              events.TypeWaypointCleared,
		AffectedPlayerIDs: state.HumanPlayerIDs(player.ID),
		Data:              events.WaypointClearedData{PlanetID: planet.ID},
	}, nil
}

func (p *Processor) adjustResearchPercent(state *game.State, player *game.Player, payload AdjustResearchPercentPayload) (events.Event, error) {
	if err := player.Research.SetPercent(payload.Percent); err != nil {
		return events.Event{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return events.Event{
		Type:              events.TypeResearchPercentAdjusted,
		AffectedPlayerIDs: state.HumanPlayerIDs(player.ID),
		Data: events.ResearchPercentAdjustedData{
			PlayerID: player.ID,
			Percent:  payload.Percent,
		},
	}, nil
}

func (p *Processor) submitResearchItem(state *game.State, player *game.Player, payload SubmitResearchItemPayload) (events.Event, error) {
	if err := player.Research.QueueItem(game.ResearchCategory(payload.Category)); err != nil {
		return events.Event{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return events.Event{
		Type:              events.TypeResearchQueued,
		AffectedPlayerIDs: state.HumanPlayerIDs(player.ID),
		Data: events.ResearchQueuedData{
			PlayerID: player.ID,
			Category: payload.Category,
		},
	}, nil
}

func (p *Processor) cancelResearchItem(state *game.State, player *game.Player, payload CancelResearchItemPayload) (events.Event, error) {
	if err := player.Research.CancelItem(game.ResearchCategory(payload.Category)); err != nil {
		return events.Event{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return events.Event{
		Type:              events.TypeResearchCancelled,
		AffectedPlayerIDs: state.HumanPlayerIDs(player.ID),
		Data: events.ResearchCancelledData{
			PlayerID: player.ID,
			Category: payload.Category,
		},
	}, nil
}

func (p *Processor) submitTrade(state *game.State, player *game.Player, payload SubmitTradePayload) (events.Event, error) {
	planet, err := p.ownedPlanet(state, player, payload.PlanetID)
	if err != nil {
		return events.Event{}, err
	}
	trade := game.Trade{
		ID:       uuid.NewString(),
		PlayerID: player.ID,
		PlanetID: planet.ID,
		Resource: game.TradeResource(payload.Resource),
		Amount:   payload.Amount,
		Kind:     game.TradeKind(payload.Kind),
	}
	if err := state.TradingCenter.Submit(trade); err != nil {
		return events.Event{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return events.Event{
		Type:              events.TypeTradeSubmitted,
		AffectedPlayerIDs: state.HumanPlayerIDs(player.ID),
		Data: events.TradeSubmittedData{
			PlayerID: player.ID,
			TradeID:  trade.ID,
			PlanetID: planet.ID,
			Resource: payload.Resource,
			Amount:   payload.Amount,
			Kind:     payload.Kind,
		},
	}, nil
}

func (p *Processor) cancelTrade(state *game.State, player *game.Player, payload CancelTradePayload) (events.Event, error) {
	if err := state.TradingCenter.Cancel(player.ID, payload.TradeID); err != nil {
		return events.Event{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return events.Event{
		Type:              events.TypeTradeCancelled,
		AffectedPlayerIDs: state.HumanPlayerIDs(player.ID),
		Data: events.TradeCancelledData{
			PlayerID: player.ID,
			TradeID:  payload.TradeID,
		},
	}, nil
}

// distance is the straight-line parsec distance between two hex midpoints.
func distance(a, b fleet.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
