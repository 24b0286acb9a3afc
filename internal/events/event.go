package events

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Type identifies the kind of client event carried on the wire.
// These strings are stable wire constants shared by every copy of game state.
type Type string

const (
	TypeProductionItemQueued           Type = "PRODUCTION_ITEM_QUEUED"
	TypeProductionItemRemoved          Type = "PRODUCTION_ITEM_REMOVED"
	TypeFleetLaunched                  Type = "FLEET_LAUNCHED"
	TypePlanetWorkerAssignmentsUpdated Type = "PLANET_WORKER_ASSIGNMENTS_UPDATED"
	TypePlanetOptionsUpdated           Type = "PLANET_OPTIONS_UPDATED"
	TypeWaypointSet                    Type = "WAYPOINT_SET"
	TypeWaypointCleared                Type = "WAYPOINT_CLEARED"
	TypeResearchPercentAdjusted        Type = "RESEARCH_PERCENT_ADJUSTED"
	TypeResearchQueued                 Type = "RESEARCH_QUEUED"
	TypeResearchCancelled              Type = "RESEARCH_CANCELLED"
	TypeResearchCompleted              Type = "RESEARCH_COMPLETED"
	TypeResearchStolen                 Type = "RESEARCH_STOLEN"
	TypeTradeSubmitted                 Type = "TRADE_SUBMITTED"
	TypeTradeCancelled                 Type = "TRADE_CANCELLED"
	TypeTradesProcessed                Type = "TRADES_PROCESSED"
	TypePlanetCaptured                 Type = "PLANET_CAPTURED"
	TypePlanetLost                     Type = "PLANET_LOST"
	TypeFleetAttackFailed              Type = "FLEET_ATTACK_FAILED"
	TypeFleetDefenseSuccess            Type = "FLEET_DEFENSE_SUCCESS"
)

// Event is the minimal, typed state delta broadcast after a validated command
// or a resolved conflict. Each receiving copy replays it via the applicator.
type Event struct {
	Type              Type     `json:"type"`
	AffectedPlayerIDs []string `json:"affectedPlayerIds"`
	Data              any      `json:"data"`
}

// ShipIDsByClass groups launched ship identifiers per hull class.
type ShipIDsByClass struct {
	SystemDefenses []int `json:"systemDefenses,omitempty"`
	Scouts         []int `json:"scouts,omitempty"`
	Destroyers     []int `json:"destroyers,omitempty"`
	Cruisers       []int `json:"cruisers,omitempty"`
	Battleships    []int `json:"battleships,omitempty"`
	SpacePlatforms []int `json:"spacePlatforms,omitempty"`
}

// ShipDamage names a surviving ship and the health it lost in a battle.
type ShipDamage struct {
	ID     int `json:"id"`
	Damage int `json:"damage"`
}

// ShipExperience names a surviving ship and the experience it gained in a battle.
type ShipExperience struct {
	ID         int `json:"id"`
	Experience int `json:"experience"`
}

// CombatResultDiff is the destroyed/damaged/experience delta between a fleet's
// pre- and post-battle snapshots. Receivers apply it incrementally so benign
// local divergence (e.g. ships produced in the interim) survives the replay.
type CombatResultDiff struct {
	ShipsDestroyed        []int            `json:"shipsDestroyed"`
	ShipsDamaged          []ShipDamage     `json:"shipsDamaged"`
	ShipsExperienceGained []ShipExperience `json:"shipsExperienceGained"`
}

// ConflictSummary is the audit record attached to combat outcome events.
type ConflictSummary struct {
	AttackingFleetChances int              `json:"attackingFleetChances"`
	Diff                  CombatResultDiff `json:"combatResultDiff"`
	ResearchPointsLooted  int              `json:"researchPointsLooted"`
}

// ShipSnapshot is the wire view of a single starship.
type ShipSnapshot struct {
	ID         int    `json:"id"`
	Type       string `json:"type"`
	Health     int    `json:"health"`
	Experience int    `json:"experienceAmount"`
}

// FleetSnapshot is the wire view of a fleet roster.
type FleetSnapshot struct {
	Ships           []ShipSnapshot `json:"ships"`
	CompositionHash string         `json:"compositionHash"`
}

// PlanetSnapshot is the full planet view carried only by events that introduce
// a planet to a player, such as a capture.
type PlanetSnapshot struct {
	PlanetID int           `json:"planetId"`
	Name     string        `json:"name"`
	Class    string        `json:"class"`
	OwnerID  string        `json:"ownerId"`
	Food     int           `json:"food"`
	Ore      int           `json:"ore"`
	Gold     int           `json:"gold"`
	Farmers  int           `json:"farmers"`
	Miners   int           `json:"miners"`
	Builders int           `json:"builders"`
	Garrison FleetSnapshot `json:"garrison"`
}

// Payload structs, one per event type, carrying only replay-minimal fields.

type ProductionItemQueuedData struct {
	PlanetID        int    `json:"planetId"`
	ItemKind        string `json:"itemKind"`
	ItemName        string `json:"itemName"`
	TurnsToComplete int    `json:"turnsToComplete"`
	GoldSpent       int    `json:"goldSpent"`
	OreSpent        int    `json:"oreSpent"`
}

type ProductionItemRemovedData struct {
	PlanetID int `json:"planetId"`
	Index    int `json:"index"`
}

type FleetLaunchedData struct {
	PlanetID            int            `json:"planetId"`
	DestinationPlanetID int            `json:"destinationPlanetId"`
	ShipIDs             ShipIDsByClass `json:"shipIds"`
	Parsecs             float64        `json:"parsecs"`
}

type PlanetWorkerAssignmentsUpdatedData struct {
	PlanetID int `json:"planetId"`
	Farmers  int `json:"farmers"`
	Miners   int `json:"miners"`
	Builders int `json:"builders"`
}

type PlanetOptionsUpdatedData struct {
	PlanetID          int  `json:"planetId"`
	BuildLastStarship bool `json:"buildLastStarShip"`
}

type WaypointSetData struct {
	PlanetID         int `json:"planetId"`
	WaypointPlanetID int `json:"waypointPlanetId"`
}

type WaypointClearedData struct {
	PlanetID int `json:"planetId"`
}

type ResearchPercentAdjustedData struct {
	PlayerID string  `json:"playerId"`
	Percent  float64 `json:"percent"`
}

type ResearchQueuedData struct {
	PlayerID string `json:"playerId"`
	Category string `json:"category"`
}

type ResearchCancelledData struct {
	PlayerID string `json:"playerId"`
	Category string `json:"category"`
}

type ResearchCompletedData struct {
	PlayerID string `json:"playerId"`
	Category string `json:"category"`
	Level    int    `json:"level"`
}

type ResearchStolenData struct {
	Category       string `json:"category"`
	Points         int    `json:"points"`
	NewLevel       int    `json:"newLevel"`
	WasVictim      bool   `json:"wasVictim"`
	VictimPlayerID string `json:"victimPlayerId"`
	ThiefPlayerID  string `json:"thiefPlayerId"`
}

type TradeSubmittedData struct {
	PlayerID string `json:"playerId"`
	TradeID  string `json:"tradeId"`
	PlanetID int    `json:"planetId"`
	Resource string `json:"resource"`
	Amount   int    `json:"amount"`
	Kind     string `json:"kind"`
}

type TradeCancelledData struct {
	PlayerID string `json:"playerId"`
	TradeID  string `json:"tradeId"`
}

type TradesProcessedData struct {
	ExecutedTradeIDs []string `json:"executedTradeIds"`
}

type PlanetCapturedData struct {
	PlanetID        int             `json:"planetId"`
	NewOwnerID      string          `json:"newOwnerId"`
	PreviousOwnerID string          `json:"previousOwnerId"`
	Planet          PlanetSnapshot  `json:"planet"`
	Conflict        ConflictSummary `json:"conflict"`
}

type PlanetLostData struct {
	PlanetID   int             `json:"planetId"`
	NewOwnerID string          `json:"newOwnerId"`
	Conflict   ConflictSummary `json:"conflict"`
}

type FleetAttackFailedData struct {
	PlanetID int `json:"planetId"`
	// AttackerPlayerID names whose fleet was destroyed. Several players can
	// attack the same planet in one cycle, so the consumer must not guess.
	AttackerPlayerID string          `json:"attackerPlayerId"`
	Conflict         ConflictSummary `json:"conflict"`
}

type FleetDefenseSuccessData struct {
	PlanetID int             `json:"planetId"`
	Conflict ConflictSummary `json:"conflict"`
}

// payloadFor returns a pointer to the zero payload value for the event type,
// or nil for unknown types so lagging consumers can skip them gracefully.
func payloadFor(t Type) any {
	switch t {
	case TypeProductionItemQueued:
		return &ProductionItemQueuedData{}
	case TypeProductionItemRemoved:
		return &ProductionItemRemovedData{}
	case TypeFleetLaunched:
		return &FleetLaunchedData{}
	case TypePlanetWorkerAssignmentsUpdated:
		return &PlanetWorkerAssignmentsUpdatedData{}
	case TypePlanetOptionsUpdated:
		return &PlanetOptionsUpdatedData{}
	case TypeWaypointSet:
		return &WaypointSetData{}
	case TypeWaypointCleared:
		return &WaypointClearedData{}
	case TypeResearchPercentAdjusted:
		return &ResearchPercentAdjustedData{}
	case TypeResearchQueued:
		return &ResearchQueuedData{}
	case TypeResearchCancelled:
		return &ResearchCancelledData{}
	case TypeResearchCompleted:
		return &ResearchCompletedData{}
	case TypeResearchStolen:
		return &ResearchStolenData{}
	case TypeTradeSubmitted:
		return &TradeSubmittedData{}
	case TypeTradeCancelled:
		return &TradeCancelledData{}
	case TypeTradesProcessed:
		return &TradesProcessedData{}
	case TypePlanetCaptured:
		return &PlanetCapturedData{}
	case TypePlanetLost:
		return &PlanetLostData{}
	case TypeFleetAttackFailed:
		return &FleetAttackFailedData{}
	case TypeFleetDefenseSuccess:
		return &FleetDefenseSuccessData{}
	default:
		return nil
	}
}

// UnmarshalJSON decodes the event, dispatching the data payload to its
// concrete type. Unknown event types retain their raw payload bytes so the
// rolling checksum still covers them.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type              Type            `json:"type"`
		AffectedPlayerIDs []string        `json:"affectedPlayerIds"`
		Data              json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Type = raw.Type
	e.AffectedPlayerIDs = raw.AffectedPlayerIDs
	payload := payloadFor(raw.Type)
	if payload == nil {
		e.Data = raw.Data
		return nil
	}
	if len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", raw.Type, err)
		}
	}
	e.Data = deref(payload)
	return nil
}

func deref(payload any) any {
	switch p := payload.(type) {
	case *ProductionItemQueuedData:
		return *p
	case *ProductionItemRemovedData:
		return *p
	case *FleetLaunchedData:
		return *p
	case *PlanetWorkerAssignmentsUpdatedData:
		return *p
	case *PlanetOptionsUpdatedData:
		return *p
	case *WaypointSetData:
		return *p
	case *WaypointClearedData:
		return *p
	case *ResearchPercentAdjustedData:
		return *p
	case *ResearchQueuedData:
		return *p
	case *ResearchCancelledData:
		return *p
	case *ResearchCompletedData:
		return *p
	case *ResearchStolenData:
		return *p
	case *TradeSubmittedData:
		return *p
	case *TradeCancelledData:
		return *p
	case *TradesProcessedData:
		return *p
	case *PlanetCapturedData:
		return *p
	case *PlanetLostData:
		return *p
	case *FleetAttackFailedData:
		return *p
	case *FleetDefenseSuccessData:
		return *p
	default:
		return payload
	}
}

// Normalized returns a copy of the event with its affected player identifiers
// sorted, the canonical form used for checksum computation and broadcast.
func (e Event) Normalized() Event {
	ids := append([]string(nil), e.AffectedPlayerIDs...)
	sort.Strings(ids)
	e.AffectedPlayerIDs = ids
	return e
}
