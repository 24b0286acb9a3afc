package command

// Kind identifies the operation a command requests.
type Kind string

const (
	KindBuildShip               Kind = "BUILD_SHIP"
	KindBuildImprovement        Kind = "BUILD_IMPROVEMENT"
	KindRemoveProductionItem    Kind = "REMOVE_PRODUCTION_ITEM"
	KindSendShips               Kind = "SEND_SHIPS"
	KindUpdateWorkerAssignments Kind = "UPDATE_WORKER_ASSIGNMENTS"
	KindUpdatePlanetOptions     Kind = "UPDATE_PLANET_OPTIONS"
	KindSetWaypoint             Kind = "SET_WAYPOINT"
	KindClearWaypoint           Kind = "CLEAR_WAYPOINT"
	KindAdjustResearchPercent   Kind = "ADJUST_RESEARCH_PERCENT"
	KindSubmitResearchItem      Kind = "SUBMIT_RESEARCH_ITEM"
	KindCancelResearchItem      Kind = "CANCEL_RESEARCH_ITEM"
	KindSubmitTrade             Kind = "SUBMIT_TRADE"
	KindCancelTrade             Kind = "CANCEL_TRADE"
)

// Command is the tagged union every player request arrives as. Exactly one
// payload pointer matching Kind must be set; the processor rejects anything
// else before touching game state.
type Command struct {
	PlayerID string `json:"playerId" validate:"required"`
	Kind     Kind   `json:"kind" validate:"required"`

	BuildShip               *BuildShipPayload               `json:"buildShip,omitempty"`
	BuildImprovement        *BuildImprovementPayload        `json:"buildImprovement,omitempty"`
	RemoveProductionItem    *RemoveProductionItemPayload    `json:"removeProductionItem,omitempty"`
	SendShips               *SendShipsPayload               `json:"sendShips,omitempty"`
	UpdateWorkerAssignments *UpdateWorkerAssignmentsPayload `json:"updateWorkerAssignments,omitempty"`
	UpdatePlanetOptions     *UpdatePlanetOptionsPayload     `json:"updatePlanetOptions,omitempty"`
	SetWaypoint             *SetWaypointPayload             `json:"setWaypoint,omitempty"`
	ClearWaypoint           *ClearWaypointPayload           `json:"clearWaypoint,omitempty"`
	AdjustResearchPercent   *AdjustResearchPercentPayload   `json:"adjustResearchPercent,omitempty"`
	SubmitResearchItem      *SubmitResearchItemPayload      `json:"submitResearchItem,omitempty"`
	CancelResearchItem      *CancelResearchItemPayload      `json:"cancelResearchItem,omitempty"`
	SubmitTrade             *SubmitTradePayload             `json:"submitTrade,omitempty"`
	CancelTrade             *CancelTradePayload             `json:"cancelTrade,omitempty"`
}

type BuildShipPayload struct {
	PlanetID int    `json:"planetId" validate:"gte=0"`
	ShipType string `json:"shipType" validate:"required,oneof=system_defense scout destroyer cruiser battleship space_platform"`
}

type BuildImprovementPayload struct {
	PlanetID    int    `json:"planetId" validate:"gte=0"`
	Improvement string `json:"improvement" validate:"required,oneof=Farm Mine Factory Colony"`
}

type RemoveProductionItemPayload struct {
	PlanetID int `json:"planetId" validate:"gte=0"`
	Index    int `json:"index" validate:"gte=0"`
}

type SendShipsPayload struct {
	PlanetID            int   `json:"planetId" validate:"gte=0"`
	DestinationPlanetID int   `json:"destinationPlanetId" validate:"gte=0"`
	ShipIDs             []int `json:"shipIds" validate:"required,min=1,unique"`
}

type UpdateWorkerAssignmentsPayload struct {
	PlanetID int `json:"planetId" validate:"gte=0"`
	Farmers  int `json:"farmers" validate:"gte=0"`
	Miners   int `json:"miners" validate:"gte=0"`
	Builders int `json:"builders" validate:"gte=0"`
}

type UpdatePlanetOptionsPayload struct {
	PlanetID          int  `json:"planetId" validate:"gte=0"`
	BuildLastStarship bool `json:"buildLastStarShip"`
}

type SetWaypointPayload struct {
	PlanetID         int `json:"planetId" validate:"gte=0"`
	WaypointPlanetID int `json:"waypointPlanetId" validate:"gte=0"`
}

type ClearWaypointPayload struct {
	PlanetID int `json:"planetId" validate:"gte=0"`
}

type AdjustResearchPercentPayload struct {
	Percent float64 `json:"percent" validate:"gte=0,lte=100"`
}

type SubmitResearchItemPayload struct {
	Category string `json:"category" validate:"required"`
}

type CancelResearchItemPayload struct {
	Category string `json:"category" validate:"required"`
}

type SubmitTradePayload struct {
	PlanetID int    `json:"planetId" validate:"gte=0"`
	Resource string `json:"resource" validate:"required,oneof=food ore"`
	Amount   int    `json:"amount" validate:"gt=0"`
	Kind     string `json:"kind" validate:"required,oneof=buy sell"`
}

type CancelTradePayload struct {
	TradeID string `json:"tradeId" validate:"required,uuid4"`
}

// payload returns the payload pointer matching the command's kind, or nil
// when the caller set the wrong one (or none).
func (c Command) payload() any {
	switch c.Kind {
	case KindBuildShip:
		return pointerOrNil(c.BuildShip)
	case KindBuildImprovement:
		return pointerOrNil(c.BuildImprovement)
	case KindRemoveProductionItem:
		return pointerOrNil(c.RemoveProductionItem)
	case KindSendShips:
		return pointerOrNil(c.SendShips)
	case KindUpdateWorkerAssignments:
		return pointerOrNil(c.UpdateWorkerAssignments)
	case KindUpdatePlanetOptions:
		return pointerOrNil(c.UpdatePlanetOptions)
	case KindSetWaypoint:
		return pointerOrNil(c.SetWaypoint)
	case KindClearWaypoint:
		return pointerOrNil(c.ClearWaypoint)
	case KindAdjustResearchPercent:
		return pointerOrNil(c.AdjustResearchPercent)
	case KindSubmitResearchItem:
		return pointerOrNil(c.SubmitResearchItem)
	case KindCancelResearchItem:
		return pointerOrNil(c.CancelResearchItem)
	case KindSubmitTrade:
		return pointerOrNil(c.SubmitTrade)
	case KindCancelTrade:
		return pointerOrNil(c.CancelTrade)
	default:
		return nil
	}
}

func pointerOrNil[T any](p *T) any {
	if p == nil {
		return nil
	}
	return p
}
