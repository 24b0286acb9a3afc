package game

import (
	"errors"
	"fmt"
)

// TradeKind discriminates buy orders from sell orders.
type TradeKind string

const (
	TradeBuy  TradeKind = "buy"
	TradeSell TradeKind = "sell"
)

// TradeResource names the commodity a trade moves.
type TradeResource string

const (
	ResourceFood TradeResource = "food"
	ResourceOre  TradeResource = "ore"
)

var (
	// ErrTradeNotFound is returned when cancelling an unknown trade.
	ErrTradeNotFound = errors.New("trade not found")
	// ErrInvalidTrade is returned for structurally invalid trade submissions.
	ErrInvalidTrade = errors.New("invalid trade")
)

// Trade is one pending order at the trading center.
type Trade struct {
	ID       string        `json:"id"`
	PlayerID string        `json:"playerId"`
	PlanetID int           `json:"planetId"`
	Resource TradeResource `json:"resource"`
	Amount   int           `json:"amount"`
	Kind     TradeKind     `json:"kind"`
}

// TradingCenter holds pending orders and the gold prices they clear at.
// Price movement rules live outside this core; execution here is mechanical.
type TradingCenter struct {
	PendingTrades []Trade                   `json:"pendingTrades"`
	Prices        map[TradeResource]float64 `json:"prices"`
}

// NewTradingCenter seeds the order book with baseline prices.
func NewTradingCenter() *TradingCenter {
	return &TradingCenter{
		PendingTrades: []Trade{},
		Prices: map[TradeResource]float64{
			ResourceFood: 1.5,
			ResourceOre:  3.0,
		},
	}
}

// Submit validates and enqueues a trade.
func (tc *TradingCenter) Submit(trade Trade) error {
	if trade.ID == "" || trade.PlayerID == "" {
		return fmt.Errorf("%w: missing identifiers", ErrInvalidTrade)
	}
	if trade.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTrade)
	}
	switch trade.Resource {
	case ResourceFood, ResourceOre:
	default:
		return fmt.Errorf("%w: resource %q", ErrInvalidTrade, trade.Resource)
	}
	switch trade.Kind {
	case TradeBuy, TradeSell:
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidTrade, trade.Kind)
	}
	tc.PendingTrades = append(tc.PendingTrades, trade)
	return nil
}

// Cancel removes the identified trade if it belongs to the player.
func (tc *TradingCenter) Cancel(playerID, tradeID string) error {
	for i, trade := range tc.PendingTrades {
		if trade.ID != tradeID {
			continue
		}
		if trade.PlayerID != playerID {
			return fmt.Errorf("%w: %s", ErrTradeNotFound, tradeID)
		}
		tc.PendingTrades = append(tc.PendingTrades[:i], tc.PendingTrades[i+1:]...)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrTradeNotFound, tradeID)
}

// ExecutePending clears every order the owning planet can afford and returns
// the executed trade identifiers in submission order.
func (tc *TradingCenter) ExecutePending(state *State) []string {
	executed := make([]string, 0, len(tc.PendingTrades))
	remaining := tc.PendingTrades[:0]
	for _, trade := range tc.PendingTrades {
		planet, ok := state.Planets[trade.PlanetID]
		if !ok || planet.OwnerID != trade.PlayerID {
			// Ownership changed since submission; the order dies quietly.
			continue
		}
		if tc.execute(planet, trade) {
			executed = append(executed, trade.ID)
			continue
		}
		remaining = append(remaining, trade)
	}
	tc.PendingTrades = remaining
	return executed
}

// ExecuteIDs executes exactly the named pending trades, in the order given,
// and removes them from the book. Remote copies replay the authoritative
// execution with this instead of re-deciding affordability locally. Orders
// whose planet changed hands are dropped, mirroring ExecutePending.
func (tc *TradingCenter) ExecuteIDs(state *State, ids []string) {
	for _, id := range ids {
		for i, trade := range tc.PendingTrades {
			if trade.ID != id {
				continue
			}
			if planet, ok := state.Planets[trade.PlanetID]; ok {
				tc.execute(planet, trade)
			}
			tc.PendingTrades = append(tc.PendingTrades[:i], tc.PendingTrades[i+1:]...)
			break
		}
	}
	tc.PruneInvalid(state)
}

// PruneInvalid drops pending orders whose planet no longer belongs to the
// submitting player. Every copy of state prunes at the same point of the
// cycle so the order books stay identical.
func (tc *TradingCenter) PruneInvalid(state *State) {
	remaining := tc.PendingTrades[:0]
	for _, trade := range tc.PendingTrades {
		planet, ok := state.Planets[trade.PlanetID]
		if !ok || planet.OwnerID != trade.PlayerID {
			continue
		}
		remaining = append(remaining, trade)
	}
	tc.PendingTrades = remaining
}

func (tc *TradingCenter) execute(planet *Planet, trade Trade) bool {
	price := tc.Prices[trade.Resource]
	goldValue := int(price * float64(trade.Amount))
	switch trade.Kind {
	case TradeBuy:
		if planet.Gold < goldValue {
			return false
		}
		planet.Gold -= goldValue
		tc.credit(planet, trade.Resource, trade.Amount)
	case TradeSell:
		if !tc.debit(planet, trade.Resource, trade.Amount) {
			return false
		}
		planet.Gold += goldValue
	default:
		return false
	}
	return true
}

func (tc *TradingCenter) credit(planet *Planet, resource TradeResource, amount int) {
	switch resource {
	case ResourceFood:
		planet.Food += amount
	case ResourceOre:
		planet.Ore += amount
	}
}

func (tc *TradingCenter) debit(planet *Planet, resource TradeResource, amount int) bool {
	switch resource {
	case ResourceFood:
		if planet.Food < amount {
			return false
		}
		planet.Food -= amount
	case ResourceOre:
		if planet.Ore < amount {
			return false
		}
		planet.Ore -= amount
	default:
		return false
	}
	return true
}
