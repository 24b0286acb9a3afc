package game

import (
	"errors"
	"fmt"
	"sort"
)

// ResearchCategory names a research track. The strings are stable wire values.
type ResearchCategory string

const (
	ResearchCombatAttack  ResearchCategory = "COMBAT_IMPROVEMENT_ATTACK"
	ResearchCombatDefense ResearchCategory = "COMBAT_IMPROVEMENT_DEFENSE"
	ResearchPropulsion    ResearchCategory = "PROPULSION_IMPROVEMENT"
	ResearchFarms         ResearchCategory = "BUILDING_EFFICIENCY_FARMS"
	ResearchMines         ResearchCategory = "BUILDING_EFFICIENCY_MINES"
	ResearchFactories     ResearchCategory = "BUILDING_EFFICIENCY_FACTORIES"
	ResearchSpacePlatform ResearchCategory = "SPACE_PLATFORM_IMPROVEMENT"
	// ResearchCustomShip tracks bespoke hull designs; it is explicitly
	// non-lootable when a planet changes hands.
	ResearchCustomShip ResearchCategory = "CUSTOM_SHIP"
)

// ResearchCategories lists every track in deterministic order.
var ResearchCategories = []ResearchCategory{
	ResearchCombatAttack,
	ResearchCombatDefense,
	ResearchPropulsion,
	ResearchFarms,
	ResearchMines,
	ResearchFactories,
	ResearchSpacePlatform,
	ResearchCustomShip,
}

// IsValidResearchCategory reports whether the wire value names a known track.
func IsValidResearchCategory(category ResearchCategory) bool {
	for _, known := range ResearchCategories {
		if known == category {
			return true
		}
	}
	return false
}

var (
	// ErrInvalidResearchPercent is returned for percentages outside [0,100].
	ErrInvalidResearchPercent = errors.New("research percent must be between 0 and 100")
	// ErrResearchAlreadyQueued is returned on duplicate queue submission.
	ErrResearchAlreadyQueued = errors.New("research item already queued")
	// ErrResearchNotQueued is returned when cancelling an item not in the queue.
	ErrResearchNotQueued = errors.New("research item not queued")
	// ErrUnknownResearchCategory is returned for unrecognized category names.
	ErrUnknownResearchCategory = errors.New("unknown research category")
)

// combatBonusPerLevel is the attack/defense chance contributed by each
// completed combat improvement level, capped at combatBonusCap.
const (
	combatBonusPerLevel = 0.05
	combatBonusCap      = 0.5
)

// Research tracks one player's research allocation, queue and completed points.
type Research struct {
	// Percent is the share of the player's output diverted to research.
	Percent float64 `json:"percent"`
	// Queue is the ordered list of tracks points flow into, head first.
	Queue []ResearchCategory `json:"queue"`
	// PointsCompleted accumulates finished research per track.
	PointsCompleted map[ResearchCategory]int `json:"pointsCompleted"`
}

// NewResearch constructs an empty research ledger at 50 percent allocation.
func NewResearch() *Research {
	return &Research{
		Percent:         50,
		PointsCompleted: make(map[ResearchCategory]int),
	}
}

// LevelForPoints converts cumulative completed points into a level. Level k
// requires 10*(2^k - 1) points, so each level costs double the previous one.
func LevelForPoints(points int) int {
	level := 0
	threshold := 10
	remaining := points
	for remaining >= threshold {
		remaining -= threshold
		threshold *= 2
		level++
	}
	return level
}

// PointsForLevel is the inverse of LevelForPoints: the minimum cumulative
// points at which a track reaches the given level.
func PointsForLevel(level int) int {
	if level <= 0 {
		return 0
	}
	return 10 * ((1 << level) - 1)
}

// Level returns the completed level for the track.
func (r *Research) Level(category ResearchCategory) int {
	if r == nil {
		return 0
	}
	return LevelForPoints(r.PointsCompleted[category])
}

// CombatBonusChance converts a combat improvement track's level into the
// per-shot bonus chance used by the battle simulator.
func (r *Research) CombatBonusChance(category ResearchCategory) float64 {
	chance := float64(r.Level(category)) * combatBonusPerLevel
	if chance > combatBonusCap {
		chance = combatBonusCap
	}
	return chance
}

// SetPercent adjusts the research allocation after validating the range.
func (r *Research) SetPercent(percent float64) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: got %v", ErrInvalidResearchPercent, percent)
	}
	r.Percent = percent
	return nil
}

// QueueItem appends a track to the research queue, rejecting duplicates.
func (r *Research) QueueItem(category ResearchCategory) error {
	if !IsValidResearchCategory(category) {
		return fmt.Errorf("%w: %q", ErrUnknownResearchCategory, category)
	}
	for _, queued := range r.Queue {
		if queued == category {
			return fmt.Errorf("%w: %s", ErrResearchAlreadyQueued, category)
		}
	}
	r.Queue = append(r.Queue, category)
	return nil
}

// CancelItem removes a track from the research queue.
func (r *Research) CancelItem(category ResearchCategory) error {
	for i, queued := range r.Queue {
		if queued == category {
			r.Queue = append(r.Queue[:i], r.Queue[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrResearchNotQueued, category)
}

// AddPoints credits completed research into the head of the queue and reports
// the track and new level when the credit crossed a level boundary.
func (r *Research) AddPoints(points int) (ResearchCategory, int, bool) {
	if points <= 0 || len(r.Queue) == 0 {
		return "", 0, false
	}
	category := r.Queue[0]
	before := r.Level(category)
	r.PointsCompleted[category] += points
	after := r.Level(category)
	if after > before {
		// A finished level rotates the track to the back of the queue so
		// long-running games spread research organically.
		r.Queue = append(r.Queue[1:], category)
		return category, after, true
	}
	return category, after, false
}

// SetPointsCompleted overwrites a track's completed points; used by the event
// applicator to replay research mutations exactly.
func (r *Research) SetPointsCompleted(category ResearchCategory, points int) {
	if r.PointsCompleted == nil {
		r.PointsCompleted = make(map[ResearchCategory]int)
	}
	r.PointsCompleted[category] = points
}

// LootableSurplusCategories returns the tracks, in deterministic order, where
// the victim's completed points exceed the thief's. Custom ship research never
// changes hands.
func LootableSurplusCategories(victim, thief *Research) []ResearchCategory {
	categories := make([]ResearchCategory, 0)
	for _, category := range ResearchCategories {
		if category == ResearchCustomShip {
			continue
		}
		if victim.PointsCompleted[category] > thief.PointsCompleted[category] {
			categories = append(categories, category)
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	return categories
}
