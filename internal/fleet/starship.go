package fleet

// Type enumerates the starship hull classes available to players.
type Type int

const (
	TypeSystemDefense Type = iota
	TypeScout
	TypeDestroyer
	TypeCruiser
	TypeBattleship
	TypeSpacePlatform
)

// String returns the stable wire name for the hull class.
func (t Type) String() string {
	switch t {
	case TypeSystemDefense:
		return "system_defense"
	case TypeScout:
		return "scout"
	case TypeDestroyer:
		return "destroyer"
	case TypeCruiser:
		return "cruiser"
	case TypeBattleship:
		return "battleship"
	case TypeSpacePlatform:
		return "space_platform"
	default:
		return "unknown"
	}
}

// WeaponPower is the per-gun damage budget shared by every hull class.
const WeaponPower = 2

// BaseStrength returns the undamaged hull strength for the class.
func (t Type) BaseStrength() int {
	switch t {
	case TypeSystemDefense:
		return 2
	case TypeScout:
		return 4
	case TypeDestroyer:
		return 8
	case TypeCruiser:
		return 16
	case TypeBattleship:
		return 32
	case TypeSpacePlatform:
		return 64
	default:
		return 0
	}
}

// AdvantageAgainst returns the hull class this class holds a tactical advantage over.
// Space platforms are handled separately because their advantage is unconditional.
func (t Type) AdvantageAgainst() (Type, bool) {
	switch t {
	case TypeSystemDefense:
		return TypeBattleship, true
	case TypeScout:
		return TypeSystemDefense, true
	case TypeDestroyer:
		return TypeScout, true
	case TypeCruiser:
		return TypeDestroyer, true
	case TypeBattleship:
		return TypeCruiser, true
	default:
		return 0, false
	}
}

// DisadvantageAgainst returns the hull class this class is at a tactical disadvantage against.
func (t Type) DisadvantageAgainst() (Type, bool) {
	switch t {
	case TypeSystemDefense:
		return TypeScout, true
	case TypeScout:
		return TypeDestroyer, true
	case TypeDestroyer:
		return TypeCruiser, true
	case TypeCruiser:
		return TypeBattleship, true
	case TypeBattleship:
		return TypeSystemDefense, true
	default:
		return 0, false
	}
}

// Advantage overrides the standard advantage cycle for a single ship.
type Advantage struct {
	AdvantageAgainst    Type `json:"advantageAgainst"`
	DisadvantageAgainst Type `json:"disadvantageAgainst"`
}

// Starship is a single combat unit owned by exactly one fleet at a time.
type Starship struct {
	ID               int        `json:"id"`
	Type             Type       `json:"type"`
	Health           int        `json:"health"`
	ExperienceAmount int        `json:"experienceAmount"`
	CustomAdvantage  *Advantage `json:"customAdvantage,omitempty"`
}

// NewStarship constructs a ship of the given class at full health.
// Identifier assignment belongs to the originating aggregate (planet or player).
func NewStarship(id int, shipType Type) *Starship {
	return &Starship{
		ID:     id,
		Type:   shipType,
		Health: shipType.BaseStrength(),
	}
}

// Level derives the experience level from accumulated damage dealt.
// Level 1 requires half the base strength worth of experience; each
// subsequent level doubles the gap to the next threshold.
func (s *Starship) Level() int {
	if s == nil {
		return 0
	}
	base := float64(s.Type.BaseStrength())
	thresholds := [...]float64{0.5, 1.5, 3.5, 7.5, 15.5}
	level := 0
	for _, multiplier := range thresholds {
		if float64(s.ExperienceAmount) >= base*multiplier {
			level++
		}
	}
	return level
}

// LevelBonus is the additional effective strength granted by the current level.
func (s *Starship) LevelBonus() int {
	if s == nil {
		return 0
	}
	level := s.Level()
	if level == 0 {
		return 0
	}
	perLevel := s.Type.BaseStrength() / 8
	if perLevel < 1 {
		perLevel = 1
	}
	return level * perLevel
}

// Strength is the ship's effective combat strength: remaining health plus any
// level bonus earned through prior victories.
func (s *Starship) Strength() int {
	if s == nil {
		return 0
	}
	return s.Health + s.LevelBonus()
}

// MaxHealth is the health ceiling for the ship, including its level bonus.
func (s *Starship) MaxHealth() int {
	if s == nil {
		return 0
	}
	return s.Type.BaseStrength() + s.LevelBonus()
}

// Guns is the number of discrete weapon mounts the ship can still fire.
// Firepower degrades as the hull takes damage between rounds.
func (s *Starship) Guns() int {
	if s == nil || s.Health <= 0 {
		return 0
	}
	return s.Health / WeaponPower
}

// HasAdvantageAgainst reports whether this ship holds a tactical advantage over the target class.
func (s *Starship) HasAdvantageAgainst(target Type) bool {
	if s == nil {
		return false
	}
	if s.CustomAdvantage != nil {
		return s.CustomAdvantage.AdvantageAgainst == target
	}
	if s.Type == TypeSpacePlatform {
		return true
	}
	advantaged, ok := s.Type.AdvantageAgainst()
	return ok && advantaged == target
}

// HasDisadvantageAgainst reports whether this ship fights at a disadvantage against the target class.
func (s *Starship) HasDisadvantageAgainst(target Type) bool {
	if s == nil {
		return false
	}
	if s.CustomAdvantage != nil {
		return s.CustomAdvantage.DisadvantageAgainst == target
	}
	if s.Type == TypeSpacePlatform {
		return false
	}
	disadvantaged, ok := s.Type.DisadvantageAgainst()
	return ok && disadvantaged == target
}

// Clone returns a deep copy of the ship.
func (s *Starship) Clone() *Starship {
	if s == nil {
		return nil
	}
	clone := *s
	if s.CustomAdvantage != nil {
		advantage := *s.CustomAdvantage
		clone.CustomAdvantage = &advantage
	}
	return &clone
}
