package entity

import "github.com/annel0/sprite-engine/internal/physics"

// Player - состояние игрока уровня, значимое для столкновений
type Player struct {
	Invincible    bool // Звезда или мигание после урона
	GhostMode     bool // Видит и задевает призрачные объекты
	Downgrades    int  // Сколько раз игрок получил урон
	MaxDowngrades int  // После этого числа урон смертелен
}

func (p *Player) ScriptClass() string { return "LevelPlayer" }

// ValidateCollision: массивные враги не блокируют игрока, а сообщают о касании.
// Остальное решается по массивности другого объекта.
func (p *Player) ValidateCollision(_ CollisionContext, _, other *Entity) physics.Outcome {
	if other.Massivity == physics.MassMassive && other.IsEnemy() {
		return physics.Internal
	}
	return physics.NotPossible
}

// PlayerState возвращает состояние игрока, если сущность - игрок
func PlayerState(e *Entity) (*Player, bool) {
	if e == nil {
		return nil, false
	}
	p, ok := e.Kind.(*Player)
	return p, ok
}
