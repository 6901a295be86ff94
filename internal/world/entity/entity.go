package entity

import (
	"github.com/annel0/sprite-engine/internal/physics"
	"github.com/annel0/sprite-engine/internal/vec"
)

// PlayerUID - зарезервированный UID игрока уровня
const PlayerUID uint64 = 0

// Entity представляет любой симулируемый объект уровня: игрока, врага,
// предмет, препятствие, эмиттер частиц или путь.
type Entity struct {
	UID       uint64            // Уникальный идентификатор среди живых сущностей
	Type      SpriteType        // Конкретный подтип
	Array     ArrayType         // Массив спрайтов
	Massivity physics.Massivity // Категория столкновений
	Position  vec.Vec2Float     // Левый верхний угол в координатах уровня
	Z         float64           // Порядок отрисовки, в коллизиях не участвует
	Velocity  vec.Vec2Float     // Скорость в единицах уровня за секунду
	Size      vec.Vec2Float     // Ограничивающий прямоугольник
	ColOffset vec.Vec2Float     // Смещение прямоугольника столкновений от позиции
	ColSize   vec.Vec2Float     // Размер прямоугольника столкновений (нулевой = Size)

	Spawned bool // Создана скриптом: не сохраняется и не видна в редакторе
	Active  bool // Видима и участвует в симуляции
	Dead    bool // Снята с симуляции, ждёт удаления
	Dying   bool // Проигрывает анимацию смерти
	Ghost   bool // Существует только для игрока в режиме призрака

	Payload map[string]interface{} // Дополнительные данные сущности
	Kind    Kind                   // Поведение конкретного подтипа

	serial uint64
}

// BoundingRect возвращает ограничивающий прямоугольник в координатах уровня
func (e *Entity) BoundingRect() physics.Rect {
	return physics.Rect{X: e.Position.X, Y: e.Position.Y, W: e.Size.X, H: e.Size.Y}
}

// CollisionRect возвращает прямоугольник столкновений в координатах уровня
func (e *Entity) CollisionRect() physics.Rect {
	size := e.ColSize
	if size.IsZero() {
		size = e.Size
	}
	return physics.Rect{
		X: e.Position.X + e.ColOffset.X,
		Y: e.Position.Y + e.ColOffset.Y,
		W: size.X,
		H: size.Y,
	}
}

// IsOnTop проверяет, стоит ли e на верхней грани other
func (e *Entity) IsOnTop(other *Entity, tolerance float64) bool {
	return e.CollisionRect().IsOnTop(other.CollisionRect(), tolerance)
}

// IsPlayer проверяет, является ли сущность игроком
func (e *Entity) IsPlayer() bool {
	return e.Type == TypePlayer
}

// IsEnemy проверяет, находится ли сущность в массиве врагов
func (e *Entity) IsEnemy() bool {
	return e.Array == ArrayEnemy
}

// Collidable сообщает, участвует ли сущность в проверках столкновений
func (e *Entity) Collidable() bool {
	return !e.Dead && !e.Dying
}

// Serial возвращает порядковый номер создания. UID может быть переиспользован
// после удаления, серийный номер никогда не повторяется.
func (e *Entity) Serial() uint64 {
	return e.serial
}

// ScriptClass возвращает имя скриптового класса или "" для скрытых сущностей
func (e *Entity) ScriptClass() string {
	if e.Kind == nil {
		return ""
	}
	return e.Kind.ScriptClass()
}

// Options задаёт начальные атрибуты при создании сущности
type Options struct {
	UID       *uint64 // Явный UID; nil означает выдать свободный
	Array     ArrayType
	Massivity *physics.Massivity
	Position  vec.Vec2Float
	Z         float64
	Velocity  vec.Vec2Float
	Size      vec.Vec2Float
	ColOffset vec.Vec2Float
	ColSize   vec.Vec2Float
	Spawned   bool
	Active    bool
	Ghost     bool
	Kind      Kind // nil означает поведение по умолчанию для типа
}

// WithUID возвращает указатель на UID для Options
func WithUID(uid uint64) *uint64 {
	return &uid
}

// WithMassivity возвращает указатель на массивность для Options
func WithMassivity(m physics.Massivity) *physics.Massivity {
	return &m
}
