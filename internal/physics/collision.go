package physics

import (
	"errors"
	"fmt"
	"strings"
)

// Rect представляет осевой прямоугольник (AABB) в координатах уровня.
// X,Y - левый верхний угол, ось Y направлена вниз.
type Rect struct {
	X, Y float64
	W, H float64
}

// Left, Right, Top, Bottom возвращают границы прямоугольника
func (r Rect) Left() float64   { return r.X }
func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Top() float64    { return r.Y }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Intersects проверяет пересечение двух прямоугольников.
// Касание по границе не считается пересечением.
func (r Rect) Intersects(other Rect) bool {
	return r.Left() < other.Right() &&
		r.Right() > other.Left() &&
		r.Top() < other.Bottom() &&
		r.Bottom() > other.Top()
}

// Overlap возвращает глубину проникновения по каждой оси (0, если нет пересечения)
func (r Rect) Overlap(other Rect) (dx, dy float64) {
	if !r.Intersects(other) {
		return 0, 0
	}
	dx = minFloat(r.Right(), other.Right()) - maxFloat(r.Left(), other.Left())
	dy = minFloat(r.Bottom(), other.Bottom()) - maxFloat(r.Top(), other.Top())
	return dx, dy
}

// IsOnTop проверяет, стоит ли r на верхней грани other: есть перекрытие по X
// и нижняя граница r лежит в полосе [other.Top - tolerance, other.Top + tolerance].
func (r Rect) IsOnTop(other Rect, tolerance float64) bool {
	if r.Right() < other.Left() || r.Left() > other.Right() {
		return false
	}
	bottom := r.Bottom()
	return bottom >= other.Top()-tolerance && bottom <= other.Top()+tolerance
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Massivity определяет категорию столкновений спрайта
type Massivity uint8

const (
	MassPassive      Massivity = iota // Проходимый, но обрабатывается
	MassFrontPassive                  // Рисуется перед игроком, без коллизий
	MassMassive                       // Сплошной
	MassHalfMassive                   // Платформа: стоять можно, прыгать сквозь - тоже
	MassClimbable                     // Лестница/лиана
)

// ErrInvalidMassivity возвращается при разборе неизвестной строки массивности
var ErrInvalidMassivity = errors.New("invalid massivity type")

// String возвращает каноническое имя массивности
func (m Massivity) String() string {
	switch m {
	case MassPassive:
		return "passive"
	case MassFrontPassive:
		return "front_passive"
	case MassMassive:
		return "massive"
	case MassHalfMassive:
		return "halfmassive"
	case MassClimbable:
		return "climbable"
	default:
		return fmt.Sprintf("massivity(%d)", uint8(m))
	}
}

// ParseMassivity разбирает строковое имя, принятое в скриптах уровней.
// Допускаются оба написания для front_passive и half_massive.
func ParseMassivity(name string) (Massivity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "passive":
		return MassPassive, nil
	case "front_passive", "frontpassive":
		return MassFrontPassive, nil
	case "massive":
		return MassMassive, nil
	case "half_massive", "halfmassive":
		return MassHalfMassive, nil
	case "climbable":
		return MassClimbable, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMassivity, name)
	}
}

// Outcome - результат проверки столкновения с точки зрения одной стороны
type Outcome uint8

const (
	NotValid    Outcome = iota // Столкновение игнорируется
	Internal                   // Пересечение фиксируется, движение не блокируется
	Blocking                   // Движение нужно скорректировать
	NotPossible                // Частная проверка не смогла решить, нужен общий путь
)

// String возвращает имя результата для логов и метрик
func (o Outcome) String() string {
	switch o {
	case NotValid:
		return "not_valid"
	case Internal:
		return "internal"
	case Blocking:
		return "blocking"
	case NotPossible:
		return "not_possible"
	default:
		return "unknown"
	}
}
