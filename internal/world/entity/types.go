package entity

import "fmt"

// SpriteType - конкретный подтип спрайта. Числовые значения совпадают
// с каталогом типов из файлов уровней, поэтому их нельзя перенумеровывать.
type SpriteType uint16

const (
	TypeUndefined        SpriteType = 0
	TypeSprite           SpriteType = 1
	TypeEnemy            SpriteType = 2
	TypePlayer           SpriteType = 3
	TypeActiveSprite     SpriteType = 4
	TypeGoldpiece        SpriteType = 8
	TypeFurball          SpriteType = 10
	TypeLevelExit        SpriteType = 18
	TypeArmy             SpriteType = 19
	TypeEnemyStopper     SpriteType = 20
	TypeJumpingGoldpiece SpriteType = 22
	TypePowerup          SpriteType = 23
	TypeFireplant        SpriteType = 24
	TypeMushroomDefault  SpriteType = 25
	TypeBonusBox         SpriteType = 26
	TypeSpinBox          SpriteType = 27
	TypeBall             SpriteType = 28
	TypeFlyon            SpriteType = 29
	TypeRokko            SpriteType = 30
	TypeSpika            SpriteType = 31
	TypeMushroomLive1    SpriteType = 35
	TypeKrush            SpriteType = 36
	TypeMoon             SpriteType = 37
	TypeMovingPlatform   SpriteType = 38
	TypeStar             SpriteType = 39
	TypeThromp           SpriteType = 41
	TypeEato             SpriteType = 42
	TypeGee              SpriteType = 43
	TypeFallingGoldpiece SpriteType = 48
	TypeMushroomPoison   SpriteType = 49
	TypeStaticEnemy      SpriteType = 50
	TypeMushroomBlue     SpriteType = 51
	TypeMushroomGhost    SpriteType = 52
	TypeTurtleBoss       SpriteType = 56
	TypeSound            SpriteType = 60
	TypeTextBox          SpriteType = 59
	TypeAnimation        SpriteType = 61
	TypeFurballBoss      SpriteType = 62
	TypePath             SpriteType = 63
	TypeSpikeball        SpriteType = 64
	TypeParticleEmitter  SpriteType = 65
	TypePip              SpriteType = 67
	TypeBeetleBarrage    SpriteType = 68
	TypeBeetle           SpriteType = 69
	TypeShell            SpriteType = 70
	TypeCrate            SpriteType = 71
	TypeLarry            SpriteType = 72
)

var spriteTypeNames = map[SpriteType]string{
	TypeUndefined:        "undefined",
	TypeSprite:           "sprite",
	TypeEnemy:            "enemy",
	TypePlayer:           "player",
	TypeActiveSprite:     "active_sprite",
	TypeGoldpiece:        "goldpiece",
	TypeFurball:          "furball",
	TypeLevelExit:        "level_exit",
	TypeArmy:             "army",
	TypeEnemyStopper:     "enemy_stopper",
	TypeJumpingGoldpiece: "jumping_goldpiece",
	TypePowerup:          "powerup",
	TypeFireplant:        "fireplant",
	TypeMushroomDefault:  "mushroom",
	TypeBonusBox:         "bonus_box",
	TypeSpinBox:          "spin_box",
	TypeBall:             "ball",
	TypeFlyon:            "flyon",
	TypeRokko:            "rokko",
	TypeSpika:            "spika",
	TypeMushroomLive1:    "mushroom_live_1",
	TypeKrush:            "krush",
	TypeMoon:             "moon",
	TypeMovingPlatform:   "moving_platform",
	TypeStar:             "star",
	TypeThromp:           "thromp",
	TypeEato:             "eato",
	TypeGee:              "gee",
	TypeFallingGoldpiece: "falling_goldpiece",
	TypeMushroomPoison:   "mushroom_poison",
	TypeStaticEnemy:      "static_enemy",
	TypeMushroomBlue:     "mushroom_blue",
	TypeMushroomGhost:    "mushroom_ghost",
	TypeTurtleBoss:       "turtle_boss",
	TypeSound:            "sound",
	TypeTextBox:          "text_box",
	TypeAnimation:        "animation",
	TypeFurballBoss:      "furball_boss",
	TypePath:             "path",
	TypeSpikeball:        "spikeball",
	TypeParticleEmitter:  "particle_emitter",
	TypePip:              "pip",
	TypeBeetleBarrage:    "beetle_barrage",
	TypeBeetle:           "beetle",
	TypeShell:            "shell",
	TypeCrate:            "crate",
	TypeLarry:            "larry",
}

// String возвращает имя типа, используемое в сценах и логах
func (t SpriteType) String() string {
	if name, ok := spriteTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type_%d", uint16(t))
}

// ParseSpriteType находит тип по имени из файла сцены
func ParseSpriteType(name string) (SpriteType, error) {
	for t, n := range spriteTypeNames {
		if n == name {
			return t, nil
		}
	}
	return TypeUndefined, fmt.Errorf("unknown sprite type %q", name)
}

// IsMushroom проверяет, относится ли тип к грибам
func (t SpriteType) IsMushroom() bool {
	switch t {
	case TypeMushroomDefault, TypeMushroomLive1, TypeMushroomPoison, TypeMushroomBlue, TypeMushroomGhost:
		return true
	}
	return false
}

// ArrayType - массив спрайтов, к которому относится сущность.
// Определяет группу при проверке столкновений.
type ArrayType uint8

const (
	ArrayUndefined ArrayType = 0
	ArrayMassive   ArrayType = 1
	ArrayPassive   ArrayType = 2
	ArrayEnemy     ArrayType = 3
	ArrayActive    ArrayType = 4
	ArrayHUD       ArrayType = 5
	ArrayAnim      ArrayType = 6
	ArrayPlayer    ArrayType = 7
	ArrayLava      ArrayType = 8
)

// String возвращает имя массива
func (a ArrayType) String() string {
	switch a {
	case ArrayMassive:
		return "massive"
	case ArrayPassive:
		return "passive"
	case ArrayEnemy:
		return "enemy"
	case ArrayActive:
		return "active"
	case ArrayHUD:
		return "hud"
	case ArrayAnim:
		return "anim"
	case ArrayPlayer:
		return "player"
	case ArrayLava:
		return "lava"
	default:
		return "undefined"
	}
}

// defaultArray возвращает массив, в который тип попадает при загрузке уровня
func defaultArray(t SpriteType) ArrayType {
	switch t {
	case TypePlayer:
		return ArrayPlayer
	case TypeEnemy, TypeFurball, TypeFurballBoss, TypeArmy, TypeTurtleBoss, TypeFlyon,
		TypeRokko, TypeKrush, TypeThromp, TypeEato, TypeGee, TypeSpika, TypeStaticEnemy,
		TypeSpikeball, TypePip, TypeBeetleBarrage, TypeBeetle, TypeLarry:
		return ArrayEnemy
	case TypeSprite, TypeCrate:
		return ArrayMassive
	case TypeParticleEmitter, TypeAnimation:
		return ArrayAnim
	case TypeEnemyStopper, TypePath, TypeSound:
		return ArrayPassive
	default:
		return ArrayActive
	}
}
