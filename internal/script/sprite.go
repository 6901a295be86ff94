package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/annel0/sprite-engine/internal/events"
	"github.com/annel0/sprite-engine/internal/physics"
	"github.com/annel0/sprite-engine/internal/world/entity"
)

// Наборы методов. Класс обёртки собирается из нескольких наборов,
// повторяя иерархию Sprite < MovingSprite < Enemy.
const (
	setSprite = 1 << iota
	setMoving
	setEnemy
	setPlayer
)

// classSets сопоставляет имя класса с наборами методов
var classSets = map[string]int{
	"Sprite":          setSprite,
	"Path":            setSprite,
	"ParticleEmitter": setSprite,
	"LevelPlayer":     setSprite | setMoving | setPlayer,
}

var enemyClasses = []string{
	"Enemy", "Furball", "Turtle", "TurtleBoss", "Flyon", "Eato", "Spika", "Krush", "Gee",
	"Rokko", "Thromp", "StaticEnemy", "Larry", "Pip", "BeetleBarrage", "Spikeball", "Beetle",
}

func setsFor(class string) int {
	if s, ok := classSets[class]; ok {
		return s
	}
	for _, c := range enemyClasses {
		if c == class {
			return setSprite | setMoving | setEnemy
		}
	}
	// ящики, предметы, платформы, шары
	return setSprite | setMoving
}

// metatableFor возвращает метатаблицу класса, создавая её при первом обращении
func (rt *Runtime) metatableFor(class string) *lua.LTable {
	if mt, ok := rt.classes[class]; ok {
		return mt
	}

	methods := map[string]lua.LGFunction{}
	sets := setsFor(class)
	merge := func(m map[string]lua.LGFunction) {
		for name, fn := range m {
			methods[name] = fn
		}
	}
	if sets&setSprite != 0 {
		merge(rt.spriteMethods())
	}
	if sets&setMoving != 0 {
		merge(rt.movingMethods())
	}
	if sets&setEnemy != 0 {
		merge(rt.enemyMethods())
	}
	if sets&setPlayer != 0 {
		merge(rt.playerMethods())
	}

	L := rt.L
	mt := L.NewTypeMetatable(class)
	index := L.SetFuncs(L.NewTable(), methods)
	index.RawSetString("class_name", lua.LString(class))
	L.SetField(mt, "__index", index)
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		ud := L.CheckUserData(1)
		if w, ok := ud.Value.(*wrapper); ok {
			L.Push(lua.LString(class + "#" + uidString(w.uid)))
			return 1
		}
		L.Push(lua.LString(class))
		return 1
	}))
	rt.classes[class] = mt
	return mt
}

// newWrapper создаёт обёртку класса, который назвала сама сущность
func (rt *Runtime) newWrapper(e *entity.Entity) *lua.LUserData {
	class := e.ScriptClass()
	ud := rt.L.NewUserData()
	ud.Value = &wrapper{uid: e.UID, serial: e.Serial(), class: class}
	rt.L.SetMetatable(ud, rt.metatableFor(class))
	return ud
}

// checkEntity достаёт сущность из первого аргумента метода.
// Если сущность уже удалена, поднимает ошибку Lua.
func (rt *Runtime) checkEntity(L *lua.LState) *entity.Entity {
	ud := L.CheckUserData(1)
	w, ok := ud.Value.(*wrapper)
	if !ok {
		L.ArgError(1, "sprite expected")
		return nil
	}
	e, ok := rt.manager.Get(w.uid)
	if !ok || e.Serial() != w.serial {
		L.RaiseError("Sprite with UID %d does not exist anymore.", w.uid)
		return nil
	}
	return e
}

// checkUID проверяет числовой UID из скрипта
func checkUID(L *lua.LState, n int) uint64 {
	v := L.CheckNumber(n)
	if v < 0 || float64(v) != float64(uint64(v)) {
		L.ArgError(n, "invalid UID")
		return 0
	}
	return uint64(v)
}

// handlerSetter возвращает метод on_<event>(fn)
func (rt *Runtime) handlerSetter(event string) lua.LGFunction {
	return func(L *lua.LState) int {
		e := rt.checkEntity(L)
		fn := L.CheckFunction(2)
		rt.Register(e.UID, event, fn)
		return 0
	}
}

func (rt *Runtime) spriteMethods() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"uid": func(L *lua.LState) int {
			L.Push(lua.LNumber(rt.checkEntity(L).UID))
			return 1
		},
		"set_uid": func(L *lua.LState) int {
			e := rt.checkEntity(L)
			uid := checkUID(L, 2)
			old := e.UID
			if err := rt.manager.SetUID(e, uid); err != nil {
				L.RaiseError("UID %d is already used.", uid)
				return 0
			}
			rt.uids.Rekey(old, uid)
			if r, ok := rt.handlers[old]; ok {
				delete(rt.handlers, old)
				rt.handlers[uid] = r
			}
			return 0
		},
		"show": func(L *lua.LState) int {
			rt.checkEntity(L).Active = true
			return 0
		},
		"hide": func(L *lua.LState) int {
			rt.checkEntity(L).Active = false
			return 0
		},
		"is_active": func(L *lua.LState) int {
			L.Push(lua.LBool(rt.checkEntity(L).Active))
			return 1
		},
		"is_player": func(L *lua.LState) int {
			L.Push(lua.LBool(rt.checkEntity(L).IsPlayer()))
			return 1
		},
		"x": func(L *lua.LState) int {
			L.Push(lua.LNumber(rt.checkEntity(L).Position.X))
			return 1
		},
		"y": func(L *lua.LState) int {
			L.Push(lua.LNumber(rt.checkEntity(L).Position.Y))
			return 1
		},
		"z": func(L *lua.LState) int {
			L.Push(lua.LNumber(rt.checkEntity(L).Z))
			return 1
		},
		"set_x": func(L *lua.LState) int {
			e := rt.checkEntity(L)
			rt.manager.SetPosition(e, float64(L.CheckNumber(2)), e.Position.Y)
			return 0
		},
		"set_y": func(L *lua.LState) int {
			e := rt.checkEntity(L)
			rt.manager.SetPosition(e, e.Position.X, float64(L.CheckNumber(2)))
			return 0
		},
		"pos": func(L *lua.LState) int {
			e := rt.checkEntity(L)
			L.Push(lua.LNumber(e.Position.X))
			L.Push(lua.LNumber(e.Position.Y))
			return 2
		},
		"warp": func(L *lua.LState) int {
			e := rt.checkEntity(L)
			rt.manager.SetPosition(e, float64(L.CheckNumber(2)), float64(L.CheckNumber(3)))
			return 0
		},
		"rect": func(L *lua.LState) int {
			return pushRect(L, rt.checkEntity(L).BoundingRect())
		},
		"collision_rect": func(L *lua.LState) int {
			return pushRect(L, rt.checkEntity(L).CollisionRect())
		},
		"massive_type": func(L *lua.LState) int {
			L.Push(lua.LString(rt.checkEntity(L).Massivity.String()))
			return 1
		},
		"set_massive_type": func(L *lua.LState) int {
			e := rt.checkEntity(L)
			name := L.CheckString(2)
			m, err := physics.ParseMassivity(name)
			if err != nil {
				L.RaiseError("Invalid massive type '%s'.", name)
				return 0
			}
			rt.manager.SetMassivity(e, m)
			return 0
		},
		"register": func(L *lua.LState) int {
			e := rt.checkEntity(L)
			event := L.CheckString(2)
			fn := L.CheckFunction(3)
			rt.Register(e.UID, event, fn)
			return 0
		},
		"on_touch": rt.handlerSetter(events.Touch),
	}
}

func (rt *Runtime) movingMethods() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"velocity": func(L *lua.LState) int {
			e := rt.checkEntity(L)
			L.Push(lua.LNumber(e.Velocity.X))
			L.Push(lua.LNumber(e.Velocity.Y))
			return 2
		},
		"velocity_x": func(L *lua.LState) int {
			L.Push(lua.LNumber(rt.checkEntity(L).Velocity.X))
			return 1
		},
		"velocity_y": func(L *lua.LState) int {
			L.Push(lua.LNumber(rt.checkEntity(L).Velocity.Y))
			return 1
		},
		"set_velocity": func(L *lua.LState) int {
			e := rt.checkEntity(L)
			rt.manager.SetVelocity(e, float64(L.CheckNumber(2)), float64(L.CheckNumber(3)))
			return 0
		},
		"accelerate": func(L *lua.LState) int {
			e := rt.checkEntity(L)
			rt.manager.SetVelocity(e,
				e.Velocity.X+float64(L.CheckNumber(2)),
				e.Velocity.Y+float64(L.OptNumber(3, 0)))
			return 0
		},
		"turn_around": func(L *lua.LState) int {
			e := rt.checkEntity(L)
			rt.manager.SetVelocity(e, -e.Velocity.X, e.Velocity.Y)
			return 0
		},
	}
}

func (rt *Runtime) enemyMethods() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"on_die": rt.handlerSetter(events.Die),
		"kill": func(L *lua.LState) int {
			rt.KillEnemy(rt.checkEntity(L))
			return 0
		},
	}
}

func (rt *Runtime) playerMethods() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"on_jump":      rt.handlerSetter(events.Jump),
		"on_shoot":     rt.handlerSetter(events.Shoot),
		"on_downgrade": rt.handlerSetter(events.Downgrade),
		"on_die":       rt.handlerSetter(events.Die),
		"jump": func(L *lua.LState) int {
			rt.checkEntity(L)
			rt.Jump(float64(L.OptNumber(2, DefaultJumpStrength)))
			return 0
		},
		"downgrade": func(L *lua.LState) int {
			rt.checkEntity(L)
			rt.Downgrade()
			return 0
		},
		"kill": func(L *lua.LState) int {
			rt.checkEntity(L)
			rt.KillPlayer()
			return 0
		},
		"is_invincible": func(L *lua.LState) int {
			p, _ := entity.PlayerState(rt.checkEntity(L))
			L.Push(lua.LBool(p != nil && p.Invincible))
			return 1
		},
		"downgrades": func(L *lua.LState) int {
			p, _ := entity.PlayerState(rt.checkEntity(L))
			if p == nil {
				L.Push(lua.LNumber(0))
				return 1
			}
			L.Push(lua.LNumber(p.Downgrades))
			return 1
		},
	}
}

func pushRect(L *lua.LState, r physics.Rect) int {
	L.Push(lua.LNumber(r.X))
	L.Push(lua.LNumber(r.Y))
	L.Push(lua.LNumber(r.W))
	L.Push(lua.LNumber(r.H))
	return 4
}

// registerSpriteClasses публикует Sprite.new
func (rt *Runtime) registerSpriteClasses() {
	L := rt.L
	sprite := L.NewTable()
	L.SetField(sprite, "new", L.NewFunction(rt.spriteNew))
	L.SetGlobal("Sprite", sprite)
}

// spriteNew создаёт спрайт из скрипта: Sprite.new([image [, uid]]).
// Такой спрайт скрыт, не сталкивается и не попадает в сохранение.
func (rt *Runtime) spriteNew(L *lua.LState) int {
	opts := entity.Options{
		Massivity: entity.WithMassivity(physics.MassFrontPassive),
		Spawned:   true,
		Active:    false,
	}

	// первым аргументом может быть сама таблица Sprite при вызове через двоеточие
	base := 1
	if L.Get(1) == L.GetGlobal("Sprite") {
		base = 2
	}

	var image string
	switch v := L.Get(base); v.Type() {
	case lua.LTString:
		image = string(v.(lua.LString))
	case lua.LTNumber:
		// Sprite.new(uid) без картинки
		base--
	case lua.LTNil:
	default:
		L.ArgError(base, "image path expected")
		return 0
	}

	if uidArg := L.Get(base + 1); uidArg != lua.LNil {
		uid := checkUID(L, base+1)
		if rt.manager.IsUIDInUse(uid) {
			L.RaiseError("UID %d is already used.", uid)
			return 0
		}
		opts.UID = entity.WithUID(uid)
	}

	e, err := rt.manager.Create(entity.TypeSprite, opts)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	if image != "" {
		e.Payload["image"] = image
	}
	L.Push(rt.Lookup(e.UID))
	return 1
}
