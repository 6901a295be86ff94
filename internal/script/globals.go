package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/annel0/sprite-engine/internal/events"
	"github.com/annel0/sprite-engine/internal/world/entity"
)

// registerGlobals публикует UIDS, Input и Level
func (rt *Runtime) registerGlobals() {
	L := rt.L

	// UIDS[uid] - ленивый доступ к обёрткам; значения в таблицу не пишутся,
	// источником истины остаётся UIDTable
	uids := L.NewTable()
	uidsMeta := L.NewTable()
	L.SetField(uidsMeta, "__index", L.NewFunction(func(L *lua.LState) int {
		key, ok := L.Get(2).(lua.LNumber)
		if !ok || key < 0 || float64(key) != float64(uint64(key)) {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(rt.Lookup(uint64(key)))
		return 1
	}))
	L.SetField(uidsMeta, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("UIDS is read-only")
		return 0
	}))
	L.SetMetatable(uids, uidsMeta)
	L.SetGlobal("UIDS", uids)

	input := L.NewTable()
	L.SetField(input, "on_key_down", L.NewFunction(rt.globalSetter(rt.input, events.KeyDown)))
	L.SetGlobal("Input", input)

	level := L.NewTable()
	L.SetField(level, "on_load", L.NewFunction(rt.globalSetter(rt.level, events.Load)))
	L.SetField(level, "on_save", L.NewFunction(rt.globalSetter(rt.level, events.Save)))
	L.SetGlobal("Level", level)

	rt.bindPlayer()
}

// globalSetter принимает обработчик последним аргументом, поэтому работает
// и Input.on_key_down(fn), и Input:on_key_down(fn)
func (rt *Runtime) globalSetter(r *events.Registry[Handler], event string) lua.LGFunction {
	return func(L *lua.LState) int {
		fn := L.CheckFunction(L.GetTop())
		r.Register(event, fn)
		return 0
	}
}

// bindPlayer публикует обёртку игрока как глобальную Player
func (rt *Runtime) bindPlayer() {
	rt.L.SetGlobal("Player", rt.Lookup(entity.PlayerUID))
}
