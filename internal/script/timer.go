package script

import (
	"math"
	"strconv"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/annel0/sprite-engine/internal/timer"
)

const timerClass = "Timer"

// maxIntervalMS - наибольший интервал в миллисекундах, представимый time.Duration
const maxIntervalMS = math.MaxInt64 / int64(time.Millisecond)

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func uidString(uid uint64) string {
	return strconv.FormatUint(uid, 10)
}

// registerTimerClass публикует Timer.new, Timer.after и Timer.every
func (rt *Runtime) registerTimerClass() {
	L := rt.L
	mt := L.NewTypeMetatable(timerClass)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"start": func(L *lua.LState) int {
			L.Push(lua.LBool(checkTimer(L).Start()))
			return 1
		},
		"stop": func(L *lua.LState) int {
			checkTimer(L).Stop()
			return 0
		},
		"get_interval": func(L *lua.LState) int {
			L.Push(lua.LNumber(checkTimer(L).Interval().Milliseconds()))
			return 1
		},
		// interrupt - остановка без ожидания рабочей горутины
		"interrupt": func(L *lua.LState) int {
			checkTimer(L).Interrupt()
			return 0
		},
		"shall_halt": func(L *lua.LState) int {
			L.Push(lua.LBool(checkTimer(L).ShallHalt()))
			return 1
		},
		"is_active": func(L *lua.LState) int {
			L.Push(lua.LBool(checkTimer(L).IsActive()))
			return 1
		},
		"is_periodic": func(L *lua.LState) int {
			L.Push(lua.LBool(checkTimer(L).Periodic()))
			return 1
		},
	}))

	class := L.NewTable()
	L.SetFuncs(class, map[string]lua.LGFunction{
		// Timer.new(ms, fn [, periodic]) - таймер создаётся остановленным
		"new": func(L *lua.LState) int {
			base := timerArgBase(L, class)
			ms, fn := checkTimerArgs(L, base)
			periodic := L.OptBool(base+2, false)
			L.Push(rt.pushTimer(rt.NewTimer(ms, periodic, fn)))
			return 1
		},
		// Timer.after(ms, fn) - однократный, сразу запущен
		"after": func(L *lua.LState) int {
			ms, fn := checkTimerArgs(L, timerArgBase(L, class))
			t := rt.NewTimer(ms, false, fn)
			t.Start()
			L.Push(rt.pushTimer(t))
			return 1
		},
		// Timer.every(ms, fn) - периодический, сразу запущен
		"every": func(L *lua.LState) int {
			ms, fn := checkTimerArgs(L, timerArgBase(L, class))
			t := rt.NewTimer(ms, true, fn)
			t.Start()
			L.Push(rt.pushTimer(t))
			return 1
		},
	})
	L.SetGlobal(timerClass, class)
}

// timerArgBase учитывает вызов через двоеточие (Timer:after)
func timerArgBase(L *lua.LState, class *lua.LTable) int {
	if L.Get(1) == class {
		return 2
	}
	return 1
}

// checkTimerArgs читает интервал в целых миллисекундах и обработчик.
// Дробная часть отбрасывается; интервал вне 1..maxIntervalMS (и NaN) отклоняется.
func checkTimerArgs(L *lua.LState, base int) (int64, *lua.LFunction) {
	n := float64(L.CheckNumber(base))
	if !(n >= 1 && n <= float64(maxIntervalMS)) {
		L.ArgError(base, "interval must be between 1 and "+strconv.FormatInt(maxIntervalMS, 10)+" ms")
		return 0, nil
	}
	return int64(n), L.CheckFunction(base + 1)
}

func (rt *Runtime) pushTimer(t *timer.Timer) *lua.LUserData {
	ud := rt.L.NewUserData()
	ud.Value = t
	rt.L.SetMetatable(ud, rt.L.GetTypeMetatable(timerClass))
	return ud
}

func checkTimer(L *lua.LState) *timer.Timer {
	ud := L.CheckUserData(1)
	t, ok := ud.Value.(*timer.Timer)
	if !ok {
		L.ArgError(1, "timer expected")
		return nil
	}
	return t
}
