package script

import (
	"errors"
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	lua "github.com/yuin/gopher-lua"

	"github.com/annel0/sprite-engine/internal/events"
	"github.com/annel0/sprite-engine/internal/logging"
	"github.com/annel0/sprite-engine/internal/timer"
	"github.com/annel0/sprite-engine/internal/world/entity"
)

// DefaultJumpStrength - начальная скорость прыжка по умолчанию (единиц в секунду)
const DefaultJumpStrength = 400.0

// DefaultMaxDowngrades - число ударов, после которого игрок погибает
const DefaultMaxDowngrades = 2

// ErrClosed возвращается при обращении к закрытому рантайму
var ErrClosed = errors.New("script runtime is closed")

var deferredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "engine",
	Subsystem: "script",
	Name:      "deferred_callbacks_total",
	Help:      "Выполненные отложенные вызовы таймеров по результату.",
}, []string{"status"})

func init() {
	prometheus.MustRegister(deferredTotal)
}

// Handler - обработчик события на стороне скрипта
type Handler = *lua.LFunction

// ErrorSink получает ошибку обработчика вместе с UID владельца.
// Для глобальных обработчиков (Input, Level) uid == nil.
type ErrorSink func(event string, uid *uint64, err error)

// Options настраивает рантайм
type Options struct {
	QueueSize int       // Ёмкость очереди отложенных вызовов
	ErrorSink ErrorSink // Получатель ошибок обработчиков (например, шина событий)
}

// Runtime связывает Lua VM с сущностями уровня. Все методы, кроме
// работы таймеров внутри, вызываются только из основного цикла.
type Runtime struct {
	L       *lua.LState
	manager *entity.EntityManager
	uids    *UIDTable
	queue   *timer.Queue
	sink    ErrorSink
	logger  *logging.Logger

	handlers map[uint64]*events.Registry[Handler] // Обработчики объектов по UID
	input    *events.Registry[Handler]            // Глобальные события клавиатуры
	level    *events.Registry[Handler]            // Загрузка и сохранение уровня

	classes map[string]*lua.LTable
	timers  []*timer.Timer
	closed  bool
}

// NewRuntime создаёт VM, регистрирует классы и глобальные объекты и
// подписывается на удаление сущностей.
func NewRuntime(manager *entity.EntityManager, opts Options) *Runtime {
	rt := &Runtime{
		L:        lua.NewState(),
		manager:  manager,
		queue:    timer.NewQueue(opts.QueueSize),
		sink:     opts.ErrorSink,
		logger:   logging.GetScriptLogger(),
		handlers: make(map[uint64]*events.Registry[Handler]),
		classes:  make(map[string]*lua.LTable),
	}
	rt.uids = newUIDTable(manager, rt.newWrapper)
	rt.input = rt.newRegistry("Input", nil)
	rt.level = rt.newRegistry("Level", nil)

	rt.registerSpriteClasses()
	rt.registerTimerClass()
	rt.registerGlobals()

	manager.OnRetire(rt.onRetire)
	return rt
}

func (rt *Runtime) newRegistry(owner string, uid *uint64) *events.Registry[Handler] {
	r := events.NewRegistry[Handler](owner)
	if rt.sink != nil {
		r.SetErrorSink(func(event string, err error) {
			rt.sink(event, uid, err)
		})
	}
	return r
}

// onRetire вычищает обёртку и обработчики удалённой сущности
func (rt *Runtime) onRetire(e *entity.Entity) {
	if rt.closed {
		return
	}
	rt.uids.Evict(e.UID)
	delete(rt.handlers, e.UID)
	if e.UID == entity.PlayerUID {
		rt.L.SetGlobal("Player", lua.LNil)
	}
}

// UIDs возвращает таблицу обёрток
func (rt *Runtime) UIDs() *UIDTable {
	return rt.uids
}

// Queue возвращает очередь отложенных вызовов
func (rt *Runtime) Queue() *timer.Queue {
	return rt.queue
}

// Lookup возвращает обёртку сущности или lua.LNil
func (rt *Runtime) Lookup(uid uint64) lua.LValue {
	if ud := rt.uids.Lookup(uid); ud != nil {
		return ud
	}
	return lua.LNil
}

// LoadScript выполняет скрипт уровня. Ошибка скрипта возвращается вызывающему.
func (rt *Runtime) LoadScript(name, src string) error {
	if rt.closed {
		return ErrClosed
	}
	rt.bindPlayer()

	fn, err := rt.L.LoadString(src)
	if err != nil {
		return fmt.Errorf("ошибка разбора скрипта %s: %w", name, err)
	}
	if err := rt.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
		return fmt.Errorf("ошибка выполнения скрипта %s: %w", name, err)
	}
	rt.logger.Info("📜 Скрипт %s загружен", name)
	return nil
}

// call вызывает обработчик в защищённом режиме
func (rt *Runtime) call(fn *lua.LFunction, args ...lua.LValue) error {
	return rt.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
}

// registryFor возвращает реестр объекта, создавая его при необходимости
func (rt *Runtime) registryFor(uid uint64) *events.Registry[Handler] {
	r, ok := rt.handlers[uid]
	if !ok {
		owner := uid
		r = rt.newRegistry(fmt.Sprintf("uid %d", uid), &owner)
		rt.handlers[uid] = r
	}
	return r
}

// fire рассылает событие объекта. Ошибки обработчиков уже залогированы реестром.
func (rt *Runtime) fire(uid uint64, event string, args ...lua.LValue) int {
	if rt.closed {
		return 0
	}
	r, ok := rt.handlers[uid]
	if !ok {
		return 0
	}
	failures := r.Fire(event, func(h Handler) error {
		return rt.call(h, args...)
	})
	return len(failures)
}

// Register добавляет обработчик события объекту
func (rt *Runtime) Register(uid uint64, event string, fn *lua.LFunction) {
	rt.registryFor(uid).Register(event, fn)
}

// HandlerCount возвращает число обработчиков события объекта
func (rt *Runtime) HandlerCount(uid uint64, event string) int {
	if r, ok := rt.handlers[uid]; ok {
		return r.Len(event)
	}
	return 0
}

// FireTouch сообщает self о касании other. Скрипт получает обёртку other
// или nil, если other скриптам не виден.
func (rt *Runtime) FireTouch(self, other *entity.Entity) int {
	if _, ok := rt.handlers[self.UID]; !ok {
		return 0
	}
	return rt.fire(self.UID, events.Touch, rt.Lookup(other.UID))
}

// FireKeyDown рассылает нажатие клавиши глобальным обработчикам
func (rt *Runtime) FireKeyDown(key string) int {
	if rt.closed {
		return 0
	}
	failures := rt.input.Fire(events.KeyDown, func(h Handler) error {
		return rt.call(h, lua.LString(key))
	})
	return len(failures)
}

// FireSave собирает данные сохранения от обработчиков Level:on_save
func (rt *Runtime) FireSave() (map[string]interface{}, error) {
	if rt.closed {
		return nil, ErrClosed
	}
	store := rt.L.NewTable()
	rt.level.Fire(events.Save, func(h Handler) error {
		return rt.call(h, store)
	})
	converted, err := fromLua(store)
	if err != nil {
		rt.logger.Warn("⚠️ Данные Level:on_save отброшены: %v", err)
		return nil, err
	}
	data, ok := converted.(map[string]interface{})
	if !ok {
		// пустая таблица или массив: сохраняем как пустой словарь
		data = map[string]interface{}{}
	}
	return data, nil
}

// FireLoad передаёт сохранённые данные обработчикам Level:on_load
func (rt *Runtime) FireLoad(data map[string]interface{}) error {
	if rt.closed {
		return ErrClosed
	}
	tbl := toLua(rt.L, data)
	rt.level.Fire(events.Load, func(h Handler) error {
		return rt.call(h, tbl)
	})
	return nil
}

// Jump заставляет игрока прыгнуть и сообщает об этом скриптам
func (rt *Runtime) Jump(strength float64) bool {
	player, ok := rt.manager.Get(entity.PlayerUID)
	if !ok {
		return false
	}
	if strength <= 0 {
		strength = DefaultJumpStrength
	}
	rt.manager.SetVelocity(player, player.Velocity.X, -strength)
	rt.fire(entity.PlayerUID, events.Jump)
	return true
}

// Shoot сообщает скриптам о выстреле игрока
func (rt *Runtime) Shoot(ballType string) {
	rt.fire(entity.PlayerUID, events.Shoot, lua.LString(ballType))
}

// Downgrade наносит игроку удар. После MaxDowngrades ударов игрок погибает.
func (rt *Runtime) Downgrade() bool {
	player, ok := rt.manager.Get(entity.PlayerUID)
	if !ok {
		return false
	}
	state, ok := entity.PlayerState(player)
	if !ok || state.Invincible {
		return false
	}
	maxDowngrades := state.MaxDowngrades
	if maxDowngrades <= 0 {
		maxDowngrades = DefaultMaxDowngrades
	}
	state.Downgrades++
	rt.fire(entity.PlayerUID, events.Downgrade, lua.LNumber(state.Downgrades), lua.LNumber(maxDowngrades))
	if state.Downgrades >= maxDowngrades {
		rt.KillPlayer()
	}
	return true
}

// KillPlayer переводит игрока в состояние гибели
func (rt *Runtime) KillPlayer() {
	player, ok := rt.manager.Get(entity.PlayerUID)
	if !ok || player.Dying {
		return
	}
	player.Dying = true
	rt.fire(entity.PlayerUID, events.Die)
}

// KillEnemy сообщает о гибели врага и помечает его к удалению
func (rt *Runtime) KillEnemy(e *entity.Entity) {
	if e.Dead || e.Dying {
		return
	}
	e.Dying = true
	rt.fire(e.UID, events.Die)
	rt.manager.Kill(e)
}

// NewTimer создаёт таймер, вызывающий fn в основном цикле
func (rt *Runtime) NewTimer(intervalMS int64, periodic bool, fn *lua.LFunction) *timer.Timer {
	t := timer.New(rt.queue, msToDuration(intervalMS), periodic, fn)
	rt.timers = append(rt.timers, t)
	return t
}

// TimerStats возвращает число созданных и активных таймеров
func (rt *Runtime) TimerStats() (total, active int) {
	for _, t := range rt.timers {
		if t.IsActive() {
			active++
		}
	}
	return len(rt.timers), active
}

// Timers возвращает таймеры в порядке создания
func (rt *Runtime) Timers() []*timer.Timer {
	return append([]*timer.Timer(nil), rt.timers...)
}

// EvaluateDeferredCallbacks выполняет накопленные срабатывания таймеров
// в порядке поступления. Вызывается ровно один раз за кадр. Ошибка
// обработчика логируется и не останавливает разбор очереди.
func (rt *Runtime) EvaluateDeferredCallbacks() int {
	if rt.closed {
		return 0
	}
	executed := 0
	for _, d := range rt.queue.Drain() {
		fn, ok := d.Payload.(*lua.LFunction)
		if !ok {
			continue
		}
		executed++
		if err := rt.call(fn); err != nil {
			deferredTotal.WithLabelValues("error").Inc()
			rt.logger.Warn("Ошибка в обработчике таймера: %v", err)
			if rt.sink != nil {
				rt.sink("timer", nil, err)
			}
			continue
		}
		deferredTotal.WithLabelValues("ok").Inc()
	}
	return executed
}

// Close останавливает все таймеры (дожидаясь их горутин) и закрывает VM
func (rt *Runtime) Close() {
	if rt.closed {
		return
	}
	for _, t := range rt.timers {
		t.Stop()
	}
	rt.closed = true
	rt.uids.clear()
	rt.handlers = make(map[uint64]*events.Registry[Handler])
	rt.input.Clear()
	rt.level.Clear()
	rt.L.Close()
}

// registeredUIDs возвращает отсортированные UID объектов с обработчиками
func (rt *Runtime) registeredUIDs() []uint64 {
	uids := make([]uint64, 0, len(rt.handlers))
	for uid := range rt.handlers {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids
}

// Stats возвращает сводку состояния рантайма для отладочного API
func (rt *Runtime) Stats() map[string]interface{} {
	total, active := rt.TimerStats()
	return map[string]interface{}{
		"cached_wrappers":  rt.uids.Len(),
		"objects_handled":  rt.registeredUIDs(),
		"timers_total":     total,
		"timers_active":    active,
		"deferred_pending": rt.queue.Len(),
	}
}
