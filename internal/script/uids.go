package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/annel0/sprite-engine/internal/world/entity"
)

// wrapper - содержимое скриптовой обёртки. Хранит только UID и серийный
// номер: сама сущность каждый раз ищется через менеджер.
type wrapper struct {
	uid    uint64
	serial uint64
	class  string
}

// UIDTable кэширует обёртки по UID: на одну живую сущность приходится
// не больше одной обёртки.
type UIDTable struct {
	manager *entity.EntityManager
	cache   map[uint64]*lua.LUserData
	create  func(e *entity.Entity) *lua.LUserData
}

func newUIDTable(manager *entity.EntityManager, create func(e *entity.Entity) *lua.LUserData) *UIDTable {
	return &UIDTable{
		manager: manager,
		cache:   make(map[uint64]*lua.LUserData),
		create:  create,
	}
}

// Lookup возвращает обёртку сущности, создавая её при первом обращении.
// Для неизвестного UID и скрытых от скриптов сущностей возвращает nil.
func (t *UIDTable) Lookup(uid uint64) *lua.LUserData {
	if ud, ok := t.cache[uid]; ok {
		return ud
	}

	e, ok := t.manager.Get(uid)
	if !ok || e.ScriptClass() == "" {
		return nil
	}

	ud := t.create(e)
	t.cache[uid] = ud
	return ud
}

// Evict удаляет обёртку из кэша. Отсутствующий UID - не ошибка.
func (t *UIDTable) Evict(uid uint64) {
	delete(t.cache, uid)
}

// Rekey переносит обёртку на новый UID после set_uid
func (t *UIDTable) Rekey(oldUID, newUID uint64) {
	ud, ok := t.cache[oldUID]
	if !ok {
		return
	}
	delete(t.cache, oldUID)
	if w, ok := ud.Value.(*wrapper); ok {
		w.uid = newUID
	}
	t.cache[newUID] = ud
}

// Cached сообщает, есть ли обёртка для UID
func (t *UIDTable) Cached(uid uint64) bool {
	_, ok := t.cache[uid]
	return ok
}

// Len возвращает число закэшированных обёрток
func (t *UIDTable) Len() int {
	return len(t.cache)
}

func (t *UIDTable) clear() {
	t.cache = make(map[uint64]*lua.LUserData)
}
