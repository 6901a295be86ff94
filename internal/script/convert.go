package script

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	lua "github.com/yuin/gopher-lua"
)

// toLua переводит данные сохранения (результат json.Unmarshal) в значения Lua
func toLua(L *lua.LState, v interface{}) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case float64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case []interface{}:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(toLua(L, item))
		}
		return tbl
	case map[string]interface{}:
		tbl := L.NewTable()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			tbl.RawSetString(k, toLua(L, val[k]))
		}
		return tbl
	default:
		return lua.LNil
	}
}

// ErrUnsavable - данные сохранения нельзя перевести в JSON
var ErrUnsavable = errors.New("данные сохранения не сериализуются")

// Пределы данных сохранения: вложенность и общее число обойдённых таблиц
const (
	maxTableDepth = 64
	maxTableCount = 1 << 16
)

// fromLua переводит значение Lua в данные, пригодные для JSON.
// Таблица с ключами 1..n становится срезом, иначе словарём со строковыми
// ключами. Функции и userdata отбрасываются. Таблица, содержащая саму себя,
// и слишком глубокая вложенность дают ErrUnsavable.
func fromLua(v lua.LValue) (interface{}, error) {
	c := converter{path: make(map[*lua.LTable]struct{})}
	return c.value(v, 0)
}

// converter помнит таблицы на текущем пути обхода. Общая подтаблица,
// встреченная в разных ветках, циклом не считается.
type converter struct {
	path   map[*lua.LTable]struct{}
	tables int
}

func (c *converter) value(v lua.LValue, depth int) (interface{}, error) {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val), nil
	case lua.LString:
		return string(val), nil
	case lua.LNumber:
		return float64(val), nil
	case *lua.LTable:
		return c.table(val, depth)
	default:
		return nil, nil
	}
}

func (c *converter) table(tbl *lua.LTable, depth int) (interface{}, error) {
	if depth >= maxTableDepth {
		return nil, fmt.Errorf("%w: вложенность больше %d", ErrUnsavable, maxTableDepth)
	}
	c.tables++
	if c.tables > maxTableCount {
		return nil, fmt.Errorf("%w: больше %d таблиц", ErrUnsavable, maxTableCount)
	}
	if _, ok := c.path[tbl]; ok {
		return nil, fmt.Errorf("%w: таблица ссылается сама на себя", ErrUnsavable)
	}
	c.path[tbl] = struct{}{}
	defer delete(c.path, tbl)

	n := tbl.MaxN()
	count := 0
	tbl.ForEach(func(lua.LValue, lua.LValue) { count++ })

	if n > 0 && n == count {
		list := make([]interface{}, 0, n)
		for i := 1; i <= n; i++ {
			item, err := c.value(tbl.RawGetInt(i), depth+1)
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil
	}

	result := make(map[string]interface{}, count)
	var firstErr error
	tbl.ForEach(func(k, v lua.LValue) {
		if firstErr != nil {
			return
		}
		converted, err := c.value(v, depth+1)
		if err != nil {
			firstErr = err
			return
		}
		if converted == nil {
			return
		}
		switch key := k.(type) {
		case lua.LString:
			result[string(key)] = converted
		case lua.LNumber:
			result[strconv.FormatFloat(float64(key), 'f', -1, 64)] = converted
		}
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return result, nil
}
