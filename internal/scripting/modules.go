package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/slapfight/internal/game/direction"
)

// RegisterModules registers all engine.* Lua tables into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine.log, engine.dice, engine.direction, engine.fighter,
// and engine.match are defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L))
	L.SetField(engine, "dice", m.diceModule(L))
	L.SetField(engine, "direction", directionModule(L))
	L.SetField(engine, "fighter", m.fighterModule(L))
	L.SetField(engine, "match", m.matchModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	}
	for name, fn := range levels {
		fn := fn
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	return mod
}

func (m *Manager) diceModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	// chance(p) -> bool
	L.SetField(mod, "chance", L.NewFunction(func(L *lua.LState) int {
		p := float64(L.CheckNumber(1))
		L.Push(lua.LBool(m.roller.Chance("lua_chance", p)))
		return 1
	}))
	// pick(n) -> integer in [1, n]
	L.SetField(mod, "pick", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n <= 0 {
			L.ArgError(1, "n must be > 0")
			return 0
		}
		L.Push(lua.LNumber(m.roller.Intn("lua_pick", n) + 1))
		return 1
	}))
	// range(lo, hi) -> number in [lo, hi)
	L.SetField(mod, "range", L.NewFunction(func(L *lua.LState) int {
		lo := float64(L.CheckNumber(1))
		hi := float64(L.CheckNumber(2))
		L.Push(lua.LNumber(m.roller.Range("lua_range", lo, hi)))
		return 1
	}))
	return mod
}

func directionModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	parse := func(L *lua.LState, idx int) direction.Direction {
		d, err := direction.Parse(L.CheckString(idx))
		if err != nil {
			L.ArgError(idx, err.Error())
		}
		return d
	}
	L.SetField(mod, "mirror", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(parse(L, 1).Mirror().String()))
		return 1
	}))
	L.SetField(mod, "opposite", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(parse(L, 1).Opposite().String()))
		return 1
	}))
	L.SetField(mod, "neighbor", L.NewFunction(func(L *lua.LState) int {
		d := parse(L, 1)
		step := L.OptInt(2, 1)
		L.Push(lua.LString(d.Neighbor(step).String()))
		return 1
	}))
	L.SetField(mod, "all", L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		for _, d := range direction.All {
			t.Append(lua.LString(d.String()))
		}
		L.Push(t)
		return 1
	}))
	return mod
}

func (m *Manager) fighterModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	// get(id) -> table or nil
	L.SetField(mod, "get", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		if m.GetFighter == nil {
			L.Push(lua.LNil)
			return 1
		}
		info := m.GetFighter(id)
		if info == nil {
			L.Push(lua.LNil)
			return 1
		}
		t := L.NewTable()
		L.SetField(t, "id", lua.LString(info.ID))
		L.SetField(t, "name", lua.LString(info.Name))
		L.SetField(t, "role", lua.LString(info.Role))
		L.SetField(t, "health", lua.LNumber(info.Health01))
		L.SetField(t, "stamina", lua.LNumber(info.Stamina01))
		L.SetField(t, "blocking", lua.LBool(info.Blocking))
		L.SetField(t, "block_direction", lua.LString(info.BlockDirection))
		L.SetField(t, "pending", lua.LString(info.Pending))
		L.Push(t)
		return 1
	}))
	return mod
}

func (m *Manager) matchModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	// info() -> table or nil
	L.SetField(mod, "info", L.NewFunction(func(L *lua.LState) int {
		if m.GetMatch == nil {
			L.Push(lua.LNil)
			return 1
		}
		info := m.GetMatch()
		if info == nil {
			L.Push(lua.LNil)
			return 1
		}
		t := L.NewTable()
		L.SetField(t, "id", lua.LString(info.ID))
		L.SetField(t, "state", lua.LString(info.State))
		L.SetField(t, "player_turn", lua.LBool(info.PlayerTurn))
		L.SetField(t, "hits", lua.LNumber(info.ResolvedHits))
		L.Push(t)
		return 1
	}))
	return mod
}
