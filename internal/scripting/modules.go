package scripting

import (
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/dicebot/internal/dice"
)

// RegisterModules registers the engine.dice and engine.log tables into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "dice", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"roll":  m.luaRoll,
		"parse": luaParse,
	}))
	L.SetField(engine, "log", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"debug": m.luaLog(zap.DebugLevel),
		"info":  m.luaLog(zap.InfoLevel),
		"warn":  m.luaLog(zap.WarnLevel),
		"error": m.luaLog(zap.ErrorLevel),
	}))
	L.SetGlobal("engine", engine)
}

// luaRoll implements engine.dice.roll(formula) -> {total, canonical, results, formula, dice} | nil, err.
func (m *Manager) luaRoll(L *lua.LState) int {
	formula := L.CheckString(1)
	start := time.Now()
	result, err := m.roller.RollFormula(formula)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	if m.OnRoll != nil {
		m.OnRoll(result, time.Since(start))
	}
	t := L.NewTable()
	t.RawSetString("total", lua.LNumber(result.Total))
	t.RawSetString("canonical", lua.LString(result.Canonical))
	t.RawSetString("results", lua.LString(result.Results))
	t.RawSetString("formula", lua.LString(result.Formula))
	t.RawSetString("dice", lua.LNumber(dice.DiceRolled(result.Tree)))
	L.Push(t)
	return 1
}

// luaParse implements engine.dice.parse(formula) -> canonical | nil, err.
func luaParse(L *lua.LState) int {
	g, err := dice.Parse(L.CheckString(1))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(g.String()))
	return 1
}

func (m *Manager) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		if ce := m.logger.Check(level, msg); ce != nil {
			ce.Write(zap.String("source", "lua"))
		}
		return 0
	}
}
