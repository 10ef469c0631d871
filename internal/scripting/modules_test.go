package scripting_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicebot/internal/dice"
	"github.com/cory-johannsen/dicebot/internal/scripting"
)

func runScript(t testing.TB, mgr *scripting.Manager, luaSrc, hook string, args ...lua.LValue) lua.LValue {
	t.Helper()
	loadScripts(t, mgr, map[string]string{"test.lua": luaSrc}, 0)
	ret, err := mgr.Call(hook, args...)
	require.NoError(t, err)
	return ret
}

func TestEngineLog_AllLevels(t *testing.T) {
	mgr, logs := newTestManager(t)
	runScript(t, mgr, `
		function do_all_logs()
			engine.log.debug("d")
			engine.log.info("i")
			engine.log.warn("w")
			engine.log.error("e")
		end
	`, "do_all_logs")

	levels := map[string]string{}
	for _, e := range logs.All() {
		if e.ContextMap()["source"] == "lua" {
			levels[e.Level.String()] = e.Message
		}
	}
	assert.Equal(t, map[string]string{"debug": "d", "info": "i", "warn": "w", "error": "e"}, levels)
}

func TestEngineDice_Roll_ReturnsTable(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret := runScript(t, mgr, `
		function do_roll()
			local r = engine.dice.roll("2d6+3 Fire")
			if type(r.dice) ~= "number" then error("dice field missing") end
			if r.canonical ~= "2d6 + 3 Fire" then error("canonical: " .. r.canonical) end
			if r.formula ~= "2d6+3 Fire" then error("formula: " .. r.formula) end
			if type(r.results) ~= "string" then error("results field missing") end
			return r.total
		end
	`, "do_roll")
	n, ok := ret.(lua.LNumber)
	require.True(t, ok, "expected LNumber, got %T", ret)
	assert.GreaterOrEqual(t, int(n), 5)
	assert.LessOrEqual(t, int(n), 15)
}

func TestEngineDice_Roll_ParseErrorReturnsNilAndMessage(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret := runScript(t, mgr, `
		function bad()
			local r, err = engine.dice.roll("1d1")
			if r ~= nil then error("expected nil result") end
			return err
		end
	`, "bad")
	assert.Equal(t, lua.LString("dice: invalid die size [1d1]"), ret)
}

func TestEngineDice_Roll_NotifiesOnRoll(t *testing.T) {
	mgr, _ := newTestManager(t)
	var seen []dice.RollResult
	mgr.OnRoll = func(r dice.RollResult, _ time.Duration) { seen = append(seen, r) }
	runScript(t, mgr, `
		function two()
			engine.dice.roll("1d4")
			engine.dice.roll("1d6")
			engine.dice.roll("nope")
		end
	`, "two")
	require.Len(t, seen, 2)
	assert.Equal(t, "1d4", seen[0].Canonical)
	assert.Equal(t, "1d6", seen[1].Canonical)
}

func TestEngineDice_Parse(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret := runScript(t, mgr, `
		function canon(f)
			local c, err = engine.dice.parse(f)
			if c == nil then return "error: " .. err end
			return c
		end
	`, "canon", lua.LString("min(2d20,1d8)+5 Bonus"))
	assert.Equal(t, lua.LString("min(2d20, 1d8) + 5 Bonus"), ret)

	ret, err := mgr.Call("canon", lua.LString("max(1d6"))
	require.NoError(t, err)
	assert.Contains(t, string(ret.(lua.LString)), "error: dice: unbalanced parenthesis")
}

func TestEngineDice_Roll_RequiresString(t *testing.T) {
	mgr, _ := newTestManager(t)
	loadScripts(t, mgr, map[string]string{"t.lua": `function f() return engine.dice.roll({}) end`}, 0)
	_, err := mgr.Call("f")
	assert.Error(t, err)
}

// TestProperty_DiceRoll_TotalMatchesGo verifies that a Lua roll and a Go roll
// of the same formula against identically seeded sources agree.
func TestProperty_DiceRoll_TotalMatchesGo(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		formula := rapid.SampledFrom([]string{"1d6", "2d6+3", "min(1d20,1d20)", "4d6-min(4d6)", "-1d4 Poison"}).Draw(rt, "formula")
		seed := rapid.StringMatching(`[a-z]{1,8}`).Draw(rt, "seed")

		logger := zap.NewNop()
		mgr := scripting.NewManager(dice.NewLoggedRoller(dice.NewSeededSource(seed), logger), logger)
		ret := runScript(t, mgr, `function r(f) return engine.dice.roll(f).total end`, "r", lua.LString(formula))

		want, err := dice.RollFormula(formula, dice.NewSeededSource(seed))
		require.NoError(rt, err)
		assert.Equal(rt, lua.LNumber(want.Total), ret)
	})
}
