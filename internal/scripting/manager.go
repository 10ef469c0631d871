package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebot/internal/dice"
)

// ErrUnknownHook is returned by Call when no script defines the requested function.
var ErrUnknownHook = errors.New("unknown script hook")

// Manager owns one sandboxed LState holding every loaded roll script.
//
// Manager is safe for concurrent use; calls into the VM are serialized.
type Manager struct {
	mu        sync.Mutex
	L         *lua.LState
	hooks     []string
	instLimit int
	roller    *dice.Roller
	logger    *zap.Logger

	// OnRoll, when set, observes every successful engine.dice.roll and its duration.
	OnRoll func(dice.RollResult, time.Duration)
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: roller and logger must be non-nil.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil || logger == nil {
		panic("scripting: NewManager precondition violated: roller and logger must be non-nil")
	}
	return &Manager{roller: roller, logger: logger}
}

// Load creates a sandboxed VM, registers the engine.* modules, then executes
// every *.lua file in scriptDir in lexicographic order. Global functions the
// scripts define become callable hooks. An empty scriptDir loads nothing.
//
// Precondition: scriptDir is empty or a readable directory; instLimit >= 0.
// Postcondition: On success any previously loaded VM is replaced and closed.
func (m *Manager) Load(scriptDir string, instLimit int) error {
	if scriptDir == "" {
		return nil
	}
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := NewSandboxedState()
	m.RegisterModules(L)
	builtin := globalNames(L)

	for _, path := range luaFiles {
		cancel := Arm(L, instLimit)
		err := L.DoFile(path)
		cancel()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	var hooks []string
	L.G.Global.ForEach(func(k, v lua.LValue) {
		name, ok := k.(lua.LString)
		if !ok || builtin[string(name)] || v.Type() != lua.LTFunction {
			return
		}
		hooks = append(hooks, string(name))
	})
	sort.Strings(hooks)

	m.mu.Lock()
	old := m.L
	m.L, m.hooks, m.instLimit = L, hooks, instLimit
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}
	m.logger.Info("scripting: scripts loaded",
		zap.String("dir", scriptDir),
		zap.Int("files", len(luaFiles)),
		zap.Strings("hooks", hooks),
	)
	return nil
}

func globalNames(L *lua.LState) map[string]bool {
	names := make(map[string]bool)
	L.G.Global.ForEach(func(k, _ lua.LValue) {
		if s, ok := k.(lua.LString); ok {
			names[string(s)] = true
		}
	})
	return names
}

// Hooks returns the sorted names of global functions defined by loaded scripts.
func (m *Manager) Hooks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.hooks...)
}

// Call invokes the global Lua function hook with a fresh instruction budget.
// Lua runtime errors, including an exhausted budget, are logged at warn level
// and returned.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or ErrUnknownHook
// when no loaded script defines it.
func (m *Manager) Call(hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.L == nil {
		return lua.LNil, fmt.Errorf("%w: %q", ErrUnknownHook, hook)
	}
	fn := m.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, fmt.Errorf("%w: %q", ErrUnknownHook, hook)
	}

	cancel := Arm(m.L, m.instLimit)
	defer cancel()
	if err := m.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: %s: %w", hook, err)
	}

	ret := m.L.Get(-1)
	m.L.Pop(1)
	return ret, nil
}

// Run calls hook with string arguments and renders its first return value as text.
func (m *Manager) Run(hook string, args ...string) (string, error) {
	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = lua.LString(a)
	}
	ret, err := m.Call(hook, largs...)
	if err != nil {
		return "", err
	}
	return luaText(ret), nil
}

func luaText(v lua.LValue) string {
	switch v := v.(type) {
	case *lua.LNilType:
		return ""
	case *lua.LTable:
		var parts []string
		v.ForEach(func(k, val lua.LValue) {
			parts = append(parts, fmt.Sprintf("%s=%s", k.String(), val.String()))
		})
		sort.Strings(parts)
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return v.String()
	}
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L != nil {
		m.L.Close()
		m.L = nil
		m.hooks = nil
	}
}
