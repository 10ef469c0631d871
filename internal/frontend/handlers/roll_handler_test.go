package handlers

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/dicebot/internal/config"
	"github.com/cory-johannsen/dicebot/internal/dice"
	"github.com/cory-johannsen/dicebot/internal/frontend/telnet"
	"github.com/cory-johannsen/dicebot/internal/history"
	"github.com/cory-johannsen/dicebot/internal/macro"
	"github.com/cory-johannsen/dicebot/internal/rollserver"
	"github.com/cory-johannsen/dicebot/internal/scripting"
	"github.com/cory-johannsen/dicebot/internal/testutil"
)

// fakeScripts is an in-memory ScriptRunner.
type fakeScripts struct {
	hooks map[string]func(args ...string) (string, error)
}

func (f *fakeScripts) Hooks() []string {
	out := make([]string, 0, len(f.hooks))
	for name := range f.hooks {
		out = append(out, name)
	}
	return out
}

func (f *fakeScripts) Run(hook string, args ...string) (string, error) {
	fn, ok := f.hooks[hook]
	if !ok {
		return "", fmt.Errorf("%w: %q", scripting.ErrUnknownHook, hook)
	}
	return fn(args...)
}

// fours draws 4 from every die, or the nearest bound.
var fours = dice.SourceFunc(func(lo, hi int) int {
	return min(max(4, lo), hi)
})

func newTestService(t *testing.T) *rollserver.Service {
	t.Helper()
	lib := macro.NewLibrary()
	require.NoError(t, lib.Add(macro.Macro{Name: "attack", Formula: "1d20+5 Attack", Description: "sword swing"}))
	logger := zaptest.NewLogger(t)
	return rollserver.NewService(
		dice.NewLoggedRoller(fours, logger),
		lib,
		history.NewMemoryStore(10),
		nil,
		config.DiceConfig{Source: config.SourceCrypto, MaxFormulaLength: 64, HistoryLimit: 5},
		logger,
	)
}

// startSession serves h on an ephemeral port and returns a client that has
// read up to the first prompt.
func startSession(t *testing.T, h telnet.SessionHandler) (*testutil.TelnetClient, string) {
	t.Helper()
	acc := telnet.NewAcceptor(config.TelnetConfig{
		Host:         "127.0.0.1",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}, h, zaptest.NewLogger(t))
	go func() { _ = acc.ListenAndServe() }()
	t.Cleanup(acc.Stop)

	select {
	case <-acc.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("acceptor did not start in time")
	}
	client := testutil.NewTelnetClient(t, acc.Addr())
	banner := client.ReadUntil(Prompt, 2*time.Second)
	return client, banner
}

func TestRollHandler_BannerNamesGuest(t *testing.T) {
	_, banner := startSession(t, NewRollHandler(newTestService(t), nil, zaptest.NewLogger(t)))
	assert.Contains(t, banner, "Type a formula")
	assert.Regexp(t, `You are rolling as guest-[0-9a-f]{8}\.`, banner)
}

func TestRollHandler_BareFormula(t *testing.T) {
	client, _ := startSession(t, NewRollHandler(newTestService(t), nil, zaptest.NewLogger(t)))

	out := client.Command("2d6+3", Prompt)
	assert.Regexp(t, `guest-[0-9a-f]{8} rolled 2d6 \+ 3 → 11 \(8 \(4, 4\), 3\)`, out)
}

func TestRollHandler_RollCommandDefaultsToD20(t *testing.T) {
	client, _ := startSession(t, NewRollHandler(newTestService(t), nil, zaptest.NewLogger(t)))
	assert.Contains(t, client.Command("roll", Prompt), "rolled 1d20 → 4")
	assert.Contains(t, client.Command("r 1d6 Fire", Prompt), "rolled 1d6 Fire → 4 (4 Fire)")
}

func TestRollHandler_NameMacroAndHistory(t *testing.T) {
	client, _ := startSession(t, NewRollHandler(newTestService(t), nil, zaptest.NewLogger(t)))

	assert.Contains(t, client.Command("name ana", Prompt), "You are now rolling as ana.")
	assert.Contains(t, client.Command("@attack", Prompt), "ana rolled 1d20 + 5 Attack → 9 (4, 5 Attack)")
	assert.Contains(t, client.Command("@attack +2", Prompt), "ana rolled 1d20 + 5 Attack + 2 → 11")
	client.Command("3", Prompt)

	out := client.Command("history 2", Prompt)
	assert.Contains(t, out, "1. ")
	assert.Contains(t, out, "2. ")
	assert.NotContains(t, out, "3. ")
	assert.NotContains(t, out, "rolled")
	assert.Less(t, strings.Index(out, " 3 → 3"), strings.Index(out, "Attack + 2"), "newest first")
}

func TestRollHandler_NameValidation(t *testing.T) {
	client, _ := startSession(t, NewRollHandler(newTestService(t), nil, zaptest.NewLogger(t)))
	assert.Contains(t, client.Command("name bad name!", Prompt), "Names are 1-32")
	assert.Contains(t, client.Command("name "+strings.Repeat("a", MaxNameLength+1), Prompt), "Names are 1-32")
	assert.Regexp(t, `You are rolling as guest-`, client.Command("name", Prompt))
}

func TestRollHandler_Errors(t *testing.T) {
	client, _ := startSession(t, NewRollHandler(newTestService(t), nil, zaptest.NewLogger(t)))

	assert.Contains(t, client.Command("1d1", Prompt), `Cannot roll that: invalid die size near "1d1".`)
	assert.Contains(t, client.Command("@missing", Prompt), `Unknown macro: "missing".`)
	assert.Contains(t, client.Command(strings.Repeat("1d6+", 20)+"1", Prompt), "Formula too long")
	assert.Contains(t, client.Command("history x", Prompt), "Usage: history [n]")
}

func TestRollHandler_Macros(t *testing.T) {
	client, _ := startSession(t, NewRollHandler(newTestService(t), nil, zaptest.NewLogger(t)))
	out := client.Command("macros", Prompt)
	assert.Contains(t, out, "@attack")
	assert.Contains(t, out, "1d20+5 Attack")
	assert.Contains(t, out, "sword swing")
}

func TestRollHandler_Scripts(t *testing.T) {
	scripts := &fakeScripts{hooks: map[string]func(args ...string) (string, error){
		"greet": func(args ...string) (string, error) { return "hello **" + strings.Join(args, " ") + "**", nil },
		"boom":  func(...string) (string, error) { return "", fmt.Errorf("runtime error") },
		"quiet": func(...string) (string, error) { return "", nil },
	}}
	client, _ := startSession(t, NewRollHandler(newTestService(t), scripts, zaptest.NewLogger(t)))

	assert.Contains(t, client.Command("run greet bob", Prompt), "hello bob")
	assert.Contains(t, client.Command("run boom", Prompt), "Script boom failed.")
	assert.Contains(t, client.Command("run quiet", Prompt), "(quiet returned nothing)")
	assert.Contains(t, client.Command("run nope", Prompt), `Unknown script hook: "nope".`)
	assert.Contains(t, client.Command("run", Prompt), "Usage: run <script>")
	assert.Contains(t, client.Command("scripts", Prompt), "greet")
}

func TestRollHandler_ScriptsDisabled(t *testing.T) {
	client, _ := startSession(t, NewRollHandler(newTestService(t), nil, zaptest.NewLogger(t)))
	assert.Contains(t, client.Command("run greet", Prompt), "Scripting is disabled.")
	assert.Contains(t, client.Command("scripts", Prompt), "No scripts are loaded.")
}

func TestRollHandler_HelpAndQuit(t *testing.T) {
	client, _ := startSession(t, NewRollHandler(newTestService(t), nil, zaptest.NewLogger(t)))
	assert.Contains(t, client.Command("help", Prompt), "history [n]")

	client.Send("quit")
	client.ReadUntil("Goodbye!", 2*time.Second)
}

func TestRollHandler_LineTooLong(t *testing.T) {
	client, _ := startSession(t, NewRollHandler(newTestService(t), nil, zaptest.NewLogger(t)))
	out := client.Command(strings.Repeat("1", telnet.MaxLineLength+1), Prompt)
	assert.Contains(t, out, "Input line too long.")
	assert.Contains(t, client.Command("1d4", Prompt), "rolled 1d4 → 4")
}

func TestRollHandler_StopsWithServer(t *testing.T) {
	h := NewRollHandler(newTestService(t), nil, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client, server := netPipe(t)
	done := make(chan error, 1)
	go func() { done <- h.HandleSession(ctx, telnet.NewConn(server, time.Second, time.Second)) }()

	buf := make([]byte, 4096)
	var got strings.Builder
	for !strings.Contains(got.String(), "Goodbye!") {
		n, err := client.Read(buf)
		require.NoError(t, err)
		got.Write(buf[:n])
	}
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestNewRollHandler_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewRollHandler(nil, nil, zaptest.NewLogger(t)) })
}
