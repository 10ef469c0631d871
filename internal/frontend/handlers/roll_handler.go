// Package handlers provides Telnet session handling and command processing.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebot/internal/frontend/telnet"
	"github.com/cory-johannsen/dicebot/internal/observability"
	"github.com/cory-johannsen/dicebot/internal/rollserver"
	"github.com/cory-johannsen/dicebot/internal/scripting"
)

// Prompt is written before every command read.
const Prompt = "dice> "

// MaxNameLength bounds the roller name a session may choose.
const MaxNameLength = 32

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const welcomeBanner = telnet.Bold + telnet.Cyan + `
   ___  _         ___       _
  |   \(_)__ ___ | _ ) ___ | |_
  | |) | / _/ -_)| _ \/ _ \|  _|
  |___/|_\__\___||___/\___/ \__|
` + telnet.Reset + `
  Type a formula such as ` + telnet.Green + `2d6+3` + telnet.Reset + ` to roll it.
  Type ` + telnet.Green + `help` + telnet.Reset + ` for commands, ` + telnet.Green + `quit` + telnet.Reset + ` to disconnect.
`

const helpText = `Commands:
  roll <formula>    roll a formula; "roll" alone rolls 1d20
  <formula>         same as roll
  @<macro> [terms]  roll a macro, optionally with extra terms
  macros            list macros
  history [n]       show your last n rolls
  name <name>       set the name your rolls are recorded under
  scripts           list loaded scripts
  run <script> ...  run a script hook
  quit              disconnect
Formulas: NdS dice, integers, min(...), max(...), + and - signs, and a trailing label.`

// ScriptRunner runs named script hooks on behalf of a session.
type ScriptRunner interface {
	Hooks() []string
	Run(hook string, args ...string) (string, error)
}

// RollHandler implements telnet.SessionHandler with the dice command loop.
type RollHandler struct {
	svc     *rollserver.Service
	scripts ScriptRunner
	logger  *zap.Logger
}

// NewRollHandler creates a RollHandler.
//
// Precondition: svc and logger must be non-nil; scripts may be nil to disable scripting.
// Postcondition: Returns a RollHandler ready to handle sessions.
func NewRollHandler(svc *rollserver.Service, scripts ScriptRunner, logger *zap.Logger) *RollHandler {
	if svc == nil || logger == nil {
		panic("handlers: NewRollHandler precondition violated: svc and logger must be non-nil")
	}
	return &RollHandler{svc: svc, scripts: scripts, logger: logger}
}

// session is the per-connection state.
type session struct {
	conn   *telnet.Conn
	roller string
	log    *zap.Logger
}

// guestName derives the default roller name from the session ID.
func guestName(id string) string {
	if len(id) < 8 {
		return rollserver.AnonymousRoller
	}
	return "guest-" + id[:8]
}

// HandleSession implements telnet.SessionHandler. It shows the welcome banner
// and processes commands until the client quits or the server stops.
//
// Postcondition: Returns nil on clean quit, or an error if the session ended abnormally.
func (h *RollHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	start := time.Now()
	ctx = rollserver.WithOrigin(ctx, observability.OriginTelnet)
	s := &session{
		conn:   conn,
		roller: guestName(conn.ID()),
		log:    h.logger.With(zap.String("session", conn.ID())),
	}

	if err := conn.Write([]byte(strings.ReplaceAll(welcomeBanner, "\n", "\r\n"))); err != nil {
		return fmt.Errorf("sending welcome: %w", err)
	}
	if err := conn.WriteLine("You are rolling as " + telnet.Colorize(telnet.Cyan, s.roller) + "."); err != nil {
		return fmt.Errorf("sending welcome: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Server shutting down. Goodbye!"))
			return ctx.Err()
		default:
		}

		if err := conn.WritePrompt(telnet.Colorize(telnet.Bold, Prompt)); err != nil {
			return fmt.Errorf("writing prompt: %w", err)
		}

		line, err := conn.ReadLine()
		if errors.Is(err, telnet.ErrLineTooLong) {
			_ = conn.WriteLine(RenderError(err))
			continue
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		quit, err := h.dispatch(ctx, s, line)
		if err != nil {
			return err
		}
		if quit {
			s.log.Info("client quit",
				zap.String("roller", s.roller),
				zap.Duration("session_duration", time.Since(start)),
			)
			return nil
		}
	}
}

// dispatch runs one command line. It reports whether the session should end;
// a non-nil error means the connection failed.
func (h *RollHandler) dispatch(ctx context.Context, s *session, line string) (bool, error) {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	var out string
	switch strings.ToLower(cmd) {
	case "quit", "exit":
		return true, s.conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye!"))
	case "help", "?":
		out = helpText
	case "roll", "r":
		out = h.roll(ctx, s, rest)
	case "macros":
		out = RenderMacros(h.svc.Macros())
	case "history":
		out = h.history(ctx, s, rest)
	case "name":
		out = h.rename(s, rest)
	case "scripts":
		out = RenderHooks(h.hooks())
	case "run":
		out = h.run(s, rest)
	default:
		out = h.roll(ctx, s, line)
	}
	if err := s.conn.WriteLine(out); err != nil {
		return false, fmt.Errorf("writing output: %w", err)
	}
	return false, nil
}

func (h *RollHandler) roll(ctx context.Context, s *session, formula string) string {
	rec, err := h.svc.Roll(ctx, s.roller, formula)
	if err != nil {
		if !userError(err) {
			s.log.Error("roll failed", zap.String("formula", formula), zap.Error(err))
		}
		return RenderError(err)
	}
	return RenderRoll(rec)
}

func (h *RollHandler) history(ctx context.Context, s *session, arg string) string {
	limit := 0
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return telnet.Colorize(telnet.Red, "Usage: history [n], where n is a positive number.")
		}
		limit = n
	}
	recs, err := h.svc.History(ctx, s.roller, limit)
	if err != nil {
		s.log.Error("history failed", zap.Error(err))
		return RenderError(err)
	}
	return RenderHistory(recs)
}

func (h *RollHandler) rename(s *session, name string) string {
	if name == "" {
		return "You are rolling as " + telnet.Colorize(telnet.Cyan, s.roller) + "."
	}
	if len(name) > MaxNameLength || !validName.MatchString(name) {
		return telnet.Colorize(telnet.Red,
			fmt.Sprintf("Names are 1-%d letters, digits, '-' or '_'.", MaxNameLength))
	}
	s.log.Debug("roller renamed", zap.String("from", s.roller), zap.String("to", name))
	s.roller = name
	return "You are now rolling as " + telnet.Colorize(telnet.Cyan, name) + "."
}

func (h *RollHandler) hooks() []string {
	if h.scripts == nil {
		return nil
	}
	return h.scripts.Hooks()
}

func (h *RollHandler) run(s *session, rest string) string {
	if h.scripts == nil {
		return telnet.Colorize(telnet.Red, "Scripting is disabled.")
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return telnet.Colorize(telnet.Red, "Usage: run <script> [args...]")
	}
	out, err := h.scripts.Run(fields[0], fields[1:]...)
	switch {
	case errors.Is(err, scripting.ErrUnknownHook):
		return RenderError(err)
	case err != nil:
		s.log.Warn("script failed", zap.String("hook", fields[0]), zap.Error(err))
		return telnet.Colorize(telnet.Red, "Script "+fields[0]+" failed.")
	case out == "":
		return telnet.Colorize(telnet.Dim, "("+fields[0]+" returned nothing)")
	default:
		return telnet.Emphasize(out)
	}
}
