package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/dicebot/internal/dice"
	"github.com/cory-johannsen/dicebot/internal/frontend/telnet"
	"github.com/cory-johannsen/dicebot/internal/history"
	"github.com/cory-johannsen/dicebot/internal/macro"
	"github.com/cory-johannsen/dicebot/internal/rollserver"
	"github.com/cory-johannsen/dicebot/internal/scripting"
)

// RenderRoll formats a completed roll as colored Telnet text.
//
// Postcondition: StripANSI of the result reads "<roller> rolled <canonical> → <results>".
func RenderRoll(rec history.Record) string {
	return fmt.Sprintf("%s rolled %s → %s",
		telnet.Colorize(telnet.Cyan, rec.Roller),
		strings.TrimSpace(rec.Canonical),
		telnet.Emphasize(rec.Results),
	)
}

// RenderHistory formats recent rolls, newest first, one per line.
func RenderHistory(recs []history.Record) string {
	if len(recs) == 0 {
		return telnet.Colorize(telnet.Dim, "No rolls yet.")
	}
	var b strings.Builder
	for i, rec := range recs {
		fmt.Fprintf(&b, "%3d. %s %s → %s\r\n",
			i+1,
			telnet.Colorize(telnet.Dim, rec.CreatedAt.Format("15:04:05")),
			strings.TrimSpace(rec.Canonical),
			telnet.Emphasize(rec.Results),
		)
	}
	return strings.TrimSuffix(b.String(), "\r\n")
}

// RenderMacros lists macros with their formulas and descriptions.
func RenderMacros(macros []macro.Macro) string {
	if len(macros) == 0 {
		return telnet.Colorize(telnet.Dim, "No macros are defined.")
	}
	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.Bold, "Macros:"))
	for _, m := range macros {
		fmt.Fprintf(&b, "\r\n  %s%-14s%s %s", telnet.Green, rollserver.MacroPrefix+m.Name, telnet.Reset, m.Formula)
		if m.Description != "" {
			b.WriteString(" " + telnet.Colorize(telnet.Dim, m.Description))
		}
	}
	return b.String()
}

// RenderHooks lists the script hooks available to the run command.
func RenderHooks(hooks []string) string {
	if len(hooks) == 0 {
		return telnet.Colorize(telnet.Dim, "No scripts are loaded.")
	}
	return telnet.Colorize(telnet.Bold, "Scripts: ") + strings.Join(hooks, ", ")
}

// RenderError formats err for a player. Failures that are not the player's
// fault render as a generic message; callers log the detail.
func RenderError(err error) string {
	var pe *dice.ParseError
	switch {
	case errors.As(err, &pe):
		return telnet.Colorize(telnet.Red, fmt.Sprintf("Cannot roll that: %v near %q.", pe.Err, pe.Fragment))
	case errors.Is(err, rollserver.ErrFormulaTooLong),
		errors.Is(err, rollserver.ErrUnknownMacro),
		errors.Is(err, scripting.ErrUnknownHook),
		errors.Is(err, telnet.ErrLineTooLong):
		msg := err.Error()
		return telnet.Colorize(telnet.Red, strings.ToUpper(msg[:1])+msg[1:]+".")
	default:
		return telnet.Colorize(telnet.Red, "Something went wrong. Please try again.")
	}
}

// userError reports whether err is caused by player input rather than the server.
func userError(err error) bool {
	var pe *dice.ParseError
	return errors.As(err, &pe) ||
		errors.Is(err, rollserver.ErrFormulaTooLong) ||
		errors.Is(err, rollserver.ErrUnknownMacro) ||
		errors.Is(err, scripting.ErrUnknownHook)
}
