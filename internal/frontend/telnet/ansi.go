// Package telnet serves line-oriented Telnet sessions with ANSI styling.
package telnet

import (
	"regexp"
	"strings"
)

// ANSI escape codes used by dice sessions.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

// Colorize wraps text with the given ANSI code and a reset suffix.
//
// Precondition: color must be a valid ANSI escape sequence.
func Colorize(color, text string) string {
	return color + text + Reset
}

var emphasis = regexp.MustCompile(`\*\*(.*?)\*\*`)

// Emphasize converts **text** markers into ANSI bold.
//
// Postcondition: StripANSI(Emphasize(s)) equals s with the markers removed.
func Emphasize(s string) string {
	return emphasis.ReplaceAllString(s, Bold+"${1}"+Reset)
}

// StripANSI removes all \033[...m sequences from s.
func StripANSI(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\033' && i+1 < len(s) && s[i+1] == '[' {
			if end := strings.IndexByte(s[i+2:], 'm'); end >= 0 {
				i += 2 + end
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
