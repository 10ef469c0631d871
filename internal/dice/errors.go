package dice

import (
	"errors"
	"fmt"
)

// Parse failure kinds. A *ParseError always unwraps to exactly one of these.
var (
	ErrInvalidSign      = errors.New("invalid sign")
	ErrInvalidFunction  = errors.New("invalid function")
	ErrEmptyTerm        = errors.New("invalid expression")
	ErrInvalidNumber    = errors.New("invalid absolute number")
	ErrInvalidDieSize   = errors.New("invalid die size")
	ErrInvalidDiceCount = errors.New("invalid dice count")
	ErrUnbalanced       = errors.New("unbalanced parenthesis")
	ErrTooDeep          = errors.New("expression nested too deeply")
)

// ParseError reports the failure kind and the substring that caused it.
type ParseError struct {
	Err      error
	Fragment string
	// Offset is the byte offset of Fragment within the formula being parsed
	// at the failing nesting level.
	Offset int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dice: %v [%s]", e.Err, e.Fragment)
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(kind error, fragment string, offset int) *ParseError {
	return &ParseError{Err: kind, Fragment: fragment, Offset: offset}
}

// ErrorKind returns a stable label for a parse failure, suitable for metrics.
// Errors that are not parse failures map to "other".
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSign):
		return "invalid_sign"
	case errors.Is(err, ErrInvalidFunction):
		return "invalid_function"
	case errors.Is(err, ErrEmptyTerm):
		return "empty_term"
	case errors.Is(err, ErrInvalidNumber):
		return "invalid_number"
	case errors.Is(err, ErrInvalidDieSize):
		return "invalid_die_size"
	case errors.Is(err, ErrInvalidDiceCount):
		return "invalid_dice_count"
	case errors.Is(err, ErrUnbalanced):
		return "unbalanced"
	case errors.Is(err, ErrTooDeep):
		return "too_deep"
	default:
		return "other"
	}
}
