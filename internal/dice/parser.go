package dice

import (
	"errors"
	"io"
	"strconv"
	"strings"
)

// Bounds enforced by Parse.
const (
	MinDiceCount = 1
	MaxDiceCount = 200
	MinDieSize   = 2
	MaxDieSize   = 999999

	// MaxConstant bounds a constant's magnitude so that no formula can
	// overflow its total.
	MaxConstant = 1_000_000_000

	// MaxDepth is the deepest min(...)/max(...) nesting Parse accepts.
	MaxDepth = 32

	// DefaultFormula is what an empty formula means.
	DefaultFormula = "1d20"
)

// Parse parses formula into a tree rooted at an OpAdd Group.
// Supported forms: "", "d20", "2d6+3", "1d20+5 Attack", "min(2d20,1d8)+5 Bonus".
// An empty (or all-whitespace) formula rolls 1d20.
//
// Postcondition: Returns a root Group with at least one child, or a *ParseError.
func Parse(formula string) (*Group, error) {
	return ParseOperator(formula, OpAdd)
}

// ParseOperator parses formula into a Group whose operator is op.
//
// Precondition: op is OpAdd, OpMin or OpMax.
// Postcondition: Returns a positive, unnamed Group with at least one child, or a *ParseError.
func ParseOperator(formula string, op Operator) (*Group, error) {
	return parseGroup(formula, op, 0)
}

// MustParse parses formula and panics on error. Useful for package-level values.
//
// Precondition: formula must be valid.
func MustParse(formula string) *Group {
	g, err := Parse(formula)
	if err != nil {
		panic("dice: MustParse failed for formula " + formula + ": " + err.Error())
	}
	return g
}

func parseGroup(formula string, op Operator, depth int) (*Group, error) {
	formula = strings.TrimSpace(formula)
	if depth > MaxDepth {
		return nil, newParseError(ErrTooDeep, formula, 0)
	}

	g := NewGroup(op, false, "")
	if formula == "" {
		g.Add(NewDiceTerm(1, 20, false, ""))
		return g, nil
	}

	seg := NewSegmenter(formula)
	for {
		tok, err := seg.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		var child Node
		switch tok.Kind {
		case TokenGroup:
			child, err = parseSubgroup(tok, depth)
		default:
			child, err = parseTerm(tok)
		}
		if err != nil {
			return nil, err
		}
		g.Add(child)
	}

	if len(g.children) == 0 {
		return nil, newParseError(ErrEmptyTerm, formula, 0)
	}
	return g, nil
}

// parseSubgroup parses a min(...)/max(...) token. The nested Group takes the
// sign and name found at this level.
func parseSubgroup(tok Token, depth int) (*Group, error) {
	negative, err := parseSign(tok)
	if err != nil {
		return nil, err
	}

	var op Operator
	switch tok.Keyword {
	case "min":
		op = OpMin
	case "max":
		op = OpMax
	default:
		return nil, newParseError(ErrInvalidFunction, tok.Raw, tok.Offset)
	}

	sub, err := parseGroup(tok.Body, op, depth+1)
	if err != nil {
		return nil, err
	}
	sub.negative = negative
	sub.name = tok.Name
	return sub, nil
}

// parseTerm parses a flat token of the form: digits? ([dD] digits)? name.
func parseTerm(tok Token) (Node, error) {
	negative, err := parseSign(tok)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(tok.Text)
	i := 0
	for i < len(text) && isDigit(text[i]) {
		i++
	}
	countDigits := text[:i]

	var sizeDigits string
	if i+1 < len(text) && (text[i] == 'd' || text[i] == 'D') && isDigit(text[i+1]) {
		j := i + 1
		for j < len(text) && isDigit(text[j]) {
			j++
		}
		sizeDigits = text[i+1 : j]
		i = j
	}
	name := strings.TrimSpace(text[i:])

	if countDigits == "" && sizeDigits == "" {
		return nil, newParseError(ErrEmptyTerm, tok.Raw, tok.Offset)
	}

	if sizeDigits == "" {
		magnitude, err := strconv.Atoi(countDigits)
		if err != nil || magnitude > MaxConstant {
			return nil, newParseError(ErrInvalidNumber, tok.Raw, tok.Offset)
		}
		return NewConstant(magnitude, negative, name), nil
	}

	sides, err := strconv.Atoi(sizeDigits)
	if err != nil || sides < MinDieSize || sides > MaxDieSize {
		return nil, newParseError(ErrInvalidDieSize, tok.Raw, tok.Offset)
	}

	count := 1
	if countDigits != "" {
		count, err = strconv.Atoi(countDigits)
		if err != nil || count < MinDiceCount || count > MaxDiceCount {
			return nil, newParseError(ErrInvalidDiceCount, tok.Raw, tok.Offset)
		}
	}
	return NewDiceTerm(count, sides, negative, name), nil
}

// parseSign resolves a token's sign run: "" and "+" are positive, "-" is
// negative, anything else is ErrInvalidSign.
func parseSign(tok Token) (bool, error) {
	switch tok.Sign {
	case "", "+":
		return false, nil
	case "-":
		return true, nil
	default:
		return false, newParseError(ErrInvalidSign, tok.Raw, tok.Offset)
	}
}
