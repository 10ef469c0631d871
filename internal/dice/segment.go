package dice

import (
	"io"
	"strings"
)

// TokenKind classifies a raw formula segment.
type TokenKind int

const (
	// TokenFlat is a dice or constant term such as "-2d6 Fire" or "5".
	TokenFlat TokenKind = iota
	// TokenGroup is a min(...) or max(...) subexpression.
	TokenGroup
)

// Token is one raw term of a formula. Segmentation never interprets digits.
type Token struct {
	Kind TokenKind
	// Sign holds every '+' and '-' preceding the term, whitespace removed.
	Sign string
	// Keyword is "min" or "max" for group tokens.
	Keyword string
	// Body is the text between a group's balanced parentheses.
	Body string
	// Text is the term text after the sign for flat tokens.
	Text string
	// Name is the trimmed text following a group's closing parenthesis.
	Name string
	// Raw is the complete span, sign included.
	Raw    string
	Offset int
}

// Segmenter splits a formula into Tokens from left to right. It is pull-based
// and cannot be restarted; create a new Segmenter to scan again.
type Segmenter struct {
	input string
	pos   int
}

// NewSegmenter returns a Segmenter over formula.
func NewSegmenter(formula string) *Segmenter {
	return &Segmenter{input: formula}
}

// Next returns the next token, or io.EOF once the input is exhausted. A stray
// parenthesis or an unterminated min(/max( yields a *ParseError wrapping
// ErrUnbalanced; the Segmenter must not be used after an error.
func (s *Segmenter) Next() (Token, error) {
	for s.pos < len(s.input) {
		switch s.input[s.pos] {
		case ',':
			s.pos++
			continue
		case '(', ')':
			return Token{}, newParseError(ErrUnbalanced, s.input[s.pos:], s.pos)
		}

		start := s.pos
		sign := s.scanSign()

		if kw := groupKeywordAt(s.input, s.pos); kw != "" {
			return s.scanGroup(start, sign, kw)
		}

		textStart := s.pos
		s.pos = s.boundary(s.pos)
		text := s.input[textStart:s.pos]
		if sign == "" && strings.TrimSpace(text) == "" {
			continue
		}
		return Token{
			Kind:   TokenFlat,
			Sign:   sign,
			Text:   text,
			Raw:    strings.TrimSpace(s.input[start:s.pos]),
			Offset: start,
		}, nil
	}
	return Token{}, io.EOF
}

// scanSign consumes signs and surrounding whitespace, returning the signs.
func (s *Segmenter) scanSign() string {
	var b strings.Builder
	for s.pos < len(s.input) {
		c := s.input[s.pos]
		switch {
		case c == '+' || c == '-':
			b.WriteByte(c)
		case isSpace(c):
		default:
			return b.String()
		}
		s.pos++
	}
	return b.String()
}

func (s *Segmenter) scanGroup(start int, sign, keyword string) (Token, error) {
	open := s.pos + len(keyword)
	depth := 0
	closeAt := -1
	for i := open; i < len(s.input) && closeAt < 0; i++ {
		switch s.input[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				closeAt = i
			}
		}
	}
	if closeAt < 0 {
		return Token{}, newParseError(ErrUnbalanced, strings.TrimSpace(s.input[start:]), start)
	}

	s.pos = s.boundary(closeAt + 1)
	return Token{
		Kind:    TokenGroup,
		Sign:    sign,
		Keyword: keyword,
		Body:    s.input[open+1 : closeAt],
		Name:    strings.TrimSpace(s.input[closeAt+1 : s.pos]),
		Raw:     strings.TrimSpace(s.input[start:s.pos]),
		Offset:  start,
	}, nil
}

// boundary returns the index of the first term boundary at or after i.
func (s *Segmenter) boundary(i int) int {
	for ; i < len(s.input); i++ {
		switch s.input[i] {
		case '+', '-', ',', '(', ')':
			return i
		}
		if groupKeywordAt(s.input, i) != "" {
			return i
		}
	}
	return i
}

// groupKeywordAt returns "min" or "max" when input[i:] starts a group.
func groupKeywordAt(input string, i int) string {
	rest := input[i:]
	switch {
	case strings.HasPrefix(rest, "min("):
		return "min"
	case strings.HasPrefix(rest, "max("):
		return "max"
	}
	return ""
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
