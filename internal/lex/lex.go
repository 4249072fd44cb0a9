// Package lex turns macro expression source into a flat token sequence and
// provides the quote- and nesting-aware scanning primitives shared with the
// text evaluator and the story markup parser.
package lex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/solsword/firelight/internal/token"
)

// Fixed characters of the macro call syntax: (name~ arg~ arg).
const (
	Sigil = '('
	Delim = '~'
	Close = ')'
	Quote = '"'
)

// Error is a fatal lexing failure such as an unterminated string literal.
type Error struct {
	Pos int
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("lex error at %d: %s", e.Pos, e.Msg)
}

// twoCharOps are recognized via one-character lookahead. '==' is an alias
// for '='.
var twoCharOps = map[string]string{
	"**": "**",
	"//": "//",
	"==": "=",
	"<=": "<=",
	">=": ">=",
	"!=": "!=",
	"~~": "~~",
	"^^": "^^",
}

const singleCharOps = "+-*/%=<>!&|^~.,"

// Lex scans an expression string into tokens.
func Lex(src string) ([]token.Token, error) {
	var toks []token.Token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == Quote:
			text, end, err := scanString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token.Token{Type: token.STRING, Text: text, Pos: i})
			i = end

		case c >= '0' && c <= '9':
			tok, end, err := scanNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = end

		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentChar(src[j]) {
				j++
			}
			toks = append(toks, token.Token{Type: token.WORD, Text: src[i:j], Pos: i})
			i = j

		case c == Sigil:
			if name, ok := callNameAt(src, i); ok {
				end := MatchingDelim(src, i, Sigil, Close)
				if end < 0 {
					return nil, &Error{Pos: i, Msg: fmt.Sprintf("unterminated call to '%s'", name)}
				}
				toks = append(toks, token.Token{
					Type: token.CALL,
					Text: src[i+1 : end],
					Pos:  i,
				})
				i = end + 1
			} else {
				toks = append(toks, token.Token{Type: token.GROUP_OPEN, Pos: i})
				i++
			}

		case c == Close:
			toks = append(toks, token.Token{Type: token.GROUP_CLOSE, Pos: i})
			i++

		case c == '[':
			toks = append(toks, token.Token{Type: token.INDEX_OPEN, Pos: i})
			i++

		case c == ']':
			toks = append(toks, token.Token{Type: token.INDEX_CLOSE, Pos: i})
			i++

		case strings.IndexByte(singleCharOps, c) >= 0:
			if i+1 < len(src) {
				if sym, ok := twoCharOps[src[i:i+2]]; ok {
					toks = append(toks, token.Token{Type: token.OP, Text: sym, Pos: i})
					i += 2
					continue
				}
			}
			toks = append(toks, token.Token{Type: token.OP, Text: string(c), Pos: i})
			i++

		default:
			// Unrecognized characters accumulate into a bare word
			// (this is how '@', '#', and '?' become variable names).
			j := i + 1
			for j < len(src) && isUnrecognized(src[j]) {
				j++
			}
			toks = append(toks, token.Token{Type: token.WORD, Text: src[i:j], Pos: i})
			i = j
		}
	}
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isUnrecognized(c byte) bool {
	if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
		return false
	}
	if c == Quote || c == Sigil || c == Close || c == '[' || c == ']' {
		return false
	}
	if c >= '0' && c <= '9' || isIdentStart(c) {
		return false
	}
	return strings.IndexByte(singleCharOps, c) < 0
}

// callNameAt reports whether a macro call starts at i: the sigil, a name
// matching [A-Za-z_][A-Za-z0-9_.]*, and the argument delimiter.
func callNameAt(src string, i int) (string, bool) {
	j := i + 1
	if j >= len(src) || !isIdentStart(src[j]) {
		return "", false
	}
	for j < len(src) && (isIdentChar(src[j]) || src[j] == '.') {
		j++
	}
	if j < len(src) && src[j] == Delim {
		return src[i+1 : j], true
	}
	return "", false
}

func scanString(src string, start int) (string, int, error) {
	var sb strings.Builder
	i := start + 1
	for i < len(src) {
		c := src[i]
		if c == '\\' && i+1 < len(src) {
			switch src[i+1] {
			case byte(Quote):
				sb.WriteByte(byte(Quote))
			case '\\':
				sb.WriteByte('\\')
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte('\\')
				sb.WriteByte(src[i+1])
			}
			i += 2
			continue
		}
		if c == Quote {
			return sb.String(), i + 1, nil
		}
		sb.WriteByte(c)
		i++
	}
	return "", 0, &Error{Pos: start, Msg: "unterminated string literal"}
}

// scanNumber applies a greedy longest match: hex and octal integers, then
// decimal integers and floats with an optional exponent.
func scanNumber(src string, start int) (token.Token, int, error) {
	i := start
	if i+1 < len(src) && src[i] == '0' && (src[i+1] == 'x' || src[i+1] == 'X') {
		j := i + 2
		for j < len(src) && isHexDigit(src[j]) {
			j++
		}
		if j == i+2 {
			return token.Token{}, 0, &Error{Pos: start, Msg: "malformed hex literal"}
		}
		n, err := strconv.ParseInt(src[i+2:j], 16, 64)
		if err != nil {
			return token.Token{}, 0, &Error{Pos: start, Msg: err.Error()}
		}
		return token.Token{Type: token.INT, Int: n, Pos: start}, j, nil
	}
	if i+1 < len(src) && src[i] == '0' && (src[i+1] == 'o' || src[i+1] == 'O') {
		j := i + 2
		for j < len(src) && src[j] >= '0' && src[j] <= '7' {
			j++
		}
		if j == i+2 {
			return token.Token{}, 0, &Error{Pos: start, Msg: "malformed octal literal"}
		}
		n, err := strconv.ParseInt(src[i+2:j], 8, 64)
		if err != nil {
			return token.Token{}, 0, &Error{Pos: start, Msg: err.Error()}
		}
		return token.Token{Type: token.INT, Int: n, Pos: start}, j, nil
	}

	j := i
	for j < len(src) && src[j] >= '0' && src[j] <= '9' {
		j++
	}
	isFloat := false
	if j+1 < len(src) && src[j] == '.' && src[j+1] >= '0' && src[j+1] <= '9' {
		isFloat = true
		j++
		for j < len(src) && src[j] >= '0' && src[j] <= '9' {
			j++
		}
	}
	if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
		k := j + 1
		if k < len(src) && (src[k] == '+' || src[k] == '-') {
			k++
		}
		if k < len(src) && src[k] >= '0' && src[k] <= '9' {
			isFloat = true
			for k < len(src) && src[k] >= '0' && src[k] <= '9' {
				k++
			}
			j = k
		}
	}
	if isFloat {
		f, err := strconv.ParseFloat(src[i:j], 64)
		if err != nil {
			return token.Token{}, 0, &Error{Pos: start, Msg: err.Error()}
		}
		return token.Token{Type: token.FLOAT, Float: f, Pos: start}, j, nil
	}
	n, err := strconv.ParseInt(src[i:j], 10, 64)
	if err != nil {
		return token.Token{}, 0, &Error{Pos: start, Msg: err.Error()}
	}
	return token.Token{Type: token.INT, Int: n, Pos: start}, j, nil
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// MatchingDelim returns the index of the close delimiter matching the open
// delimiter at start, or -1 if the match is missing. Delimiters inside
// quoted regions and nested open/close pairs do not count.
func MatchingDelim(src string, start int, open, close rune) int {
	depth := 0
	inQuote := false
	for i := start; i < len(src); i++ {
		c := rune(src[i])
		if inQuote {
			if c == '\\' {
				i++
			} else if c == Quote {
				inQuote = false
			}
			continue
		}
		switch c {
		case Quote:
			inQuote = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// SplitArgs splits a macro call body into raw argument strings on the
// argument delimiter, treating quoted regions and nested calls or index
// groups as opaque. The first piece is the macro name.
func SplitArgs(body string) []string {
	var pieces []string
	depth := 0
	inQuote := false
	last := 0
	for i := 0; i < len(body); i++ {
		c := body[i]
		if inQuote {
			if c == '\\' {
				i++
			} else if c == byte(Quote) {
				inQuote = false
			}
			continue
		}
		switch c {
		case byte(Quote):
			inQuote = true
		case byte(Sigil), '[':
			depth++
		case byte(Close), ']':
			depth--
		case byte(Delim):
			if depth == 0 {
				pieces = append(pieces, body[last:i])
				last = i + 1
			}
		}
	}
	pieces = append(pieces, body[last:])
	return pieces
}
