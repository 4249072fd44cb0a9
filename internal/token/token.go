// Package token defines the token types produced by the expression lexer.
package token

// Type identifies a token class.
type Type int

const (
	WORD Type = iota // identifier, keyword, or run of unrecognized characters
	INT
	FLOAT
	STRING
	OP         // operator symbol
	CALL       // whole macro call, raw body text
	GROUP_OPEN // (
	GROUP_CLOSE
	INDEX_OPEN // [
	INDEX_CLOSE
)

// Token is a single lexed token. Text holds the word, operator symbol,
// decoded string literal, or raw macro-call body depending on Type.
type Token struct {
	Type  Type
	Text  string
	Int   int64
	Float float64
	Pos   int // byte offset in the source expression
}

// String returns the type name used in parse errors.
func (t Type) String() string {
	switch t {
	case WORD:
		return "word"
	case INT:
		return "int"
	case FLOAT:
		return "float"
	case STRING:
		return "string"
	case OP:
		return "operator"
	case CALL:
		return "macro call"
	case GROUP_OPEN:
		return "'('"
	case GROUP_CLOSE:
		return "')'"
	case INDEX_OPEN:
		return "'['"
	case INDEX_CLOSE:
		return "']'"
	}
	return "unknown"
}
