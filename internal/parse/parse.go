// Package parse builds expression trees from token sequences using
// precedence climbing.
package parse

import (
	"fmt"
	"strings"

	"github.com/solsword/firelight/internal/lex"
	"github.com/solsword/firelight/internal/token"
	"github.com/solsword/firelight/internal/value"
)

// Node is an expression tree node. Trees are immutable once constructed.
type Node interface{ isNode() }

// Literal is a constant value.
type Literal struct {
	Val value.Value
}

// Var is a variable lookup by name.
type Var struct {
	Name string
}

// Call is a macro call used as a value. Args hold the raw, unevaluated
// argument strings.
type Call struct {
	Name string
	Args []string
}

// ListLit is a bracketed list literal.
type ListLit struct {
	Elems []Node
}

// Unary is a prefix operator application.
type Unary struct {
	Op string
	X  Node
}

// Binary is a binary operator application.
type Binary struct {
	Op   string
	L, R Node
}

// Trinary is an operator with three children: substitution
// (subject, pattern, replacement) and reduce (collection, operator, seed).
type Trinary struct {
	Op      string
	A, B, C Node
}

// OpRef names an operator passed as the middle operand of a reduce.
type OpRef struct {
	Op string
}

// Index is a subscript access.
type Index struct {
	X   Node
	Idx Node
}

func (Literal) isNode() {}
func (Var) isNode()     {}
func (Call) isNode()    {}
func (ListLit) isNode() {}
func (Unary) isNode()   {}
func (Binary) isNode()  {}
func (Trinary) isNode() {}
func (OpRef) isNode()   {}
func (Index) isNode()   {}

// Error is a grammar violation, fatal to the expression being parsed.
type Error struct {
	Pos int
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse error at %d: %s", e.Pos, e.Msg)
}

// Precedence maps operator symbols to binding strength. Higher binds
// tighter. Index access outranks everything; comparisons and boolean
// connectives bind loosest.
var Precedence = map[string]int{
	"[":   10000,
	"!":   1000,
	"**":  200,
	"%":   200,
	"|":   200,
	"&":   200,
	"^":   200,
	"^^":  200,
	"/":   200,
	"//":  200,
	"~":   200,
	"~~":  200,
	"*":   100,
	"+":   50,
	"-":   50,
	".":   50,
	"=":   10,
	"<":   10,
	">":   10,
	"<=":  10,
	">=":  10,
	"!=":  10,
	"and": 5,
	"or":  5,
}

type parser struct {
	toks []token.Token
	pos  int
}

// Parse turns a token sequence into an expression tree.
func Parse(toks []token.Token) (Node, error) {
	p := &parser{toks: toks}
	n, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.toks) {
		t := p.toks[p.pos]
		return nil, &Error{Pos: t.Pos, Msg: fmt.Sprintf("unexpected %s", describe(t))}
	}
	return n, nil
}

func describe(t token.Token) string {
	if t.Text != "" {
		return fmt.Sprintf("%s '%s'", t.Type, t.Text)
	}
	return t.Type.String()
}

func (p *parser) peek() (token.Token, bool) {
	if p.pos < len(p.toks) {
		return p.toks[p.pos], true
	}
	return token.Token{}, false
}

func (p *parser) next() (token.Token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

// operatorAt returns the binary operator symbol at the current position,
// if any. 'and' and 'or' arrive as words; '[' begins index access.
func (p *parser) operatorAt() (string, bool) {
	t, ok := p.peek()
	if !ok {
		return "", false
	}
	switch t.Type {
	case token.OP:
		if t.Text == "," {
			return "", false
		}
		return t.Text, true
	case token.WORD:
		if t.Text == "and" || t.Text == "or" {
			return t.Text, true
		}
	case token.INDEX_OPEN:
		return "[", true
	}
	return "", false
}

func (p *parser) parseExpr(minPrec int) (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		sym, ok := p.operatorAt()
		if !ok {
			break
		}
		prec, known := Precedence[sym]
		if !known || prec < minPrec {
			break
		}
		opTok, _ := p.next()

		switch sym {
		case "[":
			idx, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			t, ok := p.next()
			if !ok || t.Type != token.INDEX_CLOSE {
				return nil, &Error{Pos: opTok.Pos, Msg: "unmatched '['"}
			}
			left = Index{X: left, Idx: idx}

		case "~", "~~":
			node, err := p.parseSubstitution(sym, left, opTok.Pos, prec)
			if err != nil {
				return nil, err
			}
			left = node

		case "|":
			// A reduce when the right-hand side opens with an
			// operator token; otherwise plain binary '|'.
			if redOp, isOp := p.reduceOperator(); isOp {
				p.pos++
				seed, err := p.parseExpr(prec + 1)
				if err != nil {
					return nil, err
				}
				left = Trinary{Op: "|", A: left, B: OpRef{Op: redOp}, C: seed}
				continue
			}
			right, err := p.parseExpr(prec + 1)
			if err != nil {
				return nil, err
			}
			left = Binary{Op: "|", L: left, R: right}

		case "!":
			call, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			if _, isCall := call.(Call); !isCall {
				return nil, &Error{Pos: opTok.Pos, Msg: "map operand must be a macro call"}
			}
			left = Binary{Op: "!", L: left, R: call}

		default:
			right, err := p.parseExpr(prec + 1)
			if err != nil {
				return nil, err
			}
			left = Binary{Op: sym, L: left, R: right}
		}
	}
	return left, nil
}

// reduceOperator reports whether the current token can serve as the
// operator operand of a reduce.
func (p *parser) reduceOperator() (string, bool) {
	t, ok := p.peek()
	if !ok {
		return "", false
	}
	if t.Type == token.OP && t.Text != "," {
		return t.Text, true
	}
	if t.Type == token.WORD && (t.Text == "and" || t.Text == "or") {
		return t.Text, true
	}
	return "", false
}

// parseSubstitution handles the '~' and '~~' heads: the right-hand side
// must be a string literal, split on an unescaped '/' into pattern and
// replacement children.
func (p *parser) parseSubstitution(sym string, subject Node, pos, prec int) (Node, error) {
	rhs, err := p.parseExpr(prec + 1)
	if err != nil {
		return nil, err
	}
	lit, ok := rhs.(Literal)
	if !ok {
		return nil, &Error{Pos: pos, Msg: fmt.Sprintf("'%s' needs a string pattern/replacement operand", sym)}
	}
	s, ok := lit.Val.(value.Str)
	if !ok {
		return nil, &Error{Pos: pos, Msg: fmt.Sprintf("'%s' needs a string pattern/replacement operand", sym)}
	}
	pattern, replacement := splitPattern(string(s))
	return Trinary{
		Op: sym,
		A:  subject,
		B:  Literal{Val: value.Str(pattern)},
		C:  Literal{Val: value.Str(replacement)},
	}, nil
}

// splitPattern splits on the first unescaped '/'. A missing separator
// means an empty replacement.
func splitPattern(s string) (string, string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '/':
			return unescapeSlashes(s[:i]), unescapeSlashes(s[i+1:])
		}
	}
	return unescapeSlashes(s), ""
}

func unescapeSlashes(s string) string {
	return strings.ReplaceAll(s, `\/`, "/")
}

func (p *parser) parseUnary() (Node, error) {
	t, ok := p.peek()
	if ok {
		if t.Type == token.OP && (t.Text == "+" || t.Text == "-") {
			p.pos++
			child, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return Unary{Op: t.Text, X: child}, nil
		}
		if t.Type == token.WORD && t.Text == "not" {
			p.pos++
			child, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return Unary{Op: "not", X: child}, nil
		}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	t, ok := p.next()
	if !ok {
		return nil, &Error{Pos: endPos(p.toks), Msg: "expected an operand"}
	}
	switch t.Type {
	case token.INT:
		return Literal{Val: value.Int(t.Int)}, nil
	case token.FLOAT:
		return Literal{Val: value.Float(t.Float)}, nil
	case token.STRING:
		return Literal{Val: value.Str(t.Text)}, nil

	case token.WORD:
		switch t.Text {
		case "True":
			return Literal{Val: value.Bool(true)}, nil
		case "False":
			return Literal{Val: value.Bool(false)}, nil
		case "None":
			return Literal{Val: value.None{}}, nil
		case "and", "or", "not":
			return nil, &Error{Pos: t.Pos, Msg: fmt.Sprintf("'%s' needs an operand before it", t.Text)}
		}
		return Var{Name: t.Text}, nil

	case token.CALL:
		pieces := lex.SplitArgs(t.Text)
		name := strings.TrimSpace(pieces[0])
		return Call{Name: name, Args: pieces[1:]}, nil

	case token.GROUP_OPEN:
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		tt, ok := p.next()
		if !ok || tt.Type != token.GROUP_CLOSE {
			return nil, &Error{Pos: t.Pos, Msg: "unmatched '('"}
		}
		return inner, nil

	case token.INDEX_OPEN:
		var elems []Node
		if tt, ok := p.peek(); ok && tt.Type == token.INDEX_CLOSE {
			p.pos++
			return ListLit{}, nil
		}
		for {
			el, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			elems = append(elems, el)
			tt, ok := p.next()
			if !ok {
				return nil, &Error{Pos: t.Pos, Msg: "unmatched '['"}
			}
			if tt.Type == token.INDEX_CLOSE {
				break
			}
			if tt.Type != token.OP || tt.Text != "," {
				return nil, &Error{Pos: tt.Pos, Msg: fmt.Sprintf("expected ',' or ']' in list, got %s", describe(tt))}
			}
		}
		return ListLit{Elems: elems}, nil
	}
	return nil, &Error{Pos: t.Pos, Msg: fmt.Sprintf("unexpected %s", describe(t))}
}

func endPos(toks []token.Token) int {
	if len(toks) == 0 {
		return 0
	}
	return toks[len(toks)-1].Pos
}
