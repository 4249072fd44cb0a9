package lex

import (
	"testing"

	"github.com/solsword/firelight/internal/token"
)

func TestLexBasics(t *testing.T) {
	toks, err := Lex(`1 + 2.5 * "hi" and x_1`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	types := []token.Type{
		token.INT, token.OP, token.FLOAT, token.OP, token.STRING,
		token.WORD, token.WORD,
	}
	if len(toks) != len(types) {
		t.Fatalf("expected %d tokens, got %d: %+v", len(types), len(toks), toks)
	}
	for i, want := range types {
		if toks[i].Type != want {
			t.Errorf("token %d: expected %s, got %s", i, want, toks[i].Type)
		}
	}
	if toks[0].Int != 1 || toks[2].Float != 2.5 {
		t.Errorf("bad numeric values: %+v", toks)
	}
	if toks[4].Text != "hi" {
		t.Errorf("expected string 'hi', got '%s'", toks[4].Text)
	}
}

func TestLexNumberForms(t *testing.T) {
	cases := []struct {
		src   string
		isInt bool
		i     int64
		f     float64
	}{
		{"0x1F", true, 31, 0},
		{"0o17", true, 15, 0},
		{"42", true, 42, 0},
		{"1.5e2", false, 0, 150},
		{"3e2", false, 0, 300},
	}
	for _, c := range cases {
		toks, err := Lex(c.src)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.src, err)
		}
		if len(toks) != 1 {
			t.Fatalf("%s: expected one token, got %d", c.src, len(toks))
		}
		if c.isInt {
			if toks[0].Type != token.INT || toks[0].Int != c.i {
				t.Errorf("%s: expected int %d, got %+v", c.src, c.i, toks[0])
			}
		} else {
			if toks[0].Type != token.FLOAT || toks[0].Float != c.f {
				t.Errorf("%s: expected float %g, got %+v", c.src, c.f, toks[0])
			}
		}
	}
}

func TestLexTwoCharOps(t *testing.T) {
	toks, err := Lex("a ** b // c == d ~~ e")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"**", "//", "=", "~~"}
	got := []string{}
	for _, tok := range toks {
		if tok.Type == token.OP {
			got = append(got, tok.Text)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("expected ops %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("op %d: expected '%s', got '%s'", i, want[i], got[i])
		}
	}
}

func TestLexStringEscapes(t *testing.T) {
	toks, err := Lex(`"a\"b\\c\n"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Text != "a\"b\\c\n" {
		t.Errorf("bad unescaping: %q", toks[0].Text)
	}
}

func TestLexUnterminatedString(t *testing.T) {
	_, err := Lex(`"no end`)
	if err == nil {
		t.Fatal("expected an error for unterminated string")
	}
	if _, ok := err.(*Error); !ok {
		t.Errorf("expected *lex.Error, got %T", err)
	}
}

func TestLexCallToken(t *testing.T) {
	toks, err := Lex(`(set~ mood~ "happy") + 1`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Type != token.CALL {
		t.Fatalf("expected CALL token, got %s", toks[0].Type)
	}
	if toks[0].Text != `set~ mood~ "happy"` {
		t.Errorf("bad call body: %q", toks[0].Text)
	}
	if toks[1].Type != token.OP || toks[2].Type != token.INT {
		t.Errorf("expected trailing '+ 1', got %+v", toks[1:])
	}
}

func TestLexGroupVersusCall(t *testing.T) {
	toks, err := Lex("(1 + 2)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Type != token.GROUP_OPEN {
		t.Errorf("expected GROUP_OPEN for plain parens, got %s", toks[0].Type)
	}
}

func TestLexUnterminatedCall(t *testing.T) {
	_, err := Lex("(cat~ oops")
	if err == nil {
		t.Fatal("expected an error for unterminated call")
	}
}

func TestLexSpecialVariables(t *testing.T) {
	toks, err := Lex("@ # ?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []string{"@", "#", "?"} {
		if toks[i].Type != token.WORD || toks[i].Text != want {
			t.Errorf("token %d: expected word '%s', got %+v", i, want, toks[i])
		}
	}
}

func TestMatchingDelim(t *testing.T) {
	cases := []struct {
		src  string
		want int
	}{
		{"(a(b)c)", 6},
		{`(a ")" b)`, 8},
		{"(open", -1},
		{`(x "\")" y)`, 10},
	}
	for _, c := range cases {
		got := MatchingDelim(c.src, 0, '(', ')')
		if got != c.want {
			t.Errorf("MatchingDelim(%q): expected %d, got %d", c.src, c.want, got)
		}
	}
}

func TestSplitArgs(t *testing.T) {
	pieces := SplitArgs(`if~ x > 1~ (cat~ a~ b)~ "li~ st"`)
	want := []string{"if", " x > 1", " (cat~ a~ b)", ` "li~ st"`}
	if len(pieces) != len(want) {
		t.Fatalf("expected %d pieces, got %d: %q", len(want), len(pieces), pieces)
	}
	for i := range want {
		if pieces[i] != want[i] {
			t.Errorf("piece %d: expected %q, got %q", i, want[i], pieces[i])
		}
	}
}

func TestSplitArgsNestedIndex(t *testing.T) {
	pieces := SplitArgs("lookup~ [1~ 2]~ 0")
	if len(pieces) != 3 {
		t.Fatalf("expected 3 pieces, got %d: %q", len(pieces), pieces)
	}
	if pieces[1] != " [1~ 2]" {
		t.Errorf("nested index not kept opaque: %q", pieces[1])
	}
}
