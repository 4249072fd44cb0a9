// Package ops implements the typed operator dispatch table: an ordered
// list of (operator, kind pattern) entries resolved by first match, so
// specific overloads must be registered before permissive fallbacks.
package ops

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/solsword/firelight/internal/value"
)

// Impl applies an operator to already-evaluated operands.
type Impl func(args []value.Value) (value.Value, error)

// OperatorError reports that no registered entry matched the operator and
// operand kinds.
type OperatorError struct {
	Op    string
	Kinds []value.Kind
}

func (e *OperatorError) Error() string {
	names := make([]string, len(e.Kinds))
	for i, k := range e.Kinds {
		names[i] = k.String()
	}
	return fmt.Sprintf("no match for operator '%s' on types [%s]", e.Op, strings.Join(names, ", "))
}

// LookupError reports a failed index or key access. It is recoverable at
// the macro-call boundary.
type LookupError struct {
	Key string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no such key or index: %s", e.Key)
}

type entry struct {
	op      string
	pattern []value.Kind
	fn      Impl
}

// Table is the operator registry. Resolution tries entries in
// registration order and returns the first whose pattern matches.
type Table struct {
	entries []entry
}

func (t *Table) register(op string, fn Impl, pattern ...value.Kind) {
	t.entries = append(t.entries, entry{op: op, pattern: pattern, fn: fn})
}

// Resolve finds the implementation for an operator and operand kinds.
func (t *Table) Resolve(op string, kinds []value.Kind) (Impl, error) {
	for _, e := range t.entries {
		if e.op != op || len(e.pattern) != len(kinds) {
			continue
		}
		match := true
		for i, pk := range e.pattern {
			if pk != value.KindAny && pk != kinds[i] {
				match = false
				break
			}
		}
		if match {
			return e.fn, nil
		}
	}
	return nil, &OperatorError{Op: op, Kinds: kinds}
}

// Apply resolves and invokes an operator on the given operands.
func (t *Table) Apply(op string, args ...value.Value) (value.Value, error) {
	kinds := make([]value.Kind, len(args))
	for i, a := range args {
		kinds[i] = a.Kind()
	}
	fn, err := t.Resolve(op, kinds)
	if err != nil {
		return nil, err
	}
	return fn(args)
}

// Entries reports how many entries are registered for an operator, for
// registration-order tests.
func (t *Table) Entries(op string) int {
	n := 0
	for _, e := range t.entries {
		if e.op == op {
			n++
		}
	}
	return n
}

const (
	kNone  = value.KindNone
	kBool  = value.KindBool
	kInt   = value.KindInt
	kFloat = value.KindFloat
	kStr   = value.KindString
	kList  = value.KindList
	kDict  = value.KindDict
	kAny   = value.KindAny
)

// New builds the default table. Registration order is part of the
// contract: specific overloads come before the permissive string-concat
// defaults at the bottom.
func New() *Table {
	t := &Table{}

	// Unary operators.
	t.register("not", func(a []value.Value) (value.Value, error) {
		return value.Bool(!a[0].Truthy()), nil
	}, kAny)
	t.register("+", func(a []value.Value) (value.Value, error) {
		return a[0], nil
	}, kAny)
	t.register("-", func(a []value.Value) (value.Value, error) {
		return value.Int(-a[0].(value.Int)), nil
	}, kInt)
	t.register("-", func(a []value.Value) (value.Value, error) {
		return value.Float(-a[0].(value.Float)), nil
	}, kFloat)

	// Arithmetic on numbers, promoting to Float when either side is one.
	registerNumeric(t, "+", func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
	registerNumeric(t, "-", func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
	registerNumeric(t, "*", func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
	registerDivision(t)

	// Comparisons accept any pair and default to False across
	// incomparable kinds instead of erroring.
	t.register("=", func(a []value.Value) (value.Value, error) {
		return value.Bool(value.Equal(a[0], a[1])), nil
	}, kAny, kAny)
	t.register("!=", func(a []value.Value) (value.Value, error) {
		return value.Bool(!value.Equal(a[0], a[1])), nil
	}, kAny, kAny)
	registerComparison(t, "<", func(c int) bool { return c < 0 })
	registerComparison(t, ">", func(c int) bool { return c > 0 })
	registerComparison(t, "<=", func(c int) bool { return c <= 0 })
	registerComparison(t, ">=", func(c int) bool { return c >= 0 })

	// Bitwise operators on integers.
	t.register("&", intBinary(func(x, y int64) int64 { return x & y }), kInt, kInt)
	t.register("|", intBinary(func(x, y int64) int64 { return x | y }), kInt, kInt)
	t.register("^", intBinary(func(x, y int64) int64 { return x ^ y }), kInt, kInt)

	// String operators.
	t.register("+", func(a []value.Value) (value.Value, error) {
		return value.Str(string(a[0].(value.Str)) + string(a[1].(value.Str))), nil
	}, kStr, kStr)
	t.register(".", func(a []value.Value) (value.Value, error) {
		return value.Str(string(a[0].(value.Str)) + string(a[1].(value.Str))), nil
	}, kStr, kStr)
	t.register("-", func(a []value.Value) (value.Value, error) {
		return value.Str(strings.ReplaceAll(string(a[0].(value.Str)), string(a[1].(value.Str)), "")), nil
	}, kStr, kStr)
	t.register("*", func(a []value.Value) (value.Value, error) {
		n := int(a[1].(value.Int))
		if n < 0 {
			n = 0
		}
		return value.Str(strings.Repeat(string(a[0].(value.Str)), n)), nil
	}, kStr, kInt)
	t.register("/", func(a []value.Value) (value.Value, error) {
		re, err := regexp.Compile(string(a[1].(value.Str)))
		if err != nil {
			return nil, fmt.Errorf("bad pattern in '/': %w", err)
		}
		return value.Bool(re.MatchString(string(a[0].(value.Str)))), nil
	}, kStr, kStr)
	t.register("//", func(a []value.Value) (value.Value, error) {
		return value.Bool(strings.Contains(string(a[0].(value.Str)), string(a[1].(value.Str)))), nil
	}, kStr, kStr)
	t.register("^", func(a []value.Value) (value.Value, error) {
		re, err := regexp.Compile(string(a[1].(value.Str)))
		if err != nil {
			return nil, fmt.Errorf("bad pattern in '^': %w", err)
		}
		parts := re.Split(string(a[0].(value.Str)), -1)
		return strList(parts), nil
	}, kStr, kStr)
	t.register("^^", func(a []value.Value) (value.Value, error) {
		parts := strings.Split(string(a[0].(value.Str)), string(a[1].(value.Str)))
		return strList(parts), nil
	}, kStr, kStr)

	// Substitution: subject ~ pattern/replacement.
	t.register("~", func(a []value.Value) (value.Value, error) {
		re, err := regexp.Compile(string(a[1].(value.Str)))
		if err != nil {
			return nil, fmt.Errorf("bad pattern in '~': %w", err)
		}
		return value.Str(re.ReplaceAllString(string(a[0].(value.Str)), string(a[2].(value.Str)))), nil
	}, kStr, kStr, kStr)
	t.register("~~", func(a []value.Value) (value.Value, error) {
		return value.Str(strings.ReplaceAll(
			string(a[0].(value.Str)),
			string(a[1].(value.Str)),
			string(a[2].(value.Str)),
		)), nil
	}, kStr, kStr, kStr)

	// List operators.
	t.register("+", func(a []value.Value) (value.Value, error) {
		l, r := a[0].(*value.List), a[1].(*value.List)
		items := make([]value.Value, 0, len(l.Items)+len(r.Items))
		items = append(items, l.Items...)
		items = append(items, r.Items...)
		return &value.List{Items: items}, nil
	}, kList, kList)
	t.register(".", func(a []value.Value) (value.Value, error) {
		l := a[0].(*value.List)
		items := make([]value.Value, 0, len(l.Items)+1)
		items = append(items, l.Items...)
		items = append(items, a[1])
		return &value.List{Items: items}, nil
	}, kList, kAny)
	t.register("*", func(a []value.Value) (value.Value, error) {
		l := a[0].(*value.List)
		n := int(a[1].(value.Int))
		var items []value.Value
		for i := 0; i < n; i++ {
			items = append(items, l.Items...)
		}
		return &value.List{Items: items}, nil
	}, kList, kInt)
	t.register("/", func(a []value.Value) (value.Value, error) {
		for _, it := range a[0].(*value.List).Items {
			if value.Equal(it, a[1]) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	}, kList, kAny)
	t.register("|", func(a []value.Value) (value.Value, error) {
		items := a[0].(*value.List).Items
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = it.Text()
		}
		return value.Str(strings.Join(parts, string(a[1].(value.Str)))), nil
	}, kList, kStr)

	// Dict operators.
	t.register("+", dictMerge(false), kDict, kDict)
	t.register("|", dictMerge(true), kDict, kDict)
	t.register("&", func(a []value.Value) (value.Value, error) {
		l, r := a[0].(*value.Dict), a[1].(*value.Dict)
		out := value.NewDict()
		for _, k := range l.Keys() {
			if rv, ok := r.Get(k); ok {
				out.Set(k, rv)
			}
		}
		return out, nil
	}, kDict, kDict)
	t.register("-", func(a []value.Value) (value.Value, error) {
		l, r := a[0].(*value.Dict), a[1].(*value.Dict)
		out := value.NewDict()
		for _, k := range l.Keys() {
			if _, ok := r.Get(k); !ok {
				lv, _ := l.Get(k)
				out.Set(k, lv)
			}
		}
		return out, nil
	}, kDict, kDict)

	// Index access.
	t.register("[", func(a []value.Value) (value.Value, error) {
		items := a[0].(*value.List).Items
		return indexSeq(len(items), int(a[1].(value.Int)), func(i int) value.Value { return items[i] })
	}, kList, kInt)
	t.register("[", func(a []value.Value) (value.Value, error) {
		s := string(a[0].(value.Str))
		return indexSeq(len(s), int(a[1].(value.Int)), func(i int) value.Value { return value.Str(s[i : i+1]) })
	}, kStr, kInt)
	t.register("[", func(a []value.Value) (value.Value, error) {
		key := string(a[1].(value.Str))
		v, ok := a[0].(*value.Dict).Get(key)
		if !ok {
			return nil, &LookupError{Key: key}
		}
		return v, nil
	}, kDict, kStr)

	// Truthy 'and'/'or' entries back the reduce operator; the expression
	// evaluator short-circuits these before dispatch ever sees them.
	t.register("and", func(a []value.Value) (value.Value, error) {
		return value.Bool(a[0].Truthy() && a[1].Truthy()), nil
	}, kAny, kAny)
	t.register("or", func(a []value.Value) (value.Value, error) {
		return value.Bool(a[0].Truthy() || a[1].Truthy()), nil
	}, kAny, kAny)

	// Default string concatenation, registered last so every specific
	// '+' overload above wins first.
	t.register("+", func(a []value.Value) (value.Value, error) {
		return value.Str(string(a[0].(value.Str)) + a[1].Text()), nil
	}, kStr, kAny)
	t.register("+", func(a []value.Value) (value.Value, error) {
		return value.Str(a[0].Text() + string(a[1].(value.Str))), nil
	}, kAny, kStr)

	return t
}

func strList(parts []string) *value.List {
	items := make([]value.Value, len(parts))
	for i, p := range parts {
		items[i] = value.Str(p)
	}
	return &value.List{Items: items}
}

// indexSeq resolves a possibly-negative index against a sequence of
// length n.
func indexSeq(n, i int, get func(int) value.Value) (value.Value, error) {
	orig := i
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, &LookupError{Key: fmt.Sprintf("%d", orig)}
	}
	return get(i), nil
}

func intBinary(f func(x, y int64) int64) Impl {
	return func(a []value.Value) (value.Value, error) {
		return value.Int(f(int64(a[0].(value.Int)), int64(a[1].(value.Int)))), nil
	}
}

func dictMerge(rightUnder bool) Impl {
	return func(a []value.Value) (value.Value, error) {
		l, r := a[0].(*value.Dict), a[1].(*value.Dict)
		out := value.NewDict()
		first, second := l, r
		if rightUnder {
			first, second = r, l
		}
		for _, k := range first.Keys() {
			v, _ := first.Get(k)
			out.Set(k, v)
		}
		for _, k := range second.Keys() {
			v, _ := second.Get(k)
			out.Set(k, v)
		}
		return out, nil
	}
}

// registerNumeric adds the four Int/Float kind combinations for one
// arithmetic operator. The result is Float when either operand is.
func registerNumeric(t *Table, op string, fi func(x, y int64) int64, ff func(x, y float64) float64) {
	t.register(op, func(a []value.Value) (value.Value, error) {
		return value.Int(fi(int64(a[0].(value.Int)), int64(a[1].(value.Int)))), nil
	}, kInt, kInt)
	float := func(a []value.Value) (value.Value, error) {
		x, _ := value.AsFloat(a[0])
		y, _ := value.AsFloat(a[1])
		return value.Float(ff(x, y)), nil
	}
	t.register(op, float, kInt, kFloat)
	t.register(op, float, kFloat, kInt)
	t.register(op, float, kFloat, kFloat)
}

func registerDivision(t *Table) {
	// '/' stays an Int only when both operands are Ints and nothing is
	// lost; '//' always yields an Int, truncating toward zero.
	t.register("/", func(a []value.Value) (value.Value, error) {
		x, y := int64(a[0].(value.Int)), int64(a[1].(value.Int))
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		if x%y == 0 {
			return value.Int(x / y), nil
		}
		return value.Float(float64(x) / float64(y)), nil
	}, kInt, kInt)
	divFloat := func(a []value.Value) (value.Value, error) {
		x, _ := value.AsFloat(a[0])
		y, _ := value.AsFloat(a[1])
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return value.Float(x / y), nil
	}
	t.register("/", divFloat, kInt, kFloat)
	t.register("/", divFloat, kFloat, kInt)
	t.register("/", divFloat, kFloat, kFloat)

	// '//' truncates toward zero and always yields an Int.
	floorDiv := func(a []value.Value) (value.Value, error) {
		x, _ := value.AsFloat(a[0])
		y, _ := value.AsFloat(a[1])
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return value.Int(int64(x / y)), nil
	}
	t.register("//", floorDiv, kInt, kInt)
	t.register("//", floorDiv, kInt, kFloat)
	t.register("//", floorDiv, kFloat, kInt)
	t.register("//", floorDiv, kFloat, kFloat)

	t.register("%", func(a []value.Value) (value.Value, error) {
		x, y := int64(a[0].(value.Int)), int64(a[1].(value.Int))
		if y == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return value.Int(x % y), nil
	}, kInt, kInt)
	modFloat := func(a []value.Value) (value.Value, error) {
		x, _ := value.AsFloat(a[0])
		y, _ := value.AsFloat(a[1])
		if y == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return value.Float(math.Mod(x, y)), nil
	}
	t.register("%", modFloat, kInt, kFloat)
	t.register("%", modFloat, kFloat, kInt)
	t.register("%", modFloat, kFloat, kFloat)

	t.register("**", func(a []value.Value) (value.Value, error) {
		x, y := int64(a[0].(value.Int)), int64(a[1].(value.Int))
		if y >= 0 {
			result := int64(1)
			for i := int64(0); i < y; i++ {
				result *= x
			}
			return value.Int(result), nil
		}
		return value.Float(math.Pow(float64(x), float64(y))), nil
	}, kInt, kInt)
	powFloat := func(a []value.Value) (value.Value, error) {
		x, _ := value.AsFloat(a[0])
		y, _ := value.AsFloat(a[1])
		return value.Float(math.Pow(x, y)), nil
	}
	t.register("**", powFloat, kInt, kFloat)
	t.register("**", powFloat, kFloat, kInt)
	t.register("**", powFloat, kFloat, kFloat)
}

// registerComparison adds an ordering operator over any pair of kinds;
// incomparable pairs yield False rather than an error so conditionals can
// safely compare heterogeneous story-state values.
func registerComparison(t *Table, op string, accept func(c int) bool) {
	t.register(op, func(a []value.Value) (value.Value, error) {
		c, ok := value.Compare(a[0], a[1])
		if !ok {
			return value.Bool(false), nil
		}
		return value.Bool(accept(c)), nil
	}, kAny, kAny)
}
