// Package value defines the closed set of runtime values used by firelight
// macro expressions: booleans, integers, floats, strings, lists, ordered
// dictionaries, and None.
package value

import (
	"strconv"
	"strings"
)

// Kind identifies a value variant.
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindDict

	// KindAny matches every kind in operator dispatch patterns.
	KindAny
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindBool:
		return "boolean"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	case KindAny:
		return "*"
	}
	return "unknown"
}

// Value is the interface all runtime values implement.
type Value interface {
	Kind() Kind
	// Truthy reports the truth value used by conditionals: None, False,
	// zero, the empty string, and empty collections are falsy.
	Truthy() bool
	// Text is the form spliced into rendered story text.
	Text() string
	// Repr is the source-like form used inside containers and diagnostics.
	Repr() string
}

// None is the absent value.
type None struct{}

func (None) Kind() Kind   { return KindNone }
func (None) Truthy() bool { return false }
func (None) Text() string { return "" }
func (None) Repr() string { return "None" }

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() Kind     { return KindBool }
func (b Bool) Truthy() bool { return bool(b) }

func (b Bool) Text() string {
	if b {
		return "True"
	}
	return "False"
}
func (b Bool) Repr() string { return b.Text() }

// Int is an integer value.
type Int int64

func (Int) Kind() Kind     { return KindInt }
func (i Int) Truthy() bool { return i != 0 }
func (i Int) Text() string { return strconv.FormatInt(int64(i), 10) }
func (i Int) Repr() string { return i.Text() }

// Float is a floating-point value.
type Float float64

func (Float) Kind() Kind     { return KindFloat }
func (f Float) Truthy() bool { return f != 0 }
func (f Float) Text() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }
func (f Float) Repr() string { return f.Text() }

// Str is a string value.
type Str string

func (Str) Kind() Kind     { return KindString }
func (s Str) Truthy() bool { return s != "" }
func (s Str) Text() string { return string(s) }
func (s Str) Repr() string { return strconv.Quote(string(s)) }

// List is an ordered sequence of values.
type List struct {
	Items []Value
}

// NewList creates a list from the given items.
func NewList(items ...Value) *List {
	return &List{Items: items}
}

func (*List) Kind() Kind     { return KindList }
func (l *List) Truthy() bool { return len(l.Items) > 0 }

func (l *List) Text() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range l.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.Repr())
	}
	sb.WriteByte(']')
	return sb.String()
}
func (l *List) Repr() string { return l.Text() }

// Dict is a string-keyed mapping that preserves insertion order.
type Dict struct {
	keys  []string
	items map[string]Value
}

// NewDict creates an empty ordered dictionary.
func NewDict() *Dict {
	return &Dict{items: make(map[string]Value)}
}

func (*Dict) Kind() Kind     { return KindDict }
func (d *Dict) Truthy() bool { return len(d.keys) > 0 }

func (d *Dict) Text() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Quote(k))
		sb.WriteString(": ")
		sb.WriteString(d.items[k].Repr())
	}
	sb.WriteByte('}')
	return sb.String()
}
func (d *Dict) Repr() string { return d.Text() }

// Get returns the value for key, reporting whether it was present.
func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.items[key]
	return v, ok
}

// Set stores a value under key, preserving the key's original position if
// it already exists.
func (d *Dict) Set(key string, v Value) {
	if _, ok := d.items[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.items[key] = v
}

// Delete removes a key if present.
func (d *Dict) Delete(key string) {
	if _, ok := d.items[key]; !ok {
		return
	}
	delete(d.items, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Clone returns a deep copy of the dictionary.
func (d *Dict) Clone() *Dict {
	out := NewDict()
	for _, k := range d.keys {
		out.Set(k, Clone(d.items[k]))
	}
	return out
}

// Clone returns a deep copy of a value. Scalars are returned as-is.
func Clone(v Value) Value {
	switch t := v.(type) {
	case *List:
		items := make([]Value, len(t.Items))
		for i, it := range t.Items {
			items[i] = Clone(it)
		}
		return &List{Items: items}
	case *Dict:
		return t.Clone()
	default:
		return v
	}
}

// Equal reports structural equality. Int and Float compare numerically.
func Equal(a, b Value) bool {
	if na, ok := numeric(a); ok {
		if nb, okb := numeric(b); okb {
			return na == nb
		}
		return false
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch ta := a.(type) {
	case None:
		return true
	case Bool:
		return ta == b.(Bool)
	case Str:
		return ta == b.(Str)
	case *List:
		tb := b.(*List)
		if len(ta.Items) != len(tb.Items) {
			return false
		}
		for i := range ta.Items {
			if !Equal(ta.Items[i], tb.Items[i]) {
				return false
			}
		}
		return true
	case *Dict:
		tb := b.(*Dict)
		if ta.Len() != tb.Len() {
			return false
		}
		for _, k := range ta.keys {
			bv, ok := tb.Get(k)
			if !ok || !Equal(ta.items[k], bv) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two values, returning -1, 0, or 1 and whether the pair is
// comparable at all. Ordering is defined between two numerics, two strings,
// or two lists; everything else is incomparable.
func Compare(a, b Value) (int, bool) {
	if na, ok := numeric(a); ok {
		if nb, okb := numeric(b); okb {
			switch {
			case na < nb:
				return -1, true
			case na > nb:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}
	if sa, ok := a.(Str); ok {
		if sb, okb := b.(Str); okb {
			return strings.Compare(string(sa), string(sb)), true
		}
		return 0, false
	}
	if la, ok := a.(*List); ok {
		lb, okb := b.(*List)
		if !okb {
			return 0, false
		}
		for i := 0; i < len(la.Items) && i < len(lb.Items); i++ {
			c, ok := Compare(la.Items[i], lb.Items[i])
			if !ok {
				return 0, false
			}
			if c != 0 {
				return c, true
			}
		}
		switch {
		case len(la.Items) < len(lb.Items):
			return -1, true
		case len(la.Items) > len(lb.Items):
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// numeric converts Int and Float values to float64 for cross-kind math.
func numeric(v Value) (float64, bool) {
	switch t := v.(type) {
	case Int:
		return float64(t), true
	case Float:
		return float64(t), true
	}
	return 0, false
}

// AsFloat converts a numeric value to float64.
func AsFloat(v Value) (float64, bool) { return numeric(v) }
