package value

import "testing"

func TestTruthiness(t *testing.T) {
	truthy := []Value{Bool(true), Int(1), Float(0.5), Str("x"),
		&List{Items: []Value{Int(0)}}}
	for _, v := range truthy {
		if !v.Truthy() {
			t.Errorf("%s should be truthy", v.Repr())
		}
	}
	falsy := []Value{None{}, Bool(false), Int(0), Float(0), Str(""),
		NewList(), NewDict()}
	for _, v := range falsy {
		if v.Truthy() {
			t.Errorf("%s should be falsy", v.Repr())
		}
	}
}

func TestTextForms(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{None{}, ""},
		{Bool(true), "True"},
		{Bool(false), "False"},
		{Int(42), "42"},
		{Float(2.5), "2.5"},
		{Str("hi"), "hi"},
	}
	for _, c := range cases {
		if got := c.v.Text(); got != c.want {
			t.Errorf("%s.Text(): expected %q, got %q", c.v.Repr(), c.want, got)
		}
	}
	if (None{}).Repr() != "None" {
		t.Errorf("None.Repr(): got %q", (None{}).Repr())
	}
	if Str("hi").Repr() != `"hi"` {
		t.Errorf("Str.Repr(): got %q", Str("hi").Repr())
	}
}

func TestEqual(t *testing.T) {
	if !Equal(Int(1), Float(1.0)) {
		t.Error("1 and 1.0 should be equal")
	}
	if Equal(Int(1), Str("1")) {
		t.Error("1 and \"1\" should not be equal")
	}
	a := &List{Items: []Value{Int(1), Str("x")}}
	b := &List{Items: []Value{Int(1), Str("x")}}
	if !Equal(a, b) {
		t.Error("structurally equal lists should compare equal")
	}
	d1 := NewDict()
	d1.Set("a", Int(1))
	d1.Set("b", Int(2))
	d2 := NewDict()
	d2.Set("b", Int(2))
	d2.Set("a", Int(1))
	if !Equal(d1, d2) {
		t.Error("dict equality should ignore key order")
	}
}

func TestCompare(t *testing.T) {
	if c, ok := Compare(Int(1), Float(1.5)); !ok || c >= 0 {
		t.Errorf("1 vs 1.5: expected less, got %d ok=%v", c, ok)
	}
	if _, ok := Compare(Int(1), Str("x")); ok {
		t.Error("Int vs Str should be incomparable")
	}
	if c, ok := Compare(Str("a"), Str("b")); !ok || c >= 0 {
		t.Errorf("string compare failed: %d ok=%v", c, ok)
	}
}

func TestCloneIsDeep(t *testing.T) {
	d := NewDict()
	inner := NewList()
	inner.Items = append(inner.Items, Int(1))
	d.Set("xs", inner)

	c := d.Clone()
	got, _ := c.Get("xs")
	got.(*List).Items[0] = Int(99)

	orig, _ := d.Get("xs")
	if !Equal(orig.(*List).Items[0], Int(1)) {
		t.Error("clone shares nested list with original")
	}
}

func TestJSONRoundTripKeepsKeyOrder(t *testing.T) {
	src := `{"z":1,"a":[true,null,2.5],"m":{"k":"v"}}`
	v, err := FromJSON([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, ok := v.(*Dict)
	if !ok {
		t.Fatalf("expected dict, got %T", v)
	}
	keys := d.Keys()
	if len(keys) != 3 || keys[0] != "z" || keys[1] != "a" || keys[2] != "m" {
		t.Errorf("key order not preserved: %v", keys)
	}

	out, err := ToJSON(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != src {
		t.Errorf("round trip changed JSON:\n in: %s\nout: %s", src, out)
	}
}

func TestFromJSONIntVersusFloat(t *testing.T) {
	v, err := FromJSON([]byte(`[1, 1.0]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l := v.(*List)
	if l.Items[0].Kind() != KindInt {
		t.Errorf("expected Int, got %s", l.Items[0].Kind())
	}
	if l.Items[1].Kind() != KindFloat {
		t.Errorf("expected Float, got %s", l.Items[1].Kind())
	}
}
