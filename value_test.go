package evalex_test

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/cockroachdb/apd/v3"

	"github.com/zephyrtronium/evalex"
)

type celsius float64

type label string

func TestValueOf(t *testing.T) {
	huge, _ := new(big.Int).SetString("-1000000000000000000000000000000", 10)
	n := 7
	var nilp *int
	cases := []struct {
		name string
		x    any
		kind evalex.Kind
		want string
	}{
		{"nil", nil, evalex.KindNull, "null"},
		{"bool", true, evalex.KindBoolean, "true"},
		{"string", "s", evalex.KindString, "s"},
		{"int", 3, evalex.KindNumber, "3"},
		{"int8", int8(-2), evalex.KindNumber, "-2"},
		{"int64", int64(math.MinInt64), evalex.KindNumber, "-9223372036854775808"},
		{"uint64", uint64(math.MaxUint64), evalex.KindNumber, "18446744073709551615"},
		{"uint8", uint8(255), evalex.KindNumber, "255"},
		{"float64", 0.1, evalex.KindNumber, "0.1"},
		{"float32", float32(0.1), evalex.KindNumber, "0.1"},
		{"float-int", 2.0, evalex.KindNumber, "2"},
		{"decimal", apd.New(-125, -2), evalex.KindNumber, "-1.25"},
		{"decimal-value", *apd.New(5, 1), evalex.KindNumber, "50"},
		{"big-int", huge, evalex.KindNumber, "-1000000000000000000000000000000"},
		{"big-float", big.NewFloat(1.5), evalex.KindNumber, "1.5"},
		{"named-float", celsius(21.5), evalex.KindNumber, "21.5"},
		{"named-string", label("x"), evalex.KindString, "x"},
		{"pointer", &n, evalex.KindNumber, "7"},
		{"nil-pointer", nilp, evalex.KindNull, "null"},
		{"nil-decimal", (*apd.Decimal)(nil), evalex.KindNull, "null"},
		{"nil-big-int", (*big.Int)(nil), evalex.KindNull, "null"},
		{"nil-big-float", (*big.Float)(nil), evalex.KindNull, "null"},
		{"nil-in-slice", []*big.Int{nil}, evalex.KindArray, "[null]"},
		{"slice", []int{1, 2}, evalex.KindArray, "[1, 2]"},
		{"nil-slice", []int(nil), evalex.KindArray, "[]"},
		{"array", [2]string{"a", "b"}, evalex.KindArray, `["a", "b"]`},
		{"values", []evalex.Value{evalex.Boolean(false)}, evalex.KindArray, "[false]"},
		{"map", map[string]int{"b": 2, "a": 1}, evalex.KindStructure, "{a: 1, b: 2}"},
		{"map-any", map[string]any{"x": []any{nil}}, evalex.KindStructure, "{x: [null]}"},
		{"value", evalex.String("v"), evalex.KindString, "v"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v, err := evalex.ValueOf(c.x, evalex.DefaultMathContext)
			if err != nil {
				t.Fatalf("converting %#v: %v", c.x, err)
			}
			if v.Kind() != c.kind {
				t.Errorf("converting %#v: want kind %v, got %v", c.x, c.kind, v.Kind())
			}
			if got := v.String(); got != c.want {
				t.Errorf("converting %#v: want %s, got %s", c.x, c.want, got)
			}
		})
	}
}

func TestValueOfRounds(t *testing.T) {
	mc := evalex.MathContext{Precision: 3, Rounding: apd.RoundHalfUp}
	v, err := evalex.ValueOf(1.2345, mc)
	if err != nil {
		t.Fatal(err)
	}
	if got := v.String(); got != "1.23" {
		t.Errorf("want 1.23, got %s", got)
	}
	v, err = evalex.ValueOf([]float64{9.995}, mc)
	if err != nil {
		t.Fatal(err)
	}
	if got := v.String(); got != "[10.0]" {
		t.Errorf("want [10.0], got %s", got)
	}
}

func TestValueOfErrors(t *testing.T) {
	cases := []struct {
		name string
		x    any
	}{
		{"struct", struct{}{}},
		{"chan", make(chan int)},
		{"func", func() {}},
		{"int-keys", map[int]int{1: 1}},
		{"inf", math.Inf(1)},
		{"nan", math.NaN()},
		{"big-inf", new(big.Float).SetInf(false)},
		{"nested", []any{1, struct{}{}}},
		{"nil-node", (*evalex.Node)(nil)},
		{"nil-node-in-map", map[string]any{"n": (*evalex.Node)(nil)}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v, err := evalex.ValueOf(c.x, evalex.DefaultMathContext)
			var ce *evalex.ConversionError
			if !errors.As(err, &ce) {
				t.Errorf("converting %#v: want *ConversionError, got %v, %v", c.x, v, err)
			}
		})
	}
}

func TestValueConversions(t *testing.T) {
	mc := evalex.DefaultMathContext
	cases := []struct {
		name  string
		v     evalex.Value
		b, bk bool
		d     string
		dk    bool
	}{
		{"true", evalex.Boolean(true), true, true, "1", true},
		{"false", evalex.Boolean(false), false, true, "0", true},
		{"zero", evalex.NumberFromInt(0), false, true, "0", true},
		{"nonzero", evalex.NumberFromInt(-3), true, true, "-3", true},
		{"str-true", evalex.String("TRUE"), true, true, "", false},
		{"str-false", evalex.String("False"), false, true, "", false},
		{"str-num", evalex.String(" 1.5 "), false, false, "1.5", true},
		{"str-inf", evalex.String("Infinity"), false, false, "", false},
		{"str-other", evalex.String("x"), false, false, "", false},
		{"null", evalex.Null(), false, false, "", false},
		{"array", evalex.Array(), false, false, "", false},
		{"struct", evalex.Structure(nil), false, false, "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b, ok := c.v.AsBool()
			if b != c.b || ok != c.bk {
				t.Errorf("AsBool: want %t, %t; got %t, %t", c.b, c.bk, b, ok)
			}
			d, ok := c.v.AsDecimal(mc)
			if ok != c.dk {
				t.Fatalf("AsDecimal: want ok %t, got %t", c.dk, ok)
			}
			if ok && d.String() != c.d {
				t.Errorf("AsDecimal: want %s, got %s", c.d, d)
			}
		})
	}
}

func TestValueEqual(t *testing.T) {
	n, err := evalex.Parse("1", nil)
	if err != nil {
		t.Fatal(err)
	}
	node := evalex.ExpressionNode(n)
	cases := []struct {
		name string
		a, b evalex.Value
		want bool
	}{
		{"null", evalex.Null(), evalex.Value{}, true},
		{"numbers", evalex.Number(apd.New(20, -1)), evalex.NumberFromInt(2), true},
		{"numbers-differ", evalex.NumberFromInt(1), evalex.NumberFromInt(2), false},
		{"strings", evalex.String("a"), evalex.String("a"), true},
		{"kinds", evalex.String("1"), evalex.NumberFromInt(1), false},
		{"bools", evalex.Boolean(true), evalex.Boolean(false), false},
		{"arrays", evalex.Array(evalex.NumberFromInt(1)), evalex.Array(evalex.Number(apd.New(10, -1))), true},
		{"arrays-len", evalex.Array(evalex.NumberFromInt(1)), evalex.Array(), false},
		{"structs", evalex.Structure(map[string]evalex.Value{"a": evalex.Null()}), evalex.Structure(map[string]evalex.Value{"a": evalex.Null()}), true},
		{"structs-keys", evalex.Structure(map[string]evalex.Value{"a": evalex.Null()}), evalex.Structure(map[string]evalex.Value{"b": evalex.Null()}), false},
		{"lazy-same", node, node, true},
		{"lazy-other", node, evalex.ExpressionNode(n), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.Equal(c.b); got != c.want {
				t.Errorf("%v == %v: want %t, got %t", c.a, c.b, c.want, got)
			}
		})
	}
}

func TestValueAccessors(t *testing.T) {
	panics := func(name string, f func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("%s did not panic", name)
			}
		}()
		f()
	}
	s := evalex.String("x")
	panics("Decimal", func() { s.Decimal() })
	panics("Bool", func() { s.Bool() })
	panics("Elems", func() { s.Elems() })
	panics("Fields", func() { s.Fields() })
	panics("Node", func() { s.Node() })
	panics("Str", func() { evalex.Null().Str() })
	panics("Number", func() { evalex.Number(nil) })
	panics("ExpressionNode", func() { evalex.ExpressionNode(nil) })

	if s.Str() != "x" {
		t.Errorf("want x, got %s", s.Str())
	}
	st := evalex.Structure(map[string]evalex.Value{"Name": s})
	if f, ok := st.Field("name"); !ok || !f.Equal(s) {
		t.Errorf("case-insensitive field lookup failed: %v %t", f, ok)
	}
	if _, ok := st.Field("other"); ok {
		t.Error("found missing field")
	}
	if got := evalex.KindLazy.String(); got != "EXPRESSION_NODE" {
		t.Errorf("want EXPRESSION_NODE, got %s", got)
	}
}

func TestValueForce(t *testing.T) {
	n, err := evalex.Parse("1 + 2", nil)
	if err != nil {
		t.Fatal(err)
	}
	v := evalex.ExpressionNode(n)
	if got := v.String(); got != "(1 + 2)" {
		t.Errorf("want (1 + 2), got %s", got)
	}
	if v.Node() != n {
		t.Error("wrong node")
	}
	_, err = v.Force()
	var ee *evalex.EvaluationError
	if !errors.As(err, &ee) {
		t.Errorf("want *EvaluationError forcing a detached node, got %v", err)
	}
	w, err := evalex.NumberFromInt(1).Force()
	if err != nil || !w.Equal(evalex.NumberFromInt(1)) {
		t.Errorf("forcing a number: %v %v", w, err)
	}
}
