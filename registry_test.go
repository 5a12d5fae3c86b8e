package evalex_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/zephyrtronium/evalex"
)

func TestStandardRegistry(t *testing.T) {
	r := evalex.StandardRegistry()
	wantSyms := []string{"!", "!=", "%", "&&", "*", "+", "-", "/", "<", "<=", "<>", "=", "==", ">", ">=", "^", "||"}
	if got := r.Symbols(); !slices.Equal(got, wantSyms) {
		t.Errorf("wrong symbols:\nwant %q\ngot  %q", wantSyms, got)
	}
	wantFns := []string{
		"ABS", "CEILING", "COS", "DEG", "EXP", "FACT", "FLOOR", "IF", "LOG", "LOG10", "MAX",
		"MIN", "NOT", "RAD", "RANDOM", "ROUND", "SIN", "SQRT", "STR_UPPER", "SUM", "TAN",
	}
	if got := r.FunctionNames(); !slices.Equal(got, wantFns) {
		t.Errorf("wrong functions:\nwant %q\ngot  %q", wantFns, got)
	}
	for _, sym := range []string{"+", "-", "!"} {
		if !r.HasPrefix(sym) {
			t.Errorf("no prefix %s", sym)
		}
	}
	if r.HasPostfix("!") {
		t.Error("standard registry has postfix !")
	}
	if op, ok := r.Infix("^"); !ok || !op.RightAssoc || op.Precedence != evalex.PrecedencePower {
		t.Errorf("wrong ^: %+v %t", op, ok)
	}
	if fn, ok := r.Function("if"); !ok || len(fn.Params()) != 3 || !fn.Params()[1].Lazy {
		t.Errorf("wrong IF: %v %t", fn, ok)
	}
}

func TestRegistryCase(t *testing.T) {
	nop := evalex.NewFunction(func(ctx *evalex.Context, tok evalex.Token, args []evalex.Value) (evalex.Value, error) {
		return evalex.Null(), nil
	})
	and := evalex.Operator{Precedence: evalex.PrecedenceAnd, Fn: evalex.Binary(func(ctx *evalex.Context, tok evalex.Token, x, y evalex.Value) (evalex.Value, error) {
		return evalex.Null(), nil
	})}
	r := evalex.NewRegistry().AddFunction("myFunc", nop).AddInfix("and", and)
	for _, name := range []string{"myfunc", "MYFUNC", "MyFunc"} {
		if !r.HasFunction(name) {
			t.Errorf("no function %s", name)
		}
	}
	if !r.HasInfix("AND") || !r.HasInfix("And") {
		t.Error("infix lookup is case-sensitive")
	}
	if got := r.FunctionNames(); !slices.Equal(got, []string{"MYFUNC"}) {
		t.Errorf("want [MYFUNC], got %q", got)
	}
	if got := r.Symbols(); !slices.Equal(got, []string{"AND"}) {
		t.Errorf("want [AND], got %q", got)
	}
}

func TestRegistryClone(t *testing.T) {
	r := evalex.StandardRegistry()
	c := r.Clone()
	c.AddFunction("EXTRA", evalex.NewFunction(func(ctx *evalex.Context, tok evalex.Token, args []evalex.Value) (evalex.Value, error) {
		return evalex.Null(), nil
	}))
	op, _ := c.Infix("+")
	op.Precedence = 1
	c.AddInfix("+", op)
	if r.HasFunction("EXTRA") {
		t.Error("function added to clone appears in the source registry")
	}
	if op, _ := r.Infix("+"); op.Precedence != evalex.PrecedenceAdditive {
		t.Errorf("clone changed the source registry + precedence to %d", op.Precedence)
	}
	if evalex.StandardRegistry().HasFunction("EXTRA") {
		t.Error("clone changed the standard registry")
	}
}

func TestRegistryPanics(t *testing.T) {
	nop := func(ctx *evalex.Context, tok evalex.Token, args []evalex.Value) (evalex.Value, error) {
		return evalex.Null(), nil
	}
	cases := []struct {
		name string
		f    func()
	}{
		{"vararg-not-last", func() {
			evalex.NewFunction(nop, evalex.Param{Name: "a", Vararg: true}, evalex.Param{Name: "b"})
		}},
		{"nil-function", func() { evalex.NewRegistry().AddFunction("f", nil) }},
		{"nil-operator", func() { evalex.NewRegistry().AddInfix("#", evalex.Operator{}) }},
		{"bad-position", func() {
			evalex.NewConfig(evalex.WithOperators(evalex.Position(9), map[string]evalex.Operator{"+": {Fn: evalex.Unary(nil)}}))
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("no panic")
				}
			}()
			c.f()
		})
	}
}

func TestCustomRegistry(t *testing.T) {
	add, _ := evalex.StandardRegistry().Infix("+")
	r := evalex.NewRegistry().AddInfix("+", add)
	cfg := evalex.NewConfig(evalex.WithRegistry(r))
	v, err := evalex.NewWithConfig("1 + 2", cfg).Evaluate()
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "3" {
		t.Errorf("want 3, got %v", v)
	}
	cases := []struct {
		src string
		msg string
	}{
		{"1 * 2", "Undefined operator '*'"},
		{"2x", "Missing operator"},
		{"SQRT(4)", "Undefined function 'SQRT'"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			_, err := evalex.NewWithConfig(c.src, cfg).AST()
			var pe *evalex.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("want *ParseError, got %v", err)
			}
			if pe.Msg != c.msg {
				t.Errorf("want %q, got %q", c.msg, pe.Msg)
			}
		})
	}
}
