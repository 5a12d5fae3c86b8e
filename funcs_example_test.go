package evalex_test

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/zephyrtronium/evalex"
)

func nargs(ctx *evalex.Context, tok evalex.Token, args []evalex.Value) (evalex.Value, error) {
	return evalex.NumberFromInt(int64(len(args))), nil
}

func ExampleNewFunction() {
	cfg := evalex.NewConfig(evalex.WithFunctions(map[string]evalex.Function{
		"NARGS": evalex.NewFunction(nargs, evalex.Param{Name: "value", Vararg: true}),
	}))

	for _, src := range []string{"NARGS(1)", "nargs(3, 2, 1)", "NARGS(NARGS(1, 2), 0) * 10"} {
		e := evalex.NewWithConfig(src, cfg)
		a, _ := e.AST()
		r, _ := e.Evaluate()
		fmt.Println(r, a)
	}

	// Output:
	// 1 NARGS(1)
	// 3 nargs(3, 2, 1)
	// 20 (NARGS(NARGS(1, 2), 0) * 10)
}

func factorial(ctx *evalex.Context, tok evalex.Token, x evalex.Value) (evalex.Value, error) {
	if !x.IsNumber() {
		return evalex.Value{}, evalex.UnsupportedType(tok)
	}
	n, err := x.Decimal().Int64()
	if err != nil || n < 0 {
		return evalex.Value{}, &evalex.EvaluationError{Token: tok, Msg: "Factorial of a non-natural number"}
	}
	r := apd.New(1, 0)
	for i := int64(2); i <= n; i++ {
		if _, err := ctx.Decimal().Mul(r, r, apd.New(i, 0)); err != nil {
			return evalex.Value{}, &evalex.EvaluationError{Token: tok, Msg: err.Error(), Err: err}
		}
	}
	return evalex.Number(r), nil
}

func ExampleWithOperators() {
	fact := evalex.Operator{Precedence: evalex.PrecedencePostfix, Fn: evalex.Unary(factorial)}
	cfg := evalex.NewConfig(evalex.WithOperators(evalex.Postfix, map[string]evalex.Operator{"!": fact}))

	r, err := evalex.NewWithConfig("2! + 3!", cfg).Evaluate()
	fmt.Println(r, err)
	r, err = evalex.NewWithConfig("-3!", cfg).Evaluate()
	fmt.Println(r, err)
	_, err = evalex.NewWithConfig("1.5!", cfg).Evaluate()
	fmt.Println(err)

	// Output:
	// 8 <nil>
	// -6 <nil>
	// Factorial of a non-natural number
}

func ExampleExpression_With() {
	r, err := evalex.New("(a + b) * 2").With("a", 1.5).With("b", 4).Evaluate()
	fmt.Println(r, err)
	r, err = evalex.New("order.qty * order.price").
		With("order", map[string]any{"qty": 3, "price": 1.25}).
		Evaluate()
	fmt.Println(r, err)

	// Output:
	// 11.0 <nil>
	// 3.75 <nil>
}

func ExampleWithDecimalPlaces() {
	r, _ := evalex.New("1/3 + 1/3", evalex.WithDecimalPlaces(4)).Evaluate()
	fmt.Println(r)
	r, _ = evalex.New("1/3 + 1/3").Evaluate()
	fmt.Println(evalex.New("ROUND(x, 4)").With("x", r).Evaluate())

	// Output:
	// 0.6666
	// 0.6667 <nil>
}
