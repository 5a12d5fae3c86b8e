package evalex

import (
	"math"
	"math/big"
	"math/rand/v2"

	"github.com/cockroachdb/apd/v3"
	"github.com/zephyrtronium/bigfloat"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Factors for trigonometry in degrees.
const (
	degToRad = 0.017453292519943295
	radToDeg = 57.29577951308232
)

// maxExpArg bounds the argument of EXP. Beyond it, the result exceeds the
// largest exponent a decimal can hold.
var maxExpArg = apd.New(230260, 0)

var one = apd.New(1, 0)

var (
	paramValue  = Param{Name: "value"}
	paramValues = Param{Name: "value", Vararg: true}
)

// addFunctions adds the standard functions to r.
func addFunctions(r *Registry) {
	r.AddFunction("ABS", NewFunction(fnAbs, paramValue)).
		AddFunction("CEILING", NewFunction(fnCeiling, paramValue)).
		AddFunction("FLOOR", NewFunction(fnFloor, paramValue)).
		AddFunction("FACT", NewFunction(fnFact, Param{Name: "base"})).
		AddFunction("IF", NewFunction(fnIf,
			Param{Name: "condition"},
			Param{Name: "expressionIfTrue", Lazy: true},
			Param{Name: "expressionIfFalse", Lazy: true})).
		AddFunction("LOG", NewFunction(logFunc("LOG", false), paramValue)).
		AddFunction("LOG10", NewFunction(logFunc("LOG10", true), paramValue)).
		AddFunction("EXP", NewFunction(fnExp, paramValue)).
		AddFunction("MAX", NewFunction(extremum(1), paramValues)).
		AddFunction("MIN", NewFunction(extremum(-1), paramValues)).
		AddFunction("SUM", NewFunction(fnSum, paramValues)).
		AddFunction("NOT", NewFunction(fnNot, paramValue)).
		AddFunction("ROUND", NewFunction(fnRound, paramValue, Param{Name: "scale"})).
		AddFunction("SQRT", NewFunction(fnSqrt, paramValue)).
		AddFunction("RANDOM", NewFunction(fnRandom)).
		AddFunction("DEG", NewFunction(floatFunc(func(x float64) float64 { return x * radToDeg }), paramValue)).
		AddFunction("RAD", NewFunction(floatFunc(func(x float64) float64 { return x * degToRad }), paramValue)).
		AddFunction("SIN", NewFunction(floatFunc(func(x float64) float64 { return math.Sin(x * degToRad) }), paramValue)).
		AddFunction("COS", NewFunction(floatFunc(func(x float64) float64 { return math.Cos(x * degToRad) }), paramValue)).
		AddFunction("TAN", NewFunction(floatFunc(func(x float64) float64 { return math.Tan(x * degToRad) }), paramValue)).
		AddFunction("STR_UPPER", NewFunction(fnUpper, paramValue))
}

func fnAbs(ctx *Context, tok Token, args []Value) (Value, error) {
	if err := numbers(tok, args...); err != nil {
		return Value{}, err
	}
	d := new(apd.Decimal)
	c, err := ctx.dec.Abs(d, args[0].num)
	return arith(tok, d, c, err)
}

func fnCeiling(ctx *Context, tok Token, args []Value) (Value, error) {
	if err := numbers(tok, args...); err != nil {
		return Value{}, err
	}
	d := new(apd.Decimal)
	c, err := ctx.dec.Ceil(d, args[0].num)
	return arith(tok, d, c, err)
}

func fnFloor(ctx *Context, tok Token, args []Value) (Value, error) {
	if err := numbers(tok, args...); err != nil {
		return Value{}, err
	}
	d := new(apd.Decimal)
	c, err := ctx.dec.Floor(d, args[0].num)
	return arith(tok, d, c, err)
}

// fnFact computes the factorial of the integer part of its argument.
func fnFact(ctx *Context, tok Token, args []Value) (Value, error) {
	if err := numbers(tok, args...); err != nil {
		return Value{}, err
	}
	if args[0].num.Negative && !args[0].num.IsZero() {
		return Value{}, &EvaluationError{Token: tok, Msg: "Parameter to FACT must not be negative"}
	}
	var integ, frac apd.Decimal
	args[0].num.Modf(&integ, &frac)
	n, err := integ.Int64()
	if err != nil {
		return Value{}, &EvaluationError{Token: tok, Msg: err.Error(), Err: err}
	}
	d := apd.New(1, 0)
	var k apd.Decimal
	for i := int64(2); i <= n; i++ {
		k.SetInt64(i)
		// Overflow stops huge arguments long before the loop would.
		if _, err := ctx.dec.Mul(d, d, &k); err != nil {
			return Value{}, &EvaluationError{Token: tok, Msg: err.Error(), Err: err}
		}
	}
	return Number(d), nil
}

// fnIf returns one of its lazy arguments, which the evaluator then forces.
func fnIf(ctx *Context, tok Token, args []Value) (Value, error) {
	b, ok := args[0].AsBool()
	if !ok {
		return Value{}, UnsupportedType(tok)
	}
	if b {
		return args[1], nil
	}
	return args[2], nil
}

// logFunc creates a logarithm function named name.
func logFunc(name string, ten bool) CallFunc {
	return func(ctx *Context, tok Token, args []Value) (Value, error) {
		if err := numbers(tok, args...); err != nil {
			return Value{}, err
		}
		x := args[0].num
		if x.Sign() <= 0 {
			return Value{}, &EvaluationError{Token: tok, Msg: "Parameter to " + name + " must be positive and not zero"}
		}
		if x.Cmp(one) == 0 {
			return Number(apd.New(0, 0)), nil
		}
		mc := ctx.MathContext()
		f, err := toFloat(x, mc)
		if err != nil {
			return Value{}, &EvaluationError{Token: tok, Msg: err.Error(), Err: err}
		}
		r := bigfloat.Log(new(big.Float).SetPrec(mc.bits()), f)
		if ten {
			t := new(big.Float).SetPrec(mc.bits()).SetInt64(10)
			r.Quo(r, bigfloat.Log(t, t))
		}
		return fromFloat(ctx, tok, r)
	}
}

func fnExp(ctx *Context, tok Token, args []Value) (Value, error) {
	if err := numbers(tok, args...); err != nil {
		return Value{}, err
	}
	x := args[0].num
	if x.IsZero() {
		return Number(apd.New(1, 0)), nil
	}
	var m apd.Decimal
	m.Abs(x)
	if m.Cmp(maxExpArg) > 0 {
		if x.Negative {
			return Number(apd.New(0, 0)), nil
		}
		return Value{}, &EvaluationError{Token: tok, Msg: "Overflow"}
	}
	mc := ctx.MathContext()
	f, err := toFloat(x, mc)
	if err != nil {
		return Value{}, &EvaluationError{Token: tok, Msg: err.Error(), Err: err}
	}
	return fromFloat(ctx, tok, bigfloat.Exp(new(big.Float).SetPrec(mc.bits()), f))
}

// extremum creates MAX for sign 1 or MIN for sign -1.
func extremum(sign int) CallFunc {
	return func(ctx *Context, tok Token, args []Value) (Value, error) {
		if err := numbers(tok, args...); err != nil {
			return Value{}, err
		}
		r := args[0]
		for _, x := range args[1:] {
			if x.num.Cmp(r.num) == sign {
				r = x
			}
		}
		return r, nil
	}
}

func fnSum(ctx *Context, tok Token, args []Value) (Value, error) {
	if err := numbers(tok, args...); err != nil {
		return Value{}, err
	}
	d := new(apd.Decimal)
	for _, x := range args {
		if _, err := ctx.dec.Add(d, d, x.num); err != nil {
			return Value{}, &EvaluationError{Token: tok, Msg: err.Error(), Err: err}
		}
	}
	return Number(d), nil
}

func fnNot(ctx *Context, tok Token, args []Value) (Value, error) {
	b, ok := args[0].AsBool()
	if !ok {
		return Value{}, UnsupportedType(tok)
	}
	return Boolean(!b), nil
}

// fnRound rounds to a number of decimal places using the rounding of the
// math context. A negative scale rounds to tens, hundreds, and so on.
func fnRound(ctx *Context, tok Token, args []Value) (Value, error) {
	if err := numbers(tok, args...); err != nil {
		return Value{}, err
	}
	scale, err := args[1].num.Int64()
	if err != nil || scale > apd.MaxExponent || scale < -apd.MaxExponent {
		return Value{}, UnsupportedType(tok)
	}
	d := new(apd.Decimal)
	if err := rescale(ctx.dec, d, args[0].num, int32(scale)); err != nil {
		return Value{}, &EvaluationError{Token: tok, Msg: err.Error(), Err: err}
	}
	return Number(d), nil
}

func fnSqrt(ctx *Context, tok Token, args []Value) (Value, error) {
	if err := numbers(tok, args...); err != nil {
		return Value{}, err
	}
	if args[0].num.Sign() < 0 {
		return Value{}, &EvaluationError{Token: tok, Msg: "Parameter to SQRT must not be negative"}
	}
	d := new(apd.Decimal)
	c, err := ctx.dec.Sqrt(d, args[0].num)
	if err == nil {
		trimExact(ctx.dec, d, c, args[0].num.Exponent/2)
	}
	return arith(tok, d, c, err)
}

func fnRandom(ctx *Context, tok Token, args []Value) (Value, error) {
	return floatResult(ctx, tok, rand.Float64())
}

// floatFunc creates a function computed in float64.
func floatFunc(f func(float64) float64) CallFunc {
	return func(ctx *Context, tok Token, args []Value) (Value, error) {
		if err := numbers(tok, args...); err != nil {
			return Value{}, err
		}
		x, err := args[0].num.Float64()
		if err != nil {
			return Value{}, &EvaluationError{Token: tok, Msg: err.Error(), Err: err}
		}
		return floatResult(ctx, tok, f(x))
	}
}

func floatResult(ctx *Context, tok Token, f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, &EvaluationError{Token: tok, Msg: "Result is not a finite number"}
	}
	d, err := new(apd.Decimal).SetFloat64(f)
	if err != nil {
		return Value{}, &EvaluationError{Token: tok, Msg: err.Error(), Err: err}
	}
	c, err := ctx.dec.Round(d, d)
	return arith(tok, d, c, err)
}

func fnUpper(ctx *Context, tok Token, args []Value) (Value, error) {
	s, ok := text(args[0])
	if !ok {
		return Value{}, UnsupportedType(tok)
	}
	// A Caser holds state, so each call gets its own.
	return String(cases.Upper(language.Und).String(s)), nil
}
