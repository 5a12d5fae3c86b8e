package evalex

import (
	"math/big"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/zephyrtronium/bigfloat"
)

// addOperators adds the standard operators to r.
func addOperators(r *Registry) {
	r.AddPrefix("+", Operator{Precedence: PrecedenceUnary, Fn: Unary(opPlus)}).
		AddPrefix("-", Operator{Precedence: PrecedenceUnary, Fn: Unary(opNeg)}).
		AddPrefix("!", Operator{Precedence: PrecedenceUnary, Fn: Unary(opNot)})

	r.AddInfix("+", Operator{Precedence: PrecedenceAdditive, Fn: Binary(opAdd)}).
		AddInfix("-", Operator{Precedence: PrecedenceAdditive, Fn: Binary(opSub)}).
		AddInfix("*", Operator{Precedence: PrecedenceMultiplicative, Fn: Binary(opMul)}).
		AddInfix("/", Operator{Precedence: PrecedenceMultiplicative, Fn: Binary(opQuo)}).
		AddInfix("%", Operator{Precedence: PrecedenceMultiplicative, Fn: Binary(opRem)}).
		AddInfix("^", Operator{Precedence: PrecedencePower, RightAssoc: true, Fn: Binary(opPow)})

	eq := Operator{Precedence: PrecedenceComparison, Fn: Binary(opEq)}
	ne := Operator{Precedence: PrecedenceComparison, Fn: Binary(opNe)}
	r.AddInfix("=", eq).AddInfix("==", eq).
		AddInfix("!=", ne).AddInfix("<>", ne).
		AddInfix(">", Operator{Precedence: PrecedenceComparison, Fn: compare(func(c int) bool { return c > 0 })}).
		AddInfix(">=", Operator{Precedence: PrecedenceComparison, Fn: compare(func(c int) bool { return c >= 0 })}).
		AddInfix("<", Operator{Precedence: PrecedenceComparison, Fn: compare(func(c int) bool { return c < 0 })}).
		AddInfix("<=", Operator{Precedence: PrecedenceComparison, Fn: compare(func(c int) bool { return c <= 0 })})

	r.AddInfix("&&", Operator{Precedence: PrecedenceAnd, Fn: Binary(opAnd)}).
		AddInfix("||", Operator{Precedence: PrecedenceOr, Fn: Binary(opOr)})
}

// arith converts the outcome of a decimal operation to a value.
func arith(tok Token, d *apd.Decimal, _ apd.Condition, err error) (Value, error) {
	if err != nil {
		return Value{}, &EvaluationError{Token: tok, Msg: err.Error(), Err: err}
	}
	return Number(d), nil
}

// numbers checks that all operands are numbers.
func numbers(tok Token, xs ...Value) error {
	for _, x := range xs {
		if x.kind != KindNumber {
			return UnsupportedType(tok)
		}
	}
	return nil
}

func opPlus(ctx *Context, tok Token, x Value) (Value, error) {
	if err := numbers(tok, x); err != nil {
		return Value{}, err
	}
	d := new(apd.Decimal)
	c, err := ctx.dec.Round(d, x.num)
	return arith(tok, d, c, err)
}

func opNeg(ctx *Context, tok Token, x Value) (Value, error) {
	if err := numbers(tok, x); err != nil {
		return Value{}, err
	}
	d := new(apd.Decimal)
	c, err := ctx.dec.Neg(d, x.num)
	return arith(tok, d, c, err)
}

func opNot(ctx *Context, tok Token, x Value) (Value, error) {
	b, ok := x.AsBool()
	if !ok {
		return Value{}, UnsupportedType(tok)
	}
	return Boolean(!b), nil
}

func opAdd(ctx *Context, tok Token, x, y Value) (Value, error) {
	if x.kind == KindNumber && y.kind == KindNumber {
		d := new(apd.Decimal)
		c, err := ctx.dec.Add(d, x.num, y.num)
		return arith(tok, d, c, err)
	}
	if x.kind == KindString || y.kind == KindString {
		a, ok := text(x)
		if !ok {
			return Value{}, UnsupportedType(tok)
		}
		b, ok := text(y)
		if !ok {
			return Value{}, UnsupportedType(tok)
		}
		return String(a + b), nil
	}
	return Value{}, UnsupportedType(tok)
}

// text converts a string, number, or boolean to its text. Other kinds
// have no text form in expressions.
func text(x Value) (string, bool) {
	switch x.kind {
	case KindString, KindNumber, KindBoolean:
		return x.String(), true
	}
	return "", false
}

func opSub(ctx *Context, tok Token, x, y Value) (Value, error) {
	if err := numbers(tok, x, y); err != nil {
		return Value{}, err
	}
	d := new(apd.Decimal)
	c, err := ctx.dec.Sub(d, x.num, y.num)
	return arith(tok, d, c, err)
}

func opMul(ctx *Context, tok Token, x, y Value) (Value, error) {
	if err := numbers(tok, x, y); err != nil {
		return Value{}, err
	}
	d := new(apd.Decimal)
	c, err := ctx.dec.Mul(d, x.num, y.num)
	return arith(tok, d, c, err)
}

func opQuo(ctx *Context, tok Token, x, y Value) (Value, error) {
	if err := numbers(tok, x, y); err != nil {
		return Value{}, err
	}
	if y.num.IsZero() {
		return Value{}, &EvaluationError{Token: tok, Msg: msgDivisionByZero}
	}
	d := new(apd.Decimal)
	c, err := ctx.dec.Quo(d, x.num, y.num)
	if err == nil {
		trimExact(ctx.dec, d, c, x.num.Exponent-y.num.Exponent)
	}
	return arith(tok, d, c, err)
}

func opRem(ctx *Context, tok Token, x, y Value) (Value, error) {
	if err := numbers(tok, x, y); err != nil {
		return Value{}, err
	}
	if y.num.IsZero() {
		return Value{}, &EvaluationError{Token: tok, Msg: msgDivisionByZero}
	}
	d := new(apd.Decimal)
	c, err := ctx.dec.Rem(d, x.num, y.num)
	return arith(tok, d, c, err)
}

func opPow(ctx *Context, tok Token, x, y Value) (Value, error) {
	if err := numbers(tok, x, y); err != nil {
		return Value{}, err
	}
	var integ, frac apd.Decimal
	y.num.Modf(&integ, &frac)
	if frac.IsZero() {
		if y.num.IsZero() {
			return Number(apd.New(1, 0)), nil
		}
		if x.num.IsZero() && y.num.Negative {
			return Value{}, &EvaluationError{Token: tok, Msg: msgDivisionByZero}
		}
		d := new(apd.Decimal)
		c, err := ctx.dec.Pow(d, x.num, y.num)
		if err == nil && y.num.Negative {
			trimExact(ctx.dec, d, c, 0)
		}
		return arith(tok, d, c, err)
	}
	switch x.num.Sign() {
	case -1:
		return Value{}, &EvaluationError{Token: tok, Msg: "Negative base with fractional exponent"}
	case 0:
		if y.num.Negative {
			return Value{}, &EvaluationError{Token: tok, Msg: msgDivisionByZero}
		}
		return Number(apd.New(0, 0)), nil
	}
	mc := ctx.MathContext()
	b, err := toFloat(x.num, mc)
	if err != nil {
		return Value{}, &EvaluationError{Token: tok, Msg: err.Error(), Err: err}
	}
	e, err := toFloat(y.num, mc)
	if err != nil {
		return Value{}, &EvaluationError{Token: tok, Msg: err.Error(), Err: err}
	}
	r := bigfloat.Pow(new(big.Float).SetPrec(mc.bits()), b, e)
	return fromFloat(ctx, tok, r)
}

func opEq(ctx *Context, tok Token, x, y Value) (Value, error) {
	return Boolean(x.Equal(y)), nil
}

func opNe(ctx *Context, tok Token, x, y Value) (Value, error) {
	return Boolean(!x.Equal(y)), nil
}

// compare creates an ordering operator. Numbers, strings, and booleans
// compare with values of the same kind; false orders before true.
func compare(pred func(int) bool) Binary {
	return func(ctx *Context, tok Token, x, y Value) (Value, error) {
		if x.kind != y.kind {
			return Value{}, UnsupportedType(tok)
		}
		var c int
		switch x.kind {
		case KindNumber:
			c = x.num.Cmp(y.num)
		case KindString:
			c = strings.Compare(x.s, y.s)
		case KindBoolean:
			switch {
			case x.b == y.b:
				c = 0
			case y.b:
				c = -1
			default:
				c = 1
			}
		default:
			return Value{}, UnsupportedType(tok)
		}
		return Boolean(pred(c)), nil
	}
}

// bools converts both operands of a logical operator.
func bools(tok Token, x, y Value) (a, b bool, err error) {
	a, ok := x.AsBool()
	if !ok {
		return false, false, UnsupportedType(tok)
	}
	b, ok = y.AsBool()
	if !ok {
		return false, false, UnsupportedType(tok)
	}
	return a, b, nil
}

func opAnd(ctx *Context, tok Token, x, y Value) (Value, error) {
	a, b, err := bools(tok, x, y)
	if err != nil {
		return Value{}, err
	}
	return Boolean(a && b), nil
}

func opOr(ctx *Context, tok Token, x, y Value) (Value, error) {
	a, b, err := bools(tok, x, y)
	if err != nil {
		return Value{}, err
	}
	return Boolean(a || b), nil
}
