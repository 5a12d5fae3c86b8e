package evalex

import (
	"math"
	"math/big"

	"github.com/cockroachdb/apd/v3"
)

// MathContext describes how decimal arithmetic is performed: the number of
// significant digits kept in each result and the rounding used to get there.
type MathContext struct {
	// Precision is the number of significant digits. It must be positive.
	Precision uint32
	// Rounding is the rounding mode, e.g. apd.RoundHalfEven.
	Rounding apd.Rounder
}

// DefaultMathContext has a precision of 68 digits and rounds half to even.
var DefaultMathContext = MathContext{Precision: 68, Rounding: apd.RoundHalfEven}

// Decimal creates a decimal context for arithmetic under mc. Conditions
// that make a result meaningless, like division by zero, are trapped and
// reported as errors.
func (mc MathContext) Decimal() *apd.Context {
	c := apd.BaseContext.WithPrecision(mc.Precision)
	c.Rounding = mc.Rounding
	if c.Rounding == "" {
		c.Rounding = apd.RoundHalfEven
	}
	return c
}

// bits is the binary precision needed to carry mc.Precision decimal digits
// plus guard bits through a big.Float computation.
func (mc MathContext) bits() uint {
	return uint(math.Ceil(float64(mc.Precision)*math.Log2(10))) + 64
}

// rescale sets d to x with exactly places fractional digits, rounding with
// c.Rounding. Unlike Quantize under c itself, the result may need more
// significant digits than c.Precision, so the context is widened as needed.
func rescale(c *apd.Context, d, x *apd.Decimal, places int32) error {
	need := x.NumDigits() + int64(x.Exponent) + int64(places) + 1
	if need < 1 {
		need = 1
	}
	w := *c
	if uint32(need) > w.Precision {
		w.Precision = uint32(need)
	}
	_, err := w.Quantize(d, x, -places)
	return err
}

// toFloat converts a finite decimal to a binary float carrying the
// precision of mc.
func toFloat(d *apd.Decimal, mc MathContext) (*big.Float, error) {
	f, _, err := new(big.Float).SetPrec(mc.bits()).Parse(d.Text('e'), 10)
	return f, err
}

// fromFloat rounds a binary float back into a number under the precision of
// ctx.
func fromFloat(ctx *Context, tok Token, f *big.Float) (Value, error) {
	if f.IsInf() {
		return Value{}, &EvaluationError{Token: tok, Msg: "Overflow"}
	}
	// A few guard digits so that the decimal rounding decides the result.
	s := f.Text('e', int(ctx.dec.Precision)+4)
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Value{}, &EvaluationError{Token: tok, Msg: err.Error(), Err: err}
	}
	c, err := ctx.dec.Round(d, d)
	return arith(tok, d, c, err)
}

// trimExact removes the trailing zeros that an exact result carries from
// working precision, down to the exponent ideal. Inexact results keep every
// digit.
func trimExact(c *apd.Context, d *apd.Decimal, cond apd.Condition, ideal int32) {
	if cond.Inexact() || d.Form != apd.Finite || d.Exponent >= ideal {
		return
	}
	d.Reduce(d)
	if d.Exponent > ideal {
		var t apd.Decimal
		if _, err := c.Quantize(&t, d, ideal); err == nil {
			d.Set(&t)
		}
	}
}
