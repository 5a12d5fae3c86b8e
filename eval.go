package evalex

import (
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// Context is the state of one evaluation of an expression. Operators and
// functions receive it to find the arithmetic settings in effect. It is not
// safe to use a Context concurrently.
type Context struct {
	cfg  *Config
	data Data
	dec  *apd.Context
	// nums caches parsed number literals.
	nums  map[string]*apd.Decimal
	depth int
}

func newContext(cfg *Config, data Data) *Context {
	return &Context{
		cfg:  cfg,
		data: data,
		dec:  cfg.mc.Decimal(),
		nums: make(map[string]*apd.Decimal),
	}
}

// MathContext returns the precision and rounding of arithmetic.
func (ctx *Context) MathContext() MathContext {
	return ctx.cfg.mc
}

// Decimal returns the decimal context for arithmetic. It must not be
// modified.
func (ctx *Context) Decimal() *apd.Context {
	return ctx.dec
}

// Config returns the configuration of the expression being evaluated.
func (ctx *Context) Config() *Config {
	return ctx.cfg
}

// Data returns the variables of the expression being evaluated.
func (ctx *Context) Data() Data {
	return ctx.data
}

// num gets a possibly cached number from its text.
func (ctx *Context) num(tok Token) (*apd.Decimal, error) {
	if r := ctx.nums[tok.Text]; r != nil {
		return r, nil
	}
	r, _, err := ctx.dec.NewFromString(tok.Text)
	if err != nil {
		return nil, &EvaluationError{Token: tok, Msg: "Illegal number format '" + tok.Text + "'", Err: err}
	}
	ctx.nums[tok.Text] = r
	return r, nil
}

// eval evaluates a node and applies the decimal places setting to its
// result.
func (ctx *Context) eval(n *Node) (Value, error) {
	ctx.depth++
	defer func() { ctx.depth-- }()
	if lim := ctx.cfg.maxDepth; lim > 0 && ctx.depth > lim {
		return Value{}, &DepthError{Col: n.Token.Pos, Limit: lim}
	}
	v, err := ctx.node(n)
	if err != nil {
		return Value{}, err
	}
	return ctx.round(n.Token, v)
}

// round rescales a number to the configured decimal places. Other values
// are returned unchanged.
func (ctx *Context) round(tok Token, v Value) (Value, error) {
	if ctx.cfg.places < 0 || v.kind != KindNumber {
		return v, nil
	}
	d := new(apd.Decimal)
	if err := rescale(ctx.dec, d, v.num, int32(ctx.cfg.places)); err != nil {
		return Value{}, &EvaluationError{Token: tok, Msg: err.Error(), Err: err}
	}
	return Number(d), nil
}

func (ctx *Context) node(n *Node) (Value, error) {
	tok := n.Token
	switch tok.Kind {
	case TokenNumber:
		d, err := ctx.num(tok)
		if err != nil {
			return Value{}, err
		}
		return Number(d), nil
	case TokenString:
		return String(tok.Text), nil
	case TokenVariable:
		v, ok := ctx.data.Get(tok.Text)
		if !ok {
			return Value{}, &EvaluationError{Token: tok, Msg: "Undefined variable '" + tok.Text + "'"}
		}
		return ctx.force(v)
	case TokenPrefix, TokenPostfix:
		op, err := ctx.operator(tok)
		if err != nil {
			return Value{}, err
		}
		x, err := ctx.eval(n.Children[0])
		if err != nil {
			return Value{}, err
		}
		return op.Fn.Operate(ctx, tok, []Value{x})
	case TokenInfix:
		op, err := ctx.operator(tok)
		if err != nil {
			return Value{}, err
		}
		x, err := ctx.eval(n.Children[0])
		if err != nil {
			return Value{}, err
		}
		y, err := ctx.eval(n.Children[1])
		if err != nil {
			return Value{}, err
		}
		return op.Fn.Operate(ctx, tok, []Value{x, y})
	case TokenArrayIndex:
		return ctx.index(n)
	case TokenStructSep:
		x, err := ctx.eval(n.Children[0])
		if err != nil {
			return Value{}, err
		}
		if x.kind != KindStructure {
			return Value{}, UnsupportedType(tok)
		}
		f, ok := x.Field(n.Children[1].Token.Text)
		if !ok {
			return Value{}, UnsupportedType(tok)
		}
		return f, nil
	case TokenFunction:
		return ctx.call(n)
	default:
		return Value{}, &EvaluationError{Token: tok, Msg: "Unexpected evaluation token: " + tok.String()}
	}
}

// operator finds the implementation of an operator token.
func (ctx *Context) operator(tok Token) (Operator, error) {
	if tok.Op != nil {
		return *tok.Op, nil
	}
	var op Operator
	var ok bool
	switch tok.Kind {
	case TokenPrefix:
		op, ok = ctx.cfg.registry.Prefix(tok.Text)
	case TokenInfix:
		op, ok = ctx.cfg.registry.Infix(tok.Text)
	case TokenPostfix:
		op, ok = ctx.cfg.registry.Postfix(tok.Text)
	}
	if !ok {
		return Operator{}, &EvaluationError{Token: tok, Msg: "Undefined operator '" + tok.Text + "'"}
	}
	return op, nil
}

func (ctx *Context) index(n *Node) (Value, error) {
	tok := n.Token
	x, err := ctx.eval(n.Children[0])
	if err != nil {
		return Value{}, err
	}
	i, err := ctx.eval(n.Children[1])
	if err != nil {
		return Value{}, err
	}
	if x.kind != KindArray || i.kind != KindNumber {
		return Value{}, UnsupportedType(tok)
	}
	k, err := i.num.Int64()
	if err != nil {
		return Value{}, UnsupportedType(tok)
	}
	if k < 0 || k >= int64(len(x.arr)) {
		return Value{}, &EvaluationError{Token: tok, Msg: "Array index " + strconv.FormatInt(k, 10) + " out of range"}
	}
	return x.arr[k], nil
}

func (ctx *Context) call(n *Node) (Value, error) {
	tok := n.Token
	fn := tok.Fn
	if fn == nil {
		var ok bool
		fn, ok = ctx.cfg.registry.Function(tok.Text)
		if !ok {
			return Value{}, &EvaluationError{Token: tok, Msg: "Undefined function '" + tok.Text + "'"}
		}
	}
	args := make([]Value, len(n.Children))
	for i, c := range n.Children {
		if lazyParam(fn, i) {
			args[i] = lazyValue(c, ctx)
			continue
		}
		v, err := ctx.eval(c)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	r, err := fn.Call(ctx, tok, args)
	if err != nil {
		return Value{}, err
	}
	return ctx.force(r)
}

// force evaluates a lazy value. Expression nodes bound as variables have no
// context of their own and evaluate in ctx.
func (ctx *Context) force(v Value) (Value, error) {
	if v.kind != KindLazy {
		return v, nil
	}
	if v.lazy.ctx == nil {
		return ctx.eval(v.lazy.node)
	}
	return v.Force()
}
