package evalex

import (
	"maps"
	"slices"
	"strings"
	"unicode/utf8"
)

// Operator precedences of the standard operators. Higher binds tighter.
const (
	PrecedenceOr             = 2
	PrecedenceAnd            = 4
	PrecedenceComparison     = 10
	PrecedenceAdditive       = 20
	PrecedenceMultiplicative = 30
	PrecedencePower          = 40
	PrecedenceUnary          = 60
	// PrecedencePowerHigher makes exponentiation bind tighter than unary
	// operators, so -2^2 is -4.
	PrecedencePowerHigher = 80
	PrecedencePostfix     = 100
)

// Operator is an operator definition. The same Operator may be registered
// under several names and in several positions.
type Operator struct {
	// Precedence determines how tightly the operator binds.
	Precedence int
	// RightAssoc makes a chain of operators with equal precedence group from
	// right to left. Only meaningful for infix operators.
	RightAssoc bool
	// Fn evaluates the operator.
	Fn OperatorFunc
}

// OperatorFunc evaluates an operator. Operators always receive evaluated
// operands: one for prefix and postfix operators, two for infix operators.
type OperatorFunc interface {
	Operate(ctx *Context, tok Token, operands []Value) (Value, error)
}

// Unary adapts a function of one operand into an OperatorFunc.
type Unary func(ctx *Context, tok Token, x Value) (Value, error)

func (f Unary) Operate(ctx *Context, tok Token, operands []Value) (Value, error) {
	return f(ctx, tok, operands[0])
}

// Binary adapts a function of two operands into an OperatorFunc.
type Binary func(ctx *Context, tok Token, x, y Value) (Value, error)

func (f Binary) Operate(ctx *Context, tok Token, operands []Value) (Value, error) {
	return f(ctx, tok, operands[0], operands[1])
}

// Param describes one parameter of a function.
type Param struct {
	Name string
	// Vararg marks the last parameter as accepting one or more arguments.
	Vararg bool
	// Lazy passes the argument unevaluated, as a lazy Value which the
	// function forces only if it needs it.
	Lazy bool
}

// Function is a function that can be called from expressions.
type Function interface {
	// Params describes the parameters. Only the last parameter may be
	// variadic; a function with no parameters takes no arguments.
	Params() []Param
	// Call evaluates the function. args has a length that the parameter
	// list accepts, and arguments in lazy positions are lazy Values.
	Call(ctx *Context, tok Token, args []Value) (Value, error)
}

// CallFunc is the signature of a function body.
type CallFunc func(ctx *Context, tok Token, args []Value) (Value, error)

type function struct {
	params []Param
	call   CallFunc
}

func (f *function) Params() []Param { return f.params }

func (f *function) Call(ctx *Context, tok Token, args []Value) (Value, error) {
	return f.call(ctx, tok, args)
}

// NewFunction creates a Function from a body and its parameter list.
func NewFunction(call CallFunc, params ...Param) Function {
	for i, p := range params {
		if p.Vararg && i != len(params)-1 {
			panic("evalex: variadic parameter " + p.Name + " is not last")
		}
	}
	return &function{params: params, call: call}
}

// canCall reports whether fn accepts n arguments.
func canCall(fn Function, n int) bool {
	p := fn.Params()
	if len(p) > 0 && p[len(p)-1].Vararg {
		return n >= len(p)
	}
	return n == len(p)
}

// lazyParam reports whether the argument at index i of a call to fn is lazy.
// Arguments past the last parameter share the last parameter's laziness.
func lazyParam(fn Function, i int) bool {
	p := fn.Params()
	if len(p) == 0 {
		return false
	}
	if i >= len(p) {
		i = len(p) - 1
	}
	return p[i].Lazy
}

// Registry holds named operators and functions. Names are case-insensitive.
//
// A Registry is safe for concurrent lookups, but adding entries must not
// happen concurrently with any other use.
type Registry struct {
	prefix  map[string]Operator
	infix   map[string]Operator
	postfix map[string]Operator
	funcs   map[string]Function
	// symlen is the length in runes of the longest operator name.
	symlen int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		prefix:  make(map[string]Operator),
		infix:   make(map[string]Operator),
		postfix: make(map[string]Operator),
		funcs:   make(map[string]Function),
	}
}

func key(name string) string {
	return strings.ToUpper(name)
}

func (r *Registry) addop(m map[string]Operator, name string, op Operator) *Registry {
	if op.Fn == nil {
		panic("evalex: operator " + name + " has no implementation")
	}
	m[key(name)] = op
	if n := utf8.RuneCountInString(name); n > r.symlen {
		r.symlen = n
	}
	return r
}

// AddPrefix adds or replaces a prefix operator. Returns r for chaining.
func (r *Registry) AddPrefix(name string, op Operator) *Registry {
	return r.addop(r.prefix, name, op)
}

// AddInfix adds or replaces an infix operator. Returns r for chaining.
func (r *Registry) AddInfix(name string, op Operator) *Registry {
	return r.addop(r.infix, name, op)
}

// AddPostfix adds or replaces a postfix operator. Returns r for chaining.
func (r *Registry) AddPostfix(name string, op Operator) *Registry {
	return r.addop(r.postfix, name, op)
}

// AddFunction adds or replaces a function. Returns r for chaining.
func (r *Registry) AddFunction(name string, fn Function) *Registry {
	if fn == nil {
		panic("evalex: nil function " + name)
	}
	r.funcs[key(name)] = fn
	return r
}

// Prefix looks up a prefix operator.
func (r *Registry) Prefix(name string) (Operator, bool) {
	op, ok := r.prefix[key(name)]
	return op, ok
}

// Infix looks up an infix operator.
func (r *Registry) Infix(name string) (Operator, bool) {
	op, ok := r.infix[key(name)]
	return op, ok
}

// Postfix looks up a postfix operator.
func (r *Registry) Postfix(name string) (Operator, bool) {
	op, ok := r.postfix[key(name)]
	return op, ok
}

// Function looks up a function.
func (r *Registry) Function(name string) (Function, bool) {
	fn, ok := r.funcs[key(name)]
	return fn, ok
}

func (r *Registry) HasPrefix(name string) bool {
	_, ok := r.prefix[key(name)]
	return ok
}

func (r *Registry) HasInfix(name string) bool {
	_, ok := r.infix[key(name)]
	return ok
}

func (r *Registry) HasPostfix(name string) bool {
	_, ok := r.postfix[key(name)]
	return ok
}

func (r *Registry) HasFunction(name string) bool {
	_, ok := r.funcs[key(name)]
	return ok
}

// hasOperator reports whether name is an operator in any position.
func (r *Registry) hasOperator(name string) bool {
	return r.HasPrefix(name) || r.HasInfix(name) || r.HasPostfix(name)
}

// Symbols returns the operator symbols in any position, upper-cased and
// sorted.
func (r *Registry) Symbols() []string {
	m := maps.Clone(r.prefix)
	maps.Copy(m, r.infix)
	maps.Copy(m, r.postfix)
	return slices.Sorted(maps.Keys(m))
}

// FunctionNames returns the names of all functions, upper-cased and sorted.
func (r *Registry) FunctionNames() []string {
	return slices.Sorted(maps.Keys(r.funcs))
}

// Clone returns a copy of r that can be modified independently.
func (r *Registry) Clone() *Registry {
	return &Registry{
		prefix:  maps.Clone(r.prefix),
		infix:   maps.Clone(r.infix),
		postfix: maps.Clone(r.postfix),
		funcs:   maps.Clone(r.funcs),
		symlen:  r.symlen,
	}
}
