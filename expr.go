package evalex

import (
	"maps"
	"slices"
	"strings"
	"sync/atomic"
)

// Expression is an expression with its variable bindings. The syntax tree is
// parsed on first use and cached. Reading the tree and evaluating are safe
// to do concurrently, provided the variables are not changed meanwhile.
type Expression struct {
	src  string
	cfg  *Config
	data Data
	// err is the first error binding a variable.
	err error
	ast atomic.Pointer[Node]
}

// New creates an expression. Without options, it uses the default
// configuration.
func New(src string, opts ...Option) *Expression {
	if len(opts) == 0 {
		return NewWithConfig(src, DefaultConfig())
	}
	return NewWithConfig(src, NewConfig(opts...))
}

// NewWithConfig creates an expression with a shared configuration.
func NewWithConfig(src string, cfg *Config) *Expression {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	e := &Expression{src: src, cfg: cfg, data: cfg.data()}
	for name, v := range cfg.constants {
		e.data.Set(name, v)
	}
	return e
}

// Source returns the text of the expression.
func (e *Expression) Source() string {
	return e.src
}

// Config returns the expression's configuration.
func (e *Expression) Config() *Config {
	return e.cfg
}

// Data returns the expression's variables.
func (e *Expression) Data() Data {
	return e.data
}

// With binds a variable to a Go value converted with ValueOf under the
// expression's math context. Returns e for chaining. If the conversion
// fails, the next call to Evaluate or Validate reports it.
func (e *Expression) With(name string, x any) *Expression {
	v, err := ValueOf(x, e.cfg.mc)
	if err != nil {
		if e.err == nil {
			e.err = &BindError{Name: name, Err: err}
		}
		return e
	}
	e.data.Set(name, v)
	return e
}

// WithValues binds several variables as With does.
func (e *Expression) WithValues(vars map[string]any) *Expression {
	// Sorted so that the reported error does not depend on map order.
	for _, name := range slices.Sorted(maps.Keys(vars)) {
		e.With(name, vars[name])
	}
	return e
}

// Set binds a variable to a value. Returns e for chaining.
func (e *Expression) Set(name string, v Value) *Expression {
	e.data.Set(name, v)
	return e
}

// AST returns the syntax tree of the expression, parsing it if needed.
func (e *Expression) AST() (*Node, error) {
	if n := e.ast.Load(); n != nil {
		return n, nil
	}
	n, err := Parse(e.src, e.cfg)
	if err != nil {
		return nil, err
	}
	// A concurrent parse may have won. Both trees are equivalent.
	e.ast.CompareAndSwap(nil, n)
	return e.ast.Load(), nil
}

// Validate reports the first binding error or parse error, if any.
func (e *Expression) Validate() error {
	if e.err != nil {
		return e.err
	}
	_, err := e.AST()
	return err
}

// Evaluate evaluates the expression.
func (e *Expression) Evaluate() (Value, error) {
	if e.err != nil {
		return Value{}, e.err
	}
	n, err := e.AST()
	if err != nil {
		return Value{}, err
	}
	return e.EvaluateNode(n)
}

// EvaluateNode evaluates a syntax tree with the expression's configuration
// and variables. The tree may come from another expression with a
// compatible configuration.
func (e *Expression) EvaluateNode(n *Node) (Value, error) {
	ctx := newContext(e.cfg, e.data)
	v, err := ctx.eval(n)
	if err != nil {
		return Value{}, err
	}
	return ctx.force(v)
}

// CreateExpressionNode parses src with the expression's configuration. The
// result can be bound to a variable with Set(name, ExpressionNode(n)) so
// that the variable stands for the subexpression.
func (e *Expression) CreateExpressionNode(src string) (*Node, error) {
	return Parse(src, e.cfg)
}

// UsedVariables returns the names of the variables the expression refers
// to, in order of first use. Names differing only in case are reported once.
func (e *Expression) UsedVariables() ([]string, error) {
	n, err := e.AST()
	if err != nil {
		return nil, err
	}
	var names []string
	seen := make(map[string]bool)
	var visit func(*Node) bool
	visit = func(n *Node) bool {
		switch n.Token.Kind {
		case TokenVariable:
			if k := key(n.Token.Text); !seen[k] {
				seen[k] = true
				names = append(names, n.Token.Text)
			}
		case TokenStructSep:
			// The member name is not a variable.
			n.Children[0].Walk(visit)
			return false
		}
		return true
	}
	n.Walk(visit)
	return names, nil
}

// UndefinedVariables returns the used variables that have no binding.
func (e *Expression) UndefinedVariables() ([]string, error) {
	names, err := e.UsedVariables()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(names, func(name string) bool {
		_, ok := e.data.Get(name)
		return ok
	}), nil
}

// BindError is an error converting the value of a variable.
type BindError struct {
	// Name is the variable name.
	Name string
	// Err is the conversion error.
	Err error
}

func (err *BindError) Error() string {
	var b strings.Builder
	b.WriteString("variable ")
	b.WriteString(err.Name)
	b.WriteString(": ")
	b.WriteString(err.Err.Error())
	return b.String()
}

func (err *BindError) Unwrap() error {
	return err.Err
}
