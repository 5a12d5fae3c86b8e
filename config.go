package evalex

import (
	"maps"
	"sync"

	"github.com/cockroachdb/apd/v3"
)

// DecimalPlacesUnlimited disables rounding results to a fixed number of
// decimal places.
const DecimalPlacesUnlimited = -1

// DefaultMaxDepth is the default limit on expression nesting.
const DefaultMaxDepth = 1000

// Config holds the settings shared by expressions: arithmetic precision,
// operators and functions, constants, and syntax switches. A Config is
// immutable once created and may be shared between goroutines.
type Config struct {
	mc          MathContext
	places      int
	registry    *Registry
	constants   map[string]Value
	arrays      bool
	structures  bool
	implicitMul bool
	powerPrec   int
	maxDepth    int
	data        func() Data
}

// Option is an option used when creating a Config.
type Option interface {
	option()
}

type (
	mathopt   MathContext
	placesopt int
	regopt    struct{ r *Registry }
	opsopt    struct {
		pos Position
		ops map[string]Operator
	}
	fnsopt    map[string]Function
	constsopt map[string]Value
	arraysopt bool
	structopt bool
	implopt   bool
	powopt    int
	depthopt  int
	dataopt   func() Data
)

func (mathopt) option()   {}
func (placesopt) option() {}
func (regopt) option()    {}
func (opsopt) option()    {}
func (fnsopt) option()    {}
func (constsopt) option() {}
func (arraysopt) option() {}
func (structopt) option() {}
func (implopt) option()   {}
func (powopt) option()    {}
func (depthopt) option()  {}
func (dataopt) option()   {}

// Position is the position of an operator relative to its operands.
type Position int8

const (
	Prefix Position = iota
	Infix
	Postfix
)

// WithMathContext sets the precision and rounding of arithmetic.
func WithMathContext(mc MathContext) Option {
	if mc.Precision == 0 {
		panic("evalex: zero precision")
	}
	return mathopt(mc)
}

// WithDecimalPlaces rounds every number an expression produces to the given
// number of fractional digits, using the rounding of the math context.
// DecimalPlacesUnlimited disables it.
func WithDecimalPlaces(places int) Option {
	if places < DecimalPlacesUnlimited || places > apd.MaxExponent {
		panic("evalex: decimal places out of range")
	}
	return placesopt(places)
}

// WithRegistry replaces the standard operators and functions. The registry
// must not be modified afterward.
func WithRegistry(r *Registry) Option {
	return regopt{r}
}

// WithOperators adds or replaces operators at a position. The registry in
// use is copied first, so shared registries are never modified.
func WithOperators(pos Position, ops map[string]Operator) Option {
	return opsopt{pos, ops}
}

// WithFunctions adds or replaces functions. The registry in use is copied
// first, so shared registries are never modified.
func WithFunctions(fns map[string]Function) Option {
	return fnsopt(fns)
}

// WithConstants adds or replaces constants. Constants are bound in the data
// of every expression created with the Config, before any other variable.
func WithConstants(consts map[string]Value) Option {
	return constsopt(consts)
}

// WithArrays allows or forbids array index syntax.
func WithArrays(allow bool) Option {
	return arraysopt(allow)
}

// WithStructures allows or forbids structure member syntax.
func WithStructures(allow bool) Option {
	return structopt(allow)
}

// WithImplicitMultiplication allows or forbids implicit multiplication, as
// in 2x or (a)(b).
func WithImplicitMultiplication(allow bool) Option {
	return implopt(allow)
}

// WithPowerOfPrecedence sets the precedence of the ^ operator. Use
// PrecedencePowerHigher to make -2^2 evaluate to -4.
func WithPowerOfPrecedence(prec int) Option {
	return powopt(prec)
}

// WithMaxDepth limits how deeply expressions may nest. A limit of zero or
// less disables the check.
func WithMaxDepth(depth int) Option {
	return depthopt(depth)
}

// WithData sets the constructor of the variable storage for each expression.
func WithData(f func() Data) Option {
	if f == nil {
		panic("evalex: nil data constructor")
	}
	return dataopt(f)
}

// NewConfig creates a Config from the defaults and the given options.
// Options apply in order; later options override earlier ones.
func NewConfig(opts ...Option) *Config {
	cfg := Config{
		mc:          DefaultMathContext,
		places:      DecimalPlacesUnlimited,
		registry:    standardRegistry(),
		constants:   standardConstants(),
		arrays:      true,
		structures:  true,
		implicitMul: true,
		maxDepth:    DefaultMaxDepth,
		data:        NewMapData,
	}
	// The registry and constants are copied before the first change.
	regOwned, constsOwned := false, false
	mutable := func() *Registry {
		if !regOwned {
			cfg.registry = cfg.registry.Clone()
			regOwned = true
		}
		return cfg.registry
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		switch opt := opt.(type) {
		case mathopt:
			cfg.mc = MathContext(opt)
		case placesopt:
			cfg.places = int(opt)
		case regopt:
			cfg.registry = opt.r
			regOwned = false
		case opsopt:
			r := mutable()
			for name, op := range opt.ops {
				switch opt.pos {
				case Prefix:
					r.AddPrefix(name, op)
				case Infix:
					r.AddInfix(name, op)
				case Postfix:
					r.AddPostfix(name, op)
				default:
					panic("evalex: invalid operator position")
				}
			}
		case fnsopt:
			r := mutable()
			for name, fn := range opt {
				r.AddFunction(name, fn)
			}
		case constsopt:
			if !constsOwned {
				cfg.constants = maps.Clone(cfg.constants)
				constsOwned = true
			}
			for name, v := range opt {
				cfg.constants[key(name)] = v
			}
		case arraysopt:
			cfg.arrays = bool(opt)
		case structopt:
			cfg.structures = bool(opt)
		case implopt:
			cfg.implicitMul = bool(opt)
		case powopt:
			cfg.powerPrec = int(opt)
		case depthopt:
			cfg.maxDepth = int(opt)
		case dataopt:
			cfg.data = opt
		default:
			panic("evalex: unknown option type")
		}
	}
	if cfg.powerPrec != 0 {
		if op, ok := cfg.registry.Infix("^"); ok && op.Precedence != cfg.powerPrec {
			op.Precedence = cfg.powerPrec
			mutable().AddInfix("^", op)
		}
	}
	return &cfg
}

// DefaultConfig returns the shared default configuration.
var DefaultConfig = sync.OnceValue(func() *Config { return NewConfig() })

// MathContext returns the precision and rounding of arithmetic.
func (cfg *Config) MathContext() MathContext {
	return cfg.mc
}

// DecimalPlaces returns the number of fractional digits results are rounded
// to, or DecimalPlacesUnlimited.
func (cfg *Config) DecimalPlaces() int {
	return cfg.places
}

// Registry returns the operators and functions. It must not be modified.
func (cfg *Config) Registry() *Registry {
	return cfg.registry
}

// Constant looks up a constant.
func (cfg *Config) Constant(name string) (Value, bool) {
	v, ok := cfg.constants[key(name)]
	return v, ok
}

// MaxDepth returns the nesting limit, or a value not greater than zero if
// there is none.
func (cfg *Config) MaxDepth() int {
	return cfg.maxDepth
}

// StandardRegistry returns a new registry holding the standard operators
// and functions.
func StandardRegistry() *Registry {
	return standardRegistry().Clone()
}

var standardRegistry = sync.OnceValue(func() *Registry {
	r := NewRegistry()
	addOperators(r)
	addFunctions(r)
	return r
})

const (
	piText = "3.1415926535897932384626433832795028841971693993751058209749445923078164062862089986280348253421170679"
	eText  = "2.71828182845904523536028747135266249775724709369995957496696762772407663"
)

var standardConstants = sync.OnceValue(func() map[string]Value {
	pi, _, err := apd.NewFromString(piText)
	if err != nil {
		panic(err)
	}
	e, _, err := apd.NewFromString(eText)
	if err != nil {
		panic(err)
	}
	return map[string]Value{
		"TRUE":  Boolean(true),
		"FALSE": Boolean(false),
		"PI":    Number(pi),
		"E":     Number(e),
		"NULL":  Null(),
	}
})
