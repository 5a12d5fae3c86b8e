package evalex

import (
	"fmt"
	"math/big"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Kind is the variant of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBoolean
	KindArray
	KindStructure
	// KindLazy is an unevaluated expression node. Lazy function parameters
	// and expression nodes bound as variables have this kind.
	KindLazy
)

var kindNames = [...]string{
	KindNull:      "NULL",
	KindNumber:    "NUMBER",
	KindString:    "STRING",
	KindBoolean:   "BOOLEAN",
	KindArray:     "ARRAY",
	KindStructure: "STRUCTURE",
	KindLazy:      "EXPRESSION_NODE",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is the result of evaluating an expression or any part of one. The
// zero Value is null.
//
// Values are immutable. In particular, the decimal of a number value must
// not be modified, since the same decimal may be shared by many values.
type Value struct {
	kind Kind
	b    bool
	s    string
	num  *apd.Decimal
	arr  []Value
	st   map[string]Value
	lazy *thunk
}

// thunk is a deferred evaluation of a node. A nil ctx means the node is
// evaluated in whatever context reads it.
type thunk struct {
	node *Node
	ctx  *Context
}

// Null returns the null value.
func Null() Value {
	return Value{}
}

// Number returns a number value. d must not be modified afterward.
func Number(d *apd.Decimal) Value {
	if d == nil {
		panic("evalex: nil decimal")
	}
	return Value{kind: KindNumber, num: d}
}

// NumberFromInt returns a number value holding n.
func NumberFromInt(n int64) Value {
	return Number(apd.New(n, 0))
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Boolean returns a boolean value.
func Boolean(b bool) Value {
	return Value{kind: KindBoolean, b: b}
}

// Array returns an array value holding elems.
func Array(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: KindArray, arr: elems}
}

// Structure returns a structure value with the given fields.
func Structure(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindStructure, st: fields}
}

// ExpressionNode returns a lazy value which evaluates n wherever it is read.
// Binding one to a variable makes the variable an alias for a subexpression.
func ExpressionNode(n *Node) Value {
	if n == nil {
		panic("evalex: nil node")
	}
	return Value{kind: KindLazy, lazy: &thunk{node: n}}
}

// lazyValue binds n to the evaluation context that will force it.
func lazyValue(n *Node, ctx *Context) Value {
	return Value{kind: KindLazy, lazy: &thunk{node: n, ctx: ctx}}
}

// Kind returns the variant of v.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool      { return v.kind == KindNull }
func (v Value) IsNumber() bool    { return v.kind == KindNumber }
func (v Value) IsString() bool    { return v.kind == KindString }
func (v Value) IsBoolean() bool   { return v.kind == KindBoolean }
func (v Value) IsArray() bool     { return v.kind == KindArray }
func (v Value) IsStructure() bool { return v.kind == KindStructure }
func (v Value) IsLazy() bool      { return v.kind == KindLazy }

// must panics if v is not of kind k. Reading the wrong variant is a bug in
// the operator or function doing it, not an input error.
func (v Value) must(k Kind) {
	if v.kind != k {
		panic("evalex: " + k.String() + " accessor on " + v.kind.String() + " value")
	}
}

// Decimal returns the decimal of a number value. The result must not be
// modified. Panics if v is not a number.
func (v Value) Decimal() *apd.Decimal {
	v.must(KindNumber)
	return v.num
}

// Str returns the text of a string value. Panics if v is not a string.
func (v Value) Str() string {
	v.must(KindString)
	return v.s
}

// Bool returns the truth of a boolean value. Panics if v is not a boolean.
func (v Value) Bool() bool {
	v.must(KindBoolean)
	return v.b
}

// Elems returns the elements of an array value. Panics if v is not an array.
func (v Value) Elems() []Value {
	v.must(KindArray)
	return v.arr
}

// Fields returns the fields of a structure value. The map must not be
// modified. Panics if v is not a structure.
func (v Value) Fields() map[string]Value {
	v.must(KindStructure)
	return v.st
}

// Field looks up a structure field. An exact match wins; otherwise names
// are compared case-insensitively. Panics if v is not a structure.
func (v Value) Field(name string) (Value, bool) {
	v.must(KindStructure)
	if f, ok := v.st[name]; ok {
		return f, true
	}
	for k, f := range v.st {
		if strings.EqualFold(k, name) {
			return f, true
		}
	}
	return Value{}, false
}

// Node returns the expression node of a lazy value. Panics if v is not lazy.
func (v Value) Node() *Node {
	v.must(KindLazy)
	return v.lazy.node
}

// Force evaluates a lazy value. Other values are returned as they are.
// Lazy function arguments carry the context they were created in;
// expression nodes bound as variables are forced by the evaluator.
func (v Value) Force() (Value, error) {
	if v.kind != KindLazy {
		return v, nil
	}
	if v.lazy.ctx == nil {
		return Value{}, &EvaluationError{Token: v.lazy.node.Token, Msg: "Expression node has no evaluation context"}
	}
	return v.lazy.ctx.eval(v.lazy.node)
}

// AsBool converts v to a boolean. Booleans convert as themselves, numbers
// are true when non-zero, and the strings "true" and "false" convert to the
// corresponding boolean regardless of case. ok is false for anything else.
func (v Value) AsBool() (b, ok bool) {
	switch v.kind {
	case KindBoolean:
		return v.b, true
	case KindNumber:
		return !v.num.IsZero(), true
	case KindString:
		switch {
		case strings.EqualFold(v.s, "true"):
			return true, true
		case strings.EqualFold(v.s, "false"):
			return false, true
		}
	}
	return false, false
}

// AsDecimal converts v to a decimal. Numbers convert as themselves,
// booleans to 1 or 0, and strings holding a decimal literal are parsed
// under mc. ok is false for anything else.
func (v Value) AsDecimal(mc MathContext) (d *apd.Decimal, ok bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindBoolean:
		if v.b {
			return apd.New(1, 0), true
		}
		return apd.New(0, 0), true
	case KindString:
		d, _, err := mc.Decimal().NewFromString(strings.TrimSpace(v.s))
		if err != nil || d.Form != apd.Finite {
			return nil, false
		}
		return d, true
	}
	return nil, false
}

// String formats v. Numbers use plain notation, strings are unquoted,
// arrays and structures use brackets and braces with structure fields
// sorted by name.
func (v Value) String() string {
	var b strings.Builder
	v.format(&b, false)
	return b.String()
}

func (v Value) format(b *strings.Builder, quote bool) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindNumber:
		b.WriteString(v.num.Text('f'))
	case KindString:
		if quote {
			b.WriteString(strconv.Quote(v.s))
		} else {
			b.WriteString(v.s)
		}
	case KindBoolean:
		b.WriteString(strconv.FormatBool(v.b))
	case KindArray:
		b.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				b.WriteString(", ")
			}
			e.format(b, true)
		}
		b.WriteByte(']')
	case KindStructure:
		keys := make([]string, 0, len(v.st))
		for k := range v.st {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			v.st[k].format(b, true)
		}
		b.WriteByte('}')
	case KindLazy:
		b.WriteString(v.lazy.node.String())
	default:
		panic("evalex: invalid value kind " + v.kind.String())
	}
}

// Equal reports whether v and w are the same kind and hold equal payloads.
// Numbers compare by numeric value, so 2.0 equals 2. Lazy values are equal
// only if they are the same thunk.
func (v Value) Equal(w Value) bool {
	if v.kind != w.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindNumber:
		return v.num.Cmp(w.num) == 0
	case KindString:
		return v.s == w.s
	case KindBoolean:
		return v.b == w.b
	case KindArray:
		return slices.EqualFunc(v.arr, w.arr, Value.Equal)
	case KindStructure:
		if len(v.st) != len(w.st) {
			return false
		}
		for k, x := range v.st {
			y, ok := w.st[k]
			if !ok || !x.Equal(y) {
				return false
			}
		}
		return true
	case KindLazy:
		return v.lazy == w.lazy
	}
	return false
}

// ValueOf converts a Go value to a Value. Booleans, strings, and numbers of
// any built-in type, *apd.Decimal, *big.Int and *big.Float convert to the
// corresponding variant, with numbers rounded under mc. Slices and arrays
// become arrays and maps with string keys become structures, converting
// elements recursively. A Value converts to itself and a non-nil *Node to
// an expression node. nil and nil pointers convert to null. Any other type
// is an error.
func ValueOf(x any, mc MathContext) (Value, error) {
	c := mc.Decimal()
	switch x := x.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return x, nil
	case *Node:
		if x == nil {
			return Value{}, &ConversionError{Value: x}
		}
		return ExpressionNode(x), nil
	case bool:
		return Boolean(x), nil
	case string:
		return String(x), nil
	case *apd.Decimal:
		if x == nil {
			return Value{}, nil
		}
		return roundedNumber(c, x)
	case apd.Decimal:
		return roundedNumber(c, &x)
	case int:
		return roundedNumber(c, apd.New(int64(x), 0))
	case int64:
		return roundedNumber(c, apd.New(x, 0))
	case int32:
		return roundedNumber(c, apd.New(int64(x), 0))
	case int16:
		return roundedNumber(c, apd.New(int64(x), 0))
	case int8:
		return roundedNumber(c, apd.New(int64(x), 0))
	case uint, uint64, uint32, uint16, uint8, uintptr:
		u := reflect.ValueOf(x).Uint()
		d := new(apd.Decimal)
		d.Coeff.SetUint64(u)
		return roundedNumber(c, d)
	case float64:
		return floatNumber(c, x)
	case float32:
		// Format at float32 precision so that e.g. 0.1 stays 0.1.
		d, _, err := apd.NewFromString(strconv.FormatFloat(float64(x), 'g', -1, 32))
		if err != nil {
			return Value{}, &ConversionError{Value: x, Err: err}
		}
		return roundedNumber(c, d)
	case *big.Int:
		if x == nil {
			return Value{}, nil
		}
		d := new(apd.Decimal)
		d.Coeff.SetMathBigInt(x)
		d.Negative = x.Sign() < 0
		if d.Negative {
			d.Coeff.Abs(&d.Coeff)
		}
		return roundedNumber(c, d)
	case *big.Float:
		if x == nil {
			return Value{}, nil
		}
		if x.IsInf() {
			return Value{}, &ConversionError{Value: x}
		}
		d, _, err := apd.NewFromString(x.Text('g', -1))
		if err != nil {
			return Value{}, &ConversionError{Value: x, Err: err}
		}
		return roundedNumber(c, d)
	case []Value:
		return Array(slices.Clone(x)...), nil
	case map[string]Value:
		m := make(map[string]Value, len(x))
		for k, f := range x {
			m[k] = f
		}
		return Structure(m), nil
	}
	return reflectValue(reflect.ValueOf(x), mc)
}

// reflectValue converts composite and named types that ValueOf does not
// handle directly.
func reflectValue(r reflect.Value, mc MathContext) (Value, error) {
	switch r.Kind() {
	case reflect.Bool:
		return Boolean(r.Bool()), nil
	case reflect.String:
		return String(r.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return roundedNumber(mc.Decimal(), apd.New(r.Int(), 0))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		d := new(apd.Decimal)
		d.Coeff.SetUint64(r.Uint())
		return roundedNumber(mc.Decimal(), d)
	case reflect.Float32, reflect.Float64:
		return floatNumber(mc.Decimal(), r.Float())
	case reflect.Slice, reflect.Array:
		if r.Kind() == reflect.Slice && r.IsNil() {
			return Array(), nil
		}
		elems := make([]Value, r.Len())
		for i := range elems {
			e, err := ValueOf(r.Index(i).Interface(), mc)
			if err != nil {
				return Value{}, err
			}
			elems[i] = e
		}
		return Array(elems...), nil
	case reflect.Map:
		if r.Type().Key().Kind() != reflect.String {
			break
		}
		fields := make(map[string]Value, r.Len())
		iter := r.MapRange()
		for iter.Next() {
			f, err := ValueOf(iter.Value().Interface(), mc)
			if err != nil {
				return Value{}, err
			}
			fields[iter.Key().String()] = f
		}
		return Structure(fields), nil
	case reflect.Interface, reflect.Pointer:
		if r.IsNil() {
			return Value{}, nil
		}
		return ValueOf(r.Elem().Interface(), mc)
	}
	var x any
	if r.IsValid() && r.CanInterface() {
		x = r.Interface()
	}
	return Value{}, &ConversionError{Value: x}
}

func roundedNumber(c *apd.Context, x *apd.Decimal) (Value, error) {
	d := new(apd.Decimal)
	if _, err := c.Round(d, x); err != nil {
		return Value{}, &ConversionError{Value: x, Err: err}
	}
	return Number(d), nil
}

func floatNumber(c *apd.Context, f float64) (Value, error) {
	d, err := new(apd.Decimal).SetFloat64(f)
	if err != nil || d.Form != apd.Finite {
		return Value{}, &ConversionError{Value: f, Err: err}
	}
	return roundedNumber(c, d)
}

// ConversionError is an error converting a Go value with ValueOf.
type ConversionError struct {
	// Value is the value that could not be converted.
	Value any
	// Err is the underlying cause, if any.
	Err error
}

func (err *ConversionError) Error() string {
	r := fmt.Sprintf("unsupported data type %T", err.Value)
	if err.Err != nil {
		r += ": " + err.Err.Error()
	}
	return r
}

func (err *ConversionError) Unwrap() error {
	return err.Err
}
