package evalex

import (
	"strconv"
)

// ParseError is an error in the source of an expression: an unknown
// operator or function, a malformed literal, unbalanced brackets, or tokens
// in an order that does not form an expression. It implements InputError.
type ParseError struct {
	// Col is the column of the start of the offending token, counted in
	// runes from 1.
	Col int
	// Text is the offending token's text, if any.
	Text string
	// Msg describes the error.
	Msg string
}

func (err *ParseError) Error() string {
	return err.Msg
}

func (err *ParseError) Pos() int {
	return err.Col
}

// parseError is a shortcut to create a ParseError at a token.
func parseError(tok Token, msg string) *ParseError {
	return &ParseError{Col: tok.Pos, Text: tok.Text, Msg: msg}
}

// EvaluationError is an error evaluating a well-formed expression, such as a
// missing variable, an operand of the wrong type, or a function argument
// outside the function's domain. It implements InputError.
type EvaluationError struct {
	// Token is the token of the node being evaluated.
	Token Token
	// Msg describes the error.
	Msg string
	// Err is the underlying cause, if any.
	Err error
}

func (err *EvaluationError) Error() string {
	return err.Msg
}

func (err *EvaluationError) Pos() int {
	return err.Token.Pos
}

func (err *EvaluationError) Unwrap() error {
	return err.Err
}

// Messages shared by operators, functions, and the evaluator.
const (
	msgUnsupportedType = "Unsupported data type in operation"
	msgDivisionByZero  = "Division by zero"
)

// UnsupportedType returns the error for an operand or argument of a kind the
// operation cannot use.
func UnsupportedType(tok Token) *EvaluationError {
	return &EvaluationError{Token: tok, Msg: msgUnsupportedType}
}

// DepthError indicates an expression nested more deeply than the configured
// limit. It is returned from both parsing and evaluation and implements
// InputError.
type DepthError struct {
	// Col is the column of the token at which the limit was exceeded.
	Col int
	// Limit is the maximum depth.
	Limit int
}

func (err *DepthError) Error() string {
	return errpos(err.Col, "expression nesting exceeds maximum depth "+strconv.Itoa(err.Limit))
}

func (err *DepthError) Pos() int {
	return err.Col
}

// errpos is a shortcut to create an error message with a position.
func errpos(pos int, msg string) string {
	return strconv.Itoa(pos) + ": " + msg
}

// InputError is an error with position information. Every error resulting from
// invalid input implements InputError.
type InputError interface {
	error
	// Pos returns the position of the error as the number of runes up to and
	// including the start of the token that caused the error.
	Pos() int
}

var (
	_ InputError = (*ParseError)(nil)
	_ InputError = (*EvaluationError)(nil)
	_ InputError = (*DepthError)(nil)
)
