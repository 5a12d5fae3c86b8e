// Package evalex implements an embeddable expression language over
// arbitrary-precision decimal numbers.
//
// An expression such as "(2+3)*SQRT(4)" is scanned into tokens, parsed into
// an abstract syntax tree with a shunting-yard parser driven by a registry of
// operators and functions, and evaluated by walking the tree. Values are
// decimal numbers, strings, booleans, arrays, structures, or null.
//
//	e := evalex.New("a * (b + 1)").With("a", 2).With("b", 4)
//	v, err := e.Evaluate()
//
// Operators, functions, constants, numeric precision, and the rounding
// applied after each evaluation step all come from a Config. The default
// configuration computes to 68 significant digits with round-half-even and
// knows the usual arithmetic, comparison and boolean operators plus
// functions like IF, ROUND, SQRT and LOG. Custom operators and functions are
// registered by name; names of operators, functions and variables are
// case-insensitive.
//
// Function parameters may be lazy. A lazy argument is passed to the function
// unevaluated, so "IF(x > 0, 1/x, 0)" never divides by zero.
package evalex
