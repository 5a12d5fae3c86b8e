package evalex

import (
	"strconv"
	"strings"
	"unicode"
)

// Token is a lexical token of an expression.
type Token struct {
	// Pos is the column of the first rune of the token, counted from 1.
	Pos int
	// Kind is the kind of token.
	Kind TokenKind
	// Text is the token's source text. For string literals, it is the
	// literal's content with escapes processed.
	Text string
	// Op is the operator of an operator token.
	Op *Operator
	// Fn is the function of a function call token.
	Fn Function
}

func (t Token) String() string {
	return t.Kind.String() + ":" + strconv.Quote(t.Text) + "@" + strconv.Itoa(t.Pos)
}

// TokenKind is the kind of a token.
type TokenKind int8

const (
	TokenNone TokenKind = iota
	TokenNumber
	TokenString
	TokenVariable
	TokenPrefix
	TokenInfix
	TokenPostfix
	TokenFunction
	TokenArrayOpen
	TokenArrayClose
	TokenStructSep
	TokenParamSep
	TokenBraceOpen
	TokenBraceClose
	// TokenArrayIndex only appears in syntax trees, as the token of an
	// array index node.
	TokenArrayIndex
)

var tokenNames = [...]string{
	TokenNone:       "NONE",
	TokenNumber:     "NUMBER_LITERAL",
	TokenString:     "STRING_LITERAL",
	TokenVariable:   "VARIABLE_OR_CONSTANT",
	TokenPrefix:     "PREFIX_OPERATOR",
	TokenInfix:      "INFIX_OPERATOR",
	TokenPostfix:    "POSTFIX_OPERATOR",
	TokenFunction:   "FUNCTION",
	TokenArrayOpen:  "ARRAY_OPEN",
	TokenArrayClose: "ARRAY_CLOSE",
	TokenStructSep:  "STRUCTURE_SEPARATOR",
	TokenParamSep:   "PARAMETER_SEPARATOR",
	TokenBraceOpen:  "BRACE_OPEN",
	TokenBraceClose: "BRACE_CLOSE",
	TokenArrayIndex: "ARRAY_INDEX",
}

func (k TokenKind) String() string {
	if k >= 0 && int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return "TokenKind(" + strconv.Itoa(int(k)) + ")"
}

// endsOperand reports whether a token of kind k can be the last token of an
// operand, i.e. whether an infix or postfix operator may follow it.
func (k TokenKind) endsOperand() bool {
	switch k {
	case TokenNumber, TokenString, TokenVariable, TokenPostfix, TokenBraceClose, TokenArrayClose:
		return true
	}
	return false
}

type lexer struct {
	src []rune
	// i is the index of the next rune to scan.
	i   int
	cfg *Config
	// toks is the output so far. The last token decides operator roles.
	toks   []Token
	braces int
	arrays int
}

// Tokenize scans an expression into tokens using the operators and
// functions of cfg. A nil cfg uses the default configuration.
func Tokenize(src string, cfg *Config) ([]Token, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := lexer{src: []rune(src), cfg: cfg}
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokenNone {
			break
		}
		if err := l.emit(tok); err != nil {
			return nil, err
		}
	}
	switch {
	case l.braces > 0:
		return nil, &ParseError{Col: len(l.src), Msg: "Closing braces not balanced"}
	case l.arrays > 0:
		return nil, &ParseError{Col: len(l.src), Msg: "Closing arrays not balanced"}
	}
	return l.toks, nil
}

// prev returns the last emitted token, or a zero token at the start.
func (l *lexer) prev() Token {
	if len(l.toks) == 0 {
		return Token{}
	}
	return l.toks[len(l.toks)-1]
}

// emit appends a token, first inserting an implicit multiplication if one
// is implied between it and the previous token.
func (l *lexer) emit(tok Token) error {
	switch l.prev().Kind {
	case TokenNumber, TokenBraceClose:
		switch tok.Kind {
		case TokenBraceOpen, TokenVariable, TokenFunction:
			if !l.cfg.implicitMul {
				return parseError(tok, "Missing operator")
			}
			op, ok := l.cfg.registry.Infix("*")
			if !ok {
				return parseError(tok, "Missing operator")
			}
			l.toks = append(l.toks, Token{Pos: tok.Pos, Kind: TokenInfix, Text: "*", Op: &op})
		}
	}
	l.toks = append(l.toks, tok)
	return nil
}

func (l *lexer) peek(k int) rune {
	if l.i+k < len(l.src) {
		return l.src[l.i+k]
	}
	return -1
}

func (l *lexer) skipSpace() {
	for l.i < len(l.src) && unicode.IsSpace(l.src[l.i]) {
		l.i++
	}
}

// next scans the next token. At the end of the input, the result is a
// token with kind TokenNone.
func (l *lexer) next() (Token, error) {
	l.skipSpace()
	if l.i >= len(l.src) {
		return Token{}, nil
	}
	tok := Token{Pos: l.i + 1}
	r := l.src[l.i]
	switch {
	case r == '"':
		return l.scanString(tok)
	case isDigit(r), r == '.' && isDigit(l.peek(1)):
		return l.scanNum(tok)
	case r == '_', unicode.IsLetter(r):
		return l.scanIdent(tok)
	case r == '(':
		l.i++
		l.braces++
		tok.Kind, tok.Text = TokenBraceOpen, "("
	case r == ')':
		l.i++
		l.braces--
		tok.Kind, tok.Text = TokenBraceClose, ")"
		if l.braces < 0 {
			return tok, parseError(tok, "Unexpected closing brace")
		}
	case r == '[':
		l.i++
		tok.Kind, tok.Text = TokenArrayOpen, "["
		if !l.cfg.arrays {
			return tok, parseError(tok, "Arrays not allowed")
		}
		l.arrays++
	case r == ']':
		l.i++
		tok.Kind, tok.Text = TokenArrayClose, "]"
		if !l.cfg.arrays {
			return tok, parseError(tok, "Arrays not allowed")
		}
		l.arrays--
		if l.arrays < 0 {
			return tok, parseError(tok, "Unexpected closing array")
		}
	case r == ',':
		l.i++
		tok.Kind, tok.Text = TokenParamSep, ","
	case r == '.' && l.atStructSep():
		l.i++
		tok.Kind, tok.Text = TokenStructSep, "."
		if !l.cfg.structures {
			return tok, parseError(tok, "Structures not allowed")
		}
	default:
		return l.scanOperator(tok)
	}
	return tok, nil
}

// atStructSep reports whether the . at the current position separates a
// structure from a member name.
func (l *lexer) atStructSep() bool {
	switch l.prev().Kind {
	case TokenVariable, TokenBraceClose, TokenArrayClose:
	default:
		return false
	}
	r := l.peek(1)
	return r == '_' || unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

func (l *lexer) scanString(tok Token) (Token, error) {
	var b strings.Builder
	l.i++ // opening quote
	for l.i < len(l.src) {
		r := l.src[l.i]
		l.i++
		switch r {
		case '"':
			tok.Kind = TokenString
			tok.Text = b.String()
			return tok, nil
		case '\\':
			if l.i >= len(l.src) {
				return tok, parseError(tok, "Closing quote not found")
			}
			e := l.src[l.i]
			l.i++
			switch e {
			case '"', '\'', '\\':
				b.WriteRune(e)
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			default:
				return tok, &ParseError{Col: l.i - 1, Text: string(e), Msg: "Unknown escape character"}
			}
		default:
			b.WriteRune(r)
		}
	}
	return tok, parseError(tok, "Closing quote not found")
}

func (l *lexer) scanNum(tok Token) (Token, error) {
	start := l.i
	var dot, e bool
	for ; l.i < len(l.src); l.i++ {
		r := l.src[l.i]
		switch {
		case isDigit(r):
			continue
		case r == '.':
			if e || dot {
				return l.badNum(tok, start)
			}
			dot = true
			continue
		case (r == 'e' || r == 'E') && !e && l.exponent():
			e = true
			if s := l.peek(1); s == '+' || s == '-' {
				l.i++
			}
			continue
		}
		// Anything else ends the literal. A letter starts an identifier.
		break
	}
	tok.Kind = TokenNumber
	tok.Text = string(l.src[start:l.i])
	return tok, nil
}

// exponent reports whether the e at the current position starts an
// exponent, i.e. is followed by a digit or by a sign and a digit.
func (l *lexer) exponent() bool {
	s := l.peek(1)
	if s == '+' || s == '-' {
		s = l.peek(2)
	}
	return isDigit(s)
}

// badNum consumes the rest of a malformed number and reports it.
func (l *lexer) badNum(tok Token, start int) (Token, error) {
	for l.i < len(l.src) {
		r := l.src[l.i]
		if !(isDigit(r) || r == '.' || r == '_' || unicode.IsLetter(r)) {
			break
		}
		l.i++
	}
	tok.Text = string(l.src[start:l.i])
	return tok, parseError(tok, "Illegal number format '"+tok.Text+"'")
}

func (l *lexer) scanIdent(tok Token) (Token, error) {
	start := l.i
	for l.i < len(l.src) {
		r := l.src[l.i]
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		l.i++
	}
	tok.Text = string(l.src[start:l.i])
	tok.Kind = TokenVariable
	// A name followed by an open brace is a call.
	k := l.i
	for k < len(l.src) && unicode.IsSpace(l.src[k]) {
		k++
	}
	if k < len(l.src) && l.src[k] == '(' {
		fn, ok := l.cfg.registry.Function(tok.Text)
		if !ok {
			return tok, parseError(tok, "Undefined function '"+tok.Text+"'")
		}
		tok.Kind = TokenFunction
		tok.Fn = fn
	}
	return tok, nil
}

// scanOperator scans the longest operator symbol valid in the current
// position and decides whether it is prefix, infix, or postfix.
func (l *lexer) scanOperator(tok Token) (Token, error) {
	reg := l.cfg.registry
	prev := l.prev().Kind
	prefix := prev == TokenNone || !prev.endsOperand()
	sym := ""
	for n := min(reg.symlen, len(l.src)-l.i); n > 0; n-- {
		s := string(l.src[l.i : l.i+n])
		if prefix && reg.HasPrefix(s) || !prefix && (reg.HasInfix(s) || reg.HasPostfix(s)) {
			sym = s
			break
		}
		if sym == "" && reg.hasOperator(s) {
			// Remember the longest symbol in any role for the error.
			sym = s
		}
	}
	if sym == "" {
		sym = string(l.src[l.i])
	}
	l.i += len([]rune(sym))
	tok.Text = sym
	if prefix {
		if op, ok := reg.Prefix(sym); ok {
			tok.Kind, tok.Op = TokenPrefix, &op
			return tok, nil
		}
	} else {
		if op, ok := reg.Postfix(sym); ok && !(reg.HasInfix(sym) && l.operandFollows()) {
			tok.Kind, tok.Op = TokenPostfix, &op
			return tok, nil
		}
	}
	// An infix operator in prefix position still becomes an infix token so
	// that the parser reports the missing operand.
	if op, ok := reg.Infix(sym); ok {
		tok.Kind, tok.Op = TokenInfix, &op
		return tok, nil
	}
	return tok, parseError(tok, "Undefined operator '"+sym+"'")
}

// operandFollows reports whether the next non-blank input starts an operand.
func (l *lexer) operandFollows() bool {
	k := l.i
	for k < len(l.src) && unicode.IsSpace(l.src[k]) {
		k++
	}
	if k >= len(l.src) {
		return false
	}
	r := l.src[k]
	return r == '_' || r == '"' || r == '(' || r == '.' || isDigit(r) || unicode.IsLetter(r)
}
