package evalex

import (
	"math"
	"strconv"
)

// Parse tokenizes and parses an expression. A nil cfg uses the default
// configuration.
func Parse(src string, cfg *Config) (*Node, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	toks, err := Tokenize(src, cfg)
	if err != nil {
		return nil, err
	}
	return ParseTokens(toks, cfg)
}

// entryKind is the kind of an entry on the parser's operator stack.
type entryKind int8

const (
	entryOp    entryKind = iota // prefix or infix operator
	entryParen                  // open brace
	entryCall                   // open brace of a function call
	entryIndex                  // open bracket of an array index
)

// precStruct is the precedence of the structure separator, which binds
// tighter than any operator.
const precStruct = math.MaxInt

type entry struct {
	kind entryKind
	tok  Token
	prec int
	// base is the number of operands when the entry was pushed. For markers,
	// operands above base belong to the bracketed group.
	base int
	// args counts the parameter separators of a call.
	args int
}

type parser struct {
	cfg      *Config
	operands []*Node
	ops      []entry
	// last is the kind of the previous token.
	last TokenKind
}

// ParseTokens builds a syntax tree from a token list produced by Tokenize.
// A nil cfg uses the default configuration.
func ParseTokens(toks []Token, cfg *Config) (*Node, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	p := parser{cfg: cfg}
	for i, tok := range toks {
		if p.last == TokenFunction && tok.Kind != TokenBraceOpen {
			return nil, unexpected(tok)
		}
		var err error
		switch tok.Kind {
		case TokenNumber, TokenString, TokenVariable:
			err = p.push(newNode(tok))
		case TokenFunction:
			if i+1 >= len(toks) || toks[i+1].Kind != TokenBraceOpen {
				return nil, unexpected(tok)
			}
		case TokenPrefix:
			err = p.prefix(tok)
		case TokenInfix:
			err = p.infix(tok)
		case TokenPostfix:
			err = p.postfix(tok)
		case TokenStructSep:
			err = p.structSep(tok)
		case TokenBraceOpen:
			e := entry{kind: entryParen, tok: tok, base: len(p.operands)}
			if p.last == TokenFunction {
				e.kind, e.tok = entryCall, toks[i-1]
			}
			p.ops = append(p.ops, e)
		case TokenBraceClose:
			err = p.closeBrace(tok)
		case TokenParamSep:
			err = p.paramSep(tok)
		case TokenArrayOpen:
			err = p.openArray(tok)
		case TokenArrayClose:
			err = p.closeArray(tok)
		default:
			err = unexpected(tok)
		}
		if err != nil {
			return nil, err
		}
		p.last = tok.Kind
	}
	return p.finish()
}

func unexpected(tok Token) *ParseError {
	return parseError(tok, "Unexpected token of type '"+tok.Kind.String()+"'")
}

// push pushes an operand after checking the depth limit.
func (p *parser) push(n *Node) error {
	if lim := p.cfg.maxDepth; lim > 0 && n.depth > lim {
		return &DepthError{Col: n.Token.Pos, Limit: lim}
	}
	p.operands = append(p.operands, n)
	return nil
}

func (p *parser) pop() *Node {
	n := p.operands[len(p.operands)-1]
	p.operands = p.operands[:len(p.operands)-1]
	return n
}

// operator resolves the operator of a token, looking it up by role if the
// token was built without one.
func (p *parser) operator(tok Token) (Operator, error) {
	if tok.Op != nil {
		return *tok.Op, nil
	}
	var op Operator
	var ok bool
	switch tok.Kind {
	case TokenPrefix:
		op, ok = p.cfg.registry.Prefix(tok.Text)
	case TokenInfix:
		op, ok = p.cfg.registry.Infix(tok.Text)
	case TokenPostfix:
		op, ok = p.cfg.registry.Postfix(tok.Text)
	}
	if !ok {
		return Operator{}, parseError(tok, "Undefined operator '"+tok.Text+"'")
	}
	return op, nil
}

// reduce pops the top operator entry and applies it to its operands.
func (p *parser) reduce() error {
	e := p.ops[len(p.ops)-1]
	p.ops = p.ops[:len(p.ops)-1]
	if e.tok.Kind == TokenPrefix {
		if len(p.operands) <= e.base {
			return parseError(e.tok, "Missing operand for operator")
		}
		return p.push(newNode(e.tok, p.pop()))
	}
	if len(p.operands) <= e.base {
		return parseError(e.tok, "Missing second operand for operator")
	}
	r := p.pop()
	l := p.pop()
	if e.tok.Kind == TokenStructSep && (r.Token.Kind != TokenVariable || len(r.Children) != 0) {
		return parseError(r.Token, "Invalid structure member")
	}
	return p.push(newNode(e.tok, l, r))
}

// reduceAbove reduces operators on top of the stack which bind at least as
// tightly as an incoming operator with precedence prec.
func (p *parser) reduceAbove(prec int, right bool) error {
	for len(p.ops) > 0 {
		top := p.ops[len(p.ops)-1]
		if top.kind != entryOp || top.prec < prec || top.prec == prec && right {
			return nil
		}
		if err := p.reduce(); err != nil {
			return err
		}
	}
	return nil
}

// reduceToMarker reduces every operator above the innermost marker and
// returns the marker's index, or -1 if there is none.
func (p *parser) reduceToMarker() (int, error) {
	for len(p.ops) > 0 {
		top := p.ops[len(p.ops)-1]
		if top.kind != entryOp {
			return len(p.ops) - 1, nil
		}
		if err := p.reduce(); err != nil {
			return -1, err
		}
	}
	return -1, nil
}

func (p *parser) prefix(tok Token) error {
	op, err := p.operator(tok)
	if err != nil {
		return err
	}
	p.ops = append(p.ops, entry{tok: tok, prec: op.Precedence, base: len(p.operands)})
	return nil
}

func (p *parser) infix(tok Token) error {
	if !p.last.endsOperand() {
		return parseError(tok, "Missing operand for operator")
	}
	op, err := p.operator(tok)
	if err != nil {
		return err
	}
	if err := p.reduceAbove(op.Precedence, op.RightAssoc); err != nil {
		return err
	}
	p.ops = append(p.ops, entry{tok: tok, prec: op.Precedence, base: len(p.operands)})
	return nil
}

func (p *parser) postfix(tok Token) error {
	if !p.last.endsOperand() {
		return parseError(tok, "Missing operand for operator")
	}
	op, err := p.operator(tok)
	if err != nil {
		return err
	}
	if err := p.reduceAbove(op.Precedence, false); err != nil {
		return err
	}
	// The operand is complete, so the operator applies immediately.
	return p.push(newNode(tok, p.pop()))
}

func (p *parser) structSep(tok Token) error {
	switch p.last {
	case TokenVariable, TokenBraceClose, TokenArrayClose:
	default:
		return unexpected(tok)
	}
	if err := p.reduceAbove(precStruct, false); err != nil {
		return err
	}
	p.ops = append(p.ops, entry{tok: tok, prec: precStruct, base: len(p.operands)})
	return nil
}

func (p *parser) closeBrace(tok Token) error {
	if p.last == TokenParamSep {
		return parseError(tok, "Missing function parameter")
	}
	m, err := p.reduceToMarker()
	if err != nil {
		return err
	}
	if m < 0 || p.ops[m].kind == entryIndex {
		return unexpected(tok)
	}
	e := p.ops[m]
	p.ops = p.ops[:m]
	n := len(p.operands) - e.base
	if e.kind == entryParen {
		switch {
		case n == 0:
			return unexpected(tok)
		case n > 1:
			return parseError(p.operands[e.base+1].Token, "Too many operands")
		}
		return nil
	}
	want := e.args + 1
	if p.last == TokenBraceOpen {
		want = 0
	}
	if n != want {
		return parseError(p.operands[len(p.operands)-1].Token, "Too many operands")
	}
	fn := e.tok.Fn
	if fn == nil {
		var ok bool
		fn, ok = p.cfg.registry.Function(e.tok.Text)
		if !ok {
			return parseError(e.tok, "Undefined function '"+e.tok.Text+"'")
		}
		e.tok.Fn = fn
	}
	if !canCall(fn, n) {
		return parseError(e.tok, "Function '"+e.tok.Text+"' cannot be called with "+strconv.Itoa(n)+" parameters")
	}
	args := make([]*Node, n)
	copy(args, p.operands[e.base:])
	p.operands = p.operands[:e.base]
	return p.push(newNode(e.tok, args...))
}

func (p *parser) paramSep(tok Token) error {
	if !p.last.endsOperand() {
		if p.last == TokenBraceOpen || p.last == TokenParamSep {
			return parseError(tok, "Missing function parameter")
		}
	}
	m, err := p.reduceToMarker()
	if err != nil {
		return err
	}
	if m < 0 || p.ops[m].kind != entryCall {
		return unexpected(tok)
	}
	p.ops[m].args++
	return nil
}

func (p *parser) openArray(tok Token) error {
	if !p.last.endsOperand() {
		return unexpected(tok)
	}
	if err := p.reduceAbove(precStruct, false); err != nil {
		return err
	}
	p.ops = append(p.ops, entry{kind: entryIndex, tok: tok, base: len(p.operands)})
	return nil
}

func (p *parser) closeArray(tok Token) error {
	m, err := p.reduceToMarker()
	if err != nil {
		return err
	}
	if m < 0 || p.ops[m].kind != entryIndex {
		return unexpected(tok)
	}
	e := p.ops[m]
	p.ops = p.ops[:m]
	switch n := len(p.operands) - e.base; {
	case n == 0:
		return parseError(e.tok, "Missing array index")
	case n > 1:
		return parseError(p.operands[e.base+1].Token, "Too many operands")
	}
	idx := p.pop()
	base := p.pop()
	t := e.tok
	t.Kind = TokenArrayIndex
	return p.push(newNode(t, base, idx))
}

func (p *parser) finish() (*Node, error) {
	for len(p.ops) > 0 {
		top := p.ops[len(p.ops)-1]
		switch top.kind {
		case entryParen, entryCall:
			return nil, parseError(top.tok, "Closing braces not balanced")
		case entryIndex:
			return nil, parseError(top.tok, "Closing arrays not balanced")
		}
		if err := p.reduce(); err != nil {
			return nil, err
		}
	}
	switch len(p.operands) {
	case 0:
		return nil, &ParseError{Col: 1, Msg: "Empty expression"}
	case 1:
		return p.operands[0], nil
	default:
		return nil, parseError(p.operands[1].Token, "Too many operands")
	}
}
