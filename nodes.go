package evalex

import (
	"strconv"
	"strings"
)

// Node is a node in the abstract syntax tree of an expression. Nodes are
// immutable once parsed and may be shared between goroutines.
type Node struct {
	// Token is the token the node was built from. Array index nodes have a
	// token of kind TokenArrayIndex at the position of the opening bracket.
	Token Token
	// Children are the operands of the node: one for prefix and postfix
	// operators, two for infix operators, structure members, and array
	// indices, and the arguments of a function call.
	Children []*Node
	// depth is the height of the subtree rooted at the node.
	depth int
}

// newNode creates a node and computes its depth.
func newNode(tok Token, children ...*Node) *Node {
	d := 1
	for _, c := range children {
		d = max(d, c.depth+1)
	}
	return &Node{Token: tok, Children: children, depth: d}
}

// Depth returns the height of the tree rooted at n. A leaf has depth 1.
func (n *Node) Depth() int {
	return n.depth
}

// String formats the tree rooted at n with every operation parenthesized.
func (n *Node) String() string {
	var b strings.Builder
	n.fmt(&b)
	return b.String()
}

func (n *Node) fmt(b *strings.Builder) {
	switch n.Token.Kind {
	case TokenNumber, TokenVariable:
		b.WriteString(n.Token.Text)
	case TokenString:
		b.WriteString(strconv.Quote(n.Token.Text))
	case TokenFunction:
		b.WriteString(n.Token.Text)
		b.WriteByte('(')
		for i, c := range n.Children {
			if i > 0 {
				b.WriteString(", ")
			}
			c.fmt(b)
		}
		b.WriteByte(')')
	case TokenPrefix:
		b.WriteByte('(')
		b.WriteString(n.Token.Text)
		n.Children[0].fmt(b)
		b.WriteByte(')')
	case TokenPostfix:
		b.WriteByte('(')
		n.Children[0].fmt(b)
		b.WriteString(n.Token.Text)
		b.WriteByte(')')
	case TokenInfix:
		b.WriteByte('(')
		n.Children[0].fmt(b)
		b.WriteByte(' ')
		b.WriteString(n.Token.Text)
		b.WriteByte(' ')
		n.Children[1].fmt(b)
		b.WriteByte(')')
	case TokenArrayIndex:
		n.Children[0].fmt(b)
		b.WriteByte('[')
		n.Children[1].fmt(b)
		b.WriteByte(']')
	case TokenStructSep:
		n.Children[0].fmt(b)
		b.WriteByte('.')
		n.Children[1].fmt(b)
	default:
		// Invalid nodes use invalid characters.
		b.WriteByte('$')
		b.WriteString(n.Token.String())
		for _, c := range n.Children {
			b.WriteByte('#')
			c.fmt(b)
		}
		b.WriteByte('$')
	}
}

// Walk calls f for n and each of its descendants in depth-first order,
// parents before children. If f returns false, Walk skips the children of
// that node.
func (n *Node) Walk(f func(*Node) bool) {
	if !f(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(f)
	}
}
