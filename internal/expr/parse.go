package expr

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrEmpty          = errors.New("empty expression")
	ErrUnexpectedEnd  = errors.New("unexpected end of expression")
	ErrUnbalanced     = errors.New("unbalanced parentheses")
	ErrRepeatedSign   = errors.New("repeated sign")
	ErrDivisionByZero = errors.New("division by zero")
	ErrNotFinite      = errors.New("result is not finite")
)

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenOp
	tokenLParen
	tokenRParen
)

type token struct {
	kind  tokenKind
	value int
	op    Op
	pos   int
}

// Parse builds an expression tree from text made of integers, the four
// binary operators, unary signs and parentheses. Whitespace is ignored.
func Parse(text string) (Node, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, ErrEmpty
	}
	p := &parser{tokens: tokens}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		if tok.kind == tokenRParen {
			return nil, ErrUnbalanced
		}
		return nil, fmt.Errorf("unexpected token at %d", tok.pos)
	}
	return node, nil
}

func tokenize(text string) ([]token, error) {
	tokens := make([]token, 0, len(text))
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c):
			start := i
			for i < len(text) && isDigit(text[i]) {
				i++
			}
			value, err := strconv.Atoi(text[start:i])
			if err != nil {
				return nil, fmt.Errorf("number at %d: %w", start, err)
			}
			tokens = append(tokens, token{kind: tokenNumber, value: value, pos: start})
		case c == '(':
			tokens = append(tokens, token{kind: tokenLParen, pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenRParen, pos: i})
			i++
		default:
			op, ok := opFromByte(c)
			if !ok {
				return nil, fmt.Errorf("unexpected character %q at %d", c, i)
			}
			tokens = append(tokens, token{kind: tokenOp, op: op, pos: i})
			i++
		}
	}
	return tokens, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

// parseExpr reads operand (op operand)* and folds the flat sequence by
// precedence with Chain.
func (p *parser) parseExpr() (Node, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	operands := []Node{first}
	var ops []Op
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokenOp {
			break
		}
		p.pos++
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		ops = append(ops, tok.op)
		operands = append(operands, next)
	}
	return Chain(operands, ops)
}

func (p *parser) parseUnary() (Node, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, ErrUnexpectedEnd
	}
	if tok.kind == tokenOp && (tok.op == Add || tok.op == Sub) {
		// "--" and "++" are never two signs.
		if p.pos > 0 {
			if prev := p.tokens[p.pos-1]; prev.kind == tokenOp && prev.op == tok.op {
				return nil, ErrRepeatedSign
			}
		}
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Unary{Op: tok.op, X: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, ErrUnexpectedEnd
	}
	switch tok.kind {
	case tokenNumber:
		p.pos++
		return Num(tok.value), nil
	case tokenLParen:
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokenRParen {
			return nil, ErrUnbalanced
		}
		p.pos++
		return Paren{X: inner}, nil
	case tokenRParen:
		return nil, ErrUnbalanced
	default:
		return nil, fmt.Errorf("unexpected operator %q at %d", tok.op.String(), tok.pos)
	}
}

// Chain combines operands joined left to right by ops, giving * and /
// precedence over + and -, all left associative. It is the precedence step
// of Parse and is used directly to build unparenthesized candidates.
func Chain(operands []Node, ops []Op) (Node, error) {
	if len(operands) == 0 {
		return nil, ErrEmpty
	}
	if len(ops) != len(operands)-1 {
		return nil, fmt.Errorf("chain needs %d operators, got %d", len(operands)-1, len(ops))
	}
	// First pass folds multiplicative runs into terms.
	terms := []Node{operands[0]}
	var additive []Op
	for i, op := range ops {
		right := operands[i+1]
		if op.multiplicative() {
			last := len(terms) - 1
			terms[last] = Binary{Op: op, L: terms[last], R: right}
			continue
		}
		additive = append(additive, op)
		terms = append(terms, right)
	}
	node := terms[0]
	for i, op := range additive {
		node = Binary{Op: op, L: node, R: terms[i+1]}
	}
	return node, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
