package expr

import (
	"fmt"
	"math"
	"strconv"
)

// Op is one of the four arithmetic operators.
type Op byte

const (
	Add Op = '+'
	Sub Op = '-'
	Mul Op = '*'
	Div Op = '/'
)

// Ops lists the binary operators in search order.
var Ops = [4]Op{Add, Sub, Mul, Div}

func opFromByte(c byte) (Op, bool) {
	switch Op(c) {
	case Add, Sub, Mul, Div:
		return Op(c), true
	}
	return 0, false
}

func (o Op) String() string {
	return string(rune(o))
}

func (o Op) multiplicative() bool {
	return o == Mul || o == Div
}

// Node is an expression tree node.
type Node interface {
	fmt.Stringer
	node()
}

type Num int

type Unary struct {
	Op Op
	X  Node
}

type Binary struct {
	Op   Op
	L, R Node
}

// Paren keeps explicit grouping so rendering reproduces the source text.
type Paren struct {
	X Node
}

func (Num) node()    {}
func (Unary) node()  {}
func (Binary) node() {}
func (Paren) node()  {}

func (n Num) String() string { return strconv.Itoa(int(n)) }

func (u Unary) String() string { return u.Op.String() + u.X.String() }

func (b Binary) String() string {
	return b.L.String() + " " + b.Op.String() + " " + b.R.String()
}

func (p Paren) String() string { return "(" + p.X.String() + ")" }

// Eval computes the real-valued result of a tree. Division by zero and
// non-finite intermediate values are errors.
func Eval(n Node) (float64, error) {
	switch n := n.(type) {
	case Num:
		return float64(n), nil
	case Paren:
		return Eval(n.X)
	case Unary:
		x, err := Eval(n.X)
		if err != nil {
			return 0, err
		}
		if n.Op == Sub {
			return -x, nil
		}
		return x, nil
	case Binary:
		l, err := Eval(n.L)
		if err != nil {
			return 0, err
		}
		r, err := Eval(n.R)
		if err != nil {
			return 0, err
		}
		return apply(n.Op, l, r)
	case nil:
		return 0, ErrEmpty
	default:
		return 0, fmt.Errorf("unknown node %T", n)
	}
}

func apply(op Op, l, r float64) (float64, error) {
	var v float64
	switch op {
	case Add:
		v = l + r
	case Sub:
		v = l - r
	case Mul:
		v = l * r
	case Div:
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		v = l / r
	default:
		return 0, fmt.Errorf("unknown operator %q", byte(op))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotFinite
	}
	return v, nil
}

// Numbers returns the integer literals of a tree in left-to-right order.
func Numbers(n Node) []int {
	var out []int
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case Num:
			out = append(out, int(n))
		case Paren:
			walk(n.X)
		case Unary:
			walk(n.X)
		case Binary:
			walk(n.L)
			walk(n.R)
		}
	}
	walk(n)
	return out
}
