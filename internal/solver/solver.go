package solver

import (
	"errors"

	"make24/internal/expr"
)

// ErrNeedFourNumbers is returned when the input is not exactly four numbers.
var ErrNeedFourNumbers = errors.New("solution search requires exactly 4 numbers")

// Shapes is the number of parenthesization shapes tried per ordering.
const Shapes = 6

type Solution struct {
	Expression string  `json:"expression"`
	Result     float64 `json:"result"`
}

// FindSolution searches every ordering of numbers, every operator triple and
// every shape, and returns the first expression that evaluates to the target.
// The enumeration order is fixed, so the answer for a given input is stable.
func FindSolution(numbers []int) (Solution, bool, error) {
	if len(numbers) != 4 {
		return Solution{}, false, ErrNeedFourNumbers
	}
	for _, perm := range Permutations(numbers) {
		for _, o1 := range expr.Ops {
			for _, o2 := range expr.Ops {
				for _, o3 := range expr.Ops {
					for shape := 0; shape < Shapes; shape++ {
						tree := Build(shape, perm, [3]expr.Op{o1, o2, o3})
						value, err := expr.Eval(tree)
						if err != nil {
							continue
						}
						if expr.IsTarget(value) {
							return Solution{Expression: tree.String(), Result: expr.Target}, true, nil
						}
					}
				}
			}
		}
	}
	return Solution{}, false, nil
}

// Solvable reports whether FindSolution succeeds for numbers.
func Solvable(numbers []int) bool {
	_, ok, err := FindSolution(numbers)
	return err == nil && ok
}

// Build returns the candidate tree for one shape over operands a b c d
// joined by ops in order:
//
//	0: a o b o c o d
//	1: (a o b) o (c o d)
//	2: ((a o b) o c) o d
//	3: a o ((b o c) o d)
//	4: (a o (b o c)) o d
//	5: a o (b o (c o d))
func Build(shape int, operands []int, ops [3]expr.Op) expr.Node {
	a, b, c, d := expr.Num(operands[0]), expr.Num(operands[1]), expr.Num(operands[2]), expr.Num(operands[3])
	o1, o2, o3 := ops[0], ops[1], ops[2]
	group := func(op expr.Op, l, r expr.Node) expr.Node {
		return expr.Paren{X: expr.Binary{Op: op, L: l, R: r}}
	}
	switch shape {
	case 0:
		node, _ := expr.Chain([]expr.Node{a, b, c, d}, ops[:])
		return node
	case 1:
		return expr.Binary{Op: o2, L: group(o1, a, b), R: group(o3, c, d)}
	case 2:
		return expr.Binary{Op: o3, L: group(o2, group(o1, a, b), c), R: d}
	case 3:
		return expr.Binary{Op: o1, L: a, R: group(o3, group(o2, b, c), d)}
	case 4:
		return expr.Binary{Op: o3, L: group(o1, a, group(o2, b, c)), R: d}
	default:
		return expr.Binary{Op: o1, L: a, R: group(o2, b, group(o3, c, d))}
	}
}

// Permutations returns every ordering of values, choosing each position's
// element by index from left to right. Duplicated values yield duplicated
// orderings.
func Permutations(values []int) [][]int {
	if len(values) <= 1 {
		return [][]int{append([]int(nil), values...)}
	}
	var out [][]int
	for i, current := range values {
		rest := make([]int, 0, len(values)-1)
		rest = append(rest, values[:i]...)
		rest = append(rest, values[i+1:]...)
		for _, perm := range Permutations(rest) {
			out = append(out, append([]int{current}, perm...))
		}
	}
	return out
}
