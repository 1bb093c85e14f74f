package expr

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

const (
	Target    = 24
	Tolerance = 1e-4
)

// Reason classifies why a submission was rejected.
type Reason string

const (
	ReasonInvalidCharacters Reason = "invalid_characters"
	ReasonWrongCount        Reason = "wrong_count"
	ReasonWrongNumbers      Reason = "wrong_numbers"
	ReasonInvalidExpression Reason = "invalid_expression"
	ReasonNotTarget         Reason = "not_target"
)

// Result is the outcome of validating a submitted expression. Result is set
// whenever the expression could be evaluated, including wrong answers.
type Result struct {
	IsValid     bool     `json:"isValid"`
	Result      *float64 `json:"result,omitempty"`
	Error       string   `json:"error,omitempty"`
	Reason      Reason   `json:"reason,omitempty"`
	NumbersUsed []int    `json:"numbersUsed,omitempty"`
}

// Validate checks expression against the required numbers and the target.
// It never returns an error: every failure is reported in the Result.
func Validate(expression string, required []int) Result {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, expression)

	if clean == "" || !onlyAllowed(clean) {
		return Result{
			Reason: ReasonInvalidCharacters,
			Error:  "Expression contains invalid characters. Use only numbers, +, -, *, /, and parentheses.",
		}
	}

	used := extractNumbers(clean)
	if len(used) != len(required) {
		return Result{
			Reason: ReasonWrongCount,
			Error:  fmt.Sprintf("You must use exactly %d numbers, but used %d.", len(required), len(used)),
		}
	}
	if !SameNumbers(used, required) {
		return Result{
			Reason: ReasonWrongNumbers,
			Error:  fmt.Sprintf("You must use the numbers %s exactly once each.", joinInts(required)),
		}
	}

	tree, err := Parse(clean)
	if err != nil {
		return Result{Reason: ReasonInvalidExpression, Error: "Invalid mathematical expression."}
	}
	value, err := Eval(tree)
	if err != nil {
		return Result{Reason: ReasonInvalidExpression, Error: "Invalid mathematical expression."}
	}

	res := Result{
		IsValid:     IsTarget(value),
		Result:      &value,
		NumbersUsed: used,
	}
	if !res.IsValid {
		res.Reason = ReasonNotTarget
		res.Error = fmt.Sprintf("Expression equals %s, but must equal %d.", FormatValue(value), Target)
	}
	return res
}

// IsTarget reports whether value is within Tolerance of Target.
func IsTarget(value float64) bool {
	return math.Abs(value-Target) < Tolerance
}

// SameNumbers compares two integer slices as multisets.
func SameNumbers(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}

// FormatValue renders a result without trailing zeros.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func onlyAllowed(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isDigit(c) {
			continue
		}
		switch c {
		case '+', '-', '*', '/', '(', ')':
			continue
		}
		return false
	}
	return true
}

// extractNumbers returns maximal digit runs in order of appearance.
// Runs too large for int become -1, which never matches a card value.
func extractNumbers(s string) []int {
	var out []int
	for i := 0; i < len(s); {
		if !isDigit(s[i]) {
			i++
			continue
		}
		start := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		value, err := strconv.Atoi(s[start:i])
		if err != nil {
			value = -1
		}
		out = append(out, value)
	}
	return out
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
