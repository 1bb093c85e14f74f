package solver

import "math/rand/v2"

const (
	MinCard          = 1
	MaxCard          = 13
	generateAttempts = 10
)

// FallbackNumbers is used when random draws keep coming up unsolvable:
// (8 - 6) * (4 + 2) = 24.
var FallbackNumbers = []int{6, 8, 2, 4}

// Generator draws card values for a round.
type Generator struct {
	// IntN returns a value in [0, n).
	IntN     func(n int) int
	Attempts int
}

func NewGenerator() *Generator {
	return &Generator{IntN: rand.IntN, Attempts: generateAttempts}
}

// Generate returns four values in [MinCard, MaxCard] that have a solution.
func (g *Generator) Generate() []int {
	attempts := g.Attempts
	if attempts <= 0 {
		attempts = generateAttempts
	}
	for i := 0; i < attempts; i++ {
		numbers := g.draw()
		if Solvable(numbers) {
			return numbers
		}
	}
	return append([]int(nil), FallbackNumbers...)
}

func (g *Generator) draw() []int {
	intn := g.IntN
	if intn == nil {
		intn = rand.IntN
	}
	numbers := make([]int, 4)
	for i := range numbers {
		numbers[i] = intn(MaxCard-MinCard+1) + MinCard
	}
	return numbers
}
