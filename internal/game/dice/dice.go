// Package dice provides the randomness abstraction used by weapon spread
// sampling and melee damage rolls.
package dice

import (
	"fmt"
	"strings"
)

// RollResult holds the audit trail for a single damage roll.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string // original expression, e.g. "2d6+3"
	Dice       []int  // individual die results before modifier
	Modifier   int    // flat modifier (may be negative)
}

// Total returns the sum of all die results plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String renders the roll as "2d6+3: 4+5 +3 = 12".
func (r RollResult) String() string {
	parts := make([]string, len(r.Dice))
	for i, d := range r.Dice {
		parts[i] = fmt.Sprint(d)
	}
	rolled := strings.Join(parts, "+")
	if rolled == "" {
		rolled = "0"
	}
	return fmt.Sprintf("%s: %s %+d = %d", r.Expression, rolled, r.Modifier, r.Total())
}

// Source is the randomness provider for weapons.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0, 1).
	Float64() float64
}
