package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Expression is a parsed damage expression ready to be rolled.
//
// Invariant: Count == 0 (flat damage) or Count >= 1 with Sides >= 2.
type Expression struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
}

var exprPattern = regexp.MustCompile(`^(?:(\d*)d(\d+))?\s*([+-]\s*\d+)?$`)

// Parse parses "d20", "2d6", "2d6+3", "4d8-2" or a flat amount such as "15".
//
// Postcondition: Returns a valid Expression or a descriptive error.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return Expression{}, fmt.Errorf("dice: flat amount %q must not be negative", expr)
		}
		return Expression{Raw: expr, Modifier: n}, nil
	}

	m := exprPattern.FindStringSubmatch(s)
	if m == nil || m[2] == "" {
		return Expression{}, fmt.Errorf("dice: malformed expression %q", expr)
	}

	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
		if count < 1 {
			return Expression{}, fmt.Errorf("dice: die count in %q must be >= 1", expr)
		}
	}
	sides, _ := strconv.Atoi(m[2])
	if sides < 2 {
		return Expression{}, fmt.Errorf("dice: die sides in %q must be >= 2", expr)
	}
	modifier := 0
	if m[3] != "" {
		modifier, _ = strconv.Atoi(strings.ReplaceAll(m[3], " ", ""))
	}

	return Expression{Raw: expr, Count: count, Sides: sides, Modifier: modifier}, nil
}

// MustParse parses expr and panics on error. Useful for package-level values.
//
// Precondition: expr must be a valid dice expression.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}

// Roll evaluates expr using src.
//
// Precondition: src must be non-nil.
// Postcondition: len(result.Dice) == expr.Count.
func Roll(expr Expression, src Source) RollResult {
	rolled := make([]int, expr.Count)
	for i := range rolled {
		rolled[i] = src.Intn(expr.Sides) + 1
	}
	return RollResult{Expression: expr.Raw, Dice: rolled, Modifier: expr.Modifier}
}

// Max returns the largest total expr can produce.
func (e Expression) Max() int {
	return e.Count*e.Sides + e.Modifier
}

// Min returns the smallest total expr can produce.
func (e Expression) Min() int {
	return e.Count + e.Modifier
}
