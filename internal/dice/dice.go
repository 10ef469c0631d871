// Package dice parses tabletop dice notation such as "2d6+3" or
// "min(2d20,1d8)+5 Bonus" into an expression tree, rolls it against a Source,
// and renders the canonical formula and a per-die results breakdown.
package dice

import "fmt"

// RollResult holds the full audit trail for a single formula evaluation.
//
// Postcondition: Total == the evaluated value of Tree.
type RollResult struct {
	Formula   string // input as given, e.g. "2d6+3"
	Canonical string // re-rendered formula, e.g. "2d6 + 3"
	Results   string // breakdown, e.g. "**9** (**6** (2, 4), **3**)"
	Total     int
	Tree      *Group
}

// String returns a human-readable audit string in the format:
//
//	"2d6 + 3 → **9** (**6** (2, 4), **3**) = 9"
//
// Precondition: r.Canonical is non-empty.
func (r RollResult) String() string {
	if r.Canonical == "" {
		panic("dice: RollResult.String() precondition violated: Canonical must be non-empty")
	}
	return fmt.Sprintf("%s → %s = %d", r.Canonical, r.Results, r.Total)
}

// Roll evaluates tree with src and summarises it.
//
// Precondition: tree must come from Parse; src must be non-nil.
func Roll(formula string, tree *Group, src Source) RollResult {
	tree.Evaluate(src)
	return RollResult{
		Formula:   formula,
		Canonical: tree.String(),
		Results:   tree.RenderResult(),
		Total:     tree.Total(),
		Tree:      tree,
	}
}

// RollFormula parses formula and rolls it using src in a single call.
//
// Postcondition: Returns a RollResult or a *ParseError.
func RollFormula(formula string, src Source) (RollResult, error) {
	tree, err := Parse(formula)
	if err != nil {
		return RollResult{}, err
	}
	return Roll(formula, tree, src), nil
}
