package dice

// Evaluate computes n's value bottom-up, drawing every die from src. Evaluating
// again re-rolls and overwrites previous values.
//
// A DiceTerm of more than one die combines its rolls with its parent's
// operator, so "min(3d6)" keeps the lowest of three dice while "3d6" sums them.
// A parentless DiceTerm sums.
//
// Precondition: src is non-nil; every Group in the tree has at least one child.
// The tree must not be evaluated concurrently.
func Evaluate(n Node, src Source) {
	switch n := n.(type) {
	case *Group:
		if len(n.children) == 0 {
			panic("dice: Evaluate precondition violated: group has no children")
		}
		values := make([]int, len(n.children))
		for i, child := range n.children {
			Evaluate(child, src)
			values[i], _ = child.Value()
		}
		n.set(n.op.aggregate(values))

	case *DiceTerm:
		if n.count == 1 {
			n.rolls = nil
			n.set(src.Between(1, n.sides))
			return
		}
		rolls := make([]int, n.count)
		for i := range rolls {
			rolls[i] = src.Between(1, n.sides)
		}
		n.rolls = rolls
		op := OpAdd
		if n.parent != nil {
			op = n.parent.op
		}
		n.set(op.aggregate(rolls))

	case *Constant:
		n.set(n.magnitude)
	}
}

// Evaluate rolls every die below g and computes its value.
func (g *Group) Evaluate(src Source) {
	Evaluate(g, src)
}

// Total returns the group's value, or 0 before evaluation.
func (g *Group) Total() int {
	v, _ := g.Value()
	return v
}

// DiceRolled returns how many dice one evaluation of n draws.
func DiceRolled(n Node) int {
	switch n := n.(type) {
	case *Group:
		total := 0
		for _, c := range n.children {
			total += DiceRolled(c)
		}
		return total
	case *DiceTerm:
		return n.count
	default:
		return 0
	}
}
