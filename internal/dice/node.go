package dice

// Operator selects how a Group combines the values of its children.
type Operator int

const (
	// OpAdd sums child values.
	OpAdd Operator = iota
	// OpMin keeps the smallest child value.
	OpMin
	// OpMax keeps the largest child value.
	OpMax
)

// Keyword returns the formula keyword for the operator: "" for OpAdd,
// "min" for OpMin and "max" for OpMax.
func (o Operator) Keyword() string {
	switch o {
	case OpMin:
		return "min"
	case OpMax:
		return "max"
	default:
		return ""
	}
}

// String returns a readable operator name.
func (o Operator) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpMin:
		return "min"
	case OpMax:
		return "max"
	default:
		return "unknown"
	}
}

// aggregate folds values with o. OpMin and OpMax seed with the first value.
//
// Precondition: len(values) > 0 for OpMin and OpMax.
func (o Operator) aggregate(values []int) int {
	switch o {
	case OpMin, OpMax:
		if len(values) == 0 {
			panic("dice: aggregate precondition violated: " + o.String() + " over no values")
		}
		acc := values[0]
		for _, v := range values[1:] {
			if (o == OpMin && v < acc) || (o == OpMax && v > acc) {
				acc = v
			}
		}
		return acc
	default:
		total := 0
		for _, v := range values {
			total += v
		}
		return total
	}
}

// Kind identifies the concrete type of a Node.
type Kind int

const (
	KindGroup Kind = iota
	KindDice
	KindConstant
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindDice:
		return "dice"
	case KindConstant:
		return "constant"
	default:
		return "unknown"
	}
}

// Node is one element of a parsed formula tree. The set of implementations is
// closed: *Group, *DiceTerm and *Constant.
type Node interface {
	Kind() Kind
	// Negative reports whether the node's value is negated.
	Negative() bool
	// Name returns the trimmed label that followed the term, or "".
	Name() string
	// Value returns the computed value and whether the node has been evaluated.
	Value() (int, bool)
	// Parent returns the enclosing Group, or nil for a root.
	Parent() *Group

	base() *attrs
}

// attrs holds the state shared by every node kind.
type attrs struct {
	parent    *Group
	negative  bool
	name      string
	value     int
	evaluated bool
}

func (a *attrs) Negative() bool { return a.negative }

func (a *attrs) Name() string { return a.name }

func (a *attrs) Value() (int, bool) { return a.value, a.evaluated }

func (a *attrs) Parent() *Group { return a.parent }

func (a *attrs) base() *attrs { return a }

// set stores the computed value, applying the sign.
func (a *attrs) set(v int) {
	if a.negative {
		v = -v
	}
	a.value = v
	a.evaluated = true
}

// Group combines its children with an Operator.
//
// Invariant: a Group returned by Parse has at least one child.
type Group struct {
	attrs
	op       Operator
	children []Node
}

// NewGroup returns a Group owning children, in order.
//
// Precondition: every child must not already belong to another Group.
func NewGroup(op Operator, negative bool, name string, children ...Node) *Group {
	g := &Group{attrs: attrs{negative: negative, name: name}, op: op}
	for _, c := range children {
		g.Add(c)
	}
	return g
}

// Kind returns KindGroup.
func (g *Group) Kind() Kind { return KindGroup }

// Op returns the group's aggregation operator.
func (g *Group) Op() Operator { return g.op }

// Children returns the group's children in formula order. The slice must not
// be modified.
func (g *Group) Children() []Node { return g.children }

// Add appends child and makes g its parent.
//
// Precondition: child is non-nil and has no parent.
func (g *Group) Add(child Node) {
	a := child.base()
	if a.parent != nil {
		panic("dice: Group.Add precondition violated: child already has a parent")
	}
	a.parent = g
	g.children = append(g.children, child)
}

// DiceTerm rolls Count dice with Sides faces each.
//
// Invariant: 1 <= Count() <= MaxDiceCount and MinDieSize <= Sides() <= MaxDieSize
// when produced by Parse.
type DiceTerm struct {
	attrs
	count int
	sides int
	rolls []int
}

// NewDiceTerm returns an unevaluated DiceTerm.
func NewDiceTerm(count, sides int, negative bool, name string) *DiceTerm {
	return &DiceTerm{attrs: attrs{negative: negative, name: name}, count: count, sides: sides}
}

// Kind returns KindDice.
func (d *DiceTerm) Kind() Kind { return KindDice }

// Count returns the number of dice rolled.
func (d *DiceTerm) Count() int { return d.count }

// Sides returns the number of faces per die.
func (d *DiceTerm) Sides() int { return d.sides }

// Rolls returns the individual results of the last evaluation. It is empty
// for single-die terms and before evaluation.
func (d *DiceTerm) Rolls() []int { return d.rolls }

// Constant is a fixed number.
type Constant struct {
	attrs
	magnitude int
}

// NewConstant returns a Constant whose value will be ±magnitude.
func NewConstant(magnitude int, negative bool, name string) *Constant {
	return &Constant{attrs: attrs{negative: negative, name: name}, magnitude: magnitude}
}

// Kind returns KindConstant.
func (c *Constant) Kind() Kind { return KindConstant }

// Magnitude returns the unsigned literal.
func (c *Constant) Magnitude() int { return c.magnitude }
