package docstore

import "fmt"

// Operator is a where-clause comparison.
type Operator string

const (
	OpLess             Operator = "<"
	OpLessOrEqual      Operator = "<="
	OpEqual            Operator = "=="
	OpNotEqual         Operator = "!="
	OpGreaterOrEqual   Operator = ">="
	OpGreater          Operator = ">"
	OpArrayContains    Operator = "array-contains"
	OpArrayContainsAny Operator = "array-contains-any"
	OpIn               Operator = "in"
	OpNotIn            Operator = "not-in"
)

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	switch op {
	case OpLess, OpLessOrEqual, OpEqual, OpNotEqual, OpGreaterOrEqual, OpGreater,
		OpArrayContains, OpArrayContainsAny, OpIn, OpNotIn:
		return true
	}
	return false
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ConstraintKind tags a Constraint.
type ConstraintKind int

const (
	KindWhere ConstraintKind = iota + 1
	KindOrderBy
	KindLimit
	KindStartAfter
	KindEndBefore
)

func (k ConstraintKind) String() string {
	switch k {
	case KindWhere:
		return "where"
	case KindOrderBy:
		return "orderBy"
	case KindLimit:
		return "limit"
	case KindStartAfter:
		return "startAfter"
	case KindEndBefore:
		return "endBefore"
	}
	return fmt.Sprintf("ConstraintKind(%d)", int(k))
}

// Constraint is one native query constraint. Only the fields relevant to
// Kind are set.
type Constraint struct {
	Kind      ConstraintKind
	Field     string
	Op        Operator
	Value     any
	Direction Direction
	N         int
	Ref       *DocumentSnapshot
}

func Where(field string, op Operator, value any) Constraint {
	return Constraint{Kind: KindWhere, Field: field, Op: op, Value: value}
}

func OrderBy(field string, dir Direction) Constraint {
	return Constraint{Kind: KindOrderBy, Field: field, Direction: dir}
}

func Limit(n int) Constraint {
	return Constraint{Kind: KindLimit, N: n}
}

// StartAfter positions the page after ref in the query order.
func StartAfter(ref *DocumentSnapshot) Constraint {
	return Constraint{Kind: KindStartAfter, Ref: ref}
}

// EndBefore positions the page before ref in the query order.
func EndBefore(ref *DocumentSnapshot) Constraint {
	return Constraint{Kind: KindEndBefore, Ref: ref}
}

func (c Constraint) String() string {
	switch c.Kind {
	case KindWhere:
		return fmt.Sprintf("where(%s %s %v)", c.Field, c.Op, c.Value)
	case KindOrderBy:
		return fmt.Sprintf("orderBy(%s %s)", c.Field, c.Direction)
	case KindLimit:
		return fmt.Sprintf("limit(%d)", c.N)
	case KindStartAfter, KindEndBefore:
		id := ""
		if c.Ref != nil {
			id = c.Ref.ID()
		}
		return fmt.Sprintf("%s(%s)", c.Kind, id)
	}
	return c.Kind.String()
}
