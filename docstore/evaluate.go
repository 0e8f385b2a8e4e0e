package docstore

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

type plan struct {
	filters    []Constraint
	orders     []Constraint
	limit      int
	startAfter *DocumentSnapshot
	endBefore  *DocumentSnapshot
}

func compile(constraints []Constraint) (plan, error) {
	p := plan{limit: -1}
	for _, c := range constraints {
		switch c.Kind {
		case KindWhere:
			if c.Field == "" {
				return p, fmt.Errorf("%w: where clause without field", ErrInvalidQuery)
			}
			if !c.Op.Valid() {
				return p, fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, c.Op)
			}
			switch c.Op {
			case OpIn, OpNotIn, OpArrayContainsAny:
				list, ok := toSlice(c.Value)
				if !ok || len(list) == 0 {
					return p, fmt.Errorf("%w: operator %q requires a non-empty list", ErrInvalidQuery, c.Op)
				}
			}
			p.filters = append(p.filters, c)
		case KindOrderBy:
			if c.Field == "" {
				return p, fmt.Errorf("%w: orderBy without field", ErrInvalidQuery)
			}
			if c.Direction == "" {
				c.Direction = Asc
			}
			if c.Direction != Asc && c.Direction != Desc {
				return p, fmt.Errorf("%w: unknown direction %q", ErrInvalidQuery, c.Direction)
			}
			p.orders = append(p.orders, c)
		case KindLimit:
			if c.N <= 0 {
				return p, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidQuery, c.N)
			}
			p.limit = c.N
		case KindStartAfter, KindEndBefore:
			if !c.Ref.Exists() {
				return p, fmt.Errorf("%w: %s requires an existing document", ErrInvalidQuery, c.Kind)
			}
			if c.Kind == KindStartAfter {
				p.startAfter = c.Ref
			} else {
				p.endBefore = c.Ref
			}
		default:
			return p, fmt.Errorf("%w: unknown constraint %v", ErrInvalidQuery, c.Kind)
		}
	}
	for _, ref := range []*DocumentSnapshot{p.startAfter, p.endBefore} {
		if ref == nil {
			continue
		}
		for _, o := range p.orders {
			if _, ok := ref.Get(o.Field); !ok {
				return p, fmt.Errorf("%w: cursor document %s has no field %q", ErrInvalidQuery, ref.ID(), o.Field)
			}
		}
	}
	return p, nil
}

// Evaluate applies constraints to docs in process. Documents missing a
// filtered or ordered field never match. Results are ordered by the
// order-by clauses with the document id as the final tie-break.
func Evaluate(docs []*DocumentSnapshot, constraints ...Constraint) ([]*DocumentSnapshot, error) {
	p, err := compile(constraints)
	if err != nil {
		return nil, err
	}

	out := make([]*DocumentSnapshot, 0, len(docs))
	for _, doc := range docs {
		if doc.Exists() && p.matches(doc) {
			out = append(out, doc)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return p.compare(out[i], out[j]) < 0
	})

	if p.startAfter != nil || p.endBefore != nil {
		page := out[:0:0]
		for _, doc := range out {
			if p.startAfter != nil && p.compare(doc, p.startAfter) <= 0 {
				continue
			}
			if p.endBefore != nil && p.compare(doc, p.endBefore) >= 0 {
				continue
			}
			page = append(page, doc)
		}
		out = page
	}

	if p.limit >= 0 && len(out) > p.limit {
		out = out[:p.limit]
	}
	return out, nil
}

func (p plan) matches(doc *DocumentSnapshot) bool {
	for _, f := range p.filters {
		v, ok := doc.Get(f.Field)
		if !ok || !matchFilter(v, f.Op, f.Value) {
			return false
		}
	}
	for _, o := range p.orders {
		if _, ok := doc.Get(o.Field); !ok {
			return false
		}
	}
	return true
}

func (p plan) compare(a, b *DocumentSnapshot) int {
	tie := Asc
	for _, o := range p.orders {
		av, _ := a.Get(o.Field)
		bv, _ := b.Get(o.Field)
		c := compareValues(av, bv)
		if o.Direction == Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		tie = o.Direction
	}
	c := strings.Compare(a.ID(), b.ID())
	if tie == Desc {
		c = -c
	}
	return c
}

func matchFilter(field any, op Operator, value any) bool {
	switch op {
	case OpEqual:
		return equalValues(field, value)
	case OpNotEqual:
		return field != nil && !equalValues(field, value)
	case OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual:
		if rank(field) != rank(value) {
			return false
		}
		c := compareValues(field, value)
		switch op {
		case OpLess:
			return c < 0
		case OpLessOrEqual:
			return c <= 0
		case OpGreater:
			return c > 0
		default:
			return c >= 0
		}
	case OpArrayContains:
		items, ok := toSlice(field)
		return ok && containsValue(items, value)
	case OpArrayContainsAny:
		items, ok := toSlice(field)
		if !ok {
			return false
		}
		candidates, _ := toSlice(value)
		for _, c := range candidates {
			if containsValue(items, c) {
				return true
			}
		}
		return false
	case OpIn:
		candidates, _ := toSlice(value)
		return containsValue(candidates, field)
	case OpNotIn:
		candidates, _ := toSlice(value)
		return field != nil && !containsValue(candidates, field)
	}
	return false
}

func containsValue(items []any, v any) bool {
	for _, item := range items {
		if equalValues(item, v) {
			return true
		}
	}
	return false
}

func equalValues(a, b any) bool {
	return rank(a) == rank(b) && compareValues(a, b) == 0
}

const (
	rankNull = iota
	rankBool
	rankNumber
	rankTime
	rankString
	rankArray
	rankMap
	rankOther
)

func rank(v any) int {
	switch v.(type) {
	case nil:
		return rankNull
	case bool:
		return rankBool
	case time.Time:
		return rankTime
	case string:
		return rankString
	case map[string]any:
		return rankMap
	}
	if _, ok := toFloat(v); ok {
		return rankNumber
	}
	if _, ok := toSlice(v); ok {
		return rankArray
	}
	return rankOther
}

// compareValues orders values across types: null, bool, number, timestamp,
// string, array, map, anything else.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case rankNull:
		return 0
	case rankBool:
		x, y := a.(bool), b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case rankNumber:
		x, _ := toFloat(a)
		y, _ := toFloat(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case rankTime:
		return a.(time.Time).Compare(b.(time.Time))
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankArray:
		x, _ := toSlice(a)
		y, _ := toSlice(b)
		for i := 0; i < len(x) && i < len(y); i++ {
			if c := compareValues(x[i], y[i]); c != 0 {
				return c
			}
		}
		switch {
		case len(x) < len(y):
			return -1
		case len(x) > len(y):
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func toSlice(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
