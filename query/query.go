// Package query describes collection reads declaratively and builds the
// native docstore constraints for them.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-docquery/cache"
	"github.com/goliatone/go-docquery/docstore"
)

type (
	Operator  = docstore.Operator
	Direction = docstore.Direction
)

const (
	Asc  = docstore.Asc
	Desc = docstore.Desc
)

// CursorType selects the page relative to a cursor reference.
type CursorType string

const (
	After  CursorType = "after"
	Before CursorType = "before"
)

// Filter is one where clause.
type Filter struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// Sort is one order-by clause. An empty Direction sorts ascending.
type Sort struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction,omitempty"`
}

// Cursor positions a page relative to a previously returned document. A nil
// Ref means the first page.
type Cursor struct {
	Type CursorType
	Ref  *docstore.DocumentSnapshot
}

// Descriptor is the declarative shape of one collection read.
type Descriptor struct {
	Filters []Filter
	Sorts   []Sort
	Limit   *int
	Cursor  *Cursor
}

// Build returns the native constraints for desc: filters, then sorts, then
// the limit, then the cursor, each group in input order. Validation is left
// to the store.
func Build(desc *Descriptor) []docstore.Constraint {
	if desc == nil {
		return nil
	}

	out := make([]docstore.Constraint, 0, len(desc.Filters)+len(desc.Sorts)+2)
	for _, f := range desc.Filters {
		out = append(out, docstore.Where(f.Field, f.Operator, f.Value))
	}
	for _, s := range desc.Sorts {
		dir := s.Direction
		if dir == "" {
			dir = Asc
		}
		out = append(out, docstore.OrderBy(s.Field, dir))
	}
	if desc.Limit != nil {
		out = append(out, docstore.Limit(*desc.Limit))
	}
	if desc.Cursor != nil && desc.Cursor.Ref != nil {
		switch desc.Cursor.Type {
		case Before:
			out = append(out, docstore.EndBefore(desc.Cursor.Ref))
		default:
			out = append(out, docstore.StartAfter(desc.Cursor.Ref))
		}
	}
	return out
}

// CacheKey serializes the descriptor deterministically. Structurally equal
// descriptors share a key and distinct ones never do; names are quoted and
// filter values go through cache.CanonicalValue. Cursors are keyed by the
// referenced document.
func (d *Descriptor) CacheKey() string {
	if d == nil {
		d = &Descriptor{}
	}

	var b strings.Builder
	b.WriteString("q{")
	for i, f := range d.Filters {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "w(%q|%q|%s)", f.Field, string(f.Operator), cache.CanonicalValue(f.Value))
	}
	b.WriteByte(';')
	for i, s := range d.Sorts {
		if i > 0 {
			b.WriteByte(',')
		}
		dir := s.Direction
		if dir == "" {
			dir = Asc
		}
		fmt.Fprintf(&b, "o(%q|%q)", s.Field, string(dir))
	}
	b.WriteByte(';')
	if d.Limit != nil {
		b.WriteString("l(" + strconv.Itoa(*d.Limit) + ")")
	}
	b.WriteByte(';')
	if d.Cursor != nil && d.Cursor.Ref != nil {
		typ := d.Cursor.Type
		if typ == "" {
			typ = After
		}
		fmt.Fprintf(&b, "c(%q|%q|%q)", string(typ), d.Cursor.Ref.Collection(), d.Cursor.Ref.ID())
	}
	b.WriteByte('}')
	return b.String()
}

// Where appends a filter.
func (d *Descriptor) Where(field string, op Operator, value any) *Descriptor {
	d.Filters = append(d.Filters, Filter{Field: field, Operator: op, Value: value})
	return d
}

// OrderBy appends a sort clause.
func (d *Descriptor) OrderBy(field string, dir Direction) *Descriptor {
	d.Sorts = append(d.Sorts, Sort{Field: field, Direction: dir})
	return d
}

// WithLimit sets the row limit.
func (d *Descriptor) WithLimit(n int) *Descriptor {
	d.Limit = &n
	return d
}

// StartAfter pages after ref.
func (d *Descriptor) StartAfter(ref *docstore.DocumentSnapshot) *Descriptor {
	d.Cursor = &Cursor{Type: After, Ref: ref}
	return d
}

// EndBefore pages before ref.
func (d *Descriptor) EndBefore(ref *docstore.DocumentSnapshot) *Descriptor {
	d.Cursor = &Cursor{Type: Before, Ref: ref}
	return d
}
