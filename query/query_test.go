package query

import (
	"testing"

	"github.com/goliatone/go-docquery/docstore"
	"github.com/stretchr/testify/assert"
)

func TestBuild_Order(t *testing.T) {
	ref := docstore.NewDocumentSnapshot("users", "u9", map[string]any{"age": 30})
	limit := 10
	desc := &Descriptor{
		Cursor:  &Cursor{Type: After, Ref: ref},
		Limit:   &limit,
		Sorts:   []Sort{{Field: "age", Direction: Desc}, {Field: "name"}},
		Filters: []Filter{{Field: "age", Operator: ">", Value: 18}, {Field: "active", Operator: "==", Value: true}},
	}

	want := []docstore.Constraint{
		docstore.Where("age", docstore.OpGreater, 18),
		docstore.Where("active", docstore.OpEqual, true),
		docstore.OrderBy("age", docstore.Desc),
		docstore.OrderBy("name", docstore.Asc),
		docstore.Limit(10),
		docstore.StartAfter(ref),
	}

	assert.Equal(t, want, Build(desc))
	assert.Equal(t, Build(desc), Build(desc), "building twice yields the same sequence")
}

func TestBuild_Cursor(t *testing.T) {
	ref := docstore.NewDocumentSnapshot("users", "u1", nil)

	tests := []struct {
		name   string
		cursor *Cursor
		want   []docstore.Constraint
	}{
		{"no cursor", nil, []docstore.Constraint{}},
		{"nil reference emits nothing", &Cursor{Type: After}, []docstore.Constraint{}},
		{"after", &Cursor{Type: After, Ref: ref}, []docstore.Constraint{docstore.StartAfter(ref)}},
		{"before", &Cursor{Type: Before, Ref: ref}, []docstore.Constraint{docstore.EndBefore(ref)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Build(&Descriptor{Cursor: tt.cursor}))
		})
	}
}

func TestBuild_NilDescriptor(t *testing.T) {
	assert.Empty(t, Build(nil))
}

func TestBuild_DoesNotValidate(t *testing.T) {
	zero := 0
	got := Build(&Descriptor{Filters: []Filter{{Field: "", Operator: "bogus"}}, Limit: &zero})
	assert.Len(t, got, 2)
}

func TestDescriptor_CacheKey(t *testing.T) {
	a := (&Descriptor{}).Where("age", ">", 18).OrderBy("name", "").WithLimit(5)
	b := (&Descriptor{}).Where("age", ">", 18).OrderBy("name", Asc).WithLimit(5)
	assert.Equal(t, a.CacheKey(), b.CacheKey(), "default direction is ascending")

	distinct := []*Descriptor{
		nil,
		(&Descriptor{}).Where("age", ">", 18),
		(&Descriptor{}).Where("age", ">", "18"),
		(&Descriptor{}).Where("age", ">=", 18),
		(&Descriptor{}).OrderBy("age", Desc),
		(&Descriptor{}).WithLimit(5),
		(&Descriptor{}).WithLimit(6),
		(&Descriptor{}).StartAfter(docstore.NewDocumentSnapshot("users", "u1", nil)),
		(&Descriptor{}).EndBefore(docstore.NewDocumentSnapshot("users", "u1", nil)),
		(&Descriptor{}).StartAfter(docstore.NewDocumentSnapshot("users", "u2", nil)),
		(&Descriptor{}).Where("name", "in", []string{"Ann Bo"}),
		(&Descriptor{}).Where("name", "in", []string{"Ann", "Bo"}),
		(&Descriptor{}).Where("name", "==", "a|==|b"),
		(&Descriptor{}).Where("name", "==", "a").Where("b", "==", "c"),
		(&Descriptor{}).Where("name|==|a),w(b", "==", "c"),
		(&Descriptor{}).OrderBy("a),o(b", Asc),
		(&Descriptor{}).OrderBy("a", Asc).OrderBy("b", Asc),
		(&Descriptor{}).StartAfter(docstore.NewDocumentSnapshot("users/u1", "x", nil)),
		(&Descriptor{}).StartAfter(docstore.NewDocumentSnapshot("users", "u1/x", nil)),
	}

	seen := map[string]int{}
	for i, d := range distinct {
		key := d.CacheKey()
		if j, ok := seen[key]; ok {
			t.Fatalf("descriptors %d and %d share key %q", j, i, key)
		}
		seen[key] = i
	}

	x, y := 18, 18
	assert.Equal(t, (&Descriptor{}).Where("age", ">", &x).CacheKey(), (&Descriptor{}).Where("age", ">", &y).CacheKey(),
		"pointer values are keyed by what they point to")
	assert.Equal(t, (&Descriptor{}).Where("tags", "in", []string{"a", "b"}).CacheKey(),
		(&Descriptor{}).Where("tags", "in", []string{"a", "b"}).CacheKey())

	assert.Equal(t, (&Descriptor{}).CacheKey(), (&Descriptor{Cursor: &Cursor{Type: After}}).CacheKey(),
		"a cursor without reference is the first page")
}
