package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type todo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Priority  int    `json:"priority"`
}

func (t todo) GetID() string { return t.ID }

func TestNew_AttachesIDWithoutMutatingInput(t *testing.T) {
	data := map[string]any{"name": "Ann"}
	r := New("u1", data)

	assert.Equal(t, "u1", r.ID())
	assert.Equal(t, "Ann", r["name"])
	assert.NotContains(t, data, IDField)
}

func TestValidate_RejectsReservedField(t *testing.T) {
	assert.NoError(t, Validate(map[string]any{"name": "Ann"}))
	assert.ErrorIs(t, Validate(map[string]any{"id": "x"}), ErrReservedField)
}

func TestSplitID(t *testing.T) {
	id, fields, err := SplitID(Record{"id": "t1", "title": "x"})
	require.NoError(t, err)
	assert.Equal(t, "t1", id)
	assert.Equal(t, map[string]any{"title": "x"}, fields)

	_, _, err = SplitID(Record{"title": "x"})
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestMergeAndClone(t *testing.T) {
	r := Record{"id": "a", "n": 1}
	merged := r.Merge(map[string]any{"n": 2, "m": 3})

	assert.Equal(t, 1, r["n"])
	assert.Equal(t, Record{"id": "a", "n": 2, "m": 3}, merged)

	clone := r.Clone()
	clone["n"] = 9
	assert.Equal(t, 1, r["n"])
	assert.Nil(t, Record(nil).Clone())
}

func TestClone_CopiesNestedValues(t *testing.T) {
	r := Record{
		"id":    "a",
		"meta":  map[string]any{"k": "orig"},
		"tags":  []any{"x", map[string]any{"y": 1}},
		"names": []string{"Ann"},
	}

	clone := r.Clone()
	clone["meta"].(map[string]any)["k"] = "changed"
	clone["tags"].([]any)[1].(map[string]any)["y"] = 2
	clone["names"].([]string)[0] = "Bo"

	assert.Equal(t, "orig", r["meta"].(map[string]any)["k"])
	assert.Equal(t, 1, r["tags"].([]any)[1].(map[string]any)["y"])
	assert.Equal(t, "Ann", r["names"].([]string)[0])
}

func TestDecode(t *testing.T) {
	r := Record{"id": "t1", "title": "Buy milk", "completed": false, "priority": int64(2)}

	got, err := Decode[todo](r)
	require.NoError(t, err)
	assert.Equal(t, todo{ID: "t1", Title: "Buy milk", Priority: 2}, got)

	var ident Identifiable = got
	assert.Equal(t, "t1", ident.GetID())

	all, err := DecodeAll[todo]([]Record{r, {"id": "t2", "title": "x"}})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "t2", all[1].ID)
}

func TestDecode_TypeMismatch(t *testing.T) {
	_, err := Decode[todo](Record{"id": "t1", "priority": map[string]any{"level": "high"}})
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	r, err := Encode(todo{ID: "t1", Title: "Buy milk", Priority: 2})
	require.NoError(t, err)

	assert.Equal(t, "t1", r.ID())
	assert.Equal(t, "Buy milk", r["title"])
	assert.Equal(t, false, r["completed"])
	assert.Equal(t, 2, r["priority"])

	back, err := Decode[todo](r)
	require.NoError(t, err)
	assert.Equal(t, todo{ID: "t1", Title: "Buy milk", Priority: 2}, back)
}
