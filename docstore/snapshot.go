package docstore

import (
	"reflect"
	"strings"
	"time"
)

// DocumentSnapshot is a point-in-time read of one document.
type DocumentSnapshot struct {
	collection string
	id         string
	data       map[string]any
	exists     bool
	fromCache  bool
}

// NewDocumentSnapshot returns a snapshot of an existing document. The data
// is copied.
func NewDocumentSnapshot(collection, id string, data map[string]any) *DocumentSnapshot {
	return &DocumentSnapshot{
		collection: collection,
		id:         id,
		data:       CloneData(data),
		exists:     true,
	}
}

// MissingSnapshot returns the snapshot of a document that does not exist.
func MissingSnapshot(collection, id string) *DocumentSnapshot {
	return &DocumentSnapshot{collection: collection, id: id}
}

func (s *DocumentSnapshot) ID() string         { return s.id }
func (s *DocumentSnapshot) Collection() string { return s.collection }
func (s *DocumentSnapshot) Exists() bool       { return s != nil && s.exists }

// FromCache reports whether the snapshot was served by the local mirror.
func (s *DocumentSnapshot) FromCache() bool { return s.fromCache }

// Data returns a copy of the document fields, nil when it does not exist.
func (s *DocumentSnapshot) Data() map[string]any {
	if !s.Exists() {
		return nil
	}
	return CloneData(s.data)
}

// Get looks up a field. Dotted paths walk nested maps.
func (s *DocumentSnapshot) Get(path string) (any, bool) {
	if !s.Exists() {
		return nil, false
	}
	return lookup(s.data, path)
}

func (s *DocumentSnapshot) cached() *DocumentSnapshot {
	cp := *s
	cp.fromCache = true
	return &cp
}

func lookup(data map[string]any, path string) (any, bool) {
	if v, ok := data[path]; ok {
		return v, true
	}
	parts := strings.Split(path, ".")
	var cur any = data
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// QuerySnapshot is the ordered result of a collection read.
type QuerySnapshot struct {
	Docs      []*DocumentSnapshot
	FromCache bool
}

func (q *QuerySnapshot) Empty() bool { return q == nil || len(q.Docs) == 0 }

func (q *QuerySnapshot) Size() int {
	if q == nil {
		return 0
	}
	return len(q.Docs)
}

// CloneData deep copies nested maps and slices of a document payload.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneData(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case time.Time:
		return t
	default:
		return cloneReflect(v)
	}
}

// cloneReflect copies typed slices and maps such as []map[string]any or
// map[string]int. Pointers and other values are shared.
func cloneReflect(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			setCloned(out.Index(i), rv.Index(i))
		}
		return out.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			elem := reflect.New(rv.Type().Elem()).Elem()
			setCloned(elem, iter.Value())
			out.SetMapIndex(iter.Key(), elem)
		}
		return out.Interface()
	default:
		return v
	}
}

func setCloned(dst, src reflect.Value) {
	if src.Kind() == reflect.Interface && src.IsNil() {
		return
	}
	dst.Set(reflect.ValueOf(cloneValue(src.Interface())).Convert(dst.Type()))
}
