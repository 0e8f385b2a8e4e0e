// Package record defines the dynamic document shape returned by the hooks.
//
// A Record is an arbitrary field mapping plus the store-assigned identifier,
// merged under the reserved IDField key. Callers never supply IDField as a data
// field: Validate rejects payloads that do, so the identifier can always be
// attached without clobbering user data.
package record

import (
	"errors"
	"fmt"
	"maps"

	"github.com/goliatone/go-docquery/docstore"
	"github.com/mitchellh/mapstructure"
)

// IDField is the reserved key the identifier is merged under.
const IDField = "id"

var (
	// ErrReservedField is returned when a payload carries IDField as data.
	ErrReservedField = errors.New("record: field name is reserved for the identifier")
	// ErrMissingID is returned when an operation needs an identifier and none is present.
	ErrMissingID = errors.New("record: missing identifier")
)

// Record is one document's fields. Records returned by the hooks always carry IDField.
type Record map[string]any

// Identifiable is satisfied by typed views that expose their identifier.
type Identifiable interface {
	GetID() string
}

// New builds a Record from data and id. data is copied, never mutated.
func New(id string, data map[string]any) Record {
	out := make(Record, len(data)+1)
	maps.Copy(out, data)
	out[IDField] = id
	return out
}

// ID returns the identifier, or "" when the record has none.
func (r Record) ID() string {
	if r == nil {
		return ""
	}
	id, _ := r[IDField].(string)
	return id
}

// GetID implements Identifiable.
func (r Record) GetID() string { return r.ID() }

// Clone returns a deep copy: nested maps and slices are copied too.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return Record(docstore.CloneData(r))
}

// WithoutID returns a copy of the fields with IDField stripped.
func (r Record) WithoutID() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}

// Merge returns a copy of r with fields from other overlaid.
func (r Record) Merge(other map[string]any) Record {
	out := make(Record, len(r)+len(other))
	maps.Copy(out, r)
	maps.Copy(out, other)
	return out
}

// Validate reports ErrReservedField when data carries IDField.
func Validate(data map[string]any) error {
	if _, ok := data[IDField]; ok {
		return fmt.Errorf("%w: %q", ErrReservedField, IDField)
	}
	return nil
}

// SplitID separates the identifier from the remaining fields of an update payload.
func SplitID(r Record) (string, map[string]any, error) {
	id := r.ID()
	if id == "" {
		return "", nil, ErrMissingID
	}
	return id, r.WithoutID(), nil
}

// Decode maps a Record onto T using json struct tags, for callers with a static schema.
func Decode[T any](r Record) (T, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(map[string]any(r)); err != nil {
		return out, fmt.Errorf("record: decode %q: %w", r.ID(), err)
	}
	return out, nil
}

// DecodeAll maps every record onto T.
func DecodeAll[T any](records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, r := range records {
		v, err := Decode[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Encode maps a struct onto a Record using json struct tags. Nested structs
// become nested maps; the IDField entry is kept when the struct has one.
func Encode(v any) (Record, error) {
	out := map[string]any{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &out,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(v); err != nil {
		return nil, fmt.Errorf("record: encode %T: %w", v, err)
	}
	return Record(out), nil
}
