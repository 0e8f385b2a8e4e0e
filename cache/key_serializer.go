package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// MaxSegmentLength is the longest serialized segment kept verbatim in a key.
// Longer segments are replaced by their xxhash digest.
const MaxSegmentLength = 160

// Keyer lets a value control its own key segment. Query descriptors and store
// cursors implement it so that structurally equal values share a key.
type Keyer interface {
	CacheKey() string
}

// defaultKeySerializer implements KeySerializer using reflection-based serialization.
// It handles function pointers using %p formatting, recursive slices, and falls back to JSON
// for complex types while ensuring deterministic key generation across runs.
type defaultKeySerializer struct {
	maxSegment int
	// typed quotes strings and tags scalars with their type so that no two
	// distinct values render the same.
	typed bool
}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{maxSegment: MaxSegmentLength}
}

// SerializeKey builds a cache key from the namespace and parts using reflection.
// The namespace and every part become one segment each, so a key built from a
// shorter list of parts is always a prefix of a key built from a longer one.
func (s *defaultKeySerializer) SerializeKey(namespace string, parts ...any) string {
	if len(parts) == 0 {
		return namespace
	}

	segments := make([]string, 0, len(parts)+1)
	segments = append(segments, namespace)

	for _, part := range parts {
		segments = append(segments, s.segment(s.serializeValue(part)))
	}

	return strings.Join(segments, KeySeparator)
}

// CanonicalValue renders v as an unambiguous key fragment: strings are quoted,
// scalars carry their type, pointers are followed and maps are sorted. Two
// values share a fragment only when they are structurally equal.
func CanonicalValue(v any) string {
	return (&defaultKeySerializer{typed: true}).serializeValue(v)
}

// segment shortens oversized serialized values. The digest keeps keys within the
// limits of external cache backends while staying deterministic.
func (s *defaultKeySerializer) segment(serialized string) string {
	if s.maxSegment <= 0 || len(serialized) <= s.maxSegment {
		return serialized
	}
	return "h:" + strconv.FormatUint(xxhash.Sum64String(serialized), 16)
}

// serializeValue handles individual argument serialization based on type.
func (s *defaultKeySerializer) serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	if k, ok := v.(Keyer); ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			return "nil"
		}
		if s.typed {
			return "key:" + strconv.Quote(k.CacheKey())
		}
		return k.CacheKey()
	}

	if t, ok := v.(time.Time); ok {
		if s.typed {
			return "time:" + t.UTC().Format(time.RFC3339Nano)
		}
		return t.UTC().Format(time.RFC3339Nano)
	}

	rv := reflect.ValueOf(v)
	rt := reflect.TypeOf(v)

	switch rt.Kind() {
	case reflect.Func:
		return fmt.Sprintf("func:%p", v)
	case reflect.Ptr:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return s.serializeList("slice", rv)
	case reflect.Array:
		return s.serializeList("array", rv)
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return s.serializeMap(rv)
	case reflect.Struct:
		return s.serializeStruct(rv, rt)
	case reflect.Chan:
		return fmt.Sprintf("chan:%p", v)
	case reflect.Interface:
		if rv.IsNil() {
			return "interface:nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	}

	if s.isBasicType(rt.Kind()) {
		if !s.typed {
			return fmt.Sprintf("%v", v)
		}
		if rt.Kind() == reflect.String {
			return strconv.Quote(rv.String())
		}
		return rt.String() + ":" + fmt.Sprintf("%v", v)
	}

	return s.jsonFallback(v)
}

func (s *defaultKeySerializer) serializeList(kind string, rv reflect.Value) string {
	length := rv.Len()
	parts := make([]string, length)

	for i := 0; i < length; i++ {
		parts[i] = s.serializeValue(rv.Index(i).Interface())
	}

	return fmt.Sprintf("%s[%d]:{%s}", kind, length, strings.Join(parts, ","))
}

// serializeMap handles map serialization with sorted keys for determinism
func (s *defaultKeySerializer) serializeMap(rv reflect.Value) string {
	pairs := make([]string, 0, rv.Len())

	iter := rv.MapRange()
	for iter.Next() {
		keyStr := s.serializeValue(iter.Key().Interface())
		valueStr := s.serializeValue(iter.Value().Interface())
		pairs = append(pairs, keyStr+"="+valueStr)
	}
	sort.Strings(pairs)

	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

// serializeStruct handles struct serialization with field names
func (s *defaultKeySerializer) serializeStruct(rv reflect.Value, rt reflect.Type) string {
	numFields := rv.NumField()
	parts := make([]string, 0, numFields)

	for i := 0; i < numFields; i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		fieldValue := rv.Field(i)
		if !fieldValue.CanInterface() {
			continue
		}

		parts = append(parts, field.Name+":"+s.serializeValue(fieldValue.Interface()))
	}

	return fmt.Sprintf("struct:{%s}", strings.Join(parts, ","))
}

func (s *defaultKeySerializer) isBasicType(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	default:
		return false
	}
}

// jsonFallback provides JSON serialization as a last resort
func (s *defaultKeySerializer) jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "fallback:" + reflect.TypeOf(v).String()
	}
	return "json:" + string(data)
}
