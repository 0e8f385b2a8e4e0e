package sqlstore

import (
	"bytes"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

func encodePayload(data map[string]any) ([]byte, error) {
	b, err := msgpack.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: encode payload: %w", err)
	}
	return b, nil
}

// decodePayload decodes integers as int64 and floats as float64 regardless of
// their wire width, and returns timestamps in UTC.
func decodePayload(b []byte) (map[string]any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.UseLooseInterfaceDecoding(true)

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("sqlstore: decode payload: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	for k, v := range data {
		data[k] = normalize(v)
	}
	return data, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case map[string]any:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	}
	return v
}
