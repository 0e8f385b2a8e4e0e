package docstore

import "time"

type serverTimestamp struct{}

func (serverTimestamp) String() string { return "ServerTimestamp" }

// ServerTimestamp returns a sentinel field value that backends replace with
// their own clock when the write is applied.
func ServerTimestamp() any { return serverTimestamp{} }

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// ResolveServerTimestamps returns a copy of data with every sentinel,
// including those in nested maps, replaced by now in UTC.
func ResolveServerTimestamps(data map[string]any, now time.Time) map[string]any {
	if data == nil {
		return nil
	}
	now = now.UTC()
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch t := v.(type) {
		case serverTimestamp:
			out[k] = now
		case map[string]any:
			out[k] = ResolveServerTimestamps(t, now)
		default:
			out[k] = cloneValue(v)
		}
	}
	return out
}
