package testsupport

import "sync"

// LogEntry is one call captured by RecordingLogger.
type LogEntry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

// RecordingLogger captures log calls for assertions.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (l *RecordingLogger) Debug(msg string, fields ...any) { l.record("debug", msg, fields) }
func (l *RecordingLogger) Info(msg string, fields ...any)  { l.record("info", msg, fields) }
func (l *RecordingLogger) Warn(msg string, fields ...any)  { l.record("warn", msg, fields) }
func (l *RecordingLogger) Error(msg string, fields ...any) { l.record("error", msg, fields) }

func (l *RecordingLogger) record(level, msg string, fields []any) {
	kv := make(map[string]any, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			kv[key] = fields[i+1]
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Fields: kv})
}

// Entries returns the captured calls at level, or all calls when level is empty.
func (l *RecordingLogger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []LogEntry
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
