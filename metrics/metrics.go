// Package metrics instruments reads, cache fallbacks, mutations and audit
// writes.
package metrics

import (
	"sync"
	"time"
)

// Recorder receives hook instrumentation. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// ReadCompleted records one collection or document read and the path
	// (cache, server, combined) that served it.
	ReadCompleted(kind, collection, source string, duration time.Duration, err error)
	// CacheFallback records a cache-first read that went to the server.
	CacheFallback(kind, collection string)
	MutationCompleted(op, collection string, duration time.Duration, err error)
	AuditFailed(collection string)
}

// Outcome labels an operation result.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// NoOp discards everything.
type NoOp struct{}

func (NoOp) ReadCompleted(string, string, string, time.Duration, error) {}
func (NoOp) CacheFallback(string, string)                               {}
func (NoOp) MutationCompleted(string, string, time.Duration, error)     {}
func (NoOp) AuditFailed(string)                                         {}

// OrNoOp returns r, or NoOp when r is nil.
func OrNoOp(r Recorder) Recorder {
	if r == nil {
		return NoOp{}
	}
	return r
}

// InMemory counts events for tests. Keys join labels with "/".
type InMemory struct {
	mu        sync.Mutex
	Reads     map[string]int
	Fallbacks map[string]int
	Mutations map[string]int
	Audits    map[string]int
}

func NewInMemory() *InMemory {
	return &InMemory{
		Reads:     make(map[string]int),
		Fallbacks: make(map[string]int),
		Mutations: make(map[string]int),
		Audits:    make(map[string]int),
	}
}

func (m *InMemory) ReadCompleted(kind, collection, source string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads[kind+"/"+collection+"/"+source+"/"+Outcome(err)]++
}

func (m *InMemory) CacheFallback(kind, collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fallbacks[kind+"/"+collection]++
}

func (m *InMemory) MutationCompleted(op, collection string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Mutations[op+"/"+collection+"/"+Outcome(err)]++
}

func (m *InMemory) AuditFailed(collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Audits[collection]++
}

// Count returns one counter under the lock.
func (m *InMemory) Count(counters map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return counters[key]
}
