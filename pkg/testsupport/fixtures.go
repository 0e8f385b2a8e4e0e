// Package testsupport holds fixture loading and test doubles shared by the
// package tests.
package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/goliatone/go-docquery/docstore/memstore"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// Collections maps collection name to document id to document fields.
type Collections map[string]map[string]map[string]any

// Names returns the collection names in sorted order.
func (c Collections) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadCollections reads a JSON document fixture of the shape
// {"users": {"u1": {"name": "Ann"}}}.
func LoadCollections(t testing.TB, path string) Collections {
	t.Helper()

	var out Collections
	LoadFixtureJSON(t, path, &out)
	return out
}

// SeedMemstore copies every fixture document into store.
func SeedMemstore(store *memstore.Store, fixture Collections) {
	for collection, docs := range fixture {
		for id, fields := range docs {
			store.Seed(collection, id, fields)
		}
	}
}

// CompareWithGolden compares actual output with a golden file, creating the
// golden file when it does not exist yet.
func CompareWithGolden(t testing.TB, path string, actual []byte) {
	t.Helper()

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("Golden file %s does not exist, creating it", path)
			WriteGolden(t, path, actual)
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}

// WriteGolden writes test output to a golden file.
func WriteGolden(t testing.TB, path string, data []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write golden file to %s: %v", path, err)
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath constructs a path to a golden file relative to the testdata directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}
