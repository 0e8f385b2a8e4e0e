package repositorycache

import (
	"reflect"
	"strings"
	"unicode"
)

// CollectionName derives the default collection name of T: the snake_case
// type name with an "s" appended.
func CollectionName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := toSnake(t.Name())
	if name == "" {
		return ""
	}
	if strings.HasSuffix(name, "s") {
		return name
	}
	return name + "s"
}

// toSnake converts the provided string to snake_case using ASCII-aware rules.
// Punctuation from reflected names (generic suffixes, package paths) is
// collapsed so the result is safe as a collection name and cache key part.
func toSnake(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	lastUnderscore := false
	separator := func() {
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if b.Len() > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || nextLower {
					separator()
				}
			}
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false

		case unicode.IsLower(r), unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false

		default:
			separator()
		}
	}

	return strings.Trim(b.String(), "_")
}
