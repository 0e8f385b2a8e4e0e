// Package cachemode resolves a cache preference into reads against the local
// cache, the server, or the store's own combined path. The branching is
// written once and shared by collection and document reads through Reader.
package cachemode

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Preference is the caller's choice between cached and live data.
type Preference string

const (
	Default    Preference = "default"
	CacheFirst Preference = "cache-first"
	CacheOnly  Preference = "cache-only"
	ServerOnly Preference = "server-only"
)

// ErrUnknownPreference is returned for preferences outside the four modes.
var ErrUnknownPreference = errors.New("cachemode: unknown preference")

// Preferences lists every supported mode.
func Preferences() []Preference {
	return []Preference{Default, CacheFirst, CacheOnly, ServerOnly}
}

// Parse maps a string onto a Preference. The empty string is Default.
func Parse(s string) (Preference, error) {
	p := Preference(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return Default, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPreference, s)
	}
	return p, nil
}

func (p Preference) Valid() bool {
	switch p {
	case Default, CacheFirst, CacheOnly, ServerOnly:
		return true
	}
	return false
}

func (p Preference) String() string { return string(p) }

// Source names the read path that produced a result.
type Source string

const (
	SourceCache    Source = "cache"
	SourceServer   Source = "server"
	SourceCombined Source = "combined"
)

// Reader is one record shape's set of read paths.
type Reader[T any] interface {
	FromCache(ctx context.Context) (T, error)
	FromServer(ctx context.Context) (T, error)
	Combined(ctx context.Context) (T, error)
	// Empty reports whether a cache result should be treated as a miss.
	Empty(result T) bool
}

// Funcs adapts plain functions to Reader. A nil IsEmpty treats every
// result as present.
type Funcs[T any] struct {
	Cache   func(ctx context.Context) (T, error)
	Server  func(ctx context.Context) (T, error)
	Default func(ctx context.Context) (T, error)
	IsEmpty func(result T) bool
}

func (f Funcs[T]) FromCache(ctx context.Context) (T, error)  { return f.Cache(ctx) }
func (f Funcs[T]) FromServer(ctx context.Context) (T, error) { return f.Server(ctx) }
func (f Funcs[T]) Combined(ctx context.Context) (T, error)   { return f.Default(ctx) }

func (f Funcs[T]) Empty(result T) bool {
	if f.IsEmpty == nil {
		return false
	}
	return f.IsEmpty(result)
}

// Resolve runs the read paths for pref:
//
//   - ServerOnly reads the server; errors propagate.
//   - CacheOnly reads the cache and never touches the server; errors propagate.
//   - CacheFirst reads the cache and, when that fails or is empty, the server.
//     Cache errors are never returned in this mode.
//   - Default delegates to the combined path.
//
// An empty pref is Default.
func Resolve[T any](ctx context.Context, pref Preference, r Reader[T]) (T, Source, error) {
	var zero T

	switch pref {
	case ServerOnly:
		v, err := r.FromServer(ctx)
		return v, SourceServer, err

	case CacheOnly:
		v, err := r.FromCache(ctx)
		return v, SourceCache, err

	case CacheFirst:
		v, err := r.FromCache(ctx)
		if err == nil && !r.Empty(v) {
			return v, SourceCache, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, SourceCache, ctxErr
		}
		v, err = r.FromServer(ctx)
		return v, SourceServer, err

	case Default, "":
		v, err := r.Combined(ctx)
		return v, SourceCombined, err
	}

	return zero, "", fmt.Errorf("%w: %q", ErrUnknownPreference, string(pref))
}
