// Package extract recovers structured data embedded in rendered pages.
package extract

import (
	"context"
	"strings"

	"igarchive/pkg/jsonval"
	"igarchive/pkg/logger"
)

// Match selects how object keys are compared against the search key
type Match int

const (
	Exact Match = iota
	Prefix
)

func (m Match) matches(candidate, key string) bool {
	if m == Prefix {
		return strings.HasPrefix(candidate, key)
	}
	return candidate == key
}

// FindByKey returns the first object, in depth-first document order, that
// directly owns a member matching key. An object's own keys are checked
// before any of its values are descended into.
func FindByKey(root jsonval.Value, key string, mode Match) (jsonval.Value, bool) {
	switch root.Kind() {
	case jsonval.Object:
		if _, owns := OwnedKey(root, key, mode); owns {
			return root, true
		}

		var found jsonval.Value
		root.Entries(func(_ string, child jsonval.Value) bool {
			if hit, ok := FindByKey(child, key, mode); ok {
				found = hit
				return false
			}
			return true
		})
		return found, found.Exists()

	case jsonval.Array:
		var found jsonval.Value
		root.Elements(func(_ int, child jsonval.Value) bool {
			if hit, ok := FindByKey(child, key, mode); ok {
				found = hit
				return false
			}
			return true
		})
		return found, found.Exists()
	}

	return jsonval.Value{}, false
}

// OwnedKey returns obj's first own key matching key under mode
func OwnedKey(obj jsonval.Value, key string, mode Match) (string, bool) {
	var hit string
	found := false
	obj.Entries(func(k string, _ jsonval.Value) bool {
		if mode.matches(k, key) {
			hit, found = k, true
		}
		return !found
	})
	return hit, found
}

// FindInDocuments searches each document in order and returns the first hit
func FindInDocuments(docs []jsonval.Value, key string, mode Match) (jsonval.Value, bool) {
	for _, doc := range docs {
		if hit, ok := FindByKey(doc, key, mode); ok {
			return hit, true
		}
	}
	return jsonval.Value{}, false
}

// Strategy is one way of resolving a record
type Strategy struct {
	Name string
	Find func(ctx context.Context) (jsonval.Value, bool)
}

// FirstOf runs strategies in order and returns the first success along with
// the name of the strategy that produced it. Misses are logged at debug level.
func FirstOf(ctx context.Context, log logger.Logger, strategies ...Strategy) (jsonval.Value, string, bool) {
	for _, s := range strategies {
		if ctx.Err() != nil {
			return jsonval.Value{}, "", false
		}
		if v, ok := s.Find(ctx); ok {
			return v, s.Name, true
		}
		log.DebugWithFields("Strategy missed", map[string]interface{}{"strategy": s.Name})
	}
	return jsonval.Value{}, "", false
}
