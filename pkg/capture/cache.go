// Package capture records the structured API responses a browser session
// observes and indexes them by query name.
package capture

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"igarchive/pkg/jsonval"
	"igarchive/pkg/logger"
	"igarchive/pkg/storage"
)

// Payload is one captured response body
type Payload struct {
	Name       string
	Seq        int64
	CapturedAt time.Time
	Body       jsonval.Value
	// File is where the payload was persisted; empty if the write failed
	File string
}

// Persister writes captured payloads to disk
type Persister interface {
	WriteJSON(path string, v jsonval.Value) error
}

// Cache is an append-only, per-query-name log of captured payloads.
// Every payload is also written to dir as <epoch-ms>_<name>_<seq>.json.
type Cache struct {
	dir   string
	store Persister
	log   logger.Logger
	now   func() time.Time

	mu      sync.RWMutex
	seq     int64
	entries map[string][]Payload
	total   int
}

// NewCache creates a cache persisting into dir
func NewCache(dir string, store Persister, log logger.Logger) *Cache {
	return &Cache{
		dir:     dir,
		store:   store,
		log:     log,
		now:     time.Now,
		entries: make(map[string][]Payload),
	}
}

// Record appends body under name and persists it. The payload stays in
// memory even when the disk write fails; the error is returned for logging.
// In-memory order always matches sequence order.
func (c *Cache) Record(name string, body jsonval.Value) (Payload, error) {
	c.mu.Lock()
	c.seq++
	p := Payload{
		Name:       name,
		Seq:        c.seq,
		CapturedAt: c.now(),
		Body:       body,
	}
	idx := len(c.entries[name])
	c.entries[name] = append(c.entries[name], p)
	c.total++
	c.mu.Unlock()

	file := filepath.Join(c.dir, fmt.Sprintf("%d_%s_%d.json", p.CapturedAt.UnixMilli(), storage.SanitizeName(name), p.Seq))
	if err := c.store.WriteJSON(file, body); err != nil {
		return p, fmt.Errorf("persist capture %s #%d: %w", name, p.Seq, err)
	}

	p.File = file
	c.mu.Lock()
	c.entries[name][idx].File = file
	c.mu.Unlock()
	return p, nil
}

// RecordEmbedded stores an object recovered from page markup as if it had
// been captured under name: it is wrapped as {"data": obj}. An empty name
// falls back to the one derived from obj's keys.
func (c *Cache) RecordEmbedded(name string, obj jsonval.Value) (Payload, bool) {
	if name == "" {
		var ok bool
		if name, ok = nameFromKeys(obj); !ok {
			return Payload{}, false
		}
	}
	wrapped, err := jsonval.Wrap("data", obj)
	if err != nil {
		c.log.WithError(err).Warn("Failed to wrap embedded payload")
		return Payload{}, false
	}
	p, err := c.Record(name, wrapped)
	if err != nil {
		c.log.WithError(err).Warn("Embedded payload kept in memory only")
	}
	return p, true
}

// Lookup returns the body of the first payload under name, in capture
// order, for which match returns true.
func (c *Cache) Lookup(name string, match func(jsonval.Value) bool) (jsonval.Value, bool) {
	for _, p := range c.Payloads(name) {
		if match(p.Body) {
			return p.Body, true
		}
	}
	return jsonval.Value{}, false
}

// Payloads returns a snapshot of name's sequence
func (c *Cache) Payloads(name string) []Payload {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Payload, len(c.entries[name]))
	copy(out, c.entries[name])
	return out
}

// Len is the total number of captured payloads
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.total
}

// QueryNameOf derives the query name of a response body: the first key of
// its "data" object that follows the xdt_api convention, else the first key.
func QueryNameOf(body jsonval.Value) (string, bool) {
	data, ok := body.Get("data")
	if !ok {
		return "", false
	}
	return nameFromKeys(data)
}

const preferredPrefix = "xdt_api"

func nameFromKeys(obj jsonval.Value) (string, bool) {
	keys := obj.Keys()
	for _, k := range keys {
		if strings.HasPrefix(k, preferredPrefix) {
			return k, true
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	return keys[0], true
}
