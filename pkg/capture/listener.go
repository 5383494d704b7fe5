package capture

import (
	"regexp"
	"strings"

	"igarchive/pkg/jsonval"
	"igarchive/pkg/logger"
)

// apiPath matches the GraphQL endpoints whose responses carry page data
var apiPath = regexp.MustCompile(`^https?://(www\.)?instagram\.com/(graphql/query|api/graphql)`)

// Listener filters a page's responses and feeds matching ones to a Cache.
// It is called from browser event goroutines and never fails the session.
type Listener struct {
	cache *Cache
	log   logger.Logger
}

// NewListener creates a listener feeding cache
func NewListener(cache *Cache, log logger.Logger) *Listener {
	return &Listener{cache: cache, log: log}
}

// Accepts reports whether a response is worth fetching the body for
func (l *Listener) Accepts(url, mimeType string) bool {
	return isJSON(mimeType) && apiPath.MatchString(url)
}

func isJSON(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	return mt == "application/json" || mt == "text/javascript" || strings.HasSuffix(mt, "+json")
}

// Handle classifies one response body and records it. It returns the
// recorded payload's query name, or "" if the response was dropped.
func (l *Listener) Handle(url string, status int, body []byte) string {
	if status < 200 || status > 299 {
		l.log.DebugWithFields("Ignoring non-2xx API response", map[string]interface{}{"url": url, "status": status})
		return ""
	}

	doc, err := jsonval.Parse(body)
	if err != nil {
		l.log.WithError(err).WarnWithFields("Unparseable API response", map[string]interface{}{"url": url})
		return ""
	}

	name, ok := QueryNameOf(doc)
	if !ok {
		return ""
	}

	p, err := l.cache.Record(name, doc)
	if err != nil {
		l.log.WithError(err).Warn("Capture kept in memory only")
	}
	logger.LogCapture(l.log, name, p.Seq, url)
	return name
}
