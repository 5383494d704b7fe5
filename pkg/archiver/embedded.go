package archiver

import (
	"context"

	"igarchive/pkg/extract"
	"igarchive/pkg/instagram"
	"igarchive/pkg/jsonval"
)

// embeddedScript collects the JSON blobs server-rendered into the page
const embeddedScript = `Array.from(document.querySelectorAll('script[type="application/json"]')).map(s => s.textContent)`

// embeddedDocuments pulls and parses every JSON script block of page.
// Blocks that do not parse are skipped.
func (a *Archiver) embeddedDocuments(ctx context.Context, page Page) []jsonval.Value {
	var blobs []string
	if err := page.Evaluate(ctx, embeddedScript, &blobs); err != nil {
		a.log.WithError(err).Debug("Could not read embedded page data")
		return nil
	}

	docs := make([]jsonval.Value, 0, len(blobs))
	for _, blob := range blobs {
		doc, err := jsonval.Parse([]byte(blob))
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

// findEmbedded returns the first object in page's markup owning key
func (a *Archiver) findEmbedded(ctx context.Context, page Page, key string, mode extract.Match) (jsonval.Value, bool) {
	return extract.FindInDocuments(a.embeddedDocuments(ctx, page), key, mode)
}

// embeddedStrategy recovers key from the page markup, records the owning
// object into the cache as a synthetic capture and resolves through
// lookup, so embedded and captured data take the same path.
func (a *Archiver) embeddedStrategy(page Page, key string, mode extract.Match, lookup func() (jsonval.Value, bool)) extract.Strategy {
	return extract.Strategy{
		Name: "embedded",
		Find: func(ctx context.Context) (jsonval.Value, bool) {
			obj, ok := a.findEmbedded(ctx, page, key, mode)
			if !ok {
				return jsonval.Value{}, false
			}
			name, _ := extract.OwnedKey(obj, key, mode)
			if p, ok := a.cache.RecordEmbedded(name, obj); ok {
				a.log.DebugWithFields("Recovered embedded payload", map[string]interface{}{
					"query": p.Name,
					"seq":   p.Seq,
				})
			}
			return lookup()
		},
	}
}

// lookupNode scans the cached payloads of query for the first element of
// data.<query>.<list> (unwrapped through nodeKey when set) accepted by match.
func (a *Archiver) lookupNode(query, list, nodeKey string, match func(jsonval.Value) bool) (jsonval.Value, bool) {
	var found jsonval.Value
	_, ok := a.cache.Lookup(query, func(body jsonval.Value) bool {
		entries, ok := body.Path("data", query, list)
		if !ok {
			return false
		}
		for _, e := range entries.Items() {
			node := e
			if nodeKey != "" {
				if node, ok = e.Get(nodeKey); !ok {
					continue
				}
			}
			if match(node) {
				found = node
				return true
			}
		}
		return false
	})
	return found, ok
}

func (a *Archiver) cachedReelsMedia(username string) (jsonval.Value, bool) {
	return a.lookupNode(instagram.QueryReelsMedia, "reels_media", "", func(n jsonval.Value) bool {
		return instagram.ReelOwnedBy(n, username)
	})
}

func (a *Archiver) cachedStoryConnection(username string) (jsonval.Value, bool) {
	return a.lookupNode(instagram.QueryReelsConnection, "edges", "node", func(n jsonval.Value) bool {
		return instagram.ReelOwnedBy(n, username)
	})
}

func (a *Archiver) cachedHighlight(id string) (jsonval.Value, bool) {
	return a.lookupNode(instagram.QueryReelsConnection, "edges", "node", func(n jsonval.Value) bool {
		return instagram.ReelHasID(n, id)
	})
}

func (a *Archiver) cachedMedia(code string) (jsonval.Value, bool) {
	return a.lookupNode(instagram.QueryMediaInfo, "items", "", func(n jsonval.Value) bool {
		return instagram.MediaHasCode(n, code)
	})
}

func cacheStrategy(name string, lookup func() (jsonval.Value, bool)) extract.Strategy {
	return extract.Strategy{
		Name: name,
		Find: func(context.Context) (jsonval.Value, bool) { return lookup() },
	}
}
