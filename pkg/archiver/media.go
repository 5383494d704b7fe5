package archiver

import (
	"context"
	"fmt"
	"path/filepath"

	"igarchive/pkg/errors"
	"igarchive/pkg/extract"
	"igarchive/pkg/instagram"
	"igarchive/pkg/jsonval"
)

// DownloadMedia archives the post or reel with shortcode code into outDir:
// media.json, caption.txt and every asset. It reports whether the record
// was resolved and written; individual asset failures do not count.
func (a *Archiver) DownloadMedia(ctx context.Context, code, outDir string) bool {
	log := a.log.WithField("code", code)

	// the page whose session resolved the record serves its assets
	page := a.primary

	strategies := []extract.Strategy{
		cacheStrategy("cache", func() (jsonval.Value, bool) { return a.cachedMedia(code) }),
	}
	if a.isolated != nil {
		strategies = append(strategies,
			a.mediaPageStrategy("isolated", a.isolated, code, &page),
			a.mediaPageStrategy("primary", a.primary, code, &page),
		)
	} else {
		strategies = append(strategies, a.mediaPageStrategy("primary", a.primary, code, &page))
	}

	record, via, ok := extract.FirstOf(ctx, log, strategies...)
	if !ok {
		log.WithError(errors.NewExtractionMiss("media " + code)).Warn("Media record not found")
		return false
	}

	item, ok := instagram.ParseMediaItem(record)
	if !ok || item.Code != code {
		log.WithError(errors.NewIntegrity(code, item.Code)).ErrorWithFields("Media record mismatch, download aborted", map[string]interface{}{"via": via})
		return false
	}

	if err := a.store.EnsureDir(outDir); err != nil {
		log.WithError(err).Error("Failed to create media directory")
		return false
	}
	if err := a.store.WriteJSON(filepath.Join(outDir, "media.json"), record); err != nil {
		log.WithError(err).Warn("Failed to write media record")
	}
	if item.Caption != "" {
		if err := a.store.WriteText(filepath.Join(outDir, "caption.txt"), item.Caption); err != nil {
			log.WithError(err).Warn("Failed to write caption")
		}
	}

	assets := item.Assets()
	log.InfoWithFields("Downloading media", map[string]interface{}{"assets": len(assets), "via": via})
	for i, asset := range assets {
		if ctx.Err() != nil {
			break
		}
		prefix := ""
		if len(assets) > 1 {
			prefix = fmt.Sprintf("%02d - ", i+1)
		}
		_, _ = a.fetcher.Fetch(ctx, page, asset, outDir, "", prefix)
	}

	return true
}

// mediaPageStrategy loads the post page on p and reads the record from its
// markup, falling back to anything captured during the navigation. When
// the embedded object holds no item with code, its first item is returned
// and left to the integrity check.
func (a *Archiver) mediaPageStrategy(name string, p Page, code string, used *Page) extract.Strategy {
	return extract.Strategy{
		Name: name,
		Find: func(ctx context.Context) (jsonval.Value, bool) {
			if err := a.navigate(ctx, p, instagram.PostURL(code)); err != nil {
				return jsonval.Value{}, false
			}

			obj, ok := a.findEmbedded(ctx, p, instagram.QueryMediaInfo, extract.Exact)
			if !ok {
				v, ok := a.cachedMedia(code)
				if ok {
					*used = p
				}
				return v, ok
			}

			a.cache.RecordEmbedded(instagram.QueryMediaInfo, obj)
			*used = p
			if v, ok := a.cachedMedia(code); ok {
				return v, true
			}
			items, ok := obj.Path(instagram.QueryMediaInfo, "items")
			if !ok || items.Len() == 0 {
				return jsonval.Value{}, false
			}
			return items.Items()[0], true
		},
	}
}
