package archiver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"igarchive/pkg/errors"
	"igarchive/pkg/extract"
	"igarchive/pkg/instagram"
	"igarchive/pkg/jsonval"
	"igarchive/pkg/logger"
	"igarchive/pkg/storage"
)

// BucketLayout names per-item directories; it sorts chronologically
const BucketLayout = "2006-01-02_15-04-05"

// FormatBucket returns the bucket directory name for an item taken at t
func FormatBucket(t time.Time) string {
	return t.Local().Format(BucketLayout)
}

type origin string

const (
	originHighlight origin = "highlight"
	originStory     origin = "story"
)

// Run archives refs in order. A target that fails is logged and counted;
// only fatal errors (authentication, a dead browser) or cancellation end
// the run early.
func (a *Archiver) Run(ctx context.Context, refs []string) (Result, error) {
	res := Result{RunID: a.runID}

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Targets++

		target, err := instagram.ParseTarget(ref)
		if err != nil {
			res.Failed++
			a.log.WithError(err).WarnWithFields("Skipping invalid target", map[string]interface{}{"ref": ref})
			continue
		}

		log := a.log.WithFields(map[string]interface{}{"target": target.String(), "kind": string(target.Kind)})
		log.Info("Archiving target")

		n, err := a.Archive(ctx, target)
		res.NewItems += n
		if err != nil {
			res.Failed++
			if errors.IsFatal(err) {
				return res, err
			}
			log.WithError(err).Warn("Target failed")
			continue
		}
		log.InfoWithFields("Target archived", map[string]interface{}{"new_items": n})
	}

	return res, nil
}

// Archive dispatches one normalized target and returns how many new items
// it produced
func (a *Archiver) Archive(ctx context.Context, t instagram.Target) (int, error) {
	switch t.Kind {
	case instagram.KindProfile:
		return a.archiveProfile(ctx, t, a.store.Path(t.Username))
	case instagram.KindStories:
		return a.archiveStories(ctx, t, a.store.Path(t.Username, "stories"))
	case instagram.KindHighlight:
		// the owner is only known once the reel is resolved
		return a.archiveHighlight(ctx, t, "")
	case instagram.KindMedia:
		return a.archiveMedia(ctx, t, a.store.Path("media", storage.SanitizeName(t.Code)))
	default:
		return 0, errors.NewInvalidTarget(t.Ref, "unknown kind")
	}
}

func (a *Archiver) navigate(ctx context.Context, page Page, url string) error {
	start := time.Now()
	err := page.Navigate(ctx, url)
	logger.LogNavigation(a.log, url, float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.NewTransientFetch(url, 0, err)
	}
	return nil
}

func (a *Archiver) archiveProfile(ctx context.Context, t instagram.Target, outDir string) (int, error) {
	log := a.log.WithField("username", t.Username)

	if err := a.navigate(ctx, a.primary, t.URL); err != nil {
		return 0, err
	}
	if err := a.store.EnsureDir(outDir); err != nil {
		return 0, errors.Wrap(errors.ErrorTypeFilesystem, err, "profile directory")
	}

	if body, ok := a.cache.Lookup(instagram.QueryUser, func(b jsonval.Value) bool {
		u, ok := b.Path("data", "user")
		if !ok {
			return false
		}
		p, ok := instagram.ParseUserProfile(u)
		return ok && strings.EqualFold(p.Username, t.Username)
	}); ok {
		user, _ := body.Path("data", "user")
		if err := a.store.WriteJSON(filepath.Join(outDir, "profile.json"), user); err != nil {
			log.WithError(err).Warn("Failed to write profile")
		}
	} else {
		log.WithError(errors.NewExtractionMiss("profile of "+t.Username)).Warn("Profile record not captured")
	}

	total := 0
	if a.opts.Highlights {
		n, err := a.archiveProfileHighlights(ctx, t.Username, filepath.Join(outDir, "highlights"))
		total += n
		if err != nil {
			return total, err
		}
	}

	if a.opts.Stories {
		n, err := a.archiveStories(ctx, instagram.Target{
			Kind:     instagram.KindStories,
			URL:      instagram.StoriesURL(t.Username),
			Username: t.Username,
			Ref:      t.Ref,
		}, filepath.Join(outDir, "stories"))
		total += n
		if err != nil {
			if errors.IsFatal(err) || ctx.Err() != nil {
				return total, err
			}
			log.WithError(err).Warn("Stories skipped")
		}
	}

	return total, nil
}

// archiveProfileHighlights walks the profile's highlight tray in order.
// In update mode the walk stops at the first highlight that produced
// nothing new, on the assumption that older ones are archived already.
func (a *Archiver) archiveProfileHighlights(ctx context.Context, username, dir string) (int, error) {
	log := a.log.WithField("username", username)

	tray, ok := a.cache.Lookup(instagram.QueryHighlights, func(b jsonval.Value) bool {
		return instagram.HighlightTrayOwnedBy(b, username)
	})
	if !ok {
		log.WithError(errors.NewExtractionMiss("highlights of "+username)).Warn("No highlights captured")
		return 0, nil
	}

	highlights := instagram.ParseHighlightTray(tray)
	log.InfoWithFields("Found highlights", map[string]interface{}{"count": len(highlights)})

	total := 0
	for _, h := range highlights {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		var (
			n   int
			err error
		)
		if node, ok := a.cachedHighlight(h.ID); ok {
			n, err = a.saveHighlight(ctx, node, h.ID, dir)
		} else {
			n, err = a.archiveHighlight(ctx, instagram.Target{
				Kind:        instagram.KindHighlight,
				URL:         h.URL,
				HighlightID: h.ID,
				Ref:         instagram.HighlightIDPrefix + h.ID,
			}, dir)
		}
		total += n

		if err != nil {
			if errors.IsFatal(err) || ctx.Err() != nil {
				return total, err
			}
			log.WithError(err).WarnWithFields("Highlight skipped", map[string]interface{}{"highlight": h.ID, "title": h.Title})
			continue
		}

		if a.opts.Update && n == 0 {
			log.InfoWithFields("Highlight up to date, stopping", map[string]interface{}{"highlight": h.ID, "title": h.Title})
			break
		}
	}

	return total, nil
}

// archiveHighlight navigates to a highlight and archives it under
// parentDir, or under its owner's highlights directory when parentDir is empty
func (a *Archiver) archiveHighlight(ctx context.Context, t instagram.Target, parentDir string) (int, error) {
	if err := a.navigate(ctx, a.primary, t.URL); err != nil {
		return 0, err
	}

	lookup := func() (jsonval.Value, bool) { return a.cachedHighlight(t.HighlightID) }
	node, via, ok := extract.FirstOf(ctx, a.log,
		cacheStrategy("cache", lookup),
		a.embeddedStrategy(a.primary, instagram.QueryReelsConnection, extract.Exact, lookup),
	)
	if !ok {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 0, errors.NewExtractionMiss("highlight " + t.HighlightID)
	}
	a.log.DebugWithFields("Resolved highlight", map[string]interface{}{"highlight": t.HighlightID, "via": via})

	return a.saveHighlight(ctx, node, t.HighlightID, parentDir)
}

func (a *Archiver) saveHighlight(ctx context.Context, node jsonval.Value, id, parentDir string) (int, error) {
	reel, ok := instagram.ParseReel(node)
	if !ok {
		return 0, errors.NewExtractionMiss("items of highlight " + id)
	}
	if parentDir == "" {
		parentDir = a.store.Path(storage.SanitizeName(reel.User.Username), "highlights")
	}

	dir := filepath.Join(parentDir, fmt.Sprintf("%s_%s", storage.SanitizeName(reel.TitleOr("")), id))
	if err := a.store.EnsureDir(dir); err != nil {
		return 0, errors.Wrap(errors.ErrorTypeFilesystem, err, "highlight directory")
	}
	if err := a.store.WriteJSON(filepath.Join(dir, "highlight.json"), node); err != nil {
		a.log.WithError(err).Warn("Failed to write highlight record")
	}

	a.log.InfoWithFields("Archiving highlight", map[string]interface{}{
		"highlight": id,
		"title":     reel.TitleOr(""),
		"items":     len(reel.Items),
	})
	return a.downloadItems(ctx, reel, dir, originHighlight)
}

func (a *Archiver) archiveStories(ctx context.Context, t instagram.Target, dir string) (int, error) {
	if err := a.navigate(ctx, a.primary, t.URL); err != nil {
		return 0, err
	}

	reelsMedia := func() (jsonval.Value, bool) { return a.cachedReelsMedia(t.Username) }
	connection := func() (jsonval.Value, bool) { return a.cachedStoryConnection(t.Username) }
	node, via, ok := extract.FirstOf(ctx, a.log,
		cacheStrategy("cache:reels_media", reelsMedia),
		cacheStrategy("cache:reels_media_connection", connection),
		a.embeddedStrategy(a.primary, instagram.QueryReelsMedia, extract.Prefix, func() (jsonval.Value, bool) {
			if v, ok := reelsMedia(); ok {
				return v, true
			}
			return connection()
		}),
	)
	if !ok {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 0, errors.NewExtractionMiss("stories of " + t.Username)
	}

	reel, ok := instagram.ParseReel(node)
	if !ok {
		return 0, errors.NewExtractionMiss("items of stories of " + t.Username)
	}
	a.log.InfoWithFields("Archiving stories", map[string]interface{}{
		"username": t.Username,
		"items":    len(reel.Items),
		"via":      via,
	})

	if err := a.store.EnsureDir(dir); err != nil {
		return 0, errors.Wrap(errors.ErrorTypeFilesystem, err, "stories directory")
	}
	if err := a.store.WriteJSON(filepath.Join(dir, "story.json"), node); err != nil {
		a.log.WithError(err).Warn("Failed to write story record")
	}

	return a.downloadItems(ctx, reel, dir, originStory)
}

func (a *Archiver) archiveMedia(ctx context.Context, t instagram.Target, dir string) (int, error) {
	if a.store.Exists(dir) {
		a.log.DebugWithFields("Media already archived", map[string]interface{}{"code": t.Code, "dir": dir})
		return 0, nil
	}
	if !a.DownloadMedia(ctx, t.Code, dir) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 0, errors.New(errors.ErrorTypeExtractionMiss, "media "+t.Code+" not archived")
	}
	return 1, nil
}

// downloadItems archives each item of reel into its own timestamp bucket
// under dir. An existing bucket means the item is already archived: it is
// skipped without any network access. Returns the number of new buckets.
func (a *Archiver) downloadItems(ctx context.Context, reel instagram.Reel, dir string, from origin) (int, error) {
	created := 0

	for _, item := range reel.Items {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		taken := item.TakenAt
		if taken.IsZero() {
			taken = a.now()
		}
		bucket := filepath.Join(dir, FormatBucket(taken))
		if a.store.Exists(bucket) {
			a.log.DebugWithFields("Item already archived", map[string]interface{}{"bucket": bucket})
			continue
		}

		if err := a.store.EnsureDir(bucket); err != nil {
			return created, errors.Wrap(errors.ErrorTypeFilesystem, err, "item directory")
		}
		created++

		if err := a.store.WriteJSON(filepath.Join(bucket, string(from)+".json"), item.Raw); err != nil {
			a.log.WithError(err).Warn("Failed to write item record")
		}
		// failures are logged by the fetcher; the item stays archived with its record
		_, _ = a.fetcher.Fetch(ctx, a.primary, item, bucket, string(from), "")

		for _, code := range item.SecondaryCodes {
			a.DownloadMedia(ctx, code, bucket)
		}
	}

	return created, nil
}
