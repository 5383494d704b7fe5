package archiver

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"igarchive/pkg/capture"
	"igarchive/pkg/logger"
	"igarchive/pkg/storage"
)

// Page is a browsing context the archiver drives. Navigate returns once
// network activity has quiesced; captures made meanwhile land in the
// session's cache through the page's listener.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Cookies(ctx context.Context, url string) ([]*http.Cookie, error)
	UserAgent(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	Evaluate(ctx context.Context, script string, out any) error
}

// Options selects what a run archives
type Options struct {
	Highlights bool
	Stories    bool
	// Update stops walking a profile's highlights at the first one with
	// nothing new
	Update bool
}

// Result summarizes a run
type Result struct {
	RunID    string
	Targets  int
	Failed   int
	NewItems int
}

// Archiver walks targets through one browser session. It owns the
// session's response cache; nothing is shared between archivers.
type Archiver struct {
	primary  Page
	isolated Page
	cache    *capture.Cache
	store    *storage.Manager
	fetcher  *AssetFetcher
	opts     Options
	runID    string
	log      logger.Logger
	now      func() time.Time
}

// New creates an archiver over the primary page
func New(primary Page, cache *capture.Cache, store *storage.Manager, fetcher *AssetFetcher, opts Options, log logger.Logger) *Archiver {
	if log == nil {
		log = logger.GetLogger()
	}
	runID := uuid.NewString()
	return &Archiver{
		primary: primary,
		cache:   cache,
		store:   store,
		fetcher: fetcher,
		opts:    opts,
		runID:   runID,
		log:     log.WithField("run_id", runID),
		now:     time.Now,
	}
}

// WithIsolated adds a second, cookie-isolated page used first for
// standalone media lookups
func (a *Archiver) WithIsolated(p Page) *Archiver {
	a.isolated = p
	return a
}
