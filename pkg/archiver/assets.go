package archiver

import (
	"context"
	"path/filepath"

	"igarchive/pkg/errors"
	"igarchive/pkg/instagram"
	"igarchive/pkg/logger"
	"igarchive/pkg/ratelimit"
	"igarchive/pkg/storage"
)

// fallbackAssetName is used when neither the response nor the URL names the file
const fallbackAssetName = "asset"

// AssetFetcher downloads media assets with a page's session identity
type AssetFetcher struct {
	client  *instagram.Client
	limiter ratelimit.Limiter
	store   *storage.Manager
	log     logger.Logger
}

// NewAssetFetcher creates a fetcher. A nil limiter disables pacing.
func NewAssetFetcher(client *instagram.Client, limiter ratelimit.Limiter, store *storage.Manager, log logger.Logger) *AssetFetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &AssetFetcher{
		client:  client,
		limiter: limiter,
		store:   store,
		log:     log,
	}
}

// Fetch downloads the best asset of item (video, else image) into dir and
// returns the written path. With a stem the file is stem plus the media
// extension; otherwise it is prefix plus the served name. Every failure is
// logged here and the asset is skipped.
func (f *AssetFetcher) Fetch(ctx context.Context, page Page, item instagram.MediaItem, dir, stem, prefix string) (string, error) {
	u, isVideo, ok := item.BestURL()
	if !ok {
		err := errors.NewExtractionMiss("asset URL of item " + item.ID)
		f.log.WithError(err).Warn("Item has no downloadable asset")
		return "", err
	}
	ext := ".jpg"
	if isVideo {
		ext = ".mp4"
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	req := instagram.AssetRequest{URL: u}
	var err error
	if req.Cookies, err = page.Cookies(ctx, u); err != nil {
		f.log.WithError(err).Debug("No session cookies for asset")
	}
	if req.UserAgent, err = page.UserAgent(ctx); err != nil {
		f.log.WithError(err).Debug("No user agent for asset")
	}
	if req.Referer, err = page.CurrentURL(ctx); err != nil {
		f.log.WithError(err).Debug("No referer for asset")
	}

	asset, err := f.client.OpenAsset(ctx, req)
	if err != nil {
		logger.LogAsset(f.log, u, "", 0, err)
		return "", err
	}
	defer asset.Body.Close()

	name := stem + ext
	if stem == "" {
		name = asset.FileName
		if name == "" {
			name = fallbackAssetName
		}
		if filepath.Ext(name) == "" {
			name += ext
		}
		name = prefix + name
	}

	n, err := f.store.WriteStream(dir, name, asset.Body)
	if err != nil {
		err = errors.NewTransientFetch(u, 0, err)
		logger.LogAsset(f.log, u, "", n, err)
		return "", err
	}

	path := filepath.Join(dir, name)
	logger.LogAsset(f.log, u, path, n, nil)
	return path, nil
}
