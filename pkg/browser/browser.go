package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"

	"igarchive/pkg/capture"
	"igarchive/pkg/config"
	"igarchive/pkg/errors"
	"igarchive/pkg/instagram"
	"igarchive/pkg/logger"
)

// Browser is one Chrome process with a primary tab and, optionally, a tab
// in a separate browser context with its own cookie jar
type Browser struct {
	cfg config.BrowserConfig
	log logger.Logger

	allocCancel context.CancelFunc
	primary     *Tab
	isolated    *Tab
}

// Launch starts Chrome and opens the tabs. Both tabs feed listener.
func Launch(ctx context.Context, cfg config.BrowserConfig, listener *capture.Listener, debugRequests bool, log logger.Logger) (*Browser, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(cfg)...)
	b := &Browser{cfg: cfg, log: log, allocCancel: allocCancel}

	zl := log.GetZerolog()
	primaryCtx, primaryCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			zl.Debug().Str("source", "cdp").Msgf(format, args...)
		}),
	)
	primary, err := newTab(primaryCtx, primaryCancel, "primary", cfg, listener, debugRequests, log)
	if err != nil {
		allocCancel()
		return nil, errors.Wrap(errors.ErrorTypeBrowser, err, "failed to start browser")
	}
	b.primary = primary

	if cfg.Incognito {
		isoCtx, isoCancel := chromedp.NewContext(primaryCtx, chromedp.WithNewBrowserContext())
		isolated, err := newTab(isoCtx, isoCancel, "isolated", cfg, listener, debugRequests, log)
		if err != nil {
			b.Close(ctx)
			return nil, errors.Wrap(errors.ErrorTypeBrowser, err, "failed to open isolated context")
		}
		b.isolated = isolated
	}

	log.InfoWithFields("Browser started", map[string]interface{}{
		"headless":  cfg.Headless,
		"user_data": cfg.UserDataDir,
		"isolated":  b.isolated != nil,
	})
	return b, nil
}

func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1280, 800),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// Primary is the logged-in tab
func (b *Browser) Primary() *Tab {
	return b.primary
}

// Isolated is the cookie-isolated tab, or nil when disabled
func (b *Browser) Isolated() *Tab {
	return b.isolated
}

// Close logs out first when configured, then shuts Chrome down
func (b *Browser) Close(ctx context.Context) {
	if b.cfg.LogoutOnExit && b.primary != nil && ctx.Err() == nil {
		b.log.Info("Logging out of Instagram")
		if err := b.primary.Navigate(ctx, instagram.LogoutURL); err != nil {
			b.log.WithError(err).Warn("Logout failed")
		} else {
			sleep(ctx, 2*time.Second)
		}
	}

	if b.isolated != nil {
		b.isolated.close()
	}
	if b.primary != nil {
		b.primary.close()
	}
	b.allocCancel()
	b.log.Debug("Browser closed")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
