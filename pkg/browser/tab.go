package browser

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"igarchive/pkg/capture"
	"igarchive/pkg/config"
	"igarchive/pkg/logger"
)

// idleInflight is how many open requests still count as idle
// (long-polling connections never finish)
const idleInflight = 2

// Tab is a browser target. It tracks in-flight requests to detect network
// quiescence and hands API responses to the capture listener.
type Tab struct {
	name     string
	ctx      context.Context
	cancel   context.CancelFunc
	listener *capture.Listener
	log      logger.Logger
	debug    bool

	idleQuiet    time.Duration
	settleMin    time.Duration
	settleJitter time.Duration

	mu           sync.Mutex
	inflight     map[network.RequestID]struct{}
	accepted     map[network.RequestID]*network.Response
	pending      int
	lastActivity time.Time
	bodies       sync.WaitGroup
}

func newTab(ctx context.Context, cancel context.CancelFunc, name string, cfg config.BrowserConfig, listener *capture.Listener, debug bool, log logger.Logger) (*Tab, error) {
	t := &Tab{
		name:         name,
		ctx:          ctx,
		cancel:       cancel,
		listener:     listener,
		log:          log.WithField("tab", name),
		debug:        debug,
		idleQuiet:    cfg.IdleQuiet,
		settleMin:    cfg.SettleMin,
		settleJitter: cfg.SettleJitter,
		inflight:     make(map[network.RequestID]struct{}),
		accepted:     make(map[network.RequestID]*network.Response),
		lastActivity: time.Now(),
	}

	chromedp.ListenTarget(ctx, t.onEvent)

	if err := chromedp.Run(ctx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-US,en;q=0.9"}),
	); err != nil {
		cancel()
		return nil, err
	}
	return t, nil
}

func (t *Tab) onEvent(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.mu.Lock()
		t.inflight[e.RequestID] = struct{}{}
		t.lastActivity = time.Now()
		t.mu.Unlock()
		if t.debug {
			t.log.DebugWithFields("Request", map[string]interface{}{"method": e.Request.Method, "url": e.Request.URL})
		}

	case *network.EventResponseReceived:
		if t.debug {
			t.log.DebugWithFields("Response", map[string]interface{}{"status": e.Response.Status, "url": e.Response.URL, "mime": e.Response.MimeType})
		}
		if t.listener != nil && t.listener.Accepts(e.Response.URL, e.Response.MimeType) {
			t.mu.Lock()
			t.accepted[e.RequestID] = e.Response
			t.mu.Unlock()
		}

	case *network.EventLoadingFinished:
		t.mu.Lock()
		delete(t.inflight, e.RequestID)
		resp, ok := t.accepted[e.RequestID]
		delete(t.accepted, e.RequestID)
		if ok {
			t.pending++
			t.bodies.Add(1)
		}
		t.lastActivity = time.Now()
		t.mu.Unlock()
		if ok {
			// event handlers must not block, so the body is fetched separately
			go t.fetchBody(e.RequestID, resp)
		}

	case *network.EventLoadingFailed:
		t.mu.Lock()
		delete(t.inflight, e.RequestID)
		delete(t.accepted, e.RequestID)
		t.lastActivity = time.Now()
		t.mu.Unlock()
	}
}

func (t *Tab) fetchBody(id network.RequestID, resp *network.Response) {
	defer func() {
		t.mu.Lock()
		t.pending--
		t.lastActivity = time.Now()
		t.mu.Unlock()
		t.bodies.Done()
	}()

	c := chromedp.FromContext(t.ctx)
	if c == nil || c.Target == nil {
		return
	}
	body, err := network.GetResponseBody(id).Do(cdp.WithExecutor(t.ctx, c.Target))
	if err != nil {
		if t.ctx.Err() == nil {
			t.log.WithError(err).DebugWithFields("Failed to fetch response body", map[string]interface{}{"url": resp.URL})
		}
		return
	}
	t.listener.Handle(resp.URL, int(resp.Status), body)
}

// busy reports whether the page still has network work in progress.
// Pending body fetches count: their captures must land before the
// archiver reads the cache.
func (t *Tab) busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) > idleInflight || t.pending > 0
}

func (t *Tab) quietFor() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Since(t.lastActivity)
}

// waitIdle returns once the tab has not been busy for idleQuiet
func (t *Tab) waitIdle(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !t.busy() && t.quietFor() >= t.idleQuiet {
				return nil
			}
		}
	}
}

func settleDelay(min, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(jitter)))
}

// Navigate loads url and returns once the network has settled. There is
// no navigation timeout; ctx cancels.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	t.mu.Lock()
	t.lastActivity = time.Now()
	t.mu.Unlock()

	if err := t.run(ctx, chromedp.Navigate(url)); err != nil {
		return err
	}
	if err := t.waitIdle(ctx); err != nil {
		return err
	}
	return sleep(ctx, settleDelay(t.settleMin, t.settleJitter))
}

// Cookies returns the tab's cookies that apply to url
func (t *Tab) Cookies(ctx context.Context, url string) ([]*http.Cookie, error) {
	var cookies []*network.Cookie
	err := t.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().WithUrls([]string{url}).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return toHTTPCookies(cookies), nil
}

func toHTTPCookies(in []*network.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(in))
	for _, c := range in {
		if c == nil || c.Name == "" {
			continue
		}
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return out
}

// UserAgent is the user agent the page reports
func (t *Tab) UserAgent(ctx context.Context) (string, error) {
	var ua string
	err := t.run(ctx, chromedp.Evaluate(`navigator.userAgent`, &ua))
	return ua, err
}

// CurrentURL is the page's location
func (t *Tab) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	err := t.run(ctx, chromedp.Location(&loc))
	return loc, err
}

// Evaluate runs script in the page and decodes its result into out
func (t *Tab) Evaluate(ctx context.Context, script string, out any) error {
	return t.run(ctx, chromedp.Evaluate(script, out))
}

// run executes actions on the tab, stopping early if ctx is canceled
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(t.ctx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tab) close() {
	if err := chromedp.Cancel(t.ctx); err != nil {
		t.log.WithError(err).Debug("Tab close")
	}
	t.bodies.Wait()
	t.cancel()
}
