package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igarchive/pkg/config"
	"igarchive/pkg/logger"
)

func TestToHTTPCookies(t *testing.T) {
	in := []*network.Cookie{
		{Name: "sessionid", Value: "abc", Domain: ".instagram.com", Path: "/", Secure: true, HTTPOnly: true},
		nil,
		{Name: "", Value: "orphan"},
		{Name: "csrftoken", Value: "tok", Domain: ".instagram.com", Path: "/"},
	}

	out := toHTTPCookies(in)
	require.Len(t, out, 2)
	assert.Equal(t, "sessionid", out[0].Name)
	assert.Equal(t, "abc", out[0].Value)
	assert.True(t, out[0].Secure)
	assert.True(t, out[0].HttpOnly)
	assert.Equal(t, "csrftoken", out[1].Name)
}

func TestSettleDelay(t *testing.T) {
	assert.Equal(t, 2*time.Second, settleDelay(2*time.Second, 0))
	for i := 0; i < 50; i++ {
		d := settleDelay(time.Second, 500*time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 1500*time.Millisecond)
	}
}

func newBareTab() *Tab {
	return &Tab{
		log:          logger.NewNopLogger(),
		idleQuiet:    20 * time.Millisecond,
		inflight:     make(map[network.RequestID]struct{}),
		accepted:     make(map[network.RequestID]*network.Response),
		lastActivity: time.Now(),
	}
}

func TestTabTracksInflightRequests(t *testing.T) {
	tab := newBareTab()
	for _, id := range []network.RequestID{"1", "2", "3"} {
		tab.onEvent(&network.EventRequestWillBeSent{RequestID: id, Request: &network.Request{URL: "https://www.instagram.com/"}})
	}
	assert.True(t, tab.busy(), "three open requests")

	tab.onEvent(&network.EventLoadingFailed{RequestID: "1"})
	assert.False(t, tab.busy(), "long-polling connections are tolerated")

	tab.onEvent(&network.EventLoadingFinished{RequestID: "2"})
	tab.onEvent(&network.EventLoadingFinished{RequestID: "3"})
	assert.Empty(t, tab.inflight)
	assert.Zero(t, tab.pending)
}

func TestWaitIdle(t *testing.T) {
	tab := newBareTab()
	require.NoError(t, tab.waitIdle(context.Background()))

	for _, id := range []network.RequestID{"a", "b", "c"} {
		tab.onEvent(&network.EventRequestWillBeSent{RequestID: id, Request: &network.Request{}})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	err := tab.waitIdle(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

type fakeEvaluator struct {
	scripts []string
	result  bool
	err     error
}

func (f *fakeEvaluator) Evaluate(_ context.Context, script string, out any) error {
	f.scripts = append(f.scripts, script)
	if f.err != nil {
		return f.err
	}
	*(out.(*bool)) = f.result
	return nil
}

func TestSelectorExists(t *testing.T) {
	ev := &fakeEvaluator{result: true}
	found, err := selectorExists(context.Background(), ev, usernameField)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `document.querySelector("input[name=\"username\"]") !== null`, ev.scripts[0])

	ev = &fakeEvaluator{err: errors.New("target closed")}
	_, err = selectorExists(context.Background(), ev, loginError)
	assert.Error(t, err)
}

func TestAllocatorOptions(t *testing.T) {
	cfg := config.DefaultConfig().Browser
	base := len(allocatorOptions(config.BrowserConfig{}))

	cfg.UserDataDir = "/tmp/profile"
	cfg.ExecPath = "/usr/bin/chromium"
	assert.Equal(t, base+3, len(allocatorOptions(cfg)))
}
