package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"igarchive/pkg/auth"
	"igarchive/pkg/errors"
)

const (
	usernameField = `input[name="username"]`
	passwordField = `input[name="password"]`
	submitButton  = `button[type="submit"]`
	loginError    = `p[data-testid="login-error-message"]`
)

type evaluator interface {
	Evaluate(ctx context.Context, script string, out any) error
}

// selectorExists checks for a node without waiting for it to appear
func selectorExists(ctx context.Context, page evaluator, selector string) (bool, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return false, err
	}
	var found bool
	script := fmt.Sprintf(`document.querySelector(%s) !== null`, quoted)
	if err := page.Evaluate(ctx, script, &found); err != nil {
		return false, err
	}
	return found, nil
}

// LoginIfNeeded fills in the login form when the current page shows one.
// It returns nil immediately for an already logged-in session.
func LoginIfNeeded(ctx context.Context, tab *Tab, provider auth.Provider) error {
	needed, err := selectorExists(ctx, tab, usernameField)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeBrowser, err, "failed to inspect page for login form")
	}
	if !needed {
		return nil
	}

	creds, err := provider.Credentials(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeAuth, err, "no credentials for login")
	}

	tab.log.InfoWithFields("Logging into Instagram", map[string]interface{}{
		"username": creds.Username,
	})

	if err := tab.run(ctx,
		chromedp.WaitVisible(usernameField, chromedp.ByQuery),
		chromedp.SendKeys(usernameField, creds.Username, chromedp.ByQuery),
		chromedp.SendKeys(passwordField, creds.Password, chromedp.ByQuery),
		chromedp.Click(submitButton, chromedp.ByQuery),
	); err != nil {
		return errors.Wrap(errors.ErrorTypeAuth, err, "failed to submit login form")
	}

	// the form posts in the background; give it time to start before
	// waiting for the network to settle
	if err := sleep(ctx, time.Second); err != nil {
		return err
	}
	if err := tab.waitIdle(ctx); err != nil {
		return err
	}

	failed, err := selectorExists(ctx, tab, loginError)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeBrowser, err, "failed to inspect login result")
	}
	if failed {
		return errors.NewAuth("login failed, check your credentials")
	}
	stillOnForm, err := selectorExists(ctx, tab, passwordField)
	if err == nil && stillOnForm {
		return errors.NewAuth("login form still shown after submit")
	}

	if err := provider.Remember(creds); err != nil {
		tab.log.WithError(err).Warn("Could not save credentials")
	}
	tab.log.Info("Logged in")
	return nil
}
