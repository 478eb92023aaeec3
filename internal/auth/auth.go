// Package auth performs the form login that unlocks protected pages.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/poolatlas/siteauditor/internal/browser"
)

// Credentials holds the login form credentials.
type Credentials struct {
	Email    string
	Password string
}

// FormLogin drives a browser through an email/password login form.
type FormLogin struct {
	LoginPath   string
	Credentials Credentials

	// ElementTimeout bounds each selector lookup; login pages that lack a
	// field should fail fast, not hang.
	ElementTimeout time.Duration

	// SettleDelay is how long to wait after submit for the post-login
	// redirect and session cookies.
	SettleDelay time.Duration
}

// NewFormLogin creates a form login flow with sane timeouts.
func NewFormLogin(loginPath string, creds Credentials) *FormLogin {
	return &FormLogin{
		LoginPath:      loginPath,
		Credentials:    creds,
		ElementTimeout: 3 * time.Second,
		SettleDelay:    2 * time.Second,
	}
}

// Login opens the login page, fills the form, and submits it. It reports
// whether the session looks authenticated. A false return with a nil error
// means the credentials were rejected; errors mean the flow itself broke.
// Neither is fatal to a crawl.
func (f *FormLogin) Login(ctx context.Context, b *browser.Browser, baseURL string) (bool, error) {
	if f.Credentials.Email == "" || f.Credentials.Password == "" {
		return false, fmt.Errorf("missing credentials")
	}

	loginURL := strings.TrimSuffix(baseURL, "/") + f.LoginPath

	page, err := b.NewPage(ctx)
	if err != nil {
		return false, err
	}
	defer page.Close()

	if err := page.Timeout(15 * time.Second).Navigate(loginURL); err != nil {
		return false, fmt.Errorf("failed to open login page: %w", err)
	}
	_ = page.Timeout(15 * time.Second).WaitLoad()

	emailField := f.findElement(page, []string{
		"input[type='email']",
		"input[name='email']",
		"input[name*='user']",
		"input#email",
		"input#username",
	})
	if emailField == nil {
		return false, fmt.Errorf("could not find email field on %s", loginURL)
	}
	// Clear any prefilled value, then type the credential either way.
	_ = emailField.SelectAllText()
	if err := emailField.Input(f.Credentials.Email); err != nil {
		return false, fmt.Errorf("could not fill email field: %w", err)
	}

	passwordField := f.findElement(page, []string{
		"input[type='password']",
		"input[name='password']",
		"input#password",
	})
	if passwordField == nil {
		return false, fmt.Errorf("could not find password field on %s", loginURL)
	}
	_ = passwordField.SelectAllText()
	if err := passwordField.Input(f.Credentials.Password); err != nil {
		return false, fmt.Errorf("could not fill password field: %w", err)
	}

	submit := f.findElement(page, []string{
		"button[type='submit']",
		"input[type='submit']",
	})
	if submit != nil {
		_ = submit.Click(proto.InputMouseButtonLeft, 1)
	} else {
		_ = passwordField.Type(input.Enter)
	}

	_ = page.Timeout(15 * time.Second).WaitLoad()
	select {
	case <-time.After(f.SettleDelay):
	case <-ctx.Done():
		return false, ctx.Err()
	}

	return f.looksAuthenticated(page), nil
}

// findElement tries selectors in order with a bounded lookup each.
func (f *FormLogin) findElement(page *rod.Page, selectors []string) *rod.Element {
	for _, selector := range selectors {
		el, err := page.Timeout(f.ElementTimeout).Element(selector)
		if err == nil && el != nil {
			return el
		}
	}
	return nil
}

// looksAuthenticated applies a heuristic: a session is assumed when the
// browser navigated away from the login page and no visible error message
// is shown. There is no reliable cross-site signal for login success.
func (f *FormLogin) looksAuthenticated(page *rod.Page) bool {
	info, err := page.Info()
	if err != nil {
		return false
	}

	current := strings.ToLower(info.URL)
	if strings.Contains(current, "login") || strings.Contains(current, "signin") {
		return false
	}

	errorSelectors := []string{
		".error",
		".alert-danger",
		".alert-error",
		"[class*='invalid']",
	}
	for _, selector := range errorSelectors {
		el, err := page.Timeout(500 * time.Millisecond).Element(selector)
		if err != nil || el == nil {
			continue
		}
		if text, err := el.Text(); err == nil && strings.TrimSpace(text) != "" {
			return false
		}
	}

	cookies, err := page.Cookies(nil)
	if err != nil {
		return true // navigated away and no error shown
	}
	return len(cookies) > 0
}
