package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session owns one headless browser for the lifetime of a whole run. Start
// acquires it, Close releases it; both are called exactly once, on every
// exit path.
type Session struct {
	opts Options

	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
}

func NewSession(opts Options) *Session {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	return &Session{opts: opts}
}

func (s *Session) Start() error {
	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
		return fmt.Errorf("install playwright: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}
	s.pw = pw

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.opts.Headless),
	}
	if s.opts.ProxyURL != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: s.opts.ProxyURL}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		s.Close()
		return fmt.Errorf("launch chromium: %w", err)
	}
	s.browser = browser

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(s.opts.UserAgent),
		Viewport:  &playwright.Size{Width: viewportWidth, Height: viewportHeight},
	})
	if err != nil {
		s.Close()
		return fmt.Errorf("create browser context: %w", err)
	}
	s.bctx = bctx

	if len(s.opts.Cookies) > 0 {
		if err := bctx.AddCookies(toOptionalCookies(s.opts.Cookies)); err != nil {
			s.Close()
			return fmt.Errorf("inject cookies: %w", err)
		}
		s.debugf("Injected %d cookies into browser context\n", len(s.opts.Cookies))
	}

	page, err := bctx.NewPage()
	if err != nil {
		s.Close()
		return fmt.Errorf("open page: %w", err)
	}
	s.page = page
	page.SetDefaultTimeout(float64(s.opts.Timeout.Milliseconds()))

	return nil
}

func (s *Session) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	if s.page != nil {
		keep(s.page.Close())
		s.page = nil
	}
	if s.bctx != nil {
		keep(s.bctx.Close())
		s.bctx = nil
	}
	if s.browser != nil {
		keep(s.browser.Close())
		s.browser = nil
	}
	if s.pw != nil {
		keep(s.pw.Stop())
		s.pw = nil
	}

	return first
}

// Render navigates to the URL, waits for a content-bearing element to become
// visible, and returns the rendered HTML.
func (s *Session) Render(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.page == nil {
		return "", errors.New("render session not started")
	}

	resp, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(s.opts.Timeout.Milliseconds())),
	})
	if err != nil {
		return "", s.classify(url, err)
	}

	if resp != nil {
		status := resp.Status()
		if blockedStatus(status) {
			return "", &Error{Kind: KindBlocked, URL: url, Status: status}
		}
		if status >= 400 {
			return "", &Error{Kind: KindHTTP, URL: url, Status: status}
		}
	}

	if err := s.waitForContent(); err != nil {
		return "", s.classify(url, err)
	}

	html, err := s.page.Content()
	if err != nil {
		return "", s.classify(url, err)
	}
	if looksBlocked(html) {
		return "", &Error{Kind: KindBlocked, URL: url}
	}

	return html, nil
}

func (s *Session) waitForContent() error {
	return s.page.Locator(contentWaitSelector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(s.opts.Timeout.Milliseconds())),
	})
}

func (s *Session) classify(url string, err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return &Error{Kind: KindTimeout, URL: url, Err: err}
	}

	return &Error{Kind: KindHTTP, URL: url, Err: err}
}

// Screenshot dumps the current page for diagnosis of a failed chapter.
func (s *Session) Screenshot(path string) error {
	if s.page == nil {
		return errors.New("render session not started")
	}

	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err == nil {
		s.debugf("Screenshot saved to %s\n", path)
	}

	return err
}

// ExportCookies opens a headful browser on the site, leaves it to the user
// to log in, then dumps the context cookies to a JSON file.
func ExportCookies(siteURL, outputPath string, loginWait time.Duration, opts Options) (int, error) {
	opts.Headless = false
	s := NewSession(opts)
	if err := s.Start(); err != nil {
		return 0, err
	}
	defer func() {
		_ = s.Close()
	}()

	if _, err := s.page.Goto(siteURL); err != nil {
		return 0, fmt.Errorf("open %s: %w", siteURL, err)
	}

	time.Sleep(loginWait)

	raw, err := s.bctx.Cookies()
	if err != nil {
		return 0, fmt.Errorf("read cookies: %w", err)
	}

	cookies := fromPlaywrightCookies(raw)
	if err := SaveCookies(outputPath, cookies); err != nil {
		return 0, fmt.Errorf("write %s: %w", outputPath, err)
	}

	return len(cookies), nil
}

func (s *Session) debugf(format string, args ...any) {
	if s.opts.DebugLogger != nil {
		s.opts.DebugLogger.Debugf(format, args...)
	}
}
