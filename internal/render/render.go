package render

import (
	"context"
	"strings"
	"time"
)

// Renderer turns a chapter URL into the rendered HTML of its page.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Snapshotter is implemented by renderers that can dump diagnostics for a
// failed page. Best-effort; callers ignore the error.
type Snapshotter interface {
	Screenshot(path string) error
}

type Options struct {
	Headless  bool
	ProxyURL  string
	UserAgent string
	Cookies   []Cookie
	Timeout   time.Duration

	DebugLogger interface {
		Debugf(string, ...any)
	}
}

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	viewportWidth  = 1920
	viewportHeight = 1080
)

// contentWaitSelector matches any of the known reader content containers;
// navigation only counts as done once one of them is visible, not when the
// DOM is ready.
const contentWaitSelector = ".reader-container .text, .chapter-content, article .content, .reader__container, div[class*='reader'] p"

var blockedMarkers = []string{
	"just a moment",
	"attention required",
	"checking your browser",
	"cf-challenge",
	"access denied",
}

func looksBlocked(html string) bool {
	lower := strings.ToLower(html)
	for _, marker := range blockedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	return false
}

func blockedStatus(status int) bool {
	return status == 403 || status == 429 || status == 503
}
