package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
)

// StaticClient is the no-browser fallback for sites that serve the chapter
// markup without JavaScript. It reuses the cookie and user-agent setup of
// the browser session and routes through a Cloudflare-bypass transport.
type StaticClient struct {
	opts   Options
	client *http.Client
}

func NewStaticClient(opts Options) (*StaticClient, error) {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	transport := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		ForceAttemptHTTP2: true,
	}
	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: roundTripper{
			base:         cloudflarebp.AddCloudFlareByPass(transport),
			ua:           opts.UserAgent,
			cookieHeader: CookieHeader(opts.Cookies),
			log:          opts.DebugLogger,
		},
	}

	return &StaticClient{opts: opts, client: client}, nil
}

type roundTripper struct {
	base         http.RoundTripper
	ua           string
	cookieHeader string
	log          interface{ Debugf(string, ...any) }
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.ua != "" {
		req.Header.Set("User-Agent", rt.ua)
	}

	if rt.cookieHeader != "" && req.Header.Get("Cookie") == "" {
		req.Header.Set("Cookie", rt.cookieHeader)
	}

	if rt.log != nil {
		rt.log.Debugf("HTTP %s %s\n", req.Method, req.URL.String())
	}

	return rt.base.RoundTrip(req)
}

func (c *StaticClient) Render(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &Error{Kind: KindTimeout, URL: target, Err: err}
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return "", &Error{Kind: KindTimeout, URL: target, Err: err}
		}

		return "", &Error{Kind: KindHTTP, URL: target, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if blockedStatus(resp.StatusCode) {
		return "", &Error{Kind: KindBlocked, URL: target, Status: resp.StatusCode}
	}
	if resp.StatusCode >= 400 {
		return "", &Error{Kind: KindHTTP, URL: target, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindHTTP, URL: target, Err: err}
	}

	html := string(body)
	if looksBlocked(html) {
		return "", &Error{Kind: KindBlocked, URL: target}
	}

	return html, nil
}
