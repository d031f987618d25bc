package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const staticChapterPage = `<html><body>
<div class="chapter-content"><p>Static pages still carry the whole chapter body.</p></div>
</body></html>`

func TestStaticClientRender(t *testing.T) {
	var gotUA, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCookie = r.Header.Get("Cookie")
		_, _ = w.Write([]byte(staticChapterPage))
	}))
	defer srv.Close()

	client, err := NewStaticClient(Options{
		UserAgent: "test-agent/1.0",
		Cookies:   []Cookie{{Name: "session", Value: "abc"}},
	})
	require.NoError(t, err)

	html, err := client.Render(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, staticChapterPage, html)
	require.Equal(t, "test-agent/1.0", gotUA)
	require.Equal(t, "session=abc", gotCookie)
}

func TestStaticClientBlockedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := NewStaticClient(Options{})
	require.NoError(t, err)

	_, err = client.Render(context.Background(), srv.URL)
	require.True(t, IsBlocked(err))

	var re *Error
	require.ErrorAs(t, err, &re)
	require.Equal(t, 403, re.Status)
}

func TestStaticClientChallengePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<title>Just a moment...</title>"))
	}))
	defer srv.Close()

	client, err := NewStaticClient(Options{})
	require.NoError(t, err)

	_, err = client.Render(context.Background(), srv.URL)
	require.True(t, IsBlocked(err))
}

func TestStaticClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewStaticClient(Options{})
	require.NoError(t, err)

	_, err = client.Render(context.Background(), srv.URL)
	require.True(t, !IsBlocked(err) && !IsTimeout(err))

	var re *Error
	require.ErrorAs(t, err, &re)
	require.Equal(t, KindHTTP, re.Kind)
	require.Equal(t, 500, re.Status)
}

func TestStaticClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client, err := NewStaticClient(Options{Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.Render(context.Background(), srv.URL)
	require.True(t, IsTimeout(err))
}

func TestStaticClientInvalidProxy(t *testing.T) {
	_, err := NewStaticClient(Options{ProxyURL: "http://bad url with spaces"})
	require.Error(t, err)
}
