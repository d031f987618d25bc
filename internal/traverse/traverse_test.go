package traverse

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ranobe-tools/noveld/internal/render"
	"github.com/ranobe-tools/noveld/internal/storage"
	"github.com/ranobe-tools/noveld/internal/ui"
)

const testBase = "https://ranobelib.me/ru/book/1--test-novel"

func chapterURL(n int) string {
	return fmt.Sprintf("%s/v1/c%d", testBase, n)
}

func chapterPage(title, nextURL string) string {
	page := `<html><body><h1 class="chapter-title">` + title + `</h1>` +
		`<div class="chapter-content">` +
		`<p>Some chapter text long enough to survive the paragraph filter.</p>` +
		`</div>`
	if nextURL != "" {
		page += `<a rel="next" href="` + nextURL + `">Next</a>`
	}

	return page + `</body></html>`
}

type fakeRenderer struct {
	mu    sync.Mutex
	pages map[string]string
	fail  map[string]error
	calls []string
}

func (f *fakeRenderer) Render(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, url)
	if err, ok := f.fail[url]; ok {
		return "", err
	}
	if page, ok := f.pages[url]; ok {
		return page, nil
	}

	return "", &render.Error{Kind: render.KindHTTP, URL: url, Status: 404}
}

func (f *fakeRenderer) urls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.calls))
	copy(out, f.calls)

	return out
}

func testConfig(startURL string) Config {
	return Config{
		StartURL:   startURL,
		Delay:      time.Millisecond,
		RetryDelay: time.Millisecond,
		MaxRetries: 1,
	}
}

func newTestController(t *testing.T, cfg Config, r render.Renderer) (*Controller, *storage.Writer) {
	t.Helper()

	w, err := storage.NewWriter(t.TempDir(), "test-novel")
	require.NoError(t, err)

	return New(cfg, r, w, ui.NewLogger(false)), w
}

func TestRunBoundedRange(t *testing.T) {
	fake := &fakeRenderer{pages: map[string]string{
		chapterURL(1): chapterPage("One", ""),
		chapterURL(2): chapterPage("Two", ""),
		chapterURL(3): chapterPage("Three", ""),
	}}

	cfg := testConfig(chapterURL(1))
	cfg.End = 3

	ctrl, w := newTestController(t, cfg, fake)
	sess, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 3, sess.Succeeded)
	require.Zero(t, sess.Failed)
	require.Equal(t, []string{chapterURL(1), chapterURL(2), chapterURL(3)}, fake.urls())

	for i := 1; i <= 3; i++ {
		require.FileExists(t, filepath.Join(w.NovelDir(), "chapters", w.ChapterFilename(i)))
	}
}

func TestRunOpenEndedStopsAtFirstFailure(t *testing.T) {
	fake := &fakeRenderer{pages: map[string]string{
		chapterURL(1): chapterPage("One", ""),
		chapterURL(2): chapterPage("Two", ""),
	}}

	cfg := testConfig(chapterURL(1))
	cfg.MaxChapters = 10

	ctrl, w := newTestController(t, cfg, fake)
	sess, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, sess.Succeeded)
	require.Equal(t, 1, sess.Failed)
	require.Equal(t, []int{3}, sess.FailedChapters)
	require.Error(t, sess.LastErr)

	require.NoFileExists(t, filepath.Join(w.NovelDir(), "chapters", w.ChapterFilename(3)))
}

func TestRunBoundedSkipsFailedChapter(t *testing.T) {
	fake := &fakeRenderer{
		pages: map[string]string{
			chapterURL(1): chapterPage("One", ""),
			chapterURL(2): chapterPage("Two", ""),
			chapterURL(4): chapterPage("Four", ""),
		},
		fail: map[string]error{
			chapterURL(3): &render.Error{Kind: render.KindTimeout, URL: chapterURL(3)},
		},
	}

	cfg := testConfig(chapterURL(1))
	cfg.End = 4

	ctrl, w := newTestController(t, cfg, fake)
	sess, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 3, sess.Succeeded)
	require.Equal(t, []int{3}, sess.FailedChapters)
	require.True(t, render.IsTimeout(sess.LastErr))

	require.NoFileExists(t, filepath.Join(w.NovelDir(), "chapters", w.ChapterFilename(3)))
	require.FileExists(t, filepath.Join(w.NovelDir(), "chapters", w.ChapterFilename(4)))
}

func TestRunAllChaptersBlocked(t *testing.T) {
	fake := &fakeRenderer{fail: map[string]error{
		chapterURL(1): &render.Error{Kind: render.KindBlocked, URL: chapterURL(1), Status: 403},
		chapterURL(2): &render.Error{Kind: render.KindBlocked, URL: chapterURL(2), Status: 403},
	}}

	cfg := testConfig(chapterURL(1))
	cfg.End = 2

	ctrl, _ := newTestController(t, cfg, fake)
	sess, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	require.Zero(t, sess.Succeeded)
	require.Equal(t, 2, sess.Failed)
	require.True(t, render.IsBlocked(sess.LastErr))
}

func TestRunFollowsNextLinks(t *testing.T) {
	first := "https://example.com/read/the-first-part"
	second := "https://example.com/read/the-second-part"

	fake := &fakeRenderer{pages: map[string]string{
		first:  chapterPage("One", second),
		second: chapterPage("Two", ""),
	}}

	cfg := testConfig(first)
	cfg.MaxChapters = 10

	ctrl, w := newTestController(t, cfg, fake)
	sess, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, sess.Succeeded)
	require.Equal(t, []string{first, second}, fake.urls())

	require.FileExists(t, filepath.Join(w.NovelDir(), "chapters", w.ChapterFilename(1)))
	require.FileExists(t, filepath.Join(w.NovelDir(), "chapters", w.ChapterFilename(2)))
}

func TestRunStrictNextStopsWithoutLink(t *testing.T) {
	fake := &fakeRenderer{pages: map[string]string{
		chapterURL(1): chapterPage("One", ""),
		chapterURL(2): chapterPage("Two", ""),
	}}

	cfg := testConfig(chapterURL(1))
	cfg.End = 2
	cfg.StrictNext = true

	ctrl, _ := newTestController(t, cfg, fake)
	sess, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, sess.Succeeded)
	require.Equal(t, []string{chapterURL(1)}, fake.urls())
}

func TestRunMaxChaptersCeiling(t *testing.T) {
	pages := make(map[string]string)
	for i := 1; i <= 5; i++ {
		pages[chapterURL(i)] = chapterPage(fmt.Sprintf("Ch %d", i), "")
	}
	fake := &fakeRenderer{pages: pages}

	cfg := testConfig(chapterURL(1))
	cfg.MaxChapters = 2

	ctrl, _ := newTestController(t, cfg, fake)
	sess, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, sess.Succeeded)
	require.Len(t, fake.urls(), 2)
}

func TestRunStartOffset(t *testing.T) {
	fake := &fakeRenderer{pages: map[string]string{
		chapterURL(5): chapterPage("Five", ""),
		chapterURL(6): chapterPage("Six", ""),
	}}

	cfg := testConfig(chapterURL(1))
	cfg.Start = 5
	cfg.End = 6

	ctrl, w := newTestController(t, cfg, fake)
	sess, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, sess.Succeeded)
	require.FileExists(t, filepath.Join(w.NovelDir(), "chapters", w.ChapterFilename(5)))
	require.FileExists(t, filepath.Join(w.NovelDir(), "chapters", w.ChapterFilename(6)))
}

func TestRunCanceledContext(t *testing.T) {
	fake := &fakeRenderer{pages: map[string]string{
		chapterURL(1): chapterPage("One", ""),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := testConfig(chapterURL(1))
	cfg.End = 1

	ctrl, _ := newTestController(t, cfg, fake)
	sess, err := ctrl.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, sess.Succeeded)
}

func TestRunKeepsHTMLSnapshotOnExtractFailure(t *testing.T) {
	fake := &fakeRenderer{pages: map[string]string{
		chapterURL(1): `<html><body><span>challenge page</span></body></html>`,
	}}

	cfg := testConfig(chapterURL(1))
	cfg.End = 1

	ctrl, w := newTestController(t, cfg, fake)
	sess, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	require.Zero(t, sess.Succeeded)
	require.Equal(t, 1, sess.Failed)
	require.FileExists(t, filepath.Join(w.NovelDir(), "error_chapter_1.html"))
}

func TestRunRetriesBeforeFailing(t *testing.T) {
	fake := &fakeRenderer{fail: map[string]error{
		chapterURL(1): &render.Error{Kind: render.KindHTTP, URL: chapterURL(1), Status: 500},
	}}

	cfg := testConfig(chapterURL(1))
	cfg.End = 1
	cfg.MaxRetries = 2

	ctrl, _ := newTestController(t, cfg, fake)
	sess, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, sess.Failed)
	// initial attempt plus two retries
	require.Len(t, fake.urls(), 3)
}

func TestRunUpdatesStats(t *testing.T) {
	fake := &fakeRenderer{pages: map[string]string{
		chapterURL(1): chapterPage("One", ""),
		chapterURL(2): chapterPage("Two", ""),
	}}

	cfg := testConfig(chapterURL(1))
	cfg.End = 3

	stats := &ui.Stats{}
	ctrl, _ := newTestController(t, cfg, fake)
	sess, err := ctrl.WithStats(stats).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, int64(sess.Succeeded), stats.Succeeded.Load())
	require.Equal(t, int64(sess.Failed), stats.Failed.Load())
	require.Positive(t, stats.TotalBytes.Load())
}

type recordingProgress struct {
	advances int
	bytes    int64
}

func (p *recordingProgress) Advance(n int64) {
	p.advances++
	p.bytes += n
}

func TestRunReportsProgress(t *testing.T) {
	fake := &fakeRenderer{pages: map[string]string{
		chapterURL(1): chapterPage("One", ""),
		chapterURL(2): chapterPage("Two", ""),
	}}

	cfg := testConfig(chapterURL(1))
	cfg.End = 2

	progress := &recordingProgress{}
	ctrl, _ := newTestController(t, cfg, fake)
	sess, err := ctrl.WithProgress(progress).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, sess.Succeeded)
	require.Equal(t, 2, progress.advances)
	require.Positive(t, progress.bytes)
}
