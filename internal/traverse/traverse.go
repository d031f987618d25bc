package traverse

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ranobe-tools/noveld/internal/extract"
	"github.com/ranobe-tools/noveld/internal/locator"
	"github.com/ranobe-tools/noveld/internal/render"
	"github.com/ranobe-tools/noveld/internal/storage"
	"github.com/ranobe-tools/noveld/internal/ui"
)

type Config struct {
	StartURL string

	Start       int // first chapter index, default 1
	End         int // 0 = download until failure
	MaxChapters int // hard ceiling for open-ended runs

	Delay      time.Duration // base inter-chapter delay, jittered ±30%
	RetryDelay time.Duration // initial backoff interval
	MaxRetries uint64        // retries after the first attempt

	// StrictNext terminates traversal when the page has no explicit next
	// link instead of guessing the next URL arithmetically. Guessing cannot
	// detect volume boundaries; this trades completeness for correctness.
	StrictNext bool
}

const (
	DefaultMaxChapters = 1000
	DefaultDelay       = 2 * time.Second
	DefaultRetryDelay  = 5 * time.Second
	DefaultMaxRetries  = 3

	delayJitter = 0.3
)

// Session is the mutable run state. Only the controller touches it; it is
// discarded at process exit, the files on disk are the only durable output.
type Session struct {
	Index          int
	Succeeded      int
	Failed         int
	FailedChapters []int
	LastErr        error
}

// Progress receives chapter completion events. *ui.ChapterProgress
// satisfies it; tests leave it nil.
type Progress interface {
	Advance(bytes int64)
}

type Controller struct {
	cfg      Config
	renderer render.Renderer
	writer   *storage.Writer
	log      *ui.Logger
	stats    *ui.Stats
	progress Progress

	rng *rand.Rand
}

func New(cfg Config, renderer render.Renderer, writer *storage.Writer, log *ui.Logger) *Controller {
	if cfg.Start < 1 {
		cfg.Start = 1
	}
	if cfg.MaxChapters < 1 {
		cfg.MaxChapters = DefaultMaxChapters
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	return &Controller{
		cfg:      cfg,
		renderer: renderer,
		writer:   writer,
		log:      log,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Controller) WithProgress(p Progress) *Controller {
	c.progress = p
	return c
}

func (c *Controller) WithStats(s *ui.Stats) *Controller {
	c.stats = s
	return c
}

// Run walks the chapter range sequentially: fetch, extract, persist,
// advance. It returns the final session state; the error is non-nil only
// for fatal conditions (disk errors, context cancellation), never for
// per-chapter failures.
func (c *Controller) Run(ctx context.Context) (Session, error) {
	sess := Session{Index: c.cfg.Start}

	cur, err := locator.Parse(c.cfg.StartURL)
	if err != nil && !errors.Is(err, locator.ErrNoPattern) {
		return sess, err
	}
	if !cur.IsOpaque() && c.cfg.Start != cur.Chapter {
		cur, err = cur.WithChapter(c.cfg.Start)
		if err != nil {
			return sess, err
		}
	}
	if cur.IsOpaque() {
		c.log.Warnf("URL does not match a known chapter pattern; relying on next links only\n")
	}

	lastIndex := c.cfg.Start + c.cfg.MaxChapters - 1
	if c.cfg.End > 0 && c.cfg.End < lastIndex {
		lastIndex = c.cfg.End
	}

	for sess.Index <= lastIndex {
		if err := ctx.Err(); err != nil {
			return sess, err
		}

		ch, err := c.fetchChapter(ctx, cur.URL(), sess.Index)
		if err != nil {
			if ctx.Err() != nil {
				return sess, ctx.Err()
			}

			sess.Failed++
			sess.FailedChapters = append(sess.FailedChapters, sess.Index)
			sess.LastErr = err
			if c.stats != nil {
				c.stats.Failed.Add(1)
			}
			c.log.Errorf("Chapter %d failed after retries: %v\n", sess.Index, err)

			if c.cfg.End == 0 {
				// Open-ended run: repeated failure is how we learn the
				// novel has ended.
				c.log.Infof("Stopping at chapter %d (assuming end of novel)\n", sess.Index-1)
				return sess, nil
			}

			// Bounded range: one dead chapter must not abort the rest,
			// but skipping needs a computable URL.
			next, nerr := cur.Next()
			if nerr != nil {
				c.log.Warnf("Cannot compute URL for chapter %d, stopping\n", sess.Index+1)
				return sess, nil
			}
			cur = next
			sess.Index++
			continue
		}

		path, werr := c.writer.Write(sess.Index, ch, cur.URL())
		if werr != nil {
			// Disk trouble does not heal with retries.
			sess.LastErr = werr
			return sess, werr
		}

		sess.Succeeded++
		written := chapterSize(path)
		if c.stats != nil {
			c.stats.Succeeded.Add(1)
			c.stats.TotalBytes.Add(written)
		}
		if c.progress != nil {
			c.progress.Advance(written)
		}

		title := ch.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", sess.Index)
		}
		c.log.Infof("Saved chapter %d: %s (%d paragraphs)\n", sess.Index, title, len(ch.Paragraphs))

		if sess.Index == lastIndex {
			break
		}

		next, ok := c.advance(cur, ch)
		if !ok {
			c.log.Infof("No next chapter available, stopping at chapter %d\n", sess.Index)
			return sess, nil
		}
		cur = next
		sess.Index++

		if err := c.wait(ctx, c.jitteredDelay()); err != nil {
			return sess, err
		}
	}

	return sess, nil
}

// fetchChapter renders and extracts one chapter with exponential backoff.
// Render and extract errors are both retryable; exhaustion surfaces the
// last error. Failed attempts leave diagnostics next to the novel dir.
func (c *Controller) fetchChapter(ctx context.Context, url string, index int) (extract.Chapter, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryDelay
	bo.MaxInterval = 8 * c.cfg.RetryDelay

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var ch extract.Chapter
	var lastHTML string

	op := func() error {
		html, err := c.renderer.Render(ctx, url)
		if err != nil {
			c.log.Warnf("Chapter %d render failed (%v), retrying\n", index, err)
			return err
		}
		lastHTML = html

		parsed, err := extract.Extract(html, url)
		if err != nil {
			c.log.Warnf("Chapter %d extract failed (%v), retrying\n", index, err)
			return err
		}

		ch = parsed
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		c.saveDiagnostics(index, lastHTML)
		return extract.Chapter{}, err
	}

	return ch, nil
}

// saveDiagnostics keeps the failed page around for the operator:
// a screenshot when the renderer can take one, the HTML snapshot when
// extraction was the part that failed. Fire-and-forget.
func (c *Controller) saveDiagnostics(index int, html string) {
	if snap, ok := c.renderer.(render.Snapshotter); ok {
		shot := filepath.Join(c.writer.NovelDir(), fmt.Sprintf("error_chapter_%d.png", index))
		if err := snap.Screenshot(shot); err != nil {
			c.log.Debugf("Screenshot for chapter %d failed: %v\n", index, err)
		}
	}

	if html != "" {
		snapshot := filepath.Join(c.writer.NovelDir(), fmt.Sprintf("error_chapter_%d.html", index))
		if err := os.WriteFile(snapshot, []byte(html), 0644); err != nil {
			c.log.Debugf("HTML snapshot for chapter %d failed: %v\n", index, err)
		}
	}
}

// advance picks the next chapter locator: the page's next link when
// present, otherwise the arithmetic increment unless StrictNext forbids it.
func (c *Controller) advance(cur locator.Locator, ch extract.Chapter) (locator.Locator, bool) {
	if ch.NextURL != "" {
		next, err := locator.Parse(ch.NextURL)
		if err != nil {
			next = locator.Opaque(ch.NextURL)
		}

		return next, true
	}

	if c.cfg.StrictNext {
		return locator.Locator{}, false
	}

	next, err := cur.Next()
	if err != nil {
		return locator.Locator{}, false
	}

	return next, true
}

// jitteredDelay varies the inter-chapter pause within ±30% of the base so
// the request cadence has no detectable period.
func (c *Controller) jitteredDelay() time.Duration {
	factor := 1 - delayJitter + 2*delayJitter*c.rng.Float64()

	return time.Duration(float64(c.cfg.Delay) * factor)
}

func (c *Controller) wait(ctx context.Context, d time.Duration) error {
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

func chapterSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}

	return info.Size()
}
