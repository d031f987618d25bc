package ui

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/ranobe-tools/noveld/internal/util"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ChapterProgress renders one bar for the whole chapter range: chapters
// done, bytes written, elapsed time.
type ChapterProgress struct {
	p   *mpb.Progress
	bar *mpb.Bar

	total int64
	done  int64
	bytes int64

	start   time.Time
	elapsed atomic.Int64
	final   atomic.Bool
}

func NewChapterProgress(prefix string, total int) *ChapterProgress {
	p := mpb.New(
		mpb.WithWidth(52),
		mpb.WithOutput(os.Stdout),
		mpb.WithRefreshRate(120*time.Millisecond),
	)

	cp := &ChapterProgress{
		p:     p,
		total: int64(total),
		start: time.Now(),
	}

	cp.bar = p.New(
		int64(total),
		mpb.BarStyle().Rbound("]"),

		mpb.PrependDecorators(
			decor.Name(prefix+"  "),
		),

		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncWidth),
			decor.CountersNoUnit(" | %d/%d chapters", decor.WCSyncWidth),
			decor.Any(func(_ decor.Statistics) string {
				return " | " + util.Human(atomic.LoadInt64(&cp.bytes))
			}),

			decor.Any(func(_ decor.Statistics) string {
				if cp.final.Load() {
					return fmt.Sprintf(" | %ds", cp.elapsed.Load())
				}

				return fmt.Sprintf(" | %ds", int(time.Since(cp.start).Seconds()))
			}),
		),
	)

	return cp
}

// Advance records one finished chapter and the bytes it wrote.
func (cp *ChapterProgress) Advance(bytes int64) {
	if cp.final.Load() {
		return
	}

	atomic.AddInt64(&cp.bytes, bytes)
	done := atomic.AddInt64(&cp.done, 1)
	cp.bar.SetCurrent(done)
}

// SetTotal adjusts the bar when open-ended traversal learns its real end.
func (cp *ChapterProgress) SetTotal(total int) {
	if cp.final.Load() {
		return
	}

	atomic.StoreInt64(&cp.total, int64(total))
	cp.bar.SetTotal(int64(total), false)
}

func (cp *ChapterProgress) Close() {
	if cp.final.Swap(true) {
		return
	}

	cp.elapsed.Store(int64(time.Since(cp.start).Seconds()))
	done := atomic.LoadInt64(&cp.done)
	cp.bar.SetTotal(done, true)
	cp.p.Wait()
}
