package output

import (
	"io"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v5"
	"github.com/vbauerster/mpb/v5/decor"
)

// Progress draws the spawn and run-time bars of a run.
type Progress struct {
	p       *mpb.Progress
	users   *mpb.Bar
	clock   *mpb.Bar
	runTime time.Duration

	once sync.Once
}

// NewProgress starts the bars. The run-time bar is only drawn when runTime
// is bounded.
func NewProgress(w io.Writer, users int, runTime time.Duration) *Progress {
	p := mpb.New(
		mpb.WithOutput(w),
		mpb.WithWidth(40),
		mpb.WithRefreshRate(200*time.Millisecond),
	)

	pr := &Progress{p: p, runTime: runTime}
	pr.users = p.AddBar(int64(users),
		mpb.PrependDecorators(decor.Name("users", decor.WC{W: 8, C: decor.DidentRight})),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)
	if runTime > 0 {
		pr.clock = p.AddBar(int64(runTime/time.Millisecond),
			mpb.PrependDecorators(decor.Name("time", decor.WC{W: 8, C: decor.DidentRight})),
			mpb.AppendDecorators(decor.Percentage()),
		)
	}
	return pr
}

// Update moves the bars to the current spawn count and elapsed time.
func (pr *Progress) Update(spawned int, elapsed time.Duration) {
	pr.users.SetCurrent(int64(spawned))
	if pr.clock != nil {
		ms := elapsed / time.Millisecond
		if limit := pr.runTime / time.Millisecond; ms > limit {
			ms = limit
		}
		pr.clock.SetCurrent(int64(ms))
	}
}

// Finish stops the bars where they are and waits for the final render.
// Safe to call more than once.
func (pr *Progress) Finish() {
	pr.once.Do(func() {
		for _, b := range []*mpb.Bar{pr.users, pr.clock} {
			if b != nil && !b.Completed() {
				b.Abort(false)
			}
		}
		pr.p.Wait()
	})
}
