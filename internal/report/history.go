package report

import (
	"sync"
	"time"

	"github.com/niuniu-server/niuniu-load/internal/metrics"
)

// Sample is one point of the run's time series.
type Sample struct {
	Timestamp time.Time     `json:"timestamp"`
	Users     int           `json:"users"`
	Requests  int64         `json:"requests"`
	Failures  int64         `json:"failures"`
	RPS       float64       `json:"rps"`
	Median    time.Duration `json:"median"`
	P95       time.Duration `json:"p95"`
}

// History collects samples while a run is in progress.
type History struct {
	mu      sync.Mutex
	samples []Sample
	last    *Sample
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Add records the aggregated row of r. RPS is computed over the interval
// since the previous sample.
func (h *History) Add(at time.Time, users int, r *metrics.Report) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := Sample{
		Timestamp: at,
		Users:     users,
		Requests:  r.Total.Requests,
		Failures:  r.Total.Failures,
		RPS:       r.Total.RPS,
		Median:    r.Total.Median,
		P95:       r.Total.P95,
	}
	if h.last != nil {
		if dt := at.Sub(h.last.Timestamp).Seconds(); dt > 0 {
			s.RPS = float64(s.Requests-h.last.Requests) / dt
		}
	}
	h.samples = append(h.samples, s)
	h.last = &h.samples[len(h.samples)-1]
}

// Samples returns a copy of the recorded samples.
func (h *History) Samples() []Sample {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Sample, len(h.samples))
	copy(out, h.samples)
	return out
}
