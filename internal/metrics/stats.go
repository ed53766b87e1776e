// Package metrics aggregates request statistics for a load test run.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram range: 1 microsecond to 1 hour, 3 significant figures.
const (
	histogramMin     = 1
	histogramMax     = 3600000000
	histogramSigFigs = 3
)

// TotalName is the name of the aggregated row.
const TotalName = "Aggregated"

type entryKey struct {
	method string
	name   string
}

type failureKey struct {
	method string
	name   string
	err    string
}

type entry struct {
	hist      *hdrhistogram.Histogram
	requests  int64
	failures  int64
	totalSize int64
	totalTime time.Duration
	min       time.Duration
	max       time.Duration
}

func newEntry() *entry {
	return &entry{hist: hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)}
}

func (e *entry) record(d time.Duration, size int64, failed bool) {
	micros := d.Microseconds()
	if micros < histogramMin {
		micros = histogramMin
	}
	if micros > histogramMax {
		micros = histogramMax
	}
	// RecordValue only fails for out-of-range values, which are clamped above.
	_ = e.hist.RecordValue(micros)

	if e.requests == 0 || d < e.min {
		e.min = d
	}
	if d > e.max {
		e.max = d
	}
	e.requests++
	e.totalTime += d
	e.totalSize += size
	if failed {
		e.failures++
	}
}

// Collector accumulates per-endpoint statistics.
//
// Collector is safe for concurrent use. HDR histograms are not, so every
// update happens under a single mutex; recording is cheap relative to an
// HTTP round trip.
type Collector struct {
	mu       sync.Mutex
	entries  map[entryKey]*entry
	total    *entry
	failures map[failureKey]int64

	startTime time.Time
	endTime   time.Time
}

// NewCollector creates a collector whose clock starts now.
func NewCollector() *Collector {
	return &Collector{
		entries:   make(map[entryKey]*entry),
		total:     newEntry(),
		failures:  make(map[failureKey]int64),
		startTime: time.Now(),
	}
}

// Record adds one request. A non-nil err marks it as a failure and is
// grouped by its message.
func (c *Collector) Record(method, name string, d time.Duration, size int64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := entryKey{method: method, name: name}
	e, ok := c.entries[key]
	if !ok {
		e = newEntry()
		c.entries[key] = e
	}

	failed := err != nil
	e.record(d, size, failed)
	c.total.record(d, size, failed)

	if failed {
		c.failures[failureKey{method: method, name: name, err: err.Error()}]++
	}
}

// Stop freezes the clock used for RPS.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.endTime.IsZero() {
		c.endTime = time.Now()
	}
}

// Reset clears all statistics and restarts the clock.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[entryKey]*entry)
	c.total = newEntry()
	c.failures = make(map[failureKey]int64)
	c.startTime = time.Now()
	c.endTime = time.Time{}
}

// Snapshot returns a consistent copy of the statistics, entries sorted by
// name then method.
func (c *Collector) Snapshot() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	end := c.endTime
	if end.IsZero() {
		end = time.Now()
	}
	elapsed := end.Sub(c.startTime)

	report := &Report{
		StartTime: c.startTime,
		Elapsed:   elapsed,
		Entries:   make([]EntryStats, 0, len(c.entries)),
		Total:     c.total.stats("", TotalName, elapsed),
	}

	for key, e := range c.entries {
		report.Entries = append(report.Entries, e.stats(key.method, key.name, elapsed))
	}
	sort.Slice(report.Entries, func(i, j int) bool {
		a, b := report.Entries[i], report.Entries[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Method < b.Method
	})

	for key, n := range c.failures {
		report.Failures = append(report.Failures, FailureStats{
			Method:      key.method,
			Name:        key.name,
			Error:       key.err,
			Occurrences: n,
		})
	}
	sort.Slice(report.Failures, func(i, j int) bool {
		a, b := report.Failures[i], report.Failures[j]
		if a.Occurrences != b.Occurrences {
			return a.Occurrences > b.Occurrences
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Error < b.Error
	})

	return report
}

func (e *entry) stats(method, name string, elapsed time.Duration) EntryStats {
	s := EntryStats{
		Method:   method,
		Name:     name,
		Requests: e.requests,
		Failures: e.failures,
		Min:      e.min,
		Max:      e.max,
	}
	if e.requests == 0 {
		return s
	}

	s.Median = time.Duration(e.hist.ValueAtQuantile(50)) * time.Microsecond
	s.P95 = time.Duration(e.hist.ValueAtQuantile(95)) * time.Microsecond
	s.P99 = time.Duration(e.hist.ValueAtQuantile(99)) * time.Microsecond
	s.Average = e.totalTime / time.Duration(e.requests)
	s.AvgSize = e.totalSize / e.requests
	s.FailRatio = float64(e.failures) / float64(e.requests)
	if elapsed > 0 {
		s.RPS = float64(e.requests) / elapsed.Seconds()
		s.FailuresPerSec = float64(e.failures) / elapsed.Seconds()
	}

	return s
}

// Report is a point-in-time view of the collector.
type Report struct {
	StartTime time.Time      `json:"startTime"`
	Elapsed   time.Duration  `json:"elapsed"`
	Entries   []EntryStats   `json:"entries"`
	Total     EntryStats     `json:"total"`
	Failures  []FailureStats `json:"failures,omitempty"`
}

// EntryStats are the statistics of one (method, name) pair.
type EntryStats struct {
	Method         string        `json:"method"`
	Name           string        `json:"name"`
	Requests       int64         `json:"requests"`
	Failures       int64         `json:"failures"`
	Median         time.Duration `json:"median"`
	Average        time.Duration `json:"average"`
	Min            time.Duration `json:"min"`
	Max            time.Duration `json:"max"`
	P95            time.Duration `json:"p95"`
	P99            time.Duration `json:"p99"`
	AvgSize        int64         `json:"avgSize"`
	RPS            float64       `json:"rps"`
	FailuresPerSec float64       `json:"failuresPerSec"`
	FailRatio      float64       `json:"failRatio"`
}

// FailureStats counts one distinct failure.
type FailureStats struct {
	Method      string `json:"method"`
	Name        string `json:"name"`
	Error       string `json:"error"`
	Occurrences int64  `json:"occurrences"`
}
