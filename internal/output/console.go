// Package output renders run progress and the final statistics tables.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/niuniu-server/niuniu-load/internal/engine"
	"github.com/niuniu-server/niuniu-load/internal/metrics"
)

const boxHorizontal = "━"

// Console writes human-readable run output.
type Console struct {
	writer  io.Writer
	scheme  *ColorScheme
	noColor bool
	isTTY   bool
	quiet   bool

	mu sync.Mutex
}

// ConsoleConfig contains configuration for Console.
type ConsoleConfig struct {
	Writer   io.Writer
	Quiet    bool
	NoColor  bool
	ForceTTY bool
}

// NewConsole creates a console writer. Colors are only used on a terminal.
func NewConsole(config ConsoleConfig) *Console {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	isTTY := config.ForceTTY || IsTerminal(config.Writer)
	noColor := config.NoColor || !isTTY || !supportsColors()

	scheme := DefaultColorScheme()
	if noColor {
		scheme = NoColorScheme()
	}
	return &Console{
		writer:  config.Writer,
		scheme:  scheme,
		noColor: noColor,
		isTTY:   isTTY,
		quiet:   config.Quiet,
	}
}

// IsTTY returns whether the output is a terminal.
func (c *Console) IsTTY() bool {
	return c.isTTY
}

// Writer returns the underlying writer.
func (c *Console) Writer() io.Writer {
	return c.writer
}

// PrintHeader prints the run banner.
func (c *Console) PrintHeader(info engine.TestInfo, spawnRate float64, runTime time.Duration) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	line := strings.Repeat(boxHorizontal, 56)
	duration := "until interrupted"
	if runTime > 0 {
		duration = formatDuration(runTime)
	}

	fmt.Fprintln(c.writer, c.scheme.Rule.Sprint(line))
	fmt.Fprintln(c.writer, c.scheme.Title.Sprintf("niuniu-load - %s", info.Host))
	fmt.Fprintln(c.writer, c.scheme.Rule.Sprint(line))
	fmt.Fprintf(c.writer, "Profiles:   %s\n", c.scheme.Highlight.Sprint(strings.Join(info.Profiles, ", ")))
	fmt.Fprintf(c.writer, "Users:      %s (spawn rate %.2f/s)\n", c.scheme.Name.Sprint(info.Users), spawnRate)
	fmt.Fprintf(c.writer, "Duration:   %s\n\n", c.scheme.Name.Sprint(duration))
}

// PrintStatus prints a one-line status update. Used when the progress bar
// is not shown.
func (c *Console) PrintStatus(elapsed time.Duration, activeUsers int, report *metrics.Report) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	t := report.Total
	fmt.Fprintf(c.writer, "[%s] Users: %d | Reqs: %s | RPS: %.1f | Fails: %d (%.1f%%) | Median: %sms\n",
		formatDuration(elapsed), activeUsers, formatNumber(t.Requests), t.RPS,
		t.Failures, t.FailRatio*100, millis(t.Median))
}

// PrintSummary prints the final tables and the pass/fail line.
func (c *Console) PrintSummary(result *engine.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.quiet {
		c.writeVerdict(result)
		return
	}

	line := strings.Repeat(boxHorizontal, 56)
	fmt.Fprintln(c.writer)
	fmt.Fprintln(c.writer, c.scheme.Rule.Sprint(line))
	fmt.Fprintf(c.writer, "%s - ran %s\n", c.scheme.Title.Sprint(result.Host),
		formatDuration(result.EndTime.Sub(result.StartTime)))
	fmt.Fprintln(c.writer, c.scheme.Rule.Sprint(line))
	fmt.Fprintln(c.writer)

	if result.Stats != nil {
		WriteStats(c.writer, result.Stats, c.scheme)
		WritePercentiles(c.writer, result.Stats, c.scheme)
		WriteFailures(c.writer, result.Stats, c.scheme)
	}
	c.writeVerdict(result)
}

func (c *Console) writeVerdict(result *engine.Result) {
	if result.Failed() {
		fmt.Fprintf(c.writer, "%s %s\n", ErrorIcon(c.noColor), c.scheme.Error.Sprint("FAILED"))
		return
	}
	fmt.Fprintf(c.writer, "%s %s\n", SuccessIcon(c.noColor), c.scheme.Success.Sprint("PASSED"))
}
