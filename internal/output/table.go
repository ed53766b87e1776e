package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/niuniu-server/niuniu-load/internal/metrics"
)

const nameWidth = 40

// WriteStats writes the request statistics table in the same column layout
// Locust prints at the end of a headless run.
func WriteStats(w io.Writer, report *metrics.Report, scheme *ColorScheme) {
	header := fmt.Sprintf("%-8s %-*s %9s %14s | %7s %7s %7s %7s | %8s | %8s %10s",
		"Type", nameWidth, "Name", "# reqs", "# fails", "Avg", "Min", "Max", "Med", "Avg size", "req/s", "failures/s")
	rule := separator(header)

	fmt.Fprintln(w, scheme.Header.Sprint(header))
	fmt.Fprintln(w, scheme.Rule.Sprint(rule))
	for _, e := range report.Entries {
		fmt.Fprintln(w, statsRow(e, scheme, scheme.Value))
	}
	fmt.Fprintln(w, scheme.Rule.Sprint(rule))
	fmt.Fprintln(w, statsRow(report.Total, scheme, scheme.Total))
	fmt.Fprintln(w)
}

func statsRow(e metrics.EntryStats, scheme *ColorScheme, c *color.Color) string {
	fails := fmt.Sprintf("%d(%.2f%%)", e.Failures, e.FailRatio*100)
	row := fmt.Sprintf("%-8s %-*s %9d %14s | %7s %7s %7s %7s | %8d | %8.2f %10.2f",
		e.Method, nameWidth, truncate(e.Name, nameWidth), e.Requests, fails,
		millis(e.Average), millis(e.Min), millis(e.Max), millis(e.Median),
		e.AvgSize, e.RPS, e.FailuresPerSec)
	if e.Failures > 0 {
		return scheme.FailRatio(e.FailRatio).Sprint(row)
	}
	return c.Sprint(row)
}

// WritePercentiles writes the response time percentile table.
func WritePercentiles(w io.Writer, report *metrics.Report, scheme *ColorScheme) {
	header := fmt.Sprintf("%-8s %-*s %7s %7s %7s %7s %9s",
		"Type", nameWidth, "Name", "50%", "95%", "99%", "100%", "# reqs")
	rule := separator(header)

	fmt.Fprintln(w, scheme.Title.Sprint("Response time percentiles (approximated)"))
	fmt.Fprintln(w, scheme.Header.Sprint(header))
	fmt.Fprintln(w, scheme.Rule.Sprint(rule))
	for _, e := range report.Entries {
		fmt.Fprintln(w, scheme.Value.Sprint(percentileRow(e)))
	}
	fmt.Fprintln(w, scheme.Rule.Sprint(rule))
	fmt.Fprintln(w, scheme.Total.Sprint(percentileRow(report.Total)))
	fmt.Fprintln(w)
}

func percentileRow(e metrics.EntryStats) string {
	return fmt.Sprintf("%-8s %-*s %7s %7s %7s %7s %9d",
		e.Method, nameWidth, truncate(e.Name, nameWidth),
		millis(e.Median), millis(e.P95), millis(e.P99), millis(e.Max), e.Requests)
}

// WriteFailures writes the grouped failure table. Nothing is written when
// there were no failures.
func WriteFailures(w io.Writer, report *metrics.Report, scheme *ColorScheme) {
	if len(report.Failures) == 0 {
		return
	}
	header := fmt.Sprintf("%-12s %-*s %s", "# occurrences", nameWidth+9, "Method Name", "Message")

	fmt.Fprintln(w, scheme.Title.Sprint("Error report"))
	fmt.Fprintln(w, scheme.Header.Sprint(header))
	fmt.Fprintln(w, scheme.Rule.Sprint(separator(header)))
	for _, f := range report.Failures {
		target := fmt.Sprintf("%s %s", f.Method, f.Name)
		fmt.Fprintln(w, scheme.Error.Sprintf("%-13s %-*s %s",
			formatNumber(f.Occurrences), nameWidth+9, truncate(target, nameWidth+9), f.Error))
	}
	fmt.Fprintln(w)
}

func separator(header string) string {
	return strings.Repeat("-", len(header))
}

// millis renders a duration as whole milliseconds, the unit Locust reports in.
func millis(d time.Duration) string {
	if d > 0 && d < time.Millisecond {
		return "<1"
	}
	return fmt.Sprintf("%d", (d + time.Millisecond/2).Milliseconds())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
}

// formatNumber formats a number with thousands separators.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	offset := len(str) % 3
	if offset > 0 {
		result.WriteString(str[:offset])
	}
	for i := offset; i < len(str); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(str[i : i+3])
	}
	return result.String()
}
