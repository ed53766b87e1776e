package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"time"
)

// htmlData contains all data needed to render the HTML report.
type htmlData struct {
	*Document
	Duration       time.Duration
	TimeSeriesJSON template.JS
}

type chartPoint struct {
	Elapsed  float64 `json:"elapsed"`
	Users    int     `json:"users"`
	RPS      float64 `json:"rps"`
	MedianMs float64 `json:"medianMs"`
	P95Ms    float64 `json:"p95Ms"`
	Failures int64   `json:"failures"`
}

// GenerateHTML renders the report and writes it to a file.
func GenerateHTML(doc *Document, outputPath string) error {
	html, err := GenerateHTMLString(doc)
	if err != nil {
		return fmt.Errorf("failed to generate HTML: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}

	return nil
}

// GenerateHTMLString renders the report.
func GenerateHTMLString(doc *Document) (string, error) {
	if doc == nil || doc.Result == nil {
		return "", fmt.Errorf("result cannot be nil")
	}

	tmpl, err := template.New("report").Funcs(templateFuncs()).Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	series, err := chartJSON(doc)
	if err != nil {
		return "", fmt.Errorf("failed to convert time series: %w", err)
	}

	data := htmlData{
		Document:       doc,
		Duration:       doc.EndTime.Sub(doc.StartTime),
		TimeSeriesJSON: template.JS(series),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

func chartJSON(doc *Document) (string, error) {
	if len(doc.History) == 0 {
		return "[]", nil
	}

	points := make([]chartPoint, len(doc.History))
	for i, s := range doc.History {
		points[i] = chartPoint{
			Elapsed:  s.Timestamp.Sub(doc.StartTime).Seconds(),
			Users:    s.Users,
			RPS:      s.RPS,
			MedianMs: toMillis(s.Median),
			P95Ms:    toMillis(s.P95),
			Failures: s.Failures,
		}
	}

	b, err := json.Marshal(points)
	if err != nil {
		return "[]", err
	}
	return string(b), nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDuration": formatDuration,
		"formatLatency":  formatLatency,
		"mul":            mul,
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		if secs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	if mins == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, mins)
}

// formatLatency renders a latency in milliseconds.
func formatLatency(d time.Duration) string {
	if d == 0 {
		return "0"
	}
	ms := toMillis(d)
	if ms < 10 {
		return fmt.Sprintf("%.2f", ms)
	}
	return fmt.Sprintf("%.0f", ms)
}

func mul(a, b float64) float64 {
	return a * b
}
