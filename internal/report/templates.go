package report

// htmlTemplate is the main HTML template for the report
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Host}} - Load Test Report</title>
    <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
    <style>
        :root {
            --bg: #f8fafc;
            --card: #ffffff;
            --text: #1e293b;
            --muted: #64748b;
            --border: #e2e8f0;
            --primary: #3b82f6;
            --success: #22c55e;
            --warning: #f59e0b;
            --error: #ef4444;
        }
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;
            background: var(--bg);
            color: var(--text);
            line-height: 1.6;
        }
        .container { max-width: 1400px; margin: 0 auto; padding: 2rem; }
        header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 2rem; }
        header .meta { color: var(--muted); font-size: 0.9rem; }
        .status { padding: 0.5rem 1.25rem; border-radius: 999px; font-weight: 700; color: #fff; }
        .status.pass { background: var(--success); }
        .status.fail { background: var(--error); }
        .cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 1rem; margin-bottom: 2rem; }
        .card { background: var(--card); border: 1px solid var(--border); border-radius: 8px; padding: 1rem; }
        .card .label { color: var(--muted); font-size: 0.8rem; text-transform: uppercase; }
        .card .value { font-size: 1.6rem; font-weight: 700; }
        .card .unit { font-size: 0.9rem; color: var(--muted); margin-left: 0.25rem; }
        .section { margin-bottom: 2rem; }
        .section-title { font-size: 1.2rem; margin-bottom: 0.75rem; }
        table { width: 100%; border-collapse: collapse; background: var(--card); border: 1px solid var(--border); }
        th, td { padding: 0.5rem 0.75rem; text-align: right; border-bottom: 1px solid var(--border); font-size: 0.9rem; }
        th:nth-child(-n+2), td:nth-child(-n+2) { text-align: left; }
        tr.total td { font-weight: 700; }
        td.fail { color: var(--error); }
        .chart-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(420px, 1fr)); gap: 1rem; }
        .chart-container { background: var(--card); border: 1px solid var(--border); border-radius: 8px; padding: 1rem; }
        .chart-wrapper { position: relative; height: 260px; }
    </style>
</head>
<body>
<div class="container">
    <header>
        <div>
            <h1>{{.Host}}</h1>
            <div class="meta">
                <span>{{.StartTime.Format "2006-01-02 15:04:05"}}</span> |
                <span>{{formatDuration .Duration}}</span> |
                <span>{{.Users}} users @ {{printf "%.2f" .SpawnRate}}/s</span> |
                <span>{{range $i, $p := .Profiles}}{{if $i}}, {{end}}{{$p}}{{end}}</span>
            </div>
        </div>
        <div class="status {{if .Passed}}pass{{else}}fail{{end}}">
            {{if .Passed}}✓ PASSED{{else}}✗ FAILED{{end}}
        </div>
    </header>

    {{with .Stats}}
    <section class="cards">
        <div class="card"><div class="label">Total Requests</div><div class="value">{{.Total.Requests}}</div></div>
        <div class="card"><div class="label">Failures</div><div class="value">{{.Total.Failures}}<span class="unit">{{printf "%.2f" (mul .Total.FailRatio 100)}}%</span></div></div>
        <div class="card"><div class="label">Throughput</div><div class="value">{{printf "%.1f" .Total.RPS}}<span class="unit">req/s</span></div></div>
        <div class="card"><div class="label">Median</div><div class="value">{{formatLatency .Total.Median}}<span class="unit">ms</span></div></div>
        <div class="card"><div class="label">P95 Latency</div><div class="value">{{formatLatency .Total.P95}}<span class="unit">ms</span></div></div>
    </section>

    <section class="section">
        <h2 class="section-title">Request Statistics</h2>
        <table class="stats-table">
            <thead>
                <tr>
                    <th>Type</th><th>Name</th><th># Requests</th><th># Fails</th>
                    <th>Median (ms)</th><th>Average (ms)</th><th>Min (ms)</th><th>Max (ms)</th>
                    <th>95%ile (ms)</th><th>99%ile (ms)</th><th>Average size (bytes)</th><th>RPS</th><th>Failures/s</th>
                </tr>
            </thead>
            <tbody>
                {{range .Entries}}
                <tr>
                    <td>{{.Method}}</td><td>{{.Name}}</td><td>{{.Requests}}</td>
                    <td{{if .Failures}} class="fail"{{end}}>{{.Failures}}</td>
                    <td>{{formatLatency .Median}}</td><td>{{formatLatency .Average}}</td>
                    <td>{{formatLatency .Min}}</td><td>{{formatLatency .Max}}</td>
                    <td>{{formatLatency .P95}}</td><td>{{formatLatency .P99}}</td>
                    <td>{{.AvgSize}}</td><td>{{printf "%.2f" .RPS}}</td><td>{{printf "%.2f" .FailuresPerSec}}</td>
                </tr>
                {{end}}
                {{with .Total}}
                <tr class="total">
                    <td></td><td>{{.Name}}</td><td>{{.Requests}}</td>
                    <td{{if .Failures}} class="fail"{{end}}>{{.Failures}}</td>
                    <td>{{formatLatency .Median}}</td><td>{{formatLatency .Average}}</td>
                    <td>{{formatLatency .Min}}</td><td>{{formatLatency .Max}}</td>
                    <td>{{formatLatency .P95}}</td><td>{{formatLatency .P99}}</td>
                    <td>{{.AvgSize}}</td><td>{{printf "%.2f" .RPS}}</td><td>{{printf "%.2f" .FailuresPerSec}}</td>
                </tr>
                {{end}}
            </tbody>
        </table>
    </section>

    {{if .Failures}}
    <section class="section">
        <h2 class="section-title">Failures</h2>
        <table class="failures-table">
            <thead><tr><th>Method</th><th>Name</th><th>Error</th><th># Occurrences</th></tr></thead>
            <tbody>
                {{range .Failures}}
                <tr><td>{{.Method}}</td><td>{{.Name}}</td><td style="text-align:left">{{.Error}}</td><td>{{.Occurrences}}</td></tr>
                {{end}}
            </tbody>
        </table>
    </section>
    {{end}}
    {{end}}

    {{if .History}}
    <section class="section">
        <h2 class="section-title">Charts</h2>
        <div class="chart-grid">
            <div class="chart-container"><div class="chart-wrapper"><canvas id="rpsChart"></canvas></div></div>
            <div class="chart-container"><div class="chart-wrapper"><canvas id="latencyChart"></canvas></div></div>
            <div class="chart-container"><div class="chart-wrapper"><canvas id="usersChart"></canvas></div></div>
        </div>
    </section>
    {{end}}
</div>

<script>
    const timeSeriesData = {{.TimeSeriesJSON}};

    function lineChart(id, datasets) {
        const el = document.getElementById(id);
        if (!el || typeof Chart === 'undefined') {
            return;
        }
        new Chart(el.getContext('2d'), {
            type: 'line',
            data: {
                labels: timeSeriesData.map(d => d.elapsed.toFixed(0) + 's'),
                datasets: datasets.map(ds => Object.assign({tension: 0.3, pointRadius: 0, borderWidth: 2, fill: false}, ds)),
            },
            options: {
                responsive: true,
                maintainAspectRatio: false,
                interaction: {mode: 'index', intersect: false},
                scales: {y: {beginAtZero: true}},
            },
        });
    }

    lineChart('rpsChart', [
        {label: 'Requests/s', data: timeSeriesData.map(d => d.rps), borderColor: '#3b82f6'},
    ]);
    lineChart('latencyChart', [
        {label: 'Median (ms)', data: timeSeriesData.map(d => d.medianMs), borderColor: '#22c55e'},
        {label: '95%ile (ms)', data: timeSeriesData.map(d => d.p95Ms), borderColor: '#f59e0b'},
    ]);
    lineChart('usersChart', [
        {label: 'Users', data: timeSeriesData.map(d => d.users), borderColor: '#8b5cf6'},
    ]);
</script>
</body>
</html>
`
