package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/niuniu-server/niuniu-load/internal/config"
	"github.com/niuniu-server/niuniu-load/internal/engine"
	nhttp "github.com/niuniu-server/niuniu-load/internal/http"
	"github.com/niuniu-server/niuniu-load/internal/logging"
	"github.com/niuniu-server/niuniu-load/internal/metrics"
	"github.com/niuniu-server/niuniu-load/internal/output"
	"github.com/niuniu-server/niuniu-load/internal/report"
)

// ErrRequestsFailed is returned by run when at least one request failed.
var ErrRequestsFailed = errors.New("one or more requests failed")

const statusInterval = time.Second

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [profile...]",
		Short: "Run a load test with the built-in engine",
		Long: `Spawn simulated users and run their task tables against the target host.
With no profile arguments every profile runs, split by profile weight.

Examples:
  niuniu-load run -H http://localhost:3000 -u 100 -r 10 -t 60s
  niuniu-load run HallServerUser -u 20 -t 5m --html report.html
  niuniu-load run --config load.yaml --metrics-addr :9646`,
		RunE: runLoad,
	}

	addTargetFlags(cmd)
	cmd.Flags().IntP("users", "u", config.DefaultUsers, "Peak number of concurrent users")
	cmd.Flags().Float64P("spawn-rate", "r", config.DefaultSpawnRate, "Users spawned per second")
	cmd.Flags().StringP("run-time", "t", "", "Stop after this long, e.g. 30s, 5m, 1h (default: until interrupted)")
	cmd.Flags().StringP("config", "c", "", "YAML configuration file")
	cmd.Flags().String("json", "", "Write the JSON report to this file")
	cmd.Flags().String("html", "", "Write the HTML report to this file")
	cmd.Flags().String("metrics-addr", "", "Expose Prometheus metrics on this address, e.g. :9646")
	cmd.Flags().BoolP("quiet", "q", false, "Disable live progress output, show only the final verdict")
	return cmd
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("host", "H", config.DefaultHost, "Target host base URL")
	cmd.Flags().Duration("timeout", config.DefaultTimeout, "Per-request timeout")
}

// loadConfig reads --config (when set) and applies flag overrides. Flags
// only override file values when given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("users") {
		cfg.Users, _ = flags.GetInt("users")
	}
	if flags.Changed("spawn-rate") {
		cfg.SpawnRate, _ = flags.GetFloat64("spawn-rate")
	}
	if flags.Changed("run-time") {
		raw, _ := flags.GetString("run-time")
		d, err := config.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("--run-time: %w", err)
		}
		cfg.RunTime = config.Duration(d)
	}
	if flags.Changed("timeout") {
		d, _ := flags.GetDuration("timeout")
		cfg.Timeout = config.Duration(d)
	}
	if flags.Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logging.Setup(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	profiles, err := cfg.ResolveProfiles(args...)
	if err != nil {
		return err
	}

	jsonPath, _ := cmd.Flags().GetString("json")
	htmlPath, _ := cmd.Flags().GetString("html")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	quiet, _ := cmd.Flags().GetBool("quiet")

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := engine.Options{
		Host:      cfg.Host,
		Users:     cfg.Users,
		SpawnRate: cfg.SpawnRate,
		RunTime:   cfg.RunTime.Std(),
		Profiles:  profiles,
		Executor:  nhttp.NewClient(cfg.Host, nhttp.WithTimeout(cfg.Timeout.Std())),
		Events:    engine.DefaultEvents(logger),
		Logger:    &logger,
	}

	var runner *engine.Runner
	var registry *prometheus.Registry
	if metricsAddr != "" {
		registry = prometheus.NewRegistry()
		exporter, err := metrics.NewExporter(registry, func() int { return runner.ActiveUsers() })
		if err != nil {
			return err
		}
		opts.Recorders = append(opts.Recorders, exporter)
	}
	runner, err = engine.NewRunner(opts)
	if err != nil {
		return err
	}

	if registry != nil {
		go func() {
			if err := metrics.Serve(ctx, metricsAddr, registry); err != nil {
				logger.Error().Err(err).Str("addr", metricsAddr).Msg("metrics endpoint failed")
			}
		}()
		logger.Info().Str("addr", metricsAddr).Msg("serving prometheus metrics at /metrics")
	}

	console := output.NewConsole(output.ConsoleConfig{Writer: cmd.OutOrStdout(), Quiet: quiet})
	console.PrintHeader(engine.TestInfo{
		Host:     cfg.Host,
		Profiles: profileNames(opts),
		Users:    cfg.Users,
	}, cfg.SpawnRate, cfg.RunTime.Std())

	result, history, err := watch(ctx, runner, console, quiet, cfg)
	if err != nil {
		return err
	}

	console.PrintSummary(result)
	if err := writeReports(cmd, result, history, jsonPath, htmlPath, logger); err != nil {
		return err
	}

	if result.Failed() {
		return ErrRequestsFailed
	}
	return nil
}

// watch runs the test and samples its progress once per status interval.
func watch(ctx context.Context, runner *engine.Runner, console *output.Console, quiet bool, cfg *config.Config) (*engine.Result, []report.Sample, error) {
	var progress *output.Progress
	if console.IsTTY() && !quiet {
		progress = output.NewProgress(console.Writer(), cfg.Users, cfg.RunTime.Std())
	}

	type runResult struct {
		result *engine.Result
		err    error
	}
	done := make(chan runResult, 1)
	go func() {
		res, err := runner.Run(ctx)
		done <- runResult{res, err}
	}()

	history := report.NewHistory()
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snapshot := runner.Stats()
			history.Add(time.Now(), runner.ActiveUsers(), snapshot)
			if progress != nil {
				progress.Update(runner.SpawnedUsers(), runner.Elapsed())
			} else {
				console.PrintStatus(runner.Elapsed(), runner.ActiveUsers(), snapshot)
			}
		case r := <-done:
			if progress != nil {
				progress.Update(runner.SpawnedUsers(), runner.Elapsed())
				progress.Finish()
			}
			if r.err != nil {
				return nil, nil, r.err
			}
			history.Add(r.result.EndTime, 0, r.result.Stats)
			return r.result, history.Samples(), nil
		}
	}
}

func writeReports(cmd *cobra.Command, result *engine.Result, history []report.Sample, jsonPath, htmlPath string, logger zerolog.Logger) error {
	doc := report.NewDocument(result, history)

	if jsonPath != "" {
		if err := ensureDir(jsonPath); err != nil {
			return err
		}
		if err := report.SaveJSON(doc, jsonPath); err != nil {
			return err
		}
		logger.Info().Str("path", jsonPath).Msg("JSON report written")
	}
	if htmlPath != "" {
		if err := ensureDir(htmlPath); err != nil {
			return err
		}
		if err := report.GenerateHTML(doc, htmlPath); err != nil {
			return fmt.Errorf("failed to generate HTML report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report: %s\n", htmlPath)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

func profileNames(opts engine.Options) []string {
	names := make([]string, len(opts.Profiles))
	for i, p := range opts.Profiles {
		names[i] = p.Name
	}
	return names
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
