package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/niuniu-server/niuniu-load/internal/config"
	nhttp "github.com/niuniu-server/niuniu-load/internal/http"
	"github.com/niuniu-server/niuniu-load/internal/locust"
	"github.com/niuniu-server/niuniu-load/internal/logging"
	"github.com/niuniu-server/niuniu-load/internal/scenario"
)

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker [profile...]",
		Short: "Run as a Locust worker attached to an external master",
		Long: `Connect to a Locust master and register the profiles as user classes.
The master owns spawning and statistics. Its locustfile must declare user
classes with the same names as the profiles.

Example:
  locust -f locustfile.py --master
  niuniu-load worker --master-host 127.0.0.1 -H http://localhost:3000`,
		RunE: runWorker,
	}

	addTargetFlags(cmd)
	cmd.Flags().String("master-host", "127.0.0.1", "Locust master host")
	cmd.Flags().Int("master-port", locust.DefaultMasterPort, "Locust master port")
	return cmd
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	cfg.Host, _ = cmd.Flags().GetString("host")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	cfg.Timeout = config.Duration(timeout)
	cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.Setup(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	profiles, err := scenario.Select(args...)
	if err != nil {
		return err
	}

	masterHost, _ := cmd.Flags().GetString("master-host")
	masterPort, _ := cmd.Flags().GetInt("master-port")

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return locust.Run(ctx, locust.Options{
		MasterHost: masterHost,
		MasterPort: masterPort,
		Profiles:   profiles,
		Executor:   nhttp.NewClient(cfg.Host, nhttp.WithTimeout(cfg.Timeout.Std())),
		Logger:     logger,
	})
}
