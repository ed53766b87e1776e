// Command niuniu-mock serves an in-memory copy of the game server API for
// local load test dry runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/niuniu-server/niuniu-load/internal/logging"
	"github.com/niuniu-server/niuniu-load/internal/mockserver"
)

const shutdownTimeout = 2 * time.Second

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "niuniu-mock",
		Short:         "Serve an in-memory Niuniu game server API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	cmd.Flags().String("addr", ":3000", "Listen address")
	cmd.Flags().Int("rooms", 100, "Rooms created at startup")
	cmd.Flags().String("log-level", logging.DefaultLevel, "Log level (debug, info, warn, error)")
	return cmd
}

func serve(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	rooms, _ := cmd.Flags().GetInt("rooms")
	level, _ := cmd.Flags().GetString("log-level")

	logger, err := logging.Setup(level, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           mockserver.New(logger, rooms).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Int("rooms", rooms).Msg("mock server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("mock server failed: %w", err)
	}
	logger.Info().Msg("mock server stopped")
	return nil
}

// Main runs the command and returns the process exit code.
func Main() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(Main())
}
