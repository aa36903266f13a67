package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/rdbridge/internal/bridge"
	"github.com/muurk/rdbridge/internal/logging"
	"github.com/muurk/rdbridge/internal/metrics"
)

var (
	flagSchedule    string
	flagMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run health checks on a schedule and export metrics",
	Long: `Probe the RD service repeatedly and print one line per check.

The schedule is either a Go duration ("30s", "5m") or a cron expression
("*/5 * * * *", "@hourly"). With --metrics-addr, Prometheus metrics for
every request, retry, fallback and health check are served on /metrics.
Stop with Ctrl+C.`,
	Example: `  rdbridge watch
  rdbridge watch --schedule 10s --metrics-addr 127.0.0.1:9464`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagSchedule, "schedule", "15s", "Check interval or cron expression")
	watchCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")
	rootCmd.AddCommand(watchCmd)
}

// parseSchedule accepts a positive duration or a standard cron expression
func parseSchedule(schedule string) (cron.Schedule, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return nil, fmt.Errorf("schedule is required")
	}

	if interval, err := time.ParseDuration(schedule); err == nil {
		if interval <= 0 {
			return nil, fmt.Errorf("interval must be > 0")
		}
		return cron.Every(interval), nil
	}

	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return sched, nil
}

func metricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	sched, err := parseSchedule(flagSchedule)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	b := bridge.New(settings)
	t := target()

	check := func() {
		report := b.Health(ctx, t)
		if flagFormat == formatJSON {
			if err := writeJSON(out, report); err != nil {
				logging.Error("Failed to write health report", zap.Error(err))
			}
			return
		}
		fmt.Fprintln(out, healthLine(report))
	}

	errCh := make(chan error, 1)
	if flagMetricsAddr != "" {
		srv := metricsServer(flagMetricsAddr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logging.Info("Serving metrics", zap.String("addr", flagMetricsAddr))
	}

	// Overlapping checks are skipped rather than queued
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(sched, cron.FuncJob(check))

	check()
	c.Start()
	defer func() { <-c.Stop().Done() }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}
