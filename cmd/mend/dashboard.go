package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mendtool/mend/internal/dashboard"
	"github.com/mendtool/mend/internal/engine"
)

var dashboardInterval time.Duration

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve a real-time WebSocket view of the merge session",
	Long: `Start a WebSocket server that broadcasts the repository's conflict
state: scan snapshots, per-file resolution events, and remaining-work
statistics. The repository is rescanned on an interval so external
resolutions show up too.

Example usage:
  mend dashboard                  # Serve on the configured port
  mend dashboard --port 9000      # Custom port

Connect with a WebSocket client:
  ws://localhost:8080/ws`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		if !cmd.Flags().Changed("port") {
			port = cfg.Dashboard.Port
		}

		backend, err := newBackend()
		if err != nil {
			return err
		}

		scanner, err := engine.NewScanner(backend,
			engine.WithConcurrency(cfg.Scan.Concurrency),
			engine.WithScanLogger(logger))
		if err != nil {
			return err
		}

		server := dashboard.NewServer(dashboard.Config{
			Port:   port,
			Logger: logger,
		})
		if err := server.Start(); err != nil {
			return err
		}

		handler := dashboard.NewHandler(server, logger)

		fmt.Printf("Dashboard listening on http://%s\n", server.Addr())
		fmt.Printf("WebSocket endpoint: ws://%s/ws\n", server.Addr())
		fmt.Println("Press Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		ticker := time.NewTicker(dashboardInterval)
		defer ticker.Stop()

		scan := func() {
			files, err := scanner.Scan(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Error("scan failed", "error", err)
				}
				return
			}
			handler.OnScan(files)
		}

		scan()

	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-ticker.C:
				scan()
			}
		}

		return server.Stop()
	},
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	dashboardCmd.Flags().DurationVar(&dashboardInterval, "interval", 5*time.Second, "Rescan interval")
	rootCmd.AddCommand(dashboardCmd)
}
