package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mendtool/mend/internal/conflict"
	"github.com/mendtool/mend/internal/engine"
	"github.com/mendtool/mend/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch conflicted files and rescan on change",
	Long: `Watch the currently conflicted files and rescan whenever one changes,
for example while resolving them in an editor. Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		backend, err := newBackend()
		if err != nil {
			return err
		}
		root, err := backend.RepoRoot()
		if err != nil {
			return err
		}

		scanner, err := engine.NewScanner(backend,
			engine.WithConcurrency(cfg.Scan.Concurrency),
			engine.WithScanLogger(logger))
		if err != nil {
			return err
		}

		files, err := scanner.Scan(ctx)
		if err != nil {
			return err
		}
		printScan(files)

		if allResolved(files) {
			return nil
		}

		watcher, err := watch.New()
		if err != nil {
			return err
		}
		defer watcher.Stop()

		paths := make([]string, 0, len(files))
		for _, f := range files {
			paths = append(paths, f.Path)
		}
		if err := watcher.Start(root, paths); err != nil {
			return err
		}

		fmt.Println("\nWatching for changes (Ctrl+C to stop)...")

		for {
			select {
			case <-ctx.Done():
				return nil

			case event, ok := <-watcher.Events():
				if !ok {
					return nil
				}
				logger.Debug("file changed", "path", event.Path, "op", event.Op.String())

				files, err := scanner.Scan(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}

				fmt.Println()
				printScan(files)
				if allResolved(files) {
					fmt.Println("All conflicts resolved.")
					return nil
				}

			case err, ok := <-watcher.Errors():
				if !ok {
					return nil
				}
				logger.Warn("watch error", "error", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func allResolved(files []*conflict.File) bool {
	for _, f := range files {
		if !f.Resolved {
			return false
		}
	}
	return true
}
