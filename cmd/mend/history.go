package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mendtool/mend/internal/engine"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [path]",
	Short: "Show recorded resolutions from the journal",
	Long: `List resolutions recorded in the journal, newest first.
With a path argument, only that file's history is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if !cfg.Journal.Enabled {
			return fmt.Errorf("journal is disabled in configuration")
		}

		backend, err := newBackend()
		if err != nil {
			return err
		}

		j, err := openJournal(backend)
		if err != nil {
			return err
		}
		defer j.Close()

		var entries []engine.Resolution
		if len(args) == 1 {
			entries, err = j.ByPath(ctx, args[0])
		} else {
			entries, err = j.Recent(ctx, historyLimit)
		}
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No resolutions recorded.")
			return nil
		}

		for _, e := range entries {
			span := ""
			if e.RegionStart > 0 {
				span = fmt.Sprintf(" lines %d-%d", e.RegionStart, e.RegionEnd)
			}
			side := ""
			if e.Side != "" {
				side = fmt.Sprintf(" (%s)", e.Side)
			}
			fmt.Printf("%s  %s  %s%s%s\n",
				e.ResolvedAt.Local().Format(time.DateTime), e.Path, e.Method, side, span)
		}

		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "Maximum entries to show")
	rootCmd.AddCommand(historyCmd)
}
