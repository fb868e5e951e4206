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
)

var (
	resolveOurs     bool
	resolveTheirs   bool
	resolveRegion   int
	resolveSide     string
	resolveTextFile string
	resolveFullFile string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Resolve conflicts in one file",
	Long: `Resolve conflicts in a single conflicted file.

Whole-file resolution delegates to the VCS backend's own side
materialization; per-region resolution splices the chosen content in the
working tree and re-parses before anything is written. The file is staged
only once it is provably conflict-free.

Example usage:
  mend resolve main.go --ours                     # Whole file, our side
  mend resolve main.go --region 2 --side theirs   # One region
  mend resolve main.go --region 1 --text fix.txt  # One region, custom text
  mend resolve main.go --full resolved.go         # Replace the whole file`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		path := args[0]

		backend, err := newBackend()
		if err != nil {
			return err
		}

		eng, cleanup, err := newEngine(backend)
		if err != nil {
			return err
		}
		defer cleanup()

		updated, err := runResolve(ctx, eng, path)
		if err != nil {
			return err
		}

		if updated.Resolved {
			fmt.Printf("%s resolved and staged\n", path)
		} else {
			fmt.Printf("%s: %d region(s) remaining\n", path, len(updated.Regions))
		}

		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveOurs, "ours", false, "Accept our side for the whole file")
	resolveCmd.Flags().BoolVar(&resolveTheirs, "theirs", false, "Accept their side for the whole file")
	resolveCmd.Flags().IntVar(&resolveRegion, "region", 0, "Region id to resolve (from mend scan)")
	resolveCmd.Flags().StringVar(&resolveSide, "side", "", "Side to accept for --region (ours or theirs)")
	resolveCmd.Flags().StringVar(&resolveTextFile, "text", "", "File containing replacement text for --region")
	resolveCmd.Flags().StringVar(&resolveFullFile, "full", "", "File containing full replacement content")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(ctx context.Context, eng *engine.Engine, path string) (*conflict.File, error) {
	switch {
	case resolveOurs:
		return eng.AcceptOursWholeFile(ctx, path)

	case resolveTheirs:
		return eng.AcceptTheirsWholeFile(ctx, path)

	case resolveFullFile != "":
		content, err := os.ReadFile(resolveFullFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resolveFullFile, err)
		}

		file, err := loadConflictFile(eng, path)
		if err != nil {
			return nil, err
		}
		return eng.ResolveManualWholeFile(ctx, file, string(content))

	case resolveRegion > 0 && resolveTextFile != "":
		text, err := os.ReadFile(resolveTextFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resolveTextFile, err)
		}

		file, err := loadConflictFile(eng, path)
		if err != nil {
			return nil, err
		}
		return eng.ResolveManual(ctx, file, resolveRegion, string(text))

	case resolveRegion > 0:
		if resolveSide == "" {
			return nil, fmt.Errorf("--region requires --side or --text")
		}

		file, err := loadConflictFile(eng, path)
		if err != nil {
			return nil, err
		}
		return eng.AcceptRegion(ctx, file, resolveRegion, conflict.Side(resolveSide))

	default:
		return nil, fmt.Errorf("choose a resolution: --ours, --theirs, --region, or --full")
	}
}

func loadConflictFile(eng *engine.Engine, path string) (*conflict.File, error) {
	file := eng.File(path)
	if file.Err != nil {
		return nil, file.Err
	}
	return file, nil
}
