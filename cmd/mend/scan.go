package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mendtool/mend/internal/conflict"
	"github.com/mendtool/mend/internal/engine"
)

var scanReportPath string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List conflicted files and their regions",
	Long: `Scan the repository for files left conflicted by a failed merge and
list each file's conflict regions with their line spans.

Example usage:
  mend scan                      # Print conflicted files and regions
  mend scan --report out.yaml    # Also write a YAML report`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

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

		files, err := scanner.Scan(ctx)
		if err != nil {
			return err
		}

		printScan(files)

		if scanReportPath != "" {
			if err := writeReport(scanReportPath, files); err != nil {
				return err
			}
			fmt.Printf("Report written to %s\n", scanReportPath)
		}

		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanReportPath, "report", "", "Write a YAML report to this path")
	rootCmd.AddCommand(scanCmd)
}

func printScan(files []*conflict.File) {
	if len(files) == 0 {
		fmt.Println("No conflicts found.")
		return
	}

	total := 0
	for _, f := range files {
		if f.Err != nil {
			fmt.Printf("%s: unreadable: %v\n", f.Path, f.Err)
			continue
		}

		fmt.Printf("%s: %d conflict(s)\n", f.Path, len(f.Regions))
		for _, r := range f.Regions {
			kind := "two-way"
			if r.Base != nil {
				kind = "diff3"
			}
			fmt.Printf("  #%d lines %d-%d (%s)\n", r.ID, r.StartLine, r.EndLine, kind)
		}
		total += len(f.Regions)
	}

	fmt.Printf("\n%d file(s), %d region(s) remaining\n", len(files), total)
}

// Report types for --report output.
type scanReport struct {
	Files   []reportFile `yaml:"files"`
	Regions int          `yaml:"regions"`
}

type reportFile struct {
	Path     string         `yaml:"path"`
	Resolved bool           `yaml:"resolved"`
	Error    string         `yaml:"error,omitempty"`
	Regions  []reportRegion `yaml:"regions,omitempty"`
}

type reportRegion struct {
	ID        int    `yaml:"id"`
	StartLine int    `yaml:"start_line"`
	EndLine   int    `yaml:"end_line"`
	Ours      string `yaml:"ours"`
	Theirs    string `yaml:"theirs"`
	Base      string `yaml:"base,omitempty"`
}

func writeReport(path string, files []*conflict.File) error {
	report := scanReport{}

	for _, f := range files {
		rf := reportFile{Path: f.Path, Resolved: f.Resolved}
		if f.Err != nil {
			rf.Error = f.Err.Error()
		}
		for _, r := range f.Regions {
			rr := reportRegion{
				ID:        r.ID,
				StartLine: r.StartLine,
				EndLine:   r.EndLine,
				Ours:      r.Ours.Content,
				Theirs:    r.Theirs.Content,
			}
			if r.Base != nil {
				rr.Base = r.Base.Content
			}
			rf.Regions = append(rf.Regions, rr)
		}
		report.Files = append(report.Files, rf)
		report.Regions += len(f.Regions)
	}

	data, err := yaml.Marshal(&report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}
