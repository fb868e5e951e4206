package main

import (
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mendtool/mend/internal/config"
	"github.com/mendtool/mend/internal/engine"
	"github.com/mendtool/mend/internal/journal"
	"github.com/mendtool/mend/internal/logging"
	"github.com/mendtool/mend/internal/vcs"
	"github.com/mendtool/mend/internal/vcs/git"
)

var (
	flagRepo    string
	flagConfig  string
	flagVerbose bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mend",
	Short: "Detect and resolve merge conflicts",
	Long: `mend parses the conflict markers a failed three-way merge leaves behind
into structured regions and resolves them deterministically: accept one
side of a region, substitute your own text, or resolve a whole file at
once. A file is staged only after a re-parse proves it conflict-free.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagRepo, flagConfig)
		if err != nil {
			return err
		}

		logger = logging.New(cfg.Log, flagVerbose)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagRepo, "repo", "r", ".", "Repository path")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default .mend.yaml in repo root)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Verbose output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newBackend creates the configured VCS backend rooted at --repo.
func newBackend() (vcs.Backend, error) {
	if cfg.VCS.Backend == "git" {
		return git.New(flagRepo, git.WithTimeout(cfg.VCS.Timeout))
	}
	return vcs.New(cfg.VCS.Backend, flagRepo)
}

// openJournal opens the configured journal, or returns nil when disabled.
// The caller must Close a non-nil journal.
func openJournal(backend vcs.Backend) (*journal.Journal, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}

	path := cfg.Journal.Path
	if !filepath.IsAbs(path) {
		root, err := backend.RepoRoot()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(root, path)
	}

	return journal.Open(path)
}

// newEngine builds the resolution engine plus its cleanup func.
func newEngine(backend vcs.Backend) (*engine.Engine, func(), error) {
	j, err := openJournal(backend)
	if err != nil {
		return nil, nil, err
	}

	opts := []engine.Option{engine.WithLogger(logger)}
	if j != nil {
		opts = append(opts, engine.WithRecorder(j))
	}

	eng, err := engine.New(backend, opts...)
	if err != nil {
		if j != nil {
			_ = j.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		if j != nil {
			_ = j.Close()
		}
	}

	return eng, cleanup, nil
}
