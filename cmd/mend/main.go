package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codemend/internal/config"
	"codemend/internal/logging"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string

	// Set up in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mend",
	Short: "mend - repair reported code issues with verified patches",
	Long: `mend runs your linters and compilers, asks a chain of backends
(answer cache, chat models, scripts) for a fix to each finding, merges the
answer into the source and keeps it only if the finding goes away.

Fixes are written to the working tree, committed to git one by one, or
posted as pull request suggestions, depending on the configured target.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		root := workspace
		if root == "" {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			if root, err = config.FindWorkspaceRoot(wd); err != nil {
				return err
			}
		}
		root, err := filepath.Abs(root)
		if err != nil {
			return err
		}

		path := configPath
		if path == "" {
			path = config.DefaultPath(root)
		}
		if cfg, err = config.Load(path); err != nil {
			return err
		}
		if workspace != "" {
			cfg.Workspace = root
		}

		opts := logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, File: cfg.Logging.File}
		if verbose {
			opts.Level = "debug"
		}
		if logger, err = logging.New(opts); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.For(logger, logging.CategoryBoot).Debug("Configuration loaded",
			zap.String("config", path),
			zap.String("workspace", cfg.Workspace))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: nearest directory with .mend.yaml, .git or go.mod)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/.mend.yaml)")

	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(issuesCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cacheCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
