package main

import (
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codemend/internal/logging"
)

var watchDebounce time.Duration

// watchCmd reruns fix whenever the workspace changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run fix again whenever files in the workspace change",
	Long: `Runs fix once, then watches the workspace and runs it again after
changes settle. Runs never overlap; changes made by a run itself are ignored.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet period before a run starts")
	watchCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "Find and verify fixes without keeping them")
	watchCmd.Flags().BoolVar(&fixShowDiff, "show-diff", false, "Print the diff of every fix")
	watchCmd.Flags().StringVar(&fixSource, "source", "", "Only use the named source")
}

// skipDir reports directories never worth watching.
func skipDir(name string) bool {
	return name != "." && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logging.For(logger, logging.CategoryWatch)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := watchTree(w, cfg.Workspace); err != nil {
		return err
	}
	log.Info("Watching workspace", zap.String("dir", cfg.Workspace), zap.Duration("debounce", watchDebounce))

	run := func() {
		reports, err := runFix(ctx, newApp(cfg, logger), fixOptions{source: fixSource, dryRun: fixDryRun || cfg.Resolve.DryRun})
		for _, r := range reports {
			fmt.Fprintln(cmd.OutOrStdout(), renderReport(r, fixShowDiff))
		}
		if err != nil && ctx.Err() == nil {
			log.Error("Run failed", zap.Error(err))
		}
		drain(w)
	}
	run()

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !skipDir(info.Name()) {
					_ = watchTree(w, ev.Name)
				}
			}
			log.Debug("Change detected", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			fire = time.After(watchDebounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("Watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			run()
		}
	}
}

// watchTree adds dir and its subdirectories.
func watchTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(ev.Name)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}

// drain drops events queued while a run was rewriting files.
func drain(w *fsnotify.Watcher) {
	for {
		select {
		case <-w.Events:
		default:
			return
		}
	}
}
