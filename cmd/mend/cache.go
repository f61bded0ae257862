package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"codemend/internal/backend/cache"
)

// cacheCmd manages answer caches
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the answer caches",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of cached answers per cache backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return eachCache(cmd, "", func(name, path string, store cache.Store) error {
			n, err := store.Len(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d answers\n", name, path, n)
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [backend]",
	Short: "Delete cached answers (all cache backends, or the one named)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		only := ""
		if len(args) == 1 {
			only = args[0]
		}
		return eachCache(cmd, only, func(name, path string, store cache.Store) error {
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s (%s)\n", name, path)
			return nil
		})
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// eachCache opens every configured cache store in turn.
func eachCache(cmd *cobra.Command, only string, fn func(name, path string, store cache.Store) error) error {
	a := newApp(cfg, logger)
	found := false
	for _, bc := range cfg.Backends {
		if bc.Kind != "cache" || (only != "" && bc.Name != only) {
			continue
		}
		found = true
		store, err := a.openStore(bc)
		if err != nil {
			return fmt.Errorf("%s: %w", bc.Name, err)
		}
		err = fn(bc.Name, a.path(bc.Path), store)
		if cerr := store.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", bc.Name, err)
		}
	}
	if !found {
		if only != "" {
			return fmt.Errorf("no cache backend named %q", only)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "no cache backends configured")
	}
	return nil
}
