package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func defaultCacheDir() string {
	return filepath.Join(os.TempDir(), "opcache")
}

func newRootCmd() *cobra.Command {
	var dir string

	root := &cobra.Command{
		Use:   "cachestat",
		Short: "Inspect an opcache cache directory",
	}
	root.PersistentFlags().StringVar(&dir, "dir", defaultCacheDir(), "cache directory to inspect")

	root.AddCommand(newListCmd(&dir))
	root.AddCommand(newShowCmd(&dir))
	return root
}
