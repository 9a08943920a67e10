package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newListCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cache identifiers found in the cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := os.ReadDir(*dir)
			if err != nil {
				return fmt.Errorf("cachestat: read cache directory: %w", err)
			}
			for _, e := range entries {
				if e.IsDir() || !strings.HasSuffix(e.Name(), ".db") {
					continue
				}
				identifier := strings.TrimSuffix(filepath.Base(e.Name()), ".db")
				fmt.Fprintln(cmd.OutOrStdout(), identifier)
			}
			return nil
		},
	}
}
