package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dreamware/opcache/internal/rowstore"
)

func newShowCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <identifier>",
		Short: "Show a row-kind breakdown for one cache identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := filepath.Join(*dir, args[0]+".db")
			// OpenSQLiteStore creates a missing database; refuse instead.
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("cachestat: %s: %w", dbPath, err)
			}
			store, err := rowstore.OpenSQLiteStore(dbPath)
			if err != nil {
				return fmt.Errorf("cachestat: open %s: %w", dbPath, err)
			}
			defer store.Close()

			var total, placeholders, deferred, materialized int
			err = store.IterateItems(func(row rowstore.Row) error {
				total++
				sv, err := rowstore.DecodeValue(row.Value)
				if err != nil {
					return err
				}
				switch sv.Kind {
				case rowstore.Placeholder:
					placeholders++
				case rowstore.Deferred:
					deferred++
				case rowstore.Materialized:
					materialized++
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("cachestat: scan %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "identifier:    %s\n", args[0])
			fmt.Fprintf(out, "rows:          %d\n", total)
			fmt.Fprintf(out, "placeholder:   %d\n", placeholders)
			fmt.Fprintf(out, "deferred:      %d\n", deferred)
			fmt.Fprintf(out, "materialized:  %d\n", materialized)
			return nil
		},
	}
}
