package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/product-collector/pkg/filter"
)

var errNoInputs = errors.New("at least one error file is required")

func newFilterCmd(a *app) *cobra.Command {
	var notFoundOut, retryOut string

	cmd := &cobra.Command{
		Use:   "filter [error files...]",
		Short: "Split failed identifiers into permanent 404s and a retry list",
		Long: `filter reads error CSV files (product_id,code) or JSON [[id, code], ...]
files and writes identifiers that returned 404 to --not-found-out, one per line.
Every other identifier goes to --retry-out as a CSV that collect accepts as input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errNoInputs
			}
			if _, err := a.load(); err != nil {
				return err
			}

			records, err := filter.ReadErrorRecords(args...)
			if err != nil {
				return err
			}
			notFound, retry := filter.Split(records)

			if err := filter.WriteIDList(notFoundOut, notFound); err != nil {
				return err
			}
			if err := filter.WriteIDCSV(retryOut, retry); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %d identifiers to %s\n", color.YellowString("404:  "), len(notFound), notFoundOut)
			fmt.Fprintf(out, "%s %d identifiers to %s\n", color.GreenString("Retry:"), len(retry), retryOut)
			return nil
		},
	}

	cmd.Flags().StringVar(&notFoundOut, "not-found-out", "output/product_ids_404.txt", "file for identifiers that returned 404")
	cmd.Flags().StringVar(&retryOut, "retry-out", "output/retry_ids.csv", "CSV of identifiers to collect again")
	return cmd
}
