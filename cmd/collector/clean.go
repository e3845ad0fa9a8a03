package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/product-collector/pkg/description"
)

func newCleanCmd(a *app) *cobra.Command {
	var inDir, outDir string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Convert product descriptions in batch files to plain text",
		Long: `clean rewrites every product batch in --in into --out, replacing each
HTML description with plain text and adding the images it references to the
product's image list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.load(); err != nil {
				return err
			}

			res, err := description.ProcessDir(cmd.Context(), inDir, outDir)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %d products in %d files written to %s\n",
				color.GreenString("Cleaned"), res.Products, res.Files, outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&inDir, "in", "output_raw", "directory of raw product batches")
	cmd.Flags().StringVar(&outDir, "out", "output", "directory for cleaned batches")
	return cmd
}
