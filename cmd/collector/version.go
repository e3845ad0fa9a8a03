package main

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			title := color.New(color.FgCyan, color.Bold)
			label := color.New(color.FgGreen)

			title.Fprintf(out, "collector %s\n", version)
			fmt.Fprintln(out)

			label.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, gitCommit)

			label.Fprint(out, "Built:      ")
			fmt.Fprintln(out, buildDate)

			label.Fprint(out, "Go version: ")
			fmt.Fprintln(out, runtime.Version())

			label.Fprint(out, "OS/Arch:    ")
			fmt.Fprintf(out, "%s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
