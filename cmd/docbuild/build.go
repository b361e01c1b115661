package main

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docview/internal/build"
)

func newBuildCmd(logger func(*cobra.Command) *slog.Logger) *cobra.Command {
	var opts build.Options
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Convert a source directory into docs/<pk>/doc.json and docs/docs-db.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.SrcDir == "" || opts.OutDir == "" {
				return fmt.Errorf("--src and --out are required")
			}
			report, err := build.NewOrchestrator(opts, nil, logger(cmd)).Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, job := range report.Jobs {
				fmt.Fprintf(out, "%-10s %s\n", job.Status, job.PK)
				for _, e := range job.Errors {
					fmt.Fprintf(out, "           %s\n", e)
				}
			}
			failed := len(report.Failed())
			fmt.Fprintf(out, "%d built, %d failed\n", len(report.Rows), failed)
			if failed > 0 {
				return fmt.Errorf("%d documents failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.SrcDir, "src", "", "source directory")
	cmd.Flags().StringVar(&opts.OutDir, "out", "", "output directory")
	cmd.Flags().IntVar(&opts.Workers, "workers", runtime.NumCPU(), "concurrent conversions")
	return cmd
}
