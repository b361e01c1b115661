package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docview/internal/lazy"
	"github.com/dgallion1/docview/internal/render"
)

func newRenderCmd(logger func(*cobra.Command) *slog.Logger) *cobra.Command {
	var (
		pk    string
		theme string
		wait  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "render <doc.json>",
		Short: "Render a built document to HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger(cmd)
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			if pk == "" {
				pk = filepath.Base(filepath.Dir(args[0]))
			}

			code := lazy.NewLoader("code", lazy.LoadCodeAssets, log)
			math := lazy.NewLoader("math", lazy.MathAssetLoad(nil, ""), log)
			r := render.New(lazy.NewCodeRenderer(code, log), lazy.NewMathRenderer(math, log), lazy.ParseTheme(theme, lazy.ThemeLight), log)

			out := r.RenderDocument(doc, pk)
			if out.Pending {
				ctx, cancel := context.WithTimeout(cmd.Context(), wait)
				defer cancel()
				settle(ctx, code, math)
				out = r.RenderDocument(doc, pk)
			}
			if out.Pending {
				log.Warn("some leaves are still loading", "pk", pk)
			}
			for _, kind := range out.Unhandled {
				log.Warn("unhandled node", "type", kind)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out.HTML+"\n")
			return err
		},
	}
	cmd.Flags().StringVar(&pk, "pk", "", "document key used for image paths (default: parent directory name)")
	cmd.Flags().StringVar(&theme, "theme", "light", "light or dark")
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Second, "how long to wait for lazy leaves")
	return cmd
}

// settle waits for every loader that was started.
func settle(ctx context.Context, code *lazy.Loader[*lazy.CodeAssets], math *lazy.Loader[*lazy.MathAssets]) {
	if code.State() != lazy.StateIdle {
		code.Wait(ctx)
	}
	if math.State() != lazy.StateIdle {
		math.Wait(ctx)
	}
}
