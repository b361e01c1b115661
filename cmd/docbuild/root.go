package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docview/internal/ast"
	"github.com/dgallion1/docview/internal/lazy"
)

// clip is where the copy command writes.
var clip lazy.Clipboard = lazy.SystemClipboard{}

func newRootCmd() *cobra.Command {
	var debug bool
	root := &cobra.Command{
		Use:           "docbuild",
		Short:         "Build and inspect docview documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	logger := func(cmd *cobra.Command) *slog.Logger {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	}

	root.AddCommand(
		newBuildCmd(logger),
		newRenderCmd(logger),
		newCatalogueCmd(),
		newCopyCmd(logger),
	)
	return root
}

// readDocument loads a built doc.json.
func readDocument(path string) (*ast.DocInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var root ast.Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	doc, err := ast.InfoOf(&root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
