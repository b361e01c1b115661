package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docview/internal/ast"
	"github.com/dgallion1/docview/internal/lazy"
)

func newCopyCmd(logger func(*cobra.Command) *slog.Logger) *cobra.Command {
	var block int
	cmd := &cobra.Command{
		Use:   "copy <doc.json>",
		Short: "Copy the source of a code or math block to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			blocks := copyable(doc.Root())
			if block < 1 || block > len(blocks) {
				return fmt.Errorf("block %d out of range: document has %d code or math blocks", block, len(blocks))
			}

			btn := lazy.NewCopyButton(blocks[block-1].Content, clip, logger(cmd))
			btn.Press()
			if !btn.Copied() {
				return fmt.Errorf("clipboard unavailable")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied %d bytes from %s block %d\n", len(btn.Text()), blocks[block-1].Type, block)
			return nil
		},
	}
	cmd.Flags().IntVar(&block, "block", 1, "1-based index of the code or math block")
	return cmd
}

// copyable lists the code and display math blocks in document order.
func copyable(root *ast.Node) []*ast.Node {
	var blocks []*ast.Node
	ast.Walk(root, func(n *ast.Node) bool {
		if n.Type == ast.KindCodeBlock || n.Type == ast.KindMathBlock {
			blocks = append(blocks, n)
			return false
		}
		return true
	})
	return blocks
}
