package build

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docview/internal/ast"
	"github.com/dgallion1/docview/internal/parser"
)

// Worker converts one source file into docs/<pk>/.
type Worker struct {
	outDir string
	log    *slog.Logger
}

func NewWorker(outDir string, log *slog.Logger) *Worker {
	return &Worker{outDir: outDir, log: log}
}

// Process parses the job's source, writes doc.json and copies the sibling
// asset directory.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("pk", job.PK, "source", job.Source)

	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	data, err := os.ReadFile(job.Source)
	if err != nil {
		log.Error("read failed", "error", err)
		job.AddError(fmt.Sprintf("read: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	root, err := p.Parse(bytes.NewReader(data), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	info, err := ast.InfoOf(root)
	if err != nil {
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetMeta(info.Title, info.Date, info.Tags)

	if err := ctx.Err(); err != nil {
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	job.SetStatus(StatusWriting, "writing")
	encoded, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		job.AddError(fmt.Sprintf("encode: %s", err))
		job.SetStatus(StatusFailed, "writing")
		return
	}

	docDir := filepath.Join(w.outDir, "docs", job.PK)
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		job.AddError(fmt.Sprintf("mkdir: %s", err))
		job.SetStatus(StatusFailed, "writing")
		return
	}
	if err := writeFileAtomic(filepath.Join(docDir, "doc.json"), encoded); err != nil {
		log.Error("write failed", "error", err)
		job.AddError(fmt.Sprintf("write: %s", err))
		job.SetStatus(StatusFailed, "writing")
		return
	}

	assets, err := copyAssets(assetDir(job.Source), docDir)
	if err != nil {
		log.Warn("asset copy failed", "error", err)
		job.AddError(fmt.Sprintf("assets: %s", err))
	}

	job.SetResult(ContentHashHex(encoded), assets)
	job.SetStatus(StatusCompleted, "done")
	log.Info("document built", "title", info.Title, "assets", assets)
}

// assetDir is the directory next to source sharing its base name, e.g.
// intro.md → intro/.
func assetDir(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source))
}

// copyAssets copies every regular file under src into dst, keeping relative
// paths. A missing src copies nothing.
func copyAssets(src, dst string) (int, error) {
	st, err := os.Stat(src)
	if err != nil || !st.IsDir() {
		return 0, nil
	}

	copied := 0
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() || rel == "doc.json" {
			return nil
		}
		if err := copyFile(path, target); err != nil {
			return err
		}
		copied++
		return nil
	})
	return copied, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
