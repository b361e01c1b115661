package lazy

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
)

const mathLoadingMsg = "Loading LaTeX..."

// MathAssets holds the typesetting stylesheet.
type MathAssets struct {
	CSS []byte
}

// FetchFunc retrieves a resource by URL.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// MathAssetLoad returns a LoadFunc fetching the stylesheet at url. An empty
// url loads an empty stylesheet.
func MathAssetLoad(fetch FetchFunc, url string) LoadFunc[*MathAssets] {
	return func(ctx context.Context) (*MathAssets, error) {
		if url == "" {
			return &MathAssets{}, nil
		}
		css, err := fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		return &MathAssets{CSS: css}, nil
	}
}

// MathRenderer emits math markup for the client typesetter once the
// stylesheet has loaded.
type MathRenderer struct {
	loader *Loader[*MathAssets]
	log    *slog.Logger
}

func NewMathRenderer(loader *Loader[*MathAssets], log *slog.Logger) *MathRenderer {
	return &MathRenderer{loader: loader, log: log}
}

func (r *MathRenderer) Loader() *Loader[*MathAssets] { return r.loader }

// Render returns inline (display=false) or display math. Display math is
// trimmed and carries a copy button.
func (r *MathRenderer) Render(tex string, display bool, theme Theme) Fragment {
	r.loader.Ensure()

	if display {
		tex = strings.TrimSpace(tex)
	}
	if _, ok := r.loader.Value(); !ok {
		body := placeholder(mathLoadingMsg)
		if display {
			return Fragment{HTML: withCopy("leaf-math", tex, body), Pending: true}
		}
		return Fragment{HTML: `<span class="math-pending">` + body + `</span>`, Pending: true}
	}

	escaped := html.EscapeString(tex)
	if !display {
		return Fragment{HTML: `<span class="math math-inline math-` + string(theme) + `">\(` + escaped + `\)</span>`}
	}
	body := `<div class="math math-display math-` + string(theme) + `">\[` + escaped + `\]</div>`
	return Fragment{HTML: withCopy("leaf-math", tex, body)}
}
