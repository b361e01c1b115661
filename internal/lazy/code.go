package lazy

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"golang.org/x/net/html"
)

const codeLoadingMsg = "Loading syntax highlighter..."

// themeStyles maps each theme to its chroma style.
var themeStyles = map[Theme]string{
	ThemeDark:  "gruvbox",
	ThemeLight: "gruvbox-light",
}

// CodeAssets are the styling resources for highlighted code.
type CodeAssets struct {
	formatters map[Theme]*chromahtml.Formatter
	styles     map[Theme]*chroma.Style
	css        string
}

// CSS returns the stylesheet covering every theme.
func (a *CodeAssets) CSS() string { return a.css }

// LoadCodeAssets resolves the chroma styles and builds one class-based
// formatter per theme, each with its own class prefix.
func LoadCodeAssets(ctx context.Context) (*CodeAssets, error) {
	a := &CodeAssets{
		formatters: make(map[Theme]*chromahtml.Formatter),
		styles:     make(map[Theme]*chroma.Style),
	}
	var css bytes.Buffer
	for _, theme := range []Theme{ThemeLight, ThemeDark} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		style := styles.Get(themeStyles[theme])
		if style == nil {
			style = styles.Fallback
		}
		f := chromahtml.New(
			chromahtml.WithClasses(true),
			chromahtml.WithLineNumbers(true),
			chromahtml.ClassPrefix(string(theme)+"-"),
			chromahtml.TabWidth(4),
		)
		if err := f.WriteCSS(&css, style); err != nil {
			return nil, fmt.Errorf("write %s css: %w", theme, err)
		}
		a.formatters[theme] = f
		a.styles[theme] = style
	}
	a.css = css.String()
	return a, nil
}

// CodeRenderer highlights fenced code once its assets are loaded.
type CodeRenderer struct {
	loader *Loader[*CodeAssets]
	log    *slog.Logger
}

// NewCodeRenderer wraps a shared asset loader.
func NewCodeRenderer(loader *Loader[*CodeAssets], log *slog.Logger) *CodeRenderer {
	return &CodeRenderer{loader: loader, log: log}
}

// Loader exposes the shared loader so callers can wait for it.
func (r *CodeRenderer) Loader() *Loader[*CodeAssets] { return r.loader }

// Render returns the code block markup, or a placeholder while assets load.
// An empty language selects the generic plaintext lexer.
func (r *CodeRenderer) Render(code, language string, theme Theme) Fragment {
	r.loader.Ensure()

	assets, ok := r.loader.Value()
	if !ok {
		return Fragment{HTML: withCopy("leaf-code", code, placeholder(codeLoadingMsg)), Pending: true}
	}

	body, err := assets.highlight(strings.TrimSpace(code), language, theme)
	if err != nil {
		r.log.Warn("highlight failed, rendering plain", "language", language, "error", err)
		body = `<pre class="code-plain"><code>` + html.EscapeString(strings.TrimSpace(code)) + `</code></pre>`
	}
	return Fragment{HTML: withCopy("leaf-code", code, body)}
}

func (a *CodeAssets) highlight(code, language string, theme Theme) (string, error) {
	f, ok := a.formatters[theme]
	if !ok {
		f = a.formatters[ThemeLight]
		theme = ThemeLight
	}

	lexer := lexers.Fallback
	if language != "" {
		if l := lexers.Get(language); l != nil {
			lexer = l
		}
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("tokenise: %w", err)
	}
	var buf bytes.Buffer
	if err := f.Format(&buf, a.styles[theme], it); err != nil {
		return "", fmt.Errorf("format: %w", err)
	}
	return buf.String(), nil
}
