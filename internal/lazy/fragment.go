package lazy

import (
	"strings"

	"golang.org/x/net/html"
)

// Theme selects the light or dark palette for rendered leaves.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme maps a user-supplied value to a Theme, falling back to def.
func ParseTheme(s string, def Theme) Theme {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight
	case ThemeDark:
		return ThemeDark
	}
	return def
}

// Fragment is the markup for one leaf. Pending is set while the leaf shows
// its loading placeholder.
type Fragment struct {
	HTML    string
	Pending bool
}

func placeholder(msg string) string {
	return `<div class="leaf-loading" role="status"><span class="spinner"></span>` + html.EscapeString(msg) + `</div>`
}

// withCopy wraps body with a copy button carrying the trimmed source.
func withCopy(class, source, body string) string {
	var sb strings.Builder
	sb.WriteString(`<div class="leaf `)
	sb.WriteString(class)
	sb.WriteString(`"><button type="button" class="copy-button" aria-label="Copy code" data-copy="`)
	sb.WriteString(html.EscapeString(strings.TrimSpace(source)))
	sb.WriteString(`">Copy</button>`)
	sb.WriteString(body)
	sb.WriteString(`</div>`)
	return sb.String()
}
