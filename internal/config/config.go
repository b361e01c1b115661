package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Static origin serving /docs and /data
	DocsBaseURL string
	StaticDir   string
	HTTPTimeout time.Duration

	// Lazy leaves
	KatexCSSURL  string
	KatexScripts []string
	RenderWait   time.Duration

	// Presentation
	DefaultTheme string
	AuthorName   string

	// Rebuilds from a source tree into StaticDir
	SourceDir    string
	BuildWorkers int

	// Auth for /metrics and /api/build
	AdminAPIKey string

	LogLevel slog.Level
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		DocsBaseURL: envOr("DOCS_BASE_URL", "http://localhost:8090"),
		StaticDir:   os.Getenv("STATIC_DIR"),
		HTTPTimeout: envDuration("HTTP_TIMEOUT", 10*time.Second),

		KatexCSSURL:  os.Getenv("KATEX_CSS_URL"),
		KatexScripts: envList("KATEX_SCRIPTS"),
		RenderWait:   envDuration("RENDER_WAIT", 2*time.Second),

		DefaultTheme: strings.ToLower(envOr("DEFAULT_THEME", "light")),
		AuthorName:   envOr("AUTHOR_NAME", "Author"),

		SourceDir:    os.Getenv("SOURCE_DIR"),
		BuildWorkers: envInt("BUILD_WORKERS", 4),

		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.BuildWorkers <= 0 {
		cfg.BuildWorkers = 4
	}
	if cfg.RenderWait < 0 {
		cfg.RenderWait = 0
	}

	return cfg
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	u, err := url.Parse(c.DocsBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("DOCS_BASE_URL must be an absolute http(s) URL, got %q", c.DocsBaseURL)
	}
	if c.DefaultTheme != "light" && c.DefaultTheme != "dark" {
		return fmt.Errorf("DEFAULT_THEME must be light or dark, got %q", c.DefaultTheme)
	}
	if c.StaticDir != "" {
		st, err := os.Stat(c.StaticDir)
		if err != nil {
			return fmt.Errorf("STATIC_DIR: %w", err)
		}
		if !st.IsDir() {
			return fmt.Errorf("STATIC_DIR %s is not a directory", c.StaticDir)
		}
	}
	if c.SourceDir != "" {
		if c.StaticDir == "" {
			return fmt.Errorf("SOURCE_DIR requires STATIC_DIR as the build output")
		}
		if c.AdminAPIKey == "" {
			return fmt.Errorf("SOURCE_DIR requires ADMIN_API_KEY to guard rebuilds")
		}
	}
	return nil
}

// BuildEnabled reports whether the server can rebuild the static tree.
func (c Config) BuildEnabled() bool {
	return c.SourceDir != "" && c.StaticDir != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(v)); err == nil {
			return l
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
