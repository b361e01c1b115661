package lazy

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

// AckWindow is how long the "copied" acknowledgment stays visible.
const AckWindow = 2 * time.Second

// Clipboard receives copied text.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the host clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// CopyButton is the copy affordance attached to a code or math leaf. Its
// acknowledgment state is independent of the leaf's load state.
type CopyButton struct {
	source string
	clip   Clipboard
	log    *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	until time.Time
}

// NewCopyButton creates a button for the given raw source.
func NewCopyButton(source string, clip Clipboard, log *slog.Logger) *CopyButton {
	return &CopyButton{
		source: source,
		clip:   clip,
		log:    log,
		now:    time.Now,
	}
}

// WithClock replaces the time source.
func (b *CopyButton) WithClock(now func() time.Time) *CopyButton {
	b.now = now
	return b
}

// Text is what a press puts on the clipboard.
func (b *CopyButton) Text() string { return strings.TrimSpace(b.source) }

// Press copies the trimmed source. A clipboard failure is logged and the
// acknowledgment is not shown.
func (b *CopyButton) Press() {
	if err := b.clip.WriteAll(b.Text()); err != nil {
		b.log.Warn("clipboard write failed", "error", err)
		return
	}
	b.mu.Lock()
	b.until = b.now().Add(AckWindow)
	b.mu.Unlock()
}

// Copied reports whether the acknowledgment is currently showing.
func (b *CopyButton) Copied() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().Before(b.until)
}
