package field

import (
	"log/slog"

	"github.com/atotto/clipboard"

	"osmandlink/pkg/compose"
)

// Clipboard receives text for the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// SystemClipboard is the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error { return clipboardWriteAll(text) }

// Writer commits composed text into a target.
type Writer struct {
	Clipboard          Clipboard // may be nil
	KeepOriginal       bool      // copy the previous text to the clipboard first
	NewlineReplacement string    // used for single-line targets
}

// Write applies the newline policy, preserves the previous text if
// configured, and writes. Clipboard failures are logged and ignored.
func (w *Writer) Write(t Target, text string) bool {
	final := text
	if t.SingleLine() {
		final = compose.SingleLine(text, w.NewlineReplacement)
	}

	if w.KeepOriginal && w.Clipboard != nil {
		if prev := t.Read(); prev != "" {
			if err := w.Clipboard.WriteAll(prev); err != nil {
				slog.Debug("Could not keep original text in clipboard", "error", err)
			}
		}
	}

	return t.Write(final)
}
