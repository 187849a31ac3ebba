package miniplayer

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// sanitize removes control characters and invalid UTF-8 from catalog text,
// which would otherwise break terminal rendering.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size <= 1:
		case r == ' ':
			b.WriteByte(' ')
		case r == '\t' || !unicode.IsControl(r):
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

// truncate shortens s to maxWidth cells with a single character ellipsis.
func truncate(s string, maxWidth int) string {
	s = sanitize(s)
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "…")
}

// row places left and right at the edges of a line of the given width.
func row(left, right string, width int) string {
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func formatDuration(d time.Duration) string {
	d = max(d, 0)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}
