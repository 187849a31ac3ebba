package miniplayer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/soundshow/internal/playback"
)

const (
	playSymbol  = "▶"
	pauseSymbol = "⏸"
	loadSymbol  = "…"
	minBarWidth = 10
	separator   = "   "
)

// Render returns the mini-player line for the snapshot at the given width.
// An empty session renders as a single muted line.
func Render(s playback.Snapshot, width int) string {
	innerWidth := max(width-6, 20)

	track := s.Track
	if s.State == playback.StateLoading {
		track = s.Pending
	}
	if track == nil {
		return barStyle.Padding(0, 2).Width(innerWidth + 4).
			Render(artistStyle().Render("Nothing playing"))
	}

	status := playSymbol
	switch s.State {
	case playback.StatePaused:
		status = pauseSymbol
	case playback.StateLoading:
		status = loadSymbol
	case playback.StateEmpty, playback.StatePlaying:
	}

	title := track.Title
	if title == "" {
		title = "Unknown Track"
	}
	timeStr := fmt.Sprintf("%s / %s", formatDuration(s.Position), formatDuration(s.Duration))
	volStr := fmt.Sprintf("vol %3d%%", int(s.Volume*100+0.5))

	fixed := lipgloss.Width(status+"  ") + lipgloss.Width(timeStr) + lipgloss.Width(volStr) + 3*len(separator)
	available := innerWidth - fixed - minBarWidth

	var styledTitle, styledInfo string
	var used int
	info := track.Artist
	titleWidth := lipgloss.Width(sanitize(title))
	infoWidth := lipgloss.Width(sanitize(info))

	switch {
	case info != "" && titleWidth+len(separator)+infoWidth <= available:
		styledTitle = titleStyle().Render(sanitize(title))
		styledInfo = artistStyle().Render(sanitize(info))
		used = titleWidth + len(separator) + infoWidth
	case info != "" && titleWidth+len(separator) < available:
		maxInfo := available - titleWidth - len(separator)
		styledTitle = titleStyle().Render(sanitize(title))
		styledInfo = artistStyle().Render(truncate(info, maxInfo))
		used = titleWidth + len(separator) + maxInfo
	default:
		maxTitle := max(available, 10)
		styledTitle = titleStyle().Render(truncate(title, maxTitle))
		used = min(titleWidth, maxTitle)
	}

	barWidth := max(innerWidth-used-fixed, 5)
	filled := min(int(float64(barWidth)*s.Progress()), barWidth)

	var content strings.Builder
	content.WriteString(styledTitle)
	if styledInfo != "" {
		content.WriteString(separator)
		content.WriteString(styledInfo)
	}
	content.WriteString(separator)
	content.WriteString(status)
	content.WriteString("  ")
	content.WriteString(progressBarFilled().Render(strings.Repeat("━", filled)))
	content.WriteString(progressBarEmpty().Render(strings.Repeat("─", barWidth-filled)))
	content.WriteString(separator)
	content.WriteString(progressTimeStyle().Render(timeStr))
	content.WriteString(separator)
	content.WriteString(progressTimeStyle().Render(volStr))

	return barStyle.Padding(0, 2).Width(innerWidth + 4).Render(content.String())
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	width := m.width
	if width == 0 {
		width = defaultWidth
	}
	var b strings.Builder
	b.WriteString(Render(m.snap, width))
	b.WriteString("\n")
	footer := m.help.ShortHelpView(m.keys.ShortHelp())
	if m.notice.Text != "" {
		footer = row(noticeStyle(m.notice.IsError()).Render(truncate(m.notice.Text, width/2)), footer, width)
	}
	b.WriteString(footer)
	return b.String()
}
