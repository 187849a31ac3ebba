package miniplayer

import "github.com/charmbracelet/lipgloss"

// Palette shared with the rest of the terminal output.
var (
	colorPrimary = lipgloss.Color("#a78bfa")
	colorFgBase  = lipgloss.Color("#c0c0c0")
	colorFgMuted = lipgloss.Color("#808080")
	colorSubtle  = lipgloss.Color("#585858")
	colorSuccess = lipgloss.Color("#42b883")
	colorError   = lipgloss.Color("#ff5555")
)

var barStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(colorSubtle)

func titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorFgBase).Bold(true)
}

func artistStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorFgMuted)
}

func progressBarFilled() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorPrimary)
}

func progressBarEmpty() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorSubtle)
}

func progressTimeStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorFgMuted)
}

func helpStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorSubtle)
}

func noticeStyle(isError bool) lipgloss.Style {
	if isError {
		return lipgloss.NewStyle().Foreground(colorError)
	}
	return lipgloss.NewStyle().Foreground(colorSuccess)
}
