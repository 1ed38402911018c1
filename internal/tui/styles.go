package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorSecondary = lipgloss.Color("#06B6D4")
	ColorSuccess   = lipgloss.Color("#22C55E")
	ColorError     = lipgloss.Color("#EF4444")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorLive      = lipgloss.Color("#F43F5E") // recording indicator
	ColorText      = lipgloss.Color("#F8FAFC")
	ColorMuted     = lipgloss.Color("#94A3B8")
	ColorSubtle    = lipgloss.Color("#64748B")
)

func fg(c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

func card(border lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(1, 2)
}

var (
	StyleHeader    = fg(ColorPrimary).Bold(true).MarginBottom(1)
	StyleLabel     = fg(ColorText).Bold(true)
	StyleSuccess   = fg(ColorSuccess)
	StyleError     = fg(ColorError).Bold(true)
	StyleWarning   = fg(ColorWarning)
	StyleMuted     = fg(ColorMuted)
	StyleSubtle    = fg(ColorSubtle).Italic(true) // key help
	StyleHighlight = fg(ColorSecondary).Bold(true)
	StyleLive      = fg(ColorLive).Bold(true)

	// question card, idle and while recording
	StyleBox        = card(ColorSubtle)
	StyleFocusedBox = card(ColorLive)
)

const logoASCII = `
 _                      _       _                  _
| |__  _   _ _ __  _ __(_)_ __ | |_ ___ _ ____   _(_) _____      __
| '_ \| | | | '_ \| '__| | '_ \| __/ _ \ '__\ \ / / |/ _ \ \ /\ / /
| | | | |_| | |_) | |  | | | | | ||  __/ |   \ V /| |  __/\ V  V /
|_| |_|\__, | .__/|_|  |_|_| |_|\__\___|_|    \_/ |_|\___| \_/\_/
       |___/|_|`

func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}
