// Package styles centralizes the lipgloss palette and shared render
// helpers for the CLI and TUI.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Primary  = lipgloss.Color("#1cc2e3")
	Green    = lipgloss.Color("#10B981")
	Red      = lipgloss.Color("#EF4444")
	Yellow   = lipgloss.Color("#F59E0B")
	Gray     = lipgloss.Color("#6B7280")
	DarkGray = lipgloss.Color("#374151")
	White    = lipgloss.Color("#FFFFFF")

	AppStyle = lipgloss.NewStyle().
			Padding(1, 2)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			MarginBottom(1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Gray)

	TabStyle = lipgloss.NewStyle().
			Foreground(Gray).
			Padding(0, 1)

	TabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Background(DarkGray).
			Padding(0, 1)

	ActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Green)

	ExpiredStyle = lipgloss.NewStyle().
			Foreground(Gray).
			Strikethrough(true)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	EmailBoxStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(White).
			Background(Primary).
			Padding(0, 2)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DarkGray).
			Padding(0, 1)

	SuccessBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	SuccessTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Green)

	WarningBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Yellow).
			Padding(1, 2)

	WarningTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Yellow)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	PassStyle = lipgloss.NewStyle().Bold(true).Foreground(Green)
	FailStyle = lipgloss.NewStyle().Bold(true).Foreground(Red)
	WarnStyle = lipgloss.NewStyle().Bold(true).Foreground(Yellow)

	MutedStyle = lipgloss.NewStyle().Foreground(Gray)

	LabelStyle = lipgloss.NewStyle().Foreground(Gray).Width(14)

	BadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(White).
			Padding(0, 1)
)

// List column widths shared by table-style command output.
const (
	ColWidthEmail   = 38
	ColWidthID      = 26
	ColWidthSubject = 40
	ColWidthFrom    = 28
)

// FormatAuthResult renders a pass/fail/none verdict with color.
func FormatAuthResult(result string) string {
	switch strings.ToLower(result) {
	case "pass":
		return PassStyle.Render("PASS")
	case "fail", "hardfail":
		return FailStyle.Render("FAIL")
	case "softfail", "none", "neutral":
		return WarnStyle.Render(strings.ToUpper(result))
	default:
		return result
	}
}

// ScoreStyle picks a color band for a 0-100 security score.
func ScoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 80:
		return PassStyle
	case score >= 50:
		return WarnStyle
	default:
		return FailStyle
	}
}
