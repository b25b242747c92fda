package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette helpers. The board must stay readable on both light and dark
// terminals, so everything uses lipgloss.AdaptiveColor and faint styling is
// reserved for dark backgrounds.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func hasDarkBackground() bool { return lipgloss.HasDarkBackground() }

var (
	colorMuted          lipgloss.TerminalColor = ac("240", "243")
	colorChromeMutedFg  lipgloss.TerminalColor = ac("240", "245")
	colorAccent         lipgloss.TerminalColor = ac("27", "62")
	colorSelectedBg     lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg     lipgloss.TerminalColor = ac("235", "255")
	colorCardBorder     lipgloss.TerminalColor = ac("250", "243")
	colorFlashErrorBg   lipgloss.TerminalColor = ac("196", "160")
	colorFlashSuccessFg lipgloss.TerminalColor = ac("28", "78")

	colorStatusTodo    lipgloss.TerminalColor = ac("240", "245")
	colorStatusActive  lipgloss.TerminalColor = ac("27", "75")
	colorStatusDone    lipgloss.TerminalColor = ac("28", "78")
	colorStatusBlocked lipgloss.TerminalColor = ac("160", "203")
)

var (
	headerStyle        = lipgloss.NewStyle().Bold(true)
	activityStyle      = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	taskStyle          = lipgloss.NewStyle().Foreground(colorChromeMutedFg).Bold(true)
	releaseLabelStyle  = lipgloss.NewStyle().Bold(true)
	releaseMetaStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	selectedCardStyle  = lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorSelectedFg)
	moveTargetStyle    = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	footerStyle        = lipgloss.NewStyle().Foreground(colorMuted)
	flashErrorStyle    = lipgloss.NewStyle().Background(colorFlashErrorBg).Foreground(ac("255", "255")).Padding(0, 1)
	flashSuccessStyle  = lipgloss.NewStyle().Foreground(colorFlashSuccessFg)
	flashInfoStyle     = lipgloss.NewStyle().Foreground(colorChromeMutedFg)
	filterBadgeStyle   = lipgloss.NewStyle().Foreground(colorAccent)
	emptyCellStyle     = lipgloss.NewStyle().Foreground(colorCardBorder)
	busyMarkerStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	pickerTitleStyle   = lipgloss.NewStyle().Bold(true)
	pickerEnabledStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
)

// applyColorProfilePreference sets Lip Gloss's color profile for the board.
// Only NO_COLOR disables colors; CLICOLOR is intentionally ignored for the
// interactive surface.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	if strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit") {
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	}
	lipgloss.SetColorProfile(profile)
}

// applyThemePreference configures background detection. Some terminals do
// not report their background, which flips AdaptiveColor the wrong way.
//
// Priority: STORYMAP_TUI_THEME=light|dark, then the COLORFGBG heuristic.
func applyThemePreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("STORYMAP_TUI_THEME"))) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return
	}
	// COLORFGBG is often "fg;bg"; use the last segment as bg.
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			lipgloss.SetHasDarkBackground(bg < 7)
		}
	}
}

func statusGlyph(s string) (string, lipgloss.TerminalColor) {
	switch s {
	case "in_progress":
		return "◐", colorStatusActive
	case "done":
		return "●", colorStatusDone
	case "blocked":
		return "✖", colorStatusBlocked
	default:
		return "○", colorStatusTodo
	}
}
