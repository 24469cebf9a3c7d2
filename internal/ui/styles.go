package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/gubarz/pagemd/internal/blocks"
	"github.com/gubarz/pagemd/internal/config"
)

// StyleManager encapsulates all TUI styles and provides methods for style operations
type StyleManager struct {
	// Block styles
	Title    lipgloss.Style
	Heading2 lipgloss.Style
	Heading3 lipgloss.Style
	Body     lipgloss.Style
	Caption  lipgloss.Style

	// Inline styles
	Link     lipgloss.Style
	Download lipgloss.Style
	Image    lipgloss.Style

	// Chrome styles
	Selected lipgloss.Style
	Gutter   lipgloss.Style
	Caret    lipgloss.Style
	Dim      lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Divider  lipgloss.Style

	// Colors for direct access
	AccentColor lipgloss.Color
}

// DefaultStyles returns a StyleManager with default styles
func DefaultStyles() *StyleManager {
	return &StyleManager{
		Title:       lipgloss.NewStyle().Bold(true),
		Heading2:    lipgloss.NewStyle().Bold(true),
		Heading3:    lipgloss.NewStyle().Bold(true),
		Body:        lipgloss.NewStyle(),
		Caption:     lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241")),
		Link:        lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("4")),
		Download:    lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("2")),
		Image:       lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		Selected:    lipgloss.NewStyle().Background(lipgloss.Color("236")),
		Gutter:      lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		Caret:       lipgloss.NewStyle().Reverse(true),
		Dim:         lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Status:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Error:       lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		Divider:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		AccentColor: lipgloss.Color("212"),
	}
}

// LoadFromConfig updates styles based on configuration
func (s *StyleManager) LoadFromConfig() {
	titleColor := parseANSIColor(config.GetColorTitle())
	headingColor := parseANSIColor(config.GetColorHeading())
	linkColor := parseANSIColor(config.GetColorLink())
	dimColor := parseANSIColor(config.GetColorDim())
	accentColor := parseANSIColor(config.GetColorAccent())

	s.Title = lipgloss.NewStyle().Bold(true).Foreground(titleColor)
	s.Heading2 = lipgloss.NewStyle().Bold(true).Foreground(headingColor)
	s.Heading3 = lipgloss.NewStyle().Foreground(headingColor)
	s.Caption = lipgloss.NewStyle().Italic(true).Foreground(dimColor)

	s.Link = lipgloss.NewStyle().Underline(true).Foreground(linkColor)
	s.Download = s.Link.Bold(true)

	s.Gutter = lipgloss.NewStyle().Foreground(accentColor)
	s.Dim = lipgloss.NewStyle().Foreground(dimColor)
	s.Status = lipgloss.NewStyle().Foreground(dimColor)
	s.Divider = lipgloss.NewStyle().Foreground(dimColor)
	s.AccentColor = accentColor
}

// ForKind returns the block style for a block kind
func (s *StyleManager) ForKind(k blocks.Kind) lipgloss.Style {
	switch k {
	case blocks.Title:
		return s.Title
	case blocks.Heading2:
		return s.Heading2
	case blocks.Heading3:
		return s.Heading3
	case blocks.Caption:
		return s.Caption
	default:
		return s.Body
	}
}

// parseANSIColor converts ANSI color codes to lipgloss colors
func parseANSIColor(code string) lipgloss.Color {
	ansiToLipgloss := map[string]string{
		"30": "0", "31": "1", "32": "2", "33": "3",
		"34": "4", "35": "5", "36": "6", "37": "7",
		"90": "8", "91": "9", "92": "10", "93": "11",
		"94": "12", "95": "13", "96": "14", "97": "15",
	}
	if mapped, ok := ansiToLipgloss[code]; ok {
		return lipgloss.Color(mapped)
	}
	return lipgloss.Color(code)
}

// Global style manager instance
var styles = DefaultStyles()

// RefreshStyles updates the global styles from config
func RefreshStyles() {
	styles.LoadFromConfig()
}
