package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dpshade/prompt-vault/internal/models"
)

// Design System Colors - set by applyTheme
var (
	ColorPrimary   lipgloss.Color
	ColorSecondary lipgloss.Color
	ColorAccent    lipgloss.Color

	ColorSuccess lipgloss.Color
	ColorWarning lipgloss.Color
	ColorError   lipgloss.Color
	ColorInfo    lipgloss.Color

	ColorText       lipgloss.Color
	ColorTextMuted  lipgloss.Color
	ColorTextDim    lipgloss.Color
	ColorBorder     lipgloss.Color
	ColorBackground lipgloss.Color
	ColorSurface    lipgloss.Color
)

// Component styles, rebuilt whenever the theme changes
var (
	StyleTitle     lipgloss.Style
	StyleText      lipgloss.Style
	StyleTextMuted lipgloss.Style
	StyleTextDim   lipgloss.Style

	StyleSuccess lipgloss.Style
	StyleWarning lipgloss.Style
	StyleError   lipgloss.Style
	StyleInfo    lipgloss.Style

	StyleModal            lipgloss.Style
	StyleContentContainer lipgloss.Style
	StyleFormLabel        lipgloss.Style
	StyleLoading          lipgloss.Style
	StyleFilterIndicator  lipgloss.Style
	StyleModeOn           lipgloss.Style
	StyleModeOff          lipgloss.Style
	StyleMetadata         lipgloss.Style

	StyleScrollIndicator       lipgloss.Style
	StyleScrollIndicatorActive lipgloss.Style
)

// applyTheme sets colors for a selected_theme value and rebuilds the styles.
// It returns true when the resulting palette is the dark one.
func applyTheme(theme string) bool {
	dark := isDarkTheme(theme)
	if dark {
		setDarkThemeColors()
	} else {
		setLightThemeColors()
	}
	buildStyles()
	return dark
}

func isDarkTheme(theme string) bool {
	switch theme {
	case models.ThemeDark:
		return true
	case models.ThemeLight:
		return false
	}

	// System: honor the GLAMOUR_STYLE override, then ask the terminal
	switch os.Getenv("GLAMOUR_STYLE") {
	case "light":
		return false
	case "dark":
		return true
	}
	return lipgloss.HasDarkBackground()
}

func setDarkThemeColors() {
	ColorPrimary = lipgloss.Color("205")   // Bright magenta/pink
	ColorSecondary = lipgloss.Color("33")  // Bright cyan/blue
	ColorAccent = lipgloss.Color("214")    // Bright orange/yellow
	ColorSuccess = lipgloss.Color("10")    // Bright green
	ColorWarning = lipgloss.Color("11")    // Bright yellow
	ColorError = lipgloss.Color("9")       // Bright red
	ColorInfo = lipgloss.Color("12")       // Bright blue
	ColorText = lipgloss.Color("252")      // Near white
	ColorTextMuted = lipgloss.Color("244") // Light gray
	ColorTextDim = lipgloss.Color("240")   // Medium gray
	ColorBorder = lipgloss.Color("238")
	ColorBackground = lipgloss.Color("235")
	ColorSurface = lipgloss.Color("236")
}

func setLightThemeColors() {
	ColorPrimary = lipgloss.Color("125")   // Darker magenta for contrast
	ColorSecondary = lipgloss.Color("24")  // Darker cyan
	ColorAccent = lipgloss.Color("130")    // Darker orange
	ColorSuccess = lipgloss.Color("22")    // Dark green
	ColorWarning = lipgloss.Color("136")   // Dark yellow/orange
	ColorError = lipgloss.Color("160")     // Dark red
	ColorInfo = lipgloss.Color("24")       // Dark blue
	ColorText = lipgloss.Color("232")      // Near black
	ColorTextMuted = lipgloss.Color("240") // Dark gray
	ColorTextDim = lipgloss.Color("244")   // Medium gray
	ColorBorder = lipgloss.Color("248")
	ColorBackground = lipgloss.Color("255")
	ColorSurface = lipgloss.Color("254")
}

func buildStyles() {
	StyleTitle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(0, 1)

	StyleText = lipgloss.NewStyle().Foreground(ColorText)
	StyleTextMuted = lipgloss.NewStyle().Foreground(ColorTextMuted)
	StyleTextDim = lipgloss.NewStyle().Foreground(ColorTextDim)

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true).Padding(0, 1)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true).Padding(0, 1)
	StyleError = lipgloss.NewStyle().Foreground(ColorError).Bold(true).Padding(0, 1)
	StyleInfo = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true).Padding(0, 1)

	StyleModal = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(1, 3).
		Background(ColorBackground)

	StyleContentContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1).
		MarginTop(1)

	StyleFormLabel = lipgloss.NewStyle().
		Foreground(ColorText).
		Bold(true)

	StyleLoading = lipgloss.NewStyle().
		Foreground(ColorInfo).
		Italic(true).
		Padding(0, 1)

	StyleFilterIndicator = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Background(ColorSurface).
		Bold(true).
		Padding(0, 1)

	StyleModeOn = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleModeOff = lipgloss.NewStyle().Foreground(ColorTextDim)

	StyleMetadata = lipgloss.NewStyle().
		Foreground(ColorTextDim).
		Padding(0, 1)

	StyleScrollIndicator = lipgloss.NewStyle().
		Foreground(ColorTextDim).
		Align(lipgloss.Center)

	StyleScrollIndicatorActive = lipgloss.NewStyle().
		Foreground(ColorSecondary).
		Bold(true).
		Align(lipgloss.Center)
}

func init() {
	setDarkThemeColors()
	buildStyles()
}

// CreateMainHeader renders a page title
func CreateMainHeader(titleText string) string {
	return StyleTitle.Render(titleText)
}

func CreateMetadata(text string) string {
	return StyleMetadata.Render(text)
}

// CreateContextualHelp renders the essential keybinds on the first row and,
// when expanded, each additional row below it
func CreateContextualHelp(essential []string, additional []string, showExpanded bool, width int) string {
	var lines []string

	firstRowParts := essential
	if len(additional) > 0 && !showExpanded {
		firstRowParts = append(append([]string{}, essential...), "? more")
	}
	lines = append(lines, truncate(strings.Join(firstRowParts, " • "), width))

	if showExpanded {
		for _, row := range additional {
			lines = append(lines, truncate(row, width))
		}
	}
	return StyleTextDim.Render(strings.Join(lines, "\n"))
}

func truncate(text string, width int) string {
	runes := []rune(text)
	if width > 7 && len(runes) > width-4 {
		return string(runes[:width-7]) + "..."
	}
	return text
}

// Status kinds for CreateStatus
const (
	statusSuccess = "success"
	statusWarning = "warning"
	statusError   = "error"
	statusInfo    = "info"
)

func CreateStatus(text string, statusType string) string {
	switch statusType {
	case statusSuccess:
		return StyleSuccess.Render(text)
	case statusWarning:
		return StyleWarning.Render(text)
	case statusError:
		return StyleError.Render(text)
	case statusInfo:
		return StyleInfo.Render(text)
	default:
		return StyleText.Render(text)
	}
}

// CreateModeIndicator shows whether a formatting mode is on
func CreateModeIndicator(label string, on bool) string {
	if on {
		return StyleModeOn.Render("● " + label)
	}
	return StyleModeOff.Render("○ " + label)
}

// CenterModal places content in the middle of the screen
func CenterModal(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// AddMainPadding indents page content
func AddMainPadding(content string) string {
	return lipgloss.NewStyle().PaddingLeft(2).Render(content)
}

// CreateScrollIndicators renders the markers above and below a viewport
func CreateScrollIndicators(canScrollUp, canScrollDown bool) (string, string) {
	top := StyleScrollIndicator.Render("─────────")
	if canScrollUp {
		top = StyleScrollIndicatorActive.Render("...")
	}
	bottom := StyleScrollIndicator.Render("─────────")
	if canScrollDown {
		bottom = StyleScrollIndicatorActive.Render("...")
	}
	return top, bottom
}
