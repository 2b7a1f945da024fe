package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ANSI color codes. All are empty when color output is disabled.
var (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[91m"
	ColorGreen  = "\033[92m"
	ColorYellow = "\033[93m"
	ColorBlue   = "\033[94m"
	ColorPurple = "\033[95m"
	ColorCyan   = "\033[96m"
	ColorBold   = "\033[1m"
	ActiveTheme = "nordonedark"
)

// Unicode symbols
var (
	SymbolCheck   = "✓"
	SymbolCross   = "✗"
	SymbolArrow   = "→"
	SymbolUpload  = "⬆"
	SymbolInfo    = "ℹ"
	SymbolWarning = "⚠"
	SymbolSkip    = "↷"
	SymbolLink    = "🔗"
)

func init() {
	InitColorPalette()
}

// InitColorPalette selects the color theme based on MDIMG_THEME, or turns
// colors off when stdout is not a terminal or NO_COLOR is set.
func InitColorPalette() {
	if !ColorEnabled() {
		disableColors()
		return
	}
	theme := strings.ToLower(strings.TrimSpace(os.Getenv("MDIMG_THEME")))
	if theme != "" {
		ActiveTheme = theme
	}

	switch ActiveTheme {
	case "plain", "none":
		disableColors()
	case "vivid":
		initVividPalette()
	default:
		initNordOneDarkPalette()
	}
}

// ColorEnabled reports whether ANSI colors should be written to stdout.
func ColorEnabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func disableColors() {
	ColorReset = ""
	ColorRed = ""
	ColorGreen = ""
	ColorYellow = ""
	ColorBlue = ""
	ColorPurple = ""
	ColorCyan = ""
	ColorBold = ""
}

func initVividPalette() {
	if SupportsTruecolor() {
		ColorRed = "\033[1;38;2;255;76;102m"
		ColorGreen = "\033[1;38;2;80;250;123m"
		ColorYellow = "\033[1;38;2;255;221;87m"
		ColorBlue = "\033[1;38;2;110;196;255m"
		ColorPurple = "\033[1;38;2;215;130;255m"
		ColorCyan = "\033[1;38;2;0;245;255m"
		return
	}
	ColorRed = "\033[1;91m"
	ColorGreen = "\033[1;92m"
	ColorYellow = "\033[1;93m"
	ColorBlue = "\033[1;94m"
	ColorPurple = "\033[1;95m"
	ColorCyan = "\033[1;96m"
}

func initNordOneDarkPalette() {
	if SupportsTruecolor() {
		ColorRed = "\033[1;38;2;224;108;117m"
		ColorGreen = "\033[1;38;2;152;195;121m"
		ColorYellow = "\033[1;38;2;229;192;123m"
		ColorBlue = "\033[1;38;2;143;188;255m"
		ColorPurple = "\033[1;38;2;180;142;255m"
		ColorCyan = "\033[1;38;2;136;220;255m"
		return
	}
	if Supports256Color() {
		ColorRed = "\033[1;38;5;210m"
		ColorGreen = "\033[1;38;5;114m"
		ColorYellow = "\033[1;38;5;222m"
		ColorBlue = "\033[1;38;5;111m"
		ColorPurple = "\033[1;38;5;183m"
		ColorCyan = "\033[1;38;5;159m"
	}
}

// SupportsTruecolor checks if the terminal supports 24-bit color.
func SupportsTruecolor() bool {
	termName := strings.ToLower(os.Getenv("TERM"))
	colorTerm := strings.ToLower(os.Getenv("COLORTERM"))
	return strings.Contains(colorTerm, "truecolor") ||
		strings.Contains(colorTerm, "24bit") ||
		strings.Contains(termName, "truecolor")
}

// Supports256Color checks if the terminal supports 256 colors.
func Supports256Color() bool {
	return strings.Contains(strings.ToLower(os.Getenv("TERM")), "256color")
}
