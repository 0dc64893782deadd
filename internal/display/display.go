package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Out and ErrOut are where the helpers write. Tests swap them.
var (
	Out    io.Writer = os.Stdout
	ErrOut io.Writer = os.Stderr
)

var (
	colorCyan    = lipgloss.Color("87")
	colorGreen   = lipgloss.Color("78")
	colorYellow  = lipgloss.Color("220")
	colorRed     = lipgloss.Color("196")
	colorMagenta = lipgloss.Color("213")
	colorBlue    = lipgloss.Color("111")
	colorGray    = lipgloss.Color("242")
	colorWhite   = lipgloss.Color("255")
)

var (
	headerStyle    = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	subHeaderStyle = lipgloss.NewStyle().Foreground(colorWhite).Bold(true)
	successStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	errorStyle     = lipgloss.NewStyle().Foreground(colorRed)
	warnStyle      = lipgloss.NewStyle().Foreground(colorYellow)
	labelStyle     = lipgloss.NewStyle().Faint(true).Width(20)
	thinkingStyle  = lipgloss.NewStyle().Foreground(colorMagenta).Bold(true)
	stepTitleStyle = lipgloss.NewStyle().Foreground(colorWhite).Bold(true)
	sourcesStyle   = lipgloss.NewStyle().Foreground(colorBlue).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(colorGray)
)

func Header(text string) {
	fmt.Fprintf(Out, "\n%s\n", headerStyle.Render(text))
	fmt.Fprintln(Out, strings.Repeat("─", min(len(text)+4, 80)))
}

func SubHeader(text string) {
	fmt.Fprintln(Out, subHeaderStyle.Render(text))
}

func Success(text string) {
	fmt.Fprintf(Out, "%s %s\n", successStyle.Render("✓"), text)
}

func Error(text string) {
	fmt.Fprintf(ErrOut, "%s %s\n", errorStyle.Render("✗"), text)
}

func Warn(text string) {
	fmt.Fprintf(Out, "%s %s\n", warnStyle.Render("!"), text)
}

func Info(label, value string) {
	fmt.Fprintf(Out, "  %s %s\n", labelStyle.Render(label), value)
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
