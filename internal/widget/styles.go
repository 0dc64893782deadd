package widget

import "github.com/charmbracelet/lipgloss"

// ─── Colors ─────────────────────────────────────────────────────────────────

var (
	colorAccent  = lipgloss.Color("#F28C28")
	colorGreen   = lipgloss.Color("78")
	colorYellow  = lipgloss.Color("220")
	colorRed     = lipgloss.Color("196")
	colorMagenta = lipgloss.Color("213")
	colorBlue    = lipgloss.Color("111")
	colorGray    = lipgloss.Color("242")
	colorWhite   = lipgloss.Color("255")
)

// ─── Reasoning panel ────────────────────────────────────────────────────────

var reasoningHeaderStyle = lipgloss.NewStyle().
	Foreground(colorMagenta).
	Bold(true)

var reasoningDoneStyle = lipgloss.NewStyle().
	Foreground(colorGreen).
	Bold(true)

var stepTitleStyle = lipgloss.NewStyle().
	Foreground(colorWhite).
	Bold(true)

var stepBodyStyle = lipgloss.NewStyle().
	Foreground(colorGray)

// ─── Sources / status ───────────────────────────────────────────────────────

var sourcesHeaderStyle = lipgloss.NewStyle().
	Foreground(colorBlue).
	Bold(true)

var sourceLinkStyle = lipgloss.NewStyle().
	Foreground(colorBlue).
	Underline(true)

var statusStyle = lipgloss.NewStyle().
	Foreground(colorYellow)

var errorStyle = lipgloss.NewStyle().
	Foreground(colorRed)

var dimStyle = lipgloss.NewStyle().
	Foreground(colorGray)

var hintStyle = lipgloss.NewStyle().
	Foreground(colorGray).
	Italic(true)

// ─── Plain markdown ─────────────────────────────────────────────────────────

var headingStyle = lipgloss.NewStyle().Bold(true)

var boldStyle = lipgloss.NewStyle().Bold(true)

var codeFenceStyle = lipgloss.NewStyle().
	Foreground(colorGreen)

var quoteStyle = lipgloss.NewStyle().
	Foreground(colorAccent)
