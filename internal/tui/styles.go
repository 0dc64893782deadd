package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorOrange  = lipgloss.Color("#F28C28")
	colorGreen   = lipgloss.Color("78")
	colorYellow  = lipgloss.Color("220")
	colorRed     = lipgloss.Color("196")
	colorBlue    = lipgloss.Color("111")
	colorGray    = lipgloss.Color("242")
	colorDimGray = lipgloss.Color("238")
	colorWhite   = lipgloss.Color("255")
)

// Welcome banner.
var (
	logoBodyStyle    = lipgloss.NewStyle().Foreground(colorGray)
	logoDotStyle     = lipgloss.NewStyle().Foreground(colorOrange).Bold(true)
	logoTitleStyle   = lipgloss.NewStyle().Foreground(colorWhite).Bold(true)
	versionStyle     = lipgloss.NewStyle().Foreground(colorGray)
	welcomeHintStyle = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
	welcomeInfoLabel = lipgloss.NewStyle().Foreground(colorGray)
)

// Input line, hint bar and command menu.
var (
	promptSymbol         = lipgloss.NewStyle().Foreground(colorOrange).Bold(true)
	hintBarStyle         = lipgloss.NewStyle().Foreground(colorGray)
	hintKeyStyle         = hintBarStyle.Bold(true)
	separatorStyle       = lipgloss.NewStyle().Foreground(colorDimGray)
	cmdNameStyle         = lipgloss.NewStyle().Foreground(colorOrange)
	cmdDescStyle         = lipgloss.NewStyle().Foreground(colorGray)
	cmdSelectedNameStyle = cmdNameStyle.Bold(true).Reverse(true)
	cmdSelectedDescStyle = lipgloss.NewStyle().Foreground(colorWhite).Bold(true)
)

// Scrollback messages.
var (
	userPromptStyle    = lipgloss.NewStyle().Foreground(colorOrange).Bold(true)
	assistantNameStyle = lipgloss.NewStyle().Foreground(colorBlue).Bold(true)
	successMsgStyle    = lipgloss.NewStyle().Foreground(colorGreen)
	errorMsgStyle      = lipgloss.NewStyle().Foreground(colorRed)
	warnMsgStyle       = lipgloss.NewStyle().Foreground(colorYellow)
	dimStyle           = lipgloss.NewStyle().Foreground(colorGray)
)
