package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Console colors and styles
var (
	ColorBlue   = lipgloss.Color("63")  // 🔧 Build steps
	ColorPurple = lipgloss.Color("141") // 📦 Artifacts
	ColorGreen  = lipgloss.Color("42")  // ✅ Success
	ColorYellow = lipgloss.Color("220") // ⚠️  Warning
	ColorRed    = lipgloss.Color("196") // ❌ Error
	ColorGray   = lipgloss.Color("240") // Subtle text

	// Text styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPurple)

	StepStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	// Emoji icons
	IconTool    = "🔧"
	IconSuccess = "✅"
	IconWarning = "⚠️ "
	IconError   = "❌"
	IconRocket  = "🚀"
	IconPackage = "📦"
	IconWatch   = "👀"
	IconClean   = "🧹"
)

// Title prints a bold heading line.
func Title(w io.Writer, icon, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", icon, TitleStyle.Render(fmt.Sprintf(format, args...)))
}

// Step prints an in-progress status line.
func Step(w io.Writer, icon, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", icon, StepStyle.Render(fmt.Sprintf(format, args...)))
}

// Success prints a success status line.
func Success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", IconSuccess, SuccessStyle.Render(fmt.Sprintf(format, args...)))
}

// Warning prints a warning status line.
func Warning(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s%s\n", IconWarning, WarningStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error status line.
func Error(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", IconError, ErrorStyle.Render(fmt.Sprintf(format, args...)))
}

// Hint prints a dimmed help line.
func Hint(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "   %s\n", HelpStyle.Render(fmt.Sprintf(format, args...)))
}
